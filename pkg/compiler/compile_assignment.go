package compiler

import (
	"strings"

	"regjs/pkg/ast"
	"regjs/pkg/bytecode"
	"regjs/pkg/errors"
)

// bindMode selects what a destructuring target name means.
type bindMode uint8

const (
	bindLexical bindMode = iota // let, const and parameters: declare in the innermost scope
	bindVar                     // var: declare in the function scope
	bindAssign                  // assignment: resolve an existing binding
)

func (c *Compiler) declareTarget(name string, mode bindMode) Register {
	if mode == bindVar {
		return c.declareVar(name)
	}
	return c.declare(name)
}

// patternNames appends the names a binding pattern declares, in source order.
func patternNames(target ast.Pattern, names []string) []string {
	switch t := target.(type) {
	case *ast.Identifier:
		names = append(names, t.Name)
	case *ast.ArrayPattern:
		for _, elem := range t.Elements {
			if elem != nil {
				names = patternNames(elem, names)
			}
		}
	case *ast.ObjectPattern:
		for _, prop := range t.Properties {
			names = patternNames(prop.Value, names)
		}
		if t.Rest != nil {
			names = patternNames(t.Rest, names)
		}
	case *ast.AssignmentPattern:
		names = patternNames(t.Left, names)
	case *ast.RestElement:
		names = patternNames(t.Argument, names)
	}
	return names
}

// --- Assignment targets ---

type lvalueKind uint8

const (
	lvalueName lvalueKind = iota
	lvalueMember
)

// lvalue is an assignment target whose object and key, for members, have
// already been evaluated.
type lvalue struct {
	kind   lvalueKind
	node   ast.Node
	ref    symbolRef             // lvalueName
	member *ast.MemberExpression // lvalueMember
	obj    Register
	key    Register
}

func (lv *lvalue) isLocal() bool {
	return lv.kind == lvalueName && lv.ref.kind == symbolLocal
}

func (c *Compiler) compileLvalue(target ast.Node) (*lvalue, error) {
	switch t := target.(type) {
	case *ast.Identifier:
		ref, err := c.resolve(t)
		if err != nil {
			return nil, err
		}
		switch ref.kind {
		case symbolConstant, symbolIntrinsic:
			return nil, NewCompileError(t, errors.UnsupportedLeftHandSide, "cannot assign to '%s'", t.Name)
		}
		return &lvalue{kind: lvalueName, node: t, ref: ref}, nil

	case *ast.MemberExpression:
		obj, err := c.compileExpression(t.Object)
		if err != nil {
			return nil, err
		}
		key, err := c.compileMemberKey(t)
		if err != nil {
			return nil, err
		}
		return &lvalue{kind: lvalueMember, node: t, member: t, obj: obj, key: key}, nil

	default:
		return nil, NewCompileError(target, errors.UnsupportedLeftHandSide, "invalid assignment target %s", target.Type())
	}
}

func (c *Compiler) loadLvalue(lv *lvalue, line int) Register {
	if lv.kind == lvalueName {
		return c.load(lv.ref, line)
	}
	dest := c.regAlloc.Alloc()
	c.emit(memberGetOp(lv.member), line, bytecode.R(dest), bytecode.R(lv.obj), bytecode.R(lv.key))
	return dest
}

func (c *Compiler) storeLvalue(lv *lvalue, src Register) error {
	if lv.kind == lvalueName {
		return c.store(lv.ref, src, lv.node)
	}
	c.emit(memberSetOp(lv.member), lineOf(lv.node), bytecode.R(lv.obj), bytecode.R(lv.key), bytecode.R(src))
	return nil
}

// releaseLvalue frees the evaluated object and key of a member target.
func (c *Compiler) releaseLvalue(lv *lvalue) {
	if lv.kind == lvalueMember {
		c.freeTemp(lv.key)
		c.freeTemp(lv.obj)
	}
}

// --- Assignment ---

func (c *Compiler) compileAssignmentExpression(node *ast.AssignmentExpression) (Register, error) {
	if node.Operator == "=" {
		return c.compileSimpleAssignment(node)
	}

	operator := strings.TrimSuffix(node.Operator, "=")
	if !strings.HasSuffix(node.Operator, "=") || !isBinaryOperator(operator) {
		return BadRegister, NewCompileError(node, errors.UnsupportedOperator, "unsupported assignment operator '%s'", node.Operator)
	}
	line := lineOf(node)

	lv, err := c.compileLvalue(node.Left)
	if err != nil {
		return BadRegister, err
	}
	current := c.loadLvalue(lv, line)
	right, err := c.compileOperand(operator, node.Right)
	if err != nil {
		return BadRegister, err
	}

	if lv.isLocal() {
		c.emitBinaryOp(operator, current, regOperand(current), right, line)
		c.freeArith(right)
		return current, nil
	}

	dest := c.regAlloc.Alloc()
	c.emitBinaryOp(operator, dest, regOperand(current), right, line)
	if err := c.storeLvalue(lv, dest); err != nil {
		return BadRegister, err
	}
	c.freeArith(right)
	c.freeTemp(current)
	c.releaseLvalue(lv)
	return dest, nil
}

func (c *Compiler) compileSimpleAssignment(node *ast.AssignmentExpression) (Register, error) {
	switch target := node.Left.(type) {
	case *ast.ArrayPattern, *ast.ObjectPattern:
		value, err := c.compileExpression(node.Right)
		if err != nil {
			return BadRegister, err
		}
		if err := c.bindPattern(target, value, bindAssign); err != nil {
			return BadRegister, err
		}
		return value, nil

	case *ast.Identifier, *ast.MemberExpression:
		lv, err := c.compileLvalue(target)
		if err != nil {
			return BadRegister, err
		}
		value, err := c.compileExpression(node.Right)
		if err != nil {
			return BadRegister, err
		}
		if err := c.storeLvalue(lv, value); err != nil {
			return BadRegister, err
		}
		c.releaseLvalue(lv)
		if lv.isLocal() {
			c.freeTemp(value)
			return lv.ref.reg, nil
		}
		return value, nil

	default:
		return BadRegister, NewCompileError(node.Left, errors.UnsupportedLeftHandSide, "invalid assignment target %s", node.Left.Type())
	}
}

// compileUpdateExpression lowers ++ and --. The postfix forms yield a copy
// of the old value.
func (c *Compiler) compileUpdateExpression(node *ast.UpdateExpression) (Register, error) {
	var delta float64
	switch node.Operator {
	case "++":
		delta = 1
	case "--":
		delta = -1
	default:
		return BadRegister, NewCompileError(node, errors.UnsupportedOperator, "unsupported update operator '%s'", node.Operator)
	}
	line := lineOf(node)

	lv, err := c.compileLvalue(node.Argument)
	if err != nil {
		return BadRegister, err
	}

	if lv.isLocal() {
		reg := lv.ref.reg
		if node.Prefix {
			c.emitIncrement(reg, reg, delta, line)
			return reg, nil
		}
		old := c.regAlloc.Alloc()
		c.emitMove(old, reg, line)
		c.emitIncrement(reg, reg, delta, line)
		return old, nil
	}

	current := c.loadLvalue(lv, line)
	updated := c.regAlloc.Alloc()
	c.emitIncrement(updated, current, delta, line)
	if err := c.storeLvalue(lv, updated); err != nil {
		return BadRegister, err
	}
	c.releaseLvalue(lv)
	if node.Prefix {
		c.freeTemp(current)
		return updated, nil
	}
	c.freeTemp(updated)
	return current, nil
}

// --- Destructuring ---

// bindPattern binds value to target. In the declaring modes names are
// declared; in bindAssign they are resolved. value is left to the caller.
func (c *Compiler) bindPattern(target ast.Pattern, value Register, mode bindMode) error {
	switch t := target.(type) {
	case *ast.Identifier:
		if mode == bindAssign {
			ref, err := c.resolve(t)
			if err != nil {
				return err
			}
			return c.store(ref, value, t)
		}
		reg := c.declareTarget(t.Name, mode)
		c.emitMove(reg, value, lineOf(t))
		return nil

	case *ast.MemberExpression:
		if mode != bindAssign {
			return NewCompileError(t, errors.UnsupportedPattern, "member expression in a declaration")
		}
		lv, err := c.compileLvalue(t)
		if err != nil {
			return err
		}
		if err := c.storeLvalue(lv, value); err != nil {
			return err
		}
		c.releaseLvalue(lv)
		return nil

	case *ast.ArrayPattern:
		return c.bindArrayPattern(t, value, mode)

	case *ast.ObjectPattern:
		return c.bindObjectPattern(t, value, mode)

	case *ast.AssignmentPattern:
		return c.bindWithDefault(t, value, mode)

	case *ast.RestElement:
		return NewCompileError(t, errors.UnsupportedPattern, "rest element outside an array pattern")

	default:
		return NewCompileError(target, errors.UnsupportedLeftHandSide, "invalid destructuring target %s", target.Type())
	}
}

// bindWithDefault binds value to node.Left, or node.Right when value is
// undefined:
//
//	KPRI u, undefined; ISTNE c, value, u; JMPT c, Lhave
//	<default> -> target; JMP Ldone
//	Lhave: MOV target, value
//	Ldone:
func (c *Compiler) bindWithDefault(node *ast.AssignmentPattern, value Register, mode bindMode) error {
	line := lineOf(node)

	var selected Register
	id, direct := node.Left.(*ast.Identifier)
	direct = direct && mode != bindAssign
	if direct {
		selected = c.declareTarget(id.Name, mode)
	} else {
		selected = c.regAlloc.Alloc()
	}

	undef := c.regAlloc.Alloc()
	c.emitLoadUndefined(undef, line)
	cond := c.regAlloc.Alloc()
	c.emit(bytecode.ISTNE, line, bytecode.R(cond), bytecode.R(value), bytecode.R(undef))

	haveLabel := c.newLabel()
	doneLabel := c.newLabel()
	c.emitJumpIfTrue(cond, haveLabel, line)
	c.regAlloc.Free(cond)
	c.regAlloc.Free(undef)

	def, err := c.compileExpression(node.Right)
	if err != nil {
		return err
	}
	c.emitMove(selected, def, line)
	c.freeTemp(def)
	c.emitJump(doneLabel, line)

	c.defineLabel(haveLabel)
	c.emitMove(selected, value, line)
	c.defineLabel(doneLabel)

	if direct {
		return nil
	}
	if err := c.bindPattern(node.Left, selected, mode); err != nil {
		return err
	}
	c.regAlloc.Free(selected)
	return nil
}

// bindArrayPattern reads each positional element with AGETN and binds it.
// Holes are skipped; a rest element collects the remainder.
func (c *Compiler) bindArrayPattern(pattern *ast.ArrayPattern, value Register, mode bindMode) error {
	line := lineOf(pattern)
	last := len(pattern.Elements) - 1
	for i, elem := range pattern.Elements {
		switch e := elem.(type) {
		case nil:
			continue
		case *ast.RestElement:
			if i != last {
				return NewCompileError(e, errors.UnsupportedPattern, "rest element must be last")
			}
			return c.bindArrayRest(e, value, i, mode)
		}
		item := c.regAlloc.Alloc()
		c.emit(bytecode.AGETN, line, bytecode.R(item), bytecode.R(value), bytecode.I(i))
		if err := c.bindPattern(elem, item, mode); err != nil {
			return err
		}
		c.regAlloc.Free(item)
	}
	return nil
}

// bindArrayRest copies value[start:] into a fresh array and binds it:
//
//	ANEW rest; ALEN n, value; KNUM i, start; KNUM j, 0
//	Lloop: ISLT c, i, n; JMPF c, Lend
//	AGETV v, value, i; ASETV rest, j, v
//	ADDVN i, i, 1; ADDVN j, j, 1; JMP Lloop
//	Lend:
func (c *Compiler) bindArrayRest(rest *ast.RestElement, value Register, start int, mode bindMode) error {
	line := lineOf(rest)

	arr := c.regAlloc.Alloc()
	c.emit(bytecode.ANEW, line, bytecode.R(arr))
	length := c.regAlloc.Alloc()
	c.emit(bytecode.ALEN, line, bytecode.R(length), bytecode.R(value))
	i := c.regAlloc.Alloc()
	c.emitLoadNumber(i, float64(start), line)
	j := c.regAlloc.Alloc()
	c.emitLoadNumber(j, 0, line)

	loopLabel := c.newLabel()
	endLabel := c.newLabel()

	c.defineLabel(loopLabel)
	cond := c.regAlloc.Alloc()
	c.emit(bytecode.ISLT, line, bytecode.R(cond), bytecode.R(i), bytecode.R(length))
	c.emitJumpIfFalse(cond, endLabel, line)
	c.regAlloc.Free(cond)

	item := c.regAlloc.Alloc()
	c.emit(bytecode.AGETV, line, bytecode.R(item), bytecode.R(value), bytecode.R(i))
	c.emit(bytecode.ASETV, line, bytecode.R(arr), bytecode.R(j), bytecode.R(item))
	c.regAlloc.Free(item)

	c.emitIncrement(i, i, 1, line)
	c.emitIncrement(j, j, 1, line)
	c.emitJump(loopLabel, line)
	c.defineLabel(endLabel)

	c.regAlloc.Free(j)
	c.regAlloc.Free(i)
	c.regAlloc.Free(length)

	if err := c.bindPattern(rest.Argument, arr, mode); err != nil {
		return err
	}
	c.regAlloc.Free(arr)
	return nil
}

// bindObjectPattern reads each property with OGETV and binds it.
func (c *Compiler) bindObjectPattern(pattern *ast.ObjectPattern, value Register, mode bindMode) error {
	if pattern.Rest != nil {
		return NewCompileError(pattern.Rest, errors.UnsupportedPattern, "object rest properties are not supported")
	}
	for _, prop := range pattern.Properties {
		key, err := c.compilePropertyKey(prop.Key, prop.Computed)
		if err != nil {
			return err
		}
		item := c.regAlloc.Alloc()
		c.emit(bytecode.OGETV, lineOf(prop), bytecode.R(item), bytecode.R(value), bytecode.R(key))
		c.freeTemp(key)
		if err := c.bindPattern(prop.Value, item, mode); err != nil {
			return err
		}
		c.regAlloc.Free(item)
	}
	return nil
}
