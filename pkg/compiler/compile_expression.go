package compiler

import (
	"regjs/pkg/ast"
	"regjs/pkg/bytecode"
	"regjs/pkg/errors"
)

// compileExpression lowers expr and returns the register holding its value.
// The register is either a binding register, which the caller must not free,
// or a temporary the caller owns and releases with freeTemp.
func (c *Compiler) compileExpression(expr ast.Expression) (Register, error) {
	switch node := expr.(type) {
	case *ast.Literal:
		return c.compileLiteral(node)

	case *ast.Identifier:
		return c.compileIdentifier(node)

	case *ast.BinaryExpression:
		return c.compileBinaryExpression(node)

	case *ast.LogicalExpression:
		return c.compileLogicalExpression(node)

	case *ast.UnaryExpression:
		return c.compileUnaryExpression(node)

	case *ast.UpdateExpression:
		return c.compileUpdateExpression(node)

	case *ast.AssignmentExpression:
		return c.compileAssignmentExpression(node)

	case *ast.ConditionalExpression:
		return c.compileConditionalExpression(node)

	case *ast.SequenceExpression:
		return c.compileSequenceExpression(node)

	case *ast.CallExpression:
		return c.compileCallExpression(node)

	case *ast.MemberExpression:
		return c.compileMemberExpression(node)

	case *ast.ArrayExpression:
		return c.compileArrayLiteral(node)

	case *ast.ObjectExpression:
		return c.compileObjectLiteral(node)

	case *ast.FunctionExpression:
		return c.compileFunctionExpression(node)

	case *ast.ArrowFunctionExpression:
		return c.compileArrowFunction(node)

	case *ast.AwaitExpression:
		return c.compileAwaitExpression(node)

	case *ast.SpreadElement:
		return BadRegister, NewCompileError(node, errors.UnsupportedExpression, "spread is not supported")

	default:
		return BadRegister, NewCompileError(expr, errors.UnsupportedExpression, "unsupported expression type %s", expr.Type())
	}
}

func (c *Compiler) compileIdentifier(node *ast.Identifier) (Register, error) {
	ref, err := c.resolve(node)
	if err != nil {
		return BadRegister, err
	}
	return c.load(ref, lineOf(node)), nil
}

// compileOperand lowers one side of a binary operator. A number literal
// under an operator with a specialized family stays in the instruction.
func (c *Compiler) compileOperand(operator string, expr ast.Expression) (arithOperand, error) {
	if lit, ok := expr.(*ast.Literal); ok && lit.Kind == ast.NumberLiteral {
		if _, specialized := bytecode.ArithOp(operator, bytecode.ShapeNN); specialized {
			return numOperand(lit.Number), nil
		}
	}
	reg, err := c.compileExpression(expr)
	if err != nil {
		return arithOperand{}, err
	}
	return regOperand(reg), nil
}

func isBinaryOperator(operator string) bool {
	if _, ok := bytecode.ArithOp(operator, bytecode.ShapeVV); ok {
		return true
	}
	_, ok := bytecode.BinaryOp(operator)
	return ok
}

func (c *Compiler) compileBinaryExpression(node *ast.BinaryExpression) (Register, error) {
	if !isBinaryOperator(node.Operator) {
		return BadRegister, NewCompileError(node, errors.UnsupportedOperator, "unsupported binary operator '%s'", node.Operator)
	}
	left, err := c.compileOperand(node.Operator, node.Left)
	if err != nil {
		return BadRegister, err
	}
	right, err := c.compileOperand(node.Operator, node.Right)
	if err != nil {
		return BadRegister, err
	}
	dest := c.regAlloc.Alloc()
	c.emitBinaryOp(node.Operator, dest, left, right, lineOf(node))
	c.freeArith(right)
	c.freeArith(left)
	return dest, nil
}

// compileLogicalExpression lowers the short-circuit operators:
//
//	dest <- left; JMPF|JMPT|JMPNN dest, Lend; dest <- right; Lend:
func (c *Compiler) compileLogicalExpression(node *ast.LogicalExpression) (Register, error) {
	line := lineOf(node)
	var jump func(Register, bytecode.Label, int)
	switch node.Operator {
	case "&&":
		jump = c.emitJumpIfFalse
	case "||":
		jump = c.emitJumpIfTrue
	case "??":
		jump = c.emitJumpIfNotNullish
	default:
		return BadRegister, NewCompileError(node, errors.UnsupportedOperator, "unsupported logical operator '%s'", node.Operator)
	}

	left, err := c.compileExpression(node.Left)
	if err != nil {
		return BadRegister, err
	}
	dest := left
	if c.isBound(left) {
		dest = c.regAlloc.Alloc()
		c.emitMove(dest, left, line)
	}

	endLabel := c.newLabel()
	jump(dest, endLabel, line)

	right, err := c.compileExpression(node.Right)
	if err != nil {
		return BadRegister, err
	}
	c.emitMove(dest, right, line)
	c.freeTemp(right)
	c.defineLabel(endLabel)
	return dest, nil
}

func (c *Compiler) compileConditionalExpression(node *ast.ConditionalExpression) (Register, error) {
	line := lineOf(node)
	dest := c.regAlloc.Alloc()

	test, err := c.compileExpression(node.Test)
	if err != nil {
		return BadRegister, err
	}
	elseLabel := c.newLabel()
	endLabel := c.newLabel()
	c.emitJumpIfFalse(test, elseLabel, line)
	c.freeTemp(test)

	consequent, err := c.compileExpression(node.Consequent)
	if err != nil {
		return BadRegister, err
	}
	c.emitMove(dest, consequent, line)
	c.freeTemp(consequent)
	c.emitJump(endLabel, line)

	c.defineLabel(elseLabel)
	alternate, err := c.compileExpression(node.Alternate)
	if err != nil {
		return BadRegister, err
	}
	c.emitMove(dest, alternate, line)
	c.freeTemp(alternate)
	c.defineLabel(endLabel)
	return dest, nil
}

func (c *Compiler) compileSequenceExpression(node *ast.SequenceExpression) (Register, error) {
	if len(node.Expressions) == 0 {
		return BadRegister, NewCompileError(node, errors.UnsupportedExpression, "empty sequence expression")
	}
	last := len(node.Expressions) - 1
	for _, expr := range node.Expressions[:last] {
		reg, err := c.compileExpression(expr)
		if err != nil {
			return BadRegister, err
		}
		c.freeTemp(reg)
	}
	return c.compileExpression(node.Expressions[last])
}

func (c *Compiler) compileUnaryExpression(node *ast.UnaryExpression) (Register, error) {
	line := lineOf(node)
	switch node.Operator {
	case "delete":
		return c.compileDelete(node)
	case "typeof":
		// typeof of an unknown name is "undefined", not an error.
		if id, ok := node.Argument.(*ast.Identifier); ok {
			if _, err := c.resolve(id); errors.IsKind(err, errors.UndeclaredIdentifier) {
				dest := c.regAlloc.Alloc()
				c.emitLoadString(dest, "undefined", line)
				return dest, nil
			}
		}
	case "-", "+", "!", "~", "void":
	default:
		return BadRegister, NewCompileError(node, errors.UnsupportedOperator, "unsupported unary operator '%s'", node.Operator)
	}

	operand, err := c.compileExpression(node.Argument)
	if err != nil {
		return BadRegister, err
	}
	dest := c.regAlloc.Alloc()
	switch node.Operator {
	case "-":
		c.emit(bytecode.UNM, line, bytecode.R(dest), bytecode.R(operand))
	case "+":
		c.emitMove(dest, operand, line)
	case "!":
		c.emit(bytecode.NOT, line, bytecode.R(dest), bytecode.R(operand))
	case "~":
		ones := c.regAlloc.Alloc()
		c.emitLoadNumber(ones, -1, line)
		c.emit(bytecode.BXOR, line, bytecode.R(dest), bytecode.R(operand), bytecode.R(ones))
		c.regAlloc.Free(ones)
	case "typeof":
		c.emit(bytecode.TYPEOF, line, bytecode.R(dest), bytecode.R(operand))
	case "void":
		c.emitLoadUndefined(dest, line)
	}
	c.freeTemp(operand)
	return dest, nil
}

// compileDelete stores null into the deleted slot and yields true.
func (c *Compiler) compileDelete(node *ast.UnaryExpression) (Register, error) {
	line := lineOf(node)
	switch target := node.Argument.(type) {
	case *ast.MemberExpression:
		obj, err := c.compileExpression(target.Object)
		if err != nil {
			return BadRegister, err
		}
		key, err := c.compileMemberKey(target)
		if err != nil {
			return BadRegister, err
		}
		null := c.regAlloc.Alloc()
		c.emitLoadNull(null, line)
		c.emit(memberSetOp(target), line, bytecode.R(obj), bytecode.R(key), bytecode.R(null))
		c.regAlloc.Free(null)
		c.freeTemp(key)
		c.freeTemp(obj)

	case *ast.Identifier:
		ref, err := c.resolve(target)
		if err != nil {
			return BadRegister, err
		}
		if ref.kind == symbolLocal {
			c.emitLoadNull(ref.reg, line)
			break
		}
		null := c.regAlloc.Alloc()
		c.emitLoadNull(null, line)
		if err := c.store(ref, null, target); err != nil {
			return BadRegister, NewCompileError(node, errors.UnsupportedExpression, "cannot delete '%s'", target.Name)
		}
		c.regAlloc.Free(null)

	default:
		return BadRegister, NewCompileError(node, errors.UnsupportedExpression, "cannot delete %s", node.Argument.Type())
	}
	dest := c.regAlloc.Alloc()
	c.emitLoadBool(dest, true, line)
	return dest, nil
}

func memberGetOp(node *ast.MemberExpression) bytecode.OpCode {
	if node.Computed {
		return bytecode.AGETV
	}
	return bytecode.OGETV
}

func memberSetOp(node *ast.MemberExpression) bytecode.OpCode {
	if node.Computed {
		return bytecode.ASETV
	}
	return bytecode.OSETV
}

// compileMemberKey lowers the key of a member access: the property name as a
// string for `o.p`, the subscript for `o[k]`.
func (c *Compiler) compileMemberKey(node *ast.MemberExpression) (Register, error) {
	if node.Computed {
		return c.compileExpression(node.Property)
	}
	name, ok := node.Property.(*ast.Identifier)
	if !ok {
		return BadRegister, NewCompileError(node.Property, errors.UnsupportedExpression, "unsupported property %s", node.Property.Type())
	}
	key := c.regAlloc.Alloc()
	c.emitLoadString(key, name.Name, lineOf(name))
	return key, nil
}

func (c *Compiler) compileMemberExpression(node *ast.MemberExpression) (Register, error) {
	obj, err := c.compileExpression(node.Object)
	if err != nil {
		return BadRegister, err
	}
	key, err := c.compileMemberKey(node)
	if err != nil {
		return BadRegister, err
	}
	dest := c.regAlloc.Alloc()
	c.emit(memberGetOp(node), lineOf(node), bytecode.R(dest), bytecode.R(obj), bytecode.R(key))
	c.freeTemp(key)
	c.freeTemp(obj)
	return dest, nil
}

// compileCallExpression lowers the callee, then each argument left to right
// into its own fresh register, then emits
//
//	CALL dest, callee, argc, args...
func (c *Compiler) compileCallExpression(node *ast.CallExpression) (Register, error) {
	line := lineOf(node)
	if id, ok := node.Callee.(*ast.Identifier); ok {
		if ref, err := c.resolve(id); err == nil && ref.kind == symbolIntrinsic {
			if len(node.Arguments) > 0 {
				return BadRegister, NewCompileError(node, errors.UnsupportedExpression, "intrinsic '%s' takes no arguments", id.Name)
			}
			return c.load(ref, line), nil
		}
	}

	callee, err := c.compileExpression(node.Callee)
	if err != nil {
		return BadRegister, err
	}

	args := c.regAlloc.NewGroup()
	for _, arg := range node.Arguments {
		if spread, ok := arg.(*ast.SpreadElement); ok {
			return BadRegister, NewCompileError(spread, errors.UnsupportedExpression, "spread arguments are not supported")
		}
		value, err := c.compileExpression(arg)
		if err != nil {
			return BadRegister, err
		}
		if c.isBound(value) {
			// Bindings are copied; every argument gets a fresh register.
			copied := args.Alloc()
			c.emitMove(copied, value, lineOf(arg))
			continue
		}
		args.Add(value)
	}

	dest := c.regAlloc.Alloc()
	operands := make([]bytecode.Operand, 0, 3+args.Count())
	operands = append(operands, bytecode.R(dest), bytecode.R(callee), bytecode.I(args.Count()))
	for _, reg := range args.Registers() {
		operands = append(operands, bytecode.R(reg))
	}
	c.emit(bytecode.CALL, line, operands...)

	args.Release()
	c.freeTemp(callee)
	return dest, nil
}

func (c *Compiler) compileAwaitExpression(node *ast.AwaitExpression) (Register, error) {
	value, err := c.compileExpression(node.Argument)
	if err != nil {
		return BadRegister, err
	}
	dest := c.regAlloc.Alloc()
	c.emit(bytecode.AWAIT, lineOf(node), bytecode.R(dest), bytecode.R(value))
	c.freeTemp(value)
	return dest, nil
}
