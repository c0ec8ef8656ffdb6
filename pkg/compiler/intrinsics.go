package compiler

import (
	"regjs/pkg/ast"
	"regjs/pkg/bytecode"
	"regjs/pkg/errors"
)

// DefaultIntrinsics returns the built-in table of directive names.
func DefaultIntrinsics() map[string]bytecode.OpCode {
	return map[string]bytecode.OpCode{
		"__halt__":  bytecode.HALT,
		"__nop__":   bytecode.NOP,
		"__break__": bytecode.BRK,
	}
}

type symbolKind uint8

const (
	symbolLocal symbolKind = iota
	symbolUpvalue
	symbolConstant
	symbolGlobal
	symbolIntrinsic
)

// symbolRef is where a name resolved to.
type symbolRef struct {
	kind symbolKind
	name string
	// reg is the binding register of a local, or of the owning unit for an
	// upvalue.
	reg Register
	// depth is the number of unit boundaries between the use and the owner.
	depth int
	op    bytecode.OpCode // intrinsic directive
}

// resolve looks a name up innermost scope first, then among the constants,
// host globals and intrinsics. Resolving a binding of an enclosing unit
// captures it.
func (c *Compiler) resolve(node *ast.Identifier) (symbolRef, error) {
	name := node.Name
	if symbol, table, ok := c.currentSymbolTable.Resolve(name); ok {
		depth := c.currentSymbolTable.Depth - table.Depth
		if depth == 0 {
			return symbolRef{kind: symbolLocal, name: name, reg: symbol.Register}, nil
		}
		table.Capture(symbol)
		debugPrintf("capture %s (%s) at depth %d in %s", name, symbol.Register, depth, c.compilingFuncName)
		return symbolRef{kind: symbolUpvalue, name: name, reg: symbol.Register, depth: depth}, nil
	}
	if isConstantName(name) {
		return symbolRef{kind: symbolConstant, name: name}, nil
	}
	if c.shared.globals[name] {
		return symbolRef{kind: symbolGlobal, name: name}, nil
	}
	if op, ok := c.shared.options.Intrinsics[name]; ok {
		return symbolRef{kind: symbolIntrinsic, name: name, op: op}, nil
	}
	return symbolRef{}, NewCompileError(node, errors.UndeclaredIdentifier, "undeclared identifier '%s'", name)
}

// load makes the value of a resolved name available in a register. Locals
// are returned as-is; everything else lands in a fresh temporary.
// An intrinsic emits its directive and yields undefined.
func (c *Compiler) load(ref symbolRef, line int) Register {
	if ref.kind == symbolLocal {
		return ref.reg
	}
	if ref.kind == symbolIntrinsic {
		c.emit(ref.op, line)
	}
	dest := c.regAlloc.Alloc()
	switch ref.kind {
	case symbolUpvalue:
		c.emit(bytecode.UGET, line, bytecode.R(dest), bytecode.I(ref.depth), bytecode.I(int(ref.reg)))
	case symbolConstant:
		c.emitLoadConstant(dest, ref.name, line)
	case symbolGlobal:
		c.emit(bytecode.GGET, line, bytecode.R(dest), bytecode.G(ref.name))
	case symbolIntrinsic:
		c.emitLoadUndefined(dest, line)
	}
	return dest
}

// store writes src to a resolved name.
func (c *Compiler) store(ref symbolRef, src Register, node ast.Node) error {
	line := lineOf(node)
	switch ref.kind {
	case symbolLocal:
		if ref.reg != src {
			c.emitMove(ref.reg, src, line)
		}
	case symbolUpvalue:
		c.emit(bytecode.USET, line, bytecode.I(ref.depth), bytecode.I(int(ref.reg)), bytecode.R(src))
	case symbolGlobal:
		c.emit(bytecode.GSET, line, bytecode.G(ref.name), bytecode.R(src))
	default:
		return NewCompileError(node, errors.UnsupportedLeftHandSide, "cannot assign to '%s'", ref.name)
	}
	return nil
}

// directiveStatement reports whether an expression statement is a bare
// intrinsic use, `__halt__` or `__halt__()`, and emits the directive if so.
func (c *Compiler) directiveStatement(expr ast.Expression) bool {
	var id *ast.Identifier
	switch e := expr.(type) {
	case *ast.Identifier:
		id = e
	case *ast.CallExpression:
		callee, ok := e.Callee.(*ast.Identifier)
		if !ok || len(e.Arguments) > 0 {
			return false
		}
		id = callee
	default:
		return false
	}
	ref, err := c.resolve(id)
	if err != nil || ref.kind != symbolIntrinsic {
		return false
	}
	c.emit(ref.op, lineOf(expr))
	return true
}
