package compiler

import (
	"regjs/pkg/ast"
	"regjs/pkg/bytecode"
	"regjs/pkg/errors"
)

// compileFunction compiles a function body into its own unit, appends it to
// the program's function table and returns its id. Ids are assigned when
// compilation of a function starts, so an enclosing function always has a
// smaller id than the functions nested in it.
func (c *Compiler) compileFunction(name string, params []ast.Pattern, body *ast.BlockStatement, exprBody ast.Expression, node ast.Node, async bool) (bytecode.FuncID, error) {
	loc := node.Location()
	fn := &bytecode.Function{
		ID:         bytecode.FuncID(len(c.shared.functions) + 1),
		Name:       name,
		ParamCount: paramCount(params),
		StartLine:  loc.Start.Line,
		EndLine:    loc.End.Line,
		Async:      async,
	}
	c.shared.functions = append(c.shared.functions, fn)

	fc := newFunctionCompiler(c, name)
	if err := fc.compileParameters(params, loc.Start.Line); err != nil {
		return 0, err
	}

	if exprBody != nil {
		value, err := fc.compileExpression(exprBody)
		if err != nil {
			return 0, err
		}
		fc.emit(bytecode.RET, lineOf(exprBody), bytecode.R(value))
		fc.freeTemp(value)
		fc.exitScope(loc.End.Line)
		if err := fc.finishUnit(); err != nil {
			return 0, err
		}
	} else if err := fc.compileBody(body.Body, loc.End.Line); err != nil {
		return 0, err
	}

	fn.Chunk = fc.chunk
	fn.MaxRegs = fc.regAlloc.MaxRegs()
	debugPrintf("compiled %s (%s): %d instructions, %d registers", fn.ID, name, fc.chunk.Len(), fn.MaxRegs)
	return fn.ID, nil
}

// paramCount is the number of positional parameters; a rest parameter is
// not counted.
func paramCount(params []ast.Pattern) int {
	if n := len(params); n > 0 {
		if _, ok := params[n-1].(*ast.RestElement); ok {
			return n - 1
		}
	}
	return len(params)
}

// compileParameters binds incoming arguments in the function scope. Plain
// names are moved from their argument slot; patterns and defaults go through
// a temporary and the destructuring lowering; a rest parameter collects the
// remaining arguments with VARG.
func (c *Compiler) compileParameters(params []ast.Pattern, line int) error {
	for i, param := range params {
		switch p := param.(type) {
		case *ast.Identifier:
			reg := c.declare(p.Name)
			c.emit(bytecode.MOV, line, bytecode.R(reg), bytecode.A(i))

		case *ast.RestElement:
			if i != len(params)-1 {
				return NewCompileError(p, errors.UnsupportedPattern, "rest parameter must be last")
			}
			if id, ok := p.Argument.(*ast.Identifier); ok {
				reg := c.declare(id.Name)
				c.emit(bytecode.VARG, line, bytecode.R(reg), bytecode.I(i))
				continue
			}
			rest := c.regAlloc.Alloc()
			c.emit(bytecode.VARG, line, bytecode.R(rest), bytecode.I(i))
			if err := c.bindPattern(p.Argument, rest, bindLexical); err != nil {
				return err
			}
			c.regAlloc.Free(rest)

		default:
			arg := c.regAlloc.Alloc()
			c.emit(bytecode.MOV, line, bytecode.R(arg), bytecode.A(i))
			if err := c.bindPattern(param, arg, bindLexical); err != nil {
				return err
			}
			c.regAlloc.Free(arg)
		}
	}
	return nil
}

// compileFunctionDeclaration creates the closure of a declaration whose name
// is already bound in the current scope.
func (c *Compiler) compileFunctionDeclaration(node *ast.FunctionDeclaration) error {
	if node.Generator {
		return NewCompileError(node, errors.UnsupportedStatement, "generator functions are not supported")
	}
	id, err := c.compileFunction(node.ID.Name, node.Params, node.Body, nil, node, node.Async)
	if err != nil {
		return err
	}
	reg := c.declare(node.ID.Name)
	c.emit(bytecode.FNEW, lineOf(node), bytecode.R(reg), bytecode.F(id))
	return nil
}

// compileFunctionExpression creates a closure in a fresh register. A named
// function expression sees its own name, bound to that register.
func (c *Compiler) compileFunctionExpression(node *ast.FunctionExpression) (Register, error) {
	if node.Generator {
		return BadRegister, NewCompileError(node, errors.UnsupportedExpression, "generator functions are not supported")
	}
	dest := c.regAlloc.Alloc()
	name := ""
	if node.ID != nil {
		name = node.ID.Name
		c.enterScope()
		c.declareAlias(name, dest)
	}
	id, err := c.compileFunction(name, node.Params, node.Body, nil, node, node.Async)
	if err != nil {
		return BadRegister, err
	}
	if node.ID != nil {
		c.exitScope(lineOf(node))
	}
	c.emit(bytecode.FNEW, lineOf(node), bytecode.R(dest), bytecode.F(id))
	return dest, nil
}

func (c *Compiler) compileArrowFunction(node *ast.ArrowFunctionExpression) (Register, error) {
	id, err := c.compileFunction("", node.Params, node.Body, node.ExpressionBody, node, node.Async)
	if err != nil {
		return BadRegister, err
	}
	dest := c.regAlloc.Alloc()
	c.emit(bytecode.FNEW, lineOf(node), bytecode.R(dest), bytecode.F(id))
	return dest, nil
}
