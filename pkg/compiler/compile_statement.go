package compiler

import (
	"regjs/pkg/ast"
	"regjs/pkg/bytecode"
	"regjs/pkg/errors"
)

// compileStatements compiles a statement list in the current scope.
// Every name the list declares is bound first, so closures can refer to
// bindings declared after them. Function declarations are hoisted: their
// closures are created next, then the remaining statements run in order.
func (c *Compiler) compileStatements(stmts []ast.Statement) error {
	var hoisted []*ast.FunctionDeclaration
	for _, stmt := range stmts {
		switch decl := stmt.(type) {
		case *ast.FunctionDeclaration:
			c.declare(decl.ID.Name)
			hoisted = append(hoisted, decl)
		case *ast.VariableDeclaration:
			c.hoistVariableDeclaration(decl)
		}
	}
	for _, decl := range hoisted {
		if err := c.compileFunctionDeclaration(decl); err != nil {
			return err
		}
	}
	for _, stmt := range stmts {
		if _, ok := stmt.(*ast.FunctionDeclaration); ok {
			continue
		}
		if err := c.compileStatement(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileStatement(stmt ast.Statement) error {
	switch node := stmt.(type) {
	case *ast.ExpressionStatement:
		return c.compileExpressionStatement(node)

	case *ast.VariableDeclaration:
		return c.compileVariableDeclaration(node)

	case *ast.FunctionDeclaration:
		// Not in a statement list, e.g. the body of an if without braces.
		c.declare(node.ID.Name)
		return c.compileFunctionDeclaration(node)

	case *ast.BlockStatement:
		c.enterScope()
		if err := c.compileStatements(node.Body); err != nil {
			return err
		}
		c.exitScope(node.Location().End.Line)
		return nil

	case *ast.EmptyStatement:
		return nil

	case *ast.IfStatement:
		return c.compileIfStatement(node)

	case *ast.WhileStatement:
		return c.compileWhileStatement(node)

	case *ast.DoWhileStatement:
		return c.compileDoWhileStatement(node)

	case *ast.ForStatement:
		return c.compileForStatement(node)

	case *ast.ReturnStatement:
		return c.compileReturnStatement(node)

	case *ast.BreakStatement:
		return c.compileBreakStatement(node)

	case *ast.ContinueStatement:
		return c.compileContinueStatement(node)

	default:
		return NewCompileError(stmt, errors.UnsupportedStatement, "unsupported statement type %s", stmt.Type())
	}
}

func (c *Compiler) compileExpressionStatement(node *ast.ExpressionStatement) error {
	if c.directiveStatement(node.Expression) {
		return nil
	}
	reg, err := c.compileExpression(node.Expression)
	if err != nil {
		return err
	}
	c.freeTemp(reg)
	return nil
}

// hoistVariableDeclaration binds the let and const names of a declaration
// ahead of its statement. var names were bound at unit entry by hoistVars.
func (c *Compiler) hoistVariableDeclaration(node *ast.VariableDeclaration) {
	if node.Kind == "var" {
		return
	}
	for _, decl := range node.Declarations {
		for _, name := range patternNames(decl.ID, nil) {
			c.declare(name)
		}
	}
}

// hoistVars binds every var name declared in body, at any block depth but
// outside nested functions, in the function scope and sets it to undefined.
// Names already bound there, such as parameters, keep their value.
func (c *Compiler) hoistVars(body []ast.Statement) {
	scope := c.currentSymbolTable.FunctionScope()
	for _, v := range collectVars(body, nil) {
		if _, ok := scope.Lookup(v.name); ok {
			continue
		}
		c.emitLoadUndefined(c.declareVar(v.name), v.line)
	}
}

type hoistedVar struct {
	name string
	line int
}

func collectVars(stmts []ast.Statement, vars []hoistedVar) []hoistedVar {
	for _, stmt := range stmts {
		vars = collectStatementVars(stmt, vars)
	}
	return vars
}

func collectStatementVars(stmt ast.Statement, vars []hoistedVar) []hoistedVar {
	switch s := stmt.(type) {
	case *ast.VariableDeclaration:
		if s.Kind != "var" {
			return vars
		}
		for _, decl := range s.Declarations {
			for _, name := range patternNames(decl.ID, nil) {
				vars = append(vars, hoistedVar{name: name, line: lineOf(decl)})
			}
		}
	case *ast.BlockStatement:
		vars = collectVars(s.Body, vars)
	case *ast.IfStatement:
		vars = collectStatementVars(s.Consequent, vars)
		if s.Alternate != nil {
			vars = collectStatementVars(s.Alternate, vars)
		}
	case *ast.WhileStatement:
		vars = collectStatementVars(s.Body, vars)
	case *ast.DoWhileStatement:
		vars = collectStatementVars(s.Body, vars)
	case *ast.ForStatement:
		if s.Init != nil {
			vars = collectStatementVars(s.Init, vars)
		}
		vars = collectStatementVars(s.Body, vars)
	}
	return vars
}

func (c *Compiler) compileVariableDeclaration(node *ast.VariableDeclaration) error {
	mode := bindLexical
	if node.Kind == "var" {
		mode = bindVar
	}
	for _, decl := range node.Declarations {
		switch target := decl.ID.(type) {
		case *ast.Identifier:
			if decl.Init == nil {
				if mode == bindVar {
					if _, ok := c.currentSymbolTable.FunctionScope().Lookup(target.Name); ok {
						continue // redeclaration without initializer keeps the value
					}
				}
				reg := c.declareTarget(target.Name, mode)
				c.emitLoadUndefined(reg, lineOf(decl))
				continue
			}
			// Bound before the initializer so a function can refer to itself.
			reg := c.declareTarget(target.Name, mode)
			value, err := c.compileExpression(decl.Init)
			if err != nil {
				return err
			}
			c.emitMove(reg, value, lineOf(decl))
			c.freeTemp(value)

		case *ast.ArrayPattern, *ast.ObjectPattern:
			if decl.Init == nil {
				return NewCompileError(decl, errors.UnsupportedPattern, "destructuring declaration requires an initializer")
			}
			value, err := c.compileExpression(decl.Init)
			if err != nil {
				return err
			}
			if err := c.bindPattern(target, value, mode); err != nil {
				return err
			}
			c.freeTemp(value)

		default:
			return NewCompileError(decl.ID, errors.UnsupportedLeftHandSide, "unsupported declaration target %s", decl.ID.Type())
		}
	}
	return nil
}

// compileIfStatement lowers
//
//	test; JMPF test, Lelse; consequent; JMP Lend; Lelse: alternate; Lend:
//
// The jump over the alternate and Lend are omitted when there is no else.
func (c *Compiler) compileIfStatement(node *ast.IfStatement) error {
	line := lineOf(node)
	test, err := c.compileExpression(node.Test)
	if err != nil {
		return err
	}
	elseLabel := c.newLabel()
	c.emitJumpIfFalse(test, elseLabel, line)
	c.freeTemp(test)

	if err := c.compileStatement(node.Consequent); err != nil {
		return err
	}
	if node.Alternate == nil {
		c.defineLabel(elseLabel)
		return nil
	}
	endLabel := c.newLabel()
	c.emitJump(endLabel, line)
	c.defineLabel(elseLabel)
	if err := c.compileStatement(node.Alternate); err != nil {
		return err
	}
	c.defineLabel(endLabel)
	return nil
}

func (c *Compiler) compileWhileStatement(node *ast.WhileStatement) error {
	line := lineOf(node)
	startLabel := c.newLabel()
	endLabel := c.newLabel()

	c.defineLabel(startLabel)
	test, err := c.compileExpression(node.Test)
	if err != nil {
		return err
	}
	c.emitJumpIfFalse(test, endLabel, line)
	c.freeTemp(test)

	c.pushLoopContext(startLabel, endLabel)
	if err := c.compileStatement(node.Body); err != nil {
		return err
	}
	c.popLoopContext()

	c.emitJump(startLabel, line)
	c.defineLabel(endLabel)
	return nil
}

func (c *Compiler) compileDoWhileStatement(node *ast.DoWhileStatement) error {
	line := lineOf(node)
	bodyLabel := c.newLabel()
	startLabel := c.newLabel()
	endLabel := c.newLabel()

	c.defineLabel(bodyLabel)
	c.pushLoopContext(startLabel, endLabel)
	if err := c.compileStatement(node.Body); err != nil {
		return err
	}
	c.popLoopContext()

	c.defineLabel(startLabel)
	test, err := c.compileExpression(node.Test)
	if err != nil {
		return err
	}
	c.emitJumpIfTrue(test, bodyLabel, line)
	c.freeTemp(test)
	c.defineLabel(endLabel)
	return nil
}

// compileForStatement lowers a for loop inside its own scope. continue
// jumps to the update, not to the test.
func (c *Compiler) compileForStatement(node *ast.ForStatement) error {
	line := lineOf(node)
	c.enterScope()

	switch init := node.Init.(type) {
	case nil:
	case *ast.VariableDeclaration:
		if err := c.compileVariableDeclaration(init); err != nil {
			return err
		}
	case *ast.ExpressionStatement:
		if err := c.compileExpressionStatement(init); err != nil {
			return err
		}
	default:
		return NewCompileError(init, errors.UnsupportedStatement, "unsupported for initializer %s", init.Type())
	}

	testLabel := c.newLabel()
	updateLabel := c.newLabel()
	endLabel := c.newLabel()

	c.defineLabel(testLabel)
	if node.Test != nil {
		test, err := c.compileExpression(node.Test)
		if err != nil {
			return err
		}
		c.emitJumpIfFalse(test, endLabel, line)
		c.freeTemp(test)
	}

	c.pushLoopContext(updateLabel, endLabel)
	if err := c.compileStatement(node.Body); err != nil {
		return err
	}
	c.popLoopContext()

	c.defineLabel(updateLabel)
	if node.Update != nil {
		update, err := c.compileExpression(node.Update)
		if err != nil {
			return err
		}
		c.freeTemp(update)
	}
	c.emitJump(testLabel, line)
	c.defineLabel(endLabel)

	c.exitScope(node.Location().End.Line)
	return nil
}

func (c *Compiler) compileReturnStatement(node *ast.ReturnStatement) error {
	line := lineOf(node)
	if node.Argument == nil {
		c.emit(bytecode.RET0, line)
		return nil
	}
	value, err := c.compileExpression(node.Argument)
	if err != nil {
		return err
	}
	c.emit(bytecode.RET, line, bytecode.R(value))
	c.freeTemp(value)
	return nil
}

func (c *Compiler) compileBreakStatement(node *ast.BreakStatement) error {
	if node.Label != nil {
		return NewCompileError(node, errors.UnsupportedStatement, "labeled break is not supported")
	}
	loop := c.currentLoopContext()
	if loop == nil {
		return NewCompileError(node, errors.LoopControlOutsideLoop, "break statement not within a loop")
	}
	c.emitJump(loop.End, lineOf(node))
	return nil
}

func (c *Compiler) compileContinueStatement(node *ast.ContinueStatement) error {
	if node.Label != nil {
		return NewCompileError(node, errors.UnsupportedStatement, "labeled continue is not supported")
	}
	loop := c.currentLoopContext()
	if loop == nil {
		return NewCompileError(node, errors.LoopControlOutsideLoop, "continue statement not within a loop")
	}
	c.emitJump(loop.Start, lineOf(node))
	return nil
}
