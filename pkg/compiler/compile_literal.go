package compiler

import (
	"math"
	"strconv"

	"regjs/pkg/ast"
	"regjs/pkg/bytecode"
	"regjs/pkg/errors"
)

func (c *Compiler) compileLiteral(node *ast.Literal) (Register, error) {
	line := lineOf(node)
	switch node.Kind {
	case ast.NumberLiteral:
		dest := c.regAlloc.Alloc()
		c.emitLoadNumber(dest, node.Number, line)
		return dest, nil
	case ast.StringLiteral:
		dest := c.regAlloc.Alloc()
		c.emitLoadString(dest, node.String, line)
		return dest, nil
	case ast.BooleanLiteral:
		dest := c.regAlloc.Alloc()
		c.emitLoadBool(dest, node.Bool, line)
		return dest, nil
	case ast.NullLiteral:
		dest := c.regAlloc.Alloc()
		c.emitLoadNull(dest, line)
		return dest, nil
	case ast.RegExpLiteral:
		return BadRegister, NewCompileError(node, errors.UnsupportedExpression, "regular expression literals are not supported: %s", node.String)
	default:
		return BadRegister, NewCompileError(node, errors.UnsupportedExpression, "unsupported literal %s", node.String)
	}
}

// compileArrayLiteral lowers `[a, , b]` to ANEW plus one ASETN per element.
// Holes store undefined.
func (c *Compiler) compileArrayLiteral(node *ast.ArrayExpression) (Register, error) {
	line := lineOf(node)
	dest := c.regAlloc.Alloc()
	c.emit(bytecode.ANEW, line, bytecode.R(dest))

	for i, elem := range node.Elements {
		var value Register
		switch e := elem.(type) {
		case nil:
			value = c.regAlloc.Alloc()
			c.emitLoadUndefined(value, line)
		case *ast.SpreadElement:
			return BadRegister, NewCompileError(e, errors.UnsupportedExpression, "spread in array literals is not supported")
		default:
			var err error
			if value, err = c.compileExpression(e); err != nil {
				return BadRegister, err
			}
		}
		c.emit(bytecode.ASETN, line, bytecode.R(dest), bytecode.I(i), bytecode.R(value))
		c.freeTemp(value)
	}
	return dest, nil
}

// compileObjectLiteral lowers `{k: v}` to ONEW plus one OSETV per property.
func (c *Compiler) compileObjectLiteral(node *ast.ObjectExpression) (Register, error) {
	dest := c.regAlloc.Alloc()
	c.emit(bytecode.ONEW, lineOf(node), bytecode.R(dest))

	for _, prop := range node.Properties {
		if spread, ok := prop.Value.(*ast.SpreadElement); ok {
			return BadRegister, NewCompileError(spread, errors.UnsupportedExpression, "spread in object literals is not supported")
		}
		if prop.Kind != "" && prop.Kind != "init" {
			return BadRegister, NewCompileError(prop, errors.UnsupportedExpression, "%s accessor properties are not supported", prop.Kind)
		}
		key, err := c.compilePropertyKey(prop.Key, prop.Computed)
		if err != nil {
			return BadRegister, err
		}
		value, err := c.compileExpression(prop.Value)
		if err != nil {
			return BadRegister, err
		}
		c.emit(bytecode.OSETV, lineOf(prop), bytecode.R(dest), bytecode.R(key), bytecode.R(value))
		c.freeTemp(value)
		c.freeTemp(key)
	}
	return dest, nil
}

// compilePropertyKey lowers an object literal or pattern key. Static keys
// become strings; computed keys are lowered as expressions.
func (c *Compiler) compilePropertyKey(key ast.Expression, computed bool) (Register, error) {
	if computed {
		return c.compileExpression(key)
	}
	var name string
	switch k := key.(type) {
	case *ast.Identifier:
		name = k.Name
	case *ast.Literal:
		switch k.Kind {
		case ast.StringLiteral:
			name = k.String
		case ast.NumberLiteral:
			name = numberKey(k.Number)
		default:
			return BadRegister, NewCompileError(k, errors.UnsupportedExpression, "unsupported property key")
		}
	default:
		return BadRegister, NewCompileError(key, errors.UnsupportedExpression, "unsupported property key %s", key.Type())
	}
	reg := c.regAlloc.Alloc()
	c.emitLoadString(reg, name, lineOf(key))
	return reg, nil
}

// numberKey renders a numeric property key the way it reads as a string.
func numberKey(v float64) string {
	if math.Abs(v) < 1e21 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
