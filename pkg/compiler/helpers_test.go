package compiler

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"regjs/pkg/ast"
	"regjs/pkg/bytecode"
)

// --- AST construction ---

func ident(name string) *ast.Identifier { return &ast.Identifier{Name: name} }

func num(v float64) *ast.Literal { return &ast.Literal{Kind: ast.NumberLiteral, Number: v} }

func str(s string) *ast.Literal { return &ast.Literal{Kind: ast.StringLiteral, String: s} }

func boolean(b bool) *ast.Literal { return &ast.Literal{Kind: ast.BooleanLiteral, Bool: b} }

func null() *ast.Literal { return &ast.Literal{Kind: ast.NullLiteral} }

func binary(op string, left, right ast.Expression) *ast.BinaryExpression {
	return &ast.BinaryExpression{Operator: op, Left: left, Right: right}
}

func logical(op string, left, right ast.Expression) *ast.LogicalExpression {
	return &ast.LogicalExpression{Operator: op, Left: left, Right: right}
}

func unary(op string, arg ast.Expression) *ast.UnaryExpression {
	return &ast.UnaryExpression{Operator: op, Argument: arg}
}

func update(op string, prefix bool, arg ast.Expression) *ast.UpdateExpression {
	return &ast.UpdateExpression{Operator: op, Prefix: prefix, Argument: arg}
}

func assign(op string, left ast.Pattern, right ast.Expression) *ast.AssignmentExpression {
	return &ast.AssignmentExpression{Operator: op, Left: left, Right: right}
}

func cond(test, consequent, alternate ast.Expression) *ast.ConditionalExpression {
	return &ast.ConditionalExpression{Test: test, Consequent: consequent, Alternate: alternate}
}

func call(callee ast.Expression, args ...ast.Expression) *ast.CallExpression {
	return &ast.CallExpression{Callee: callee, Arguments: args}
}

func member(obj ast.Expression, prop string) *ast.MemberExpression {
	return &ast.MemberExpression{Object: obj, Property: ident(prop)}
}

func index(obj, key ast.Expression) *ast.MemberExpression {
	return &ast.MemberExpression{Object: obj, Property: key, Computed: true}
}

func array(elems ...ast.Expression) *ast.ArrayExpression {
	return &ast.ArrayExpression{Elements: elems}
}

func object(kv ...any) *ast.ObjectExpression {
	obj := &ast.ObjectExpression{}
	for i := 0; i < len(kv); i += 2 {
		obj.Properties = append(obj.Properties, &ast.Property{Key: ident(kv[i].(string)), Value: kv[i+1].(ast.Expression)})
	}
	return obj
}

func arrayPattern(elems ...ast.Pattern) *ast.ArrayPattern {
	return &ast.ArrayPattern{Elements: elems}
}

func objectPattern(kv ...any) *ast.ObjectPattern {
	pat := &ast.ObjectPattern{}
	for i := 0; i < len(kv); i += 2 {
		pat.Properties = append(pat.Properties, &ast.PatternProperty{Key: ident(kv[i].(string)), Value: kv[i+1].(ast.Pattern)})
	}
	return pat
}

func withDefault(target ast.Pattern, value ast.Expression) *ast.AssignmentPattern {
	return &ast.AssignmentPattern{Left: target, Right: value}
}

func restOf(target ast.Pattern) *ast.RestElement { return &ast.RestElement{Argument: target} }

func params(names ...string) []ast.Pattern {
	out := make([]ast.Pattern, len(names))
	for i, name := range names {
		out[i] = ident(name)
	}
	return out
}

func fnExpr(name string, ps []ast.Pattern, body ...ast.Statement) *ast.FunctionExpression {
	node := &ast.FunctionExpression{Params: ps, Body: block(body...)}
	if name != "" {
		node.ID = ident(name)
	}
	return node
}

func arrow(ps []ast.Pattern, body ast.Expression) *ast.ArrowFunctionExpression {
	return &ast.ArrowFunctionExpression{Params: ps, ExpressionBody: body}
}

func declare(kind string, target ast.Pattern, init ast.Expression) *ast.VariableDeclaration {
	return &ast.VariableDeclaration{
		Kind:         kind,
		Declarations: []*ast.VariableDeclarator{{ID: target, Init: init}},
	}
}

func letDecl(name string, init ast.Expression) *ast.VariableDeclaration {
	return declare("let", ident(name), init)
}

func varDecl(name string, init ast.Expression) *ast.VariableDeclaration {
	return declare("var", ident(name), init)
}

func exprStmt(e ast.Expression) *ast.ExpressionStatement {
	return &ast.ExpressionStatement{Expression: e}
}

func block(stmts ...ast.Statement) *ast.BlockStatement { return &ast.BlockStatement{Body: stmts} }

func ifStmt(test ast.Expression, consequent, alternate ast.Statement) *ast.IfStatement {
	return &ast.IfStatement{Test: test, Consequent: consequent, Alternate: alternate}
}

func whileStmt(test ast.Expression, body ...ast.Statement) *ast.WhileStatement {
	return &ast.WhileStatement{Test: test, Body: block(body...)}
}

func forStmt(init ast.Statement, test, upd ast.Expression, body ...ast.Statement) *ast.ForStatement {
	return &ast.ForStatement{Init: init, Test: test, Update: upd, Body: block(body...)}
}

func ret(e ast.Expression) *ast.ReturnStatement { return &ast.ReturnStatement{Argument: e} }

func fnDecl(name string, ps []ast.Pattern, body ...ast.Statement) *ast.FunctionDeclaration {
	return &ast.FunctionDeclaration{ID: ident(name), Params: ps, Body: block(body...)}
}

func program(stmts ...ast.Statement) *ast.Program { return &ast.Program{Body: stmts} }

// --- Compilation ---

func compileWith(t *testing.T, prog *ast.Program, configure func(*Options)) *bytecode.Program {
	t.Helper()
	options := DefaultOptions()
	if configure != nil {
		configure(&options)
	}
	out, err := Compile(prog, options)
	require.NoError(t, err)
	require.NotNil(t, out)
	return out
}

func compileProgram(t *testing.T, stmts ...ast.Statement) *bytecode.Program {
	t.Helper()
	return compileWith(t, program(stmts...), nil)
}

func compileError(t *testing.T, stmts ...ast.Statement) error {
	t.Helper()
	out, err := Compile(program(stmts...), DefaultOptions())
	require.Error(t, err)
	require.Nil(t, out)
	return err
}

// listing renders a chunk as instruction text with label definitions on
// their own lines, without instruction indices.
func listing(chunk *bytecode.Chunk) []string {
	at := make(map[int][]bytecode.Label)
	for l, pos := range chunk.Labels {
		at[pos] = append(at[pos], l)
	}
	var out []string
	for i := 0; i <= len(chunk.Code); i++ {
		labels := at[i]
		sort.Slice(labels, func(a, b int) bool { return labels[a] < labels[b] })
		for _, l := range labels {
			out = append(out, l.String()+":")
		}
		if i < len(chunk.Code) {
			out = append(out, chunk.Code[i].String())
		}
	}
	return out
}

// ops returns the opcodes of a chunk in order.
func ops(chunk *bytecode.Chunk) []bytecode.OpCode {
	out := make([]bytecode.OpCode, len(chunk.Code))
	for i, in := range chunk.Code {
		out[i] = in.Op
	}
	return out
}
