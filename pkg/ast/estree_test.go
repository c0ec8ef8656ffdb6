package ast

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/require"

	"regjs/pkg/errors"
)

// let x = 1 + 2; as produced by acorn with locations enabled.
const letSource = `{
  "type": "Program",
  "loc": {"start": {"line": 1, "column": 0}, "end": {"line": 1, "column": 14}},
  "body": [{
    "type": "VariableDeclaration",
    "kind": "let",
    "loc": {"start": {"line": 1, "column": 0}, "end": {"line": 1, "column": 14}},
    "declarations": [{
      "type": "VariableDeclarator",
      "loc": {"start": {"line": 1, "column": 4}, "end": {"line": 1, "column": 13}},
      "id": {"type": "Identifier", "name": "x",
             "loc": {"start": {"line": 1, "column": 4}, "end": {"line": 1, "column": 5}}},
      "init": {
        "type": "BinaryExpression", "operator": "+",
        "loc": {"start": {"line": 1, "column": 8}, "end": {"line": 1, "column": 13}},
        "left": {"type": "Literal", "value": 1, "raw": "1"},
        "right": {"type": "Literal", "value": 2, "raw": "2"}
      }
    }]
  }]
}`

func TestDecodeVariableDeclaration(t *testing.T) {
	prog, err := DecodeESTree([]byte(letSource))
	require.NoError(t, err)
	require.Len(t, prog.Body, 1)

	decl, ok := prog.Body[0].(*VariableDeclaration)
	require.True(t, ok, "got %T", prog.Body[0])
	require.Equal(t, "let", decl.Kind)
	require.Len(t, decl.Declarations, 1)

	id, ok := decl.Declarations[0].ID.(*Identifier)
	require.True(t, ok)
	require.Equal(t, "x", id.Name)
	// columns become 1-based
	require.Equal(t, Position{Line: 1, Column: 5}, id.Location().Start)

	bin, ok := decl.Declarations[0].Init.(*BinaryExpression)
	require.True(t, ok)
	require.Equal(t, "+", bin.Operator)
	require.Equal(t, &Literal{Kind: NumberLiteral, Number: 1}, bin.Left)
	require.Equal(t, &Literal{Kind: NumberLiteral, Number: 2}, bin.Right)
}

func TestDecodeExpressions(t *testing.T) {
	tests := []struct {
		name string
		json string
		want Expression
	}{
		{
			name: "string literal",
			json: `{"type": "Literal", "value": "hi"}`,
			want: &Literal{Kind: StringLiteral, String: "hi"},
		},
		{
			name: "null literal",
			json: `{"type": "Literal", "value": null, "raw": "null"}`,
			want: &Literal{Kind: NullLiteral},
		},
		{
			name: "boolean literal",
			json: `{"type": "Literal", "value": true}`,
			want: &Literal{Kind: BooleanLiteral, Bool: true},
		},
		{
			name: "regular expression literal",
			json: `{"type": "Literal", "value": {}, "raw": "/a+/g", "regex": {"pattern": "a+", "flags": "g"}}`,
			want: &Literal{Kind: RegExpLiteral, String: "/a+/g"},
		},
		{
			name: "bigint literal",
			json: `{"type": "Literal", "value": null, "raw": "10n", "bigint": "10"}`,
			want: &Literal{Kind: BigIntLiteral, String: "10"},
		},
		{
			name: "array with hole",
			json: `{"type": "ArrayExpression", "elements": [{"type": "Identifier", "name": "a"}, null]}`,
			want: &ArrayExpression{Elements: []Expression{&Identifier{Name: "a"}, nil}},
		},
		{
			name: "parenthesized",
			json: `{"type": "ParenthesizedExpression", "expression": {"type": "Identifier", "name": "a"}}`,
			want: &Identifier{Name: "a"},
		},
		{
			name: "prefix update",
			json: `{"type": "UpdateExpression", "operator": "++", "prefix": true, "argument": {"type": "Identifier", "name": "i"}}`,
			want: &UpdateExpression{Operator: "++", Prefix: true, Argument: &Identifier{Name: "i"}},
		},
		{
			name: "computed member",
			json: `{"type": "MemberExpression", "computed": true, "object": {"type": "Identifier", "name": "a"}, "property": {"type": "Literal", "value": 0}}`,
			want: &MemberExpression{Object: &Identifier{Name: "a"}, Property: &Literal{Kind: NumberLiteral}, Computed: true},
		},
		{
			name: "arrow with expression body",
			json: `{"type": "ArrowFunctionExpression", "expression": true, "params": [{"type": "Identifier", "name": "a"}], "body": {"type": "Identifier", "name": "a"}}`,
			want: &ArrowFunctionExpression{Params: []Pattern{&Identifier{Name: "a"}}, ExpressionBody: &Identifier{Name: "a"}},
		},
		{
			name: "unknown expression",
			json: `{"type": "ThisExpression"}`,
			want: &UnknownExpression{Kind: "ThisExpression"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeExpression([]byte(tt.json))
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestDecodePatterns(t *testing.T) {
	// [a = 1, , ...rest] and {k: v, ...others}
	arrayJSON := `{"type": "ArrayPattern", "elements": [
		{"type": "AssignmentPattern", "left": {"type": "Identifier", "name": "a"}, "right": {"type": "Literal", "value": 1}},
		null,
		{"type": "RestElement", "argument": {"type": "Identifier", "name": "rest"}}
	]}`
	got, err := decodePattern([]byte(arrayJSON))
	require.NoError(t, err)
	require.Equal(t, &ArrayPattern{Elements: []Pattern{
		&AssignmentPattern{Left: &Identifier{Name: "a"}, Right: &Literal{Kind: NumberLiteral, Number: 1}},
		nil,
		&RestElement{Argument: &Identifier{Name: "rest"}},
	}}, got)

	objectJSON := `{"type": "ObjectPattern", "properties": [
		{"type": "Property", "key": {"type": "Identifier", "name": "k"}, "value": {"type": "Identifier", "name": "v"}},
		{"type": "RestElement", "argument": {"type": "Identifier", "name": "others"}}
	]}`
	got, err = decodePattern([]byte(objectJSON))
	require.NoError(t, err)
	require.Equal(t, &ObjectPattern{
		Properties: []*PatternProperty{{Key: &Identifier{Name: "k"}, Value: &Identifier{Name: "v"}}},
		Rest:       &RestElement{Argument: &Identifier{Name: "others"}},
	}, got)
}

func TestDecodeStatements(t *testing.T) {
	source := `{"type": "Program", "body": [
		{"type": "ForStatement",
		 "init": {"type": "AssignmentExpression", "operator": "=", "left": {"type": "Identifier", "name": "i"}, "right": {"type": "Literal", "value": 0}},
		 "test": null, "update": null,
		 "body": {"type": "BlockStatement", "body": [{"type": "BreakStatement", "label": null}]}},
		{"type": "IfStatement", "test": {"type": "Identifier", "name": "c"},
		 "consequent": {"type": "EmptyStatement"}, "alternate": null},
		{"type": "FunctionDeclaration", "async": true, "id": {"type": "Identifier", "name": "f"}, "params": [],
		 "body": {"type": "BlockStatement", "body": [{"type": "ReturnStatement", "argument": null}]}},
		{"type": "ContinueStatement", "label": {"type": "Identifier", "name": "outer"}},
		{"type": "ClassDeclaration"}
	]}`
	prog, err := DecodeESTree([]byte(source))
	require.NoError(t, err)
	require.Len(t, prog.Body, 5)

	loop := prog.Body[0].(*ForStatement)
	init, ok := loop.Init.(*ExpressionStatement)
	require.True(t, ok, "expression initializers are wrapped, got %T", loop.Init)
	require.IsType(t, &AssignmentExpression{}, init.Expression)
	require.Nil(t, loop.Test)
	require.Nil(t, loop.Update)
	require.IsType(t, &BreakStatement{}, loop.Body.(*BlockStatement).Body[0])

	branch := prog.Body[1].(*IfStatement)
	require.Nil(t, branch.Alternate)
	require.IsType(t, &EmptyStatement{}, branch.Consequent)

	fn := prog.Body[2].(*FunctionDeclaration)
	require.True(t, fn.Async)
	require.Equal(t, "f", fn.ID.Name)
	require.Nil(t, fn.Body.Body[0].(*ReturnStatement).Argument)

	require.Equal(t, "outer", prog.Body[3].(*ContinueStatement).Label.Name)
	require.Equal(t, "ClassDeclaration", prog.Body[4].Type())
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"malformed json", `{"type": "Program", "body": [`},
		{"empty document", `null`},
		{"wrong root", `{"type": "ExpressionStatement"}`},
		{"body not an array", `{"type": "Program", "body": {}}`},
		{"node without type", `{"type": "Program", "body": [{}]}`},
		{
			"missing operand",
			`{"type": "Program", "body": [{"type": "ExpressionStatement", "expression": {"type": "BinaryExpression", "operator": "+", "left": {"type": "Literal", "value": 1}}}]}`,
		},
		{"anonymous declaration", `{"type": "Program", "body": [{"type": "FunctionDeclaration", "id": null, "params": [], "body": {"type": "BlockStatement", "body": []}}]}`},
		{"type not a string", `{"type": "Program", "body": [{"type": 5}]}`},
		{
			"flag not a boolean",
			`{"type": "Program", "body": [{"type": "ExpressionStatement", "expression": {"type": "UpdateExpression", "operator": "++", "prefix": "yes", "argument": {"type": "Identifier", "name": "i"}}}]}`,
		},
		{
			"generator flag not a boolean",
			`{"type": "Program", "body": [{"type": "FunctionDeclaration", "generator": 1, "id": {"type": "Identifier", "name": "g"}, "params": [], "body": {"type": "BlockStatement", "body": []}}]}`,
		},
		{
			"property kind not a string",
			`{"type": "Program", "body": [{"type": "ExpressionStatement", "expression": {"type": "ObjectExpression", "properties": [{"type": "Property", "kind": true, "key": {"type": "Identifier", "name": "x"}, "value": {"type": "Literal", "value": 1}}]}}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, err := DecodeESTree([]byte(tt.json))
			require.Error(t, err)
			require.Nil(t, prog)
			var syntaxErr *errors.SyntaxError
			require.True(t, stderrors.As(err, &syntaxErr), "want a syntax error, got %T", err)
		})
	}
}

func TestDecodeErrorPosition(t *testing.T) {
	source := `{"type": "Program", "body": [{"type": "ExpressionStatement",
		"loc": {"start": {"line": 4, "column": 2}, "end": {"line": 4, "column": 3}}}]}`
	_, err := DecodeESTree([]byte(source))
	var syntaxErr *errors.SyntaxError
	require.True(t, stderrors.As(err, &syntaxErr))
	require.Equal(t, errors.Position{Line: 4, Column: 3}, syntaxErr.Pos())
}

func TestDecodeAccessorsAndGenerators(t *testing.T) {
	source := `{"type": "Program", "body": [
		{"type": "ExpressionStatement", "expression": {"type": "ObjectExpression", "properties": [
			{"type": "Property", "kind": "get", "method": false, "computed": false, "shorthand": false,
			 "key": {"type": "Identifier", "name": "x"},
			 "value": {"type": "FunctionExpression", "id": null, "params": [], "generator": false,
			           "body": {"type": "BlockStatement", "body": []}}},
			{"type": "Property", "kind": "init", "method": true,
			 "key": {"type": "Identifier", "name": "m"},
			 "value": {"type": "FunctionExpression", "id": null, "params": [], "generator": true,
			           "body": {"type": "BlockStatement", "body": []}}},
			{"type": "Property", "shorthand": null,
			 "key": {"type": "Identifier", "name": "y"}, "value": {"type": "Identifier", "name": "y"}}
		]}},
		{"type": "FunctionDeclaration", "generator": true, "id": {"type": "Identifier", "name": "g"}, "params": [],
		 "body": {"type": "BlockStatement", "body": []}}
	]}`
	prog, err := DecodeESTree([]byte(source))
	require.NoError(t, err)

	props := prog.Body[0].(*ExpressionStatement).Expression.(*ObjectExpression).Properties
	require.Len(t, props, 3)
	require.Equal(t, "get", props[0].Kind)
	require.False(t, props[0].Value.(*FunctionExpression).Generator)

	require.Equal(t, "init", props[1].Kind)
	require.True(t, props[1].Method)
	require.True(t, props[1].Value.(*FunctionExpression).Generator)

	// kind defaults to a data property and null flags read as false
	require.Equal(t, "init", props[2].Kind)
	require.False(t, props[2].Shorthand)

	require.True(t, prog.Body[1].(*FunctionDeclaration).Generator)
}
