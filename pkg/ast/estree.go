package ast

import (
	"fmt"

	"github.com/goccy/go-json"

	"regjs/pkg/errors"
)

// DecodeESTree decodes an ESTree JSON document (as produced by acorn with
// `locations: true`, for example) into a Program. Node types the compiler has
// no variant for are kept as Unknown* nodes so compilation can report them
// with their position; structurally malformed input yields a *errors.SyntaxError.
func DecodeESTree(data []byte) (*Program, error) {
	root, err := parseObject(data)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, &errors.SyntaxError{Msg: "empty ESTree document"}
	}
	if t := root.kind(); t != "Program" {
		return nil, &errors.SyntaxError{Position: root.pos(), Msg: fmt.Sprintf("root node is %q, want \"Program\"", t)}
	}
	body, err := root.list("body")
	if err != nil {
		return nil, err
	}
	prog := &Program{Loc: root.loc()}
	for _, raw := range body {
		stmt, err := decodeStatement(raw)
		if err != nil {
			return nil, err
		}
		prog.Body = append(prog.Body, stmt)
	}
	return prog, nil
}

// object is one undecoded ESTree node.
type object map[string]json.RawMessage

type rawLoc struct {
	Start struct {
		Line   int `json:"line"`
		Column int `json:"column"`
	} `json:"start"`
	End struct {
		Line   int `json:"line"`
		Column int `json:"column"`
	} `json:"end"`
}

func parseObject(data json.RawMessage) (object, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var o object
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, (&errors.SyntaxError{Msg: "malformed ESTree node"}).CausedBy(err)
	}
	if raw, ok := o["type"]; ok {
		var t string
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, (&errors.SyntaxError{Position: o.pos(), Msg: "field \"type\" is not a string"}).CausedBy(err)
		}
	}
	return o, nil
}

// kind returns the node type, or "" when the node has none. parseObject has
// already rejected a type field that is not a string.
func (o object) kind() string {
	var t string
	if err := json.Unmarshal(o["type"], &t); err != nil {
		return ""
	}
	return t
}

// loc converts ESTree's 0-based columns to 1-based ones.
func (o object) loc() Loc {
	raw, ok := o["loc"]
	if !ok {
		return Loc{}
	}
	var l rawLoc
	if err := json.Unmarshal(raw, &l); err != nil {
		return Loc{}
	}
	return Loc{
		Start: Position{Line: l.Start.Line, Column: l.Start.Column + 1},
		End:   Position{Line: l.End.Line, Column: l.End.Column + 1},
	}
}

func (o object) pos() errors.Position {
	l := o.loc()
	return errors.Position{Line: l.Start.Line, Column: l.Start.Column}
}

func (o object) fail(format string, args ...any) error {
	return &errors.SyntaxError{Position: o.pos(), Msg: fmt.Sprintf("%s: ", o.kind()) + fmt.Sprintf(format, args...)}
}

func (o object) str(key string) (string, error) {
	var s string
	if err := json.Unmarshal(o[key], &s); err != nil {
		return "", o.fail("field %q is not a string", key)
	}
	return s, nil
}

// flag reads an optional boolean field. Absent and null read as false.
func (o object) flag(key string) (bool, error) {
	raw, ok := o[key]
	if !ok || string(raw) == "null" {
		return false, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, o.fail("field %q is not a boolean", key)
	}
	return b, nil
}

// functionFlags reads the async and generator flags of a function node.
func (o object) functionFlags() (async, generator bool, err error) {
	if async, err = o.flag("async"); err != nil {
		return false, false, err
	}
	if generator, err = o.flag("generator"); err != nil {
		return false, false, err
	}
	return async, generator, nil
}

func (o object) list(key string) ([]json.RawMessage, error) {
	raw, ok := o[key]
	if !ok || string(raw) == "null" {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, o.fail("field %q is not an array", key)
	}
	return items, nil
}

func (o object) child(key string) (object, error) {
	return parseObject(o[key])
}

// --- Statements ---

func decodeStatement(raw json.RawMessage) (Statement, error) {
	o, err := parseObject(raw)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, &errors.SyntaxError{Msg: "null statement"}
	}
	loc := o.loc()
	switch o.kind() {
	case "VariableDeclaration":
		return decodeVariableDeclaration(o)
	case "FunctionDeclaration":
		id, params, body, err := decodeFunctionParts(o)
		if err != nil {
			return nil, err
		}
		if id == nil {
			return nil, o.fail("missing function name")
		}
		async, generator, err := o.functionFlags()
		if err != nil {
			return nil, err
		}
		return &FunctionDeclaration{Loc: loc, ID: id, Params: params, Body: body, Async: async, Generator: generator}, nil
	case "ExpressionStatement":
		expr, err := decodeRequiredExpression(o, "expression")
		if err != nil {
			return nil, err
		}
		return &ExpressionStatement{Loc: loc, Expression: expr}, nil
	case "BlockStatement":
		return decodeBlock(o)
	case "EmptyStatement":
		return &EmptyStatement{Loc: loc}, nil
	case "IfStatement":
		test, err := decodeRequiredExpression(o, "test")
		if err != nil {
			return nil, err
		}
		cons, err := decodeStatement(o["consequent"])
		if err != nil {
			return nil, err
		}
		node := &IfStatement{Loc: loc, Test: test, Consequent: cons}
		if alt, ok := o["alternate"]; ok && string(alt) != "null" {
			if node.Alternate, err = decodeStatement(alt); err != nil {
				return nil, err
			}
		}
		return node, nil
	case "WhileStatement", "DoWhileStatement":
		test, err := decodeRequiredExpression(o, "test")
		if err != nil {
			return nil, err
		}
		body, err := decodeStatement(o["body"])
		if err != nil {
			return nil, err
		}
		if o.kind() == "DoWhileStatement" {
			return &DoWhileStatement{Loc: loc, Body: body, Test: test}, nil
		}
		return &WhileStatement{Loc: loc, Test: test, Body: body}, nil
	case "ForStatement":
		return decodeFor(o)
	case "ReturnStatement":
		arg, err := decodeExpression(o["argument"])
		if err != nil {
			return nil, err
		}
		return &ReturnStatement{Loc: loc, Argument: arg}, nil
	case "BreakStatement", "ContinueStatement":
		var label *Identifier
		if lo, err := o.child("label"); err != nil {
			return nil, err
		} else if lo != nil {
			name, err := lo.str("name")
			if err != nil {
				return nil, err
			}
			label = &Identifier{Loc: lo.loc(), Name: name}
		}
		if o.kind() == "BreakStatement" {
			return &BreakStatement{Loc: loc, Label: label}, nil
		}
		return &ContinueStatement{Loc: loc, Label: label}, nil
	case "":
		return nil, &errors.SyntaxError{Position: o.pos(), Msg: "node without type"}
	default:
		return &UnknownStatement{Loc: loc, Kind: o.kind()}, nil
	}
}

func decodeBlock(o object) (*BlockStatement, error) {
	if o.kind() != "BlockStatement" {
		return nil, o.fail("expected BlockStatement")
	}
	items, err := o.list("body")
	if err != nil {
		return nil, err
	}
	block := &BlockStatement{Loc: o.loc()}
	for _, raw := range items {
		stmt, err := decodeStatement(raw)
		if err != nil {
			return nil, err
		}
		block.Body = append(block.Body, stmt)
	}
	return block, nil
}

func decodeVariableDeclaration(o object) (*VariableDeclaration, error) {
	kind, err := o.str("kind")
	if err != nil {
		return nil, err
	}
	items, err := o.list("declarations")
	if err != nil {
		return nil, err
	}
	decl := &VariableDeclaration{Loc: o.loc(), Kind: kind}
	for _, raw := range items {
		d, err := parseObject(raw)
		if err != nil {
			return nil, err
		}
		if d == nil {
			return nil, o.fail("null declarator")
		}
		id, err := decodePattern(d["id"])
		if err != nil {
			return nil, err
		}
		init, err := decodeExpression(d["init"])
		if err != nil {
			return nil, err
		}
		decl.Declarations = append(decl.Declarations, &VariableDeclarator{Loc: d.loc(), ID: id, Init: init})
	}
	return decl, nil
}

func decodeFor(o object) (*ForStatement, error) {
	node := &ForStatement{Loc: o.loc()}
	if init, err := o.child("init"); err != nil {
		return nil, err
	} else if init != nil {
		if init.kind() == "VariableDeclaration" {
			if node.Init, err = decodeVariableDeclaration(init); err != nil {
				return nil, err
			}
		} else {
			expr, err := decodeExpression(o["init"])
			if err != nil {
				return nil, err
			}
			node.Init = &ExpressionStatement{Loc: init.loc(), Expression: expr}
		}
	}
	var err error
	if node.Test, err = decodeExpression(o["test"]); err != nil {
		return nil, err
	}
	if node.Update, err = decodeExpression(o["update"]); err != nil {
		return nil, err
	}
	if node.Body, err = decodeStatement(o["body"]); err != nil {
		return nil, err
	}
	return node, nil
}

func decodeFunctionParts(o object) (*Identifier, []Pattern, *BlockStatement, error) {
	var id *Identifier
	if io, err := o.child("id"); err != nil {
		return nil, nil, nil, err
	} else if io != nil {
		name, err := io.str("name")
		if err != nil {
			return nil, nil, nil, err
		}
		id = &Identifier{Loc: io.loc(), Name: name}
	}
	params, err := decodeParams(o)
	if err != nil {
		return nil, nil, nil, err
	}
	bo, err := o.child("body")
	if err != nil {
		return nil, nil, nil, err
	}
	if bo == nil {
		return nil, nil, nil, o.fail("missing function body")
	}
	body, err := decodeBlock(bo)
	if err != nil {
		return nil, nil, nil, err
	}
	return id, params, body, nil
}

func decodeParams(o object) ([]Pattern, error) {
	items, err := o.list("params")
	if err != nil {
		return nil, err
	}
	params := make([]Pattern, 0, len(items))
	for _, raw := range items {
		p, err := decodePattern(raw)
		if err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	return params, nil
}

// --- Expressions ---

func decodeRequiredExpression(o object, key string) (Expression, error) {
	expr, err := decodeExpression(o[key])
	if err != nil {
		return nil, err
	}
	if expr == nil {
		return nil, o.fail("missing %q", key)
	}
	return expr, nil
}

// decodeExpression returns a nil Expression for JSON null or an absent field.
func decodeExpression(raw json.RawMessage) (Expression, error) {
	o, err := parseObject(raw)
	if err != nil || o == nil {
		return nil, err
	}
	loc := o.loc()
	switch o.kind() {
	case "Identifier":
		name, err := o.str("name")
		if err != nil {
			return nil, err
		}
		return &Identifier{Loc: loc, Name: name}, nil
	case "Literal":
		return decodeLiteral(o)
	case "BinaryExpression", "LogicalExpression":
		op, err := o.str("operator")
		if err != nil {
			return nil, err
		}
		left, err := decodeRequiredExpression(o, "left")
		if err != nil {
			return nil, err
		}
		right, err := decodeRequiredExpression(o, "right")
		if err != nil {
			return nil, err
		}
		if o.kind() == "LogicalExpression" {
			return &LogicalExpression{Loc: loc, Operator: op, Left: left, Right: right}, nil
		}
		return &BinaryExpression{Loc: loc, Operator: op, Left: left, Right: right}, nil
	case "UnaryExpression", "UpdateExpression":
		op, err := o.str("operator")
		if err != nil {
			return nil, err
		}
		arg, err := decodeRequiredExpression(o, "argument")
		if err != nil {
			return nil, err
		}
		if o.kind() == "UpdateExpression" {
			prefix, err := o.flag("prefix")
			if err != nil {
				return nil, err
			}
			return &UpdateExpression{Loc: loc, Operator: op, Prefix: prefix, Argument: arg}, nil
		}
		return &UnaryExpression{Loc: loc, Operator: op, Argument: arg}, nil
	case "AssignmentExpression":
		op, err := o.str("operator")
		if err != nil {
			return nil, err
		}
		left, err := decodePattern(o["left"])
		if err != nil {
			return nil, err
		}
		right, err := decodeRequiredExpression(o, "right")
		if err != nil {
			return nil, err
		}
		return &AssignmentExpression{Loc: loc, Operator: op, Left: left, Right: right}, nil
	case "ConditionalExpression":
		test, err := decodeRequiredExpression(o, "test")
		if err != nil {
			return nil, err
		}
		cons, err := decodeRequiredExpression(o, "consequent")
		if err != nil {
			return nil, err
		}
		alt, err := decodeRequiredExpression(o, "alternate")
		if err != nil {
			return nil, err
		}
		return &ConditionalExpression{Loc: loc, Test: test, Consequent: cons, Alternate: alt}, nil
	case "SequenceExpression":
		exprs, err := decodeExpressionList(o, "expressions")
		if err != nil {
			return nil, err
		}
		return &SequenceExpression{Loc: loc, Expressions: exprs}, nil
	case "CallExpression":
		callee, err := decodeRequiredExpression(o, "callee")
		if err != nil {
			return nil, err
		}
		args, err := decodeExpressionList(o, "arguments")
		if err != nil {
			return nil, err
		}
		return &CallExpression{Loc: loc, Callee: callee, Arguments: args}, nil
	case "MemberExpression":
		return decodeMember(o)
	case "ArrayExpression":
		elems, err := decodeExpressionList(o, "elements")
		if err != nil {
			return nil, err
		}
		return &ArrayExpression{Loc: loc, Elements: elems}, nil
	case "ObjectExpression":
		return decodeObjectExpression(o)
	case "SpreadElement":
		arg, err := decodeRequiredExpression(o, "argument")
		if err != nil {
			return nil, err
		}
		return &SpreadElement{Loc: loc, Argument: arg}, nil
	case "FunctionExpression":
		id, params, body, err := decodeFunctionParts(o)
		if err != nil {
			return nil, err
		}
		async, generator, err := o.functionFlags()
		if err != nil {
			return nil, err
		}
		return &FunctionExpression{Loc: loc, ID: id, Params: params, Body: body, Async: async, Generator: generator}, nil
	case "ArrowFunctionExpression":
		params, err := decodeParams(o)
		if err != nil {
			return nil, err
		}
		async, err := o.flag("async")
		if err != nil {
			return nil, err
		}
		expression, err := o.flag("expression")
		if err != nil {
			return nil, err
		}
		node := &ArrowFunctionExpression{Loc: loc, Params: params, Async: async}
		if expression {
			if node.ExpressionBody, err = decodeRequiredExpression(o, "body"); err != nil {
				return nil, err
			}
			return node, nil
		}
		bo, err := o.child("body")
		if err != nil {
			return nil, err
		}
		if bo == nil {
			return nil, o.fail("missing arrow body")
		}
		if node.Body, err = decodeBlock(bo); err != nil {
			return nil, err
		}
		return node, nil
	case "AwaitExpression":
		arg, err := decodeRequiredExpression(o, "argument")
		if err != nil {
			return nil, err
		}
		return &AwaitExpression{Loc: loc, Argument: arg}, nil
	case "ParenthesizedExpression":
		return decodeRequiredExpression(o, "expression")
	case "":
		return nil, &errors.SyntaxError{Position: o.pos(), Msg: "node without type"}
	default:
		return &UnknownExpression{Loc: loc, Kind: o.kind()}, nil
	}
}

// decodeExpressionList keeps nil entries, which ESTree uses for array holes.
func decodeExpressionList(o object, key string) ([]Expression, error) {
	items, err := o.list(key)
	if err != nil {
		return nil, err
	}
	exprs := make([]Expression, 0, len(items))
	for _, raw := range items {
		e, err := decodeExpression(raw)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	return exprs, nil
}

func decodeLiteral(o object) (*Literal, error) {
	lit := &Literal{Loc: o.loc()}
	if _, ok := o["regex"]; ok {
		lit.Kind = RegExpLiteral
		lit.String, _ = o.str("raw")
		return lit, nil
	}
	if _, ok := o["bigint"]; ok {
		lit.Kind = BigIntLiteral
		lit.String, _ = o.str("bigint")
		return lit, nil
	}
	var v any
	if err := json.Unmarshal(o["value"], &v); err != nil {
		return nil, o.fail("unreadable literal value")
	}
	switch v := v.(type) {
	case nil:
		lit.Kind = NullLiteral
	case bool:
		lit.Kind = BooleanLiteral
		lit.Bool = v
	case float64:
		lit.Kind = NumberLiteral
		lit.Number = v
	case string:
		lit.Kind = StringLiteral
		lit.String = v
	default:
		return nil, o.fail("unsupported literal value %T", v)
	}
	return lit, nil
}

func decodeMember(o object) (*MemberExpression, error) {
	obj, err := decodeRequiredExpression(o, "object")
	if err != nil {
		return nil, err
	}
	prop, err := decodeRequiredExpression(o, "property")
	if err != nil {
		return nil, err
	}
	computed, err := o.flag("computed")
	if err != nil {
		return nil, err
	}
	return &MemberExpression{Loc: o.loc(), Object: obj, Property: prop, Computed: computed}, nil
}

func decodeObjectExpression(o object) (*ObjectExpression, error) {
	items, err := o.list("properties")
	if err != nil {
		return nil, err
	}
	node := &ObjectExpression{Loc: o.loc()}
	for _, raw := range items {
		po, err := parseObject(raw)
		if err != nil {
			return nil, err
		}
		if po == nil {
			return nil, o.fail("null property")
		}
		if po.kind() == "SpreadElement" {
			spread, err := decodeExpression(raw)
			if err != nil {
				return nil, err
			}
			node.Properties = append(node.Properties, &Property{Loc: po.loc(), Value: spread})
			continue
		}
		key, err := decodeRequiredExpression(po, "key")
		if err != nil {
			return nil, err
		}
		value, err := decodeRequiredExpression(po, "value")
		if err != nil {
			return nil, err
		}
		prop := &Property{Loc: po.loc(), Key: key, Value: value, Kind: "init"}
		if _, ok := po["kind"]; ok {
			if prop.Kind, err = po.str("kind"); err != nil {
				return nil, err
			}
		}
		if prop.Computed, err = po.flag("computed"); err != nil {
			return nil, err
		}
		if prop.Shorthand, err = po.flag("shorthand"); err != nil {
			return nil, err
		}
		if prop.Method, err = po.flag("method"); err != nil {
			return nil, err
		}
		node.Properties = append(node.Properties, prop)
	}
	return node, nil
}

// --- Patterns ---

func decodePattern(raw json.RawMessage) (Pattern, error) {
	o, err := parseObject(raw)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, nil
	}
	loc := o.loc()
	switch o.kind() {
	case "Identifier":
		name, err := o.str("name")
		if err != nil {
			return nil, err
		}
		return &Identifier{Loc: loc, Name: name}, nil
	case "MemberExpression":
		return decodeMember(o)
	case "ArrayPattern":
		items, err := o.list("elements")
		if err != nil {
			return nil, err
		}
		node := &ArrayPattern{Loc: loc}
		for _, item := range items {
			p, err := decodePattern(item)
			if err != nil {
				return nil, err
			}
			node.Elements = append(node.Elements, p)
		}
		return node, nil
	case "ObjectPattern":
		return decodeObjectPattern(o)
	case "AssignmentPattern":
		left, err := decodePattern(o["left"])
		if err != nil {
			return nil, err
		}
		if left == nil {
			return nil, o.fail("missing \"left\"")
		}
		right, err := decodeRequiredExpression(o, "right")
		if err != nil {
			return nil, err
		}
		return &AssignmentPattern{Loc: loc, Left: left, Right: right}, nil
	case "RestElement":
		arg, err := decodePattern(o["argument"])
		if err != nil {
			return nil, err
		}
		if arg == nil {
			return nil, o.fail("missing \"argument\"")
		}
		return &RestElement{Loc: loc, Argument: arg}, nil
	case "":
		return nil, &errors.SyntaxError{Position: o.pos(), Msg: "node without type"}
	default:
		return &UnknownPattern{Loc: loc, Kind: o.kind()}, nil
	}
}

func decodeObjectPattern(o object) (*ObjectPattern, error) {
	items, err := o.list("properties")
	if err != nil {
		return nil, err
	}
	node := &ObjectPattern{Loc: o.loc()}
	for _, raw := range items {
		po, err := parseObject(raw)
		if err != nil {
			return nil, err
		}
		if po == nil {
			return nil, o.fail("null property")
		}
		if po.kind() == "RestElement" {
			rest, err := decodePattern(raw)
			if err != nil {
				return nil, err
			}
			node.Rest = rest.(*RestElement)
			continue
		}
		key, err := decodeRequiredExpression(po, "key")
		if err != nil {
			return nil, err
		}
		value, err := decodePattern(po["value"])
		if err != nil {
			return nil, err
		}
		if value == nil {
			return nil, po.fail("missing \"value\"")
		}
		computed, err := po.flag("computed")
		if err != nil {
			return nil, err
		}
		node.Properties = append(node.Properties, &PatternProperty{
			Loc:      po.loc(),
			Key:      key,
			Value:    value,
			Computed: computed,
		})
	}
	return node, nil
}
