// Package ast defines the closed set of syntax tree nodes the compiler
// consumes. The node vocabulary follows ESTree, so trees produced by any
// ESTree parser can be decoded into it (see DecodeESTree), but the set of
// variants is fixed: the compiler switches over these Go types exhaustively.
package ast

// --- Interfaces ---

// Position is a 1-based line/column pair. A zero Line means unknown.
type Position struct {
	Line   int
	Column int
}

// Loc is the source range of a node. It is embedded in every node.
type Loc struct {
	Start Position
	End   Position
}

// Location returns the source range itself; embedding Loc gives every node
// this method.
func (l Loc) Location() Loc { return l }

// Node is the base interface for all AST nodes.
type Node interface {
	Location() Loc
	Type() string // ESTree type name, used in diagnostics
}

// Statement represents a statement node.
type Statement interface {
	Node
	statementNode()
}

// Expression represents an expression node.
type Expression interface {
	Node
	expressionNode()
}

// Pattern represents a binding or assignment target.
type Pattern interface {
	Node
	patternNode()
}

// --- Program ---

// Program is the root node of the AST.
type Program struct {
	Loc
	Body []Statement
}

func (p *Program) Type() string { return "Program" }

// --- Statements ---

// VariableDeclaration is a `var`, `let` or `const` declaration.
type VariableDeclaration struct {
	Loc
	Kind         string // "var", "let" or "const"
	Declarations []*VariableDeclarator
}

func (*VariableDeclaration) statementNode() {}
func (*VariableDeclaration) Type() string   { return "VariableDeclaration" }

// VariableDeclarator is one binding target with an optional initializer.
type VariableDeclarator struct {
	Loc
	ID   Pattern
	Init Expression // nil when absent
}

func (*VariableDeclarator) Type() string { return "VariableDeclarator" }

// FunctionDeclaration is a named function statement.
type FunctionDeclaration struct {
	Loc
	ID        *Identifier
	Params    []Pattern
	Body      *BlockStatement
	Async     bool
	Generator bool
}

func (*FunctionDeclaration) statementNode() {}
func (*FunctionDeclaration) Type() string   { return "FunctionDeclaration" }

// ExpressionStatement evaluates an expression for its effects.
type ExpressionStatement struct {
	Loc
	Expression Expression
}

func (*ExpressionStatement) statementNode() {}
func (*ExpressionStatement) Type() string   { return "ExpressionStatement" }

// BlockStatement is a braced statement list with its own scope.
type BlockStatement struct {
	Loc
	Body []Statement
}

func (*BlockStatement) statementNode() {}
func (*BlockStatement) Type() string   { return "BlockStatement" }

// EmptyStatement is a lone `;`.
type EmptyStatement struct {
	Loc
}

func (*EmptyStatement) statementNode() {}
func (*EmptyStatement) Type() string   { return "EmptyStatement" }

// IfStatement is `if (Test) Consequent else Alternate`.
type IfStatement struct {
	Loc
	Test       Expression
	Consequent Statement
	Alternate  Statement // nil when absent
}

func (*IfStatement) statementNode() {}
func (*IfStatement) Type() string   { return "IfStatement" }

// WhileStatement is `while (Test) Body`.
type WhileStatement struct {
	Loc
	Test Expression
	Body Statement
}

func (*WhileStatement) statementNode() {}
func (*WhileStatement) Type() string   { return "WhileStatement" }

// DoWhileStatement is `do Body while (Test)`.
type DoWhileStatement struct {
	Loc
	Body Statement
	Test Expression
}

func (*DoWhileStatement) statementNode() {}
func (*DoWhileStatement) Type() string   { return "DoWhileStatement" }

// ForStatement is `for (Init; Test; Update) Body`. Init is either a
// *VariableDeclaration or an expression wrapped in *ExpressionStatement.
type ForStatement struct {
	Loc
	Init   Statement  // nil when absent
	Test   Expression // nil when absent
	Update Expression // nil when absent
	Body   Statement
}

func (*ForStatement) statementNode() {}
func (*ForStatement) Type() string   { return "ForStatement" }

// ReturnStatement is `return Argument`.
type ReturnStatement struct {
	Loc
	Argument Expression // nil for a bare return
}

func (*ReturnStatement) statementNode() {}
func (*ReturnStatement) Type() string   { return "ReturnStatement" }

// BreakStatement is `break`. Label is kept so labeled forms can be rejected.
type BreakStatement struct {
	Loc
	Label *Identifier
}

func (*BreakStatement) statementNode() {}
func (*BreakStatement) Type() string   { return "BreakStatement" }

// ContinueStatement is `continue`.
type ContinueStatement struct {
	Loc
	Label *Identifier
}

func (*ContinueStatement) statementNode() {}
func (*ContinueStatement) Type() string   { return "ContinueStatement" }

// UnknownStatement carries an ESTree statement type the compiler has no
// variant for, so the compiler can report it precisely.
type UnknownStatement struct {
	Loc
	Kind string
}

func (*UnknownStatement) statementNode() {}
func (u *UnknownStatement) Type() string { return u.Kind }

// --- Expressions ---

// Identifier is a name. It is both an expression and a binding pattern.
type Identifier struct {
	Loc
	Name string
}

func (*Identifier) expressionNode() {}
func (*Identifier) patternNode()    {}
func (*Identifier) Type() string    { return "Identifier" }

// LiteralKind is the run-time kind of a literal value.
type LiteralKind uint8

const (
	NumberLiteral LiteralKind = iota
	StringLiteral
	BooleanLiteral
	NullLiteral
	RegExpLiteral
	BigIntLiteral
)

// Literal is a constant. Exactly one of the value fields is meaningful,
// selected by Kind.
type Literal struct {
	Loc
	Kind   LiteralKind
	Number float64
	String string // string value, or the raw text of regex/bigint literals
	Bool   bool
}

func (*Literal) expressionNode() {}
func (*Literal) Type() string    { return "Literal" }

// BinaryExpression is `Left Operator Right` for arithmetic, comparison,
// bitwise and relational operators.
type BinaryExpression struct {
	Loc
	Operator string
	Left     Expression
	Right    Expression
}

func (*BinaryExpression) expressionNode() {}
func (*BinaryExpression) Type() string    { return "BinaryExpression" }

// LogicalExpression is `Left && Right`, `Left || Right` or `Left ?? Right`.
type LogicalExpression struct {
	Loc
	Operator string
	Left     Expression
	Right    Expression
}

func (*LogicalExpression) expressionNode() {}
func (*LogicalExpression) Type() string    { return "LogicalExpression" }

// UnaryExpression is a prefix operator other than ++/--.
type UnaryExpression struct {
	Loc
	Operator string
	Argument Expression
}

func (*UnaryExpression) expressionNode() {}
func (*UnaryExpression) Type() string    { return "UnaryExpression" }

// UpdateExpression is ++ or --, prefix or postfix.
type UpdateExpression struct {
	Loc
	Operator string
	Prefix   bool
	Argument Expression
}

func (*UpdateExpression) expressionNode() {}
func (*UpdateExpression) Type() string    { return "UpdateExpression" }

// AssignmentExpression is `Left Operator Right` with = or a compound operator.
type AssignmentExpression struct {
	Loc
	Operator string
	Left     Pattern
	Right    Expression
}

func (*AssignmentExpression) expressionNode() {}
func (*AssignmentExpression) Type() string    { return "AssignmentExpression" }

// ConditionalExpression is `Test ? Consequent : Alternate`.
type ConditionalExpression struct {
	Loc
	Test       Expression
	Consequent Expression
	Alternate  Expression
}

func (*ConditionalExpression) expressionNode() {}
func (*ConditionalExpression) Type() string    { return "ConditionalExpression" }

// SequenceExpression is `a, b, c`; its value is the last expression's.
type SequenceExpression struct {
	Loc
	Expressions []Expression
}

func (*SequenceExpression) expressionNode() {}
func (*SequenceExpression) Type() string    { return "SequenceExpression" }

// CallExpression is `Callee(Arguments...)`.
type CallExpression struct {
	Loc
	Callee    Expression
	Arguments []Expression
}

func (*CallExpression) expressionNode() {}
func (*CallExpression) Type() string    { return "CallExpression" }

// MemberExpression is `Object.Property` or `Object[Property]`. When
// Computed is false, Property is an *Identifier whose name is the key.
type MemberExpression struct {
	Loc
	Object   Expression
	Property Expression
	Computed bool
}

func (*MemberExpression) expressionNode() {}
func (*MemberExpression) patternNode()    {}
func (*MemberExpression) Type() string    { return "MemberExpression" }

// ArrayExpression is `[a, , b]`; holes are nil elements.
type ArrayExpression struct {
	Loc
	Elements []Expression
}

func (*ArrayExpression) expressionNode() {}
func (*ArrayExpression) Type() string    { return "ArrayExpression" }

// ObjectExpression is `{k: v, ...}`.
type ObjectExpression struct {
	Loc
	Properties []*Property
}

func (*ObjectExpression) expressionNode() {}
func (*ObjectExpression) Type() string    { return "ObjectExpression" }

// Property is one entry of an object literal.
type Property struct {
	Loc
	Key   Expression // *Identifier, *Literal, or any expression when Computed
	Value Expression
	// Kind is "init" for data properties (an empty Kind means the same),
	// "get" or "set" for accessors.
	Kind      string
	Computed  bool
	Shorthand bool
	Method    bool
}

func (*Property) Type() string { return "Property" }

// SpreadElement is `...Argument` in an array literal or argument list.
type SpreadElement struct {
	Loc
	Argument Expression
}

func (*SpreadElement) expressionNode() {}
func (*SpreadElement) Type() string    { return "SpreadElement" }

// FunctionExpression is `function Name?(Params) { Body }`.
type FunctionExpression struct {
	Loc
	ID        *Identifier // nil for anonymous functions
	Params    []Pattern
	Body      *BlockStatement
	Async     bool
	Generator bool
}

func (*FunctionExpression) expressionNode() {}
func (*FunctionExpression) Type() string    { return "FunctionExpression" }

// ArrowFunctionExpression is `(Params) => Body`. Exactly one of Body and
// ExpressionBody is set.
type ArrowFunctionExpression struct {
	Loc
	Params         []Pattern
	Body           *BlockStatement
	ExpressionBody Expression
	Async          bool
}

func (*ArrowFunctionExpression) expressionNode() {}
func (*ArrowFunctionExpression) Type() string    { return "ArrowFunctionExpression" }

// AwaitExpression is `await Argument`.
type AwaitExpression struct {
	Loc
	Argument Expression
}

func (*AwaitExpression) expressionNode() {}
func (*AwaitExpression) Type() string    { return "AwaitExpression" }

// UnknownExpression carries an ESTree expression type with no variant here.
type UnknownExpression struct {
	Loc
	Kind string
}

func (*UnknownExpression) expressionNode() {}
func (u *UnknownExpression) Type() string  { return u.Kind }

// --- Patterns ---

// ArrayPattern is `[a, , b = 1, ...rest]`; holes are nil elements and a
// *RestElement may only appear last.
type ArrayPattern struct {
	Loc
	Elements []Pattern
}

func (*ArrayPattern) patternNode() {}
func (*ArrayPattern) Type() string { return "ArrayPattern" }

// ObjectPattern is `{a, b: c, d = 1, ...rest}`.
type ObjectPattern struct {
	Loc
	Properties []*PatternProperty
	Rest       *RestElement // nil when absent
}

func (*ObjectPattern) patternNode() {}
func (*ObjectPattern) Type() string { return "ObjectPattern" }

// PatternProperty is one `key: target` entry of an object pattern.
type PatternProperty struct {
	Loc
	Key      Expression // *Identifier or *Literal, or any expression when Computed
	Value    Pattern
	Computed bool
}

func (*PatternProperty) Type() string { return "Property" }

// AssignmentPattern is `Left = Right` inside a pattern or parameter list.
type AssignmentPattern struct {
	Loc
	Left  Pattern
	Right Expression
}

func (*AssignmentPattern) patternNode() {}
func (*AssignmentPattern) Type() string { return "AssignmentPattern" }

// RestElement is `...Argument` inside a pattern or parameter list.
type RestElement struct {
	Loc
	Argument Pattern
}

func (*RestElement) patternNode() {}
func (*RestElement) Type() string { return "RestElement" }

// UnknownPattern carries an ESTree node used as a target that has no
// pattern variant, such as a call expression on the left of `=`.
type UnknownPattern struct {
	Loc
	Kind string
}

func (*UnknownPattern) patternNode()   {}
func (u *UnknownPattern) Type() string { return u.Kind }
