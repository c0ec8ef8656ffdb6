package compiler

import (
	"fmt"

	"github.com/tliron/commonlog"

	"regjs/pkg/ast"
	"regjs/pkg/bytecode"
	"regjs/pkg/errors"
)

var log = commonlog.GetLogger("regjs.compiler")

const debugCompiler = false

func debugPrintf(format string, args ...any) {
	if debugCompiler {
		log.Debugf(format, args...)
	}
}

// LoopContext holds the jump targets of the innermost enclosing loop.
type LoopContext struct {
	// Start is the continue target: the test of a while loop, the update
	// of a for loop.
	Start bytecode.Label
	// End is the break target.
	End bytecode.Label
}

// Options controls name resolution and emission.
type Options struct {
	// Globals are names provided by the host environment, read with GGET
	// and written with GSET.
	Globals []string
	// Intrinsics bind bare names to zero-operand directive opcodes.
	Intrinsics map[string]bytecode.OpCode
	// ReleaseScopes emits a GC directive for every binding register released
	// when its scope closes.
	ReleaseScopes bool
	// CheckRegisters verifies at every emission that each register operand
	// is live in the emitting unit, and panics otherwise.
	CheckRegisters bool
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		Globals:    []string{"print", "console"},
		Intrinsics: DefaultIntrinsics(),
	}
}

// programState is shared by every unit compiled for one program.
type programState struct {
	options   Options
	globals   map[string]bool
	functions []*bytecode.Function
}

// Compiler transforms an AST into bytecode. Each function body is compiled
// by its own Compiler whose scope chain continues the enclosing one's.
type Compiler struct {
	chunk              *bytecode.Chunk
	regAlloc           *RegisterAllocator
	currentSymbolTable *SymbolTable
	loopContextStack   []*LoopContext
	compilingFuncName  string

	// bound counts the live bindings per register, so that temporaries can
	// be told apart from named registers.
	bound map[Register]int
	// labelErr is the first label definition error in this unit.
	labelErr error

	shared *programState
}

// NewCompiler creates a new *top-level* Compiler.
func NewCompiler(options Options) *Compiler {
	globals := make(map[string]bool, len(options.Globals))
	for _, name := range options.Globals {
		globals[name] = true
	}
	return &Compiler{
		chunk:             bytecode.NewChunk(),
		regAlloc:          NewRegisterAllocator(),
		loopContextStack:  make([]*LoopContext, 0),
		compilingFuncName: "main",
		bound:             make(map[Register]int),
		shared: &programState{
			options: options,
			globals: globals,
		},
	}
}

// newFunctionCompiler creates a compiler instance specifically for a function body.
func newFunctionCompiler(enclosingCompiler *Compiler, name string) *Compiler {
	regAlloc := NewRegisterAllocator()
	return &Compiler{
		chunk:              bytecode.NewChunk(),
		regAlloc:           regAlloc,
		currentSymbolTable: NewFunctionSymbolTable(enclosingCompiler.currentSymbolTable, regAlloc),
		loopContextStack:   make([]*LoopContext, 0),
		compilingFuncName:  name,
		bound:              make(map[Register]int),
		shared:             enclosingCompiler.shared,
	}
}

// Compile is a shorthand for NewCompiler(options).Compile(program).
func Compile(program *ast.Program, options Options) (*bytecode.Program, error) {
	return NewCompiler(options).Compile(program)
}

// Compile lowers a whole program. The first error aborts compilation and no
// program is returned.
func (c *Compiler) Compile(program *ast.Program) (*bytecode.Program, error) {
	c.chunk = bytecode.NewChunk()
	c.regAlloc.Reset()
	c.currentSymbolTable = NewSymbolTable(c.regAlloc)
	c.loopContextStack = c.loopContextStack[:0]
	c.bound = make(map[Register]int)
	c.labelErr = nil
	c.shared.functions = nil

	loc := program.Location()
	if err := c.compileBody(program.Body, loc.End.Line); err != nil {
		return nil, err
	}

	result := &bytecode.Program{
		Main: &bytecode.Function{
			Name:      c.compilingFuncName,
			Chunk:     c.chunk,
			StartLine: loc.Start.Line,
			EndLine:   loc.End.Line,
			MaxRegs:   c.regAlloc.MaxRegs(),
		},
		Functions: c.shared.functions,
	}
	if err := result.Verify(); err != nil {
		return nil, err
	}
	log.Debugf("compiled program: %d instructions in main, %d functions", c.chunk.Len(), len(result.Functions))
	return result, nil
}

// compileBody binds the body's var names, compiles its statements into
// the current function-level scope, closes that scope, and appends the
// implicit return when the statement list has none.
func (c *Compiler) compileBody(body []ast.Statement, endLine int) error {
	c.hoistVars(body)
	if err := c.compileStatements(body); err != nil {
		return err
	}
	c.exitScope(endLine)
	if !hasReturn(body) {
		c.emit(bytecode.RET0, endLine)
	}
	return c.finishUnit()
}

// finishUnit reports label errors of the unit.
func (c *Compiler) finishUnit() error {
	if c.labelErr != nil {
		return c.labelErr
	}
	return c.chunk.Verify()
}

func hasReturn(body []ast.Statement) bool {
	for _, stmt := range body {
		if _, ok := stmt.(*ast.ReturnStatement); ok {
			return true
		}
	}
	return false
}

// --- Scopes ---

// enterScope pushes a block scope owned by this unit.
func (c *Compiler) enterScope() {
	c.currentSymbolTable = NewEnclosedSymbolTable(c.currentSymbolTable)
}

// exitScope pops the innermost scope and returns its binding registers to
// the pool. Registers captured by closures are pinned and stay reserved.
func (c *Compiler) exitScope(line int) {
	table := c.currentSymbolTable
	for _, symbol := range table.Symbols() {
		reg := symbol.Register
		c.bound[reg]--
		if c.bound[reg] > 0 {
			continue
		}
		delete(c.bound, reg)
		if symbol.Alias || c.regAlloc.IsPinned(reg) {
			continue
		}
		if c.shared.options.ReleaseScopes {
			c.emit(bytecode.GC, line, bytecode.R(reg))
		}
		c.regAlloc.Free(reg)
	}
	c.currentSymbolTable = table.Outer
}

// declare binds name in the innermost scope. Redeclaring a name in the same
// scope returns the existing register.
func (c *Compiler) declare(name string) Register {
	return c.declareIn(c.currentSymbolTable, name)
}

// declareVar binds name in the nearest function-level scope.
func (c *Compiler) declareVar(name string) Register {
	return c.declareIn(c.currentSymbolTable.FunctionScope(), name)
}

func (c *Compiler) declareIn(table *SymbolTable, name string) Register {
	if symbol, ok := table.Lookup(name); ok {
		return symbol.Register
	}
	reg := c.regAlloc.Alloc()
	table.Define(name, reg)
	c.bound[reg]++
	debugPrintf("declare %s -> %s in %s", name, reg, c.compilingFuncName)
	return reg
}

// declareAlias binds name to reg without transferring ownership.
func (c *Compiler) declareAlias(name string, reg Register) {
	c.currentSymbolTable.DefineAlias(name, reg)
	c.bound[reg]++
}

// isBound reports whether reg currently holds a named binding.
func (c *Compiler) isBound(reg Register) bool {
	return c.bound[reg] > 0
}

// freeTemp releases reg if it is a temporary. Binding registers are left to
// their scope.
func (c *Compiler) freeTemp(reg Register) {
	if reg == BadRegister || c.isBound(reg) || !c.regAlloc.IsLive(reg) {
		return
	}
	c.regAlloc.Free(reg)
}

// --- Labels ---

func (c *Compiler) newLabel() bytecode.Label {
	return c.chunk.NewLabel()
}

// defineLabel binds l to the current position. The first failure is kept and
// reported when the unit is finished.
func (c *Compiler) defineLabel(l bytecode.Label) {
	if err := c.chunk.DefineLabel(l); err != nil && c.labelErr == nil {
		c.labelErr = err
	}
}

// --- Loop Context Helpers ---

// pushLoopContext adds a new loop context to the stack.
func (c *Compiler) pushLoopContext(start, end bytecode.Label) {
	c.loopContextStack = append(c.loopContextStack, &LoopContext{Start: start, End: end})
}

// popLoopContext removes the current loop context from the stack.
func (c *Compiler) popLoopContext() {
	if len(c.loopContextStack) > 0 {
		c.loopContextStack = c.loopContextStack[:len(c.loopContextStack)-1]
	}
}

// currentLoopContext returns the loop context currently at the top of the stack, or nil if empty.
func (c *Compiler) currentLoopContext() *LoopContext {
	if len(c.loopContextStack) == 0 {
		return nil
	}
	return c.loopContextStack[len(c.loopContextStack)-1]
}

// --- Errors ---

// NewCompileError creates a compile error of the given kind positioned at node.
func NewCompileError(node ast.Node, kind errors.ErrorKind, format string, args ...any) *errors.CompileError {
	start := node.Location().Start
	return errors.NewCompileError(errors.Position{Line: start.Line, Column: start.Column}, kind, format, args...)
}

func lineOf(node ast.Node) int {
	return node.Location().Start.Line
}

// --- Emission ---

// emit appends one instruction to the unit's chunk.
func (c *Compiler) emit(op bytecode.OpCode, line int, operands ...bytecode.Operand) {
	if c.shared.options.CheckRegisters {
		for _, operand := range operands {
			if reg, ok := operand.Register(); ok && !c.regAlloc.IsLive(reg) {
				panic(fmt.Sprintf("compiler error: %s in %s references non-live register %s", op, c.compilingFuncName, reg))
			}
		}
	}
	c.chunk.Emit(op, line, operands...)
}
