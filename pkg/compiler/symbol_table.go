package compiler

// Symbol represents a binding of a name to a register.
type Symbol struct {
	Name     string
	Register Register // The register holding the binding in its owning unit
	// Alias symbols borrow a register someone else owns (a named function
	// expression's own name). Popping the scope does not free it.
	Alias bool
}

// SymbolTable manages symbols for a single scope. Tables are chained
// innermost-first through Outer, so the chain is the scope stack.
type SymbolTable struct {
	Outer *SymbolTable
	store map[string]Symbol
	order []string // declaration order, for deterministic release

	// Depth is the nesting depth of the compilation unit that owns this
	// scope: 0 for the program, 1 for a function declared in it, and so on.
	Depth int
	// FunctionLevel marks program and function body scopes, where `var`
	// declarations land.
	FunctionLevel bool
	// regAlloc is the owning unit's allocator, used to pin captured bindings.
	regAlloc *RegisterAllocator
}

// NewSymbolTable creates a new, top-level symbol table (program scope).
func NewSymbolTable(regAlloc *RegisterAllocator) *SymbolTable {
	return &SymbolTable{
		store:         make(map[string]Symbol),
		FunctionLevel: true,
		regAlloc:      regAlloc,
	}
}

// NewEnclosedSymbolTable creates a block scope enclosed by outer, owned by
// the same unit.
func NewEnclosedSymbolTable(outer *SymbolTable) *SymbolTable {
	return &SymbolTable{
		Outer:    outer,
		store:    make(map[string]Symbol),
		Depth:    outer.Depth,
		regAlloc: outer.regAlloc,
	}
}

// NewFunctionSymbolTable creates the body scope of a nested unit. Its
// bindings live in regAlloc, the nested unit's allocator.
func NewFunctionSymbolTable(outer *SymbolTable, regAlloc *RegisterAllocator) *SymbolTable {
	return &SymbolTable{
		Outer:         outer,
		store:         make(map[string]Symbol),
		Depth:         outer.Depth + 1,
		FunctionLevel: true,
		regAlloc:      regAlloc,
	}
}

// Define adds a new symbol to the *current* scope's table.
// It does not check outer scopes. Assumes the symbol is being defined in this scope.
func (st *SymbolTable) Define(name string, reg Register) Symbol {
	symbol := Symbol{Name: name, Register: reg}
	if _, exists := st.store[name]; !exists {
		st.order = append(st.order, name)
	}
	st.store[name] = symbol
	return symbol
}

// DefineAlias binds name to a register the scope does not own.
func (st *SymbolTable) DefineAlias(name string, reg Register) Symbol {
	symbol := st.Define(name, reg)
	symbol.Alias = true
	st.store[name] = symbol
	return symbol
}

// Lookup finds name in this scope only.
func (st *SymbolTable) Lookup(name string) (Symbol, bool) {
	symbol, ok := st.store[name]
	return symbol, ok
}

// Resolve looks up a symbol name starting from the current scope and traversing
// up through outer scopes until found.
// It returns the found symbol, the table it was found in, and a boolean indicating success.
func (st *SymbolTable) Resolve(name string) (Symbol, *SymbolTable, bool) {
	for table := st; table != nil; table = table.Outer {
		if symbol, ok := table.store[name]; ok {
			return symbol, table, true
		}
	}
	return Symbol{}, nil, false
}

// FunctionScope returns the nearest enclosing function-level table.
func (st *SymbolTable) FunctionScope() *SymbolTable {
	table := st
	for !table.FunctionLevel && table.Outer != nil {
		table = table.Outer
	}
	return table
}

// Capture pins the register of a symbol defined in this table so that it
// stays reserved for closures reading it through UGET/USET.
func (st *SymbolTable) Capture(symbol Symbol) {
	st.regAlloc.Pin(symbol.Register)
}

// Symbols returns the table's symbols in declaration order.
func (st *SymbolTable) Symbols() []Symbol {
	symbols := make([]Symbol, 0, len(st.order))
	for _, name := range st.order {
		symbols = append(symbols, st.store[name])
	}
	return symbols
}
