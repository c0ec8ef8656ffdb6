package bytecode

import (
	"fmt"
	"strings"

	"regjs/pkg/errors"
)

// Function is a compiled function body: an independent sub-program with
// its own register and label namespace.
type Function struct {
	ID         FuncID `cbor:"1,keyasint"`
	Name       string `cbor:"2,keyasint,omitempty"`
	ParamCount int    `cbor:"3,keyasint"`
	Chunk      *Chunk `cbor:"4,keyasint"`
	StartLine  int    `cbor:"5,keyasint,omitempty"`
	EndLine    int    `cbor:"6,keyasint,omitempty"`
	MaxRegs    int    `cbor:"7,keyasint"` // register slots the unit needs
	Async      bool   `cbor:"8,keyasint,omitempty"`
}

// Title is the header used when rendering the function.
func (f *Function) Title() string {
	name := f.Name
	if name == "" {
		name = "<anonymous>"
	}
	return fmt.Sprintf("%s %s (params %d, regs %d, lines %d-%d)", f.ID, name, f.ParamCount, f.MaxRegs, f.StartLine, f.EndLine)
}

// Program is the compiler's output: the top-level unit plus the function
// table. Functions are ordered by ID, which is the order in which their
// compilation started.
type Program struct {
	Main      *Function   `cbor:"1,keyasint"`
	Functions []*Function `cbor:"2,keyasint,omitempty"`
}

// Lookup returns the function with the given identity.
func (p *Program) Lookup(id FuncID) (*Function, bool) {
	i := int(id) - 1
	if i >= 0 && i < len(p.Functions) && p.Functions[i].ID == id {
		return p.Functions[i], true
	}
	for _, f := range p.Functions {
		if f.ID == id {
			return f, true
		}
	}
	return nil, false
}

// Verify checks every unit's labels and that every FNEW refers to a
// function present in the table. Failures are CompileErrors; a label
// failure is wrapped in one naming the unit.
func (p *Program) Verify() error {
	units := append([]*Function{p.Main}, p.Functions...)
	for _, f := range units {
		if err := f.Chunk.Verify(); err != nil {
			return errors.NewCompileError(errors.Position{}, errors.UnresolvedLabel, "in %s", f.ID).CausedBy(err)
		}
		for i, in := range f.Chunk.Code {
			if in.Op != FNEW {
				continue
			}
			pos := errors.Position{Line: in.Line}
			if len(in.Operands) < 2 || in.Operands[1].Kind != KindFunc {
				return errors.NewCompileError(pos, errors.UnresolvedFunction,
					"%s: instruction %d (FNEW) has no function operand", f.ID, i)
			}
			id := FuncID(in.Operands[1].Int)
			if _, ok := p.Lookup(id); !ok {
				return errors.NewCompileError(pos, errors.UnresolvedFunction,
					"%s: FNEW references unknown function %s", f.ID, id)
			}
		}
	}
	return nil
}

// String renders the whole program for diagnostics. The format is not
// stable.
func (p *Program) String() string {
	var builder strings.Builder
	builder.WriteString(p.Main.Chunk.Disassemble("main"))
	for _, f := range p.Functions {
		builder.WriteByte('\n')
		builder.WriteString(f.Chunk.Disassemble(f.Title()))
	}
	return builder.String()
}
