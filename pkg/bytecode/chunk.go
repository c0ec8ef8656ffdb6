package bytecode

import (
	"fmt"
	"sort"
	"strings"

	"regjs/pkg/errors"
)

// Chunk is the append-only instruction buffer of one compilation unit,
// together with the unit's label table.
type Chunk struct {
	Code []Instruction `cbor:"1,keyasint"`
	// Labels maps each defined label to the index of the instruction it
	// precedes. A label defined after the last instruction maps to len(Code).
	Labels map[Label]int `cbor:"2,keyasint,omitempty"`

	nextLabel Label
}

// NewChunk creates a new, empty Chunk.
func NewChunk() *Chunk {
	return &Chunk{
		Code:   make([]Instruction, 0, 32),
		Labels: make(map[Label]int),
	}
}

// Emit appends an instruction and returns its index.
func (c *Chunk) Emit(op OpCode, line int, operands ...Operand) int {
	c.Code = append(c.Code, Instruction{Op: op, Operands: operands, Line: line})
	return len(c.Code) - 1
}

// Len returns the number of instructions emitted so far.
func (c *Chunk) Len() int { return len(c.Code) }

// NewLabel reserves a fresh label. Labels are numbered from 1 per chunk.
func (c *Chunk) NewLabel() Label {
	c.nextLabel++
	return c.nextLabel
}

// DefineLabel binds l to the current end of the instruction stream.
func (c *Chunk) DefineLabel(l Label) error {
	if pos, ok := c.Labels[l]; ok {
		return errors.NewCompileError(errors.Position{}, errors.DuplicateLabel,
			"label %s already defined at instruction %d", l, pos)
	}
	if l <= 0 || l > c.nextLabel {
		return errors.NewCompileError(errors.Position{}, errors.UnresolvedLabel,
			"label %s was never allocated", l)
	}
	c.Labels[l] = len(c.Code)
	return nil
}

// LabelPos returns the instruction index l is bound to.
func (c *Chunk) LabelPos(l Label) (int, bool) {
	pos, ok := c.Labels[l]
	return pos, ok
}

// restoreNextLabel sets the label counter past every label the chunk binds
// or references, so a decoded chunk can keep allocating labels.
func (c *Chunk) restoreNextLabel() {
	c.nextLabel = 0
	for l := range c.Labels {
		if l > c.nextLabel {
			c.nextLabel = l
		}
	}
	for _, in := range c.Code {
		for _, o := range in.Operands {
			if l, ok := o.Label(); ok && l > c.nextLabel {
				c.nextLabel = l
			}
		}
	}
}

// Verify checks that every label referenced by a jump is defined.
func (c *Chunk) Verify() error {
	for i, in := range c.Code {
		for _, o := range in.Operands {
			l, ok := o.Label()
			if !ok {
				continue
			}
			if _, defined := c.Labels[l]; !defined {
				return errors.NewCompileError(errors.Position{Line: in.Line}, errors.UnresolvedLabel,
					"instruction %d (%s) references undefined label %s", i, in.Op, l)
			}
		}
	}
	return nil
}

// labelsAt returns the labels bound to each position, sorted.
func (c *Chunk) labelsAt() map[int][]Label {
	at := make(map[int][]Label, len(c.Labels))
	for l, pos := range c.Labels {
		at[pos] = append(at[pos], l)
	}
	for _, ls := range at {
		sort.Slice(ls, func(i, j int) bool { return ls[i] < ls[j] })
	}
	return at
}

// Lines renders the chunk one instruction per line, with label
// definitions on their own lines before the instruction they precede.
func (c *Chunk) Lines() []string {
	at := c.labelsAt()
	out := make([]string, 0, len(c.Code)+len(c.Labels))
	for i := 0; i <= len(c.Code); i++ {
		for _, l := range at[i] {
			out = append(out, l.String()+":")
		}
		if i < len(c.Code) {
			out = append(out, fmt.Sprintf("%4d - %s", i, c.Code[i]))
		}
	}
	return out
}

// Disassemble returns a human-readable string representation of the chunk.
func (c *Chunk) Disassemble(name string) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("== %s ==\n", name))
	for _, line := range c.Lines() {
		builder.WriteString(line)
		builder.WriteByte('\n')
	}
	return builder.String()
}
