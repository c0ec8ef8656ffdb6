package bytecode

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Register is a virtual register inside one compilation unit.
type Register int

func (r Register) String() string { return fmt.Sprintf("R%d", r) }

// Label is a symbolic jump target inside one compilation unit.
type Label int

func (l Label) String() string { return fmt.Sprintf("L%d", l) }

// FuncID identifies a compiled function across the whole program.
type FuncID int

func (f FuncID) String() string { return fmt.Sprintf("F%d", f) }

// Prim is the payload of KPRI.
type Prim uint8

const (
	PrimUndefined Prim = iota
	PrimFalse
	PrimTrue
)

func (p Prim) String() string {
	switch p {
	case PrimFalse:
		return "false"
	case PrimTrue:
		return "true"
	default:
		return "undefined"
	}
}

// OperandKind discriminates Operand.
type OperandKind uint8

const (
	KindReg   OperandKind = iota // register
	KindNum                      // number literal
	KindStr                      // string literal
	KindInt                      // immediate index or count
	KindPrim                     // undefined / false / true
	KindLabel                    // label reference
	KindArg                      // incoming argument pseudo-operand
	KindFunc                     // function table reference
	KindName                     // global name
)

// Operand is one instruction operand. Only the field selected by Kind is
// meaningful.
type Operand struct {
	Kind OperandKind `cbor:"1,keyasint"`
	Int  int         `cbor:"2,keyasint,omitempty"` // Reg, Int, Prim, Label, Arg, Func
	Num  float64     `cbor:"3,keyasint,omitempty"`
	Str  string      `cbor:"4,keyasint,omitempty"` // Str, Name
}

// R makes a register operand.
func R(r Register) Operand { return Operand{Kind: KindReg, Int: int(r)} }

// N makes a number literal operand.
func N(v float64) Operand { return Operand{Kind: KindNum, Num: v} }

// S makes a string literal operand.
func S(v string) Operand { return Operand{Kind: KindStr, Str: v} }

// I makes an immediate integer operand.
func I(v int) Operand { return Operand{Kind: KindInt, Int: v} }

// P makes a primitive operand.
func P(v Prim) Operand { return Operand{Kind: KindPrim, Int: int(v)} }

// L makes a label reference operand.
func L(l Label) Operand { return Operand{Kind: KindLabel, Int: int(l)} }

// A makes an incoming-argument operand.
func A(index int) Operand { return Operand{Kind: KindArg, Int: index} }

// F makes a function reference operand.
func F(id FuncID) Operand { return Operand{Kind: KindFunc, Int: int(id)} }

// G makes a global-name operand.
func G(name string) Operand { return Operand{Kind: KindName, Str: name} }

// Register returns the register of a KindReg operand.
func (o Operand) Register() (Register, bool) {
	return Register(o.Int), o.Kind == KindReg
}

// Label returns the label of a KindLabel operand.
func (o Operand) Label() (Label, bool) {
	return Label(o.Int), o.Kind == KindLabel
}

func (o Operand) String() string {
	switch o.Kind {
	case KindReg:
		return Register(o.Int).String()
	case KindNum:
		return formatNumber(o.Num)
	case KindStr:
		return strconv.Quote(o.Str)
	case KindInt:
		return strconv.Itoa(o.Int)
	case KindPrim:
		return Prim(o.Int).String()
	case KindLabel:
		return Label(o.Int).String()
	case KindArg:
		return fmt.Sprintf("A%d", o.Int)
	case KindFunc:
		return FuncID(o.Int).String()
	case KindName:
		return o.Str
	default:
		return "?"
	}
}

func formatNumber(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Instruction is one emitted opcode with its operands.
type Instruction struct {
	Op       OpCode    `cbor:"1,keyasint"`
	Operands []Operand `cbor:"2,keyasint,omitempty"`
	Line     int       `cbor:"3,keyasint,omitempty"`
}

func (in Instruction) String() string {
	if len(in.Operands) == 0 {
		return in.Op.String()
	}
	parts := make([]string, len(in.Operands))
	for i, o := range in.Operands {
		parts[i] = o.String()
	}
	return in.Op.String() + " " + strings.Join(parts, ", ")
}
