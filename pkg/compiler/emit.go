package compiler

import (
	"math"

	"regjs/pkg/bytecode"
)

// --- Emission Helpers ---

func (c *Compiler) emitMove(dest, src Register, line int) {
	c.emit(bytecode.MOV, line, bytecode.R(dest), bytecode.R(src))
}

func (c *Compiler) emitLoadNumber(dest Register, value float64, line int) {
	c.emit(bytecode.KNUM, line, bytecode.R(dest), bytecode.N(value))
}

func (c *Compiler) emitLoadString(dest Register, value string, line int) {
	c.emit(bytecode.KSTR, line, bytecode.R(dest), bytecode.S(value))
}

func (c *Compiler) emitLoadPrim(dest Register, value bytecode.Prim, line int) {
	c.emit(bytecode.KPRI, line, bytecode.R(dest), bytecode.P(value))
}

func (c *Compiler) emitLoadUndefined(dest Register, line int) {
	c.emitLoadPrim(dest, bytecode.PrimUndefined, line)
}

func (c *Compiler) emitLoadBool(dest Register, value bool, line int) {
	if value {
		c.emitLoadPrim(dest, bytecode.PrimTrue, line)
	} else {
		c.emitLoadPrim(dest, bytecode.PrimFalse, line)
	}
}

func (c *Compiler) emitLoadNull(dest Register, line int) {
	c.emit(bytecode.KNULL, line, bytecode.R(dest))
}

// emitLoadConstant loads one of the names that evaluate to a fixed value
// when not shadowed. It reports false for any other name.
func (c *Compiler) emitLoadConstant(dest Register, name string, line int) bool {
	switch name {
	case "undefined":
		c.emitLoadUndefined(dest, line)
	case "NaN":
		c.emitLoadNumber(dest, math.NaN(), line)
	case "Infinity":
		c.emitLoadNumber(dest, math.Inf(1), line)
	default:
		return false
	}
	return true
}

func isConstantName(name string) bool {
	switch name {
	case "undefined", "NaN", "Infinity":
		return true
	}
	return false
}

func (c *Compiler) emitJump(target bytecode.Label, line int) {
	c.emit(bytecode.JMP, line, bytecode.L(target))
}

// emitJumpIfFalse jumps to target when cond is falsy.
func (c *Compiler) emitJumpIfFalse(cond Register, target bytecode.Label, line int) {
	c.emit(bytecode.JMPF, line, bytecode.R(cond), bytecode.L(target))
}

// emitJumpIfTrue jumps to target when cond is truthy.
func (c *Compiler) emitJumpIfTrue(cond Register, target bytecode.Label, line int) {
	c.emit(bytecode.JMPT, line, bytecode.R(cond), bytecode.L(target))
}

// emitJumpIfNotNullish jumps to target when cond is neither null nor undefined.
func (c *Compiler) emitJumpIfNotNullish(cond Register, target bytecode.Label, line int) {
	c.emit(bytecode.JMPNN, line, bytecode.R(cond), bytecode.L(target))
}

// emitIncrement adds delta (±1) to src into dest.
func (c *Compiler) emitIncrement(dest, src Register, delta float64, line int) {
	op := bytecode.ADDVN
	if delta < 0 {
		op = bytecode.SUBVN
		delta = -delta
	}
	c.emit(op, line, bytecode.R(dest), bytecode.R(src), bytecode.N(delta))
}

// arithOperand is a lowered operand of an arithmetic operator: either a
// number literal carried in the instruction or a register.
type arithOperand struct {
	isNum bool
	num   float64
	reg   Register
}

func numOperand(v float64) arithOperand  { return arithOperand{isNum: true, num: v} }
func regOperand(r Register) arithOperand { return arithOperand{reg: r} }

func (o arithOperand) operand() bytecode.Operand {
	if o.isNum {
		return bytecode.N(o.num)
	}
	return bytecode.R(o.reg)
}

// freeArith releases the operand's register if it is a temporary.
func (c *Compiler) freeArith(o arithOperand) {
	if !o.isNum {
		c.freeTemp(o.reg)
	}
}

// emitBinaryOp emits `dest = left <operator> right`. Operators with a
// specialized family pick the opcode from the operand shape; every other
// operator requires register operands. It reports false for tokens with no
// opcode.
func (c *Compiler) emitBinaryOp(operator string, dest Register, left, right arithOperand, line int) bool {
	shape := bytecode.ShapeVV
	switch {
	case left.isNum && right.isNum:
		shape = bytecode.ShapeNN
	case right.isNum:
		shape = bytecode.ShapeVN
	case left.isNum:
		shape = bytecode.ShapeNV
	}
	if op, ok := bytecode.ArithOp(operator, shape); ok {
		c.emit(op, line, bytecode.R(dest), left.operand(), right.operand())
		return true
	}
	op, ok := bytecode.BinaryOp(operator)
	if !ok || left.isNum || right.isNum {
		return false
	}
	c.emit(op, line, bytecode.R(dest), bytecode.R(left.reg), bytecode.R(right.reg))
	return true
}
