package bytecode

// OpCode defines the type for bytecode instructions.
type OpCode uint8

// Enum for Opcodes (Register Machine)
//
// Format: OP <Dest> <Operand1> <Operand2> ...
// Suffixes on arithmetic opcodes name the operand shapes: N is a numeric
// literal carried in the instruction, V is a register.
const (
	// Constants and globals
	KNUM  OpCode = iota // Rx Num: Rx = number
	KSTR                // Rx Str: Rx = string
	KPRI                // Rx Prim: Rx = undefined | false | true
	KNULL               // Rx: Rx = null
	GGET                // Rx Name: Rx = globals[Name]
	GSET                // Name Ry: globals[Name] = Ry
	UGET                // Rx Depth Rk: Rx = register Rk of the enclosing unit Depth levels out
	USET                // Depth Rk Ry: enclosing unit's Rk = Ry
	MOV                 // Rx Ry|Arg: Rx = Ry

	// Arithmetic, specialized by operand shape
	ADDNN // Rx N N
	ADDVN // Rx Ry N
	ADDNV // Rx N Rz
	ADDVV // Rx Ry Rz
	SUBNN
	SUBVN
	SUBNV
	SUBVV
	MULNN
	MULVN
	MULNV
	MULVV
	DIVNN
	DIVVN
	DIVNV
	DIVVV
	MODVV // Rx Ry Rz: Rx = Ry % Rz
	POWVV // Rx Ry Rz: Rx = Ry ** Rz

	// Bitwise and shifts (Dest, Left, Right)
	BAND
	BOR
	BXOR
	SHL
	SHR
	USHR

	// Unary (Dest, Src)
	UNM    // Rx = -Ry
	NOT    // Rx = !Ry
	TYPEOF // Rx = typeof Ry

	// Comparison (Dest, Left, Right); Dest receives a boolean
	ISLT
	ISLE
	ISGT
	ISGE
	ISEQV // ==
	ISNEV // !=
	ISTEQ // ===
	ISTNE // !==
	IN
	INSTANCEOF

	// Jumps
	JMP   // Label
	JMPF  // Ry Label: jump when Ry is falsy
	JMPT  // Ry Label: jump when Ry is truthy
	JMPNN // Ry Label: jump when Ry is neither null nor undefined

	// Arrays and objects
	ANEW  // Rx: Rx = []
	ASETN // Ra Int Ry: Ra[Int] = Ry
	ASETV // Ra Ri Ry: Ra[Ri] = Ry
	AGETN // Rx Ra Int: Rx = Ra[Int]
	AGETV // Rx Ra Ri: Rx = Ra[Ri]
	ALEN  // Rx Ra: Rx = Ra.length
	ONEW  // Rx: Rx = {}
	OGETV // Rx Ro Rk: Rx = Ro[Rk]
	OSETV // Ro Rk Ry: Ro[Rk] = Ry

	// Functions
	CALL  // Rx Rf Int(argc) Ra...: Rx = Rf(Ra...)
	RET   // Ry: return Ry
	RET0  // return undefined
	FNEW  // Rx Func: Rx = closure over function Func
	VARG  // Rx Int: Rx = array of incoming arguments from index Int on
	AWAIT // Rx Ry: Rx = await Ry

	// Directives (zero operands, except GC)
	GC   // Ry: binding in Ry went out of scope
	HALT // terminate the program
	NOP
	BRK // debugger breakpoint

	opCount // sentinel, keep last
)

var opNames = [...]string{
	KNUM: "KNUM", KSTR: "KSTR", KPRI: "KPRI", KNULL: "KNULL",
	GGET: "GGET", GSET: "GSET", UGET: "UGET", USET: "USET", MOV: "MOV",
	ADDNN: "ADDNN", ADDVN: "ADDVN", ADDNV: "ADDNV", ADDVV: "ADDVV",
	SUBNN: "SUBNN", SUBVN: "SUBVN", SUBNV: "SUBNV", SUBVV: "SUBVV",
	MULNN: "MULNN", MULVN: "MULVN", MULNV: "MULNV", MULVV: "MULVV",
	DIVNN: "DIVNN", DIVVN: "DIVVN", DIVNV: "DIVNV", DIVVV: "DIVVV",
	MODVV: "MODVV", POWVV: "POWVV",
	BAND: "BAND", BOR: "BOR", BXOR: "BXOR", SHL: "SHL", SHR: "SHR", USHR: "USHR",
	UNM: "UNM", NOT: "NOT", TYPEOF: "TYPEOF",
	ISLT: "ISLT", ISLE: "ISLE", ISGT: "ISGT", ISGE: "ISGE",
	ISEQV: "ISEQV", ISNEV: "ISNEV", ISTEQ: "ISTEQ", ISTNE: "ISTNE",
	IN: "IN", INSTANCEOF: "INSTANCEOF",
	JMP: "JMP", JMPF: "JMPF", JMPT: "JMPT", JMPNN: "JMPNN",
	ANEW: "ANEW", ASETN: "ASETN", ASETV: "ASETV", AGETN: "AGETN", AGETV: "AGETV", ALEN: "ALEN",
	ONEW: "ONEW", OGETV: "OGETV", OSETV: "OSETV",
	CALL: "CALL", RET: "RET", RET0: "RET0", FNEW: "FNEW", VARG: "VARG", AWAIT: "AWAIT",
	GC: "GC", HALT: "HALT", NOP: "NOP", BRK: "BRK",
}

// String returns the mnemonic for the OpCode.
func (op OpCode) String() string {
	if op < opCount {
		return opNames[op]
	}
	return "UNKNOWN"
}

// LookupOpCode returns the opcode with the given mnemonic.
func LookupOpCode(name string) (OpCode, bool) {
	for i, n := range opNames {
		if n == name {
			return OpCode(i), true
		}
	}
	return 0, false
}

// IsDirective reports whether op is a zero-operand directive that an
// intrinsic name may be bound to.
func (op OpCode) IsDirective() bool {
	switch op {
	case HALT, NOP, BRK:
		return true
	}
	return false
}

// IsJump reports whether op carries a label operand.
func (op OpCode) IsJump() bool {
	switch op {
	case JMP, JMPF, JMPT, JMPNN:
		return true
	}
	return false
}

// Arithmetic families specialized by operand shape, indexed by
// [family][shape] where shape is NN, VN, NV, VV.
var arithFamilies = map[string][4]OpCode{
	"+": {ADDNN, ADDVN, ADDNV, ADDVV},
	"-": {SUBNN, SUBVN, SUBNV, SUBVV},
	"*": {MULNN, MULVN, MULNV, MULVV},
	"/": {DIVNN, DIVVN, DIVNV, DIVVV},
}

// Shape names the static shape of a binary operation's operands.
type Shape uint8

const (
	ShapeNN Shape = iota
	ShapeVN
	ShapeNV
	ShapeVV
)

// ArithOp returns the specialized opcode for an arithmetic operator token
// and operand shape. ok is false for operators without a specialized family.
func ArithOp(operator string, shape Shape) (OpCode, bool) {
	family, ok := arithFamilies[operator]
	if !ok {
		return 0, false
	}
	return family[shape], true
}

// binaryOps maps operator tokens with a single dedicated opcode.
var binaryOps = map[string]OpCode{
	"%":          MODVV,
	"**":         POWVV,
	"&":          BAND,
	"|":          BOR,
	"^":          BXOR,
	"<<":         SHL,
	">>":         SHR,
	">>>":        USHR,
	"<":          ISLT,
	"<=":         ISLE,
	">":          ISGT,
	">=":         ISGE,
	"==":         ISEQV,
	"!=":         ISNEV,
	"===":        ISTEQ,
	"!==":        ISTNE,
	"in":         IN,
	"instanceof": INSTANCEOF,
}

// BinaryOp returns the dedicated three-operand opcode for an operator token.
func BinaryOp(operator string) (OpCode, bool) {
	op, ok := binaryOps[operator]
	return op, ok
}
