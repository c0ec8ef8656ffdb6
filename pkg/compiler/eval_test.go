package compiler

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"regjs/pkg/ast"
	"regjs/pkg/bytecode"
)

// A minimal interpreter for compiled programs, enough to check that the
// emitted code computes what the source says.

type undefinedValue struct{}
type nullValue struct{}

var (
	undefined = undefinedValue{}
	nullV     = nullValue{}
)

type arrayValue struct{ items []any }

type objectValue struct{ fields map[string]any }

type closureValue struct {
	fn    *bytecode.Function
	outer *frame
}

type nativeFunc func(args ...any) any

type frame struct {
	regs  []any
	args  []any
	outer *frame
}

func (f *frame) up(depth int) *frame {
	fr := f
	for i := 0; i < depth; i++ {
		fr = fr.outer
	}
	return fr
}

type machine struct {
	t       *testing.T
	prog    *bytecode.Program
	globals map[string]any
	steps   int
}

func run(t *testing.T, stmts ...ast.Statement) any {
	t.Helper()
	prog := compileWith(t, program(stmts...), func(o *Options) { o.CheckRegisters = true })
	m := &machine{t: t, prog: prog, globals: map[string]any{}}
	return m.call(prog.Main, nil, nil)
}

func (f *frame) get(o bytecode.Operand) any {
	switch o.Kind {
	case bytecode.KindReg:
		return f.regs[o.Int]
	case bytecode.KindNum:
		return o.Num
	case bytecode.KindStr:
		return o.Str
	case bytecode.KindArg:
		if o.Int < len(f.args) {
			return f.args[o.Int]
		}
		return undefined
	case bytecode.KindPrim:
		switch bytecode.Prim(o.Int) {
		case bytecode.PrimTrue:
			return true
		case bytecode.PrimFalse:
			return false
		}
		return undefined
	}
	panic(fmt.Sprintf("cannot read operand %s", o))
}

func toNumber(v any) float64 {
	switch v := v.(type) {
	case float64:
		return v
	case bool:
		if v {
			return 1
		}
		return 0
	case nullValue:
		return 0
	}
	return math.NaN()
}

func truthy(v any) bool {
	switch v := v.(type) {
	case bool:
		return v
	case float64:
		return v != 0 && !math.IsNaN(v)
	case string:
		return v != ""
	case undefinedValue, nullValue:
		return false
	}
	return true
}

func add(a, b any) any {
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok || bok {
		if !aok {
			as = fmt.Sprint(a)
		}
		if !bok {
			bs = fmt.Sprint(b)
		}
		return as + bs
	}
	return toNumber(a) + toNumber(b)
}

func (m *machine) label(chunk *bytecode.Chunk, o bytecode.Operand) int {
	l, _ := o.Label()
	pos, ok := chunk.LabelPos(l)
	require.True(m.t, ok, "undefined label %s", l)
	return pos
}

func (m *machine) call(fn *bytecode.Function, outer *frame, args []any) any {
	f := &frame{regs: make([]any, fn.MaxRegs), args: args, outer: outer}
	for i := range f.regs {
		f.regs[i] = undefined
	}
	code := fn.Chunk.Code
	for pc := 0; pc < len(code); {
		m.steps++
		require.Less(m.t, m.steps, 100000, "step limit exceeded")

		in := code[pc]
		pc++
		o := in.Operands
		switch in.Op {
		case bytecode.KNUM, bytecode.KSTR, bytecode.KPRI, bytecode.MOV:
			f.regs[o[0].Int] = f.get(o[1])
		case bytecode.KNULL:
			f.regs[o[0].Int] = nullV
		case bytecode.GGET:
			v, ok := m.globals[o[1].Str]
			if !ok {
				v = undefined
			}
			f.regs[o[0].Int] = v
		case bytecode.GSET:
			m.globals[o[0].Str] = f.get(o[1])
		case bytecode.UGET:
			f.regs[o[0].Int] = f.up(o[1].Int).regs[o[2].Int]
		case bytecode.USET:
			f.up(o[0].Int).regs[o[1].Int] = f.get(o[2])

		case bytecode.ADDNN, bytecode.ADDVN, bytecode.ADDNV, bytecode.ADDVV:
			f.regs[o[0].Int] = add(f.get(o[1]), f.get(o[2]))
		case bytecode.SUBNN, bytecode.SUBVN, bytecode.SUBNV, bytecode.SUBVV:
			f.regs[o[0].Int] = toNumber(f.get(o[1])) - toNumber(f.get(o[2]))
		case bytecode.MULNN, bytecode.MULVN, bytecode.MULNV, bytecode.MULVV:
			f.regs[o[0].Int] = toNumber(f.get(o[1])) * toNumber(f.get(o[2]))
		case bytecode.DIVNN, bytecode.DIVVN, bytecode.DIVNV, bytecode.DIVVV:
			f.regs[o[0].Int] = toNumber(f.get(o[1])) / toNumber(f.get(o[2]))
		case bytecode.MODVV:
			f.regs[o[0].Int] = math.Mod(toNumber(f.get(o[1])), toNumber(f.get(o[2])))
		case bytecode.BXOR:
			f.regs[o[0].Int] = float64(int32(toNumber(f.get(o[1]))) ^ int32(toNumber(f.get(o[2]))))

		case bytecode.UNM:
			f.regs[o[0].Int] = -toNumber(f.get(o[1]))
		case bytecode.NOT:
			f.regs[o[0].Int] = !truthy(f.get(o[1]))

		case bytecode.ISLT:
			f.regs[o[0].Int] = toNumber(f.get(o[1])) < toNumber(f.get(o[2]))
		case bytecode.ISLE:
			f.regs[o[0].Int] = toNumber(f.get(o[1])) <= toNumber(f.get(o[2]))
		case bytecode.ISGT:
			f.regs[o[0].Int] = toNumber(f.get(o[1])) > toNumber(f.get(o[2]))
		case bytecode.ISGE:
			f.regs[o[0].Int] = toNumber(f.get(o[1])) >= toNumber(f.get(o[2]))
		case bytecode.ISTEQ:
			f.regs[o[0].Int] = f.get(o[1]) == f.get(o[2])
		case bytecode.ISTNE:
			f.regs[o[0].Int] = f.get(o[1]) != f.get(o[2])

		case bytecode.JMP:
			pc = m.label(fn.Chunk, o[0])
		case bytecode.JMPF:
			if !truthy(f.get(o[0])) {
				pc = m.label(fn.Chunk, o[1])
			}
		case bytecode.JMPT:
			if truthy(f.get(o[0])) {
				pc = m.label(fn.Chunk, o[1])
			}
		case bytecode.JMPNN:
			switch f.get(o[0]).(type) {
			case undefinedValue, nullValue:
			default:
				pc = m.label(fn.Chunk, o[1])
			}

		case bytecode.ANEW:
			f.regs[o[0].Int] = &arrayValue{}
		case bytecode.ASETN:
			f.regs[o[0].Int].(*arrayValue).set(o[1].Int, f.get(o[2]))
		case bytecode.ASETV:
			f.regs[o[0].Int].(*arrayValue).set(int(toNumber(f.get(o[1]))), f.get(o[2]))
		case bytecode.AGETN:
			f.regs[o[0].Int] = f.regs[o[1].Int].(*arrayValue).get(o[2].Int)
		case bytecode.AGETV:
			f.regs[o[0].Int] = f.regs[o[1].Int].(*arrayValue).get(int(toNumber(f.get(o[2]))))
		case bytecode.ALEN:
			f.regs[o[0].Int] = float64(len(f.regs[o[1].Int].(*arrayValue).items))
		case bytecode.ONEW:
			f.regs[o[0].Int] = &objectValue{fields: map[string]any{}}
		case bytecode.OGETV:
			f.regs[o[0].Int] = m.getProperty(f.regs[o[1].Int], f.get(o[2]))
		case bytecode.OSETV:
			f.regs[o[0].Int].(*objectValue).fields[fmt.Sprint(f.get(o[1]))] = f.get(o[2])

		case bytecode.CALL:
			argc := o[2].Int
			callArgs := make([]any, argc)
			for i := 0; i < argc; i++ {
				callArgs[i] = f.get(o[3+i])
			}
			switch callee := f.get(o[1]).(type) {
			case *closureValue:
				f.regs[o[0].Int] = m.call(callee.fn, callee.outer, callArgs)
			case nativeFunc:
				f.regs[o[0].Int] = callee(callArgs...)
			default:
				m.t.Fatalf("%s: calling non-function %v", in, callee)
			}
		case bytecode.RET:
			return f.get(o[0])
		case bytecode.RET0, bytecode.HALT:
			return undefined
		case bytecode.FNEW:
			target, ok := m.prog.Lookup(bytecode.FuncID(o[1].Int))
			require.True(m.t, ok)
			f.regs[o[0].Int] = &closureValue{fn: target, outer: f}
		case bytecode.VARG:
			rest := &arrayValue{}
			if start := o[1].Int; start < len(f.args) {
				rest.items = append(rest.items, f.args[start:]...)
			}
			f.regs[o[0].Int] = rest
		case bytecode.GC, bytecode.NOP:

		default:
			m.t.Fatalf("unsupported instruction %s", in)
		}
	}
	m.t.Fatalf("%s ran past its last instruction", fn.Title())
	return nil
}

func (a *arrayValue) get(i int) any {
	if i < 0 || i >= len(a.items) {
		return undefined
	}
	return a.items[i]
}

func (a *arrayValue) set(i int, v any) {
	for len(a.items) <= i {
		a.items = append(a.items, undefined)
	}
	a.items[i] = v
}

func (m *machine) getProperty(target, key any) any {
	switch t := target.(type) {
	case *objectValue:
		if v, ok := t.fields[fmt.Sprint(key)]; ok {
			return v
		}
	case *arrayValue:
		if key == "length" {
			return float64(len(t.items))
		}
	}
	return undefined
}

// items unwraps an array result.
func items(t *testing.T, v any) []any {
	t.Helper()
	arr, ok := v.(*arrayValue)
	require.True(t, ok, "want an array, got %#v", v)
	return arr.items
}

func numbers(vs ...float64) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}

func TestDestructuringRestLaw(t *testing.T) {
	// let src = [10, 11, 12, 13, 14, 15, 16]; let [a, b, ...rest] = src; return [a, b, rest];
	result := run(t,
		letDecl("src", array(num(10), num(11), num(12), num(13), num(14), num(15), num(16))),
		declare("let", arrayPattern(ident("a"), ident("b"), restOf(ident("rest"))), ident("src")),
		ret(array(ident("a"), ident("b"), ident("rest"))),
	)
	got := items(t, result)
	require.Equal(t, 10.0, got[0])
	require.Equal(t, 11.0, got[1])
	require.Equal(t, numbers(12, 13, 14, 15, 16), items(t, got[2]))
}

func TestRunDestructuring(t *testing.T) {
	t.Run("defaults apply to undefined only", func(t *testing.T) {
		// let [x = 10, y = 20, z = 30] = [1, undefined, null];
		result := run(t,
			declare("let", arrayPattern(
				withDefault(ident("x"), num(10)),
				withDefault(ident("y"), num(20)),
				withDefault(ident("z"), num(30)),
			), array(num(1), ident("undefined"), null())),
			ret(array(ident("x"), ident("y"), ident("z"))),
		)
		require.Equal(t, []any{1.0, 20.0, nullV}, items(t, result))
	})

	t.Run("holes and nested patterns", func(t *testing.T) {
		// let [, [p, q = 7]] = [0, [5]];
		result := run(t,
			declare("let", arrayPattern(nil, arrayPattern(ident("p"), withDefault(ident("q"), num(7)))),
				array(num(0), array(num(5)))),
			ret(array(ident("p"), ident("q"))),
		)
		require.Equal(t, numbers(5, 7), items(t, result))
	})

	t.Run("object pattern", func(t *testing.T) {
		// let o = {x: 1, y: 2}; let {x, y: z, w = 3} = o;
		result := run(t,
			letDecl("o", object("x", num(1), "y", num(2))),
			declare("let", objectPattern("x", ident("x"), "y", ident("z"), "w", withDefault(ident("w"), num(3))), ident("o")),
			ret(array(ident("x"), ident("z"), ident("w"))),
		)
		require.Equal(t, numbers(1, 2, 3), items(t, result))
	})

	t.Run("swap by assignment", func(t *testing.T) {
		// let a = 1; let b = 2; [a, b] = [b, a];
		result := run(t,
			letDecl("a", num(1)),
			letDecl("b", num(2)),
			exprStmt(assign("=", arrayPattern(ident("a"), ident("b")), array(ident("b"), ident("a")))),
			ret(array(ident("a"), ident("b"))),
		)
		require.Equal(t, numbers(2, 1), items(t, result))
	})

	t.Run("pattern parameters", func(t *testing.T) {
		// function f([a, b], c = 4, ...more) { return [a, b, c, more]; } return f([1, 2], undefined, 5, 6);
		result := run(t,
			fnDecl("f", []ast.Pattern{
				arrayPattern(ident("a"), ident("b")),
				withDefault(ident("c"), num(4)),
				restOf(ident("more")),
			}, ret(array(ident("a"), ident("b"), ident("c"), ident("more")))),
			ret(call(ident("f"), array(num(1), num(2)), ident("undefined"), num(5), num(6))),
		)
		got := items(t, result)
		require.Equal(t, numbers(1, 2, 4), got[:3])
		require.Equal(t, numbers(5, 6), items(t, got[3]))
	})
}

func TestRunControlFlow(t *testing.T) {
	t.Run("for with continue", func(t *testing.T) {
		// let s = 0; for (let i = 0; i < 5; i++) { if (i === 2) continue; s += i; } return s;
		result := run(t,
			letDecl("s", num(0)),
			forStmt(letDecl("i", num(0)), binary("<", ident("i"), num(5)), update("++", false, ident("i")),
				ifStmt(binary("===", ident("i"), num(2)), &ast.ContinueStatement{}, nil),
				exprStmt(assign("+=", ident("s"), ident("i")))),
			ret(ident("s")),
		)
		require.Equal(t, 8.0, result)
	})

	t.Run("do while and break", func(t *testing.T) {
		// let i = 0; do { i++; } while (i < 3); while (true) { i = i + 10; break; } return i;
		result := run(t,
			letDecl("i", num(0)),
			&ast.DoWhileStatement{Body: block(exprStmt(update("++", false, ident("i")))), Test: binary("<", ident("i"), num(3))},
			whileStmt(boolean(true),
				exprStmt(assign("=", ident("i"), binary("+", ident("i"), num(10)))),
				&ast.BreakStatement{}),
			ret(ident("i")),
		)
		require.Equal(t, 13.0, result)
	})

	t.Run("if else", func(t *testing.T) {
		result := run(t,
			letDecl("x", num(4)),
			letDecl("out", str("")),
			ifStmt(binary(">", ident("x"), num(5)),
				exprStmt(assign("=", ident("out"), str("big"))),
				exprStmt(assign("=", ident("out"), str("small")))),
			ret(ident("out")),
		)
		require.Equal(t, "small", result)
	})

	t.Run("short circuit", func(t *testing.T) {
		// let a = null; let b = a ?? 7; let c = 0 || b; let d = c && "ok"; return [b, c, d, !d];
		result := run(t,
			letDecl("a", null()),
			letDecl("b", logical("??", ident("a"), num(7))),
			letDecl("c", logical("||", num(0), ident("b"))),
			letDecl("d", logical("&&", ident("c"), str("ok"))),
			ret(array(ident("b"), ident("c"), ident("d"), unary("!", ident("d")))),
		)
		require.Equal(t, []any{7.0, 7.0, "ok", false}, items(t, result))
	})

	t.Run("updates and conditional", func(t *testing.T) {
		// let i = 5; let a = i++; let b = ++i; return [a, b, i > 6 ? "big" : "small", ~i];
		result := run(t,
			letDecl("i", num(5)),
			letDecl("a", update("++", false, ident("i"))),
			letDecl("b", update("++", true, ident("i"))),
			ret(array(ident("a"), ident("b"), cond(binary(">", ident("i"), num(6)), str("big"), str("small")), unary("~", ident("i")))),
		)
		require.Equal(t, []any{5.0, 7.0, "big", -8.0}, items(t, result))
	})
}

func TestRunClosures(t *testing.T) {
	t.Run("counter", func(t *testing.T) {
		// let n = 0; function inc() { n = n + 1; return n; } inc(); inc(); return inc();
		result := run(t,
			letDecl("n", num(0)),
			fnDecl("inc", nil,
				exprStmt(assign("=", ident("n"), binary("+", ident("n"), num(1)))),
				ret(ident("n"))),
			exprStmt(call(ident("inc"))),
			exprStmt(call(ident("inc"))),
			ret(call(ident("inc"))),
		)
		require.Equal(t, 3.0, result)
	})

	t.Run("two levels out", func(t *testing.T) {
		// let x = 41; function outer() { function inner() { return x + 1; } return inner; } return outer()();
		result := run(t,
			letDecl("x", num(41)),
			fnDecl("outer", nil,
				fnDecl("inner", nil, ret(binary("+", ident("x"), num(1)))),
				ret(ident("inner"))),
			ret(call(call(ident("outer")))),
		)
		require.Equal(t, 42.0, result)
	})

	t.Run("recursive function expression", func(t *testing.T) {
		// let fact = function f(n) { return n <= 1 ? 1 : n * f(n - 1); }; return fact(5);
		result := run(t,
			letDecl("fact", fnExpr("f", params("n"),
				ret(cond(binary("<=", ident("n"), num(1)),
					num(1),
					binary("*", ident("n"), call(ident("f"), binary("-", ident("n"), num(1)))))))),
			ret(call(ident("fact"), num(5))),
		)
		require.Equal(t, 120.0, result)
	})

	t.Run("declaration used before it appears", func(t *testing.T) {
		// return twice(4); function twice(x) { return x * 2; }
		result := run(t,
			ret(call(ident("twice"), num(4))),
			fnDecl("twice", params("x"), ret(binary("*", ident("x"), num(2)))),
		)
		require.Equal(t, 8.0, result)
	})

	t.Run("arrow", func(t *testing.T) {
		// let k = 3; let f = (a) => a * k; return f(5);
		result := run(t,
			letDecl("k", num(3)),
			letDecl("f", arrow(params("a"), binary("*", ident("a"), ident("k")))),
			ret(call(ident("f"), num(5))),
		)
		require.Equal(t, 15.0, result)
	})
}

func TestRunMembers(t *testing.T) {
	// let o = {}; o.k = 3; o.k += 4; o.k++; let a = [1]; a[0] = o.k; return a[0];
	result := run(t,
		letDecl("o", object()),
		exprStmt(assign("=", member(ident("o"), "k"), num(3))),
		exprStmt(assign("+=", member(ident("o"), "k"), num(4))),
		exprStmt(update("++", false, member(ident("o"), "k"))),
		letDecl("a", array(num(1))),
		exprStmt(assign("=", index(ident("a"), num(0)), member(ident("o"), "k"))),
		ret(index(ident("a"), num(0))),
	)
	require.Equal(t, 8.0, result)
}

func TestRunGlobals(t *testing.T) {
	prog := compileProgram(t,
		exprStmt(call(ident("print"), str("a"), binary("+", num(1), num(2)))),
		exprStmt(assign("=", ident("console"), str("set"))),
	)
	var printed []any
	m := &machine{t: t, prog: prog, globals: map[string]any{
		"print": nativeFunc(func(args ...any) any {
			printed = append(printed, args...)
			return undefined
		}),
	}}
	m.call(prog.Main, nil, nil)
	require.Equal(t, []any{"a", 3.0}, printed)
	require.Equal(t, "set", m.globals["console"])
}

func TestRunVarHoisting(t *testing.T) {
	t.Run("var in a loop body keeps its value across iterations", func(t *testing.T) {
		// let s; for (let i = 0; i < 3; i++) { var x; if (i === 0) x = 5; s = x; } return s;
		result := run(t,
			letDecl("s", nil),
			forStmt(letDecl("i", num(0)), binary("<", ident("i"), num(3)), update("++", false, ident("i")),
				declare("var", ident("x"), nil),
				ifStmt(binary("===", ident("i"), num(0)), exprStmt(assign("=", ident("x"), num(5))), nil),
				exprStmt(assign("=", ident("s"), ident("x")))),
			ret(ident("s")),
		)
		require.Equal(t, 5.0, result)
	})

	t.Run("var in a nested block is visible before it", func(t *testing.T) {
		// x = 1; { var x; } return x;
		result := run(t,
			exprStmt(assign("=", ident("x"), num(1))),
			block(declare("var", ident("x"), nil)),
			ret(ident("x")),
		)
		require.Equal(t, 1.0, result)
	})

	t.Run("var in a for initializer and if branch", func(t *testing.T) {
		// for (var i = 0; i < 4; i++) { if (i > 1) { var last = i; } } return [i, last];
		result := run(t,
			forStmt(varDecl("i", num(0)), binary("<", ident("i"), num(4)), update("++", false, ident("i")),
				ifStmt(binary(">", ident("i"), num(1)), block(varDecl("last", ident("i"))), nil)),
			ret(array(ident("i"), ident("last"))),
		)
		require.Equal(t, []any{4.0, 3.0}, items(t, result))
	})

	t.Run("redeclared parameter keeps its argument", func(t *testing.T) {
		// function f(a) { { var a; } return a; } return f(3);
		result := run(t,
			fnDecl("f", params("a"), block(declare("var", ident("a"), nil)), ret(ident("a"))),
			ret(call(ident("f"), num(3))),
		)
		require.Equal(t, 3.0, result)
	})

	t.Run("nested function vars stay local", func(t *testing.T) {
		// var y = 1; function g() { if (true) { var y = 2; } return y; } return [g(), y];
		result := run(t,
			varDecl("y", num(1)),
			fnDecl("g", nil, ifStmt(boolean(true), block(varDecl("y", num(2))), nil), ret(ident("y"))),
			ret(array(call(ident("g")), ident("y"))),
		)
		require.Equal(t, []any{2.0, 1.0}, items(t, result))
	})
}
