package nir

import (
	"testing"

	"loopc/src/ast"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectLets walks a normalized Exp and returns every bound id in the
// order Let/Loop/Letrec bindings appear, confirming left-to-right
// evaluation order is preserved (spec's atomicity + ordering invariants).
func collectLets(e Exp) []string {
	var ids []string
	var walk func(Exp)
	walk = func(e Exp) {
		switch t := e.(type) {
		case Let:
			ids = append(ids, t.Id)
			walk(t.Body)
		case Loop:
			ids = append(ids, t.Id)
			walk(t.Body)
		case Letrec:
			ids = append(ids, t.FunId)
			walk(t.Body)
			walk(t.Cont)
		}
	}
	walk(e)
	return ids
}

// assertAtomic fails the test if any Cexp built into e carries a non-atomic
// operand -- the core "normalization atomicity" invariant.
func assertAtomic(t *testing.T, e Exp) {
	t.Helper()
	var walkCexp func(Cexp)
	var walkExp func(Exp)
	isAtomic := func(v Value) bool {
		switch v.(type) {
		case Var, Intv:
			return true
		default:
			return false
		}
	}
	walkCexp = func(c Cexp) {
		switch t := c.(type) {
		case Binop:
			assert.True(t.A != nil && isAtomic(t.A), "binop lhs must be atomic")
		case App:
			assert.True(t.F != nil && isAtomic(t.F), "app callee must be atomic")
		case Tuple:
			assert.True(isAtomic(t.A) && isAtomic(t.B), "tuple fields must be atomic")
		case Proj:
			assert.True(isAtomic(t.A), "proj operand must be atomic")
		case If:
			walkExp(t.Then)
			walkExp(t.Else)
		}
	}
	walkExp = func(e Exp) {
		switch t := e.(type) {
		case Compexp:
			walkCexp(t.C)
		case Let:
			walkCexp(t.C)
			walkExp(t.Body)
		case Loop:
			walkCexp(t.C)
			walkExp(t.Body)
		case Letrec:
			walkExp(t.Body)
			walkExp(t.Cont)
		}
	}
	walkExp(e)
}

func TestNormalizeLiteral(t *testing.T) {
	ctx := NewContext()
	e := Normalize(&ast.ILit{Val: 7}, ctx)
	require.Equal(t, "7", String(e))
}

func TestNormalizeNestedBinop(t *testing.T) {
	// 1 + 2 * 3
	src := &ast.Binop{
		Op: ast.Plus,
		A:  &ast.ILit{Val: 1},
		B: &ast.Binop{
			Op: ast.Mult,
			A:  &ast.ILit{Val: 2},
			B:  &ast.ILit{Val: 3},
		},
	}
	ctx := NewContext()
	e := Normalize(src, ctx)
	assertAtomic(t, e)
	// The nested Mult must be named before the outer Plus can use it.
	ids := collectLets(e)
	require.Len(t, ids, 1)
	require.Contains(t, String(e), "1+@v0")
}

func TestNormalizeLetAtomicRHS(t *testing.T) {
	src := &ast.Let{Id: "x", A: &ast.ILit{Val: 10}, B: &ast.Binop{Op: ast.Plus, A: &ast.Var{Id: "x"}, B: &ast.Var{Id: "x"}}}
	ctx := NewContext()
	e := Normalize(src, ctx)
	let, ok := e.(Let)
	require.True(t, ok)
	require.Equal(t, "x", let.Id)
	_, isVal := let.C.(Val)
	require.True(t, isVal, "atomic let-rhs must not introduce extra bindings")
}

func TestNormalizeIfClosesBranchesUnderIdentity(t *testing.T) {
	src := &ast.If{
		Cond: &ast.Binop{Op: ast.Lt, A: &ast.ILit{Val: 1}, B: &ast.ILit{Val: 2}},
		Then: &ast.ILit{Val: 42},
		Else: &ast.ILit{Val: 0},
	}
	ctx := NewContext()
	e := Normalize(src, ctx)
	assertAtomic(t, e)
	outer, ok := e.(Let)
	require.True(t, ok, "If condition must be named before the If itself")
	inner, ok := outer.Body.(Compexp)
	require.True(t, ok)
	ifc, ok := inner.C.(If)
	require.True(t, ok)
	_, thenIsCompexp := ifc.Then.(Compexp)
	_, elseIsCompexp := ifc.Else.(Compexp)
	require.True(t, thenIsCompexp)
	require.True(t, elseIsCompexp)
}

func TestNormalizeFunDesugarsToLetrec(t *testing.T) {
	src := &ast.Fun{Param: "n", Body: &ast.Var{Id: "n"}}
	ctx := NewContext()
	e := Normalize(src, ctx)
	_, ok := e.(Letrec)
	require.True(t, ok, "anonymous Fun must desugar into a named Letrec")
}

func TestNormalizeRecurNonAtomic(t *testing.T) {
	src := &ast.Loop{
		Id:   "x",
		Init: &ast.ILit{Val: 0},
		Body: &ast.Recur{A: &ast.Binop{Op: ast.Plus, A: &ast.Var{Id: "x"}, B: &ast.ILit{Val: 1}}},
	}
	ctx := NewContext()
	e := Normalize(src, ctx)
	assertAtomic(t, e)
	loop, ok := e.(Loop)
	require.True(t, ok)
	let, ok := loop.Body.(Let)
	require.True(t, ok, "non-atomic recur argument must be let-bound first")
	_, isRecur := let.Body.(Recur)
	require.True(t, isRecur)
}
