package cir

import (
	"testing"

	"loopc/src/ast"
	"loopc/src/ir/nir"

	"github.com/stretchr/testify/require"
)

func TestClosureNoCaptureGetsTwoFormalsAndTupleOfArityOne(t *testing.T) {
	// let rec id = fun n -> n in id 5
	src := &ast.Rec{
		FunId:   "id",
		ParamId: "n",
		Body:    &ast.Var{Id: "n"},
		Cont:    &ast.App{F: &ast.Var{Id: "id"}, A: &ast.ILit{Val: 5}},
	}
	nctx := nir.NewContext()
	n := nir.Normalize(src, nctx)

	cctx := NewContext()
	e := Closure(n, cctx)

	lr, ok := e.(Letrec)
	require.True(t, ok)
	require.Len(t, lr.Formals, 2, "every lifted function has exactly two formals")
	require.Equal(t, "id", lr.Formals[0])
	require.Equal(t, "n", lr.Formals[1])

	bindClosure, ok := lr.Cont.(Let)
	require.True(t, ok)
	require.Equal(t, "id", bindClosure.Id)
	tup, ok := bindClosure.C.(Tuple)
	require.True(t, ok)
	require.Len(t, tup.Vals, 1, "a closure with no captured free variables still gets a slot-0 code pointer")
}

func TestClosureCapturesFreeVariable(t *testing.T) {
	// let rec outer = fun y -> x + y in outer 1, with x free.
	src := &ast.Rec{
		FunId:   "outer",
		ParamId: "y",
		Body:    &ast.Binop{Op: ast.Plus, A: &ast.Var{Id: "x"}, B: &ast.Var{Id: "y"}},
		Cont:    &ast.App{F: &ast.Var{Id: "outer"}, A: &ast.ILit{Val: 1}},
	}
	nctx := nir.NewContext()
	n := nir.Normalize(src, nctx)

	cctx := NewContext()
	e := Closure(n, cctx)

	lr, ok := e.(Letrec)
	require.True(t, ok)

	// Body must open with a Let projecting "x" out of slot 1 of the
	// closure, ahead of the rest of the body.
	let, ok := lr.Body.(Let)
	require.True(t, ok)
	require.Equal(t, "x", let.Id)
	proj, ok := let.C.(Proj)
	require.True(t, ok)
	require.Equal(t, 1, proj.I)
	fv, ok := proj.A.(Var)
	require.True(t, ok)
	require.Equal(t, "outer", fv.Id)

	bindClosure, ok := lr.Cont.(Let)
	require.True(t, ok)
	tup, ok := bindClosure.C.(Tuple)
	require.True(t, ok)
	require.Len(t, tup.Vals, 2, "slot 0 is the code pointer, slot 1 is the captured x")
}

func TestClosureAppThroughNamedCalleeIsIndirect(t *testing.T) {
	// let rec f = fun n -> n in let r = f 3 in r
	src := &ast.Rec{
		FunId:   "f",
		ParamId: "n",
		Body:    &ast.Var{Id: "n"},
		Cont: &ast.Let{
			Id: "r",
			A:  &ast.App{F: &ast.Var{Id: "f"}, A: &ast.ILit{Val: 3}},
			B:  &ast.Var{Id: "r"},
		},
	}
	nctx := nir.NewContext()
	n := nir.Normalize(src, nctx)

	cctx := NewContext()
	e := Closure(n, cctx)

	lr, ok := e.(Letrec)
	require.True(t, ok)
	bindClosure, ok := lr.Cont.(Let)
	require.True(t, ok)

	// Under the closure bind, the App is rewritten to read the code
	// pointer out of slot 0 before calling through it.
	readPtr, ok := bindClosure.Body.(Let)
	require.True(t, ok)
	proj, ok := readPtr.C.(Proj)
	require.True(t, ok)
	require.Equal(t, 0, proj.I)

	callLet, ok := readPtr.Body.(Let)
	require.True(t, ok)
	require.Equal(t, "r", callLet.Id)
	app, ok := callLet.C.(App)
	require.True(t, ok)
	require.Len(t, app.Args, 2, "post closure-conversion every call passes the closure plus the original argument")
}

func TestClosureDeduplicatesRepeatedFreeVariableUse(t *testing.T) {
	// let rec f = fun y -> (x + y) + x in f 1, x used twice.
	src := &ast.Rec{
		FunId:   "f",
		ParamId: "y",
		Body: &ast.Binop{
			Op: ast.Plus,
			A:  &ast.Binop{Op: ast.Plus, A: &ast.Var{Id: "x"}, B: &ast.Var{Id: "y"}},
			B:  &ast.Var{Id: "x"},
		},
		Cont: &ast.App{F: &ast.Var{Id: "f"}, A: &ast.ILit{Val: 1}},
	}
	nctx := nir.NewContext()
	n := nir.Normalize(src, nctx)

	cctx := NewContext()
	e := Closure(n, cctx)

	lr, ok := e.(Letrec)
	require.True(t, ok)
	bindClosure, ok := lr.Cont.(Let)
	require.True(t, ok)
	tup, ok := bindClosure.C.(Tuple)
	require.True(t, ok)
	require.Len(t, tup.Vals, 2, "x must occupy exactly one slot despite two uses")
}
