package fir

import (
	"testing"

	"loopc/src/ast"
	"loopc/src/ir/cir"
	"loopc/src/ir/nir"

	"github.com/stretchr/testify/require"
)

func compile(src ast.Exp) Program {
	n := nir.Normalize(src, nir.NewContext())
	c := cir.Closure(n, cir.NewContext())
	return Flatten(c, NewContext())
}

func TestFlattenPullsLetrecIntoOwnDecl(t *testing.T) {
	// let rec id = fun n -> n in id 5
	src := &ast.Rec{
		FunId:   "id",
		ParamId: "n",
		Body:    &ast.Var{Id: "n"},
		Cont:    &ast.App{F: &ast.Var{Id: "id"}, A: &ast.ILit{Val: 5}},
	}
	prog := compile(src)
	require.Len(t, prog.Decls, 2, "one lifted decl plus _toplevel")
	require.Equal(t, "_toplevel", prog.Decls[len(prog.Decls)-1].Id)
	require.Empty(t, prog.Decls[len(prog.Decls)-1].Args)

	lifted := prog.Decls[0]
	require.Len(t, lifted.Args, 2)
}

func TestFlattenClosureSlotZeroIsFun(t *testing.T) {
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
	prog := compile(src)
	top := prog.Decls[len(prog.Decls)-1]

	// The toplevel body starts with binding f's closure tuple: let f =
	// (<fun label>) in ...
	let, ok := top.Body.(Let)
	require.True(t, ok)
	require.Equal(t, "f", let.Id)
	tup, ok := let.C.(Tuple)
	require.True(t, ok)
	require.Len(t, tup.Vals, 1)
	_, isFun := tup.Vals[0].(Fun)
	require.True(t, isFun, "slot 0 of a closure tuple must resolve to a Fun value")
}

func TestFlattenRecurResolvesLoopVariable(t *testing.T) {
	src := &ast.Loop{
		Id:   "x",
		Init: &ast.ILit{Val: 0},
		Body: &ast.Recur{A: &ast.Var{Id: "x"}},
	}
	prog := compile(src)
	top := prog.Decls[len(prog.Decls)-1]
	loop, ok := top.Body.(Loop)
	require.True(t, ok)
	recur, ok := loop.Body.(Recur)
	require.True(t, ok)
	v, ok := recur.V.(Var)
	require.True(t, ok)
	require.Equal(t, "x", v.Id)
}
