package fir

import (
	"loopc/src/ir/cir"
	"loopc/src/util"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// env is a scoped chain of name -> Value bindings, mirroring the nested
// function scopes flatten descends through. A fresh scope is pushed for
// every Let/Loop right-hand side and every Recdecl body, and popped again
// once that scope's bindings are out of reach.
type env struct {
	vals map[string]Value
	prev *env
}

func newEnv() *env {
	return &env{vals: map[string]Value{}}
}

func (e *env) push() *env {
	return &env{vals: map[string]Value{}, prev: e}
}

func (e *env) find(v cir.Value) Value {
	iv, ok := v.(cir.Intv)
	if ok {
		return Intv{Val: iv.Val}
	}
	name := v.(cir.Var).Id
	for cur := e; cur != nil; cur = cur.prev {
		if val, ok := cur.vals[name]; ok {
			return val
		}
	}
	panic(util.NewStageInvariant("flatten", nil, "variable %q not found in scope", name))
}

// addVar binds name as an ordinary stack-resident variable.
func (e *env) addVar(name string) {
	e.vals[name] = Var{Id: name}
}

// addFun binds name as a reference to a lifted declaration's label.
func (e *env) addFun(name string) {
	e.vals[name] = Fun{Id: name}
}

// Context accumulates the Recdecls flatten peels off of every Letrec it
// encounters, in the order they're encountered.
type Context struct {
	decls []Recdecl
}

// NewContext returns an empty accumulating Context.
func NewContext() *Context {
	return &Context{}
}

// ---------------------
// ----- Functions -----
// ---------------------

func findValues(e *env, vs []cir.Value) []Value {
	out := make([]Value, len(vs))
	for i, v := range vs {
		out[i] = e.find(v)
	}
	return out
}

// cce2fce resolves every Value a Cexp carries, without touching If --
// If's two arms are full Exp trees and are handled by the caller.
func cce2fce(c cir.Cexp, e *env) Cexp {
	switch t := c.(type) {
	case cir.Val:
		return Val{V: e.find(t.V)}
	case cir.Binop:
		return Binop{Op: t.Op, A: e.find(t.A), B: e.find(t.B)}
	case cir.App:
		return App{F: e.find(t.F), Args: findValues(e, t.Args)}
	case cir.Tuple:
		return Tuple{Vals: findValues(e, t.Vals)}
	case cir.Proj:
		return Proj{A: e.find(t.A), I: t.I}
	default:
		panic(util.NewStageInvariant("flatten", nil, "cce2fce called on an If"))
	}
}

func subFlatten(c cir.Cexp, e *env, ctx *Context) Cexp {
	if ifc, ok := c.(cir.If); ok {
		return If{
			Cond: e.find(ifc.Cond),
			Then: flatten(ifc.Then, e, ctx),
			Else: flatten(ifc.Else, e, ctx),
		}
	}
	return cce2fce(c, e)
}

func flatten(ce cir.Exp, e *env, ctx *Context) Exp {
	switch t := ce.(type) {
	case cir.Compexp:
		return Compexp{C: subFlatten(t.C, e, ctx)}

	case cir.Let:
		inner := e.push()
		fcexp := subFlatten(t.C, inner, ctx)
		e.addVar(t.Id)
		return Let{Id: t.Id, C: fcexp, Body: flatten(t.Body, e, ctx)}

	case cir.Loop:
		inner := e.push()
		fcexp := subFlatten(t.C, inner, ctx)
		e.addVar(t.Id)
		return Loop{Id: t.Id, C: fcexp, Body: flatten(t.Body, e, ctx)}

	case cir.Letrec:
		body := e.push()
		for _, arg := range t.Formals {
			body.addVar(arg)
		}
		fbody := flatten(t.Body, body, ctx)
		ctx.decls = append(ctx.decls, Recdecl{Id: t.FunId, Args: t.Formals, Body: fbody})
		e.addFun(t.FunId)
		return flatten(t.Cont, e, ctx)

	case cir.Recur:
		return Recur{V: e.find(t.V)}

	default:
		panic(util.NewStageInvariant("flatten", nil, "unhandled cir.Exp variant"))
	}
}

// Flatten pulls every Letrec in e out into its own Recdecl and resolves
// every remaining variable reference into a Var or a Fun, returning the
// complete top-level Program (the leftover top-level computation becomes
// the final "_toplevel" declaration, taking no arguments).
func Flatten(e cir.Exp, ctx *Context) Program {
	top := flatten(e, newEnv(), ctx)
	ctx.decls = append(ctx.decls, Recdecl{Id: "_toplevel", Args: nil, Body: top})
	return Program{Decls: ctx.decls}
}
