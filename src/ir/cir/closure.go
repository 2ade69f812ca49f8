package cir

import (
	"loopc/src/ir/nir"
	"loopc/src/util"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Context carries the two fresh-name generators closure conversion hands
// out: "$r_<callee><n>" for the temporary that holds a callee's own code
// pointer (read out of slot 0 before an indirect call), and "$b_<fun><n>"
// for the label a Letrec's body is lifted under. Each is a KeyedNamer with
// one counter shared across every name of that class, matching the
// generators' behaviour described by the normalization/closure-conversion
// design notes.
type Context struct {
	r *util.KeyedNamer
	b *util.KeyedNamer
}

// NewContext returns a Context with both counters starting at 0.
func NewContext() *Context {
	return &Context{r: util.NewKeyedNamer("$r_"), b: util.NewKeyedNamer("$b_")}
}

// ---------------------
// ----- Functions -----
// ---------------------

func conv(v nir.Value) Value {
	switch t := v.(type) {
	case nir.Var:
		return Var{Id: t.Id}
	case nir.Intv:
		return Intv{Val: t.Val}
	default:
		panic(util.NewStageInvariant("closure", nil, "unhandled nir.Value variant %T", t))
	}
}

// nce2cce performs the structural, non-rewriting part of cexp conversion:
// it relabels a nir.Cexp into its cir shape without touching App-of-var
// (handled by the indirect-call rewrite below) or If (handled by the
// caller, since its branches are full Exp trees).
func nce2cce(c nir.Cexp) Cexp {
	switch t := c.(type) {
	case nir.Val:
		return Val{V: conv(t.V)}
	case nir.Binop:
		return Binop{Op: t.Op, A: conv(t.A), B: conv(t.B)}
	case nir.App:
		return App{F: conv(t.F), Args: []Value{conv(t.A)}}
	case nir.Tuple:
		return Tuple{Vals: []Value{conv(t.A), conv(t.B)}}
	case nir.Proj:
		return Proj{A: conv(t.A), I: t.I}
	default:
		panic(util.NewStageInvariant("closure", nil, "nce2cce called on an If; If must be handled by the caller"))
	}
}

func identityCtx(c Cexp) Exp {
	return Compexp{C: c}
}

// findFreeVars computes the free variables referenced by e that are not in
// bound, in first-occurrence order and without duplicates. bound is
// threaded and mutated exactly as the reference closure-conversion walk
// does: a Let/Loop's own id is marked bound before its right-hand side is
// inspected, and both arms of an If share one bound set. This is a direct
// generalization of the source's free-variable walk with one deliberate
// change: it deduplicates repeated uses of the same free variable instead
// of reporting one entry per occurrence, since a closure tuple only ever
// needs one slot per captured name.
func findFreeVars(e nir.Exp, bound map[string]bool) []string {
	var found []string
	seen := map[string]bool{}
	extract := func(v nir.Value) {
		vv, ok := v.(nir.Var)
		if !ok || bound[vv.Id] || seen[vv.Id] {
			return
		}
		seen[vv.Id] = true
		found = append(found, vv.Id)
	}

	var walkExp func(nir.Exp)
	walkCexp := func(c nir.Cexp) {
		switch t := c.(type) {
		case nir.Val:
			extract(t.V)
		case nir.Binop:
			extract(t.A)
			extract(t.B)
		case nir.App:
			extract(t.F)
			extract(t.A)
		case nir.Tuple:
			extract(t.A)
			extract(t.B)
		case nir.Proj:
			extract(t.A)
		case nir.If:
			extract(t.Cond)
			walkExp(t.Then)
			walkExp(t.Else)
		}
	}
	walkExp = func(e nir.Exp) {
		switch t := e.(type) {
		case nir.Compexp:
			walkCexp(t.C)
		case nir.Let:
			bound[t.Id] = true
			walkCexp(t.C)
			walkExp(t.Body)
		case nir.Loop:
			bound[t.Id] = true
			walkCexp(t.C)
			walkExp(t.Body)
		case nir.Letrec:
			bound[t.FunId] = true
			bound[t.ParamId] = true
			walkExp(t.Body)
			walkExp(t.Cont)
		case nir.Recur:
			extract(t.V)
		}
	}
	walkExp(e)
	return found
}

// rewriteApp is the indirect-call rewrite shared by every place an App of a
// named callee can appear: read the callee's code pointer out of slot 0 of
// its own closure tuple, then call it with the closure and the original
// argument. wrap receives the resulting Cexp and decides what happens to
// it (bind it to a Let id, hand it to the surrounding k, and so on).
func rewriteApp(fn string, arg Value, wrap func(Cexp) Exp, ctx *Context) Exp {
	r := ctx.r.Fresh(fn)
	return Let{
		Id:   r,
		C:    Proj{A: Var{Id: fn}, I: 0},
		Body: wrap(App{F: Var{Id: r}, Args: []Value{Var{Id: fn}, arg}}),
	}
}

// Closure rewrites e, eliminating every Letrec in favor of a lifted
// function declaration plus an ordinary closure-tuple allocation.
func Closure(e nir.Exp, ctx *Context) Exp {
	return convert(e, identityCtx, ctx)
}

func convert(e nir.Exp, k func(Cexp) Exp, ctx *Context) Exp {
	switch t := e.(type) {
	case nir.Compexp:
		switch ce := t.C.(type) {
		case nir.If:
			return k(If{
				Cond: conv(ce.Cond),
				Then: convert(ce.Then, identityCtx, ctx),
				Else: convert(ce.Else, identityCtx, ctx),
			})
		case nir.App:
			if v, ok := ce.F.(nir.Var); ok {
				return rewriteApp(v.Id, conv(ce.A), k, ctx)
			}
			return k(nce2cce(ce))
		default:
			return k(nce2cce(ce))
		}

	case nir.Let:
		switch ce := t.C.(type) {
		case nir.If:
			return Let{
				Id: t.Id,
				C: If{
					Cond: conv(ce.Cond),
					Then: convert(ce.Then, identityCtx, ctx),
					Else: convert(ce.Else, identityCtx, ctx),
				},
				Body: convert(t.Body, k, ctx),
			}
		case nir.App:
			if v, ok := ce.F.(nir.Var); ok {
				cont := convert(t.Body, k, ctx)
				return rewriteApp(v.Id, conv(ce.A), func(c Cexp) Exp {
					return Let{Id: t.Id, C: c, Body: cont}
				}, ctx)
			}
			return Let{Id: t.Id, C: nce2cce(ce), Body: convert(t.Body, k, ctx)}
		default:
			return Let{Id: t.Id, C: nce2cce(ce), Body: convert(t.Body, k, ctx)}
		}

	case nir.Loop:
		switch ce := t.C.(type) {
		case nir.If:
			return Loop{
				Id: t.Id,
				C: If{
					Cond: conv(ce.Cond),
					Then: convert(ce.Then, identityCtx, ctx),
					Else: convert(ce.Else, identityCtx, ctx),
				},
				Body: convert(t.Body, k, ctx),
			}
		case nir.App:
			if v, ok := ce.F.(nir.Var); ok {
				cont := convert(t.Body, k, ctx)
				return rewriteApp(v.Id, conv(ce.A), func(c Cexp) Exp {
					return Loop{Id: t.Id, C: c, Body: cont}
				}, ctx)
			}
			return Loop{Id: t.Id, C: nce2cce(ce), Body: convert(t.Body, k, ctx)}
		default:
			return Loop{Id: t.Id, C: nce2cce(ce), Body: convert(t.Body, k, ctx)}
		}

	case nir.Letrec:
		bound := map[string]bool{t.FunId: true, t.ParamId: true}
		fvs := findFreeVars(t.Body, bound)

		body := convert(t.Body, identityCtx, ctx)
		// Captured free variables are materialized at the very top of the
		// lifted body, ahead of anything the body itself might bind, so
		// they're in scope no matter where inside the body they're used --
		// not only in tail position.
		for i := len(fvs) - 1; i >= 0; i-- {
			body = Let{Id: fvs[i], C: Proj{A: Var{Id: t.FunId}, I: i + 1}, Body: body}
		}

		label := ctx.b.Fresh(t.FunId)
		tupleVals := make([]Value, 0, len(fvs)+1)
		tupleVals = append(tupleVals, Var{Id: label})
		for _, fv := range fvs {
			tupleVals = append(tupleVals, Var{Id: fv})
		}

		return Letrec{
			FunId:   label,
			Formals: []string{t.FunId, t.ParamId},
			Body:    body,
			Cont: Let{
				Id:   t.FunId,
				C:    Tuple{Vals: tupleVals},
				Body: convert(t.Cont, k, ctx),
			},
		}

	case nir.Recur:
		return Recur{V: conv(t.V)}

	default:
		panic(util.NewStageInvariant("closure", nil, "unhandled nir.Exp variant %T", t))
	}
}
