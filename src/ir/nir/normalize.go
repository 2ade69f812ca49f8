package nir

import (
	"loopc/src/ast"
	"loopc/src/util"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Context carries the fresh-variable generator normalization shares with
// the rest of the pipeline. A single Context must be used for an entire
// compile so that "@v<n>" names stay globally unique (spec section on the
// concurrency/resource model).
type Context struct {
	vars *util.Namer
}

// NewContext returns a Context with its variable counter starting at 0.
func NewContext() *Context {
	return &Context{vars: util.NewNamer("@v")}
}

// ---------------------
// ----- Functions -----
// ---------------------

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ef is the identity context: wrap a bare computation with no further
// binding.
func ef(c Cexp) Exp {
	return Compexp{C: c}
}

// Normalize rewrites e into A-normal form. Every Binop/App/Tuple/Proj/Recur
// operand in the result is a Var or an Intv.
func Normalize(e ast.Exp, ctx *Context) Exp {
	return normalize(e, ef, ctx)
}

// atomic reports whether e is already an atomic AST leaf and, if so,
// returns its Value form.
func atomic(e ast.Exp) (Value, bool) {
	switch t := e.(type) {
	case *ast.ILit:
		return Intv{Val: t.Val}, true
	case *ast.BLit:
		return Intv{Val: boolToInt(t.Val)}, true
	case *ast.Var:
		return Var{Id: t.Id}, true
	default:
		return nil, false
	}
}

// normalizeAtomic normalizes e down to an atomic value and invokes k with
// it, introducing a fresh Let binding only when e is not already atomic.
// This is the Go rendering of the source algorithm's "introduce a fresh
// variable, wrap in Let, recurse" pattern, generalized across every call
// site that needs one atomic operand (Binop, App, Tuple, Proj, Recur):
// their Rust original hand-unrolls atomic/non-atomic combinations because
// the borrow checker makes a shared continuation helper awkward there; Go's
// closures carry no such cost, so the cases collapse into one helper.
func normalizeAtomic(e ast.Exp, k func(Value) Exp, ctx *Context) Exp {
	if v, ok := atomic(e); ok {
		return k(v)
	}
	v := ctx.vars.Fresh()
	return normalize(e, func(c Cexp) Exp {
		return Let{Id: v, C: c, Body: k(Var{Id: v})}
	}, ctx)
}

func normalize(e ast.Exp, k func(Cexp) Exp, ctx *Context) Exp {
	switch t := e.(type) {
	case *ast.ILit:
		return k(Val{V: Intv{Val: t.Val}})
	case *ast.BLit:
		return k(Val{V: Intv{Val: boolToInt(t.Val)}})
	case *ast.Var:
		return k(Val{V: Var{Id: t.Id}})
	case *ast.Binop:
		return normalizeAtomic(t.A, func(va Value) Exp {
			return normalizeAtomic(t.B, func(vb Value) Exp {
				return k(Binop{Op: t.Op, A: va, B: vb})
			}, ctx)
		}, ctx)
	case *ast.If:
		v := ctx.vars.Fresh()
		return normalize(t.Cond, func(c Cexp) Exp {
			return Let{
				Id: v,
				C:  c,
				Body: k(If{
					Cond: Var{Id: v},
					Then: normalize(t.Then, ef, ctx),
					Else: normalize(t.Else, ef, ctx),
				}),
			}
		}, ctx)
	case *ast.Fun:
		v := ctx.vars.Fresh()
		rec := &ast.Rec{FunId: v, ParamId: t.Param, Body: t.Body, Cont: &ast.Var{Id: v}}
		return normalize(rec, k, ctx)
	case *ast.Let:
		if v, ok := atomic(t.A); ok {
			return Let{Id: t.Id, C: Val{V: v}, Body: normalize(t.B, k, ctx)}
		}
		return normalize(t.A, func(c Cexp) Exp {
			return Let{Id: t.Id, C: c, Body: normalize(t.B, k, ctx)}
		}, ctx)
	case *ast.Rec:
		return Letrec{
			FunId:   t.FunId,
			ParamId: t.ParamId,
			Body:    normalize(t.Body, ef, ctx),
			Cont:    normalize(t.Cont, k, ctx),
		}
	case *ast.Loop:
		if v, ok := atomic(t.Init); ok {
			return Loop{Id: t.Id, C: Val{V: v}, Body: normalize(t.Body, k, ctx)}
		}
		return normalize(t.Init, func(c Cexp) Exp {
			return Loop{Id: t.Id, C: c, Body: normalize(t.Body, k, ctx)}
		}, ctx)
	case *ast.Recur:
		return normalizeAtomic(t.A, func(v Value) Exp {
			return Recur{V: v}
		}, ctx)
	case *ast.App:
		return normalizeAtomic(t.F, func(vf Value) Exp {
			return normalizeAtomic(t.A, func(va Value) Exp {
				return k(App{F: vf, A: va})
			}, ctx)
		}, ctx)
	case *ast.Tuple:
		return normalizeAtomic(t.A, func(va Value) Exp {
			return normalizeAtomic(t.B, func(vb Value) Exp {
				return k(Tuple{A: va, B: vb})
			}, ctx)
		}, ctx)
	case *ast.Proj:
		return normalizeAtomic(t.A, func(v Value) Exp {
			return k(Proj{A: v, I: t.I})
		}, ctx)
	default:
		panic(util.NewStageInvariant("normalize", nil, "unhandled ast.Exp variant %T", t))
	}
}
