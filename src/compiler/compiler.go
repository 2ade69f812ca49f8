// Package compiler wires the five pipeline stages (Normalize, Closure
// conversion, Flatten, Virtualize, register allocation) and the output
// backend behind one call, Run. It is the one package outside ir/* that
// knows the stages run in that order.
package compiler

import (
	"fmt"
	"os"
	"time"

	"github.com/segmentio/ksuid"

	"loopc/src/ast"
	"loopc/src/backend/arm"
	"loopc/src/backend/llvm"
	"loopc/src/backend/regalloc"
	"loopc/src/ir/cir"
	"loopc/src/ir/fir"
	"loopc/src/ir/nir"
	"loopc/src/ir/vir"
	"loopc/src/util"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Context carries the fresh-name state threaded through every stage of one
// compile, plus a run identifier used to correlate -vb logging and, per
// spec.md §5, to keep generated names globally unique for the run's
// lifetime -- a fresh Context must be used per compile, never reused
// across two unrelated sources.
type Context struct {
	ID       ksuid.KSUID
	nir      *nir.Context
	cir      *cir.Context
	fir      *fir.Context
	vir      *vir.Context
	Reporter *util.Reporter
}

// NewContext returns a Context ready for one compile. reporter may be nil,
// in which case register exhaustion is silently left unreported (spec.md
// §7's default: non-fatal, rm stays -1).
func NewContext(reporter *util.Reporter) *Context {
	return &Context{
		ID:       ksuid.New(),
		nir:      nir.NewContext(),
		cir:      cir.NewContext(),
		fir:      fir.NewContext(),
		vir:      vir.NewContext(),
		Reporter: reporter,
	}
}

// ---------------------
// ----- Functions -----
// ---------------------

// Run compiles src under opt, returning either a pretty-printed IR dump
// (if opt.DumpIR names a stage) or the final AArch64 assembly text.
// Any *util.CompileError a stage panics with (an ill-formed IR handed to
// the next stage -- a bug in an earlier pass, per spec.md §7) is recovered
// and returned as an ordinary error rather than crashing the process.
func Run(src ast.Exp, opt util.Options, ctx *Context) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			if ce, ok := r.(*util.CompileError); ok {
				err = ce
				return
			}
			panic(r)
		}
	}()

	start := time.Now()
	if opt.Verbose {
		fmt.Fprintf(os.Stderr, "loopc run %s starting\n", ctx.ID)
	}

	n := nir.Normalize(src, ctx.nir)
	if opt.DumpIR == "nir" {
		return nir.String(n), nil
	}

	c := cir.Closure(n, ctx.cir)
	if opt.DumpIR == "cir" {
		return cir.String(c), nil
	}

	f := fir.Flatten(c, ctx.fir)
	if opt.DumpIR == "fir" {
		return fir.String(f), nil
	}

	vp := vir.Virtualize(f, ctx.vir)
	if opt.DumpIR == "vir" {
		return vir.String(vp), nil
	}

	regalloc.Allocate(&vp, ctx.Reporter)

	switch opt.Target {
	case util.TargetArm64:
		out = arm.Render(&vp)
	case util.TargetLLVM:
		out, err = llvm.Render(f, ctx.ID.String())
	default:
		err = util.NewStageInvariant("compiler", nil, "unknown backend target %d", opt.Target)
	}

	if opt.Verbose {
		fmt.Fprintf(os.Stderr, "loopc run %s finished in %s\n", ctx.ID, time.Since(start))
	}
	return out, err
}
