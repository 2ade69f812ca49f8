// Package regalloc assigns physical registers to the virtual registers
// Virtualize produced. It is a kill-driven linear scan: a single pass over
// each declaration's instruction stream, reusing a physical slot the
// instant the Reg it held is Kill'd.
package regalloc

import (
	"loopc/src/ir/vir"
	"loopc/src/util"
)

// ----------------------------
// ----- Constants -----
// ----------------------------

// RegSize is the number of physical registers the target (AArch64) makes
// available to the allocator.
const RegSize = 10

// A1 is the physical register the calling convention returns a value in.
const A1 = 0

// ---------------------
// ----- Functions -----
// ---------------------

// setReal assigns r a physical slot: reuse one already holding r's virtual
// number, otherwise claim the first free slot. Leaves r.Rm at -1 if the
// bank is exhausted -- register exhaustion is non-fatal by default, per
// the three-kind error taxonomy (util.RegisterExhaustionKind).
func setReal(r *vir.Reg, regs *[RegSize]int) bool {
	for i := 0; i < RegSize; i++ {
		if regs[i] == r.Vm {
			r.Rm = i
			return true
		}
	}
	for i := 0; i < RegSize; i++ {
		if regs[i] == -1 {
			regs[i] = r.Vm
			r.Rm = i
			return true
		}
	}
	return false
}

// kill frees the physical slot holding r's virtual number.
func kill(r *vir.Reg, regs *[RegSize]int) {
	for i := 0; i < RegSize; i++ {
		if regs[i] == r.Vm {
			r.Rm = i
			regs[i] = -1
			return
		}
	}
}

// Allocate mutates pg in place, filling in every Reg.Rm. The physical
// register bank is shared across every Decl in pg (virtual register
// numbers are globally unique for the whole compile, so this carries no
// cross-function aliasing risk) and is never reset between declarations.
func Allocate(pg *vir.Program, reporter *util.Reporter) {
	var regs [RegSize]int
	for i := range regs {
		regs[i] = -1
	}
	for di := range pg.Decls {
		decl := &pg.Decls[di]
		for _, instr := range decl.Instrs {
			allocInstr(instr, &regs, decl.FunLabel, reporter)
		}
	}
}

func allocInstr(instr vir.Instr, regs *[RegSize]int, fn string, reporter *util.Reporter) {
	report := func(r *vir.Reg) {
		if !setReal(r, regs) && reporter != nil {
			reporter.Report(util.NewRegisterExhaustion(fn))
		}
	}
	switch t := instr.(type) {
	case vir.Mover:
		report(t.R1)
		report(t.R2)
	case vir.Binop:
		report(t.R1)
		report(t.R2)
	case vir.Move:
		report(t.R)
	case vir.Store:
		report(t.R)
	case vir.Load:
		report(t.R)
	case vir.Loadf:
		report(t.R)
	case vir.Br:
		report(t.R)
	case vir.Read:
		report(t.R)
	case vir.Malloc:
		report(t.R)
		for _, a := range t.Data {
			report(a)
		}
	case vir.Call:
		report(t.R)
		for _, a := range t.Args {
			report(a)
		}
	case vir.Ret:
		t.R1.Rm = A1
		report(t.R2)
	case vir.Argst:
		if p, ok := t.Op.(vir.Param); ok {
			for i := 0; i < p.I; i++ {
				regs[i] = 1
			}
		}
	case vir.Kill:
		kill(t.R, regs)
	}
}
