package regalloc

import (
	"testing"

	"loopc/src/ir/vir"
	"loopc/src/util"

	"github.com/stretchr/testify/require"
)

func TestAllocateReusesSlotAfterKill(t *testing.T) {
	r1 := &vir.Reg{Vm: 0, Rm: -1, Byte: 4}
	r2 := &vir.Reg{Vm: 1, Rm: -1, Byte: 4}
	r3 := &vir.Reg{Vm: 2, Rm: -1, Byte: 4}

	pg := &vir.Program{Decls: []vir.Decl{{
		FunLabel: "_toplevel",
		Instrs: []vir.Instr{
			vir.Move{R: r1, Op: vir.Intv{Val: 1}},
			vir.Kill{R: r1},
			vir.Move{R: r2, Op: vir.Intv{Val: 2}},
			vir.Move{R: r3, Op: vir.Intv{Val: 3}},
		},
	}}}

	Allocate(pg, nil)
	require.GreaterOrEqual(t, r1.Rm, 0)
	require.GreaterOrEqual(t, r2.Rm, 0)
	require.GreaterOrEqual(t, r3.Rm, 0)
	require.Equal(t, r1.Rm, r2.Rm, "r2 should reclaim r1's slot once r1 is killed")
	require.NotEqual(t, r2.Rm, r3.Rm)
}

func TestAllocateRetPinsReturnRegister(t *testing.T) {
	ra1 := &vir.Reg{Vm: 5, Rm: -1, Byte: 4}
	r := &vir.Reg{Vm: 6, Rm: -1, Byte: 4}
	pg := &vir.Program{Decls: []vir.Decl{{
		FunLabel: "_toplevel",
		Instrs:   []vir.Instr{vir.Move{R: r, Op: vir.Intv{Val: 9}}, vir.Ret{R1: ra1, R2: r}},
	}}}
	Allocate(pg, nil)
	require.Equal(t, A1, ra1.Rm)
}

func TestAllocateArgstReservesParamRegisters(t *testing.T) {
	r := &vir.Reg{Vm: 0, Rm: -1, Byte: 4}
	pg := &vir.Program{Decls: []vir.Decl{{
		FunLabel: "f",
		Instrs: []vir.Instr{
			vir.Argst{Ofs: 8, Op: vir.Param{I: 2}},
			vir.Move{R: r, Op: vir.Intv{Val: 0}},
		},
	}}}
	Allocate(pg, nil)
	// Registers 0 and 1 were reserved by the Argst before r was allocated,
	// so r must land at index 2 or later.
	require.GreaterOrEqual(t, r.Rm, 2)
}

func TestAllocateReportsExhaustion(t *testing.T) {
	reporter := util.NewReporter(nopWriter{})
	instrs := make([]vir.Instr, 0, RegSize+1)
	regs := make([]*vir.Reg, RegSize+1)
	for i := 0; i < RegSize+1; i++ {
		regs[i] = &vir.Reg{Vm: i, Rm: -1, Byte: 4}
		instrs = append(instrs, vir.Move{R: regs[i], Op: vir.Intv{Val: i}})
	}
	pg := &vir.Program{Decls: []vir.Decl{{FunLabel: "f", Instrs: instrs}}}
	Allocate(pg, reporter)
	for i := 0; i < RegSize; i++ {
		require.GreaterOrEqual(t, regs[i].Rm, 0)
	}
	require.Equal(t, -1, regs[RegSize].Rm, "the 11th concurrently-live register cannot be allocated")
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
