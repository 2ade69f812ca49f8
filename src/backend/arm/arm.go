// Package arm lowers virtualized IR (ir/vir) to AArch64 assembly text.
// Every instruction has a fixed text template; the only per-Decl state is
// the stack-frame size (spofs) and whether a frame-pointer prologue is
// needed because the body performs a Call.
package arm

import (
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"

	"loopc/src/ast"
	"loopc/src/backend/regfile"
	"loopc/src/ir/vir"
)

// ----------------------------
// ----- Functions -----
// ----------------------------

// Render renders every Decl in pg to assembly text sequentially, in
// declaration order, and returns the complete result as one string. This
// is the synchronous counterpart of Emit: compiler.Run (and so cmd/loopc,
// which writes Run's result itself) uses Render; Emit is the concurrent
// per-Decl alternative that writes straight to a file or stdout.
func Render(pg *vir.Program) string {
	var sb strings.Builder
	sb.WriteString(".text\n")
	sb.WriteString("\t.global _toplevel\n")
	for i := range pg.Decls {
		genDecl(&sb, &pg.Decls[i])
	}
	return sb.String()
}

// regName names r at its allocated width via regfile's AArch64 integer
// Register: w<n> for 4-byte values, x<n> for 8-byte values. loopc has no
// floating-point type, so every Reg is named through regfile's integer
// side; RegisterFile's float methods have no caller here.
func regName(r *vir.Reg) string {
	return regfile.NewIntReg(r.Rm, r.Byte).String()
}

// asmLabel turns a Recdecl or jump-target name into a label GNU as will
// accept. Fresh names carry punctuation (the "$r_"/"$b_" call-rewrite and
// lifted-function prefixes, the "@v" normalization prefix, ".L" jump-target
// prefix) that is not valid in an assembler identifier; '$' and '@' are
// replaced with underscores first, since strcase.ToSnake keeps them, and
// ToSnake then collapses the rest while leaving the distinguishing
// fresh-name suffix digits intact.
func asmLabel(name string) string {
	return strcase.ToSnake(strings.NewReplacer("$", "_", "@", "_").Replace(name))
}

// frameSize rounds decl's stack-slot count up to a 16-byte boundary (the
// AArch64 stack-alignment requirement) and, if the body performs a Call,
// adds 16 more bytes to hold the saved frame-pointer/link-register pair.
func frameSize(decl *vir.Decl) int {
	spofs := 16 * ((decl.Vc*4 + 15) / 16)
	if decl.HaveApp {
		spofs += 16
	}
	return spofs
}

// genDecl writes decl's prologue, body, and epilogue to sb.
func genDecl(sb *strings.Builder, decl *vir.Decl) {
	spofs := frameSize(decl)
	fmt.Fprintf(sb, "%s:\n", asmLabel(decl.FunLabel))
	switch {
	case decl.HaveApp:
		fmt.Fprintf(sb, "\tstp x29, x30, [sp, -%d]!\n", spofs)
		sb.WriteString("\tmov x29, sp\n")
	case spofs > 0:
		fmt.Fprintf(sb, "\tsub sp, sp, #%d\n", spofs)
	}
	for _, instr := range decl.Instrs {
		genInstr(sb, instr, spofs)
	}
	if decl.HaveApp {
		fmt.Fprintf(sb, "\tldp x29, x30, [sp], %d\n", spofs)
	} else {
		fmt.Fprintf(sb, "\tadd sp, sp, #%d\n", spofs)
	}
	sb.WriteString("\tret\n")
}

// genInstr appends the AArch64 text for one vir.Instr. spofs is the
// enclosing Decl's frame size, needed to turn a Store/Load/Argst slot
// offset (counted in 4-byte slots) into an [sp, #n] byte displacement of
// spofs-4*Ofs.
func genInstr(sb *strings.Builder, instr vir.Instr, spofs int) {
	switch t := instr.(type) {
	case vir.Move:
		iv, ok := t.Op.(vir.Intv)
		if !ok {
			panic(fmt.Sprintf("arm: Move operand must be an immediate, got %#v", t.Op))
		}
		fmt.Fprintf(sb, "\tmov %s, #%d\n", regName(t.R), iv.Val)
	case vir.Mover:
		fmt.Fprintf(sb, "\tmov %s, %s\n", regName(t.R1), regName(t.R2))
	case vir.Store:
		fmt.Fprintf(sb, "\tstr %s, [sp, %d]\n", regName(t.R), spofs-4*t.Ofs)
	case vir.Load:
		fmt.Fprintf(sb, "\tldr %s, [sp, %d]\n", regName(t.R), spofs-4*t.Ofs)
	case vir.Loadf:
		lb := asmLabel(t.Label)
		fmt.Fprintf(sb, "\tadrp %s, %s\n", regName(t.R), lb)
		fmt.Fprintf(sb, "\tadd %s, %s, :lo12:%s\n", regName(t.R), regName(t.R), lb)
	case vir.Argst:
		p, ok := t.Op.(vir.Param)
		if !ok {
			panic(fmt.Sprintf("arm: Argst operand must be a Param, got %#v", t.Op))
		}
		fmt.Fprintf(sb, "\tstr x%d, [sp, %d]\n", p.I, spofs-4*t.Ofs)
	case vir.Binop:
		genBinop(sb, t)
	case vir.Label:
		fmt.Fprintf(sb, "%s:\n", asmLabel(t.Name))
	case vir.Br:
		fmt.Fprintf(sb, "\tcmp %s, #1\n", regName(t.R))
		fmt.Fprintf(sb, "\tbeq %s\n", asmLabel(t.Label))
	case vir.Gt:
		fmt.Fprintf(sb, "\tb %s\n", asmLabel(t.Label))
	case vir.Call:
		for i, a := range t.Args {
			fmt.Fprintf(sb, "\tmov x%d, x%d\n", i, a.Rm)
		}
		fmt.Fprintf(sb, "\tblr %s\n", regName(t.R))
		fmt.Fprintf(sb, "\tmov %s, w0\n", regName(t.R))
	case vir.Ret:
		fmt.Fprintf(sb, "\tmov %s, %s\n", regName(t.R1), regName(t.R2))
	case vir.Malloc:
		genMalloc(sb, t)
	case vir.Read:
		genRead(sb, t)
	case vir.Kill:
		// No physical effect; the slot was already reclaimed at allocation time.
	}
}

// genBinop dispatches on the operator tag. Lt and Eq leave a clean 0/1
// byte in r1: cset only guarantees the low bit, so the result is masked.
func genBinop(sb *strings.Builder, t vir.Binop) {
	r1, r2 := regName(t.R1), regName(t.R2)
	switch t.Op {
	case ast.Plus:
		fmt.Fprintf(sb, "\tadd %s, %s, %s\n", r1, r1, r2)
	case ast.Mult:
		fmt.Fprintf(sb, "\tmul %s, %s, %s\n", r1, r1, r2)
	case ast.Lt:
		fmt.Fprintf(sb, "\tcmp %s, %s\n", r1, r2)
		fmt.Fprintf(sb, "\tcset %s, lt\n", r1)
		fmt.Fprintf(sb, "\tand %s, %s, 255\n", r1, r1)
	case ast.Eq:
		fmt.Fprintf(sb, "\tcmp %s, %s\n", r1, r2)
		fmt.Fprintf(sb, "\tcset %s, eq\n", r1)
		fmt.Fprintf(sb, "\tand %s, %s, 255\n", r1, r1)
	default:
		panic(fmt.Sprintf("arm: unhandled Bintype %v", t.Op))
	}
}

// genMalloc spills x0 around a call to the runtime allocator, moves the
// total tuple size into w0, calls mymalloc, stores each field at its
// cumulative offset, then moves the returned pointer into r and restores
// x0 and the stack pointer.
func genMalloc(sb *strings.Builder, t vir.Malloc) {
	sb.WriteString("\tsub sp, sp, #8\n")
	sb.WriteString("\tstr x0, [sp, 8]\n")
	datasize := 0
	for _, d := range t.Data {
		datasize += d.Byte
	}
	fmt.Fprintf(sb, "\tmov w0, %d\n", datasize)
	sb.WriteString("\tbl mymalloc\n")
	ofs := 0
	for _, d := range t.Data {
		fmt.Fprintf(sb, "\tstr %s, [x0, %d]\n", regName(d), ofs)
		ofs += d.Byte
	}
	fmt.Fprintf(sb, "\tmov x%d, x0\n", t.R.Rm)
	sb.WriteString("\tldr x0, [sp, 8]\n")
	sb.WriteString("\tadd sp, sp, #8\n")
}

// genRead projects field (Ofs, Byte) out of the tuple pointer in t.R. The
// source register is always 8 bytes wide (a pointer); the destination
// width is the field's own width, so the emitted mnemonic and register
// name are chosen from a local copy rather than mutating t.R itself --
// register allocation has already finished with t.R at its pointer width,
// and nothing downstream should see it narrowed.
func genRead(sb *strings.Builder, t vir.Read) {
	if t.R.Byte != 8 {
		panic(fmt.Sprintf("arm: Read source register must be 8 bytes wide, got %d", t.R.Byte))
	}
	dst := vir.Reg{Rm: t.R.Rm, Byte: t.Byte}
	fmt.Fprintf(sb, "\tldr %s, [x%d, %d]\n", regName(&dst), t.R.Rm, t.Ofs)
}
