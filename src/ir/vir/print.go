package vir

import (
	"fmt"
	"strings"
)

// ---------------------
// ----- Functions -----
// ---------------------

func regName(r *Reg) string {
	if r.Rm >= 0 {
		return fmt.Sprintf("r%d", r.Rm)
	}
	return fmt.Sprintf("r%d", r.Vm)
}

func writeOperand(sb *strings.Builder, op Operand) {
	switch t := op.(type) {
	case Param:
		fmt.Fprintf(sb, " param(%d)", t.I)
	case Local:
		fmt.Fprintf(sb, " local(%d)", t.Ofs)
	case Proc:
		fmt.Fprintf(sb, " labimm %s", t.Label)
	case Intv:
		fmt.Fprintf(sb, " imm(%d)", t.Val)
	}
}

func writeInstr(sb *strings.Builder, instr Instr) {
	switch t := instr.(type) {
	case Move:
		fmt.Fprintf(sb, " %s <-", regName(t.R))
		writeOperand(sb, t.Op)
		sb.WriteString("\n")
	case Mover:
		fmt.Fprintf(sb, " %s <- %s\n", regName(t.R1), regName(t.R2))
	case Store:
		fmt.Fprintf(sb, " local(%d) <- %s\n", t.Ofs, regName(t.R))
	case Load:
		fmt.Fprintf(sb, " %s <- local(%d)\n", regName(t.R), t.Ofs)
	case Loadf:
		fmt.Fprintf(sb, " %s <- :%s\n", regName(t.R), t.Label)
	case Argst:
		sb.WriteString(fmt.Sprintf(" local(%d) <- Param(", t.Ofs))
		writeOperand(sb, t.Op)
		sb.WriteString(" )\n")
	case Binop:
		fmt.Fprintf(sb, " %s <- %s(%s, %s)\n", regName(t.R1), t.Op.String(), regName(t.R1), regName(t.R2))
	case Label:
		fmt.Fprintf(sb, "%s:\n", t.Name)
	case Br:
		fmt.Fprintf(sb, " if %s then goto %s\n", regName(t.R), t.Label)
	case Gt:
		fmt.Fprintf(sb, " goto %s\n", t.Label)
	case Call:
		fmt.Fprintf(sb, " %s (", regName(t.R))
		for i, a := range t.Args {
			if i > 0 {
				sb.WriteString(",")
			}
			fmt.Fprintf(sb, " %s", regName(a))
		}
		sb.WriteString(" )\n")
	case Ret:
		fmt.Fprintf(sb, " %s <- %s\n return(%s)\n", regName(t.R1), regName(t.R2), regName(t.R1))
	case Malloc:
		fmt.Fprintf(sb, "%s <- new [", regName(t.R))
		for i, d := range t.Data {
			if i > 0 {
				sb.WriteString(",")
			}
			fmt.Fprintf(sb, " %s", regName(d))
		}
		sb.WriteString(" ]\n")
	case Read:
		fmt.Fprintf(sb, "read %s <- #%d~%d( %s )\n", regName(t.R), t.Ofs, t.Byte, regName(t.R))
	case Kill:
		fmt.Fprintf(sb, "kill %s\n", regName(t.R))
	}
}

// String renders p in the teacher-style one-instruction-per-line textual
// form, for -dump-ir.
func String(p Program) string {
	var sb strings.Builder
	for _, decl := range p.Decls {
		fmt.Fprintf(&sb, "%s:\n", decl.FunLabel)
		for _, instr := range decl.Instrs {
			writeInstr(&sb, instr)
		}
	}
	return sb.String()
}
