// Package vir defines the virtualized intermediate representation: a flat
// stream of instructions per declaration, operating on an unbounded supply
// of virtual registers. Register allocation (backend/regalloc) later fills
// in each Reg's physical slot; nothing else about this IR changes after
// Virtualize produces it.
package vir

import "loopc/src/ast"

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Reg is a virtual register. Vm is its virtual number, assigned once and
// never reused; Rm is its physical slot, -1 until register allocation
// fills it in. Byte is its width in bytes (4 or 8).
type Reg struct {
	Vm   int
	Rm   int
	Byte int
}

// Operand is an instruction operand that is not itself a register.
type Operand interface {
	operandNode()
}

// Param is the i'th incoming argument, read directly off the call
// convention rather than out of a stack slot.
type Param struct {
	I int
}

// Local is a stack-resident value at offset Ofs (counted in 4-byte slots),
// Byte bytes wide.
type Local struct {
	Ofs, Byte int
}

// Proc names a label to be loaded as a code-pointer value.
type Proc struct {
	Label string
}

// Intv is an immediate integer operand.
type Intv struct {
	Val int
}

func (Param) operandNode() {}
func (Local) operandNode() {}
func (Proc) operandNode()  {}
func (Intv) operandNode()  {}

// Instr is one virtual-machine instruction. Every Instr that mentions a
// Reg holds it by pointer so register allocation can mutate Rm in place.
type Instr interface {
	instrNode()
}

// Move loads Op into R.
type Move struct {
	R  *Reg
	Op Operand
}

// Mover copies R2 into R1.
type Mover struct {
	R1, R2 *Reg
}

// Store writes R to the stack at offset Ofs (counted in 4-byte slots).
type Store struct {
	Ofs int
	R   *Reg
}

// Load reads the stack at offset Ofs (counted in 4-byte slots) into R.
type Load struct {
	R   *Reg
	Ofs int
}

// Loadf loads the code pointer for Label into R.
type Loadf struct {
	R     *Reg
	Label string
}

// Argst stores incoming argument Op at offset Ofs (counted in 4-byte slots).
type Argst struct {
	Ofs int
	Op  Operand
}

// Binop applies Op to R1 and R2, leaving the result in R1.
type Binop struct {
	Op     ast.Bintype
	R1, R2 *Reg
}

// Label marks a jump target.
type Label struct {
	Name string
}

// Br jumps to Label if R equals 1.
type Br struct {
	R     *Reg
	Label string
}

// Gt is an unconditional jump to Label.
type Gt struct {
	Label string
}

// Call invokes the procedure in R with Args, leaving the result in R.
type Call struct {
	R    *Reg
	Args []*Reg
}

// Ret moves R2 into R1 (the pinned return register) and returns.
type Ret struct {
	R1, R2 *Reg
}

// Malloc allocates a tuple from Data, leaving the pointer in R.
type Malloc struct {
	R    *Reg
	Data []*Reg
}

// Read projects field (Ofs, Byte) out of the tuple pointer in R, leaving
// the field in R's physical register. R itself keeps its pointer width;
// Virtualize hands the field on as a separate Reg with R's virtual number
// and width Byte.
type Read struct {
	R    *Reg
	Ofs  int
	Byte int
}

// Kill marks R's last use, freeing its physical slot for reuse.
type Kill struct {
	R *Reg
}

func (Move) instrNode()   {}
func (Mover) instrNode()  {}
func (Store) instrNode()  {}
func (Load) instrNode()   {}
func (Loadf) instrNode()  {}
func (Argst) instrNode()  {}
func (Binop) instrNode()  {}
func (Label) instrNode()  {}
func (Br) instrNode()     {}
func (Gt) instrNode()     {}
func (Call) instrNode()   {}
func (Ret) instrNode()    {}
func (Malloc) instrNode() {}
func (Read) instrNode()   {}
func (Kill) instrNode()   {}

// Decl is one compiled declaration's instruction stream.
type Decl struct {
	FunLabel string
	Vc       int // total stack slots consumed
	Instrs   []Instr
	HaveApp  bool // whether the body performs any Call
}

// Program is the full virtualized output.
type Program struct {
	Decls []Decl
}
