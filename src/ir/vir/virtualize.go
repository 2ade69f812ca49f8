package vir

import (
	"loopc/src/ir/fir"
	"loopc/src/util"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// slot records a stack-resident variable's offset (in 4-byte slots) and
// width in bytes.
type slot struct {
	ofs, byte_ int
}

// varEnv is a scoped chain of name -> slot bindings, one scope per Let/Loop
// right-hand side and per Recdecl's formal list -- mirroring flatten's env
// and, before it, closure conversion's bound-variable scoping.
type varEnv struct {
	vals map[string]slot
	prev *varEnv
}

func newVarEnv() *varEnv { return &varEnv{vals: map[string]slot{}} }
func (e *varEnv) push() *varEnv {
	return &varEnv{vals: map[string]slot{}, prev: e}
}
func (e *varEnv) add(name string, ofs, byte_ int) {
	e.vals[name] = slot{ofs: ofs, byte_: byte_}
}
func (e *varEnv) find(name string) (slot, bool) {
	for cur := e; cur != nil; cur = cur.prev {
		if s, ok := cur.vals[name]; ok {
			return s, true
		}
	}
	return slot{}, false
}

// mallocEnv records, for every name bound to a heap-allocated tuple, the
// byte width of each of its fields in order -- the side table Proj uses to
// resolve a field index to a byte offset and width without a runtime tag.
type mallocEnv struct {
	vals map[string][]int
	prev *mallocEnv
}

func newMallocEnv() *mallocEnv { return &mallocEnv{vals: map[string][]int{}} }
func (e *mallocEnv) push() *mallocEnv {
	return &mallocEnv{vals: map[string][]int{}, prev: e}
}
func (e *mallocEnv) add(name string, byteSizes []int) {
	e.vals[name] = byteSizes
}
func (e *mallocEnv) find(name string) ([]int, bool) {
	for cur := e; cur != nil; cur = cur.prev {
		if v, ok := cur.vals[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// loopFrame is the (label, stack-offset) pair virtualization tracks for
// the nearest enclosing Loop, so that Recur knows where to jump and which
// stack slot to restore before jumping.
type loopFrame struct {
	label string
	ofs   int
}

// Context carries every piece of shared state a Virtualize run threads
// across declarations: the label generator and virtual-register counter
// are monotone for the whole run, while the stack-slot counter resets at
// the start of every Recdecl. The loop-info stack is pushed on entry to a
// Loop and popped again once that Loop's body has been fully translated,
// regardless of how many Recur sites (e.g. both arms of a tail If) read
// it in between -- Recur only peeks, never pops, which keeps the stack
// balanced per Recdecl even when a loop body recurs zero, one, or
// multiple times.
type Context struct {
	labels  *util.Namer
	regs    *util.Counter
	stack   *util.Counter
	loops   *util.Stack
	haveApp bool
}

// NewContext returns a fresh Context for one Virtualize run.
func NewContext() *Context {
	return &Context{
		labels: util.NewNamer(".L"),
		regs:   &util.Counter{},
		stack:  &util.Counter{},
		loops:  &util.Stack{},
	}
}

func (c *Context) newReg(byte_ int) *Reg {
	return &Reg{Vm: c.regs.Next(), Rm: -1, Byte: byte_}
}

// nextStack reserves byte_ bytes worth of stack slots and returns the new
// running total, which doubles as the offset Store/Load address this value
// at -- so the final total, read back via Peek, is exactly Vc.
func (c *Context) nextStack(byte_ int) int {
	n := 1
	if byte_ == 8 {
		n = 2
	}
	for i := 0; i < n; i++ {
		c.stack.Next()
	}
	return c.stack.Peek()
}

// ---------------------
// ----- Functions -----
// ---------------------

func transValue(v fir.Value, ve *varEnv) Operand {
	switch t := v.(type) {
	case fir.Var:
		s, ok := ve.find(t.Id)
		if !ok {
			panic(util.NewStageInvariant("virtualize", nil, "variable %q not found in scope", t.Id))
		}
		return Local{Ofs: s.ofs, Byte: s.byte_}
	case fir.Fun:
		return Proc{Label: t.Id}
	case fir.Intv:
		return Intv{Val: t.Val}
	default:
		panic(util.NewStageInvariant("virtualize", nil, "unhandled fir.Value variant"))
	}
}

func value2reg(decl *Decl, v fir.Value, ve *varEnv, ctx *Context) *Reg {
	switch op := transValue(v, ve).(type) {
	case Local:
		r := ctx.newReg(op.Byte)
		decl.Instrs = append(decl.Instrs, Load{R: r, Ofs: op.Ofs})
		return r
	case Intv:
		r := ctx.newReg(4)
		decl.Instrs = append(decl.Instrs, Move{R: r, Op: op})
		return r
	case Proc:
		r := ctx.newReg(8)
		decl.Instrs = append(decl.Instrs, Loadf{R: r, Label: op.Label})
		return r
	default:
		panic(util.NewStageInvariant("virtualize", nil, "value2reg: unexpected operand"))
	}
}

func transCexp(c fir.Cexp, decl *Decl, ve *varEnv, me *mallocEnv, ctx *Context) *Reg {
	switch t := c.(type) {
	case fir.Val:
		return value2reg(decl, t.V, ve, ctx)

	case fir.Binop:
		r1 := value2reg(decl, t.A, ve, ctx)
		r2 := value2reg(decl, t.B, ve, ctx)
		decl.Instrs = append(decl.Instrs, Binop{Op: t.Op, R1: r1, R2: r2})
		decl.Instrs = append(decl.Instrs, Kill{R: r2})
		return r1

	case fir.App:
		args := make([]*Reg, 0, len(t.Args))
		for _, v := range t.Args {
			args = append(args, value2reg(decl, v, ve, ctx))
		}
		r1 := value2reg(decl, t.F, ve, ctx)
		decl.Instrs = append(decl.Instrs, Call{R: r1, Args: append([]*Reg{}, args...)})
		for _, a := range args {
			decl.Instrs = append(decl.Instrs, Kill{R: a})
		}
		ctx.haveApp = true
		return r1

	case fir.If:
		tE1 := ctx.labels.Fresh()
		tE2 := ctx.labels.Fresh()
		r1 := value2reg(decl, t.Cond, ve, ctx)
		decl.Instrs = append(decl.Instrs, Br{R: r1, Label: tE1})
		r2 := transExp(t.Else, decl, ve, me, ctx)
		decl.Instrs = append(decl.Instrs, Mover{R1: r1, R2: r2})
		decl.Instrs = append(decl.Instrs, Kill{R: r2})
		decl.Instrs = append(decl.Instrs, Gt{Label: tE2})
		decl.Instrs = append(decl.Instrs, Label{Name: tE1})
		r3 := transExp(t.Then, decl, ve, me, ctx)
		decl.Instrs = append(decl.Instrs, Mover{R1: r1, R2: r3})
		decl.Instrs = append(decl.Instrs, Kill{R: r3})
		decl.Instrs = append(decl.Instrs, Label{Name: tE2})
		return r1

	case fir.Tuple:
		data := make([]*Reg, 0, len(t.Vals))
		bsizes := make([]int, 0, len(t.Vals))
		for _, v := range t.Vals {
			r := value2reg(decl, v, ve, ctx)
			// Every heap slot is a machine word. The field is stored through
			// a fresh 8-byte Reg with r's virtual number, so the instruction
			// that produced r keeps its own width.
			w := &Reg{Vm: r.Vm, Rm: -1, Byte: 8}
			bsizes = append(bsizes, w.Byte)
			data = append(data, w)
		}
		r1 := ctx.newReg(8)
		decl.Instrs = append(decl.Instrs, Malloc{R: r1, Data: append([]*Reg{}, data...)})
		for _, d := range data {
			decl.Instrs = append(decl.Instrs, Kill{R: d})
		}
		me.add(pendingTupleKey, bsizes)
		return r1

	case fir.Proj:
		v, ok := t.A.(fir.Var)
		if !ok {
			panic(util.NewStageInvariant("virtualize", nil, "Proj operand must be a Var"))
		}
		bytelist, ok := me.find(v.Id)
		if !ok {
			// No table recorded for this name so far (a closure formal of a
			// lifted function, or a tuple returned by a call). Tuple stores
			// every field 8 bytes wide, so field i sits at byte 8*i.
			bytelist = make([]int, t.I+1)
			for i := range bytelist {
				bytelist[i] = 8
			}
		}
		ofs := 0
		for i := 0; i < t.I; i++ {
			ofs += bytelist[i]
		}
		byte_ := bytelist[t.I]
		r := value2reg(decl, t.A, ve, ctx)
		decl.Instrs = append(decl.Instrs, Read{R: r, Ofs: ofs, Byte: byte_})
		return &Reg{Vm: r.Vm, Rm: -1, Byte: byte_}

	default:
		panic(util.NewStageInvariant("virtualize", nil, "unhandled fir.Cexp variant"))
	}
}

// pendingTupleKey is the scratch key a just-built Tuple's field-size list
// is recorded under until the enclosing Let/Loop knows what name (if any)
// it should be filed under instead.
const pendingTupleKey = "$$$dummy"

func bindTupleSizes(me *mallocEnv, id string) {
	if bs, ok := me.find(pendingTupleKey); ok {
		me.add(id, bs)
	}
}

func transExp(e fir.Exp, decl *Decl, ve *varEnv, me *mallocEnv, ctx *Context) *Reg {
	switch t := e.(type) {
	case fir.Compexp:
		return transCexp(t.C, decl, ve, me, ctx)

	case fir.Let:
		r1 := bindRHS(t.Id, t.C, decl, ve, me, ctx)
		ofs := ctx.nextStack(r1.Byte)
		decl.Instrs = append(decl.Instrs, Store{Ofs: ofs, R: r1})
		decl.Instrs = append(decl.Instrs, Kill{R: r1})
		ve.add(t.Id, ofs, r1.Byte)
		return transExp(t.Body, decl, ve, me, ctx)

	case fir.Loop:
		loopL := ctx.labels.Fresh()
		decl.Instrs = append(decl.Instrs, Label{Name: loopL})
		r1 := bindRHS(t.Id, t.C, decl, ve, me, ctx)
		idOfs := ctx.nextStack(r1.Byte)
		ctx.loops.Push(loopFrame{label: loopL, ofs: idOfs})
		decl.Instrs = append(decl.Instrs, Store{Ofs: idOfs, R: r1})
		decl.Instrs = append(decl.Instrs, Kill{R: r1})
		ve.add(t.Id, idOfs, r1.Byte)
		r := transExp(t.Body, decl, ve, me, ctx)
		ctx.loops.Pop()
		return r

	case fir.Recur:
		top := ctx.loops.Peek()
		if top == nil {
			panic(util.NewStageInvariant("virtualize", nil, "recur outside any enclosing loop"))
		}
		lf := top.(loopFrame)
		r1 := transCexp(fir.Val{V: t.V}, decl, ve, me, ctx)
		decl.Instrs = append(decl.Instrs, Store{Ofs: lf.ofs, R: r1})
		decl.Instrs = append(decl.Instrs, Gt{Label: lf.label})
		return r1

	default:
		panic(util.NewStageInvariant("virtualize", nil, "unhandled fir.Exp variant"))
	}
}

// bindRHS translates a Let/Loop right-hand side, tracking malloc field
// sizes across a plain variable alias the same way a heap-allocating RHS
// does, so `let y = x in ... y.0 ...` keeps working after the rename.
func bindRHS(id string, c fir.Cexp, decl *Decl, ve *varEnv, me *mallocEnv, ctx *Context) *Reg {
	switch t := c.(type) {
	case fir.Tuple:
		r := transCexp(t, decl, ve, me, ctx)
		bindTupleSizes(me, id)
		return r
	case fir.Val:
		if v, ok := t.V.(fir.Var); ok {
			r := transCexp(t, decl, ve, me, ctx)
			if bs, ok := me.find(v.Id); ok {
				me.add(id, bs)
			}
			return r
		}
		return transCexp(t, decl, ve, me, ctx)
	default:
		return transCexp(c, decl, ve, me, ctx)
	}
}

// Virtualize lowers every Recdecl in pg into a Decl of flat, virtual-
// register instructions. me is shared across every Recdecl and never
// reset, so a field-size table recorded in one Recdecl stays visible to
// every later one. Flatten emits a lifted function ahead of the Recdecl
// that builds its closure tuple, so a lifted body unpacking its captures
// via Proj finds no table for its closure formal and uses Proj's uniform
// 8-byte field layout instead. Only ve, the ordinary variable scope, is
// fresh per Recdecl.
func Virtualize(pg fir.Program, ctx *Context) Program {
	var program Program
	me := newMallocEnv()
	for _, rec := range pg.Decls {
		decl := Decl{FunLabel: rec.Id}
		ve := newVarEnv()
		ctx.haveApp = false
		for i, arg := range rec.Args {
			ofs := ctx.nextStack(8)
			decl.Instrs = append(decl.Instrs, Argst{Ofs: ofs, Op: Param{I: i}})
			ve.add(arg, ofs, 8)
		}
		r1 := transExp(rec.Body, &decl, ve, me, ctx)
		decl.Vc = ctx.stack.Peek()
		ra1 := ctx.newReg(4)
		ra1.Byte = r1.Byte
		decl.Instrs = append(decl.Instrs, Ret{R1: ra1, R2: r1})
		decl.Instrs = append(decl.Instrs, Kill{R: r1})
		decl.HaveApp = ctx.haveApp
		program.Decls = append(program.Decls, decl)
		ctx.stack.Reset()
	}
	return program
}
