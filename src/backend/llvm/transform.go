// Package llvm lowers flattened IR (ir/fir) directly to an LLVM module,
// giving "-target llvm" an alternative to the mandatory AArch64 path.
// Unlike backend/arm it walks F-IR one stage earlier than V-IR: a flat
// list of Recdecls is exactly the shape LLVM IR module-level functions
// want, so no virtual-register or stack-slot accounting is needed here --
// LLVM's own mem2reg/SSA construction takes over that job.
package llvm

import (
	"tinygo.org/x/go-llvm"

	"loopc/src/ast"
	"loopc/src/ir/fir"
	"loopc/src/util"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// loopFrame is the LLVM-side analogue of vir's loop-info stack (§4.4):
// the header block a Recur branches back to, and the phi node it feeds.
type loopFrame struct {
	header llvm.BasicBlock
	phi    llvm.Value
}

// fnCtx carries one function's translation state. Every fir name is
// globally unique for the run (the fresh-name invariant spec.md §5
// describes), so env is a single flat map -- no scope push/pop is needed,
// unlike cir/fir/vir's scoped environments, which exist to shadow names
// that flatten's lifting could otherwise re-use across declarations.
type fnCtx struct {
	b     llvm.Builder
	fn    llvm.Value
	env   map[string]llvm.Value
	funcs map[string]llvm.Value
	loops []loopFrame
}

func (fx *fnCtx) pushLoop(f loopFrame) { fx.loops = append(fx.loops, f) }
func (fx *fnCtx) popLoop()             { fx.loops = fx.loops[:len(fx.loops)-1] }
func (fx *fnCtx) topLoop() loopFrame   { return fx.loops[len(fx.loops)-1] }

// ---------------------
// ----- Functions -----
// ---------------------

var i64 = llvm.Int64Type()

// Render lowers pg to an LLVM module named moduleName and returns its
// textual IR representation.
func Render(pg fir.Program, moduleName string) (string, error) {
	ctx := llvm.NewContext()
	defer ctx.Dispose()
	mod := ctx.NewModule(moduleName)
	defer mod.Dispose()

	mallocFn := llvm.AddFunction(mod, "mymalloc", llvm.FunctionType(llvm.PointerType(llvm.Int8Type(), 0), []llvm.Type{i64}, false))

	funcs := make(map[string]llvm.Value, len(pg.Decls))
	for _, decl := range pg.Decls {
		params := make([]llvm.Type, len(decl.Args))
		for i := range params {
			params[i] = i64
		}
		fn := llvm.AddFunction(mod, sanitize(decl.Id), llvm.FunctionType(i64, params, false))
		funcs[decl.Id] = fn
	}

	for _, decl := range pg.Decls {
		fn := funcs[decl.Id]
		entry := llvm.AddBasicBlock(fn, "entry")
		b := ctx.NewBuilder()
		b.SetInsertPointAtEnd(entry)

		fx := &fnCtx{b: b, fn: fn, env: make(map[string]llvm.Value), funcs: funcs}
		for i, name := range decl.Args {
			fx.env[name] = fn.Param(i)
		}

		v, terminated := fx.transExp(decl.Body, mallocFn)
		if !terminated {
			b.CreateRet(v)
		}
		b.Dispose()
	}

	if verr := llvm.VerifyModule(mod, llvm.ReturnStatusAction); verr != nil {
		return "", util.NewStageInvariant("llvm", verr, "module verification failed")
	}
	return mod.String(), nil
}

// sanitize turns a fir.Recdecl id (which may carry the "$r_"/"$b_"
// fresh-name prefixes) into an LLVM global identifier. LLVM accepts most
// punctuation in a quoted identifier, but AddFunction takes a bare Go
// string that becomes an unquoted @name, so '$' is replaced outright.
func sanitize(id string) string {
	out := make([]byte, len(id))
	for i := 0; i < len(id); i++ {
		if id[i] == '$' {
			out[i] = '_'
		} else {
			out[i] = id[i]
		}
	}
	return string(out)
}

func (fx *fnCtx) resolve(v fir.Value) llvm.Value {
	switch t := v.(type) {
	case fir.Var:
		val, ok := fx.env[t.Id]
		if !ok {
			panic(util.NewStageInvariant("llvm", nil, "variable %q not found in scope", t.Id))
		}
		return val
	case fir.Fun:
		fn, ok := fx.funcs[t.Id]
		if !ok {
			panic(util.NewStageInvariant("llvm", nil, "function %q not declared", t.Id))
		}
		return fx.b.CreateConstBitCast(llvm.ConstPtrToInt(fn, i64), i64, "")
	case fir.Intv:
		return llvm.ConstInt(i64, uint64(t.Val), false)
	default:
		panic(util.NewStageInvariant("llvm", nil, "unhandled fir.Value variant %T", t))
	}
}

// transCexp lowers a Cexp, other than If, into a single SSA value. If is
// the one Cexp variant whose arms are full Exp trees that may themselves
// branch or (in tail position of an enclosing Loop) recur, so it reports
// whether the current block was left terminated by a Recur branch.
func (fx *fnCtx) transCexp(c fir.Cexp, mallocFn llvm.Value) (llvm.Value, bool) {
	switch t := c.(type) {
	case fir.Val:
		return fx.resolve(t.V), false
	case fir.Binop:
		a, b := fx.resolve(t.A), fx.resolve(t.B)
		switch t.Op {
		case ast.Plus:
			return fx.b.CreateAdd(a, b, ""), false
		case ast.Mult:
			return fx.b.CreateMul(a, b, ""), false
		case ast.Lt:
			cmp := fx.b.CreateICmp(llvm.IntSLT, a, b, "")
			return fx.b.CreateZExt(cmp, i64, ""), false
		case ast.Eq:
			cmp := fx.b.CreateICmp(llvm.IntEQ, a, b, "")
			return fx.b.CreateZExt(cmp, i64, ""), false
		default:
			panic(util.NewStageInvariant("llvm", nil, "unhandled Bintype %v", t.Op))
		}
	case fir.App:
		callee := fx.resolve(t.F)
		args := make([]llvm.Value, len(t.Args))
		argTypes := make([]llvm.Type, len(t.Args))
		for i, a := range t.Args {
			args[i] = fx.resolve(a)
			argTypes[i] = i64
		}
		fnTy := llvm.PointerType(llvm.FunctionType(i64, argTypes, false), 0)
		ptr := fx.b.CreateIntToPtr(callee, fnTy, "")
		return fx.b.CreateCall(ptr, args, ""), false
	case fir.If:
		return fx.transIf(t, mallocFn)
	case fir.Tuple:
		size := uint64(8 * len(t.Vals))
		raw := fx.b.CreateCall(mallocFn, []llvm.Value{llvm.ConstInt(i64, size, false)}, "")
		ptr := fx.b.CreateBitCast(raw, llvm.PointerType(i64, 0), "")
		for i, fv := range t.Vals {
			slot := fx.b.CreateGEP(ptr, []llvm.Value{llvm.ConstInt(i64, uint64(i), false)}, "")
			fx.b.CreateStore(fx.resolve(fv), slot)
		}
		return fx.b.CreatePtrToInt(ptr, i64, ""), false
	case fir.Proj:
		base := fx.resolve(t.A)
		ptr := fx.b.CreateIntToPtr(base, llvm.PointerType(i64, 0), "")
		slot := fx.b.CreateGEP(ptr, []llvm.Value{llvm.ConstInt(i64, uint64(t.I), false)}, "")
		return fx.b.CreateLoad(slot, ""), false
	default:
		panic(util.NewStageInvariant("llvm", nil, "unhandled fir.Cexp variant %T", t))
	}
}

func (fx *fnCtx) transIf(t fir.If, mallocFn llvm.Value) (llvm.Value, bool) {
	cond := fx.resolve(t.Cond)
	condBool := fx.b.CreateICmp(llvm.IntNE, cond, llvm.ConstInt(i64, 0, false), "")

	thenBB := llvm.AddBasicBlock(fx.fn, "if.then")
	elseBB := llvm.AddBasicBlock(fx.fn, "if.else")
	mergeBB := llvm.AddBasicBlock(fx.fn, "if.merge")
	fx.b.CreateCondBr(condBool, thenBB, elseBB)

	fx.b.SetInsertPointAtEnd(thenBB)
	thenVal, thenTerm := fx.transExp(t.Then, mallocFn)
	thenEnd := fx.b.GetInsertBlock()
	if !thenTerm {
		fx.b.CreateBr(mergeBB)
	}

	fx.b.SetInsertPointAtEnd(elseBB)
	elseVal, elseTerm := fx.transExp(t.Else, mallocFn)
	elseEnd := fx.b.GetInsertBlock()
	if !elseTerm {
		fx.b.CreateBr(mergeBB)
	}

	if thenTerm && elseTerm {
		mergeBB.EraseFromParent()
		return llvm.ConstInt(i64, 0, false), true
	}

	fx.b.SetInsertPointAtEnd(mergeBB)
	phi := fx.b.CreatePHI(i64, "")
	var incomingVals []llvm.Value
	var incomingBlocks []llvm.BasicBlock
	if !thenTerm {
		incomingVals = append(incomingVals, thenVal)
		incomingBlocks = append(incomingBlocks, thenEnd)
	}
	if !elseTerm {
		incomingVals = append(incomingVals, elseVal)
		incomingBlocks = append(incomingBlocks, elseEnd)
	}
	phi.AddIncoming(incomingVals, incomingBlocks)
	return phi, false
}

// transExp lowers e, returning the value it produces and whether the
// block it leaves the builder positioned in was terminated by a Recur's
// branch back to its loop header (in which case the value is moot -- the
// caller must not emit a ret or a further instruction into that block).
func (fx *fnCtx) transExp(e fir.Exp, mallocFn llvm.Value) (llvm.Value, bool) {
	switch t := e.(type) {
	case fir.Compexp:
		return fx.transCexp(t.C, mallocFn)
	case fir.Let:
		v, term := fx.transCexp(t.C, mallocFn)
		if term {
			return v, true
		}
		fx.env[t.Id] = v
		return fx.transExp(t.Body, mallocFn)
	case fir.Loop:
		v, term := fx.transCexp(t.C, mallocFn)
		if term {
			return v, true
		}
		pred := fx.b.GetInsertBlock()
		header := llvm.AddBasicBlock(fx.fn, "loop.header")
		fx.b.CreateBr(header)
		fx.b.SetInsertPointAtEnd(header)
		phi := fx.b.CreatePHI(i64, "loop.var")
		phi.AddIncoming([]llvm.Value{v}, []llvm.BasicBlock{pred})
		fx.env[t.Id] = phi
		fx.pushLoop(loopFrame{header: header, phi: phi})
		bodyVal, bodyTerm := fx.transExp(t.Body, mallocFn)
		fx.popLoop()
		return bodyVal, bodyTerm
	case fir.Recur:
		v := fx.resolve(t.V)
		frame := fx.topLoop()
		cur := fx.b.GetInsertBlock()
		fx.b.CreateBr(frame.header)
		frame.phi.AddIncoming([]llvm.Value{v}, []llvm.BasicBlock{cur})
		return v, true
	default:
		panic(util.NewStageInvariant("llvm", nil, "unhandled fir.Exp variant %T", t))
	}
}
