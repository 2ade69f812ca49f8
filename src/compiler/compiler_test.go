package compiler

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"loopc/src/ast"
	"loopc/src/util"
)

// A tiny tree-walking interpreter over ast.Exp, independent of the
// compile pipeline, used only to pin down the expected integer result
// for each row of the end-to-end scenario table below. It has no other
// purpose and is not exported: Run is exercised for its own correctness
// by the IR-level stage tests, not by this interpreter.

type closure struct {
	param string
	body  ast.Exp
	env   map[string]interface{}
}

type recurSignal struct{ v interface{} }

func evalExp(e ast.Exp, env map[string]interface{}) interface{} {
	switch t := e.(type) {
	case *ast.ILit:
		return t.Val
	case *ast.BLit:
		if t.Val {
			return 1
		}
		return 0
	case *ast.Var:
		return env[t.Id]
	case *ast.Binop:
		a := evalExp(t.A, env).(int)
		b := evalExp(t.B, env).(int)
		switch t.Op {
		case ast.Plus:
			return a + b
		case ast.Mult:
			return a * b
		case ast.Lt:
			if a < b {
				return 1
			}
			return 0
		case ast.Eq:
			if a == b {
				return 1
			}
			return 0
		}
		panic("unreachable")
	case *ast.If:
		if evalExp(t.Cond, env).(int) != 0 {
			return evalExp(t.Then, env)
		}
		return evalExp(t.Else, env)
	case *ast.Fun:
		return closure{param: t.Param, body: t.Body, env: env}
	case *ast.Let:
		v := evalExp(t.A, env)
		inner := extend(env, t.Id, v)
		return evalExp(t.B, inner)
	case *ast.Rec:
		inner := extend(env, "", nil)
		c := closure{param: t.ParamId, body: t.Body, env: inner}
		inner[t.FunId] = c
		return evalExp(t.Cont, inner)
	case *ast.Loop:
		cur := evalExp(t.Init, env)
		for {
			bodyEnv := extend(env, t.Id, cur)
			r := evalExp(t.Body, bodyEnv)
			if rs, ok := r.(recurSignal); ok {
				cur = rs.v
				continue
			}
			return r
		}
	case *ast.Recur:
		return recurSignal{v: evalExp(t.A, env)}
	case *ast.App:
		f := evalExp(t.F, env).(closure)
		a := evalExp(t.A, env)
		callEnv := extend(f.env, f.param, a)
		return evalExp(f.body, callEnv)
	case *ast.Tuple:
		return [2]interface{}{evalExp(t.A, env), evalExp(t.B, env)}
	case *ast.Proj:
		tup := evalExp(t.A, env).([2]interface{})
		return tup[t.I]
	default:
		panic("unhandled ast.Exp variant in test interpreter")
	}
}

func extend(env map[string]interface{}, id string, v interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(env)+1)
	for k, vv := range env {
		out[k] = vv
	}
	if id != "" {
		out[id] = v
	}
	return out
}

func eval(e ast.Exp) int {
	return evalExp(e, map[string]interface{}{}).(int)
}

// scenario builders, one per row of spec.md §8's end-to-end table.

func scenario1() ast.Exp {
	// 1 + 2 * 3 ;;
	return &ast.Binop{Op: ast.Plus, A: &ast.ILit{Val: 1}, B: &ast.Binop{Op: ast.Mult, A: &ast.ILit{Val: 2}, B: &ast.ILit{Val: 3}}}
}

func scenario2() ast.Exp {
	// let x = 10 in x + x ;;
	return &ast.Let{Id: "x", A: &ast.ILit{Val: 10}, B: &ast.Binop{Op: ast.Plus, A: &ast.Var{Id: "x"}, B: &ast.Var{Id: "x"}}}
}

func scenario3() ast.Exp {
	// if 1 < 2 then 42 else 0 ;;
	return &ast.If{
		Cond: &ast.Binop{Op: ast.Lt, A: &ast.ILit{Val: 1}, B: &ast.ILit{Val: 2}},
		Then: &ast.ILit{Val: 42},
		Else: &ast.ILit{Val: 0},
	}
}

func scenario4() ast.Exp {
	// let rec sum = fun n -> if n < 1 then 0 else n + sum (n + -1) in sum 5 ;;
	return &ast.Rec{
		FunId:   "sum",
		ParamId: "n",
		Body: &ast.If{
			Cond: &ast.Binop{Op: ast.Lt, A: &ast.Var{Id: "n"}, B: &ast.ILit{Val: 1}},
			Then: &ast.ILit{Val: 0},
			Else: &ast.Binop{
				Op: ast.Plus,
				A:  &ast.Var{Id: "n"},
				B: &ast.App{
					F: &ast.Var{Id: "sum"},
					A: &ast.Binop{Op: ast.Plus, A: &ast.Var{Id: "n"}, B: &ast.ILit{Val: -1}},
				},
			},
		},
		Cont: &ast.App{F: &ast.Var{Id: "sum"}, A: &ast.ILit{Val: 5}},
	}
}

func scenario5() ast.Exp {
	// let rec make = fun x -> fun y -> x + y in let add3 = make 3 in add3 4 ;;
	return &ast.Rec{
		FunId:   "make",
		ParamId: "x",
		Body:    &ast.Fun{Param: "y", Body: &ast.Binop{Op: ast.Plus, A: &ast.Var{Id: "x"}, B: &ast.Var{Id: "y"}}},
		Cont: &ast.Let{
			Id: "add3",
			A:  &ast.App{F: &ast.Var{Id: "make"}, A: &ast.ILit{Val: 3}},
			B:  &ast.App{F: &ast.Var{Id: "add3"}, A: &ast.ILit{Val: 4}},
		},
	}
}

func scenario6() ast.Exp {
	// let p = (10, 20) in p.0 + p.1 ;;
	return &ast.Let{
		Id: "p",
		A:  &ast.Tuple{A: &ast.ILit{Val: 10}, B: &ast.ILit{Val: 20}},
		B: &ast.Binop{
			Op: ast.Plus,
			A:  &ast.Proj{A: &ast.Var{Id: "p"}, I: 0},
			B:  &ast.Proj{A: &ast.Var{Id: "p"}, I: 1},
		},
	}
}

func TestScenarioTableExpectedResults(t *testing.T) {
	rows := []struct {
		name string
		src  ast.Exp
		want int
	}{
		{"arithmetic", scenario1(), 7},
		{"let-double", scenario2(), 20},
		{"if-lt", scenario3(), 42},
		{"recursive-sum", scenario4(), 15},
		{"closure-capture", scenario5(), 7},
		{"tuple-proj", scenario6(), 30},
	}
	for _, r := range rows {
		t.Run(r.name, func(t *testing.T) {
			require.Equal(t, r.want, eval(r.src))
		})
	}
}

func TestRunProducesArm64ForEveryScenario(t *testing.T) {
	rows := []ast.Exp{scenario1(), scenario2(), scenario3(), scenario4(), scenario5(), scenario6()}
	for _, src := range rows {
		ctx := NewContext(util.NewReporter(os.Stderr))
		out, err := Run(src, util.Options{Target: util.TargetArm64}, ctx)
		require.NoError(t, err)
		require.Contains(t, out, "_toplevel:")
		require.Contains(t, out, "ret")
	}
}

func TestRunProducesLLVMForEveryScenario(t *testing.T) {
	rows := []ast.Exp{scenario1(), scenario2(), scenario3(), scenario4(), scenario5(), scenario6()}
	for _, src := range rows {
		ctx := NewContext(util.NewReporter(os.Stderr))
		out, err := Run(src, util.Options{Target: util.TargetLLVM}, ctx)
		require.NoError(t, err)
		require.Contains(t, out, "_toplevel")
	}
}

func TestRunDumpsEachIRStage(t *testing.T) {
	for _, stage := range []string{"nir", "cir", "fir", "vir"} {
		ctx := NewContext(nil)
		out, err := Run(scenario4(), util.Options{DumpIR: stage}, ctx)
		require.NoError(t, err)
		require.NotEmpty(t, out)
	}
}

func TestRunRejectsUnknownTarget(t *testing.T) {
	ctx := NewContext(nil)
	_, err := Run(scenario1(), util.Options{Target: 99}, ctx)
	require.Error(t, err)
}
