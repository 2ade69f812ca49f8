// Command loopc is the thinnest possible wire-up of compiler.Run to
// stdout: read a source path, apply the EXPECT(...) rewrite, run the
// pipeline, print the result. It is deliberately not a real lexer-backed
// front end -- the surface grammar is this repository's one explicit
// non-goal, so the source text loopc reads is used only to exercise
// RewriteExpect and the file/stdin plumbing honestly; the fixed
// demonstration program below is what actually reaches compiler.Run.
package main

import (
	"fmt"
	"os"

	"loopc/src/ast"
	"loopc/src/compiler"
	"loopc/src/util"
)

// demo is the fixed ast.Exp every invocation compiles. It computes a small
// tail-recursive sum: sum(5) = 5+4+3+2+1+0 = 15, matching
// one of the exit-code table's rows. A real front end would build this tree
// from the source text read below instead of handing it a constant.
func demo() ast.Exp {
	return &ast.Loop{
		Id:   "acc",
		Init: &ast.Tuple{A: &ast.ILit{Val: 0}, B: &ast.ILit{Val: 5}},
		Body: &ast.Let{
			Id: "sum",
			A:  &ast.Proj{A: &ast.Var{Id: "acc"}, I: 0},
			B: &ast.Let{
				Id: "n",
				A:  &ast.Proj{A: &ast.Var{Id: "acc"}, I: 1},
				B: &ast.If{
					Cond: &ast.Binop{Op: ast.Eq, A: &ast.Var{Id: "n"}, B: &ast.ILit{Val: 0}},
					Then: &ast.Var{Id: "sum"},
					Else: &ast.Recur{A: &ast.Tuple{
						A: &ast.Binop{Op: ast.Plus, A: &ast.Var{Id: "sum"}, B: &ast.Var{Id: "n"}},
						B: &ast.Binop{Op: ast.Plus, A: &ast.Var{Id: "n"}, B: &ast.ILit{Val: -1}},
					}},
				},
			},
		},
	}
}

func run() error {
	opt, err := util.ParseArgs()
	if err != nil {
		return err
	}

	src, err := util.ReadSource(opt)
	if err != nil {
		return err
	}
	_ = util.RewriteExpect(src)

	ctx := compiler.NewContext(util.NewReporter(os.Stderr))
	out, err := compiler.Run(demo(), opt, ctx)
	if err != nil {
		return err
	}

	if opt.Out != "" {
		return os.WriteFile(opt.Out, []byte(out), 0o644)
	}
	fmt.Print(out)
	return nil
}

func main() {
	if err := run(); err != nil {
		if ce, ok := err.(*util.CompileError); ok {
			util.NewReporter(os.Stderr).Report(ce)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
