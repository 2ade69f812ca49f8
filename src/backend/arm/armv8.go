package arm

import (
	"os"
	"strings"
	"sync"

	"loopc/src/ir/vir"
	"loopc/src/util"
)

// Emit writes AArch64 assembly for pg to out (or stdout if out is nil),
// one goroutine per Decl. Each goroutine renders its own function body
// into a private strings.Builder and flushes it through a util.Writer to
// a shared listener goroutine that serializes writes to the destination;
// Decls therefore interleave in arrival order, not declaration order,
// which is harmless since every cross-function reference goes through a
// Label, not position in the file.
//
// genDecl panics on an ill-formed Decl (a stage-invariant violation, per
// util.NewStageInvariant), and an unrecovered panic in a worker goroutine
// would take the whole process down without saying which Decl it came
// from. Each goroutine recovers its own panic and reports it through a
// util.Perror instead, the way the teacher collects errors out of its own
// parallel codegen workers; reporter receives every one once all Decls
// have finished, and Emit returns the first as an ordinary error.
func Emit(pg *vir.Program, out *os.File, reporter *util.Reporter) error {
	var wg sync.WaitGroup
	util.ListenWrite(len(pg.Decls), out, &wg)
	defer util.Close()

	header := util.NewWriter()
	header.WriteString(".text\n")
	header.WriteString("\t.global _toplevel\n")
	header.Close()

	pe := util.NewPerror(len(pg.Decls))
	var ewg sync.WaitGroup
	for i := range pg.Decls {
		ewg.Add(1)
		go func(decl *vir.Decl) {
			defer ewg.Done()
			w := util.NewWriter()
			defer w.Close()
			defer func() {
				if r := recover(); r != nil {
					ce, ok := r.(*util.CompileError)
					if !ok {
						ce = util.NewStageInvariant("arm", nil, "%v", r)
					}
					pe.Append(ce)
					return
				}
			}()
			var sb strings.Builder
			genDecl(&sb, decl)
			w.WriteString(sb.String())
		}(&pg.Decls[i])
	}
	ewg.Wait()
	pe.Stop()

	var first error
	for err := range pe.Errors() {
		if reporter != nil {
			reporter.Report(err.(*util.CompileError))
		}
		if first == nil {
			first = err
		}
	}
	wg.Wait()
	return first
}
