// args.go parses the thin command line this repository exposes. File I/O
// and a real CLI are external-collaborator concerns; this only covers the
// handful of flags the pipeline itself reads (output path, which IR stage
// to dump, which backend to target).

package util

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Options holds the parsed command line configuration for one compile.
type Options struct {
	Src      string // Path to source file.
	Out      string // Path to output file; empty means stdout.
	DumpIR   string // Non-empty: pretty-print this stage's IR and stop ("nir", "cir", "fir", "vir").
	Target   int    // Output backend target.
	Verbose  bool   // Log run metadata (ksuid run id, timings) to stderr.
}

// ---------------------
// ----- Constants -----
// ---------------------

const appVersion = "loopc 1.0"

// Output backend targets.
const (
	TargetArm64 = iota
	TargetLLVM
)

// ---------------------
// ----- functions -----
// ---------------------

// ParseArgs parses command line arguments.
func ParseArgs() (Options, error) {
	opt := Options{Target: TargetArm64}
	if len(os.Args) < 2 {
		return opt, nil
	}
	args := os.Args[1:]
	for i1 := 0; i1 < len(args)-1; i1++ {
		switch args[i1] {
		case "-h", "--h", "-help", "--help":
			printHelp()
			os.Exit(0)
		case "-o":
			if i1+1 >= len(args) {
				return opt, fmt.Errorf("got flag %s but no argument", args[i1])
			}
			if strings.HasPrefix(args[i1+1], "-") {
				return opt, fmt.Errorf("expected path to output file, got new flag %s", args[i1+1])
			}
			opt.Out = args[i1+1]
			i1++
		case "-dump-ir":
			if i1+1 >= len(args) {
				return opt, fmt.Errorf("got flag %s but no argument", args[i1])
			}
			switch args[i1+1] {
			case "nir", "cir", "fir", "vir":
				opt.DumpIR = args[i1+1]
			default:
				return opt, fmt.Errorf("unexpected IR stage identifier: %s", args[i1+1])
			}
			i1++
		case "-target":
			if i1+1 >= len(args) {
				return opt, fmt.Errorf("got flag %s but no argument", args[i1])
			}
			switch args[i1+1] {
			case "arm64":
				opt.Target = TargetArm64
			case "llvm":
				opt.Target = TargetLLVM
			default:
				return opt, fmt.Errorf("unexpected target identifier: %s", args[i1+1])
			}
			i1++
		case "-v", "--v", "-version", "--version":
			fmt.Println(appVersion)
			os.Exit(0)
		case "-vb":
			opt.Verbose = true
		default:
			return opt, fmt.Errorf("unexpected flag: %s", args[i1])
		}
	}
	if len(args) > 0 {
		opt.Src = args[len(args)-1]
	}
	return opt, nil
}

// printHelp prints a helpful usage message to stdout.
func printHelp() {
	w := tabwriter.NewWriter(os.Stdout, 6, 1, 1, 0, 0)
	_, _ = fmt.Fprintln(w, "-h, -help\tPrints this help message and exits the application.")
	_, _ = fmt.Fprintln(w, "--h, --help")
	_, _ = fmt.Fprintln(w, "-o\tPath and name of the output file. Defaults to stdout.")
	_, _ = fmt.Fprintln(w, "-dump-ir\tPretty-print the given stage (nir, cir, fir, vir) and exit instead of emitting assembly.")
	_, _ = fmt.Fprintln(w, "-target\tOutput backend. Either 'arm64' (default) or 'llvm'.")
	_, _ = fmt.Fprintln(w, "-v, -version\tPrints application version and exits the application.")
	_, _ = fmt.Fprintln(w, "--v, --version")
	_, _ = fmt.Fprintln(w, "-vb\tVerbose mode: print a run identifier and timing to stderr.")
	_ = w.Flush()
}
