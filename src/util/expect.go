// expect.go implements the EXPECT(...) self-checking directive: a source
// file beginning with "EXPECT(<expr> => <int>)" is rewritten into a program
// that exits 0 on success and the unexpected value otherwise, letting a test
// harness check a single exit code rather than parsing output.

package util

import (
	"fmt"
	"regexp"
	"strings"
)

var expectPattern = regexp.MustCompile(`(?s)\AEXPECT\((.*)=>\s*(-?\d+)\s*\)`)

// RewriteExpect rewrites a leading "EXPECT(<expr> => <int>)" into
// "let pg = <expr> in if pg == <int> then 0 else pg ;;". Source with no
// leading EXPECT directive is returned unchanged.
func RewriteExpect(src string) string {
	m := expectPattern.FindStringSubmatch(src)
	if m == nil {
		return src
	}
	expr := strings.TrimSpace(m[1])
	want := m[2]
	rest := src[len(m[0]):]
	rewritten := fmt.Sprintf("let pg = %s in if pg == %s then 0 else pg ;;", expr, want)
	return rewritten + rest
}
