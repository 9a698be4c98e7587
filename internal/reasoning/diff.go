package reasoning

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const maxDiffLines = 5

// DiffSummary lists the first few removed and added lines between two
// versions of an article, with a trailing "..." when more were cut.
func DiffSummary(oldText, newText string) string {
	a := strings.Split(oldText, "\n")
	b := strings.Split(newText, "\n")

	var changes []string
	matcher := difflib.NewMatcher(a, b)
	for _, op := range matcher.GetOpCodes() {
		switch op.Tag {
		case 'r':
			changes = appendPrefixed(changes, "Removed: ", a[op.I1:op.I2])
			changes = appendPrefixed(changes, "Added: ", b[op.J1:op.J2])
		case 'd':
			changes = appendPrefixed(changes, "Removed: ", a[op.I1:op.I2])
		case 'i':
			changes = appendPrefixed(changes, "Added: ", b[op.J1:op.J2])
		}
	}

	if len(changes) <= maxDiffLines {
		return strings.Join(changes, "\n")
	}
	return strings.Join(changes[:maxDiffLines], "\n") + "\n..."
}

func appendPrefixed(dst []string, prefix string, lines []string) []string {
	for _, l := range lines {
		dst = append(dst, prefix+l)
	}
	return dst
}
