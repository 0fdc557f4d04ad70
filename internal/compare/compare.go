// Package compare diffs two program outputs line by line.
package compare

import "strings"

// Missing stands in for a line past the end of the shorter output. A missing
// line never equals a real one, even a real line that reads "<missing>".
const Missing = "<missing>"

// Diff is one differing line. Line is 0-based.
type Diff struct {
	Line int    `json:"line"`
	A    string `json:"a"`
	B    string `json:"b"`
}

type Verdict struct {
	Equal bool
	Diffs []Diff
}

// First returns the first differing line, if any.
func (v Verdict) First() (Diff, bool) {
	if len(v.Diffs) == 0 {
		return Diff{}, false
	}
	return v.Diffs[0], true
}

// Lines compares a and b after stripping carriage returns. With stopOnFirst
// the walk ends at the first difference; otherwise every differing line is
// reported.
func Lines(a, b string, stopOnFirst bool) Verdict {
	linesA := split(a)
	linesB := split(b)

	verdict := Verdict{Equal: true}
	for i := 0; i < max(len(linesA), len(linesB)); i++ {
		lineA, okA := at(linesA, i)
		lineB, okB := at(linesB, i)
		if okA && okB && lineA == lineB {
			continue
		}
		verdict.Equal = false
		verdict.Diffs = append(verdict.Diffs, Diff{Line: i, A: lineA, B: lineB})
		if stopOnFirst {
			break
		}
	}
	return verdict
}

func split(s string) []string {
	return strings.Split(strings.ReplaceAll(s, "\r", ""), "\n")
}

func at(lines []string, i int) (string, bool) {
	if i < len(lines) {
		return lines[i], true
	}
	return Missing, false
}
