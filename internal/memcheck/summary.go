package memcheck

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind classifies one checker summary line.
type Kind int

const (
	KindNone Kind = iota
	KindOther
	KindPossibleLeak
	KindDefiniteLeak
)

func (k Kind) String() string {
	switch k {
	case KindOther:
		return "other"
	case KindPossibleLeak:
		return "possible leak"
	case KindDefiniteLeak:
		return "definite leak"
	default:
		return "none"
	}
}

var summaryLine = regexp.MustCompile(`(?i)\s*\d+\s+unique,\s+(\d+)\s+total.*(unaddressable|uninitialized|leak|possible leak)`)

// Classify reports what a single line of checker output describes. Lines
// that do not match the summary pattern, or whose total count is zero, are
// KindNone.
func Classify(line string) Kind {
	m := summaryLine.FindStringSubmatch(line)
	if m == nil {
		return KindNone
	}
	total, err := strconv.Atoi(m[1])
	if err != nil || total == 0 {
		return KindNone
	}
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "possible leak"):
		return KindPossibleLeak
	case strings.Contains(lower, "leak"):
		return KindDefiniteLeak
	default:
		return KindOther
	}
}

// SummaryLines returns every qualifying summary line of a checker report,
// trimmed, in report order.
func SummaryLines(report string) []string {
	var lines []string
	for _, line := range strings.Split(report, "\n") {
		if Classify(line) != KindNone {
			lines = append(lines, strings.TrimSpace(line))
		}
	}
	return lines
}

// DefiniteLeaks filters summary lines down to definite leaks.
func DefiniteLeaks(summary []string) []string {
	var leaks []string
	for _, line := range summary {
		if Classify(line) == KindDefiniteLeak {
			leaks = append(leaks, line)
		}
	}
	return leaks
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
