// Package testcase defines the unit of input fed to both targets and the
// sources that produce it.
package testcase

import (
	"context"
	"strings"
)

// TestCase is immutable once produced. Input is written verbatim to both
// targets' stdin; Label is only used in diagnostics and failure artifacts.
type TestCase struct {
	Input string
	Label string
}

// Generator produces one test case per call. Implementations may keep state
// across calls.
type Generator interface {
	Generate(ctx context.Context) (TestCase, error)
}

// FromLabeled builds a test case from a labeled transcript whose lines look
// like "[source] text". The tags are stripped to form the input, blank lines
// are dropped, and the transcript itself becomes the label.
func FromLabeled(transcript string) TestCase {
	transcript = strings.ReplaceAll(transcript, "\r", "")

	var input strings.Builder
	for _, line := range strings.Split(transcript, "\n") {
		if line == "" {
			continue
		}
		if idx := strings.Index(line, "] "); idx >= 0 {
			line = line[idx+2:]
		}
		input.WriteString(line)
		input.WriteByte('\n')
	}

	return TestCase{
		Input: strings.TrimRight(input.String(), " \t\n"),
		Label: transcript,
	}
}

// Source hands out the test case for a 1-based trial index: predefined cases
// first, then the generator once the predefined list runs out.
type Source struct {
	predefined []TestCase
	generator  Generator
}

func NewSource(predefined []TestCase, generator Generator) *Source {
	return &Source{predefined: predefined, generator: generator}
}

func (s *Source) Get(ctx context.Context, index int) (TestCase, error) {
	if index >= 1 && index <= len(s.predefined) {
		return s.predefined[index-1], nil
	}
	return s.generator.Generate(ctx)
}
