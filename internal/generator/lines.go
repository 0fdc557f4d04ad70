package generator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/zinc-sig/tandem/internal/testcase"
)

// Lines produces a random number of lines of random lowercase words.
type Lines struct {
	opts  Options
	rng   *rand.Rand
	count int
}

func NewLines(opts Options) (*Lines, error) {
	if err := validateBounds(opts); err != nil {
		return nil, err
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Lines{opts: opts, rng: rand.New(rand.NewSource(seed))}, nil
}

func (g *Lines) Generate(ctx context.Context) (testcase.TestCase, error) {
	if err := ctx.Err(); err != nil {
		return testcase.TestCase{}, err
	}
	g.count++
	return testcase.TestCase{
		Input: strings.Join(g.lines(), "\n"),
		Label: fmt.Sprintf("Random lines #%d", g.count),
	}, nil
}

func (g *Lines) lines() []string {
	n := g.between(g.opts.MinLines, g.opts.MaxLines)
	lines := make([]string, n)
	for i := range lines {
		words := make([]string, g.between(1, g.opts.MaxWords))
		for j := range words {
			words[j] = g.word()
		}
		lines[i] = strings.Join(words, " ")
	}
	return lines
}

func (g *Lines) word() string {
	n := g.between(g.opts.MinWordLen, g.opts.MaxWordLen)
	b := make([]byte, n)
	for i := range b {
		b[i] = g.opts.Alphabet[g.rng.Intn(len(g.opts.Alphabet))]
	}
	return string(b)
}

// between returns a value in [lo, hi].
func (g *Lines) between(lo, hi int) int {
	return lo + g.rng.Intn(hi-lo+1)
}

func validateBounds(opts Options) error {
	switch {
	case opts.MinLines < 1 || opts.MaxLines < opts.MinLines:
		return fmt.Errorf("invalid line bounds [%d, %d]", opts.MinLines, opts.MaxLines)
	case opts.MaxWords < 1:
		return fmt.Errorf("invalid max words %d", opts.MaxWords)
	case opts.MinWordLen < 1 || opts.MaxWordLen < opts.MinWordLen:
		return fmt.Errorf("invalid word length bounds [%d, %d]", opts.MinWordLen, opts.MaxWordLen)
	case opts.Alphabet == "":
		return errors.New("alphabet must not be empty")
	}
	return nil
}

// Labeled wraps Lines and emits each line with a "[lines] " source tag, so
// the test case carries the tagged transcript as its label.
type Labeled struct {
	lines *Lines
}

func NewLabeled(opts Options) (*Labeled, error) {
	lines, err := NewLines(opts)
	if err != nil {
		return nil, err
	}
	return &Labeled{lines: lines}, nil
}

func (g *Labeled) Generate(ctx context.Context) (testcase.TestCase, error) {
	if err := ctx.Err(); err != nil {
		return testcase.TestCase{}, err
	}
	var transcript strings.Builder
	for _, line := range g.lines.lines() {
		transcript.WriteString("[lines] ")
		transcript.WriteString(line)
		transcript.WriteByte('\n')
	}
	return testcase.FromLabeled(transcript.String()), nil
}
