package testcase

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Delimiter separates test cases in a predefined-tests file.
const Delimiter = "---"

var ErrNoTests = errors.New("predefined tests file contains no tests, expected '---' delimiters")

// LoadFile reads predefined test cases from path.
func LoadFile(path string) ([]TestCase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open predefined tests %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	tests, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load predefined tests %s: %w", path, err)
	}
	return tests, nil
}

// Parse splits r into test cases on lines equal to Delimiter (ignoring
// trailing whitespace). Empty sections are skipped.
func Parse(r io.Reader) ([]TestCase, error) {
	var (
		tests   []TestCase
		current strings.Builder
	)

	flush := func() {
		if current.Len() == 0 {
			return
		}
		tests = append(tests, TestCase{
			Input: strings.TrimRight(current.String(), " \t\r\n"),
			Label: fmt.Sprintf("Predefined test #%d", len(tests)+1),
		})
		current.Reset()
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimRight(line, " \t\r") == Delimiter {
			flush()
			continue
		}
		current.WriteString(line)
		current.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()

	if len(tests) == 0 {
		return nil, ErrNoTests
	}
	return tests, nil
}
