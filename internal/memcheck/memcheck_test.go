package memcheck

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zinc-sig/tandem/internal/procreg"
	"github.com/zinc-sig/tandem/internal/runner"
)

const fakeChecker = `#!/bin/sh
while [ "$#" -gt 0 ] && [ "$1" != "--" ]; do shift; done
shift
"$@"
status=$?
echo "ERRORS FOUND:" >&2
echo "      0 unique,     0 total unaddressable access(es)" >&2
echo "      3 unique,     5 total,    120 byte(s) of leak(s)" >&2
echo "      1 unique,     2 total,     16 byte(s) of possible leak(s)" >&2
exit $status
`

const cleanChecker = `#!/bin/sh
while [ "$#" -gt 0 ] && [ "$1" != "--" ]; do shift; done
shift
exec "$@"
`

func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0755))
	return path
}

func newExecutor(t *testing.T) *runner.Executor {
	t.Helper()
	registry := procreg.New(nil)
	t.Cleanup(registry.KillAll)
	return runner.NewExecutor(registry, nil)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		line string
		want Kind
	}{
		{"3 unique, 5 total ... leak", KindDefiniteLeak},
		{"2 unique, 0 total ... possible leak", KindNone},
		{"1 unique, 2 total ... possible leak", KindPossibleLeak},
		{"      3 unique,     5 total,    120 byte(s) of leak(s)", KindDefiniteLeak},
		{"      1 unique,     1 total uninitialized access(es)", KindOther},
		{"      2 UNIQUE,     4 TOTAL unaddressable access(es)", KindOther},
		{"      0 unique,     0 total unaddressable access(es)", KindNone},
		{"ERRORS FOUND:", KindNone},
		{"", KindNone},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.line))
		})
	}
}

func TestSummaryLinesAndDefiniteLeaks(t *testing.T) {
	report := "Dr. Memory version 2.6\r\n" +
		"ERRORS FOUND:\n" +
		"      0 unique,     0 total unaddressable access(es)\n" +
		"      1 unique,     3 total uninitialized access(es)\n" +
		"      3 unique,     5 total,    120 byte(s) of leak(s)\n" +
		"      1 unique,     2 total,     16 byte(s) of possible leak(s)\n"

	summary := SummaryLines(report)
	assert.Equal(t, []string{
		"1 unique,     3 total uninitialized access(es)",
		"3 unique,     5 total,    120 byte(s) of leak(s)",
		"1 unique,     2 total,     16 byte(s) of possible leak(s)",
	}, summary)

	assert.Equal(t, []string{"3 unique,     5 total,    120 byte(s) of leak(s)"}, DefiniteLeaks(summary))
	assert.Empty(t, DefiniteLeaks(nil))
}

func TestTimeout(t *testing.T) {
	tests := []struct {
		elapsed time.Duration
		want    time.Duration
	}{
		{0, 2 * time.Second},
		{-5 * time.Millisecond, 2 * time.Second},
		{50 * time.Millisecond, 2 * time.Second},
		{100 * time.Millisecond, 2 * time.Second},
		{150 * time.Millisecond, 2500 * time.Millisecond},
		{1 * time.Second, 11 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Timeout(tt.elapsed), "elapsed %v", tt.elapsed)
	}
}

func TestRunFindsDefiniteLeaks(t *testing.T) {
	checkerPath := writeScript(t, "checker.sh", fakeChecker)
	checker := NewChecker(newExecutor(t), checkerPath, nil)

	result := checker.Run(context.Background(), &Config{
		Target:  "cat",
		Input:   "payload",
		Timeout: 5 * time.Second,
		Enabled: true,
	})

	assert.False(t, result.TimedOut)
	assert.True(t, result.HasErrors)
	assert.Contains(t, result.RawOutput, "payload\n")
	assert.Len(t, result.Summary, 2)
	assert.Equal(t, []string{"3 unique,     5 total,    120 byte(s) of leak(s)"}, result.LeakLines)
	assert.True(t, result.HasDefiniteLeaks())
	assert.Equal(t, checkerPath+" -batch -- cat", result.Execution.Command)
}

func TestRunPassesTargetArguments(t *testing.T) {
	checkerPath := writeScript(t, "checker.sh", cleanChecker)
	checker := NewChecker(newExecutor(t), checkerPath, []string{"-quiet", "-batch"})

	result := checker.Run(context.Background(), &Config{
		Target:  "echo",
		Args:    []string{"1000", "10"},
		Timeout: 5 * time.Second,
		Enabled: true,
	})

	assert.Equal(t, checkerPath+" -quiet -batch -- echo 1000 10", result.Execution.Command)
	assert.Contains(t, result.RawOutput, "1000 10")
	assert.Empty(t, result.Summary)
	assert.False(t, result.HasDefiniteLeaks())
	assert.False(t, result.Failed(), "target output alone is not a checker failure")
}

func TestRunCheckerTimeout(t *testing.T) {
	checkerPath := writeScript(t, "checker.sh", "#!/bin/sh\nsleep 5\n")
	checker := NewChecker(newExecutor(t), checkerPath, nil)

	start := time.Now()
	result := checker.Run(context.Background(), &Config{
		Target:  "cat",
		Timeout: 100 * time.Millisecond,
		Enabled: true,
	})

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, result.TimedOut)
	assert.True(t, result.HasErrors)
	assert.Equal(t, "memory checker exceeded timeout (100 ms)", result.ErrorDetails)
	assert.Empty(t, result.LeakLines)
}

func TestRunMissingChecker(t *testing.T) {
	checker := NewChecker(newExecutor(t), filepath.Join(t.TempDir(), "missing"), nil)

	result := checker.Run(context.Background(), &Config{Target: "cat", Enabled: true})

	assert.True(t, result.HasErrors)
	assert.Contains(t, result.ErrorDetails, "[ERROR: ")
	assert.False(t, result.HasDefiniteLeaks())
	assert.True(t, result.Failed())
}

func TestRunCrashedChecker(t *testing.T) {
	checker := NewChecker(newExecutor(t), writeScript(t, "checker.sh", "#!/bin/sh\necho 'checker aborted' >&2\nexit 3\n"), nil)

	result := checker.Run(context.Background(), &Config{Target: "cat", Timeout: 5 * time.Second, Enabled: true})

	assert.True(t, result.Failed())
	assert.Contains(t, result.ErrorDetails, "checker aborted")
}

func TestRunDisabledDelegatesToTarget(t *testing.T) {
	checker := NewChecker(newExecutor(t), "/nonexistent/checker", nil)

	result := checker.Run(context.Background(), &Config{
		Target:  "cat",
		Input:   "plain",
		Enabled: false,
	})

	assert.False(t, result.HasErrors)
	assert.Equal(t, "plain\n", result.RawOutput)
	assert.Equal(t, "cat", result.Execution.Command)
}
