package testcase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromLabeled(t *testing.T) {
	tests := []struct {
		name       string
		transcript string
		wantInput  string
	}{
		{
			name:       "strips tags",
			transcript: "[gen] hello\n[gen] world\n",
			wantInput:  "hello\nworld",
		},
		{
			name:       "untagged lines kept",
			transcript: "plain\n[x] tagged",
			wantInput:  "plain\ntagged",
		},
		{
			name:       "blank lines dropped",
			transcript: "[a] 1\n\n\n[b] 2\n",
			wantInput:  "1\n2",
		},
		{
			name:       "carriage returns removed",
			transcript: "[a] 1\r\n[a] 2\r\n",
			wantInput:  "1\n2",
		},
		{
			name:       "empty transcript",
			transcript: "",
			wantInput:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := FromLabeled(tt.transcript)
			assert.Equal(t, tt.wantInput, tc.Input)
			assert.Equal(t, strings.ReplaceAll(tt.transcript, "\r", ""), tc.Label)
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []TestCase
		wantErr error
	}{
		{
			name:    "two cases",
			content: "1 2\n3 4\n---\n5 6\n---\n",
			want: []TestCase{
				{Input: "1 2\n3 4", Label: "Predefined test #1"},
				{Input: "5 6", Label: "Predefined test #2"},
			},
		},
		{
			name:    "trailing case without delimiter",
			content: "a\n---\nb  \n\n",
			want: []TestCase{
				{Input: "a", Label: "Predefined test #1"},
				{Input: "b", Label: "Predefined test #2"},
			},
		},
		{
			name:    "delimiter with trailing whitespace and CRLF",
			content: "a\r\n--- \r\nb\r\n",
			want: []TestCase{
				{Input: "a", Label: "Predefined test #1"},
				{Input: "b", Label: "Predefined test #2"},
			},
		},
		{
			name:    "consecutive delimiters skip empty sections",
			content: "---\n---\nonly\n---\n",
			want: []TestCase{
				{Input: "only", Label: "Predefined test #1"},
			},
		},
		{
			name:    "leading whitespace preserved",
			content: "  indented\n---\n",
			want: []TestCase{
				{Input: "  indented", Label: "Predefined test #1"},
			},
		},
		{
			name:    "no tests",
			content: "",
			wantErr: ErrNoTests,
		},
		{
			name:    "only delimiters",
			content: "---\n---\n",
			wantErr: ErrNoTests,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(strings.NewReader(tt.content))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("existing file", func(t *testing.T) {
		path := filepath.Join(dir, "tests.txt")
		require.NoError(t, os.WriteFile(path, []byte("x\n---\ny\n"), 0o644))

		tests, err := LoadFile(path)
		require.NoError(t, err)
		require.Len(t, tests, 2)
		assert.Equal(t, "y", tests[1].Input)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(dir, "absent.txt"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(dir, "empty.txt")
		require.NoError(t, os.WriteFile(path, nil, 0o644))

		_, err := LoadFile(path)
		assert.ErrorIs(t, err, ErrNoTests)
	})
}

type countingGenerator struct {
	calls int
}

func (g *countingGenerator) Generate(context.Context) (TestCase, error) {
	g.calls++
	return TestCase{Input: "generated", Label: "gen"}, nil
}

func TestSourcePrefersPredefined(t *testing.T) {
	gen := &countingGenerator{}
	src := NewSource([]TestCase{{Input: "p1"}, {Input: "p2"}}, gen)
	ctx := context.Background()

	var inputs []string
	for i := 1; i <= 4; i++ {
		tc, err := src.Get(ctx, i)
		require.NoError(t, err)
		inputs = append(inputs, tc.Input)
	}

	assert.Equal(t, []string{"p1", "p2", "generated", "generated"}, inputs)
	assert.Equal(t, 2, gen.calls)
}
