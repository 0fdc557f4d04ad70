package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zinc-sig/tandem/internal/compare"
	"github.com/zinc-sig/tandem/internal/output"
)

// errOutputsDiffer makes `tandem compare` exit 1 after printing its result.
var errOutputsDiffer = errors.New("outputs differ")

var (
	compareFileA       string
	compareFileB       string
	compareStopOnFirst bool
)

var compareCmd = &cobra.Command{
	Use:   "compare -a <file> -b <file> [--stop-on-first]",
	Short: "Compare two output files line by line",
	Long: `Compare two files with the same line comparison used between targets:
carriage returns are ignored and a line present on only one side differs from
"<missing>". The result is printed as JSON; the exit code is 1 when the files
differ.`,
	Example: `  tandem compare -a out_reference.txt -b out_candidate.txt
  tandem compare -a a.txt -b b.txt --stop-on-first`,
	RunE: compareCommand,
}

func compareCommand(cmd *cobra.Command, args []string) error {
	if compareFileA == "" {
		return errors.New("required flag 'file-a' not set")
	}
	if compareFileB == "" {
		return errors.New("required flag 'file-b' not set")
	}

	a, err := os.ReadFile(compareFileA)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", compareFileA, err)
	}
	b, err := os.ReadFile(compareFileB)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", compareFileB, err)
	}

	verdict := compare.Lines(string(a), string(b), compareStopOnFirst)

	result := &output.Comparison{
		A:     compareFileA,
		B:     compareFileB,
		Equal: verdict.Equal,
	}
	for _, d := range verdict.Diffs {
		result.Diffs = append(result.Diffs, output.Diff{Line: d.Line, A: d.A, B: d.B})
	}
	if err := printJSON(result); err != nil {
		return err
	}

	if !verdict.Equal {
		cmd.SilenceErrors = true
		return errOutputsDiffer
	}
	return nil
}

func init() {
	compareCmd.Flags().StringVarP(&compareFileA, "file-a", "a", "", "First file (required)")
	compareCmd.Flags().StringVarP(&compareFileB, "file-b", "b", "", "Second file (required)")
	compareCmd.Flags().BoolVar(&compareStopOnFirst, "stop-on-first", false, "Report only the first differing line")

	_ = compareCmd.MarkFlagRequired("file-a")
	_ = compareCmd.MarkFlagRequired("file-b")
}
