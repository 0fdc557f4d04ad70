package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zinc-sig/tandem/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a default configuration file",
	Long: fmt.Sprintf(`Write the default configuration to path (%s when omitted).
An existing file is left alone unless --force is given.`, config.DefaultFile),
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultFile
		if len(args) == 1 {
			path = args[0]
		}
		if err := config.WriteDefault(path, initForce); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing file")
}
