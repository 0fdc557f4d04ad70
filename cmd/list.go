package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zinc-sig/tandem/internal/events"
	"github.com/zinc-sig/tandem/internal/generator"
	"github.com/zinc-sig/tandem/internal/upload"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available generators, upload providers and event publishers",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "generators: %s\n", strings.Join(generator.Names(), ", "))
		fmt.Fprintf(w, "upload providers: %s\n", strings.Join(upload.ProviderNames(), ", "))
		fmt.Fprintf(w, "event publishers: %s\n", strings.Join(events.PublisherNames(), ", "))
	},
}
