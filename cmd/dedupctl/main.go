// Command dedupctl runs duplicate detection and resolution over a JSON export of builders
// without a database.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/syed-c/standzon-sub002/pkg/dedup"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "dedupctl",
		Short: "Find and resolve duplicate builder listings",
		Long: `Find and resolve duplicate builder listings in a JSON export.

The input file is a JSON array of builder documents in the marketplace export format.
Documents without an id are named row-1, row-2, ... by their position in the file.
Nothing is written back to the file; results are printed as JSON or YAML.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("file", "f", "", "JSON file with an array of builders (- for stdin)")
	root.PersistentFlags().StringP("output", "o", "json", "Output format: json or yaml")
	root.PersistentFlags().Int("phone-min-digits", dedup.DefaultPhoneMinDigits, "Shortest phone number that can match (at least 7)")
	root.PersistentFlags().StringSlice("rules", []string{dedup.RuleEmail, dedup.RulePhone, dedup.RuleNameLocation}, "Match rules in priority order")
	_ = root.MarkPersistentFlagRequired("file")

	root.AddCommand(newAnalyzeCmd(), newAutoResolveCmd(), newResolveCmd())
	return root
}
