package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/ghrammr/janitor/pkg/types"
	"github.com/ghrammr/janitor/pkg/version"
)

var (
	verbose bool
	jsonOut bool
)

var rootCmd = &cobra.Command{
	Use:     "janitor",
	Short:   "Find and safely remove dead code in Python and JavaScript/TypeScript projects",
	Long:    "janitor builds a file dependency graph and a cross-file reference graph for a\nPython or JavaScript/TypeScript project, classifies every declared symbol as\nlive or dead against a layered set of shields, and can safely splice dead\nsymbols out of source files behind a test-verified mutation session.",
	Version: version.Version,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output (include protected symbols in the report)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "render the report as JSON instead of a colorized terminal summary")
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
}

// Execute runs the root command and exits with the resolved exit code.
// A *types.JanitorError carries its own exit code; any other error exits 1.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var janitorErr *types.JanitorError
		if errors.As(err, &janitorErr) {
			os.Exit(janitorErr.Code)
		}
		os.Exit(1)
	}
}
