package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/ghrammr/janitor/internal/orchestrator"
	"github.com/ghrammr/janitor/internal/report"
	"github.com/ghrammr/janitor/pkg/types"
)

var (
	cleanLibrary         bool
	cleanGrepShield      bool
	cleanIncludeVendored bool
	cleanConfigPath      string
	cleanTestCmd         string
	cleanDryRun          bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean <root>",
	Short: "Delete dead symbols behind a test-verified mutation session",
	Args:  cobra.ExactArgs(1),
	RunE:  runClean,
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanLibrary, "library", false, "treat every non-underscore-prefixed name as referenced by unknown external callers")
	cleanCmd.Flags().BoolVar(&cleanGrepShield, "grep-shield", false, "protect a symbol if its name appears as a substring in any non-source file in the project")
	cleanCmd.Flags().BoolVar(&cleanIncludeVendored, "include-vendored", false, "descend into vendored/build directories instead of skipping them")
	cleanCmd.Flags().StringVar(&cleanConfigPath, "config", "", "path to a .janitorrc.yml file (defaults to <root>/.janitorrc.yml)")
	cleanCmd.Flags().StringVar(&cleanTestCmd, "test-cmd", "", "explicit test command (autodetected otherwise: pytest or npm test)")
	cleanCmd.Flags().BoolVar(&cleanDryRun, "dry-run", false, "print the byte ranges that would be deleted without mutating anything")
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	root := args[0]

	opts, err := resolveOptions(cmd, root, cleanLibrary, cleanGrepShield, cleanIncludeVendored, cleanTestCmd, cleanConfigPath)
	if err != nil {
		return err
	}

	orch, err := orchestrator.New(root, opts)
	if err != nil {
		return err
	}
	defer orch.Close()

	if cleanDryRun {
		result, err := orch.Audit()
		if err != nil {
			return err
		}
		var entries []report.DryRunEntry
		for file, entities := range result.DeadByFile {
			for _, e := range entities {
				entries = append(entries, report.DryRunEntry{
					File: file, Name: e.QualifiedName, Start: e.ByteRange.Start, End: e.ByteRange.End,
				})
			}
		}
		report.RenderDryRun(cmd.OutOrStdout(), entries)
		if len(entries) > 0 {
			return types.NewJanitorError(types.ExitFlaggedOrRolledBack, "%d dead symbol(s) would be deleted", len(entries))
		}
		return nil
	}

	rep, err := orch.Clean(context.Background())
	var janitorErr *types.JanitorError
	if err != nil && !errors.As(err, &janitorErr) {
		return err
	}

	if rep != nil {
		if renderErr := renderReport(cmd, rep); renderErr != nil {
			return renderErr
		}
	}
	return err
}
