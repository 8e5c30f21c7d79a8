package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ghrammr/janitor/internal/orchestrator"
	"github.com/ghrammr/janitor/pkg/types"
)

var (
	auditLibrary         bool
	auditGrepShield      bool
	auditIncludeVendored bool
	auditConfigPath      string
)

var auditCmd = &cobra.Command{
	Use:   "audit <root>",
	Short: "Report dead symbols and orphaned files without modifying anything",
	Args:  cobra.ExactArgs(1),
	RunE:  runAudit,
}

func init() {
	auditCmd.Flags().BoolVar(&auditLibrary, "library", false, "treat every non-underscore-prefixed name as referenced by unknown external callers")
	auditCmd.Flags().BoolVar(&auditGrepShield, "grep-shield", false, "protect a symbol if its name appears as a substring in any non-source file in the project")
	auditCmd.Flags().BoolVar(&auditIncludeVendored, "include-vendored", false, "descend into vendored/build directories instead of skipping them")
	auditCmd.Flags().StringVar(&auditConfigPath, "config", "", "path to a .janitorrc.yml file (defaults to <root>/.janitorrc.yml)")
	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	root := args[0]

	opts, err := resolveOptions(cmd, root, auditLibrary, auditGrepShield, auditIncludeVendored, "", auditConfigPath)
	if err != nil {
		return err
	}

	orch, err := orchestrator.New(root, opts)
	if err != nil {
		return err
	}
	defer orch.Close()

	result, err := orch.Audit()
	if err != nil {
		return err
	}

	if err := renderReport(cmd, result.Report); err != nil {
		return err
	}

	if len(result.Report.DeadSymbols) > 0 {
		return types.NewJanitorError(types.ExitFlaggedOrRolledBack, "%d dead symbol(s) found", len(result.Report.DeadSymbols))
	}
	return nil
}
