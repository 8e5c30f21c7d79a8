package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ghrammr/janitor/internal/config"
	"github.com/ghrammr/janitor/internal/orchestrator"
	"github.com/ghrammr/janitor/internal/report"
)

// resolveOptions builds orchestrator.Options for one invocation, layering
// .janitorrc.yml under the CLI flags: a flag the user actually passed
// always wins, a project-config value fills in an unset flag, and the
// flag's own zero-value default applies if neither is set.
func resolveOptions(cmd *cobra.Command, root string, library, grepShield, includeVendored bool, testCmd, configPath string) (orchestrator.Options, error) {
	cfg, err := config.LoadProjectConfig(root, configPath)
	if err != nil {
		return orchestrator.Options{}, err
	}

	opts := orchestrator.Options{
		Library:         library,
		GrepShield:      grepShield,
		IncludeVendored: includeVendored,
		TestCmd:         testCmd,
	}

	if cfg == nil {
		return opts, nil
	}

	flags := cmd.Flags()
	if !flags.Changed("library") {
		opts.Library = cfg.Library
	}
	if !flags.Changed("grep-shield") {
		opts.GrepShield = cfg.GrepShield
	}
	if !flags.Changed("include-vendored") {
		opts.IncludeVendored = cfg.IncludeVendored
	}
	if testCmd == "" {
		opts.TestCmd = cfg.TestCmd
	}
	return opts, nil
}

// renderReport writes r to cmd's output stream, as JSON if --json was
// passed, otherwise as the colorized terminal summary.
func renderReport(cmd *cobra.Command, r *report.Report) error {
	out := cmd.OutOrStdout()
	if jsonOut {
		return report.RenderJSON(out, r, verbose)
	}
	report.RenderTerminal(out, r, verbose)
	return nil
}
