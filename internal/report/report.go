// Package report renders the Orchestrator's audit/clean results: a
// colorized terminal summary, a machine-readable JSON dump, and a
// dry-run diff of the byte ranges that would be spliced.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/ghrammr/janitor/pkg/types"
)

// SymbolRecord is one line item in a report: a dead or protected symbol,
// with just enough detail for a human or a JSON consumer to locate it.
type SymbolRecord struct {
	Name        string
	Kind        string
	File        string
	Line        int
	ProtectedBy string // empty for a dead symbol
}

// OrphanRecord is one file with zero in-degree in the file graph.
type OrphanRecord struct {
	Path string
}

// Report is the Orchestrator's full result for one audit or clean run.
type Report struct {
	RootDir           string
	Orphans           []OrphanRecord
	DeadSymbols       []SymbolRecord
	ProtectedSymbols  []SymbolRecord
	MutationPerformed bool
	MutationCommitted bool
	SessionID         string
}

// FromEntities buckets a classified entity list into dead vs. protected
// SymbolRecords for a Report.
func FromEntities(entities []types.Entity) (dead, protected []SymbolRecord) {
	for _, e := range entities {
		rec := SymbolRecord{
			Name:        e.QualifiedName,
			Kind:        e.Kind.String(),
			File:        e.FilePath,
			Line:        e.LineRange.Start,
			ProtectedBy: string(e.ProtectedBy),
		}
		if e.IsDead() {
			dead = append(dead, rec)
		} else {
			protected = append(protected, rec)
		}
	}
	return dead, protected
}

// RenderTerminal writes a colorized human-readable summary of r to w. When
// w is not a terminal (or NO_COLOR is set), color.NoColor disables escape
// codes and the output degrades to plain text automatically.
func RenderTerminal(w io.Writer, r *Report, verbose bool) {
	if f, ok := w.(*os.File); ok {
		color.NoColor = os.Getenv("NO_COLOR") != "" ||
			(!isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()))
	}

	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	bold.Fprintf(w, "janitor report: %s\n", r.RootDir)

	if len(r.Orphans) > 0 {
		bold.Fprintln(w, "\nOrphaned files (zero in-degree):")
		for _, o := range r.Orphans {
			yellow.Fprintf(w, "  %s\n", o.Path)
		}
	}

	bold.Fprintf(w, "\nDead symbols (%d):\n", len(r.DeadSymbols))
	for _, s := range r.DeadSymbols {
		red.Fprintf(w, "  %s:%d  %s (%s)\n", s.File, s.Line, s.Name, s.Kind)
	}

	if verbose {
		bold.Fprintf(w, "\nProtected symbols (%d):\n", len(r.ProtectedSymbols))
		for _, s := range r.ProtectedSymbols {
			green.Fprintf(w, "  %s:%d  %s (%s) -- %s\n", s.File, s.Line, s.Name, s.Kind, s.ProtectedBy)
		}
	}

	if r.MutationPerformed {
		bold.Fprintf(w, "\nMutation session %s: ", r.SessionID)
		if r.MutationCommitted {
			green.Fprintln(w, "committed")
		} else {
			red.Fprintln(w, "rolled back")
		}
	}
}

// JSONReport is the top-level --json output shape.
type JSONReport struct {
	RootDir           string         `json:"root_dir"`
	Orphans           []string       `json:"orphans"`
	DeadSymbols       []SymbolRecord `json:"dead_symbols"`
	ProtectedSymbols  []SymbolRecord `json:"protected_symbols,omitempty"`
	MutationPerformed bool           `json:"mutation_performed"`
	MutationCommitted bool           `json:"mutation_committed,omitempty"`
	SessionID         string         `json:"session_id,omitempty"`
}

// BuildJSONReport converts r into the JSON wire shape. Protected symbols
// are only included when verbose is true, mirroring the terminal output.
func BuildJSONReport(r *Report, verbose bool) *JSONReport {
	jr := &JSONReport{
		RootDir:           r.RootDir,
		DeadSymbols:       r.DeadSymbols,
		MutationPerformed: r.MutationPerformed,
		MutationCommitted: r.MutationCommitted,
		SessionID:         r.SessionID,
	}
	for _, o := range r.Orphans {
		jr.Orphans = append(jr.Orphans, o.Path)
	}
	if verbose {
		jr.ProtectedSymbols = r.ProtectedSymbols
	}
	return jr
}

// RenderJSON writes the JSON report to w with pretty-printed indentation.
func RenderJSON(w io.Writer, r *Report, verbose bool) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(BuildJSONReport(r, verbose))
}

// DryRunEntry is one symbol's would-be deletion for --dry-run.
type DryRunEntry struct {
	File  string
	Name  string
	Start int
	End   int
}

// RenderDryRun prints the byte ranges that would be spliced without
// invoking the Safe Mutator.
func RenderDryRun(w io.Writer, entries []DryRunEntry) {
	for _, e := range entries {
		fmt.Fprintf(w, "%s: would delete %s [%d:%d)\n", e.File, e.Name, e.Start, e.End)
	}
}
