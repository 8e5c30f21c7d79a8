// Package configref implements the Config-Reference Scanner (C4): it scans
// a fixed set of infrastructure files for string values that name symbols
// by convention (Lambda handlers, Airflow callables, Django app lists,
// packaging entry points) rather than by direct reference, and hands the
// Reference Tracker synthetic candidates for each one.
package configref

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ghrammr/janitor/internal/parser"
)

// Candidate is one symbol name a config file references by string, per
// spec §4.4: the final dotted segment, plus the full dotted form the
// Reference Tracker may resolve to a qualified name.
type Candidate struct {
	Name       string // final dotted segment
	FullDotted string // full dotted form, as written
	SourceFile string // config file this candidate was extracted from
}

// yamlNames are YAML infrastructure files scanned at root or one level deep.
var yamlNames = map[string]bool{
	"serverless.yml":      true,
	"serverless.yaml":     true,
	"template.yaml":       true,
	"template.yml":        true,
	"docker-compose.yml":  true,
	"docker-compose.yaml": true,
}

// Scanner scans a project root for config-reference candidates. Django
// settings.py and Airflow DAG modules are scanned structurally with the
// same Tree-sitter Python parser used by C1/C2, rather than by regex.
type Scanner struct {
	ts *parser.TreeSitterParser
}

// NewScanner creates a Scanner backed by an existing Tree-sitter parser
// (shared with the rest of the pipeline; parsing is mutex-serialized there).
func NewScanner(ts *parser.TreeSitterParser) *Scanner {
	return &Scanner{ts: ts}
}

// ScanRoot scans rootDir and every immediate subdirectory (covering the
// "root, or one level deep" contract and the conventional dags/ layout) for
// every file name in the fixed scan set, returning every candidate found.
// A missing or unreadable individual file is skipped, never fatal.
func (s *Scanner) ScanRoot(rootDir string) ([]Candidate, error) {
	var out []Candidate

	scanDir := func(dir string) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			name := e.Name()
			full := filepath.Join(dir, name)
			switch {
			case yamlNames[name]:
				out = append(out, s.scanYAMLFile(full)...)
			case name == "package.json" || name == "tsconfig.json":
				out = append(out, scanJSONFile(full)...)
			case name == "pyproject.toml":
				out = append(out, scanTOMLFile(full)...)
			case name == "settings.py":
				out = append(out, s.scanPythonConfigFile(full)...)
			case strings.HasSuffix(name, ".py") && filepath.Base(dir) == "dags":
				out = append(out, s.scanPythonConfigFile(full)...)
			case (strings.HasSuffix(name, ".yml") || strings.HasSuffix(name, ".yaml")) &&
				filepath.Base(dir) == "workflows" && filepath.Base(filepath.Dir(dir)) == ".github":
				out = append(out, s.scanYAMLFile(full)...)
			}
		}
	}

	scanDir(rootDir)
	dagsDir := filepath.Join(rootDir, "dags")
	scanDir(dagsDir)
	workflowsDir := filepath.Join(rootDir, ".github", "workflows")
	scanDir(workflowsDir)

	topEntries, err := os.ReadDir(rootDir)
	if err == nil {
		for _, e := range topEntries {
			if e.IsDir() && e.Name() != "dags" {
				scanDir(filepath.Join(rootDir, e.Name()))
			}
		}
	}

	return out, nil
}

// candidatesFromString converts one extracted string value into a
// Candidate, per spec §4.4: the final dotted segment, plus the preserved
// full dotted form.
func candidatesFromString(s, sourceFile string) []Candidate {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ".")
	final := parts[len(parts)-1]
	if final == "" {
		return nil
	}
	return []Candidate{{Name: final, FullDotted: s, SourceFile: sourceFile}}
}
