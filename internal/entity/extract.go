// Package entity walks a parsed Tree-sitter CST and emits the Entity and
// Import records that feed the Dependency Graph Builder (C5) and the
// Reference Tracker (C7). One extractor exists per supported language;
// Extract dispatches on the parsed file's Language field.
package entity

import (
	"fmt"

	"github.com/ghrammr/janitor/internal/parser"
	"github.com/ghrammr/janitor/pkg/types"
)

// Extract walks pf's CST and returns every Entity and Import it contains.
// Returns an error only for a language the extractor does not support; a
// malformed subtree is skipped, never propagated (spec §4.2's "never
// raise" contract).
func Extract(pf *parser.ParsedFile) ([]types.Entity, []types.Import, error) {
	switch pf.Language {
	case types.LangPython:
		return extractPython(pf), importsPython(pf), nil
	case types.LangTypeScript:
		return extractTypeScript(pf), importsTypeScript(pf), nil
	default:
		return nil, nil, fmt.Errorf("entity: unsupported language %s", pf.Language)
	}
}
