// Package parser provides Tree-sitter-backed CST parsing for Python and
// JavaScript/TypeScript source files. It is the Parser Adapter (C1): a
// black box producing a concrete syntax tree with byte ranges per file,
// tolerant of syntactically invalid input. File bytes are consumed raw; the
// adapter never assumes UTF-8 until byte ranges are sliced by a caller.
package parser

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/ghrammr/janitor/pkg/types"
)

// ParsedFile holds a parsed Tree-sitter syntax tree with its source content.
// Caller must call Tree.Close() when done, or use CloseAll.
type ParsedFile struct {
	Path     string
	RelPath  string
	Tree     *tree_sitter.Tree
	Content  []byte
	Language types.Language
}

// TreeSitterParser holds pooled Tree-sitter parsers for Python, TypeScript,
// and TSX/JSX. Tree-sitter parsers are NOT thread-safe, so all parse
// operations are serialized via a mutex. Parsed trees are safe to use
// concurrently after parsing returns.
type TreeSitterParser struct {
	mu           sync.Mutex
	pythonParser *tree_sitter.Parser
	tsParser     *tree_sitter.Parser
	tsxParser    *tree_sitter.Parser
}

// NewTreeSitterParser creates parsers for Python, TypeScript, and TSX/JSX.
// Returns an error if any grammar fails to initialize.
func NewTreeSitterParser() (*TreeSitterParser, error) {
	pyParser := tree_sitter.NewParser()
	pyLang := tree_sitter.NewLanguage(tree_sitter_python.Language())
	if err := pyParser.SetLanguage(pyLang); err != nil {
		pyParser.Close()
		return nil, fmt.Errorf("set python language: %w", err)
	}

	tsParser := tree_sitter.NewParser()
	tsLang := tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
	if err := tsParser.SetLanguage(tsLang); err != nil {
		pyParser.Close()
		tsParser.Close()
		return nil, fmt.Errorf("set typescript language: %w", err)
	}

	tsxParser := tree_sitter.NewParser()
	tsxLang := tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTSX())
	if err := tsxParser.SetLanguage(tsxLang); err != nil {
		pyParser.Close()
		tsParser.Close()
		tsxParser.Close()
		return nil, fmt.Errorf("set tsx language: %w", err)
	}

	return &TreeSitterParser{
		pythonParser: pyParser,
		tsParser:     tsParser,
		tsxParser:    tsxParser,
	}, nil
}

// Close releases all parser resources. Must be called when done.
func (p *TreeSitterParser) Close() {
	if p.pythonParser != nil {
		p.pythonParser.Close()
	}
	if p.tsParser != nil {
		p.tsParser.Close()
	}
	if p.tsxParser != nil {
		p.tsxParser.Close()
	}
}

// ParseFile parses source content for the given language and file extension.
// The ext parameter distinguishes .tsx/.jsx from .ts/.js. Returns a Tree the
// caller must close. Thread-safe; parsing is serialized internally.
//
// Tree-sitter always returns a best-effort tree, even for invalid syntax, so
// a nil tree here signals a hard adapter failure, not merely malformed
// source -- callers treat both the same way: skip the file.
func (p *TreeSitterParser) ParseFile(lang types.Language, ext string, content []byte) (*tree_sitter.Tree, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var parser *tree_sitter.Parser

	switch lang {
	case types.LangPython:
		parser = p.pythonParser
	case types.LangTypeScript:
		if ext == ".tsx" || ext == ".jsx" {
			parser = p.tsxParser
		} else {
			parser = p.tsParser
		}
	default:
		return nil, fmt.Errorf("unsupported language for Tree-sitter: %s", lang)
	}

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("tree-sitter parse returned nil")
	}

	return tree, nil
}

// ParseFiles parses every non-excluded discovered file, reading its content
// via the supplied read function (exposed as a parameter so callers can
// inject cached content or a mock in tests). A per-file read or parse
// failure is collected in the returned error slice; ParseFiles never aborts
// the whole batch on one bad file -- that is the "skip files with no CST"
// rule from the Parser Adapter contract.
func (p *TreeSitterParser) ParseFiles(files []types.DiscoveredFile, read func(path string) ([]byte, error)) ([]*ParsedFile, []error) {
	var results []*ParsedFile
	var errs []error

	for _, df := range files {
		if df.Class == types.ClassExcluded {
			continue
		}

		content, err := read(df.Path)
		if err != nil {
			errs = append(errs, fmt.Errorf("read %s: %w", df.RelPath, err))
			continue
		}

		ext := strings.ToLower(filepath.Ext(df.Path))
		tree, err := p.ParseFile(df.Language, ext, content)
		if err != nil {
			errs = append(errs, fmt.Errorf("parse %s: %w", df.RelPath, err))
			continue
		}

		results = append(results, &ParsedFile{
			Path:     df.Path,
			RelPath:  df.RelPath,
			Tree:     tree,
			Content:  content,
			Language: df.Language,
		})
	}

	return results, errs
}

// CloseAll closes all trees in a slice of ParsedFile. Safe to call with nil
// or empty slice.
func CloseAll(files []*ParsedFile) {
	for _, f := range files {
		if f != nil && f.Tree != nil {
			f.Tree.Close()
		}
	}
}
