// Package depgraph implements the Dependency Graph Builder (C5): it
// resolves every Import collected by the Entity Extractor to zero or more
// target files and emits a directed file-level graph consumed by the Orphan
// Detector (C6).
package depgraph

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ghrammr/janitor/pkg/types"
)

// skipDirNames are vendored and build directories excluded wholesale from
// resolution, per spec §4.5 -- identical to the discovery front end's set,
// kept separate here since resolution walks the filesystem directly rather
// than the already-filtered discovered-file list.
var skipDirNames = map[string]bool{
	".git":          true,
	"node_modules":  true,
	"__pycache__":   true,
	"site-packages": true,
	"dist":          true,
	"build":         true,
	".venv":         true,
	"venv":          true,
	"env":           true,
	"vendor":        true,
	".tox":          true,
	".janitor_cache": true,
	".janitor_trash": true,
}

var jsExtensions = []string{".ts", ".tsx", ".js", ".jsx"}

// Builder resolves imports against a project root.
type Builder struct {
	rootDir string
	srcRoot string // rootDir/src, if it exists
}

// NewBuilder creates a Builder rooted at rootDir. If a conventional src/
// directory exists under rootDir, absolute Python imports also try it.
func NewBuilder(rootDir string) *Builder {
	b := &Builder{rootDir: rootDir}
	candidate := filepath.Join(rootDir, "src")
	if info, err := os.Stat(candidate); err == nil && info.IsDir() {
		b.srcRoot = candidate
	}
	return b
}

// Build resolves every import across all files and returns the file graph.
// Every file in files is registered as a node even if it has no edges, so
// in-degree-zero detection in C6 sees the full file set.
func (b *Builder) Build(files []types.DiscoveredFile, imports []types.Import) *types.FileGraph {
	graph := types.NewFileGraph()
	for _, f := range files {
		if f.Class == types.ClassExcluded {
			continue
		}
		graph.AddNode(f.Path)
	}

	for _, imp := range imports {
		for _, canon := range b.ResolveImport(imp) {
			graph.AddEdge(imp.FilePath, canon)
		}
	}

	return graph
}

// ResolveImport resolves a single Import to its canonicalized target file
// paths (zero or more), using the same per-language resolution Build uses
// to populate the file graph. Exported so the Orchestrator can re-derive a
// name-level import-to-file mapping (name bound by the import -> file it
// resolved to) for the Reference Linker, which Build's file-level edges
// alone don't carry.
func (b *Builder) ResolveImport(imp types.Import) []string {
	var targets []string
	switch detectLanguage(imp.FilePath) {
	case types.LangPython:
		targets = b.resolvePython(imp)
	case types.LangTypeScript:
		targets = b.resolveJS(imp)
	}

	var canon []string
	for _, t := range targets {
		c, err := canonicalize(t)
		if err != nil {
			continue
		}
		canon = append(canon, c)
	}
	return canon
}

func detectLanguage(path string) types.Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py":
		return types.LangPython
	case ".js", ".jsx", ".ts", ".tsx":
		return types.LangTypeScript
	default:
		return types.LangUnknown
	}
}

// resolvePython resolves one Python import to a file path, per spec §4.5.
// Relative imports walk RelativeLevel-1 directories up from the importer's
// own directory and descend into Module; absolute imports try the project
// root, then a conventional src/ root. Resolution stops at the first hit;
// an unresolved import is dropped silently.
func (b *Builder) resolvePython(imp types.Import) []string {
	modulePath := strings.ReplaceAll(imp.Module, ".", string(filepath.Separator))

	if imp.IsRelative {
		dir := filepath.Dir(imp.FilePath)
		up := imp.RelativeLevel - 1
		for i := 0; i < up; i++ {
			dir = filepath.Dir(dir)
		}
		if t := tryPythonModule(dir, modulePath); t != "" {
			return []string{t}
		}
		return nil
	}

	if t := tryPythonModule(b.rootDir, modulePath); t != "" {
		return []string{t}
	}
	if b.srcRoot != "" {
		if t := tryPythonModule(b.srcRoot, modulePath); t != "" {
			return []string{t}
		}
	}
	return nil
}

// tryPythonModule checks base/modulePath.py then base/modulePath/__init__.py.
func tryPythonModule(base, modulePath string) string {
	if modulePath == "" {
		candidate := filepath.Join(base, "__init__.py")
		if fileExists(candidate) {
			return candidate
		}
		return ""
	}
	candidate := filepath.Join(base, modulePath+".py")
	if fileExists(candidate) {
		return candidate
	}
	candidate = filepath.Join(base, modulePath, "__init__.py")
	if fileExists(candidate) {
		return candidate
	}
	return ""
}

// resolveJS resolves one JS/TS import, per spec §4.5. Relative specifiers
// resolve against the importer's directory; non-relative specifiers attempt
// a project-root resolution with the same extension set; anything else is
// external and ignored.
func (b *Builder) resolveJS(imp types.Import) []string {
	if imp.IsRelative {
		dir := filepath.Dir(imp.FilePath)
		if t := tryJSModule(filepath.Join(dir, imp.Module)); t != "" {
			return []string{t}
		}
		return nil
	}

	if t := tryJSModule(filepath.Join(b.rootDir, imp.Module)); t != "" {
		return []string{t}
	}
	return nil
}

// tryJSModule checks base.<ext>, base/index.<ext> for each extension in
// jsExtensions, plus the bare path itself (already-extensioned imports).
func tryJSModule(base string) string {
	if fileExists(base) && !isDir(base) {
		return base
	}
	for _, ext := range jsExtensions {
		candidate := base + ext
		if fileExists(candidate) {
			return candidate
		}
	}
	for _, ext := range jsExtensions {
		candidate := filepath.Join(base, "index"+ext)
		if fileExists(candidate) {
			return candidate
		}
	}
	return ""
}

func fileExists(path string) bool {
	if pathCrossesSkippedDir(path) {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func pathCrossesSkippedDir(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if skipDirNames[part] {
			return true
		}
	}
	return false
}

// canonicalize resolves symlinks and normalises ".." segments, matching the
// discovery front end's path keys so graph edges line up with file nodes.
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return filepath.Clean(abs), nil
	}
	return resolved, nil
}
