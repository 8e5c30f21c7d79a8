// Package discovery walks a project root, excludes vendored and build
// directories, applies .gitignore, and classifies every remaining Python and
// JavaScript/TypeScript file as source, test, or excluded. It is the file
// discovery front end feeding the Parser Adapter (C1).
package discovery

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/ghrammr/janitor/pkg/types"
)

// skipDirs lists directory names excluded wholesale during walking,
// regardless of --include-vendored: VCS metadata and the tool's own
// cache/trash state.
var skipDirs = map[string]bool{
	".git":            true,
	".janitor_cache":  true,
	".janitor_trash":  true,
}

// vendoredDirs names directories skipped only when includeVendored is
// false, per the CLI's --include-vendored flag. The dot-prefixed entries
// (.venv, .tox) are skipped regardless, by the hidden-directory check.
var vendoredDirs = map[string]bool{
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
}

// immortalDirs names directories whose files are never orphan candidates,
// per spec §4.6, regardless of in-degree.
var immortalDirs = map[string]bool{
	"tests":      true,
	"examples":   true,
	"docs":       true,
	"scripts":    true,
	"benchmarks": true,
	"tutorial":   true,
	"migrations": true,
}

// langExtensions maps file extensions to languages. Only Python and
// JavaScript/TypeScript are in scope; every other extension is skipped.
var langExtensions = map[string]types.Language{
	".py":   types.LangPython,
	".js":   types.LangTypeScript,
	".jsx":  types.LangTypeScript,
	".ts":   types.LangTypeScript,
	".tsx":  types.LangTypeScript,
}

// ScanResult is the output of one Discover call: the full file list plus
// aggregate counters used by the audit report.
type ScanResult struct {
	RootDir        string
	Files          []types.DiscoveredFile
	TotalFiles     int
	SourceCount    int
	TestCount      int
	ExcludedCount  int
	GitignoreCount int
	SkippedCount   int
	SymlinkCount   int
	PerLanguage    map[types.Language]int
}

// Walker discovers and classifies source files in a directory tree.
type Walker struct {
	// IncludeVendored, when true, descends into vendored/build directories
	// (node_modules, vendor, __pycache__, ...) instead of skipping them.
	IncludeVendored bool
}

// NewWalker creates a new Walker instance that excludes vendored
// directories by default.
func NewWalker() *Walker {
	return &Walker{}
}

// Discover walks rootDir recursively, discovers every Python and JS/TS file,
// classifies it, and returns a ScanResult. Directory read errors and
// individual file stat failures are logged and counted, never fatal to the
// walk as a whole.
func (w *Walker) Discover(rootDir string) (*ScanResult, error) {
	info, err := os.Stat(rootDir)
	if err != nil {
		return nil, fmt.Errorf("cannot access root directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", rootDir)
	}

	canonicalRoot, err := filepath.EvalSymlinks(rootDir)
	if err != nil {
		canonicalRoot = rootDir
	}

	var gitIgnore *ignore.GitIgnore
	gitignorePath := filepath.Join(rootDir, ".gitignore")
	if _, err := os.Stat(gitignorePath); err == nil {
		gitIgnore, err = ignore.CompileIgnoreFile(gitignorePath)
		if err != nil {
			return nil, fmt.Errorf("failed to parse .gitignore: %w", err)
		}
	}

	result := &ScanResult{
		RootDir:     canonicalRoot,
		PerLanguage: make(map[types.Language]int),
	}

	err = filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: skipping %s: %v\n", path, err)
			result.SkippedCount++
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			fmt.Fprintf(os.Stderr, "warning: skipping symlink %s\n", path)
			result.SymlinkCount++
			return nil
		}

		name := d.Name()

		if d.IsDir() {
			if strings.HasPrefix(name, ".") && name != "." {
				return fs.SkipDir
			}
			if skipDirs[name] {
				return fs.SkipDir
			}
			if !w.IncludeVendored && vendoredDirs[name] {
				return fs.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(name))
		lang, supported := langExtensions[ext]
		if !supported {
			return nil
		}

		relPath, err := filepath.Rel(rootDir, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: skipping %s: failed to compute relative path: %v\n", path, err)
			result.SkippedCount++
			return nil
		}

		canonicalPath, err := canonicalize(path)
		if err != nil {
			canonicalPath = path
		}

		file := types.DiscoveredFile{
			Path:     canonicalPath,
			RelPath:  relPath,
			Language: lang,
		}

		if gitIgnore != nil && gitIgnore.MatchesPath(relPath) {
			file.Class = types.ClassExcluded
			file.ExcludeReason = "gitignore"
			result.Files = append(result.Files, file)
			result.GitignoreCount++
			result.ExcludedCount++
			result.TotalFiles++
			return nil
		}

		switch lang {
		case types.LangPython:
			file.Class = classifyPythonFile(name)
		case types.LangTypeScript:
			file.Class = classifyTypeScriptFile(name)
		}

		if file.Class == types.ClassExcluded {
			result.ExcludedCount++
		}

		result.Files = append(result.Files, file)
		result.TotalFiles++

		switch file.Class {
		case types.ClassSource:
			result.SourceCount++
			result.PerLanguage[lang]++
		case types.ClassTest:
			result.TestCount++
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("walk error: %w", err)
	}

	return result, nil
}

// canonicalize resolves symlinks and normalizes ".." segments so graph keys
// never alias through two different spellings of the same path.
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

// IsImmortalDirectory reports whether relPath's directory chain contains a
// directory named per immortalDirs (spec §4.6's immortal-directory rule,
// also reused verbatim by the Directory shield in C8).
func IsImmortalDirectory(relPath string) bool {
	dir := filepath.ToSlash(filepath.Dir(relPath))
	if dir == "." {
		return false
	}
	for _, part := range strings.Split(dir, "/") {
		if immortalDirs[part] {
			return true
		}
	}
	return false
}
