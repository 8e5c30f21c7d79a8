package discovery

import (
	"bufio"
	"os"
	"strings"

	"github.com/ghrammr/janitor/pkg/types"
)

// classifyPythonFile classifies a Python file by its filename. Test files
// match test_*.py or *_test.py patterns.
func classifyPythonFile(name string) types.FileClass {
	base := strings.TrimSuffix(name, ".py")
	if strings.HasPrefix(base, "test_") || strings.HasSuffix(base, "_test") {
		return types.ClassTest
	}
	if strings.HasPrefix(name, "_") && name != "__init__.py" {
		return types.ClassExcluded
	}
	return types.ClassSource
}

// classifyTypeScriptFile classifies a JS/TS file by its filename. Test files
// match *.test.ts, *.spec.ts, and their .tsx/.js/.jsx counterparts.
func classifyTypeScriptFile(name string) types.FileClass {
	lower := strings.ToLower(name)
	for _, suffix := range []string{".test.ts", ".spec.ts", ".test.tsx", ".spec.tsx", ".test.js", ".spec.js", ".test.jsx", ".spec.jsx"} {
		if strings.HasSuffix(lower, suffix) {
			return types.ClassTest
		}
	}
	if strings.HasPrefix(name, ".") {
		return types.ClassExcluded
	}
	return types.ClassSource
}

// IsEntryPointFile reports whether a file is a syntactic entry point by
// name or, for Python, by scanning for the `if __name__ == "__main__"`
// marker. JS/TS entry points are named index.* (checked by filename alone).
// The "sole default-export package entry" half of spec §4.6's carve-out
// needs per-file export data this classifier doesn't have; it is checked
// separately by orphan.Detect against the Entity Extractor's output.
func IsEntryPointFile(path, relPath string, lang types.Language) bool {
	name := relPath
	if idx := strings.LastIndexAny(relPath, "/\\"); idx >= 0 {
		name = relPath[idx+1:]
	}

	switch lang {
	case types.LangTypeScript:
		base := strings.ToLower(name)
		return strings.HasPrefix(base, "index.")
	case types.LangPython:
		return pythonHasMainGuard(path)
	default:
		return false
	}
}

// pythonHasMainGuard scans a Python file for the canonical main-guard line
// without a full parse; this is a file-discovery-time filter, so it is kept
// as a textual check, unlike entity extraction proper which always goes
// through the CST.
func pythonHasMainGuard(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, `if __name__ == "__main__"`) ||
			strings.HasPrefix(line, `if __name__ == '__main__'`) {
			return true
		}
	}
	return false
}
