package discovery

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/ghrammr/janitor/pkg/types"
)

func TestDiscoverClassifiesPythonAndTypeScript(t *testing.T) {
	tmpDir := t.TempDir()

	mustWrite(t, filepath.Join(tmpDir, "app.py"), "def handler():\n    pass\n")
	mustWrite(t, filepath.Join(tmpDir, "test_app.py"), "def test_handler():\n    pass\n")
	mustWrite(t, filepath.Join(tmpDir, "index.ts"), "export function main() {}\n")
	mustWrite(t, filepath.Join(tmpDir, "widget.test.tsx"), "test('x', () => {});\n")
	mustWrite(t, filepath.Join(tmpDir, "README.md"), "not a source file\n")

	w := NewWalker()
	result, err := w.Discover(tmpDir)
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}

	fileMap := make(map[string]types.DiscoveredFile)
	for _, f := range result.Files {
		fileMap[f.RelPath] = f
	}

	assertFile(t, fileMap, "app.py", types.ClassSource, "")
	assertFile(t, fileMap, "test_app.py", types.ClassTest, "")
	assertFile(t, fileMap, "index.ts", types.ClassSource, "")
	assertFile(t, fileMap, "widget.test.tsx", types.ClassTest, "")

	if _, ok := fileMap["README.md"]; ok {
		t.Error("README.md should not be discovered; unsupported extension")
	}
	if result.SourceCount != 2 {
		t.Errorf("SourceCount = %d, want 2", result.SourceCount)
	}
	if result.TestCount != 2 {
		t.Errorf("TestCount = %d, want 2", result.TestCount)
	}
}

func TestDiscoverSkipsVendoredDirectories(t *testing.T) {
	tmpDir := t.TempDir()

	for _, dir := range []string{"node_modules", "__pycache__", "venv", ".git", "vendor", ".janitor_cache"} {
		full := filepath.Join(tmpDir, dir)
		if err := os.MkdirAll(full, 0o755); err != nil {
			t.Fatal(err)
		}
		mustWrite(t, filepath.Join(full, "should_not_appear.py"), "x = 1\n")
	}
	mustWrite(t, filepath.Join(tmpDir, "main.py"), "x = 1\n")

	w := NewWalker()
	result, err := w.Discover(tmpDir)
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}

	for _, f := range result.Files {
		if f.RelPath != "main.py" {
			t.Errorf("unexpected file discovered inside excluded directory: %s", f.RelPath)
		}
	}
	if result.TotalFiles != 1 {
		t.Errorf("TotalFiles = %d, want 1", result.TotalFiles)
	}
}

func TestDiscoverGitignore(t *testing.T) {
	tmpDir := t.TempDir()
	mustWrite(t, filepath.Join(tmpDir, ".gitignore"), "ignored.py\n")
	mustWrite(t, filepath.Join(tmpDir, "ignored.py"), "x = 1\n")
	mustWrite(t, filepath.Join(tmpDir, "kept.py"), "x = 1\n")

	w := NewWalker()
	result, err := w.Discover(tmpDir)
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}

	fileMap := make(map[string]types.DiscoveredFile)
	for _, f := range result.Files {
		fileMap[f.RelPath] = f
	}
	assertFile(t, fileMap, "ignored.py", types.ClassExcluded, "gitignore")
	assertFile(t, fileMap, "kept.py", types.ClassSource, "")
	if result.GitignoreCount != 1 {
		t.Errorf("GitignoreCount = %d, want 1", result.GitignoreCount)
	}
}

func TestDiscoverEmptyDir(t *testing.T) {
	tmpDir := t.TempDir()

	w := NewWalker()
	result, err := w.Discover(tmpDir)
	if err != nil {
		t.Fatalf("Discover(%q) returned error: %v", tmpDir, err)
	}
	if len(result.Files) != 0 {
		t.Errorf("expected empty file list, got %d files", len(result.Files))
	}
}

func TestDiscoverNonExistentDir(t *testing.T) {
	w := NewWalker()
	_, err := w.Discover("/nonexistent/path/that/does/not/exist")
	if err == nil {
		t.Error("expected error for non-existent directory, got nil")
	}
}

func TestWalkerSymlink(t *testing.T) {
	tmpDir := t.TempDir()
	mustWrite(t, filepath.Join(tmpDir, "real.py"), "x = 1\n")

	if err := os.Symlink(filepath.Join(tmpDir, "real.py"), filepath.Join(tmpDir, "link.py")); err != nil {
		t.Skipf("symlink creation not supported: %v", err)
	}

	w := NewWalker()
	result, err := w.Discover(tmpDir)
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}

	found := false
	for _, f := range result.Files {
		if f.RelPath == "real.py" {
			found = true
		}
	}
	if !found {
		t.Error("real.py not found in results")
	}
	if result.SymlinkCount < 1 {
		t.Errorf("SymlinkCount = %d, want >= 1", result.SymlinkCount)
	}
}

func TestWalkerPermissionDenied(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission test not reliable on Windows")
	}

	tmpDir := t.TempDir()
	mustWrite(t, filepath.Join(tmpDir, "accessible.py"), "x = 1\n")

	subdir := filepath.Join(tmpDir, "noperm")
	if err := os.Mkdir(subdir, 0o755); err != nil {
		t.Fatal(err)
	}
	mustWrite(t, filepath.Join(subdir, "hidden.py"), "x = 1\n")
	if err := os.Chmod(subdir, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Chmod(subdir, 0o755)
	})

	w := NewWalker()
	result, err := w.Discover(tmpDir)
	if err != nil {
		t.Fatalf("Discover returned error: %v (should have continued)", err)
	}

	found := false
	for _, f := range result.Files {
		if f.RelPath == "accessible.py" {
			found = true
		}
	}
	if !found {
		t.Error("accessible.py not found in results")
	}
	if result.SkippedCount < 1 {
		t.Errorf("SkippedCount = %d, want >= 1", result.SkippedCount)
	}
}

func TestIsImmortalDirectory(t *testing.T) {
	tests := []struct {
		relPath string
		want    bool
	}{
		{"tests/test_foo.py", true},
		{"src/app/docs/readme.py", true},
		{"src/app/main.py", false},
		{"migrations/0001_init.py", true},
		{"top_level.py", false},
	}
	for _, tt := range tests {
		if got := IsImmortalDirectory(tt.relPath); got != tt.want {
			t.Errorf("IsImmortalDirectory(%q) = %v, want %v", tt.relPath, got, tt.want)
		}
	}
}

func TestIsEntryPointFile(t *testing.T) {
	tmpDir := t.TempDir()
	mainPy := filepath.Join(tmpDir, "main.py")
	mustWrite(t, mainPy, "def run():\n    pass\n\nif __name__ == \"__main__\":\n    run()\n")
	libPy := filepath.Join(tmpDir, "lib.py")
	mustWrite(t, libPy, "def helper():\n    pass\n")

	if !IsEntryPointFile(mainPy, "main.py", types.LangPython) {
		t.Error("main.py should be detected as an entry point")
	}
	if IsEntryPointFile(libPy, "lib.py", types.LangPython) {
		t.Error("lib.py should not be detected as an entry point")
	}
	if !IsEntryPointFile("", "index.ts", types.LangTypeScript) {
		t.Error("index.ts should be detected as an entry point by name")
	}
	if IsEntryPointFile("", "widget.ts", types.LangTypeScript) {
		t.Error("widget.ts should not be detected as an entry point")
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func assertFile(t *testing.T, fileMap map[string]types.DiscoveredFile, relPath string, wantClass types.FileClass, wantReason string) {
	t.Helper()
	f, ok := fileMap[relPath]
	if !ok {
		t.Errorf("file %q not found in results", relPath)
		return
	}
	if f.Class != wantClass {
		t.Errorf("file %q: Class = %v, want %v", relPath, f.Class, wantClass)
	}
	if wantReason != "" && f.ExcludeReason != wantReason {
		t.Errorf("file %q: ExcludeReason = %q, want %q", relPath, f.ExcludeReason, wantReason)
	}
}
