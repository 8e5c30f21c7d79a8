package wisdom

import (
	"os"
	"path/filepath"
	"testing"
)

func writePack(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestIsImmortalExactMatch(t *testing.T) {
	dir := t.TempDir()
	writePack(t, dir, "meta.json", `{"meta": {"exact_matches": ["setup_module"]}}`)

	r, err := LoadDirs(dir, "")
	if err != nil {
		t.Fatalf("LoadDirs: %v", err)
	}
	reason, ok := r.IsImmortal("setup_module", "setup_module", "", nil)
	if !ok || reason != "meta-exact-match" {
		t.Errorf("IsImmortal = (%q, %v), want (meta-exact-match, true)", reason, ok)
	}
	if _, ok := r.IsImmortal("other_name", "other_name", "", nil); ok {
		t.Error("unrelated name should not match")
	}
}

func TestIsImmortalDecoratorSubstring(t *testing.T) {
	dir := t.TempDir()
	writePack(t, dir, "pytest.json", `{
		"immortality_rules": [
			{"framework": "pytest", "patterns": ["@pytest.fixture"], "type": "decorator", "action": "protect"}
		]
	}`)

	r, err := LoadDirs(dir, "")
	if err != nil {
		t.Fatalf("LoadDirs: %v", err)
	}
	reason, ok := r.IsImmortal("client", "client", "", []string{"@pytest.fixture"})
	if !ok || reason != "pytest" {
		t.Errorf("IsImmortal = (%q, %v), want (pytest, true)", reason, ok)
	}
}

func TestIsImmortalSyntaxMarker(t *testing.T) {
	dir := t.TempDir()
	writePack(t, dir, "django.json", `{
		"frameworks": {
			"django-signals": {"syntax_markers": ["@receiver("]}
		}
	}`)

	r, err := LoadDirs(dir, "")
	if err != nil {
		t.Fatalf("LoadDirs: %v", err)
	}
	reason, ok := r.IsImmortal("on_save", "on_save", "@receiver(post_save)\ndef on_save(): pass", nil)
	if !ok || reason != "django-signals" {
		t.Errorf("IsImmortal = (%q, %v), want (django-signals, true)", reason, ok)
	}
}

func TestIsImmortalDunder(t *testing.T) {
	r := build(nil)
	reason, ok := r.IsImmortal("__init__", "C.__init__", "", nil)
	if !ok || reason != "dunder" {
		t.Errorf("IsImmortal = (%q, %v), want (dunder, true)", reason, ok)
	}
	// len("__") == 2, not > 4, must not match the dunder rule.
	if _, ok := r.IsImmortal("__", "__", "", nil); ok {
		t.Error("bare '__' should not match the dunder rule")
	}
}

func TestIsImmortalPropertyDecorator(t *testing.T) {
	r := build(nil)
	reason, ok := r.IsImmortal("value", "C.value", "", []string{"@property"})
	if !ok || reason != "descriptor-decorator" {
		t.Errorf("IsImmortal = (%q, %v), want (descriptor-decorator, true)", reason, ok)
	}
}

func TestIsImmortalPrefixOnQualifiedNameSegment(t *testing.T) {
	dir := t.TempDir()
	writePack(t, dir, "meta.json", `{"meta": {"prefix_matches": ["test_"]}}`)

	r, err := LoadDirs(dir, "")
	if err != nil {
		t.Fatalf("LoadDirs: %v", err)
	}
	reason, ok := r.IsImmortal("test_upload", "Handler.test_upload", "", nil)
	if !ok || reason != "meta-prefix-match" {
		t.Errorf("IsImmortal = (%q, %v), want (meta-prefix-match, true)", reason, ok)
	}
}

func TestIsImmortalNoMatch(t *testing.T) {
	r := build(nil)
	if _, ok := r.IsImmortal("regular_function", "regular_function", "x = 1", nil); ok {
		t.Error("expected no match for an ordinary name and body")
	}
}

func TestLoadDirsMissingPremiumIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	writePack(t, dir, "meta.json", `{"meta": {"exact_matches": ["x"]}}`)

	r, err := LoadDirs(dir, filepath.Join(dir, "does-not-exist"))
	if err != nil {
		t.Fatalf("LoadDirs: %v", err)
	}
	if _, ok := r.IsImmortal("x", "x", "", nil); !ok {
		t.Error("community rule should still be loaded")
	}
}

func TestLoadDirsMissingCommunityIsNotAnError(t *testing.T) {
	r, err := LoadDirs(filepath.Join(t.TempDir(), "missing"), "")
	if err != nil {
		t.Fatalf("LoadDirs: %v", err)
	}
	if _, ok := r.IsImmortal("anything", "anything", "", nil); ok {
		t.Error("empty registry should never match")
	}
}
