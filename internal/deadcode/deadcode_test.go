package deadcode

import (
	"testing"

	"github.com/ghrammr/janitor/internal/configref"
	"github.com/ghrammr/janitor/internal/reftrack"
	"github.com/ghrammr/janitor/internal/wisdom"
	"github.com/ghrammr/janitor/pkg/types"
)

func newTestPipeline(opts Options, entities []types.Entity, heuristics map[string]types.ProtectionTag, content map[string]string) (*Pipeline, *reftrack.Tracker) {
	tr := reftrack.NewTracker(entities)
	relPaths := make(map[string]string, len(entities))
	for _, e := range entities {
		relPaths[e.FilePath] = e.FilePath
	}
	if heuristics == nil {
		heuristics = map[string]types.ProtectionTag{}
	}
	return NewPipeline(opts, tr, heuristics, content, relPaths), tr
}

func TestDirectoryShield(t *testing.T) {
	entities := []types.Entity{
		{Name: "helper", Kind: types.KindFunction, FilePath: "/proj/tests/util.py", QualifiedName: "helper"},
	}
	p, _ := newTestPipeline(Options{}, entities, nil, nil)
	out := p.Run(entities)
	if out[0].ProtectedBy != types.ProtectedDirectory {
		t.Fatalf("got %v, want Directory", out[0].ProtectedBy)
	}
}

func TestCrossFileReferencedShield(t *testing.T) {
	entities := []types.Entity{
		{Name: "helper", Kind: types.KindFunction, FilePath: "/proj/lib.py", QualifiedName: "helper"},
	}
	p, tr := newTestPipeline(Options{}, entities, nil, nil)
	tr.Graph.AddReference(types.Reference{SourceFile: "/proj/main.py", TargetSymbolID: entities[0].SymbolID(), Kind: types.RefCall})

	out := p.Run(entities)
	if out[0].ProtectedBy != types.ProtectedReferenced {
		t.Fatalf("got %v, want Referenced", out[0].ProtectedBy)
	}
}

func TestIntraFileReferencedShield(t *testing.T) {
	entities := []types.Entity{
		{Name: "helper", Kind: types.KindFunction, FilePath: "/proj/lib.py", QualifiedName: "helper"},
	}
	p, tr := newTestPipeline(Options{}, entities, nil, nil)
	tr.Graph.AddReference(types.Reference{SourceFile: "/proj/lib.py", TargetSymbolID: entities[0].SymbolID(), Kind: types.RefCall})

	out := p.Run(entities)
	if out[0].ProtectedBy != types.ProtectedReferenced {
		t.Fatalf("got %v, want Referenced", out[0].ProtectedBy)
	}
}

func TestWisdomShield(t *testing.T) {
	entities := []types.Entity{
		{Name: "__init__", Kind: types.KindMethod, FilePath: "/proj/lib.py", QualifiedName: "C.__init__", ParentClass: "C"},
	}
	reg, err := wisdom.LoadDirs(t.TempDir(), "")
	if err != nil {
		t.Fatalf("LoadDirs: %v", err)
	}
	p, _ := newTestPipeline(Options{Wisdom: reg}, entities, nil, nil)
	out := p.Run(entities)
	if out[0].ProtectedBy != types.ProtectedWisdomRule {
		t.Fatalf("got %v, want WisdomRule", out[0].ProtectedBy)
	}
}

func TestLibraryModeShield(t *testing.T) {
	entities := []types.Entity{
		{Name: "public_api", Kind: types.KindFunction, FilePath: "/proj/lib.py", QualifiedName: "public_api"},
		{Name: "_private", Kind: types.KindFunction, FilePath: "/proj/lib.py", QualifiedName: "_private"},
	}
	p, _ := newTestPipeline(Options{Library: true}, entities, nil, nil)
	out := p.Run(entities)
	if out[0].ProtectedBy != types.ProtectedLibraryMode {
		t.Fatalf("got %v, want LibraryMode", out[0].ProtectedBy)
	}
	if out[1].ProtectedBy != "" {
		t.Fatalf("expected underscore-prefixed name to stay unprotected in library mode, got %v", out[1].ProtectedBy)
	}
}

func TestPackageExportShield(t *testing.T) {
	entities := []types.Entity{
		{Name: "Worker", Kind: types.KindClass, FilePath: "/proj/pkg/worker.py", QualifiedName: "Worker"},
	}
	p, tr := newTestPipeline(Options{}, entities, nil, nil)
	tr.MarkPackageExport("Worker", "/proj/pkg/worker.py")

	out := p.Run(entities)
	if out[0].ProtectedBy != types.ProtectedPackageExport {
		t.Fatalf("got %v, want PackageExport", out[0].ProtectedBy)
	}
}

func TestConfigReferenceShield(t *testing.T) {
	entities := []types.Entity{
		{Name: "handler", Kind: types.KindFunction, FilePath: "/proj/lambdas/handler.py", QualifiedName: "handler"},
	}
	opts := Options{ConfigCandidates: []configref.Candidate{{Name: "handler", FullDotted: "handler.handler", SourceFile: "/proj/serverless.yml"}}}
	p, _ := newTestPipeline(opts, entities, nil, nil)
	out := p.Run(entities)
	if out[0].ProtectedBy != types.ProtectedConfigReference {
		t.Fatalf("got %v, want ConfigReference", out[0].ProtectedBy)
	}
}

func TestMetaprogrammingShield(t *testing.T) {
	entities := []types.Entity{
		{Name: "dispatch", Kind: types.KindFunction, FilePath: "/proj/dynamic.py", QualifiedName: "dispatch", ByteRange: types.ByteRange{Start: 0, End: 5}},
	}
	content := map[string]string{"/proj/dynamic.py": "def f():\n    return getattr(obj, name)\n"}
	p, _ := newTestPipeline(Options{}, entities, nil, content)
	out := p.Run(entities)
	if out[0].ProtectedBy != types.ProtectedMetaprogramming {
		t.Fatalf("got %v, want MetaprogrammingDanger", out[0].ProtectedBy)
	}
}

func TestEntryPointShieldByName(t *testing.T) {
	entities := []types.Entity{
		{Name: "main", Kind: types.KindFunction, FilePath: "/proj/app.py", QualifiedName: "main"},
	}
	p, _ := newTestPipeline(Options{}, entities, nil, nil)
	out := p.Run(entities)
	if out[0].ProtectedBy != types.ProtectedEntryPoint {
		t.Fatalf("got %v, want EntryPoint", out[0].ProtectedBy)
	}
}

func TestEntryPointShieldByDecorator(t *testing.T) {
	entities := []types.Entity{
		{Name: "run", Kind: types.KindFunction, FilePath: "/proj/cli.py", QualifiedName: "run", Decorators: []string{"@app.command()"}},
	}
	p, _ := newTestPipeline(Options{}, entities, nil, nil)
	out := p.Run(entities)
	if out[0].ProtectedBy != types.ProtectedEntryPoint {
		t.Fatalf("got %v, want EntryPoint", out[0].ProtectedBy)
	}
}

func TestHeuristicShieldPassthrough(t *testing.T) {
	entities := []types.Entity{
		{Name: "on_click", Kind: types.KindMethod, FilePath: "/proj/ui.py", QualifiedName: "Window.on_click", ParentClass: "Window"},
	}
	heuristics := map[string]types.ProtectionTag{entities[0].SymbolID(): types.ProtectedQtSlot}
	p, _ := newTestPipeline(Options{}, entities, heuristics, nil)
	out := p.Run(entities)
	if out[0].ProtectedBy != types.ProtectedQtSlot {
		t.Fatalf("got %v, want QtSlot", out[0].ProtectedBy)
	}
}

func TestGrepShieldOptIn(t *testing.T) {
	entities := []types.Entity{
		{Name: "legacy_export", Kind: types.KindFunction, FilePath: "/proj/lib.py", QualifiedName: "legacy_export"},
	}
	opts := Options{GrepShield: true, NonSourceText: map[string]string{"/proj/README.md": "call legacy_export from your shell script"}}
	p, _ := newTestPipeline(opts, entities, nil, nil)
	out := p.Run(entities)
	if out[0].ProtectedBy != types.ProtectedGrepShield {
		t.Fatalf("got %v, want GrepShield", out[0].ProtectedBy)
	}
}

func TestGrepShieldDisabledByDefault(t *testing.T) {
	entities := []types.Entity{
		{Name: "legacy_export", Kind: types.KindFunction, FilePath: "/proj/lib.py", QualifiedName: "legacy_export"},
	}
	opts := Options{NonSourceText: map[string]string{"/proj/README.md": "call legacy_export from your shell script"}}
	p, _ := newTestPipeline(opts, entities, nil, nil)
	out := p.Run(entities)
	if out[0].ProtectedBy != "" {
		t.Fatalf("expected grep shield to be opt-in, got %v", out[0].ProtectedBy)
	}
}

func TestUnprotectedEntityIsDead(t *testing.T) {
	entities := []types.Entity{
		{Name: "unused_helper", Kind: types.KindFunction, FilePath: "/proj/lib.py", QualifiedName: "unused_helper"},
	}
	p, _ := newTestPipeline(Options{}, entities, nil, nil)
	out := p.Run(entities)
	if !out[0].IsDead() {
		t.Fatalf("expected unused_helper to be dead, got ProtectedBy=%v", out[0].ProtectedBy)
	}
}
