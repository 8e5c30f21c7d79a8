package reftrack

import (
	"testing"

	"github.com/ghrammr/janitor/pkg/types"
)

func TestAddReferenceCrossModuleImport(t *testing.T) {
	entities := []types.Entity{
		{Name: "helper", Kind: types.KindFunction, FilePath: "/b.py", QualifiedName: "helper"},
	}
	tr := NewTracker(entities)
	tr.AddReference("helper", "/a.py", "", "/b.py", "", types.RefCall)

	if tr.Graph.InDegree("/b.py::helper") != 1 {
		t.Fatalf("expected 1 reference to helper")
	}
}

func TestAddReferenceSelfMethodResolution(t *testing.T) {
	entities := []types.Entity{
		{Name: "process", Kind: types.KindMethod, FilePath: "/b.py", QualifiedName: "Worker.process", ParentClass: "Worker"},
	}
	tr := NewTracker(entities)
	tr.AddReference("process", "/b.py", "Worker", "", "Worker.run", types.RefAttribute)

	if tr.Graph.InDegree("/b.py::Worker.process") != 1 {
		t.Fatalf("expected self.process() to resolve")
	}
}

func TestAddReferenceNameFallback(t *testing.T) {
	entities := []types.Entity{
		{Name: "run", Kind: types.KindFunction, FilePath: "/a.py", QualifiedName: "run"},
	}
	tr := NewTracker(entities)
	tr.AddReference("run", "/caller.py", "", "", "", types.RefCall)

	if tr.Graph.InDegree("/a.py::run") != 1 {
		t.Fatalf("expected name-fallback resolution")
	}
}

func TestAddReferenceUnresolvedIsNoop(t *testing.T) {
	tr := NewTracker(nil)
	tr.AddReference("nonexistent", "/a.py", "", "", "", types.RefCall)
	if tr.Graph.InDegree("nonexistent") != 0 {
		t.Fatalf("expected no edges for unresolved reference")
	}
}

func TestConstructorShieldAwardsAllDunders(t *testing.T) {
	entities := []types.Entity{
		{Name: "Widget", Kind: types.KindClass, FilePath: "/w.py", QualifiedName: "Widget"},
		{Name: "__init__", Kind: types.KindMethod, FilePath: "/w.py", QualifiedName: "Widget.__init__", ParentClass: "Widget"},
		{Name: "__repr__", Kind: types.KindMethod, FilePath: "/w.py", QualifiedName: "Widget.__repr__", ParentClass: "Widget"},
		{Name: "helper", Kind: types.KindMethod, FilePath: "/w.py", QualifiedName: "Widget.helper", ParentClass: "Widget"},
	}
	tr := NewTracker(entities)
	tr.AddReference("Widget", "/caller.py", "", "/w.py", "", types.RefCall)

	if tr.Graph.InDegree("/w.py::Widget.__init__") == 0 {
		t.Errorf("expected __init__ to receive constructor shield")
	}
	if tr.Graph.InDegree("/w.py::Widget.__repr__") == 0 {
		t.Errorf("expected __repr__ to receive constructor shield")
	}
	if tr.Graph.InDegree("/w.py::Widget.helper") != 0 {
		t.Errorf("did not expect helper (not a dunder) to receive constructor shield")
	}
}

func TestInheritanceShieldAwardsDescendantOverride(t *testing.T) {
	entities := []types.Entity{
		{Name: "Base", Kind: types.KindClass, FilePath: "/base.py", QualifiedName: "Base"},
		{Name: "run", Kind: types.KindMethod, FilePath: "/base.py", QualifiedName: "Base.run", ParentClass: "Base"},
		{Name: "Child", Kind: types.KindClass, FilePath: "/child.py", QualifiedName: "Child", BaseClasses: []string{"Base"}},
		{Name: "run", Kind: types.KindMethod, FilePath: "/child.py", QualifiedName: "Child.run", ParentClass: "Child"},
	}
	tr := NewTracker(entities)
	tr.AddReference("run", "/caller.py", "", "/base.py", "", types.RefCall)

	if tr.Graph.InDegree("/child.py::Child.run") == 0 {
		t.Errorf("expected Child.run to receive inheritance shield via Base.run reference")
	}
}

func TestMarkPackageExportAndQuery(t *testing.T) {
	entities := []types.Entity{
		{Name: "Thing", Kind: types.KindClass, FilePath: "/impl.py", QualifiedName: "Thing"},
	}
	tr := NewTracker(entities)
	tr.MarkPackageExport("Thing", "/impl.py")

	if !tr.IsPackageExport("/impl.py::Thing") {
		t.Fatalf("expected Thing to be marked as package export")
	}
}

func TestNameFallbackDottedQualifiedName(t *testing.T) {
	entities := []types.Entity{
		{Name: "process", Kind: types.KindMethod, FilePath: "/w.py", QualifiedName: "Worker.process", ParentClass: "Worker"},
	}
	tr := NewTracker(entities)
	tr.AddReference("Worker.process", "/caller.py", "", "", "", types.RefCall)

	if tr.Graph.InDegree("/w.py::Worker.process") != 1 {
		t.Fatalf("expected qualified-name fallback to resolve Worker.process")
	}
}
