package types

import "testing"

func TestFileClassString(t *testing.T) {
	tests := []struct {
		fc   FileClass
		want string
	}{
		{ClassSource, "source"},
		{ClassTest, "test"},
		{ClassExcluded, "excluded"},
		{FileClass(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.fc.String(); got != tt.want {
				t.Errorf("FileClass(%d).String() = %q, want %q", tt.fc, got, tt.want)
			}
		})
	}
}

func TestLanguageString(t *testing.T) {
	tests := []struct {
		l    Language
		want string
	}{
		{LangPython, "python"},
		{LangTypeScript, "javascript-typescript"},
		{LangUnknown, "unknown"},
	}
	for _, tt := range tests {
		if got := tt.l.String(); got != tt.want {
			t.Errorf("Language.String() = %q, want %q", got, tt.want)
		}
	}
}

func TestEntitySymbolID(t *testing.T) {
	e := &Entity{FilePath: "/repo/a.py", QualifiedName: "C.method"}
	want := "/repo/a.py::C.method"
	if got := e.SymbolID(); got != want {
		t.Errorf("SymbolID() = %q, want %q", got, want)
	}
}

func TestEntityIsDead(t *testing.T) {
	e := &Entity{}
	if !e.IsDead() {
		t.Error("fresh entity should be dead until a shield assigns ProtectedBy")
	}
	e.ProtectedBy = ProtectedEntryPoint
	if e.IsDead() {
		t.Error("entity with ProtectedBy set should not be dead")
	}
}

func TestFileGraphInDegree(t *testing.T) {
	g := NewFileGraph()
	g.AddEdge("a.py", "b.py")
	g.AddEdge("c.py", "b.py")
	g.AddEdge("a.py", "b.py") // parallel edge collapses

	if got := g.InDegree("b.py"); got != 2 {
		t.Errorf("InDegree(b.py) = %d, want 2", got)
	}
	if got := g.InDegree("a.py"); got != 0 {
		t.Errorf("InDegree(a.py) = %d, want 0", got)
	}
	targets := g.Targets("a.py")
	if len(targets) != 1 || targets[0] != "b.py" {
		t.Errorf("Targets(a.py) = %v, want [b.py]", targets)
	}
}

func TestReferenceGraphCrossAndIntraFile(t *testing.T) {
	g := NewReferenceGraph()
	g.AddReference(Reference{SourceFile: "a.py", TargetSymbolID: "b.py::f", Kind: RefCall})
	g.AddReference(Reference{SourceFile: "b.py", TargetSymbolID: "b.py::f", Kind: RefConstructorShield})

	if !g.HasCrossFileReference("b.py::f", "b.py") {
		t.Error("expected cross-file reference from a.py")
	}
	if !g.HasIntraFileReference("b.py::f", "b.py") {
		t.Error("expected intra-file synthetic reference")
	}
	if g.InDegree("b.py::f") != 2 {
		t.Errorf("InDegree = %d, want 2", g.InDegree("b.py::f"))
	}
	if g.InDegree("missing::g") != 0 {
		t.Error("InDegree of unreferenced symbol should be 0")
	}
}

func TestJanitorErrorError(t *testing.T) {
	err := NewJanitorError(ExitConcurrentOrCollect, "file %s changed", "a.py")
	if err.Error() != "file a.py changed" {
		t.Errorf("Error() = %q", err.Error())
	}
	if err.Code != ExitConcurrentOrCollect {
		t.Errorf("Code = %d, want %d", err.Code, ExitConcurrentOrCollect)
	}
}
