package reftrack

import (
	"strings"

	"github.com/ghrammr/janitor/pkg/types"
)

// Tracker is the Reference Tracker's runtime state: the definitions table,
// inheritance map, variable type registry, package-export set, and the
// reference graph accumulated by the ingestion walk.
type Tracker struct {
	Defs          *Definitions
	Inheritance   *InheritanceMap
	VarTypes      *VarTypeRegistry
	Graph         *types.ReferenceGraph
	PackageExport map[string]bool // SymbolId -> in a package-export barrel

	constructorShielded map[string]bool // class name -> already shielded this run
}

// NewTracker builds a Tracker over entities. Callers then run the
// per-file ingestion walk (IngestPythonFile, IngestTypeScriptFile) to
// populate the reference graph.
func NewTracker(entities []types.Entity) *Tracker {
	return &Tracker{
		Defs:                NewDefinitions(entities),
		Inheritance:         BuildInheritanceMap(entities),
		VarTypes:            NewVarTypeRegistry(),
		Graph:               types.NewReferenceGraph(),
		PackageExport:       make(map[string]bool),
		constructorShielded: make(map[string]bool),
	}
}

// AddReference resolves one candidate reference by the three strategies of
// spec §4.7, in order, and records an edge (plus any triggered shields) for
// every resolved target. classContext is the enclosing class when the
// reference originated from self.x, cls.x, or a method body of class C;
// targetFile is set when the referrer imported symbolName from a resolved
// file. sourceSymbol is the qualified name of the enclosing definition, if
// any, recorded on the Reference for reporting.
func (t *Tracker) AddReference(symbolName, sourceFile, classContext, targetFile, sourceSymbol string, kind types.ReferenceKind) {
	var matched []*types.Entity

	if targetFile != "" {
		matched = t.Defs.ByFileAndName(targetFile, symbolName)
	}
	if len(matched) == 0 && classContext != "" {
		matched = t.Defs.ByClassAndName(classContext, symbolName)
	}
	if len(matched) == 0 {
		// Mandatory fallback: without it, self._method() and imperfectly
		// resolved cross-module calls become false positives.
		matched = t.nameFallback(symbolName)
	}

	for _, m := range matched {
		t.addEdge(m, sourceFile, sourceSymbol, kind)
		t.applyShields(m, sourceFile, sourceSymbol)
	}
}

// nameFallback implements strategy 3: exact qualified-name match when the
// candidate is dotted, else a plain name multimap match. Every match
// produces an edge -- ambiguity is resolved in favor of keeping symbols
// alive, not in favor of precision.
func (t *Tracker) nameFallback(symbolName string) []*types.Entity {
	if strings.Contains(symbolName, ".") {
		if qn := t.Defs.ByQualifiedName(symbolName); len(qn) > 0 {
			return qn
		}
		symbolName = lastDotSegment(symbolName)
	}
	return t.Defs.ByName(symbolName)
}

func (t *Tracker) addEdge(target *types.Entity, sourceFile, sourceSymbol string, kind types.ReferenceKind) {
	t.Graph.AddReference(types.Reference{
		SourceFile:     sourceFile,
		SourceSymbol:   sourceSymbol,
		TargetSymbolID: target.SymbolID(),
		Kind:           kind,
	})
}

// applyShields fires the constructor and inheritance shields when the
// matched target is, respectively, a referenced class or a referenced
// method on a class with descendants.
func (t *Tracker) applyShields(target *types.Entity, sourceFile, sourceSymbol string) {
	if target.Kind == types.KindClass {
		t.applyConstructorShield(target.Name)
	}
	if target.Kind == types.KindMethod && target.ParentClass != "" {
		t.applyInheritanceShield(target.ParentClass, target.Name)
	}
}

// applyConstructorShield awards every dunder method of className (name
// starts and ends with "__") a synthetic reference, once per class per run.
func (t *Tracker) applyConstructorShield(className string) {
	if t.constructorShielded[className] {
		return
	}
	t.constructorShielded[className] = true

	for _, e := range t.Defs.All() {
		if e.ParentClass != className {
			continue
		}
		if isDunder(e.Name) {
			t.Graph.AddReference(types.Reference{
				SourceFile:     e.FilePath,
				TargetSymbolID: e.SymbolID(),
				Kind:           types.RefConstructorShield,
			})
		}
	}
}

func isDunder(name string) bool {
	return len(name) > 4 && strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__")
}

// applyInheritanceShield awards every method named methodName whose parent
// class is a (transitive) descendant of baseClass a synthetic reference.
// Traversal is one-directional: only downward, per spec §4.7.
func (t *Tracker) applyInheritanceShield(baseClass, methodName string) {
	for _, descendant := range t.Inheritance.Descendants(baseClass) {
		for _, e := range t.Defs.ByClassAndName(descendant, methodName) {
			t.Graph.AddReference(types.Reference{
				SourceFile:     e.FilePath,
				TargetSymbolID: e.SymbolID(),
				Kind:           types.RefInheritanceShield,
			})
		}
	}
}

// MarkPackageExport registers a package-export candidate: a name imported
// into an __init__-style module, resolved to a concrete definition wherever
// possible. Unresolved names are recorded by name alone against every
// matching definition, since a barrel import has no class/file context to
// disambiguate with.
func (t *Tracker) MarkPackageExport(name, fromFile string) {
	if fromFile != "" {
		for _, e := range t.Defs.ByFileAndName(fromFile, name) {
			t.PackageExport[e.SymbolID()] = true
		}
		return
	}
	for _, e := range t.Defs.ByName(name) {
		t.PackageExport[e.SymbolID()] = true
	}
}

// IsPackageExport reports whether id is in the package-export set.
func (t *Tracker) IsPackageExport(id string) bool {
	return t.PackageExport[id]
}
