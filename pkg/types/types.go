// Package types holds the data model shared across every janitor component:
// the Entity/Import/Reference records produced during analysis, the two
// graphs built on top of them, and the small set of cross-cutting error and
// report types.
package types

import "fmt"

// Language identifies the grammar a source file is parsed with.
type Language int

const (
	LangUnknown Language = iota
	LangPython
	LangTypeScript
)

// String returns the human-readable language name.
func (l Language) String() string {
	switch l {
	case LangPython:
		return "python"
	case LangTypeScript:
		return "javascript-typescript"
	default:
		return "unknown"
	}
}

// FileClass categorizes a discovered file.
type FileClass int

const (
	ClassSource FileClass = iota
	ClassTest
	ClassExcluded
)

// String returns the human-readable name for a FileClass.
func (fc FileClass) String() string {
	switch fc {
	case ClassSource:
		return "source"
	case ClassTest:
		return "test"
	case ClassExcluded:
		return "excluded"
	default:
		return "unknown"
	}
}

// DiscoveredFile represents a file found during directory walking, before
// parsing.
type DiscoveredFile struct {
	Path          string // canonical absolute path
	RelPath       string // path relative to project root
	Language      Language
	Class         FileClass
	ExcludeReason string // why file was excluded (empty if not excluded)
}

// ByteRange is a half-open [Start, End) span into a file's raw byte buffer.
// Both ends must land on UTF-8 character boundaries.
type ByteRange struct {
	Start int
	End   int
}

// LineRange is the 1-indexed, inclusive line span corresponding to a
// ByteRange, used only for human-facing reports.
type LineRange struct {
	Start int
	End   int
}

// EntityKind enumerates the shapes an Entity can take.
type EntityKind int

const (
	KindFunction EntityKind = iota
	KindAsyncFunction
	KindClass
	KindMethod
	KindModuleVariable
	KindExport
)

// String returns the human-readable name for an EntityKind.
func (k EntityKind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindAsyncFunction:
		return "async-function"
	case KindClass:
		return "class"
	case KindMethod:
		return "method"
	case KindModuleVariable:
		return "module-variable"
	case KindExport:
		return "export"
	default:
		return "unknown"
	}
}

// ProtectionTag names the shield that spared an Entity from the kill list.
// The zero value (empty string) means the entity is unprotected.
type ProtectionTag string

const (
	ProtectedDirectory           ProtectionTag = "Directory"
	ProtectedReferenced          ProtectionTag = "Referenced"
	ProtectedWisdomRule          ProtectionTag = "WisdomRule"
	ProtectedLibraryMode         ProtectionTag = "LibraryMode"
	ProtectedPackageExport       ProtectionTag = "PackageExport"
	ProtectedConfigReference     ProtectionTag = "ConfigReference"
	ProtectedMetaprogramming     ProtectionTag = "MetaprogrammingDanger"
	ProtectedEntryPoint          ProtectionTag = "EntryPoint"
	ProtectedQtSlot              ProtectionTag = "QtSlot"
	ProtectedSQLAlchemy          ProtectionTag = "SQLAlchemy"
	ProtectedORMLifecycle        ProtectionTag = "ORMLifecycle"
	ProtectedPydanticAlias       ProtectionTag = "PydanticAlias"
	ProtectedDependencyOverride  ProtectionTag = "DependencyOverride"
	ProtectedPytestFixture       ProtectionTag = "PytestFixture"
	ProtectedGrepShield          ProtectionTag = "GrepShield"
	ProtectedConstructorShield   ProtectionTag = "ConstructorShield"
	ProtectedInheritanceShield   ProtectionTag = "InheritanceShield"
)

// Entity is a single named top-level or class-scoped declaration extracted
// from a source file.
type Entity struct {
	Name           string
	Kind           EntityKind
	FilePath       string // canonical absolute path
	ByteRange      ByteRange
	LineRange      LineRange
	QualifiedName  string // e.g. "ClassName.method"; equals Name for non-methods
	ParentClass    string // empty if not a method
	BaseClasses    []string
	Decorators     []string // raw source-text fragments, including "@"
	StructuralHash string
	ProtectedBy    ProtectionTag
	IsDefaultExport bool // JS/TS only
}

// SymbolID returns the canonical identity of the entity:
// "{canonical_file_path}::{qualified_name}".
func (e *Entity) SymbolID() string {
	return e.FilePath + "::" + e.QualifiedName
}

// IsDead reports whether the entity survived the shield pipeline with no
// protection assigned.
func (e *Entity) IsDead() bool {
	return e.ProtectedBy == ""
}

// Import represents a single imported name (or a bare module import when
// Names is empty).
type Import struct {
	Module        string // dotted or path string
	Names         []string
	IsRelative    bool
	RelativeLevel int // >=1 when IsRelative
	FilePath      string
}

// ReferenceKind enumerates how a Reference was observed or synthesized.
type ReferenceKind int

const (
	RefCall ReferenceKind = iota
	RefAttribute
	RefImport
	RefTypeHint
	RefString
	RefConstructorShield
	RefInheritanceShield
)

// String returns the human-readable name for a ReferenceKind.
func (k ReferenceKind) String() string {
	switch k {
	case RefCall:
		return "call"
	case RefAttribute:
		return "attribute"
	case RefImport:
		return "import"
	case RefTypeHint:
		return "type-hint"
	case RefString:
		return "string"
	case RefConstructorShield:
		return "constructor-shield"
	case RefInheritanceShield:
		return "inheritance-shield"
	default:
		return "unknown"
	}
}

// Reference records one edge in the ReferenceGraph: a place in the source
// (or a synthetic shield) that binds to a target symbol.
type Reference struct {
	SourceFile     string
	SourceSymbol   string // qualified name of the enclosing definition, optional
	TargetSymbolID string
	Kind           ReferenceKind
}

// FileGraph is the directed file-level dependency graph: an edge A->B means
// file A textually imports something resolving to file B.
type FileGraph struct {
	edges map[string]map[string]struct{} // importer -> set of imported files
	nodes map[string]struct{}
}

// NewFileGraph creates an empty FileGraph.
func NewFileGraph() *FileGraph {
	return &FileGraph{
		edges: make(map[string]map[string]struct{}),
		nodes: make(map[string]struct{}),
	}
}

// AddNode registers a file as a graph node even if it has no edges.
func (g *FileGraph) AddNode(path string) {
	g.nodes[path] = struct{}{}
	if _, ok := g.edges[path]; !ok {
		g.edges[path] = make(map[string]struct{})
	}
}

// AddEdge records that `from` imports something resolving to `to`.
// Parallel edges collapse.
func (g *FileGraph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	g.edges[from][to] = struct{}{}
}

// InDegree returns the number of distinct files that import `path`.
func (g *FileGraph) InDegree(path string) int {
	count := 0
	for _, targets := range g.edges {
		if _, ok := targets[path]; ok {
			count++
		}
	}
	return count
}

// Nodes returns all file paths registered in the graph.
func (g *FileGraph) Nodes() []string {
	out := make([]string, 0, len(g.nodes))
	for n := range g.nodes {
		out = append(out, n)
	}
	return out
}

// Targets returns the set of files that `path` imports.
func (g *FileGraph) Targets(path string) []string {
	m := g.edges[path]
	out := make([]string, 0, len(m))
	for t := range m {
		out = append(out, t)
	}
	return out
}

// RefKindCounts tallies in-degree per ReferenceKind for one symbol.
type RefKindCounts map[ReferenceKind]int

// ReferenceGraph is the directed symbol-level reference graph: an edge from
// referrer to referent. Per-entity in-degree counters are keyed by
// reference kind; intra-file vs cross-file use is answered by scanning a
// symbol's incoming references (HasCrossFileReference,
// HasIntraFileReference).
type ReferenceGraph struct {
	edges   map[string][]Reference // target SymbolID -> incoming references
	inDegree map[string]RefKindCounts
}

// NewReferenceGraph creates an empty ReferenceGraph.
func NewReferenceGraph() *ReferenceGraph {
	return &ReferenceGraph{
		edges:    make(map[string][]Reference),
		inDegree: make(map[string]RefKindCounts),
	}
}

// AddReference appends an edge referrer -> r.TargetSymbolID to the graph.
func (g *ReferenceGraph) AddReference(r Reference) {
	g.edges[r.TargetSymbolID] = append(g.edges[r.TargetSymbolID], r)
	counts, ok := g.inDegree[r.TargetSymbolID]
	if !ok {
		counts = make(RefKindCounts)
		g.inDegree[r.TargetSymbolID] = counts
	}
	counts[r.Kind]++
}

// ReferencesOf returns every reference that targets the given symbol.
func (g *ReferenceGraph) ReferencesOf(symbolID string) []Reference {
	return g.edges[symbolID]
}

// InDegree returns the total number of references targeting symbolID.
func (g *ReferenceGraph) InDegree(symbolID string) int {
	total := 0
	for _, n := range g.inDegree[symbolID] {
		total += n
	}
	return total
}

// HasCrossFileReference reports whether any reference to symbolID
// originates from a file other than ownerFile.
func (g *ReferenceGraph) HasCrossFileReference(symbolID, ownerFile string) bool {
	for _, r := range g.edges[symbolID] {
		if r.SourceFile != ownerFile {
			return true
		}
	}
	return false
}

// HasIntraFileReference reports whether any reference to symbolID
// originates from ownerFile itself (including synthetic shields).
func (g *ReferenceGraph) HasIntraFileReference(symbolID, ownerFile string) bool {
	for _, r := range g.edges[symbolID] {
		if r.SourceFile == ownerFile {
			return true
		}
	}
	return false
}

// JanitorError is the single error type surfaced to the CLI layer; Code is
// used verbatim as the process exit code.
type JanitorError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *JanitorError) Error() string {
	return e.Message
}

// Exit code constants, per spec.md §6.
const (
	ExitSuccess              = 0
	ExitFlaggedOrRolledBack  = 1
	ExitConcurrentOrCollect  = 2
	ExitPreflightFailure     = 3
)

// NewJanitorError is a convenience constructor wrapping fmt.Errorf-style
// formatting into a JanitorError.
func NewJanitorError(code int, format string, args ...interface{}) *JanitorError {
	return &JanitorError{Code: code, Message: fmt.Sprintf(format, args...)}
}
