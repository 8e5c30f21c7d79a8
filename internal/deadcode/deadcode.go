// Package deadcode implements the Dead-Symbol Pipeline (C8): the ordered
// shield table that assigns every entity a protection tag, or leaves it
// unprotected, meaning dead. The first matching shield wins; assignment
// happens exactly once per entity, mirroring the single-writer discipline
// of the reference graph it reads.
package deadcode

import (
	"strings"

	"github.com/ghrammr/janitor/internal/configref"
	"github.com/ghrammr/janitor/internal/discovery"
	"github.com/ghrammr/janitor/internal/reftrack"
	"github.com/ghrammr/janitor/internal/wisdom"
	"github.com/ghrammr/janitor/pkg/types"
)

// metaprogrammingMarkers are the Python/JS constructs that make static
// resolution unreliable for an entire file, per spec §4.8 shield 2.8.
var metaprogrammingMarkers = []string{
	"getattr(", "setattr(", "hasattr(", "delattr(",
	"eval(", "exec(", "compile(", "importlib.", "__import__(",
	"type(", ".__dict__",
}

// cliCommandDecorators mark a function as a CLI entry point regardless of
// reference count.
var cliCommandDecorators = []string{"@app.command", "@app.callback"}

// Options configures one pipeline run. Library and GrepShield are opt-in
// flags from the CLI surface; ConfigCandidates and Wisdom come from C4 and
// C3 respectively.
type Options struct {
	Library         bool
	GrepShield      bool
	ConfigCandidates []configref.Candidate
	Wisdom          *wisdom.Registry
	NonSourceText   map[string]string // path -> content, for the grep shield only
}

// Pipeline runs the ordered shield table over entities, reading reference
// data from tracker and file content from fileContent (relpath used only
// for the Directory shield; canonical path used everywhere else). It
// mutates each entity's ProtectedBy field in place; Run returns every
// entity, protected and dead alike.
type Pipeline struct {
	opts            Options
	tracker         *reftrack.Tracker
	heuristics      map[string]types.ProtectionTag
	fileContent     map[string]string // canonical path -> content
	relPaths        map[string]string // canonical path -> relpath
	configNames     map[string]bool
}

// NewPipeline builds a Pipeline. fileContent and relPaths are keyed by the
// entity's canonical FilePath. heuristics is the combined output of
// reftrack.HeuristicTags and reftrack.ConftestTags for this run.
func NewPipeline(opts Options, tracker *reftrack.Tracker, heuristics map[string]types.ProtectionTag, fileContent, relPaths map[string]string) *Pipeline {
	configNames := make(map[string]bool, len(opts.ConfigCandidates))
	for _, c := range opts.ConfigCandidates {
		configNames[c.Name] = true
		configNames[c.FullDotted] = true
	}
	return &Pipeline{
		opts:        opts,
		tracker:     tracker,
		heuristics:  heuristics,
		fileContent: fileContent,
		relPaths:    relPaths,
		configNames: configNames,
	}
}

// Run classifies every entity, assigning ProtectedBy on the first matching
// shield and leaving it empty ("dead") if none match.
func (p *Pipeline) Run(entities []types.Entity) []types.Entity {
	for i := range entities {
		p.classify(&entities[i])
	}
	return entities
}

func (p *Pipeline) classify(e *types.Entity) {
	relPath := p.relPaths[e.FilePath]
	content := p.fileContent[e.FilePath]
	id := e.SymbolID()

	if discovery.IsImmortalDirectory(relPath) {
		e.ProtectedBy = types.ProtectedDirectory
		return
	}

	if p.tracker.Graph.HasCrossFileReference(id, e.FilePath) {
		e.ProtectedBy = types.ProtectedReferenced
		return
	}
	if p.tracker.Graph.HasIntraFileReference(id, e.FilePath) {
		e.ProtectedBy = types.ProtectedReferenced
		return
	}

	declText := strings.Join(e.Decorators, "\n") + "\n" + sourceSlice(content, e.ByteRange)
	if p.opts.Wisdom != nil {
		if _, ok := p.opts.Wisdom.IsImmortal(e.Name, e.QualifiedName, declText, e.Decorators); ok {
			e.ProtectedBy = types.ProtectedWisdomRule
			return
		}
	}

	if p.opts.Library && !strings.HasPrefix(e.Name, "_") {
		e.ProtectedBy = types.ProtectedLibraryMode
		return
	}

	if p.tracker.IsPackageExport(id) {
		e.ProtectedBy = types.ProtectedPackageExport
		return
	}

	if p.isConfigReferenced(e) {
		e.ProtectedBy = types.ProtectedConfigReference
		return
	}

	if containsAny(content, metaprogrammingMarkers) {
		e.ProtectedBy = types.ProtectedMetaprogramming
		return
	}

	// Shield 3 (dunder of used class) is the constructor shield applied
	// during ingestion (spec §4.7); by this point it already shows up as
	// an intra/cross-file Referenced tag above.

	if e.Name == "main" || containsAny(declText, cliCommandDecorators) {
		e.ProtectedBy = types.ProtectedEntryPoint
		return
	}

	if tag, ok := p.heuristics[id]; ok {
		e.ProtectedBy = tag
		return
	}

	if p.opts.GrepShield && p.appearsInNonSourceFile(e.Name) {
		e.ProtectedBy = types.ProtectedGrepShield
		return
	}
}

// isConfigReferenced reports whether e.Name or its final dotted segment
// appears in the config-reference candidate set gathered by C4.
func (p *Pipeline) isConfigReferenced(e *types.Entity) bool {
	if p.configNames[e.Name] {
		return true
	}
	segment := e.Name
	if idx := strings.LastIndex(e.QualifiedName, "."); idx >= 0 {
		segment = e.QualifiedName[idx+1:]
	}
	return p.configNames[segment]
}

func (p *Pipeline) appearsInNonSourceFile(name string) bool {
	for _, content := range p.opts.NonSourceText {
		if strings.Contains(content, name) {
			return true
		}
	}
	return false
}

func sourceSlice(content string, r types.ByteRange) string {
	if r.Start < 0 || r.End > len(content) || r.Start > r.End {
		return ""
	}
	return content[r.Start:r.End]
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
