// Package orchestrator drives the full audit/clean cycle (C12): dependency
// graph, entity extraction, reference resolution, the dead-symbol pipeline,
// and, for clean, the safe-mutation/test-verification loop. It is the only
// package that wires every other component together; everything else in
// this module is a pure function of its inputs.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ghrammr/janitor/internal/cache"
	"github.com/ghrammr/janitor/internal/configref"
	"github.com/ghrammr/janitor/internal/deadcode"
	"github.com/ghrammr/janitor/internal/depgraph"
	"github.com/ghrammr/janitor/internal/discovery"
	"github.com/ghrammr/janitor/internal/entity"
	"github.com/ghrammr/janitor/internal/mutate"
	"github.com/ghrammr/janitor/internal/orphan"
	"github.com/ghrammr/janitor/internal/parser"
	"github.com/ghrammr/janitor/internal/reftrack"
	"github.com/ghrammr/janitor/internal/report"
	"github.com/ghrammr/janitor/internal/testsandbox"
	"github.com/ghrammr/janitor/internal/wisdom"
	"github.com/ghrammr/janitor/pkg/types"
)

// Options configures one Orchestrator run, mirroring the CLI surface of
// spec §6.
type Options struct {
	Library         bool
	GrepShield      bool
	IncludeVendored bool
	TestCmd         string
	RulePackDir     string // community rule packs; defaults to "rules/community" under RootDir
	PremiumRuleDir  string // optional, empty means none
}

// Orchestrator holds the long-lived resources (cache connection, Tree-sitter
// parser pool) a sequence of audit/clean runs on one project root can share.
type Orchestrator struct {
	rootDir string
	opts    Options
	store   *cache.Store
	ts      *parser.TreeSitterParser
}

// New opens the analysis cache and the Tree-sitter parser pool for rootDir.
// Callers must call Close when done.
func New(rootDir string, opts Options) (*Orchestrator, error) {
	store, err := cache.Open(rootDir)
	if err != nil {
		return nil, types.NewJanitorError(types.ExitPreflightFailure, "open analysis cache: %v", err)
	}

	ts, err := parser.NewTreeSitterParser()
	if err != nil {
		store.Close()
		return nil, types.NewJanitorError(types.ExitPreflightFailure, "initialize parser: %v", err)
	}

	return &Orchestrator{rootDir: rootDir, opts: opts, store: store, ts: ts}, nil
}

// Close releases the cache connection and parser pool.
func (o *Orchestrator) Close() error {
	o.ts.Close()
	return o.store.Close()
}

// AuditResult is Audit's full output: the renderable Report plus the data a
// subsequent Clean needs to drive the Safe Mutator without reanalysing the
// project from scratch.
type AuditResult struct {
	Report     *report.Report
	DeadByFile map[string][]types.Entity // canonical path -> dead entities
	FileLang   map[string]types.Language
	FileHash   map[string]string // canonical path -> content hash at analysis time
}

// Audit runs the full analysis cycle: try the whole-project cache; on a
// miss, walk the tree, build the file and reference graphs, run the
// dead-symbol pipeline, and write the whole-project cache entry.
func (o *Orchestrator) Audit() (*AuditResult, error) {
	walker := &discovery.Walker{IncludeVendored: o.opts.IncludeVendored}
	scan, err := walker.Discover(o.rootDir)
	if err != nil {
		return nil, types.NewJanitorError(types.ExitPreflightFailure, "discover project files: %v", err)
	}

	var sourceFiles []types.DiscoveredFile
	fileContent := make(map[string]string)
	fileHash := make(map[string]string)
	for _, f := range scan.Files {
		if f.Class == types.ClassExcluded {
			continue
		}
		content, err := os.ReadFile(f.Path)
		if err != nil {
			log.Printf("janitor: skipping %s: %v", f.RelPath, err)
			continue
		}
		sourceFiles = append(sourceFiles, f)
		fileContent[f.Path] = string(content)
		fileHash[f.Path] = cache.HashContent(content)
	}

	projectHash := computeProjectHash(fileHash)

	if hit, err := o.store.ProjectResultHash(projectHash); err == nil && hit {
		deadCount, okD, errD := o.store.FieldFromProjectResult(projectHash, "dead_symbols_json", "#")
		orphanCount, okO, errO := o.store.FieldFromProjectResult(projectHash, "orphans_json", "#")
		if errD == nil && errO == nil && okD && okO && deadCount.Int() == 0 && orphanCount.Int() == 0 {
			log.Printf("janitor: whole-project cache hit, nothing to report, skipping full decode")
			return buildAuditResult(o.rootDir, nil, nil, nil, fileHash, scan.Files), nil
		}

		var dead []types.Entity
		var orphanPaths []string
		if ok, err := o.store.GetProjectResult(projectHash, &dead, &orphanPaths); err == nil && ok {
			log.Printf("janitor: whole-project cache hit, skipping analysis")
			return buildAuditResult(o.rootDir, dead, nil, orphanPaths, fileHash, scan.Files), nil
		}
	}

	entities, imports, parsedFiles, err := o.parseAndExtract(sourceFiles, fileContent)
	if err != nil {
		return nil, err
	}
	defer parser.CloseAll(parsedFiles)

	builder := depgraph.NewBuilder(o.rootDir)
	graph := builder.Build(sourceFiles, imports)
	orphans := orphan.Detect(sourceFiles, graph, entities)
	var orphanPaths []string
	for _, orp := range orphans {
		orphanPaths = append(orphanPaths, orp.Path)
	}

	tracker := reftrack.NewTracker(entities)
	importTargets := buildImportTargets(builder, imports)
	o.ingest(tracker, parsedFiles, imports, importTargets)

	heuristics := reftrack.HeuristicTags(tracker)
	fileImportsPytest := reftrack.FileImportsPytest(imports)
	for k, v := range reftrack.ConftestTags(tracker.Defs, fileImportsPytest) {
		heuristics[k] = v
	}
	for _, pf := range parsedFiles {
		if pf.Language != types.LangPython {
			continue
		}
		for k, v := range reftrack.SQLAlchemyMetaclassTags(tracker, pf) {
			heuristics[k] = v
		}
		for k, v := range reftrack.PydanticAliasTags(tracker, pf) {
			heuristics[k] = v
		}
	}

	configCandidates, err := configref.NewScanner(o.ts).ScanRoot(o.rootDir)
	if err != nil {
		log.Printf("janitor: config-reference scan: %v", err)
	}

	registry, err := wisdom.LoadDirs(o.rulePackDir(), o.opts.PremiumRuleDir)
	if err != nil {
		return nil, types.NewJanitorError(types.ExitPreflightFailure, "load wisdom registry: %v", err)
	}

	var nonSourceText map[string]string
	if o.opts.GrepShield {
		nonSourceText = o.collectNonSourceFiles(scan.Files)
	}

	relPaths := make(map[string]string, len(sourceFiles))
	for _, f := range sourceFiles {
		relPaths[f.Path] = f.RelPath
	}

	pipeline := deadcode.NewPipeline(deadcode.Options{
		Library:          o.opts.Library,
		GrepShield:       o.opts.GrepShield,
		ConfigCandidates: configCandidates,
		Wisdom:           registry,
		NonSourceText:    nonSourceText,
	}, tracker, heuristics, fileContent, relPaths)
	pipeline.Run(entities)

	var deadEntities []types.Entity
	for _, e := range entities {
		if e.IsDead() {
			deadEntities = append(deadEntities, e)
		}
	}

	if err := o.store.PutProjectResult(projectHash, deadEntities, orphanPaths); err != nil {
		log.Printf("janitor: writing whole-project cache: %v", err)
	}

	return buildAuditResult(o.rootDir, deadEntities, entities, orphanPaths, fileHash, sourceFiles), nil
}

func buildAuditResult(rootDir string, dead, all []types.Entity, orphanPaths []string, fileHash map[string]string, files []types.DiscoveredFile) *AuditResult {
	fileLang := make(map[string]types.Language, len(files))
	for _, f := range files {
		fileLang[f.Path] = f.Language
	}

	var protected []report.SymbolRecord
	deadRecords, protectedFromAll := report.FromEntities(all)
	if all != nil {
		protected = protectedFromAll
	} else {
		// Whole-project cache hit: only the dead list was cached, so the
		// protected section of verbose output is unavailable this run.
		for _, e := range dead {
			deadRecords = append(deadRecords, report.SymbolRecord{
				Name: e.QualifiedName, Kind: e.Kind.String(), File: e.FilePath, Line: e.LineRange.Start,
			})
		}
	}

	var orphanRecords []report.OrphanRecord
	for _, p := range orphanPaths {
		orphanRecords = append(orphanRecords, report.OrphanRecord{Path: p})
	}

	rep := &report.Report{
		RootDir:          rootDir,
		Orphans:          orphanRecords,
		DeadSymbols:      deadRecords,
		ProtectedSymbols: protected,
	}

	deadByFile := make(map[string][]types.Entity)
	for _, e := range dead {
		deadByFile[e.FilePath] = append(deadByFile[e.FilePath], e)
	}

	return &AuditResult{
		Report:     rep,
		DeadByFile: deadByFile,
		FileLang:   fileLang,
		FileHash:   fileHash,
	}
}

// parseAndExtract fans per-file parse + entity/import extraction across
// worker goroutines and merges results under a single mutex-guarded writer,
// mirroring the teacher's per-file analyzer fan-out. A per-file cache hit
// on file_entities/file_dependencies skips re-walking the tree for entity
// extraction, though the file is still parsed: the CST is needed downstream
// by the enterprise heuristics regardless of whether entities changed.
func (o *Orchestrator) parseAndExtract(files []types.DiscoveredFile, content map[string]string) ([]types.Entity, []types.Import, []*parser.ParsedFile, error) {
	var mu sync.Mutex
	var entities []types.Entity
	var imports []types.Import
	var parsedFiles []*parser.ParsedFile

	g := new(errgroup.Group)
	for _, f := range files {
		f := f
		g.Go(func() error {
			buf := []byte(content[f.Path])
			hash := cache.HashContent(buf)

			ext := strings.ToLower(filepath.Ext(f.Path))
			tree, err := o.ts.ParseFile(f.Language, ext, buf)
			if err != nil {
				log.Printf("janitor: parse %s: %v", f.RelPath, err)
				return nil
			}
			pf := &parser.ParsedFile{Path: f.Path, RelPath: f.RelPath, Tree: tree, Content: buf, Language: f.Language}

			var fileEntities []types.Entity
			var fileImports []types.Import
			var cachedE, cachedI bool
			if ok, err := o.store.GetFileEntities(f.Path, hash, &fileEntities); err == nil && ok {
				cachedE = true
			}
			if ok, err := o.store.GetFileDependencies(f.Path, hash, &fileImports); err == nil && ok {
				cachedI = true
			}

			if !cachedE || !cachedI {
				fileEntities, fileImports, err = entity.Extract(pf)
				if err != nil {
					log.Printf("janitor: extract %s: %v", f.RelPath, err)
					return nil
				}
				if err := o.store.PutFileEntities(f.Path, hash, fileEntities); err != nil {
					log.Printf("janitor: cache entities for %s: %v", f.RelPath, err)
				}
				if err := o.store.PutFileDependencies(f.Path, hash, fileImports); err != nil {
					log.Printf("janitor: cache dependencies for %s: %v", f.RelPath, err)
				}
			}

			mu.Lock()
			entities = append(entities, fileEntities...)
			imports = append(imports, fileImports...)
			parsedFiles = append(parsedFiles, pf)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}

	return entities, imports, parsedFiles, nil
}

// ingest runs the reference-resolution walk over every parsed file. Unlike
// parseAndExtract, this step is not fanned out: every Ingest* call mutates
// the shared Tracker directly (it is both the "walk" and the "merge" in
// one), and Tracker carries no internal synchronization, so concurrent
// ingestion would race. The walk itself is cheap relative to parsing.
func (o *Orchestrator) ingest(tracker *reftrack.Tracker, parsedFiles []*parser.ParsedFile, imports []types.Import, importTargets map[string]map[string]string) {
	for _, pf := range parsedFiles {
		targets := importTargets[pf.Path]
		fileImports := importsForFile(imports, pf.Path)

		switch pf.Language {
		case types.LangPython:
			reftrack.IngestPythonFile(tracker, pf, targets, fileImports)
			reftrack.LifespanTeardownReferences(tracker, pf, targets)
		case types.LangTypeScript:
			reftrack.IngestTypeScriptFile(tracker, pf, targets, fileImports)
		}
	}
}

func importsForFile(imports []types.Import, path string) []types.Import {
	var out []types.Import
	for _, imp := range imports {
		if imp.FilePath == path {
			out = append(out, imp)
		}
	}
	return out
}

// buildImportTargets re-derives, per file, a map from a name bound by an
// import statement to the file it resolved to, by re-running the
// Dependency Graph Builder's own per-import resolution at name
// granularity: Build's file-level edges alone don't say which imported name
// produced which edge, and the Reference Tracker needs that name-level
// binding to resolve "from a import C; C()" across files. A bare
// "import module" (Names empty) binds the module's own last path segment,
// the name it would be referenced by (module.attr).
func buildImportTargets(builder *depgraph.Builder, imports []types.Import) map[string]map[string]string {
	out := make(map[string]map[string]string)
	for _, imp := range imports {
		targets := builder.ResolveImport(imp)
		if len(targets) == 0 {
			continue
		}
		target := targets[0]

		names := imp.Names
		if len(names) == 0 {
			names = []string{lastModuleSegment(imp.Module)}
		}

		perFile, ok := out[imp.FilePath]
		if !ok {
			perFile = make(map[string]string)
			out[imp.FilePath] = perFile
		}
		for _, name := range names {
			perFile[name] = target
		}
	}
	return out
}

func lastModuleSegment(module string) string {
	module = strings.ReplaceAll(module, "/", ".")
	parts := strings.Split(module, ".")
	return parts[len(parts)-1]
}

// computeProjectHash derives a single hash over every analyzed file's path
// and content hash, used as the whole-project cache key: unchanged iff
// every file's content hash is unchanged and no file was added or removed.
func computeProjectHash(fileHash map[string]string) string {
	paths := make([]string, 0, len(fileHash))
	for p := range fileHash {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var b strings.Builder
	for _, p := range paths {
		b.WriteString(p)
		b.WriteByte('\n')
		b.WriteString(fileHash[p])
		b.WriteByte('\n')
	}
	return cache.HashContent([]byte(b.String()))
}

// rulePackDir returns the configured community rule-pack directory, or
// rules/community under the analysed project's root.
func (o *Orchestrator) rulePackDir() string {
	if o.opts.RulePackDir != "" {
		return o.opts.RulePackDir
	}
	return filepath.Join(o.rootDir, "rules", "community")
}

// nonSourceSkipDirs names directories never worth grep-shield scanning,
// matching the discovery front end's own always-skip and vendored sets
// (kept as a local copy since those maps are unexported there).
var nonSourceSkipDirs = map[string]bool{
	".git": true, ".janitor_cache": true, ".janitor_trash": true,
	"node_modules": true, "__pycache__": true, "site-packages": true,
	"dist": true, "build": true, ".venv": true, "venv": true, "env": true,
	"vendor": true, ".tox": true,
}

// collectNonSourceFiles walks the project root collecting every file not
// recognized as a Python/JS/TS source file, for the opt-in grep shield.
// Scope is deliberately broad per spec §9's open question: every file not
// under an excluded or vendored directory counts, regardless of extension.
func (o *Orchestrator) collectNonSourceFiles(discovered []types.DiscoveredFile) map[string]string {
	known := make(map[string]bool, len(discovered))
	for _, f := range discovered {
		known[f.Path] = true
	}

	out := make(map[string]string)
	_ = filepath.Walk(o.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		name := info.Name()
		if info.IsDir() {
			if name != filepath.Base(o.rootDir) && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if nonSourceSkipDirs[name] && !o.opts.IncludeVendored {
				return filepath.SkipDir
			}
			return nil
		}
		if known[path] {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		out[path] = string(content)
		return nil
	})
	return out
}

// Clean runs Audit, then mutates every file with at least one dead symbol
// inside a mutation session, verifying the project's test suite still
// passes before committing; any regression or concurrent modification
// rolls the whole session back.
func (o *Orchestrator) Clean(ctx context.Context) (*report.Report, error) {
	ar, err := o.Audit()
	if err != nil {
		return nil, err
	}
	rep := ar.Report

	if len(ar.DeadByFile) == 0 {
		return rep, nil
	}

	trashRoot := filepath.Join(o.rootDir, ".janitor_trash")
	if err := os.MkdirAll(trashRoot, 0o755); err != nil {
		return nil, types.NewJanitorError(types.ExitPreflightFailure, "create trash directory: %v", err)
	}

	sess, err := mutate.NewSession(trashRoot)
	if err != nil {
		return nil, types.NewJanitorError(types.ExitPreflightFailure, "start mutation session: %v", err)
	}

	sandbox, err := testsandbox.Detect(o.rootDir, o.opts.TestCmd)
	if err != nil {
		return nil, types.NewJanitorError(types.ExitPreflightFailure, "detect test runner: %v", err)
	}

	baseline, err := sandbox.Baseline(ctx)
	if err != nil {
		return nil, types.NewJanitorError(types.ExitPreflightFailure, "run baseline tests: %v", err)
	}

	for file, deadEntities := range ar.DeadByFile {
		lang := ar.FileLang[file]
		hash := ar.FileHash[file]
		if err := sess.DeleteSymbols(file, deadEntities, hash, lang); err != nil {
			restoreErr := sess.RestoreAll()
			if errors.Is(err, mutate.ErrConcurrentModification) {
				return nil, types.NewJanitorError(types.ExitConcurrentOrCollect, "%v", err)
			}
			if restoreErr != nil {
				return nil, fmt.Errorf("mutate %s: %w (restore also failed: %v)", file, err, restoreErr)
			}
			return nil, types.NewJanitorError(types.ExitPreflightFailure, "mutate %s: %v", file, err)
		}
	}

	current, err := sandbox.Verify(ctx, baseline)
	if err != nil {
		if restoreErr := sess.RestoreAll(); restoreErr != nil {
			return nil, fmt.Errorf("verify tests: %w (restore also failed: %v)", err, restoreErr)
		}
		return nil, types.NewJanitorError(types.ExitPreflightFailure, "verify tests: %v", err)
	}

	rep.SessionID = sess.SessionID()
	rep.MutationPerformed = true

	if current.IsCollectionError() {
		if err := sess.RestoreAll(); err != nil {
			return nil, fmt.Errorf("restore after collection error: %w", err)
		}
		rep.MutationCommitted = false
		return rep, types.NewJanitorError(types.ExitConcurrentOrCollect, "test collection failed after mutation, rolled back")
	}

	if !testsandbox.Accept(baseline, current) {
		if err := sess.RestoreAll(); err != nil {
			return nil, fmt.Errorf("restore after test regression: %w", err)
		}
		rep.MutationCommitted = false
		return rep, types.NewJanitorError(types.ExitFlaggedOrRolledBack, "mutation introduced new test failures, rolled back")
	}

	if err := sess.Commit(); err != nil {
		return nil, fmt.Errorf("commit mutation session: %w", err)
	}
	rep.MutationCommitted = true
	return rep, nil
}
