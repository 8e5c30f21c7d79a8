// Package orphan implements the Orphan Detector (C6): files with zero
// in-degree in the dependency file graph that are not otherwise protected by
// an immortal directory or an entry-point marker.
package orphan

import (
	"path/filepath"

	"github.com/ghrammr/janitor/internal/discovery"
	"github.com/ghrammr/janitor/pkg/types"
)

// Orphan is one file flagged as unreferenced by the rest of the project.
type Orphan struct {
	Path    string
	RelPath string
}

// Detect returns every orphan file among files, per spec §4.6: in-degree
// zero in graph, not under an immortal directory, and not an entry point.
// entities supplies the "sole default-export package entry" half of the
// entry-point carve-out: a JS/TS file that has a default export, and which
// is the only file in its directory exporting a default, is protected as a
// package entry the same way index.* files are; its other exports do not
// affect this check. entities may
// be nil when that check isn't needed (e.g. a graph-only test).
func Detect(files []types.DiscoveredFile, graph *types.FileGraph, entities []types.Entity) []Orphan {
	defaultExportFile := make(map[string]bool)
	for _, e := range entities {
		if e.IsDefaultExport {
			defaultExportFile[e.FilePath] = true
		}
	}
	defaultExportsPerDir := make(map[string]int)
	for path := range defaultExportFile {
		defaultExportsPerDir[filepath.Dir(path)]++
	}

	var out []Orphan
	for _, f := range files {
		if f.Class != types.ClassSource {
			continue
		}
		if graph.InDegree(f.Path) > 0 {
			continue
		}
		if discovery.IsImmortalDirectory(f.RelPath) {
			continue
		}
		if discovery.IsEntryPointFile(f.Path, f.RelPath, f.Language) {
			continue
		}
		if defaultExportFile[f.Path] && defaultExportsPerDir[filepath.Dir(f.Path)] == 1 {
			continue
		}
		out = append(out, Orphan{Path: f.Path, RelPath: f.RelPath})
	}
	return out
}
