// Package reftrack implements the Reference Tracker (C7): the definitions
// table, inheritance map, variable type registry, package-export set, and
// the reference-resolution protocol that together decide which entities the
// Dead-Symbol Pipeline (C8) can see a use of.
package reftrack

import "github.com/ghrammr/janitor/pkg/types"

// Definitions indexes a project's entities for the three lookup shapes the
// resolution protocol needs: by SymbolId, by bare name (a multimap, for
// fallback), and by (file, name) / (parent class, name) for the first two
// resolution strategies.
type Definitions struct {
	entities       []types.Entity
	byID           map[string]*types.Entity
	byName         map[string][]*types.Entity
	byQualified    map[string][]*types.Entity
	byFileAndName  map[string][]*types.Entity
	byClassAndName map[string][]*types.Entity
}

// NewDefinitions indexes entities. The slice is retained and not copied
// again, so returned pointers stay valid for the life of the Definitions.
func NewDefinitions(entities []types.Entity) *Definitions {
	d := &Definitions{
		entities:       entities,
		byID:           make(map[string]*types.Entity),
		byName:         make(map[string][]*types.Entity),
		byQualified:    make(map[string][]*types.Entity),
		byFileAndName:  make(map[string][]*types.Entity),
		byClassAndName: make(map[string][]*types.Entity),
	}
	for i := range d.entities {
		e := &d.entities[i]
		d.byID[e.SymbolID()] = e
		d.byName[e.Name] = append(d.byName[e.Name], e)
		d.byQualified[e.QualifiedName] = append(d.byQualified[e.QualifiedName], e)
		d.byFileAndName[fileNameKey(e.FilePath, e.Name)] = append(d.byFileAndName[fileNameKey(e.FilePath, e.Name)], e)
		if e.ParentClass != "" {
			d.byClassAndName[classNameKey(e.ParentClass, e.Name)] = append(d.byClassAndName[classNameKey(e.ParentClass, e.Name)], e)
		}
	}
	return d
}

func fileNameKey(file, name string) string  { return file + "\x00" + name }
func classNameKey(class, name string) string { return class + "\x00" + name }

// All returns every indexed entity, in extraction order.
func (d *Definitions) All() []types.Entity { return d.entities }

// ByID looks up an entity by its exact SymbolId.
func (d *Definitions) ByID(symbolID string) (*types.Entity, bool) {
	e, ok := d.byID[symbolID]
	return e, ok
}

// ByName returns every entity with the given bare name, across all files.
func (d *Definitions) ByName(name string) []*types.Entity { return d.byName[name] }

// ByQualifiedName returns every entity with the given qualified name
// (e.g. "Handler.process").
func (d *Definitions) ByQualifiedName(qn string) []*types.Entity { return d.byQualified[qn] }

// ByFileAndName returns entities named name within file (strategy 1: cross-
// module import resolution).
func (d *Definitions) ByFileAndName(file, name string) []*types.Entity {
	return d.byFileAndName[fileNameKey(file, name)]
}

// ByClassAndName returns entities named name whose ParentClass is class
// (strategy 2: self/cls method resolution).
func (d *Definitions) ByClassAndName(class, name string) []*types.Entity {
	return d.byClassAndName[classNameKey(class, name)]
}

// Classes returns every class-kind entity, keyed by name.
func (d *Definitions) Classes() map[string]*types.Entity {
	out := make(map[string]*types.Entity)
	for i := range d.entities {
		e := &d.entities[i]
		if e.Kind == types.KindClass {
			out[e.Name] = e
		}
	}
	return out
}
