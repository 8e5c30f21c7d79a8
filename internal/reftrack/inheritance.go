package reftrack

import "github.com/ghrammr/janitor/pkg/types"

// InheritanceMap records child->parents and parent->children edges derived
// from each class entity's BaseClasses, per spec §4.7.
type InheritanceMap struct {
	children map[string][]string // parent -> direct children
	parents  map[string][]string // child -> direct parents
}

// BuildInheritanceMap derives the map from every class entity's BaseClasses.
// Base class names are reduced to their final dotted segment ("db.Model"
// is recorded as "Model"); no import resolution is attempted here.
func BuildInheritanceMap(entities []types.Entity) *InheritanceMap {
	m := &InheritanceMap{
		children: make(map[string][]string),
		parents:  make(map[string][]string),
	}
	for _, e := range entities {
		if e.Kind != types.KindClass {
			continue
		}
		for _, base := range e.BaseClasses {
			base = lastDotSegment(base)
			m.children[base] = append(m.children[base], e.Name)
			m.parents[e.Name] = append(m.parents[e.Name], base)
		}
	}
	return m
}

func lastDotSegment(s string) string {
	last := s
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return s[i+1:]
		}
	}
	return last
}

// Descendants returns every class transitively descended from class
// (direct and indirect children), per the inheritance shield's "descendant
// of B in the Inheritance Map" rule.
func (m *InheritanceMap) Descendants(class string) []string {
	seen := make(map[string]bool)
	var out []string
	var visit func(string)
	visit = func(c string) {
		for _, child := range m.children[c] {
			if seen[child] {
				continue
			}
			seen[child] = true
			out = append(out, child)
			visit(child)
		}
	}
	visit(class)
	return out
}

// IsDescendant reports whether class is ancestor itself or transitively
// inherits from ancestor.
func (m *InheritanceMap) IsDescendant(class, ancestor string) bool {
	if class == ancestor {
		return true
	}
	seen := make(map[string]bool)
	var visit func(string) bool
	visit = func(c string) bool {
		if seen[c] {
			return false
		}
		seen[c] = true
		for _, p := range m.parents[c] {
			if p == ancestor || visit(p) {
				return true
			}
		}
		return false
	}
	return visit(class)
}

// AncestorChain returns every parent class reachable transitively from
// class, direct or indirect.
func (m *InheritanceMap) AncestorChain(class string) []string {
	seen := make(map[string]bool)
	var out []string
	var visit func(string)
	visit = func(c string) {
		for _, p := range m.parents[c] {
			if seen[p] {
				continue
			}
			seen[p] = true
			out = append(out, p)
			visit(p)
		}
	}
	visit(class)
	return out
}
