package reftrack

import (
	"testing"

	"github.com/ghrammr/janitor/pkg/types"
)

func TestInheritanceMapDescendants(t *testing.T) {
	entities := []types.Entity{
		{Name: "Base", Kind: types.KindClass, QualifiedName: "Base"},
		{Name: "Mid", Kind: types.KindClass, QualifiedName: "Mid", BaseClasses: []string{"Base"}},
		{Name: "Leaf", Kind: types.KindClass, QualifiedName: "Leaf", BaseClasses: []string{"Mid"}},
	}
	m := BuildInheritanceMap(entities)

	desc := m.Descendants("Base")
	found := map[string]bool{}
	for _, d := range desc {
		found[d] = true
	}
	if !found["Mid"] || !found["Leaf"] {
		t.Fatalf("expected Mid and Leaf as descendants of Base, got %v", desc)
	}
}

func TestInheritanceMapIsDescendant(t *testing.T) {
	entities := []types.Entity{
		{Name: "Base", Kind: types.KindClass, QualifiedName: "Base"},
		{Name: "Child", Kind: types.KindClass, QualifiedName: "Child", BaseClasses: []string{"Base"}},
	}
	m := BuildInheritanceMap(entities)
	if !m.IsDescendant("Child", "Base") {
		t.Fatalf("expected Child to be a descendant of Base")
	}
	if m.IsDescendant("Base", "Child") {
		t.Fatalf("did not expect Base to be a descendant of Child")
	}
}

func TestInheritanceMapDottedBaseClass(t *testing.T) {
	entities := []types.Entity{
		{Name: "Item", Kind: types.KindClass, QualifiedName: "Item", BaseClasses: []string{"db.Model"}},
	}
	m := BuildInheritanceMap(entities)
	if !m.IsDescendant("Item", "Model") {
		t.Fatalf("expected Item to descend from dotted base Model")
	}
}
