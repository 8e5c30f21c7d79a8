// Package cstutil provides small Tree-sitter CST helpers shared by the
// Entity Extractor, Config-Reference Scanner, and Reference Tracker. It is
// kept separate from those packages to avoid import cycles.
package cstutil

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/ghrammr/janitor/pkg/types"
)

// WalkTree walks a Tree-sitter tree depth-first, calling fn for each node.
func WalkTree(node *tree_sitter.Node, fn func(*tree_sitter.Node)) {
	if node == nil {
		return
	}
	fn(node)
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil {
			WalkTree(child, fn)
		}
	}
}

// NodeText extracts the text content of a Tree-sitter node.
func NodeText(node *tree_sitter.Node, content []byte) string {
	return string(content[node.StartByte():node.EndByte()])
}

// NodeByteRange converts a node's byte offsets into a types.ByteRange.
func NodeByteRange(node *tree_sitter.Node) types.ByteRange {
	return types.ByteRange{Start: int(node.StartByte()), End: int(node.EndByte())}
}

// NodeLineRange converts a node's point range into a 1-indexed,
// inclusive types.LineRange.
func NodeLineRange(node *tree_sitter.Node) types.LineRange {
	start := node.StartPosition()
	end := node.EndPosition()
	return types.LineRange{Start: int(start.Row) + 1, End: int(end.Row) + 1}
}

// CountLines counts lines in source content.
func CountLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	count := 1
	for _, b := range content {
		if b == '\n' {
			count++
		}
	}
	return count
}

// SnapToUTF8Boundary walks backward (forward=false) or forward (forward=true)
// from offset until it lands on a UTF-8 character boundary (a byte that is
// not a continuation byte, i.e. top two bits != 0b10). offset is clamped to
// [0, len(content)].
func SnapToUTF8Boundary(content []byte, offset int, forward bool) int {
	if offset < 0 {
		offset = 0
	}
	if offset > len(content) {
		offset = len(content)
	}
	isContinuation := func(i int) bool {
		return i >= 0 && i < len(content) && content[i]&0xC0 == 0x80
	}
	if forward {
		for offset < len(content) && isContinuation(offset) {
			offset++
		}
	} else {
		for offset > 0 && isContinuation(offset) {
			offset--
		}
	}
	return offset
}

// FindChildByKind returns the first direct child of node whose Kind matches,
// or nil if none match.
func FindChildByKind(node *tree_sitter.Node, kind string) *tree_sitter.Node {
	if node == nil {
		return nil
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.Kind() == kind {
			return child
		}
	}
	return nil
}

// Ancestors returns the chain of ancestors of node, innermost first, not
// including node itself.
func Ancestors(node *tree_sitter.Node) []*tree_sitter.Node {
	var out []*tree_sitter.Node
	current := node.Parent()
	for current != nil {
		out = append(out, current)
		current = current.Parent()
	}
	return out
}
