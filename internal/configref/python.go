package configref

import (
	"os"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/ghrammr/janitor/internal/cstutil"
	"github.com/ghrammr/janitor/pkg/types"
)

// pyListAssignmentNames are the Django settings list literals scanned for
// string-addressed app/middleware references.
var pyListAssignmentNames = map[string]bool{
	"INSTALLED_APPS": true,
	"MIDDLEWARE":     true,
}

// scanPythonConfigFile reads settings.py or a dags/*.py module and scans it
// structurally, via the same Tree-sitter Python grammar C1/C2 use, for
// INSTALLED_APPS/MIDDLEWARE list literals and python_callable= keyword
// arguments.
func (s *Scanner) scanPythonConfigFile(path string) []Candidate {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	tree, err := s.ts.ParseFile(types.LangPython, ".py", content)
	if err != nil {
		return nil
	}
	defer tree.Close()

	var out []Candidate
	root := tree.RootNode()
	cstutil.WalkTree(root, func(node *tree_sitter.Node) {
		switch node.Kind() {
		case "assignment":
			out = append(out, pyListAssignmentCandidates(node, content, path)...)
		case "keyword_argument":
			out = append(out, pyCallableKeywordCandidates(node, content, path)...)
		}
	})
	return out
}

func pyListAssignmentCandidates(node *tree_sitter.Node, content []byte, path string) []Candidate {
	left := node.ChildByFieldName("left")
	if left == nil || left.Kind() != "identifier" {
		return nil
	}
	name := cstutil.NodeText(left, content)
	if !pyListAssignmentNames[name] {
		return nil
	}
	right := node.ChildByFieldName("right")
	if right == nil || right.Kind() != "list" {
		return nil
	}

	var out []Candidate
	for i := uint(0); i < right.ChildCount(); i++ {
		el := right.Child(i)
		if el == nil || el.Kind() != "string" {
			continue
		}
		value := pyStringLiteralValue(el, content)
		out = append(out, candidatesFromString(value, path)...)
	}
	return out
}

func pyCallableKeywordCandidates(node *tree_sitter.Node, content []byte, path string) []Candidate {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil || cstutil.NodeText(nameNode, content) != "python_callable" {
		return nil
	}
	valueNode := node.ChildByFieldName("value")
	if valueNode == nil {
		return nil
	}
	switch valueNode.Kind() {
	case "string":
		return candidatesFromString(pyStringLiteralValue(valueNode, content), path)
	case "identifier", "attribute":
		return candidatesFromString(cstutil.NodeText(valueNode, content), path)
	}
	return nil
}

// pyStringLiteralValue strips the quote characters from a Tree-sitter
// Python "string" node's raw text.
func pyStringLiteralValue(node *tree_sitter.Node, content []byte) string {
	raw := cstutil.NodeText(node, content)
	raw = strings.TrimPrefix(raw, "f")
	raw = strings.TrimPrefix(raw, "r")
	raw = strings.TrimPrefix(raw, "b")
	for _, q := range []string{`"""`, "'''", `"`, "'"} {
		if strings.HasPrefix(raw, q) && strings.HasSuffix(raw, q) && len(raw) >= 2*len(q) {
			return raw[len(q) : len(raw)-len(q)]
		}
	}
	return raw
}
