package reftrack

import (
	"path/filepath"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/ghrammr/janitor/internal/cstutil"
	"github.com/ghrammr/janitor/internal/parser"
	"github.com/ghrammr/janitor/pkg/types"
)

// IngestTypeScriptFile walks pf's CST a second time collecting candidate
// references, per spec §4.7. importTargets maps a locally-bound import name
// to the file it resolved to. fileImports is this file's already-extracted
// Import list, reused to populate the package-export set for index.* barrel
// files.
func IngestTypeScriptFile(t *Tracker, pf *parser.ParsedFile, importTargets map[string]string, fileImports []types.Import) {
	root := pf.Tree.RootNode()
	isBarrel := strings.HasPrefix(strings.ToLower(filepath.Base(pf.Path)), "index.")

	if isBarrel {
		for _, imp := range fileImports {
			for _, name := range imp.Names {
				t.MarkPackageExport(name, importTargets[name])
			}
		}
	}

	cstutil.WalkTree(root, func(n *tree_sitter.Node) {
		switch n.Kind() {
		case "call_expression":
			collectTSCallReference(t, n, pf, importTargets)
		case "type_annotation":
			collectTSTypeAnnotationReference(t, n, pf, importTargets)
		}
	})
}

func collectTSCallReference(t *Tracker, call *tree_sitter.Node, pf *parser.ParsedFile, importTargets map[string]string) {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return
	}
	switch fn.Kind() {
	case "identifier":
		name := cstutil.NodeText(fn, pf.Content)
		t.AddReference(name, pf.Path, "", importTargets[name], "", types.RefCall)
	case "member_expression":
		prop := fn.ChildByFieldName("property")
		if prop == nil {
			return
		}
		name := cstutil.NodeText(prop, pf.Content)
		obj := fn.ChildByFieldName("object")
		classContext := ""
		if obj != nil && (obj.Kind() == "this") {
			classContext = enclosingTSClass(fn, pf)
		}
		t.AddReference(name, pf.Path, classContext, "", "", types.RefAttribute)
	}
}

// enclosingTSClass walks ancestors to find the nearest class_declaration's
// name, for `this.method()` resolution.
func enclosingTSClass(node *tree_sitter.Node, pf *parser.ParsedFile) string {
	for _, anc := range cstutil.Ancestors(node) {
		if anc.Kind() == "class_declaration" {
			if n := anc.ChildByFieldName("name"); n != nil {
				return cstutil.NodeText(n, pf.Content)
			}
		}
	}
	return ""
}

func collectTSTypeAnnotationReference(t *Tracker, node *tree_sitter.Node, pf *parser.ParsedFile, importTargets map[string]string) {
	cstutil.WalkTree(node, func(n *tree_sitter.Node) {
		if n.Kind() != "type_identifier" && n.Kind() != "identifier" {
			return
		}
		name := cstutil.NodeText(n, pf.Content)
		t.AddReference(name, pf.Path, "", importTargets[name], "", types.RefTypeHint)
	})
}
