package entity

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/ghrammr/janitor/internal/cstutil"
	"github.com/ghrammr/janitor/internal/parser"
	"github.com/ghrammr/janitor/pkg/types"
)

// extractPython emits one Entity per top-level function, top-level class,
// method, and module-level bare-name assignment, per spec §4.2.
func extractPython(pf *parser.ParsedFile) []types.Entity {
	var out []types.Entity
	root := pf.Tree.RootNode()
	for i := uint(0); i < root.ChildCount(); i++ {
		child := root.Child(i)
		if child == nil {
			continue
		}
		collectPyTopLevel(child, pf, &out)
	}
	return out
}

func collectPyTopLevel(node *tree_sitter.Node, pf *parser.ParsedFile, out *[]types.Entity) {
	decorators, inner := unwrapPyDecorated(node, pf.Content)
	if inner == nil {
		return
	}
	switch inner.Kind() {
	case "function_definition":
		if e := buildPyFunction(inner, pf, "", decorators); e != nil {
			*out = append(*out, *e)
		}
	case "class_definition":
		e := buildPyClass(inner, pf, decorators)
		if e == nil {
			return
		}
		*out = append(*out, *e)
		collectPyClassBody(inner, pf, e.Name, out)
	case "expression_statement":
		if v := buildPyModuleVariable(inner, pf); v != nil {
			*out = append(*out, *v)
		}
	}
}

// unwrapPyDecorated peels a decorated_definition down to its inner
// function_definition/class_definition, returning the decorator source
// fragments (including the leading "@") in source order.
func unwrapPyDecorated(node *tree_sitter.Node, content []byte) ([]string, *tree_sitter.Node) {
	if node.Kind() != "decorated_definition" {
		return nil, node
	}
	var decorators []string
	var inner *tree_sitter.Node
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "decorator":
			decorators = append(decorators, cstutil.NodeText(child, content))
		case "function_definition", "class_definition":
			inner = child
		}
	}
	return decorators, inner
}

func collectPyClassBody(classNode *tree_sitter.Node, pf *parser.ParsedFile, className string, out *[]types.Entity) {
	body := classNode.ChildByFieldName("body")
	if body == nil {
		return
	}
	for i := uint(0); i < body.ChildCount(); i++ {
		child := body.Child(i)
		if child == nil {
			continue
		}
		decorators, inner := unwrapPyDecorated(child, pf.Content)
		if inner == nil {
			continue
		}
		switch inner.Kind() {
		case "function_definition":
			if e := buildPyFunction(inner, pf, className, decorators); e != nil {
				*out = append(*out, *e)
			}
		case "class_definition":
			e := buildPyClass(inner, pf, decorators)
			if e == nil {
				continue
			}
			e.ParentClass = className
			e.QualifiedName = className + "." + e.Name
			*out = append(*out, *e)
			collectPyClassBody(inner, pf, e.QualifiedName, out)
		}
	}
}

func buildPyFunction(node *tree_sitter.Node, pf *parser.ParsedFile, parentClass string, decorators []string) *types.Entity {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := cstutil.NodeText(nameNode, pf.Content)

	kind := types.KindFunction
	if pyIsAsync(node, pf.Content) {
		kind = types.KindAsyncFunction
	}

	qualifiedName := name
	if parentClass != "" {
		kind = types.KindMethod
		qualifiedName = parentClass + "." + name
	}

	return &types.Entity{
		Name:          name,
		Kind:          kind,
		FilePath:      pf.Path,
		ByteRange:     cstutil.NodeByteRange(node),
		LineRange:     cstutil.NodeLineRange(node),
		QualifiedName: qualifiedName,
		ParentClass:   parentClass,
		Decorators:    decorators,
	}
}

func buildPyClass(node *tree_sitter.Node, pf *parser.ParsedFile, decorators []string) *types.Entity {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := cstutil.NodeText(nameNode, pf.Content)

	var bases []string
	if super := node.ChildByFieldName("superclasses"); super != nil {
		for i := uint(0); i < super.ChildCount(); i++ {
			child := super.Child(i)
			if child == nil {
				continue
			}
			switch child.Kind() {
			case "identifier", "attribute":
				bases = append(bases, cstutil.NodeText(child, pf.Content))
			case "keyword_argument":
				// e.g. metaclass=ABCMeta -- not an inheritance edge.
			}
		}
	}

	return &types.Entity{
		Name:          name,
		Kind:          types.KindClass,
		FilePath:      pf.Path,
		ByteRange:     cstutil.NodeByteRange(node),
		LineRange:     cstutil.NodeLineRange(node),
		QualifiedName: name,
		BaseClasses:   bases,
		Decorators:    decorators,
	}
}

func buildPyModuleVariable(exprStmt *tree_sitter.Node, pf *parser.ParsedFile) *types.Entity {
	if exprStmt.ChildCount() == 0 {
		return nil
	}
	assign := exprStmt.Child(0)
	if assign == nil || assign.Kind() != "assignment" {
		return nil
	}
	left := assign.ChildByFieldName("left")
	if left == nil || left.Kind() != "identifier" {
		return nil
	}
	name := cstutil.NodeText(left, pf.Content)

	return &types.Entity{
		Name:          name,
		Kind:          types.KindModuleVariable,
		FilePath:      pf.Path,
		ByteRange:     cstutil.NodeByteRange(exprStmt),
		LineRange:     cstutil.NodeLineRange(exprStmt),
		QualifiedName: name,
	}
}

func pyIsAsync(node *tree_sitter.Node, content []byte) bool {
	start := int(node.StartByte())
	end := start + 5
	if end > len(content) {
		return false
	}
	return string(content[start:end]) == "async"
}

// importsPython emits one Import per imported name, per spec §4.2: plain
// `import a, b` yields one Import per dotted module with no Names;
// `from .pkg import x, y` yields one Import per name, all sharing Module.
func importsPython(pf *parser.ParsedFile) []types.Import {
	var out []types.Import
	root := pf.Tree.RootNode()
	cstutil.WalkTree(root, func(node *tree_sitter.Node) {
		switch node.Kind() {
		case "import_statement":
			out = append(out, pyPlainImports(node, pf)...)
		case "import_from_statement":
			if imp := pyFromImports(node, pf); imp != nil {
				out = append(out, imp...)
			}
		}
	})
	return out
}

func pyPlainImports(node *tree_sitter.Node, pf *parser.ParsedFile) []types.Import {
	var out []types.Import
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "dotted_name":
			out = append(out, types.Import{Module: cstutil.NodeText(child, pf.Content), FilePath: pf.Path})
		case "aliased_import":
			if nameNode := child.ChildByFieldName("name"); nameNode != nil {
				out = append(out, types.Import{Module: cstutil.NodeText(nameNode, pf.Content), FilePath: pf.Path})
			}
		}
	}
	return out
}

func pyFromImports(node *tree_sitter.Node, pf *parser.ParsedFile) []types.Import {
	var moduleNode *tree_sitter.Node
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if child.Kind() == "dotted_name" || child.Kind() == "relative_import" {
			moduleNode = child
			break
		}
	}
	if moduleNode == nil {
		return nil
	}
	rawModule := cstutil.NodeText(moduleNode, pf.Content)

	isRelative := strings.HasPrefix(rawModule, ".")
	level := 0
	module := rawModule
	if isRelative {
		for level < len(rawModule) && rawModule[level] == '.' {
			level++
		}
		module = rawModule[level:]
	}

	var names []string
	seenModule := false
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if child == moduleNode {
			seenModule = true
			continue
		}
		if !seenModule {
			continue
		}
		switch child.Kind() {
		case "dotted_name", "identifier":
			names = append(names, cstutil.NodeText(child, pf.Content))
		case "aliased_import":
			if nameNode := child.ChildByFieldName("alias"); nameNode != nil {
				names = append(names, cstutil.NodeText(nameNode, pf.Content))
			} else if nameNode := child.ChildByFieldName("name"); nameNode != nil {
				names = append(names, cstutil.NodeText(nameNode, pf.Content))
			}
		case "wildcard_import":
			names = append(names, "*")
		}
	}

	if len(names) == 0 {
		return []types.Import{{
			Module:        module,
			IsRelative:    isRelative,
			RelativeLevel: level,
			FilePath:      pf.Path,
		}}
	}

	out := make([]types.Import, 0, len(names))
	for _, n := range names {
		out = append(out, types.Import{
			Module:        module,
			Names:         []string{n},
			IsRelative:    isRelative,
			RelativeLevel: level,
			FilePath:      pf.Path,
		})
	}
	return out
}
