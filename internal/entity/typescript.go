package entity

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/ghrammr/janitor/internal/cstutil"
	"github.com/ghrammr/janitor/internal/parser"
	"github.com/ghrammr/janitor/pkg/types"
)

// extractTypeScript emits one Entity per top-level function, class, method,
// exported name, and top-level const/let bare-name assignment, per spec
// §4.2. Default exports are tagged distinctly (IsDefaultExport).
func extractTypeScript(pf *parser.ParsedFile) []types.Entity {
	var out []types.Entity
	root := pf.Tree.RootNode()
	for i := uint(0); i < root.ChildCount(); i++ {
		child := root.Child(i)
		if child == nil {
			continue
		}
		collectTSTopLevel(child, pf, &out)
	}
	return out
}

func collectTSTopLevel(node *tree_sitter.Node, pf *parser.ParsedFile, out *[]types.Entity) {
	switch node.Kind() {
	case "export_statement":
		collectTSExport(node, pf, out)
	case "function_declaration":
		if e := buildTSFunction(node, pf, "", false); e != nil {
			*out = append(*out, *e)
		}
	case "class_declaration":
		e := buildTSClass(node, pf, false)
		if e == nil {
			return
		}
		*out = append(*out, *e)
		collectTSClassBody(node, pf, e.Name, out)
	case "lexical_declaration", "variable_declaration":
		out2 := buildTSModuleVariables(node, pf, false)
		*out = append(*out, out2...)
	}
}

// collectTSExport handles `export function f() {}`, `export class C {}`,
// `export default ...`, `export const x = ...`, `export { a, b }`, and the
// re-export forms `export { a, b } from './x'` / `export * from './x'`.
func collectTSExport(node *tree_sitter.Node, pf *parser.ParsedFile, out *[]types.Entity) {
	isDefault := tsExportIsDefault(node, pf.Content)
	hasSource := node.ChildByFieldName("source") != nil

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "function_declaration":
			if e := buildTSFunction(child, pf, "", true); e != nil {
				e.IsDefaultExport = isDefault
				*out = append(*out, *e)
			}
		case "class_declaration":
			e := buildTSClass(child, pf, true)
			if e == nil {
				continue
			}
			e.IsDefaultExport = isDefault
			*out = append(*out, *e)
			collectTSClassBody(child, pf, e.Name, out)
		case "lexical_declaration", "variable_declaration":
			vars := buildTSModuleVariables(child, pf, true)
			for idx := range vars {
				vars[idx].IsDefaultExport = isDefault
			}
			*out = append(*out, vars...)
		case "identifier":
			// `export default someIdentifier;` -- the identifier itself is
			// not a new declaration here; the Reference Tracker resolves it
			// like any other name use.
		case "export_clause":
			if !hasSource {
				// `export { a, b };` re-exports an already-declared local
				// name; that name's own declaration already produced an
				// Entity, so nothing new is emitted here.
				continue
			}
			for _, spec := range tsExportSpecifierNames(child, pf.Content) {
				exported := spec.name
				if spec.alias != "" {
					exported = spec.alias
				}
				*out = append(*out, types.Entity{
					Name:          exported,
					Kind:          types.KindExport,
					FilePath:      pf.Path,
					ByteRange:     cstutil.NodeByteRange(node),
					LineRange:     cstutil.NodeLineRange(node),
					QualifiedName: exported,
				})
			}
		}
		// `export * from './x'` (a "*" token child) re-exports an unknown
		// set of names statically, so no Entity is emitted for it; the
		// module dependency itself is captured by importsTypeScript.
	}
}

// tsExportSpecifierName is one `name [as alias]` binding inside an
// export_clause.
type tsExportSpecifierName struct {
	name  string
	alias string // empty when unaliased
}

func tsExportSpecifierNames(clause *tree_sitter.Node, content []byte) []tsExportSpecifierName {
	var out []tsExportSpecifierName
	for i := uint(0); i < clause.ChildCount(); i++ {
		spec := clause.Child(i)
		if spec == nil || spec.Kind() != "export_specifier" {
			continue
		}
		nameNode := spec.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		entry := tsExportSpecifierName{name: cstutil.NodeText(nameNode, content)}
		if aliasNode := spec.ChildByFieldName("alias"); aliasNode != nil {
			entry.alias = cstutil.NodeText(aliasNode, content)
		}
		out = append(out, entry)
	}
	return out
}

func tsExportIsDefault(node *tree_sitter.Node, content []byte) bool {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && cstutil.NodeText(child, content) == "default" {
			return true
		}
	}
	return false
}

func collectTSClassBody(classNode *tree_sitter.Node, pf *parser.ParsedFile, className string, out *[]types.Entity) {
	body := classNode.ChildByFieldName("body")
	if body == nil {
		return
	}
	for i := uint(0); i < body.ChildCount(); i++ {
		child := body.Child(i)
		if child == nil || child.Kind() != "method_definition" {
			continue
		}
		if e := buildTSMethod(child, pf, className); e != nil {
			*out = append(*out, *e)
		}
	}
}

func buildTSFunction(node *tree_sitter.Node, pf *parser.ParsedFile, parentClass string, isExport bool) *types.Entity {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := cstutil.NodeText(nameNode, pf.Content)

	kind := types.KindFunction
	if isExport {
		kind = types.KindExport
	}
	if tsNodeIsAsync(node, pf.Content) && !isExport {
		kind = types.KindAsyncFunction
	}

	return &types.Entity{
		Name:          name,
		Kind:          kind,
		FilePath:      pf.Path,
		ByteRange:     cstutil.NodeByteRange(node),
		LineRange:     cstutil.NodeLineRange(node),
		QualifiedName: name,
	}
}

func buildTSMethod(node *tree_sitter.Node, pf *parser.ParsedFile, className string) *types.Entity {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := cstutil.NodeText(nameNode, pf.Content)

	return &types.Entity{
		Name:          name,
		Kind:          types.KindMethod,
		FilePath:      pf.Path,
		ByteRange:     cstutil.NodeByteRange(node),
		LineRange:     cstutil.NodeLineRange(node),
		QualifiedName: className + "." + name,
		ParentClass:   className,
	}
}

func buildTSClass(node *tree_sitter.Node, pf *parser.ParsedFile, isExport bool) *types.Entity {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := cstutil.NodeText(nameNode, pf.Content)

	kind := types.KindClass
	if isExport {
		kind = types.KindExport
	}

	var bases []string
	if heritage := node.ChildByFieldName("heritage"); heritage != nil {
		bases = append(bases, tsHeritageNames(heritage, pf.Content)...)
	}
	// Older grammar revisions expose heritage clauses as direct children
	// rather than a named field; scan them too, for robustness.
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && (child.Kind() == "class_heritage" || child.Kind() == "extends_clause") {
			bases = append(bases, tsHeritageNames(child, pf.Content)...)
		}
	}

	return &types.Entity{
		Name:          name,
		Kind:          kind,
		FilePath:      pf.Path,
		ByteRange:     cstutil.NodeByteRange(node),
		LineRange:     cstutil.NodeLineRange(node),
		QualifiedName: name,
		BaseClasses:   dedupeStrings(bases),
	}
}

func tsHeritageNames(node *tree_sitter.Node, content []byte) []string {
	var names []string
	cstutil.WalkTree(node, func(n *tree_sitter.Node) {
		if n.Kind() == "identifier" {
			names = append(names, cstutil.NodeText(n, content))
		}
	})
	return names
}

func buildTSModuleVariables(node *tree_sitter.Node, pf *parser.ParsedFile, isExport bool) []types.Entity {
	var out []types.Entity
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil || child.Kind() != "variable_declarator" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		if nameNode == nil || nameNode.Kind() != "identifier" {
			continue
		}
		name := cstutil.NodeText(nameNode, pf.Content)

		kind := types.KindModuleVariable
		if isExport {
			kind = types.KindExport
		}

		out = append(out, types.Entity{
			Name:          name,
			Kind:          kind,
			FilePath:      pf.Path,
			ByteRange:     cstutil.NodeByteRange(node),
			LineRange:     cstutil.NodeLineRange(node),
			QualifiedName: name,
		})
	}
	return out
}

func tsNodeIsAsync(node *tree_sitter.Node, content []byte) bool {
	start := int(node.StartByte())
	end := start + 5
	if end > len(content) {
		return false
	}
	return string(content[start:end]) == "async"
}

func dedupeStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// importsTypeScript emits one Import per named/default binding introduced
// by an import_statement or a re-exporting export_statement (`export { a }
// from './x'`, `export * from './x'`), plus a module-only Import for bare
// `import "./x"` side-effect imports.
func importsTypeScript(pf *parser.ParsedFile) []types.Import {
	var out []types.Import
	root := pf.Tree.RootNode()
	cstutil.WalkTree(root, func(node *tree_sitter.Node) {
		switch node.Kind() {
		case "import_statement":
			out = append(out, tsImportStatement(node, pf)...)
		case "export_statement":
			out = append(out, tsExportStatementImports(node, pf)...)
		}
	})
	return out
}

// tsExportStatementImports emits an Import for a re-export's source module.
// `export { a, b } from './x'` binds each re-exported original name (not
// its local alias, since the Reference Tracker's package-export marking
// needs the name as declared in the source file); `export * from './x'`
// binds a wildcard the same way a namespace import does. A plain
// `export { a };` with no source produces nothing -- it isn't a module
// dependency.
func tsExportStatementImports(node *tree_sitter.Node, pf *parser.ParsedFile) []types.Import {
	srcNode := node.ChildByFieldName("source")
	if srcNode == nil {
		return nil
	}
	rawModule := tsStripQuotes(cstutil.NodeText(srcNode, pf.Content))
	isRelative := strings.HasPrefix(rawModule, ".")
	level := tsRelativeLevel(rawModule, isRelative)

	var names []string
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch {
		case child.Kind() == "export_clause":
			for _, spec := range tsExportSpecifierNames(child, pf.Content) {
				names = append(names, spec.name)
			}
		case cstutil.NodeText(child, pf.Content) == "*":
			names = append(names, "*")
		}
	}

	if len(names) == 0 {
		return []types.Import{{
			Module:        rawModule,
			IsRelative:    isRelative,
			RelativeLevel: level,
			FilePath:      pf.Path,
		}}
	}

	out := make([]types.Import, 0, len(names))
	for _, n := range names {
		out = append(out, types.Import{
			Module:        rawModule,
			Names:         []string{n},
			IsRelative:    isRelative,
			RelativeLevel: level,
			FilePath:      pf.Path,
		})
	}
	return out
}

func tsImportStatement(node *tree_sitter.Node, pf *parser.ParsedFile) []types.Import {
	srcNode := node.ChildByFieldName("source")
	if srcNode == nil {
		return nil
	}
	rawModule := tsStripQuotes(cstutil.NodeText(srcNode, pf.Content))
	isRelative := strings.HasPrefix(rawModule, ".")

	var names []string
	clause := node.ChildByFieldName("import_clause")
	if clause == nil {
		for i := uint(0); i < node.ChildCount(); i++ {
			if c := node.Child(i); c != nil && c.Kind() == "import_clause" {
				clause = c
				break
			}
		}
	}
	if clause != nil {
		cstutil.WalkTree(clause, func(n *tree_sitter.Node) {
			switch n.Kind() {
			case "identifier":
				// Only the default binding; specifier and namespace
				// identifiers are handled by their own cases.
				if p := n.Parent(); p != nil && p.Kind() == "import_clause" {
					names = append(names, cstutil.NodeText(n, pf.Content))
				}
			case "import_specifier":
				alias := n.ChildByFieldName("alias")
				if alias != nil {
					names = append(names, cstutil.NodeText(alias, pf.Content))
				} else if nameNode := n.ChildByFieldName("name"); nameNode != nil {
					names = append(names, cstutil.NodeText(nameNode, pf.Content))
				}
			case "namespace_import":
				names = append(names, "*")
			}
		})
	}

	level := tsRelativeLevel(rawModule, isRelative)

	if len(names) == 0 {
		return []types.Import{{
			Module:        rawModule,
			IsRelative:    isRelative,
			RelativeLevel: level,
			FilePath:      pf.Path,
		}}
	}

	out := make([]types.Import, 0, len(names))
	for _, n := range names {
		out = append(out, types.Import{
			Module:        rawModule,
			Names:         []string{n},
			IsRelative:    isRelative,
			RelativeLevel: level,
			FilePath:      pf.Path,
		})
	}
	return out
}

// tsRelativeLevel counts the leading dots of a relative module specifier's
// first path segment ("./x" is 1, "../x" and "../../x" are both 2), used as
// Import.RelativeLevel; later "../" segments are not counted.
func tsRelativeLevel(rawModule string, isRelative bool) int {
	level := 0
	if isRelative {
		for level < len(rawModule) && (rawModule[level] == '.' || rawModule[level] == '/') {
			if rawModule[level] == '.' {
				level++
			} else {
				break
			}
		}
		if level == 0 {
			level = 1
		}
	}
	return level
}

func tsStripQuotes(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') || (first == '`' && last == '`') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
