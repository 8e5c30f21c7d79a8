package reftrack

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/ghrammr/janitor/internal/cstutil"
	"github.com/ghrammr/janitor/internal/parser"
	"github.com/ghrammr/janitor/pkg/types"
)

// pyScope carries the walk's current position: the enclosing class (for
// self/cls resolution), the qualified name of the enclosing definition (for
// reporting), and any isinstance-narrowed variable bindings active in the
// current block.
type pyScope struct {
	class        string
	funcQualname string
	narrowed     map[string]string // local name -> narrowed class, shadows VarTypes
}

// IngestPythonFile walks pf's CST a second time, collecting candidate
// references and feeding them to t.AddReference per spec §4.7. importTargets
// maps a name bound by an import statement in this file to the file it
// resolved to (from the Dependency Graph Builder), so cross-module calls can
// use resolution strategy 1. fileImports is this file's already-extracted
// Import list (from the Entity Extractor), reused here to populate the
// package-export set without re-deriving import grammar shape.
func IngestPythonFile(t *Tracker, pf *parser.ParsedFile, importTargets map[string]string, fileImports []types.Import) {
	root := pf.Tree.RootNode()
	isInit := strings.HasSuffix(pf.RelPath, "__init__.py") || strings.HasSuffix(pf.Path, "__init__.py")

	if isInit {
		for _, imp := range fileImports {
			for _, name := range imp.Names {
				t.MarkPackageExport(name, importTargets[name])
			}
		}
	}

	for i := uint(0); i < root.ChildCount(); i++ {
		walkPyStatement(t, root.Child(i), pf, pyScope{narrowed: map[string]string{}}, importTargets, isInit)
	}
}

func walkPyStatement(t *Tracker, node *tree_sitter.Node, pf *parser.ParsedFile, scope pyScope, importTargets map[string]string, isInit bool) {
	if node == nil {
		return
	}

	decorators, inner := pyUnwrapDecorated(node, pf.Content)
	for _, d := range decorators {
		collectPyDecoratorReference(t, d, pf, scope, importTargets)
	}
	if inner != nil {
		node = inner
	}

	switch node.Kind() {
	case "function_definition":
		collectPyFunctionTypeHints(t, node, pf, scope, importTargets)
		name := ""
		if n := node.ChildByFieldName("name"); n != nil {
			name = cstutil.NodeText(n, pf.Content)
		}
		qn := name
		if scope.class != "" {
			qn = scope.class + "." + name
		}
		inner := pyScope{class: scope.class, funcQualname: qn, narrowed: map[string]string{}}
		body := node.ChildByFieldName("body")
		walkPyBlock(t, body, pf, inner, importTargets, isInit)
		return

	case "class_definition":
		name := ""
		if n := node.ChildByFieldName("name"); n != nil {
			name = cstutil.NodeText(n, pf.Content)
		}
		inner := pyScope{class: name, narrowed: map[string]string{}}
		body := node.ChildByFieldName("body")
		walkPyBlock(t, body, pf, inner, importTargets, isInit)
		return

	case "import_from_statement", "import_statement":
		return

	case "if_statement":
		walkPyIfStatement(t, node, pf, scope, importTargets, isInit)
		return
	}

	collectPyExpressionReferences(t, node, pf, scope, importTargets)
}

// walkPyIfStatement special-cases `if isinstance(v, T):` so that v.m() calls
// inside the guarded branch resolve against T, per spec §4.7's narrowing
// rule, without mutating the Variable Type Registry's persistent binding.
func walkPyIfStatement(t *Tracker, node *tree_sitter.Node, pf *parser.ParsedFile, scope pyScope, importTargets map[string]string, isInit bool) {
	condition := node.ChildByFieldName("condition")
	if condition != nil {
		collectPyExpressionReferences(t, condition, pf, scope, importTargets)
	}

	consequence := node.ChildByFieldName("consequence")
	consScope := scope
	if varName, className, ok := detectIsinstanceNarrowing(condition, pf); ok {
		narrowed := make(map[string]string, len(scope.narrowed)+1)
		for k, v := range scope.narrowed {
			narrowed[k] = v
		}
		narrowed[varName] = className
		consScope = pyScope{class: scope.class, funcQualname: scope.funcQualname, narrowed: narrowed}
	}
	walkPyBlock(t, consequence, pf, consScope, importTargets, isInit)

	if alternative := node.ChildByFieldName("alternative"); alternative != nil {
		walkPyStatement(t, alternative, pf, scope, importTargets, isInit)
	}
}

func detectIsinstanceNarrowing(condition *tree_sitter.Node, pf *parser.ParsedFile) (string, string, bool) {
	if condition == nil || condition.Kind() != "call" {
		return "", "", false
	}
	fn := condition.ChildByFieldName("function")
	if fn == nil || fn.Kind() != "identifier" || cstutil.NodeText(fn, pf.Content) != "isinstance" {
		return "", "", false
	}
	args := condition.ChildByFieldName("arguments")
	if args == nil {
		return "", "", false
	}
	var idents []string
	for i := uint(0); i < args.ChildCount(); i++ {
		a := args.Child(i)
		if a != nil && a.Kind() == "identifier" {
			idents = append(idents, cstutil.NodeText(a, pf.Content))
		}
	}
	if len(idents) < 2 {
		return "", "", false
	}
	return idents[0], idents[1], true
}

func walkPyBlock(t *Tracker, block *tree_sitter.Node, pf *parser.ParsedFile, scope pyScope, importTargets map[string]string, isInit bool) {
	if block == nil {
		return
	}
	for i := uint(0); i < block.ChildCount(); i++ {
		walkPyStatement(t, block.Child(i), pf, scope, importTargets, isInit)
	}
}

// pyUnwrapDecorated mirrors the entity extractor's decorator unwrap so the
// ingestion walk sees the same inner definition node.
func pyUnwrapDecorated(node *tree_sitter.Node, content []byte) ([]string, *tree_sitter.Node) {
	if node.Kind() != "decorated_definition" {
		return nil, nil
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

// collectPyDecoratorReference treats the decorator's own identifier as a
// reference to whatever function it names (if it resolves at all -- most
// decorators name framework functions with no matching entity, and
// AddReference is a no-op in that case).
func collectPyDecoratorReference(t *Tracker, decoratorText string, pf *parser.ParsedFile, scope pyScope, importTargets map[string]string) {
	name := strings.TrimPrefix(decoratorText, "@")
	if idx := strings.IndexAny(name, "(. "); idx >= 0 {
		name = name[:idx]
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	t.AddReference(name, pf.Path, "", importTargets[name], scope.funcQualname, types.RefCall)
}

// collectPyFunctionTypeHints walks a function's parameter and return
// annotations, recording a type-hint reference for each annotation
// identifier, and detects the Depends/Security/Inject(F) idiom.
func collectPyFunctionTypeHints(t *Tracker, fn *tree_sitter.Node, pf *parser.ParsedFile, scope pyScope, importTargets map[string]string) {
	params := fn.ChildByFieldName("parameters")
	if params != nil {
		for i := uint(0); i < params.ChildCount(); i++ {
			p := params.Child(i)
			if p == nil {
				continue
			}
			if annotation := p.ChildByFieldName("type"); annotation != nil {
				collectPyAnnotationReferences(t, annotation, pf, scope, importTargets)
			}
			if value := p.ChildByFieldName("value"); value != nil && value.Kind() == "call" {
				collectPyDependsCall(t, value, pf, scope, importTargets)
			}
		}
	}
	if ret := fn.ChildByFieldName("return_type"); ret != nil {
		collectPyAnnotationReferences(t, ret, pf, scope, importTargets)
	}
}

// depCallNames are the FastAPI/Starlette-style dependency-injection markers
// whose argument names a provider function, per spec §4.7.
var depCallNames = map[string]bool{"Depends": true, "Security": true, "Inject": true}

func collectPyAnnotationReferences(t *Tracker, node *tree_sitter.Node, pf *parser.ParsedFile, scope pyScope, importTargets map[string]string) {
	cstutil.WalkTree(node, func(n *tree_sitter.Node) {
		switch n.Kind() {
		case "identifier":
			name := cstutil.NodeText(n, pf.Content)
			t.AddReference(name, pf.Path, "", importTargets[name], scope.funcQualname, types.RefTypeHint)
		case "string":
			// Pydantic forward reference: the quoted name is parsed as a
			// symbol name, not a literal string value.
			name := pyUnquote(cstutil.NodeText(n, pf.Content))
			if name != "" {
				t.AddReference(name, pf.Path, "", importTargets[name], scope.funcQualname, types.RefTypeHint)
			}
		case "call":
			collectPyDependsCall(t, n, pf, scope, importTargets)
		}
	})
}

func collectPyDependsCall(t *Tracker, call *tree_sitter.Node, pf *parser.ParsedFile, scope pyScope, importTargets map[string]string) {
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Kind() != "identifier" {
		return
	}
	if !depCallNames[cstutil.NodeText(fn, pf.Content)] {
		return
	}
	args := call.ChildByFieldName("arguments")
	if args == nil || args.ChildCount() == 0 {
		return
	}
	for i := uint(0); i < args.ChildCount(); i++ {
		a := args.Child(i)
		if a != nil && a.Kind() == "identifier" {
			name := cstutil.NodeText(a, pf.Content)
			t.AddReference(name, pf.Path, "", importTargets[name], scope.funcQualname, types.RefTypeHint)
			return
		}
	}
}

// taskCallNames are string-addressed task invocation idioms (Celery
// signature helpers, Django's get_model) whose sole string argument names a
// symbol by its final dotted segment, per spec §4.7.
var taskCallNames = map[string]bool{"signature": true, "s": true, "get_model": true}

func collectPyExpressionReferences(t *Tracker, node *tree_sitter.Node, pf *parser.ParsedFile, scope pyScope, importTargets map[string]string) {
	cstutil.WalkTree(node, func(n *tree_sitter.Node) {
		switch n.Kind() {
		case "assignment":
			collectPyAssignmentTypeInference(t, n, pf, scope)
			collectPyDependencyOverride(t, n, pf, scope, importTargets)
		case "call":
			collectPyCallReference(t, n, pf, scope, importTargets)
		}
	})
}

func collectPyCallReference(t *Tracker, call *tree_sitter.Node, pf *parser.ParsedFile, scope pyScope, importTargets map[string]string) {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return
	}

	switch fn.Kind() {
	case "identifier":
		name := cstutil.NodeText(fn, pf.Content)
		if taskCallNames[name] {
			if ref := firstStringArg(call, pf.Content); ref != "" {
				t.AddReference(lastDotSegment(ref), pf.Path, "", "", scope.funcQualname, types.RefString)
				return
			}
		}
		t.AddReference(name, pf.Path, "", importTargets[name], scope.funcQualname, types.RefCall)

	case "attribute":
		obj := fn.ChildByFieldName("object")
		attr := fn.ChildByFieldName("attribute")
		if attr == nil {
			return
		}
		methodName := cstutil.NodeText(attr, pf.Content)

		if obj != nil && obj.Kind() == "identifier" {
			objName := cstutil.NodeText(obj, pf.Content)
			if objName == "self" || objName == "cls" {
				t.AddReference(methodName, pf.Path, scope.class, "", scope.funcQualname, types.RefAttribute)
				return
			}
			if class, ok := scope.narrowed[objName]; ok {
				t.AddReference(methodName, pf.Path, class, "", scope.funcQualname, types.RefAttribute)
				return
			}
			if class, ok := t.VarTypes.Get(VarKey{File: pf.Path, Scope: scope.funcQualname, LocalName: objName}); ok {
				t.AddReference(methodName, pf.Path, class, "", scope.funcQualname, types.RefAttribute)
				return
			}
			if taskCallNames[objName] && methodName == "signature" {
				if ref := firstStringArg(call, pf.Content); ref != "" {
					t.AddReference(lastDotSegment(ref), pf.Path, "", "", scope.funcQualname, types.RefString)
					return
				}
			}
		}
		t.AddReference(methodName, pf.Path, "", "", scope.funcQualname, types.RefAttribute)
	}
}

func firstStringArg(call *tree_sitter.Node, content []byte) string {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return ""
	}
	for i := uint(0); i < args.ChildCount(); i++ {
		a := args.Child(i)
		if a != nil && a.Kind() == "string" {
			return pyUnquote(cstutil.NodeText(a, content))
		}
	}
	return ""
}

// collectPyAssignmentTypeInference records `v = C(...)` bindings in the
// Variable Type Registry when C resolves to a known class.
func collectPyAssignmentTypeInference(t *Tracker, assign *tree_sitter.Node, pf *parser.ParsedFile, scope pyScope) {
	left := assign.ChildByFieldName("left")
	right := assign.ChildByFieldName("right")
	if left == nil || right == nil || left.Kind() != "identifier" || right.Kind() != "call" {
		return
	}
	fn := right.ChildByFieldName("function")
	if fn == nil || fn.Kind() != "identifier" {
		return
	}
	className := cstutil.NodeText(fn, pf.Content)
	if _, ok := t.Defs.Classes()[className]; !ok {
		return
	}
	varName := cstutil.NodeText(left, pf.Content)
	t.VarTypes.Set(VarKey{File: pf.Path, Scope: scope.funcQualname, LocalName: varName}, className)
}

// collectPyDependencyOverride recognizes `app.dependency_overrides[T] = F`,
// recording a reference to F.
func collectPyDependencyOverride(t *Tracker, assign *tree_sitter.Node, pf *parser.ParsedFile, scope pyScope, importTargets map[string]string) {
	left := assign.ChildByFieldName("left")
	right := assign.ChildByFieldName("right")
	if left == nil || right == nil || left.Kind() != "subscript" {
		return
	}
	value := left.ChildByFieldName("value")
	if value == nil || value.Kind() != "attribute" {
		return
	}
	attr := value.ChildByFieldName("attribute")
	if attr == nil || cstutil.NodeText(attr, pf.Content) != "dependency_overrides" {
		return
	}
	if right.Kind() != "identifier" {
		return
	}
	name := cstutil.NodeText(right, pf.Content)
	t.AddReference(name, pf.Path, "", importTargets[name], scope.funcQualname, types.RefCall)
}

func pyUnquote(raw string) string {
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
