package reftrack

import (
	"regexp"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/ghrammr/janitor/internal/cstutil"
	"github.com/ghrammr/janitor/internal/parser"
	"github.com/ghrammr/janitor/pkg/types"
)

// qtWidgetBases names the conventional Qt widget base classes that trigger
// slot auto-connection, per spec §4.7.
var qtWidgetBases = map[string]bool{
	"QWidget": true, "QMainWindow": true, "QDialog": true, "QObject": true,
	"QApplication": true, "QFrame": true, "QPushButton": true,
}

var qtSlotPattern = regexp.MustCompile(`^on_[A-Za-z0-9]+_[A-Za-z0-9]+$`)

// ormBaseNames names the conventional ORM base classes whose lifecycle
// methods are always considered used, per spec §4.7.
var ormBaseNames = map[string]bool{"Model": true, "Base": true, "Document": true}

var ormLifecycleMethods = map[string]bool{
	"save": true, "delete": true, "update": true, "create": true, "get": true, "filter": true,
}

// HeuristicTags returns a map from SymbolId to the enterprise-heuristic
// ProtectionTag it qualifies for, computed purely from the definitions table
// and inheritance map -- no second CST walk needed for these.
func HeuristicTags(t *Tracker) map[string]types.ProtectionTag {
	out := make(map[string]types.ProtectionTag)

	for _, e := range t.Defs.All() {
		if tag, ok := qtSlotTag(t, e); ok {
			out[e.SymbolID()] = tag
			continue
		}
		if tag, ok := sqlAlchemyDecoratorTag(e); ok {
			out[e.SymbolID()] = tag
			continue
		}
		if tag, ok := ormLifecycleTag(t, e); ok {
			out[e.SymbolID()] = tag
			continue
		}
		if tag, ok := pytestFixtureTag(e); ok {
			out[e.SymbolID()] = tag
			continue
		}
	}
	return out
}

func qtSlotTag(t *Tracker, e types.Entity) (types.ProtectionTag, bool) {
	if e.Kind != types.KindMethod || !qtSlotPattern.MatchString(e.Name) {
		return "", false
	}
	for _, ancestor := range append([]string{e.ParentClass}, t.Inheritance.AncestorChain(e.ParentClass)...) {
		class, ok := t.Defs.Classes()[ancestor]
		if !ok {
			continue
		}
		for _, base := range class.BaseClasses {
			if qtWidgetBases[lastDotSegment(base)] {
				return types.ProtectedQtSlot, true
			}
		}
	}
	return "", false
}

func sqlAlchemyDecoratorTag(e types.Entity) (types.ProtectionTag, bool) {
	for _, d := range e.Decorators {
		if strings.Contains(d, "@declared_attr") || strings.Contains(d, "@hybrid_property") {
			return types.ProtectedSQLAlchemy, true
		}
	}
	return "", false
}

func ormLifecycleTag(t *Tracker, e types.Entity) (types.ProtectionTag, bool) {
	if e.Kind != types.KindMethod || !ormLifecycleMethods[e.Name] {
		return "", false
	}
	chain := append([]string{e.ParentClass}, t.Inheritance.AncestorChain(e.ParentClass)...)
	for _, ancestor := range chain {
		if ormBaseNames[ancestor] || strings.HasSuffix(ancestor, ".Model") {
			return types.ProtectedORMLifecycle, true
		}
	}
	return "", false
}

func pytestFixtureTag(e types.Entity) (types.ProtectionTag, bool) {
	for _, d := range e.Decorators {
		if strings.Contains(d, "@pytest.fixture") || strings.Contains(d, "@fixture") {
			return types.ProtectedPytestFixture, true
		}
	}
	return "", false
}

// ConftestTags returns SymbolId -> PytestFixture for every function entity
// declared in a conftest.py file that imports pytest, per spec §4.7: pytest
// discovers conftest fixtures by file convention, not by decorator alone.
func ConftestTags(defs *Definitions, fileImportsPytest map[string]bool) map[string]types.ProtectionTag {
	out := make(map[string]types.ProtectionTag)
	for _, e := range defs.All() {
		if !strings.HasSuffix(e.FilePath, "conftest.py") {
			continue
		}
		if !fileImportsPytest[e.FilePath] {
			continue
		}
		if e.Kind == types.KindFunction || e.Kind == types.KindAsyncFunction {
			out[e.SymbolID()] = types.ProtectedPytestFixture
		}
	}
	return out
}

// FileImportsPytest reports, for each Python file, whether its import list
// names the pytest package.
func FileImportsPytest(imports []types.Import) map[string]bool {
	out := make(map[string]bool)
	for _, imp := range imports {
		if imp.Module == "pytest" || strings.HasPrefix(imp.Module, "pytest.") {
			out[imp.FilePath] = true
		}
	}
	return out
}

// SQLAlchemyMetaclassTags scans a parsed Python file's class bodies for
// __tablename__/__mapper_args__/__abstract__ assignments, which are class
// attributes rather than extracted entities, and tags the owning class
// entity directly. A __mapper_args__ containing polymorphic_identity
// protects the class transitively (every method on it).
func SQLAlchemyMetaclassTags(t *Tracker, pf *parser.ParsedFile) map[string]types.ProtectionTag {
	out := make(map[string]types.ProtectionTag)
	root := pf.Tree.RootNode()
	cstutil.WalkTree(root, func(n *tree_sitter.Node) {
		if n.Kind() != "class_definition" {
			return
		}
		nameNode := n.ChildByFieldName("name")
		if nameNode == nil {
			return
		}
		className := cstutil.NodeText(nameNode, pf.Content)
		body := n.ChildByFieldName("body")
		if body == nil {
			return
		}
		marked := false
		polymorphic := false
		for i := uint(0); i < body.ChildCount(); i++ {
			stmt := body.Child(i)
			if stmt == nil || stmt.Kind() != "expression_statement" || stmt.ChildCount() == 0 {
				continue
			}
			assign := stmt.Child(0)
			if assign == nil || assign.Kind() != "assignment" {
				continue
			}
			left := assign.ChildByFieldName("left")
			if left == nil || left.Kind() != "identifier" {
				continue
			}
			name := cstutil.NodeText(left, pf.Content)
			switch name {
			case "__tablename__", "__mapper_args__", "__abstract__":
				marked = true
				if name == "__mapper_args__" && strings.Contains(cstutil.NodeText(assign, pf.Content), "polymorphic_identity") {
					polymorphic = true
				}
			}
		}
		if !marked {
			return
		}
		if class, ok := t.Defs.Classes()[className]; ok {
			out[class.SymbolID()] = types.ProtectedSQLAlchemy
		}
		if polymorphic {
			for _, e := range t.Defs.All() {
				if e.ParentClass == className {
					out[e.SymbolID()] = types.ProtectedSQLAlchemy
				}
			}
		}
	})
	return out
}

// PydanticAliasTags scans class bodies for `model_config = ConfigDict(...
// alias_generator=...)`, tagging the class (a proxy for "every field in the
// class" since bare class-attribute assignments are not modeled as
// entities in their own right).
func PydanticAliasTags(t *Tracker, pf *parser.ParsedFile) map[string]types.ProtectionTag {
	out := make(map[string]types.ProtectionTag)
	root := pf.Tree.RootNode()
	cstutil.WalkTree(root, func(n *tree_sitter.Node) {
		if n.Kind() != "class_definition" {
			return
		}
		nameNode := n.ChildByFieldName("name")
		if nameNode == nil {
			return
		}
		className := cstutil.NodeText(nameNode, pf.Content)
		body := n.ChildByFieldName("body")
		if body == nil {
			return
		}
		bodyText := cstutil.NodeText(body, pf.Content)
		if !strings.Contains(bodyText, "model_config") || !strings.Contains(bodyText, "ConfigDict") || !strings.Contains(bodyText, "alias_generator") {
			return
		}
		if class, ok := t.Defs.Classes()[className]; ok {
			out[class.SymbolID()] = types.ProtectedPydanticAlias
		}
		for _, e := range t.Defs.All() {
			if e.ParentClass == className {
				out[e.SymbolID()] = types.ProtectedPydanticAlias
			}
		}
	})
	return out
}

// LifespanTeardownReferences records a reference for every identifier
// occurring textually after the yield statement inside a function decorated
// with @asynccontextmanager, per spec §4.7: teardown code referencing
// cleanup helpers must not be treated as dead just because it runs after
// the generator's single yield point.
func LifespanTeardownReferences(t *Tracker, pf *parser.ParsedFile, importTargets map[string]string) {
	root := pf.Tree.RootNode()
	cstutil.WalkTree(root, func(n *tree_sitter.Node) {
		if n.Kind() != "decorated_definition" {
			return
		}
		decorators, inner := pyUnwrapDecorated(n, pf.Content)
		if inner == nil || inner.Kind() != "function_definition" {
			return
		}
		isLifespan := false
		for _, d := range decorators {
			if strings.Contains(d, "@asynccontextmanager") {
				isLifespan = true
			}
		}
		if !isLifespan {
			return
		}
		body := inner.ChildByFieldName("body")
		if body == nil {
			return
		}
		afterYield := false
		for i := uint(0); i < body.ChildCount(); i++ {
			stmt := body.Child(i)
			if stmt == nil {
				continue
			}
			if !afterYield {
				if containsYield(stmt) {
					afterYield = true
				}
				continue
			}
			cstutil.WalkTree(stmt, func(id *tree_sitter.Node) {
				if id.Kind() != "identifier" {
					return
				}
				name := cstutil.NodeText(id, pf.Content)
				t.AddReference(name, pf.Path, "", importTargets[name], "", types.RefCall)
			})
		}
	})
}

func containsYield(node *tree_sitter.Node) bool {
	if node.Kind() == "yield" {
		return true
	}
	found := false
	cstutil.WalkTree(node, func(n *tree_sitter.Node) {
		if n.Kind() == "yield" {
			found = true
		}
	})
	return found
}
