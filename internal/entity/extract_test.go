package entity

import (
	"testing"

	"github.com/ghrammr/janitor/internal/parser"
	"github.com/ghrammr/janitor/pkg/types"
)

func parseFixture(t *testing.T, lang types.Language, ext string, content string) *parser.ParsedFile {
	t.Helper()
	p, err := parser.NewTreeSitterParser()
	if err != nil {
		t.Fatalf("NewTreeSitterParser: %v", err)
	}
	t.Cleanup(p.Close)

	tree, err := p.ParseFile(lang, ext, []byte(content))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	t.Cleanup(tree.Close)

	return &parser.ParsedFile{
		Path:     "/proj/mod.py",
		RelPath:  "mod.py",
		Tree:     tree,
		Content:  []byte(content),
		Language: lang,
	}
}

func TestExtractPythonFunctionsAndClasses(t *testing.T) {
	src := `import os
from .pkg import helper, other as alias

class Base:
    pass

class Widget(Base):
    def __init__(self):
        pass

    def _helper(self):
        return 1

    async def run(self):
        return self._helper()

TOP_LEVEL = 1
`
	pf := parseFixture(t, types.LangPython, ".py", src)
	entities, imports, err := Extract(pf)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	byQN := make(map[string]types.Entity)
	for _, e := range entities {
		byQN[e.QualifiedName] = e
	}

	if _, ok := byQN["Base"]; !ok {
		t.Error("expected Base class entity")
	}
	widget, ok := byQN["Widget"]
	if !ok {
		t.Fatal("expected Widget class entity")
	}
	if len(widget.BaseClasses) != 1 || widget.BaseClasses[0] != "Base" {
		t.Errorf("Widget.BaseClasses = %v, want [Base]", widget.BaseClasses)
	}

	initM, ok := byQN["Widget.__init__"]
	if !ok {
		t.Fatal("expected Widget.__init__ method entity")
	}
	if initM.ParentClass != "Widget" {
		t.Errorf("ParentClass = %q, want Widget", initM.ParentClass)
	}

	run, ok := byQN["Widget.run"]
	if !ok {
		t.Fatal("expected Widget.run method entity")
	}
	if run.Kind != types.KindMethod {
		t.Errorf("run.Kind = %v, want KindMethod", run.Kind)
	}

	if _, ok := byQN["TOP_LEVEL"]; !ok {
		t.Error("expected TOP_LEVEL module variable entity")
	}

	if len(imports) == 0 {
		t.Fatal("expected at least one import")
	}
	foundRelative := false
	for _, imp := range imports {
		if imp.IsRelative && imp.RelativeLevel == 1 {
			foundRelative = true
		}
	}
	if !foundRelative {
		t.Error("expected a relative import with level 1 from '.pkg'")
	}
}

func TestExtractPythonDecorators(t *testing.T) {
	src := `class Handler:
    @pytest.fixture
    def client(self):
        return None
`
	pf := parseFixture(t, types.LangPython, ".py", src)
	entities, _, err := Extract(pf)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	found := false
	for _, e := range entities {
		if e.QualifiedName == "Handler.client" {
			found = true
			if len(e.Decorators) != 1 || e.Decorators[0] != "@pytest.fixture" {
				t.Errorf("Decorators = %v, want [@pytest.fixture]", e.Decorators)
			}
		}
	}
	if !found {
		t.Fatal("expected Handler.client method entity")
	}
}

func TestExtractTypeScriptExportsAndClasses(t *testing.T) {
	src := `import { helper } from "./util";
import defaultThing from "../lib";

export function main() {
  return helper();
}

export default class Widget extends Base {
  render() {
    return null;
  }
}

export const CONST_VALUE = 1;
`
	pf := parseFixture(t, types.LangTypeScript, ".ts", src)
	pf.Path = "/proj/app.ts"
	pf.RelPath = "app.ts"

	entities, imports, err := Extract(pf)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	byName := make(map[string]types.Entity)
	for _, e := range entities {
		byName[e.QualifiedName] = e
	}

	mainFn, ok := byName["main"]
	if !ok {
		t.Fatal("expected main function entity")
	}
	if mainFn.Kind != types.KindExport {
		t.Errorf("main.Kind = %v, want KindExport", mainFn.Kind)
	}

	widget, ok := byName["Widget"]
	if !ok {
		t.Fatal("expected Widget class entity")
	}
	if !widget.IsDefaultExport {
		t.Error("Widget should be marked as default export")
	}
	if len(widget.BaseClasses) != 1 || widget.BaseClasses[0] != "Base" {
		t.Errorf("Widget.BaseClasses = %v, want [Base]", widget.BaseClasses)
	}

	render, ok := byName["Widget.render"]
	if !ok {
		t.Fatal("expected Widget.render method entity")
	}
	if render.ParentClass != "Widget" {
		t.Errorf("ParentClass = %q, want Widget", render.ParentClass)
	}

	if _, ok := byName["CONST_VALUE"]; !ok {
		t.Error("expected CONST_VALUE exported variable entity")
	}

	if len(imports) != 2 {
		t.Fatalf("got %d imports, want 2", len(imports))
	}
}

func TestExtractUnsupportedLanguage(t *testing.T) {
	pf := &parser.ParsedFile{Language: types.LangUnknown}
	_, _, err := Extract(pf)
	if err == nil {
		t.Error("expected error for unsupported language")
	}
}
