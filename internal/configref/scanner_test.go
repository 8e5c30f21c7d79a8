package configref

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ghrammr/janitor/internal/parser"
)

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func containsCandidate(cands []Candidate, name string) bool {
	for _, c := range cands {
		if c.Name == name {
			return true
		}
	}
	return false
}

func TestScanRootServerlessYAML(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "serverless.yml"), "functions:\n  hello:\n    handler: handlers.api.hello\n")

	ts, err := parser.NewTreeSitterParser()
	if err != nil {
		t.Fatalf("new parser: %v", err)
	}
	defer ts.Close()

	s := NewScanner(ts)
	cands, err := s.ScanRoot(dir)
	if err != nil {
		t.Fatalf("ScanRoot: %v", err)
	}
	if !containsCandidate(cands, "hello") {
		t.Errorf("expected candidate %q, got %+v", "hello", cands)
	}
}

func TestScanRootPackageJSON(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "package.json"), `{
  "scripts": { "start": "node server.js" },
  "bin": { "mycli": "cli.js" }
}`)

	ts, err := parser.NewTreeSitterParser()
	if err != nil {
		t.Fatalf("new parser: %v", err)
	}
	defer ts.Close()

	s := NewScanner(ts)
	cands, err := s.ScanRoot(dir)
	if err != nil {
		t.Fatalf("ScanRoot: %v", err)
	}
	foundBin := false
	for _, c := range cands {
		if c.FullDotted == "cli.js" {
			foundBin = true
		}
	}
	if !foundBin {
		t.Errorf("expected bin candidate, got %+v", cands)
	}
}

func TestScanRootPyprojectTOML(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "pyproject.toml"), `
[project.scripts]
mytool = "mypkg.cli:main"

[tool.poetry.scripts]
othertool = "mypkg.other:run"
`)

	ts, err := parser.NewTreeSitterParser()
	if err != nil {
		t.Fatalf("new parser: %v", err)
	}
	defer ts.Close()

	s := NewScanner(ts)
	cands, err := s.ScanRoot(dir)
	if err != nil {
		t.Fatalf("ScanRoot: %v", err)
	}
	if !containsCandidate(cands, "cli:main") {
		t.Errorf("expected candidate from [project.scripts], got %+v", cands)
	}
	if !containsCandidate(cands, "other:run") {
		t.Errorf("expected candidate from [tool.poetry.scripts], got %+v", cands)
	}
}

func TestScanRootDjangoSettings(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "settings.py"), `
INSTALLED_APPS = [
    "django.contrib.admin",
    "myapp.apps.MyAppConfig",
]

MIDDLEWARE = [
    "myapp.middleware.LoggingMiddleware",
]
`)

	ts, err := parser.NewTreeSitterParser()
	if err != nil {
		t.Fatalf("new parser: %v", err)
	}
	defer ts.Close()

	s := NewScanner(ts)
	cands, err := s.ScanRoot(dir)
	if err != nil {
		t.Fatalf("ScanRoot: %v", err)
	}
	if !containsCandidate(cands, "MyAppConfig") {
		t.Errorf("expected INSTALLED_APPS candidate, got %+v", cands)
	}
	if !containsCandidate(cands, "LoggingMiddleware") {
		t.Errorf("expected MIDDLEWARE candidate, got %+v", cands)
	}
}

func TestScanRootAirflowDag(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "dags", "etl.py"), `
from airflow.operators.python import PythonOperator

def extract():
    pass

task = PythonOperator(task_id="extract", python_callable=extract)
`)

	ts, err := parser.NewTreeSitterParser()
	if err != nil {
		t.Fatalf("new parser: %v", err)
	}
	defer ts.Close()

	s := NewScanner(ts)
	cands, err := s.ScanRoot(dir)
	if err != nil {
		t.Fatalf("ScanRoot: %v", err)
	}
	if !containsCandidate(cands, "extract") {
		t.Errorf("expected python_callable candidate, got %+v", cands)
	}
}

func TestScanRootMissingFilesIsNotFatal(t *testing.T) {
	dir := t.TempDir()

	ts, err := parser.NewTreeSitterParser()
	if err != nil {
		t.Fatalf("new parser: %v", err)
	}
	defer ts.Close()

	s := NewScanner(ts)
	cands, err := s.ScanRoot(dir)
	if err != nil {
		t.Fatalf("ScanRoot on empty dir: %v", err)
	}
	if len(cands) != 0 {
		t.Errorf("expected no candidates, got %+v", cands)
	}
}
