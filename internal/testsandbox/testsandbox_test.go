package testsandbox

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestDetectExplicitCommand(t *testing.T) {
	sb, err := Detect(t.TempDir(), "echo hi")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(sb.cmd) == 0 {
		t.Fatal("expected explicit command to be used verbatim")
	}
}

func TestDetectPytestProject(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "pyproject.toml"), []byte("[project]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	sb, err := Detect(dir, "")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if sb.cmd[0] != "pytest" {
		t.Fatalf("got %v, want pytest", sb.cmd)
	}
}

func TestDetectNodeProject(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "package.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	sb, err := Detect(dir, "")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if sb.cmd[0] != "npm" {
		t.Fatalf("got %v, want npm", sb.cmd)
	}
}

func TestDetectNoRunnerFound(t *testing.T) {
	if _, err := Detect(t.TempDir(), ""); err == nil {
		t.Fatal("expected an error when no runner can be autodetected")
	}
}

func TestFingerprintFailuresPytest(t *testing.T) {
	output := "collecting...\nFAILED tests/test_a.py::test_one\nERROR tests/test_b.py::test_two\n"
	got := fingerprintFailures(output)
	if !got["tests/test_a.py::test_one"] || !got["tests/test_b.py::test_two"] {
		t.Fatalf("got %v", got)
	}
}

func TestFingerprintFailuresJS(t *testing.T) {
	output := "  1) should add two numbers\n  2) should subtract\n"
	got := fingerprintFailures(output)
	if len(got) != 2 {
		t.Fatalf("got %v, want 2 failures", got)
	}
}

func TestAcceptRejectsNewFailure(t *testing.T) {
	baseline := Result{Failures: map[string]bool{"a": true}}
	current := Result{Failures: map[string]bool{"a": true, "b": true}}
	if Accept(baseline, current) {
		t.Fatal("expected rejection when a new failure appears")
	}
}

func TestAcceptAllowsSameOrFewerFailures(t *testing.T) {
	baseline := Result{Failures: map[string]bool{"a": true, "b": true}}
	current := Result{Failures: map[string]bool{"a": true}}
	if !Accept(baseline, current) {
		t.Fatal("expected acceptance when failures only shrink")
	}
}

func TestAcceptRejectsCollectionError(t *testing.T) {
	baseline := Result{Failures: map[string]bool{}}
	current := Result{ExitCode: 2, Failures: map[string]bool{}}
	if Accept(baseline, current) {
		t.Fatal("expected rejection on a collection error regardless of the failure diff")
	}
}

func TestRunEchoCommand(t *testing.T) {
	sb, err := Detect(t.TempDir(), "echo all good")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	res, err := sb.Baseline(context.Background())
	if err != nil {
		t.Fatalf("Baseline: %v", err)
	}
	if res.ExitCode != 0 {
		t.Fatalf("got exit code %d, want 0", res.ExitCode)
	}
}

func TestRunNonZeroExit(t *testing.T) {
	sb, err := Detect(t.TempDir(), "exit 1")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	res, err := sb.Baseline(context.Background())
	if err != nil {
		t.Fatalf("Baseline: %v", err)
	}
	if res.ExitCode != 1 {
		t.Fatalf("got exit code %d, want 1", res.ExitCode)
	}
}
