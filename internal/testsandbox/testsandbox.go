// Package testsandbox implements the Test Sandbox (C11): it autodetects a
// project's test runner, executes it as a subprocess with a bounded
// timeout and a cleaned environment, and fingerprints failures so a
// mutation can be judged safe or unsafe by diffing failure sets before and
// after.
package testsandbox

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Timeout is the five-minute wall-clock deadline per spec §4.11.
const Timeout = 5 * time.Minute

// envPrefix is stripped from the subprocess environment so the tool's own
// configuration never leaks into the test run.
const envPrefix = "JANITOR_"

// Result is the outcome of one test run: its exit code, merged
// stdout+stderr, and the fingerprinted set of failing test ids.
type Result struct {
	ExitCode int
	Output   string
	Failures map[string]bool
}

// IsCollectionError reports whether the run failed before any test could
// execute (pytest exit code 2, or equivalent), which per spec mandates an
// unconditional rollback regardless of the failure-set diff.
func (r Result) IsCollectionError() bool {
	return r.ExitCode == 2
}

var pytestFailurePattern = regexp.MustCompile(`(?:FAILED|ERROR)\s+([^\s]+::[^\s]+)`)
var jsFailureBulletPattern = regexp.MustCompile(`(?m)^\s*(?:\d+\)|[✗✘xX])\s+(.+)$`)

// Sandbox runs a project's test command inside dir.
type Sandbox struct {
	dir string
	cmd []string
}

// Detect probes dir for a conventional test runner: pytest for Python
// projects, the package manager's "test" script for JS/TS projects.
// explicitCmd, if non-empty, is used verbatim instead of probing.
func Detect(dir, explicitCmd string) (*Sandbox, error) {
	if explicitCmd != "" {
		return &Sandbox{dir: dir, cmd: []string{"sh", "-c", explicitCmd}}, nil
	}

	if fileExists(filepath.Join(dir, "pytest.ini")) ||
		fileExists(filepath.Join(dir, "pyproject.toml")) ||
		fileExists(filepath.Join(dir, "setup.py")) {
		return &Sandbox{dir: dir, cmd: []string{"pytest"}}, nil
	}

	if fileExists(filepath.Join(dir, "package.json")) {
		return &Sandbox{dir: dir, cmd: []string{"npm", "test", "--silent"}}, nil
	}

	return nil, fmt.Errorf("testsandbox: could not autodetect a test runner in %s", dir)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Baseline runs once before mutation.
func (s *Sandbox) Baseline(ctx context.Context) (Result, error) {
	return s.run(ctx)
}

// Verify runs after mutation. Accept reports whether the mutation should
// be kept, per spec §4.11: the new failure set (current minus baseline)
// must be empty and the run must not be a collection error.
func (s *Sandbox) Verify(ctx context.Context, baseline Result) (Result, error) {
	return s.run(ctx)
}

// Accept implements the acceptance rule of spec §4.11.
func Accept(baseline, current Result) bool {
	if current.IsCollectionError() {
		return false
	}
	for id := range current.Failures {
		if !baseline.Failures[id] {
			return false
		}
	}
	return true
}

func (s *Sandbox) run(ctx context.Context) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.cmd[0], s.cmd[1:]...)
	cmd.Dir = s.dir
	cmd.Env = cleanEnv()

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	output := buf.String()

	if ctx.Err() == context.DeadlineExceeded {
		// Timeout: treat incomplete output as an implicit new failure so
		// the caller's diff against baseline never accepts it.
		return Result{ExitCode: -1, Output: output, Failures: map[string]bool{"__timeout__": true}}, nil
	}

	exitCode := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	} else if err != nil {
		return Result{}, fmt.Errorf("run test command: %w", err)
	}

	return Result{
		ExitCode: exitCode,
		Output:   output,
		Failures: fingerprintFailures(output),
	}, nil
}

// cleanEnv rebuilds the subprocess environment from os.Environ, dropping
// any variable bearing this tool's own prefix.
func cleanEnv() []string {
	env := os.Environ()
	out := make([]string, 0, len(env))
	for _, kv := range env {
		if strings.HasPrefix(kv, envPrefix) {
			continue
		}
		out = append(out, kv)
	}
	return out
}

// fingerprintFailures extracts failing test ids from merged stdout+stderr,
// trying the pytest shape first and falling back to the mocha/jest bullet
// shape.
func fingerprintFailures(output string) map[string]bool {
	failures := make(map[string]bool)

	for _, m := range pytestFailurePattern.FindAllStringSubmatch(output, -1) {
		failures[m[1]] = true
	}
	if len(failures) > 0 {
		return failures
	}

	for _, m := range jsFailureBulletPattern.FindAllStringSubmatch(output, -1) {
		name := strings.TrimSpace(m[1])
		if name != "" {
			failures[name] = true
		}
	}
	return failures
}
