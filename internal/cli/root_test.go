package cli

import (
	"bytes"
	stdcontext "context"
	"errors"
	"os"
	"path/filepath"
	stdruntime "runtime"
	"strings"
	"testing"
	"time"

	"github.com/Paintersrp/runproc/internal/proc"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if stdruntime.GOOS == "windows" {
		t.Skip("cli integration tests skipped on windows")
	}
}

func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	root.SetContext(stdcontext.Background())
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func writeJobFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobs.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write job file: %v", err)
	}
	return path
}

func TestExecEchoesOutput(t *testing.T) {
	skipOnWindows(t)
	out, _, err := executeCommand(t, "exec", "--", "/bin/sh", "-c", "echo hello; echo world")
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if out != "hello\nworld\n" {
		t.Fatalf("output: %q", out)
	}
}

func TestExecQuiet(t *testing.T) {
	skipOnWindows(t)
	out, _, err := executeCommand(t, "exec", "-q", "--", "/bin/sh", "-c", "echo hello")
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if out != "" {
		t.Fatalf("quiet run produced output: %q", out)
	}
}

func TestExecPropagatesExitCode(t *testing.T) {
	skipOnWindows(t)
	_, _, err := executeCommand(t, "exec", "--", "/bin/sh", "-c", "exit 4")
	var exitErr *exitCodeError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected exitCodeError, got %v", err)
	}
	if exitErr.code != 4 {
		t.Fatalf("exit code: got %d want 4", exitErr.code)
	}
}

func TestExecShellString(t *testing.T) {
	skipOnWindows(t)
	out, _, err := executeCommand(t, "exec", "--shell", "--", "echo a && echo b")
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if out != "a\nb\n" {
		t.Fatalf("output: %q", out)
	}
}

func TestExecEnv(t *testing.T) {
	skipOnWindows(t)
	out, _, err := executeCommand(t, "exec", "-e", "GREETING=hi", "--", "/bin/sh", "-c", "echo $GREETING")
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if strings.TrimSpace(out) != "hi" {
		t.Fatalf("output: %q", out)
	}
}

func TestExecInvalidEnv(t *testing.T) {
	_, _, err := executeCommand(t, "exec", "-e", "missing-separator", "--", "true")
	if err == nil || !strings.Contains(err.Error(), "--env") {
		t.Fatalf("expected env parse error, got %v", err)
	}
}

func TestExecTimeoutExitCode(t *testing.T) {
	skipOnWindows(t)
	_, errOut, err := executeCommand(t, "exec", "--timeout", "200ms", "--", "/bin/sh", "-c", "sleep 10")
	var exitErr *exitCodeError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected exitCodeError, got %v", err)
	}
	if exitErr.code != 124 {
		t.Fatalf("exit code: got %d want 124", exitErr.code)
	}
	if !strings.Contains(errOut, "timed out") {
		t.Fatalf("stderr: %q", errOut)
	}
}

func TestExecWorkdir(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()
	out, _, err := executeCommand(t, "exec", "-C", dir, "--", "/bin/sh", "-c", "pwd")
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	got, want := strings.TrimSpace(out), dir
	// Resolve symlinks: macOS tempdirs live under /private.
	if resolved, err := filepath.EvalSymlinks(want); err == nil {
		want = resolved
	}
	if got != want {
		t.Fatalf("workdir: got %q want %q", got, want)
	}
}

func TestRunNamedJob(t *testing.T) {
	skipOnWindows(t)
	path := writeJobFile(t, `
version: "1"
jobs:
  greet:
    command: ["/bin/sh", "-c", "echo from-job"]
`)
	out, _, err := executeCommand(t, "-f", path, "run", "greet")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.TrimSpace(out) != "from-job" {
		t.Fatalf("output: %q", out)
	}
}

func TestRunUnknownJob(t *testing.T) {
	path := writeJobFile(t, `
version: "1"
jobs:
  greet:
    command: ["true"]
`)
	_, _, err := executeCommand(t, "-f", path, "run", "missing")
	if err == nil || !strings.Contains(err.Error(), `job "missing" not defined`) {
		t.Fatalf("expected unknown-job error, got %v", err)
	}
}

func TestRunAppliesJobPrefixFormatter(t *testing.T) {
	skipOnWindows(t)
	path := writeJobFile(t, `
version: "1"
jobs:
  tagged:
    command: ["/bin/sh", "-c", "echo line"]
    formatter: prefix
    prefix: "job | "
`)
	out, _, err := executeCommand(t, "-f", path, "run", "tagged")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.TrimSpace(out) != "job | line" {
		t.Fatalf("output: %q", out)
	}
}

func TestListJobs(t *testing.T) {
	path := writeJobFile(t, `
version: "1"
jobs:
  beta:
    command: ["make", "beta"]
    timeout: 30s
  alpha:
    command: make alpha
`)
	out, _, err := executeCommand(t, "-f", path, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus two rows, got %q", out)
	}
	if !strings.HasPrefix(lines[0], "NAME") {
		t.Fatalf("header: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "alpha") || !strings.HasPrefix(lines[2], "beta") {
		t.Fatalf("rows not sorted: %q", out)
	}
	if !strings.Contains(lines[2], "30s") {
		t.Fatalf("timeout column missing: %q", lines[2])
	}
}

func TestVersionCommand(t *testing.T) {
	out, _, err := executeCommand(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "runproc ") {
		t.Fatalf("output: %q", out)
	}
}

func TestMapResult(t *testing.T) {
	var errOut bytes.Buffer

	if err := mapResult(&errOut, 0, nil); err != nil {
		t.Fatalf("clean run: %v", err)
	}

	err := mapResult(&errOut, 3, nil)
	var exitErr *exitCodeError
	if !errors.As(err, &exitErr) || exitErr.code != 3 {
		t.Fatalf("non-zero exit: %v", err)
	}

	err = mapResult(&errOut, -1, &proc.TimedOutError{After: time.Second})
	if !errors.As(err, &exitErr) || exitErr.code != 124 {
		t.Fatalf("timeout mapping: %v", err)
	}

	err = mapResult(&errOut, -1, proc.ErrKilled)
	if !errors.As(err, &exitErr) || exitErr.code != 130 {
		t.Fatalf("kill mapping: %v", err)
	}

	err = mapResult(&errOut, 5, &proc.ExitError{Code: 5, Command: "x"})
	if !errors.As(err, &exitErr) || exitErr.code != 5 {
		t.Fatalf("check mapping: %v", err)
	}
}
