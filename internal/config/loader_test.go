package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadResolvesJobs(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "jobs.yaml", `
version: "1"
defaults:
  timeout: 1m
  formatter: time-delta
jobs:
  build:
    command: ["make", "build"]
    workdir: src
    timeout: 30s
    env:
      CC: gcc
  lint:
    command: make lint 2>&1
`)

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	build := doc.Jobs["build"]
	if build == nil {
		t.Fatal("build job missing")
	}
	if build.Command.IsShell() {
		t.Fatal("argv command reported as shell")
	}
	if got := strings.Join(build.Command.Argv, " "); got != "make build" {
		t.Fatalf("argv: %q", got)
	}
	if want := filepath.Join(dir, "src"); build.ResolvedWorkdir != want {
		t.Fatalf("workdir: got %q want %q", build.ResolvedWorkdir, want)
	}
	if build.Timeout.Duration != 30*time.Second {
		t.Fatalf("timeout override: %v", build.Timeout.Duration)
	}
	if build.Formatter != FormatterTimeDelta {
		t.Fatalf("formatter default not applied: %q", build.Formatter)
	}
	if build.Env["CC"] != "gcc" {
		t.Fatalf("env: %v", build.Env)
	}

	lint := doc.Jobs["lint"]
	if !lint.Command.IsShell() {
		t.Fatal("scalar command not treated as shell")
	}
	if lint.Command.Shell != "make lint 2>&1" {
		t.Fatalf("shell command: %q", lint.Command.Shell)
	}
	if lint.Timeout.Duration != time.Minute {
		t.Fatalf("timeout default not applied: %v", lint.Timeout.Duration)
	}
	if lint.ResolvedWorkdir != dir {
		t.Fatalf("default workdir: got %q want %q", lint.ResolvedWorkdir, dir)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "jobs.yaml", `
version: "1"
jobs:
  build:
    command: ["true"]
    retries: 3
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected decode error for unknown field")
	}
}

func TestLoadMergesEnvFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "service.env", `
# comment
export TOKEN=abc123
QUOTED="hello world"
OVERRIDDEN=from-file
TRAILING=value # trailing comment
`)
	path := writeFile(t, dir, "jobs.yaml", `
version: "1"
jobs:
  serve:
    command: ["./serve"]
    envFromFile: service.env
    env:
      OVERRIDDEN: inline
`)

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	env := doc.Jobs["serve"].Env
	want := map[string]string{
		"TOKEN":      "abc123",
		"QUOTED":     "hello world",
		"OVERRIDDEN": "inline",
		"TRAILING":   "value",
	}
	for k, v := range want {
		if env[k] != v {
			t.Fatalf("env[%s]: got %q want %q (full: %v)", k, env[k], v, env)
		}
	}
}

func TestLoadMissingEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "jobs.yaml", `
version: "1"
jobs:
  serve:
    command: ["./serve"]
    envFromFile: does-not-exist.env
`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "jobs.serve.envFromFile") {
		t.Fatalf("expected envFromFile error with field path, got %v", err)
	}
}

func TestLoadEnvFileErrors(t *testing.T) {
	cases := []struct {
		name     string
		contents string
		wantErr  string
	}{
		{"missing separator", "JUST_A_KEY\n", "malformed entry on line 1"},
		{"empty key", "=value\n", "malformed entry on line 1"},
		{"unmatched single quote", "KEY='oops\n", "unmatched quote"},
		{"unmatched double quote", "KEY=\"oops\n", "bad quoted value"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "bad.env", tc.contents)
			path := writeFile(t, dir, "jobs.yaml", `
version: "1"
jobs:
  serve:
    command: ["./serve"]
    envFromFile: bad.env
`)
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("got %v, want error containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("BUILD_MODE", "release")
	dir := t.TempDir()
	path := writeFile(t, dir, "jobs.yaml", `
version: "1"
jobs:
  build:
    command: ["make"]
    env:
      MODE: $BUILD_MODE
`)
	doc, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := doc.Jobs["build"].Env["MODE"]; got != "release" {
		t.Fatalf("expanded env: %q", got)
	}
}
