package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration for YAML unmarshalling.
type Duration struct {
	time.Duration
	explicit bool
}

// UnmarshalText parses a textual duration, accepting empty strings.
func (d *Duration) UnmarshalText(text []byte) error {
	d.explicit = true
	if len(text) == 0 {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = dur
	return nil
}

// MarshalText renders the duration using time.Duration formatting.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// IsSet reports whether the duration was explicitly provided or non-zero.
func (d Duration) IsSet() bool {
	return d.explicit || d.Duration != 0
}

// File mirrors the jobs.yaml document structure.
type File struct {
	Version  string              `yaml:"version"`
	Workdir  string              `yaml:"workdir"`
	Defaults Defaults            `yaml:"defaults"`
	Jobs     map[string]*JobSpec `yaml:"jobs"`
}

// Defaults captures default policies applied to jobs that do not override
// them.
type Defaults struct {
	Timeout     Duration `yaml:"timeout"`
	IdleTimeout Duration `yaml:"idleTimeout"`
	KillGrace   Duration `yaml:"killGrace"`
	Check       *bool    `yaml:"check"`
	Formatter   string   `yaml:"formatter"`
}

// CommandSpec accepts either an argv sequence or a single shell string. The
// scalar form implies shell execution.
type CommandSpec struct {
	Argv  []string
	Shell string
}

// UnmarshalYAML decodes a scalar into the shell form and a sequence into the
// argv form.
func (c *CommandSpec) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		c.Shell = value.Value
		return nil
	case yaml.SequenceNode:
		return value.Decode(&c.Argv)
	default:
		return fmt.Errorf("command must be a string or a sequence of strings")
	}
}

// MarshalYAML renders whichever form is set.
func (c CommandSpec) MarshalYAML() (interface{}, error) {
	if c.Shell != "" {
		return c.Shell, nil
	}
	return c.Argv, nil
}

// IsShell reports whether the command runs through the system shell.
func (c CommandSpec) IsShell() bool {
	return c.Shell != ""
}

// JobSpec describes an individual supervised job.
type JobSpec struct {
	Command     CommandSpec       `yaml:"command"`
	Workdir     string            `yaml:"workdir"`
	Env         map[string]string `yaml:"env"`
	EnvFromFile string            `yaml:"envFromFile"`
	Timeout     Duration          `yaml:"timeout"`
	IdleTimeout Duration          `yaml:"idleTimeout"`
	KillGrace   Duration          `yaml:"killGrace"`
	Check       *bool             `yaml:"check"`
	Formatter   string            `yaml:"formatter"`
	Prefix      string            `yaml:"prefix"`

	ResolvedWorkdir string `yaml:"-"`
}

// Clone creates a deep copy of the job.
func (j *JobSpec) Clone() *JobSpec {
	if j == nil {
		return nil
	}
	cp := *j
	if j.Command.Argv != nil {
		cp.Command.Argv = append([]string(nil), j.Command.Argv...)
	}
	if j.Env != nil {
		cp.Env = make(map[string]string, len(j.Env))
		for k, v := range j.Env {
			cp.Env[k] = v
		}
	}
	if j.Check != nil {
		check := *j.Check
		cp.Check = &check
	}
	return &cp
}

// CheckEnabled reports whether non-zero exits should surface as errors.
func (j *JobSpec) CheckEnabled() bool {
	return j.Check != nil && *j.Check
}

// Formatter names accepted by job and default configuration.
const (
	FormatterNone      = "none"
	FormatterTimeDelta = "time-delta"
	FormatterPrefix    = "prefix"
)

func validFormatter(name string) bool {
	switch name {
	case "", FormatterNone, FormatterTimeDelta, FormatterPrefix:
		return true
	}
	return false
}

// ApplyDefaults merges document-level defaults onto jobs.
func (f *File) ApplyDefaults() error {
	for name, job := range f.Jobs {
		if job == nil {
			return fmt.Errorf("job %q is null", name)
		}
		if !job.Timeout.IsSet() {
			job.Timeout = f.Defaults.Timeout
		}
		if !job.IdleTimeout.IsSet() {
			job.IdleTimeout = f.Defaults.IdleTimeout
		}
		if !job.KillGrace.IsSet() {
			job.KillGrace = f.Defaults.KillGrace
		}
		if job.Check == nil && f.Defaults.Check != nil {
			check := *f.Defaults.Check
			job.Check = &check
		}
		if job.Formatter == "" {
			job.Formatter = f.Defaults.Formatter
		}
	}
	return nil
}

// Validate enforces schema invariants.
func (f *File) Validate() error {
	if f.Version == "" {
		return fmt.Errorf("%s: is required", fieldPath("version"))
	}
	if len(f.Jobs) == 0 {
		return fmt.Errorf("%s: must define at least one job", fieldPath("jobs"))
	}
	if !validFormatter(f.Defaults.Formatter) {
		return fmt.Errorf("%s: unsupported formatter %q (supported values: none, time-delta, prefix)",
			fieldPath("defaults", "formatter"), f.Defaults.Formatter)
	}
	if err := validateDurations(fieldPath("defaults"), f.Defaults.Timeout, f.Defaults.IdleTimeout, f.Defaults.KillGrace); err != nil {
		return err
	}
	for name, job := range f.Jobs {
		if len(job.Command.Argv) == 0 && strings.TrimSpace(job.Command.Shell) == "" {
			return fmt.Errorf("%s: is required", jobField(name, "command"))
		}
		if len(job.Command.Argv) > 0 && strings.TrimSpace(job.Command.Argv[0]) == "" {
			return fmt.Errorf("%s: executable must be non-empty", jobField(name, "command"))
		}
		if err := validateDurations(jobField(name), job.Timeout, job.IdleTimeout, job.KillGrace); err != nil {
			return err
		}
		if !validFormatter(job.Formatter) {
			return fmt.Errorf("%s: unsupported formatter %q (supported values: none, time-delta, prefix)",
				jobField(name, "formatter"), job.Formatter)
		}
		if job.Formatter == FormatterPrefix && job.Prefix == "" {
			return fmt.Errorf("%s: is required when formatter is %q", jobField(name, "prefix"), FormatterPrefix)
		}
		if job.Formatter != FormatterPrefix && job.Prefix != "" {
			return fmt.Errorf("%s: only valid when formatter is %q", jobField(name, "prefix"), FormatterPrefix)
		}
		for key := range job.Env {
			if strings.TrimSpace(key) == "" {
				return fmt.Errorf("%s: variable name must be non-empty", jobField(name, "env"))
			}
		}
	}
	return nil
}

func validateDurations(base string, timeout, idle, grace Duration) error {
	if timeout.IsSet() && timeout.Duration < 0 {
		return fmt.Errorf("%s.timeout: must be non-negative", base)
	}
	if idle.IsSet() && idle.Duration < 0 {
		return fmt.Errorf("%s.idleTimeout: must be non-negative", base)
	}
	if grace.IsSet() && grace.Duration < 0 {
		return fmt.Errorf("%s.killGrace: must be non-negative", base)
	}
	return nil
}

func fieldPath(parts ...string) string {
	return strings.Join(parts, ".")
}

func jobField(job string, parts ...string) string {
	pathParts := append([]string{"jobs", job}, parts...)
	return fieldPath(pathParts...)
}

// JobsSorted returns job names sorted alphabetically.
func (f *File) JobsSorted() []string {
	out := make([]string, 0, len(f.Jobs))
	for name := range f.Jobs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
