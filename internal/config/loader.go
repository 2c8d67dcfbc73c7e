package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a job manifest from the provided path. Environment references in
// workdir, env values and envFromFile are expanded against the current
// environment, and env files are merged beneath inline env entries.
func Load(path string) (*File, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve job file path: %w", err)
	}

	f, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open job file: %w", err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	var doc File
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", absPath, err)
	}

	baseDir := filepath.Dir(absPath)
	docWorkdir := resolveWorkdir(baseDir, os.ExpandEnv(doc.Workdir))
	doc.Workdir = docWorkdir

	for name, job := range doc.Jobs {
		if job == nil {
			continue
		}
		job.ResolvedWorkdir = resolveWorkdir(docWorkdir, os.ExpandEnv(job.Workdir))

		var inlineEnv map[string]string
		if len(job.Env) > 0 {
			inlineEnv = make(map[string]string, len(job.Env))
			for k, v := range job.Env {
				inlineEnv[k] = os.ExpandEnv(v)
			}
		}

		var fileEnv map[string]string
		if job.EnvFromFile != "" {
			expanded := os.ExpandEnv(job.EnvFromFile)
			if !filepath.IsAbs(expanded) {
				expanded = filepath.Clean(filepath.Join(job.ResolvedWorkdir, expanded))
			}
			job.EnvFromFile = expanded

			var err error
			fileEnv, err = loadEnvFile(expanded)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", jobField(name, "envFromFile"), err)
			}
		}

		var merged map[string]string
		if len(fileEnv) > 0 {
			merged = make(map[string]string, len(fileEnv))
			for k, v := range fileEnv {
				merged[k] = v
			}
		}
		if len(inlineEnv) > 0 {
			if merged == nil {
				merged = make(map[string]string, len(inlineEnv))
			}
			for k, v := range inlineEnv {
				merged[k] = v
			}
		}
		job.Env = merged
	}

	if err := doc.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("%s: %w", absPath, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", absPath, err)
	}
	return &doc, nil
}

// resolveWorkdir anchors a relative workdir to base; the job file's directory
// for the document workdir, the document workdir for per-job ones.
func resolveWorkdir(base, dir string) string {
	switch {
	case dir == "":
		return base
	case filepath.IsAbs(dir):
		return filepath.Clean(dir)
	default:
		return filepath.Clean(filepath.Join(base, dir))
	}
}

// loadEnvFile parses a dotenv-style file: KEY=VALUE per line, blank lines and
// # comments skipped, an optional "export " prefix tolerated.
func loadEnvFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("env file: %w", err)
	}
	defer f.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if rest, ok := strings.CutPrefix(line, "export "); ok {
			line = strings.TrimSpace(rest)
		}
		key, raw, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("env file %s: malformed entry on line %d", path, lineNo)
		}
		value, err := parseEnvValue(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("env file %s: line %d: %w", path, lineNo, err)
		}
		values[key] = os.ExpandEnv(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("env file %s: %w", path, err)
	}
	return values, nil
}

// parseEnvValue strips quoting or a trailing unquoted comment from a value.
func parseEnvValue(value string) (string, error) {
	switch {
	case strings.HasPrefix(value, `"`):
		unquoted, err := strconv.Unquote(value)
		if err != nil {
			return "", fmt.Errorf("bad quoted value %s: %w", value, err)
		}
		return unquoted, nil
	case strings.HasPrefix(value, "'"):
		if len(value) < 2 || !strings.HasSuffix(value, "'") {
			return "", fmt.Errorf("unmatched quote in %s", value)
		}
		return value[1 : len(value)-1], nil
	default:
		if i := strings.IndexByte(value, '#'); i >= 0 {
			value = strings.TrimSpace(value[:i])
		}
		return value, nil
	}
}
