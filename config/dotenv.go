// ABOUTME: Loads KEY=VALUE pairs from .env files into the environment before configuration is read.
// ABOUTME: Existing environment variables always win; missing files are ignored.
package config

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ParseDotEnv reads KEY=VALUE lines. Blank lines and # comments are skipped,
// an "export " prefix is allowed, and one pair of matching quotes around the
// value is removed.
func ParseDotEnv(r io.Reader) (map[string]string, error) {
	vars := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		vars[key] = unquote(strings.TrimSpace(value))
	}
	return vars, scanner.Err()
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}

// LoadDotEnv applies the file at path without overriding variables that are
// already set. It returns the number of variables it set.
func LoadDotEnv(path string) int {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	vars, err := ParseDotEnv(f)
	if err != nil {
		return 0
	}
	set := 0
	for key, value := range vars {
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if os.Setenv(key, value) == nil {
			set++
		}
	}
	return set
}

// LoadDotEnvAuto applies .env from the working directory upwards, then the
// one next to the executable. Nearer files take precedence.
func LoadDotEnvAuto() {
	seen := map[string]bool{}
	load := func(p string) {
		if seen[p] {
			return
		}
		seen[p] = true
		LoadDotEnv(p)
	}

	if wd, err := os.Getwd(); err == nil {
		for dir := wd; ; dir = filepath.Dir(dir) {
			load(filepath.Join(dir, ".env"))
			if filepath.Dir(dir) == dir {
				break
			}
		}
	}
	if exe, err := os.Executable(); err == nil {
		load(filepath.Join(filepath.Dir(exe), ".env"))
	}
}
