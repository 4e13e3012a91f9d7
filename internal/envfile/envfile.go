// Copyright (c) 2026 xorq-labs
// snowflake-keypair-helper - Snowflake keypair credential management
// This source code is licensed under the MIT license found in the LICENSE file.

// Package envfile reads and writes the shell-sourceable environment files that
// carry Snowflake credentials between tools.
package envfile // import "github.com/xorq-labs/snowflake-keypair-helper/internal/envfile"

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/google/shlex"
)

// DefaultPrefix is prepended to every credential field name.
const DefaultPrefix = "SNOWFLAKE_"

var entryPattern = regexp.MustCompile(`(?s)^(?:export )?([^=]+)=(.*)$`)

// Entry is a single NAME=value assignment. Order is kept when rendering.
type Entry struct {
	Name  string
	Value string
}

// EnvName returns the variable name for a credential field.
func EnvName(name, prefix string) string {
	return prefix + strings.ToUpper(name)
}

// Parse reads assignments from text. Physical lines are joined until shell
// quoting balances, so a quoted value may span lines. Lines that are not
// assignments (comments, blanks) are skipped.
func Parse(text string) (map[string]string, error) {
	env := map[string]string{}
	var (
		pending string
		open    bool
		lastErr error
	)
	for _, line := range strings.Split(text, "\n") {
		if open {
			pending += "\n" + line
		} else {
			pending = line
		}
		tokens, err := shlex.Split(pending)
		if err != nil {
			open, lastErr = true, err
			continue
		}
		open = false
		if len(tokens) == 0 {
			continue
		}
		if m := entryPattern.FindStringSubmatch(strings.Join(tokens, " ")); m != nil {
			env[m[1]] = m[2]
		}
	}
	if open {
		return nil, fmt.Errorf("unterminated entry %q: %w", firstLine(pending), lastErr)
	}
	return env, nil
}

// ParseFile reads and parses the file at path.
func ParseFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}
	env, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return env, nil
}

// Render writes entries as NAME='value' lines in the order given.
func Render(entries []Entry, export bool) string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		line := e.Name + "=" + quote(e.Value)
		if export {
			line = "export " + line
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// RenderMap is Render over a map, sorted by name.
func RenderMap(env map[string]string, export bool) string {
	return Render(Entries(env), export)
}

// Entries returns env as name-sorted entries.
func Entries(env map[string]string) []Entry {
	names := make([]string, 0, len(env))
	for name := range env {
		names = append(names, name)
	}
	sort.Strings(names)
	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		entries = append(entries, Entry{Name: name, Value: env[name]})
	}
	return entries
}

// Merge layers maps left to right; later values win.
func Merge(layers ...map[string]string) map[string]string {
	out := map[string]string{}
	for _, layer := range layers {
		for k, v := range layer {
			out[k] = v
		}
	}
	return out
}

// Environ snapshots the process environment.
func Environ() map[string]string {
	env := map[string]string{}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// Load is the process environment overlaid with the file at path. An empty
// path or os.DevNull yields the process environment only.
func Load(path string) (map[string]string, error) {
	if path == "" || path == os.DevNull {
		return Environ(), nil
	}
	fileEnv, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	return Merge(Environ(), fileEnv), nil
}

// quote single-quotes v, closing and escaping any embedded single quote.
func quote(v string) string {
	return "'" + strings.ReplaceAll(v, "'", `'\''`) + "'"
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
