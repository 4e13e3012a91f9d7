// Copyright (c) 2026 xorq-labs
// snowflake-keypair-helper - Snowflake keypair credential management
// This source code is licensed under the MIT license found in the LICENSE file.

// i18n-linter checks for missing or orphaned translation keys. It scans the
// Go source for i18n.T() calls and compares them against the YAML locales.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	localesDir    = "internal/i18n/locales"
	primaryLocale = "en.yaml"
	projectRoot   = "."
)

var usedKeyPattern = regexp.MustCompile(`i18n\.T\("([^"]+)"`)

// Report lists every inconsistency found.
type Report struct {
	// Undefined keys are used in code but missing from the primary locale.
	Undefined []string
	// Orphaned keys are in the primary locale but never used.
	Orphaned []string
	// Missing maps a secondary locale file to the primary keys it lacks.
	Missing map[string][]string
}

// Failed reports whether the report should fail the build. Orphans only warn.
func (r Report) Failed() bool {
	if len(r.Undefined) > 0 {
		return true
	}
	for _, keys := range r.Missing {
		if len(keys) > 0 {
			return true
		}
	}
	return false
}

func main() {
	fmt.Println("Running i18n linter...")
	report, err := lint(projectRoot, filepath.Join(projectRoot, localesDir))
	if err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}

	printSection("Used in code but not defined in "+primaryLocale, report.Undefined)
	printSection("Defined in "+primaryLocale+" but never used", report.Orphaned)
	files := make([]string, 0, len(report.Missing))
	for f := range report.Missing {
		files = append(files, f)
	}
	sort.Strings(files)
	for _, f := range files {
		printSection("Missing from "+f, report.Missing[f])
	}

	if report.Failed() {
		fmt.Println("Found issues that need to be addressed.")
		os.Exit(1)
	}
	fmt.Println("All translation files are consistent.")
}

func printSection(title string, keys []string) {
	fmt.Printf("--- %s ---\n", title)
	if len(keys) == 0 {
		fmt.Println("  none")
		return
	}
	for _, k := range keys {
		fmt.Printf("  - %s\n", k)
	}
}

// lint compares the keys used under root with the locales in dir.
func lint(root, dir string) (Report, error) {
	used, err := findUsedKeys(root)
	if err != nil {
		return Report{}, fmt.Errorf("finding used keys: %w", err)
	}
	primary, err := loadKeysFromLocale(filepath.Join(dir, primaryLocale))
	if err != nil {
		return Report{}, fmt.Errorf("loading primary locale: %w", err)
	}

	report := Report{
		Undefined: difference(used, primary),
		Orphaned:  difference(primary, used),
		Missing:   map[string][]string{},
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return Report{}, err
	}
	for _, f := range files {
		if filepath.Base(f) == primaryLocale {
			continue
		}
		keys, err := loadKeysFromLocale(f)
		if err != nil {
			return Report{}, fmt.Errorf("loading %s: %w", f, err)
		}
		report.Missing[filepath.Base(f)] = difference(primary, keys)
	}
	return report, nil
}

// findUsedKeys scans non-test .go files for i18n.T("key") calls. Hidden
// directories, directories starting with "_" and tools are skipped.
func findUsedKeys(root string) (map[string]struct{}, error) {
	keys := make(map[string]struct{})
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			name := info.Name()
			if path != root && (name == "tools" || strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		for _, m := range usedKeyPattern.FindAllStringSubmatch(string(content), -1) {
			keys[m[1]] = struct{}{}
		}
		return nil
	})
	return keys, err
}

// loadKeysFromLocale reads a YAML file and returns its keys, flattened.
func loadKeysFromLocale(path string) (map[string]struct{}, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := yaml.Unmarshal(content, &data); err != nil {
		return nil, err
	}
	keys := make(map[string]struct{})
	flattenYAML("", data, keys)
	return keys, nil
}

// flattenYAML turns a nested map into dot-separated keys.
func flattenYAML(prefix string, node any, keys map[string]struct{}) {
	switch v := node.(type) {
	case map[string]any:
		for k, val := range v {
			next := k
			if prefix != "" {
				next = prefix + "." + k
			}
			flattenYAML(next, val, keys)
		}
	default:
		if prefix != "" {
			keys[prefix] = struct{}{}
		}
	}
}

// difference returns the sorted keys of a that are not in b.
func difference(a, b map[string]struct{}) []string {
	var out []string
	for k := range a {
		if _, ok := b[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
