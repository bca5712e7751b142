// Package report renders the version→notes mapping as a readable text
// report, one section per note category.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"relnotes/internal/scanner"
)

// Loader returns the parsed YAML body of one note file at its owning
// commit.
type Loader func(path, commit string) (map[string]any, error)

// contentReader is the part of the scanner the report needs.
type contentReader interface {
	FileAtCommit(filename, sha string) ([]byte, error)
}

// sections in rendering order. The prelude is handled separately since it
// is prose rather than a bullet list.
var sections = []struct {
	key   string
	title string
}{
	{"features", "New Features"},
	{"issues", "Known Issues"},
	{"upgrade", "Upgrade Notes"},
	{"deprecations", "Deprecation Notes"},
	{"critical", "Critical Issues"},
	{"security", "Security Issues"},
	{"fixes", "Bug Fixes"},
	{"other", "Other Notes"},
}

// FromScanner builds a Loader that reads note bodies out of the
// repository object store.
func FromScanner(s contentReader) Loader {
	return func(path, commit string) (map[string]any, error) {
		body, err := s.FileAtCommit(path, commit)
		if err != nil {
			return nil, err
		}
		contents := make(map[string]any)
		if err := yaml.Unmarshal(body, &contents); err != nil {
			return nil, fmt.Errorf("parsing note %s at %s: %w", path, commit, err)
		}
		return contents, nil
	}
}

// FromCache builds a Loader over a prebuilt file-contents table.
func FromCache(fileContents map[string]map[string]any) Loader {
	return func(path, _ string) (map[string]any, error) {
		return fileContents[path], nil
	}
}

// Render writes the report for every version in the history.
func Render(w io.Writer, history scanner.History, load Loader) error {
	heading := color.New(color.FgCyan, color.Bold)
	section := color.New(color.Bold)

	for _, version := range history {
		heading.Fprintln(w, version.Version)
		heading.Fprintln(w, strings.Repeat("=", len(version.Version)))
		fmt.Fprintln(w)

		var preludes []string
		merged := make(map[string][]string)
		for _, note := range version.Notes {
			contents, err := load(note.Path, note.Commit)
			if err != nil {
				return err
			}
			for key, value := range contents {
				if key == "prelude" {
					if text, ok := value.(string); ok {
						preludes = append(preludes, strings.TrimSpace(text))
					}
					continue
				}
				merged[key] = append(merged[key], toEntries(value)...)
			}
		}

		for _, p := range preludes {
			fmt.Fprintln(w, p)
			fmt.Fprintln(w)
		}
		for _, s := range sections {
			entries := merged[s.key]
			if len(entries) == 0 {
				continue
			}
			section.Fprintln(w, s.title)
			section.Fprintln(w, strings.Repeat("-", len(s.title)))
			for _, entry := range entries {
				fmt.Fprintf(w, "- %s\n", strings.TrimSpace(entry))
			}
			fmt.Fprintln(w)
		}
	}
	return nil
}

// toEntries flattens a section value: sections are normally lists of
// strings but a bare string is tolerated.
func toEntries(value any) []string {
	switch v := value.(type) {
	case string:
		return []string{v}
	case []any:
		var entries []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				entries = append(entries, s)
			}
		}
		return entries
	}
	return nil
}
