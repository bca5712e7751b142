// Package notes implements the note filename conventions.
//
// A note file is a single YAML document whose filename embeds a stable
// 16-hex-digit token. Two naming conventions exist and both must be
// supported for history correctness:
//
//	modern: <slug>-<16 hex digits>.yaml
//	legacy: <16 hex digits>-<slug>.yaml
package notes

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const uidLen = 16

// IsNoteFile reports whether the filename looks like a note file. Anything
// else under the notes directory is not a note and callers are expected to
// log and ignore it.
func IsNoteFile(name string) bool {
	return name != "" && strings.HasSuffix(name, ".yaml")
}

// UniqueID extracts the stable identifier token from a note filename.
// The token is the last 16 characters of the base name before the
// extension; a separator inside that window indicates the legacy layout
// with the token at the front instead.
func UniqueID(path string) string {
	base := filepath.Base(path)
	root := strings.TrimSuffix(base, filepath.Ext(base))
	uid := root
	if len(root) > uidLen {
		uid = root[len(root)-uidLen:]
	}
	if strings.Contains(uid, "-") {
		// Older file with the token at the beginning of the name.
		uid = root
		if len(root) > uidLen {
			uid = root[:uidLen]
		}
	}
	return uid
}

// NewUniqueID generates a token for a new note filename.
func NewUniqueID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])[:uidLen]
}

var template = `---
prelude: >
    Replace this text with content to appear at the top of the section for
    this release.
features:
  - List new features here, or remove this section.
upgrade:
  - List upgrade notes here, or remove this section.
deprecations:
  - List deprecations notes here, or remove this section.
security:
  - Add security notes here, or remove this section.
fixes:
  - Add normal bug fixes here, or remove this section.
other:
  - Add other notes here, or remove this section.
`

// Create writes a new note file into notesdir and returns its path.
func Create(notesdir, slug string) (string, error) {
	slug = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(slug), " ", "-"))
	if slug == "" {
		return "", fmt.Errorf("slug cannot be empty")
	}

	if err := os.MkdirAll(notesdir, 0755); err != nil {
		return "", fmt.Errorf("creating notes directory: %w", err)
	}

	filename := filepath.Join(notesdir, fmt.Sprintf("%s-%s.yaml", slug, NewUniqueID()))
	if err := os.WriteFile(filename, []byte(template), 0644); err != nil {
		return "", fmt.Errorf("writing note file: %w", err)
	}
	return filename, nil
}
