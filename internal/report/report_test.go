package report

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relnotes/internal/scanner"
)

func init() {
	color.NoColor = true
}

func sampleHistory() scanner.History {
	return scanner.History{
		{Version: "2.0.0", Notes: []scanner.NoteRef{
			{Path: "releasenotes/notes/slug2-0000000000000002.yaml", Commit: "shaB"},
			{Path: "releasenotes/notes/slug3-0000000000000003.yaml", Commit: "shaC"},
		}},
		{Version: "1.0.0", Notes: []scanner.NoteRef{
			{Path: "releasenotes/notes/slug1-0000000000000001.yaml", Commit: "shaA"},
		}},
	}
}

func sampleContents() map[string]map[string]any {
	return map[string]map[string]any{
		"releasenotes/notes/slug1-0000000000000001.yaml": {
			"features": []any{"We added a feature!"},
		},
		"releasenotes/notes/slug2-0000000000000002.yaml": {
			"prelude": "This release changes everything.\n",
			"fixes":   []any{"First fix.", "Second fix."},
		},
		"releasenotes/notes/slug3-0000000000000003.yaml": {
			"fixes": []any{"Third fix."},
		},
	}
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, sampleHistory(), FromCache(sampleContents()))
	require.NoError(t, err)
	out := buf.String()

	assert.Contains(t, out, "2.0.0\n=====\n")
	assert.Contains(t, out, "1.0.0\n=====\n")
	assert.Contains(t, out, "This release changes everything.")
	assert.Contains(t, out, "New Features\n------------\n- We added a feature!")
	assert.Contains(t, out, "Bug Fixes\n---------\n- First fix.\n- Second fix.\n- Third fix.")

	// Sections without entries are omitted entirely.
	assert.NotContains(t, out, "Upgrade Notes")
}

func TestRenderVersionOrder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleHistory(), FromCache(sampleContents())))
	out := buf.String()
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("2.0.0")), bytes.Index(buf.Bytes(), []byte("1.0.0")), out)
}

func TestRenderEmptyHistory(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, nil, FromCache(nil)))
	assert.Empty(t, buf.String())
}
