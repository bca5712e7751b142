package notes

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniqueIDModern(t *testing.T) {
	uid := UniqueID("releasenotes/notes/slug1-0000000000000001.yaml")
	assert.Equal(t, "0000000000000001", uid)
}

func TestUniqueIDLegacy(t *testing.T) {
	uid := UniqueID("releasenotes/notes/0000000000000002-slug1.yaml")
	assert.Equal(t, "0000000000000002", uid)
}

func TestUniqueIDShortName(t *testing.T) {
	// Too short to hold a token, the whole root is the id.
	assert.Equal(t, "abc", UniqueID("abc.yaml"))
	assert.Equal(t, "a-b", UniqueID("a-b.yaml"))
}

func TestUniqueIDIgnoresDirectory(t *testing.T) {
	a := UniqueID("slug1-0000000000000003.yaml")
	b := UniqueID("some/deep/dir/slug1-0000000000000003.yaml")
	assert.Equal(t, a, b)
}

func TestIsNoteFile(t *testing.T) {
	assert.True(t, IsNoteFile("slug1-0000000000000001.yaml"))
	assert.True(t, IsNoteFile("sub/slug1-0000000000000001.yaml"))
	assert.False(t, IsNoteFile(""))
	assert.False(t, IsNoteFile("README.rst"))
	assert.False(t, IsNoteFile("note.yml"))
}

func TestNewUniqueID(t *testing.T) {
	uid := NewUniqueID()
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{16}$`), uid)
	assert.NotEqual(t, uid, NewUniqueID())
}

func TestCreate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "releasenotes", "notes")

	filename, err := Create(dir, "Add Scanner")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`add-scanner-[0-9a-f]{16}\.yaml$`), filename)

	data, err := os.ReadFile(filename)
	require.NoError(t, err)
	assert.Contains(t, string(data), "features:")

	_, err = Create(dir, "   ")
	assert.Error(t, err)
}
