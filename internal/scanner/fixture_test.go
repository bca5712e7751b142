package scanner

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"relnotes/internal/config"
)

// repoFixture drives a real git binary to build repositories with the
// exact shapes the scanner has to handle (merges, annotated tags, moved
// files). Commit timestamps are pinned and strictly increasing so tag
// ordering is deterministic.
type repoFixture struct {
	t     *testing.T
	root  string
	clock time.Time
	seq   int
}

func newRepoFixture(t *testing.T) *repoFixture {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
	f := &repoFixture{
		t:     t,
		root:  filepath.Join(t.TempDir(), "reporoot"),
		clock: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, os.MkdirAll(f.root, 0755))
	f.git("init", ".")
	f.git("symbolic-ref", "HEAD", "refs/heads/master")
	f.git("config", "--local", "user.email", "dev@example.com")
	f.git("config", "--local", "user.name", "relnotes developer")
	f.git("config", "--local", "commit.gpgsign", "false")
	f.git("config", "--local", "tag.gpgsign", "false")
	return f
}

func (f *repoFixture) git(args ...string) string {
	f.t.Helper()
	f.clock = f.clock.Add(time.Minute)
	date := f.clock.Format(time.RFC3339)

	cmd := exec.Command("git", args...)
	cmd.Dir = f.root
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_DATE="+date,
		"GIT_COMMITTER_DATE="+date,
	)
	out, err := cmd.CombinedOutput()
	require.NoError(f.t, err, "git %v: %s", args, out)
	return strings.TrimSpace(string(out))
}

func (f *repoFixture) commit(message string) string {
	f.git("add", "-A", ".")
	f.git("commit", "--no-gpg-sign", "-m", message)
	return f.head()
}

func (f *repoFixture) head() string {
	return f.git("rev-parse", "HEAD")
}

// tag creates an annotated tag on HEAD.
func (f *repoFixture) tag(name string) {
	f.git("tag", "-a", "-m", name, name)
}

func (f *repoFixture) addFile(name string) string {
	path := filepath.Join(f.root, name)
	require.NoError(f.t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(f.t, os.WriteFile(path, []byte("adding "+name+"\n"), 0644))
	return f.commit("add " + name)
}

// addNote commits a new note file and returns its repo-relative path and
// the commit hash.
func (f *repoFixture) addNote(slug string) (string, string) {
	return f.writeNote(fmt.Sprintf("%s-%016x.yaml", slug, f.nextID()))
}

// addLegacyNote uses the older id-prefix naming convention.
func (f *repoFixture) addLegacyNote(slug string) (string, string) {
	return f.writeNote(fmt.Sprintf("%016x-%s.yaml", f.nextID(), slug))
}

func (f *repoFixture) nextID() int {
	f.seq++
	return f.seq
}

func (f *repoFixture) writeNote(basename string) (string, string) {
	rel := filepath.ToSlash(filepath.Join(config.DefaultNotesPath, basename))
	path := filepath.Join(f.root, config.DefaultNotesPath, basename)
	require.NoError(f.t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(f.t, os.WriteFile(path, []byte("features:\n  - added a thing\n"), 0644))
	sha := f.commit("add " + basename)
	return rel, sha
}

func (f *repoFixture) newScanner(mutate func(*config.Config)) *Scanner {
	f.t.Helper()
	conf := config.New(f.root)
	if mutate != nil {
		mutate(conf)
	}
	s, err := New(conf, zap.NewNop())
	require.NoError(f.t, err)
	return s
}

func (f *repoFixture) scan(mutate func(*config.Config)) (History, error) {
	return f.newScanner(mutate).NotesByVersion()
}

func (f *repoFixture) mustScan(mutate func(*config.Config)) History {
	f.t.Helper()
	history, err := f.scan(mutate)
	require.NoError(f.t, err)
	return history
}
