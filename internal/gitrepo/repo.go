// Package gitrepo provides read-only access to the objects of a git
// repository: refs, tags, commits, trees and blobs. It never mutates the
// repository and never observes uncommitted working-tree state.
package gitrepo

import (
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

var ErrUnknownReference = errors.New("unknown reference")

const (
	commitCacheSize = 4096
	blobCacheSize   = 512
)

// Repo wraps a git repository with the lookups the scanner needs. The tag
// index is built lazily on first use and is read-only afterwards; a Repo
// must not be shared across concurrent scans.
type Repo struct {
	gitRepo *git.Repository
	logger  *zap.Logger

	tags    *tagIndex
	commits *lru.Cache[plumbing.Hash, *object.Commit]
	blobs   *lru.Cache[string, []byte]
}

func Open(root string, logger *zap.Logger) (*Repo, error) {
	gitRepo, err := git.PlainOpen(root)
	if err != nil {
		return nil, fmt.Errorf("opening repository %s: %w", root, err)
	}

	commits, err := lru.New[plumbing.Hash, *object.Commit](commitCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating commit cache: %w", err)
	}
	blobs, err := lru.New[string, []byte](blobCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating blob cache: %w", err)
	}

	return &Repo{
		gitRepo: gitRepo,
		logger:  logger,
		commits: commits,
		blobs:   blobs,
	}, nil
}

// ResolveRef resolves a branch or tag name to the commit it points at.
// Candidates are tried in order: local branch, remote-tracking branch,
// tag, and the end-of-life tag left behind when a stable branch is
// removed. An empty name resolves the current HEAD.
func (r *Repo) ResolveRef(name string) (plumbing.Hash, error) {
	if name == "" {
		head, err := r.gitRepo.Head()
		if err != nil {
			return plumbing.ZeroHash, fmt.Errorf("resolving HEAD: %w", err)
		}
		return head.Hash(), nil
	}

	candidates := []plumbing.ReferenceName{
		plumbing.NewBranchReferenceName(name),
		plumbing.ReferenceName("refs/remotes/" + name),
		plumbing.NewTagReferenceName(name),
		plumbing.NewTagReferenceName(path.Base(name) + "-eol"),
	}
	for _, candidate := range candidates {
		ref, err := r.gitRepo.Reference(candidate, true)
		if err != nil {
			continue
		}
		hash := ref.Hash()
		// Branches point directly to commits, but annotated tags point
		// at a tag object that has to be dereferenced.
		if tag, err := r.gitRepo.TagObject(hash); err == nil {
			commit, err := tag.Commit()
			if err != nil {
				return plumbing.ZeroHash, fmt.Errorf("dereferencing tag %s: %w", name, err)
			}
			hash = commit.Hash
		}
		return hash, nil
	}
	return plumbing.ZeroHash, fmt.Errorf("%w: %q", ErrUnknownReference, name)
}

// Commit loads a commit through the instance cache.
func (r *Repo) Commit(hash plumbing.Hash) (*object.Commit, error) {
	if commit, ok := r.commits.Get(hash); ok {
		return commit, nil
	}
	commit, err := r.gitRepo.CommitObject(hash)
	if err != nil {
		return nil, fmt.Errorf("loading commit %s: %w", hash, err)
	}
	r.commits.Add(hash, commit)
	return commit, nil
}

// Subtree descends the path components below the commit's root tree and
// returns the subtree, or nil if any component is missing. A missing
// subtree is not an error: it represents a subdirectory that does not
// exist at this point in history.
func (r *Repo) Subtree(commit *object.Commit, dir string) (*object.Tree, error) {
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("loading tree of %s: %w", commit.Hash, err)
	}
	if dir == "" {
		return tree, nil
	}
	subtree, err := tree.Tree(dir)
	if err != nil {
		if errors.Is(err, object.ErrDirectoryNotFound) || errors.Is(err, object.ErrEntryNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding subtree %s at %s: %w", dir, commit.Hash, err)
	}
	return subtree, nil
}

// FileAtCommit returns the committed bytes of filename at the given
// commit, or nil if the file does not exist at that point in history.
func (r *Repo) FileAtCommit(filename string, hash plumbing.Hash) ([]byte, error) {
	key := filename + "@" + hash.String()
	if data, ok := r.blobs.Get(key); ok {
		return data, nil
	}

	commit, err := r.Commit(hash)
	if err != nil {
		return nil, err
	}
	file, err := commit.File(filename)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding %s at %s: %w", filename, hash, err)
	}

	reader, err := file.Reader()
	if err != nil {
		return nil, fmt.Errorf("reading %s at %s: %w", filename, hash, err)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading %s at %s: %w", filename, hash, err)
	}

	r.blobs.Add(key, data)
	return data, nil
}
