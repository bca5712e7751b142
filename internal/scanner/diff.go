package scanner

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"
	"go.uber.org/zap"

	"relnotes/internal/change"
	"relnotes/internal/notes"
)

// changesInSubdir computes the raw note-file changes a commit makes inside
// the notes directory. Paths in the result are relative to that directory.
//
// Passing the subdirectory to a path-limited walker would not work here:
// every commit has to be visited in sequence so tag transitions are seen,
// including commits that touch no note files. Restricting the tree diff to
// the subtree keeps that walk cheap.
func (s *Scanner) changesInSubdir(commit *object.Commit) ([]change.Raw, error) {
	subtree, err := s.repo.Subtree(commit, s.conf.NotesPath)
	if err != nil {
		return nil, err
	}

	switch len(commit.ParentHashes) {
	case 0:
		// Root commit: everything in the subtree is an add.
		return s.diffSubtrees(nil, subtree)

	case 1:
		parent, err := s.repo.Commit(commit.ParentHashes[0])
		if err != nil {
			return nil, err
		}
		parentSubtree, err := s.repo.Subtree(parent, s.conf.NotesPath)
		if err != nil {
			return nil, err
		}
		if treeHash(parentSubtree) == treeHash(subtree) {
			// Identical subtree, skip the diff entirely. Most commits in a
			// large repository never touch the notes directory.
			return nil, nil
		}
		return s.diffSubtrees(parentSubtree, subtree)

	default:
		return s.mergeChanges(commit, subtree)
	}
}

// mergeChanges diffs a merge commit's subtree against each parent that has
// the notes directory. A path only surfaces if it differs from every such
// parent: anything matching a parent was carried in by the merge, not
// created by it, and is seen when the merged branch's own commits are
// scanned. Identical per-parent entries collapse to one, so a note file
// introduced purely by the merge resolution appears as a single add.
func (s *Scanner) mergeChanges(commit *object.Commit, subtree *object.Tree) ([]change.Raw, error) {
	var parentSubtrees []*object.Tree
	for _, hash := range commit.ParentHashes {
		parent, err := s.repo.Commit(hash)
		if err != nil {
			return nil, err
		}
		parentSubtree, err := s.repo.Subtree(parent, s.conf.NotesPath)
		if err != nil {
			return nil, err
		}
		if parentSubtree != nil {
			parentSubtrees = append(parentSubtrees, parentSubtree)
		}
	}
	if len(parentSubtrees) == 0 {
		return nil, nil
	}

	type entry struct {
		raw  change.Raw
		blob plumbing.Hash
	}
	perPath := make(map[string][]entry)
	var paths []string
	for _, parentSubtree := range parentSubtrees {
		raws, blobs, err := s.rawDiff(parentSubtree, subtree)
		if err != nil {
			return nil, err
		}
		for i, raw := range raws {
			if _, ok := perPath[raw.Path]; !ok {
				paths = append(paths, raw.Path)
			}
			perPath[raw.Path] = append(perPath[raw.Path], entry{raw, blobs[i]})
		}
	}

	var results []change.Raw
	for _, p := range paths {
		entries := perPath[p]
		if len(entries) < len(parentSubtrees) {
			// At least one parent already had this exact content.
			continue
		}
		seen := make(map[entry]bool, len(entries))
		for _, e := range entries {
			if seen[e] {
				continue
			}
			seen[e] = true
			results = append(results, e.raw)
		}
	}
	return s.filterNoteFiles(results), nil
}

// diffSubtrees returns the note-file changes between two subtrees, either
// of which may be nil to represent an absent directory.
func (s *Scanner) diffSubtrees(from, to *object.Tree) ([]change.Raw, error) {
	raws, _, err := s.rawDiff(from, to)
	if err != nil {
		return nil, err
	}
	return s.filterNoteFiles(raws), nil
}

func (s *Scanner) rawDiff(from, to *object.Tree) ([]change.Raw, []plumbing.Hash, error) {
	diff, err := object.DiffTree(from, to)
	if err != nil {
		return nil, nil, fmt.Errorf("diffing trees: %w", err)
	}

	var raws []change.Raw
	var blobs []plumbing.Hash
	for _, c := range diff {
		action, err := c.Action()
		if err != nil {
			return nil, nil, fmt.Errorf("classifying change: %w", err)
		}
		switch action {
		case merkletrie.Insert:
			raws = append(raws, change.Raw{Op: change.OpAdd, Path: c.To.Name})
			blobs = append(blobs, c.To.TreeEntry.Hash)
		case merkletrie.Delete:
			raws = append(raws, change.Raw{Op: change.OpDelete, Path: c.From.Name})
			blobs = append(blobs, c.From.TreeEntry.Hash)
		case merkletrie.Modify:
			raws = append(raws, change.Raw{Op: change.OpModify, Path: c.To.Name})
			blobs = append(blobs, c.To.TreeEntry.Hash)
		default:
			return nil, nil, fmt.Errorf("unhandled change action %v for %s", action, c.To.Name)
		}
	}
	return raws, blobs, nil
}

// filterNoteFiles drops anything that does not look like a note file.
func (s *Scanner) filterNoteFiles(raws []change.Raw) []change.Raw {
	results := raws[:0]
	for _, raw := range raws {
		if notes.IsNoteFile(raw.Path) {
			results = append(results, raw)
			continue
		}
		s.logger.Warn("found and ignored extra file", zap.String("path", raw.Path))
	}
	return results
}

func treeHash(t *object.Tree) plumbing.Hash {
	if t == nil {
		return plumbing.ZeroHash
	}
	return t.Hash
}
