package scanner

import (
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// commitGraph is an arena of commit records addressed by hash, with the
// reverse child edges needed by the linearizer. Parent references stay
// hashes, never pointers.
type commitGraph struct {
	commits  map[plumbing.Hash]*object.Commit
	children map[plumbing.Hash][]plumbing.Hash
}

// buildGraph records every commit reachable from head along with its
// children. Traversal uses an explicit worklist so stack depth stays
// bounded regardless of history length.
func (s *Scanner) buildGraph(head plumbing.Hash) (*commitGraph, error) {
	g := &commitGraph{
		commits:  make(map[plumbing.Hash]*object.Commit),
		children: make(map[plumbing.Hash][]plumbing.Hash),
	}

	queue := []plumbing.Hash{head}
	for len(queue) > 0 {
		hash := queue[0]
		queue = queue[1:]
		if _, ok := g.commits[hash]; ok {
			continue
		}
		commit, err := s.repo.Commit(hash)
		if err != nil {
			return nil, err
		}
		g.commits[hash] = commit
		for _, parent := range commit.ParentHashes {
			g.children[parent] = append(g.children[parent], hash)
			queue = append(queue, parent)
		}
	}
	return g, nil
}

// linearize produces the commits reachable from head in a deterministic,
// merge-aware order: a branch merged into the mainline is emitted fully,
// including its own tagged commits, before the mainline commits that
// precede the merge. Library-default topological or chronological orders
// can place a merged branch's tags out of sequence, which would attribute
// notes to the wrong version.
//
//	*   d1239b6 (HEAD -> master) Merge branch 'new-branch'
//	|\
//	| * 9478612 (new-branch) one commit on branch
//	* | 303e21d second commit on master
//	* | 0ba5186 first commit on master
//	|/
//	*   a7f573d original commit on master
func (s *Scanner) linearize(head plumbing.Hash) ([]*object.Commit, error) {
	g, err := s.buildGraph(head)
	if err != nil {
		return nil, err
	}

	emitted := make(map[plumbing.Hash]bool, len(g.commits))
	queued := map[plumbing.Hash]bool{head: true}
	stack := []plumbing.Hash{head}
	order := make([]*object.Commit, 0, len(g.commits))

	for len(stack) > 0 {
		hash := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		delete(queued, hash)

		// A commit with an unemitted child is the start point of a branch
		// that was merged back in. Defer it: it gets re-stacked when the
		// remaining child is emitted, after the merged branch has been
		// fully drained.
		pending := false
		for _, child := range g.children[hash] {
			if !emitted[child] {
				pending = true
				break
			}
		}
		if pending {
			continue
		}

		emitted[hash] = true
		order = append(order, g.commits[hash])

		// Push parents in the listed order so the last-pushed, non-mainline
		// parent pops first and the merged branch is descended before the
		// mainline parent.
		for _, parent := range g.commits[hash].ParentHashes {
			if !queued[parent] {
				stack = append(stack, parent)
				queued[parent] = true
			}
		}
	}
	return order, nil
}
