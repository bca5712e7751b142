package gitrepo

import (
	"fmt"
	"sort"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"go.uber.org/zap"
)

type tagRef struct {
	Name string
	When time.Time
}

// tagIndex maps commits to the tags placed on them. Built once per Repo
// and read-only afterwards.
type tagIndex struct {
	byCommit map[plumbing.Hash][]tagRef
}

func (r *Repo) loadTags() (*tagIndex, error) {
	if r.tags != nil {
		return r.tags, nil
	}

	iter, err := r.gitRepo.Tags()
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}

	type namedRef struct {
		name string
		hash plumbing.Hash
	}
	var refs []namedRef
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		refs = append(refs, namedRef{ref.Name().Short(), ref.Hash()})
		return nil
	})
	if err != nil && err != storer.ErrStop {
		return nil, fmt.Errorf("iterating tags: %w", err)
	}
	// Ref iteration order is storage dependent; fix it by name so that
	// ties in the timestamp sort below stay deterministic.
	sort.Slice(refs, func(i, j int) bool { return refs[i].name < refs[j].name })

	idx := &tagIndex{
		byCommit: make(map[plumbing.Hash][]tagRef),
	}
	for _, ref := range refs {
		target := ref.hash
		if tag, err := r.gitRepo.TagObject(ref.hash); err == nil {
			// An annotated or signed tag has its own hash; the scanner
			// will see the target commit's hash on the branch, so index
			// under that.
			commit, err := tag.Commit()
			if err != nil {
				return nil, fmt.Errorf("unrecognized tag object %s (%s): %w", ref.name, ref.hash, err)
			}
			target = commit.Hash
		}
		commit, err := r.Commit(target)
		if err != nil {
			return nil, fmt.Errorf("unrecognized tag target for %s: %w", ref.name, err)
		}
		// Ordering uses the commit's own timestamp, not the tag's, so
		// annotated and lightweight tags on one commit order the same
		// way regardless of when the tag object was created.
		idx.byCommit[commit.Hash] = append(idx.byCommit[commit.Hash], tagRef{ref.name, commit.Committer.When})
	}

	for _, tags := range idx.byCommit {
		sort.SliceStable(tags, func(i, j int) bool { return tags[i].When.Before(tags[j].When) })
	}

	r.logger.Debug("loaded tag index", zap.Int("tags", len(refs)))
	r.tags = idx
	return idx, nil
}

// TagsOnCommit returns the tag names on a commit in application order,
// oldest first. The result is empty for untagged commits.
func (r *Repo) TagsOnCommit(hash plumbing.Hash) ([]string, error) {
	idx, err := r.loadTags()
	if err != nil {
		return nil, err
	}
	tags := idx.byCommit[hash]
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.Name
	}
	return names, nil
}
