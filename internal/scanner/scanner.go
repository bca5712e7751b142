// Package scanner maps the release-note files of a repository to the
// versions in which they first became relevant. It walks the commit graph
// of one branch in a merge-aware order, aggregates per-commit note-file
// changes, and assigns each note to the earliest version that carried it.
package scanner

import (
	"errors"
	"fmt"
	"path"
	"sort"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"

	"relnotes/internal/change"
	"relnotes/internal/config"
	"relnotes/internal/gitrepo"
	"relnotes/internal/notes"
)

// ErrUnknownVersion is returned when the configured earliest version does
// not name a known tag.
var ErrUnknownVersion = errors.New("earliest-version set to unknown revision")

const mainline = "master"

type Scanner struct {
	conf   *config.Config
	repo   *gitrepo.Repo
	logger *zap.Logger
}

func New(conf *config.Config, logger *zap.Logger) (*Scanner, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	repo, err := gitrepo.Open(conf.RepoRoot, logger)
	if err != nil {
		return nil, err
	}
	return &Scanner{conf: conf, repo: repo, logger: logger}, nil
}

// FileAtCommit returns the committed bytes of filename at the given
// commit, or nil if it does not exist at that point in history.
func (s *Scanner) FileAtCommit(filename, sha string) ([]byte, error) {
	return s.repo.FileAtCommit(filename, plumbing.NewHash(sha))
}

// tagsOnBranch returns the tag names reachable from the branch head in
// commit-date order, newest commit first.
func (s *Scanner) tagsOnBranch(branch string) ([]string, error) {
	head, err := s.repo.ResolveRef(branch)
	if err != nil {
		return nil, err
	}
	commit, err := s.repo.Commit(head)
	if err != nil {
		return nil, err
	}

	var results []string
	iter := object.NewCommitIterCTime(commit, nil, nil)
	defer iter.Close()
	err = iter.ForEach(func(c *object.Commit) error {
		tags, err := s.repo.TagsOnCommit(c.Hash)
		if err != nil {
			return err
		}
		results = append(results, tags...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking branch %q: %w", branch, err)
	}
	return results, nil
}

// currentVersion reports the version of the branch head the way
// git-describe would: the nearest tag on the first-parent chain, with a
// -<distance> suffix when the head itself is untagged.
func (s *Scanner) currentVersion(branch string) (string, error) {
	hash, err := s.repo.ResolveRef(branch)
	if err != nil {
		return "", err
	}
	count := 0
	for {
		tags, err := s.repo.TagsOnCommit(hash)
		if err != nil {
			return "", err
		}
		if len(tags) > 0 {
			if count > 0 {
				return fmt.Sprintf("%s-%d", tags[len(tags)-1], count), nil
			}
			return tags[len(tags)-1], nil
		}
		commit, err := s.repo.Commit(hash)
		if err != nil {
			return "", err
		}
		if len(commit.ParentHashes) == 0 {
			return "0.0.0", nil
		}
		// Only traverse the first parent of each node.
		hash = commit.ParentHashes[0]
		count++
	}
}

// branchBase finds the tag at the commit where branch diverged from the
// mainline: the first commit of the branch walk that is also reachable
// from the mainline head. The result is empty when that commit carries no
// tag.
func (s *Scanner) branchBase(branch string) (string, error) {
	masterHead, err := s.repo.ResolveRef(mainline)
	if err != nil {
		return "", err
	}
	masterGraph, err := s.buildGraph(masterHead)
	if err != nil {
		return "", err
	}

	branchHead, err := s.repo.ResolveRef(branch)
	if err != nil {
		return "", err
	}
	order, err := s.linearize(branchHead)
	if err != nil {
		return "", err
	}
	for _, commit := range order {
		if _, ok := masterGraph.commits[commit.Hash]; !ok {
			continue
		}
		// We got to this commit via the branch, but it is also on the
		// mainline, so this is the base.
		tags, err := s.repo.TagsOnCommit(commit.Hash)
		if err != nil {
			return "", err
		}
		if len(tags) == 0 {
			return "", nil
		}
		return tags[len(tags)-1], nil
	}
	return "", nil
}

// NotesByVersion scans the configured branch and returns the ordered
// mapping from version label to note files, most recent version first.
// Notes are associated with the earliest version for which they were
// available, regardless of later edits or renames.
func (s *Scanner) NotesByVersion() (History, error) {
	conf := s.conf
	branch := conf.Branch
	logger := s.logger

	logger.Info("scanning",
		zap.String("reporoot", conf.RepoRoot),
		zap.String("notesdir", conf.NotesPath))

	// All tags known on the branch, in date order. The scan itself runs in
	// topological order, so tags may be encountered in a different order
	// there.
	versionsByDate, err := s.tagsOnBranch(branch)
	if err != nil {
		return nil, err
	}
	earliestVersion := conf.EarliestVersion
	if earliestVersion != "" && !contains(versionsByDate, earliestVersion) {
		return nil, fmt.Errorf("%w %q", ErrUnknownVersion, earliestVersion)
	}

	// If the user has not told us where to stop, work it out from where
	// the branch left the mainline.
	branchBaseTag := earliestVersion
	if conf.StopAtBranchBase && earliestVersion == "" && branch != "" && branch != mainline {
		logger.Debug("determining earliest version from branch")
		base, err := s.branchBase(branch)
		if err != nil {
			return nil, err
		}
		earliestVersion = base
		branchBaseTag = base
		if earliestVersion != "" && conf.CollapsePreReleases && isPreRelease(earliestVersion) {
			// The branch was cut from a pre-release tag, but its notes
			// belong to the final version, so stop at that instead.
			earliestVersion = stripLastSegment(earliestVersion)
		}
	}
	if earliestVersion != "" {
		logger.Info("earliest version to include", zap.String("version", earliestVersion))
	} else {
		logger.Info("including entire branch history")
	}
	if branchBaseTag != "" {
		logger.Info("stopping scan at tag", zap.String("tag", branchBaseTag))
	}

	// The version currently in effect, possibly an unreleased dev version
	// when there are commits after the last tag. It may not be tagged yet,
	// so make sure it is part of the known version list.
	currentVersion, err := s.currentVersion(branch)
	if err != nil {
		return nil, err
	}
	logger.Debug("current repository version", zap.String("version", currentVersion))
	if !contains(versionsByDate, currentVersion) {
		versionsByDate = append([]string{currentVersion}, versionsByDate...)
	}

	var versions []string
	versionsSeen := make(map[string]bool)
	// Last overwrite wins: the scan runs newest to oldest, so the final
	// value recorded for an id is its true earliest version.
	earliestSeen := make(map[string]string)
	// Most current filename for each id, to follow renames. Deleted files
	// are never stored here.
	lastNameByID := make(map[string]NoteRef)
	deletedIDs := make(map[string]bool)

	head, err := s.repo.ResolveRef(branch)
	if err != nil {
		return nil, err
	}
	order, err := s.linearize(head)
	if err != nil {
		return nil, err
	}

	counter := 0
	for _, commit := range order {
		counter++
		sha := commit.Hash.String()
		tagsOnCommit, err := s.repo.TagsOnCommit(commit.Hash)
		if err != nil {
			return nil, err
		}
		logger.Debug("visiting commit",
			zap.Int("counter", counter),
			zap.String("sha", sha),
			zap.Strings("tags", tagsOnCommit))

		// An untagged commit belongs to the most recently seen version.
		tags := tagsOnCommit
		if len(tags) == 0 {
			tags = []string{currentVersion}
		} else {
			currentVersion = tagsOnCommit[len(tagsOnCommit)-1]
			logger.Info("updating current version",
				zap.String("sha", sha),
				zap.String("version", currentVersion))
		}
		if !versionsSeen[currentVersion] {
			versionsSeen[currentVersion] = true
			versions = append(versions, currentVersion)
		}

		raw, err := s.changesInSubdir(commit)
		if err != nil {
			return nil, err
		}
		records, err := change.Aggregate(sha, raw)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			// Overwrite on every sighting; see earliestSeen above.
			earliestSeen[rec.UID] = currentVersion

			// A recorded delete was the last change made to the file, so
			// anything older is irrelevant.
			if deletedIDs[rec.UID] {
				logger.Debug("id already deleted, ignoring change", zap.String("uid", rec.UID))
				continue
			}

			switch rec.Op {
			case change.OpAdd, change.OpRename, change.OpModify:
				// Older sightings are not more authoritative about the
				// current name, so first-seen wins.
				if _, ok := lastNameByID[rec.UID]; !ok {
					lastNameByID[rec.UID] = NoteRef{
						Path:   path.Join(conf.NotesPath, rec.Path),
						Commit: rec.Commit,
					}
					logger.Debug("recorded current path",
						zap.String("uid", rec.UID),
						zap.String("path", rec.Path),
						zap.String("sha", rec.Commit))
				}
			case change.OpDelete:
				// If the id is already known, a newer commit re-added the
				// file after this delete, so the note survives.
				if _, ok := lastNameByID[rec.UID]; !ok {
					deletedIDs[rec.UID] = true
					logger.Debug("note deleted", zap.String("uid", rec.UID), zap.String("sha", sha))
				}
			default:
				return nil, fmt.Errorf("%w %s: unhandled op %s",
					change.ErrInconsistentChanges, rec.UID, rec.Op)
			}
		}

		if branchBaseTag != "" && contains(tags, branchBaseTag) {
			logger.Info("reached end of branch", zap.Int("commits", counter))
			break
		}
	}

	// Invert earliestSeen into per-version buckets, keeping only ids whose
	// file still exists.
	filesAndTags := make(map[string][]NoteRef, len(versions))
	for _, v := range versions {
		filesAndTags[v] = nil
	}
	for _, uid := range sortedKeys(earliestSeen) {
		version := earliestSeen[uid]
		ref, ok := lastNameByID[uid]
		if !ok {
			logger.Warn("unable to find release notes file associated with unique id, skipping",
				zap.String("uid", uid))
			continue
		}
		filesAndTags[version] = append(filesAndTags[version], ref)
	}

	if conf.CollapsePreReleases {
		filesAndTags = collapsePreReleases(filesAndTags, versionsByDate, logger)
	}

	// Keep only versions that have notes, sort each bucket by note id so
	// repeated scans produce identical output, and truncate at the stop
	// boundary.
	var trimmed History
	for _, v := range versionsByDate {
		entries := filesAndTags[v]
		if len(entries) == 0 {
			continue
		}
		sort.Slice(entries, func(i, j int) bool {
			a, b := notes.UniqueID(entries[i].Path), notes.UniqueID(entries[j].Path)
			if a != b {
				return a < b
			}
			return entries[i].Path < entries[j].Path
		})
		trimmed = append(trimmed, VersionNotes{Version: v, Notes: entries})
		if earliestVersion != "" && v == earliestVersion {
			break
		}
	}

	total := 0
	for _, v := range trimmed {
		total += len(v.Notes)
	}
	logger.Debug("scan finished", zap.Int("versions", len(trimmed)), zap.Int("files", total))
	return trimmed, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
