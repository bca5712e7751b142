package change

import (
	"fmt"
	"sort"

	"relnotes/internal/notes"
)

// ErrInconsistentChanges marks a combination of raw changes for one note
// identifier that the aggregator cannot reconcile. It indicates a broken
// assumption about the repository shape, not a user error.
var ErrInconsistentChanges = fmt.Errorf("inconsistent changes for note id")

// Aggregate collapses the raw changes of one commit into identifier-keyed
// records.
//
// True rename detection is not available, so a rename is inferred when one
// add and one delete share the identifier embedded in the filename. If
// someone changes that part of the filename they want the file treated as
// a different note. A group of modify entries happens on merge commits
// that touch the same file relative to several parents; each entry is kept
// and tagged with the merge commit.
func Aggregate(commitID string, raw []Raw) ([]Record, error) {
	byUID := make(map[string][]Raw)
	for _, r := range raw {
		uid := notes.UniqueID(r.Path)
		byUID[uid] = append(byUID[uid], r)
	}

	uids := make([]string, 0, len(byUID))
	for uid := range byUID {
		uids = append(uids, uid)
	}
	sort.Strings(uids)

	var results []Record
	for _, uid := range uids {
		group := byUID[uid]
		if len(group) == 1 {
			results = append(results, Record{
				UID:    uid,
				Op:     group[0].Op,
				Path:   group[0].Path,
				Commit: commitID,
			})
			continue
		}

		var adds, dels, mods []Raw
		for _, r := range group {
			switch r.Op {
			case OpAdd:
				adds = append(adds, r)
			case OpDelete:
				dels = append(dels, r)
			case OpModify:
				mods = append(mods, r)
			default:
				return nil, fmt.Errorf("%w %s: unhandled op %s", ErrInconsistentChanges, uid, r.Op)
			}
		}

		switch {
		case len(adds) == 1 && len(dels) == 1 && len(mods) == 0:
			// A rename: combine the data from the add and delete entries.
			results = append(results, Record{
				UID:     uid,
				Op:      OpRename,
				OldPath: dels[0].Path,
				Path:    adds[0].Path,
				Commit:  commitID,
			})
		case len(mods) == len(group):
			// Merge commit with modifications to the same file relative
			// to different parents.
			for _, r := range mods {
				results = append(results, Record{
					UID:    uid,
					Op:     OpModify,
					Path:   r.Path,
					Commit: commitID,
				})
			}
		default:
			return nil, fmt.Errorf("%w %s: %d adds, %d deletes, %d modifies",
				ErrInconsistentChanges, uid, len(adds), len(dels), len(mods))
		}
	}
	return results, nil
}
