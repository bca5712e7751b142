// internal/change/types.go
package change

import "fmt"

// Op is the closed set of operations a change can describe.
type Op int

const (
	OpAdd Op = iota
	OpDelete
	OpModify
	OpRename
)

func (o Op) String() string {
	switch o {
	case OpAdd:
		return "add"
	case OpDelete:
		return "delete"
	case OpModify:
		return "modify"
	case OpRename:
		return "rename"
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// Raw is a single tree-diff entry for one commit, scoped to the notes
// directory. Path is relative to that directory; for a delete it is the
// path that disappeared.
type Raw struct {
	Op   Op
	Path string
}

// Record is an aggregated, identifier-keyed change. OldPath is set only
// for renames. Commit is the hash of the commit the change belongs to,
// never a blob hash.
type Record struct {
	UID     string
	Op      Op
	OldPath string
	Path    string
	Commit  string
}
