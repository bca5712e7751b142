package scanner

// NoteRef locates one note file: its path relative to the repository root
// and the commit that owns the current copy.
type NoteRef struct {
	Path   string `json:"path" yaml:"path"`
	Commit string `json:"commit" yaml:"commit"`
}

// VersionNotes is the bucket of notes attributed to one release version.
type VersionNotes struct {
	Version string    `json:"version" yaml:"version"`
	Notes   []NoteRef `json:"files" yaml:"files"`
}

// History is the scan result: version buckets ordered most recent first.
type History []VersionNotes
