// Package cache persists scan results so report builds do not have to
// rescan tens of thousands of commits. One record is kept per branch,
// stored as zstd-compressed JSON in a badger database under the
// repository root.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"relnotes/internal/scanner"
)

// Dir is the cache location relative to the repository root.
const Dir = ".relnotes"

const keyPrefix = "scan"

// DB is one cached scan: the version mapping plus the parsed body of
// every note file, read at its owning commit.
type DB struct {
	Notes        []scanner.VersionNotes    `json:"notes"`
	FileContents map[string]map[string]any `json:"file-contents"`
}

// Store reads and writes cached scans.
type Store struct {
	db     *badger.DB
	enc    *zstd.Encoder
	dec    *zstd.Decoder
	logger *zap.Logger
}

func Open(reporoot string, logger *zap.Logger) (*Store, error) {
	opts := badger.DefaultOptions(filepath.Join(reporoot, Dir))
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating decoder: %w", err)
	}
	return &Store{db: db, enc: enc, dec: dec, logger: logger}, nil
}

func (s *Store) Close() error {
	s.enc.Close()
	s.dec.Close()
	return s.db.Close()
}

func makeKey(branch string) []byte {
	if branch == "" {
		branch = "HEAD"
	}
	return []byte(fmt.Sprintf("%s:%s", keyPrefix, branch))
}

// Build scans the branch and assembles a cache record, parsing each note
// body at the commit that owns it. A note whose YAML fails to parse is
// kept with an empty body rather than failing the whole build.
func Build(s *scanner.Scanner, logger *zap.Logger) (*DB, error) {
	history, err := s.NotesByVersion()
	if err != nil {
		return nil, err
	}

	db := &DB{
		Notes:        history,
		FileContents: make(map[string]map[string]any),
	}
	for _, version := range history {
		for _, note := range version.Notes {
			body, err := s.FileAtCommit(note.Path, note.Commit)
			if err != nil {
				return nil, err
			}
			contents := make(map[string]any)
			if err := yaml.Unmarshal(body, &contents); err != nil {
				logger.Warn("could not parse note body",
					zap.String("path", note.Path),
					zap.String("commit", note.Commit),
					zap.Error(err))
				contents = map[string]any{}
			}
			db.FileContents[note.Path] = contents
		}
	}
	return db, nil
}

// Save stores the record for a branch, replacing any previous one.
func (s *Store) Save(branch string, db *DB) error {
	data, err := json.Marshal(db)
	if err != nil {
		return fmt.Errorf("marshaling cache record: %w", err)
	}
	compressed := s.enc.EncodeAll(data, nil)

	key := makeKey(branch)
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, compressed)
	})
	if err != nil {
		return fmt.Errorf("writing cache record: %w", err)
	}
	s.logger.Debug("saved scan cache",
		zap.ByteString("key", key),
		zap.Int("raw", len(data)),
		zap.Int("compressed", len(compressed)))
	return nil
}

// Load returns the cached record for a branch, or (nil, nil) when the
// branch has never been cached.
func (s *Store) Load(branch string) (*DB, error) {
	var compressed []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(makeKey(branch))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			compressed = append([]byte(nil), val...)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache record: %w", err)
	}

	data, err := s.dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing cache record: %w", err)
	}
	var db DB
	if err := json.Unmarshal(data, &db); err != nil {
		return nil, fmt.Errorf("unmarshaling cache record: %w", err)
	}
	return &db, nil
}
