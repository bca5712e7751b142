// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultNotesPath is where note files live relative to the repository root.
const DefaultNotesPath = "releasenotes/notes"

// Config carries the scan options. Zero values mean "use the default"
// except for the booleans, which New initializes to their documented
// defaults (both true).
type Config struct {
	// RepoRoot is the path to the root of the git repository.
	RepoRoot string `yaml:"repo_root"`

	// NotesPath is the subdirectory holding note files, relative to
	// RepoRoot.
	NotesPath string `yaml:"notes_path"`

	// Branch to scan. Empty means the current HEAD.
	Branch string `yaml:"branch"`

	// EarliestVersion stops the scan once this tag has been processed.
	// Empty means scan the full history.
	EarliestVersion string `yaml:"earliest_version"`

	// CollapsePreReleases folds alpha/beta/rc buckets into the final
	// release bucket when that release exists.
	CollapsePreReleases bool `yaml:"collapse_pre_releases"`

	// StopAtBranchBase stops scanning a non-master branch at the point
	// where it diverged from master.
	StopAtBranchBase bool `yaml:"stop_at_branch_base"`

	LogLevel string `yaml:"log_level"` // debug, info, warn, error
}

func New(reporoot string) *Config {
	return &Config{
		RepoRoot:            reporoot,
		NotesPath:           DefaultNotesPath,
		CollapsePreReleases: true,
		StopAtBranchBase:    true,
		LogLevel:            "warn",
	}
}

// Load reads overrides from a YAML file on top of the defaults.
func Load(reporoot, path string) (*Config, error) {
	config := New(reporoot)

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return config, nil
}

// Validate normalizes paths and rejects unusable option combinations.
func (c *Config) Validate() error {
	if c.RepoRoot == "" {
		return fmt.Errorf("repository root cannot be empty")
	}
	c.NotesPath = strings.Trim(strings.TrimSpace(c.NotesPath), "/")
	if c.NotesPath == "" {
		return fmt.Errorf("notes path cannot be empty")
	}
	return nil
}
