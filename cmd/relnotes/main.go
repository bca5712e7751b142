// cmd/relnotes/main.go
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"relnotes/internal/cache"
	"relnotes/internal/config"
	"relnotes/internal/logging"
	"relnotes/internal/notes"
	"relnotes/internal/report"
	"relnotes/internal/scanner"
)

var rootCmd = &cobra.Command{
	Use:   "relnotes",
	Short: "Relnotes manages release notes recorded in git history",
	Long: `Relnotes maps the YAML release-note files committed to a repository to the
release versions in which they first appeared, following tags, merges,
renames and deletions, and renders reports from that mapping.`,
}

func buildConfig(cmd *cobra.Command) (*config.Config, *logging.Logger, error) {
	reporoot, _ := cmd.Flags().GetString("reporoot")
	configFile, _ := cmd.Flags().GetString("config")

	var conf *config.Config
	var err error
	if configFile != "" {
		conf, err = config.Load(reporoot, configFile)
		if err != nil {
			return nil, nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		conf = config.New(reporoot)
	}

	if cmd.Flags().Changed("notesdir") {
		conf.NotesPath, _ = cmd.Flags().GetString("notesdir")
	}
	if cmd.Flags().Changed("branch") {
		conf.Branch, _ = cmd.Flags().GetString("branch")
	}
	if cmd.Flags().Changed("earliest-version") {
		conf.EarliestVersion, _ = cmd.Flags().GetString("earliest-version")
	}
	if cmd.Flags().Changed("no-collapse-pre-releases") {
		conf.CollapsePreReleases = false
	}
	if cmd.Flags().Changed("no-stop-at-branch-base") {
		conf.StopAtBranchBase = false
	}
	if cmd.Flags().Changed("log-level") {
		conf.LogLevel, _ = cmd.Flags().GetString("log-level")
	}

	logger, err := logging.NewLogger(conf.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing logger: %w", err)
	}
	return conf, logger, nil
}

func init() {
	rootCmd.PersistentFlags().String("reporoot", ".", "path to the repository root")
	rootCmd.PersistentFlags().String("config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().String("notesdir", config.DefaultNotesPath, "notes directory relative to the repository root")
	rootCmd.PersistentFlags().String("branch", "", "branch to scan (default: current HEAD)")
	rootCmd.PersistentFlags().String("earliest-version", "", "stop the scan at this tag")
	rootCmd.PersistentFlags().Bool("no-collapse-pre-releases", false, "keep pre-release versions as separate buckets")
	rootCmd.PersistentFlags().Bool("no-stop-at-branch-base", false, "scan past the point where the branch left master")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")

	var listCmd = &cobra.Command{
		Use:   "list",
		Short: "List note files by version",
		Long:  `Scan the branch history and print each version with the note files that belong to it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, logger, err := buildConfig(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			s, err := scanner.New(conf, logger.WithBranch(conf.Branch))
			if err != nil {
				return err
			}
			history, err := s.NotesByVersion()
			if err != nil {
				return fmt.Errorf("scanning history: %w", err)
			}

			versionColor := color.New(color.FgCyan, color.Bold)
			for _, version := range history {
				versionColor.Println(version.Version)
				for _, note := range version.Notes {
					fmt.Printf("\t%s (%s)\n", note.Path, note.Commit[:8])
				}
			}
			return nil
		},
	}

	var reportCmd = &cobra.Command{
		Use:   "report",
		Short: "Render a release notes report",
		Long:  `Render the full release notes report for the scanned branch, using the scan cache when one exists.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			noCache, _ := cmd.Flags().GetBool("no-cache")
			conf, logger, err := buildConfig(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if !noCache {
				if _, err := os.Stat(filepath.Join(conf.RepoRoot, cache.Dir)); err == nil {
					store, err := cache.Open(conf.RepoRoot, logger.Logger)
					if err != nil {
						return err
					}
					defer store.Close()
					cached, err := store.Load(conf.Branch)
					if err != nil {
						return err
					}
					if cached != nil {
						return report.Render(os.Stdout, cached.Notes, report.FromCache(cached.FileContents))
					}
				}
			}

			s, err := scanner.New(conf, logger.WithBranch(conf.Branch))
			if err != nil {
				return err
			}
			history, err := s.NotesByVersion()
			if err != nil {
				return fmt.Errorf("scanning history: %w", err)
			}
			return report.Render(os.Stdout, history, report.FromScanner(s))
		},
	}
	reportCmd.Flags().Bool("no-cache", false, "ignore the scan cache")

	var newCmd = &cobra.Command{
		Use:   "new [slug]",
		Short: "Create a new note file",
		Long:  `Create a note file named <slug>-<unique id>.yaml in the notes directory, prefilled with the section template.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, logger, err := buildConfig(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			filename, err := notes.Create(filepath.Join(conf.RepoRoot, conf.NotesPath), args[0])
			if err != nil {
				return fmt.Errorf("creating note: %w", err)
			}
			fmt.Println("Created new notes file in", filename)
			return nil
		},
	}

	var cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Build the scan cache",
		Long:  `Scan the branch history, parse every note body at its owning commit, and store the result for later report builds.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, logger, err := buildConfig(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			s, err := scanner.New(conf, logger.WithBranch(conf.Branch))
			if err != nil {
				return err
			}
			db, err := cache.Build(s, logger.Logger)
			if err != nil {
				return fmt.Errorf("building cache: %w", err)
			}

			store, err := cache.Open(conf.RepoRoot, logger.Logger)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Save(conf.Branch, db); err != nil {
				return err
			}

			fmt.Println("Cached scan results for", len(db.Notes), "versions")
			return nil
		},
	}

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(cacheCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
