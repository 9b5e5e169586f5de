// Command td is a command-line task tracker. Tasks live in a repository
// directory whose every change is recorded in a change log.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taskdepot/td/internal/config"
	"github.com/taskdepot/td/internal/logging"
	"github.com/taskdepot/td/internal/repo"
)

var (
	configPath string
	repoPath   string
	verbose    bool

	cfg    *config.Config
	logger *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "td [filter...]",
	Short: "Track tasks in a versioned repository",
	Long: `td keeps tasks as one JSON record each in a repository directory and
records every change in the repository's change log.

Run without a command, td shows the "` + config.DefaultReport + `" report, restricted by
any filter given, e.g.

  td +work and not flag:blocked`,
	Args:          cobra.ArbitraryArgs,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if repoPath != "" {
			cfg.RepoPath = repoPath
		}

		var err error
		logger, err = logging.New(logging.Options{
			File:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			Verbose:    verbose,
		})
		if err != nil {
			fatalf("failed to set up logging: %v", err)
		}
		logger.Printf("running %s (config: %q)", cmd.CommandPath(), cfg.Path())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Close()
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(runReport(cmd.OutOrStdout(), config.DefaultReport, args))
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "tasks", Title: "Working With Tasks:"},
		&cobra.Group{ID: "reports", Title: "Reports:"},
		&cobra.Group{ID: "repo", Title: "Repository:"},
	)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/td/config.toml)")
	rootCmd.PersistentFlags().StringVarP(&repoPath, "repo", "R", "", "Repository path (overrides repo_path)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log diagnostics to stderr")
}

func main() {
	var err error
	cfg, err = config.Load(configFlagValue(os.Args[1:]))
	if err != nil {
		fatalf("%v", err)
	}

	// Reports come from the config, so it has to be read before the
	// command tree is complete.
	addReportCommands(cfg)

	if err := rootCmd.Execute(); err != nil {
		fatalf("%v", err)
	}
}

// configFlagValue finds --config ahead of cobra's own flag parsing.
func configFlagValue(args []string) string {
	for i, arg := range args {
		if arg == "--" {
			break
		}
		if v, ok := strings.CutPrefix(arg, "--config="); ok {
			return v
		}
		if arg == "--config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// exitOnError reports err, with a hint for the repository states a user
// has to resolve by hand.
func exitOnError(err error) {
	if err == nil {
		return
	}

	var unsupported *repo.UnsupportedVersionError
	switch {
	case errors.Is(err, repo.ErrDirtyState):
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintf(os.Stderr, "Hint: a previous command did not finish; inspect %s and commit or discard the changes\n", cfg.RepoPath)
		os.Exit(1)
	case errors.As(err, &unsupported):
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintf(os.Stderr, "Hint: this repository was written by a newer td\n")
		os.Exit(1)
	}
	fatalf("%v", err)
}

// openRepo opens the configured repository.
func openRepo() (*repo.Repository, error) {
	r, err := repo.Open(cfg.RepoPath,
		repo.WithLogger(logger.Logger),
		repo.WithUrgency(cfg.UrgencyFactors()),
	)
	if err != nil {
		var corrupt *repo.RepositoryCorruptError
		if errors.As(err, &corrupt) {
			if _, statErr := os.Stat(cfg.RepoPath); errors.Is(statErr, os.ErrNotExist) {
				return nil, fmt.Errorf("no repository at %s (run 'td init' first)", cfg.RepoPath)
			}
		}
		return nil, err
	}
	return r, nil
}

// loadState opens the repository and loads a snapshot. The caller closes
// the repository.
func loadState() (*repo.Repository, *repo.State, error) {
	r, err := openRepo()
	if err != nil {
		return nil, nil, err
	}
	state, err := r.Load()
	if err != nil {
		r.Close()
		return nil, nil, err
	}
	return r, state, nil
}
