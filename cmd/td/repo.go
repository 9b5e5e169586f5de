package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/taskdepot/td/internal/config"
	"github.com/taskdepot/td/internal/repo"
	"github.com/taskdepot/td/internal/vcs"
	"github.com/taskdepot/td/internal/watch"
)

var initCmd = &cobra.Command{
	Use:     "init [path]",
	GroupID: "repo",
	Short:   "Create an empty repository",
	Long: `Create an empty task repository at path, or at repo_path from the
configuration. The directory must not exist or be empty.

The change log backend is the journal (a sqlite database under .td/)
unless --backend or changelog.backend says git.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := cfg.RepoPath
		if len(args) == 1 {
			path = args[0]
		}
		backend, _ := cmd.Flags().GetString("backend")
		if backend == "" {
			backend = cfg.ChangeLog.Backend
		}

		t, err := vcs.ParseType(backend)
		if err != nil {
			fatalf("%v", err)
		}

		r, err := repo.Init(path, repo.InitOptions{Backend: t}, repo.WithLogger(logger.Logger))
		if err != nil {
			fatalf("%v", err)
		}
		defer r.Close()

		fmt.Fprintf(cmd.OutOrStdout(), "Initialized empty td repository in %s (%s change log)\n", r.Root(), r.Backend())
	},
}

var checkCmd = &cobra.Command{
	Use:     "check",
	GroupID: "repo",
	Short:   "Verify the repository",
	Long: `Check that every record decodes, every pending entry names an existing
record exactly once, and pending dependencies exist and contain no cycle.
Exits with status 1 when a problem is found.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		r, err := openRepo()
		if err != nil {
			exitOnError(err)
		}
		defer r.Close()

		report, err := r.Check()
		if err != nil {
			exitOnError(err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%d records, %d pending\n", report.Records, report.Pending)
		if report.OK() {
			fmt.Fprintln(out, "No problems found.")
			return
		}
		for _, p := range report.Problems {
			fmt.Fprintln(out, p)
		}
		r.Close()
		fatalf("%d problem(s) found", len(report.Problems))
	},
}

var logCmd = &cobra.Command{
	Use:     "log",
	GroupID: "repo",
	Short:   "Show the change log",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		full, _ := cmd.Flags().GetBool("full")

		r, err := openRepo()
		if err != nil {
			exitOnError(err)
		}
		defer r.Close()

		commits, err := r.Log(limit)
		if err != nil {
			exitOnError(err)
		}
		writeLog(cmd.OutOrStdout(), commits, full)
	},
}

func writeLog(out io.Writer, commits []vcs.CommitInfo, full bool) {
	for _, c := range commits {
		id := c.ID
		if len(id) > 12 {
			id = id[:12]
		}
		fmt.Fprintf(out, "%s  %s  %s\n", id, c.Timestamp.Local().Format("2006-01-02 15:04:05"), c.Title())
		if full {
			for _, p := range c.Paths {
				fmt.Fprintf(out, "    %s\n", p)
			}
		}
	}
}

var watchCmd = &cobra.Command{
	Use:     "watch [report] [filter...]",
	GroupID: "reports",
	Short:   "Show a report and redraw it whenever the repository changes",
	Run: func(cmd *cobra.Command, args []string) {
		name := config.DefaultReport
		if len(args) > 0 {
			if _, ok := cfg.Reports[args[0]]; ok {
				name, args = args[0], args[1:]
			}
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		exitOnError(runWatch(ctx, cmd.OutOrStdout(), name, args))
	},
}

// runWatch redraws the report after each burst of changes to the task
// files. The change log itself is not watched, since merely reading it
// touches backend files. A burst that ends before its commit leaves the
// repository dirty; the redraw is then retried until the commit lands.
func runWatch(ctx context.Context, out io.Writer, name string, args []string) error {
	w, err := watch.New()
	if err != nil {
		return err
	}
	defer w.Stop()

	if err := w.Start(cfg.RepoPath, filepath.Join(cfg.RepoPath, repo.TasksDir)); err != nil {
		return err
	}

	screen := termenv.NewOutput(out)
	redraw := func() error {
		screen.ClearScreen()
		fmt.Fprintf(out, "%s  (%s)\n\n", name, time.Now().Format("15:04:05"))
		return runReport(out, name, args)
	}
	if err := redraw(); err != nil {
		return err
	}

	var retry <-chan time.Time
	errs := w.Errors()
	batches := watch.Debounce(ctx, w.Events(), 250*time.Millisecond)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Printf("watch error: %v", err)
			continue
		case batch, ok := <-batches:
			if !ok {
				return nil
			}
			logger.Printf("%d file events", len(batch))
		case <-retry:
		}

		retry = nil
		if err := redraw(); err != nil {
			if !errors.Is(err, repo.ErrDirtyState) {
				return err
			}
			retry = time.After(time.Second)
		}
	}
}

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "repo",
	Short:   "Inspect the configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as TOML",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if cfg.Path() != "" {
			fmt.Fprintf(out, "# read from %s\n", cfg.Path())
		} else {
			fmt.Fprintln(out, "# built-in defaults")
		}
		if err := cfg.WriteTOML(out); err != nil {
			fatalf("%v", err)
		}
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print where the configuration is looked for",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Config directory: %s\n", config.Dir())
		if cfg.Path() != "" {
			fmt.Fprintf(out, "Config file: %s\n", cfg.Path())
		}
		fmt.Fprintf(out, "Repository: %s\n", cfg.RepoPath)
	},
}

func init() {
	initCmd.Flags().String("backend", "", "Change log backend: journal or git (default changelog.backend)")
	logCmd.Flags().IntP("limit", "n", 20, "Number of entries to show")
	logCmd.Flags().Bool("full", false, "List the paths each entry touched")

	configCmd.AddCommand(configShowCmd, configPathCmd)
	rootCmd.AddCommand(initCmd, checkCmd, logCmd, watchCmd, configCmd)
}
