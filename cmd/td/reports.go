package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/taskdepot/td/internal/config"
	"github.com/taskdepot/td/internal/report"
)

var listCmd = &cobra.Command{
	Use:     "list [filter...]",
	GroupID: "reports",
	Short:   "List pending tasks by short ID",
	Run: func(cmd *cobra.Command, args []string) {
		rc := config.Report{Sort: "id+", Columns: config.DefaultColumns}
		exitOnError(printReport(cmd.OutOrStdout(), rc, args))
	},
}

var idsCmd = &cobra.Command{
	Use:     "ids",
	GroupID: "repo",
	Short:   "Renumber short IDs to match the pending tasks",
	Long: `Short IDs are positions in a saved copy of the pending list. They stay
stable while tasks are added and completed and are renumbered by this
command and whenever a report is shown.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		r, err := openRepo()
		if err != nil {
			exitOnError(err)
		}
		defer r.Close()
		exitOnError(r.UpdateShortIDs())
		fmt.Fprintln(cmd.OutOrStdout(), "Short IDs updated.")
	},
}

// addReportCommands registers one command per configured report.
func addReportCommands(c *config.Config) {
	for _, name := range c.ReportNames() {
		if cmd, _, err := rootCmd.Find([]string{name}); err == nil && cmd != rootCmd {
			// a built-in command of the same name wins
			continue
		}
		rc := c.Reports[name]
		rootCmd.AddCommand(&cobra.Command{
			Use:     name + " [filter...]",
			GroupID: "reports",
			Short:   reportSummary(rc),
			Run: func(cmd *cobra.Command, args []string) {
				exitOnError(runReport(cmd.OutOrStdout(), name, args))
			},
		})
	}
}

func reportSummary(rc config.Report) string {
	if rc.Filter == "" {
		return fmt.Sprintf("Report of all pending tasks, sorted by %s", rc.Sort)
	}
	return fmt.Sprintf("Report of %q, sorted by %s", rc.Filter, rc.Sort)
}

// runReport shows the configured report name restricted by args.
func runReport(out io.Writer, name string, args []string) error {
	rc, ok := cfg.Reports[name]
	if !ok {
		return fmt.Errorf("no report named %q", name)
	}
	return printReport(out, rc, args)
}

// printReport refreshes the short IDs, so that the IDs shown are the
// ones later commands accept, and prints the matching tasks.
func printReport(out io.Writer, rc config.Report, args []string) error {
	r, err := openRepo()
	if err != nil {
		return err
	}
	defer r.Close()

	if err := r.UpdateShortIDs(); err != nil {
		return err
	}
	state, err := r.Load()
	if err != nil {
		return err
	}

	tasks, err := state.Tasks(reportFilter(args, rc.Filter))
	if err != nil {
		return err
	}
	return report.NewPrinter(out).Print(tasks, rc.Columns, rc.Sort)
}

func init() {
	rootCmd.AddCommand(listCmd, idsCmd)
}
