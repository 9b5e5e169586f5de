package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/taskdepot/td/internal/repo"
	"github.com/taskdepot/td/internal/task"
	"github.com/taskdepot/td/internal/twimport"
)

var addCmd = &cobra.Command{
	Use:     "add [modifications...]",
	GroupID: "tasks",
	Short:   "Add a task",
	Long: `Add a new pending task. Bare words become the task text; the
modification syntax of 'td modify' applies, e.g.

  td add call the plumber +home due:tomorrow

Put the arguments after "--" when one starts with "-".`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(runAdd(cmd.OutOrStdout(), args))
	},
}

func runAdd(out io.Writer, args []string) error {
	r, state, err := loadState()
	if err != nil {
		return err
	}
	defer r.Close()

	mods, err := task.ParseModifications(args, time.Now())
	if err != nil {
		return err
	}
	if mods, err = resolveDependencies(state, mods); err != nil {
		return err
	}

	t := task.New()
	if err := t.Apply(mods); err != nil {
		return err
	}

	if err := state.Modify([]repo.Change{repo.Write{Task: t}}, "add "+strings.Join(args, " ")); err != nil {
		return err
	}

	// the short ID exists only once the write is committed
	state, err = r.Load()
	if err != nil {
		return err
	}
	if added, err := state.Get(t.UUID); err == nil && added.HasID() {
		fmt.Fprintf(out, "Created task %d.\n", added.ID)
		return nil
	}
	fmt.Fprintf(out, "Created task %s.\n", t.UUID)
	return nil
}

var modifyCmd = &cobra.Command{
	Use:     "modify <filter...> -- <modifications...>",
	GroupID: "tasks",
	Short:   "Modify the tasks matching a filter",
	Long: `Apply modifications to every pending task matching the filter. A
filter made only of UUIDs also reaches completed tasks.

Modifications:
  +tag, -tag            add or remove a tag
  tag:a,b               replace all tags
  dep+:ID, dep-:ID      add or remove a dependency (short ID or UUID)
  depends:ID,ID         replace all dependencies
  due:DATE              set the due date ("due:" clears it)
  scheduled:DATE        set the scheduled date
  completed:DATE        complete the task ("completed:" reopens it)
  created:DATE          set the creation date
  text:WORDS or bare words   replace the text

Dates are RFC 3339, YYYY-MM-DD[THH:MM] or phrases such as "tomorrow".`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dash := cmd.ArgsLenAtDash()
		if dash < 0 {
			fatalf(`the filter and the modifications must be separated by "--"`)
		}
		exitOnError(runModify(cmd.OutOrStdout(), args[:dash], args[dash:]))
	},
}

func runModify(out io.Writer, filterArgs, modArgs []string) error {
	if len(filterArgs) == 0 {
		return fmt.Errorf("refusing to modify every task, give a filter")
	}

	r, state, err := loadState()
	if err != nil {
		return err
	}
	defer r.Close()

	mods, err := task.ParseModifications(modArgs, time.Now())
	if err != nil {
		return err
	}
	if mods, err = resolveDependencies(state, mods); err != nil {
		return err
	}

	tasks, err := selectTasks(state, filterArgs)
	if err != nil {
		return err
	}

	changes := make([]repo.Change, 0, len(tasks))
	for _, t := range tasks {
		c := t.Clone()
		if err := c.Apply(mods); err != nil {
			return fmt.Errorf("task %s: %w", describe(t), err)
		}
		changes = append(changes, repo.Write{Task: c})
	}

	title := "modify " + strings.Join(filterArgs, " ") + " -- " + strings.Join(modArgs, " ")
	if err := state.Modify(changes, title); err != nil {
		return err
	}
	fmt.Fprintf(out, "Modified %d task(s).\n", len(changes))
	return nil
}

var doneCmd = &cobra.Command{
	Use:     "done <filter...>",
	GroupID: "tasks",
	Short:   "Mark the tasks matching a filter as completed",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(runDone(cmd.OutOrStdout(), args))
	},
}

func runDone(out io.Writer, args []string) error {
	r, state, err := loadState()
	if err != nil {
		return err
	}
	defer r.Close()

	tasks, err := state.Tasks(args)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	changes := make([]repo.Change, 0, len(tasks))
	for _, t := range tasks {
		c := t.Clone()
		c.Completed = true
		c.DateCompleted = &now
		changes = append(changes, repo.Write{Task: c})
	}

	if err := state.Modify(changes, "done "+strings.Join(args, " ")); err != nil {
		return err
	}
	for _, t := range tasks {
		fmt.Fprintf(out, "Completed task %s.\n", describe(t))
	}
	return nil
}

var deleteCmd = &cobra.Command{
	Use:     "delete <filter...>",
	GroupID: "tasks",
	Short:   "Delete the tasks matching a filter",
	Long: `Delete the pending tasks matching a filter. Their records are removed;
the change log keeps the history.

td asks for confirmation when stdin is a terminal; --yes skips the
question and is required otherwise.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		yes, _ := cmd.Flags().GetBool("yes")
		exitOnError(runDelete(cmd.OutOrStdout(), args, yes))
	},
}

func runDelete(out io.Writer, args []string, yes bool) error {
	r, state, err := loadState()
	if err != nil {
		return err
	}
	defer r.Close()

	tasks, err := state.Tasks(args)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Fprintln(out, "No matching tasks.")
		return nil
	}

	if !yes {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("not a terminal, use --yes to delete without confirmation")
		}
		lines := make([]string, 0, len(tasks))
		for _, t := range tasks {
			lines = append(lines, describe(t)+"  "+firstLine(t.Text))
		}
		var confirmed bool
		err := huh.NewConfirm().
			Title(fmt.Sprintf("Delete %d task(s)?", len(tasks))).
			Description(strings.Join(lines, "\n")).
			Affirmative("Delete").
			Negative("Cancel").
			Value(&confirmed).
			Run()
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
	}

	changes := make([]repo.Change, 0, len(tasks))
	for _, t := range tasks {
		changes = append(changes, repo.Delete{UUID: t.UUID})
	}
	if err := state.Modify(changes, "delete "+strings.Join(args, " ")); err != nil {
		return err
	}
	fmt.Fprintf(out, "Deleted %d task(s).\n", len(changes))
	return nil
}

var showCmd = &cobra.Command{
	Use:     "show [filter...]",
	GroupID: "tasks",
	Short:   "Show the details of tasks",
	Long: `Show every field of the pending tasks matching a filter. Arguments that
are all UUIDs are looked up directly, so completed tasks can be shown too.`,
	Run: func(cmd *cobra.Command, args []string) {
		asYAML, _ := cmd.Flags().GetBool("yaml")
		exitOnError(runShow(cmd.OutOrStdout(), args, asYAML))
	},
}

// shownTask is the --yaml form of a task.
type shownTask struct {
	UUID       string         `yaml:"uuid"`
	ID         *int           `yaml:"id,omitempty"`
	Status     string         `yaml:"status"`
	Text       string         `yaml:"text,omitempty"`
	Tags       []string       `yaml:"tags,omitempty"`
	Depends    []string       `yaml:"depends,omitempty"`
	Dependents []string       `yaml:"dependents,omitempty"`
	Blocked    bool           `yaml:"blocked,omitempty"`
	Blocking   bool           `yaml:"blocking,omitempty"`
	Urgency    float64        `yaml:"urgency"`
	Created    *time.Time     `yaml:"created,omitempty"`
	Completed  *time.Time     `yaml:"completed,omitempty"`
	Due        *time.Time     `yaml:"due,omitempty"`
	Scheduled  *time.Time     `yaml:"scheduled,omitempty"`
	Extra      map[string]any `yaml:"extra,omitempty"`
}

func runShow(out io.Writer, args []string, asYAML bool) error {
	r, state, err := loadState()
	if err != nil {
		return err
	}
	defer r.Close()

	tasks, err := selectTasks(state, args)
	if err != nil {
		return err
	}

	if asYAML {
		shown := make([]shownTask, 0, len(tasks))
		for _, t := range tasks {
			shown = append(shown, toShown(t))
		}
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(shown); err != nil {
			return err
		}
		return enc.Close()
	}

	for i, t := range tasks {
		if i > 0 {
			fmt.Fprintln(out)
		}
		writeTask(out, t)
	}
	return nil
}

func toShown(t *task.Task) shownTask {
	s := shownTask{
		UUID:       t.UUID,
		Status:     status(t),
		Text:       t.Text,
		Tags:       t.Tags.Items(),
		Depends:    t.Dependencies.Items(),
		Dependents: t.Dependents,
		Blocked:    t.Blocked,
		Blocking:   t.Blocking,
		Urgency:    t.Urgency,
		Created:    t.DateCreated,
		Completed:  t.DateCompleted,
		Due:        t.DateDue,
		Scheduled:  t.DateScheduled,
		Extra:      t.Extra,
	}
	if t.HasID() {
		id := t.ID
		s.ID = &id
	}
	return s
}

func writeTask(out io.Writer, t *task.Task) {
	fmt.Fprintf(out, "UUID:\t%s\n", t.UUID)
	if t.HasID() {
		fmt.Fprintf(out, "ID:\t%d\n", t.ID)
	}
	fmt.Fprintf(out, "Status:\t%s\n", status(t))
	if t.Text != "" {
		fmt.Fprintf(out, "Text:\t%s\n", t.Text)
	}
	if t.Tags.Len() > 0 {
		fmt.Fprintf(out, "Tags:\t%s\n", strings.Join(t.Tags.Items(), " "))
	}
	if t.Dependencies.Len() > 0 {
		fmt.Fprintf(out, "Depends:\t%s\n", strings.Join(t.Dependencies.Items(), " "))
	}
	if len(t.Dependents) > 0 {
		fmt.Fprintf(out, "Dependents:\t%s\n", strings.Join(t.Dependents, " "))
	}
	if !t.Completed {
		fmt.Fprintf(out, "Urgency:\t%.2f\n", t.Urgency)
	}
	for _, d := range []struct {
		label string
		ts    *time.Time
	}{
		{"Created", t.DateCreated},
		{"Completed", t.DateCompleted},
		{"Due", t.DateDue},
		{"Scheduled", t.DateScheduled},
	} {
		if d.ts != nil {
			fmt.Fprintf(out, "%s:\t%s\n", d.label, d.ts.Local().Format(time.RFC3339))
		}
	}
}

func status(t *task.Task) string {
	switch {
	case t.Completed:
		return "completed"
	case t.Blocked:
		return "blocked"
	default:
		return "pending"
	}
}

var tagsCmd = &cobra.Command{
	Use:     "tags",
	GroupID: "tasks",
	Short:   "List the tags of pending tasks",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(runTags(cmd.OutOrStdout()))
	},
}

func runTags(out io.Writer) error {
	r, state, err := loadState()
	if err != nil {
		return err
	}
	defer r.Close()

	tasks, err := state.Tasks(nil)
	if err != nil {
		return err
	}

	var tags []string
	for _, t := range tasks {
		for tag := range t.Tags.All() {
			if !slices.Contains(tags, tag) {
				tags = append(tags, tag)
			}
		}
	}
	slices.Sort(tags)
	for _, tag := range tags {
		fmt.Fprintln(out, tag)
	}
	return nil
}

var importTWCmd = &cobra.Command{
	Use:     "import-tw [file]",
	GroupID: "tasks",
	Short:   "Import tasks exported from Taskwarrior",
	Long: `Import the output of 'task export' from a file or stdin. Tasks keep
their UUIDs, so importing the same export twice updates rather than
duplicates. Deleted tasks are skipped.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		in := cmd.InOrStdin()
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				fatalf("%v", err)
			}
			defer f.Close()
			in = f
		}
		exitOnError(runImportTW(cmd.OutOrStdout(), in))
	},
}

func runImportTW(out io.Writer, in io.Reader) error {
	tasks, err := twimport.New(logger.Logger).Read(in)
	if err != nil {
		return err
	}

	r, state, err := loadState()
	if err != nil {
		return err
	}
	defer r.Close()

	if err := state.Modify(twimport.Changes(tasks), "Import Taskwarrior tasks"); err != nil {
		return err
	}
	fmt.Fprintf(out, "Imported %d task(s).\n", len(tasks))
	return nil
}

func init() {
	deleteCmd.Flags().BoolP("yes", "y", false, "Delete without asking")
	showCmd.Flags().Bool("yaml", false, "Print YAML")

	rootCmd.AddCommand(addCmd, modifyCmd, doneCmd, deleteCmd, showCmd, tagsCmd, importTWCmd)
}
