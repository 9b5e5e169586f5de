package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/taskdepot/td/internal/repo"
	"github.com/taskdepot/td/internal/task"
)

// describe names a task by short ID when it has one.
func describe(t *task.Task) string {
	if t.HasID() {
		return strconv.Itoa(t.ID)
	}
	return t.UUID
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func allUUIDs(args []string) bool {
	for _, arg := range args {
		if _, err := uuid.Parse(arg); err != nil {
			return false
		}
	}
	return true
}

// selectTasks returns the pending tasks matching args, or, when every
// argument is a UUID, those tasks whether pending or completed.
func selectTasks(state *repo.State, args []string) ([]*task.Task, error) {
	if len(args) == 0 || !allUUIDs(args) {
		return state.Tasks(args)
	}
	tasks := make([]*task.Task, 0, len(args))
	for _, id := range args {
		t, err := state.Get(id)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// resolveDependencies replaces short IDs in dependency modifications with
// the UUIDs of the pending tasks they name.
func resolveDependencies(state *repo.State, mods []task.Modification) ([]task.Modification, error) {
	resolve := func(ref string) (string, error) {
		if _, err := strconv.Atoi(ref); err != nil {
			return ref, nil
		}
		tasks, err := state.Tasks([]string{"id:" + ref})
		if err != nil {
			return "", err
		}
		if len(tasks) != 1 {
			return "", fmt.Errorf("no pending task with ID %s", ref)
		}
		return tasks[0].UUID, nil
	}

	resolved := make([]task.Modification, len(mods))
	for i, mod := range mods {
		switch mod.Kind {
		case task.ModDepAdd, task.ModDepDel:
			id, err := resolve(mod.Value)
			if err != nil {
				return nil, err
			}
			mod.Value = id
		case task.ModDepSet:
			values := make([]string, len(mod.Values))
			for j, ref := range mod.Values {
				id, err := resolve(ref)
				if err != nil {
					return nil, err
				}
				values[j] = id
			}
			mod.Values = values
		}
		resolved[i] = mod
	}
	return resolved, nil
}

// reportFilter combines command-line filter words with a report's
// configured filter: "( args ) and ( filter )".
func reportFilter(args []string, configured string) []string {
	words := strings.Fields(configured)
	switch {
	case len(args) > 0 && len(words) > 0:
		combined := append([]string{"("}, args...)
		combined = append(combined, ")", "and", "(")
		combined = append(combined, words...)
		return append(combined, ")")
	case len(words) > 0:
		return words
	default:
		return args
	}
}
