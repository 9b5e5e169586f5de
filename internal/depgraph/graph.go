package depgraph

import (
	"time"

	"github.com/taskdepot/td/internal/task"
)

// Resolve fills in Blocked, Blocking, Dependents and Urgency for every
// task in pending, discarding whatever they held before. Dependents are
// listed in pending order.
func Resolve(pending []*task.Task, cfg UrgencyConfig, now time.Time) {
	byUUID := make(map[string]*task.Task, len(pending))
	for _, t := range pending {
		byUUID[t.UUID] = t
		t.Blocked = false
		t.Blocking = false
		t.Dependents = nil
	}

	for _, t := range pending {
		for dep := range t.Dependencies.All() {
			target, ok := byUUID[dep]
			if !ok {
				continue
			}
			t.Blocked = true
			target.Blocking = true
			target.Dependents = append(target.Dependents, t.UUID)
		}
	}

	for _, t := range pending {
		t.Urgency = Urgency(t, cfg, now)
	}
}

// FindCycle returns a dependency cycle among pending as a path of UUIDs
// whose first and last entries are equal, or nil when there is none.
// Dependencies outside pending are ignored.
//
// Kahn's algorithm strips every task that is not part of or behind a
// cycle; a depth-first search over what remains recovers one cycle path.
func FindCycle(pending []*task.Task) []string {
	if len(pending) == 0 {
		return nil
	}

	nodes := make([]string, 0, len(pending))
	edges := make(map[string][]string, len(pending))
	known := make(map[string]bool, len(pending))
	for _, t := range pending {
		if known[t.UUID] {
			continue
		}
		known[t.UUID] = true
		nodes = append(nodes, t.UUID)
	}
	for _, t := range pending {
		for dep := range t.Dependencies.All() {
			if known[dep] {
				edges[t.UUID] = append(edges[t.UUID], dep)
			}
		}
	}

	// Build in-degree map and forward adjacency (dependency → dependent)
	inDegree := make(map[string]int, len(nodes))
	forward := make(map[string][]string)
	for node, deps := range edges {
		for _, dep := range deps {
			inDegree[node]++
			forward[dep] = append(forward[dep], node)
		}
	}

	var queue []string
	for _, n := range nodes {
		if inDegree[n] == 0 {
			queue = append(queue, n)
		}
	}

	visited := 0
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		visited++

		for _, dependent := range forward[node] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if visited == len(nodes) {
		return nil
	}

	return findCyclePath(nodes, edges, inDegree)
}

// findCyclePath finds a cycle path among nodes with non-zero in-degree.
func findCyclePath(nodes []string, edges map[string][]string, inDegree map[string]int) []string {
	const (
		white = 0 // unvisited
		gray  = 1 // in current path
		black = 2 // finished
	)

	color := make(map[string]int)
	parent := make(map[string]string)

	var cyclePath []string

	var dfs func(node string) bool
	dfs = func(node string) bool {
		color[node] = gray
		for _, dep := range edges[node] {
			if color[dep] == gray {
				// Found cycle: reconstruct path
				cyclePath = []string{dep}
				current := node
				for current != dep {
					cyclePath = append(cyclePath, current)
					current = parent[current]
				}
				cyclePath = append(cyclePath, dep)
				// Reverse to get forward order
				for i, j := 0, len(cyclePath)-1; i < j; i, j = i+1, j-1 {
					cyclePath[i], cyclePath[j] = cyclePath[j], cyclePath[i]
				}
				return true
			}
			if color[dep] == white {
				parent[dep] = node
				if dfs(dep) {
					return true
				}
			}
		}
		color[node] = black
		return false
	}

	for _, n := range nodes {
		if inDegree[n] > 0 && color[n] == white {
			if dfs(n) {
				return cyclePath
			}
		}
	}

	return nil
}
