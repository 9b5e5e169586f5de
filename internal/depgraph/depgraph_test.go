package depgraph

import (
	"math"
	"slices"
	"testing"
	"time"

	"github.com/taskdepot/td/internal/task"
)

var testNow = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

func newTask(t *testing.T, deps ...*task.Task) *task.Task {
	t.Helper()
	tk := task.New()
	for _, d := range deps {
		if err := tk.Dependencies.Add(d.UUID); err != nil {
			t.Fatalf("Dependencies.Add: %v", err)
		}
	}
	return tk
}

// zeroConfig disables every factor so tests can enable one at a time
func zeroConfig() UrgencyConfig {
	return UrgencyConfig{}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestResolve_BlockedAndBlocking(t *testing.T) {
	b := newTask(t)
	a := newTask(t, b)
	c := newTask(t, b)

	Resolve([]*task.Task{a, b, c}, DefaultUrgencyConfig(), testNow)

	if !a.Blocked || !c.Blocked {
		t.Error("dependents of a pending task must be blocked")
	}
	if b.Blocked {
		t.Error("b has no dependencies, must not be blocked")
	}
	if !b.Blocking {
		t.Error("b has pending dependents, must be blocking")
	}
	if a.Blocking || c.Blocking {
		t.Error("a and c have no dependents, must not be blocking")
	}
	if !slices.Equal(b.Dependents, []string{a.UUID, c.UUID}) {
		t.Errorf("b.Dependents = %v, want [%s %s]", b.Dependents, a.UUID, c.UUID)
	}
}

func TestResolve_CompletedDependencyDoesNotBlock(t *testing.T) {
	done := newTask(t)
	a := newTask(t, done)

	// done is not part of the pending set
	Resolve([]*task.Task{a}, DefaultUrgencyConfig(), testNow)

	if a.Blocked {
		t.Error("a dependency outside the pending set must not block")
	}
}

func TestResolve_Recomputes(t *testing.T) {
	b := newTask(t)
	a := newTask(t, b)

	Resolve([]*task.Task{a, b}, DefaultUrgencyConfig(), testNow)
	a.Dependencies.Remove(b.UUID)
	Resolve([]*task.Task{a, b}, DefaultUrgencyConfig(), testNow)

	if a.Blocked || b.Blocking || len(b.Dependents) != 0 {
		t.Errorf("stale derived fields: a.Blocked=%v b.Blocking=%v b.Dependents=%v",
			a.Blocked, b.Blocking, b.Dependents)
	}
}

func TestUrgency_DependentsAndBlocked(t *testing.T) {
	cfg := zeroConfig()
	cfg.Dependents = 2
	cfg.Blocked = -3

	b := newTask(t)
	a1 := newTask(t, b)
	a2 := newTask(t, b)
	a3 := newTask(t, b)

	Resolve([]*task.Task{a1, a2, a3, b}, cfg, testNow)

	if want := 2 * math.Log2(4); !approx(b.Urgency, want) {
		t.Errorf("b.Urgency = %v, want %v", b.Urgency, want)
	}
	if !approx(a1.Urgency, -3) {
		t.Errorf("a1.Urgency = %v, want -3", a1.Urgency)
	}
}

func TestUrgency_Scheduled(t *testing.T) {
	cfg := zeroConfig()
	cfg.ScheduledHigh = 10
	cfg.ScheduledLow = 2
	cfg.ScheduledActiveTime = 4 * time.Hour

	tests := []struct {
		name   string
		offset time.Duration // scheduled - now
		want   float64
	}{
		{"long before window", 10 * time.Hour, 2},
		{"window start", 4 * time.Hour, 2},
		{"mid window", 2 * time.Hour, 6},
		{"at scheduled", 0, 10},
		{"after scheduled", -5 * time.Hour, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tk := task.New()
			at := testNow.Add(tt.offset)
			tk.DateScheduled = &at

			if got := Urgency(tk, cfg, testNow); !approx(got, tt.want) {
				t.Errorf("Urgency() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUrgency_ScheduledStep(t *testing.T) {
	cfg := zeroConfig()
	cfg.ScheduledHigh = 10
	cfg.ScheduledLow = 1

	tk := task.New()
	future := testNow.Add(time.Minute)
	tk.DateScheduled = &future
	if got := Urgency(tk, cfg, testNow); got != 1 {
		t.Errorf("before scheduled = %v, want 1", got)
	}

	past := testNow.Add(-time.Minute)
	tk.DateScheduled = &past
	if got := Urgency(tk, cfg, testNow); got != 10 {
		t.Errorf("after scheduled = %v, want 10", got)
	}
}

func TestUrgency_Due(t *testing.T) {
	cfg := zeroConfig()
	cfg.DueHigh = 12
	cfg.DueTimePre = 3 * time.Hour
	cfg.DueTimePost = 1 * time.Hour

	tests := []struct {
		name   string
		offset time.Duration // due - now
		want   float64
	}{
		{"before window", 5 * time.Hour, 0},
		{"window start", 3 * time.Hour, 0},
		{"at due", 0, 9},
		{"window end", -1 * time.Hour, 12},
		{"overdue", -48 * time.Hour, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tk := task.New()
			at := testNow.Add(tt.offset)
			tk.DateDue = &at

			if got := Urgency(tk, cfg, testNow); !approx(got, tt.want) {
				t.Errorf("Urgency() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUrgency_DueStep(t *testing.T) {
	cfg := zeroConfig()
	cfg.DueHigh = 7

	tk := task.New()
	future := testNow.Add(time.Second)
	tk.DateDue = &future
	if got := Urgency(tk, cfg, testNow); got != 0 {
		t.Errorf("before due = %v, want 0", got)
	}

	tk.DateDue = &testNow
	if got := Urgency(tk, cfg, testNow); got != 7 {
		t.Errorf("at due = %v, want 7", got)
	}
}

func TestUrgency_DueMonotonic(t *testing.T) {
	cfg := DefaultUrgencyConfig()

	overdue := task.New()
	past := testNow.Add(-time.Hour)
	overdue.DateDue = &past

	upcoming := task.New()
	future := testNow.Add(time.Hour)
	upcoming.DateDue = &future

	if Urgency(overdue, cfg, testNow) < Urgency(upcoming, cfg, testNow) {
		t.Error("a task due an hour ago must be at least as urgent as one due in an hour")
	}
}

func TestUrgency_Tags(t *testing.T) {
	cfg := zeroConfig()
	cfg.Tags = map[string]float64{"work": 3, "home": 100}

	tk := task.New()
	if err := tk.Tags.Add("work.urgent"); err != nil {
		t.Fatal(err)
	}

	if got := Urgency(tk, cfg, testNow); got != 3 {
		t.Errorf("Urgency() = %v, want 3", got)
	}

	other := task.New()
	if err := other.Tags.Add("workshop"); err != nil {
		t.Fatal(err)
	}
	if got := Urgency(other, cfg, testNow); got != 0 {
		t.Errorf("Urgency() with tag workshop = %v, want 0", got)
	}
}

func TestFindCycle(t *testing.T) {
	a := task.New()
	b := task.New()
	c := task.New()
	d := task.New()

	// a -> b -> c -> a, d -> a
	a.Dependencies.Add(b.UUID)
	b.Dependencies.Add(c.UUID)
	c.Dependencies.Add(a.UUID)
	d.Dependencies.Add(a.UUID)

	cycle := FindCycle([]*task.Task{d, a, b, c})
	if cycle == nil {
		t.Fatal("FindCycle() = nil, want a cycle")
	}
	if cycle[0] != cycle[len(cycle)-1] {
		t.Errorf("cycle %v does not close", cycle)
	}
	if len(cycle) != 4 {
		t.Errorf("cycle %v, want 3 distinct tasks", cycle)
	}
	if slices.Contains(cycle, d.UUID) {
		t.Errorf("cycle %v includes d, which only depends on the cycle", cycle)
	}
}

func TestFindCycle_Acyclic(t *testing.T) {
	a := task.New()
	b := task.New()
	c := task.New()
	a.Dependencies.Add(b.UUID)
	a.Dependencies.Add(c.UUID)
	b.Dependencies.Add(c.UUID)

	// an unknown dependency is ignored
	c.Dependencies.Add(task.New().UUID)

	if cycle := FindCycle([]*task.Task{a, b, c}); cycle != nil {
		t.Errorf("FindCycle() = %v, want nil", cycle)
	}
	if cycle := FindCycle(nil); cycle != nil {
		t.Errorf("FindCycle(nil) = %v, want nil", cycle)
	}
}
