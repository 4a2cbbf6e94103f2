package store

import (
	"testing"

	"github.com/hanpenneko/mossgrid/internal/models"
)

func TestAddHabit_CreatesInitialRule(t *testing.T) {
	s := newTestStore(t)

	h, err := s.AddHabit("stretch", models.RuleWeekdays, 1<<1|1<<3, nil)
	if err != nil {
		t.Fatalf("add habit: %v", err)
	}

	rules := s.Rules(h.ID)
	if len(rules) != 1 {
		t.Fatalf("rule count = %d, want 1", len(rules))
	}
	r := rules[0]
	if r.Type != models.RuleWeekdays || r.WeekdaysMask != 1<<1|1<<3 {
		t.Errorf("rule = %+v", r)
	}
	if r.EffectiveFrom != "2024-06-01" {
		t.Errorf("effective from = %q, want today's habit day", r.EffectiveFrom)
	}
	if !r.Dirty {
		t.Error("initial rule must be dirty")
	}
}

func TestAddHabit_RejectsInvalidRuleType(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.AddHabit("x", "yearly", 0, nil); err == nil {
		t.Fatal("invalid rule type must be rejected")
	}
}

// A habit is governed on day D by the rule row with the largest effective
// date on or before D.
func TestActiveHabits_RuleHistory(t *testing.T) {
	s := newTestStore(t)

	s.today = func() string { return "2024-01-01" }
	h, _ := s.AddHabit("run", models.RuleDaily, 0, nil)

	// from March, weekdays Mon|Wed|Fri only
	s.today = func() string { return "2024-03-01" }
	if err := s.SetHabitRule(h.ID, models.RuleWeekdays, 1<<1|1<<3|1<<5, nil); err != nil {
		t.Fatalf("set rule: %v", err)
	}

	if !containsHabit(s.ActiveHabits("2024-02-15"), h.ID) {
		t.Error("February day governed by the daily rule should be active")
	}
	if !containsHabit(s.ActiveHabits("2024-03-04"), h.ID) { // Monday
		t.Error("Monday under the weekdays rule should be active")
	}
	if containsHabit(s.ActiveHabits("2024-03-05"), h.ID) { // Tuesday
		t.Error("Tuesday under the weekdays rule should be inactive")
	}
	if containsHabit(s.ActiveHabits("2023-12-31"), h.ID) {
		t.Error("days before the first rule have no governing rule")
	}
}

func TestActiveHabits_ExcludesArchived(t *testing.T) {
	s := newTestStore(t)
	h, _ := s.AddHabit("old", models.RuleDaily, 0, nil)
	s.AddHabit("new", models.RuleDaily, 0, nil)

	s.ArchiveHabit(h.ID)

	active := s.ActiveHabits("2024-06-02")
	if len(active) != 1 || active[0].Name != "new" {
		t.Errorf("active = %+v, want only the unarchived habit", active)
	}
	if len(s.habits) != 2 {
		t.Error("archived habit must stay in the collection")
	}
}

func TestActiveHabits_OrderedBySortOrder(t *testing.T) {
	s := newTestStore(t)
	s.AddHabit("first", models.RuleDaily, 0, nil)
	s.AddHabit("second", models.RuleDaily, 0, nil)
	s.AddHabit("third", models.RuleDaily, 0, nil)

	if err := s.ReorderHabits(2, 0); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	active := s.ActiveHabits("2024-06-02")
	if active[0].Name != "third" || active[1].Name != "first" || active[2].Name != "second" {
		t.Errorf("order = %s, %s, %s", active[0].Name, active[1].Name, active[2].Name)
	}
}

func TestSetHabitRule_UnknownHabitIsNoop(t *testing.T) {
	s := newTestStore(t)
	if err := s.SetHabitRule("missing", models.RuleDaily, 0, nil); err != nil {
		t.Fatalf("unknown habit must be a no-op, got %v", err)
	}
	if len(s.rules) != 0 {
		t.Error("no rule should be created for an unknown habit")
	}
}

func TestToggleCompletion(t *testing.T) {
	s := newTestStore(t)
	h, _ := s.AddHabit("meditate", models.RuleDaily, 0, nil)
	day := "2024-06-01"

	if s.IsCompleted(h.ID, day) {
		t.Fatal("fresh habit should not be completed")
	}

	s.ToggleCompletion(h.ID, day)
	if !s.IsCompleted(h.ID, day) {
		t.Error("first toggle creates a done completion")
	}

	s.ToggleCompletion(h.ID, day)
	if s.IsCompleted(h.ID, day) {
		t.Error("second toggle flips back to not done")
	}
	// the row is flipped, not duplicated
	if len(s.completions) != 1 {
		t.Errorf("completion rows = %d, want 1 per (habit, day)", len(s.completions))
	}
}

func TestCompletionRate(t *testing.T) {
	s := newTestStore(t)
	h1, _ := s.AddHabit("one", models.RuleDaily, 0, nil)
	h2, _ := s.AddHabit("two", models.RuleDaily, 0, nil)
	s.AddHabit("three", models.RuleDaily, 0, nil)
	day := "2024-06-01"

	s.ToggleCompletion(h1.ID, day)
	s.ToggleCompletion(h2.ID, day)

	got := s.CompletionRate(day)
	want := 2.0 / 3.0
	if got < want-1e-9 || got > want+1e-9 {
		t.Errorf("completion rate = %v, want 2/3", got)
	}
}

func TestCompletionRate_EmptyActiveSet(t *testing.T) {
	s := newTestStore(t)
	if got := s.CompletionRate("2024-06-01"); got != 0 {
		t.Errorf("rate with no active habits = %v, want 0", got)
	}
}

func TestCompletedDays(t *testing.T) {
	s := newTestStore(t)
	h, _ := s.AddHabit("read", models.RuleDaily, 0, nil)

	s.ToggleCompletion(h.ID, "2024-01-05")
	s.ToggleCompletion(h.ID, "2024-02-10")
	s.ToggleCompletion(h.ID, "2023-12-31")
	// toggled off again, should not count
	s.ToggleCompletion(h.ID, "2024-03-01")
	s.ToggleCompletion(h.ID, "2024-03-01")

	done := s.CompletedDays(h.ID, 2024)
	if len(done) != 2 || !done["2024-01-05"] || !done["2024-02-10"] {
		t.Errorf("completed days = %v", done)
	}
}

func TestHabitReorder_MinimalDirty(t *testing.T) {
	s := newTestStore(t)
	s.AddHabit("A", models.RuleDaily, 0, nil)
	s.AddHabit("B", models.RuleDaily, 0, nil)
	s.AddHabit("C", models.RuleDaily, 0, nil)
	clearDirty(t, s)

	if err := s.ReorderHabits(1, 1); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if !s.DirtySnapshot().Empty() {
		t.Error("self-move must mark nothing dirty")
	}
}

func containsHabit(habits []models.Habit, id string) bool {
	for _, h := range habits {
		if h.ID == id {
			return true
		}
	}
	return false
}
