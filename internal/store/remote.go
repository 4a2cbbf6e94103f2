package store

import (
	"database/sql"

	"github.com/hanpenneko/mossgrid/internal/merge"
	"github.com/hanpenneko/mossgrid/internal/models"
)

// Remote upserts: each applies one pulled record through the LWW decision.
// A winning remote record replaces the local one wholesale (full-value
// overwrite, not a field merge) and is stored clean, so remote-sourced data
// is never re-pushed until mutated locally again. A losing remote record
// leaves local state, including its dirty flag, untouched.

// ApplyRemoteTodo applies a pulled todo. Returns whether it was applied.
func (s *Store) ApplyRemoteTodo(remote models.Todo) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	remote.Dirty = false
	if i := s.todoIndex(remote.ID); i >= 0 {
		local := s.todos[i]
		if !merge.ShouldApplyRemote(local.UpdatedAt, local.UpdatedBy, remote.UpdatedAt, remote.UpdatedBy) {
			return false, nil
		}
		s.todos[i] = remote
	} else {
		s.todos = append(s.todos, remote)
	}
	return true, saveTodo(s.conn, remote)
}

// ApplyRemoteHabit applies a pulled habit.
func (s *Store) ApplyRemoteHabit(remote models.Habit) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	remote.Dirty = false
	if i := s.habitIndex(remote.ID); i >= 0 {
		local := s.habits[i]
		if !merge.ShouldApplyRemote(local.UpdatedAt, local.UpdatedBy, remote.UpdatedAt, remote.UpdatedBy) {
			return false, nil
		}
		s.habits[i] = remote
	} else {
		s.habits = append(s.habits, remote)
	}
	return true, saveHabit(s.conn, remote)
}

// ApplyRemoteRule applies a pulled recurrence rule row.
func (s *Store) ApplyRemoteRule(remote models.HabitRule) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	remote.Dirty = false
	found := -1
	for i := range s.rules {
		if s.rules[i].ID == remote.ID {
			found = i
			break
		}
	}
	if found >= 0 {
		local := s.rules[found]
		if !merge.ShouldApplyRemote(local.UpdatedAt, local.UpdatedBy, remote.UpdatedAt, remote.UpdatedBy) {
			return false, nil
		}
		s.rules[found] = remote
	} else {
		s.rules = append(s.rules, remote)
	}
	return true, saveRule(s.conn, remote)
}

// ApplyRemoteCompletion applies a pulled completion, keyed by
// (habit_id, habit_day).
func (s *Store) ApplyRemoteCompletion(remote models.HabitCompletion) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	remote.Dirty = false
	found := -1
	for i := range s.completions {
		if s.completions[i].HabitID == remote.HabitID && s.completions[i].HabitDay == remote.HabitDay {
			found = i
			break
		}
	}
	if found >= 0 {
		local := s.completions[found]
		if !merge.ShouldApplyRemote(local.UpdatedAt, local.UpdatedBy, remote.UpdatedAt, remote.UpdatedBy) {
			return false, nil
		}
		s.completions[found] = remote
	} else {
		s.completions = append(s.completions, remote)
	}
	return true, saveCompletion(s.conn, remote)
}

// DirtySnapshot is the set of records pending push, captured at one point
// in time. Clearing dirty flags after a successful push goes through the
// snapshot so records mutated during the network round-trip stay dirty.
type DirtySnapshot struct {
	Todos       []models.Todo
	Habits      []models.Habit
	Rules       []models.HabitRule
	Completions []models.HabitCompletion
}

// Empty reports whether nothing is pending.
func (d DirtySnapshot) Empty() bool {
	return len(d.Todos) == 0 && len(d.Habits) == 0 && len(d.Rules) == 0 && len(d.Completions) == 0
}

// DirtySnapshot captures every record currently marked dirty.
func (s *Store) DirtySnapshot() DirtySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	var snap DirtySnapshot
	for _, t := range s.todos {
		if t.Dirty {
			snap.Todos = append(snap.Todos, t)
		}
	}
	for _, h := range s.habits {
		if h.Dirty {
			snap.Habits = append(snap.Habits, h)
		}
	}
	for _, r := range s.rules {
		if r.Dirty {
			snap.Rules = append(snap.Rules, r)
		}
	}
	for _, c := range s.completions {
		if c.Dirty {
			snap.Completions = append(snap.Completions, c)
		}
	}
	return snap
}

// ClearDirty clears the dirty flag on exactly the snapshotted records. A
// record re-stamped since the snapshot (its envelope no longer matches)
// stays dirty and goes out with the next push.
func (s *Store) ClearDirty(snap DirtySnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var todos []models.Todo
	for _, st := range snap.Todos {
		if i := s.todoIndex(st.ID); i >= 0 && s.todos[i].Envelope == st.Envelope {
			s.todos[i].Dirty = false
			todos = append(todos, s.todos[i])
		}
	}
	var habits []models.Habit
	for _, sh := range snap.Habits {
		if i := s.habitIndex(sh.ID); i >= 0 && s.habits[i].Envelope == sh.Envelope {
			s.habits[i].Dirty = false
			habits = append(habits, s.habits[i])
		}
	}
	var rules []models.HabitRule
	for _, sr := range snap.Rules {
		for i := range s.rules {
			if s.rules[i].ID == sr.ID && s.rules[i].Envelope == sr.Envelope {
				s.rules[i].Dirty = false
				rules = append(rules, s.rules[i])
				break
			}
		}
	}
	var completions []models.HabitCompletion
	for _, sc := range snap.Completions {
		for i := range s.completions {
			if s.completions[i].HabitID == sc.HabitID && s.completions[i].HabitDay == sc.HabitDay && s.completions[i].Envelope == sc.Envelope {
				s.completions[i].Dirty = false
				completions = append(completions, s.completions[i])
				break
			}
		}
	}

	return s.inTx(func(tx *sql.Tx) error {
		for _, t := range todos {
			if err := saveTodo(tx, t); err != nil {
				return err
			}
		}
		for _, h := range habits {
			if err := saveHabit(tx, h); err != nil {
				return err
			}
		}
		for _, r := range rules {
			if err := saveRule(tx, r); err != nil {
				return err
			}
		}
		for _, c := range completions {
			if err := saveCompletion(tx, c); err != nil {
				return err
			}
		}
		return nil
	})
}
