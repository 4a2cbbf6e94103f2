package store

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/hanpenneko/mossgrid/internal/habitday"
	"github.com/hanpenneko/mossgrid/internal/models"
)

// HabitUpdate holds optional field changes for UpdateHabit.
type HabitUpdate struct {
	Name      *string
	Memo      *string
	SortOrder *int
}

// AddHabit creates a habit at the end of the active order together with its
// initial recurrence rule, effective from today's habit day. Both records
// are committed in one transaction and marked dirty.
func (s *Store) AddHabit(name string, ruleType models.RuleType, weekdaysMask int, monthdays []int) (models.Habit, error) {
	if !models.IsValidRuleType(ruleType) {
		return models.Habit{}, fmt.Errorf("invalid rule type %q", ruleType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	h := models.Habit{
		ID:        uuid.NewString(),
		Name:      name,
		SortOrder: s.maxActiveHabitOrder() + 1,
	}
	h.Stamp(now, s.state.DeviceID)

	r := s.newRule(h.ID, ruleType, weekdaysMask, monthdays, now)

	err := s.inTx(func(tx *sql.Tx) error {
		if err := saveHabit(tx, h); err != nil {
			return err
		}
		return saveRule(tx, r)
	})
	if err != nil {
		return models.Habit{}, err
	}
	s.habits = append(s.habits, h)
	s.rules = append(s.rules, r)
	return h, nil
}

// UpdateHabit applies partial field changes. Unknown IDs are a no-op.
func (s *Store) UpdateHabit(id string, upd HabitUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.habitIndex(id)
	if i < 0 {
		return nil
	}
	h := &s.habits[i]
	if upd.Name != nil {
		h.Name = *upd.Name
	}
	if upd.Memo != nil {
		h.Memo = *upd.Memo
	}
	if upd.SortOrder != nil {
		h.SortOrder = *upd.SortOrder
	}
	h.Stamp(s.now(), s.state.DeviceID)
	return saveHabit(s.conn, *h)
}

// ArchiveHabit archives a habit. Archived habits drop out of the active
// views but the record remains mergeable.
func (s *Store) ArchiveHabit(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.habitIndex(id)
	if i < 0 {
		return nil
	}
	h := &s.habits[i]
	h.IsArchived = true
	h.Stamp(s.now(), s.state.DeviceID)
	return saveHabit(s.conn, *h)
}

// SetHabitRule appends a new recurrence rule effective from today's habit
// day. Earlier days stay governed by the previous rule rows. Unknown habit
// IDs are a no-op.
func (s *Store) SetHabitRule(habitID string, ruleType models.RuleType, weekdaysMask int, monthdays []int) error {
	if !models.IsValidRuleType(ruleType) {
		return fmt.Errorf("invalid rule type %q", ruleType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.habitIndex(habitID) < 0 {
		return nil
	}
	r := s.newRule(habitID, ruleType, weekdaysMask, monthdays, s.now())
	if err := saveRule(s.conn, r); err != nil {
		return err
	}
	s.rules = append(s.rules, r)
	return nil
}

// newRule builds a stamped rule row. Caller holds s.mu.
func (s *Store) newRule(habitID string, ruleType models.RuleType, weekdaysMask int, monthdays []int, now int64) models.HabitRule {
	r := models.HabitRule{
		ID:            uuid.NewString(),
		HabitID:       habitID,
		Type:          ruleType,
		EffectiveFrom: s.today(),
	}
	switch ruleType {
	case models.RuleWeekdays:
		r.WeekdaysMask = weekdaysMask
	case models.RuleMonthdays:
		r.Monthdays = monthdays
	}
	r.Stamp(now, s.state.DeviceID)
	return r
}

// ReorderHabits moves the active habit at fromIndex to toIndex and
// renumbers the active subset, marking only moved records dirty.
func (s *Store) ReorderHabits(fromIndex, toIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := s.activeHabitIndexes()
	if fromIndex < 0 || fromIndex >= len(active) || toIndex < 0 || toIndex >= len(active) {
		return nil
	}

	moved := active[fromIndex]
	active = append(active[:fromIndex], active[fromIndex+1:]...)
	active = append(active[:toIndex], append([]int{moved}, active[toIndex:]...)...)

	now := s.now()
	var changed []models.Habit
	for pos, idx := range active {
		order := pos + 1
		if s.habits[idx].SortOrder == order {
			continue
		}
		s.habits[idx].SortOrder = order
		s.habits[idx].Stamp(now, s.state.DeviceID)
		changed = append(changed, s.habits[idx])
	}
	if len(changed) == 0 {
		return nil
	}
	return s.inTx(func(tx *sql.Tx) error {
		for _, h := range changed {
			if err := saveHabit(tx, h); err != nil {
				return err
			}
		}
		return nil
	})
}

// ToggleCompletion flips the completion for (habitID, day), creating the
// record as done when it does not exist yet.
func (s *Store) ToggleCompletion(habitID, day string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.completions {
		c := &s.completions[i]
		if c.HabitID == habitID && c.HabitDay == day {
			c.Done = !c.Done
			c.Stamp(s.now(), s.state.DeviceID)
			return saveCompletion(s.conn, *c)
		}
	}
	c := models.HabitCompletion{HabitID: habitID, HabitDay: day, Done: true}
	c.Stamp(s.now(), s.state.DeviceID)
	s.completions = append(s.completions, c)
	return saveCompletion(s.conn, c)
}

// Habits returns non-archived habits ordered by sort_order.
func (s *Store) Habits() []models.Habit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeHabitsLocked()
}

// ActiveHabits returns the non-archived habits whose governing rule is
// active on the given day, ordered by sort_order. The governing rule is the
// row with the largest effective date on or before the day; a habit with no
// such row is inactive.
func (s *Store) ActiveHabits(day string) []models.Habit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeHabitsOnLocked(day)
}

// CompletionRate returns completed/active for the day, 0 when no habit is
// active.
func (s *Store) CompletionRate(day string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := s.activeHabitsOnLocked(day)
	if len(active) == 0 {
		return 0
	}
	done := 0
	for _, h := range active {
		if s.isCompletedLocked(h.ID, day) {
			done++
		}
	}
	return float64(done) / float64(len(active))
}

// IsCompleted reports whether the habit has a done completion on the day.
func (s *Store) IsCompleted(habitID, day string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isCompletedLocked(habitID, day)
}

// CompletedDays returns the set of days in the given year on which the
// habit has a done completion, for the year-grid view.
func (s *Store) CompletedDays(habitID string, year int) map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := fmt.Sprintf("%04d-", year)
	out := make(map[string]bool)
	for _, c := range s.completions {
		if c.HabitID == habitID && c.Done && len(c.HabitDay) >= 5 && c.HabitDay[:5] == prefix {
			out[c.HabitDay] = true
		}
	}
	return out
}

// Rules returns the habit's rule history ordered by effective date.
func (s *Store) Rules(habitID string) []models.HabitRule {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.HabitRule
	for _, r := range s.rules {
		if r.HabitID == habitID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EffectiveFrom < out[j].EffectiveFrom })
	return out
}

// --- helpers (callers hold s.mu) ---

func (s *Store) habitIndex(id string) int {
	for i := range s.habits {
		if s.habits[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) maxActiveHabitOrder() int {
	max := 0
	for _, h := range s.habits {
		if !h.IsArchived && h.SortOrder > max {
			max = h.SortOrder
		}
	}
	return max
}

func (s *Store) activeHabitIndexes() []int {
	var idx []int
	for i := range s.habits {
		if !s.habits[i].IsArchived {
			idx = append(idx, i)
		}
	}
	sort.Slice(idx, func(a, b int) bool {
		return s.habits[idx[a]].SortOrder < s.habits[idx[b]].SortOrder
	})
	return idx
}

func (s *Store) activeHabitsLocked() []models.Habit {
	var out []models.Habit
	for _, h := range s.habits {
		if !h.IsArchived {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out
}

func (s *Store) activeHabitsOnLocked(day string) []models.Habit {
	var out []models.Habit
	for _, h := range s.activeHabitsLocked() {
		r := s.governingRule(h.ID, day)
		if r == nil {
			continue
		}
		if habitday.RuleActive(string(r.Type), r.WeekdaysMask, r.Monthdays, day) {
			out = append(out, h)
		}
	}
	return out
}

// governingRule picks the rule row with the largest effective date <= day.
func (s *Store) governingRule(habitID, day string) *models.HabitRule {
	var best *models.HabitRule
	for i := range s.rules {
		r := &s.rules[i]
		if r.HabitID != habitID || r.EffectiveFrom > day {
			continue
		}
		if best == nil || r.EffectiveFrom > best.EffectiveFrom {
			best = r
		}
	}
	return best
}

func (s *Store) isCompletedLocked(habitID, day string) bool {
	for _, c := range s.completions {
		if c.HabitID == habitID && c.HabitDay == day {
			return c.Done
		}
	}
	return false
}
