package models

import (
	"encoding/json"
	"fmt"
	"sort"
)

// RuleType represents a habit recurrence rule type
type RuleType string

const (
	RuleDaily     RuleType = "daily"
	RuleWeekdays  RuleType = "weekdays"
	RuleMonthdays RuleType = "monthdays"
)

// IsValidRuleType checks if a rule type is valid
func IsValidRuleType(t RuleType) bool {
	switch t {
	case RuleDaily, RuleWeekdays, RuleMonthdays:
		return true
	}
	return false
}

// Envelope carries the last-write-wins metadata present on every entity.
// Dirty marks a local mutation not yet acknowledged by the remote; it is
// never serialized to the wire.
type Envelope struct {
	UpdatedAt int64  `json:"updated_at"` // epoch seconds
	UpdatedBy string `json:"updated_by"` // device ID
	Dirty     bool   `json:"-"`
}

// Stamp marks the record as mutated now by the given device.
func (e *Envelope) Stamp(now int64, deviceID string) {
	e.UpdatedAt = now
	e.UpdatedBy = deviceID
	e.Dirty = true
}

// Todo represents a todo item. Deleted todos are kept as tombstones so that
// deletions merge and restore correctly across devices.
type Todo struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Memo      string `json:"memo,omitempty"`
	SortOrder int    `json:"sort_order"`
	IsDeleted bool   `json:"is_deleted"`
	DeletedAt *int64 `json:"deleted_at,omitempty"`
	Envelope
}

// Habit represents a recurring habit. Archival is terminal but still
// LWW-mergeable like any other field.
type Habit struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Memo       string `json:"memo,omitempty"`
	SortOrder  int    `json:"sort_order"`
	IsArchived bool   `json:"is_archived"`
	Envelope
}

// HabitRule is one row of a habit's append-only recurrence history.
// Changing a habit's schedule appends a new row; old rows keep governing
// the days before the new row's effective date.
type HabitRule struct {
	ID            string   `json:"id"`
	HabitID       string   `json:"habit_id"`
	Type          RuleType `json:"type"`
	WeekdaysMask  int      `json:"weekdays_mask,omitempty"` // bit i set = weekday i active, 0=Sunday
	Monthdays     []int    `json:"monthdays,omitempty"`
	EffectiveFrom string   `json:"effective_from_habit_day"` // habit day, YYYY-MM-DD
	Envelope
}

// HabitCompletion records whether a habit was done on a habit day.
// Keyed by (habit_id, habit_day); toggled, never accumulated.
type HabitCompletion struct {
	HabitID  string `json:"habit_id"`
	HabitDay string `json:"habit_day"`
	Done     bool   `json:"done"`
	Envelope
}

// SyncState is the per-data-dir sync identity and checkpoint.
type SyncState struct {
	DeviceID      string `json:"device_id"`
	SyncKey       string `json:"sync_key"`
	LastServerSeq int64  `json:"last_server_seq"`
}

// EncodeMonthdays encodes a day-of-month set as the JSON array string used
// at the storage and wire boundary, e.g. "[1,15,28]".
func EncodeMonthdays(days []int) string {
	if len(days) == 0 {
		return "[]"
	}
	sorted := make([]int, len(days))
	copy(sorted, days)
	sort.Ints(sorted)
	b, _ := json.Marshal(sorted)
	return string(b)
}

// DecodeMonthdays decodes the boundary representation back to a day set.
// Callers treat a decode failure as "no days active" (fails closed).
func DecodeMonthdays(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	var days []int
	if err := json.Unmarshal([]byte(s), &days); err != nil {
		return nil, fmt.Errorf("decode monthdays %q: %w", s, err)
	}
	return days, nil
}
