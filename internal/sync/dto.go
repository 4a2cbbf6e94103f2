package sync

import (
	"github.com/hanpenneko/mossgrid/internal/models"
	"github.com/hanpenneko/mossgrid/internal/syncclient"
)

// Conversions between store records and wire DTOs. The dirty flag never
// crosses this boundary and the monthdays set travels as its encoded
// JSON-array string.

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

func toTodoDTO(t models.Todo) syncclient.TodoDTO {
	return syncclient.TodoDTO{
		ID:        t.ID,
		Title:     t.Title,
		Memo:      t.Memo,
		SortOrder: t.SortOrder,
		IsDeleted: b2i(t.IsDeleted),
		DeletedAt: t.DeletedAt,
		UpdatedAt: t.UpdatedAt,
		UpdatedBy: t.UpdatedBy,
	}
}

func todoFromDTO(d syncclient.TodoDTO) models.Todo {
	t := models.Todo{
		ID:        d.ID,
		Title:     d.Title,
		Memo:      d.Memo,
		SortOrder: d.SortOrder,
		IsDeleted: d.IsDeleted != 0,
		DeletedAt: d.DeletedAt,
	}
	t.UpdatedAt = d.UpdatedAt
	t.UpdatedBy = d.UpdatedBy
	return t
}

func toHabitDTO(h models.Habit) syncclient.HabitDTO {
	return syncclient.HabitDTO{
		ID:         h.ID,
		Name:       h.Name,
		Memo:       h.Memo,
		SortOrder:  h.SortOrder,
		IsArchived: b2i(h.IsArchived),
		UpdatedAt:  h.UpdatedAt,
		UpdatedBy:  h.UpdatedBy,
	}
}

func habitFromDTO(d syncclient.HabitDTO) models.Habit {
	h := models.Habit{
		ID:         d.ID,
		Name:       d.Name,
		Memo:       d.Memo,
		SortOrder:  d.SortOrder,
		IsArchived: d.IsArchived != 0,
	}
	h.UpdatedAt = d.UpdatedAt
	h.UpdatedBy = d.UpdatedBy
	return h
}

func toRuleDTO(r models.HabitRule) syncclient.HabitRuleDTO {
	d := syncclient.HabitRuleDTO{
		ID:            r.ID,
		HabitID:       r.HabitID,
		Type:          string(r.Type),
		EffectiveFrom: r.EffectiveFrom,
		UpdatedAt:     r.UpdatedAt,
		UpdatedBy:     r.UpdatedBy,
	}
	switch r.Type {
	case models.RuleWeekdays:
		d.WeekdaysMask = r.WeekdaysMask
	case models.RuleMonthdays:
		d.MonthdaysJSON = models.EncodeMonthdays(r.Monthdays)
	}
	return d
}

// ruleFromDTO decodes a rule payload. A malformed monthdays set is
// reported but the rule still converts, with no active days (fails closed).
func ruleFromDTO(d syncclient.HabitRuleDTO) (models.HabitRule, error) {
	r := models.HabitRule{
		ID:            d.ID,
		HabitID:       d.HabitID,
		Type:          models.RuleType(d.Type),
		WeekdaysMask:  d.WeekdaysMask,
		EffectiveFrom: d.EffectiveFrom,
	}
	r.UpdatedAt = d.UpdatedAt
	r.UpdatedBy = d.UpdatedBy
	days, err := models.DecodeMonthdays(d.MonthdaysJSON)
	r.Monthdays = days
	return r, err
}

func toCompletionDTO(c models.HabitCompletion) syncclient.HabitCompletionDTO {
	return syncclient.HabitCompletionDTO{
		HabitID:   c.HabitID,
		HabitDay:  c.HabitDay,
		Done:      b2i(c.Done),
		UpdatedAt: c.UpdatedAt,
		UpdatedBy: c.UpdatedBy,
	}
}

func completionFromDTO(d syncclient.HabitCompletionDTO) models.HabitCompletion {
	c := models.HabitCompletion{
		HabitID:  d.HabitID,
		HabitDay: d.HabitDay,
		Done:     d.Done != 0,
	}
	c.UpdatedAt = d.UpdatedAt
	c.UpdatedBy = d.UpdatedBy
	return c
}
