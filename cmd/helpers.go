package cmd

import (
	"fmt"
	"strconv"

	"github.com/hanpenneko/mossgrid/internal/models"
	"github.com/hanpenneko/mossgrid/internal/store"
	"github.com/spf13/cobra"
)

// todoAtPosition resolves a 1-based active-list position to a todo.
func todoAtPosition(s *store.Store, arg string) (models.Todo, error) {
	pos, err := strconv.Atoi(arg)
	if err != nil {
		return models.Todo{}, fmt.Errorf("position must be an integer, got %q", arg)
	}
	todos := s.ActiveTodos()
	if pos < 1 || pos > len(todos) {
		return models.Todo{}, fmt.Errorf("no todo at position %d", pos)
	}
	return todos[pos-1], nil
}

// habitAtPosition resolves a 1-based active-list position to a habit.
func habitAtPosition(s *store.Store, arg string) (models.Habit, error) {
	pos, err := strconv.Atoi(arg)
	if err != nil {
		return models.Habit{}, fmt.Errorf("position must be an integer, got %q", arg)
	}
	habits := s.Habits()
	if pos < 1 || pos > len(habits) {
		return models.Habit{}, fmt.Errorf("no habit at position %d", pos)
	}
	return habits[pos-1], nil
}

// todoUpdateFromFlags builds a TodoUpdate from changed flags, nil when no
// supported flag changed.
func todoUpdateFromFlags(cmd *cobra.Command) *store.TodoUpdate {
	var upd store.TodoUpdate
	changed := false
	if cmd.Flags().Changed("title") {
		v, _ := cmd.Flags().GetString("title")
		upd.Title = &v
		changed = true
	}
	if cmd.Flags().Changed("memo") {
		v, _ := cmd.Flags().GetString("memo")
		upd.Memo = &v
		changed = true
	}
	if !changed {
		return nil
	}
	return &upd
}

// habitUpdateFromFlags builds a HabitUpdate from changed flags.
func habitUpdateFromFlags(cmd *cobra.Command) *store.HabitUpdate {
	var upd store.HabitUpdate
	changed := false
	if cmd.Flags().Changed("name") {
		v, _ := cmd.Flags().GetString("name")
		upd.Name = &v
		changed = true
	}
	if cmd.Flags().Changed("memo") {
		v, _ := cmd.Flags().GetString("memo")
		upd.Memo = &v
		changed = true
	}
	if !changed {
		return nil
	}
	return &upd
}

// parseRuleFlags interprets --daily/--weekdays/--monthdays into a rule.
// Weekday names map to mask bits with Sunday as bit 0.
func parseRuleFlags(cmd *cobra.Command) (models.RuleType, int, []int, error) {
	daily, _ := cmd.Flags().GetBool("daily")
	weekdays, _ := cmd.Flags().GetStringSlice("weekdays")
	monthdays, _ := cmd.Flags().GetIntSlice("monthdays")

	set := 0
	if daily {
		set++
	}
	if len(weekdays) > 0 {
		set++
	}
	if len(monthdays) > 0 {
		set++
	}
	if set > 1 {
		return "", 0, nil, fmt.Errorf("choose one of --daily, --weekdays, --monthdays")
	}

	switch {
	case len(weekdays) > 0:
		mask := 0
		for _, name := range weekdays {
			bit, ok := weekdayBits[name]
			if !ok {
				return "", 0, nil, fmt.Errorf("unknown weekday %q (use sun..sat)", name)
			}
			mask |= 1 << bit
		}
		return models.RuleWeekdays, mask, nil, nil
	case len(monthdays) > 0:
		for _, d := range monthdays {
			if d < 1 || d > 31 {
				return "", 0, nil, fmt.Errorf("monthday %d out of range 1-31", d)
			}
		}
		return models.RuleMonthdays, 0, monthdays, nil
	default:
		return models.RuleDaily, 0, nil, nil
	}
}

var weekdayBits = map[string]int{
	"sun": 0, "mon": 1, "tue": 2, "wed": 3, "thu": 4, "fri": 5, "sat": 6,
}
