// Package output provides styled terminal output helpers (success, error,
// warning, todo/habit formatting) using lipgloss.
package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/hanpenneko/mossgrid/internal/models"
)

var (
	// Styles
	titleStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Success prints a success message
func Success(format string, args ...interface{}) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func Error(format string, args ...interface{}) {
	fmt.Println(errorStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...interface{}) {
	fmt.Println(warningStyle.Render("Warning: " + fmt.Sprintf(format, args...)))
}

// Info prints an info message
func Info(format string, args ...interface{}) {
	fmt.Println(fmt.Sprintf(format, args...))
}

// Todo prints one todo line: position, title and optional memo.
func Todo(position int, t models.Todo) {
	line := fmt.Sprintf("%3d. %s", position, titleStyle.Render(t.Title))
	if t.Memo != "" {
		line += subtleStyle.Render("  — " + t.Memo)
	}
	fmt.Println(line)
}

// Habit prints one habit line with its completion state for a day.
func Habit(position int, h models.Habit, done bool) {
	mark := pendingStyle.Render("[ ]")
	if done {
		mark = doneStyle.Render("[x]")
	}
	line := fmt.Sprintf("%3d. %s %s", position, mark, titleStyle.Render(h.Name))
	if h.Memo != "" {
		line += subtleStyle.Render("  — " + h.Memo)
	}
	fmt.Println(line)
}

// Rule formats a recurrence rule for display, e.g. "weekdays (Mon, Wed, Fri)".
func Rule(r models.HabitRule) string {
	switch r.Type {
	case models.RuleDaily:
		return "daily"
	case models.RuleWeekdays:
		return "weekdays (" + WeekdayMaskNames(r.WeekdaysMask) + ")"
	case models.RuleMonthdays:
		days := make([]string, len(r.Monthdays))
		for i, d := range r.Monthdays {
			days[i] = fmt.Sprintf("%d", d)
		}
		return "monthdays (" + strings.Join(days, ", ") + ")"
	default:
		return string(r.Type)
	}
}

var weekdayNames = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// WeekdayMaskNames renders a weekday bitmask as "Mon, Wed, Fri".
func WeekdayMaskNames(mask int) string {
	var names []string
	for i := 0; i < 7; i++ {
		if mask&(1<<i) != 0 {
			names = append(names, weekdayNames[i])
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}

// Subtle renders dimmed text.
func Subtle(s string) string {
	return subtleStyle.Render(s)
}
