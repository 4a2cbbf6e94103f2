package cmd

import (
	"fmt"
	"strconv"

	"github.com/hanpenneko/mossgrid/internal/habitday"
	"github.com/hanpenneko/mossgrid/internal/output"
	"github.com/spf13/cobra"
)

var habitCmd = &cobra.Command{
	Use:     "habit",
	Short:   "Manage habits",
	GroupID: "habits",
}

var habitAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Add a habit with a recurrence rule (default: daily)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ruleType, mask, monthdays, err := parseRuleFlags(cmd)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		s, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer s.Close()

		h, err := s.AddHabit(args[0], ruleType, mask, monthdays)
		if err != nil {
			output.Error("add habit: %v", err)
			return err
		}
		output.Success("added habit %q (%s)", h.Name, ruleType)
		return nil
	},
}

var habitListCmd = &cobra.Command{
	Use:   "list",
	Short: "List habits active on a day with completion state",
	RunE: func(cmd *cobra.Command, args []string) error {
		day, _ := cmd.Flags().GetString("day")
		all, _ := cmd.Flags().GetBool("all")
		if day == "" {
			day = habitday.Today()
		}

		s, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer s.Close()

		if all {
			habits := s.Habits()
			if len(habits) == 0 {
				output.Info("no habits")
				return nil
			}
			for _, h := range habits {
				rules := s.Rules(h.ID)
				desc := ""
				if len(rules) > 0 {
					desc = output.Rule(rules[len(rules)-1])
				}
				output.Info("%3d. %s  %s", h.SortOrder, h.Name, output.Subtle(desc))
			}
			return nil
		}

		habits := s.ActiveHabits(day)
		if len(habits) == 0 {
			output.Info("no habits active on %s", day)
			return nil
		}
		for i, h := range habits {
			output.Habit(i+1, h, s.IsCompleted(h.ID, day))
		}
		output.Info("%s", output.Subtle(fmt.Sprintf("%s: %.0f%% complete", day, s.CompletionRate(day)*100)))
		return nil
	},
}

var habitCheckCmd = &cobra.Command{
	Use:   "check POSITION",
	Short: "Toggle a habit's completion for a day",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		day, _ := cmd.Flags().GetString("day")
		if day == "" {
			day = habitday.Today()
		}
		if habitday.IsFutureDay(day) {
			output.Error("cannot check a future day (%s)", day)
			return fmt.Errorf("future day")
		}

		s, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer s.Close()

		// position within the day's active list, matching habit list output
		pos, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("position must be an integer, got %q", args[0])
		}
		active := s.ActiveHabits(day)
		if pos < 1 || pos > len(active) {
			output.Error("no habit at position %d on %s", pos, day)
			return fmt.Errorf("no habit at position %d", pos)
		}
		h := active[pos-1]

		if err := s.ToggleCompletion(h.ID, day); err != nil {
			output.Error("toggle completion: %v", err)
			return err
		}
		if s.IsCompleted(h.ID, day) {
			output.Success("%s done on %s", h.Name, day)
		} else {
			output.Info("%s unmarked on %s", h.Name, day)
		}
		return nil
	},
}

var habitArchiveCmd = &cobra.Command{
	Use:   "archive POSITION",
	Short: "Archive a habit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer s.Close()

		h, err := habitAtPosition(s, args[0])
		if err != nil {
			output.Error("%v", err)
			return err
		}
		if err := s.ArchiveHabit(h.ID); err != nil {
			output.Error("archive habit: %v", err)
			return err
		}
		output.Success("archived %q", h.Name)
		return nil
	},
}

var habitEditCmd = &cobra.Command{
	Use:   "edit POSITION",
	Short: "Edit a habit's name or memo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer s.Close()

		h, err := habitAtPosition(s, args[0])
		if err != nil {
			output.Error("%v", err)
			return err
		}
		update := habitUpdateFromFlags(cmd)
		if update == nil {
			output.Warning("nothing to change (use --name or --memo)")
			return nil
		}
		if err := s.UpdateHabit(h.ID, *update); err != nil {
			output.Error("update habit: %v", err)
			return err
		}
		output.Success("updated %q", h.Name)
		return nil
	},
}

var habitMoveCmd = &cobra.Command{
	Use:   "move FROM TO",
	Short: "Move a habit to a new position",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err1 := strconv.Atoi(args[0])
		to, err2 := strconv.Atoi(args[1])
		if err1 != nil || err2 != nil {
			return fmt.Errorf("positions must be integers")
		}

		s, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer s.Close()

		if err := s.ReorderHabits(from-1, to-1); err != nil {
			output.Error("move habit: %v", err)
			return err
		}
		output.Success("moved %d -> %d", from, to)
		return nil
	},
}

var habitScheduleCmd = &cobra.Command{
	Use:   "schedule POSITION",
	Short: "Change a habit's recurrence from today onward",
	Long: `Appends a new recurrence rule effective from today's habit day.
Earlier days keep the rule that governed them, so history stays intact.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ruleType, mask, monthdays, err := parseRuleFlags(cmd)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		s, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer s.Close()

		h, err := habitAtPosition(s, args[0])
		if err != nil {
			output.Error("%v", err)
			return err
		}
		if err := s.SetHabitRule(h.ID, ruleType, mask, monthdays); err != nil {
			output.Error("set rule: %v", err)
			return err
		}
		output.Success("%q now %s from %s", h.Name, ruleType, habitday.Today())
		return nil
	},
}

var habitYearCmd = &cobra.Command{
	Use:   "year POSITION YEAR",
	Short: "Show a habit's completed days for a year",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		year, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("year must be an integer, got %q", args[1])
		}

		s, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer s.Close()

		h, err := habitAtPosition(s, args[0])
		if err != nil {
			output.Error("%v", err)
			return err
		}

		done := s.CompletedDays(h.ID, year)
		output.Info("%s %d: %d days completed", h.Name, year, len(done))
		for _, day := range habitday.YearDates(year) {
			if done[day] {
				output.Info("  %s", day)
			}
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{habitAddCmd, habitScheduleCmd} {
		c.Flags().Bool("daily", false, "active every day")
		c.Flags().StringSlice("weekdays", nil, "active weekdays (sun..sat)")
		c.Flags().IntSlice("monthdays", nil, "active days of month (1-31)")
	}
	habitListCmd.Flags().String("day", "", "habit day (YYYY-MM-DD, default today)")
	habitListCmd.Flags().Bool("all", false, "list all habits with their schedules")
	habitCheckCmd.Flags().String("day", "", "habit day (YYYY-MM-DD, default today)")
	habitEditCmd.Flags().String("name", "", "new name")
	habitEditCmd.Flags().String("memo", "", "new memo")

	habitCmd.AddCommand(habitAddCmd, habitListCmd, habitCheckCmd, habitArchiveCmd,
		habitEditCmd, habitMoveCmd, habitScheduleCmd, habitYearCmd)
	rootCmd.AddCommand(habitCmd)
}
