package cmd

import (
	"fmt"
	"strconv"

	"github.com/hanpenneko/mossgrid/internal/output"
	"github.com/spf13/cobra"
)

var todoCmd = &cobra.Command{
	Use:     "todo",
	Short:   "Manage todos",
	GroupID: "todos",
}

var todoAddCmd = &cobra.Command{
	Use:   "add TITLE",
	Short: "Add a todo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		memo, _ := cmd.Flags().GetString("memo")

		s, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer s.Close()

		t, err := s.AddTodo(args[0], memo)
		if err != nil {
			output.Error("add todo: %v", err)
			return err
		}
		output.Success("added todo %q at position %d", t.Title, t.SortOrder)
		return nil
	},
}

var todoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List todos",
	RunE: func(cmd *cobra.Command, args []string) error {
		showDeleted, _ := cmd.Flags().GetBool("deleted")

		s, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer s.Close()

		if showDeleted {
			deleted := s.DeletedTodos()
			if len(deleted) == 0 {
				output.Info("no deleted todos")
				return nil
			}
			for i, t := range deleted {
				output.Todo(i+1, t)
				output.Info("     %s", output.Subtle("id: "+t.ID))
			}
			return nil
		}

		todos := s.ActiveTodos()
		if len(todos) == 0 {
			output.Info("no todos")
			return nil
		}
		for _, t := range todos {
			output.Todo(t.SortOrder, t)
		}
		return nil
	},
}

var todoEditCmd = &cobra.Command{
	Use:   "edit POSITION",
	Short: "Edit a todo's title or memo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer s.Close()

		t, err := todoAtPosition(s, args[0])
		if err != nil {
			output.Error("%v", err)
			return err
		}

		update := todoUpdateFromFlags(cmd)
		if update == nil {
			output.Warning("nothing to change (use --title or --memo)")
			return nil
		}
		if err := s.UpdateTodo(t.ID, *update); err != nil {
			output.Error("update todo: %v", err)
			return err
		}
		output.Success("updated %q", t.Title)
		return nil
	},
}

var todoRmCmd = &cobra.Command{
	Use:     "rm POSITION",
	Aliases: []string{"done"},
	Short:   "Delete a todo (kept as a tombstone, restorable)",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer s.Close()

		t, err := todoAtPosition(s, args[0])
		if err != nil {
			output.Error("%v", err)
			return err
		}
		if err := s.DeleteTodo(t.ID); err != nil {
			output.Error("delete todo: %v", err)
			return err
		}
		output.Success("deleted %q (restore with: mossgrid todo restore)", t.Title)
		return nil
	},
}

var todoRestoreCmd = &cobra.Command{
	Use:   "restore ID",
	Short: "Restore a deleted todo to the end of the list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer s.Close()

		if err := s.RestoreTodo(args[0]); err != nil {
			output.Error("restore todo: %v", err)
			return err
		}
		output.Success("restored %s", args[0])
		return nil
	},
}

var todoMoveCmd = &cobra.Command{
	Use:   "move FROM TO",
	Short: "Move a todo to a new position",
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

		// positions are 1-based on the CLI
		if err := s.ReorderTodos(from-1, to-1); err != nil {
			output.Error("move todo: %v", err)
			return err
		}
		output.Success("moved %d -> %d", from, to)
		return nil
	},
}

func init() {
	todoAddCmd.Flags().String("memo", "", "optional memo")
	todoListCmd.Flags().Bool("deleted", false, "show deleted todos")
	todoEditCmd.Flags().String("title", "", "new title")
	todoEditCmd.Flags().String("memo", "", "new memo")

	todoCmd.AddCommand(todoAddCmd, todoListCmd, todoEditCmd, todoRmCmd, todoRestoreCmd, todoMoveCmd)
	rootCmd.AddCommand(todoCmd)
}
