package cmd

import (
	"fmt"
	"os"

	"github.com/hanpenneko/mossgrid/internal/store"
	"github.com/spf13/cobra"
)

var (
	version string
	baseDir string
)

// SetVersion sets the version string
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

var rootCmd = &cobra.Command{
	Use:   "mossgrid",
	Short: "Offline-first habit and todo tracker with multi-device sync",
	Long: `mossgrid - A personal habit/todo tracker that works fully offline and
converges across devices through last-write-wins sync against a shared
change log. Habit days roll over at 04:00, not midnight.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initBaseDir resolves the data directory: $MOSSGRID_DIR or the home dir.
func initBaseDir() {
	if dir := os.Getenv("MOSSGRID_DIR"); dir != "" {
		baseDir = dir
		return
	}
	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot determine home directory: %v\n", err)
		os.Exit(1)
	}
	baseDir = home
}

func getBaseDir() string {
	return baseDir
}

// openStore opens the store at the resolved base directory.
func openStore() (*store.Store, error) {
	return store.Open(getBaseDir())
}

func init() {
	cobra.OnInitialize(initBaseDir)

	rootCmd.Version = version
	rootCmd.AddGroup(
		&cobra.Group{ID: "todos", Title: "Todo Commands:"},
		&cobra.Group{ID: "habits", Title: "Habit Commands:"},
		&cobra.Group{ID: "system", Title: "System Commands:"},
	)
	rootCmd.SetHelpCommandGroupID("system")
	rootCmd.SetCompletionCommandGroupID("system")
}
