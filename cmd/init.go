package cmd

import (
	"github.com/hanpenneko/mossgrid/internal/output"
	"github.com/hanpenneko/mossgrid/internal/store"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:     "init",
	Short:   "Create the local database and device identity",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.Initialize(getBaseDir())
		if err != nil {
			output.Error("initialize: %v", err)
			return err
		}
		defer s.Close()

		output.Success("initialized mossgrid data in %s", getBaseDir())
		output.Info("device id: %s", s.DeviceID())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
