package cmd

import (
	"github.com/hanpenneko/mossgrid/internal/output"
	"github.com/hanpenneko/mossgrid/internal/syncconfig"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Show or change sync configuration",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := syncconfig.LoadConfig()
		if err != nil {
			output.Error("load config: %v", err)
			return err
		}
		s, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer s.Close()

		state := s.SyncState()
		output.Info("server url:  %s", cfg.ServerURL())
		output.Info("device id:   %s", state.DeviceID)
		if state.SyncKey == "" {
			output.Info("sync key:    %s", output.Subtle("(not set)"))
		} else {
			output.Info("sync key:    %s", state.SyncKey)
		}
		output.Info("checkpoint:  %d", state.LastServerSeq)
		return nil
	},
}

var configURLCmd = &cobra.Command{
	Use:   "sync-url URL",
	Short: "Set the sync server URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := syncconfig.LoadConfig()
		if err != nil {
			output.Error("load config: %v", err)
			return err
		}
		cfg.Sync.URL = args[0]
		if err := syncconfig.SaveConfig(cfg); err != nil {
			output.Error("save config: %v", err)
			return err
		}
		output.Success("sync server set to %s", args[0])
		return nil
	},
}

var configKeyCmd = &cobra.Command{
	Use:   "sync-key KEY",
	Short: "Set the sync key (resets the checkpoint, local data untouched)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer s.Close()

		if err := s.SetSyncKey(args[0]); err != nil {
			output.Error("set sync key: %v", err)
			return err
		}
		output.Success("sync key set; next sync pulls full history")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configURLCmd, configKeyCmd)
	rootCmd.AddCommand(configCmd)
}
