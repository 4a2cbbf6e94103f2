package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/hanpenneko/mossgrid/internal/output"
	gridsync "github.com/hanpenneko/mossgrid/internal/sync"
	"github.com/hanpenneko/mossgrid/internal/syncclient"
	"github.com/hanpenneko/mossgrid/internal/syncconfig"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	Short:   "Sync local data with the remote change log",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		repair, _ := cmd.Flags().GetBool("repair")

		s, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer s.Close()

		cfg, err := syncconfig.LoadConfig()
		if err != nil {
			output.Error("load config: %v", err)
			return err
		}

		syncer := gridsync.New(s, syncclient.New(cfg.ServerURL()))

		if repair {
			if err := syncer.Repair(); err != nil {
				output.Error("repair: %v", err)
				return err
			}
			output.Success("repair complete: full history re-pulled")
			return nil
		}

		if err := syncer.Sync(); err != nil {
			output.Error("sync: %v", err)
			return err
		}
		state := s.SyncState()
		output.Success("sync complete (server seq %d)", state.LastServerSeq)
		return nil
	},
}

var autosyncCmd = &cobra.Command{
	Use:     "autosync",
	Short:   "Run a foreground loop that syncs on start and flushes periodically",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer s.Close()

		cfg, err := syncconfig.LoadConfig()
		if err != nil {
			output.Error("load config: %v", err)
			return err
		}
		if !cfg.AutoEnabled() {
			output.Warning("auto-sync disabled in config")
			return nil
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		syncer := gridsync.New(s, syncclient.New(cfg.ServerURL()))
		output.Info("auto-sync running (interval %s), Ctrl-C to stop", cfg.AutoInterval())
		syncer.AutoSync(ctx, cfg.AutoInterval(), cfg.AutoPull())
		return nil
	},
}

func init() {
	syncCmd.Flags().Bool("repair", false, "reset the checkpoint and re-pull full history")
	rootCmd.AddCommand(syncCmd, autosyncCmd)
}
