package main

import (
	"fmt"

	"github.com/devbydijah/todolist/internal/todo/daemon"
	"github.com/devbydijah/todolist/internal/todo/dashboard"
	todosync "github.com/devbydijah/todolist/internal/todo/sync"
	"github.com/devbydijah/todolist/internal/ui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	GroupID: "sync",
	Short:   "Run the sync daemon in the foreground",
	Long: `Run the sync daemon in the foreground.

The daemon will:
  1. Fold the mirror snapshot into the store
  2. Seed an empty store from the remote, then run a full sync
  3. Run a full sync every daemon.sync_interval
  4. Watch the mirror snapshot and fold in rewrites made by other sessions

With --dashboard the WebSocket dashboard runs in the same process and
receives every change and sync result.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		withDashboard, _ := cmd.Flags().GetBool("dashboard")
		ctx := cmd.Context()

		var (
			board   *dashboard.Server
			handler *dashboard.Handler
		)
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if withDashboard {
			board = dashboard.NewServer(&dashboard.Config{
				Host:   a.cfg.Dashboard.Host,
				Port:   a.cfg.Dashboard.Port,
				Logger: a.logger.Named("dashboard"),
				Stats:  dashboard.StoreStats(a.store),
			})
			if err := board.Start(); err != nil {
				return fmt.Errorf("failed to start dashboard: %w", err)
			}
			defer func() {
				if err := board.Stop(); err != nil {
					a.logger.Warn("dashboard shutdown", zap.Error(err))
				}
			}()
			handler = dashboard.NewHandler(board, dashboard.StoreStats(a.store), a.logger.Named("dashboard"))
			a.facade.AddListener(handler)
		}

		cfg := &daemon.Config{
			SyncInterval:     a.cfg.Daemon.SyncInterval,
			DebounceInterval: a.cfg.Daemon.Debounce,
			Logger:           a.logger.Named("daemon"),
			OnSync: func(report *todosync.Report, err error) {
				if report != nil {
					printReport(report)
				}
				if err != nil {
					fmt.Printf("%s sync pass failed: %v\n", ui.RenderFail("✗"), err)
				}
				if handler != nil {
					handler.OnSync(report, err)
				}
			},
		}
		d, err := daemon.New(a.facade, a.syncer(), cfg)
		if err != nil {
			return err
		}

		fmt.Printf("%s Starting sync daemon...\n", ui.RenderAccent("●"))
		fmt.Printf("   Mirror: %s\n", a.facade.Cache().Path())
		fmt.Printf("   Remote: %s every %v\n", a.cfg.Remote.BaseURL, a.cfg.Daemon.SyncInterval)
		if board != nil {
			fmt.Printf("   Dashboard: http://%s\n", board.Addr())
		}
		fmt.Printf("\nPress Ctrl+C to stop\n\n")

		if err := d.Run(ctx); err != nil {
			return fmt.Errorf("daemon stopped: %w", err)
		}
		stats := d.Stats()
		fmt.Printf("\n%s Daemon stopped after %d sync(s), %d failed, %d snapshot reload(s)\n",
			ui.RenderPass("✓"), stats.Syncs, stats.FailedSyncs, stats.Reloads)
		return nil
	},
}

func init() {
	daemonCmd.Flags().Bool("dashboard", false, "also serve the WebSocket dashboard")
	rootCmd.AddCommand(daemonCmd)
}
