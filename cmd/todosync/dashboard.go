package main

import (
	"fmt"

	"github.com/devbydijah/todolist/internal/todo/daemon"
	"github.com/devbydijah/todolist/internal/todo/dashboard"
	"github.com/devbydijah/todolist/internal/ui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	GroupID: "advanced",
	Short:   "Start the real-time WebSocket dashboard",
	Long: `Start a WebSocket dashboard server that reports todo counts in real time.

Rewrites of the mirror snapshot by other sessions are folded into the store
and followed by a fresh stats message. Use 'todosync daemon --dashboard' to
also see sync results.

WebSocket messages include:
- todo_saved: A todo was created or changed
- todo_removed: A todo was deleted
- sync_complete: A sync pass finished
- stats: Todo counts (total, completed, pending push)

Example usage:
  todosync dashboard               # Start on dashboard.port (default 8080)
  todosync dashboard --port 9000   # Start on custom port

Connect with a WebSocket client:
  ws://localhost:8080/ws`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		port := a.cfg.Dashboard.Port
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}
		logger := a.logger.Named("dashboard")
		stats := dashboard.StoreStats(a.store)

		server := dashboard.NewServer(&dashboard.Config{
			Host:   a.cfg.Dashboard.Host,
			Port:   port,
			Logger: logger,
			Stats:  stats,
		})
		handler := dashboard.NewHandler(server, stats, logger)
		a.facade.AddListener(handler)

		if _, err := a.facade.LoadAll(ctx); err != nil {
			return err
		}

		watcher, err := daemon.NewSnapshotWatcher()
		if err != nil {
			return err
		}
		if err := watcher.Start(a.facade.Cache().Path()); err != nil {
			_ = watcher.Stop()
			return err
		}
		defer func() { _ = watcher.Stop() }()

		if err := server.Start(); err != nil {
			return fmt.Errorf("failed to start dashboard: %w", err)
		}

		fmt.Printf("Dashboard server started on http://%s\n", server.Addr())
		fmt.Printf("WebSocket endpoint: ws://%s/ws\n", server.Addr())
		fmt.Printf("Health check: http://%s/health\n", server.Addr())
		fmt.Println("\nPress Ctrl+C to stop...")

	loop:
		for {
			select {
			case <-ctx.Done():
				break loop
			case ev, ok := <-watcher.Events():
				if !ok {
					break loop
				}
				changed, err := a.facade.Cache().ChangedOnDisk()
				if err != nil || !changed {
					continue
				}
				logger.Debug("snapshot rewritten", zap.String("op", ev.Op.String()))
				a.facade.Cache().Invalidate()
				if _, err := a.facade.LoadAll(ctx); err != nil {
					logger.Warn("failed to fold snapshot", zap.Error(err))
					continue
				}
				handler.BroadcastStats()
			case err, ok := <-watcher.Errors():
				if !ok {
					break loop
				}
				logger.Warn("watcher error", zap.Error(err))
			}
		}

		fmt.Println("\nShutting down dashboard server...")
		if err := server.Stop(); err != nil {
			return fmt.Errorf("error during shutdown: %w", err)
		}
		fmt.Printf("%s Dashboard server stopped\n", ui.RenderPass("✓"))
		return nil
	},
}

func init() {
	dashboardCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	rootCmd.AddCommand(dashboardCmd)
}
