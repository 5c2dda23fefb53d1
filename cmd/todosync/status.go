package main

import (
	"context"
	"fmt"
	"os"

	"github.com/devbydijah/todolist/internal/todo/schema"
	"github.com/devbydijah/todolist/internal/ui"
	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "sync",
	Short:   "Show store, mirror and sync status",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			todos, err := a.facade.List(ctx)
			if err != nil {
				return err
			}
			var completed, pending int
			for _, t := range todos {
				if t.Completed {
					completed++
				}
				if t.IsPending() {
					pending++
				}
			}

			snap, err := a.facade.Snapshot()
			if err != nil {
				return err
			}
			mirrorState := ui.RenderPass("in step with store")
			if !cmp.Equal(schema.Project(todos), snap) {
				mirrorState = ui.RenderWarn("stale (run 'todosync list' to rebuild)")
			}

			mirrorPath := a.facade.Cache().Path()
			mirrorInfo := "not written yet"
			if info, err := os.Stat(mirrorPath); err == nil {
				mirrorInfo = fmt.Sprintf("%s, modified %s", formatSize(info.Size()), info.ModTime().Format("2006-01-02 15:04:05"))
			}

			configFile := a.cfg.File
			if configFile == "" {
				configFile = "(defaults)"
			}
			storeLocation := a.cfg.Store.Path
			switch {
			case ephemeral:
				storeLocation = "(in memory)"
			case a.cfg.Store.Driver == "postgres":
				storeLocation = "(postgres dsn)"
			}

			fmt.Printf("\n%s todosync status\n\n", ui.RenderAccent("●"))
			fmt.Printf("Config:    %s\n", configFile)
			fmt.Printf("Store:     %s %s\n", a.cfg.Store.Driver, storeLocation)
			fmt.Printf("Mirror:    %s (%s)\n", mirrorPath, mirrorInfo)
			fmt.Printf("           %s\n", mirrorState)
			fmt.Printf("Remote:    %s\n", a.cfg.Remote.BaseURL)
			fmt.Printf("Todos:     %d total, %d completed, %d pending push\n", len(todos), completed, pending)
			fmt.Println()
			return nil
		})
	},
}

func formatSize(size int64) string {
	switch {
	case size > 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(size)/(1024*1024))
	case size > 1024:
		return fmt.Sprintf("%.1f KB", float64(size)/1024)
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
