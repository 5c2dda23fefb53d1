package main

import (
	"context"
	"fmt"

	todosync "github.com/devbydijah/todolist/internal/todo/sync"
	"github.com/devbydijah/todolist/internal/ui"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:       "sync [full|pull|push|seed]",
	GroupID:   "sync",
	Short:     "Reconcile the local store with the remote collection",
	ValidArgs: []string{"full", "pull", "push", "seed"},
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	Long: `Reconcile the local store with the remote collection.

  full  pull every remote todo, then push local pending todos (default)
  pull  overwrite local records with remote ones, skipping pending edits
  push  create every pending local todo on the remote
  seed  pull only when the local store is empty

A record that fails is reported and does not stop the others.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mode := "full"
		if len(args) == 1 {
			mode = args[0]
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if _, err := a.facade.LoadAll(ctx); err != nil {
				return err
			}

			s := a.syncer()
			var pass func(context.Context) (*todosync.Report, error)
			switch mode {
			case "pull":
				pass = s.PullAll
			case "push":
				pass = s.PushPending
			case "seed":
				pass = s.Seed
			default:
				pass = s.FullSync
			}

			fmt.Printf("%s Syncing with %s...\n", ui.RenderAccent("↻"), a.cfg.Remote.BaseURL)
			report, err := pass(ctx)
			if report != nil {
				printReport(report)
			}
			if err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}
			if n := len(report.Failed()); n > 0 {
				return fmt.Errorf("%d record(s) failed to sync", n)
			}
			return nil
		})
	},
}

func printReport(r *todosync.Report) {
	mark := ui.RenderPass("✓")
	if len(r.Failed()) > 0 {
		mark = ui.RenderWarn("⚠")
	}
	fmt.Printf("%s %s\n", mark, r.Summary())
	for _, res := range r.Failed() {
		fmt.Printf("   %s %s #%d: %v\n", ui.RenderFail("✗"), res.Direction, res.ID, res.Err)
	}
	for _, res := range r.Skipped() {
		fmt.Printf("   %s %s #%d: %s\n", ui.RenderMuted("-"), res.Direction, res.ID, res.Reason)
	}
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
