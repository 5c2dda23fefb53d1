package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/devbydijah/todolist/internal/todo/loadtest"
	"github.com/devbydijah/todolist/internal/ui"
	"github.com/spf13/cobra"
)

var loadtestCmd = &cobra.Command{
	Use:     "loadtest",
	GroupID: "advanced",
	Short:   "Hammer the store with concurrent writers and check the mirror",
	Long: `Run concurrent writers that save, toggle and remove todos, then verify that
the mirror snapshot still equals the projection of the store.

Use --ephemeral to keep the test away from your real data.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := loadtest.DefaultOptions()
		opts.Workers, _ = cmd.Flags().GetInt("workers")
		opts.OpsPerWorker, _ = cmd.Flags().GetInt("ops")
		opts.RemoveEvery, _ = cmd.Flags().GetInt("remove-every")
		opts.Seed, _ = cmd.Flags().GetInt64("seed")

		return withApp(cmd, func(ctx context.Context, a *app) error {
			fmt.Printf("%s Running %d workers x %d ops...\n", ui.RenderAccent("●"), opts.Workers, opts.OpsPerWorker)
			report, err := loadtest.Run(ctx, a.facade, opts)
			if err != nil {
				return err
			}

			fmt.Printf("\nAll operations (%v elapsed):\n", report.Elapsed)
			report.Overall.WriteStats(os.Stdout)

			ops := make([]string, 0, len(report.ByOp))
			for op := range report.ByOp {
				ops = append(ops, string(op))
			}
			sort.Strings(ops)
			for _, op := range ops {
				fmt.Printf("\n%s:\n", op)
				report.ByOp[loadtest.Op(op)].WriteStats(os.Stdout)
			}

			fmt.Println()
			if report.MirrorDiff != "" {
				fmt.Println(report.MirrorDiff)
				return fmt.Errorf("mirror diverged from store (%d records)", report.FinalCount)
			}
			fmt.Printf("%s Mirror matches store (%d records)\n", ui.RenderPass("✓"), report.FinalCount)
			return nil
		})
	},
}

func init() {
	defaults := loadtest.DefaultOptions()
	loadtestCmd.Flags().Int("workers", defaults.Workers, "concurrent writers")
	loadtestCmd.Flags().Int("ops", defaults.OpsPerWorker, "operations per writer")
	loadtestCmd.Flags().Int("remove-every", defaults.RemoveEvery, "every Nth operation is a remove (0 disables)")
	loadtestCmd.Flags().Int64("seed", defaults.Seed, "random seed")
	rootCmd.AddCommand(loadtestCmd)
}
