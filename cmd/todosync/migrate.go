package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/devbydijah/todolist/internal/todo/migrate"
	"github.com/devbydijah/todolist/internal/ui"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:     "export [file]",
	GroupID: "advanced",
	Short:   "Export todos as jsonl, yaml or toml",
	Long: `Export every todo in the store. The format comes from --format or the file
extension; without a file the export is written to stdout.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		formatFlag, _ := cmd.Flags().GetString("format")
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		format, err := resolveFormat(formatFlag, path)
		if err != nil {
			return err
		}

		return withApp(cmd, func(ctx context.Context, a *app) error {
			todos, err := a.facade.LoadAll(ctx)
			if err != nil {
				return err
			}
			if path == "" {
				return migrate.Export(os.Stdout, todos, format)
			}
			if err := migrate.ExportFile(path, todos, format); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "%s Exported %d todos to %s\n", ui.RenderPass("✓"), len(todos), path)
			return nil
		})
	},
}

var importCmd = &cobra.Command{
	Use:     "import [file]",
	GroupID: "advanced",
	Short:   "Import todos from jsonl, yaml or toml",
	Long: `Import todos through the normal save path, so every record is validated and
the mirror is rebuilt. Records are created as new pending todos unless
--keep-ids is given. Invalid records are reported and skipped. Without a file
the input is read from stdin (requires --format).`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		formatFlag, _ := cmd.Flags().GetString("format")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		keepIDs, _ := cmd.Flags().GetBool("keep-ids")

		var (
			in   io.Reader = os.Stdin
			path string
		)
		if len(args) == 1 {
			path = args[0]
		}
		format, err := resolveFormat(formatFlag, path)
		if err != nil {
			return err
		}
		if path != "" {
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", path, err)
			}
			defer f.Close()
			in = f
		}

		return withApp(cmd, func(ctx context.Context, a *app) error {
			if _, err := a.facade.LoadAll(ctx); err != nil {
				return err
			}
			result, err := migrate.Import(ctx, in, a.facade, migrate.Options{
				Format:  format,
				DryRun:  dryRun,
				KeepIDs: keepIDs,
			})
			if err != nil {
				return err
			}

			verb := "Imported"
			if dryRun {
				verb = "Would import"
			}
			fmt.Printf("%s %s %d of %d todos\n", ui.RenderPass("✓"), verb, result.Imported, result.Read)
			for _, msg := range result.Errors {
				fmt.Printf("   %s %s\n", ui.RenderWarn("⚠"), msg)
			}
			return nil
		})
	},
}

func resolveFormat(flag, path string) (migrate.Format, error) {
	if flag != "" {
		return migrate.ParseFormat(flag)
	}
	if path == "" {
		return migrate.FormatJSONL, nil
	}
	return migrate.FormatFromPath(path)
}

func init() {
	exportCmd.Flags().StringP("format", "f", "", "jsonl, yaml or toml (default: from extension, else jsonl)")

	importCmd.Flags().StringP("format", "f", "", "jsonl, yaml or toml (default: from extension, else jsonl)")
	importCmd.Flags().Bool("dry-run", false, "validate without saving")
	importCmd.Flags().Bool("keep-ids", false, "upsert records under their file ids")

	rootCmd.AddCommand(exportCmd, importCmd)
}
