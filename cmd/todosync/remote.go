package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/devbydijah/todolist/internal/config"
	"github.com/devbydijah/todolist/internal/todo/migrate"
	"github.com/devbydijah/todolist/internal/todo/remote"
	"github.com/devbydijah/todolist/internal/todo/schema"
	"github.com/devbydijah/todolist/internal/ui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var remoteCmd = &cobra.Command{
	Use:     "remote",
	GroupID: "sync",
	Short:   "Inspect or emulate the remote todo collection",
}

var remoteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List one page of remote todos",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		page, _ := cmd.Flags().GetInt("page")
		limit, _ := cmd.Flags().GetInt("limit")

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		todos, err := newRemoteClient(cfg).List(cmd.Context(), page, limit)
		if err != nil {
			return err
		}
		for _, t := range todos {
			printLine(t.ID, t.Title, t.Completed, false)
		}
		fmt.Println(ui.RenderMuted(fmt.Sprintf("page %d, %d todo(s) from %s", page, len(todos), cfg.Remote.BaseURL)))
		return nil
	},
}

var remoteServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run an in-memory remote collection for local testing",
	Long: `Run an in-memory todo collection speaking the same REST shape as the
default remote. Point remote.base_url at it to sync without the network.

  todosync remote serve --port 3000 --seed todos.jsonl
  TODOSYNC_REMOTE_BASE_URL=http://127.0.0.1:3000 todosync sync`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")
		seedPath, _ := cmd.Flags().GetString("seed")

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		srv := remote.NewServer(logger.Named("remote"))
		if seedPath != "" {
			todos, err := readTodosFile(seedPath)
			if err != nil {
				return err
			}
			srv.Seed(todos...)
		}

		if err := srv.Start(fmt.Sprintf("127.0.0.1:%d", port)); err != nil {
			return fmt.Errorf("failed to start remote: %w", err)
		}
		fmt.Printf("%s Remote collection listening on http://%s (%d todos)\n",
			ui.RenderAccent("●"), srv.Addr(), srv.Len())
		fmt.Println("\nPress Ctrl+C to stop...")

		<-cmd.Context().Done()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Stop(ctx); err != nil {
			logger.Warn("remote shutdown", zap.Error(err))
		}
		fmt.Println("Remote collection stopped")
		return nil
	},
}

func init() {
	remoteListCmd.Flags().Int("page", 1, "page number")
	remoteListCmd.Flags().Int("limit", 10, "todos per page")

	remoteServeCmd.Flags().IntP("port", "p", 3000, "port to listen on")
	remoteServeCmd.Flags().String("seed", "", "jsonl, yaml or toml file to preload")

	remoteCmd.AddCommand(remoteListCmd, remoteServeCmd)
	rootCmd.AddCommand(remoteCmd)
}

// readTodosFile decodes an export file, picking the format from its extension.
func readTodosFile(path string) ([]schema.Todo, error) {
	format, err := migrate.FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return migrate.Decode(f, format)
}
