// Command todosync manages a local todo list that is mirrored to a JSON
// snapshot and reconciled with a remote todo collection.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/devbydijah/todolist/internal/config"
	"github.com/devbydijah/todolist/internal/logging"
	"github.com/devbydijah/todolist/internal/todo/db"
	"github.com/devbydijah/todolist/internal/todo/facade"
	"github.com/devbydijah/todolist/internal/todo/mirror"
	"github.com/devbydijah/todolist/internal/todo/remote"
	todosync "github.com/devbydijah/todolist/internal/todo/sync"
	"github.com/devbydijah/todolist/internal/ui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	ephemeral  bool
	verbose    bool
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:   "todosync",
	Short: "Local-first todo list with a mirrored snapshot and remote sync",
	Long: `todosync keeps todos in a local store, rewrites a reduced JSON snapshot
after every change, and reconciles the store with a remote todo collection.

Configuration is read from todosync.yaml ($XDG_CONFIG_HOME/todosync or the
working directory) and TODOSYNC_* environment variables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			ui.DisableColor()
		}
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "todos", Title: "Todos:"},
		&cobra.Group{ID: "sync", Title: "Sync:"},
		&cobra.Group{ID: "advanced", Title: "Advanced:"},
	)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: todosync.yaml)")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "use an in-memory store and a throwaway snapshot")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ui.RenderFail("Error:"), err)
		os.Exit(1)
	}
}

// app is everything a command needs once configuration is loaded.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  db.Store
	facade *facade.Facade

	tmpDir string
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}

	storeCfg := db.Config{Driver: cfg.Store.Driver, Path: cfg.Store.Path, DSN: cfg.Store.DSN}
	mirrorPath := cfg.Mirror.Path
	if ephemeral {
		a.tmpDir, err = os.MkdirTemp("", "todosync-")
		if err != nil {
			return nil, fmt.Errorf("failed to create scratch directory: %w", err)
		}
		storeCfg = db.Config{Driver: db.DriverMemory}
		mirrorPath = filepath.Join(a.tmpDir, "mirror.json")
	}

	a.store, err = db.Open(ctx, storeCfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.facade = facade.New(a.store, mirror.New(mirrorPath), facade.WithLogger(logger.Named("facade")))

	logger.Debug("opened store",
		zap.String("driver", storeCfg.Driver),
		zap.String("mirror", mirrorPath),
		zap.String("config", cfg.File))
	return a, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logCfg := logging.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	}
	if verbose {
		logCfg.Level = "debug"
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("failed to close store", zap.Error(err))
		}
	}
	if a.tmpDir != "" {
		_ = os.RemoveAll(a.tmpDir)
	}
	_ = a.logger.Sync()
}

func (a *app) remoteClient() *remote.HTTPClient {
	return newRemoteClient(a.cfg)
}

func newRemoteClient(cfg *config.Config) *remote.HTTPClient {
	return remote.NewHTTPClient(cfg.Remote.BaseURL, &http.Client{Timeout: cfg.Remote.Timeout})
}

func (a *app) syncer() todosync.Syncer {
	return todosync.New(a.facade, a.remoteClient(), a.logger.Named("sync"))
}

// withApp opens the app for the duration of fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
