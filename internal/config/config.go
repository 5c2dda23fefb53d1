// Package config loads todosync settings from todosync.yaml and TODOSYNC_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// TODOSYNC_STORE_DRIVER overrides store.driver.
const EnvPrefix = "TODOSYNC"

// Config holds every setting the CLI and daemon read.
type Config struct {
	DataDir   string          `mapstructure:"data_dir"`
	Store     StoreConfig     `mapstructure:"store"`
	Mirror    MirrorConfig    `mapstructure:"mirror"`
	Remote    RemoteConfig    `mapstructure:"remote"`
	Log       LogConfig       `mapstructure:"log"`
	Daemon    DaemonConfig    `mapstructure:"daemon"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Path   string `mapstructure:"path"`
}

type MirrorConfig struct {
	Path string `mapstructure:"path"`
}

type RemoteConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

type DaemonConfig struct {
	SyncInterval time.Duration `mapstructure:"sync_interval"`
	Debounce     time.Duration `mapstructure:"debounce"`
}

type DashboardConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", ".todosync")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.path", "")
	v.SetDefault("mirror.path", "")
	v.SetDefault("remote.base_url", "https://jsonplaceholder.typicode.com")
	v.SetDefault("remote.timeout", 15*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("daemon.sync_interval", 30*time.Second)
	v.SetDefault("daemon.debounce", 200*time.Millisecond)
	v.SetDefault("dashboard.host", "127.0.0.1")
	v.SetDefault("dashboard.port", 8080)
}

// Load reads configuration. An explicit path must exist; otherwise
// todosync.yaml is searched in $XDG_CONFIG_HOME/todosync and the working
// directory, and a missing file just means defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("todosync")
		v.SetConfigType("yaml")
		if dir := configHome(); dir != "" {
			v.AddConfigPath(filepath.Join(dir, "todosync"))
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	cfg.applyDerived()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func configHome() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return dir
}

// applyDerived fills paths that default to locations under DataDir.
func (c *Config) applyDerived() {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	if c.Store.Path == "" {
		c.Store.Path = filepath.Join(c.DataDir, "todos.db")
	}
	if c.Mirror.Path == "" {
		c.Mirror.Path = filepath.Join(c.DataDir, "mirror.json")
	}
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite", "memory":
	case "postgres":
		if strings.TrimSpace(c.Store.DSN) == "" {
			return fmt.Errorf("store.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("store.driver %q is not one of sqlite, postgres, memory", c.Store.Driver)
	}
	if c.Mirror.Path == "" {
		return fmt.Errorf("mirror.path must not be empty")
	}
	if c.Remote.BaseURL == "" {
		return fmt.Errorf("remote.base_url must not be empty")
	}
	if c.Remote.Timeout <= 0 {
		return fmt.Errorf("remote.timeout must be positive, got %v", c.Remote.Timeout)
	}
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("log.format %q is not one of console, json", c.Log.Format)
	}
	if c.Daemon.SyncInterval <= 0 {
		return fmt.Errorf("daemon.sync_interval must be positive, got %v", c.Daemon.SyncInterval)
	}
	if c.Daemon.Debounce < 0 {
		return fmt.Errorf("daemon.debounce must not be negative")
	}
	if c.Dashboard.Port < 0 || c.Dashboard.Port > 65535 {
		return fmt.Errorf("dashboard.port %d out of range", c.Dashboard.Port)
	}
	return nil
}
