// Package config loads opsportal settings from defaults, an optional YAML
// file and OPSPORTAL_* environment variables, in that order of precedence.
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

const (
	// AppName is the application directory name under $HOME.
	AppName = "opsportal"

	// EnvPrefix prefixes every environment override, e.g. OPSPORTAL_SYNC_WORKERS.
	EnvPrefix = "OPSPORTAL"
)

// Config is the full application configuration.
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Docstore   DocstoreConfig   `mapstructure:"docstore"`
	Relational RelationalConfig `mapstructure:"relational"`
	Sync       SyncConfig       `mapstructure:"sync"`
}

// LogConfig controls the logrus logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DocstoreConfig selects and configures the document store.
type DocstoreConfig struct {
	// Driver is "local" (sqlite file) or "firestore".
	Driver string `mapstructure:"driver"`

	// Path is the sqlite file used by the local driver.
	Path string `mapstructure:"path"`

	ProjectID       string `mapstructure:"project_id"`
	DatabaseID      string `mapstructure:"database_id"`
	CredentialsFile string `mapstructure:"credentials_file"`

	// Endpoint overrides the Firestore API endpoint, e.g. an emulator.
	Endpoint string `mapstructure:"endpoint"`

	PageSize int `mapstructure:"page_size"`
}

// RelationalConfig selects and configures the relational store.
type RelationalConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn"`
}

// SyncConfig tunes the document→relational sync coordinator.
type SyncConfig struct {
	Workers     int           `mapstructure:"workers"`
	MaxDuration time.Duration `mapstructure:"max_duration"`
	OnWrite     bool          `mapstructure:"on_write"`
}

// Load reads configuration. An empty path means the default file location,
// which is allowed to be missing; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigFile(DefaultConfigPath())
		if err := v.ReadInConfig(); err != nil && !isMissing(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks driver names and numeric bounds.
func (c *Config) Validate() error {
	switch c.Docstore.Driver {
	case "local":
		if c.Docstore.Path == "" {
			return errors.New("docstore.path is required for the local driver")
		}
	case "firestore":
		if c.Docstore.ProjectID == "" {
			return errors.New("docstore.project_id is required for the firestore driver")
		}
	default:
		return fmt.Errorf("unknown docstore.driver %q (use local or firestore)", c.Docstore.Driver)
	}

	switch c.Relational.Driver {
	case "sqlite":
		if c.Relational.Path == "" {
			return errors.New("relational.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Relational.DSN == "" {
			return errors.New("relational.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown relational.driver %q (use sqlite or postgres)", c.Relational.Driver)
	}

	if c.Sync.Workers < 1 {
		return fmt.Errorf("sync.workers must be at least 1, got %d", c.Sync.Workers)
	}
	if c.Sync.MaxDuration < 0 {
		return errors.New("sync.max_duration must not be negative")
	}
	return nil
}

// DefaultDir returns ~/.opsportal, or ./.opsportal when $HOME is unknown.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + AppName
	}
	return filepath.Join(home, "."+AppName)
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

func setDefaults(v *viper.Viper) {
	dir := DefaultDir()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("docstore.driver", "local")
	v.SetDefault("docstore.path", filepath.Join(dir, "documents.db"))
	v.SetDefault("docstore.project_id", "")
	v.SetDefault("docstore.database_id", "(default)")
	v.SetDefault("docstore.credentials_file", "")
	v.SetDefault("docstore.endpoint", "")
	v.SetDefault("docstore.page_size", 300)

	v.SetDefault("relational.driver", "sqlite")
	v.SetDefault("relational.path", filepath.Join(dir, "portal.db"))
	v.SetDefault("relational.dsn", "")

	v.SetDefault("sync.workers", 1)
	v.SetDefault("sync.max_duration", 5*time.Minute)
	v.SetDefault("sync.on_write", false)
}

func isMissing(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}
