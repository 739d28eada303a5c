package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/Veraticus/rd-classifier/internal/common"
	"github.com/Veraticus/rd-classifier/internal/model"
	"github.com/spf13/viper"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverFile     = "file"
	DriverRemote   = "remote"
)

// StoreConfig selects where rule profiles are kept.
type StoreConfig struct {
	Driver string
	Path   string
	DSN    string
	URL    string
}

// ClassifyConfig holds defaults for classification runs.
type ClassifyConfig struct {
	Mode        model.Mode
	Profile     string
	OutputDir   string
	Concurrency int
}

// ServerConfig holds settings for the config API server.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
	TLS            bool
}

// SetDefaults registers default values for every rdc key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("store.path", filepath.Join(DataDir(), "rdc.db"))
	v.SetDefault("classify.mode", string(model.ModeRD03))
	v.SetDefault("classify.output_dir", ".")
	v.SetDefault("classify.concurrency", min(runtime.NumCPU(), 4))
	v.SetDefault("server.addr", "127.0.0.1:8787")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
}

// LoadStoreConfig reads the store.* keys from v.
func LoadStoreConfig(v *viper.Viper) (StoreConfig, error) {
	c := StoreConfig{
		Driver: strings.ToLower(strings.TrimSpace(v.GetString("store.driver"))),
		Path:   ExpandPath(v.GetString("store.path")),
		DSN:    v.GetString("store.dsn"),
		URL:    v.GetString("store.url"),
	}
	return c, c.Validate()
}

// Validate checks that the selected driver has what it needs.
func (c StoreConfig) Validate() error {
	switch c.Driver {
	case DriverSQLite, DriverFile:
		if c.Path == "" {
			return fmt.Errorf("%w: store.path is required for the %s driver", common.ErrMissingConfig, c.Driver)
		}
	case DriverPostgres:
		if c.DSN == "" {
			return fmt.Errorf("%w: store.dsn is required for the postgres driver", common.ErrMissingConfig)
		}
	case DriverRemote:
		if c.URL == "" {
			return fmt.Errorf("%w: store.url is required for the remote driver", common.ErrMissingConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store driver %q", common.ErrInvalidConfig, c.Driver)
	}
	return nil
}

// LoadClassifyConfig reads the classify.* keys from v.
func LoadClassifyConfig(v *viper.Viper) (ClassifyConfig, error) {
	mode, err := model.ParseMode(v.GetString("classify.mode"))
	if err != nil {
		return ClassifyConfig{}, fmt.Errorf("%w: classify.mode: %w", common.ErrInvalidConfig, err)
	}
	c := ClassifyConfig{
		Mode:        mode,
		Profile:     v.GetString("classify.profile"),
		OutputDir:   ExpandPath(v.GetString("classify.output_dir")),
		Concurrency: v.GetInt("classify.concurrency"),
	}
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	return c, nil
}

// LoadServerConfig reads the server.* keys from v.
func LoadServerConfig(v *viper.Viper) ServerConfig {
	return ServerConfig{
		Addr:           v.GetString("server.addr"),
		AllowedOrigins: v.GetStringSlice("server.allowed_origins"),
		TLS:            v.GetBool("server.tls"),
	}
}
