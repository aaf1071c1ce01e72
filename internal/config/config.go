package config

import (
	"fmt"
	"time"

	"github.com/Veraticus/flavyr/internal/benchmark"
	"github.com/Veraticus/flavyr/internal/common"
	"github.com/Veraticus/flavyr/internal/recommend"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment overrides, e.g. FLAVYR_DATABASE_PATH.
const EnvPrefix = "FLAVYR"

// DefaultDatabasePath is used when database.path is unset.
const DefaultDatabasePath = "$HOME/.local/share/flavyr/flavyr.db"

// Config is the resolved application configuration.
type Config struct {
	Database DatabaseConfig
	Logging  LoggingConfig
	Server   ServerConfig
	Analysis AnalysisConfig
}

// DatabaseConfig locates the SQLite catalogue.
type DatabaseConfig struct {
	Path string
	// SeedFile replaces the built-in catalogue when set.
	SeedFile string
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string
	Format string
}

// AnalysisConfig tunes the recommendation pipeline.
type AnalysisConfig struct {
	Threshold           float64
	TopLimit            int
	BenchmarkSampleSize int
	Locations           int
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", DefaultDatabasePath)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("analysis.threshold", benchmark.DefaultThreshold)
	v.SetDefault("analysis.top_limit", recommend.DefaultTopLimit)
	v.SetDefault("analysis.benchmark_sample_size", 500)
	v.SetDefault("analysis.locations", 1)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_upload_bytes", int64(10<<20))
}

// Load resolves the configuration from v, applying defaults first.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	cfg := &Config{
		Database: DatabaseConfig{
			Path:     ExpandPath(v.GetString("database.path")),
			SeedFile: ExpandPath(v.GetString("database.seed_file")),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Analysis: AnalysisConfig{
			Threshold:           v.GetFloat64("analysis.threshold"),
			TopLimit:            v.GetInt("analysis.top_limit"),
			BenchmarkSampleSize: v.GetInt("analysis.benchmark_sample_size"),
			Locations:           v.GetInt("analysis.locations"),
		},
		Server: ServerConfig{
			Addr:            v.GetString("server.addr"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
			MaxUploadBytes:  v.GetInt64("server.max_upload_bytes"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path", common.ErrMissingConfig)
	}
	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: logging.format must be console or json, got %q", common.ErrInvalidConfig, c.Logging.Format)
	}
	if c.Analysis.Threshold > 0 {
		return fmt.Errorf("%w: analysis.threshold must not be positive", common.ErrInvalidConfig)
	}
	if c.Analysis.TopLimit < 0 {
		return fmt.Errorf("%w: analysis.top_limit cannot be negative", common.ErrInvalidConfig)
	}
	if c.Analysis.BenchmarkSampleSize < 0 || c.Analysis.Locations < 0 {
		return fmt.Errorf("%w: analysis sample sizes cannot be negative", common.ErrInvalidConfig)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("%w: server.max_upload_bytes must be positive", common.ErrInvalidConfig)
	}
	return nil
}
