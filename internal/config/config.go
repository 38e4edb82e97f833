// Package config loads and validates the pulsewatch daemon
// configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete daemon configuration.
type Config struct {
	// Database configures the DuckDB store.
	Database DatabaseConfig `yaml:"database"`

	// Logging configures log output.
	Logging LoggingConfig `yaml:"logging"`

	// Sweep configures the retention sweep.
	Sweep SweepConfig `yaml:"sweep"`

	// Features configures optional features.
	Features FeaturesConfig `yaml:"features"`
}

// DatabaseConfig configures the DuckDB store.
type DatabaseConfig struct {
	// Path is the database file. Empty opens an in-memory database.
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open connections.
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	MaxIdleConns int `yaml:"max_idle_conns"`

	// QueryTimeout is the default timeout for queries.
	QueryTimeout Duration `yaml:"query_timeout"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// JSON switches output to JSON format.
	JSON bool `yaml:"json"`

	// File is the rotated log file path. Empty logs to stdout only.
	File string `yaml:"file"`

	// FileMaxSizeMB is the rotation size.
	FileMaxSizeMB int `yaml:"file_max_size_mb"`

	// FileMaxBackups is the number of rotated files kept.
	FileMaxBackups int `yaml:"file_max_backups"`

	// FileMaxAgeDays is the age limit for rotated files.
	FileMaxAgeDays int `yaml:"file_max_age_days"`
}

// SweepConfig configures the retention sweep.
type SweepConfig struct {
	// Interval between scheduled sweeps.
	Interval Duration `yaml:"interval"`

	// Workers is the number of targets tiered in parallel.
	Workers int `yaml:"workers"`

	// DeleteBatchSize is the number of ids deleted per statement.
	DeleteBatchSize int `yaml:"delete_batch_size"`

	// DeleteRatePerSec paces delete batches so sweeps do not starve
	// the ingest path. Zero disables pacing.
	DeleteRatePerSec float64 `yaml:"delete_rate_per_sec"`

	// MaxRowsPerTarget caps raw rows per target regardless of age.
	MaxRowsPerTarget int `yaml:"max_rows_per_target"`
}

// FeaturesConfig configures optional features.
type FeaturesConfig struct {
	// Percentile configures DDSketch latency percentile tracking.
	Percentile PercentileConfig `yaml:"percentile"`

	// Archive configures Parquet archiving of expired rows.
	Archive ArchiveConfig `yaml:"archive"`
}

// PercentileConfig configures DDSketch latency percentile tracking.
type PercentileConfig struct {
	// Enabled enables percentile tracking.
	Enabled bool `yaml:"enabled"`

	// Accuracy is the relative accuracy (0.01 = 1% error).
	Accuracy float64 `yaml:"accuracy"`
}

// ArchiveConfig configures Parquet archiving of expired rows.
type ArchiveConfig struct {
	// Enabled archives rows to Parquet before hard deletion.
	Enabled bool `yaml:"enabled"`

	// Dir is the archive directory.
	Dir string `yaml:"dir"`

	// Compression is the Parquet compression: snappy, zstd, lz4, none.
	Compression string `yaml:"compression"`
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:         "/var/lib/pulsewatch/pulsewatch.db",
			MaxOpenConns: 25,
			MaxIdleConns: 5,
			QueryTimeout: Duration(30 * time.Second),
		},
		Logging: LoggingConfig{
			Level:          "info",
			FileMaxSizeMB:  10,
			FileMaxBackups: 5,
			FileMaxAgeDays: 14,
		},
		Sweep: SweepConfig{
			Interval:         Duration(24 * time.Hour),
			Workers:          1,
			DeleteBatchSize:  500,
			DeleteRatePerSec: 20,
			MaxRowsPerTarget: 100000,
		},
		Features: FeaturesConfig{
			Percentile: PercentileConfig{
				Enabled:  true,
				Accuracy: 0.01,
			},
			Archive: ArchiveConfig{
				Enabled:     false,
				Dir:         "/var/lib/pulsewatch/archive",
				Compression: "zstd",
			},
		},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Sweep.Interval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got %v", c.Sweep.Interval.Duration())
	}
	if c.Sweep.Workers <= 0 {
		return fmt.Errorf("sweep workers must be positive, got %d", c.Sweep.Workers)
	}
	if c.Sweep.DeleteBatchSize <= 0 {
		return fmt.Errorf("delete batch size must be positive, got %d", c.Sweep.DeleteBatchSize)
	}
	if c.Sweep.DeleteRatePerSec < 0 {
		return fmt.Errorf("delete rate must not be negative, got %v", c.Sweep.DeleteRatePerSec)
	}
	if c.Sweep.MaxRowsPerTarget <= 0 {
		return fmt.Errorf("max rows per target must be positive, got %d", c.Sweep.MaxRowsPerTarget)
	}

	if c.Features.Percentile.Enabled {
		if c.Features.Percentile.Accuracy <= 0 || c.Features.Percentile.Accuracy >= 1 {
			return fmt.Errorf("percentile accuracy must be in (0, 1), got %v", c.Features.Percentile.Accuracy)
		}
	}

	if c.Features.Archive.Enabled {
		if c.Features.Archive.Dir == "" {
			return fmt.Errorf("archive dir required when archiving is enabled")
		}
		switch c.Features.Archive.Compression {
		case "snappy", "zstd", "lz4", "gzip", "none", "":
		default:
			return fmt.Errorf("invalid archive compression: %s", c.Features.Archive.Compression)
		}
	}

	return nil
}

// Duration is a time.Duration that unmarshals from YAML strings like
// "6h" or "90s", or from a plain integer interpreted as seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		var i int
		if err := unmarshal(&i); err != nil {
			return err
		}
		*d = Duration(time.Duration(i) * time.Second)
		return nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
