// Package config loads and validates the wifitracker configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xtxerr/wifitracker/config"
)

// Config represents the complete wifitracker configuration.
type Config struct {
	// DataDir is the root directory for the request log, aliases and exports.
	DataDir string `yaml:"data_dir"`

	// Log configures the request log.
	Log LogConfig `yaml:"log"`

	// Aliases configures the alias file.
	Aliases AliasConfig `yaml:"aliases"`

	// Aggregation configures snapshot queries.
	Aggregation AggregationConfig `yaml:"aggregation"`

	// Enrichment configures vendor lookups.
	Enrichment EnrichmentConfig `yaml:"enrichment"`

	// Export configures Parquet archives.
	Export ExportConfig `yaml:"export"`

	// Query configures the analytics query service.
	Query QueryConfig `yaml:"query"`

	// Logging configures diagnostic output.
	Logging LoggingConfig `yaml:"logging"`
}

// LogConfig configures the request log.
type LogConfig struct {
	// File is the log path. Relative paths are resolved against DataDir.
	File string `yaml:"file"`

	// ChunkSize is the number of lines decoded at a time during a scan.
	ChunkSize int `yaml:"chunk_size"`

	// SyncMode is the sync mode: sync, fsync.
	SyncMode string `yaml:"sync_mode"`

	// BufferSize is the append buffer size in bytes.
	BufferSize int `yaml:"buffer_size"`
}

// AliasConfig configures the alias file.
type AliasConfig struct {
	// File is the alias file path. Relative paths are resolved against DataDir.
	File string `yaml:"file"`
}

// AggregationConfig configures snapshot queries.
type AggregationConfig struct {
	// SignalStats adds signal strength statistics to devices.
	SignalStats bool `yaml:"signal_stats"`

	// PercentileAccuracy is the relative accuracy (0.01 = 1% error).
	PercentileAccuracy float64 `yaml:"percentile_accuracy"`
}

// EnrichmentConfig configures vendor lookups.
type EnrichmentConfig struct {
	// Endpoint is the vendor API URL prefix. Empty disables HTTP lookups.
	Endpoint string `yaml:"endpoint"`

	// Workers is the number of concurrent lookups.
	Workers int `yaml:"workers"`

	// Timeout bounds each lookup.
	Timeout time.Duration `yaml:"timeout"`

	// Cache caches vendors by OUI prefix for the lifetime of the process.
	Cache bool `yaml:"cache"`

	// OUIFallback resolves vendors from the built-in IEEE registry when the
	// HTTP lookup fails or is disabled.
	OUIFallback bool `yaml:"oui_fallback"`
}

// ExportConfig configures Parquet archives.
type ExportConfig struct {
	// Dir is the export directory. Relative paths are resolved against DataDir.
	Dir string `yaml:"dir"`

	// Compression is the algorithm: snappy, zstd, lz4, gzip, none.
	Compression string `yaml:"compression"`
}

// QueryConfig configures the query service.
type QueryConfig struct {
	// MemoryLimit is the DuckDB memory limit.
	MemoryLimit string `yaml:"memory_limit"`

	// Timeout is the query timeout.
	Timeout time.Duration `yaml:"timeout"`

	// MaxRows is the maximum number of rows returned.
	MaxRows int `yaml:"max_rows"`
}

// LoggingConfig configures diagnostic output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// JSON switches from text to JSON log lines.
	JSON bool `yaml:"json"`
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir: config.DefaultDataDir,
		Log: LogConfig{
			File:       config.DefaultLogFile,
			ChunkSize:  config.DefaultChunkSize,
			SyncMode:   config.DefaultSyncMode,
			BufferSize: config.DefaultWriteBufferSize,
		},
		Aliases: AliasConfig{
			File: config.DefaultAliasFile,
		},
		Aggregation: AggregationConfig{
			SignalStats:        false,
			PercentileAccuracy: config.DefaultPercentileAccuracy,
		},
		Enrichment: EnrichmentConfig{
			Endpoint:    config.DefaultVendorEndpoint,
			Workers:     config.DefaultVendorWorkers,
			Timeout:     config.DefaultVendorTimeout,
			Cache:       true,
			OUIFallback: true,
		},
		Export: ExportConfig{
			Dir:         config.DefaultExportDir,
			Compression: "zstd",
		},
		Query: QueryConfig{
			MemoryLimit: config.DefaultQueryMemoryLimit,
			Timeout:     config.DefaultQueryTimeout,
			MaxRows:     config.DefaultQueryMaxRows,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
