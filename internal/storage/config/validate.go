package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xtxerr/wifitracker/internal/logging"
	"github.com/xtxerr/wifitracker/internal/storage/parquet"
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	// DataDir
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir is required"))
	}

	// Log
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}

	// Aliases
	if c.Aliases.File == "" {
		errs = append(errs, errors.New("aliases: file is required"))
	}

	// Aggregation
	if err := c.Aggregation.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("aggregation: %w", err))
	}

	// Enrichment
	if err := c.Enrichment.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("enrichment: %w", err))
	}

	// Export
	if err := c.Export.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("export: %w", err))
	}

	// Query
	if err := c.Query.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("query: %w", err))
	}

	// Logging
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the request log configuration.
func (c *LogConfig) Validate() error {
	var errs []error

	if c.File == "" {
		errs = append(errs, errors.New("file is required"))
	}

	if c.ChunkSize <= 0 {
		errs = append(errs, errors.New("chunk_size must be positive"))
	}

	validSyncModes := map[string]bool{
		"sync":  true,
		"fsync": true,
		"":      true, // Empty defaults to fsync
	}
	if !validSyncModes[c.SyncMode] {
		errs = append(errs, errors.New("sync_mode must be one of: sync, fsync"))
	}

	if c.BufferSize < 0 {
		errs = append(errs, errors.New("buffer_size must be non-negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the aggregation configuration.
func (c *AggregationConfig) Validate() error {
	if c.SignalStats && (c.PercentileAccuracy <= 0 || c.PercentileAccuracy >= 1) {
		return errors.New("percentile_accuracy must be between 0 and 1")
	}
	return nil
}

// Validate checks the enrichment configuration.
func (c *EnrichmentConfig) Validate() error {
	var errs []error

	if c.Workers <= 0 {
		errs = append(errs, errors.New("workers must be positive"))
	}

	if c.Timeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}

	if c.Endpoint == "" && !c.OUIFallback {
		errs = append(errs, errors.New("endpoint is required when oui_fallback is disabled"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the export configuration.
func (c *ExportConfig) Validate() error {
	var errs []error

	if c.Dir == "" {
		errs = append(errs, errors.New("dir is required"))
	}

	if _, err := parquet.ParseCompressionType(c.Compression); err != nil {
		errs = append(errs, fmt.Errorf("compression must be one of: snappy, zstd, lz4, gzip, none"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the query configuration.
func (c *QueryConfig) Validate() error {
	var errs []error

	if c.Timeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}

	if c.MaxRows <= 0 {
		errs = append(errs, errors.New("max_rows must be positive"))
	}

	if c.MemoryLimit != "" && parseMemoryLimit(c.MemoryLimit) <= 0 {
		errs = append(errs, fmt.Errorf("memory_limit %q is not a size", c.MemoryLimit))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsureDirectories creates all required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.DataDir,
		filepath.Dir(c.LogPath()),
		filepath.Dir(c.AliasPath()),
		c.ExportDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}

// LogPath returns the request log path.
func (c *Config) LogPath() string {
	return c.resolve(c.Log.File)
}

// AliasPath returns the alias file path.
func (c *Config) AliasPath() string {
	return c.resolve(c.Aliases.File)
}

// ExportDir returns the Parquet export directory.
func (c *Config) ExportDir() string {
	return c.resolve(c.Export.Dir)
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}
