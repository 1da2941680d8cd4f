// Package config provides configuration defaults for wifitracker.
//
// This package defines all configurable constants with documented defaults.
// Users can override these values via config.yaml.
package config

import "time"

// =============================================================================
// Storage Defaults
// =============================================================================

const (
	// DefaultDataDir is the directory holding the request log and alias file.
	// Override via config: data_dir
	DefaultDataDir = "/var/lib/wifitracker"

	// DefaultLogFile is the request log file name, relative to the data dir.
	// Override via config: log.file
	DefaultLogFile = "requests"

	// DefaultAliasFile is the alias file name, relative to the data dir.
	// Override via config: aliases.file
	DefaultAliasFile = "aliases.csv"

	// DefaultExportDir is the Parquet export directory, relative to the data dir.
	// Override via config: export.dir
	DefaultExportDir = "exports"
)

// =============================================================================
// Event Log Defaults
// =============================================================================

const (
	// DefaultChunkSize is the number of raw lines read per chunk when the
	// log is replayed. Bounds peak memory during a scan.
	// Override via config: log.chunk_size
	DefaultChunkSize = 10000

	// DefaultSyncMode makes every append durable before it returns.
	// "sync" flushes to the OS only, "fsync" also syncs the file.
	// Override via config: log.sync_mode
	DefaultSyncMode = "fsync"

	// DefaultWriteBufferSize is the size of the append buffer.
	// Override via config: log.buffer_size
	DefaultWriteBufferSize = 64 * 1024
)

// =============================================================================
// Aggregation Defaults
// =============================================================================

const (
	// DefaultPercentileAccuracy is the DDSketch relative accuracy used for
	// signal strength percentiles.
	// Override via config: aggregation.percentile_accuracy
	DefaultPercentileAccuracy = 0.01
)

// =============================================================================
// Vendor Enrichment Defaults
// =============================================================================

const (
	// DefaultVendorEndpoint is the MAC vendor lookup API. The MAC address is
	// appended to this URL.
	// Override via config: enrichment.endpoint
	DefaultVendorEndpoint = "https://www.macvendorlookup.com/api/v2/"

	// DefaultVendorWorkers is the number of concurrent lookups. The HTTP
	// connection pool is sized to the same value.
	// Override via config: enrichment.workers
	DefaultVendorWorkers = 100

	// DefaultVendorTimeout bounds a single vendor lookup.
	// Override via config: enrichment.timeout
	DefaultVendorTimeout = 10 * time.Second
)

// =============================================================================
// Query Defaults
// =============================================================================

const (
	// DefaultQueryMemoryLimit is the DuckDB memory limit.
	// Override via config: query.memory_limit
	DefaultQueryMemoryLimit = "1GB"

	// DefaultQueryTimeout bounds a single analytics query.
	// Override via config: query.timeout
	DefaultQueryTimeout = 30 * time.Second

	// DefaultQueryMaxRows caps rows returned by ad-hoc SQL.
	// Override via config: query.max_rows
	DefaultQueryMaxRows = 100000
)
