package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xtxerr/wifitracker/config"
)

// Requirements estimates the resources a log of a given size needs.
type Requirements struct {
	// Log
	LogBytes         int64
	EstimatedRecords int64
	Chunks           int64

	// Memory requirements
	PeakChunkBytes   int64
	PeakEntityBytes  int64
	QueryMemoryBytes int64
	TotalRAMBytes    int64

	// Storage requirements
	ExportBytes int64

	// Enrichment
	VendorConnections int
}

// Constants for calculations
const (
	// Bytes per encoded log line, including the separator
	bytesPerLogLine = 110

	// Bytes per decoded request in memory
	bytesPerRequest = 160

	// Bytes per device or station entry in memory, without DDSketch
	bytesPerEntity = 200

	// Bytes per device entry with a DDSketch
	bytesPerEntityWithSketch = 1200

	// Distinct devices per logged request, as observed on busy sites
	entitiesPerRequest = 0.05

	// Compression ratio for Parquet
	compressionRatio = 5
)

// CalculateRequirements computes resource requirements for a request log
// of logBytes bytes.
func (c *Config) CalculateRequirements(logBytes int64) Requirements {
	r := Requirements{LogBytes: logBytes}

	r.EstimatedRecords = logBytes / bytesPerLogLine
	if c.Log.ChunkSize > 0 {
		r.Chunks = (r.EstimatedRecords + int64(c.Log.ChunkSize) - 1) / int64(c.Log.ChunkSize)
	}

	// -------------------------------------------------------------------------
	// Memory Requirements
	// -------------------------------------------------------------------------

	// One chunk of raw lines plus its decoded requests
	r.PeakChunkBytes = int64(c.Log.ChunkSize) * (bytesPerLogLine + bytesPerRequest)

	// Entity maps built by a full snapshot
	perEntity := int64(bytesPerEntity)
	if c.Aggregation.SignalStats {
		perEntity = bytesPerEntityWithSketch
	}
	r.PeakEntityBytes = int64(float64(r.EstimatedRecords)*entitiesPerRequest) * perEntity

	r.QueryMemoryBytes = parseMemoryLimit(c.Query.MemoryLimit)

	r.TotalRAMBytes = r.PeakChunkBytes + r.PeakEntityBytes + r.QueryMemoryBytes

	// -------------------------------------------------------------------------
	// Storage Requirements
	// -------------------------------------------------------------------------

	r.ExportBytes = logBytes / compressionRatio

	r.VendorConnections = c.Enrichment.Workers

	return r
}

// FormatRequirements returns a human-readable summary of requirements.
func (r *Requirements) FormatRequirements() string {
	return fmt.Sprintf(`Resource Requirements
=====================

Log:
  Size:              %s
  Records:           %s
  Chunks:            %s

Memory:
  Chunk:             %s
  Entities:          %s
  Query Engine:      %s
  Total RAM:         %s (peak)

Storage:
  Parquet Export:    %s

Enrichment:
  Connections:       %d
`,
		formatBytes(r.LogBytes),
		formatNumber(r.EstimatedRecords),
		formatNumber(r.Chunks),
		formatBytes(r.PeakChunkBytes),
		formatBytes(r.PeakEntityBytes),
		formatBytes(r.QueryMemoryBytes),
		formatBytes(r.TotalRAMBytes),
		formatBytes(r.ExportBytes),
		r.VendorConnections,
	)
}

// parseMemoryLimit parses a memory limit string like "2GB" into bytes.
func parseMemoryLimit(s string) int64 {
	if s == "" {
		s = config.DefaultQueryMemoryLimit
	}

	s = strings.TrimSpace(s)
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	value, err := strconv.ParseInt(s[:i], 10, 64)
	if err != nil {
		return 0
	}
	unit := strings.TrimSpace(s[i:])

	switch unit {
	case "B", "b", "":
		return value
	case "KB", "kb", "K", "k":
		return value * 1024
	case "MB", "mb", "M", "m":
		return value * 1024 * 1024
	case "GB", "gb", "G", "g":
		return value * 1024 * 1024 * 1024
	case "TB", "tb", "T", "t":
		return value * 1024 * 1024 * 1024 * 1024
	default:
		return 0
	}
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(b int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
		TB = 1024 * GB
	)

	switch {
	case b >= TB:
		return fmt.Sprintf("%.2f TB", float64(b)/float64(TB))
	case b >= GB:
		return fmt.Sprintf("%.2f GB", float64(b)/float64(GB))
	case b >= MB:
		return fmt.Sprintf("%.2f MB", float64(b)/float64(MB))
	case b >= KB:
		return fmt.Sprintf("%.2f KB", float64(b)/float64(KB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatNumber formats a number with thousand separators.
func formatNumber(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	if n < 1000000000 {
		return fmt.Sprintf("%.1fM", float64(n)/1000000)
	}
	return fmt.Sprintf("%.1fB", float64(n)/1000000000)
}
