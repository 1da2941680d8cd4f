// Package parquet archives request log snapshots as Parquet files.
//
// The package provides:
//   - ProbeWriter/ProbeReader for raw probe requests
//   - DeviceWriter/DeviceReader and StationWriter/StationReader for
//     aggregate snapshots
//   - Support for multiple compression algorithms (snappy, zstd, lz4, gzip)
//   - Type conversion between storage types and Parquet rows
//
// Timestamps are stored as microseconds since the Unix epoch; a missing
// timestamp is a null column value.
package parquet

// File names of one exported snapshot, relative to the export directory.
const (
	ProbesFile   = "probes.parquet"
	DevicesFile  = "devices.parquet"
	StationsFile = "stations.parquet"
)
