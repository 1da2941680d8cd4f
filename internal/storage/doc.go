// Package storage records probe request sightings and answers snapshot
// queries over them.
//
// Architecture:
//
//	┌─────────────┐     ┌─────────────┐     ┌─────────────┐
//	│   Codec     │────▶│  Event Log  │────▶│  Aggregate  │
//	│ (JSON line) │     │  (chunked)  │     │   Engine    │
//	└─────────────┘     └─────────────┘     └─────────────┘
//	                                               │
//	                         ┌─────────────────────┼─────────────┐
//	                         ▼                     ▼             ▼
//	                  ┌─────────────┐      ┌─────────────┐ ┌───────────┐
//	                  │ Alias Store │      │   Vendor    │ │  Parquet  │
//	                  │   (CSV)     │      │  Enricher   │ │  Export   │
//	                  └─────────────┘      └─────────────┘ └───────────┘
//	                                                             │
//	                                                             ▼
//	                                                       ┌───────────┐
//	                                                       │  DuckDB   │
//	                                                       │  Queries  │
//	                                                       └───────────┘
//
// The storage system provides:
//   - Append-only request log, one JSON object per line
//   - Snapshots of devices and stations as of any cutoff time
//   - Tolerance of corrupt lines and approximately ordered logs
//   - Device aliases kept in a separate CSV file
//   - Concurrent vendor enrichment with a bounded worker pool
//   - DDSketch-based signal strength percentiles
//   - Parquet export and DuckDB analytics over the export
package storage
