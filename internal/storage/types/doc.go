// Package types defines the core data types shared by the storage packages.
//
// Key types:
//   - ProbeRequest: one captured probe, the atomic unit of the request log
//   - Device: per-MAC aggregate rebuilt from the log on every query
//   - Station: per-SSID aggregate rebuilt from the log on every query
//   - SignalSummary: optional signal strength statistics of a device
package types
