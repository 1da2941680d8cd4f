// Package eventlog implements the append-only probe request log.
//
// The log is a single text file holding one encoded request per line. Every
// append writes a newline separator followed by the record, so the file
// starts with an empty line and never ends in a partial newline-terminated
// record.
//
// Reading happens in chunks of raw lines to bound memory on large logs.
// Chunks are decoded through the codec package and replayed in file order.
// The log is assumed to be sorted by capture time: iteration stops before
// the first chunk that starts after the snapshot cutoff. This is an
// optimization, not an enforced invariant; an unsorted log can silently
// include or drop records around the cutoff.
package eventlog
