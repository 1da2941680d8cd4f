package eventlog

import (
	"io"
	"log/slog"
	"time"

	"github.com/xtxerr/wifitracker/config"
	"github.com/xtxerr/wifitracker/internal/logging"
	"github.com/xtxerr/wifitracker/internal/storage/codec"
	"github.com/xtxerr/wifitracker/internal/storage/types"
)

// StoreOptions configures chunked reads of the request log.
type StoreOptions struct {
	// ChunkSize is the number of raw lines decoded at a time.
	// Default: 10000
	ChunkSize int

	// Logger receives decode errors. Defaults to the eventlog component logger.
	Logger *slog.Logger
}

// Store replays the request log as decoded chunks. It holds no open file
// and no mutable state, so concurrent scans are safe.
type Store struct {
	path      string
	chunkSize int
	log       *slog.Logger
}

// NewStore creates a store reading the log at path.
func NewStore(path string, opts StoreOptions) *Store {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = config.DefaultChunkSize
	}
	return &Store{
		path:      path,
		chunkSize: opts.ChunkSize,
		log:       logging.OrComponent(opts.Logger, "eventlog"),
	}
}

// Path returns the log path.
func (s *Store) Path() string {
	return s.path
}

// ChunkSize returns the configured chunk size.
func (s *Store) ChunkSize() int {
	return s.chunkSize
}

// Chunk is a decoded batch of requests.
type Chunk struct {
	// Number is the zero-based chunk index.
	Number int

	// Records holds the decoded requests at or before the cutoff, plus
	// requests without a timestamp, in file order.
	Records []types.ProbeRequest

	// Corrupt is the number of lines that failed to decode.
	Corrupt int

	// BadTimestamps is the number of records kept without a capture time
	// because their timestamp did not parse.
	BadTimestamps int
}

// IteratorStats holds statistics of one scan.
type IteratorStats struct {
	Chunks       int64
	Records      int64
	CorruptLines  int64
	BadTimestamps int64
	StoppedEarly  bool
}

// Chunks returns an iterator over the log as of cutoff. A zero cutoff
// includes every record. The file is opened on the first call to Next, so
// every iterator is an independent, restartable scan.
func (s *Store) Chunks(cutoff time.Time) *ChunkIterator {
	return &ChunkIterator{
		store:  s,
		cutoff: cutoff,
	}
}

// ChunkIterator iterates over decoded chunks.
//
//	it := store.Chunks(cutoff)
//	defer it.Close()
//	for it.Next() {
//		for _, r := range it.Chunk().Records { ... }
//	}
//	if err := it.Err(); err != nil { ... }
type ChunkIterator struct {
	store  *Store
	cutoff time.Time

	reader *Reader
	chunk  *Chunk
	done   bool
	err    error

	stats IteratorStats
}

// Next advances to the next chunk. It returns false at the end of the log,
// once a chunk starts after the cutoff, or on an I/O error.
func (it *ChunkIterator) Next() bool {
	if it.done || it.err != nil {
		return false
	}

	if it.reader == nil {
		r, err := NewReader(it.store.path, it.store.chunkSize)
		if err != nil {
			it.err = err
			return false
		}
		it.reader = r
	}

	raw, err := it.reader.ReadChunk()
	if err == io.EOF {
		it.finish()
		return false
	}
	if err != nil {
		it.err = err
		return false
	}

	reqs, lineErrs, badTimestamps := codec.DecodeChunk(raw.Lines)
	for _, le := range lineErrs {
		it.store.log.Error("unable to decode line",
			"file", it.store.path,
			"chunk", raw.Number,
			"line", raw.LineNumbers[le.Index],
			"error", le.Err)
	}
	for _, le := range badTimestamps {
		it.store.log.Warn("invalid capture timestamp, keeping record",
			"file", it.store.path,
			"chunk", raw.Number,
			"line", raw.LineNumbers[le.Index],
			"error", le.Err)
	}

	if first, ok := firstTimestamp(reqs); ok && it.after(first) {
		// Assumes a sorted log: everything from here on is past the cutoff.
		it.store.log.Debug("chunk starts after cutoff, stopping scan",
			"chunk", raw.Number,
			"first_capture", first,
			"cutoff", it.cutoff)
		it.stats.StoppedEarly = true
		it.finish()
		return false
	}

	records := reqs[:0]
	for _, r := range reqs {
		if !r.HasTimestamp() || !it.after(r.CaptureDTS) {
			records = append(records, r)
		}
	}

	it.chunk = &Chunk{
		Number:        raw.Number,
		Records:       records,
		Corrupt:       len(lineErrs),
		BadTimestamps: len(badTimestamps),
	}
	it.stats.Chunks++
	it.stats.Records += int64(len(records))
	it.stats.CorruptLines += int64(len(lineErrs))
	it.stats.BadTimestamps += int64(len(badTimestamps))

	return true
}

// Chunk returns the current chunk.
func (it *ChunkIterator) Chunk() *Chunk {
	return it.chunk
}

// Err returns the I/O error that ended the scan, if any.
func (it *ChunkIterator) Err() error {
	return it.err
}

// Stats returns statistics of the scan so far.
func (it *ChunkIterator) Stats() IteratorStats {
	return it.stats
}

// Close releases the underlying file. It is safe to call more than once.
func (it *ChunkIterator) Close() error {
	it.done = true
	if it.reader == nil {
		return nil
	}
	err := it.reader.Close()
	it.reader = nil
	return err
}

func (it *ChunkIterator) finish() {
	it.done = true
	it.chunk = nil
	if it.reader != nil {
		it.reader.Close()
		it.reader = nil
	}
}

func (it *ChunkIterator) after(t time.Time) bool {
	return !it.cutoff.IsZero() && t.After(it.cutoff)
}

// firstTimestamp returns the capture time of the first request that has one.
func firstTimestamp(reqs []types.ProbeRequest) (time.Time, bool) {
	for _, r := range reqs {
		if r.HasTimestamp() {
			return r.CaptureDTS, true
		}
	}
	return time.Time{}, false
}
