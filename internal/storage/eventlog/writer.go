package eventlog

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/xtxerr/wifitracker/config"
	"github.com/xtxerr/wifitracker/internal/errors"
	"github.com/xtxerr/wifitracker/internal/logging"
	"github.com/xtxerr/wifitracker/internal/storage/codec"
	"github.com/xtxerr/wifitracker/internal/storage/types"
)

// Sync modes.
const (
	// SyncModeSync flushes the append buffer to the OS before returning.
	SyncModeSync = "sync"

	// SyncModeFsync additionally fsyncs the file before returning.
	SyncModeFsync = "fsync"
)

// WriterOptions configures the log writer.
type WriterOptions struct {
	// SyncMode controls how appends reach the disk: "sync" or "fsync".
	// Default: fsync
	SyncMode string

	// BufferSize is the size of the write buffer.
	// Default: 64KB
	BufferSize int

	// Logger receives writer events. Defaults to the eventlog component logger.
	Logger *slog.Logger
}

// DefaultWriterOptions returns default writer options.
func DefaultWriterOptions() WriterOptions {
	return WriterOptions{
		SyncMode:   config.DefaultSyncMode,
		BufferSize: config.DefaultWriteBufferSize,
	}
}

// WriterStats holds log writer statistics.
type WriterStats struct {
	RecordsWritten int64
	BytesWritten   int64
	SyncsPerformed int64
	Errors         int64
}

// Writer appends probe requests to the request log.
//
// Writer is safe for concurrent use; appends never interleave.
type Writer struct {
	mu sync.Mutex

	path   string
	file   *os.File
	writer *bufio.Writer
	closed bool

	opts WriterOptions
	log  *slog.Logger

	// Statistics
	stats WriterStats
}

// OpenWriter opens the log at path for appending, creating the file and
// its directory if needed.
func OpenWriter(path string, opts WriterOptions) (*Writer, error) {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultWriterOptions().BufferSize
	}
	switch opts.SyncMode {
	case "":
		opts.SyncMode = DefaultWriterOptions().SyncMode
	case SyncModeSync, SyncModeFsync:
	default:
		return nil, errors.NewValidation("sync_mode", fmt.Sprintf("unknown mode %q", opts.SyncMode))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log %s: %w", path, err)
	}

	return &Writer{
		path:   path,
		file:   f,
		writer: bufio.NewWriterSize(f, opts.BufferSize),
		opts:   opts,
		log:    logging.OrComponent(opts.Logger, "eventlog"),
	}, nil
}

// Append writes one request and makes it durable before returning.
func (w *Writer) Append(r types.ProbeRequest) error {
	return w.AppendBatch([]types.ProbeRequest{r})
}

// AppendBatch writes requests in order under a single lock and sync.
// Every request is encoded before anything is written, so an encode
// failure leaves the log untouched.
func (w *Writer) AppendBatch(reqs []types.ProbeRequest) error {
	if len(reqs) == 0 {
		return nil
	}

	lines := make([][]byte, len(reqs))
	for i, r := range reqs {
		line, err := codec.Encode(r)
		if err != nil {
			return fmt.Errorf("encode request %d: %w", i, err)
		}
		lines[i] = line
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errors.ErrWriterClosed
	}

	var written int64
	for _, line := range lines {
		if err := w.writer.WriteByte('\n'); err != nil {
			w.stats.Errors++
			return fmt.Errorf("write record: %w", err)
		}
		if _, err := w.writer.Write(line); err != nil {
			w.stats.Errors++
			return fmt.Errorf("write record: %w", err)
		}
		written += int64(len(line) + 1)
	}

	if err := w.syncUnlocked(); err != nil {
		w.stats.Errors++
		return fmt.Errorf("sync: %w", err)
	}

	w.stats.RecordsWritten += int64(len(lines))
	w.stats.BytesWritten += written

	return nil
}

// Sync flushes buffered data to disk.
func (w *Writer) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errors.ErrWriterClosed
	}
	return w.syncUnlocked()
}

func (w *Writer) syncUnlocked() error {
	if err := w.writer.Flush(); err != nil {
		return err
	}

	if w.opts.SyncMode == SyncModeFsync {
		if err := w.file.Sync(); err != nil {
			return err
		}
	}

	w.stats.SyncsPerformed++
	return nil
}

// Close flushes and closes the log file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.writer.Flush(); err != nil {
		w.file.Close()
		return fmt.Errorf("flush: %w", err)
	}

	w.log.Debug("request log closed", "path", w.path, "records", w.stats.RecordsWritten)
	return w.file.Close()
}

// Stats returns writer statistics.
func (w *Writer) Stats() WriterStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Path returns the log file path.
func (w *Writer) Path() string {
	return w.path
}
