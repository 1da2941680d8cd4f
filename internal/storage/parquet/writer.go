package parquet

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"

	"github.com/xtxerr/wifitracker/internal/storage/types"
)

// Options configures the Parquet writers.
type Options struct {
	// Compression algorithm
	Compression CompressionType

	// PageSize is the target page buffer size in bytes
	PageSize int
}

// CompressionType represents a Parquet compression algorithm.
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionZstd
	CompressionLZ4
	CompressionGzip
)

// DefaultOptions returns default Parquet options.
func DefaultOptions() Options {
	return Options{
		Compression: CompressionZstd,
		PageSize:    1024 * 1024, // 1MB
	}
}

// ParseCompressionType parses a compression name as used in config files.
func ParseCompressionType(s string) (CompressionType, error) {
	switch strings.ToLower(s) {
	case "snappy":
		return CompressionSnappy, nil
	case "zstd", "":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	case "gzip":
		return CompressionGzip, nil
	case "none":
		return CompressionNone, nil
	default:
		return CompressionZstd, fmt.Errorf("unknown compression %q", s)
	}
}

// String returns the config name of the compression type.
func (c CompressionType) String() string {
	switch c {
	case CompressionSnappy:
		return "snappy"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	case CompressionGzip:
		return "gzip"
	default:
		return "none"
	}
}

// getCompression returns the parquet-go compression codec.
func getCompression(ct CompressionType) compress.Codec {
	switch ct {
	case CompressionSnappy:
		return &parquet.Snappy
	case CompressionZstd:
		return &parquet.Zstd
	case CompressionLZ4:
		return &parquet.Lz4Raw
	case CompressionGzip:
		return &parquet.Gzip
	default:
		return &parquet.Uncompressed
	}
}

// ErrWriterClosed is returned when writing to a closed writer.
var ErrWriterClosed = fmt.Errorf("parquet writer is closed")

// rowWriter writes rows of one schema to a file.
type rowWriter[T any] struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	writer   *parquet.GenericWriter[T]
	rowCount int64
	closed   bool
}

func newRowWriter[T any](path string, opts Options) (*rowWriter[T], error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	writerOpts := []parquet.WriterOption{
		parquet.Compression(getCompression(opts.Compression)),
	}
	if opts.PageSize > 0 {
		writerOpts = append(writerOpts, parquet.PageBufferSize(opts.PageSize))
	}

	return &rowWriter[T]{
		path:   path,
		file:   f,
		writer: parquet.NewGenericWriter[T](f, writerOpts...),
	}, nil
}

func (w *rowWriter[T]) write(rows []T) error {
	if len(rows) == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}

	n, err := w.writer.Write(rows)
	if err != nil {
		return fmt.Errorf("write rows: %w", err)
	}

	w.rowCount += int64(n)
	return nil
}

// Close flushes the footer and closes the file.
func (w *rowWriter[T]) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("close writer: %w", err)
	}

	return w.file.Close()
}

// RowCount returns the number of rows written.
func (w *rowWriter[T]) RowCount() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rowCount
}

// Path returns the file path.
func (w *rowWriter[T]) Path() string {
	return w.path
}

// ProbeWriter writes probe requests to a Parquet file.
type ProbeWriter struct {
	*rowWriter[ProbeRow]
}

// NewProbeWriter creates a new probe Parquet writer.
func NewProbeWriter(path string, opts Options) (*ProbeWriter, error) {
	w, err := newRowWriter[ProbeRow](path, opts)
	if err != nil {
		return nil, err
	}
	return &ProbeWriter{w}, nil
}

// Write writes requests to the Parquet file.
func (w *ProbeWriter) Write(reqs []types.ProbeRequest) error {
	rows := make([]ProbeRow, len(reqs))
	for i := range reqs {
		rows[i] = ProbeToRow(&reqs[i])
	}
	return w.write(rows)
}

// DeviceWriter writes device snapshots to a Parquet file.
type DeviceWriter struct {
	*rowWriter[DeviceRow]
}

// NewDeviceWriter creates a new device Parquet writer.
func NewDeviceWriter(path string, opts Options) (*DeviceWriter, error) {
	w, err := newRowWriter[DeviceRow](path, opts)
	if err != nil {
		return nil, err
	}
	return &DeviceWriter{w}, nil
}

// Write writes devices to the Parquet file.
func (w *DeviceWriter) Write(devices []*types.Device) error {
	rows := make([]DeviceRow, len(devices))
	for i, d := range devices {
		rows[i] = DeviceToRow(d)
	}
	return w.write(rows)
}

// StationWriter writes station snapshots to a Parquet file.
type StationWriter struct {
	*rowWriter[StationRow]
}

// NewStationWriter creates a new station Parquet writer.
func NewStationWriter(path string, opts Options) (*StationWriter, error) {
	w, err := newRowWriter[StationRow](path, opts)
	if err != nil {
		return nil, err
	}
	return &StationWriter{w}, nil
}

// Write writes stations to the Parquet file.
func (w *StationWriter) Write(stations []*types.Station) error {
	rows := make([]StationRow, len(stations))
	for i, s := range stations {
		rows[i] = StationToRow(s)
	}
	return w.write(rows)
}
