package parquet

import (
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/xtxerr/wifitracker/internal/storage/types"
)

// rowReader reads rows of one schema from a file.
type rowReader[T any] struct {
	file   *os.File
	reader *parquet.GenericReader[T]
	path   string
}

func newRowReader[T any](path string) (*rowReader[T], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	return &rowReader[T]{
		file:   f,
		reader: parquet.NewGenericReader[T](f, parquet.ReadBufferSize(1024*1024)),
		path:   path,
	}, nil
}

// read reads up to n rows. It returns io.EOF once the file is exhausted.
func (r *rowReader[T]) read(n int) ([]T, error) {
	rows := make([]T, n)
	count, err := r.reader.Read(rows)
	if count > 0 && err == io.EOF {
		err = nil
	}
	if err != nil {
		return nil, err
	}
	return rows[:count], nil
}

func (r *rowReader[T]) readAll() ([]T, error) {
	rows := make([]T, r.reader.NumRows())
	if len(rows) == 0 {
		return rows, nil
	}

	n, err := r.reader.Read(rows)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return rows[:n], nil
}

// NumRows returns the total number of rows in the file.
func (r *rowReader[T]) NumRows() int64 {
	return r.reader.NumRows()
}

// Close closes the reader.
func (r *rowReader[T]) Close() error {
	if err := r.reader.Close(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}

// Path returns the file path.
func (r *rowReader[T]) Path() string {
	return r.path
}

// ProbeReader reads probe requests from a Parquet file.
type ProbeReader struct {
	*rowReader[ProbeRow]
}

// NewProbeReader creates a new probe Parquet reader.
func NewProbeReader(path string) (*ProbeReader, error) {
	r, err := newRowReader[ProbeRow](path)
	if err != nil {
		return nil, err
	}
	return &ProbeReader{r}, nil
}

// Read reads up to n requests from the file.
func (r *ProbeReader) Read(n int) ([]types.ProbeRequest, error) {
	rows, err := r.read(n)
	if err != nil {
		return nil, err
	}
	return toProbes(rows), nil
}

// ReadAll reads all requests from the file.
func (r *ProbeReader) ReadAll() ([]types.ProbeRequest, error) {
	rows, err := r.readAll()
	if err != nil {
		return nil, err
	}
	return toProbes(rows), nil
}

func toProbes(rows []ProbeRow) []types.ProbeRequest {
	reqs := make([]types.ProbeRequest, len(rows))
	for i := range rows {
		reqs[i] = RowToProbe(&rows[i])
	}
	return reqs
}

// DeviceReader reads device snapshots from a Parquet file.
type DeviceReader struct {
	*rowReader[DeviceRow]
}

// NewDeviceReader creates a new device Parquet reader.
func NewDeviceReader(path string) (*DeviceReader, error) {
	r, err := newRowReader[DeviceRow](path)
	if err != nil {
		return nil, err
	}
	return &DeviceReader{r}, nil
}

// ReadAll reads all devices from the file.
func (r *DeviceReader) ReadAll() ([]*types.Device, error) {
	rows, err := r.readAll()
	if err != nil {
		return nil, err
	}
	devices := make([]*types.Device, len(rows))
	for i := range rows {
		devices[i] = RowToDevice(&rows[i])
	}
	return devices, nil
}

// StationReader reads station snapshots from a Parquet file.
type StationReader struct {
	*rowReader[StationRow]
}

// NewStationReader creates a new station Parquet reader.
func NewStationReader(path string) (*StationReader, error) {
	r, err := newRowReader[StationRow](path)
	if err != nil {
		return nil, err
	}
	return &StationReader{r}, nil
}

// ReadAll reads all stations from the file.
func (r *StationReader) ReadAll() ([]*types.Station, error) {
	rows, err := r.readAll()
	if err != nil {
		return nil, err
	}
	stations := make([]*types.Station, len(rows))
	for i := range rows {
		stations[i] = RowToStation(&rows[i])
	}
	return stations, nil
}

// FileInfo holds information about a Parquet file.
type FileInfo struct {
	Path    string
	Size    int64
	NumRows int64
	NumCols int
}

// GetFileInfo returns information about a Parquet file.
func GetFileInfo(path string) (*FileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet %s: %w", path, err)
	}

	return &FileInfo{
		Path:    path,
		Size:    stat.Size(),
		NumRows: pf.NumRows(),
		NumCols: len(pf.Schema().Fields()),
	}, nil
}
