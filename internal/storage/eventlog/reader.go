package eventlog

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/xtxerr/wifitracker/config"
)

// RawChunk is a batch of up to chunk size raw lines in file order.
type RawChunk struct {
	// Number is the zero-based chunk index.
	Number int

	// Lines holds the non-blank lines of the chunk without line terminators.
	Lines [][]byte

	// LineNumbers holds the one-based file line number of each entry in Lines.
	LineNumbers []int
}

// ReaderStats holds raw reader statistics.
type ReaderStats struct {
	ChunksRead int64
	LinesRead  int64
	BytesRead  int64
}

// Reader reads the request log in chunks of raw lines.
// A Reader is not safe for concurrent use; open one per scan.
type Reader struct {
	path      string
	file      *os.File
	br        *bufio.Reader
	chunkSize int

	chunkNo int
	lineNo  int
	eof     bool

	// Statistics
	stats ReaderStats
}

// NewReader opens the log at path for a scan.
func NewReader(path string, chunkSize int) (*Reader, error) {
	if chunkSize <= 0 {
		chunkSize = config.DefaultChunkSize
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}

	return &Reader{
		path:      path,
		file:      f,
		br:        bufio.NewReaderSize(f, 64*1024),
		chunkSize: chunkSize,
	}, nil
}

// ReadChunk reads the next chunk of up to chunk size lines. Blank lines
// count towards the chunk size but are dropped from the result, so a chunk
// may hold no lines at all. Returns io.EOF when the file is exhausted.
func (r *Reader) ReadChunk() (*RawChunk, error) {
	if r.eof {
		return nil, io.EOF
	}

	chunk := &RawChunk{Number: r.chunkNo}
	raw := 0

	for raw < r.chunkSize {
		line, err := r.br.ReadBytes('\n')
		if len(line) > 0 {
			raw++
			r.lineNo++
			r.stats.LinesRead++
			r.stats.BytesRead += int64(len(line))

			if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
				chunk.Lines = append(chunk.Lines, trimmed)
				chunk.LineNumbers = append(chunk.LineNumbers, r.lineNo)
			}
		}
		if err == io.EOF {
			r.eof = true
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s line %d: %w", r.path, r.lineNo+1, err)
		}
	}

	if raw == 0 {
		return nil, io.EOF
	}

	r.chunkNo++
	r.stats.ChunksRead++
	return chunk, nil
}

// Close closes the reader.
func (r *Reader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// Stats returns reader statistics.
func (r *Reader) Stats() ReaderStats {
	return r.stats
}

// Path returns the log path.
func (r *Reader) Path() string {
	return r.path
}
