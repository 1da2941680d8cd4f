package testing

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xtxerr/wifitracker/internal/storage/codec"
	"github.com/xtxerr/wifitracker/internal/storage/types"
)

// BaseTime is a fixed capture time used by fixtures. Offsets are added in
// whole seconds so records sort the way they are written.
var BaseTime = time.Date(2016, 3, 1, 12, 0, 0, 0, time.Local)

// At returns BaseTime plus n seconds.
func At(n int) time.Time {
	return BaseTime.Add(time.Duration(n) * time.Second)
}

// Probe builds a request with an SSID and a signal strength.
func Probe(mac, ssid string, ts time.Time, signal int) types.ProbeRequest {
	return types.NewProbeRequest(mac, ts, ssid, &signal)
}

// BroadcastProbe builds a request without an SSID or signal strength.
func BroadcastProbe(mac string, ts time.Time) types.ProbeRequest {
	return types.NewProbeRequest(mac, ts, "", nil)
}

// EncodeLine encodes r and fails the test on error.
func EncodeLine(t testing.TB, r types.ProbeRequest) string {
	t.Helper()
	line, err := codec.Encode(r)
	if err != nil {
		t.Fatalf("encode %v: %v", r, err)
	}
	return string(line)
}

// WriteLog writes raw lines to a new request log in a temp dir and returns
// its path. Each line is preceded by a newline separator, as the writer does.
func WriteLog(t testing.TB, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "requests")

	var b strings.Builder
	for _, l := range lines {
		b.WriteByte('\n')
		b.WriteString(l)
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

// WriteProbes encodes requests into a new request log and returns its path.
func WriteProbes(t testing.TB, reqs ...types.ProbeRequest) string {
	t.Helper()
	lines := make([]string, len(reqs))
	for i, r := range reqs {
		lines[i] = EncodeLine(t, r)
	}
	return WriteLog(t, lines...)
}

// =============================================================================
// Log Capture
// =============================================================================

// LogEntry is one captured log record.
type LogEntry struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// LogCapture is a slog.Handler that keeps every record in memory.
type LogCapture struct {
	mu      *sync.Mutex
	entries *[]LogEntry
	attrs   []slog.Attr
}

// NewLogCapture returns a capturing handler and a logger writing to it.
func NewLogCapture() (*LogCapture, *slog.Logger) {
	h := &LogCapture{
		mu:      &sync.Mutex{},
		entries: &[]LogEntry{},
	}
	return h, slog.New(h)
}

// Enabled implements slog.Handler.
func (h *LogCapture) Enabled(context.Context, slog.Level) bool { return true }

// Handle implements slog.Handler.
func (h *LogCapture) Handle(_ context.Context, r slog.Record) error {
	e := LogEntry{
		Level:   r.Level,
		Message: r.Message,
		Attrs:   make(map[string]any, r.NumAttrs()+len(h.attrs)),
	}
	for _, a := range h.attrs {
		e.Attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		e.Attrs[a.Key] = a.Value.Any()
		return true
	})

	h.mu.Lock()
	*h.entries = append(*h.entries, e)
	h.mu.Unlock()
	return nil
}

// WithAttrs implements slog.Handler.
func (h *LogCapture) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &LogCapture{mu: h.mu, entries: h.entries, attrs: merged}
}

// WithGroup implements slog.Handler. Groups are flattened.
func (h *LogCapture) WithGroup(string) slog.Handler { return h }

// Entries returns a copy of the captured records.
func (h *LogCapture) Entries() []LogEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]LogEntry, len(*h.entries))
	copy(out, *h.entries)
	return out
}

// Count returns the number of records with the given level and message.
func (h *LogCapture) Count(level slog.Level, msg string) int {
	n := 0
	for _, e := range h.Entries() {
		if e.Level == level && e.Message == msg {
			n++
		}
	}
	return n
}
