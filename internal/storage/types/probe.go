package types

import (
	"fmt"
	"strconv"
	"time"
)

// TimestampLayout is the fixed capture timestamp format of the request log.
// Timestamps carry no zone and are interpreted in local time, so a time in
// the repeated hour at the end of daylight saving time reads back with the
// earlier offset.
const TimestampLayout = "2006-01-02 15:04:05.000000"

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.In(time.Local).Format(TimestampLayout)
}

// ParseTimestamp parses a TimestampLayout string in local time.
func ParseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, s, time.Local)
}

// ProbeRequest is a single captured 802.11 probe request.
// Values are created once, at capture or decode time, and never mutated.
type ProbeRequest struct {
	// SourceMAC identifies the probing device.
	SourceMAC string

	// CaptureDTS is the capture time. The zero value means the timestamp
	// was absent or could not be parsed. The log stores microseconds;
	// NewProbeRequest truncates to match.
	CaptureDTS time.Time

	// TargetSSID is the network probed for; nil for broadcast probes. A
	// pointer to "" is treated as nil.
	TargetSSID *string

	// SignalStrength in dBm; nil if the capture did not report it.
	SignalStrength *int
}

// NewProbeRequest creates a request. An empty ssid is stored as absent.
func NewProbeRequest(mac string, captured time.Time, ssid string, signal *int) ProbeRequest {
	r := ProbeRequest{
		SourceMAC:      mac,
		CaptureDTS:     captured.Truncate(time.Microsecond),
		SignalStrength: signal,
	}
	if ssid != "" {
		r.TargetSSID = &ssid
	}
	return r
}

// HasTimestamp reports whether the capture time is known.
func (r ProbeRequest) HasTimestamp() bool {
	return !r.CaptureDTS.IsZero()
}

// SSID returns the target SSID or "" when absent.
func (r ProbeRequest) SSID() string {
	if r.TargetSSID == nil {
		return ""
	}
	return *r.TargetSSID
}

// String returns a short human-readable description.
func (r ProbeRequest) String() string {
	signal := "none"
	if r.SignalStrength != nil {
		signal = strconv.Itoa(*r.SignalStrength)
	}
	return fmt.Sprintf("SENDER='%s', SSID='%s', RSSI=%s", r.SourceMAC, EscapeSSID(r.SSID()), signal)
}

// Equal reports whether two requests carry the same values.
func (r ProbeRequest) Equal(o ProbeRequest) bool {
	if r.SourceMAC != o.SourceMAC || !r.CaptureDTS.Equal(o.CaptureDTS) {
		return false
	}
	if r.SSID() != o.SSID() {
		return false
	}
	if (r.SignalStrength == nil) != (o.SignalStrength == nil) {
		return false
	}
	return r.SignalStrength == nil || *r.SignalStrength == *o.SignalStrength
}

// EscapeSSID returns the Go-quoted body of ssid: printable runes are kept,
// backslash and double quote are escaped, anything else becomes \xNN or
// \uNNNN. The result is printable and UnescapeSSID reverses it exactly.
func EscapeSSID(ssid string) string {
	q := strconv.Quote(ssid)
	return q[1 : len(q)-1]
}

// UnescapeSSID reverses EscapeSSID. Input that is not a valid escape
// sequence is returned unchanged, so SSIDs written by other producers
// survive verbatim.
func UnescapeSSID(s string) string {
	u, err := strconv.Unquote(`"` + s + `"`)
	if err != nil {
		return s
	}
	return u
}
