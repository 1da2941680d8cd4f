// Package codec converts probe requests to and from request log lines.
//
// A log line is a compact JSON object:
//
//	{"source_mac":"aa:bb:cc:dd:ee:01","capture_dts":"2016-03-01 12:00:00.000000","target_ssid":"home","signal_strength":-52}
//
// source_mac is required; target_ssid and signal_strength must be present
// but may be null. A null or missing capture_dts is an absent timestamp. A
// capture_dts that does not match the fixed layout also leaves the timestamp
// absent, but is reported as ErrInvalidTimestamp so callers can keep the
// record and still see the failure.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xtxerr/wifitracker/internal/errors"
	"github.com/xtxerr/wifitracker/internal/storage/types"
)

// record is the decode-side shape of a log line. Raw fields distinguish a
// missing key (nil) from an explicit null.
type record struct {
	SourceMAC      json.RawMessage `json:"source_mac"`
	CaptureDTS     json.RawMessage `json:"capture_dts"`
	TargetSSID     json.RawMessage `json:"target_ssid"`
	SignalStrength json.RawMessage `json:"signal_strength"`
}

var null = []byte("null")

// Encode serializes r as one log line without a trailing newline.
func Encode(r types.ProbeRequest) ([]byte, error) {
	if r.SourceMAC == "" {
		return nil, errors.NewMissingField("source_mac")
	}
	return types.MarshalCompact(r)
}

// Decode parses a single log line. When only capture_dts is malformed, the
// returned request is complete apart from its timestamp and the error wraps
// ErrInvalidTimestamp; any other error means the line is unusable.
func Decode(line []byte) (types.ProbeRequest, error) {
	var rec record
	if err := json.Unmarshal(bytes.TrimSpace(line), &rec); err != nil {
		return types.ProbeRequest{}, errors.Wrap(errors.ErrDecode, err.Error())
	}
	return rec.toProbe()
}

// LineError describes a line of a chunk that could not be decoded.
type LineError struct {
	// Index is the position of the line in the decoded slice.
	Index int
	Err   error
}

// DecodeChunk decodes a batch of lines. The whole batch is first decoded
// as one JSON array; if that fails, every line is decoded on its own so a
// single corrupt line only drops itself. Records keep the order of lines.
//
// lineErrs lists the dropped lines. badTimestamps lists lines that were kept
// without a capture time because their capture_dts did not parse.
func DecodeChunk(lines [][]byte) (reqs []types.ProbeRequest, lineErrs, badTimestamps []LineError) {
	if len(lines) == 0 {
		return nil, nil, nil
	}

	if batch, bad, err := decodeBatch(lines); err == nil {
		return batch, nil, bad
	}

	reqs = make([]types.ProbeRequest, 0, len(lines))
	for i, line := range lines {
		r, err := Decode(line)
		switch {
		case err == nil:
		case errors.Is(err, errors.ErrInvalidTimestamp):
			badTimestamps = append(badTimestamps, LineError{Index: i, Err: err})
		default:
			lineErrs = append(lineErrs, LineError{Index: i, Err: err})
			continue
		}
		reqs = append(reqs, r)
	}
	return reqs, lineErrs, badTimestamps
}

func decodeBatch(lines [][]byte) ([]types.ProbeRequest, []LineError, error) {
	size := 2 + len(lines)
	for _, l := range lines {
		size += len(l)
	}

	doc := make([]byte, 0, size)
	doc = append(doc, '[')
	for i, l := range lines {
		if i > 0 {
			doc = append(doc, ',')
		}
		doc = append(doc, l...)
	}
	doc = append(doc, ']')

	var recs []record
	if err := json.Unmarshal(doc, &recs); err != nil {
		return nil, nil, err
	}
	// A line holding several values or a stray comma shifts the array.
	if len(recs) != len(lines) {
		return nil, nil, fmt.Errorf("batch decoded %d records from %d lines", len(recs), len(lines))
	}

	reqs := make([]types.ProbeRequest, len(recs))
	var badTimestamps []LineError
	for i := range recs {
		r, err := recs[i].toProbe()
		if errors.Is(err, errors.ErrInvalidTimestamp) {
			badTimestamps = append(badTimestamps, LineError{Index: i, Err: err})
		} else if err != nil {
			return nil, nil, err
		}
		reqs[i] = r
	}
	return reqs, badTimestamps, nil
}

func (rec *record) toProbe() (types.ProbeRequest, error) {
	var r types.ProbeRequest

	if rec.SourceMAC == nil || bytes.Equal(rec.SourceMAC, null) {
		return r, errors.NewMissingField("source_mac")
	}
	if err := json.Unmarshal(rec.SourceMAC, &r.SourceMAC); err != nil {
		return r, errors.Wrap(errors.ErrDecode, "source_mac: "+err.Error())
	}
	if r.SourceMAC == "" {
		return r, errors.NewMissingField("source_mac")
	}

	if rec.TargetSSID == nil {
		return r, errors.NewMissingField("target_ssid")
	}
	if !bytes.Equal(rec.TargetSSID, null) {
		var ssid string
		if err := json.Unmarshal(rec.TargetSSID, &ssid); err != nil {
			return r, errors.Wrap(errors.ErrDecode, "target_ssid: "+err.Error())
		}
		if ssid != "" {
			ssid = types.UnescapeSSID(ssid)
			r.TargetSSID = &ssid
		}
	}

	if rec.SignalStrength == nil {
		return r, errors.NewMissingField("signal_strength")
	}
	if !bytes.Equal(rec.SignalStrength, null) {
		var signal int
		if err := json.Unmarshal(rec.SignalStrength, &signal); err != nil {
			return r, errors.Wrap(errors.ErrDecode, "signal_strength: "+err.Error())
		}
		r.SignalStrength = &signal
	}

	// Decoded last: a bad timestamp still returns an otherwise complete record.
	ts, err := decodeTimestamp(rec.CaptureDTS)
	r.CaptureDTS = ts
	return r, err
}

// decodeTimestamp returns the zero time for a missing or null value and
// ErrInvalidTimestamp for a malformed one.
func decodeTimestamp(raw json.RawMessage) (t time.Time, err error) {
	if raw == nil || bytes.Equal(raw, null) {
		return t, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return t, errors.Wrap(errors.ErrInvalidTimestamp, err.Error())
	}
	parsed, err := types.ParseTimestamp(s)
	if err != nil {
		return t, errors.Wrap(errors.ErrInvalidTimestamp, err.Error())
	}
	return parsed, nil
}
