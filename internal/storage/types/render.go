package types

import (
	"bytes"
	"encoding/json"
	"time"
)

// Snapshot entities render with a fixed field order. Unset strings and
// timestamps render as null; SSIDs render in their escaped form.

type probeJSON struct {
	SourceMAC      string  `json:"source_mac"`
	CaptureDTS     *string `json:"capture_dts"`
	TargetSSID     *string `json:"target_ssid"`
	SignalStrength *int    `json:"signal_strength"`
}

type deviceJSON struct {
	DeviceMAC     string         `json:"device_mac"`
	Alias         *string        `json:"alias"`
	KnownSSIDs    []string       `json:"known_ssids"`
	LastSeenDTS   *string        `json:"last_seen_dts"`
	VendorCompany *string        `json:"vendor_company"`
	VendorCountry *string        `json:"vendor_country"`
	Signal        *SignalSummary `json:"signal,omitempty"`
}

type stationJSON struct {
	SSID              string   `json:"ssid"`
	AssociatedDevices []string `json:"associated_devices"`
}

// MarshalJSON renders the request in log-record field order.
func (r ProbeRequest) MarshalJSON() ([]byte, error) {
	v := probeJSON{
		SourceMAC:      r.SourceMAC,
		CaptureDTS:     timestampOrNil(r.CaptureDTS),
		SignalStrength: r.SignalStrength,
	}
	// An empty SSID is a broadcast probe.
	if r.TargetSSID != nil && *r.TargetSSID != "" {
		escaped := EscapeSSID(*r.TargetSSID)
		v.TargetSSID = &escaped
	}
	return marshal(v, "")
}

// MarshalJSON renders the device snapshot.
func (d *Device) MarshalJSON() ([]byte, error) {
	ssids := make([]string, len(d.KnownSSIDs))
	for i, s := range d.KnownSSIDs {
		ssids[i] = EscapeSSID(s)
	}
	return marshal(deviceJSON{
		DeviceMAC:     d.DeviceMAC,
		Alias:         stringOrNil(d.Alias),
		KnownSSIDs:    ssids,
		LastSeenDTS:   timestampOrNil(d.LastSeenDTS),
		VendorCompany: stringOrNil(d.VendorCompany),
		VendorCountry: stringOrNil(d.VendorCountry),
		Signal:        d.Signal,
	}, "")
}

// MarshalJSON renders the station snapshot.
func (s *Station) MarshalJSON() ([]byte, error) {
	devices := s.AssociatedDevices
	if devices == nil {
		devices = []string{}
	}
	return marshal(stationJSON{
		SSID:              EscapeSSID(s.SSID),
		AssociatedDevices: devices,
	}, "")
}

// MarshalPretty renders v as indented, human-readable JSON.
func MarshalPretty(v any) ([]byte, error) {
	return marshal(v, "    ")
}

// MarshalCompact renders v as JSON without insignificant whitespace.
func MarshalCompact(v any) ([]byte, error) {
	return marshal(v, "")
}

func marshal(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func stringOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func timestampOrNil(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := FormatTimestamp(t)
	return &s
}
