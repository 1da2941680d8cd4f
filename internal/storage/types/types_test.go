package types

import (
	"strings"
	"testing"
	"time"
)

func TestDeviceAddSSID(t *testing.T) {
	d := NewDevice("aa:bb:cc:dd:ee:01")

	if !d.AddSSID("home") {
		t.Error("expected home to be added")
	}
	if d.AddSSID("home") {
		t.Error("duplicate SSID should not be added")
	}
	if d.AddSSID("") {
		t.Error("empty SSID should not be added")
	}
	d.AddSSID("office")

	want := []string{"home", "office"}
	if len(d.KnownSSIDs) != len(want) {
		t.Fatalf("expected %v, got %v", want, d.KnownSSIDs)
	}
	for i := range want {
		if d.KnownSSIDs[i] != want[i] {
			t.Errorf("ssid %d: expected %q, got %q", i, want[i], d.KnownSSIDs[i])
		}
	}
}

func TestDeviceAddSSID_LiteralDevice(t *testing.T) {
	d := &Device{DeviceMAC: "aa:bb:cc:dd:ee:01", KnownSSIDs: []string{"home"}}

	if d.AddSSID("home") {
		t.Error("SSID already present in literal should not be added")
	}
	if !d.AddSSID("cafe") {
		t.Error("expected cafe to be added")
	}
}

func TestDeviceSetAlias_FirstWins(t *testing.T) {
	d := NewDevice("aa:bb:cc:dd:ee:01")

	if !d.SetAlias("first") {
		t.Error("first alias should be set")
	}
	if d.SetAlias("second") {
		t.Error("second alias should be a no-op")
	}
	if d.Alias != "first" {
		t.Errorf("expected alias first, got %q", d.Alias)
	}
}

func TestStationAddDevice(t *testing.T) {
	s := NewStation("home")
	s.AddDevice("aa:bb:cc:dd:ee:01")
	s.AddDevice("aa:bb:cc:dd:ee:02")
	s.AddDevice("aa:bb:cc:dd:ee:01")
	s.AddDevice("")

	if len(s.AssociatedDevices) != 2 {
		t.Fatalf("expected 2 devices, got %v", s.AssociatedDevices)
	}
	if s.AssociatedDevices[0] != "aa:bb:cc:dd:ee:01" {
		t.Errorf("expected insertion order to be kept, got %v", s.AssociatedDevices)
	}
}

func TestEscapeSSID(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"ascii", "home", "home"},
		{"unicode", "café", "café"},
		{"nul", "a\x00b", `a\x00b`},
		{"invalid utf8", "\xff\xfe", `\xff\xfe`},
		{"backslash", `a\b`, `a\\b`},
		{"quote", `say "hi"`, `say \"hi\"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EscapeSSID(tt.raw)
			if got != tt.want {
				t.Errorf("EscapeSSID(%q) = %q, want %q", tt.raw, got, tt.want)
			}
			if back := UnescapeSSID(got); back != tt.raw {
				t.Errorf("UnescapeSSID(%q) = %q, want %q", got, back, tt.raw)
			}
		})
	}
}

func TestUnescapeSSID_ForeignValue(t *testing.T) {
	// An unbalanced quote is not a valid escape body and is kept verbatim.
	raw := `my "net`
	if got := UnescapeSSID(raw); got != raw {
		t.Errorf("expected %q unchanged, got %q", raw, got)
	}
}

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("2016-03-01 12:30:45.123456")
	if err != nil {
		t.Fatalf("ParseTimestamp: %v", err)
	}
	want := time.Date(2016, 3, 1, 12, 30, 45, 123456000, time.Local)
	if !ts.Equal(want) {
		t.Errorf("expected %v, got %v", want, ts)
	}
	if got := FormatTimestamp(ts); got != "2016-03-01 12:30:45.123456" {
		t.Errorf("FormatTimestamp = %q", got)
	}

	for _, bad := range []string{"", "2016-03-01", "2016-03-01T12:30:45.123456", "2016-03-01 12:30:45"} {
		if _, err := ParseTimestamp(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestMarshalDevice_FieldOrder(t *testing.T) {
	d := NewDevice("aa:bb:cc:dd:ee:01")
	d.AddSSID("home")
	d.LastSeenDTS = time.Date(2016, 3, 1, 12, 0, 0, 0, time.Local)

	data, err := MarshalCompact(d)
	if err != nil {
		t.Fatalf("MarshalCompact: %v", err)
	}

	want := `{"device_mac":"aa:bb:cc:dd:ee:01","alias":null,"known_ssids":["home"],` +
		`"last_seen_dts":"2016-03-01 12:00:00.000000","vendor_company":null,"vendor_country":null}`
	if string(data) != want {
		t.Errorf("compact device:\n got  %s\n want %s", data, want)
	}
}

func TestMarshalDevice_Pretty(t *testing.T) {
	d := NewDevice("aa:bb:cc:dd:ee:01")
	d.SetAlias("<phone>")

	data, err := MarshalPretty(d)
	if err != nil {
		t.Fatalf("MarshalPretty: %v", err)
	}

	out := string(data)
	if !strings.HasPrefix(out, "{\n    \"device_mac\": \"aa:bb:cc:dd:ee:01\",\n    \"alias\": \"<phone>\",") {
		t.Errorf("unexpected pretty output:\n%s", out)
	}
	if !strings.Contains(out, `"known_ssids": []`) {
		t.Errorf("expected empty known_ssids list:\n%s", out)
	}
	if !strings.Contains(out, `"last_seen_dts": null`) {
		t.Errorf("expected null last_seen_dts:\n%s", out)
	}
}

func TestMarshalDevice_SignalOnlyWhenPresent(t *testing.T) {
	d := NewDevice("aa:bb:cc:dd:ee:01")
	data, _ := MarshalCompact(d)
	if strings.Contains(string(data), "signal") {
		t.Errorf("signal should be omitted: %s", data)
	}

	d.Signal = &SignalSummary{Count: 2, Min: -70, Max: -40, Avg: -55}
	data, _ = MarshalCompact(d)
	if !strings.Contains(string(data), `"signal":{"count":2,"min":-70,"max":-40,"avg":-55}`) {
		t.Errorf("expected signal summary: %s", data)
	}
}

func TestMarshalStation(t *testing.T) {
	s := NewStation("home\x01")
	s.AddDevice("aa:bb:cc:dd:ee:01")

	data, err := MarshalCompact(s)
	if err != nil {
		t.Fatalf("MarshalCompact: %v", err)
	}
	want := `{"ssid":"home\\x01","associated_devices":["aa:bb:cc:dd:ee:01"]}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestMarshalSnapshotMap(t *testing.T) {
	devices := map[string]*Device{
		"aa:bb:cc:dd:ee:02": NewDevice("aa:bb:cc:dd:ee:02"),
		"aa:bb:cc:dd:ee:01": NewDevice("aa:bb:cc:dd:ee:01"),
	}

	sorted := SortedDevices(devices)
	if sorted[0].DeviceMAC != "aa:bb:cc:dd:ee:01" {
		t.Errorf("expected devices sorted by MAC")
	}

	data, err := MarshalCompact(sorted)
	if err != nil {
		t.Fatalf("MarshalCompact: %v", err)
	}
	if !strings.HasPrefix(string(data), `[{"device_mac":"aa:bb:cc:dd:ee:01"`) {
		t.Errorf("unexpected output: %s", data)
	}
}
