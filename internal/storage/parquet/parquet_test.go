package parquet

import (
	"fmt"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/xtxerr/wifitracker/internal/storage/types"
	trtest "github.com/xtxerr/wifitracker/internal/testing"
)

func TestProbeWriterReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probes.parquet")

	reqs := []types.ProbeRequest{
		trtest.Probe("aa:bb:cc:dd:ee:01", "home", trtest.At(1), -40),
		trtest.BroadcastProbe("aa:bb:cc:dd:ee:02", trtest.At(2)),
		types.NewProbeRequest("aa:bb:cc:dd:ee:03", trtest.At(3).Add(123456*1000), "caf\xe9\x01", nil),
	}
	// A request without a timestamp.
	reqs = append(reqs, types.ProbeRequest{SourceMAC: "aa:bb:cc:dd:ee:05"})

	w, err := NewProbeWriter(path, DefaultOptions())
	if err != nil {
		t.Fatalf("NewProbeWriter: %v", err)
	}
	if err := w.Write(reqs); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if w.RowCount() != int64(len(reqs)) {
		t.Errorf("RowCount = %d, want %d", w.RowCount(), len(reqs))
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := NewProbeReader(path)
	if err != nil {
		t.Fatalf("NewProbeReader: %v", err)
	}
	defer r.Close()

	if r.NumRows() != int64(len(reqs)) {
		t.Errorf("NumRows = %d, want %d", r.NumRows(), len(reqs))
	}

	got, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != len(reqs) {
		t.Fatalf("read %d requests, want %d", len(got), len(reqs))
	}
	for i := range reqs {
		if !got[i].Equal(reqs[i]) {
			t.Errorf("request %d = %v, want %v", i, got[i], reqs[i])
		}
	}
}

func TestProbeReader_ReadBatches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probes.parquet")

	var reqs []types.ProbeRequest
	for i := 0; i < 10; i++ {
		reqs = append(reqs, trtest.Probe(fmt.Sprintf("aa:bb:cc:dd:ee:%02x", i), "net", trtest.At(i), -50))
	}

	w, err := NewProbeWriter(path, Options{Compression: CompressionSnappy})
	if err != nil {
		t.Fatalf("NewProbeWriter: %v", err)
	}
	if err := w.Write(reqs[:5]); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Write(reqs[5:]); err != nil {
		t.Fatalf("Write: %v", err)
	}
	w.Close()

	r, err := NewProbeReader(path)
	if err != nil {
		t.Fatalf("NewProbeReader: %v", err)
	}
	defer r.Close()

	var got []types.ProbeRequest
	for len(got) < len(reqs) {
		batch, err := r.Read(4)
		if err != nil {
			t.Fatalf("Read after %d rows: %v", len(got), err)
		}
		got = append(got, batch...)
	}
	for i := range reqs {
		if !got[i].Equal(reqs[i]) {
			t.Errorf("request %d = %v, want %v", i, got[i], reqs[i])
		}
	}
}

func TestDeviceWriterReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.parquet")

	plain := types.NewDevice("aa:bb:cc:dd:ee:01")
	plain.AddSSID("home")
	plain.AddSSID("office")
	plain.LastSeenDTS = trtest.At(3)
	plain.SetAlias("phone")
	plain.SetVendor("Acme", "US")

	bare := types.NewDevice("aa:bb:cc:dd:ee:02")

	withSignal := types.NewDevice("aa:bb:cc:dd:ee:03")
	withSignal.AddSSID("cafe")
	withSignal.SetVendorUnknown()
	withSignal.Signal = &types.SignalSummary{Count: 3, Min: -60, Max: -40, Avg: -50}
	withSignal.Signal.SetPercentiles(-50, -42, -40)

	devices := []*types.Device{plain, bare, withSignal}

	w, err := NewDeviceWriter(path, DefaultOptions())
	if err != nil {
		t.Fatalf("NewDeviceWriter: %v", err)
	}
	if err := w.Write(devices); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := NewDeviceReader(path)
	if err != nil {
		t.Fatalf("NewDeviceReader: %v", err)
	}
	defer r.Close()

	got, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != len(devices) {
		t.Fatalf("read %d devices, want %d", len(got), len(devices))
	}

	for i, want := range devices {
		g := got[i]
		if g.DeviceMAC != want.DeviceMAC || g.Alias != want.Alias ||
			g.VendorCompany != want.VendorCompany || g.VendorCountry != want.VendorCountry {
			t.Errorf("device %d = %v, want %v", i, g, want)
		}
		if !reflect.DeepEqual(g.KnownSSIDs, want.KnownSSIDs) {
			t.Errorf("device %d KnownSSIDs = %v, want %v", i, g.KnownSSIDs, want.KnownSSIDs)
		}
		if !g.LastSeenDTS.Equal(want.LastSeenDTS) {
			t.Errorf("device %d LastSeenDTS = %v, want %v", i, g.LastSeenDTS, want.LastSeenDTS)
		}
		if !reflect.DeepEqual(g.Signal, want.Signal) {
			t.Errorf("device %d Signal = %+v, want %+v", i, g.Signal, want.Signal)
		}
	}

	// Decoded devices keep deduplicating SSIDs.
	if got[0].AddSSID("home") {
		t.Error("AddSSID accepted a known SSID after decoding")
	}
}

func TestStationWriterReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stations.parquet")

	home := types.NewStation("home")
	home.AddDevice("aa:bb:cc:dd:ee:02")
	home.AddDevice("aa:bb:cc:dd:ee:01")
	empty := types.NewStation("empty")

	w, err := NewStationWriter(path, Options{Compression: CompressionGzip})
	if err != nil {
		t.Fatalf("NewStationWriter: %v", err)
	}
	if err := w.Write([]*types.Station{home, empty}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := NewStationReader(path)
	if err != nil {
		t.Fatalf("NewStationReader: %v", err)
	}
	defer r.Close()

	got, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("read %d stations, want 2", len(got))
	}
	if got[0].SSID != "home" || !reflect.DeepEqual(got[0].AssociatedDevices, home.AssociatedDevices) {
		t.Errorf("station 0 = %v", got[0])
	}
	if got[1].SSID != "empty" || len(got[1].AssociatedDevices) != 0 {
		t.Errorf("station 1 = %v", got[1])
	}

	info, err := GetFileInfo(path)
	if err != nil {
		t.Fatalf("GetFileInfo: %v", err)
	}
	if info.NumRows != 2 || info.NumCols != 3 || info.Size == 0 {
		t.Errorf("info = %+v", info)
	}
}

func TestWriter_Closed(t *testing.T) {
	w, err := NewStationWriter(filepath.Join(t.TempDir(), "stations.parquet"), DefaultOptions())
	if err != nil {
		t.Fatalf("NewStationWriter: %v", err)
	}
	w.Close()

	if err := w.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := w.Write([]*types.Station{types.NewStation("home")}); err != ErrWriterClosed {
		t.Errorf("err = %v, want ErrWriterClosed", err)
	}
}

func TestWriter_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.parquet")
	w, err := NewDeviceWriter(path, DefaultOptions())
	if err != nil {
		t.Fatalf("NewDeviceWriter: %v", err)
	}
	if err := w.Write(nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	w.Close()

	r, err := NewDeviceReader(path)
	if err != nil {
		t.Fatalf("NewDeviceReader: %v", err)
	}
	defer r.Close()

	got, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("read %d devices, want 0", len(got))
	}
}

func TestParseCompressionType(t *testing.T) {
	tests := []struct {
		input   string
		want    CompressionType
		wantErr bool
	}{
		{"", CompressionZstd, false},
		{"zstd", CompressionZstd, false},
		{"SNAPPY", CompressionSnappy, false},
		{"lz4", CompressionLZ4, false},
		{"gzip", CompressionGzip, false},
		{"none", CompressionNone, false},
		{"brotli", CompressionZstd, true},
	}

	for _, tt := range tests {
		got, err := ParseCompressionType(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCompressionType(%q) err = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseCompressionType(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if !tt.wantErr && tt.input != "" {
			if round, _ := ParseCompressionType(got.String()); round != got {
				t.Errorf("String() of %v does not parse back", got)
			}
		}
	}
}
