package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/xtxerr/wifitracker/internal/storage/parquet"
	"github.com/xtxerr/wifitracker/internal/storage/types"
	trtest "github.com/xtxerr/wifitracker/internal/testing"
)

// TestIntegration_FullPipeline tests the complete append → export → query pipeline.
func TestIntegration_FullPipeline(t *testing.T) {
	cfg := testConfig(t)
	cfg.Aggregation.SignalStats = true
	cfg.Export.Compression = "snappy"

	svc := newTestService(t, cfg, nil)

	// Two devices, three networks, an hour apart
	macs := []string{"aa:bb:cc:dd:ee:01", "aa:bb:cc:dd:ee:02"}
	ssids := []string{"home", "office", "cafe"}

	var reqs []types.ProbeRequest
	for i := 0; i < 30; i++ {
		mac := macs[i%2]
		ssid := ssids[i%3]
		reqs = append(reqs, trtest.Probe(mac, ssid, trtest.At(i*240), -40-i))
	}
	reqs = append(reqs, trtest.BroadcastProbe(macs[0], trtest.At(30*240)))

	if err := svc.AddRequests(reqs); err != nil {
		t.Fatalf("AddRequests: %v", err)
	}
	if err := svc.SetAlias(macs[1], "laptop", false); err != nil {
		t.Fatalf("SetAlias: %v", err)
	}

	ctx := context.Background()

	result, err := svc.Export(ctx, "", time.Time{})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	if result.Dir != cfg.ExportDir() {
		t.Errorf("export dir = %s, want %s", result.Dir, cfg.ExportDir())
	}
	if result.Probes != 31 || result.Devices != 2 || result.Stations != 3 {
		t.Errorf("result = %+v", result)
	}

	// Read back the device snapshot
	dr, err := parquet.NewDeviceReader(filepath.Join(result.Dir, parquet.DevicesFile))
	if err != nil {
		t.Fatalf("NewDeviceReader: %v", err)
	}
	defer dr.Close()

	devices, err := dr.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(devices))
	}

	laptop := devices[1]
	if laptop.DeviceMAC != macs[1] || laptop.Alias != "laptop" {
		t.Errorf("device[1] = %+v", laptop)
	}
	if len(laptop.KnownSSIDs) != 3 {
		t.Errorf("known ssids = %v", laptop.KnownSSIDs)
	}
	if laptop.Signal == nil || laptop.Signal.Count != 15 {
		t.Fatalf("signal = %+v", laptop.Signal)
	}
	if laptop.Signal.Max != -41 || laptop.Signal.Min != -69 {
		t.Errorf("signal range = [%v, %v], want [-69, -41]", laptop.Signal.Min, laptop.Signal.Max)
	}
	if !laptop.Signal.HasPercentiles() {
		t.Error("expected signal percentiles")
	}

	// Read back stations
	sr, err := parquet.NewStationReader(filepath.Join(result.Dir, parquet.StationsFile))
	if err != nil {
		t.Fatalf("NewStationReader: %v", err)
	}
	defer sr.Close()

	stations, err := sr.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(stations) != 3 || stations[0].SSID != "cafe" {
		t.Errorf("stations = %v", stations)
	}

	// Analytics over the export
	q, err := svc.Query()
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	popular, err := q.SSIDPopularity(ctx, 0)
	if err != nil {
		t.Fatalf("SSIDPopularity: %v", err)
	}
	if len(popular) != 3 {
		t.Fatalf("expected 3 SSIDs, got %+v", popular)
	}
	for _, p := range popular {
		if p.Probes != 10 || p.Devices != 2 {
			t.Errorf("%s: probes=%d devices=%d, want 10/2", p.SSID, p.Probes, p.Devices)
		}
	}

	activity, err := q.DeviceActivity(ctx, macs[0])
	if err != nil {
		t.Fatalf("DeviceActivity: %v", err)
	}
	var total int64
	for _, h := range activity {
		total += h.Probes
	}
	if total != 16 {
		t.Errorf("total activity = %d, want 16", total)
	}
}

// TestIntegration_ExportAtCutoff checks that an export honors the snapshot time.
func TestIntegration_ExportAtCutoff(t *testing.T) {
	cfg := testConfig(t)
	svc := newTestService(t, cfg, nil)

	if err := svc.AddRequests([]types.ProbeRequest{
		trtest.Probe("aa:bb:cc:dd:ee:01", "home", trtest.At(0), -40),
		trtest.Probe("aa:bb:cc:dd:ee:02", "home", trtest.At(1), -40),
		trtest.Probe("aa:bb:cc:dd:ee:03", "office", trtest.At(100), -40),
	}); err != nil {
		t.Fatalf("AddRequests: %v", err)
	}

	result, err := svc.Export(context.Background(), t.TempDir(), trtest.At(10))
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	if result.Probes != 2 || result.Devices != 2 || result.Stations != 1 {
		t.Errorf("result = %+v", result)
	}

	pr, err := parquet.NewProbeReader(filepath.Join(result.Dir, parquet.ProbesFile))
	if err != nil {
		t.Fatalf("NewProbeReader: %v", err)
	}
	defer pr.Close()

	probes, err := pr.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(probes) != 2 || !probes[1].CaptureDTS.Equal(trtest.At(1)) {
		t.Errorf("probes = %v", probes)
	}
}
