package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xtxerr/wifitracker/internal/errors"
	"github.com/xtxerr/wifitracker/internal/logging"
	"github.com/xtxerr/wifitracker/internal/storage"
	"github.com/xtxerr/wifitracker/internal/storage/config"
	"github.com/xtxerr/wifitracker/internal/storage/types"
	trtest "github.com/xtxerr/wifitracker/internal/testing"
	"github.com/xtxerr/wifitracker/internal/vendor"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Log.SyncMode = "sync"
	cfg.Log.ChunkSize = 3
	cfg.Enrichment.Endpoint = ""
	cfg.Enrichment.Workers = 4
	cfg.Query.MemoryLimit = "256MB"
	return cfg
}

func newTestService(t *testing.T, cfg *config.Config, l vendor.Lookuper) *storage.Service {
	t.Helper()

	svc, err := storage.NewWithOptions(cfg, storage.Options{
		Logger:   logging.Discard(),
		Lookuper: l,
	})
	if err != nil {
		t.Fatalf("NewWithOptions: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestService_New(t *testing.T) {
	cfg := testConfig(t)

	svc, err := storage.New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer svc.Close()

	if _, err := os.Stat(cfg.LogPath()); err != nil {
		t.Errorf("request log not created: %v", err)
	}
	if _, err := os.Stat(cfg.ExportDir()); err != nil {
		t.Errorf("export dir not created: %v", err)
	}
	if svc.Config() != cfg {
		t.Error("Config() should return the configuration passed to New")
	}
}

func TestService_NewInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Log.ChunkSize = 0

	if _, err := storage.New(cfg); err == nil {
		t.Fatal("expected error for invalid config")
	}
}

func TestService_CloseIdempotent(t *testing.T) {
	svc, err := storage.New(testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := svc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	if err := svc.AddRequest(trtest.BroadcastProbe("aa:bb:cc:dd:ee:01", trtest.At(0))); !errors.Is(err, errors.ErrWriterClosed) {
		t.Errorf("AddRequest after Close: err = %v, want ErrWriterClosed", err)
	}
	if _, err := svc.Query(); err == nil {
		t.Error("Query after Close should fail")
	}
}

func TestService_DevicesAndStations(t *testing.T) {
	svc := newTestService(t, testConfig(t), nil)

	reqs := []types.ProbeRequest{
		trtest.Probe("aa:bb:cc:dd:ee:01", "home", trtest.At(0), -40),
		trtest.Probe("aa:bb:cc:dd:ee:02", "office", trtest.At(1), -60),
		trtest.Probe("aa:bb:cc:dd:ee:01", "office", trtest.At(2), -45),
		trtest.BroadcastProbe("aa:bb:cc:dd:ee:03", trtest.At(3)),
	}
	if err := svc.AddRequests(reqs); err != nil {
		t.Fatalf("AddRequests: %v", err)
	}
	if err := svc.AddRequest(trtest.Probe("aa:bb:cc:dd:ee:02", "home", trtest.At(10), -70)); err != nil {
		t.Fatalf("AddRequest: %v", err)
	}

	if err := svc.SetAlias("aa:bb:cc:dd:ee:01", "phone", false); err != nil {
		t.Fatalf("SetAlias: %v", err)
	}

	devices, err := svc.Devices(time.Time{})
	if err != nil {
		t.Fatalf("Devices: %v", err)
	}
	if len(devices) != 3 {
		t.Fatalf("expected 3 devices, got %d", len(devices))
	}
	if got := devices["aa:bb:cc:dd:ee:01"].Alias; got != "phone" {
		t.Errorf("alias = %q, want phone", got)
	}
	if got := devices["aa:bb:cc:dd:ee:02"].KnownSSIDs; len(got) != 2 || got[0] != "office" || got[1] != "home" {
		t.Errorf("known ssids = %v, want [office home]", got)
	}

	// Cutoff before the last request
	devices, err = svc.Devices(trtest.At(5))
	if err != nil {
		t.Fatalf("Devices: %v", err)
	}
	if got := devices["aa:bb:cc:dd:ee:02"].KnownSSIDs; len(got) != 1 {
		t.Errorf("known ssids at cutoff = %v, want [office]", got)
	}

	d, err := svc.Device("aa:bb:cc:dd:ee:01", time.Time{})
	if err != nil {
		t.Fatalf("Device: %v", err)
	}
	if d.Alias != "phone" || !d.LastSeenDTS.Equal(trtest.At(2)) {
		t.Errorf("device = %+v", d)
	}

	stations, err := svc.Stations(time.Time{})
	if err != nil {
		t.Fatalf("Stations: %v", err)
	}
	if len(stations) != 2 {
		t.Fatalf("expected 2 stations, got %d", len(stations))
	}

	st, err := svc.Station("home", time.Time{})
	if err != nil {
		t.Fatalf("Station: %v", err)
	}
	if got := st.AssociatedDevices; len(got) != 2 || got[0] != "aa:bb:cc:dd:ee:01" || got[1] != "aa:bb:cc:dd:ee:02" {
		t.Errorf("associated devices = %v", got)
	}
}

func TestService_SetAliasConflict(t *testing.T) {
	svc := newTestService(t, testConfig(t), nil)

	if err := svc.SetAlias("aa:bb:cc:dd:ee:01", "phone", false); err != nil {
		t.Fatalf("SetAlias: %v", err)
	}

	err := svc.SetAlias("aa:bb:cc:dd:ee:01", "tablet", false)
	if !errors.Is(err, errors.ErrAliasAlreadySet) {
		t.Fatalf("err = %v, want ErrAliasAlreadySet", err)
	}

	if err := svc.SetAlias("aa:bb:cc:dd:ee:01", "tablet", true); err != nil {
		t.Fatalf("forced SetAlias: %v", err)
	}

	aliases, err := svc.Aliases()
	if err != nil {
		t.Fatalf("Aliases: %v", err)
	}
	if aliases["aa:bb:cc:dd:ee:01"] != "tablet" {
		t.Errorf("aliases = %v", aliases)
	}
}

func TestService_ResolveVendors(t *testing.T) {
	lookup := vendor.LookupFunc(func(_ context.Context, mac string) (vendor.Vendor, error) {
		if mac == "aa:bb:cc:dd:ee:01" {
			return vendor.Vendor{Company: "Acme", Country: "DE"}, nil
		}
		return vendor.Vendor{}, errors.ErrVendorNotFound
	})
	svc := newTestService(t, testConfig(t), lookup)

	if err := svc.AddRequests([]types.ProbeRequest{
		trtest.Probe("aa:bb:cc:dd:ee:01", "home", trtest.At(0), -40),
		trtest.Probe("aa:bb:cc:dd:ee:02", "home", trtest.At(1), -40),
	}); err != nil {
		t.Fatalf("AddRequests: %v", err)
	}

	devices, err := svc.Devices(time.Time{})
	if err != nil {
		t.Fatalf("Devices: %v", err)
	}

	stats := svc.ResolveVendors(context.Background(), devices)
	if stats.Attempted != 2 || stats.Resolved != 1 || stats.Failed != 1 {
		t.Errorf("stats = %+v", stats)
	}

	if d := devices["aa:bb:cc:dd:ee:01"]; d.VendorCompany != "Acme" || d.VendorCountry != "DE" {
		t.Errorf("resolved device = %+v", d)
	}
	if d := devices["aa:bb:cc:dd:ee:02"]; d.VendorCompany != types.VendorUnknown || d.VendorCountry != types.VendorUnknown {
		t.Errorf("unresolved device = %+v", d)
	}
}

func TestNewLookuper(t *testing.T) {
	tests := []struct {
		name  string
		cfg   config.EnrichmentConfig
		check func(vendor.Lookuper) bool
	}{
		{
			name:  "oui only",
			cfg:   config.EnrichmentConfig{OUIFallback: true},
			check: func(l vendor.Lookuper) bool { _, ok := l.(*vendor.OUILookuper); return ok },
		},
		{
			name:  "http only",
			cfg:   config.EnrichmentConfig{Endpoint: "http://localhost/"},
			check: func(l vendor.Lookuper) bool { _, ok := l.(*vendor.HTTPLookuper); return ok },
		},
		{
			name: "chain",
			cfg:  config.EnrichmentConfig{Endpoint: "http://localhost/", OUIFallback: true},
			check: func(l vendor.Lookuper) bool {
				c, ok := l.(vendor.Chain)
				return ok && len(c) == 2
			},
		},
		{
			name:  "cached",
			cfg:   config.EnrichmentConfig{OUIFallback: true, Cache: true},
			check: func(l vendor.Lookuper) bool { _, ok := l.(*vendor.CachingLookuper); return ok },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := storage.NewLookuper(tt.cfg)
			if !tt.check(l) {
				t.Errorf("unexpected lookuper %T", l)
			}
		})
	}
}

func TestService_ExportReplacesFilesAtomically(t *testing.T) {
	cfg := testConfig(t)
	svc := newTestService(t, cfg, nil)

	if err := svc.AddRequest(trtest.Probe("aa:bb:cc:dd:ee:01", "home", trtest.At(0), -40)); err != nil {
		t.Fatalf("AddRequest: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "snap")
	if _, err := svc.Export(context.Background(), dir, time.Time{}); err != nil {
		t.Fatalf("Export: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 3 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("export dir holds %v, want the three snapshot files", names)
	}
}

func TestService_ExportCancelled(t *testing.T) {
	cfg := testConfig(t)
	svc := newTestService(t, cfg, nil)

	if err := svc.AddRequest(trtest.Probe("aa:bb:cc:dd:ee:01", "home", trtest.At(0), -40)); err != nil {
		t.Fatalf("AddRequest: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dir := filepath.Join(t.TempDir(), "snap")
	if _, err := svc.Export(ctx, dir, time.Time{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("cancelled export left %d files", len(entries))
	}
}
