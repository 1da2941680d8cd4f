package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xtxerr/wifitracker/internal/logging"
	"github.com/xtxerr/wifitracker/internal/storage/aggregate"
	"github.com/xtxerr/wifitracker/internal/storage/alias"
	"github.com/xtxerr/wifitracker/internal/storage/config"
	"github.com/xtxerr/wifitracker/internal/storage/eventlog"
	"github.com/xtxerr/wifitracker/internal/storage/parquet"
	"github.com/xtxerr/wifitracker/internal/storage/query"
	"github.com/xtxerr/wifitracker/internal/storage/types"
	"github.com/xtxerr/wifitracker/internal/vendor"
)

// exportBatchSize is the number of probe rows buffered per Parquet write.
const exportBatchSize = 4096

// Options overrides components built from the configuration.
type Options struct {
	// Logger is the parent of all component loggers.
	// Default: the storage component logger
	Logger *slog.Logger

	// Lookuper replaces the lookup chain built from cfg.Enrichment.
	Lookuper vendor.Lookuper

	// Now resolves a zero cutoff. Default: time.Now
	Now func() time.Time
}

// Service is the main storage service that orchestrates all components.
type Service struct {
	mu sync.Mutex

	config *config.Config
	log    *slog.Logger
	parent *slog.Logger
	now    func() time.Time

	// Components
	writer   *eventlog.Writer
	store    *eventlog.Store
	engine   *aggregate.Engine
	aliases  *alias.Store
	enricher *vendor.Enricher

	// opened on first use
	query *query.Service

	closed bool
}

// ExportResult describes one snapshot export.
type ExportResult struct {
	Dir      string
	Probes   int64
	Devices  int64
	Stations int64
	Duration time.Duration
}

// New creates a new storage service.
func New(cfg *config.Config) (*Service, error) {
	return NewWithOptions(cfg, Options{})
}

// NewWithOptions creates a new storage service with component overrides.
func NewWithOptions(cfg *config.Config, opts Options) (*Service, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Ensure directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	log := logging.OrComponent(opts.Logger, "storage")
	parent := opts.Logger

	writer, err := eventlog.OpenWriter(cfg.LogPath(), eventlog.WriterOptions{
		SyncMode:   cfg.Log.SyncMode,
		BufferSize: cfg.Log.BufferSize,
		Logger:     parent,
	})
	if err != nil {
		return nil, fmt.Errorf("open request log: %w", err)
	}

	store := eventlog.NewStore(cfg.LogPath(), eventlog.StoreOptions{
		ChunkSize: cfg.Log.ChunkSize,
		Logger:    parent,
	})

	engine := aggregate.NewEngine(store, aggregate.Options{
		Logger:             parent,
		Now:                opts.Now,
		SignalStats:        cfg.Aggregation.SignalStats,
		PercentileAccuracy: cfg.Aggregation.PercentileAccuracy,
	})

	lookuper := opts.Lookuper
	if lookuper == nil {
		lookuper = NewLookuper(cfg.Enrichment)
	}

	enricher := vendor.NewEnricher(lookuper, vendor.EnricherOptions{
		Workers: cfg.Enrichment.Workers,
		Timeout: cfg.Enrichment.Timeout,
		Logger:  parent,
	})

	return &Service{
		config:   cfg,
		log:      log,
		parent:   parent,
		now:      opts.Now,
		writer:   writer,
		store:    store,
		engine:   engine,
		aliases:  alias.NewStore(cfg.AliasPath(), parent),
		enricher: enricher,
	}, nil
}

// NewLookuper builds the vendor lookup chain described by cfg: the HTTP
// API first, then the built-in OUI registry, behind a prefix cache.
func NewLookuper(cfg config.EnrichmentConfig) vendor.Lookuper {
	var chain vendor.Chain
	if cfg.Endpoint != "" {
		chain = append(chain, vendor.NewHTTPLookuper(vendor.HTTPOptions{
			Endpoint: cfg.Endpoint,
			MaxConns: cfg.Workers,
			Timeout:  cfg.Timeout,
		}))
	}
	if cfg.OUIFallback {
		chain = append(chain, vendor.NewOUILookuper())
	}

	var l vendor.Lookuper = chain
	if len(chain) == 1 {
		l = chain[0]
	}
	if cfg.Cache {
		l = vendor.NewCachingLookuper(l, cfg.Timeout)
	}
	return l
}

// Close closes all components.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error

	if err := s.writer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close request log: %w", err))
	}

	if s.query != nil {
		if err := s.query.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close query: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// Config returns the service configuration.
func (s *Service) Config() *config.Config {
	return s.config
}

// =============================================================================
// Writes
// =============================================================================

// AddRequest appends one probe request to the log.
func (s *Service) AddRequest(r types.ProbeRequest) error {
	return s.writer.Append(r)
}

// AddRequests appends requests to the log in order. Either all of them
// are written or none is.
func (s *Service) AddRequests(reqs []types.ProbeRequest) error {
	return s.writer.AppendBatch(reqs)
}

// =============================================================================
// Snapshots
// =============================================================================

// Devices returns every device seen up to cutoff with aliases applied.
// A zero cutoff means now.
func (s *Service) Devices(cutoff time.Time) (map[string]*types.Device, error) {
	aliases, err := s.aliases.Load()
	if err != nil {
		return nil, err
	}
	return s.engine.Devices(cutoff, aliases)
}

// Device returns one device as of cutoff with its alias applied.
func (s *Service) Device(mac string, cutoff time.Time) (*types.Device, error) {
	name, err := s.aliases.Get(mac)
	if err != nil {
		return nil, err
	}
	return s.engine.Device(mac, cutoff, name)
}

// Stations returns every SSID probed for up to cutoff.
func (s *Service) Stations(cutoff time.Time) (map[string]*types.Station, error) {
	return s.engine.Stations(cutoff)
}

// Station returns one station as of cutoff.
func (s *Service) Station(ssid string, cutoff time.Time) (*types.Station, error) {
	return s.engine.Station(ssid, cutoff)
}

// =============================================================================
// Aliases
// =============================================================================

// Aliases returns the alias file contents.
func (s *Service) Aliases() (map[string]string, error) {
	return s.aliases.Load()
}

// SetAlias assigns a display name to a device. Without force an existing
// alias is kept and an error wrapping errors.ErrAliasAlreadySet is returned.
func (s *Service) SetAlias(mac, name string, force bool) error {
	return s.aliases.Set(mac, name, force)
}

// =============================================================================
// Enrichment
// =============================================================================

// ResolveVendors sets the vendor fields of devices. Lookup failures leave
// "unknown" in both fields and are not returned.
func (s *Service) ResolveVendors(ctx context.Context, devices map[string]*types.Device) vendor.Stats {
	return s.enricher.ResolveMap(ctx, devices)
}

// =============================================================================
// Export and analytics
// =============================================================================

// Export writes the probes, devices and stations of the snapshot at cutoff
// as Parquet files into dir, or into the configured export directory when
// dir is empty. Existing files are replaced only once all three were
// written.
func (s *Service) Export(ctx context.Context, dir string, cutoff time.Time) (*ExportResult, error) {
	start := time.Now()
	if dir == "" {
		dir = s.config.ExportDir()
	}
	if cutoff.IsZero() {
		cutoff = s.now()
	}

	opts := parquet.DefaultOptions()
	compression, err := parquet.ParseCompressionType(s.config.Export.Compression)
	if err != nil {
		return nil, err
	}
	opts.Compression = compression

	result := &ExportResult{Dir: dir}
	files := []string{parquet.ProbesFile, parquet.DevicesFile, parquet.StationsFile}
	published := false
	defer func() {
		if published {
			return
		}
		for _, name := range files {
			os.Remove(staged(dir, name))
		}
	}()

	// The three files come from independent scans of the log.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := s.exportProbes(staged(dir, parquet.ProbesFile), cutoff, opts)
		if err != nil {
			return fmt.Errorf("export probes: %w", err)
		}
		result.Probes = n
		return gctx.Err()
	})

	g.Go(func() error {
		devices, err := s.Devices(cutoff)
		if err != nil {
			return fmt.Errorf("export devices: %w", err)
		}
		w, err := parquet.NewDeviceWriter(staged(dir, parquet.DevicesFile), opts)
		if err != nil {
			return fmt.Errorf("export devices: %w", err)
		}
		if err := w.Write(types.SortedDevices(devices)); err != nil {
			w.Close()
			return fmt.Errorf("export devices: %w", err)
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("export devices: %w", err)
		}
		result.Devices = int64(len(devices))
		return gctx.Err()
	})

	g.Go(func() error {
		stations, err := s.Stations(cutoff)
		if err != nil {
			return fmt.Errorf("export stations: %w", err)
		}
		w, err := parquet.NewStationWriter(staged(dir, parquet.StationsFile), opts)
		if err != nil {
			return fmt.Errorf("export stations: %w", err)
		}
		if err := w.Write(types.SortedStations(stations)); err != nil {
			w.Close()
			return fmt.Errorf("export stations: %w", err)
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("export stations: %w", err)
		}
		result.Stations = int64(len(stations))
		return gctx.Err()
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, name := range files {
		if err := os.Rename(staged(dir, name), filepath.Join(dir, name)); err != nil {
			return nil, fmt.Errorf("publish %s: %w", name, err)
		}
	}
	published = true

	result.Duration = time.Since(start)
	s.log.Info("export complete",
		"dir", dir,
		"cutoff", cutoff,
		"probes", result.Probes,
		"devices", result.Devices,
		"stations", result.Stations,
		"duration", result.Duration)

	return result, nil
}

func staged(dir, name string) string {
	return filepath.Join(dir, name+".tmp")
}

func (s *Service) exportProbes(path string, cutoff time.Time, opts parquet.Options) (int64, error) {
	w, err := parquet.NewProbeWriter(path, opts)
	if err != nil {
		return 0, err
	}

	batch := make([]types.ProbeRequest, 0, exportBatchSize)
	err = s.engine.Probes(cutoff, func(r types.ProbeRequest) error {
		batch = append(batch, r)
		if len(batch) < exportBatchSize {
			return nil
		}
		err := w.Write(batch)
		batch = batch[:0]
		return err
	})
	if err == nil {
		err = w.Write(batch)
	}
	if err != nil {
		w.Close()
		return 0, err
	}

	if err := w.Close(); err != nil {
		return 0, err
	}
	return w.RowCount(), nil
}

// Query returns the analytics service over the configured export
// directory, opening it on first use.
func (s *Service) Query() (*query.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("storage service is closed")
	}
	if s.query == nil {
		q, err := query.New(s.config, s.parent)
		if err != nil {
			return nil, err
		}
		s.query = q
	}
	return s.query, nil
}
