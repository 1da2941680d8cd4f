// Package aggregate rebuilds Device and Station views from the request log.
//
// Every query is a single forward pass over the log chunks up to a cutoff
// time. Nothing is cached between queries, so the result is a pure
// function of the log contents, the cutoff and the alias overlay.
package aggregate

import (
	"log/slog"
	"time"

	"github.com/xtxerr/wifitracker/internal/logging"
	"github.com/xtxerr/wifitracker/internal/storage/eventlog"
	"github.com/xtxerr/wifitracker/internal/storage/types"
)

// Options configures an Engine.
type Options struct {
	// Logger for scan events. Defaults to the aggregate component logger.
	Logger *slog.Logger

	// Now resolves a zero cutoff. Defaults to time.Now.
	Now func() time.Time

	// SignalStats enables per-device signal strength statistics.
	SignalStats bool

	// PercentileAccuracy is the relative accuracy of signal percentiles.
	// Default: 0.01
	PercentileAccuracy float64
}

// Engine answers aggregate queries over a request log.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	store *eventlog.Store
	opts  Options
	log   *slog.Logger
}

// NewEngine creates an engine reading from store.
func NewEngine(store *eventlog.Store, opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		store: store,
		opts:  opts,
		log:   logging.OrComponent(opts.Logger, "aggregate"),
	}
}

// Devices returns every device seen up to cutoff, keyed by MAC. The alias
// overlay is applied when a device is first seen. LastSeenDTS is the latest
// capture time of the device's requests.
func (e *Engine) Devices(cutoff time.Time, aliases map[string]string) (map[string]*types.Device, error) {
	devices := make(map[string]*types.Device)

	var signals *SignalSet
	if e.opts.SignalStats {
		signals = NewSignalSet(e.opts.PercentileAccuracy)
	}

	err := e.Probes(cutoff, func(r types.ProbeRequest) error {
		d, ok := devices[r.SourceMAC]
		if !ok {
			d = types.NewDevice(r.SourceMAC)
			d.SetAlias(aliases[r.SourceMAC])
			devices[r.SourceMAC] = d
			e.log.Debug("new device", "mac", r.SourceMAC)
		}
		if r.TargetSSID != nil {
			d.AddSSID(*r.TargetSSID)
		}
		if r.CaptureDTS.After(d.LastSeenDTS) {
			d.LastSeenDTS = r.CaptureDTS
		}
		if signals != nil {
			signals.Process(r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if signals != nil {
		signals.Attach(devices)
	}
	return devices, nil
}

// Device returns the device with the given MAC as of cutoff. LastSeenDTS
// is the capture time of the last matching request in log order. A MAC
// that never appears yields a device with no SSIDs and no last-seen time.
func (e *Engine) Device(mac string, cutoff time.Time, alias string) (*types.Device, error) {
	d := types.NewDevice(mac)
	d.SetAlias(alias)

	var signal *SignalAggregate
	if e.opts.SignalStats {
		signal = NewSignalSet(e.opts.PercentileAccuracy).agg(mac)
	}

	err := e.Probes(cutoff, func(r types.ProbeRequest) error {
		if r.SourceMAC != mac {
			return nil
		}
		if r.TargetSSID != nil {
			d.AddSSID(*r.TargetSSID)
		}
		d.LastSeenDTS = r.CaptureDTS
		if signal != nil && r.SignalStrength != nil {
			signal.Add(*r.SignalStrength)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if signal != nil {
		d.Signal = signal.Summary()
	}
	return d, nil
}

// Stations returns every SSID probed for up to cutoff, keyed by SSID.
func (e *Engine) Stations(cutoff time.Time) (map[string]*types.Station, error) {
	stations := make(map[string]*types.Station)

	err := e.Probes(cutoff, func(r types.ProbeRequest) error {
		if r.TargetSSID == nil || *r.TargetSSID == "" {
			return nil
		}
		ssid := *r.TargetSSID
		s, ok := stations[ssid]
		if !ok {
			s = types.NewStation(ssid)
			stations[ssid] = s
			e.log.Debug("new station", "ssid", ssid)
		}
		s.AddDevice(r.SourceMAC)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stations, nil
}

// Station returns the station with the given SSID as of cutoff. An SSID
// that never appears yields a station without devices.
func (e *Engine) Station(ssid string, cutoff time.Time) (*types.Station, error) {
	s := types.NewStation(ssid)

	err := e.Probes(cutoff, func(r types.ProbeRequest) error {
		if r.TargetSSID != nil && *r.TargetSSID == ssid {
			s.AddDevice(r.SourceMAC)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Probes calls fn for every request up to cutoff, in log order. A zero
// cutoff means now. Scanning stops at the first error returned by fn.
func (e *Engine) Probes(cutoff time.Time, fn func(types.ProbeRequest) error) error {
	if cutoff.IsZero() {
		cutoff = e.opts.Now()
	}

	it := e.store.Chunks(cutoff)
	defer it.Close()

	for it.Next() {
		for _, r := range it.Chunk().Records {
			if err := fn(r); err != nil {
				return err
			}
		}
	}
	if err := it.Err(); err != nil {
		return err
	}

	stats := it.Stats()
	e.log.Debug("scan complete",
		"cutoff", cutoff,
		"chunks", stats.Chunks,
		"records", stats.Records,
		"corrupt_lines", stats.CorruptLines,
		"bad_timestamps", stats.BadTimestamps,
		"stopped_early", stats.StoppedEarly)

	return nil
}
