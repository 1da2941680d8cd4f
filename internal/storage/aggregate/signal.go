package aggregate

import (
	"math"

	"github.com/DataDog/sketches-go/ddsketch"

	"github.com/xtxerr/wifitracker/config"
	"github.com/xtxerr/wifitracker/internal/storage/types"
)

// SignalAggregate maintains running signal strength statistics for one
// device. Percentiles come from a DDSketch when one could be created.
//
// SignalAggregate is owned by a single scan and is not safe for
// concurrent use.
type SignalAggregate struct {
	mac string

	// Running statistics
	count int64
	sum   float64
	min   float64
	max   float64

	// DDSketch for percentiles (nil if disabled)
	sketch   *ddsketch.DDSketch
	accuracy float64
}

// NewSignalAggregate creates an aggregate for mac. An accuracy outside
// (0, 1) disables percentiles.
func NewSignalAggregate(mac string, accuracy float64) *SignalAggregate {
	agg := &SignalAggregate{
		mac:      mac,
		min:      math.MaxFloat64,
		max:      -math.MaxFloat64,
		accuracy: accuracy,
	}

	if accuracy > 0 && accuracy < 1 {
		sketch, err := ddsketch.NewDefaultDDSketch(accuracy)
		if err == nil {
			agg.sketch = sketch
		}
	}

	return agg
}

// Add adds a signal strength reading in dBm.
func (a *SignalAggregate) Add(dbm int) {
	value := float64(dbm)

	a.count++
	a.sum += value

	if value < a.min {
		a.min = value
	}
	if value > a.max {
		a.max = value
	}

	// DDSketch only accepts non-negative values; dBm readings are negative,
	// so the sketch tracks their magnitude.
	if a.sketch != nil {
		a.sketch.Add(math.Abs(value))
	}
}

// Count returns the number of readings added.
func (a *SignalAggregate) Count() int64 {
	return a.count
}

// IsEmpty returns true if no readings have been added.
func (a *SignalAggregate) IsEmpty() bool {
	return a.count == 0
}

// MAC returns the device this aggregate belongs to.
func (a *SignalAggregate) MAC() string {
	return a.mac
}

// Summary returns the statistics, or nil when no readings were added.
func (a *SignalAggregate) Summary() *types.SignalSummary {
	if a.count == 0 {
		return nil
	}

	s := &types.SignalSummary{
		Count: a.count,
		Min:   a.min,
		Max:   a.max,
		Avg:   a.sum / float64(a.count),
	}

	if a.sketch != nil {
		// The sketch holds magnitudes, so the strongest signal (closest to
		// zero) sits at the low quantiles.
		p50, err50 := a.sketch.GetValueAtQuantile(0.50)
		p90, err90 := a.sketch.GetValueAtQuantile(0.10)
		p99, err99 := a.sketch.GetValueAtQuantile(0.01)
		if err50 == nil && err90 == nil && err99 == nil {
			s.SetPercentiles(-p50, -p90, -p99)
		}
	}

	return s
}

// Merge combines another aggregate for the same device into this one.
func (a *SignalAggregate) Merge(other *SignalAggregate) {
	if other == nil || other.count == 0 {
		return
	}

	a.count += other.count
	a.sum += other.sum

	if other.min < a.min {
		a.min = other.min
	}
	if other.max > a.max {
		a.max = other.max
	}

	if a.sketch != nil && other.sketch != nil {
		a.sketch.MergeWith(other.sketch)
	}
}

// SignalSet keeps one SignalAggregate per device.
type SignalSet struct {
	accuracy   float64
	aggregates map[string]*SignalAggregate
}

// NewSignalSet creates an empty set. A zero accuracy uses the default.
func NewSignalSet(accuracy float64) *SignalSet {
	if accuracy == 0 {
		accuracy = config.DefaultPercentileAccuracy
	}
	return &SignalSet{
		accuracy:   accuracy,
		aggregates: make(map[string]*SignalAggregate),
	}
}

// Process adds the signal strength of r, if it has one.
func (s *SignalSet) Process(r types.ProbeRequest) {
	if r.SignalStrength == nil {
		return
	}
	s.agg(r.SourceMAC).Add(*r.SignalStrength)
}

func (s *SignalSet) agg(mac string) *SignalAggregate {
	agg, ok := s.aggregates[mac]
	if !ok {
		agg = NewSignalAggregate(mac, s.accuracy)
		s.aggregates[mac] = agg
	}
	return agg
}

// Get returns the aggregate for mac, or nil.
func (s *SignalSet) Get(mac string) *SignalAggregate {
	return s.aggregates[mac]
}

// Len returns the number of devices with readings.
func (s *SignalSet) Len() int {
	return len(s.aggregates)
}

// Attach sets the Signal summary of every device that has readings.
func (s *SignalSet) Attach(devices map[string]*types.Device) {
	for mac, agg := range s.aggregates {
		if d, ok := devices[mac]; ok {
			d.Signal = agg.Summary()
		}
	}
}
