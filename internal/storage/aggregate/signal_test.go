package aggregate

import (
	"math"
	"testing"

	"github.com/xtxerr/wifitracker/internal/storage/types"
	trtest "github.com/xtxerr/wifitracker/internal/testing"
)

func TestSignalAggregate_Basic(t *testing.T) {
	agg := NewSignalAggregate("aa:bb:cc:dd:ee:01", 0.01)

	if !agg.IsEmpty() {
		t.Error("new aggregate should be empty")
	}
	if agg.Summary() != nil {
		t.Error("empty aggregate should have no summary")
	}

	agg.Add(-40)
	agg.Add(-50)
	agg.Add(-60)

	if agg.Count() != 3 {
		t.Errorf("expected count=3, got %d", agg.Count())
	}

	s := agg.Summary()
	if s.Count != 3 {
		t.Errorf("expected count=3, got %d", s.Count)
	}
	if s.Min != -60 {
		t.Errorf("expected min=-60, got %v", s.Min)
	}
	if s.Max != -40 {
		t.Errorf("expected max=-40, got %v", s.Max)
	}
	if s.Avg != -50 {
		t.Errorf("expected avg=-50, got %v", s.Avg)
	}
}

func TestSignalAggregate_Percentiles(t *testing.T) {
	agg := NewSignalAggregate("aa:bb:cc:dd:ee:01", 0.01)

	// -1 .. -100 dBm
	for i := 1; i <= 100; i++ {
		agg.Add(-i)
	}

	s := agg.Summary()
	if !s.HasPercentiles() {
		t.Fatal("expected percentiles")
	}

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"p50", *s.P50, -50},
		{"p90", *s.P90, -10},
		{"p99", *s.P99, -1},
	}
	for _, tt := range tests {
		// 1% relative accuracy plus one rank of slack.
		tol := math.Abs(tt.want)*0.02 + 1
		if math.Abs(tt.got-tt.want) > tol {
			t.Errorf("%s = %v, want %v ± %v", tt.name, tt.got, tt.want, tol)
		}
	}
	if !(*s.P99 >= *s.P90 && *s.P90 >= *s.P50) {
		t.Errorf("percentiles not ordered: p50=%v p90=%v p99=%v", *s.P50, *s.P90, *s.P99)
	}
}

func TestSignalAggregate_NoSketch(t *testing.T) {
	agg := NewSignalAggregate("aa:bb:cc:dd:ee:01", 0)
	agg.Add(-42)

	s := agg.Summary()
	if s.HasPercentiles() {
		t.Error("percentiles should be absent without a sketch")
	}
	if s.Count != 1 || s.Avg != -42 {
		t.Errorf("summary = %+v", s)
	}
}

func TestSignalAggregate_Merge(t *testing.T) {
	a := NewSignalAggregate("aa:bb:cc:dd:ee:01", 0.01)
	b := NewSignalAggregate("aa:bb:cc:dd:ee:01", 0.01)

	a.Add(-30)
	a.Add(-40)
	b.Add(-80)

	a.Merge(b)
	a.Merge(nil)

	s := a.Summary()
	if s.Count != 3 {
		t.Errorf("expected count=3, got %d", s.Count)
	}
	if s.Min != -80 || s.Max != -30 {
		t.Errorf("min/max = %v/%v, want -80/-30", s.Min, s.Max)
	}
	if s.Avg != -50 {
		t.Errorf("expected avg=-50, got %v", s.Avg)
	}
}

func TestSignalSet_Attach(t *testing.T) {
	set := NewSignalSet(0)

	set.Process(trtest.Probe("aa:bb:cc:dd:ee:01", "home", trtest.At(1), -40))
	set.Process(trtest.Probe("aa:bb:cc:dd:ee:01", "home", trtest.At(2), -60))
	set.Process(trtest.BroadcastProbe("aa:bb:cc:dd:ee:02", trtest.At(3)))

	if set.Len() != 1 {
		t.Fatalf("expected 1 device with readings, got %d", set.Len())
	}

	devices := map[string]*types.Device{
		"aa:bb:cc:dd:ee:01": types.NewDevice("aa:bb:cc:dd:ee:01"),
		"aa:bb:cc:dd:ee:02": types.NewDevice("aa:bb:cc:dd:ee:02"),
	}
	set.Attach(devices)

	if s := devices["aa:bb:cc:dd:ee:01"].Signal; s == nil || s.Count != 2 || s.Avg != -50 {
		t.Errorf("device 01 signal = %+v", s)
	}
	if s := devices["aa:bb:cc:dd:ee:02"].Signal; s != nil {
		t.Errorf("device 02 signal = %+v, want nil", s)
	}
}
