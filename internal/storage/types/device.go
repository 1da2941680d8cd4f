package types

import (
	"fmt"
	"sort"
	"time"
)

// VendorUnknown marks a device whose vendor lookup was attempted and failed.
const VendorUnknown = "unknown"

// Device is the aggregate view of one MAC address as of a snapshot time.
// Devices are rebuilt from the request log on every query; only the alias
// is persisted elsewhere.
type Device struct {
	DeviceMAC string

	// LastSeenDTS is the zero time until a timestamped request was seen.
	LastSeenDTS time.Time

	// KnownSSIDs holds every SSID the device probed for, in order of first
	// appearance, without duplicates or empty entries.
	KnownSSIDs []string

	// VendorCompany and VendorCountry are empty until enrichment ran and
	// VendorUnknown after a failed lookup.
	VendorCompany string
	VendorCountry string

	// Alias is a human-readable name. Once set it is never replaced.
	Alias string

	// Signal is only populated when signal statistics are enabled.
	Signal *SignalSummary

	ssids map[string]struct{}
}

// NewDevice creates an empty device.
func NewDevice(mac string) *Device {
	return &Device{
		DeviceMAC:  mac,
		KnownSSIDs: []string{},
		ssids:      make(map[string]struct{}),
	}
}

// SetAlias sets the alias unless one is already set. It reports whether
// the alias changed.
func (d *Device) SetAlias(alias string) bool {
	if d.Alias != "" || alias == "" {
		return false
	}
	d.Alias = alias
	return true
}

// AddSSID appends ssid if it is non-empty and not yet known. It reports
// whether the SSID was added.
func (d *Device) AddSSID(ssid string) bool {
	if ssid == "" {
		return false
	}
	if d.ssids == nil {
		d.ssids = make(map[string]struct{}, len(d.KnownSSIDs))
		for _, s := range d.KnownSSIDs {
			d.ssids[s] = struct{}{}
		}
	}
	if _, ok := d.ssids[ssid]; ok {
		return false
	}
	d.ssids[ssid] = struct{}{}
	d.KnownSSIDs = append(d.KnownSSIDs, ssid)
	return true
}

// SetVendor records a successful vendor lookup.
func (d *Device) SetVendor(company, country string) {
	d.VendorCompany = company
	d.VendorCountry = country
}

// SetVendorUnknown records a failed vendor lookup.
func (d *Device) SetVendorUnknown() {
	d.VendorCompany = VendorUnknown
	d.VendorCountry = VendorUnknown
}

// String returns a short human-readable description.
func (d *Device) String() string {
	return fmt.Sprintf("MAC='%s', vendor='%s [%s]'", d.DeviceMAC, d.VendorCompany, d.VendorCountry)
}

// Station is the aggregate view of one SSID as of a snapshot time.
type Station struct {
	SSID string

	// AssociatedDevices holds every MAC that probed for SSID, in order of
	// first appearance, without duplicates or empty entries.
	AssociatedDevices []string

	macs map[string]struct{}
}

// NewStation creates an empty station.
func NewStation(ssid string) *Station {
	return &Station{
		SSID:              ssid,
		AssociatedDevices: []string{},
		macs:              make(map[string]struct{}),
	}
}

// AddDevice appends mac if it is non-empty and not yet associated. It
// reports whether the device was added.
func (s *Station) AddDevice(mac string) bool {
	if mac == "" {
		return false
	}
	if s.macs == nil {
		s.macs = make(map[string]struct{}, len(s.AssociatedDevices))
		for _, m := range s.AssociatedDevices {
			s.macs[m] = struct{}{}
		}
	}
	if _, ok := s.macs[mac]; ok {
		return false
	}
	s.macs[mac] = struct{}{}
	s.AssociatedDevices = append(s.AssociatedDevices, mac)
	return true
}

// String returns a short human-readable description.
func (s *Station) String() string {
	return fmt.Sprintf("SSID='%s'", EscapeSSID(s.SSID))
}

// SignalSummary describes the signal strength of a device's probes.
type SignalSummary struct {
	Count int64   `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`

	// Percentiles (nil when no sketch was kept)
	P50 *float64 `json:"p50,omitempty"`
	P90 *float64 `json:"p90,omitempty"`
	P99 *float64 `json:"p99,omitempty"`
}

// HasPercentiles returns true if percentile data is available.
func (s *SignalSummary) HasPercentiles() bool {
	return s.P50 != nil
}

// SetPercentiles sets all percentile values.
func (s *SignalSummary) SetPercentiles(p50, p90, p99 float64) {
	s.P50 = &p50
	s.P90 = &p90
	s.P99 = &p99
}

// SortedDevices returns the devices of a snapshot ordered by MAC.
func SortedDevices(devices map[string]*Device) []*Device {
	out := make([]*Device, 0, len(devices))
	for _, d := range devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DeviceMAC < out[j].DeviceMAC
	})
	return out
}

// SortedStations returns the stations of a snapshot ordered by SSID.
func SortedStations(stations map[string]*Station) []*Station {
	out := make([]*Station, 0, len(stations))
	for _, s := range stations {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SSID < out[j].SSID
	})
	return out
}
