package parquet

import (
	"time"

	"github.com/xtxerr/wifitracker/internal/storage/types"
)

// ProbeRow represents a probe request in Parquet format.
type ProbeRow struct {
	SourceMAC      string  `parquet:"source_mac"`
	CaptureUs      *int64  `parquet:"capture_us,optional"`
	TargetSSID     *string `parquet:"target_ssid,optional"`
	SignalStrength *int32  `parquet:"signal_strength,optional"`
}

// DeviceRow represents a device snapshot in Parquet format.
type DeviceRow struct {
	DeviceMAC     string   `parquet:"device_mac"`
	Alias         *string  `parquet:"alias,optional"`
	KnownSSIDs    []string `parquet:"known_ssids,list"`
	LastSeenUs    *int64   `parquet:"last_seen_us,optional"`
	VendorCompany *string  `parquet:"vendor_company,optional"`
	VendorCountry *string  `parquet:"vendor_country,optional"`

	// Signal statistics, null when not collected
	SignalCount *int64   `parquet:"signal_count,optional"`
	SignalMin   *float64 `parquet:"signal_min,optional"`
	SignalMax   *float64 `parquet:"signal_max,optional"`
	SignalAvg   *float64 `parquet:"signal_avg,optional"`
	SignalP50   *float64 `parquet:"signal_p50,optional"`
	SignalP90   *float64 `parquet:"signal_p90,optional"`
	SignalP99   *float64 `parquet:"signal_p99,optional"`
}

// StationRow represents a station snapshot in Parquet format.
type StationRow struct {
	SSID              string   `parquet:"ssid"`
	AssociatedDevices []string `parquet:"associated_devices,list"`
	DeviceCount       int32    `parquet:"device_count"`
}

// ProbeToRow converts a ProbeRequest to a ProbeRow.
func ProbeToRow(r *types.ProbeRequest) ProbeRow {
	row := ProbeRow{
		SourceMAC:  r.SourceMAC,
		CaptureUs:  micros(r.CaptureDTS),
		TargetSSID: r.TargetSSID,
	}
	if r.SignalStrength != nil {
		v := int32(*r.SignalStrength)
		row.SignalStrength = &v
	}
	return row
}

// RowToProbe converts a ProbeRow to a ProbeRequest.
func RowToProbe(row *ProbeRow) types.ProbeRequest {
	var signal *int
	if row.SignalStrength != nil {
		v := int(*row.SignalStrength)
		signal = &v
	}
	ssid := ""
	if row.TargetSSID != nil {
		ssid = *row.TargetSSID
	}
	return types.NewProbeRequest(row.SourceMAC, fromMicros(row.CaptureUs), ssid, signal)
}

// DeviceToRow converts a Device to a DeviceRow.
func DeviceToRow(d *types.Device) DeviceRow {
	row := DeviceRow{
		DeviceMAC:     d.DeviceMAC,
		Alias:         optional(d.Alias),
		KnownSSIDs:    append([]string{}, d.KnownSSIDs...),
		LastSeenUs:    micros(d.LastSeenDTS),
		VendorCompany: optional(d.VendorCompany),
		VendorCountry: optional(d.VendorCountry),
	}

	if s := d.Signal; s != nil {
		count, lo, hi, avg := s.Count, s.Min, s.Max, s.Avg
		row.SignalCount = &count
		row.SignalMin = &lo
		row.SignalMax = &hi
		row.SignalAvg = &avg
		row.SignalP50 = s.P50
		row.SignalP90 = s.P90
		row.SignalP99 = s.P99
	}

	return row
}

// RowToDevice converts a DeviceRow to a Device.
func RowToDevice(row *DeviceRow) *types.Device {
	d := types.NewDevice(row.DeviceMAC)
	for _, ssid := range row.KnownSSIDs {
		d.AddSSID(ssid)
	}
	d.LastSeenDTS = fromMicros(row.LastSeenUs)
	if row.Alias != nil {
		d.SetAlias(*row.Alias)
	}
	if row.VendorCompany != nil {
		d.VendorCompany = *row.VendorCompany
	}
	if row.VendorCountry != nil {
		d.VendorCountry = *row.VendorCountry
	}

	if row.SignalCount != nil {
		s := &types.SignalSummary{Count: *row.SignalCount}
		if row.SignalMin != nil {
			s.Min = *row.SignalMin
		}
		if row.SignalMax != nil {
			s.Max = *row.SignalMax
		}
		if row.SignalAvg != nil {
			s.Avg = *row.SignalAvg
		}
		// Set percentiles if present
		if row.SignalP50 != nil && row.SignalP90 != nil && row.SignalP99 != nil {
			s.SetPercentiles(*row.SignalP50, *row.SignalP90, *row.SignalP99)
		}
		d.Signal = s
	}

	return d
}

// StationToRow converts a Station to a StationRow.
func StationToRow(s *types.Station) StationRow {
	return StationRow{
		SSID:              s.SSID,
		AssociatedDevices: append([]string{}, s.AssociatedDevices...),
		DeviceCount:       int32(len(s.AssociatedDevices)),
	}
}

// RowToStation converts a StationRow to a Station.
func RowToStation(row *StationRow) *types.Station {
	s := types.NewStation(row.SSID)
	for _, mac := range row.AssociatedDevices {
		s.AddDevice(mac)
	}
	return s
}

func micros(t time.Time) *int64 {
	if t.IsZero() {
		return nil
	}
	us := t.UnixMicro()
	return &us
}

func fromMicros(us *int64) time.Time {
	if us == nil {
		return time.Time{}
	}
	return time.UnixMicro(*us)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
