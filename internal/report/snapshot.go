// Package report renders estimates as JSON snapshots. Unknown values are
// encoded as null rather than zero.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/rdegges/batfi/internal/estimate"
	"github.com/rdegges/batfi/internal/power"
)

// Snapshot is the JSON document emitted once per tick.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`
	Monitor   string    `json:"monitor"`

	Status    string `json:"status"`
	Direction string `json:"direction"`

	CapacityPercent *float64 `json:"capacity_percent"`
	CapacityTrend   string   `json:"capacity_trend"`
	HealthPercent   *float64 `json:"health_percent"`
	Cycles          *int     `json:"cycles"`

	VoltageV  *float64 `json:"voltage_v"`
	CurrentMA *int     `json:"current_ma"`

	PowerW         *float64 `json:"power_w"`
	PowerMethod    string   `json:"power_method,omitempty"`
	SmoothedPowerW *float64 `json:"smoothed_power_w"`
	RollingPowerW  *float64 `json:"rolling_power_w"`
	PowerTrend     string   `json:"power_trend"`

	EnergyNowWh  *float64 `json:"energy_now_wh"`
	EnergyFullWh *float64 `json:"energy_full_wh"`

	TimeRemainingMinutes *int   `json:"time_remaining_minutes"`
	TimeBasis            string `json:"time_basis,omitempty"`
	ChargePhase          string `json:"charge_phase,omitempty"`
	Confidence           string `json:"confidence"`
	Samples              int    `json:"samples"`

	TemperatureC    *float64 `json:"temperature_c"`
	CPUTemperatureC *float64 `json:"cpu_temperature_c"`

	Manufacturer string `json:"manufacturer,omitempty"`
	Model        string `json:"model,omitempty"`
	Technology   string `json:"technology,omitempty"`
	Battery      string `json:"battery,omitempty"`
}

// New builds a Snapshot from an estimate and the battery identity.
func New(est estimate.Estimate, info power.DeviceInfo, monitor string) Snapshot {
	s := Snapshot{
		Timestamp:       est.Timestamp.UTC(),
		Monitor:         monitor,
		Status:          est.Status.String(),
		Direction:       est.Direction.String(),
		CapacityPercent: ptr(est.CapacityPercent),
		CapacityTrend:   est.CapacityTrend.String(),
		HealthPercent:   ptr(est.HealthPercent),
		Cycles:          intPtr(est.Cycles, 1),
		VoltageV:        ptr(est.VoltageV),
		CurrentMA:       intPtr(est.CurrentA, 1000),
		PowerTrend:      est.Trend.String(),
		EnergyNowWh:     ptr(est.EnergyNowWh),
		EnergyFullWh:    ptr(est.EnergyFullWh),
		Confidence:      est.Confidence.String(),
		Samples:         est.Samples,
		Manufacturer:    info.Manufacturer,
		Model:           info.Model,
		Technology:      info.Technology,
		Battery:         info.Name,
	}

	if est.HasPower {
		s.PowerW = num(est.Power.Watts)
		s.PowerMethod = est.Power.Method.String()
	}
	if est.HasSmoothed {
		s.SmoothedPowerW = num(est.Smoothed.Value)
		s.RollingPowerW = num(est.Smoothed.Rolling)
	}
	if est.Time.Valid {
		m := est.Time.Minutes
		s.TimeRemainingMinutes = &m
		s.TimeBasis = est.Time.Basis.String()
		s.ChargePhase = est.Time.Phase.String()
	}
	if est.BatteryTemp.Valid {
		s.TemperatureC = num(est.BatteryTemp.Celsius)
	}
	if est.CPUTemp.Valid {
		s.CPUTemperatureC = num(est.CPUTemp.Celsius)
	}
	return s
}

// Encode writes snap as one JSON document followed by a newline.
func Encode(w io.Writer, snap Snapshot, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

func ptr(v power.Value) *float64 {
	f, ok := v.Get()
	if !ok {
		return nil
	}
	return num(f)
}

func num(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func intPtr(v power.Value, scale float64) *int {
	f, ok := v.Get()
	if !ok {
		return nil
	}
	n := int(math.Round(f * scale))
	return &n
}
