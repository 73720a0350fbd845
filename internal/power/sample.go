package power

import (
	"math"
	"time"
)

// MetricKind identifies what a sample measures.
type MetricKind int

const (
	EnergyNow MetricKind = iota
	EnergyFull
	EnergyFullDesign
	ChargeNow
	ChargeFull
	ChargeFullDesign
	PowerNow
	VoltageNow
	CurrentNow
	CapacityPercent
	Temperature
	CPUTemperature
	CycleCount
)

// MetricKinds lists every kind in declaration order.
var MetricKinds = []MetricKind{
	EnergyNow, EnergyFull, EnergyFullDesign,
	ChargeNow, ChargeFull, ChargeFullDesign,
	PowerNow, VoltageNow, CurrentNow,
	CapacityPercent, Temperature, CPUTemperature, CycleCount,
}

func (k MetricKind) String() string {
	switch k {
	case EnergyNow:
		return "energy_now"
	case EnergyFull:
		return "energy_full"
	case EnergyFullDesign:
		return "energy_full_design"
	case ChargeNow:
		return "charge_now"
	case ChargeFull:
		return "charge_full"
	case ChargeFullDesign:
		return "charge_full_design"
	case PowerNow:
		return "power_now"
	case VoltageNow:
		return "voltage_now"
	case CurrentNow:
		return "current_now"
	case CapacityPercent:
		return "capacity"
	case Temperature:
		return "temp"
	case CPUTemperature:
		return "cpu_temp"
	case CycleCount:
		return "cycle_count"
	default:
		return "unknown"
	}
}

// Unit returns the canonical unit a normalized sample of this kind is in.
func (k MetricKind) Unit() string {
	switch k {
	case EnergyNow, EnergyFull, EnergyFullDesign:
		return "Wh"
	case ChargeNow, ChargeFull, ChargeFullDesign:
		return "Ah"
	case PowerNow:
		return "W"
	case VoltageNow:
		return "V"
	case CurrentNow:
		return "A"
	case CapacityPercent:
		return "%"
	case Temperature, CPUTemperature:
		return "°C"
	case CycleCount:
		return ""
	default:
		return ""
	}
}

// signed reports whether negative values are physically meaningful.
func (k MetricKind) signed() bool {
	switch k {
	case PowerNow, CurrentNow, Temperature, CPUTemperature:
		return true
	default:
		return false
	}
}

// Sample is one reading of one metric at one point in time.
type Sample struct {
	Metric     MetricKind
	Value      float64
	Normalized bool
	Timestamp  time.Time

	// Source describes where this reading came from (e.g. "BAT0/power_now").
	Source string
}

// NewSample builds a normalized sample.
func NewSample(kind MetricKind, value float64, ts time.Time, source string) Sample {
	return Sample{
		Metric:     kind,
		Value:      value,
		Normalized: true,
		Timestamp:  ts,
		Source:     source,
	}
}

// Usable reports whether the sample can feed a calculation.
func (s Sample) Usable() bool {
	if !s.Normalized {
		return false
	}
	if math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
		return false
	}
	if s.Value < 0 && !s.Metric.signed() {
		return false
	}
	return true
}
