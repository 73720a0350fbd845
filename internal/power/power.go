// Package power reads battery and thermal telemetry from the host and hands it
// to the estimator as provenance-tagged samples.
package power

import (
	"context"
	"math"
	"strings"
	"time"
)

// Monitor provides one batch of telemetry per tick.
type Monitor interface {
	// Read returns every sample available right now as a single batch.
	// Returns an error if the battery cannot be read at all.
	Read(ctx context.Context) (Batch, error)

	// IsSupported returns true if battery telemetry is available on this system.
	IsSupported() bool

	// Name returns the name of this monitor implementation.
	Name() string
}

// Status is the charge state reported by the battery.
type Status int

const (
	StatusUnknown Status = iota
	StatusCharging
	StatusDischarging
	StatusNotCharging
	StatusFull
)

// ParseStatus maps a sysfs-style status string to a Status.
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "charging":
		return StatusCharging
	case "discharging":
		return StatusDischarging
	case "not charging":
		return StatusNotCharging
	case "full":
		return StatusFull
	default:
		return StatusUnknown
	}
}

func (s Status) String() string {
	switch s {
	case StatusCharging:
		return "Charging"
	case StatusDischarging:
		return "Discharging"
	case StatusNotCharging:
		return "Not charging"
	case StatusFull:
		return "Full"
	default:
		return "Unknown"
	}
}

// Batch is the set of samples read during one tick. The estimator treats a
// batch as atomic: it is either applied whole or rejected.
type Batch struct {
	// Timestamp is when the batch was assembled.
	Timestamp time.Time

	// Status is the charge state reported alongside the samples.
	Status Status

	// Source names the device the samples came from (e.g. "BAT0").
	Source string

	// Samples holds at most one sample per MetricKind.
	Samples []Sample
}

// Add appends a sample, replacing any earlier sample of the same kind.
func (b *Batch) Add(s Sample) {
	for i := range b.Samples {
		if b.Samples[i].Metric == s.Metric {
			b.Samples[i] = s
			return
		}
	}
	b.Samples = append(b.Samples, s)
}

// Sample returns the raw sample of the given kind, valid or not.
func (b Batch) Sample(kind MetricKind) (Sample, bool) {
	for _, s := range b.Samples {
		if s.Metric == kind {
			return s, true
		}
	}
	return Sample{}, false
}

// Value returns the normalized value of kind. Missing, unnormalized,
// non-finite and physically impossible samples all report false.
func (b Batch) Value(kind MetricKind) (float64, bool) {
	s, ok := b.Sample(kind)
	if !ok || !s.Usable() {
		return 0, false
	}
	return s.Value, true
}

// Lookup is Value wrapped as an optional Value.
func (b Batch) Lookup(kind MetricKind) Value {
	v, ok := b.Value(kind)
	if !ok {
		return Value{}
	}
	return Known(v)
}

// Value is a measurement that may be absent.
type Value struct {
	Float float64
	Valid bool
}

// Known wraps a present measurement.
func Known(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Value{}
	}
	return Value{Float: v, Valid: true}
}

// Get returns the measurement and whether it is present.
func (v Value) Get() (float64, bool) {
	return v.Float, v.Valid
}
