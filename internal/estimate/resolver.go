package estimate

import (
	"math"
	"time"

	"github.com/rdegges/batfi/internal/power"
	"github.com/sirupsen/logrus"
)

// ResolutionMethod names the way an instantaneous power value was obtained.
type ResolutionMethod int

const (
	DirectPowerReading ResolutionMethod = iota
	ChargeVoltageProduct
	CurrentVoltageProduct
	CapacityDerived
)

func (m ResolutionMethod) String() string {
	switch m {
	case DirectPowerReading:
		return "direct"
	case ChargeVoltageProduct:
		return "charge×voltage"
	case CurrentVoltageProduct:
		return "current×voltage"
	case CapacityDerived:
		return "capacity"
	default:
		return "unknown"
	}
}

// PowerEstimate is the instantaneous power resolved for one tick.
type PowerEstimate struct {
	Watts      float64
	Method     ResolutionMethod
	Confidence Confidence
}

// Strategy is one step of the power fallback chain. prev is the batch the
// resolver saw on the previous tick, or nil.
type Strategy interface {
	Method() ResolutionMethod
	TryResolve(cur power.Batch, prev *power.Batch) (PowerEstimate, bool)
}

// DirectPower uses power_now as reported.
type DirectPower struct{}

func (DirectPower) Method() ResolutionMethod { return DirectPowerReading }

func (DirectPower) TryResolve(cur power.Batch, _ *power.Batch) (PowerEstimate, bool) {
	w, ok := cur.Value(power.PowerNow)
	if !ok {
		return PowerEstimate{}, false
	}
	return PowerEstimate{Watts: math.Abs(w), Method: DirectPowerReading, Confidence: ConfidenceHigh}, true
}

const (
	// DefaultChargeMinSpan is the shortest interval between two charge_now
	// steps that yields a rate.
	DefaultChargeMinSpan = 30 * time.Second

	// DefaultChargeMaxDeviation bounds how far the implied current may stray
	// from current_now, relative to current_now.
	DefaultChargeMaxDeviation = 0.5
)

// ChargeRate multiplies the rate of change of charge_now by the voltage.
//
// charge_now moves in coarse steps, so the rate is measured between two
// steps at least MinSpan apart and held until the next one. The first step
// only anchors the measurement. Use NewChargeRate; the zero value is usable
// with the defaults.
type ChargeRate struct {
	MinSpan      time.Duration
	MaxDeviation float64

	lastAh  float64
	seen    bool
	stepAh  float64
	stepAt  time.Time
	stepped bool

	deltaAh float64
	span    time.Duration
}

// NewChargeRate returns a ChargeRate with the default span and deviation.
func NewChargeRate() *ChargeRate {
	return &ChargeRate{MinSpan: DefaultChargeMinSpan, MaxDeviation: DefaultChargeMaxDeviation}
}

func (*ChargeRate) Method() ResolutionMethod { return ChargeVoltageProduct }

// TryResolve tracks charge_now across calls; prev is not used.
func (s *ChargeRate) TryResolve(cur power.Batch, _ *power.Batch) (PowerEstimate, bool) {
	now, ok := cur.Value(power.ChargeNow)
	if !ok {
		return PowerEstimate{}, false
	}
	s.observe(now, cur.Timestamp)

	volts, ok := cur.Value(power.VoltageNow)
	if !ok || s.span <= 0 {
		return PowerEstimate{}, false
	}

	// Past the last measured span the step size caps the rate.
	span := s.span
	if since := cur.Timestamp.Sub(s.stepAt); since > span {
		span = since
	}
	amps := s.deltaAh / span.Hours()

	if current, ok := cur.Value(power.CurrentNow); ok && current != 0 {
		maxDev := s.MaxDeviation
		if maxDev <= 0 {
			maxDev = DefaultChargeMaxDeviation
		}
		if math.Abs(amps-math.Abs(current))/math.Abs(current) > maxDev {
			return PowerEstimate{}, false
		}
	}
	return PowerEstimate{Watts: amps * volts, Method: ChargeVoltageProduct, Confidence: ConfidenceMedium}, true
}

// observe records one charge reading and measures a new rate when it
// completes a step interval.
func (s *ChargeRate) observe(ah float64, ts time.Time) {
	if !s.seen {
		s.lastAh, s.seen = ah, true
		return
	}
	if ah == s.lastAh {
		return
	}
	s.lastAh = ah

	if !s.stepped {
		s.stepAh, s.stepAt, s.stepped = ah, ts, true
		return
	}
	minSpan := s.MinSpan
	if minSpan <= 0 {
		minSpan = DefaultChargeMinSpan
	}
	span := ts.Sub(s.stepAt)
	if span < minSpan {
		return
	}
	s.deltaAh = math.Abs(ah - s.stepAh)
	s.span = span
	s.stepAh, s.stepAt = ah, ts
}

// Reset forgets every charge reading.
func (s *ChargeRate) Reset() {
	*s = ChargeRate{MinSpan: s.MinSpan, MaxDeviation: s.MaxDeviation}
}

// CurrentVoltage multiplies voltage by the magnitude of the current.
type CurrentVoltage struct{}

func (CurrentVoltage) Method() ResolutionMethod { return CurrentVoltageProduct }

func (CurrentVoltage) TryResolve(cur power.Batch, _ *power.Batch) (PowerEstimate, bool) {
	amps, ok1 := cur.Value(power.CurrentNow)
	volts, ok2 := cur.Value(power.VoltageNow)
	if !ok1 || !ok2 {
		return PowerEstimate{}, false
	}
	return PowerEstimate{Watts: volts * math.Abs(amps), Method: CurrentVoltageProduct, Confidence: ConfidenceMedium}, true
}

// CapacityRate derives power from how fast the capacity percentage moves.
type CapacityRate struct {
	Config Config
}

func (CapacityRate) Method() ResolutionMethod { return CapacityDerived }

func (s CapacityRate) TryResolve(cur power.Batch, prev *power.Batch) (PowerEstimate, bool) {
	if prev == nil {
		return PowerEstimate{}, false
	}
	hours := cur.Timestamp.Sub(prev.Timestamp).Hours()
	if hours <= 0 {
		return PowerEstimate{}, false
	}
	pct, ok1 := cur.Value(power.CapacityPercent)
	before, ok2 := prev.Value(power.CapacityPercent)
	if !ok1 || !ok2 {
		return PowerEstimate{}, false
	}
	capacityWh, ok := s.capacityWh(cur)
	if !ok {
		return PowerEstimate{}, false
	}
	watts := capacityWh * math.Abs(pct-before) / 100 / hours
	return PowerEstimate{Watts: watts, Method: CapacityDerived, Confidence: ConfidenceLow}, true
}

func (s CapacityRate) capacityWh(b power.Batch) (float64, bool) {
	if full, ok := b.Value(power.EnergyFull); ok && full > 0 {
		return full, true
	}
	volts, ok := b.Value(power.VoltageNow)
	if !ok || volts <= 0 {
		return 0, false
	}
	if ah, ok := b.Value(power.ChargeFull); ok && ah > 0 {
		return power.EnergyFromCharge(ah, volts), true
	}
	return power.EnergyFromCharge(s.Config.NominalAh(volts), volts), true
}

// DefaultStrategies returns the fallback chain in priority order.
func DefaultStrategies(cfg Config) []Strategy {
	return []Strategy{
		DirectPower{},
		NewChargeRate(),
		CurrentVoltage{},
		CapacityRate{Config: cfg},
	}
}

// Resolver walks an ordered list of strategies and returns the first result
// within the configured power bounds.
type Resolver struct {
	strategies []Strategy
	minW, maxW float64
	prev       *power.Batch
	log        logrus.FieldLogger
}

// NewResolver creates a resolver. With no strategies the default chain is used.
func NewResolver(cfg Config, log logrus.FieldLogger, strategies ...Strategy) *Resolver {
	if len(strategies) == 0 {
		strategies = DefaultStrategies(cfg)
	}
	if log == nil {
		log = discardLogger()
	}
	return &Resolver{
		strategies: strategies,
		minW:       cfg.MinPowerW,
		maxW:       cfg.MaxPowerW,
		log:        log,
	}
}

// Resolve returns the best power value for b. The batch is remembered for the
// derivative strategies of the next call.
func (r *Resolver) Resolve(b power.Batch) (PowerEstimate, bool) {
	prev := r.prev
	defer func() { r.prev = &b }()

	for _, s := range r.strategies {
		est, ok := s.TryResolve(b, prev)
		if !ok {
			continue
		}
		switch {
		case math.IsNaN(est.Watts) || math.IsInf(est.Watts, 0):
			continue
		case est.Watts < r.minW:
			r.log.Debugf("Ignoring %.3f W from %s: below noise floor", est.Watts, s.Method())
			continue
		case est.Watts > r.maxW:
			r.log.Debugf("Ignoring %.1f W from %s: out of range", est.Watts, s.Method())
			continue
		}
		return est, true
	}
	return PowerEstimate{}, false
}

// Reset forgets the previous batch and any state held by the strategies.
func (r *Resolver) Reset() {
	r.prev = nil
	for _, s := range r.strategies {
		if rs, ok := s.(interface{ Reset() }); ok {
			rs.Reset()
		}
	}
}
