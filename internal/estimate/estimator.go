// Package estimate turns per-tick battery telemetry into smoothed power,
// time-to-empty or time-to-full estimates and trend labels.
//
// An Estimator is fed one power.Batch per tick from a single goroutine. It
// owns all smoothing state and must not be shared.
package estimate

import (
	"errors"
	"io"
	"time"

	"github.com/rdegges/batfi/internal/power"
	"github.com/sirupsen/logrus"
)

// ErrOutOfOrder is returned by Tick for a batch older than the last one.
var ErrOutOfOrder = errors.New("batch older than last accepted tick")

// capacityTrendLen is how many capacity readings back the capacity arrow.
const capacityTrendLen = 5

// Estimate is everything the estimator knows after one tick.
type Estimate struct {
	Timestamp time.Time
	Status    power.Status
	Direction Direction

	// Flipped is set on the tick where the direction changed and the
	// smoothing state was reset.
	Flipped bool

	Power    PowerEstimate
	HasPower bool

	Smoothed    Blended
	HasSmoothed bool

	Time       TimeEstimate
	Trend      TrendLabel
	Confidence Confidence
	Samples    int

	// CapacityTrend follows the capacity percentage over the last few ticks.
	CapacityTrend TrendLabel

	EnergyNowWh     power.Value
	EnergyFullWh    power.Value
	CapacityPercent power.Value
	VoltageV        power.Value
	CurrentA        power.Value
	HealthPercent   power.Value
	Cycles          power.Value

	BatteryTemp TemperatureEstimate
	CPUTemp     TemperatureEstimate
}

// Estimator is the per-battery estimation pipeline.
type Estimator struct {
	cfg Config
	log logrus.FieldLogger

	resolver    *Resolver
	power       *Smoother
	history     *History
	batteryTemp *TemperatureTracker
	cpuTemp     *TemperatureTracker

	capacity []float64
	active   Direction
	last     time.Time
	started  bool
}

// New validates cfg and builds an Estimator. A nil logger discards output.
func New(cfg Config, log logrus.FieldLogger) (*Estimator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = discardLogger()
	}
	return &Estimator{
		cfg:         cfg,
		log:         log,
		resolver:    NewResolver(cfg, log),
		power:       NewSmoother(cfg.smoother()),
		history:     NewHistory(cfg.HistorySize, cfg.HistoryWindow),
		batteryTemp: NewTemperatureTracker(cfg),
		cpuTemp:     NewTemperatureTracker(cfg),
	}, nil
}

// Config returns the configuration the estimator was built with.
func (e *Estimator) Config() Config {
	return e.cfg
}

// History returns the long-horizon power history.
func (e *Estimator) History() *History {
	return e.history
}

// Samples returns the number of accepted power samples since the last reset.
func (e *Estimator) Samples() int {
	return e.power.Count()
}

// Tick applies one batch. A batch older than the previous one is rejected
// with ErrOutOfOrder and leaves every piece of state untouched.
func (e *Estimator) Tick(b power.Batch) (Estimate, error) {
	if e.started && b.Timestamp.Before(e.last) {
		e.log.Debugf("Dropping batch from %s: last tick was %s", b.Timestamp.Format(time.RFC3339), e.last.Format(time.RFC3339))
		return Estimate{}, ErrOutOfOrder
	}
	e.started = true
	e.last = b.Timestamp

	est := Estimate{
		Timestamp:       b.Timestamp,
		Status:          b.Status,
		Direction:       DirectionOf(b),
		EnergyNowWh:     energyOf(b, power.EnergyNow, power.ChargeNow),
		EnergyFullWh:    energyOf(b, power.EnergyFull, power.ChargeFull),
		CapacityPercent: b.Lookup(power.CapacityPercent),
		VoltageV:        b.Lookup(power.VoltageNow),
		CurrentA:        b.Lookup(power.CurrentNow),
		HealthPercent:   healthOf(b),
		Cycles:          b.Lookup(power.CycleCount),
	}

	if est.Direction != Idle {
		if e.active != Idle && est.Direction != e.active {
			e.log.Infof("Direction changed from %s to %s, resetting power smoothing", e.active, est.Direction)
			e.resetPower()
			est.Flipped = true
		}
		e.active = est.Direction
	}

	est.Power, est.HasPower = e.resolver.Resolve(b)
	if est.HasPower {
		est.Smoothed, est.HasSmoothed = e.power.Update(est.Power.Watts, b.Timestamp)
		if est.HasSmoothed {
			e.history.Add(Point{Value: est.Power.Watts, Timestamp: b.Timestamp})
			e.log.Debugf("Power %.2f W via %s, blended %.2f W (%d samples)",
				est.Power.Watts, est.Power.Method, est.Smoothed.Value, est.Smoothed.Samples)
		}
	} else {
		e.log.Debug("No viable power source this tick")
	}

	est.Samples = e.power.Count()
	est.Confidence = ConfidenceFor(est.Samples)
	if est.HasSmoothed {
		if short, ok := e.power.RollingMean(); ok {
			if long, ok := e.history.Average(); ok {
				est.Trend = ClassifyTrend(short, long)
			}
		}
		est.Time = e.TimeRemaining(RuntimeInputs{
			EnergyNowWh:     est.EnergyNowWh,
			EnergyFullWh:    est.EnergyFullWh,
			BlendedW:        est.Smoothed.Value,
			Direction:       est.Direction,
			CapacityPercent: est.CapacityPercent,
			VoltageV:        est.VoltageV,
			CurrentA:        est.CurrentA,
			Samples:         est.Samples,
		})
	} else {
		est.Time = TimeEstimate{Direction: est.Direction, Confidence: est.Confidence}
	}

	if pct, ok := est.CapacityPercent.Get(); ok {
		est.CapacityTrend = e.trackCapacity(pct)
	}

	if s, ok := b.Sample(power.Temperature); ok && s.Usable() {
		est.BatteryTemp, _ = e.batteryTemp.Update(s.Value, b.Timestamp, s.Source)
	}
	if s, ok := b.Sample(power.CPUTemperature); ok && s.Usable() {
		est.CPUTemp, _ = e.cpuTemp.Update(s.Value, b.Timestamp, s.Source)
	}

	return est, nil
}

// TimeRemaining computes a time estimate with the estimator's config.
func (e *Estimator) TimeRemaining(in RuntimeInputs) TimeEstimate {
	return TimeRemaining(e.cfg, in)
}

// Reset clears every piece of accumulated state.
func (e *Estimator) Reset() {
	e.resetPower()
	e.batteryTemp.Reset()
	e.cpuTemp.Reset()
	e.capacity = e.capacity[:0]
	e.active = Idle
	e.started = false
	e.last = time.Time{}
}

func (e *Estimator) resetPower() {
	e.power.Reset()
	e.resolver.Reset()
	e.history.Clear()
}

// trackCapacity records pct and returns the sign of its movement.
func (e *Estimator) trackCapacity(pct float64) TrendLabel {
	e.capacity = append(e.capacity, pct)
	if len(e.capacity) > capacityTrendLen {
		e.capacity = e.capacity[1:]
	}
	delta := e.capacity[len(e.capacity)-1] - e.capacity[0]
	switch {
	case delta > 0:
		return TrendIncreasing
	case delta < 0:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

// DirectionOf derives the flow direction of a batch. An unknown status falls
// back to the sign of the current. power_now is unsigned on most platforms
// and never decides the direction.
func DirectionOf(b power.Batch) Direction {
	switch b.Status {
	case power.StatusCharging:
		return Charging
	case power.StatusDischarging:
		return Discharging
	case power.StatusNotCharging, power.StatusFull:
		return Idle
	}
	v, ok := b.Value(power.CurrentNow)
	switch {
	case !ok || v == 0:
		return Idle
	case v > 0:
		return Charging
	default:
		return Discharging
	}
}

// energyOf returns the energy sample, or charge times voltage.
func energyOf(b power.Batch, energy, charge power.MetricKind) power.Value {
	if wh, ok := b.Value(energy); ok {
		return power.Known(wh)
	}
	ah, ok1 := b.Value(charge)
	volts, ok2 := b.Value(power.VoltageNow)
	if !ok1 || !ok2 {
		return power.Value{}
	}
	return power.Known(power.EnergyFromCharge(ah, volts))
}

// healthOf is full capacity over design capacity, in percent.
func healthOf(b power.Batch) power.Value {
	pairs := [][2]power.MetricKind{
		{power.EnergyFull, power.EnergyFullDesign},
		{power.ChargeFull, power.ChargeFullDesign},
	}
	for _, p := range pairs {
		full, ok1 := b.Value(p[0])
		design, ok2 := b.Value(p[1])
		if ok1 && ok2 && design > 0 {
			return power.Known(100 * full / design)
		}
	}
	return power.Value{}
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.Out = io.Discard
	return l
}
