package estimate

import (
	"math"
	"time"

	"github.com/rdegges/batfi/internal/power"
)

// Direction is the way energy is flowing through the pack.
type Direction int

const (
	// Idle covers full, not charging and unknown states. No time estimate is
	// made while idle.
	Idle Direction = iota
	Charging
	Discharging
)

func (d Direction) String() string {
	switch d {
	case Charging:
		return "charging"
	case Discharging:
		return "discharging"
	default:
		return "idle"
	}
}

// Basis tells which inputs a time estimate was computed from.
type Basis int

const (
	EnergyBased Basis = iota
	CapacityBased
)

func (b Basis) String() string {
	if b == CapacityBased {
		return "capacity"
	}
	return "energy"
}

// ChargePhase names the charge-curve band applied to a charging estimate.
type ChargePhase int

const (
	PhaseNone ChargePhase = iota
	PhaseFast
	PhaseSlowingDown
	PhaseTrickle
)

func (p ChargePhase) String() string {
	switch p {
	case PhaseFast:
		return "fast charging"
	case PhaseSlowingDown:
		return "slowing down"
	case PhaseTrickle:
		return "trickle charging"
	default:
		return ""
	}
}

// TimeEstimate is the time to empty or to full. Minutes is only meaningful
// when Valid is true.
type TimeEstimate struct {
	Minutes    int
	Valid      bool
	Direction  Direction
	Basis      Basis
	Confidence Confidence
	Phase      ChargePhase
}

// Duration returns Minutes as a time.Duration.
func (t TimeEstimate) Duration() time.Duration {
	return time.Duration(t.Minutes) * time.Minute
}

// RuntimeInputs are the operands of one time estimate.
type RuntimeInputs struct {
	EnergyNowWh     power.Value
	EnergyFullWh    power.Value
	BlendedW        float64
	Direction       Direction
	CapacityPercent power.Value

	// VoltageV and CurrentA feed the capacity-based fallback.
	VoltageV power.Value
	CurrentA power.Value

	// Samples is the number of accepted power samples behind BlendedW.
	Samples int
}

// TimeRemaining computes the time estimate for in under cfg.
func TimeRemaining(cfg Config, in RuntimeInputs) TimeEstimate {
	est := TimeEstimate{
		Direction:  in.Direction,
		Confidence: ConfidenceFor(in.Samples),
	}
	if in.Samples < cfg.MinSamples {
		return est
	}

	switch in.Direction {
	case Discharging:
		return dischargeTime(cfg, in, est)
	case Charging:
		return chargeTime(cfg, in, est)
	default:
		return est
	}
}

func dischargeTime(cfg Config, in RuntimeInputs, est TimeEstimate) TimeEstimate {
	if energy, ok := in.EnergyNowWh.Get(); ok {
		est.Basis = EnergyBased
		if in.BlendedW < cfg.MinPowerW {
			return est
		}
		return withMinutes(est, math.Round(60*energy/in.BlendedW))
	}

	est.Basis = CapacityBased
	pct, ok1 := in.CapacityPercent.Get()
	volts, ok2 := in.VoltageV.Get()
	if !ok1 || !ok2 || volts <= 0 {
		return est
	}
	watts, ok := fallbackPower(cfg, in, volts)
	if !ok {
		return est
	}
	remainingWh := cfg.NominalAh(volts) * volts * pct / 100
	return withMinutes(est, math.Round(60*remainingWh/watts))
}

func chargeTime(cfg Config, in RuntimeInputs, est TimeEstimate) TimeEstimate {
	now, hasNow := in.EnergyNowWh.Get()
	full, hasFull := in.EnergyFullWh.Get()

	pct, hasPct := in.CapacityPercent.Get()
	if !hasPct && hasNow && hasFull && full > 0 {
		pct, hasPct = 100*now/full, true
	}
	if !hasPct {
		return est
	}
	band := cfg.ChargeBandFor(pct)
	est.Phase = band.Phase

	if hasNow && hasFull {
		est.Basis = EnergyBased
		if in.BlendedW < cfg.MinPowerW {
			return est
		}
		return withMinutes(est, math.Floor(60*(full-now)/(in.BlendedW*band.Factor)))
	}

	est.Basis = CapacityBased
	volts, ok := in.VoltageV.Get()
	if !ok || volts <= 0 {
		return est
	}
	watts, ok := fallbackPower(cfg, in, volts)
	if !ok {
		return est
	}
	neededWh := cfg.NominalAh(volts) * volts * (100 - pct) / 100
	return withMinutes(est, math.Floor(60*neededWh/(watts*band.Factor)))
}

// fallbackPower prefers V*|I| and falls back to the blended power.
func fallbackPower(cfg Config, in RuntimeInputs, volts float64) (float64, bool) {
	if amps, ok := in.CurrentA.Get(); ok {
		if w := volts * math.Abs(amps); w >= cfg.MinPowerW {
			return w, true
		}
	}
	if in.BlendedW >= cfg.MinPowerW {
		return in.BlendedW, true
	}
	return 0, false
}

func withMinutes(est TimeEstimate, minutes float64) TimeEstimate {
	if math.IsNaN(minutes) || math.IsInf(minutes, 0) {
		return est
	}
	if minutes < 1 {
		minutes = 1
	}
	if minutes > math.MaxInt32 {
		return est
	}
	est.Minutes = int(minutes)
	est.Valid = true
	return est
}
