package estimate

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// ErrInvalidConfig is wrapped by every error Config.Validate returns.
var ErrInvalidConfig = errors.New("invalid estimator config")

// Profile names accepted by ProfileConfig.
const (
	ProfileResponsive = "responsive"
	ProfileBalanced   = "balanced"
	ProfileStable     = "stable"
)

// ChargeBand applies Factor to the charging power while the capacity is below
// Below percent. Bands are ordered by Below.
type ChargeBand struct {
	Below  float64
	Factor float64
	Phase  ChargePhase
}

// NominalPack is the capacity assumed for a pack whose voltage is above AboveV
// when the battery reports neither energy nor charge capacity.
type NominalPack struct {
	AboveV float64
	Ah     float64
}

// Config holds every tunable of the estimator. It is copied into an Estimator
// at construction and never changed afterwards.
type Config struct {
	// Alpha is the EMA weight of a new reading.
	Alpha float64

	// WindowSize is the rolling window capacity in samples.
	WindowSize int

	// EarlyBand and SettledBand are the sample counts at which the blend
	// shifts from instantaneous to EMA and then to rolling-window trust.
	EarlyBand   int
	SettledBand int

	// MinSamples is the number of accepted samples before an estimate is shown.
	MinSamples int

	// MinPowerW is the noise floor; MaxPowerW the sane upper bound.
	MinPowerW float64
	MaxPowerW float64

	ChargeBands  []ChargeBand
	NominalPacks []NominalPack

	// MinTempC and MaxTempC bound accepted temperatures.
	MinTempC float64
	MaxTempC float64

	// HistorySize and HistoryWindow bound the long-horizon power history.
	HistorySize   int
	HistoryWindow time.Duration
}

// DefaultConfig returns the responsive profile.
func DefaultConfig() Config {
	return Config{
		Alpha:       0.3,
		WindowSize:  10,
		EarlyBand:   5,
		SettledBand: 10,
		MinSamples:  3,
		MinPowerW:   0.1,
		MaxPowerW:   500,
		ChargeBands: []ChargeBand{
			{Below: 80, Factor: 0.9, Phase: PhaseFast},
			{Below: 95, Factor: 0.65, Phase: PhaseSlowingDown},
			{Below: math.Inf(1), Factor: 0.3, Phase: PhaseTrickle},
		},
		NominalPacks: []NominalPack{
			{AboveV: 12, Ah: 4},
			{AboveV: 7, Ah: 3},
			{AboveV: 0, Ah: 2},
		},
		MinTempC:      10,
		MaxTempC:      110,
		HistorySize:   300,
		HistoryWindow: 5 * time.Minute,
	}
}

// ProfileConfig returns the default config with the rolling window sized for
// the named profile.
func ProfileConfig(name string) (Config, error) {
	cfg := DefaultConfig()
	switch name {
	case ProfileResponsive, "":
		cfg.WindowSize = 10
	case ProfileBalanced:
		cfg.WindowSize = 30
	case ProfileStable:
		cfg.WindowSize = 120
	default:
		return Config{}, fmt.Errorf("%w: unknown profile %q", ErrInvalidConfig, name)
	}
	return cfg, nil
}

// Validate checks the config for values the estimator cannot work with.
func (c Config) Validate() error {
	switch {
	case !(c.Alpha > 0 && c.Alpha <= 1):
		return fmt.Errorf("%w: alpha %v outside (0, 1]", ErrInvalidConfig, c.Alpha)
	case c.WindowSize <= 0:
		return fmt.Errorf("%w: window size %d", ErrInvalidConfig, c.WindowSize)
	case c.EarlyBand <= 0 || c.SettledBand <= c.EarlyBand:
		return fmt.Errorf("%w: blend bands %d/%d", ErrInvalidConfig, c.EarlyBand, c.SettledBand)
	case c.MinSamples < 1:
		return fmt.Errorf("%w: min samples %d", ErrInvalidConfig, c.MinSamples)
	case !(c.MinPowerW > 0) || !(c.MaxPowerW > c.MinPowerW):
		return fmt.Errorf("%w: power bounds %v..%v", ErrInvalidConfig, c.MinPowerW, c.MaxPowerW)
	case !(c.MaxTempC > c.MinTempC):
		return fmt.Errorf("%w: temperature bounds %v..%v", ErrInvalidConfig, c.MinTempC, c.MaxTempC)
	case c.HistorySize <= 0 || c.HistoryWindow <= 0:
		return fmt.Errorf("%w: history %d/%s", ErrInvalidConfig, c.HistorySize, c.HistoryWindow)
	case len(c.ChargeBands) == 0:
		return fmt.Errorf("%w: no charge bands", ErrInvalidConfig)
	case len(c.NominalPacks) == 0:
		return fmt.Errorf("%w: no nominal packs", ErrInvalidConfig)
	}

	if !sort.SliceIsSorted(c.ChargeBands, func(i, j int) bool {
		return c.ChargeBands[i].Below < c.ChargeBands[j].Below
	}) {
		return fmt.Errorf("%w: charge bands not ordered", ErrInvalidConfig)
	}
	for _, b := range c.ChargeBands {
		if !(b.Factor > 0 && b.Factor <= 1) {
			return fmt.Errorf("%w: charge factor %v outside (0, 1]", ErrInvalidConfig, b.Factor)
		}
	}
	return nil
}

// ChargeBandFor returns the band that applies at the given capacity percent.
// Above the last boundary the last band applies.
func (c Config) ChargeBandFor(percent float64) ChargeBand {
	for _, b := range c.ChargeBands {
		if percent < b.Below {
			return b
		}
	}
	return c.ChargeBands[len(c.ChargeBands)-1]
}

// NominalAh guesses the pack capacity from its voltage class.
func (c Config) NominalAh(volts float64) float64 {
	for _, p := range c.NominalPacks {
		if volts > p.AboveV {
			return p.Ah
		}
	}
	return c.NominalPacks[len(c.NominalPacks)-1].Ah
}

// smoother derives the power smoother settings.
func (c Config) smoother() SmootherConfig {
	return SmootherConfig{
		Alpha:       c.Alpha,
		Capacity:    c.WindowSize,
		EarlyBand:   c.EarlyBand,
		SettledBand: c.SettledBand,
		Floor:       c.MinPowerW,
	}
}
