package estimate

import (
	"math"
	"testing"

	"github.com/rdegges/batfi/internal/power"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEstimator(t *testing.T) *Estimator {
	t.Helper()
	e, err := New(DefaultConfig(), nil)
	require.NoError(t, err)
	return e
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Alpha = 0
	_, err := New(cfg, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestEstimator_TooFewSamples(t *testing.T) {
	e := newEstimator(t)

	for i := 0; i < 2; i++ {
		est, err := e.Tick(discharging(at(2*i), 13.8, 41.5))
		require.NoError(t, err)
		assert.True(t, est.HasPower)
		assert.False(t, est.Time.Valid, "tick %d", i)
		assert.Equal(t, 0, est.Time.Minutes)
	}

	est, err := e.Tick(discharging(at(4), 13.8, 41.5))
	require.NoError(t, err)
	assert.True(t, est.Time.Valid)
	assert.Equal(t, 180, est.Time.Minutes)
}

func TestEstimator_NoPowerNeverCounts(t *testing.T) {
	e := newEstimator(t)
	for i := 0; i < 10; i++ {
		b := mkBatch(at(i), power.StatusDischarging, kv{power.EnergyNow: 41.5, power.PowerNow: 0.01})
		est, err := e.Tick(b)
		require.NoError(t, err)
		assert.False(t, est.HasPower)
		assert.False(t, est.Time.Valid)
	}
	assert.Equal(t, 0, e.Samples())
}

func TestEstimator_DirectionFlipResets(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	e, err := New(DefaultConfig(), logger)
	require.NoError(t, err)

	for i := 0; i < 12; i++ {
		_, err := e.Tick(charging(at(i), 25, 30+float64(i)*0.01))
		require.NoError(t, err)
	}
	require.Equal(t, 12, e.Samples())
	require.Equal(t, 12, e.History().Len())

	est, err := e.Tick(discharging(at(12), 9, 30.1))
	require.NoError(t, err)

	assert.True(t, est.Flipped)
	assert.Equal(t, Discharging, est.Direction)
	assert.Equal(t, 1, est.Samples)
	assert.Equal(t, 1, est.Smoothed.Samples)
	assert.Equal(t, earlyWeights, est.Smoothed.Weights)
	assert.Equal(t, 9.0, est.Smoothed.EMA, "no stale charging state in the average")
	assert.InDelta(t, 9.0, est.Smoothed.Value, 1e-9)
	assert.Equal(t, 1, e.History().Len())
	assert.False(t, est.Time.Valid)
	assert.Equal(t, ConfidenceLow, est.Confidence)

	var flipLogged bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.InfoLevel {
			flipLogged = true
		}
	}
	assert.True(t, flipLogged)
}

func TestEstimator_FlipThroughIdle(t *testing.T) {
	e := newEstimator(t)
	for i := 0; i < 5; i++ {
		_, _ = e.Tick(charging(at(i), 25, 50))
	}

	full := mkBatch(at(5), power.StatusFull, kv{power.PowerNow: 2, power.EnergyNow: 55.3})
	est, err := e.Tick(full)
	require.NoError(t, err)
	assert.Equal(t, Idle, est.Direction)
	assert.False(t, est.Flipped)
	assert.False(t, est.Time.Valid)
	assert.Equal(t, 6, est.Samples, "smoothing continues while idle")

	est, err = e.Tick(discharging(at(6), 8, 55.2))
	require.NoError(t, err)
	assert.True(t, est.Flipped)
	assert.Equal(t, 1, est.Samples)
}

func TestEstimator_OutOfOrder(t *testing.T) {
	e := newEstimator(t)
	_, err := e.Tick(discharging(at(10), 10, 40))
	require.NoError(t, err)

	_, err = e.Tick(discharging(at(5), 50, 40))
	assert.ErrorIs(t, err, ErrOutOfOrder)
	assert.Equal(t, 1, e.Samples())

	est, err := e.Tick(discharging(at(11), 10, 40))
	require.NoError(t, err)
	assert.Equal(t, 2, est.Samples)
	assert.InDelta(t, 10.0, est.Smoothed.EMA, 1e-9)
}

func TestEstimator_Charging(t *testing.T) {
	e := newEstimator(t)
	var est Estimate
	for i := 0; i < 3; i++ {
		b := mkBatch(at(i), power.StatusCharging, kv{
			power.PowerNow:        18,
			power.EnergyNow:       47.0,
			power.EnergyFull:      55.3,
			power.CapacityPercent: 85,
		})
		var err error
		est, err = e.Tick(b)
		require.NoError(t, err)
	}
	assert.True(t, est.Time.Valid)
	assert.Equal(t, 42, est.Time.Minutes)
	assert.Equal(t, PhaseSlowingDown, est.Time.Phase)
}

func TestEstimator_Trend(t *testing.T) {
	e := newEstimator(t)
	var est Estimate
	for i := 0; i < 30; i++ {
		est, _ = e.Tick(discharging(at(i), 10, 40))
	}
	assert.Equal(t, TrendStable, est.Trend)
	assert.Equal(t, ConfidenceVeryHigh, est.Confidence)

	for i := 30; i < 40; i++ {
		est, _ = e.Tick(discharging(at(i), 20, 40))
	}
	assert.Equal(t, TrendIncreasing, est.Trend)

	est, err := e.Tick(discharging(at(40), 0.01, 40))
	require.NoError(t, err)
	require.False(t, est.HasSmoothed)
	assert.Equal(t, TrendStable, est.Trend, "no label from the previous tick's data")
}

func TestEstimator_DerivedValues(t *testing.T) {
	e := newEstimator(t)
	b := mkBatch(at(0), power.StatusDischarging, kv{
		power.ChargeNow:        2.5,
		power.ChargeFull:       4.0,
		power.ChargeFullDesign: 5.0,
		power.VoltageNow:       12.0,
		power.CurrentNow:       -1.0,
		power.CycleCount:       88,
	})
	est, err := e.Tick(b)
	require.NoError(t, err)

	energy, ok := est.EnergyNowWh.Get()
	require.True(t, ok)
	assert.InDelta(t, 30.0, energy, 1e-9)

	full, ok := est.EnergyFullWh.Get()
	require.True(t, ok)
	assert.InDelta(t, 48.0, full, 1e-9)

	health, ok := est.HealthPercent.Get()
	require.True(t, ok)
	assert.InDelta(t, 80.0, health, 1e-9)

	assert.Equal(t, CurrentVoltageProduct, est.Power.Method)
	cycles, _ := est.Cycles.Get()
	assert.Equal(t, 88.0, cycles)
}

func TestEstimator_CapacityTrend(t *testing.T) {
	e := newEstimator(t)
	var est Estimate
	for i, pct := range []float64{60, 60, 59, 59, 58} {
		b := mkBatch(at(i), power.StatusDischarging, kv{power.CapacityPercent: pct, power.PowerNow: 10})
		est, _ = e.Tick(b)
	}
	assert.Equal(t, TrendDecreasing, est.CapacityTrend)
}

func TestEstimator_Temperatures(t *testing.T) {
	e := newEstimator(t)
	b := mkBatch(at(0), power.StatusDischarging, kv{
		power.PowerNow:       10,
		power.Temperature:    31.2,
		power.CPUTemperature: 150,
	})
	est, err := e.Tick(b)
	require.NoError(t, err)

	assert.True(t, est.BatteryTemp.Valid)
	assert.InDelta(t, 31.2, est.BatteryTemp.Celsius, 1e-9)
	assert.False(t, est.CPUTemp.Valid, "150 °C is outside the plausible range")
}

func TestDirectionOf(t *testing.T) {
	tests := []struct {
		name  string
		batch power.Batch
		want  Direction
	}{
		{"charging status", mkBatch(at(0), power.StatusCharging, nil), Charging},
		{"discharging status", mkBatch(at(0), power.StatusDischarging, nil), Discharging},
		{"full", mkBatch(at(0), power.StatusFull, kv{power.CurrentNow: 1}), Idle},
		{"not charging", mkBatch(at(0), power.StatusNotCharging, nil), Idle},
		{"unknown positive current", mkBatch(at(0), power.StatusUnknown, kv{power.CurrentNow: 1.5}), Charging},
		{"unknown negative current", mkBatch(at(0), power.StatusUnknown, kv{power.CurrentNow: -1.5}), Discharging},
		{"unknown power only", mkBatch(at(0), power.StatusUnknown, kv{power.PowerNow: 12}), Idle},
		{"unknown negative power", mkBatch(at(0), power.StatusUnknown, kv{power.PowerNow: -7}), Idle},
		{"unknown nothing", mkBatch(at(0), power.StatusUnknown, nil), Idle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DirectionOf(tt.batch))
		})
	}
}

func TestEstimator_Reset(t *testing.T) {
	e := newEstimator(t)
	for i := 0; i < 5; i++ {
		_, _ = e.Tick(discharging(at(100+i), 10, 40))
	}
	e.Reset()
	assert.Equal(t, 0, e.Samples())
	assert.Equal(t, 0, e.History().Len())

	_, err := e.Tick(discharging(at(0), 10, 40))
	assert.NoError(t, err, "older timestamps are accepted after a reset")
}

func TestEstimator_NonFiniteNeverEntersState(t *testing.T) {
	e := newEstimator(t)
	_, _ = e.Tick(discharging(at(0), 10, 40))

	b := mkBatch(at(1), power.StatusDischarging, kv{power.PowerNow: math.Inf(1), power.EnergyNow: math.NaN()})
	est, err := e.Tick(b)
	require.NoError(t, err)
	assert.False(t, est.HasPower)
	assert.False(t, est.EnergyNowWh.Valid)
	assert.Equal(t, 1, e.Samples())
}
