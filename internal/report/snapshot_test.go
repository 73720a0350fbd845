package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdegges/batfi/internal/estimate"
	"github.com/rdegges/batfi/internal/power"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func tick(t *testing.T, e *estimate.Estimator, b power.Batch) estimate.Estimate {
	t.Helper()
	est, err := e.Tick(b)
	require.NoError(t, err)
	return est
}

func discharging(ts time.Time) power.Batch {
	b := power.Batch{Timestamp: ts, Status: power.StatusDischarging}
	b.Add(power.NewSample(power.PowerNow, 13.8, ts, "test"))
	b.Add(power.NewSample(power.EnergyNow, 41.5, ts, "test"))
	b.Add(power.NewSample(power.EnergyFull, 50, ts, "test"))
	b.Add(power.NewSample(power.EnergyFullDesign, 62.5, ts, "test"))
	b.Add(power.NewSample(power.VoltageNow, 11.4, ts, "test"))
	b.Add(power.NewSample(power.CurrentNow, -1.2106, ts, "test"))
	b.Add(power.NewSample(power.CapacityPercent, 83, ts, "test"))
	b.Add(power.NewSample(power.CycleCount, 312, ts, "test"))
	b.Add(power.NewSample(power.Temperature, 31.5, ts, "test"))
	return b
}

func decode(t *testing.T, snap Snapshot) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, snap, false))

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestNew(t *testing.T) {
	e, err := estimate.New(estimate.DefaultConfig(), nil)
	require.NoError(t, err)

	var est estimate.Estimate
	for i := 0; i < 3; i++ {
		est = tick(t, e, discharging(t0.Add(time.Duration(i)*2*time.Second)))
	}

	info := power.DeviceInfo{Name: "BAT0", Manufacturer: "SMP", Model: "5B10W13930", Technology: "Li-poly"}
	snap := New(est, info, "linux-sysfs")

	assert.Equal(t, "Discharging", snap.Status)
	assert.Equal(t, "discharging", snap.Direction)
	require.NotNil(t, snap.TimeRemainingMinutes)
	assert.Equal(t, 180, *snap.TimeRemainingMinutes)
	assert.Equal(t, "energy", snap.TimeBasis)
	assert.Empty(t, snap.ChargePhase)
	require.NotNil(t, snap.PowerW)
	assert.Equal(t, 13.8, *snap.PowerW)
	assert.Equal(t, "direct", snap.PowerMethod)
	require.NotNil(t, snap.HealthPercent)
	assert.InDelta(t, 80.0, *snap.HealthPercent, 1e-9)
	require.NotNil(t, snap.CurrentMA)
	assert.Equal(t, -1211, *snap.CurrentMA)
	require.NotNil(t, snap.Cycles)
	assert.Equal(t, 312, *snap.Cycles)
	require.NotNil(t, snap.TemperatureC)
	assert.Equal(t, 31.5, *snap.TemperatureC)
	assert.Nil(t, snap.CPUTemperatureC)
	assert.Equal(t, "BAT0", snap.Battery)
	assert.Equal(t, "linux-sysfs", snap.Monitor)
	assert.Equal(t, 3, snap.Samples)
}

func TestNew_UnknownValuesAreNull(t *testing.T) {
	e, err := estimate.New(estimate.DefaultConfig(), nil)
	require.NoError(t, err)

	est := tick(t, e, power.Batch{Timestamp: t0, Status: power.StatusUnknown})
	out := decode(t, New(est, power.DeviceInfo{}, "mock"))

	for _, key := range []string{
		"capacity_percent", "health_percent", "cycles", "voltage_v", "current_ma",
		"power_w", "smoothed_power_w", "rolling_power_w", "energy_now_wh",
		"energy_full_wh", "time_remaining_minutes", "temperature_c", "cpu_temperature_c",
	} {
		v, ok := out[key]
		assert.True(t, ok, "%s missing", key)
		assert.Nil(t, v, "%s should be null", key)
	}
	assert.NotContains(t, out, "manufacturer")
	assert.NotContains(t, out, "power_method")
	assert.Equal(t, "idle", out["direction"])
}

func TestNew_Charging(t *testing.T) {
	e, err := estimate.New(estimate.DefaultConfig(), nil)
	require.NoError(t, err)

	var est estimate.Estimate
	for i := 0; i < 3; i++ {
		ts := t0.Add(time.Duration(i) * time.Second)
		b := power.Batch{Timestamp: ts, Status: power.StatusCharging}
		b.Add(power.NewSample(power.PowerNow, 18, ts, "test"))
		b.Add(power.NewSample(power.EnergyNow, 47, ts, "test"))
		b.Add(power.NewSample(power.EnergyFull, 55.3, ts, "test"))
		b.Add(power.NewSample(power.CapacityPercent, 85, ts, "test"))
		est = tick(t, e, b)
	}

	snap := New(est, power.DeviceInfo{}, "mock")
	require.NotNil(t, snap.TimeRemainingMinutes)
	assert.Equal(t, 42, *snap.TimeRemainingMinutes)
	assert.Equal(t, "slowing down", snap.ChargePhase)
}

func TestEncode(t *testing.T) {
	snap := Snapshot{Timestamp: t0, Status: "Full", Confidence: "low"}

	t.Run("compact", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, snap, false))
		out := buf.String()
		assert.True(t, strings.HasSuffix(out, "\n"))
		assert.Equal(t, 1, strings.Count(out, "\n"))
		assert.Contains(t, out, `"timestamp":"2024-01-01T12:00:00Z"`)
	})

	t.Run("pretty", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, snap, true))
		assert.Contains(t, buf.String(), "\n  \"status\": \"Full\"")
	})
}

func TestWriteText(t *testing.T) {
	t.Run("discharging", func(t *testing.T) {
		minutes, pct, watts := 185, 83.0, 13.8
		var buf bytes.Buffer
		require.NoError(t, WriteText(&buf, Snapshot{
			Battery:              "BAT0",
			Status:               "Discharging",
			Direction:            "discharging",
			CapacityPercent:      &pct,
			PowerW:               &watts,
			TimeRemainingMinutes: &minutes,
			Confidence:           "very high",
			PowerTrend:           "stable",
		}))
		out := buf.String()
		assert.Contains(t, out, "BAT0")
		assert.Contains(t, out, "83%")
		assert.Contains(t, out, "3h 05m remaining, very high confidence")
		assert.Contains(t, out, "13.80 W")
		assert.Contains(t, out, "Health:   —")
	})

	t.Run("charging", func(t *testing.T) {
		minutes := 42
		var buf bytes.Buffer
		require.NoError(t, WriteText(&buf, Snapshot{
			Direction:            "charging",
			TimeRemainingMinutes: &minutes,
			ChargePhase:          "slowing down",
			Confidence:           "high",
		}))
		assert.Contains(t, buf.String(), "42m to full (slowing down)")
	})

	t.Run("not enough samples", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteText(&buf, Snapshot{Direction: "discharging", Samples: 1}))
		assert.Contains(t, buf.String(), "calculating (1 samples)")
	})
}
