//go:build linux

package power

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSysfs struct {
	supply  string
	hwmon   string
	thermal string
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content+"\n"), 0o644))
	}
}

func newFakeSysfs(t *testing.T) fakeSysfs {
	t.Helper()
	root := t.TempDir()
	fs := fakeSysfs{
		supply:  filepath.Join(root, "power_supply"),
		hwmon:   filepath.Join(root, "hwmon"),
		thermal: filepath.Join(root, "thermal"),
	}

	writeFiles(t, filepath.Join(fs.supply, "BAT0"), map[string]string{
		"type":               "Battery",
		"status":             "Discharging",
		"energy_now":         "41500000",
		"energy_full":        "55300000",
		"energy_full_design": "57000000",
		"power_now":          "13800000",
		"voltage_now":        "11870000",
		"capacity":           "75",
		"cycle_count":        "312",
		"temp":               "312",
		"manufacturer":       "SMP",
		"model_name":         "5B10W13975",
		"technology":         "Li-poly",
	})
	writeFiles(t, filepath.Join(fs.supply, "AC"), map[string]string{
		"type":   "Mains",
		"online": "0",
	})

	writeFiles(t, filepath.Join(fs.hwmon, "hwmon0"), map[string]string{
		"name":        "acpitz",
		"temp1_input": "27800",
	})
	writeFiles(t, filepath.Join(fs.hwmon, "hwmon1"), map[string]string{
		"name":        "k10temp",
		"temp1_input": "61250",
		"temp1_label": "Tctl",
	})
	writeFiles(t, filepath.Join(fs.hwmon, "hwmon2"), map[string]string{
		"name":        "coretemp",
		"temp1_input": "48000",
		"temp1_label": "Package id 0",
		"temp2_input": "45000",
		"temp2_label": "Core 0",
	})

	writeFiles(t, filepath.Join(fs.thermal, "thermal_zone0"), map[string]string{
		"type": "x86_pkg_temp",
		"temp": "50000",
	})
	return fs
}

func (fs fakeSysfs) options() Options {
	return Options{PowerSupplyRoot: fs.supply, HwmonRoot: fs.hwmon, ThermalRoot: fs.thermal}
}

func TestSysfsMonitor_Read(t *testing.T) {
	fs := newFakeSysfs(t)
	m := NewSysfsMonitor(fs.options())

	require.True(t, m.IsSupported())
	assert.Equal(t, "BAT0", m.Battery())
	assert.Equal(t, "linux-sysfs", m.Name())

	batch, err := m.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusDischarging, batch.Status)
	assert.Equal(t, "BAT0", batch.Source)

	tests := []struct {
		kind MetricKind
		want float64
	}{
		{EnergyNow, 41.5},
		{EnergyFull, 55.3},
		{EnergyFullDesign, 57.0},
		{PowerNow, 13.8},
		{VoltageNow, 11.87},
		{CapacityPercent, 75},
		{CycleCount, 312},
		{Temperature, 31.2},
		{CPUTemperature, 48.0},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			got, ok := batch.Value(tt.kind)
			require.True(t, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}

	_, ok := batch.Value(ChargeNow)
	assert.False(t, ok)

	s, _ := batch.Sample(CPUTemperature)
	assert.Equal(t, "coretemp Package id 0", s.Source)
}

func TestSysfsMonitor_UnknownStatusFromAdapter(t *testing.T) {
	fs := newFakeSysfs(t)
	writeFiles(t, filepath.Join(fs.supply, "BAT0"), map[string]string{"status": "Unknown"})

	batch, err := NewSysfsMonitor(fs.options()).Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusDischarging, batch.Status)
}

func TestSysfsMonitor_NoBattery(t *testing.T) {
	m := NewSysfsMonitor(Options{PowerSupplyRoot: t.TempDir(), HwmonRoot: t.TempDir(), ThermalRoot: t.TempDir()})

	assert.False(t, m.IsSupported())
	_, err := m.Read(context.Background())
	assert.ErrorIs(t, err, ErrNoBattery)
}

func TestSysfsMonitor_NamedBattery(t *testing.T) {
	fs := newFakeSysfs(t)
	writeFiles(t, filepath.Join(fs.supply, "BAT1"), map[string]string{
		"type":        "Battery",
		"status":      "Charging",
		"charge_now":  "2000000",
		"voltage_now": "12000000",
		"current_now": "1500000",
	})

	opts := fs.options()
	opts.Battery = "BAT1"
	m := NewSysfsMonitor(opts)
	assert.Equal(t, "BAT1", m.Battery())

	batch, err := m.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusCharging, batch.Status)

	q, ok := batch.Value(ChargeNow)
	require.True(t, ok)
	assert.InDelta(t, 2.0, q, 1e-9)

	assert.Equal(t, []string{"BAT0", "BAT1"}, FindBatteries(fs.supply))
}

func TestSysfsMonitor_Info(t *testing.T) {
	fs := newFakeSysfs(t)
	info := NewSysfsMonitor(fs.options()).Info()

	assert.Equal(t, DeviceInfo{
		Name:         "BAT0",
		Manufacturer: "SMP",
		Model:        "5B10W13975",
		Technology:   "Li-poly",
	}, info)
}

func TestDiscoverCPUSensors(t *testing.T) {
	fs := newFakeSysfs(t)
	sensors := discoverCPUSensors(fs.hwmon, discardLogger())

	require.Len(t, sensors, 2)
	assert.Equal(t, "coretemp", sensors[0].Type)
	assert.Equal(t, "k10temp", sensors[1].Type)
	for _, s := range sensors {
		assert.NotEqual(t, "acpitz", s.Type)
	}
}

func TestDiscoverBatterySensors(t *testing.T) {
	fs := newFakeSysfs(t)
	writeFiles(t, filepath.Join(fs.thermal, "thermal_zone3"), map[string]string{
		"type": "battery",
		"temp": "29500",
	})

	sensors := discoverBatterySensors(fs.supply, fs.thermal, discardLogger())
	require.Len(t, sensors, 2)
	assert.Equal(t, "battery", sensors[0].Type)
	assert.Equal(t, "thermal_zone", sensors[1].Type)

	t.Run("falls back to thermal zone", func(t *testing.T) {
		require.NoError(t, os.Remove(filepath.Join(fs.supply, "BAT0", "temp")))
		sensors := discoverBatterySensors(fs.supply, fs.thermal, discardLogger())

		v, ok := readSensor(sensors, NormalizeTemperature)
		require.True(t, ok)
		assert.InDelta(t, 29.5, v.value, 1e-9)
	})
}

func TestReadSensor_Empty(t *testing.T) {
	_, ok := readSensor(nil, MillidegreesToCelsius)
	assert.False(t, ok)
}

func TestNewMonitor_Linux(t *testing.T) {
	m := NewMonitor(Options{})
	_, ok := m.(*SysfsMonitor)
	assert.True(t, ok, "expected *SysfsMonitor, got %T", m)
}
