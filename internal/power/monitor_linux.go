//go:build linux

package power

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	powerSupplyPath = "/sys/class/power_supply"
	hwmonPath       = "/sys/class/hwmon"
	thermalPath     = "/sys/class/thermal"
)

// sysfsAttr maps one power_supply attribute to a metric and its scaling.
type sysfsAttr struct {
	file    string
	kind    MetricKind
	convert func(float64) float64
}

func identity(v float64) float64 { return v }

var batteryAttrs = []sysfsAttr{
	{"energy_now", EnergyNow, FromMicro},
	{"energy_full", EnergyFull, FromMicro},
	{"energy_full_design", EnergyFullDesign, FromMicro},
	{"charge_now", ChargeNow, FromMicro},
	{"charge_full", ChargeFull, FromMicro},
	{"charge_full_design", ChargeFullDesign, FromMicro},
	{"power_now", PowerNow, FromMicro},
	{"voltage_now", VoltageNow, FromMicro},
	{"current_now", CurrentNow, FromMicro},
	{"capacity", CapacityPercent, identity},
	{"cycle_count", CycleCount, identity},
}

// SysfsMonitor reads battery telemetry on Linux from sysfs.
type SysfsMonitor struct {
	root        string
	hwmonRoot   string
	thermalRoot string

	batteryName string
	batteryPath string
	acPath      string

	cpuSensors     []TempSensor
	batterySensors []TempSensor

	log logrus.FieldLogger
}

// NewSysfsMonitor creates a Linux monitor and discovers supplies and sensors.
func NewSysfsMonitor(opts Options) *SysfsMonitor {
	m := &SysfsMonitor{
		root:        orDefault(opts.PowerSupplyRoot, powerSupplyPath),
		hwmonRoot:   orDefault(opts.HwmonRoot, hwmonPath),
		thermalRoot: orDefault(opts.ThermalRoot, thermalPath),
		batteryName: opts.Battery,
		log:         opts.Logger,
	}
	if m.log == nil {
		m.log = discardLogger()
	}
	m.detectPowerSupplies()
	m.cpuSensors = discoverCPUSensors(m.hwmonRoot, m.log)
	m.batterySensors = discoverBatterySensors(m.root, m.thermalRoot, m.log)
	return m
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// FindBatteries lists battery supplies under root, sorted by name.
func FindBatteries(root string) []string {
	entries, err := os.ReadDir(orDefault(root, powerSupplyPath))
	if err != nil {
		return nil
	}
	var names []string
	for _, entry := range entries {
		if isBatteryName(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names
}

func isBatteryName(name string) bool {
	return strings.HasPrefix(name, "BAT") || strings.HasPrefix(name, "battery")
}

// detectPowerSupplies finds the battery and AC adapter paths.
func (m *SysfsMonitor) detectPowerSupplies() {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		m.log.Warnf("Cannot read %s: %v", m.root, err)
		return
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		name := entry.Name()
		supplyType := readTrimmed(filepath.Join(m.root, name, "type"))

		switch {
		case m.batteryName != "" && name == m.batteryName:
			m.batteryPath = filepath.Join(m.root, name)
		case m.batteryName == "" && (supplyType == "Battery" || isBatteryName(name)):
			if m.batteryPath == "" {
				m.batteryPath = filepath.Join(m.root, name)
				m.batteryName = name
			}
		case supplyType == "Mains" || supplyType == "USB" || supplyType == "USB_PD":
			if m.acPath == "" {
				m.acPath = filepath.Join(m.root, name)
			}
		}
	}

	if m.batteryPath != "" {
		m.log.Debugf("Using battery %s", m.batteryPath)
	}
}

// Name returns the name of this monitor.
func (m *SysfsMonitor) Name() string {
	return "linux-sysfs"
}

// Battery returns the name of the battery being read.
func (m *SysfsMonitor) Battery() string {
	return m.batteryName
}

// IsSupported checks if a battery was found.
func (m *SysfsMonitor) IsSupported() bool {
	if m.batteryPath == "" {
		return false
	}
	_, err := os.Stat(m.batteryPath)
	return err == nil
}

// Read returns every battery and thermal sample available right now.
func (m *SysfsMonitor) Read(ctx context.Context) (Batch, error) {
	if err := ctx.Err(); err != nil {
		return Batch{}, err
	}
	if m.batteryPath == "" {
		return Batch{}, ErrNoBattery
	}
	if _, err := os.Stat(m.batteryPath); err != nil {
		return Batch{}, fmt.Errorf("reading %s: %w", m.batteryPath, err)
	}

	now := time.Now()
	batch := Batch{
		Timestamp: now,
		Source:    m.batteryName,
		Status:    ParseStatus(readTrimmed(filepath.Join(m.batteryPath, "status"))),
	}

	for _, attr := range batteryAttrs {
		raw, ok := readFloat(filepath.Join(m.batteryPath, attr.file))
		if !ok {
			continue
		}
		batch.Add(NewSample(attr.kind, attr.convert(raw), now, m.batteryName+"/"+attr.file))
	}

	if s, ok := readSensor(m.batterySensors, NormalizeTemperature); ok {
		batch.Add(NewSample(Temperature, s.value, now, s.sensor.Name))
	}
	if s, ok := readSensor(m.cpuSensors, MillidegreesToCelsius); ok {
		batch.Add(NewSample(CPUTemperature, s.value, now, s.sensor.Name))
	}

	// Some firmware reports Unknown while on AC; the adapter tells us more.
	if batch.Status == StatusUnknown && m.acPath != "" {
		if readTrimmed(filepath.Join(m.acPath, "online")) == "0" {
			batch.Status = StatusDischarging
		}
	}

	return batch, nil
}

// Info returns the static identity strings of the battery.
func (m *SysfsMonitor) Info() DeviceInfo {
	if m.batteryPath == "" {
		return DeviceInfo{}
	}
	return DeviceInfo{
		Name:         m.batteryName,
		Manufacturer: readTrimmed(filepath.Join(m.batteryPath, "manufacturer")),
		Model:        readTrimmed(filepath.Join(m.batteryPath, "model_name")),
		Technology:   readTrimmed(filepath.Join(m.batteryPath, "technology")),
	}
}

// readTrimmed reads and trims a sysfs file.
func readTrimmed(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func readFloat(path string) (float64, bool) {
	s := readTrimmed(path)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// NewMonitor creates the appropriate monitor for this platform.
func NewMonitor(opts Options) Monitor {
	return NewSysfsMonitor(opts)
}
