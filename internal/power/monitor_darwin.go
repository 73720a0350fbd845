//go:build darwin

package power

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DarwinMonitor reads battery telemetry on macOS from the AppleSmartBattery
// registry entry.
type DarwinMonitor struct {
	hasBattery bool
	log        logrus.FieldLogger
}

// NewDarwinMonitor creates a new macOS battery monitor.
func NewDarwinMonitor(opts Options) *DarwinMonitor {
	m := &DarwinMonitor{log: opts.Logger}
	if m.log == nil {
		m.log = discardLogger()
	}
	m.detectCapabilities()
	return m
}

func (m *DarwinMonitor) detectCapabilities() {
	out, err := m.runIoreg(context.Background())
	m.hasBattery = err == nil && strings.Contains(out, "AppleSmartBattery")
	if !m.hasBattery {
		m.log.Debug("No AppleSmartBattery entry found")
	}
}

// Name returns the name of this monitor.
func (m *DarwinMonitor) Name() string {
	return "macOS-ioreg"
}

// IsSupported reports whether this Mac has a battery.
func (m *DarwinMonitor) IsSupported() bool {
	return m.hasBattery
}

// Read returns the current battery telemetry.
func (m *DarwinMonitor) Read(ctx context.Context) (Batch, error) {
	if !m.hasBattery {
		return Batch{}, ErrNoBattery
	}
	out, err := m.runIoreg(ctx)
	if err != nil {
		return Batch{}, fmt.Errorf("running ioreg: %w", err)
	}
	return parseIoreg(out, time.Now()), nil
}

// Info returns the battery identity from ioreg.
func (m *DarwinMonitor) Info() DeviceInfo {
	out, err := m.runIoreg(context.Background())
	if err != nil {
		return DeviceInfo{}
	}
	props := ioregProps(out)
	return DeviceInfo{
		Name:         "InternalBattery-0",
		Manufacturer: props["Manufacturer"],
		Model:        props["DeviceName"],
		Technology:   "Li-ion",
	}
}

// runIoreg executes ioreg and returns output for AppleSmartBattery.
func (m *DarwinMonitor) runIoreg(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "ioreg", "-rn", "AppleSmartBattery")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return out.String(), nil
}

// NewMonitor creates the appropriate monitor for this platform.
func NewMonitor(opts Options) Monitor {
	return NewDarwinMonitor(opts)
}
