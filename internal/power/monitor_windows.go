//go:build windows

package power

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/sirupsen/logrus"
)

// WindowsMonitor reads battery telemetry on Windows using WMI through PowerShell.
type WindowsMonitor struct {
	log  logrus.FieldLogger
	last map[string]string
}

// NewWindowsMonitor creates a new Windows battery monitor.
func NewWindowsMonitor(opts Options) *WindowsMonitor {
	m := &WindowsMonitor{log: opts.Logger}
	if m.log == nil {
		m.log = discardLogger()
	}
	return m
}

// Name returns the name of this monitor.
func (m *WindowsMonitor) Name() string {
	return "windows-wmi"
}

// IsSupported checks if PowerShell is available to query WMI.
func (m *WindowsMonitor) IsSupported() bool {
	_, err := exec.LookPath("powershell")
	return err == nil
}

// Read returns the current battery telemetry.
func (m *WindowsMonitor) Read(ctx context.Context) (Batch, error) {
	cmd := exec.CommandContext(ctx, "powershell", "-NoProfile", "-Command", wmiScript)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return Batch{}, fmt.Errorf("querying WMI: %w", err)
	}

	output := out.String()
	m.last = wmiProps(output)
	if _, ok := m.last["RemainingCapacity"]; !ok {
		if _, ok := m.last["EstimatedChargeRemaining"]; !ok {
			return Batch{}, ErrNoBattery
		}
	}
	return parseWMI(output, time.Now()), nil
}

// Info returns the identity strings seen in the last read.
func (m *WindowsMonitor) Info() DeviceInfo {
	return DeviceInfo{
		Name:         m.last["InstanceName"],
		Manufacturer: m.last["ManufactureName"],
		Model:        m.last["DeviceName"],
	}
}

// NewMonitor creates the appropriate monitor for this platform.
func NewMonitor(opts Options) Monitor {
	return NewWindowsMonitor(opts)
}
