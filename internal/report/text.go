package report

import (
	"fmt"
	"io"
	"strings"
)

// WriteText writes a short human readable summary of snap.
func WriteText(w io.Writer, snap Snapshot) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Battery:  %s\n", orDash(snap.Battery))
	fmt.Fprintf(&b, "Status:   %s\n", snap.Status)
	fmt.Fprintf(&b, "Charge:   %s\n", formatFloat(snap.CapacityPercent, "%.0f%%"))
	fmt.Fprintf(&b, "Time:     %s\n", timeText(snap))
	fmt.Fprintf(&b, "Power:    %s (smoothed %s, trend %s)\n",
		formatFloat(snap.PowerW, "%.2f W"), formatFloat(snap.SmoothedPowerW, "%.2f W"), snap.PowerTrend)
	fmt.Fprintf(&b, "Energy:   %s / %s\n", formatFloat(snap.EnergyNowWh, "%.1f Wh"), formatFloat(snap.EnergyFullWh, "%.1f Wh"))
	fmt.Fprintf(&b, "Health:   %s\n", formatFloat(snap.HealthPercent, "%.0f%%"))
	fmt.Fprintf(&b, "Temp:     battery %s, cpu %s\n",
		formatFloat(snap.TemperatureC, "%.1f°C"), formatFloat(snap.CPUTemperatureC, "%.1f°C"))

	_, err := io.WriteString(w, b.String())
	return err
}

func timeText(snap Snapshot) string {
	if snap.TimeRemainingMinutes == nil {
		if snap.Direction == "idle" {
			return "—"
		}
		return fmt.Sprintf("calculating (%d samples)", snap.Samples)
	}
	m := *snap.TimeRemainingMinutes
	var d string
	if m >= 60 {
		d = fmt.Sprintf("%dh %02dm", m/60, m%60)
	} else {
		d = fmt.Sprintf("%dm", m)
	}
	if snap.Direction == "charging" {
		d += " to full"
		if snap.ChargePhase != "" {
			d += " (" + snap.ChargePhase + ")"
		}
	} else {
		d += " remaining"
	}
	return fmt.Sprintf("%s, %s confidence", d, snap.Confidence)
}

func formatFloat(v *float64, format string) string {
	if v == nil {
		return "—"
	}
	return fmt.Sprintf(format, *v)
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
