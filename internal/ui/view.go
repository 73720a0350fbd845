package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/rdegges/batfi/internal/estimate"
	"github.com/rdegges/batfi/internal/power"
)

// Colors and styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(1, 2)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	valueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF"))

	dimStyle = lipgloss.NewStyle().
			Faint(true)

	// Trend indicators
	trendUpStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF5555"))

	trendDownStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#55FF55"))

	trendStableStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#AAAAAA"))

	graphBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4"))

	graphAxisStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#555555"))

	// Level colors shared by the capacity bar and temperatures.
	coolStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#55FFFF"))

	goodStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#55FF55"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFF55"))

	hotStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555"))

	criticalStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#CC0000"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#555555")).
			MarginTop(1)
)

func (m Model) renderTitle() string {
	title := titleStyle.Render("🔋 batfi")
	name := m.info.Name
	if m.info.Model != "" {
		name = strings.TrimSpace(m.info.Manufacturer + " " + m.info.Model)
	}
	if name == "" {
		return title
	}
	return title + "  " + labelStyle.Render(name)
}

// renderCapacity renders the charge bar and the status line.
func (m Model) renderCapacity() string {
	var b strings.Builder
	est := m.last

	if pct, ok := est.CapacityPercent.Get(); ok {
		b.WriteString(valueStyle.Render(fmt.Sprintf("%.0f%%", pct)))
		b.WriteString(" [")
		b.WriteString(capacityBar(pct, m.barWidth))
		b.WriteString("] ")
		b.WriteString(capacityArrow(est.CapacityTrend))
		b.WriteString("\n")
	}

	b.WriteString(labelStyle.Render("Status: "))
	b.WriteString(statusText(est.Status))
	return b.String()
}

// capacityBar draws a width-wide bar filled to pct.
func capacityBar(pct float64, width int) string {
	pct = math.Max(0, math.Min(100, pct))
	filled := int(pct / 100 * float64(width))

	var style lipgloss.Style
	switch {
	case pct <= 15:
		style = hotStyle
	case pct <= 30:
		style = warnStyle
	case pct <= 80:
		style = goodStyle
	default:
		style = coolStyle
	}
	return style.Render(strings.Repeat("█", filled) + strings.Repeat("░", width-filled))
}

func capacityArrow(t estimate.TrendLabel) string {
	switch t {
	case estimate.TrendIncreasing:
		return goodStyle.Render("↗")
	case estimate.TrendDecreasing:
		return hotStyle.Render("↘")
	default:
		return trendStableStyle.Render("━")
	}
}

func statusText(s power.Status) string {
	switch s {
	case power.StatusCharging:
		return goodStyle.Bold(true).Render(s.String() + " ⚡")
	case power.StatusDischarging:
		return warnStyle.Bold(true).Render(s.String() + " 🔋")
	case power.StatusFull:
		return coolStyle.Bold(true).Render(s.String() + " ✓")
	default:
		return valueStyle.Render(s.String())
	}
}

// renderTime renders the time to empty or to full.
func (m Model) renderTime() string {
	t := m.last.Time
	label := labelStyle.Render("Time:   ")

	if t.Valid {
		var suffix string
		switch t.Direction {
		case estimate.Charging:
			suffix = "⚡ to full"
			if t.Phase != estimate.PhaseNone {
				suffix += " (" + t.Phase.String() + ")"
			}
		default:
			suffix = "🔋 remaining"
		}
		if t.Basis == estimate.CapacityBased {
			suffix += " ~"
		}
		return label + valueStyle.Render(formatMinutes(t.Minutes)+" "+suffix) + " " + confidenceDots(t.Confidence)
	}

	if m.last.Direction == estimate.Idle {
		return label + dimStyle.Render("—")
	}
	return label + dimStyle.Render("Calculating") + " " + m.spinner.View()
}

// confidenceDots renders a confidence level as filled dots.
func confidenceDots(c estimate.Confidence) string {
	switch c {
	case estimate.ConfidenceVeryHigh:
		return goodStyle.Render("●●●")
	case estimate.ConfidenceHigh:
		return goodStyle.Render("●●")
	case estimate.ConfidenceMedium:
		return warnStyle.Render("●")
	default:
		return hotStyle.Render("○")
	}
}

// renderPower renders the power analytics section.
func (m Model) renderPower() string {
	est := m.last
	var lines []string
	lines = append(lines, sectionStyle.Render("Power Analytics"))

	if est.HasPower {
		style := warnStyle
		if est.Direction == estimate.Charging {
			style = goodStyle
		}
		lines = append(lines, row("Power", style.Render(fmt.Sprintf("%.2f W", est.Power.Watts))+
			" "+dimStyle.Render("("+est.Power.Method.String()+")")))
	} else {
		lines = append(lines, row("Power", dimStyle.Render("—")))
	}

	if est.HasSmoothed {
		lines = append(lines, row("Smoothed", valueStyle.Render(fmt.Sprintf("%.2f W", est.Smoothed.Value))+
			" "+labelStyle.Render("trend ")+powerArrow(est.Trend)))
		if est.Smoothed.Samples >= 3 {
			window := min(est.Smoothed.Samples, m.estimator.Config().WindowSize)
			lines = append(lines, row("Rolling", valueStyle.Render(fmt.Sprintf("%.2f W", est.Smoothed.Rolling))+
				" "+dimStyle.Render(fmt.Sprintf("(%s avg)", formatDuration(time.Duration(window)*m.refreshInterval)))))
		}
	}

	if v, ok := est.VoltageV.Get(); ok {
		lines = append(lines, row("Voltage", valueStyle.Render(fmt.Sprintf("%.2f V", v))))
	}
	if a, ok := est.CurrentA.Get(); ok {
		ma := int(math.Round(a * 1000))
		if ma >= 0 {
			lines = append(lines, row("Current", goodStyle.Render(fmt.Sprintf("+%d mA", ma))))
		} else {
			lines = append(lines, row("Current", hotStyle.Render(fmt.Sprintf("%d mA", ma))))
		}
	}
	return strings.Join(lines, "\n")
}

// powerArrow maps a power trend to an arrow. Rising draw is bad news.
func powerArrow(t estimate.TrendLabel) string {
	switch t {
	case estimate.TrendIncreasing:
		return trendUpStyle.Render("↑")
	case estimate.TrendDecreasing:
		return trendDownStyle.Render("↓")
	default:
		return trendStableStyle.Render("→")
	}
}

// renderEnergy renders stored energy and pack health.
func (m Model) renderEnergy() string {
	est := m.last
	lines := []string{sectionStyle.Render("Energy")}

	lines = append(lines, row("Now", whText(est.EnergyNowWh)))
	lines = append(lines, row("Full", whText(est.EnergyFullWh)))
	if h, ok := est.HealthPercent.Get(); ok {
		lines = append(lines, row("Health", valueStyle.Render(fmt.Sprintf("%.0f%%", h))))
	}
	if c, ok := est.Cycles.Get(); ok {
		lines = append(lines, row("Cycles", valueStyle.Render(fmt.Sprintf("%.0f", c))))
	}
	return strings.Join(lines, "\n")
}

func whText(v power.Value) string {
	if wh, ok := v.Get(); ok {
		return valueStyle.Render(fmt.Sprintf("%.1f Wh", wh))
	}
	return dimStyle.Render("—")
}

// renderTemperatures renders the battery and CPU temperatures.
func (m Model) renderTemperatures() string {
	est := m.last
	lines := []string{sectionStyle.Render("Temperature")}
	lines = append(lines, row("Battery", temperatureText(est.BatteryTemp, batteryTempStyle)))
	lines = append(lines, row("CPU", temperatureText(est.CPUTemp, cpuTempStyle)))

	if !est.BatteryTemp.Valid && !est.CPUTemp.Valid {
		cfg := m.estimator.Config()
		lines = append(lines, dimStyle.Render(fmt.Sprintf("No valid temperature sensors (range %.0f-%.0f°C)", cfg.MinTempC, cfg.MaxTempC)))
	}
	return strings.Join(lines, "\n")
}

func temperatureText(t estimate.TemperatureEstimate, style func(float64) lipgloss.Style) string {
	if !t.Valid {
		return dimStyle.Render("— (no sensor found)")
	}
	text := style(t.Celsius).Render(fmt.Sprintf("%.1f°C (%.1f°F)", t.Celsius, power.CelsiusToFahrenheit(t.Celsius)))
	if t.Sensor != "" {
		text += " " + dimStyle.Render("["+t.Sensor+"]")
	}
	return text
}

func batteryTempStyle(c float64) lipgloss.Style {
	switch {
	case c <= 35:
		return coolStyle
	case c <= 45:
		return goodStyle
	case c <= 55:
		return warnStyle
	default:
		return hotStyle
	}
}

func cpuTempStyle(c float64) lipgloss.Style {
	switch {
	case c <= 45:
		return coolStyle
	case c <= 60:
		return goodStyle
	case c <= 75:
		return warnStyle
	case c <= 85:
		return hotStyle
	default:
		return criticalStyle
	}
}

// renderGraph renders the power history as a sparkline.
func (m Model) renderGraph() string {
	history := m.estimator.History()
	points := history.Points()
	if len(points) < 2 {
		return graphAxisStyle.Render("Waiting for data...")
	}

	minVal := history.Min()
	maxVal := history.Max()

	rangeVal := maxVal - minVal
	if rangeVal < 1.0 {
		rangeVal = 1.0
	}
	minVal = math.Max(0, minVal-rangeVal*0.1)
	maxVal += rangeVal * 0.1

	var lines []string
	lines = append(lines, sectionStyle.Render(fmt.Sprintf("Power History (last %d samples)", len(points))))
	lines = append(lines, graphAxisStyle.Render(fmt.Sprintf("%.1f - %.1f W", minVal, maxVal)))

	blockChars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	// Sample points to fit graph width
	numPoints := min(m.graphWidth, len(points))
	sampled := make([]float64, numPoints)
	if numPoints < len(points) {
		for i := 0; i < numPoints; i++ {
			idx := i * (len(points) - 1) / (numPoints - 1)
			sampled[i] = points[idx].Value
		}
	} else {
		for i, p := range points {
			sampled[i] = p.Value
		}
	}

	var graphLine strings.Builder
	for _, val := range sampled {
		normalized := (val - minVal) / (maxVal - minVal)
		normalized = math.Max(0, math.Min(1, normalized))
		graphLine.WriteRune(blockChars[int(normalized*float64(len(blockChars)-1))])
	}
	lines = append(lines, graphBarStyle.Render(graphLine.String()))

	span := points[len(points)-1].Timestamp.Sub(points[0].Timestamp)
	lines = append(lines, graphAxisStyle.Render(fmt.Sprintf("← %s ago", formatDuration(span))))

	return strings.Join(lines, "\n")
}

// renderFooter summarizes how much history backs the estimate.
func (m Model) renderFooter() string {
	est := m.last
	minSamples := m.estimator.Config().MinSamples

	var accuracy string
	switch est.Confidence {
	case estimate.ConfidenceVeryHigh:
		accuracy = goodStyle.Render("Very high accuracy")
	case estimate.ConfidenceHigh:
		accuracy = goodStyle.Render("High accuracy")
	case estimate.ConfidenceMedium:
		accuracy = warnStyle.Render("Medium accuracy")
	default:
		accuracy = hotStyle.Render("Building accuracy")
	}
	if est.Samples < minSamples {
		accuracy += dimStyle.Render(fmt.Sprintf(" (%d/%d samples)", est.Samples, minSamples))
	} else {
		accuracy += dimStyle.Render(fmt.Sprintf(" (%d samples)", est.Samples))
	}

	return accuracy + dimStyle.Render(fmt.Sprintf(" • Monitor: %s • Updated %s • Every %s",
		m.monitor.Name(), m.lastUpdate.Format("15:04:05"), formatDuration(m.refreshInterval)))
}

func row(label, value string) string {
	return labelStyle.Render(fmt.Sprintf(" %-9s", label+":")) + " " + value
}

// formatMinutes formats a time estimate as "3h 05m" or "42m".
func formatMinutes(minutes int) string {
	h, mins := minutes/60, minutes%60
	if h > 0 {
		return fmt.Sprintf("%dh %02dm", h, mins)
	}
	return fmt.Sprintf("%dm", mins)
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "0s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		secs := int(d.Seconds()) % 60
		if secs > 0 {
			return fmt.Sprintf("%dm%ds", mins, secs)
		}
		return fmt.Sprintf("%dm", mins)
	}
	hours := int(d.Hours())
	mins := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", hours, mins)
}
