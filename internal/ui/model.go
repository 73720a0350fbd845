// Package ui provides the terminal user interface for battery monitoring.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rdegges/batfi/internal/estimate"
	"github.com/rdegges/batfi/internal/power"
)

const (
	// DefaultGraphWidth is the default width of the power graph in characters.
	DefaultGraphWidth = 60
	// DefaultBarWidth is the width of the capacity bar.
	DefaultBarWidth = 40
	// DefaultRefreshInterval is the default interval between battery reads.
	DefaultRefreshInterval = 2 * time.Second
	// readTimeout bounds a single monitor read.
	readTimeout = 5 * time.Second
)

// tickMsg is sent periodically to trigger a battery read.
type tickMsg time.Time

// batchMsg carries the result of one monitor read.
type batchMsg struct {
	batch power.Batch
	err   error
}

// Model represents the UI state.
type Model struct {
	monitor         power.Monitor
	estimator       *estimate.Estimator
	info            power.DeviceInfo
	onEstimate      func(estimate.Estimate)
	spinner         spinner.Model
	width           int
	height          int
	graphWidth      int
	barWidth        int
	refreshInterval time.Duration
	last            estimate.Estimate
	hasEstimate     bool
	lastUpdate      time.Time
	lastError       error
	quitting        bool
	ready           bool
}

// Config holds configuration options for the UI.
type Config struct {
	Monitor         power.Monitor
	Estimator       *estimate.Estimator
	GraphWidth      int
	BarWidth        int
	RefreshInterval time.Duration

	// OnEstimate, if set, is called with every accepted estimate.
	OnEstimate func(estimate.Estimate)
}

// DefaultConfig returns a Config with default values.
func DefaultConfig(monitor power.Monitor, est *estimate.Estimator) Config {
	return Config{
		Monitor:         monitor,
		Estimator:       est,
		GraphWidth:      DefaultGraphWidth,
		BarWidth:        DefaultBarWidth,
		RefreshInterval: DefaultRefreshInterval,
	}
}

// NewModel creates a new UI model with the given configuration.
func NewModel(cfg Config) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	var info power.DeviceInfo
	if p, ok := cfg.Monitor.(power.InfoProvider); ok {
		info = p.Info()
	}

	return Model{
		monitor:         cfg.Monitor,
		estimator:       cfg.Estimator,
		info:            info,
		onEstimate:      cfg.OnEstimate,
		spinner:         s,
		graphWidth:      cfg.GraphWidth,
		barWidth:        cfg.BarWidth,
		refreshInterval: cfg.RefreshInterval,
	}
}

// Init reads the battery right away and starts the tick timer.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.readBatteryCmd(),
		m.tickCmd(),
	)
}

// tickCmd returns a command that sends a tick message after the refresh interval.
func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// readBatteryCmd reads one batch from the monitor.
func (m Model) readBatteryCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
		defer cancel()
		b, err := m.monitor.Read(ctx)
		return batchMsg{batch: b, err: err}
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "c":
			m.estimator.Reset()
			m.last = estimate.Estimate{}
			m.hasEstimate = false
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.graphWidth = max(10, min(DefaultGraphWidth, msg.Width-20))
		m.barWidth = max(10, min(DefaultBarWidth, msg.Width-30))
		m.ready = true
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.readBatteryCmd(), m.tickCmd())

	case batchMsg:
		if msg.err != nil {
			m.lastError = msg.err
			return m, nil
		}
		est, err := m.estimator.Tick(msg.batch)
		if err != nil {
			// A stale read is not worth surfacing.
			if !errors.Is(err, estimate.ErrOutOfOrder) {
				m.lastError = err
			}
			return m, nil
		}
		m.lastError = nil
		m.last = est
		m.hasEstimate = true
		m.lastUpdate = est.Timestamp
		if m.onEstimate != nil {
			m.onEstimate(est)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the UI.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	if !m.ready {
		return fmt.Sprintf("%s Loading...\n", m.spinner.View())
	}

	var b strings.Builder

	b.WriteString(m.renderTitle())
	b.WriteString("\n\n")

	if !m.hasEstimate {
		b.WriteString(fmt.Sprintf("%s Reading battery...", m.spinner.View()))
		b.WriteString("\n")
	} else {
		b.WriteString(m.renderCapacity())
		b.WriteString("\n")
		b.WriteString(m.renderTime())
		b.WriteString("\n\n")
		b.WriteString(m.renderPower())
		b.WriteString("\n\n")
		b.WriteString(m.renderEnergy())
		b.WriteString("\n\n")
		b.WriteString(m.renderTemperatures())
		b.WriteString("\n\n")
		b.WriteString(m.renderGraph())
		b.WriteString("\n\n")
		b.WriteString(m.renderFooter())
		b.WriteString("\n")
	}

	if m.lastError != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(fmt.Sprintf("⚠ Error: %v", m.lastError)))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("Press 'q' to quit • 'c' to reset estimates"))

	return boxStyle.Render(b.String())
}
