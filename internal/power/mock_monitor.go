package power

import (
	"context"
	"sync"
	"time"
)

// MockMonitor is a mock implementation of Monitor for testing.
type MockMonitor struct {
	mu        sync.Mutex
	batches   []Batch
	readIndex int
	supported bool
	name      string
	err       error
	readCount int

	// Synthetic discharge used when no batches are scripted.
	start     time.Time
	step      time.Duration
	fullWh    float64
	energyWh  float64
	baseWatts float64
	ramp      float64
}

// NewMockMonitor creates a new mock monitor that simulates a 50 Wh pack
// discharging at 10 W, one batch per second.
func NewMockMonitor() *MockMonitor {
	return &MockMonitor{
		supported: true,
		name:      "mock",
		start:     time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		step:      time.Second,
		fullWh:    50.0,
		energyWh:  40.0,
		baseWatts: 10.0,
	}
}

// WithBatches sets the batches that will be returned in sequence.
func (m *MockMonitor) WithBatches(batches ...Batch) *MockMonitor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = batches
	m.readIndex = 0
	return m
}

// WithSupported sets whether the monitor reports as supported.
func (m *MockMonitor) WithSupported(supported bool) *MockMonitor {
	m.supported = supported
	return m
}

// WithError sets an error to be returned on Read.
func (m *MockMonitor) WithError(err error) *MockMonitor {
	m.err = err
	return m
}

// WithRamp makes the synthetic power draw grow by step watts per read.
func (m *MockMonitor) WithRamp(base, step float64) *MockMonitor {
	m.baseWatts = base
	m.ramp = step
	return m
}

// Name returns the name of this mock monitor.
func (m *MockMonitor) Name() string {
	return m.name
}

// IsSupported returns whether this monitor is supported.
func (m *MockMonitor) IsSupported() bool {
	return m.supported
}

// Read returns the next scripted batch, or a synthetic one.
func (m *MockMonitor) Read(ctx context.Context) (Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.readCount++

	if err := ctx.Err(); err != nil {
		return Batch{}, err
	}
	if m.err != nil {
		return Batch{}, m.err
	}

	if len(m.batches) > 0 {
		batch := m.batches[m.readIndex]
		m.readIndex = (m.readIndex + 1) % len(m.batches)
		if batch.Timestamp.IsZero() {
			batch.Timestamp = time.Now()
		}
		return batch, nil
	}

	return m.synthetic(), nil
}

func (m *MockMonitor) synthetic() Batch {
	ts := m.start.Add(time.Duration(m.readCount-1) * m.step)
	watts := m.baseWatts + m.ramp*float64(m.readCount-1)

	if m.readCount > 1 {
		m.energyWh -= watts * m.step.Hours()
		if m.energyWh < 0 {
			m.energyWh = 0
		}
	}

	b := Batch{Timestamp: ts, Status: StatusDischarging, Source: m.name}
	b.Add(NewSample(EnergyNow, m.energyWh, ts, m.name))
	b.Add(NewSample(EnergyFull, m.fullWh, ts, m.name))
	b.Add(NewSample(PowerNow, watts, ts, m.name))
	b.Add(NewSample(VoltageNow, 12.0, ts, m.name))
	b.Add(NewSample(CapacityPercent, 100*m.energyWh/m.fullWh, ts, m.name))
	return b
}

// ReadCount returns how many times Read was called.
func (m *MockMonitor) ReadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readCount
}

// Reset resets the mock state.
func (m *MockMonitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readIndex = 0
	m.readCount = 0
	m.energyWh = 40.0
	m.err = nil
}
