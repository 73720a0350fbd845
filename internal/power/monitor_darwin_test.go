//go:build darwin

package power

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDarwinMonitor_Read(t *testing.T) {
	m := NewDarwinMonitor(Options{})
	if !m.IsSupported() {
		t.Skip("no battery on this Mac")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	batch, err := m.Read(ctx)
	assert.NoError(t, err)
	assert.False(t, batch.Timestamp.IsZero())

	if pct, ok := batch.Value(CapacityPercent); ok {
		assert.True(t, pct >= 0 && pct <= 100, "capacity %f out of range", pct)
	}
	t.Logf("Batch: %d samples, status=%s", len(batch.Samples), batch.Status)
}

func TestNewMonitor_Darwin(t *testing.T) {
	m := NewMonitor(Options{})
	_, ok := m.(*DarwinMonitor)
	assert.True(t, ok, "expected *DarwinMonitor, got %T", m)
}
