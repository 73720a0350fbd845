package power

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockMonitor(t *testing.T) {
	t.Run("implements Monitor interface", func(t *testing.T) {
		var _ Monitor = NewMockMonitor()
	})

	t.Run("synthetic batch discharges at base watts", func(t *testing.T) {
		m := NewMockMonitor()
		ctx := context.Background()

		b1, err := m.Read(ctx)
		require.NoError(t, err)
		b2, err := m.Read(ctx)
		require.NoError(t, err)

		assert.Equal(t, StatusDischarging, b1.Status)
		w, ok := b1.Value(PowerNow)
		require.True(t, ok)
		assert.Equal(t, 10.0, w)

		e1, _ := b1.Value(EnergyNow)
		e2, _ := b2.Value(EnergyNow)
		assert.InDelta(t, 10.0/3600, e1-e2, 1e-9)
		assert.Equal(t, time.Second, b2.Timestamp.Sub(b1.Timestamp))
	})

	t.Run("returns scripted batches in sequence", func(t *testing.T) {
		now := time.Now()
		mk := func(w float64, off time.Duration) Batch {
			b := Batch{Timestamp: now.Add(off)}
			b.Add(NewSample(PowerNow, w, now.Add(off), "test"))
			return b
		}
		m := NewMockMonitor().WithBatches(mk(5, 0), mk(15, time.Second), mk(25, 2*time.Second))
		ctx := context.Background()

		for _, want := range []float64{5, 15, 25, 5} {
			b, err := m.Read(ctx)
			require.NoError(t, err)
			got, _ := b.Value(PowerNow)
			assert.Equal(t, want, got)
		}
	})

	t.Run("fills missing timestamp", func(t *testing.T) {
		m := NewMockMonitor().WithBatches(Batch{})
		b, err := m.Read(context.Background())
		require.NoError(t, err)
		assert.False(t, b.Timestamp.IsZero())
	})

	t.Run("returns error when configured", func(t *testing.T) {
		expectedErr := errors.New("test error")
		m := NewMockMonitor().WithError(expectedErr)

		_, err := m.Read(context.Background())
		assert.ErrorIs(t, err, expectedErr)
	})

	t.Run("honours cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewMockMonitor().Read(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("reports supported status correctly", func(t *testing.T) {
		m := NewMockMonitor()
		assert.True(t, m.IsSupported())

		m.WithSupported(false)
		assert.False(t, m.IsSupported())
	})

	t.Run("tracks read count", func(t *testing.T) {
		m := NewMockMonitor()
		ctx := context.Background()
		assert.Equal(t, 0, m.ReadCount())

		for i := 0; i < 5; i++ {
			_, _ = m.Read(ctx)
		}
		assert.Equal(t, 5, m.ReadCount())
	})

	t.Run("ramp generates increasing power", func(t *testing.T) {
		m := NewMockMonitor().WithRamp(10.0, 1.0)
		ctx := context.Background()

		for _, want := range []float64{10, 11, 12} {
			b, _ := m.Read(ctx)
			got, _ := b.Value(PowerNow)
			assert.Equal(t, want, got)
		}
	})

	t.Run("reset clears state", func(t *testing.T) {
		m := NewMockMonitor().WithError(errors.New("test error"))
		ctx := context.Background()

		_, _ = m.Read(ctx)
		_, _ = m.Read(ctx)
		m.Reset()

		assert.Equal(t, 0, m.ReadCount())
		_, err := m.Read(ctx)
		assert.NoError(t, err)
	})
}
