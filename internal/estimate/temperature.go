package estimate

import (
	"math"
	"time"
)

// TemperatureEstimate is the smoothed state of one temperature sensor.
type TemperatureEstimate struct {
	Valid      bool
	Sensor     string
	Celsius    float64
	Smoothed   float64
	Trend      TrendLabel
	Confidence Confidence
	Samples    int
}

// TemperatureTracker smooths one temperature sensor and rejects readings
// outside the plausible range.
type TemperatureTracker struct {
	minC, maxC float64
	smoother   *Smoother
	history    *History
}

// NewTemperatureTracker creates a tracker using cfg's smoothing and range.
func NewTemperatureTracker(cfg Config) *TemperatureTracker {
	sc := cfg.smoother()
	sc.Floor = math.Inf(-1)
	return &TemperatureTracker{
		minC:     cfg.MinTempC,
		maxC:     cfg.MaxTempC,
		smoother: NewSmoother(sc),
		history:  NewHistory(cfg.HistorySize, cfg.HistoryWindow),
	}
}

// Update feeds one reading in degrees Celsius.
func (t *TemperatureTracker) Update(celsius float64, now time.Time, sensor string) (TemperatureEstimate, bool) {
	if math.IsNaN(celsius) || celsius < t.minC || celsius > t.maxC {
		return TemperatureEstimate{}, false
	}
	b, ok := t.smoother.Update(celsius, now)
	if !ok {
		return TemperatureEstimate{}, false
	}
	t.history.Add(Point{Value: b.Value, Timestamp: now})

	long, _ := t.history.Average()
	trend, conf := Classify(b.Rolling, long, b.Samples)
	return TemperatureEstimate{
		Valid:      true,
		Sensor:     sensor,
		Celsius:    celsius,
		Smoothed:   b.Value,
		Trend:      trend,
		Confidence: conf,
		Samples:    b.Samples,
	}, true
}

// Reset forgets all readings.
func (t *TemperatureTracker) Reset() {
	t.smoother.Reset()
	t.history.Clear()
}
