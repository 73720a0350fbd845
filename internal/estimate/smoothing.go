package estimate

import (
	"fmt"
	"math"
	"time"
)

// window is a fixed-capacity FIFO of raw values with a running sum.
type window struct {
	values []float64
	size   int
	index  int
	count  int
	sum    float64
}

func newWindow(size int) *window {
	if size <= 0 {
		panic(fmt.Sprintf("estimate: rolling window capacity must be positive, got %d", size))
	}
	return &window{
		values: make([]float64, size),
		size:   size,
	}
}

// Add appends a value, evicting the oldest one when full.
func (w *window) Add(value float64) {
	if w.count >= w.size {
		w.sum -= w.values[w.index]
	} else {
		w.count++
	}
	w.values[w.index] = value
	w.sum += value
	w.index = (w.index + 1) % w.size
}

// Mean returns the arithmetic mean of the current contents.
func (w *window) Mean() float64 {
	if w.count == 0 {
		return 0
	}
	return w.sum / float64(w.count)
}

// Len returns the number of values held.
func (w *window) Len() int {
	return w.count
}

// Values returns the contents from oldest to newest.
func (w *window) Values() []float64 {
	out := make([]float64, 0, w.count)
	start := (w.index - w.count + w.size) % w.size
	for i := 0; i < w.count; i++ {
		out = append(out, w.values[(start+i)%w.size])
	}
	return out
}

func (w *window) Reset() {
	for i := range w.values {
		w.values[i] = 0
	}
	w.index, w.count, w.sum = 0, 0, 0
}

// BlendWeights are the shares of the raw reading, the EMA and the rolling
// mean in a blended value. They always sum to 1.
type BlendWeights struct {
	Raw     float64
	EMA     float64
	Rolling float64
}

var (
	earlyWeights   = BlendWeights{Raw: 0.8, EMA: 0.2}
	warmingWeights = BlendWeights{Raw: 0.5, EMA: 0.5}
	settledWeights = BlendWeights{Raw: 0.2, EMA: 0.3, Rolling: 0.5}
)

// SmootherConfig configures one Smoother.
type SmootherConfig struct {
	Alpha       float64
	Capacity    int
	EarlyBand   int
	SettledBand int

	// Floor rejects readings below it. Use math.Inf(-1) to accept anything.
	Floor float64
}

// WeightsFor returns the blend weights used once count samples are accepted.
func (c SmootherConfig) WeightsFor(count int) BlendWeights {
	switch {
	case count < c.EarlyBand:
		return earlyWeights
	case count < c.SettledBand:
		return warmingWeights
	default:
		return settledWeights
	}
}

// Blended is the output of one accepted Smoother update.
type Blended struct {
	Raw     float64
	EMA     float64
	Rolling float64
	Value   float64
	Samples int
	Weights BlendWeights
}

// Smoother tracks one metric with an exponential moving average and a
// rolling window, and blends them with the instantaneous reading. It is not
// safe for concurrent use.
type Smoother struct {
	cfg    SmootherConfig
	ema    float64
	hasEMA bool
	win    *window
	count  int
	last   time.Time
}

// NewSmoother creates a Smoother. It panics if cfg.Capacity is not positive.
func NewSmoother(cfg SmootherConfig) *Smoother {
	return &Smoother{
		cfg: cfg,
		win: newWindow(cfg.Capacity),
	}
}

// Update feeds one raw reading taken at now. Non-finite readings, readings
// below the floor and readings older than the last accepted one are rejected
// without touching any state.
func (s *Smoother) Update(raw float64, now time.Time) (Blended, bool) {
	if math.IsNaN(raw) || math.IsInf(raw, 0) || raw < s.cfg.Floor {
		return Blended{}, false
	}
	if s.count > 0 && now.Before(s.last) {
		return Blended{}, false
	}

	s.count++
	s.last = now
	if s.hasEMA {
		s.ema = s.cfg.Alpha*raw + (1-s.cfg.Alpha)*s.ema
	} else {
		s.ema = raw
		s.hasEMA = true
	}
	s.win.Add(raw)

	rolling := s.win.Mean()
	w := s.cfg.WeightsFor(s.count)
	return Blended{
		Raw:     raw,
		EMA:     s.ema,
		Rolling: rolling,
		Value:   w.Raw*raw + w.EMA*s.ema + w.Rolling*rolling,
		Samples: s.count,
		Weights: w,
	}, true
}

// Count returns the number of accepted readings since the last reset.
func (s *Smoother) Count() int {
	return s.count
}

// EMA returns the current moving average.
func (s *Smoother) EMA() (float64, bool) {
	return s.ema, s.hasEMA
}

// RollingMean returns the mean of the rolling window.
func (s *Smoother) RollingMean() (float64, bool) {
	if s.win.Len() == 0 {
		return 0, false
	}
	return s.win.Mean(), true
}

// Window returns the rolling window contents, oldest first.
func (s *Smoother) Window() []float64 {
	return s.win.Values()
}

// Reset forgets everything.
func (s *Smoother) Reset() {
	s.ema, s.hasEMA = 0, false
	s.count = 0
	s.last = time.Time{}
	s.win.Reset()
}
