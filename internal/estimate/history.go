package estimate

import "time"

// Point is one accepted value.
type Point struct {
	Value     float64
	Timestamp time.Time
}

// History keeps accepted values over a time window for the long-term average
// and the sparkline.
type History struct {
	points     []Point
	maxSize    int
	windowSize time.Duration
}

// NewHistory creates a History bounded by count and by age.
func NewHistory(maxSize int, windowSize time.Duration) *History {
	return &History{
		points:     make([]Point, 0, maxSize),
		maxSize:    maxSize,
		windowSize: windowSize,
	}
}

// Add appends p and drops points older than the window or beyond maxSize.
func (h *History) Add(p Point) {
	h.prune(p.Timestamp)

	h.points = append(h.points, p)
	if len(h.points) > h.maxSize {
		h.points = h.points[1:]
	}
}

func (h *History) prune(now time.Time) {
	cutoff := now.Add(-h.windowSize)
	startIdx := 0
	for i, p := range h.points {
		if p.Timestamp.After(cutoff) {
			startIdx = i
			break
		}
		startIdx = i + 1
	}
	if startIdx > 0 && startIdx <= len(h.points) {
		h.points = h.points[startIdx:]
	}
}

// Points returns a copy of the stored points, oldest first.
func (h *History) Points() []Point {
	result := make([]Point, len(h.points))
	copy(result, h.points)
	return result
}

// Values returns just the values, oldest first.
func (h *History) Values() []float64 {
	result := make([]float64, len(h.points))
	for i, p := range h.points {
		result[i] = p.Value
	}
	return result
}

// Len returns the number of stored points.
func (h *History) Len() int {
	return len(h.points)
}

// Latest returns the most recent point.
func (h *History) Latest() (Point, bool) {
	if len(h.points) == 0 {
		return Point{}, false
	}
	return h.points[len(h.points)-1], true
}

// Average returns the mean, or false when empty.
func (h *History) Average() (float64, bool) {
	if len(h.points) == 0 {
		return 0, false
	}
	var sum float64
	for _, p := range h.points {
		sum += p.Value
	}
	return sum / float64(len(h.points)), true
}

// Min returns the lowest stored value, 0 when empty.
func (h *History) Min() float64 {
	if len(h.points) == 0 {
		return 0
	}
	minVal := h.points[0].Value
	for _, p := range h.points[1:] {
		if p.Value < minVal {
			minVal = p.Value
		}
	}
	return minVal
}

// Max returns the highest stored value, 0 when empty.
func (h *History) Max() float64 {
	if len(h.points) == 0 {
		return 0
	}
	maxVal := h.points[0].Value
	for _, p := range h.points[1:] {
		if p.Value > maxVal {
			maxVal = p.Value
		}
	}
	return maxVal
}

// Slope is the least-squares slope of the values against sample index.
func (h *History) Slope() float64 {
	n := len(h.points)
	if n < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumX2 float64
	for i, p := range h.points {
		x := float64(i)
		sumX += x
		sumY += p.Value
		sumXY += x * p.Value
		sumX2 += x * x
	}

	nf := float64(n)
	denominator := nf*sumX2 - sumX*sumX
	if denominator == 0 {
		return 0
	}
	return (nf*sumXY - sumX*sumY) / denominator
}

// Clear removes all points.
func (h *History) Clear() {
	h.points = h.points[:0]
}
