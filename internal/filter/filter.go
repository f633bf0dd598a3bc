// Package filter provides the temporal smoothing primitives used on
// scalar series in the frame pipeline: joint angles before phase
// comparison, and instantaneous FPS in the throughput monitor.
package filter

import "sort"

// MovingAverage smooths a scalar series over a fixed-size FIFO window.
// It is not safe for concurrent use; each analyzer owns its own instance.
type MovingAverage struct {
	window []float64
	size   int
	next   int
	count  int
	sum    float64
}

// NewMovingAverage creates a moving-average filter over a window of size n.
// Window sizes below 1 are clamped to 1.
func NewMovingAverage(n int) *MovingAverage {
	if n < 1 {
		n = 1
	}
	return &MovingAverage{
		window: make([]float64, n),
		size:   n,
	}
}

// Push inserts a sample and returns the mean over the samples currently
// in the window. Once the window is full the oldest sample is forgotten.
func (m *MovingAverage) Push(v float64) float64 {
	if m.count == m.size {
		m.sum -= m.window[m.next]
	} else {
		m.count++
	}
	m.window[m.next] = v
	m.sum += v
	m.next = (m.next + 1) % m.size

	return m.sum / float64(m.count)
}

// Mean returns the current window mean, or 0 before any sample.
func (m *MovingAverage) Mean() float64 {
	if m.count == 0 {
		return 0
	}
	return m.sum / float64(m.count)
}

// Warm reports whether the window has collected a full set of samples.
// Consumers gating decisions on the filter should wait for warm-up.
func (m *MovingAverage) Warm() bool {
	return m.count == m.size
}

// Count returns the number of samples currently held.
func (m *MovingAverage) Count() int {
	return m.count
}

// Reset discards all samples.
func (m *MovingAverage) Reset() {
	m.next = 0
	m.count = 0
	m.sum = 0
}

// VelocityEstimator derives a signed rate of change from successive
// (value, timestamp) observations. Units are value-units per second.
type VelocityEstimator struct {
	prevValue float64
	prevTsMs  int64
	value     float64
	tsMs      int64
	samples   int
}

// Push records an observation. Timestamps are milliseconds; observations
// with a timestamp at or before the previous one are dropped so a stalled
// clock cannot produce infinite velocities.
func (v *VelocityEstimator) Push(value float64, timestampMs int64) {
	if v.samples > 0 && timestampMs <= v.tsMs {
		return
	}
	v.prevValue = v.value
	v.prevTsMs = v.tsMs
	v.value = value
	v.tsMs = timestampMs
	v.samples++
}

// Velocity returns the signed rate of change between the two most recent
// observations. The second return value is false while the estimate is
// undefined (fewer than two samples).
func (v *VelocityEstimator) Velocity() (float64, bool) {
	if v.samples < 2 {
		return 0, false
	}
	dtSec := float64(v.tsMs-v.prevTsMs) / 1000.0
	return (v.value - v.prevValue) / dtSec, true
}

// Reset discards all observations.
func (v *VelocityEstimator) Reset() {
	*v = VelocityEstimator{}
}

// RejectOutliers filters samples whose absolute deviation from the window
// median exceeds maxDev. Below minLen samples the input is returned
// unchanged: with too little data every point looks like an outlier.
func RejectOutliers(values []float64, maxDev float64, minLen int) []float64 {
	if len(values) < minLen {
		return values
	}

	med := median(values)
	kept := make([]float64, 0, len(values))
	for _, v := range values {
		dev := v - med
		if dev < 0 {
			dev = -dev
		}
		if dev <= maxDev {
			kept = append(kept, v)
		}
	}
	return kept
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
