// Package forecast estimates how long a backlog will take to finish by resampling
// historical cycle times.
//
// The package has two parts:
//   - History holds validated cycle-time observations, optionally truncated to the
//     most recent K records.
//   - Forecast runs a Monte Carlo simulation over a History and reports
//     nearest-rank percentiles of the simulated completion totals.
//
// Both are pure: no I/O, no logging, no shared state between calls.
package forecast

import "math"

// History is an immutable, validated sequence of cycle-time observations in
// chronological order (oldest first).
type History struct {
	durations []float64
	total     int
}

// HistoryOption configures Build.
type HistoryOption func(*historyOptions)

type historyOptions struct {
	limit    int
	hasLimit bool
}

// WithLimit keeps only the most recent k observations. A k greater than or equal
// to the number of observations keeps all of them; k <= 0 is rejected by Build.
func WithLimit(k int) HistoryOption {
	return func(o *historyOptions) {
		o.limit = k
		o.hasLimit = true
	}
}

// Build validates raw durations and returns the History used for simulation.
//
// Every element must be finite and non-negative. The input slice is copied, so the
// caller may reuse it afterwards.
func Build(raw []float64, opts ...HistoryOption) (History, error) {
	var o historyOptions
	for _, opt := range opts {
		opt(&o)
	}

	if len(raw) == 0 {
		return History{}, ErrEmptyHistory
	}

	for i, d := range raw {
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return History{}, invalidElement("duration", i, d, "must be finite")
		}
		if d < 0 {
			return History{}, invalidElement("duration", i, d, "must be >= 0")
		}
	}

	if o.hasLimit && o.limit <= 0 {
		return History{}, invalidField("limit", o.limit, "must be > 0")
	}

	kept := raw
	if o.hasLimit && o.limit < len(raw) {
		kept = raw[len(raw)-o.limit:]
	}

	durations := make([]float64, len(kept))
	copy(durations, kept)

	return History{durations: durations, total: len(raw)}, nil
}

// Len returns the number of retained observations.
func (h History) Len() int {
	return len(h.durations)
}

// Total returns the number of observations supplied to Build, before truncation.
func (h History) Total() int {
	return h.total
}

// Durations returns a copy of the retained observations.
func (h History) Durations() []float64 {
	out := make([]float64, len(h.durations))
	copy(out, h.durations)
	return out
}

// Min returns the smallest retained observation, or 0 for an empty History.
func (h History) Min() float64 {
	if len(h.durations) == 0 {
		return 0
	}
	m := h.durations[0]
	for _, d := range h.durations[1:] {
		if d < m {
			m = d
		}
	}
	return m
}

// Max returns the largest retained observation, or 0 for an empty History.
func (h History) Max() float64 {
	m := 0.0
	for _, d := range h.durations {
		if d > m {
			m = d
		}
	}
	return m
}

// Mean returns the average retained observation, or 0 for an empty History.
func (h History) Mean() float64 {
	if len(h.durations) == 0 {
		return 0
	}
	sum := 0.0
	for _, d := range h.durations {
		sum += d
	}
	return sum / float64(len(h.durations))
}
