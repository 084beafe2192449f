package forecast

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultPercentiles are the levels a planning report usually shows.
var DefaultPercentiles = []float64{50, 80, 85, 90}

// ParsePercentile parses a percentile from either p-notation (p85, P85) or a
// bare number (85, 97.5).
//
// Examples:
//   - "p50" → 50
//   - "P85" → 85
//   - "90"  → 90
//   - "99.9" → 99.9
//
// Returns an *InvalidInputError if the value is not a number in (0, 100].
func ParsePercentile(s string) (float64, error) {
	s = strings.TrimSpace(s)
	raw := s
	if strings.HasPrefix(strings.ToLower(s), "p") {
		raw = s[1:]
	}

	p, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, invalidField("percentile", s, "not a number")
	}
	if err := validatePercentile(p, -1); err != nil {
		return 0, err
	}
	return p, nil
}

// ParsePercentiles parses a comma-separated list such as "p50,p85,p90".
// Empty entries are ignored; duplicates are rejected.
func ParsePercentiles(s string) ([]float64, error) {
	var out []float64
	seen := make(map[float64]bool)
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		p, err := ParsePercentile(part)
		if err != nil {
			return nil, err
		}
		if seen[p] {
			return nil, invalidField("percentile", part, "duplicate")
		}
		seen[p] = true
		out = append(out, p)
	}
	return out, nil
}

// FormatPercentile formats a percentile as p-notation for display.
//
// Examples:
//   - 50 → "P50"
//   - 85 → "P85"
//   - 97.5 → "P97.5"
func FormatPercentile(p float64) string {
	if p == math.Trunc(p) {
		return fmt.Sprintf("P%d", int(p))
	}
	return "P" + strconv.FormatFloat(p, 'f', -1, 64)
}

func validatePercentile(p float64, index int) error {
	if math.IsNaN(p) || p <= 0 || p > 100 {
		return &InvalidInputError{Field: "percentile", Index: index, Value: p, Reason: "must be in (0, 100]"}
	}
	return nil
}

// nearestRank returns the index into a sorted slice of n values for percentile p:
// ceil(p/100 * n) - 1, clamped to [0, n-1].
func nearestRank(p float64, n int) int {
	// p*n first keeps whole-number products exact (0.85*10000 is not).
	idx := int(math.Ceil(p*float64(n)/100)) - 1
	if idx < 0 {
		return 0
	}
	if idx > n-1 {
		return n - 1
	}
	return idx
}

// NearestRank returns the nearest-rank percentile of an ascending slice.
// It returns 0 for an empty slice.
func NearestRank(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[nearestRank(p, len(sorted))]
}
