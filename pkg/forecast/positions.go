package forecast

import "sort"

// PositionForecast holds the percentiles of the running total after the first
// Position items, across all trials. Position is 1-based.
type PositionForecast struct {
	Position    int
	Percentiles map[float64]float64
}

// positionForecasts sorts each column of running totals in place and reads
// the requested percentiles from it.
func positionForecasts(columns [][]float64, levels []float64) []PositionForecast {
	out := make([]PositionForecast, len(columns))
	for i, col := range columns {
		sort.Float64s(col)
		out[i] = PositionForecast{
			Position:    i + 1,
			Percentiles: percentilesOf(col, levels),
		}
	}
	return out
}
