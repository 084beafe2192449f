// Package report renders forecast results for people (aligned text tables)
// and for programs (JSON, one object per scenario).
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/HatiCode/cyclecast/pkg/forecast"
)

// barWidth is the length of the longest histogram bar in text output.
const barWidth = 40

// History summarizes the cycle times a scenario was simulated from.
type History struct {
	Size    int
	Total   int
	Skipped int
	Min     float64
	Max     float64
	Mean    float64
}

// Report is one scenario run ready for rendering.
type Report struct {
	RunID       string
	Scenario    string
	Adapter     string
	GeneratedAt time.Time
	History     History
	Result      forecast.Result
	Histogram   []forecast.Bin
}

// Options controls rendering.
type Options struct {
	// Format is "text" or "json".
	Format string

	// IncludeOutcomes adds every simulated total to JSON output.
	IncludeOutcomes bool
}

// Write renders reports in the requested format.
func Write(w io.Writer, reports []Report, opts Options) error {
	switch opts.Format {
	case "", "text":
		return WriteText(w, reports)
	case "json":
		return WriteJSON(w, reports, opts.IncludeOutcomes)
	default:
		return fmt.Errorf("unknown report format %q", opts.Format)
	}
}

// WriteText renders reports as aligned tables separated by blank lines.
func WriteText(w io.Writer, reports []Report) error {
	for i, r := range reports {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := writeText(w, r); err != nil {
			return err
		}
	}
	return nil
}

func writeText(w io.Writer, r Report) error {
	res := r.Result
	levels := res.Levels()

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Scenario:\t%s\t(run %s)\n", r.Scenario, r.RunID)
	fmt.Fprintf(tw, "History:\t%d cycle times\t(%d collected, %d skipped) min %s, mean %s, max %s\n",
		r.History.Size, r.History.Total, r.History.Skipped,
		formatValue(r.History.Min), formatValue(r.History.Mean), formatValue(r.History.Max))
	fmt.Fprintf(tw, "Forecast:\t%d items\t%d trials, seed %d, mean %s\n",
		res.Items, res.Trials, res.Seed, formatValue(res.Mean()))
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "Percentile\tTotal\tLikelihood")
	for _, p := range levels {
		v := res.Percentiles[p]
		fmt.Fprintf(tw, "%s\t%s\t%.1f%%\n", forecast.FormatPercentile(p), formatValue(v), 100*res.Likelihood(v))
	}

	if len(res.Positions) > 0 {
		fmt.Fprintln(tw)
		header := []string{"Position"}
		for _, p := range levels {
			header = append(header, forecast.FormatPercentile(p))
		}
		fmt.Fprintln(tw, strings.Join(header, "\t"))
		for _, pos := range res.Positions {
			row := []string{strconv.Itoa(pos.Position)}
			for _, p := range levels {
				row = append(row, formatValue(pos.Percentiles[p]))
			}
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
	}

	if len(r.Histogram) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "Distribution\t\t")
		peak := 0
		for _, b := range r.Histogram {
			peak = max(peak, b.Count)
		}
		for i, b := range r.Histogram {
			closing := ")"
			if i == len(r.Histogram)-1 {
				closing = "]"
			}
			bar := 0
			if peak > 0 {
				bar = b.Count * barWidth / peak
			}
			fmt.Fprintf(tw, "[%s, %s%s\t%s\t%d\n",
				formatValue(b.Lower), formatValue(b.Upper), closing, strings.Repeat("#", bar), b.Count)
		}
	}

	return tw.Flush()
}

type jsonReport struct {
	RunID        string             `json:"runId"`
	Scenario     string             `json:"scenario"`
	Adapter      string             `json:"adapter,omitempty"`
	GeneratedAt  time.Time          `json:"generatedAt"`
	Items        int                `json:"items"`
	Trials       int                `json:"trials"`
	Seed         int64              `json:"seed"`
	HistorySize  int                `json:"historySize"`
	HistoryTotal int                `json:"historyTotal"`
	Skipped      int                `json:"skipped"`
	Mean         float64            `json:"mean"`
	Percentiles  map[string]float64 `json:"percentiles"`
	Positions    []jsonPosition     `json:"positions,omitempty"`
	Histogram    []jsonBin          `json:"histogram,omitempty"`
	Outcomes     []float64          `json:"outcomes,omitempty"`
}

type jsonPosition struct {
	Position    int                `json:"position"`
	Percentiles map[string]float64 `json:"percentiles"`
}

type jsonBin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// WriteJSON writes one JSON object per report, newline separated.
func WriteJSON(w io.Writer, reports []Report, includeOutcomes bool) error {
	enc := json.NewEncoder(w)
	for _, r := range reports {
		if err := enc.Encode(toJSON(r, includeOutcomes)); err != nil {
			return fmt.Errorf("encode report %q: %w", r.Scenario, err)
		}
	}
	return nil
}

func toJSON(r Report, includeOutcomes bool) jsonReport {
	res := r.Result
	out := jsonReport{
		RunID:        r.RunID,
		Scenario:     r.Scenario,
		Adapter:      r.Adapter,
		GeneratedAt:  r.GeneratedAt,
		Items:        res.Items,
		Trials:       res.Trials,
		Seed:         res.Seed,
		HistorySize:  r.History.Size,
		HistoryTotal: r.History.Total,
		Skipped:      r.History.Skipped,
		Mean:         res.Mean(),
		Percentiles:  labelled(res.Percentiles),
	}

	for _, pos := range res.Positions {
		out.Positions = append(out.Positions, jsonPosition{
			Position:    pos.Position,
			Percentiles: labelled(pos.Percentiles),
		})
	}
	for _, b := range r.Histogram {
		out.Histogram = append(out.Histogram, jsonBin(b))
	}
	if includeOutcomes {
		out.Outcomes = res.Outcomes
	}
	return out
}

// labelled re-keys a percentile map by its display label ("P85").
func labelled(m map[float64]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for p, v := range m {
		out[forecast.FormatPercentile(p)] = v
	}
	return out
}

// formatValue rounds to two decimals and drops trailing zeros.
func formatValue(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
