package forecast

import (
	"context"
	"math/rand/v2"
	"slices"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// MaxTrials bounds the outcome distribution held in memory.
	MaxTrials = 1_000_000

	// MaxPositionCells bounds Trials*Items when per-position totals are recorded.
	MaxPositionCells = 50_000_000

	// cancelCheckEvery is how many trials a worker runs between context checks.
	cancelCheckEvery = 256
)

// Config describes one simulation request. It is read-only during Forecast.
type Config struct {
	// Trials is the number of simulated completions (T). Must be in [1, MaxTrials].
	Trials int

	// Items is the number of backlog items to complete per trial (N). Must be >= 0;
	// zero yields an all-zero distribution.
	Items int

	// Percentiles are the levels to report, each in (0, 100], without duplicates.
	Percentiles []float64

	// Seed makes a run reproducible. Zero picks a time-based seed, which is
	// reported back in Result.Seed.
	Seed int64

	// Workers splits trials across goroutines. Zero means one worker.
	// Results are reproducible for the same Seed and Workers.
	Workers int

	// Positions records the running total after each item so that percentiles
	// can be reported per backlog position.
	Positions bool
}

// Validate checks the configuration without running anything.
func (c Config) Validate() error {
	if c.Trials < 1 {
		return invalidField("trials", c.Trials, "must be > 0")
	}
	if c.Trials > MaxTrials {
		return invalidField("trials", c.Trials, "must be <= 1000000")
	}
	if c.Items < 0 {
		return invalidField("items", c.Items, "must be >= 0")
	}
	if c.Workers < 0 {
		return invalidField("workers", c.Workers, "must be >= 0")
	}
	if c.Positions && c.Items > MaxPositionCells/c.Trials {
		return invalidField("items", c.Items, "trials*items too large to record per position")
	}

	seen := make(map[float64]bool, len(c.Percentiles))
	for i, p := range c.Percentiles {
		if err := validatePercentile(p, i); err != nil {
			return err
		}
		if seen[p] {
			return invalidElement("percentile", i, p, "duplicate")
		}
		seen[p] = true
	}
	return nil
}

func (c Config) workers() int {
	if c.Workers <= 0 {
		return 1
	}
	if c.Workers > c.Trials {
		return c.Trials
	}
	return c.Workers
}

// Result is the outcome of one Forecast call.
type Result struct {
	// Percentiles maps each requested level to its nearest-rank total.
	Percentiles map[float64]float64

	// Outcomes holds one simulated total per trial, in trial order.
	Outcomes []float64

	// Sorted holds Outcomes in ascending order.
	Sorted []float64

	// Positions holds per-position percentiles when Config.Positions is set.
	Positions []PositionForecast

	Trials int
	Items  int
	Seed   int64
}

// Levels returns the reported percentile levels in ascending order.
func (r Result) Levels() []float64 {
	levels := make([]float64, 0, len(r.Percentiles))
	for p := range r.Percentiles {
		levels = append(levels, p)
	}
	slices.Sort(levels)
	return levels
}

// Mean returns the average simulated total.
func (r Result) Mean() float64 {
	if len(r.Outcomes) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range r.Outcomes {
		sum += v
	}
	return sum / float64(len(r.Outcomes))
}

// Likelihood returns the share of trials that finished within the given total.
func (r Result) Likelihood(within float64) float64 {
	if len(r.Sorted) == 0 {
		return 0
	}
	n := sort.Search(len(r.Sorted), func(i int) bool { return r.Sorted[i] > within })
	return float64(n) / float64(len(r.Sorted))
}

// Forecast simulates cfg.Trials completions of cfg.Items items by drawing
// durations from h uniformly with replacement, then reports nearest-rank
// percentiles of the simulated totals.
//
// All validation happens before any simulation. If ctx is canceled while trials
// are running, the partial distribution is discarded and ctx.Err() is returned.
func Forecast(ctx context.Context, h History, cfg Config) (Result, error) {
	if h.Len() == 0 {
		return Result{}, ErrEmptyHistory
	}
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	outcomes := make([]float64, cfg.Trials)

	var columns [][]float64
	if cfg.Positions && cfg.Items > 0 {
		columns = make([][]float64, cfg.Items)
		for i := range columns {
			columns[i] = make([]float64, cfg.Trials)
		}
	}

	workers := cfg.workers()
	chunk := (cfg.Trials + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := min(start+chunk, cfg.Trials)
		if start >= end {
			break
		}
		rng := rand.New(rand.NewPCG(uint64(seed), uint64(w)))
		g.Go(func() error {
			return runTrials(gctx, rng, h.durations, cfg.Items, outcomes, columns, start, end)
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	sorted := make([]float64, len(outcomes))
	copy(sorted, outcomes)
	sort.Float64s(sorted)

	res := Result{
		Percentiles: percentilesOf(sorted, cfg.Percentiles),
		Outcomes:    outcomes,
		Sorted:      sorted,
		Trials:      cfg.Trials,
		Items:       cfg.Items,
		Seed:        seed,
	}
	if cfg.Positions {
		res.Positions = positionForecasts(columns, cfg.Percentiles)
	}
	return res, nil
}

// runTrials fills outcomes[start:end]. Each trial keeps its own running total;
// workers write to disjoint index ranges.
func runTrials(ctx context.Context, rng *rand.Rand, durations []float64, items int, outcomes []float64, columns [][]float64, start, end int) error {
	n := len(durations)
	for i := start; i < end; i++ {
		if (i-start)%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		total := 0.0
		for j := 0; j < items; j++ {
			total += durations[rng.IntN(n)]
			if columns != nil {
				columns[j][i] = total
			}
		}
		outcomes[i] = total
	}
	return nil
}

func percentilesOf(sorted []float64, levels []float64) map[float64]float64 {
	out := make(map[float64]float64, len(levels))
	for _, p := range levels {
		out[p] = NearestRank(sorted, p)
	}
	return out
}
