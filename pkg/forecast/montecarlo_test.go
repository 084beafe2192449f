package forecast

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustBuild(t *testing.T, raw []float64, opts ...HistoryOption) History {
	t.Helper()
	h, err := Build(raw, opts...)
	if err != nil {
		t.Fatalf("Build(%v) error = %v", raw, err)
	}
	return h
}

func TestForecast_ExampleScenario(t *testing.T) {
	h := mustBuild(t, []float64{1, 2, 3, 4, 5})

	for seed := int64(1); seed <= 5; seed++ {
		res, err := Forecast(context.Background(), h, Config{
			Trials:      10000,
			Items:       10,
			Percentiles: []float64{50, 85},
			Seed:        seed,
		})
		if err != nil {
			t.Fatalf("Forecast() error = %v", err)
		}

		p50, p85 := res.Percentiles[50], res.Percentiles[85]
		if p50 < 5 || p85 > 50 {
			t.Errorf("seed %d: P50=%v P85=%v, want within [5, 50]", seed, p50, p85)
		}
		if p50 > p85 {
			t.Errorf("seed %d: P50=%v > P85=%v", seed, p50, p85)
		}
		if len(res.Outcomes) != 10000 {
			t.Errorf("seed %d: len(Outcomes) = %d, want 10000", seed, len(res.Outcomes))
		}
	}
}

func TestForecast_Properties(t *testing.T) {
	tests := []struct {
		name string
		raw  []float64
		cfg  Config
	}{
		{
			name: "default levels",
			raw:  []float64{2, 3, 5, 8, 13},
			cfg:  Config{Trials: 2000, Items: 7, Percentiles: DefaultPercentiles, Seed: 11},
		},
		{
			name: "fractional levels",
			raw:  []float64{0.5, 1.5, 2.5},
			cfg:  Config{Trials: 999, Items: 3, Percentiles: []float64{0.1, 33.3, 99.9, 100}, Seed: 12},
		},
		{
			name: "parallel workers",
			raw:  []float64{1, 1, 2, 3, 5, 8},
			cfg:  Config{Trials: 5001, Items: 12, Percentiles: []float64{50, 80, 90}, Seed: 13, Workers: 4},
		},
		{
			name: "no levels",
			raw:  []float64{1, 2},
			cfg:  Config{Trials: 10, Items: 2, Seed: 14},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := mustBuild(t, tt.raw)
			res, err := Forecast(context.Background(), h, tt.cfg)
			if err != nil {
				t.Fatalf("Forecast() error = %v", err)
			}

			if len(res.Percentiles) != len(tt.cfg.Percentiles) {
				t.Errorf("len(Percentiles) = %d, want %d", len(res.Percentiles), len(tt.cfg.Percentiles))
			}
			if len(res.Outcomes) != tt.cfg.Trials {
				t.Errorf("len(Outcomes) = %d, want %d", len(res.Outcomes), tt.cfg.Trials)
			}

			lo := h.Min() * float64(tt.cfg.Items)
			hi := h.Max() * float64(tt.cfg.Items)
			for _, v := range res.Outcomes {
				if v < lo || v > hi {
					t.Fatalf("outcome %v outside [%v, %v]", v, lo, hi)
				}
			}

			levels := res.Levels()
			for i, p := range levels {
				if res.Percentiles[p] < 0 {
					t.Errorf("P%v = %v, want >= 0", p, res.Percentiles[p])
				}
				if i > 0 && res.Percentiles[levels[i-1]] > res.Percentiles[p] {
					t.Errorf("P%v = %v > P%v = %v", levels[i-1], res.Percentiles[levels[i-1]], p, res.Percentiles[p])
				}
			}

			for i := 1; i < len(res.Sorted); i++ {
				if res.Sorted[i-1] > res.Sorted[i] {
					t.Fatalf("Sorted not ascending at %d", i)
				}
			}
		})
	}
}

func TestForecast_EdgeCases(t *testing.T) {
	t.Run("zero items", func(t *testing.T) {
		h := mustBuild(t, []float64{3, 9, 27})
		res, err := Forecast(context.Background(), h, Config{Trials: 500, Items: 0, Percentiles: DefaultPercentiles})
		if err != nil {
			t.Fatalf("Forecast() error = %v", err)
		}
		for p, v := range res.Percentiles {
			if v != 0 {
				t.Errorf("P%v = %v, want 0", p, v)
			}
		}
		for _, v := range res.Outcomes {
			if v != 0 {
				t.Fatalf("outcome = %v, want 0", v)
			}
		}
	})

	t.Run("single trial", func(t *testing.T) {
		h := mustBuild(t, []float64{1, 2, 3, 4})
		res, err := Forecast(context.Background(), h, Config{Trials: 1, Items: 6, Percentiles: []float64{1, 50, 100}, Seed: 3})
		if err != nil {
			t.Fatalf("Forecast() error = %v", err)
		}
		only := res.Outcomes[0]
		for p, v := range res.Percentiles {
			if v != only {
				t.Errorf("P%v = %v, want %v", p, v, only)
			}
		}
	})

	t.Run("single duration history", func(t *testing.T) {
		h := mustBuild(t, []float64{2.5})
		res, err := Forecast(context.Background(), h, Config{Trials: 300, Items: 8, Percentiles: []float64{50, 85, 90}, Workers: 3})
		if err != nil {
			t.Fatalf("Forecast() error = %v", err)
		}
		for _, v := range res.Outcomes {
			if v != 20 {
				t.Fatalf("outcome = %v, want 20", v)
			}
		}
		for p, v := range res.Percentiles {
			if v != 20 {
				t.Errorf("P%v = %v, want 20", p, v)
			}
		}
	})

	t.Run("more workers than trials", func(t *testing.T) {
		h := mustBuild(t, []float64{1, 2})
		res, err := Forecast(context.Background(), h, Config{Trials: 3, Items: 2, Workers: 16, Seed: 5})
		if err != nil {
			t.Fatalf("Forecast() error = %v", err)
		}
		for _, v := range res.Outcomes {
			if v < 2 || v > 4 {
				t.Errorf("outcome = %v, want within [2, 4]", v)
			}
		}
	})
}

func TestForecast_ValidationErrors(t *testing.T) {
	h := mustBuild(t, []float64{1, 2, 3})

	tests := []struct {
		name      string
		cfg       Config
		wantField string
	}{
		{name: "zero trials", cfg: Config{Trials: 0, Items: 1}, wantField: "trials"},
		{name: "negative trials", cfg: Config{Trials: -5, Items: 1}, wantField: "trials"},
		{name: "too many trials", cfg: Config{Trials: MaxTrials + 1, Items: 1}, wantField: "trials"},
		{name: "negative items", cfg: Config{Trials: 10, Items: -1}, wantField: "items"},
		{name: "negative workers", cfg: Config{Trials: 10, Items: 1, Workers: -1}, wantField: "workers"},
		{name: "zero percentile", cfg: Config{Trials: 10, Items: 1, Percentiles: []float64{0}}, wantField: "percentile"},
		{name: "percentile above 100", cfg: Config{Trials: 10, Items: 1, Percentiles: []float64{50, 100.1}}, wantField: "percentile"},
		{name: "NaN percentile", cfg: Config{Trials: 10, Items: 1, Percentiles: []float64{math.NaN()}}, wantField: "percentile"},
		{name: "duplicate percentile", cfg: Config{Trials: 10, Items: 1, Percentiles: []float64{85, 85}}, wantField: "percentile"},
		{name: "positions too large", cfg: Config{Trials: MaxTrials, Items: 51, Positions: true}, wantField: "items"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Forecast(context.Background(), h, tt.cfg)
			var inputErr *InvalidInputError
			if !errors.As(err, &inputErr) {
				t.Fatalf("Forecast() error = %v, want *InvalidInputError", err)
			}
			if inputErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", inputErr.Field, tt.wantField)
			}
			if res.Percentiles != nil || res.Outcomes != nil {
				t.Error("Forecast() returned a partial result alongside an error")
			}
		})
	}
}

func TestForecast_EmptyHistory(t *testing.T) {
	_, err := Forecast(context.Background(), History{}, Config{Trials: 10, Items: 1})
	if !errors.Is(err, ErrEmptyHistory) {
		t.Errorf("Forecast() error = %v, want ErrEmptyHistory", err)
	}
}

func TestForecast_SeedReproducible(t *testing.T) {
	h := mustBuild(t, []float64{1, 3, 4, 7, 10, 2})
	cfg := Config{Trials: 4000, Items: 9, Percentiles: []float64{50, 85}, Seed: 42, Workers: 4, Positions: true}

	first, err := Forecast(context.Background(), h, cfg)
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}
	second, err := Forecast(context.Background(), h, cfg)
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}

	if diff := cmp.Diff(first.Outcomes, second.Outcomes); diff != "" {
		t.Errorf("outcomes differ for the same seed (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first.Percentiles, second.Percentiles); diff != "" {
		t.Errorf("percentiles differ for the same seed (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first.Positions, second.Positions); diff != "" {
		t.Errorf("positions differ for the same seed (-first +second):\n%s", diff)
	}
	if first.Seed != 42 {
		t.Errorf("Seed = %d, want 42", first.Seed)
	}
}

func TestForecast_ReportsGeneratedSeed(t *testing.T) {
	h := mustBuild(t, []float64{1, 2, 3, 4, 5})
	cfg := Config{Trials: 200, Items: 5, Percentiles: []float64{50}}

	first, err := Forecast(context.Background(), h, cfg)
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}
	if first.Seed == 0 {
		t.Fatal("Seed = 0, want a generated seed")
	}

	cfg.Seed = first.Seed
	replay, err := Forecast(context.Background(), h, cfg)
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}
	if diff := cmp.Diff(first.Outcomes, replay.Outcomes); diff != "" {
		t.Errorf("replay with reported seed differs (-first +replay):\n%s", diff)
	}
}

func TestForecast_ShapeAndConvergence(t *testing.T) {
	h := mustBuild(t, []float64{1, 2, 3, 4, 5})
	levels := []float64{50, 85}

	const runs = 50
	p50s := make([]float64, 0, runs)
	for i := 0; i < runs; i++ {
		res, err := Forecast(context.Background(), h, Config{
			Trials:      10000,
			Items:       10,
			Percentiles: levels,
			Seed:        int64(1000 + i),
		})
		if err != nil {
			t.Fatalf("Forecast() error = %v", err)
		}
		if diff := cmp.Diff(levels, res.Levels()); diff != "" {
			t.Fatalf("run %d: levels mismatch (-want +got):\n%s", i, diff)
		}
		p50s = append(p50s, res.Percentiles[50])
	}

	mean := 0.0
	for _, v := range p50s {
		mean += v
	}
	mean /= runs

	// Expected total is 10 * 3 = 30; P50 of 10000 trials barely moves between runs.
	if math.Abs(mean-30) > 1 {
		t.Errorf("mean P50 across runs = %v, want within 1 of 30", mean)
	}
	for i, v := range p50s {
		if math.Abs(v-mean) > 2 {
			t.Errorf("run %d: P50 = %v, more than 2 away from mean %v", i, v, mean)
		}
	}
}

func TestForecast_Canceled(t *testing.T) {
	h := mustBuild(t, []float64{1, 2, 3})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Forecast(ctx, h, Config{Trials: 10000, Items: 100, Percentiles: []float64{50}, Workers: 2})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Forecast() error = %v, want context.Canceled", err)
	}
	if res.Outcomes != nil || res.Percentiles != nil {
		t.Error("Forecast() returned partial outcomes after cancellation")
	}
}

func TestForecast_Positions(t *testing.T) {
	h := mustBuild(t, []float64{1, 2, 3, 4, 5})
	levels := []float64{50, 85}

	res, err := Forecast(context.Background(), h, Config{
		Trials:      3000,
		Items:       6,
		Percentiles: levels,
		Seed:        7,
		Positions:   true,
	})
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}

	if len(res.Positions) != 6 {
		t.Fatalf("len(Positions) = %d, want 6", len(res.Positions))
	}

	for i, pos := range res.Positions {
		if pos.Position != i+1 {
			t.Errorf("Positions[%d].Position = %d, want %d", i, pos.Position, i+1)
		}
		for _, p := range levels {
			v := pos.Percentiles[p]
			if v < float64(pos.Position) || v > 5*float64(pos.Position) {
				t.Errorf("position %d P%v = %v, out of range", pos.Position, p, v)
			}
			if i > 0 && res.Positions[i-1].Percentiles[p] > v {
				t.Errorf("position %d P%v = %v decreased from %v", pos.Position, p, v, res.Positions[i-1].Percentiles[p])
			}
		}
	}

	if diff := cmp.Diff(res.Percentiles, res.Positions[5].Percentiles); diff != "" {
		t.Errorf("last position differs from headline percentiles (-headline +last):\n%s", diff)
	}
}

func TestForecast_PositionsZeroItems(t *testing.T) {
	h := mustBuild(t, []float64{1, 2})
	res, err := Forecast(context.Background(), h, Config{Trials: 10, Items: 0, Positions: true})
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}
	if len(res.Positions) != 0 {
		t.Errorf("len(Positions) = %d, want 0", len(res.Positions))
	}
}

func TestResult_MeanAndLikelihood(t *testing.T) {
	res := Result{
		Outcomes: []float64{4, 1, 3, 2},
		Sorted:   []float64{1, 2, 3, 4},
	}

	if got := res.Mean(); got != 2.5 {
		t.Errorf("Mean() = %v, want 2.5", got)
	}

	tests := []struct {
		within float64
		want   float64
	}{
		{0, 0},
		{1, 0.25},
		{2.5, 0.5},
		{4, 1},
		{10, 1},
	}
	for _, tt := range tests {
		if got := res.Likelihood(tt.within); got != tt.want {
			t.Errorf("Likelihood(%v) = %v, want %v", tt.within, got, tt.want)
		}
	}

	var empty Result
	if empty.Mean() != 0 || empty.Likelihood(5) != 0 {
		t.Error("empty Result should report zero mean and likelihood")
	}
}
