// Package main implements the forecast pipeline orchestration.
//
// This file contains the Forecaster type which orchestrates one forecaster run:
//
//	collect → buildHistory → simulate → report
//
// The history source is read once. Every scenario then builds its own history
// window (most recent HistoryLimit cycle times) and runs an independent Monte
// Carlo simulation tagged with a fresh run ID.
//
// The pipeline is instrumented with Prometheus metrics tracking the duration
// of each stage (collect, simulate) and any errors encountered during execution.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/HatiCode/cyclecast/cmd/forecaster/config"
	"github.com/HatiCode/cyclecast/cmd/forecaster/metrics"
	"github.com/HatiCode/cyclecast/cmd/forecaster/report"
	"github.com/HatiCode/cyclecast/pkg/adapters"
	"github.com/HatiCode/cyclecast/pkg/forecast"
)

// Forecaster orchestrates one run: collect → build history → simulate → report.
type Forecaster struct {
	adapter       adapters.Adapter
	histogramBins int
	logger        *slog.Logger
	metrics       *metrics.Metrics
	now           func() time.Time
}

// New creates a new Forecaster.
func New(
	adapter adapters.Adapter,
	histogramBins int,
	logger *slog.Logger,
	metrics *metrics.Metrics,
) *Forecaster {
	if logger == nil {
		logger = slog.Default()
	}

	return &Forecaster{
		adapter:       adapter,
		histogramBins: histogramBins,
		logger:        logger,
		metrics:       metrics,
		now:           time.Now,
	}
}

// Run collects the history once and simulates every scenario against it.
// It stops at the first failing scenario.
func (f *Forecaster) Run(ctx context.Context, scenarios []config.Scenario) ([]report.Report, error) {
	start := time.Now()

	sample, err := f.collect(ctx)
	if err != nil {
		f.recordError("adapter", "collect_failed")
		return nil, fmt.Errorf("collect: %w", err)
	}

	reports := make([]report.Report, 0, len(scenarios))
	for _, sc := range scenarios {
		r, err := f.Tick(ctx, sample, sc)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
		}
		reports = append(reports, r)
	}

	f.logger.Info("forecast run complete",
		"adapter", f.adapter.Name(),
		"scenarios", len(reports),
		"total_ms", time.Since(start).Milliseconds(),
	)

	return reports, nil
}

// Tick runs one scenario against an already collected sample.
// Exported for testing purposes.
func (f *Forecaster) Tick(ctx context.Context, sample *adapters.Sample, sc config.Scenario) (report.Report, error) {
	runID := uuid.NewString()
	log := f.logger.With("run_id", runID, "scenario", sc.Name)

	history, err := f.buildHistory(sample, sc, log)
	if err != nil {
		f.recordError("history", historyReason(err))
		return report.Report{}, fmt.Errorf("build history: %w", err)
	}

	result, simulateDuration, err := f.simulate(ctx, history, sc, log)
	if err != nil {
		f.recordError("simulate", simulateReason(err))
		return report.Report{}, fmt.Errorf("simulate: %w", err)
	}

	if f.metrics != nil {
		f.metrics.SetHistorySize(history.Len())
		for p, v := range result.Percentiles {
			f.metrics.SetForecastValue(sc.Name, forecast.FormatPercentile(p), v)
		}
	}

	attrs := []any{
		"items", result.Items,
		"trials", result.Trials,
		"seed", result.Seed,
		"simulate_ms", simulateDuration.Milliseconds(),
	}
	for _, p := range result.Levels() {
		attrs = append(attrs, forecast.FormatPercentile(p), result.Percentiles[p])
	}
	log.Info("scenario complete", attrs...)

	return report.Report{
		RunID:       runID,
		Scenario:    sc.Name,
		Adapter:     f.adapter.Name(),
		GeneratedAt: f.now(),
		History: report.History{
			Size:    history.Len(),
			Total:   history.Total(),
			Skipped: sample.Skipped,
			Min:     history.Min(),
			Max:     history.Max(),
			Mean:    history.Mean(),
		},
		Result:    result,
		Histogram: forecast.Histogram(result.Outcomes, f.histogramBins),
	}, nil
}

// collect reads historical cycle times from the adapter.
func (f *Forecaster) collect(ctx context.Context) (*adapters.Sample, error) {
	start := time.Now()

	sample, err := f.adapter.Collect(ctx)
	if err != nil {
		return nil, err
	}

	duration := time.Since(start)

	if f.metrics != nil {
		f.metrics.RecordCollect(duration.Seconds())
	}

	f.logger.Info("collected history",
		"adapter", f.adapter.Name(),
		"values", len(sample.Values),
		"skipped", sample.Skipped,
		"duration_ms", duration.Milliseconds(),
	)

	return sample, nil
}

// buildHistory validates the sample and keeps the scenario's history window.
func (f *Forecaster) buildHistory(sample *adapters.Sample, sc config.Scenario, log *slog.Logger) (forecast.History, error) {
	var opts []forecast.HistoryOption
	if sc.HistoryLimit > 0 {
		opts = append(opts, forecast.WithLimit(sc.HistoryLimit))
	}

	history, err := forecast.Build(sample.Values, opts...)
	if err != nil {
		return forecast.History{}, err
	}

	log.Debug("built history",
		"size", history.Len(),
		"total", history.Total(),
		"limit", sc.HistoryLimit,
	)
	return history, nil
}

// simulate runs the Monte Carlo trials for one scenario.
func (f *Forecaster) simulate(ctx context.Context, history forecast.History, sc config.Scenario, log *slog.Logger) (forecast.Result, time.Duration, error) {
	start := time.Now()

	result, err := forecast.Forecast(ctx, history, sc.ForecastConfig())
	if err != nil {
		return forecast.Result{}, 0, err
	}

	duration := time.Since(start)

	if f.metrics != nil {
		f.metrics.RecordSimulation(sc.Name, duration.Seconds(), result.Trials, result.Items)
	}

	log.Debug("simulated trials",
		"trials", result.Trials,
		"workers", sc.Workers,
		"duration_ms", duration.Milliseconds(),
	)

	return result, duration, nil
}

func (f *Forecaster) recordError(component, reason string) {
	if f.metrics != nil {
		f.metrics.RecordError(component, reason)
	}
}

func historyReason(err error) string {
	if errors.Is(err, forecast.ErrEmptyHistory) {
		return "empty"
	}
	return "invalid_value"
}

func simulateReason(err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	return "invalid_config"
}
