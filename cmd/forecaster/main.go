// Command forecaster implements the cyclecast backlog forecaster.
//
// The forecaster answers "how long will the next N backlog items take?" by:
//  1. Collecting historical cycle times from a CSV file, a JSON export, or an inline list
//  2. Keeping the most recent cycle times (the history window)
//  3. Running Monte Carlo trials that each sum N randomly drawn cycle times
//  4. Reporting percentiles of the simulated totals as text or JSON
//
// Usage:
//
//	forecaster -input=done-items.csv -items=25 -percentiles=p50,p85
//	forecaster -durations=2,3,5,3,8 -items=10 -format=json
//	forecaster -input=export.json -adapter-opt=valuePath=issues.#.cycleTime
//	forecaster -input=done-items.csv -config-file=scenarios.yaml
//
// Environment variables:
//
//	INPUT          - Path to the history file (- for stdin)
//	DURATIONS      - Comma-separated cycle times
//	ADAPTER        - Adapter kind: csv, json, inline (inferred when empty)
//	ADAPTER_*      - Adapter options, e.g. ADAPTER_COLUMN, ADAPTER_VALUE_PATH
//	ITEMS          - Backlog items to forecast (default: 10)
//	TRIALS         - Monte Carlo trials (default: 10000)
//	PERCENTILES    - Percentiles to report (default: p50,p85)
//	HISTORY_LIMIT  - Most recent cycle times to use, 0 = all (default: 1000)
//	SEED           - Random seed, 0 = time based
//	WORKERS        - Goroutines sharing the trials (default: 4)
//	FORMAT         - Output format: text, json (default: text)
//	METRICS_FILE   - Prometheus textfile to write after the run
//	CONFIG_FILE    - YAML file with several scenarios
//	LOG_LEVEL      - Logging level: debug, info, warn, error (default: info)
//	LOG_FORMAT     - Logging format: text, json (default: text)
//
// Exit status is 0 on success, 2 for invalid input or configuration, and 1 for
// any other failure.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/HatiCode/cyclecast/cmd/forecaster/config"
	"github.com/HatiCode/cyclecast/cmd/forecaster/logger"
	"github.com/HatiCode/cyclecast/cmd/forecaster/metrics"
	"github.com/HatiCode/cyclecast/cmd/forecaster/report"
	"github.com/HatiCode/cyclecast/pkg/adapters"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	cfg := config.ParseFlags()

	if cfg.Explain {
		fmt.Fprint(os.Stdout, explanation)
		return
	}

	logger := logger.New(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := run(ctx, cfg, os.Stdout, logger)
	stop()
	os.Exit(code)
}

// run executes one forecaster invocation and returns the process exit code.
func run(ctx context.Context, cfg *config.Config, stdout io.Writer, logger *slog.Logger) int {
	logger.Info("starting cyclecast forecaster",
		"version", version,
		"adapter", cfg.Adapter,
		"format", cfg.Format,
	)

	scenarios, err := config.LoadScenarios(cfg)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return exitCode(err)
	}

	adapter, err := adapters.New(cfg.Adapter, cfg.AdapterConfig)
	if err != nil {
		logger.Error("invalid adapter configuration", "adapter", cfg.Adapter, "error", err)
		return 2
	}

	m := metrics.New(adapter.Name())
	defer writeMetrics(cfg.MetricsFile, m, logger)

	f := New(adapter, cfg.HistogramBins, logger, m)

	reports, err := f.Run(ctx, scenarios)
	if err != nil {
		logger.Error("forecast failed", "error", err)
		return exitCode(err)
	}

	if err := report.Write(stdout, reports, report.Options{
		Format:          cfg.Format,
		IncludeOutcomes: cfg.IncludeOutcomes,
	}); err != nil {
		m.RecordError("report", "write_failed")
		logger.Error("render report failed", "error", fmt.Errorf("render: %w", err))
		return 1
	}

	return 0
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	if config.IsInvalid(err) {
		return 2
	}
	return 1
}

func writeMetrics(path string, m *metrics.Metrics, logger *slog.Logger) {
	if path == "" {
		return
	}
	if err := m.WriteTextfile(path); err != nil {
		logger.Error("failed to write metrics textfile", "path", path, "error", err)
		return
	}
	logger.Debug("wrote metrics textfile", "path", path)
}

const explanation = `How the forecast works

The forecaster estimates how long a batch of backlog items will take, using
how long finished items took in the past (their cycle times).

1. History. Cycle times are read from the input. Empty cells are skipped.
   Only the most recent -history-limit values are kept (0 keeps all).

2. One trial. To simulate finishing N items, N cycle times are drawn at
   random from the history, with replacement, and added up. Every past
   cycle time is equally likely to be drawn on every draw.

3. Many trials. This is repeated -trials times (10000 by default), which
   gives a distribution of possible totals rather than a single guess.

4. Percentiles. The totals are sorted and read at the requested
   percentiles using the nearest-rank method. P85 = 36 means that 85% of
   the simulated trials finished within 36 (in the unit of the input).

Items are assumed to be worked one after another and to resemble the items
in the history. Use a fixed -seed to reproduce a run exactly.
`
