// Package adapters provides cyclecast input connectors that read historical
// cycle times from local sources and normalize them into a Sample.
//
// Each adapter implements the Adapter interface. Available adapters include:
//   - CSVAdapter: a column of a CSV export (first numeric column by default)
//   - JSONAdapter: values or start/end timestamps selected with gjson paths
//   - InlineAdapter: a comma-separated list given on the command line
//
// Adapters only read and shape data. Validation of the durations themselves
// (finite, non-negative) is left to forecast.Build so that the error names the
// offending position.
package adapters

import (
	"context"
	"io"
	"os"
)

// Sample is the set of durations an adapter collected, in source order.
type Sample struct {
	Values []float64

	// Skipped counts empty or null entries that were dropped.
	Skipped int
}

// Adapter is the interface that all cyclecast adapters must implement.
//
// The Collect() call is synchronous and should respect context cancellation.
type Adapter interface {
	// Collect reads the source and returns the durations it holds.
	Collect(ctx context.Context) (*Sample, error)

	// Name returns a short, unique identifier for the adapter.
	// Example: "csv", "json", "inline".
	Name() string
}

// openSource opens path, treating "-" as standard input.
func openSource(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}
