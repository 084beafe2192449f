package adapters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// JSONAdapter reads cycle times from a JSON document using gjson path expressions.
//
// It supports two shapes:
//   - ValuePath selects the durations directly, e.g. "items.#.cycleTime".
//   - StartPath and EndPath select start and finish timestamps per item,
//     e.g. "items.#.startedAt" and "items.#.doneAt"; the duration is
//     (end - start) expressed in Unit.
//
// Null entries (and items missing either timestamp) are skipped.
//
// Example configuration for a tracker export:
//
//	adapter := &JSONAdapter{
//	    Path:            "export.json",
//	    StartPath:       "issues.#.started",
//	    EndPath:         "issues.#.resolved",
//	    TimestampFormat: "rfc3339",
//	}
type JSONAdapter struct {
	// Path is the file to read; "-" reads standard input. Ignored when Reader is set.
	Path string

	// Reader is an optional source used instead of Path.
	Reader io.Reader

	// ValuePath is the gjson path to the durations.
	ValuePath string

	// StartPath and EndPath are gjson paths to per-item timestamps.
	// Both must return the same number of elements.
	StartPath string
	EndPath   string

	// TimestampFormat specifies how to parse timestamps:
	//   "rfc3339"    - RFC3339 strings (default)
	//   "date"       - calendar dates, 2006-01-02
	//   "unix"       - Unix seconds (float or int)
	//   "unix_milli" - Unix milliseconds (float or int)
	TimestampFormat string

	// Unit is the time-unit durations are expressed in. Defaults to 24h (days).
	Unit time.Duration
}

func (j *JSONAdapter) Name() string { return "json" }

// Collect implements Adapter.
func (j *JSONAdapter) Collect(ctx context.Context) (*Sample, error) {
	if err := j.ValidateConfig(); err != nil {
		return nil, fmt.Errorf("json adapter: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src := j.Reader
	if src == nil {
		f, err := openSource(j.Path)
		if err != nil {
			return nil, fmt.Errorf("open json: %w", err)
		}
		defer f.Close()
		src = f
	}

	body, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.New("read json: document is not valid JSON")
	}

	if j.ValuePath != "" {
		return j.collectValues(body)
	}
	return j.collectSpans(body)
}

func (j *JSONAdapter) collectValues(body []byte) (*Sample, error) {
	values := gjson.GetBytes(body, j.ValuePath)
	if !values.Exists() {
		return nil, fmt.Errorf("value path %q not found in document", j.ValuePath)
	}

	sample := &Sample{}
	for i, v := range values.Array() {
		switch v.Type {
		case gjson.Null:
			sample.Skipped++
		case gjson.Number:
			sample.Values = append(sample.Values, v.Float())
		case gjson.String:
			if v.Str == "" {
				sample.Skipped++
				continue
			}
			f, err := strconv.ParseFloat(v.Str, 64)
			if err != nil {
				return nil, fmt.Errorf("value[%d]: %q is not a number", i, v.Str)
			}
			sample.Values = append(sample.Values, f)
		default:
			return nil, fmt.Errorf("value[%d]: unexpected %s", i, v.Type)
		}
	}
	return sample, nil
}

func (j *JSONAdapter) collectSpans(body []byte) (*Sample, error) {
	starts := gjson.GetBytes(body, j.StartPath)
	ends := gjson.GetBytes(body, j.EndPath)

	if !starts.Exists() {
		return nil, fmt.Errorf("start path %q not found in document", j.StartPath)
	}
	if !ends.Exists() {
		return nil, fmt.Errorf("end path %q not found in document", j.EndPath)
	}

	startArray := starts.Array()
	endArray := ends.Array()

	if len(startArray) != len(endArray) {
		return nil, fmt.Errorf("start count (%d) != end count (%d)", len(startArray), len(endArray))
	}

	unit := j.Unit
	if unit <= 0 {
		unit = 24 * time.Hour
	}

	sample := &Sample{Values: make([]float64, 0, len(startArray))}
	for i := range startArray {
		if isBlank(startArray[i]) || isBlank(endArray[i]) {
			sample.Skipped++
			continue
		}

		start, err := j.parseTimestamp(startArray[i])
		if err != nil {
			return nil, fmt.Errorf("parse start[%d]: %w", i, err)
		}
		end, err := j.parseTimestamp(endArray[i])
		if err != nil {
			return nil, fmt.Errorf("parse end[%d]: %w", i, err)
		}

		sample.Values = append(sample.Values, float64(end.Sub(start))/float64(unit))
	}
	return sample, nil
}

func isBlank(v gjson.Result) bool {
	return v.Type == gjson.Null || (v.Type == gjson.String && v.Str == "")
}

// parseTimestamp parses a timestamp according to the configured format
func (j *JSONAdapter) parseTimestamp(value gjson.Result) (time.Time, error) {
	switch j.TimestampFormat {
	case "", "rfc3339":
		return time.Parse(time.RFC3339, value.String())

	case "date":
		return time.Parse(time.DateOnly, value.String())

	case "unix":
		// Unix seconds (supports both int and float)
		sec, err := epochValue(value)
		if err != nil {
			return time.Time{}, err
		}
		return time.Unix(int64(sec), 0).UTC(), nil

	case "unix_milli":
		ms, err := epochValue(value)
		if err != nil {
			return time.Time{}, err
		}
		return time.UnixMilli(int64(ms)).UTC(), nil

	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp format: %s", j.TimestampFormat)
	}
}

// epochValue reads a numeric epoch from a JSON number or numeric string.
// gjson's Float() maps anything else to 0 or 1, which would read as 1970.
func epochValue(value gjson.Result) (float64, error) {
	switch value.Type {
	case gjson.Number:
		return value.Num, nil
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(value.Str), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a unix timestamp", value.Str)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("unexpected %s for a unix timestamp", value.Type)
	}
}

// ValidateConfig checks if the adapter configuration is valid
func (j *JSONAdapter) ValidateConfig() error {
	if j.Reader == nil && j.Path == "" {
		return errors.New("path is required")
	}

	hasSpan := j.StartPath != "" || j.EndPath != ""
	switch {
	case j.ValuePath == "" && !hasSpan:
		return errors.New("valuePath or startPath/endPath is required")
	case j.ValuePath != "" && hasSpan:
		return errors.New("valuePath cannot be combined with startPath/endPath")
	case hasSpan && (j.StartPath == "" || j.EndPath == ""):
		return errors.New("startPath and endPath must be set together")
	}

	validFormats := map[string]bool{
		"":           true,
		"rfc3339":    true,
		"date":       true,
		"unix":       true,
		"unix_milli": true,
	}
	if !validFormats[j.TimestampFormat] {
		return fmt.Errorf("invalid timestampFormat: %s (must be rfc3339, date, unix, or unix_milli)", j.TimestampFormat)
	}

	return nil
}
