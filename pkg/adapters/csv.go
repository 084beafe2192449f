package adapters

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CSVAdapter reads cycle times from one column of a CSV export.
//
// The first row is a header unless NoHeader is set. When Column is empty the
// first column whose non-missing cells are all numeric is used, which matches
// how spreadsheet exports usually carry an ID or title column before the
// duration column. Missing cells (empty, NA, NaN, null) are skipped.
type CSVAdapter struct {
	// Path is the file to read; "-" reads standard input. Ignored when Reader is set.
	Path string

	// Reader is an optional source used instead of Path.
	Reader io.Reader

	// Column selects the column by header name or 1-based index.
	Column string

	// Comma is the field delimiter. Defaults to ','.
	Comma rune

	// NoHeader treats the first row as data.
	NoHeader bool
}

func (c *CSVAdapter) Name() string { return "csv" }

// Collect implements Adapter.
func (c *CSVAdapter) Collect(ctx context.Context) (*Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src := c.Reader
	if src == nil {
		if c.Path == "" {
			return nil, errors.New("csv adapter: path is required")
		}
		f, err := openSource(c.Path)
		if err != nil {
			return nil, fmt.Errorf("open csv: %w", err)
		}
		defer f.Close()
		src = f
	}

	r := csv.NewReader(src)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	if c.Comma != 0 {
		r.Comma = c.Comma
	}

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	// Spreadsheet "CSV UTF-8" exports start with a byte order mark.
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}

	var header []string
	rows := records
	if !c.NoHeader && len(records) > 0 {
		header = records[0]
		rows = records[1:]
	}
	if len(rows) == 0 {
		return &Sample{}, nil
	}

	col, err := c.resolveColumn(header, rows)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sample := &Sample{Values: make([]float64, 0, len(rows))}
	for i, row := range rows {
		cell := cellAt(row, col)
		if isMissing(cell) {
			sample.Skipped++
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, fmt.Errorf("csv row %d column %d: %q is not a number", c.rowNumber(i), col+1, cell)
		}
		sample.Values = append(sample.Values, v)
	}

	return sample, nil
}

// resolveColumn returns the zero-based column to read.
func (c *CSVAdapter) resolveColumn(header []string, rows [][]string) (int, error) {
	if c.Column != "" {
		want := strings.TrimSpace(c.Column)
		for i, name := range header {
			if strings.EqualFold(strings.TrimSpace(name), want) {
				return i, nil
			}
		}
		if idx, err := strconv.Atoi(want); err == nil {
			if idx < 1 {
				return 0, fmt.Errorf("csv column index %d must be >= 1", idx)
			}
			return idx - 1, nil
		}
		return 0, fmt.Errorf("csv column %q not found in header", c.Column)
	}

	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}

	for col := 0; col < width; col++ {
		if isNumericColumn(rows, col) {
			return col, nil
		}
	}
	return 0, errors.New("no numeric columns found")
}

func (c *CSVAdapter) rowNumber(i int) int {
	if c.NoHeader {
		return i + 1
	}
	return i + 2
}

func isNumericColumn(rows [][]string, col int) bool {
	seen := false
	for _, row := range rows {
		cell := cellAt(row, col)
		if isMissing(cell) {
			continue
		}
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			return false
		}
		seen = true
	}
	return seen
}

func cellAt(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

func isMissing(cell string) bool {
	switch strings.ToLower(cell) {
	case "", "na", "n/a", "nan", "null", "none", "#n/a":
		return true
	}
	return false
}
