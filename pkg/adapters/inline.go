package adapters

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// InlineAdapter parses durations from a separated list such as "3,5,2.5,8".
// Whitespace around entries is ignored; empty entries are skipped.
type InlineAdapter struct {
	Values string

	// Separator defaults to ",".
	Separator string
}

func (a *InlineAdapter) Name() string { return "inline" }

// Collect implements Adapter.
func (a *InlineAdapter) Collect(ctx context.Context) (*Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(a.Values) == "" {
		return nil, errors.New("inline adapter: values are required")
	}

	sep := a.Separator
	if sep == "" {
		sep = ","
	}

	sample := &Sample{}
	for i, part := range strings.Split(a.Values, sep) {
		part = strings.TrimSpace(part)
		if part == "" {
			sample.Skipped++
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("inline value[%d]: %q is not a number", i, part)
		}
		sample.Values = append(sample.Values, v)
	}
	return sample, nil
}
