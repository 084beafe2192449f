package forecast

import (
	"errors"
	"fmt"

	"github.com/containerd/errdefs"
)

// ErrEmptyHistory is returned when there are no historical durations to resample from.
var ErrEmptyHistory = errors.New("history is empty")

// InvalidInputError reports an out-of-range or malformed parameter.
// Index is -1 when the error is not tied to a position in a sequence.
type InvalidInputError struct {
	Field  string
	Index  int
	Value  any
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("invalid %s[%d] = %v: %s", e.Field, e.Index, e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid %s = %v: %s", e.Field, e.Value, e.Reason)
}

// Unwrap lets callers classify the error with errdefs.IsInvalidArgument.
func (e *InvalidInputError) Unwrap() error {
	return errdefs.ErrInvalidArgument
}

func invalidField(field string, value any, reason string) error {
	return &InvalidInputError{Field: field, Index: -1, Value: value, Reason: reason}
}

func invalidElement(field string, index int, value any, reason string) error {
	return &InvalidInputError{Field: field, Index: index, Value: value, Reason: reason}
}
