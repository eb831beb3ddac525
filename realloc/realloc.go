// Package realloc moves units between rows so that row-wise constraints
// between related columns hold, while keeping column totals where feasible.
package realloc

import (
	"errors"
	"fmt"

	"github.com/sarchlab/cohortsim/integerize"
)

var (
	// ErrInconsistentConstraint is returned when rows exceed their totals
	// but no row can absorb the excess. It points at inconsistent rates or
	// controls upstream.
	ErrInconsistentConstraint = errors.New(
		"cannot reallocate: inconsistent rates or controls")

	// ErrNegativeInput is returned when a column holds a negative value.
	ErrNegativeInput = integerize.ErrNegativeInput
)

func lengthsMustMatch(subset, total int) error {
	if subset != total {
		return fmt.Errorf("column length mismatch: %d vs %d", subset, total)
	}

	return nil
}

func intsMustBeNonNegative(name string, col []int64) error {
	for i, v := range col {
		if v < 0 {
			return fmt.Errorf("%w: %s[%d] = %d", ErrNegativeInput, name, i, v)
		}
	}

	return nil
}
