package realloc

import (
	"fmt"
	"math"
)

const convergence = 1e-12

// CapProportional caps subset at total row by row. The excess removed from
// capped rows is handed to rows that still have room, in proportion to their
// current subset values, until no row exceeds its total.
//
// The subset sum is conserved only when it does not exceed the total sum.
// Otherwise every row converges to its total and the remainder is dropped.
// The remainder is also dropped when all rows with room hold zero, since
// they have no proportional share.
func CapProportional(subset, total []float64) ([]float64, error) {
	if err := lengthsMustMatch(len(subset), len(total)); err != nil {
		return nil, err
	}

	out := make([]float64, len(subset))
	magnitude := 0.0
	for i := range subset {
		if subset[i] < 0 || total[i] < 0 {
			return nil, fmt.Errorf("%w: row %d", ErrNegativeInput, i)
		}

		out[i] = subset[i]
		magnitude += subset[i]
	}

	for {
		excess := 0.0
		for i := range out {
			if out[i] > total[i] {
				excess += out[i] - total[i]
				out[i] = total[i]
			}
		}

		if excess <= convergence*magnitude {
			return out, nil
		}

		receiving := 0.0
		for i := range out {
			if out[i] < total[i] {
				receiving += out[i]
			}
		}

		if receiving == 0 || math.IsInf(receiving, 0) {
			return out, nil
		}

		for i := range out {
			if out[i] < total[i] {
				out[i] += excess * out[i] / receiving
			}
		}
	}
}
