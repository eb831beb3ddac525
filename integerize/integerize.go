// Package integerize converts fractional estimates into non-negative integers
// that add up exactly to a control total.
package integerize

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

var (
	// ErrInvalidControl is returned when the control total is not an
	// integer, or cannot be derived from the input values.
	ErrInvalidControl = errors.New("invalid control")

	// ErrNegativeInput is returned when a value or the control is negative.
	ErrNegativeInput = errors.New("negative input")

	// ErrMissingRand is returned when the weighted random policy is used
	// without a random source.
	ErrMissingRand = errors.New("weighted random policy requires a random source")
)

const (
	relTolerance = 1e-9
	absTolerance = 1e-9
)

// Options configures how rounding error is removed.
type Options struct {
	Policy Policy

	// Rand is required by PolicyWeightedRandom. It is never created
	// internally so that a run shares a single, seeded sequence.
	Rand *rand.Rand
}

// Control returns a pointer to the given control total.
func Control(v int64) *int64 {
	return &v
}

// Integerize scales values to the control total, rounds every value up, and
// then takes the surplus back one unit at a time from the entries selected
// by the policy. When control is nil, the rounded sum of the values is used
// and must itself be an integer.
//
// When the control is positive but every value is zero, there is nothing to
// distribute proportionally and the first control entries receive one unit
// each. The result therefore depends on the order of the input.
func Integerize(
	values []float64,
	control *int64,
	opts Options,
) ([]int64, error) {
	if err := opts.mustBeValid(); err != nil {
		return nil, err
	}

	sum := 0.0
	for i, v := range values {
		if v < 0 || math.IsNaN(v) {
			return nil, fmt.Errorf("%w: value %v at %d", ErrNegativeInput, v, i)
		}

		sum += v
	}

	target, err := resolveControl(sum, control)
	if err != nil {
		return nil, err
	}

	out := make([]int64, len(values))

	if target == 0 {
		return out, nil
	}

	if len(values) == 0 {
		return nil, fmt.Errorf("%w: control %d for empty input",
			ErrInvalidControl, target)
	}

	if sum == 0 {
		for i := int64(0); i < target; i++ {
			out[i%int64(len(out))]++
		}

		return out, nil
	}

	scaled := make([]float64, len(values))
	ceiled := int64(0)
	for i, v := range values {
		scaled[i] = v * float64(target) / sum
		out[i] = int64(math.Ceil(scaled[i]))
		ceiled += out[i]
	}

	diff := int(ceiled - target)
	if diff > 0 {
		for _, i := range selectDecrements(out, scaled, diff, opts) {
			out[i]--
		}
	}

	return out, postconditionMustHold(out, target)
}

func (o Options) mustBeValid() error {
	if !o.Policy.valid() {
		return fmt.Errorf("unknown policy %d", o.Policy)
	}

	if o.Policy == PolicyWeightedRandom && o.Rand == nil {
		return ErrMissingRand
	}

	return nil
}

func resolveControl(sum float64, control *int64) (int64, error) {
	if control != nil {
		if *control < 0 {
			return 0, fmt.Errorf("%w: control %d", ErrNegativeInput, *control)
		}

		return *control, nil
	}

	rounded := math.Round(sum)
	if !isClose(sum, rounded) {
		return 0, fmt.Errorf("%w: sum %v is not an integer",
			ErrInvalidControl, sum)
	}

	return int64(rounded), nil
}

func isClose(a, b float64) bool {
	diff := math.Abs(a - b)
	scale := math.Max(math.Abs(a), math.Abs(b))

	return diff <= math.Max(relTolerance*scale, absTolerance)
}

func postconditionMustHold(out []int64, target int64) error {
	total := int64(0)
	for i, v := range out {
		if v < 0 {
			return fmt.Errorf("negative value %d at %d after integerization",
				v, i)
		}

		total += v
	}

	if total != target {
		return fmt.Errorf("%w: integerized sum %d does not match %d",
			ErrInvalidControl, total, target)
	}

	return nil
}
