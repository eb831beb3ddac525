package integerize

import (
	"fmt"
	"sort"
)

// Policy decides which rounded entries give back a unit when the rounded sum
// exceeds the control.
type Policy int

// The policies that can remove rounding error.
const (
	// PolicyWeightedRandom samples entries without replacement with
	// probability proportional to how much they were rounded up.
	PolicyWeightedRandom Policy = iota

	// PolicyLargest decreases the largest rounded values.
	PolicyLargest

	// PolicySmallest decreases the smallest non-zero rounded values.
	PolicySmallest

	// PolicyLargestDifference decreases the values that were rounded up the
	// most.
	PolicyLargestDifference
)

var policyNames = map[Policy]string{
	PolicyWeightedRandom:    "weighted_random",
	PolicyLargest:           "largest",
	PolicySmallest:          "smallest",
	PolicyLargestDifference: "largest_difference",
}

func (p Policy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}

	return fmt.Sprintf("Policy(%d)", int(p))
}

func (p Policy) valid() bool {
	_, ok := policyNames[p]
	return ok
}

// ParsePolicy converts a policy name into a Policy. An empty name selects the
// weighted random policy.
func ParsePolicy(name string) (Policy, error) {
	if name == "" {
		return PolicyWeightedRandom, nil
	}

	for p, n := range policyNames {
		if n == name {
			return p, nil
		}
	}

	return 0, fmt.Errorf("unknown integerization policy %q", name)
}

func selectDecrements(
	rounded []int64,
	scaled []float64,
	diff int,
	opts Options,
) []int {
	switch opts.Policy {
	case PolicyLargest:
		return lastN(ascending(len(rounded), func(i int) float64 {
			return float64(rounded[i])
		}), diff)
	case PolicySmallest:
		nonZero := make([]int, 0, len(rounded))
		for i, v := range rounded {
			if v > 0 {
				nonZero = append(nonZero, i)
			}
		}

		sort.SliceStable(nonZero, func(a, b int) bool {
			return rounded[nonZero[a]] < rounded[nonZero[b]]
		})

		return nonZero[:min(diff, len(nonZero))]
	case PolicyLargestDifference:
		return lastN(ascending(len(rounded), func(i int) float64 {
			return float64(rounded[i]) - scaled[i]
		}), diff)
	default:
		return weightedSample(rounded, scaled, diff, opts)
	}
}

// ascending returns the indices sorted by key, keeping the input order among
// equal keys.
func ascending(n int, key func(i int) float64) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	sort.SliceStable(idx, func(a, b int) bool {
		return key(idx[a]) < key(idx[b])
	})

	return idx
}

func lastN(idx []int, n int) []int {
	return idx[len(idx)-n:]
}

// weightedSample draws n distinct indices, each with probability proportional
// to its rounding delta among the indices not yet drawn. If floating point
// noise leaves fewer positive weights than draws, the remaining draws fall
// back to the largest remaining non-zero values.
func weightedSample(
	rounded []int64,
	scaled []float64,
	n int,
	opts Options,
) []int {
	weights := make([]float64, len(rounded))
	total := 0.0
	for i := range rounded {
		w := float64(rounded[i]) - scaled[i]
		if w < 0 || rounded[i] == 0 {
			w = 0
		}

		weights[i] = w
		total += w
	}

	picked := make([]int, 0, n)
	taken := make([]bool, len(rounded))

	for len(picked) < n && total > 0 {
		u := opts.Rand.Float64() * total
		chosen := -1
		acc := 0.0
		for i, w := range weights {
			if w == 0 {
				continue
			}

			chosen = i
			acc += w
			if u < acc {
				break
			}
		}

		if chosen < 0 {
			break
		}

		picked = append(picked, chosen)
		taken[chosen] = true
		total -= weights[chosen]
		weights[chosen] = 0
	}

	if len(picked) < n {
		order := ascending(len(rounded), func(i int) float64 {
			return float64(rounded[i])
		})
		for j := len(order) - 1; j >= 0 && len(picked) < n; j-- {
			i := order[j]
			if !taken[i] && rounded[i] > 0 {
				picked = append(picked, i)
				taken[i] = true
			}
		}
	}

	return picked
}
