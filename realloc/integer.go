package realloc

import "sort"

// CapInteger moves whole units out of rows where subset exceeds total. In
// every pass each giving row hands one unit to one receiving row. Receivers
// are rows with spare room that already hold some of the subset, largest
// room first. The subset sum is preserved.
func CapInteger(subset, total []int64) ([]int64, error) {
	if err := lengthsMustMatch(len(subset), len(total)); err != nil {
		return nil, err
	}

	if err := intsMustBeNonNegative("subset", subset); err != nil {
		return nil, err
	}

	if err := intsMustBeNonNegative("total", total); err != nil {
		return nil, err
	}

	out := make([]int64, len(subset))
	copy(out, subset)

	for exceedsAny(out, total) {
		givers, receivers := classifyCap(out, total)

		n := min(len(givers), len(receivers))
		if n == 0 {
			return nil, ErrInconsistentConstraint
		}

		for k := 0; k < n; k++ {
			out[givers[k]]--
			out[receivers[k]]++
		}
	}

	return out, nil
}

func exceedsAny(subset, total []int64) bool {
	for i := range subset {
		if subset[i] > total[i] {
			return true
		}
	}

	return false
}

func classifyCap(subset, total []int64) (givers, receivers []int) {
	for i := range subset {
		switch {
		case subset[i] > total[i]:
			givers = append(givers, i)
		case subset[i] < total[i] && subset[i] > 0:
			receivers = append(receivers, i)
		}
	}

	sort.SliceStable(receivers, func(a, b int) bool {
		ra, rb := receivers[a], receivers[b]
		return total[ra]-subset[ra] > total[rb]-subset[rb]
	})

	return givers, receivers
}
