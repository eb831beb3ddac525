package realloc

import "fmt"

// BalanceGroup adjusts mutually exclusive category columns so that, in every
// row, they add up exactly to total. cols[j][i] is category j in row i.
//
// Rows above their total give one unit per pass from their largest category.
// Rows below receive one unit per pass. A giver and a receiver are paired in
// row order and the receiver takes the unit into the giver's category, which
// keeps every category's column sum. Unpaired rows adjust their own largest
// category.
func BalanceGroup(cols [][]int64, total []int64) ([][]int64, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("no columns to balance")
	}

	out := make([][]int64, len(cols))
	for j, col := range cols {
		if err := lengthsMustMatch(len(col), len(total)); err != nil {
			return nil, err
		}

		if err := intsMustBeNonNegative(fmt.Sprintf("column %d", j), col); err != nil {
			return nil, err
		}

		out[j] = make([]int64, len(col))
		copy(out[j], col)
	}

	if err := intsMustBeNonNegative("total", total); err != nil {
		return nil, err
	}

	for {
		givers, receivers := classifyGroup(out, total)
		if len(givers) == 0 && len(receivers) == 0 {
			return out, nil
		}

		paired := min(len(givers), len(receivers))
		for k := 0; k < paired; k++ {
			j := maxColumn(out, givers[k])
			out[j][givers[k]]--
			out[j][receivers[k]]++
		}

		if paired > 0 {
			continue
		}

		for _, i := range givers {
			out[maxColumn(out, i)][i]--
		}

		for _, i := range receivers {
			out[maxColumn(out, i)][i]++
		}
	}
}

func classifyGroup(cols [][]int64, total []int64) (givers, receivers []int) {
	for i := range total {
		s := rowSum(cols, i)

		switch {
		case s > total[i]:
			givers = append(givers, i)
		case s < total[i]:
			receivers = append(receivers, i)
		}
	}

	return givers, receivers
}

func rowSum(cols [][]int64, i int) int64 {
	s := int64(0)
	for _, col := range cols {
		s += col[i]
	}

	return s
}

// maxColumn returns the first category holding the row's largest value.
func maxColumn(cols [][]int64, i int) int {
	best := 0
	for j := 1; j < len(cols); j++ {
		if cols[j][i] > cols[best][i] {
			best = j
		}
	}

	return best
}
