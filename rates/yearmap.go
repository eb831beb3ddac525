package rates

import "fmt"

// YearMap maps increment years to the year whose source data is used for
// them. An empty map uses every year as its own source year.
type YearMap map[int]int

// Source returns the source year of an increment year.
func (m YearMap) Source(year int) (int, error) {
	if len(m) == 0 {
		return year, nil
	}

	src, ok := m[year]
	if !ok {
		return 0, fmt.Errorf("%w: no rate year mapped for %d",
			ErrMissingSourceYear, year)
	}

	return src, nil
}
