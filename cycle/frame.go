package cycle

import (
	"math"

	"github.com/sarchlab/cohortsim/ledger"
	"github.com/sarchlab/cohortsim/rates"
)

// frame is the continuous working copy of a ledger. Columns are in the key
// order of the ledger it was built from.
type frame struct {
	keys []ledger.Key
	cols map[ledger.Field][]float64
}

func newFrame(l *ledger.Ledger) *frame {
	f := &frame{
		keys: l.Keys(),
		cols: make(map[ledger.Field][]float64, len(ledger.Catalogue)),
	}

	for _, info := range ledger.Catalogue {
		f.cols[info.Field] = toFloat(l.Column(info.Field))
	}

	return f
}

// Column returns a field of the frame.
func (f *frame) Column(field ledger.Field) []float64 {
	return f.cols[field]
}

// estimateHouseholds derives group quarters, households, and household
// characteristics from population and formation rates.
func (f *frame) estimateHouseholds(set *rates.Set) {
	pop := f.cols[ledger.Pop]
	mil := f.cols[ledger.PopMil]
	gq := f.cols[ledger.GQ]
	hh := f.cols[ledger.HH]

	for i, k := range f.keys {
		r := set.Get(k)
		gq[i] = pop[i] * r.GQ
		hh[i] = (pop[i] - mil[i]) * r.HH
	}

	for _, field := range ledger.Characteristics() {
		col := f.cols[field]
		for i, k := range f.keys {
			col[i] = hh[i] * set.Get(k).CharacteristicRate(field)
		}
	}
}

// scale multiplies the given fields by factor.
func (f *frame) scale(factor float64, fields ...ledger.Field) {
	for _, field := range fields {
		col := f.cols[field]
		for i := range col {
			col[i] *= factor
		}
	}
}

func (f *frame) sum(field ledger.Field) float64 {
	return sum(f.cols[field])
}

func toFloat(values []int64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}

	return out
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}

	return total
}

func roundedSum(values []float64) int64 {
	return int64(math.Round(sum(values)))
}

func sub(a, b []int64) []int64 {
	out := make([]int64, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}

	return out
}
