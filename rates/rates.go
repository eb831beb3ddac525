// Package rates defines the inputs that drive a projection year: rate
// tables, military estimates, the base-year ledger, and control totals.
package rates

import (
	"context"
	"errors"
	"maps"
	"slices"

	"github.com/sarchlab/cohortsim/ledger"
)

// ErrMissingSourceYear is returned when a required table has no data for the
// requested year, or when a year has no mapping to a source year.
var ErrMissingSourceYear = errors.New("missing source year")

// Rate holds every rate that applies to one cohort in one year.
type Rate struct {
	Birth float64
	Death float64
	In    float64
	Out   float64
	GQ    float64
	HH    float64

	// Characteristic holds the share of households with each household
	// characteristic. Fields without an entry have a rate of zero.
	Characteristic map[ledger.Field]float64
}

// CharacteristicRate returns the rate of a household characteristic.
func (r Rate) CharacteristicRate(f ledger.Field) float64 {
	return r.Characteristic[f]
}

// Set is the collection of rates used by one simulated year.
type Set struct {
	Year       int
	SourceYear int

	rates map[ledger.Key]Rate
}

// NewSet creates an empty rate set.
func NewSet(year, sourceYear int) *Set {
	return &Set{
		Year:       year,
		SourceYear: sourceYear,
		rates:      make(map[ledger.Key]Rate),
	}
}

// Put stores the rates of a cohort.
func (s *Set) Put(k ledger.Key, r Rate) {
	r.Characteristic = maps.Clone(r.Characteristic)
	s.rates[k] = r
}

// Update changes the rates of a cohort in place.
func (s *Set) Update(k ledger.Key, fn func(r *Rate)) {
	r := s.rates[k]
	if r.Characteristic == nil {
		r.Characteristic = make(map[ledger.Field]float64)
	}

	fn(&r)
	s.rates[k] = r
}

// Get returns the rates of a cohort. Cohorts without rates have zero rates.
func (s *Set) Get(k ledger.Key) Rate {
	return s.rates[k]
}

// Has reports whether the cohort has rates.
func (s *Set) Has(k ledger.Key) bool {
	_, ok := s.rates[k]
	return ok
}

// Keys returns the cohorts with rates in key order.
func (s *Set) Keys() []ledger.Key {
	keys := slices.Collect(maps.Keys(s.rates))
	slices.SortFunc(keys, func(a, b ledger.Key) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		default:
			return 0
		}
	})

	return keys
}

// Engine produces the rate tables of a year from the ledger of that year.
type Engine interface {
	Rates(ctx context.Context, year int, l *ledger.Ledger) (*Set, error)
}

// MilitaryEstimate is a continuous per-cohort estimate of the military
// population.
type MilitaryEstimate struct {
	Values map[ledger.Key]float64

	// Control is the total military population, if known.
	Control *float64
}

// MilitarySource estimates the military population of a year.
type MilitarySource interface {
	Military(ctx context.Context, year int, l *ledger.Ledger) (*MilitaryEstimate, error)
}

// BaseSource creates the ledger of the base year.
type BaseSource interface {
	Base(ctx context.Context, year int) (*ledger.Ledger, error)
}
