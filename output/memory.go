package output

import (
	"context"
	"sync"

	"github.com/sarchlab/cohortsim/ledger"
	"github.com/sarchlab/cohortsim/rates"
)

// MemorySink keeps the yearly results in memory.
type MemorySink struct {
	mu         sync.Mutex
	ledgers    map[int]*ledger.Ledger
	components map[int][]ledger.Components
	rates      map[int]*rates.Set
	years      []int
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{
		ledgers:    make(map[int]*ledger.Ledger),
		components: make(map[int][]ledger.Components),
		rates:      make(map[int]*rates.Set),
	}
}

// WriteRates keeps the rates of a year.
func (s *MemorySink) WriteRates(_ context.Context, set *rates.Set) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rates[set.Year] = set

	return nil
}

// WriteComponents keeps the components of change of a year.
func (s *MemorySink) WriteComponents(
	_ context.Context,
	year int,
	comps []ledger.Components,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.components[year] = append([]ledger.Components(nil), comps...)

	return nil
}

// WriteLedger keeps a copy of the ledger of a year.
func (s *MemorySink) WriteLedger(_ context.Context, l *ledger.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ledgers[l.Year]; !ok {
		s.years = append(s.years, l.Year)
	}

	s.ledgers[l.Year] = l.Clone()

	return nil
}

// Years returns the years written, in order of writing.
func (s *MemorySink) Years() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]int(nil), s.years...)
}

// Ledger returns the ledger of a year.
func (s *MemorySink) Ledger(year int) (*ledger.Ledger, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.ledgers[year]

	return l, ok
}

// Components returns the components of change of a year.
func (s *MemorySink) Components(year int) []ledger.Components {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.components[year]
}

// Rates returns the rates of a year.
func (s *MemorySink) Rates(year int) (*rates.Set, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.rates[year]

	return set, ok
}
