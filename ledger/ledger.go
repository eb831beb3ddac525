package ledger

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvariant is returned by Validate when a cohort breaks one of the
// ledger constraints.
var ErrInvariant = errors.New("ledger invariant violated")

// Ledger is the cohort table of one simulated year. Records are kept sorted
// by key so that columns line up across ledgers built from the same keys.
type Ledger struct {
	Year int

	records []Record
	index   map[Key]int
}

// New creates a ledger from the given records. The records are copied and
// sorted. Duplicate or malformed keys are rejected.
func New(year int, records []Record) (*Ledger, error) {
	l := &Ledger{
		Year:    year,
		records: make([]Record, len(records)),
	}
	copy(l.records, records)

	sort.SliceStable(l.records, func(i, j int) bool {
		return l.records[i].Key.Less(l.records[j].Key)
	})

	if err := l.buildIndex(); err != nil {
		return nil, err
	}

	return l, nil
}

// Empty creates a ledger with zero-valued records for every given key.
func Empty(year int, keys []Key) (*Ledger, error) {
	records := make([]Record, len(keys))
	for i, k := range keys {
		records[i].Key = k
	}

	return New(year, records)
}

func (l *Ledger) buildIndex() error {
	l.index = make(map[Key]int, len(l.records))
	for i, r := range l.records {
		if !r.Key.valid() {
			return fmt.Errorf("invalid cohort key %s", r.Key)
		}

		if _, dup := l.index[r.Key]; dup {
			return fmt.Errorf("duplicate cohort key %s", r.Key)
		}

		l.index[r.Key] = i
	}

	return nil
}

// Len returns the number of cohorts.
func (l *Ledger) Len() int {
	return len(l.records)
}

// Records returns a copy of the records in key order.
func (l *Ledger) Records() []Record {
	out := make([]Record, len(l.records))
	copy(out, l.records)

	return out
}

// At returns the record at the given position.
func (l *Ledger) At(i int) Record {
	return l.records[i]
}

// Keys returns the cohort keys in order.
func (l *Ledger) Keys() []Key {
	keys := make([]Key, len(l.records))
	for i, r := range l.records {
		keys[i] = r.Key
	}

	return keys
}

// Races returns the distinct races in key order.
func (l *Ledger) Races() []string {
	var races []string
	for _, r := range l.records {
		if len(races) == 0 || races[len(races)-1] != r.Race {
			races = append(races, r.Race)
		}
	}

	return races
}

// IndexOf returns the position of a key, or -1 if it is not in the ledger.
func (l *Ledger) IndexOf(k Key) int {
	if i, ok := l.index[k]; ok {
		return i
	}

	return -1
}

// Lookup returns the record of a cohort.
func (l *Ledger) Lookup(k Key) (Record, bool) {
	i, ok := l.index[k]
	if !ok {
		return Record{}, false
	}

	return l.records[i], true
}

// Column returns a copy of a field in key order.
func (l *Ledger) Column(f Field) []int64 {
	col := make([]int64, len(l.records))
	for i := range l.records {
		col[i] = l.records[i].Get(f)
	}

	return col
}

// SetColumn replaces a field. The values must be in key order.
func (l *Ledger) SetColumn(f Field, values []int64) error {
	if len(values) != len(l.records) {
		return fmt.Errorf("column %s has %d values, ledger has %d cohorts",
			f, len(values), len(l.records))
	}

	for i := range l.records {
		l.records[i].Set(f, values[i])
	}

	return nil
}

// Clone returns a deep copy of the ledger.
func (l *Ledger) Clone() *Ledger {
	c := &Ledger{
		Year:    l.Year,
		records: make([]Record, len(l.records)),
		index:   make(map[Key]int, len(l.index)),
	}
	copy(c.records, l.records)

	for k, v := range l.index {
		c.index[k] = v
	}

	return c
}

// Total returns the sum of a field over every cohort.
func (l *Ledger) Total(f Field) int64 {
	sum := int64(0)
	for i := range l.records {
		sum += l.records[i].Get(f)
	}

	return sum
}

// Totals returns the sum of every field.
func (l *Ledger) Totals() map[Field]int64 {
	totals := make(map[Field]int64, len(Catalogue))
	for _, info := range Catalogue {
		totals[info.Field] = l.Total(info.Field)
	}

	return totals
}

// Validate checks that every cohort satisfies the ledger constraints. All
// violations are reported together.
func (l *Ledger) Validate() error {
	var errs []error
	for _, r := range l.records {
		errs = append(errs, r.violations()...)
	}

	if len(errs) == 0 {
		return nil
	}

	return fmt.Errorf("%w: year %d: %w", ErrInvariant, l.Year, errors.Join(errs...))
}

func (r Record) violations() []error {
	var errs []error

	for _, info := range Catalogue {
		if v := r.Get(info.Field); v < 0 {
			errs = append(errs, fmt.Errorf("%s: %s is negative (%d)",
				r.Key, info.Name, v))
		}
	}

	if r.PopMil > r.Pop {
		errs = append(errs, fmt.Errorf("%s: pop_mil %d exceeds pop %d",
			r.Key, r.PopMil, r.Pop))
	}

	if r.GQ+r.HH > r.Pop {
		errs = append(errs, fmt.Errorf("%s: gq %d plus hh %d exceeds pop %d",
			r.Key, r.GQ, r.HH, r.Pop))
	}

	for _, f := range Characteristics() {
		if v := r.Get(f); v > r.HH {
			errs = append(errs, fmt.Errorf("%s: %s %d exceeds hh %d",
				r.Key, f, v, r.HH))
		}
	}

	if s := r.sum(SizeFields); s != r.HH {
		errs = append(errs, fmt.Errorf("%s: size tiers sum to %d, hh is %d",
			r.Key, s, r.HH))
	}

	if s := r.sum(WorkerFields); s != r.HH {
		errs = append(errs, fmt.Errorf("%s: worker tiers sum to %d, hh is %d",
			r.Key, s, r.HH))
	}

	return errs
}

func (r Record) sum(fields []Field) int64 {
	total := int64(0)
	for _, f := range fields {
		total += r.Get(f)
	}

	return total
}
