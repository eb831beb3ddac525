package rates

import (
	"context"
	"fmt"

	"github.com/sarchlab/cohortsim/datarecording"
	"github.com/sarchlab/cohortsim/ledger"
)

// Input table names.
const (
	BaseTable             = "base_population"
	BirthTable            = "birth_rates"
	DeathTable            = "death_rates"
	MigrationTable        = "migration_rates"
	FormationTable        = "formation_rates"
	CharacteristicTable   = "hh_characteristic_rates"
	MilitaryTable         = "military"
	MilitaryControlsTable = "military_controls"
)

// BaseRow is a row of the base population table.
type BaseRow struct {
	Race     string
	Sex      string
	Age      int
	Pop      int64
	PopMil   int64
	GQ       int64
	HH       int64
	HHHeadLF int64
	Size1    int64
	Size2    int64
	Size3    int64
	Child1   int64
	Senior1  int64
	Workers0 int64
	Workers1 int64
	Workers2 int64
	Workers3 int64
}

// RateRow is a row of the birth and death rate tables.
type RateRow struct {
	Year int
	Race string
	Sex  string
	Age  int
	Rate float64
}

// MigrationRow is a row of the migration rate table.
type MigrationRow struct {
	Year int
	Race string
	Sex  string
	Age  int
	In   float64
	Out  float64
}

// FormationRow is a row of the formation rate table.
type FormationRow struct {
	Year int
	Race string
	Sex  string
	Age  int
	GQ   float64
	HH   float64
}

// CharacteristicRow is a row of the household characteristic rate table.
type CharacteristicRow struct {
	Year     int
	Race     string
	Sex      string
	Age      int
	HHHeadLF float64
	Size1    float64
	Size2    float64
	Size3    float64
	Child1   float64
	Senior1  float64
	Workers0 float64
	Workers1 float64
	Workers2 float64
	Workers3 float64
}

// MilitaryRow is a row of the military estimate table.
type MilitaryRow struct {
	Year  int
	Race  string
	Sex   string
	Age   int
	Value float64
}

// MilitaryControlRow is a row of the military control table.
type MilitaryControlRow struct {
	Year  int
	Value float64
}

func key(race, sex string, age int) ledger.Key {
	return ledger.Key{Race: race, Sex: ledger.Sex(sex), Age: age}
}

// Record converts the row into a ledger record.
func (r BaseRow) Record() ledger.Record {
	return ledger.Record{
		Key:      key(r.Race, r.Sex, r.Age),
		Pop:      r.Pop,
		PopMil:   r.PopMil,
		GQ:       r.GQ,
		HH:       r.HH,
		HHHeadLF: r.HHHeadLF,
		Size1:    r.Size1,
		Size2:    r.Size2,
		Size3:    r.Size3,
		Child1:   r.Child1,
		Senior1:  r.Senior1,
		Workers0: r.Workers0,
		Workers1: r.Workers1,
		Workers2: r.Workers2,
		Workers3: r.Workers3,
	}
}

func (r CharacteristicRow) rates() map[ledger.Field]float64 {
	return map[ledger.Field]float64{
		ledger.HHHeadLF: r.HHHeadLF,
		ledger.Size1:    r.Size1,
		ledger.Size2:    r.Size2,
		ledger.Size3:    r.Size3,
		ledger.Child1:   r.Child1,
		ledger.Senior1:  r.Senior1,
		ledger.Workers0: r.Workers0,
		ledger.Workers1: r.Workers1,
		ledger.Workers2: r.Workers2,
		ledger.Workers3: r.Workers3,
	}
}

// SQLiteSource reads the base year, rates, and military estimates from an
// input database.
type SQLiteSource struct {
	reader datarecording.DataReader
	years  YearMap
}

// NewSQLiteSource creates a source over an input database. Rate years are
// translated through years before querying.
func NewSQLiteSource(reader datarecording.DataReader, years YearMap) *SQLiteSource {
	return &SQLiteSource{
		reader: reader,
		years:  years,
	}
}

// Base reads the base-year ledger.
func (s *SQLiteSource) Base(ctx context.Context, year int) (*ledger.Ledger, error) {
	rows, err := datarecording.QueryAll[BaseRow](ctx, s.reader, BaseTable,
		datarecording.QueryParams{OrderBy: "Race, Sex, Age"})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", BaseTable, err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrMissingSourceYear, BaseTable)
	}

	records := make([]ledger.Record, len(rows))
	for i, r := range rows {
		records[i] = r.Record()
	}

	return ledger.New(year, records)
}

// Rates reads every rate table of the source year mapped to year.
func (s *SQLiteSource) Rates(
	ctx context.Context,
	year int,
	_ *ledger.Ledger,
) (*Set, error) {
	src, err := s.years.Source(year)
	if err != nil {
		return nil, err
	}

	set := NewSet(year, src)

	births, err := queryYear[RateRow](ctx, s.reader, BirthTable, src)
	if err != nil {
		return nil, err
	}

	for _, r := range births {
		set.Update(key(r.Race, r.Sex, r.Age), func(rate *Rate) { rate.Birth = r.Rate })
	}

	deaths, err := queryYear[RateRow](ctx, s.reader, DeathTable, src)
	if err != nil {
		return nil, err
	}

	for _, r := range deaths {
		set.Update(key(r.Race, r.Sex, r.Age), func(rate *Rate) { rate.Death = r.Rate })
	}

	migration, err := queryYear[MigrationRow](ctx, s.reader, MigrationTable, src)
	if err != nil {
		return nil, err
	}

	for _, r := range migration {
		set.Update(key(r.Race, r.Sex, r.Age), func(rate *Rate) {
			rate.In = r.In
			rate.Out = r.Out
		})
	}

	formation, err := queryYear[FormationRow](ctx, s.reader, FormationTable, src)
	if err != nil {
		return nil, err
	}

	for _, r := range formation {
		set.Update(key(r.Race, r.Sex, r.Age), func(rate *Rate) {
			rate.GQ = r.GQ
			rate.HH = r.HH
		})
	}

	chars, err := queryYear[CharacteristicRow](ctx, s.reader, CharacteristicTable, src)
	if err != nil {
		return nil, err
	}

	for _, r := range chars {
		set.Update(key(r.Race, r.Sex, r.Age), func(rate *Rate) {
			rate.Characteristic = r.rates()
		})
	}

	return set, nil
}

// Military reads the military estimate of the source year mapped to year,
// and its control total when the control table has one.
func (s *SQLiteSource) Military(
	ctx context.Context,
	year int,
	_ *ledger.Ledger,
) (*MilitaryEstimate, error) {
	src, err := s.years.Source(year)
	if err != nil {
		return nil, err
	}

	rows, err := queryYear[MilitaryRow](ctx, s.reader, MilitaryTable, src)
	if err != nil {
		return nil, err
	}

	est := &MilitaryEstimate{Values: make(map[ledger.Key]float64, len(rows))}
	for _, r := range rows {
		est.Values[key(r.Race, r.Sex, r.Age)] += r.Value
	}

	controls, err := datarecording.QueryAll[MilitaryControlRow](ctx, s.reader,
		MilitaryControlsTable, datarecording.QueryParams{
			Where: "Year = ?",
			Args:  []any{src},
		})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", MilitaryControlsTable, err)
	}

	if len(controls) > 0 {
		total := controls[0].Value
		est.Control = &total
	}

	return est, nil
}

func queryYear[T any](
	ctx context.Context,
	reader datarecording.DataReader,
	table string,
	year int,
) ([]T, error) {
	rows, err := datarecording.QueryAll[T](ctx, reader, table,
		datarecording.QueryParams{
			Where:   "Year = ?",
			Args:    []any{year},
			OrderBy: "Race, Sex, Age",
		})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s has no rows for %d",
			ErrMissingSourceYear, table, year)
	}

	return rows, nil
}
