// Package output writes the yearly results of a projection.
package output

import (
	"github.com/sarchlab/cohortsim/ledger"
	"github.com/sarchlab/cohortsim/rates"
)

// Output table names.
const (
	PopulationTable = "population"
	ComponentsTable = "components"
	RatesTable      = "rates"
)

// PopulationRow is a ledger record tagged with its year.
type PopulationRow struct {
	Year     int
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

// ComponentsRow holds the components of change of a cohort in a year.
type ComponentsRow struct {
	Year   int
	Race   string
	Sex    string
	Age    int
	Deaths int64
	Births int64
	Ins    int64
	Outs   int64
}

// RatesRow holds the rates applied to a cohort in a year.
type RatesRow struct {
	Year         int
	SourceYear   int
	Race         string
	Sex          string
	Age          int
	BirthRate    float64
	DeathRate    float64
	InRate       float64
	OutRate      float64
	GQRate       float64
	HHRate       float64
	HHHeadLFRate float64
	Size1Rate    float64
	Size2Rate    float64
	Size3Rate    float64
	Child1Rate   float64
	Senior1Rate  float64
	Workers0Rate float64
	Workers1Rate float64
	Workers2Rate float64
	Workers3Rate float64
}

// NewPopulationRow converts a ledger record.
func NewPopulationRow(year int, r ledger.Record) PopulationRow {
	return PopulationRow{
		Year:     year,
		Race:     r.Race,
		Sex:      string(r.Sex),
		Age:      r.Age,
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

// Record converts the row back into a ledger record.
func (p PopulationRow) Record() ledger.Record {
	return ledger.Record{
		Key:      ledger.Key{Race: p.Race, Sex: ledger.Sex(p.Sex), Age: p.Age},
		Pop:      p.Pop,
		PopMil:   p.PopMil,
		GQ:       p.GQ,
		HH:       p.HH,
		HHHeadLF: p.HHHeadLF,
		Size1:    p.Size1,
		Size2:    p.Size2,
		Size3:    p.Size3,
		Child1:   p.Child1,
		Senior1:  p.Senior1,
		Workers0: p.Workers0,
		Workers1: p.Workers1,
		Workers2: p.Workers2,
		Workers3: p.Workers3,
	}
}

// NewComponentsRow converts the components of change of a cohort.
func NewComponentsRow(year int, c ledger.Components) ComponentsRow {
	return ComponentsRow{
		Year:   year,
		Race:   c.Race,
		Sex:    string(c.Sex),
		Age:    c.Age,
		Deaths: c.Deaths,
		Births: c.Births,
		Ins:    c.Ins,
		Outs:   c.Outs,
	}
}

// NewRatesRow converts the rates of a cohort.
func NewRatesRow(set *rates.Set, k ledger.Key) RatesRow {
	r := set.Get(k)

	return RatesRow{
		Year:         set.Year,
		SourceYear:   set.SourceYear,
		Race:         k.Race,
		Sex:          string(k.Sex),
		Age:          k.Age,
		BirthRate:    r.Birth,
		DeathRate:    r.Death,
		InRate:       r.In,
		OutRate:      r.Out,
		GQRate:       r.GQ,
		HHRate:       r.HH,
		HHHeadLFRate: r.CharacteristicRate(ledger.HHHeadLF),
		Size1Rate:    r.CharacteristicRate(ledger.Size1),
		Size2Rate:    r.CharacteristicRate(ledger.Size2),
		Size3Rate:    r.CharacteristicRate(ledger.Size3),
		Child1Rate:   r.CharacteristicRate(ledger.Child1),
		Senior1Rate:  r.CharacteristicRate(ledger.Senior1),
		Workers0Rate: r.CharacteristicRate(ledger.Workers0),
		Workers1Rate: r.CharacteristicRate(ledger.Workers1),
		Workers2Rate: r.CharacteristicRate(ledger.Workers2),
		Workers3Rate: r.CharacteristicRate(ledger.Workers3),
	}
}
