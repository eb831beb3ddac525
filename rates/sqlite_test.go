package rates_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cohortsim/datarecording"
	"github.com/sarchlab/cohortsim/ledger"
	"github.com/sarchlab/cohortsim/rates"
)

func writeInputs(path string) {
	w, err := datarecording.New(path)
	Expect(err).NotTo(HaveOccurred())

	insert := func(table string, sample any, rows ...any) {
		Expect(w.CreateTable(table, sample)).To(Succeed())
		for _, r := range rows {
			Expect(w.InsertData(table, r)).To(Succeed())
		}
	}

	insert(rates.BaseTable, rates.BaseRow{},
		rates.BaseRow{Race: "White", Sex: "M", Age: 1, Pop: 50, HH: 20,
			Size1: 20, Workers1: 20},
		rates.BaseRow{Race: "White", Sex: "F", Age: 0, Pop: 40})
	insert(rates.BirthTable, rates.RateRow{},
		rates.RateRow{Year: 2020, Race: "White", Sex: "F", Age: 1, Rate: 0.02})
	insert(rates.DeathTable, rates.RateRow{},
		rates.RateRow{Year: 2020, Race: "White", Sex: "M", Age: 1, Rate: 0.01},
		rates.RateRow{Year: 2021, Race: "White", Sex: "M", Age: 1, Rate: 0.5})
	insert(rates.MigrationTable, rates.MigrationRow{},
		rates.MigrationRow{Year: 2020, Race: "White", Sex: "M", Age: 1,
			In: 0.1, Out: 0.05})
	insert(rates.FormationTable, rates.FormationRow{},
		rates.FormationRow{Year: 2020, Race: "White", Sex: "M", Age: 1,
			GQ: 0.01, HH: 0.4})
	insert(rates.CharacteristicTable, rates.CharacteristicRow{},
		rates.CharacteristicRow{Year: 2020, Race: "White", Sex: "M", Age: 1,
			Size1: 0.3, Workers2: 0.2})
	insert(rates.MilitaryTable, rates.MilitaryRow{},
		rates.MilitaryRow{Year: 2020, Race: "White", Sex: "M", Age: 1, Value: 2.5})
	insert(rates.MilitaryControlsTable, rates.MilitaryControlRow{},
		rates.MilitaryControlRow{Year: 2020, Value: 3})

	Expect(w.Close()).To(Succeed())
}

var _ = Describe("SQLiteSource", func() {
	var (
		ctx    context.Context
		dir    string
		reader datarecording.DataReader
		source *rates.SQLiteSource
	)

	BeforeEach(func() {
		var err error

		ctx = context.Background()
		dir, err = os.MkdirTemp("", "rates")
		Expect(err).NotTo(HaveOccurred())

		path := filepath.Join(dir, "inputs")
		writeInputs(path)

		reader, err = datarecording.NewReader(datarecording.FileName(path))
		Expect(err).NotTo(HaveOccurred())

		source = rates.NewSQLiteSource(reader, rates.YearMap{2021: 2020, 2022: 2019})
	})

	AfterEach(func() {
		reader.Close()
		os.RemoveAll(dir)
	})

	It("should read the base ledger", func() {
		l, err := source.Base(ctx, 2020)
		Expect(err).NotTo(HaveOccurred())

		Expect(l.Year).To(Equal(2020))
		Expect(l.Len()).To(Equal(2))

		r, ok := l.Lookup(ledger.Key{Race: "White", Sex: ledger.Male, Age: 1})
		Expect(ok).To(BeTrue())
		Expect(r.HH).To(Equal(int64(20)))
		Expect(l.Validate()).To(Succeed())
	})

	It("should read the rates of the mapped source year", func() {
		set, err := source.Rates(ctx, 2021, nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(set.Year).To(Equal(2021))
		Expect(set.SourceYear).To(Equal(2020))

		m := set.Get(ledger.Key{Race: "White", Sex: ledger.Male, Age: 1})
		Expect(m.Death).To(Equal(0.01))
		Expect(m.In).To(Equal(0.1))
		Expect(m.Out).To(Equal(0.05))
		Expect(m.HH).To(Equal(0.4))
		Expect(m.CharacteristicRate(ledger.Size1)).To(Equal(0.3))
		Expect(m.CharacteristicRate(ledger.Workers2)).To(Equal(0.2))

		f := set.Get(ledger.Key{Race: "White", Sex: ledger.Female, Age: 1})
		Expect(f.Birth).To(Equal(0.02))
	})

	It("should fail on unmapped years", func() {
		_, err := source.Rates(ctx, 2030, nil)
		Expect(errors.Is(err, rates.ErrMissingSourceYear)).To(BeTrue())
	})

	It("should fail when a table lacks the source year", func() {
		_, err := source.Rates(ctx, 2022, nil)
		Expect(errors.Is(err, rates.ErrMissingSourceYear)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring(rates.BirthTable))
	})

	It("should read military estimates and controls", func() {
		est, err := source.Military(ctx, 2021, nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(est.Values).To(HaveKeyWithValue(
			ledger.Key{Race: "White", Sex: ledger.Male, Age: 1}, 2.5))
		Expect(est.Control).NotTo(BeNil())
		Expect(*est.Control).To(Equal(3.0))
	})
})
