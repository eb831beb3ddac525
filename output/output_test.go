package output_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cohortsim/datarecording"
	"github.com/sarchlab/cohortsim/ledger"
	"github.com/sarchlab/cohortsim/output"
	"github.com/sarchlab/cohortsim/rates"
)

func sampleLedger(year int) *ledger.Ledger {
	l, err := ledger.New(year, []ledger.Record{
		{Key: ledger.Key{Race: "White", Sex: ledger.Male, Age: 5}, Pop: 7},
		{Key: ledger.Key{Race: "Asian", Sex: ledger.Female, Age: 0}, Pop: 3,
			HH: 1, Size1: 1, Workers0: 1},
	})
	Expect(err).NotTo(HaveOccurred())

	return l
}

var _ = Describe("RecorderSink", func() {
	var (
		ctx  context.Context
		dir  string
		path string
		rec  datarecording.DataRecorder
		sink *output.RecorderSink
	)

	BeforeEach(func() {
		var err error

		ctx = context.Background()
		dir, err = os.MkdirTemp("", "output")
		Expect(err).NotTo(HaveOccurred())

		path = filepath.Join(dir, "out")
		rec, err = datarecording.New(path)
		Expect(err).NotTo(HaveOccurred())

		sink, err = output.NewRecorderSink(rec, nil)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		rec.Close()
		os.RemoveAll(dir)
	})

	It("should write tagged, sorted tables", func() {
		set := rates.NewSet(2021, 2020)
		set.Put(ledger.Key{Race: "White", Sex: ledger.Male, Age: 5},
			rates.Rate{Death: 0.25, Characteristic: map[ledger.Field]float64{
				ledger.Size2: 0.5,
			}})

		Expect(sink.WriteRates(ctx, set)).To(Succeed())
		Expect(sink.WriteComponents(ctx, 2021, []ledger.Components{
			{Key: ledger.Key{Race: "Asian", Sex: ledger.Female, Age: 0}, Births: 2},
		})).To(Succeed())
		Expect(sink.WriteLedger(ctx, sampleLedger(2021))).To(Succeed())
		Expect(sink.WriteLedger(ctx, sampleLedger(2022))).To(Succeed())

		reader, err := datarecording.NewReader(datarecording.FileName(path))
		Expect(err).NotTo(HaveOccurred())
		defer reader.Close()

		years, err := output.ReadYears(ctx, reader)
		Expect(err).NotTo(HaveOccurred())
		Expect(years).To(Equal([]int{2021, 2022}))

		l, err := output.ReadLedger(ctx, reader, 2022)
		Expect(err).NotTo(HaveOccurred())
		Expect(l.Records()).To(Equal(sampleLedger(2022).Records()))

		rateRows, err := datarecording.QueryAll[output.RatesRow](ctx, reader,
			output.RatesTable, datarecording.QueryParams{})
		Expect(err).NotTo(HaveOccurred())
		Expect(rateRows).To(HaveLen(1))
		Expect(rateRows[0].SourceYear).To(Equal(2020))
		Expect(rateRows[0].DeathRate).To(Equal(0.25))
		Expect(rateRows[0].Size2Rate).To(Equal(0.5))

		compRows, err := datarecording.QueryAll[output.ComponentsRow](ctx, reader,
			output.ComponentsTable, datarecording.QueryParams{})
		Expect(err).NotTo(HaveOccurred())
		Expect(compRows).To(Equal([]output.ComponentsRow{
			{Year: 2021, Race: "Asian", Sex: "F", Age: 0, Births: 2},
		}))
	})

	It("should commit a year only when its ledger is written", func() {
		batched, err := datarecording.New(filepath.Join(dir, "batched"),
			datarecording.WithBatchSize(1))
		Expect(err).NotTo(HaveOccurred())
		defer batched.Close()

		yearly, err := output.NewRecorderSink(batched, nil)
		Expect(err).NotTo(HaveOccurred())

		set := rates.NewSet(2021, 2020)
		set.Put(ledger.Key{Race: "White", Sex: ledger.Male, Age: 5},
			rates.Rate{Death: 0.25})
		Expect(yearly.WriteRates(ctx, set)).To(Succeed())
		Expect(yearly.WriteComponents(ctx, 2021, []ledger.Components{
			{Key: ledger.Key{Race: "White", Sex: ledger.Male, Age: 5}, Deaths: 1},
		})).To(Succeed())

		reader, err := datarecording.NewReader(
			datarecording.FileName(filepath.Join(dir, "batched")))
		Expect(err).NotTo(HaveOccurred())
		defer reader.Close()

		staged, err := datarecording.QueryAll[output.RatesRow](ctx, reader,
			output.RatesTable, datarecording.QueryParams{})
		Expect(err).NotTo(HaveOccurred())
		Expect(staged).To(BeEmpty())

		Expect(yearly.WriteLedger(ctx, sampleLedger(2021))).To(Succeed())

		written, err := datarecording.QueryAll[output.RatesRow](ctx, reader,
			output.RatesTable, datarecording.QueryParams{})
		Expect(err).NotTo(HaveOccurred())
		Expect(written).To(HaveLen(1))

		comps, err := datarecording.QueryAll[output.ComponentsRow](ctx, reader,
			output.ComponentsTable, datarecording.QueryParams{})
		Expect(err).NotTo(HaveOccurred())
		Expect(comps).To(HaveLen(1))
	})

	It("should fail to read a missing year", func() {
		Expect(sink.WriteLedger(ctx, sampleLedger(2021))).To(Succeed())

		reader, err := datarecording.NewReader(datarecording.FileName(path))
		Expect(err).NotTo(HaveOccurred())
		defer reader.Close()

		_, err = output.ReadLedger(ctx, reader, 2030)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("MemorySink", func() {
	It("should keep independent copies of ledgers", func() {
		ctx := context.Background()
		sink := output.NewMemorySink()
		l := sampleLedger(2020)

		Expect(sink.WriteLedger(ctx, l)).To(Succeed())
		Expect(l.SetColumn(ledger.Pop, []int64{0, 0})).To(Succeed())

		kept, ok := sink.Ledger(2020)
		Expect(ok).To(BeTrue())
		Expect(kept.Total(ledger.Pop)).To(Equal(int64(10)))
		Expect(sink.Years()).To(Equal([]int{2020}))
	})
})
