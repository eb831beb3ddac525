package etl_test

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/cohortsim/datarecording"
	"github.com/sarchlab/cohortsim/etl"
	"github.com/sarchlab/cohortsim/ledger"
	"github.com/sarchlab/cohortsim/output"
	"github.com/sarchlab/cohortsim/rates"
)

type fakeRow struct {
	value int
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}

	*dest[0].(*int) = r.value

	return nil
}

type copied struct {
	columns []string
	rows    [][]any
}

func writeRun(path string) {
	ctx := context.Background()

	rec, err := datarecording.New(path)
	Expect(err).NotTo(HaveOccurred())

	sink, err := output.NewRecorderSink(rec, nil)
	Expect(err).NotTo(HaveOccurred())

	k := ledger.Key{Race: "White", Sex: ledger.Female, Age: 30}
	l, err := ledger.New(2021, []ledger.Record{
		{Key: ledger.Key{Race: "Asian", Sex: ledger.Male, Age: 0}, Pop: 3},
		{Key: k, Pop: 10, HH: 4, Size1: 4, Workers1: 4, HHHeadLF: 2},
	})
	Expect(err).NotTo(HaveOccurred())

	set := rates.NewSet(2021, 2020)
	set.Put(k, rates.Rate{Death: 0.1})

	Expect(sink.WriteRates(ctx, set)).To(Succeed())
	Expect(sink.WriteComponents(ctx, 2021, []ledger.Components{
		{Key: k, Deaths: 1},
	})).To(Succeed())
	Expect(sink.WriteLedger(ctx, l)).To(Succeed())
	Expect(rec.Close()).To(Succeed())
}

var _ = Describe("Loader", func() {
	var (
		mockCtrl *gomock.Controller
		conn     *MockConn
		reader   datarecording.DataReader
		loader   *etl.Loader
		info     etl.RunInfo
		tables   map[string]*copied
	)

	drain := func(
		_ context.Context,
		table pgx.Identifier,
		columns []string,
		src pgx.CopyFromSource,
	) (int64, error) {
		c := &copied{columns: columns}
		for src.Next() {
			values, err := src.Values()
			if err != nil {
				return 0, err
			}

			c.rows = append(c.rows, values)
		}

		tables[table[0]] = c

		return int64(len(c.rows)), src.Err()
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		conn = NewMockConn(mockCtrl)
		loader = etl.NewLoader(conn, nil)
		tables = make(map[string]*copied)

		path := filepath.Join(GinkgoT().TempDir(), "run")
		writeRun(path)

		var err error
		reader, err = datarecording.NewReader(datarecording.FileName(path))
		Expect(err).NotTo(HaveOccurred())

		info = etl.RunInfo{
			User:     "alice",
			Date:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			Version:  "1.2",
			Comments: "base run",
		}

		conn.EXPECT().
			Exec(gomock.Any(), gomock.Any()).
			Return(pgconn.NewCommandTag("CREATE TABLE"), nil).
			Times(4)
		conn.EXPECT().
			QueryRow(gomock.Any(), gomock.Any()).
			Return(fakeRow{value: 4})
		conn.EXPECT().
			Exec(gomock.Any(), gomock.Any(),
				5, "alice", info.Date, "1.2", "base run").
			Return(pgconn.NewCommandTag("INSERT 0 1"), nil)
	})

	AfterEach(func() {
		Expect(reader.Close()).To(Succeed())
		mockCtrl.Finish()
	})

	It("should copy every table and flag the run", func() {
		conn.EXPECT().
			CopyFrom(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(drain).
			Times(3)
		conn.EXPECT().
			Exec(gomock.Any(), gomock.Any(), 5).
			Return(pgconn.NewCommandTag("UPDATE 1"), nil)

		runID, err := loader.Load(context.Background(), reader, info)
		Expect(err).NotTo(HaveOccurred())
		Expect(runID).To(Equal(5))

		Expect(tables).To(HaveKey("ccm_population"))
		Expect(tables).To(HaveKey("ccm_components"))
		Expect(tables).To(HaveKey("ccm_rates"))

		pop := tables["ccm_population"]
		Expect(pop.columns[:6]).To(Equal(
			[]string{"run_id", "year", "race", "sex", "age", "pop"}))
		Expect(pop.columns).To(ContainElements("pop_mil", "gq", "hh_head_lf", "workers3"))
		Expect(pop.rows).To(HaveLen(2))
		Expect(pop.rows[0][:6]).To(Equal(
			[]any{5, 2021, "Asian", "M", 0, int64(3)}))

		Expect(tables["ccm_rates"].columns).To(ContainElements(
			"source_year", "death_rate", "gq_rate", "hh_head_lf_rate"))
		Expect(tables["ccm_components"].rows).To(HaveLen(1))
	})

	It("should leave the run unflagged when a copy fails", func() {
		conn.EXPECT().
			CopyFrom(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(int64(0), errors.New("disk full"))

		runID, err := loader.Load(context.Background(), reader, info)
		Expect(err).To(MatchError(ContainSubstring("copy ccm_population")))
		Expect(runID).To(Equal(5))
	})
})

var _ = Describe("Loader registration", func() {
	It("should stop when the run id cannot be read", func() {
		mockCtrl := gomock.NewController(GinkgoT())
		conn := NewMockConn(mockCtrl)

		conn.EXPECT().
			Exec(gomock.Any(), gomock.Any()).
			Return(pgconn.NewCommandTag("CREATE TABLE"), nil).
			Times(4)
		conn.EXPECT().
			QueryRow(gomock.Any(), gomock.Any()).
			Return(fakeRow{err: errors.New("relation does not exist")})

		_, err := etl.NewLoader(conn, nil).
			Load(context.Background(), nil, etl.RunInfo{})
		Expect(err).To(MatchError(ContainSubstring("next run id")))
	})
})
