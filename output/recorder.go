package output

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sarchlab/cohortsim/datarecording"
	"github.com/sarchlab/cohortsim/ledger"
	"github.com/sarchlab/cohortsim/rates"
)

// RecorderSink writes yearly results through a DataRecorder. Rates and
// components are held until the ledger of the year arrives, and the whole
// year is then flushed in one transaction. Pair it with a recorder created
// with datarecording.WithoutAutoFlush so that no partial year is committed.
type RecorderSink struct {
	recorder datarecording.DataRecorder
	logger   *zap.Logger
	pending  []pendingRow
}

type pendingRow struct {
	table string
	row   any
}

// NewRecorderSink creates the output tables in the recorder.
func NewRecorderSink(
	recorder datarecording.DataRecorder,
	logger *zap.Logger,
) (*RecorderSink, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	tables := []struct {
		name   string
		sample any
	}{
		{PopulationTable, PopulationRow{}},
		{ComponentsTable, ComponentsRow{}},
		{RatesTable, RatesRow{}},
	}

	for _, t := range tables {
		if err := recorder.CreateTable(t.name, t.sample); err != nil {
			return nil, err
		}
	}

	return &RecorderSink{recorder: recorder, logger: logger}, nil
}

// WriteRates stages the rates of a year.
func (s *RecorderSink) WriteRates(_ context.Context, set *rates.Set) error {
	for _, k := range set.Keys() {
		s.pending = append(s.pending, pendingRow{RatesTable, NewRatesRow(set, k)})
	}

	return nil
}

// WriteComponents stages the components of change of a year.
func (s *RecorderSink) WriteComponents(
	_ context.Context,
	year int,
	comps []ledger.Components,
) error {
	for _, c := range comps {
		s.pending = append(s.pending,
			pendingRow{ComponentsTable, NewComponentsRow(year, c)})
	}

	return nil
}

// WriteLedger writes the staged rows and the ledger of a year, then flushes
// the year.
func (s *RecorderSink) WriteLedger(_ context.Context, l *ledger.Ledger) error {
	pending := s.pending
	s.pending = nil

	for _, p := range pending {
		if err := s.recorder.InsertData(p.table, p.row); err != nil {
			return fmt.Errorf("write %s %d: %w", p.table, l.Year, err)
		}
	}

	for _, r := range l.Records() {
		if err := s.recorder.InsertData(PopulationTable, NewPopulationRow(l.Year, r)); err != nil {
			return fmt.Errorf("write population %d: %w", l.Year, err)
		}
	}

	if err := s.recorder.Flush(); err != nil {
		return fmt.Errorf("flush year %d: %w", l.Year, err)
	}

	s.logger.Debug("year flushed", zap.Int("year", l.Year))

	return nil
}

// ReadLedger reads the ledger of a year back from an output database.
func ReadLedger(
	ctx context.Context,
	reader datarecording.DataReader,
	year int,
) (*ledger.Ledger, error) {
	rows, err := datarecording.QueryAll[PopulationRow](ctx, reader,
		PopulationTable, datarecording.QueryParams{
			Where:   "Year = ?",
			Args:    []any{year},
			OrderBy: "Race, Sex, Age",
		})
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("no population for year %d", year)
	}

	records := make([]ledger.Record, len(rows))
	for i, r := range rows {
		records[i] = r.Record()
	}

	return ledger.New(year, records)
}

// ReadYears returns the years present in an output database.
func ReadYears(
	ctx context.Context,
	reader datarecording.DataReader,
) ([]int, error) {
	rows, err := datarecording.QueryAll[PopulationRow](ctx, reader,
		PopulationTable, datarecording.QueryParams{OrderBy: "Year"})
	if err != nil {
		return nil, err
	}

	var years []int
	for _, r := range rows {
		if len(years) == 0 || years[len(years)-1] != r.Year {
			years = append(years, r.Year)
		}
	}

	return years, nil
}
