// Package etl loads the output database of a finished run into a Postgres
// warehouse.
package etl

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/fatih/structs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/sarchlab/cohortsim/datarecording"
	"github.com/sarchlab/cohortsim/output"
)

// RunTable holds one row of metadata per loaded run.
const RunTable = "ccm_run"

// Conn is the part of a Postgres connection the loader uses. *pgx.Conn
// satisfies it.
type Conn interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(
		ctx context.Context,
		tableName pgx.Identifier,
		columnNames []string,
		rowSrc pgx.CopyFromSource,
	) (int64, error)
}

// Connect opens a connection to the warehouse.
func Connect(ctx context.Context, dsn string) (*pgx.Conn, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect warehouse: %w", err)
	}

	return conn, nil
}

// RunInfo describes a run in the warehouse.
type RunInfo struct {
	User     string
	Date     time.Time
	Version  string
	Comments string
}

type outputTable struct {
	source string
	target string
	read   func(context.Context, datarecording.DataReader) ([]any, error)
	sample any
}

func readAll[T any](
	ctx context.Context,
	r datarecording.DataReader,
	table string,
) ([]any, error) {
	rows, err := datarecording.QueryAll[T](ctx, r, table,
		datarecording.QueryParams{OrderBy: "Year, Race, Sex, Age"})
	if err != nil {
		return nil, err
	}

	out := make([]any, len(rows))
	for i, row := range rows {
		out[i] = row
	}

	return out, nil
}

var outputTables = []outputTable{
	{
		source: output.PopulationTable,
		target: "ccm_population",
		sample: output.PopulationRow{},
		read: func(ctx context.Context, r datarecording.DataReader) ([]any, error) {
			return readAll[output.PopulationRow](ctx, r, output.PopulationTable)
		},
	},
	{
		source: output.ComponentsTable,
		target: "ccm_components",
		sample: output.ComponentsRow{},
		read: func(ctx context.Context, r datarecording.DataReader) ([]any, error) {
			return readAll[output.ComponentsRow](ctx, r, output.ComponentsTable)
		},
	},
	{
		source: output.RatesTable,
		target: "ccm_rates",
		sample: output.RatesRow{},
		read: func(ctx context.Context, r datarecording.DataReader) ([]any, error) {
			return readAll[output.RatesRow](ctx, r, output.RatesTable)
		},
	},
}

// Loader copies the tables of an output database into the warehouse.
type Loader struct {
	conn   Conn
	logger *zap.Logger
}

// NewLoader creates a loader.
func NewLoader(conn Conn, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Loader{conn: conn, logger: logger}
}

// Load registers the run, copies every output table, and marks the run as
// loaded. It returns the id given to the run. A run that fails halfway stays
// registered with its loaded flag unset.
func (l *Loader) Load(
	ctx context.Context,
	reader datarecording.DataReader,
	info RunInfo,
) (int, error) {
	if err := l.ensureTables(ctx); err != nil {
		return 0, err
	}

	runID, err := l.register(ctx, info)
	if err != nil {
		return 0, err
	}

	for _, t := range outputTables {
		rows, err := t.read(ctx, reader)
		if err != nil {
			return runID, fmt.Errorf("read %s: %w", t.source, err)
		}

		n, err := l.conn.CopyFrom(ctx,
			pgx.Identifier{t.target},
			append([]string{"run_id"}, columnNames(t.sample)...),
			pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
				return append([]any{runID}, structs.Values(rows[i])...), nil
			}))
		if err != nil {
			return runID, fmt.Errorf("copy %s: %w", t.target, err)
		}

		l.logger.Info("table loaded",
			zap.Int("run_id", runID),
			zap.String("table", t.target),
			zap.Int64("rows", n))
	}

	_, err = l.conn.Exec(ctx,
		"UPDATE "+RunTable+" SET loaded = 1 WHERE run_id = $1", runID)
	if err != nil {
		return runID, fmt.Errorf("mark run %d loaded: %w", runID, err)
	}

	return runID, nil
}

func (l *Loader) register(ctx context.Context, info RunInfo) (int, error) {
	var maxID int

	err := l.conn.QueryRow(ctx,
		"SELECT COALESCE(MAX(run_id), 0) FROM "+RunTable).Scan(&maxID)
	if err != nil {
		return 0, fmt.Errorf("next run id: %w", err)
	}

	runID := maxID + 1

	_, err = l.conn.Exec(ctx,
		"INSERT INTO "+RunTable+
			" (run_id, user_name, run_date, version, comments, loaded)"+
			" VALUES ($1, $2, $3, $4, $5, 0)",
		runID, info.User, info.Date, info.Version, info.Comments)
	if err != nil {
		return 0, fmt.Errorf("register run %d: %w", runID, err)
	}

	l.logger.Info("run registered",
		zap.Int("run_id", runID), zap.String("user", info.User))

	return runID, nil
}

func (l *Loader) ensureTables(ctx context.Context) error {
	ddl := []string{`CREATE TABLE IF NOT EXISTS ` + RunTable + ` (
		run_id INTEGER PRIMARY KEY,
		user_name TEXT NOT NULL,
		run_date TIMESTAMPTZ NOT NULL,
		version TEXT NOT NULL,
		comments TEXT NOT NULL,
		loaded SMALLINT NOT NULL
	)`}

	for _, t := range outputTables {
		ddl = append(ddl, createStatement(t.target, t.sample))
	}

	for _, stmt := range ddl {
		if _, err := l.conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure warehouse tables: %w", err)
		}
	}

	return nil
}

func createStatement(table string, sample any) string {
	cols := []string{"run_id INTEGER NOT NULL REFERENCES " + RunTable + " (run_id)"}

	for _, f := range structs.Fields(sample) {
		var typ string

		switch f.Kind() {
		case reflect.String:
			typ = "TEXT"
		case reflect.Float32, reflect.Float64:
			typ = "DOUBLE PRECISION"
		default:
			typ = "BIGINT"
		}

		cols = append(cols, snakeCase(f.Name())+" "+typ+" NOT NULL")
	}

	return "CREATE TABLE IF NOT EXISTS " + table +
		" (\n\t\t" + strings.Join(cols, ",\n\t\t") + "\n\t)"
}

func columnNames(sample any) []string {
	names := structs.Names(sample)
	for i, n := range names {
		names[i] = snakeCase(n)
	}

	return names
}

// snakeCase converts a Go field name such as HHHeadLF or Workers0Rate into
// hh_head_lf or workers0_rate.
func snakeCase(name string) string {
	runes := []rune(name)

	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])

			if unicode.IsLower(prev) || unicode.IsDigit(prev) ||
				(unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}

		b.WriteRune(unicode.ToLower(r))
	}

	return b.String()
}
