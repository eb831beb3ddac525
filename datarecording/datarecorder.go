// Package datarecording stores tables of flat structs in SQLite databases and
// reads them back.
package datarecording

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"

	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// ErrFileExists is returned when the output database already exists and
// overwriting was not requested.
var ErrFileExists = errors.New("output file already exists")

// DataRecorder is a backend that can record and store data
type DataRecorder interface {
	// CreateTable creates a new table whose columns follow the fields of the
	// sample entry.
	CreateTable(tableName string, sampleEntry any) error

	// InsertData buffers an entry for a table that already exists.
	InsertData(tableName string, entry any) error

	// ListTables returns the names of all tables created by the recorder.
	ListTables() []string

	// Flush writes all the buffered entries into the database.
	Flush() error

	// Close flushes and closes the database.
	Close() error
}

// Option configures a DataRecorder.
type Option func(w *sqliteWriter)

// WithBatchSize sets the number of buffered entries that triggers a flush.
func WithBatchSize(n int) Option {
	return func(w *sqliteWriter) {
		w.batchSize = n
	}
}

// WithoutAutoFlush keeps every entry buffered until Flush or Close is
// called.
func WithoutAutoFlush() Option {
	return func(w *sqliteWriter) {
		w.batchSize = 0
	}
}

// WithOverwrite replaces an existing database file instead of failing.
func WithOverwrite() Option {
	return func(w *sqliteWriter) {
		w.overwrite = true
	}
}

// New creates a new DataRecorder that writes into path. The ".sqlite3"
// extension is appended when missing. An empty path generates a unique name.
func New(path string, opts ...Option) (DataRecorder, error) {
	w := &sqliteWriter{
		dbName:    path,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}

	for _, opt := range opts {
		opt(w)
	}

	if err := w.Init(); err != nil {
		return nil, err
	}

	atexit.Register(w.flushAtExit)

	return w, nil
}

// NewWithDB creates a new DataRecorder with a given database.
func NewWithDB(db *sql.DB, opts ...Option) DataRecorder {
	w := &sqliteWriter{
		DB:        db,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}

	for _, opt := range opts {
		opt(w)
	}

	atexit.Register(w.flushAtExit)

	return w
}

// FileName returns the database file that a recorder created with path
// writes into.
func FileName(path string) string {
	if strings.HasSuffix(path, ".sqlite3") {
		return path
	}

	return path + ".sqlite3"
}

type table struct {
	structType reflect.Type
	entries    []any
}

// sqliteWriter is the writer that writes data into SQLite database
type sqliteWriter struct {
	*sql.DB

	dbName     string
	overwrite  bool
	tables     map[string]*table
	batchSize  int
	entryCount int
	closed     bool
}

// Init establishes a connection to the database.
func (t *sqliteWriter) Init() error {
	if t.dbName == "" {
		t.dbName = "cohortsim_" + xid.New().String()
	}

	filename := FileName(t.dbName)

	_, err := os.Stat(filename)
	if err == nil {
		if !t.overwrite {
			return fmt.Errorf("%w: %s", ErrFileExists, filename)
		}

		if err := os.Remove(filename); err != nil {
			return fmt.Errorf("remove %s: %w", filename, err)
		}
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return fmt.Errorf("open %s: %w", filename, err)
	}

	t.DB = db

	return nil
}

func (t *sqliteWriter) columnType(kind reflect.Kind) (string, bool) {
	switch kind {
	case
		reflect.Bool,
		reflect.Int,
		reflect.Int8,
		reflect.Int16,
		reflect.Int32,
		reflect.Int64,
		reflect.Uint,
		reflect.Uint8,
		reflect.Uint16,
		reflect.Uint32:
		return "INTEGER", true
	case reflect.Float32, reflect.Float64:
		return "REAL", true
	case reflect.String:
		return "TEXT", true
	default:
		return "", false
	}
}

func (t *sqliteWriter) columns(sampleEntry any) ([]string, error) {
	types := reflect.TypeOf(sampleEntry)
	if types == nil || types.Kind() != reflect.Struct {
		return nil, fmt.Errorf("entry %T is not a struct", sampleEntry)
	}

	cols := make([]string, 0, types.NumField())
	for i := 0; i < types.NumField(); i++ {
		field := types.Field(i)

		sqlType, ok := t.columnType(field.Type.Kind())
		if !ok {
			return nil, fmt.Errorf("field %s of %T has unsupported type %s",
				field.Name, sampleEntry, field.Type)
		}

		cols = append(cols, quoteIdent(field.Name)+" "+sqlType)
	}

	return cols, nil
}

// quoteIdent quotes a table or column name so that names such as In or Order
// can be used.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (t *sqliteWriter) CreateTable(tableName string, sampleEntry any) error {
	if _, exists := t.tables[tableName]; exists {
		return fmt.Errorf("table %s already exists", tableName)
	}

	cols, err := t.columns(sampleEntry)
	if err != nil {
		return err
	}

	fields := strings.Join(cols, ", \n\t")

	createTableSQL := `CREATE TABLE ` + quoteIdent(tableName) +
		` (` + "\n\t" + fields + "\n" + `);`
	if _, err := t.Exec(createTableSQL); err != nil {
		return fmt.Errorf("create table %s: %w", tableName, err)
	}

	t.tables[tableName] = &table{
		structType: reflect.TypeOf(sampleEntry),
		entries:    []any{},
	}

	return nil
}

func (t *sqliteWriter) InsertData(tableName string, entry any) error {
	table, exists := t.tables[tableName]
	if !exists {
		return fmt.Errorf("table %s does not exist", tableName)
	}

	if reflect.TypeOf(entry) != table.structType {
		return fmt.Errorf("entry %T does not match table %s of %s",
			entry, tableName, table.structType)
	}

	table.entries = append(table.entries, entry)

	t.entryCount++
	if t.batchSize > 0 && t.entryCount >= t.batchSize {
		return t.Flush()
	}

	return nil
}

func (t *sqliteWriter) ListTables() []string {
	tables := make([]string, 0, len(t.tables))
	for table := range t.tables {
		tables = append(tables, table)
	}

	sort.Strings(tables)

	return tables
}

func (t *sqliteWriter) Flush() error {
	if t.entryCount == 0 {
		return nil
	}

	tx, err := t.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	for _, tableName := range t.ListTables() {
		table := t.tables[tableName]
		if len(table.entries) == 0 {
			continue
		}

		if err := t.insertAll(tx, tableName, table.entries); err != nil {
			_ = tx.Rollback()
			return err
		}

		table.entries = nil
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	t.entryCount = 0

	return nil
}

func (t *sqliteWriter) insertAll(tx *sql.Tx, tableName string, entries []any) error {
	stmt, err := tx.Prepare(t.insertStatement(tableName, entries[0]))
	if err != nil {
		return fmt.Errorf("prepare insert into %s: %w", tableName, err)
	}
	defer stmt.Close()

	for _, entry := range entries {
		if _, err := stmt.Exec(structs.Values(entry)...); err != nil {
			return fmt.Errorf("insert into %s: %w", tableName, err)
		}
	}

	return nil
}

func (t *sqliteWriter) insertStatement(table string, entry any) string {
	n := structs.Names(entry)
	for i := 0; i < len(n); i++ {
		n[i] = "?"
	}

	entryToFill := "(" + strings.Join(n, ", ") + ")"

	return "INSERT INTO " + quoteIdent(table) + " VALUES " + entryToFill
}

func (t *sqliteWriter) Close() error {
	if t.closed {
		return nil
	}

	if err := t.Flush(); err != nil {
		return err
	}

	t.closed = true

	return t.DB.Close()
}

func (t *sqliteWriter) flushAtExit() {
	if t.closed {
		return
	}

	if err := t.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to flush %s: %v\n", t.dbName, err)
	}
}
