package datarecording

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"
)

// QueryParams selects and pages the rows of a query.
type QueryParams struct {
	// Where is a condition without the WHERE keyword, such as "PID = ?".
	Where string
	Args  []any

	// OrderBy is a sort expression without the ORDER BY keywords.
	OrderBy string

	// Limit caps the number of rows. Zero returns all rows and ignores
	// Offset.
	Limit  int
	Offset int
}

func (p QueryParams) statement(columns, tableName string, paged bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "SELECT %s FROM %s", columns, tableName)

	if p.Where != "" {
		b.WriteString(" WHERE " + p.Where)
	}

	if !paged {
		return b.String()
	}

	if p.OrderBy != "" {
		b.WriteString(" ORDER BY " + p.OrderBy)
	}

	if p.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d OFFSET %d", p.Limit, max(p.Offset, 0))
	}

	return b.String()
}

// DataReader reads back the tables written by a DataRecorder.
type DataReader interface {
	// MapTable binds a table to the struct type its rows are scanned into.
	// A table must be mapped before it can be queried.
	MapTable(tableName string, sampleEntry any)

	// ListTables returns the mapped tables in name order.
	ListTables() []string

	// Query returns one page of rows, each a pointer to the mapped struct,
	// and the number of rows matching params.Where across all pages.
	Query(ctx context.Context, tableName string, params QueryParams) (
		results []any,
		totalCount int,
		err error,
	)

	Close() error
}

// rowSchema maps column names to the struct fields they are scanned into.
type rowSchema struct {
	structType reflect.Type
	fieldIndex map[string]int
}

func newRowSchema(sampleEntry any) *rowSchema {
	t := reflect.TypeOf(sampleEntry)
	s := &rowSchema{
		structType: t,
		fieldIndex: make(map[string]int, t.NumField()),
	}

	for i := 0; i < t.NumField(); i++ {
		s.fieldIndex[t.Field(i).Name] = i
	}

	return s
}

// scan reads the current row into a new struct. Columns without a matching
// field are dropped.
func (s *rowSchema) scan(rows *sql.Rows, columns []string) (any, error) {
	row := reflect.New(s.structType)
	targets := make([]any, len(columns))

	for i, col := range columns {
		idx, ok := s.fieldIndex[col]
		if !ok {
			targets[i] = new(any)
			continue
		}

		targets[i] = row.Elem().Field(idx).Addr().Interface()
	}

	if err := rows.Scan(targets...); err != nil {
		return nil, err
	}

	return row.Interface(), nil
}

type sqliteReader struct {
	db      *sql.DB
	schemas map[string]*rowSchema
}

// NewReader opens an existing database file read-only.
func NewReader(dbFilename string) (DataReader, error) {
	if _, err := os.Stat(dbFilename); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", "file:"+dbFilename+"?mode=ro")
	if err != nil {
		return nil, err
	}

	return NewReaderWithDB(db), nil
}

// NewReaderWithDB creates a DataReader on an open database.
func NewReaderWithDB(db *sql.DB) DataReader {
	return &sqliteReader{
		db:      db,
		schemas: make(map[string]*rowSchema),
	}
}

func (r *sqliteReader) MapTable(tableName string, sampleEntry any) {
	r.schemas[tableName] = newRowSchema(sampleEntry)
}

func (r *sqliteReader) ListTables() []string {
	tables := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		tables = append(tables, name)
	}

	sort.Strings(tables)

	return tables
}

func (r *sqliteReader) Query(
	ctx context.Context,
	tableName string,
	params QueryParams,
) ([]any, int, error) {
	schema, ok := r.schemas[tableName]
	if !ok {
		return nil, 0, fmt.Errorf("table %s is not mapped", tableName)
	}

	var total int

	countSQL := params.statement("COUNT(*)", tableName, false)
	err := r.db.QueryRowContext(ctx, countSQL, params.Args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		params.statement("*", tableName, true), params.Args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, 0, err
	}

	results := []any{}
	for rows.Next() {
		row, err := schema.scan(rows, columns)
		if err != nil {
			return nil, 0, err
		}

		results = append(results, row)
	}

	return results, total, rows.Err()
}

func (r *sqliteReader) Close() error {
	return r.db.Close()
}
