// Package sqldb implements database.Driver on top of database/sql for
// SQLite, PostgreSQL and MySQL.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/calumari/dbrider/database"
	"github.com/calumari/dbrider/dataset"
	"github.com/calumari/dbrider/schema"
)

type Options struct {
	Logger zerolog.Logger
}

type Option func(*Options)

func WithLogger(l zerolog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// Driver runs fixture operations against a *sql.DB.
type Driver struct {
	db      *sql.DB
	dialect Dialect
	logger  zerolog.Logger
}

var _ database.Driver = (*Driver)(nil)

// Open opens dsn with the named database/sql driver and selects the
// matching dialect. MySQL DSNs get multiStatements and parseTime enabled so
// scripts run verbatim.
func Open(driverName, dsn string, opts ...Option) (*Driver, error) {
	dialect, err := DialectFor(driverName)
	if err != nil {
		return nil, err
	}
	if dialect == MySQL {
		if dsn, err = mysqlDSN(dsn); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driverName, err)
	}
	return NewDriver(db, dialect, opts...), nil
}

// NewDriver wraps an open database. The caller keeps ownership of db.
func NewDriver(db *sql.DB, dialect Dialect, opts ...Option) *Driver {
	op := &Options{Logger: zerolog.Nop()}
	for _, o := range opts {
		o(op)
	}
	return &Driver{
		db:      db,
		dialect: dialect,
		logger:  op.Logger.With().Str("dialect", dialect.Name()).Logger(),
	}
}

func (d *Driver) DB() *sql.DB { return d.db }

func (d *Driver) Dialect() Dialect { return d.dialect }

func (d *Driver) Close() error { return d.db.Close() }

func (d *Driver) Introspect(ctx context.Context) (*schema.Catalog, error) {
	c, err := d.dialect.Introspect(ctx, d.db)
	if err != nil {
		return nil, err
	}
	d.logger.Debug().Strs("tables", c.Tables).Int("foreign_keys", len(c.ForeignKeys)).Msg("introspected schema")
	return c, nil
}

func (d *Driver) Fetch(ctx context.Context, table string) ([]dataset.Row, error) {
	query := "SELECT * FROM " + d.dialect.Quote(table)
	d.logger.Trace().Str("sql", query).Msg("fetch")
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &database.Error{Op: "fetch", Table: table, Row: -1, Err: err}
	}
	defer rows.Close()

	out, err := scanRows(rows)
	if err != nil {
		return nil, &database.Error{Op: "fetch", Table: table, Row: -1, Err: err}
	}
	return out, nil
}

// Insert runs one INSERT per row. It stops at the first failing row and
// reports its index; rows inserted before the failure are kept.
func (d *Driver) Insert(ctx context.Context, table string, rows []dataset.Row) error {
	quoted := d.dialect.Quote(table)
	for i, row := range rows {
		query, args := d.insertStatement(quoted, row)
		d.logger.Trace().Str("sql", query).Int("row", i).Msg("insert")
		if _, err := d.db.ExecContext(ctx, query, args...); err != nil {
			return &database.Error{Op: "insert", Table: table, Row: i, Err: err}
		}
	}
	return nil
}

func (d *Driver) insertStatement(quotedTable string, row dataset.Row) (string, []any) {
	if len(row) == 0 {
		return d.dialect.InsertDefaults(quotedTable), nil
	}
	columns := row.Columns()
	quotedColumns := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, col := range columns {
		quotedColumns[i] = d.dialect.Quote(col)
		placeholders[i] = d.dialect.Placeholder(i + 1)
		args[i] = row[col]
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quotedTable,
		strings.Join(quotedColumns, ", "),
		strings.Join(placeholders, ", "))
	return query, args
}

func (d *Driver) Clear(ctx context.Context, table string) error {
	query := "DELETE FROM " + d.dialect.Quote(table)
	d.logger.Trace().Str("sql", query).Msg("clear")
	if _, err := d.db.ExecContext(ctx, query); err != nil {
		return &database.Error{Op: "clear", Table: table, Row: -1, Err: err}
	}
	return nil
}

func (d *Driver) Exec(ctx context.Context, query string) error {
	d.logger.Trace().Str("sql", query).Msg("exec")
	if _, err := d.db.ExecContext(ctx, query); err != nil {
		return &database.Error{Op: "exec", Row: -1, Err: err}
	}
	return nil
}

func scanRows(rows *sql.Rows) ([]dataset.Row, error) {
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	out := make([]dataset.Row, 0)
	for rows.Next() {
		scanVals := make([]any, len(colTypes))
		scanPtrs := make([]any, len(colTypes))
		for i := range scanVals {
			scanPtrs[i] = &scanVals[i]
		}
		if err := rows.Scan(scanPtrs...); err != nil {
			return nil, err
		}
		row := make(dataset.Row, len(colTypes))
		for i, ct := range colTypes {
			row[ct.Name()] = normalizeScanned(ct.DatabaseTypeName(), scanVals[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// normalizeScanned turns driver values into the types datasets use: text
// as string, integers as int64 and floats as float64.
func normalizeScanned(typeName string, v any) any {
	b, ok := v.([]byte)
	if !ok {
		return dataset.Normalize(v)
	}
	typ := strings.ToUpper(typeName)
	switch {
	case isBinaryType(typ):
		return b
	case strings.Contains(typ, "INT"):
		if n, err := strconv.ParseInt(string(b), 10, 64); err == nil {
			return n
		}
	case typ == "FLOAT" || typ == "DOUBLE" || typ == "REAL":
		if f, err := strconv.ParseFloat(string(b), 64); err == nil {
			return f
		}
	case isTextType(typ):
		return string(b)
	}
	return b
}

func isBinaryType(typ string) bool {
	for _, t := range []string{"BLOB", "BINARY", "BYTEA"} {
		if strings.Contains(typ, t) {
			return true
		}
	}
	return false
}

func isTextType(typ string) bool {
	for _, t := range []string{"CHAR", "TEXT", "CLOB", "DECIMAL", "NUMERIC", "JSON", "UUID", "ENUM", "SET", "DATE", "TIME", "YEAR"} {
		if strings.Contains(typ, t) {
			return true
		}
	}
	return false
}
