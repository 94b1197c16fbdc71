package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/calumari/dbrider/schema"
)

var ErrUnsupportedDialect = errors.New("unsupported dialect")

// Querier is the subset of *sql.DB used for introspection.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Dialect captures the SQL differences between engines.
type Dialect interface {
	Name() string
	// Quote quotes an identifier.
	Quote(ident string) string
	// Placeholder returns the n-th (1-based) bind parameter.
	Placeholder(n int) string
	// InsertDefaults returns a statement inserting a row with no explicit
	// columns into the quoted table.
	InsertDefaults(table string) string
	Introspect(ctx context.Context, q Querier) (*schema.Catalog, error)
}

var (
	SQLite   Dialect = sqliteDialect{}
	Postgres Dialect = postgresDialect{}
	MySQL    Dialect = mysqlDialect{}
)

// DialectFor maps a database/sql driver name to its dialect.
func DialectFor(driverName string) (Dialect, error) {
	switch strings.ToLower(driverName) {
	case "sqlite3", "sqlite":
		return SQLite, nil
	case "pgx", "pgx/v5", "postgres", "postgresql":
		return Postgres, nil
	case "mysql":
		return MySQL, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDialect, driverName)
	}
}

func quoteWith(ident string, q string) string {
	return q + strings.ReplaceAll(ident, q, q+q) + q
}

// introspectInformationSchema runs the three queries shared by engines that
// expose information_schema. Each query yields table names, (table, column)
// pairs and (table, column, ref table, ref column) tuples respectively.
func introspectInformationSchema(ctx context.Context, q Querier, tablesQuery, columnsQuery, fkQuery string) (*schema.Catalog, error) {
	c := &schema.Catalog{Columns: make(map[string][]string)}

	err := queryEach(ctx, q, tablesQuery, func(rows *sql.Rows) error {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		c.Tables = append(c.Tables, name)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	err = queryEach(ctx, q, columnsQuery, func(rows *sql.Rows) error {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return err
		}
		c.Columns[table] = append(c.Columns[table], column)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}

	err = queryEach(ctx, q, fkQuery, func(rows *sql.Rows) error {
		var fk schema.ForeignKey
		if err := rows.Scan(&fk.Table, &fk.Column, &fk.RefTable, &fk.RefColumn); err != nil {
			return err
		}
		c.ForeignKeys = append(c.ForeignKeys, fk)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list foreign keys: %w", err)
	}
	return c, nil
}

func queryEach(ctx context.Context, q Querier, query string, fn func(*sql.Rows) error) error {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
