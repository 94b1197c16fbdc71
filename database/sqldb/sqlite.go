package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/calumari/dbrider/schema"
)

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) Quote(ident string) string { return quoteWith(ident, `"`) }

func (sqliteDialect) Placeholder(int) string { return "?" }

func (sqliteDialect) InsertDefaults(table string) string {
	return "INSERT INTO " + table + " DEFAULT VALUES"
}

// Introspect reads sqlite_master in creation order, then the column and
// foreign key pragmas of each table.
func (d sqliteDialect) Introspect(ctx context.Context, q Querier) (*schema.Catalog, error) {
	c := &schema.Catalog{Columns: make(map[string][]string)}

	const tablesQuery = `SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY rowid`
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

	// The table list must be closed before the pragmas run: in-memory
	// databases are usually limited to one open connection.
	for _, table := range c.Tables {
		err := queryEach(ctx, q, fmt.Sprintf("PRAGMA table_info(%s)", d.Quote(table)), func(rows *sql.Rows) error {
			var (
				cid, notNull, pk int
				name             string
				typ              sql.NullString
				dflt             any
			)
			if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
				return err
			}
			c.Columns[table] = append(c.Columns[table], name)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("table info %q: %w", table, err)
		}

		err = queryEach(ctx, q, fmt.Sprintf("PRAGMA foreign_key_list(%s)", d.Quote(table)), func(rows *sql.Rows) error {
			var (
				id, seq                     int
				ref, from                   string
				to                          sql.NullString
				onUpdate, onDelete, matchBy any
			)
			if err := rows.Scan(&id, &seq, &ref, &from, &to, &onUpdate, &onDelete, &matchBy); err != nil {
				return err
			}
			c.ForeignKeys = append(c.ForeignKeys, schema.ForeignKey{
				Table:     table,
				Column:    from,
				RefTable:  ref,
				RefColumn: to.String,
			})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("foreign keys %q: %w", table, err)
		}
	}
	return c, nil
}
