// Package database defines the storage contract the fixture executor runs
// against.
package database

import (
	"context"

	"github.com/calumari/dbrider/dataset"
	"github.com/calumari/dbrider/schema"
)

// Driver is a live database connection. Implementations are used by one
// fixture at a time and need no internal locking.
type Driver interface {
	// Introspect lists tables, columns and foreign keys.
	Introspect(ctx context.Context) (*schema.Catalog, error)
	// Fetch returns every row and column of table.
	Fetch(ctx context.Context, table string) ([]dataset.Row, error)
	// Insert writes rows into table in the order given, using exactly the
	// columns present in each row.
	Insert(ctx context.Context, table string, rows []dataset.Row) error
	// Clear deletes every row of table.
	Clear(ctx context.Context, table string) error
	// Exec runs a raw statement or script verbatim.
	Exec(ctx context.Context, query string) error
}
