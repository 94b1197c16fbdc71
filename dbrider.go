// Package dbrider seeds relational databases from declarative datasets
// before a test and verifies their contents afterwards.
//
// An Executor owns a database.Driver and knows, after Init, the order in
// which tables can be filled and emptied without violating foreign keys. A
// Handler runs the before and after phases of one fixture described by a
// Config.
package dbrider

import (
	"context"
	"fmt"

	"github.com/calumari/jwalk"
	"github.com/rs/zerolog"

	"github.com/calumari/dbrider/database"
	"github.com/calumari/dbrider/dataset"
	"github.com/calumari/dbrider/schema"
)

// Registrar is implemented by drivers that contribute JSON directives for
// their own value types.
type Registrar interface {
	RegisterTypes(*jwalk.Registry) error
}

type Options struct {
	Logger zerolog.Logger
}

type Option func(*Options)

func WithLogger(l zerolog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// Executor runs fixture operations in foreign key order. It assumes
// exclusive use of its driver and is not safe for concurrent use.
type Executor struct {
	driver database.Driver
	logger zerolog.Logger

	catalog *schema.Catalog
	order   *schema.Order
}

var _ Registrar = (*Executor)(nil)

func New(driver database.Driver, opts ...Option) *Executor {
	op := &Options{Logger: zerolog.Nop()}
	for _, o := range opts {
		o(op)
	}
	return &Executor{
		driver: driver,
		logger: op.Logger,
	}
}

// Init introspects the schema and computes the table order. Calls after the
// first successful one are no-ops.
func (e *Executor) Init(ctx context.Context) error {
	if e.order != nil {
		return nil
	}
	c, err := e.driver.Introspect(ctx)
	if err != nil {
		return &schema.Error{Op: "introspect", Err: fmt.Errorf("%w: %w", schema.ErrIntrospection, err)}
	}
	order, err := schema.Sort(c)
	if err != nil {
		return err
	}
	e.catalog, e.order = c, order
	e.logger.Debug().Strs("insertion_order", order.Insertion()).Msg("schema initialized")
	return nil
}

// Catalog returns the introspected schema, or nil before Init.
func (e *Executor) Catalog() *schema.Catalog {
	return e.catalog
}

// Order returns the table order, or nil before Init.
func (e *Executor) Order() *schema.Order {
	return e.order
}

// FetchAll returns every row of table. After Init, tables outside the
// catalog fail with schema.ErrUnknownTable.
func (e *Executor) FetchAll(ctx context.Context, table string) ([]dataset.Row, error) {
	if e.order != nil && !e.order.Contains(table) {
		return nil, &schema.Error{Op: "fetch", Tables: []string{table}, Err: schema.ErrUnknownTable}
	}
	return e.driver.Fetch(ctx, table)
}

// InsertRecords inserts ds table by table in insertion order, each table's
// rows in the order given. Unknown tables are rejected before any row is
// written. The first failing row aborts the operation.
func (e *Executor) InsertRecords(ctx context.Context, ds dataset.Dataset) error {
	if err := e.requireInit("insert"); err != nil {
		return err
	}
	tables, err := e.order.InsertionOf(ds.Tables())
	if err != nil {
		return err
	}
	for _, table := range tables {
		rows := ds[table]
		if len(rows) == 0 {
			continue
		}
		e.logger.Debug().Str("table", table).Int("rows", len(rows)).Msg("insert")
		if err := e.driver.Insert(ctx, table, rows); err != nil {
			return database.Wrap("insert", table, -1, err)
		}
	}
	return nil
}

// CleanupTables deletes every row of the given tables, children first. With
// no tables it empties the whole catalog.
func (e *Executor) CleanupTables(ctx context.Context, tables ...string) error {
	if err := e.requireInit("cleanup"); err != nil {
		return err
	}
	order := e.order.Cleanup()
	if len(tables) > 0 {
		var err error
		if order, err = e.order.CleanupOf(tables); err != nil {
			return err
		}
	}
	e.logger.Debug().Strs("tables", order).Msg("cleanup")
	for _, table := range order {
		if err := e.driver.Clear(ctx, table); err != nil {
			return database.Wrap("clear", table, -1, err)
		}
	}
	return nil
}

// ExecuteQuery runs a single raw statement.
func (e *Executor) ExecuteQuery(ctx context.Context, stmt string) error {
	e.logger.Debug().Str("statement", stmt).Msg("execute query")
	return database.Wrap("exec", "", -1, e.driver.Exec(ctx, stmt))
}

// ExecuteScript runs raw script text verbatim.
func (e *Executor) ExecuteScript(ctx context.Context, script string) error {
	e.logger.Debug().Int("bytes", len(script)).Msg("execute script")
	return database.Wrap("exec", "", -1, e.driver.Exec(ctx, script))
}

// Snapshot fetches every catalog table.
func (e *Executor) Snapshot(ctx context.Context) (dataset.Dataset, error) {
	if err := e.requireInit("snapshot"); err != nil {
		return nil, err
	}
	out := make(dataset.Dataset, len(e.catalog.Tables))
	for _, table := range e.order.Insertion() {
		rows, err := e.driver.Fetch(ctx, table)
		if err != nil {
			return nil, err
		}
		out[table] = rows
	}
	return out, nil
}

// RegisterTypes forwards to the driver when it is a Registrar.
func (e *Executor) RegisterTypes(reg *jwalk.Registry) error {
	if r, ok := e.driver.(Registrar); ok {
		return r.RegisterTypes(reg)
	}
	return nil
}

func (e *Executor) requireInit(op string) error {
	if e.order == nil {
		return &schema.Error{Op: op, Err: schema.ErrNotInitialized}
	}
	return nil
}
