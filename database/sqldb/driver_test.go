package sqldb_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calumari/dbrider/database"
	"github.com/calumari/dbrider/database/sqldb"
	"github.com/calumari/dbrider/dataset"
	"github.com/calumari/dbrider/schema"
)

const ddl = `
CREATE TABLE users (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	age INTEGER
);
CREATE TABLE statuses (
	id INTEGER PRIMARY KEY,
	user_id INTEGER NOT NULL REFERENCES users(id),
	enabled BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE TABLE tags (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	label TEXT DEFAULT 'none'
);`

// newDriver opens a private in-memory database with foreign keys enforced.
func newDriver(t *testing.T) *sqldb.Driver {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := sql.Open("sqlite3", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(ddl)
	require.NoError(t, err)
	return sqldb.NewDriver(db, sqldb.SQLite)
}

func TestDriver_Introspect(t *testing.T) {
	t.Run("sqlite schema returns catalog", func(t *testing.T) {
		d := newDriver(t)
		got, err := d.Introspect(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"users", "statuses", "tags"}, got.Tables)
		assert.Equal(t, []string{"id", "name", "age"}, got.Columns["users"])
		assert.Equal(t, []string{"id", "user_id", "enabled"}, got.Columns["statuses"])
		assert.Equal(t, []schema.ForeignKey{
			{Table: "statuses", Column: "user_id", RefTable: "users", RefColumn: "id"},
		}, got.ForeignKeys)
	})
}

func TestDriver_InsertFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("inserted rows are fetched back", func(t *testing.T) {
		d := newDriver(t)
		users := []dataset.Row{
			{"id": int64(1), "name": "John", "age": int64(30)},
			{"id": int64(2), "name": "Trevor", "age": nil},
		}
		require.NoError(t, d.Insert(ctx, "users", users))
		require.NoError(t, d.Insert(ctx, "statuses", []dataset.Row{
			{"id": int64(1), "user_id": int64(1), "enabled": true},
		}))

		got, err := d.Fetch(ctx, "users")
		require.NoError(t, err)
		assert.ElementsMatch(t, users, got)

		statuses, err := d.Fetch(ctx, "statuses")
		require.NoError(t, err)
		assert.Equal(t, []dataset.Row{{"id": int64(1), "user_id": int64(1), "enabled": true}}, statuses)
	})

	t.Run("omitted columns use defaults", func(t *testing.T) {
		d := newDriver(t)
		require.NoError(t, d.Insert(ctx, "tags", []dataset.Row{{}, {"label": "x"}}))

		got, err := d.Fetch(ctx, "tags")
		require.NoError(t, err)
		assert.ElementsMatch(t, []dataset.Row{
			{"id": int64(1), "label": "none"},
			{"id": int64(2), "label": "x"},
		}, got)
	})

	t.Run("foreign key violation returns storage error", func(t *testing.T) {
		d := newDriver(t)
		err := d.Insert(ctx, "statuses", []dataset.Row{{"id": int64(1), "user_id": int64(99)}})
		require.Error(t, err)
		var derr *database.Error
		require.True(t, errors.As(err, &derr))
		assert.Equal(t, "statuses", derr.Table)
		assert.Equal(t, 0, derr.Row)
	})

	t.Run("empty table returns no rows", func(t *testing.T) {
		d := newDriver(t)
		got, err := d.Fetch(ctx, "users")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("missing table returns storage error", func(t *testing.T) {
		d := newDriver(t)
		_, err := d.Fetch(ctx, "ghosts")
		var derr *database.Error
		require.True(t, errors.As(err, &derr))
		assert.Equal(t, "fetch", derr.Op)
	})
}

func TestDriver_Clear(t *testing.T) {
	ctx := context.Background()
	d := newDriver(t)
	require.NoError(t, d.Insert(ctx, "users", []dataset.Row{{"id": int64(1), "name": "John"}}))
	require.NoError(t, d.Insert(ctx, "statuses", []dataset.Row{{"id": int64(1), "user_id": int64(1)}}))

	t.Run("parent with children returns storage error", func(t *testing.T) {
		err := d.Clear(ctx, "users")
		var derr *database.Error
		require.True(t, errors.As(err, &derr))
		assert.Equal(t, "clear", derr.Op)
	})

	t.Run("children then parent empties both", func(t *testing.T) {
		require.NoError(t, d.Clear(ctx, "statuses"))
		require.NoError(t, d.Clear(ctx, "users"))
		got, err := d.Fetch(ctx, "users")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestDriver_Exec(t *testing.T) {
	ctx := context.Background()

	t.Run("script runs every statement", func(t *testing.T) {
		d := newDriver(t)
		err := d.Exec(ctx, `
			INSERT INTO users (id, name) VALUES (1, 'John');
			INSERT INTO users (id, name) VALUES (2, 'Bob');
			UPDATE users SET age = 40;`)
		require.NoError(t, err)

		got, err := d.Fetch(ctx, "users")
		require.NoError(t, err)
		assert.Len(t, got, 2)
		for _, r := range got {
			assert.Equal(t, int64(40), r["age"])
		}
	})

	t.Run("invalid statement returns storage error", func(t *testing.T) {
		d := newDriver(t)
		err := d.Exec(ctx, "UPDATE ghosts SET x = 1")
		var derr *database.Error
		require.True(t, errors.As(err, &derr))
		assert.Equal(t, "exec", derr.Op)
	})
}

func TestOpen(t *testing.T) {
	t.Run("pure go sqlite driver returns working driver", func(t *testing.T) {
		d, err := sqldb.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
		require.NoError(t, err)
		t.Cleanup(func() { _ = d.Close() })
		assert.Equal(t, sqldb.SQLite, d.Dialect())

		ctx := context.Background()
		require.NoError(t, d.Exec(ctx, "CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT)"))
		require.NoError(t, d.Insert(ctx, "items", []dataset.Row{{"id": int64(7), "name": "lamp"}}))

		got, err := d.Fetch(ctx, "items")
		require.NoError(t, err)
		assert.Equal(t, []dataset.Row{{"id": int64(7), "name": "lamp"}}, got)

		c, err := d.Introspect(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"items"}, c.Tables)
	})

	t.Run("unknown driver returns error", func(t *testing.T) {
		_, err := sqldb.Open("oracle", "x")
		assert.ErrorIs(t, err, sqldb.ErrUnsupportedDialect)
	})
}
