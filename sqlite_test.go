package dbrider_test

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/calumari/dbrider"
	"github.com/calumari/dbrider/database/sqldb"
)

// statuses is created first so insertion order differs from creation order.
const ddl = `
CREATE TABLE statuses (
	id INTEGER PRIMARY KEY,
	user_id INTEGER NOT NULL REFERENCES users(id),
	status TEXT,
	enabled BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE TABLE users (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	age INTEGER
);`

// newExecutor returns an initialized executor over a private in-memory
// database with foreign keys enforced.
func newExecutor(t *testing.T) (*dbrider.Executor, *sql.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := sql.Open("sqlite3", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(ddl)
	require.NoError(t, err)

	e := dbrider.New(sqldb.NewDriver(db, sqldb.SQLite))
	require.NoError(t, e.Init(t.Context()))
	return e, db
}

func count(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}
