package dbrider_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calumari/dbrider"
	"github.com/calumari/dbrider/dataset"
	"github.com/calumari/dbrider/exp"
	"github.com/calumari/dbrider/loader"
	"github.com/calumari/dbrider/match"
)

func newHandler(t *testing.T, e *dbrider.Executor, cfg dbrider.Config) *dbrider.Handler {
	t.Helper()
	l, err := loader.Default()
	require.NoError(t, err)
	return dbrider.NewHandler(cfg, l, e, match.New(e), dbrider.WithBaseDir("testdata"))
}

func bobPredicates() exp.Predicates {
	return exp.Predicates{
		"bob_id": func(v any, row dataset.Row) bool {
			return row["name"] == "Bob" && exp.Equal(2, v)
		},
	}
}

func TestHandler(t *testing.T) {
	t.Run("full lifecycle returns no error", func(t *testing.T) {
		e, db := newExecutor(t)
		require.NoError(t, e.InsertRecords(t.Context(), seed()))

		h := newHandler(t, e, dbrider.Config{
			DatasetPaths:         []string{"datasets/handler.yaml"},
			Variables:            map[string]any{"bob_id": 2, "bob_name": "Bob"},
			CleanupBefore:        true,
			ScriptsBefore:        []string{"sql/before.sql"},
			StatementsBefore:     []string{"UPDATE users SET age = 50 WHERE id = 3"},
			ScriptsAfter:         []string{"sql/after.sql"},
			StatementsAfter:      []string{"DELETE FROM users WHERE id = 4"},
			ExpectedDatasetPaths: []string{"expected_datasets/handler.yaml"},
			Predicates:           bobPredicates(),
		})

		require.NoError(t, h.Before(t.Context()))
		assert.Equal(t, 4, count(t, db, "users"))
		assert.Equal(t, 1, count(t, db, "statuses"))

		bob, err := e.FetchAll(t.Context(), "users")
		require.NoError(t, err)
		assert.Contains(t, bob, dataset.Row{"id": int64(2), "name": "Bob", "age": nil})
		assert.Contains(t, bob, dataset.Row{"id": int64(3), "name": "Carol", "age": int64(50)})

		require.NoError(t, h.After(t.Context()))
	})

	t.Run("json expected dataset with directive returns no error", func(t *testing.T) {
		e, _ := newExecutor(t)
		h := newHandler(t, e, dbrider.Config{
			DatasetProviders: []dbrider.Provider{func() dataset.Dataset {
				return dataset.Dataset{"users": {
					{"id": int64(1), "name": "John"},
					{"id": int64(2), "name": "{bob_name}"},
					{"id": int64(3), "name": "Carol"},
				}}
			}},
			Variables:            map[string]any{"bob_name": "Bob"},
			ExpectedDatasetPaths: []string{"expected_datasets/handler.json"},
			Predicates:           bobPredicates(),
		})
		require.NoError(t, h.Before(t.Context()))
		require.NoError(t, h.After(t.Context()))
	})

	t.Run("paths and providers are merged", func(t *testing.T) {
		e, db := newExecutor(t)
		h := newHandler(t, e, dbrider.Config{
			DatasetPaths: []string{"datasets/users.json"},
			DatasetProviders: []dbrider.Provider{
				func() dataset.Dataset {
					return dataset.Dataset{"statuses": {{"id": int64(9), "user_id": int64(2)}}}
				},
				nil,
			},
		})
		require.NoError(t, h.Before(t.Context()))
		assert.Equal(t, 2, count(t, db, "users"))
		assert.Equal(t, 1, count(t, db, "statuses"))
	})

	t.Run("cleanup after with table list keeps other tables", func(t *testing.T) {
		e, db := newExecutor(t)
		require.NoError(t, e.InsertRecords(t.Context(), seed()))
		h := newHandler(t, e, dbrider.Config{
			CleanupAfter:  true,
			CleanupTables: []string{"statuses"},
			ExpectedDatasetProviders: []dbrider.Provider{func() dataset.Dataset {
				return dataset.Dataset{
					"statuses": {},
					"users":    {{"name": "John"}, {"name": "Trevor"}},
				}
			}},
		})
		require.NoError(t, h.After(t.Context()))
		assert.Equal(t, 0, count(t, db, "statuses"))
		assert.Equal(t, 2, count(t, db, "users"))
	})

	t.Run("expectation mismatch returns match error", func(t *testing.T) {
		e, _ := newExecutor(t)
		require.NoError(t, e.InsertRecords(t.Context(), seed()))
		h := newHandler(t, e, dbrider.Config{
			ExpectedDatasetProviders: []dbrider.Provider{func() dataset.Dataset {
				return dataset.Dataset{"users": {{"name": "John"}, {"name": "Bob"}}}
			}},
		})
		err := h.After(t.Context())
		var merr *dbrider.MatchError
		require.True(t, errors.As(err, &merr))
		assert.Equal(t, "users", merr.Table)
		assert.ErrorIs(t, err, dbrider.ErrNoMatch)
	})

	t.Run("empty config changes nothing", func(t *testing.T) {
		e, db := newExecutor(t)
		require.NoError(t, e.InsertRecords(t.Context(), seed()))
		h := newHandler(t, e, dbrider.Config{})
		require.NoError(t, h.Before(t.Context()))
		require.NoError(t, h.After(t.Context()))
		assert.Equal(t, 2, count(t, db, "users"))
		assert.Equal(t, 2, count(t, db, "statuses"))
	})

	t.Run("missing variables leave placeholders verbatim", func(t *testing.T) {
		e, _ := newExecutor(t)
		h := newHandler(t, e, dbrider.Config{
			DatasetProviders: []dbrider.Provider{func() dataset.Dataset {
				return dataset.Dataset{"users": {{"id": int64(1), "name": "{bob_name}"}}}
			}},
		})
		require.NoError(t, h.Before(t.Context()))
		rows, err := e.FetchAll(t.Context(), "users")
		require.NoError(t, err)
		assert.Equal(t, "{bob_name}", rows[0]["name"])
	})

	t.Run("unsupported dataset format returns error", func(t *testing.T) {
		e, _ := newExecutor(t)
		h := newHandler(t, e, dbrider.Config{DatasetPaths: []string{"datasets/users.csv"}})
		err := h.Before(t.Context())
		var ferr *dbrider.UnsupportedFormatError
		require.True(t, errors.As(err, &ferr))
		assert.Equal(t, "csv", ferr.Ext)
	})

	t.Run("missing script aborts before inserting", func(t *testing.T) {
		e, db := newExecutor(t)
		h := newHandler(t, e, dbrider.Config{
			ScriptsBefore: []string{"sql/missing.sql"},
			DatasetPaths:  []string{"datasets/users.json"},
		})
		require.Error(t, h.Before(t.Context()))
		assert.Equal(t, 0, count(t, db, "users"))
	})

	t.Run("failing statement returns storage error", func(t *testing.T) {
		e, _ := newExecutor(t)
		h := newHandler(t, e, dbrider.Config{StatementsAfter: []string{"UPDATE ghosts SET x = 1"}})
		err := h.After(t.Context())
		var serr *dbrider.StorageError
		assert.True(t, errors.As(err, &serr))
	})

	t.Run("unknown predicate returns match error", func(t *testing.T) {
		e, _ := newExecutor(t)
		require.NoError(t, e.InsertRecords(t.Context(), seed()))
		h := newHandler(t, e, dbrider.Config{
			ExpectedDatasetProviders: []dbrider.Provider{func() dataset.Dataset {
				return dataset.Dataset{"users": {{"id": "matcher:nope"}, {"id": int64(2)}}}
			}},
		})
		assert.ErrorIs(t, h.After(t.Context()), dbrider.ErrUnknownPredicate)
	})
}
