// Package match verifies that database tables hold the rows of an expected
// dataset, comparing fields literally or through named predicates.
package match

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/calumari/testequals"
	"github.com/rs/zerolog"

	"github.com/calumari/dbrider/dataset"
	"github.com/calumari/dbrider/exp"
	"github.com/calumari/dbrider/schema"
)

// Fetcher reads the current rows of a table.
type Fetcher interface {
	FetchAll(ctx context.Context, table string) ([]dataset.Row, error)
}

type Options struct {
	Exhaustive bool
	Logger     zerolog.Logger
}

type Option func(*Options)

// WithExhaustive pairs rows with a maximum bipartite matching instead of
// first fit, so ambiguous predicates cannot cause a spurious mismatch.
func WithExhaustive() Option {
	return func(o *Options) { o.Exhaustive = true }
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

type Matcher struct {
	fetcher    Fetcher
	exhaustive bool
	logger     zerolog.Logger

	tester *testequals.Tester
	diag   *testequals.Tester
}

func New(f Fetcher, opts ...Option) *Matcher {
	op := &Options{Logger: zerolog.Nop()}
	for _, o := range opts {
		o(op)
	}
	return &Matcher{
		fetcher:    f,
		exhaustive: op.Exhaustive,
		logger:     op.Logger,
		tester:     testequals.New(),
		diag:       testequals.New(testequals.WithCollectAll()),
	}
}

// MatchesDataset decodes a loaded dataset and verifies it.
func (m *Matcher) MatchesDataset(ctx context.Context, expected dataset.Dataset, preds exp.Predicates) error {
	return m.Matches(ctx, exp.Decode(expected), preds)
}

// Matches checks every table of expected, in name order. Each table must
// hold exactly as many rows as expected and every expected row must pair
// with a distinct actual row. Columns the expected row does not name are
// ignored, as are tables expected does not name. A table unknown to the
// fetcher counts as empty.
func (m *Matcher) Matches(ctx context.Context, expected exp.Dataset, preds exp.Predicates) error {
	for _, table := range slices.Sorted(maps.Keys(expected)) {
		if err := m.matchTable(ctx, table, expected[table], preds); err != nil {
			return err
		}
	}
	return nil
}

func (m *Matcher) matchTable(ctx context.Context, table string, expected []exp.Row, preds exp.Predicates) error {
	actual, err := m.fetcher.FetchAll(ctx, table)
	if err != nil {
		if !errors.Is(err, schema.ErrUnknownTable) {
			return fmt.Errorf("fetch %q: %w", table, err)
		}
		actual = nil
	}

	if len(actual) != len(expected) {
		return &Error{Table: table, Row: -1, Expected: len(expected), Actual: len(actual), Err: ErrRowCount}
	}
	if err := checkReferences(table, expected, preds); err != nil {
		return err
	}

	var unmatched int
	if m.exhaustive {
		unmatched = m.pairExhaustive(expected, actual, preds)
	} else {
		unmatched = m.pairGreedy(expected, actual, preds)
	}
	if unmatched >= 0 {
		return m.noMatch(table, unmatched, expected[unmatched], actual, preds)
	}
	m.logger.Debug().Str("table", table).Int("rows", len(expected)).Msg("table matched")
	return nil
}

// checkReferences fails on the first reference to an unregistered predicate,
// before any row is paired.
func checkReferences(table string, expected []exp.Row, preds exp.Predicates) error {
	for i, row := range expected {
		for _, field := range sortedFields(row) {
			v := row[field]
			if v.IsRef() && preds[v.Name()] == nil {
				return &Error{
					Table: table,
					Row:   i,
					Field: field,
					Err:   fmt.Errorf("%w: %q", ErrUnknownPredicate, v.Name()),
				}
			}
		}
	}
	return nil
}

// pairGreedy gives each expected row the first unconsumed actual row it
// matches. It returns the index of the first expected row left without a
// partner, or -1.
func (m *Matcher) pairGreedy(expected []exp.Row, actual []dataset.Row, preds exp.Predicates) int {
	used := make([]bool, len(actual))
	for i, e := range expected {
		found := false
		for j, a := range actual {
			if used[j] {
				continue
			}
			if m.rowMatches(e, a, preds) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return i
		}
	}
	return -1
}

// pairExhaustive computes a maximum matching with augmenting paths and
// returns the first expected row it leaves unpaired, or -1.
func (m *Matcher) pairExhaustive(expected []exp.Row, actual []dataset.Row, preds exp.Predicates) int {
	compat := make([][]bool, len(expected))
	for i, e := range expected {
		compat[i] = make([]bool, len(actual))
		for j, a := range actual {
			compat[i][j] = m.rowMatches(e, a, preds)
		}
	}

	owner := make([]int, len(actual))
	for j := range owner {
		owner[j] = -1
	}
	var augment func(i int, seen []bool) bool
	augment = func(i int, seen []bool) bool {
		for j, ok := range compat[i] {
			if !ok || seen[j] {
				continue
			}
			seen[j] = true
			if owner[j] < 0 || augment(owner[j], seen) {
				owner[j] = i
				return true
			}
		}
		return false
	}
	paired := make([]bool, len(expected))
	for i := range expected {
		paired[i] = augment(i, make([]bool, len(actual)))
	}
	// A later augmenting path never unpairs an already paired row, so
	// paired reflects the final matching.
	for i, ok := range paired {
		if !ok {
			return i
		}
	}
	return -1
}

// rowMatches reports whether a holds every field of e. Columns e does not
// name are ignored by the subset semantics of testequals documents.
func (m *Matcher) rowMatches(e exp.Row, a dataset.Row, preds exp.Predicates) bool {
	return m.tester.Test(e.Document(a, preds), a.Document()) == nil
}

// noMatch builds the error for an unpaired expected row, pointing at the
// actual row with the fewest mismatching fields.
func (m *Matcher) noMatch(table string, idx int, e exp.Row, actual []dataset.Row, preds exp.Predicates) *Error {
	err := &Error{Table: table, Row: idx, Expected: e, Err: ErrNoMatch}
	best := -1
	for _, a := range actual {
		var mismatches []*testequals.MismatchError
		var multi *testequals.MultiError
		if errors.As(m.diag.Test(e.Document(a, preds), a.Document()), &multi) {
			mismatches = multi.Mismatches
		}
		if best >= 0 && len(mismatches) >= best {
			continue
		}
		best = len(mismatches)
		err.Actual = a
		err.Field, err.Mismatch = "", nil
		if len(mismatches) > 0 {
			err.Mismatch = mismatches[0]
			err.Field = fieldOf(mismatches[0])
		}
	}
	return err
}

// fieldOf returns the top-level column a mismatch path starts with.
func fieldOf(m *testequals.MismatchError) string {
	if len(m.Path) == 0 {
		return ""
	}
	return strings.TrimPrefix(m.Path[0], ".")
}

func sortedFields(r exp.Row) []string {
	return slices.Sorted(maps.Keys(r))
}
