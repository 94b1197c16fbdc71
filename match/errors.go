package match

import (
	"errors"
	"fmt"
	"strings"

	"github.com/calumari/testequals"
	"github.com/go-json-experiment/json"

	"github.com/calumari/dbrider/exp"
)

var (
	ErrRowCount         = errors.New("row count mismatch")
	ErrNoMatch          = errors.New("no matching row")
	ErrUnknownPredicate = exp.ErrUnknownPredicate
)

// Error describes why a table did not match its expected rows.
type Error struct {
	Table string
	// Row is the index of the offending expected row, -1 for table level
	// failures such as ErrRowCount.
	Row   int
	Field string
	// Expected and Actual hold row counts for ErrRowCount. For ErrNoMatch
	// they hold the expected row and the closest actual row, if any.
	Expected any
	Actual   any
	// Mismatch is the first failing comparison against Actual.
	Mismatch *testequals.MismatchError
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "match %q: ", e.Table)
	switch {
	case errors.Is(e.Err, ErrRowCount):
		fmt.Fprintf(&b, "%v: expected %v rows, got %v", e.Err, e.Expected, e.Actual)
	case errors.Is(e.Err, ErrNoMatch):
		fmt.Fprintf(&b, "expected row %d %s: %v", e.Row, render(e.Expected), e.Err)
		if e.Actual != nil {
			fmt.Fprintf(&b, " (closest %s", render(e.Actual))
			if e.Mismatch != nil {
				fmt.Fprintf(&b, " differs at %q: %s", e.Field, e.Mismatch.Message)
			}
			b.WriteString(")")
		}
	default:
		if e.Row >= 0 {
			fmt.Fprintf(&b, "expected row %d ", e.Row)
		}
		if e.Field != "" {
			fmt.Fprintf(&b, "field %q ", e.Field)
		}
		fmt.Fprintf(&b, "%v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// render formats v as deterministic JSON, falling back to %v.
func render(v any) string {
	b, err := json.Marshal(v, json.Deterministic(true))
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
