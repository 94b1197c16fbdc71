package database

import (
	"fmt"
	"strings"
)

// Error reports a failure of the underlying storage engine.
type Error struct {
	Op    string // insert, fetch, clear, exec
	Table string
	Row   int // index of the failing row, -1 when not row specific
	Err   error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "storage %s", e.Op)
	if e.Table != "" {
		fmt.Fprintf(&b, " %q", e.Table)
	}
	if e.Row >= 0 {
		fmt.Fprintf(&b, " row %d", e.Row)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap returns err as an *Error unless it is nil or already one.
func Wrap(op, table string, row int, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*Error); ok {
		return err
	}
	return &Error{Op: op, Table: table, Row: row, Err: err}
}
