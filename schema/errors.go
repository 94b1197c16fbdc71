package schema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCyclicDependency = errors.New("cyclic dependency")
	ErrUnknownTable     = errors.New("unknown table")
	ErrNotInitialized   = errors.New("schema not initialized")
	ErrIntrospection    = errors.New("introspection failed")
)

// Error reports a failure to learn or order the schema.
type Error struct {
	Op     string
	Tables []string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("schema")
	if e.Op != "" {
		fmt.Fprintf(&b, " %s", e.Op)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	if len(e.Tables) > 0 {
		fmt.Fprintf(&b, " (tables: %s)", strings.Join(e.Tables, ", "))
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}
