// Package vars expands {name} placeholders inside datasets and arbitrary
// nested row structures.
package vars

import (
	"fmt"
	"regexp"

	"github.com/calumari/dbrider/dataset"
)

var placeholder = regexp.MustCompile(`\{([^{}]+)\}`)

// Substitute returns a copy of v with every {name} placeholder in string
// values replaced by the stringified value of vars[name]. Placeholders in
// variable values are expanded as well, so substituting a result again
// changes nothing. Placeholders without a matching key, or whose expansion
// is cyclic, are left verbatim. Non-string scalars pass through unchanged
// and the input is never mutated.
func Substitute(v any, vars map[string]any) any {
	switch t := v.(type) {
	case string:
		return substituteString(t, vars)
	case dataset.Dataset:
		if t == nil {
			return t
		}
		out := make(dataset.Dataset, len(t))
		for table, rows := range t {
			out[table] = substituteRows(rows, vars)
		}
		return out
	case []dataset.Row:
		return substituteRows(t, vars)
	case dataset.Row:
		return substituteRow(t, vars)
	case map[string]any:
		if t == nil {
			return t
		}
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = Substitute(val, vars)
		}
		return out
	case []map[string]any:
		if t == nil {
			return t
		}
		out := make([]map[string]any, len(t))
		for i, m := range t {
			out[i] = Substitute(m, vars).(map[string]any)
		}
		return out
	case []any:
		if t == nil {
			return t
		}
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Substitute(val, vars)
		}
		return out
	default:
		return v
	}
}

// Apply is the typed form of Substitute.
func Apply[T any](v T, vars map[string]any) T {
	out, ok := Substitute(v, vars).(T)
	if !ok {
		return v
	}
	return out
}

func substituteRows(rows []dataset.Row, vars map[string]any) []dataset.Row {
	if rows == nil {
		return nil
	}
	out := make([]dataset.Row, len(rows))
	for i, r := range rows {
		out[i] = substituteRow(r, vars)
	}
	return out
}

func substituteRow(r dataset.Row, vars map[string]any) dataset.Row {
	if r == nil {
		return nil
	}
	out := make(dataset.Row, len(r))
	for col, val := range r {
		out[col] = Substitute(val, vars)
	}
	return out
}

func substituteString(s string, vars map[string]any) string {
	if len(vars) == 0 {
		return s
	}
	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		if out, ok := expand(m[1:len(m)-1], vars, map[string]bool{}); ok {
			return out
		}
		return m
	})
}

// expand renders vars[name], expanding placeholders inside string values
// too. It fails for unknown names and for names whose expansion refers back
// to itself.
func expand(name string, vars map[string]any, visiting map[string]bool) (string, bool) {
	val, ok := vars[name]
	if !ok || visiting[name] {
		return "", false
	}
	if val == nil {
		return "", true
	}
	visiting[name] = true
	defer delete(visiting, name)

	failed := false
	out := placeholder.ReplaceAllStringFunc(fmt.Sprint(val), func(m string) string {
		inner := m[1 : len(m)-1]
		if _, known := vars[inner]; !known {
			return m
		}
		rendered, ok := expand(inner, vars, visiting)
		if !ok {
			failed = true
			return m
		}
		return rendered
	})
	return out, !failed
}
