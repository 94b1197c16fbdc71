// Package dataset holds the table -> rows model shared by loaders, the
// executor and the matcher.
package dataset

import (
	"maps"
	"math"
	"slices"
)

// Row maps a column name to its value.
type Row map[string]any

// Dataset maps a table name to its rows. Row order within a table is the
// insertion order.
type Dataset map[string][]Row

// Tables returns the table names in lexical order.
func (d Dataset) Tables() []string {
	return slices.Sorted(maps.Keys(d))
}

// Len returns the total number of rows across all tables.
func (d Dataset) Len() int {
	n := 0
	for _, rows := range d {
		n += len(rows)
	}
	return n
}

// Clone returns a deep copy of d.
func (d Dataset) Clone() Dataset {
	if d == nil {
		return nil
	}
	out := make(Dataset, len(d))
	for table, rows := range d {
		out[table] = cloneRows(rows)
	}
	return out
}

// Clone returns a deep copy of r.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

// Columns returns the column names of r in lexical order.
func (r Row) Columns() []string {
	return slices.Sorted(maps.Keys(r))
}

// Merge concatenates the rows of every set per table, in argument order.
// Later sets append to earlier ones; nothing is overwritten. The result
// shares no containers with its inputs.
func Merge(sets ...Dataset) Dataset {
	merged := make(Dataset)
	for _, set := range sets {
		for table, rows := range set {
			merged[table] = append(merged[table], cloneRows(rows)...)
		}
	}
	return merged
}

func cloneRows(rows []Row) []Row {
	if rows == nil {
		return nil
	}
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, vv := range val {
			out[k] = cloneValue(vv)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, vv := range val {
			out[i] = cloneValue(vv)
		}
		return out
	case Row:
		return val.Clone()
	case []byte:
		return slices.Clone(val)
	default:
		return v
	}
}

// Normalize folds every Go integer kind into int64 so values decoded by
// different parsers and drivers share one representation. uint64 values
// beyond math.MaxInt64 are returned unchanged.
func Normalize(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case uint:
		if uint64(n) > math.MaxInt64 {
			return n
		}
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		if n > math.MaxInt64 {
			return n
		}
		return int64(n)
	default:
		return v
	}
}
