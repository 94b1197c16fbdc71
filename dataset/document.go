package dataset

import (
	"fmt"
	"math"

	"github.com/calumari/jwalk"
)

// FromDocument converts a top-level jwalk.Document where each entry is an
// array of documents into a Dataset. Whole JSON numbers become int64.
func FromDocument(root jwalk.Document) (Dataset, error) {
	ds := make(Dataset, len(root))
	for _, entry := range root {
		if entry.Value == nil {
			ds[entry.Key] = nil
			continue
		}
		array, ok := entry.Value.(jwalk.Array)
		if !ok {
			return nil, fmt.Errorf("dataset: table %q expects jwalk.Array, got %T", entry.Key, entry.Value)
		}
		rows := make([]Row, 0, len(array))
		for i, element := range array {
			doc, ok := element.(jwalk.Document)
			if !ok {
				return nil, fmt.Errorf("dataset: table %q index %d expects jwalk.Document, got %T", entry.Key, i, element)
			}
			row := make(Row, len(doc))
			for _, f := range doc {
				row[f.Key] = fromJSONValue(f.Value)
			}
			rows = append(rows, row)
		}
		ds[entry.Key] = append(ds[entry.Key], rows...)
	}
	return ds, nil
}

func fromJSONValue(v any) any {
	switch val := v.(type) {
	case jwalk.Document:
		m := make(map[string]any, len(val))
		for _, f := range val {
			m[f.Key] = fromJSONValue(f.Value)
		}
		return m
	case jwalk.Array:
		arr := make([]any, 0, len(val))
		for _, e := range val {
			arr = append(arr, fromJSONValue(e))
		}
		return arr
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1<<53 {
			return int64(val)
		}
		return val
	default:
		return v
	}
}

// FromMap converts the generic output of a structured-text decoder (a map of
// table name to a list of mappings) into a Dataset.
func FromMap(root map[string]any) (Dataset, error) {
	ds := make(Dataset, len(root))
	for table, raw := range root {
		if raw == nil {
			ds[table] = nil
			continue
		}
		list, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("dataset: table %q expects a list of rows, got %T", table, raw)
		}
		rows := make([]Row, 0, len(list))
		for i, element := range list {
			m, ok := toStringMap(element)
			if !ok {
				return nil, fmt.Errorf("dataset: table %q index %d expects a mapping, got %T", table, i, element)
			}
			row := make(Row, len(m))
			for k, v := range m {
				row[k] = fromGenericValue(v)
			}
			rows = append(rows, row)
		}
		ds[table] = rows
	}
	return ds, nil
}

func fromGenericValue(v any) any {
	if m, ok := toStringMap(v); ok {
		out := make(map[string]any, len(m))
		for k, vv := range m {
			out[k] = fromGenericValue(vv)
		}
		return out
	}
	if arr, ok := v.([]any); ok {
		out := make([]any, len(arr))
		for i, vv := range arr {
			out[i] = fromGenericValue(vv)
		}
		return out
	}
	return Normalize(v)
}

func toStringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Row:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, vv := range m {
			out[fmt.Sprint(k)] = vv
		}
		return out, true
	default:
		return nil, false
	}
}

// ToDocument converts ds to an ordered jwalk.Document: tables by name, and
// within each row, columns by name.
func ToDocument(ds Dataset) jwalk.Document {
	doc := make(jwalk.Document, 0, len(ds))
	for _, table := range ds.Tables() {
		rows := ds[table]
		arr := make(jwalk.Array, 0, len(rows))
		for _, row := range rows {
			arr = append(arr, toRowDocument(row))
		}
		doc = append(doc, jwalk.Entry{Key: table, Value: arr})
	}
	return doc
}

// Document returns r as a flat jwalk.Document, columns by name. Values are
// kept as is.
func (r Row) Document() jwalk.Document {
	doc := make(jwalk.Document, 0, len(r))
	for _, col := range r.Columns() {
		doc = append(doc, jwalk.Entry{Key: col, Value: r[col]})
	}
	return doc
}

func toRowDocument(row map[string]any) jwalk.Document {
	doc := make(jwalk.Document, 0, len(row))
	for _, col := range Row(row).Columns() {
		doc = append(doc, jwalk.Entry{Key: col, Value: toJSONValue(row[col])})
	}
	return doc
}

func toJSONValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return toRowDocument(val)
	case Row:
		return toRowDocument(val)
	case []any:
		arr := make(jwalk.Array, 0, len(val))
		for _, e := range val {
			arr = append(arr, toJSONValue(e))
		}
		return arr
	default:
		return v
	}
}
