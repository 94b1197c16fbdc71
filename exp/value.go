// Package exp models expected datasets: every field is either a literal to
// compare for equality or a reference to a named predicate.
package exp

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/calumari/jwalk"
	"github.com/calumari/testequals"
	"github.com/go-json-experiment/json"

	"github.com/calumari/dbrider/dataset"
)

// Marker prefixes a string field that delegates its comparison to a named
// predicate, e.g. "matcher: id_matcher".
const Marker = "matcher:"

// ErrUnknownPredicate is returned when a reference names a predicate that is
// not registered.
var ErrUnknownPredicate = errors.New("unknown predicate")

// Predicate reports whether the actual field value is acceptable. row is the
// complete actual row the value belongs to.
type Predicate func(actual any, row dataset.Row) bool

// Predicates maps predicate names to their functions.
type Predicates map[string]Predicate

// Merge returns a new map holding p and every entry of others; later maps
// win on duplicate names.
func (p Predicates) Merge(others ...Predicates) Predicates {
	out := make(Predicates, len(p))
	maps.Copy(out, p)
	for _, o := range others {
		maps.Copy(out, o)
	}
	return out
}

type kind uint8

const (
	literal kind = iota
	reference
)

// Value is an expected field value. The zero Value is the literal nil.
type Value struct {
	kind  kind
	value any
	name  string
}

// Literal returns a Value compared with Equal.
func Literal(v any) Value {
	return Value{kind: literal, value: v}
}

// Ref returns a Value that defers to the predicate registered under name.
func Ref(name string) Value {
	return Value{kind: reference, name: name}
}

// Parse decodes the wire form of an expected field. Strings starting with
// Marker become references; Values pass through; anything else is a
// literal.
func Parse(v any) Value {
	switch t := v.(type) {
	case Value:
		return t
	case *Value:
		if t == nil {
			return Literal(nil)
		}
		return *t
	case string:
		if name, ok := strings.CutPrefix(t, Marker); ok {
			return Ref(strings.TrimSpace(name))
		}
	}
	return Literal(v)
}

func (v Value) IsRef() bool {
	return v.kind == reference
}

// Name returns the referenced predicate name, or "" for literals.
func (v Value) Name() string {
	return v.name
}

// Literal returns the literal value, or nil for references.
func (v Value) Literal() any {
	return v.value
}

// Match compares actual against v. References are resolved in preds.
func (v Value) Match(actual any, row dataset.Row, preds Predicates) (bool, error) {
	if v.kind == reference && preds[v.name] == nil {
		return false, fmt.Errorf("%w: %q", ErrUnknownPredicate, v.name)
	}
	return testequals.Test(v.Rule(row, preds), actual) == nil, nil
}

// Rule returns the testequals rule checking a field of row against v.
func (v Value) Rule(row dataset.Row, preds Predicates) testequals.Rule {
	if v.kind == reference {
		return refRule{name: v.name, pred: preds[v.name], row: row}
	}
	return literalRule{want: v.value}
}

func (v Value) String() string {
	if v.kind == reference {
		return Marker + v.name
	}
	return fmt.Sprintf("%v", v.value)
}

// MarshalJSON renders references in their wire form and literals as is.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == reference {
		return json.Marshal(Marker + v.name)
	}
	return json.Marshal(v.value, json.Deterministic(true))
}

// Row is an expected row.
type Row map[string]Value

// Dataset is an expected dataset.
type Dataset map[string][]Row

// Decode converts a loaded dataset into its expected form.
func Decode(ds dataset.Dataset) Dataset {
	if ds == nil {
		return nil
	}
	out := make(Dataset, len(ds))
	for table, rows := range ds {
		exp := make([]Row, len(rows))
		for i, r := range rows {
			exp[i] = DecodeRow(r)
		}
		out[table] = exp
	}
	return out
}

// Literals converts ds into its expected form without decoding markers:
// every value, including strings starting with Marker, is a literal.
func Literals(ds dataset.Dataset) Dataset {
	if ds == nil {
		return nil
	}
	out := make(Dataset, len(ds))
	for table, rows := range ds {
		exp := make([]Row, len(rows))
		for i, r := range rows {
			row := make(Row, len(r))
			for col, val := range r {
				row[col] = Literal(val)
			}
			exp[i] = row
		}
		out[table] = exp
	}
	return out
}

func DecodeRow(r dataset.Row) Row {
	out := make(Row, len(r))
	for col, val := range r {
		out[col] = Parse(val)
	}
	return out
}

// Document returns r as an expected document for testequals, fields in name
// order and bound to the actual row they are compared with.
func (r Row) Document(actual dataset.Row, preds Predicates) jwalk.Document {
	doc := make(jwalk.Document, 0, len(r))
	for _, field := range slices.Sorted(maps.Keys(r)) {
		doc = append(doc, jwalk.Entry{Key: field, Value: r[field].Rule(actual, preds)})
	}
	return doc
}

// References returns the distinct predicate names referenced by the row.
func (r Row) References() []string {
	var names []string
	seen := make(map[string]bool)
	for _, v := range r {
		if v.IsRef() && !seen[v.name] {
			seen[v.name] = true
			names = append(names, v.name)
		}
	}
	return names
}
