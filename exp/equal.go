package exp

import (
	"fmt"
	"math"
	"time"

	"github.com/calumari/testequals"
	"github.com/shopspring/decimal"

	"github.com/calumari/dbrider/dataset"
)

// Equal reports whether actual equals expected under the literal rules of
// testequals: booleans, strings and numbers never compare equal across
// kinds, and numbers compare by value regardless of their Go kind. On top of
// that []byte compares with string by content, decimal.Decimal compares with
// numbers and numeric strings, and time.Time uses Equal.
func Equal(expected, actual any) bool {
	return testequals.Test(literalRule{want: expected}, actual) == nil
}

type literalRule struct {
	want any
}

var _ testequals.Rule = literalRule{}

func (r literalRule) Test(rc *testequals.RuleContext, actual any) error {
	if isDecimal(r.want) || isDecimal(actual) {
		want, wok := decimalOperand(r.want)
		got, aok := decimalOperand(actual)
		if !wok || !aok {
			return fmt.Errorf("expected decimal %v, got (%T)%v", r.want, actual, actual)
		}
		if !want.Equal(got) {
			return fmt.Errorf("expected decimal %s, got %s", want, got)
		}
		return nil
	}
	switch want := r.want.(type) {
	case time.Time:
		got, ok := actual.(time.Time)
		if !ok || !want.Equal(got) {
			return fmt.Errorf("expected time %s, got (%T)%v", want, actual, actual)
		}
		return nil
	case []byte:
		return rc.Test(string(want), text(actual))
	case string:
		return rc.Test(want, text(actual))
	}
	return rc.Test(r.want, actual)
}

// refRule defers to a predicate bound to the actual row under comparison.
type refRule struct {
	name string
	pred Predicate
	row  dataset.Row
}

var _ testequals.Rule = refRule{}

func (r refRule) Test(_ *testequals.RuleContext, actual any) error {
	if r.pred == nil {
		return fmt.Errorf("%w: %q", ErrUnknownPredicate, r.name)
	}
	if !r.pred(actual, r.row) {
		return fmt.Errorf("predicate %q rejected (%T)%v", r.name, actual, actual)
	}
	return nil
}

func text(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func isDecimal(v any) bool {
	switch v.(type) {
	case decimal.Decimal, *decimal.Decimal:
		return true
	}
	return false
}

// decimalOperand converts a decimal, a numeric string or a Go number.
func decimalOperand(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case decimal.Decimal:
		return t, true
	case *decimal.Decimal:
		if t == nil {
			return decimal.Decimal{}, false
		}
		return *t, true
	case string:
		d, err := decimal.NewFromString(t)
		return d, err == nil
	case []byte:
		d, err := decimal.NewFromString(string(t))
		return d, err == nil
	case float32:
		return decimalOperand(float64(t))
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(t), true
	case uint:
		return decimal.NewFromUint64(uint64(t)), true
	case uint8:
		return decimal.NewFromUint64(uint64(t)), true
	case uint16:
		return decimal.NewFromUint64(uint64(t)), true
	case uint32:
		return decimal.NewFromUint64(uint64(t)), true
	case uint64:
		return decimal.NewFromUint64(t), true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int8:
		return decimal.NewFromInt(int64(t)), true
	case int16:
		return decimal.NewFromInt(int64(t)), true
	case int32:
		return decimal.NewFromInt(int64(t)), true
	case int64:
		return decimal.NewFromInt(t), true
	}
	return decimal.Decimal{}, false
}
