package exp

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/calumari/dbrider/dataset"
)

// Expr compiles a CEL expression into a Predicate. The expression sees the
// actual field as `value` and the whole actual row as `row`, and must
// evaluate to a bool:
//
//	value > 0 && row.name == "John"
//
// Evaluation errors and non-bool results count as a failed match.
func Expr(src string) (Predicate, error) {
	env, err := cel.NewEnv(
		cel.Variable("value", cel.DynType),
		cel.Variable("row", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}
	ast, issues := env.Compile(src)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile %q: %w", src, issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", src, err)
	}
	return func(actual any, row dataset.Row) bool {
		out, _, err := prg.Eval(map[string]any{
			"value": celValue(actual),
			"row":   celRow(row),
		})
		if err != nil {
			return false
		}
		ok, _ := out.Value().(bool)
		return ok
	}, nil
}

// MustExpr is like Expr but panics on compile errors.
func MustExpr(src string) Predicate {
	p, err := Expr(src)
	if err != nil {
		panic(err)
	}
	return p
}

func celRow(row dataset.Row) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = celValue(v)
	}
	return out
}

// celValue maps values the CEL adapter does not know into ones it does.
func celValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case int:
		return int64(t)
	case int8, int16, int32, uint, uint8, uint16, uint32, uint64:
		return dataset.Normalize(t)
	case []byte:
		return string(t)
	case dataset.Row:
		return celRow(t)
	default:
		return v
	}
}
