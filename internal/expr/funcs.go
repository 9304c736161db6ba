package expr

import (
	"strings"

	"github.com/nanodb-project/nanodb/internal/nerr"
)

// callScalar evaluates a non-aggregate function call. Aggregate calls never
// reach here at runtime: the planner's AggregateRewriter replaces them with
// generated column references before a plan tree is ever evaluated.
func callScalar(name string, args []any) (any, error) {
	switch strings.ToUpper(name) {
	case "LOWER":
		s, ok := arg0String(args)
		if !ok {
			return nil, nil
		}
		return strings.ToLower(s), nil
	case "UPPER":
		s, ok := arg0String(args)
		if !ok {
			return nil, nil
		}
		return strings.ToUpper(s), nil
	case "LENGTH":
		s, ok := arg0String(args)
		if !ok {
			return nil, nil
		}
		return int64(len(s)), nil
	case "COALESCE":
		for _, a := range args {
			if a != nil {
				return a, nil
			}
		}
		return nil, nil
	case "ABS":
		if len(args) != 1 || args[0] == nil {
			return nil, nil
		}
		f, ok := asNumber(args[0])
		if !ok {
			return nil, nerr.ErrTypeMismatch("ABS requires a numeric argument")
		}
		if f < 0 {
			f = -f
		}
		if isIntLike(args[0]) {
			return int64(f), nil
		}
		return f, nil
	default:
		return nil, nerr.ErrUnsupportedConstruct("function " + name)
	}
}

func arg0String(args []any) (string, bool) {
	if len(args) != 1 || args[0] == nil {
		return "", false
	}
	s, ok := args[0].(string)
	return s, ok
}
