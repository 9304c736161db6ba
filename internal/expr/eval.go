package expr

import (
	"strings"

	"github.com/nanodb-project/nanodb/internal/nerr"
	"github.com/nanodb-project/nanodb/internal/schema"
)

func asNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case float64:
		return x, true
	case float32:
		return float64(x), true
	default:
		return 0, false
	}
}

func isIntLike(v any) bool {
	switch v.(type) {
	case int64, int:
		return true
	default:
		return false
	}
}

func evalUnary(op string, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch op {
	case "NOT":
		b, ok := v.(bool)
		if !ok {
			return nil, nerr.ErrTypeMismatch("NOT requires a boolean operand")
		}
		return !b, nil
	case "-":
		n, ok := asNumber(v)
		if !ok {
			return nil, nerr.ErrTypeMismatch("unary - requires a numeric operand")
		}
		if isIntLike(v) {
			return int64(-n), nil
		}
		return -n, nil
	case "+":
		return v, nil
	default:
		return nil, nerr.ErrUnsupportedConstruct("unary operator " + op)
	}
}

func evalAnd(l, r any) any {
	lb, lok := l.(bool)
	rb, rok := r.(bool)
	switch {
	case lok && !lb, rok && !rb:
		return false
	case lok && rok:
		return lb && rb
	default:
		return nil // NULL propagation
	}
}

func evalOr(l, r any) any {
	lb, lok := l.(bool)
	rb, rok := r.(bool)
	switch {
	case lok && lb, rok && rb:
		return true
	case lok && rok:
		return lb || rb
	default:
		return nil
	}
}

func evalBinary(op string, l, r any) (any, error) {
	switch op {
	case "=", "<>", "!=", "<", "<=", ">", ">=":
		if l == nil || r == nil {
			return nil, nil
		}
		c, ok := CompareRuntime(l, r)
		if !ok {
			return nil, nerr.ErrTypeMismatch("operands to %s are not comparable", op)
		}
		switch op {
		case "=":
			return c == 0, nil
		case "<>", "!=":
			return c != 0, nil
		case "<":
			return c < 0, nil
		case "<=":
			return c <= 0, nil
		case ">":
			return c > 0, nil
		case ">=":
			return c >= 0, nil
		}
	case "+", "-", "*", "/", "%":
		if l == nil || r == nil {
			return nil, nil
		}
		return evalArith(op, l, r)
	case "||":
		if l == nil || r == nil {
			return nil, nil
		}
		ls, ok1 := l.(string)
		rs, ok2 := r.(string)
		if !ok1 || !ok2 {
			return nil, nerr.ErrTypeMismatch("|| requires string operands")
		}
		return ls + rs, nil
	}
	return nil, nerr.ErrUnsupportedConstruct("binary operator " + op)
}

func evalArith(op string, l, r any) (any, error) {
	lf, lok := asNumber(l)
	rf, rok := asNumber(r)
	if !lok || !rok {
		return nil, nerr.ErrTypeMismatch("arithmetic requires numeric operands")
	}
	bothInt := isIntLike(l) && isIntLike(r)

	var result float64
	switch op {
	case "+":
		result = lf + rf
	case "-":
		result = lf - rf
	case "*":
		result = lf * rf
	case "/":
		if rf == 0 {
			return nil, nerr.ErrDivideByZero()
		}
		result = lf / rf
		bothInt = false // division always promotes to float, matching SQL's numeric division semantics here
	case "%":
		if rf == 0 {
			return nil, nerr.ErrDivideByZero()
		}
		result = float64(int64(lf) % int64(rf))
	}
	if bothInt {
		return int64(result), nil
	}
	return result, nil
}

// CompareRuntime orders two non-NULL runtime values of compatible kinds.
// ok is false if the values aren't comparable (e.g. a string vs a number).
// Exported for internal/plan's Sort node, which orders arbitrary projected
// expression results rather than schema-typed column values.
func CompareRuntime(a, b any) (c int, ok bool) {
	if as, aok := a.(string); aok {
		if bs, bok := b.(string); bok {
			return schema.CompareStrings(as, bs), true
		}
		return 0, false
	}
	if ab, aok := a.(bool); aok {
		if bb, bok := b.(bool); bok {
			switch {
			case ab == bb:
				return 0, true
			case !ab:
				return -1, true
			default:
				return 1, true
			}
		}
		return 0, false
	}
	af, aok := asNumber(a)
	bf, bok := asNumber(b)
	if !aok || !bok {
		return 0, false
	}
	switch {
	case af < bf:
		return -1, true
	case af > bf:
		return 1, true
	default:
		return 0, true
	}
}

// matchLike implements SQL LIKE pattern matching with "%" (any run) and "_"
// (any single character) wildcards, no escape character.
func matchLike(s, pattern string) bool {
	return likeMatch(s, pattern)
}

func likeMatch(s, pattern string) bool {
	// Classic DP-free recursive matcher; patterns here are short (column
	// literals), so recursion depth is not a concern.
	if pattern == "" {
		return s == ""
	}
	switch pattern[0] {
	case '%':
		if likeMatch(s, pattern[1:]) {
			return true
		}
		for i := 0; i < len(s); i++ {
			if likeMatch(s[i+1:], pattern[1:]) {
				return true
			}
		}
		return false
	case '_':
		if len(s) == 0 {
			return false
		}
		return likeMatch(s[1:], pattern[1:])
	default:
		if len(s) == 0 || !strings.HasPrefix(s, pattern[:1]) {
			return false
		}
		return likeMatch(s[1:], pattern[1:])
	}
}
