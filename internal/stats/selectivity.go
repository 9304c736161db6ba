package stats

import "github.com/nanodb-project/nanodb/internal/schema"

// CompareOp names the comparison a single-column conjunct applies.
type CompareOp int

const (
	Eq CompareOp = iota
	Ne
	Lt
	Le
	Gt
	Ge
)

// NeutralSelectivity is used by the planner for conjuncts that reference two
// columns, or no column at all, where no single-column statistic applies.
const NeutralSelectivity = neutralSelectivity

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// EqualitySelectivity estimates sel(X = v) = 1/V(X), per spec §4.5.
func EqualitySelectivity(cs ColumnStats) float64 {
	if cs.Distinct <= 0 {
		return NeutralSelectivity
	}
	return clamp01(1.0 / cs.Distinct)
}

// InequalitySelectivity estimates sel(X <> v) = 1 - 1/V(X).
func InequalitySelectivity(cs ColumnStats) float64 {
	return clamp01(1 - EqualitySelectivity(cs))
}

// RangeSelectivity estimates sel(X op v) for op in {<,<=,>,>=} as
// clamp01((MAX-v)/(MAX-MIN)) for > and >=, and its complement for < and <=.
func RangeSelectivity(op CompareOp, v any, cs ColumnStats, t schema.ColumnType) float64 {
	if !cs.HasMinMax || cs.Min == nil || cs.Max == nil {
		return NeutralSelectivity
	}
	minF, okMin := asFloat(cs.Min, t)
	maxF, okMax := asFloat(cs.Max, t)
	vF, okV := asFloat(v, t)
	if !okMin || !okMax || !okV || maxF == minF {
		return NeutralSelectivity
	}
	switch op {
	case Gt, Ge:
		return clamp01((maxF - vF) / (maxF - minF))
	case Lt, Le:
		return clamp01((vF - minF) / (maxF - minF))
	default:
		return NeutralSelectivity
	}
}

// IsNullSelectivity estimates sel(X IS NULL) = N(X)/T.
func IsNullSelectivity(cs ColumnStats, tupleCount int64) float64 {
	if tupleCount <= 0 {
		return 0
	}
	return clamp01(float64(cs.Nulls) / float64(tupleCount))
}

// IsNotNullSelectivity estimates sel(X IS NOT NULL) = 1 - N(X)/T.
func IsNotNullSelectivity(cs ColumnStats, tupleCount int64) float64 {
	return clamp01(1 - IsNullSelectivity(cs, tupleCount))
}

// AndSelectivity combines independent selectivities by multiplication.
func AndSelectivity(sels ...float64) float64 {
	p := 1.0
	for _, s := range sels {
		p *= s
	}
	return clamp01(p)
}

// OrSelectivity combines independent selectivities by inclusion-exclusion:
// 1 - (1-a)(1-b)...
func OrSelectivity(sels ...float64) float64 {
	p := 1.0
	for _, s := range sels {
		p *= 1 - s
	}
	return clamp01(1 - p)
}

// NotSelectivity negates a selectivity: 1 - a.
func NotSelectivity(sel float64) float64 {
	return clamp01(1 - sel)
}

// UpdateAfterEquality tightens a column's statistics after a filter
// `X = v`: V collapses to 1, MIN and MAX both become v.
func UpdateAfterEquality(cs *ColumnStats, v any) {
	cs.Distinct = 1
	if cs.HasMinMax {
		cs.Min, cs.Max = v, v
	}
}

// UpdateAfterRange tightens a column's MIN/MAX toward v after a filter
// `X op v`, per spec §4.5's "shrink MIN/MAX toward the comparison value".
func UpdateAfterRange(cs *ColumnStats, op CompareOp, v any, t schema.ColumnType) {
	if !cs.HasMinMax || cs.Min == nil || cs.Max == nil {
		return
	}
	switch op {
	case Gt, Ge:
		if schema.Compare(v, cs.Min, t) > 0 {
			cs.Min = v
		}
	case Lt, Le:
		if schema.Compare(v, cs.Max, t) < 0 {
			cs.Max = v
		}
	}
}

func asFloat(v any, t schema.ColumnType) (float64, bool) {
	coerced, err := schema.Coerce(v, t)
	if err != nil || coerced == nil {
		return 0, false
	}
	switch x := coerced.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}
