package schema

import (
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// collator provides locale-aware, case-insensitive string ordering for
// CHAR/VARCHAR MIN/MAX tracking and ORDER BY, instead of a naive byte
// compare. Grounded on the teacher's own direct (otherwise unused)
// golang.org/x/text requirement, and on the collation-table concern shown
// in firefly-oss-flydb/internal/storage/collation.go from the wider corpus.
var (
	collatorOnce sync.Once
	collator     *collate.Collator
)

func getCollator() *collate.Collator {
	collatorOnce.Do(func() {
		collator = collate.New(language.Und, collate.IgnoreCase)
	})
	return collator
}

// CompareStrings orders two strings using NanoDB's default collation.
func CompareStrings(a, b string) int {
	return getCollator().CompareString(a, b)
}

// Compare orders two column values of the same ColumnType. NULLs sort
// before all non-NULL values. Returns <0, 0, or >0.
func Compare(a, b any, t ColumnType) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	switch t.Kind {
	case TChar, TVarChar, TDate, TTime, TTimestamp:
		as, _ := coerceString(a)
		bs, _ := coerceString(b)
		return CompareStrings(as, bs)
	case TBool:
		ab, _ := coerceBool(a)
		bb, _ := coerceBool(b)
		if ab == bb {
			return 0
		}
		if !ab {
			return -1
		}
		return 1
	case TNumeric:
		an, _ := coerceNumeric(a, t)
		bn, _ := coerceNumeric(b, t)
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		default:
			return 0
		}
	default:
		af, _ := coerceFloat(a)
		bf, _ := coerceFloat(b)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
}
