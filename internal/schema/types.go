// Package schema implements NanoDB's column/type/tuple model (spec §3,
// §4.3 partial).
//
// Grounded on the teacher repository's internal/storage/db.go ColType /
// Column / Table shapes (lower-cased name-index map, ColIndex, String()
// methods), narrowed to the column types spec.md actually names and
// extended with the table-qualifier and constraint indexes spec.md §3
// requires.
package schema

import "fmt"

// TypeKind enumerates the column data types spec.md names.
type TypeKind int

const (
	TInt TypeKind = iota
	TBigInt
	TFloat
	TDouble
	TChar    // fixed-width, space-padded
	TVarChar // variable-width, length-prefixed
	TBool
	TDate
	TTime
	TTimestamp
	TNumeric // fixed precision/scale decimal
)

var kindNames = map[TypeKind]string{
	TInt: "INT", TBigInt: "BIGINT", TFloat: "FLOAT", TDouble: "DOUBLE",
	TChar: "CHAR", TVarChar: "VARCHAR", TBool: "BOOL", TDate: "DATE",
	TTime: "TIME", TTimestamp: "TIMESTAMP", TNumeric: "NUMERIC",
}

func (k TypeKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "UNKNOWN"
}

// ColumnType is a fully-parameterized column type.
type ColumnType struct {
	Kind      TypeKind
	Len       int // CHAR(len)
	MaxLen    int // VARCHAR(maxlen)
	Precision int // NUMERIC(precision, scale)
	Scale     int
}

func (t ColumnType) String() string {
	switch t.Kind {
	case TChar:
		return fmt.Sprintf("CHAR(%d)", t.Len)
	case TVarChar:
		return fmt.Sprintf("VARCHAR(%d)", t.MaxLen)
	case TNumeric:
		return fmt.Sprintf("NUMERIC(%d,%d)", t.Precision, t.Scale)
	default:
		return t.Kind.String()
	}
}

// IsOrdered reports whether MIN/MAX tracking is meaningful for this type.
// Per spec §3, MIN/MAX are absent for string types.
func (t ColumnType) IsOrdered() bool {
	switch t.Kind {
	case TChar, TVarChar:
		return false
	default:
		return true
	}
}

// FixedWidth returns the on-disk byte footprint for fixed-width types, and
// ok=false for variable-width ones (VARCHAR, and DATE/TIME/TIMESTAMP, which
// are coerced to and stored as length-prefixed text since this module
// parses neither calendar dates nor durations).
func (t ColumnType) FixedWidth() (n int, ok bool) {
	switch t.Kind {
	case TInt, TFloat:
		return 4, true
	case TBigInt, TDouble:
		return 8, true
	case TBool:
		return 1, true
	case TChar:
		return t.Len, true
	case TNumeric:
		return 8, true // stored as a scaled int64
	default:
		return 0, false
	}
}

// Constraint flags a column's role in a key constraint.
type Constraint int

const (
	NoConstraint Constraint = iota
	PrimaryKey
	Unique
	ForeignKey
)

// ColumnInfo describes one column in a Schema.
type ColumnInfo struct {
	TableName string // optional qualifier; "" if unqualified
	Name      string
	Type      ColumnType
	Nullable  bool
}

// QualifiedName returns "table.column", or bare "column" if unqualified.
func (c ColumnInfo) QualifiedName() string {
	if c.TableName == "" {
		return c.Name
	}
	return c.TableName + "." + c.Name
}
