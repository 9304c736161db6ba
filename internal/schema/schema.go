package schema

import (
	"strings"

	"github.com/nanodb-project/nanodb/internal/nerr"
)

// ColumnRef names a column by table qualifier (optional) and name, used to
// describe primary/unique/foreign key column sets and index descriptors.
type ColumnRef struct {
	TableName string
	ColName   string
}

// IndexDesc describes a named index over one or more columns (used only for
// introspection here; the B+Tree index implementation itself is out of
// scope).
type IndexDesc struct {
	Name    string
	Columns []ColumnRef
	Unique  bool
}

// ForeignKeyDesc records a foreign-key relationship.
type ForeignKeyDesc struct {
	Columns    []ColumnRef
	RefTable   string
	RefColumns []string
}

// Schema is an ordered list of column descriptors plus the index structures
// spec.md §3 requires: a table-name set, case-insensitive column lookup,
// and primary/unique/foreign key column-ref sets.
//
// Column names are unique within an (unqualified) group per table
// qualifier; comparisons are case-insensitive and stored lowercased.
type Schema struct {
	Columns []ColumnInfo

	tableNames map[string]bool
	// byName maps lower-cased unqualified name -> indices (can be >1 across
	// different table qualifiers, which is what makes bare references
	// ambiguous).
	byName map[string][]int
	// byQualified maps lower-cased "table.column" -> index.
	byQualified map[string]int

	PrimaryKey []ColumnRef
	Unique     [][]ColumnRef
	ForeignKey []ForeignKeyDesc
	Indexes    []IndexDesc
}

// New builds a Schema from an ordered column list, building all lookup
// indexes.
func New(cols []ColumnInfo) *Schema {
	s := &Schema{
		Columns:     cols,
		tableNames:  make(map[string]bool),
		byName:      make(map[string][]int),
		byQualified: make(map[string]int),
	}
	s.reindex()
	return s
}

func (s *Schema) reindex() {
	s.tableNames = make(map[string]bool)
	s.byName = make(map[string][]int)
	s.byQualified = make(map[string]int)
	for i, c := range s.Columns {
		lname := strings.ToLower(c.Name)
		s.byName[lname] = append(s.byName[lname], i)
		if c.TableName != "" {
			s.tableNames[strings.ToLower(c.TableName)] = true
			s.byQualified[strings.ToLower(c.TableName)+"."+lname] = i
		}
	}
}

// NumColumns returns the column count.
func (s *Schema) NumColumns() int { return len(s.Columns) }

// TableNames returns the set of (lower-cased) table qualifiers present.
func (s *Schema) TableNames() []string {
	out := make([]string, 0, len(s.tableNames))
	for t := range s.tableNames {
		out = append(out, t)
	}
	return out
}

// Resolve finds the column index for a possibly-qualified reference,
// returning nerr.ErrUnknownColumn or nerr.ErrAmbiguousColumn on failure.
func (s *Schema) Resolve(table, col string) (int, error) {
	lcol := strings.ToLower(col)
	if table != "" {
		idx, ok := s.byQualified[strings.ToLower(table)+"."+lcol]
		if !ok {
			return -1, nerr.ErrUnknownColumn(table + "." + col)
		}
		return idx, nil
	}
	matches, ok := s.byName[lcol]
	if !ok || len(matches) == 0 {
		return -1, nerr.ErrUnknownColumn(col)
	}
	if len(matches) > 1 {
		return -1, nerr.ErrAmbiguousColumn(col)
	}
	return matches[0], nil
}

// ConcatSchemas returns a new Schema that is the column-wise concatenation
// of s and other, used when building join output schemas.
func ConcatSchemas(s, other *Schema) *Schema {
	cols := make([]ColumnInfo, 0, s.NumColumns()+other.NumColumns())
	cols = append(cols, s.Columns...)
	cols = append(cols, other.Columns...)
	return New(cols)
}

// Rename returns a copy of s with every column's TableName replaced by
// newQualifier (spec §4.6 Rename plan node).
func (s *Schema) Rename(newQualifier string) *Schema {
	cols := make([]ColumnInfo, len(s.Columns))
	for i, c := range s.Columns {
		c.TableName = newQualifier
		cols[i] = c
	}
	return New(cols)
}

// Clone returns a deep-enough copy of s (columns copied, indexes rebuilt).
func (s *Schema) Clone() *Schema {
	cols := make([]ColumnInfo, len(s.Columns))
	copy(cols, s.Columns)
	out := New(cols)
	out.PrimaryKey = append([]ColumnRef(nil), s.PrimaryKey...)
	out.Unique = append([][]ColumnRef(nil), s.Unique...)
	out.ForeignKey = append([]ForeignKeyDesc(nil), s.ForeignKey...)
	out.Indexes = append([]IndexDesc(nil), s.Indexes...)
	return out
}
