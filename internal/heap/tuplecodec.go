// Package heap implements NanoDB's Heap Tuple File (spec §4.3): a slotted,
// paged sequential file of tuples for one table.
//
// Grounded on the teacher's internal/storage/pager/slotted_page.go
// (slot directory growing forward, record bytes growing backward from the
// end of the page, tombstone-on-delete, in-place-vs-relocate update) and
// internal/storage/pager/row_codec.go (null-bitmap-plus-packed-columns wire
// format), adapted from row_codec's self-describing type-tagged stream to a
// schema-driven encoding: spec.md ties a tuple's byte layout to its table's
// schema, so a slot stores only a start offset — the encoded length is
// recovered by walking the schema's columns (fixed widths, including
// space-padded CHAR, or a length prefix for VARCHAR/DATE/TIME/TIMESTAMP
// text), not stored separately.
package heap

import (
	"encoding/binary"
	"math"

	"github.com/nanodb-project/nanodb/internal/nerr"
	"github.com/nanodb-project/nanodb/internal/schema"
)

// nullBitmapBytes returns the byte length of the null bitmap for n columns.
func nullBitmapBytes(n int) int { return (n + 7) / 8 }

func bitSet(bitmap []byte, i int) bool {
	return bitmap[i/8]&(1<<uint(i%8)) != 0
}

func setBit(bitmap []byte, i int) {
	bitmap[i/8] |= 1 << uint(i%8)
}

// EncodeTuple serializes values (per sch's column order) into a tuple's
// on-disk byte representation: a leading null bitmap, followed by each
// non-null column's encoded bytes (fixed-width columns write their raw
// bytes; variable-width columns write a uint16 length prefix then the
// bytes).
func EncodeTuple(sch *schema.Schema, values []any) ([]byte, error) {
	n := sch.NumColumns()
	bitmapLen := nullBitmapBytes(n)
	out := make([]byte, bitmapLen)

	for i, col := range sch.Columns {
		v := values[i]
		if v == nil {
			setBit(out, i)
			continue
		}
		coerced, err := schema.Coerce(v, col.Type)
		if err != nil {
			return nil, nerr.Wrap(nerr.Storage, err, "encode column %s", col.QualifiedName())
		}
		enc, err := encodeValue(coerced, col.Type)
		if err != nil {
			return nil, nerr.Wrap(nerr.Storage, err, "encode column %s", col.QualifiedName())
		}
		out = append(out, enc...)
	}
	return out, nil
}

func encodeValue(v any, t schema.ColumnType) ([]byte, error) {
	if width, ok := t.FixedWidth(); ok {
		switch t.Kind {
		case schema.TInt:
			b := make([]byte, 4)
			binary.LittleEndian.PutUint32(b, uint32(int32(v.(int64))))
			return b, nil
		case schema.TBigInt, schema.TNumeric:
			b := make([]byte, 8)
			binary.LittleEndian.PutUint64(b, uint64(v.(int64)))
			return b, nil
		case schema.TFloat:
			b := make([]byte, 4)
			binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v.(float64))))
			return b, nil
		case schema.TDouble:
			b := make([]byte, 8)
			binary.LittleEndian.PutUint64(b, math.Float64bits(v.(float64)))
			return b, nil
		case schema.TBool:
			if v.(bool) {
				return []byte{1}, nil
			}
			return []byte{0}, nil
		case schema.TChar:
			s := v.(string)
			b := make([]byte, width)
			copy(b, s)
			for i := len(s); i < width; i++ {
				b[i] = ' '
			}
			return b, nil
		}
	}
	// Variable-width text: VARCHAR, DATE, TIME, TIMESTAMP.
	s := v.(string)
	prefix := make([]byte, 2)
	binary.LittleEndian.PutUint16(prefix, uint16(len(s)))
	return append(prefix, []byte(s)...), nil
}

// DecodeTuple reads one tuple starting at buf[0], returning its values (per
// sch's column order) and the number of bytes consumed.
func DecodeTuple(sch *schema.Schema, buf []byte) ([]any, int, error) {
	n := sch.NumColumns()
	bitmapLen := nullBitmapBytes(n)
	if len(buf) < bitmapLen {
		return nil, 0, nerr.New(nerr.Storage, "truncated tuple: missing null bitmap")
	}
	bitmap := buf[:bitmapLen]
	off := bitmapLen
	values := make([]any, n)

	for i, col := range sch.Columns {
		if bitSet(bitmap, i) {
			values[i] = nil
			continue
		}
		v, consumed, err := decodeValue(buf[off:], col.Type)
		if err != nil {
			return nil, 0, nerr.Wrap(nerr.Storage, err, "decode column %s", col.QualifiedName())
		}
		values[i] = v
		off += consumed
	}
	return values, off, nil
}

func decodeValue(buf []byte, t schema.ColumnType) (any, int, error) {
	if width, ok := t.FixedWidth(); ok {
		if len(buf) < width {
			return nil, 0, nerr.New(nerr.Storage, "truncated tuple: missing %d bytes for %s", width, t)
		}
		switch t.Kind {
		case schema.TInt:
			return int64(int32(binary.LittleEndian.Uint32(buf))), width, nil
		case schema.TBigInt, schema.TNumeric:
			return int64(binary.LittleEndian.Uint64(buf)), width, nil
		case schema.TFloat:
			return float64(math.Float32frombits(binary.LittleEndian.Uint32(buf))), width, nil
		case schema.TDouble:
			return math.Float64frombits(binary.LittleEndian.Uint64(buf)), width, nil
		case schema.TBool:
			return buf[0] != 0, width, nil
		case schema.TChar:
			return trimTrailingSpaces(string(buf[:width])), width, nil
		}
	}
	if len(buf) < 2 {
		return nil, 0, nerr.New(nerr.Storage, "truncated tuple: missing length prefix")
	}
	l := int(binary.LittleEndian.Uint16(buf))
	if len(buf) < 2+l {
		return nil, 0, nerr.New(nerr.Storage, "truncated tuple: missing %d bytes of text", l)
	}
	return string(buf[2 : 2+l]), 2 + l, nil
}

func trimTrailingSpaces(s string) string {
	i := len(s)
	for i > 0 && s[i-1] == ' ' {
		i--
	}
	return s[:i]
}
