package heap

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"

	"github.com/nanodb-project/nanodb/internal/nerr"
	"github.com/nanodb-project/nanodb/internal/schema"
	"github.com/nanodb-project/nanodb/internal/stats"
)

// headerContentOff is where heap-specific header content begins on page 0,
// just past the generic file-type/page-size bytes internal/page owns.
const headerContentOff = 2

// schemaSnapshot is the gob-serializable form of a *schema.Schema — Schema
// itself carries unexported lookup indexes that reindex() rebuilds on load.
type schemaSnapshot struct {
	Columns    []schema.ColumnInfo
	PrimaryKey []schema.ColumnRef
	Unique     [][]schema.ColumnRef
	ForeignKey []schema.ForeignKeyDesc
	Indexes    []schema.IndexDesc
}

// header is everything a heap file persists into its page-0 header, beyond
// the generic type/page-size bytes: the table's schema and its latest
// analyzed statistics (spec.md: "Stats are persisted into the header page
// alongside the schema").
//
// Grounded on the teacher's internal/storage/db.go, which gob-encodes
// catalog/table metadata to disk the same way.
type header struct {
	Schema schemaSnapshot
	Stats  stats.TableStats
}

func snapshotSchema(sch *schema.Schema) schemaSnapshot {
	return schemaSnapshot{
		Columns:    sch.Columns,
		PrimaryKey: sch.PrimaryKey,
		Unique:     sch.Unique,
		ForeignKey: sch.ForeignKey,
		Indexes:    sch.Indexes,
	}
}

func (s schemaSnapshot) toSchema() *schema.Schema {
	sch := schema.New(s.Columns)
	sch.PrimaryKey = s.PrimaryKey
	sch.Unique = s.Unique
	sch.ForeignKey = s.ForeignKey
	sch.Indexes = s.Indexes
	return sch
}

// encodeHeader serializes h with a uint32 length prefix, so it can be
// written starting at headerContentOff within page 0's fixed-size buffer.
func encodeHeader(h *header) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(h); err != nil {
		return nil, nerr.Wrap(nerr.Storage, err, "encode heap file header")
	}
	body := buf.Bytes()
	out := make([]byte, 4+len(body))
	binary.LittleEndian.PutUint32(out, uint32(len(body)))
	copy(out[4:], body)
	return out, nil
}

// decodeHeader reads a header previously written by encodeHeader from
// page0[headerContentOff:].
func decodeHeader(page0 []byte) (*header, error) {
	region := page0[headerContentOff:]
	if len(region) < 4 {
		return nil, nerr.New(nerr.Storage, "truncated heap file header")
	}
	l := binary.LittleEndian.Uint32(region)
	if int(l) > len(region)-4 {
		return nil, nerr.New(nerr.Storage, "corrupt heap file header length")
	}
	var h header
	if err := gob.NewDecoder(bytes.NewReader(region[4 : 4+l])).Decode(&h); err != nil {
		return nil, nerr.Wrap(nerr.Storage, err, "decode heap file header")
	}
	return &h, nil
}
