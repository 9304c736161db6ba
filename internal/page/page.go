// Package page implements NanoDB's Page & File Manager (spec §4.1).
//
// Grounded on the teacher repository's internal/storage/pager/page.go
// (page-size constants, typed pages, page-header byte layout) and
// internal/storage/pager/superblock.go (file-level metadata), trimmed of
// the CRC/LSN/WAL fields that belong to the out-of-scope WAL subsystem:
// spec.md's page 0 holds only a one-byte file type and a one-byte encoded
// page size, not a 32-byte header repeated on every page.
package page

import (
	"fmt"

	"github.com/nanodb-project/nanodb/internal/nerr"
)

const (
	MinPageSize     = 512
	MaxPageSize     = 65536
	DefaultPageSize = 8192

	// page 0 byte layout (spec §6)
	offFileType = 0
	offPageSize = 1
)

// FileType identifies the kind of file a page sequence belongs to (spec §3).
type FileType uint8

const (
	TypeHeapTuple FileType = iota + 1
	TypeBTreeTuple
	TypeWAL
	TypeTxnState
	TypeTest
)

func (t FileType) String() string {
	switch t {
	case TypeHeapTuple:
		return "heap-tuple-file"
	case TypeBTreeTuple:
		return "btree-tuple-file"
	case TypeWAL:
		return "wal-segment"
	case TypeTxnState:
		return "txn-state-file"
	case TypeTest:
		return "test-file"
	default:
		return "unknown"
	}
}

// EncodePageSizeLog2 encodes a page size as log2(pageSize), fitting in one
// byte, failing if pageSize isn't a power of two in [MinPageSize,MaxPageSize].
func EncodePageSizeLog2(pageSize int) (byte, error) {
	if pageSize < MinPageSize || pageSize > MaxPageSize || pageSize&(pageSize-1) != 0 {
		return 0, nerr.ErrBadPageSize(pageSize)
	}
	log2 := 0
	for n := pageSize; n > 1; n >>= 1 {
		log2++
	}
	return byte(log2), nil
}

// DecodePageSizeLog2 reverses EncodePageSizeLog2.
func DecodePageSizeLog2(b byte) int {
	return 1 << uint(b)
}

// Page is an in-memory handle to one fixed-size page of a File.
//
// Per spec §3, a Page carries a file reference, page number, dirty flag,
// pin count, and a copy-on-first-modify shadow of the original bytes (used
// by tests and by whatever WAL implementation plugs into the buffer cache's
// observer hook). The buffer cache is the sole mutator of Pinned.
type Page struct {
	File     *File
	PageNo   uint32
	Data     []byte
	Dirty    bool
	Pinned   int
	shadow   []byte // lazily captured original bytes
}

// newPage allocates a zeroed page buffer of the file's page size.
func newPage(f *File, no uint32) *Page {
	return &Page{File: f, PageNo: no, Data: make([]byte, f.PageSize)}
}

// Touch captures a copy-on-first-modify shadow of the page's bytes (if one
// hasn't been captured yet) and marks the page dirty. Call this before
// mutating Data.
func (p *Page) Touch() {
	if p.shadow == nil {
		p.shadow = append([]byte(nil), p.Data...)
	}
	p.Dirty = true
}

// Shadow returns the bytes the page held before its first modification
// since being loaded, or nil if it hasn't been modified.
func (p *Page) Shadow() []byte { return p.shadow }

// ClearShadow drops the captured shadow, e.g. after a successful flush.
func (p *Page) ClearShadow() { p.shadow = nil }

func (p *Page) String() string {
	return fmt.Sprintf("Page{file=%s no=%d pinned=%d dirty=%v}", p.File.Name, p.PageNo, p.Pinned, p.Dirty)
}
