package page

import (
	"errors"
	"io"
	"os"
	"sync"

	"github.com/nanodb-project/nanodb/internal/nerr"
)

// File is an open NanoDB data file: an ordered sequence of fixed-size pages,
// numbered from 0, with page 0 reserved for the file-type byte and the
// encoded page-size byte (spec §6). Concrete page contents beyond page 0 are
// the concern of the heap/B+tree layer; File only knows how to read and
// write whole pages and track how many exist.
//
// Grounded on the teacher's internal/storage/pager/pager.go PageBufferPool
// file-handle bookkeeping, with the CRC/LSN superblock fields dropped.
type File struct {
	mu sync.Mutex

	Name     string
	Type     FileType
	PageSize int

	osFile   *os.File
	numPages uint32

	// freePages is the file's empty-page chain: page numbers freed by the
	// heap layer (e.g. a data page left with zero live tuples) that a
	// future AllocatePage call can reuse instead of growing the file.
	freePages []uint32
}

// AllocatePage returns a page number ready to hold new page content: either
// recycled from the free-page chain, or the file's next untouched page
// number. In the latter case the file's page count is NOT bumped yet —
// LoadPage(no, true) does that at the point the page is actually
// materialized, so a page number is never "allocated" on disk before it is
// written.
func (f *File) AllocatePage() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n := len(f.freePages); n > 0 {
		no := f.freePages[n-1]
		f.freePages = f.freePages[:n-1]
		return no
	}
	return f.numPages
}

// FreePage returns a page to the file's empty-page chain for reuse.
func (f *File) FreePage(no uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.freePages = append(f.freePages, no)
}

// NumPages returns the number of pages currently allocated in the file
// (including page 0 and any freed-but-not-reclaimed pages).
func (f *File) NumPages() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.numPages
}

// LoadPage reads page no into a freshly allocated Page. If create is true
// and no is at or beyond the current end of file, a zeroed page is returned
// (and the file's page count extended) instead of failing — used when a
// buffer-cache miss should materialize a brand-new page rather than read
// one that doesn't exist yet.
func (f *File) LoadPage(no uint32, create bool) (*Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := newPage(f, no)
	if no >= f.numPages {
		if !create {
			return nil, nerr.ErrInvalidTuple(no, 0)
		}
		f.numPages = no + 1
		return p, nil
	}
	off := int64(no) * int64(f.PageSize)
	// A page counted by an earlier LoadPage(no, true) but never saved lies
	// past the end of the OS file; its unread bytes stay zero.
	if _, err := f.osFile.ReadAt(p.Data, off); err != nil && !errors.Is(err, io.EOF) {
		return nil, nerr.Wrap(nerr.Storage, err, "read page %d of %s", no, f.Name)
	}
	return p, nil
}

// SavePage writes a page's current bytes back to disk at its page number.
func (f *File) SavePage(p *Page) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if p.PageNo >= f.numPages {
		f.numPages = p.PageNo + 1
	}
	off := int64(p.PageNo) * int64(f.PageSize)
	if _, err := f.osFile.WriteAt(p.Data, off); err != nil {
		return nerr.Wrap(nerr.Storage, err, "write page %d of %s", p.PageNo, f.Name)
	}
	p.Dirty = false
	p.ClearShadow()
	return nil
}

// Sync forces the underlying OS file to durable storage.
func (f *File) Sync() error {
	if err := f.osFile.Sync(); err != nil {
		return nerr.Wrap(nerr.Storage, err, "sync %s", f.Name)
	}
	return nil
}

// Close closes the underlying OS file handle.
func (f *File) Close() error {
	if err := f.osFile.Close(); err != nil {
		return nerr.Wrap(nerr.Storage, err, "close %s", f.Name)
	}
	return nil
}
