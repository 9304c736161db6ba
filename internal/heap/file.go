package heap

import (
	"github.com/nanodb-project/nanodb/internal/buffer"
	"github.com/nanodb-project/nanodb/internal/nanolog"
	"github.com/nanodb-project/nanodb/internal/nerr"
	"github.com/nanodb-project/nanodb/internal/page"
	"github.com/nanodb-project/nanodb/internal/schema"
	"github.com/nanodb-project/nanodb/internal/stats"
)

// TupleRef identifies one tuple by its page number and slot index.
type TupleRef struct {
	PageNo uint32
	SlotNo int
}

// PageTuple is a page-backed tuple read from a heap file: its values are
// decoded eagerly (the slotted page itself is not retained), but Ref
// preserves the (page, slot) identity delete/update operate on.
type PageTuple struct {
	ref    TupleRef
	sch    *schema.Schema
	values []any
}

func (t *PageTuple) Schema() *schema.Schema { return t.sch }
func (t *PageTuple) ColumnValue(i int) any  { return t.values[i] }
func (t *PageTuple) IsNull(i int) bool      { return t.values[i] == nil }
func (t *PageTuple) Ref() TupleRef          { return t.ref }

// File is a heap tuple file: a sequential, paged, slotted-page storage for
// one table's rows, with its schema and latest statistics persisted in
// page 0.
type File struct {
	mgr   *page.Manager
	cache *buffer.Cache
	pf    *page.File
	sch   *schema.Schema
	st    *stats.TableStats
	log   *nanolog.Logger
}

// Create makes a brand-new heap file named name with the given schema and
// page size, persisting the schema (and zeroed statistics) into page 0.
func Create(mgr *page.Manager, cache *buffer.Cache, name string, sch *schema.Schema, pageSize int) (*File, error) {
	pf, err := mgr.CreateFile(name, page.TypeHeapTuple, pageSize)
	if err != nil {
		return nil, err
	}
	f := &File{
		mgr:   mgr,
		cache: cache,
		pf:    pf,
		sch:   sch,
		st:    &stats.TableStats{Columns: make([]stats.ColumnStats, sch.NumColumns())},
		log:   nanolog.New("heap"),
	}
	for i, c := range sch.Columns {
		f.st.Columns[i].HasMinMax = c.Type.IsOrdered()
	}
	if err := f.writeHeader(); err != nil {
		return nil, err
	}
	return f, nil
}

// Open reopens an existing heap file, reading its schema and statistics
// back from page 0.
func Open(mgr *page.Manager, cache *buffer.Cache, name string) (*File, error) {
	pf, err := mgr.OpenFile(name)
	if err != nil {
		return nil, err
	}
	p0, err := mgr.LoadPage(pf, 0, false)
	if err != nil {
		return nil, err
	}
	h, err := decodeHeader(p0.Data)
	if err != nil {
		return nil, err
	}
	return &File{
		mgr:   mgr,
		cache: cache,
		pf:    pf,
		sch:   h.Schema.toSchema(),
		st:    &h.Stats,
		log:   nanolog.New("heap"),
	}, nil
}

// Schema returns the file's table schema.
func (f *File) Schema() *schema.Schema { return f.sch }

// Stats returns a copy of the file's latest statistics (spec.md: operators
// propagate updated versions without mutating the base).
func (f *File) Stats() *stats.TableStats { return f.st.Clone() }

func (f *File) writeHeader() error {
	enc, err := encodeHeader(&header{Schema: snapshotSchema(f.sch), Stats: *f.st})
	if err != nil {
		return err
	}
	if headerContentOff+len(enc) > f.pf.PageSize {
		return nerr.New(nerr.Storage, "schema and statistics too large for page 0 (%d bytes available)", f.pf.PageSize-headerContentOff)
	}
	p0, err := f.mgr.LoadPage(f.pf, 0, false)
	if err != nil {
		return err
	}
	p0.Touch()
	copy(p0.Data[headerContentOff:], enc)
	for i := headerContentOff + len(enc); i < len(p0.Data); i++ {
		p0.Data[i] = 0
	}
	return f.mgr.SavePage(f.pf, p0)
}

// AddTuple encodes values and stores them in the first data page with
// enough free space, extending the file by one page if none has room.
// Fails with ErrTupleTooLarge if the encoding can never fit a fresh page.
func (f *File) AddTuple(values []any) (*PageTuple, error) {
	enc, err := EncodeTuple(f.sch, values)
	if err != nil {
		return nil, err
	}
	maxCapacity := f.pf.PageSize - slotDirOff - slotEntrySize
	if len(enc) > maxCapacity {
		return nil, nerr.ErrTupleTooLarge(len(enc), maxCapacity)
	}

	numPages := f.mgr.GetNumPages(f.pf)
	for no := uint32(1); no < numPages; no++ {
		p, err := f.cache.GetPage(f.pf, no, false)
		if err != nil {
			return nil, err
		}
		dp := wrapDataPage(p.Data)
		if dp.FreeSpace() >= len(enc) {
			slot, err := dp.InsertRecord(enc)
			if err != nil {
				f.cache.UnpinPage(p)
				return nil, err
			}
			p.Touch()
			f.cache.UnpinPage(p)
			return &PageTuple{ref: TupleRef{PageNo: no, SlotNo: slot}, sch: f.sch, values: values}, nil
		}
		f.cache.UnpinPage(p)
	}

	no := f.pf.AllocatePage()
	p, err := f.cache.GetPage(f.pf, no, true)
	if err != nil {
		return nil, err
	}
	dp := initDataPage(p.Data)
	slot, err := dp.InsertRecord(enc)
	if err != nil {
		f.cache.UnpinPage(p)
		return nil, err
	}
	p.Touch()
	f.cache.UnpinPage(p)
	return &PageTuple{ref: TupleRef{PageNo: no, SlotNo: slot}, sch: f.sch, values: values}, nil
}

// recordLen returns the on-disk byte length of the tuple encoded starting
// at a data page's byte offset, by decoding it against the file's schema.
func (f *File) recordLen(buf []byte, offset int) int {
	_, n, err := DecodeTuple(f.sch, buf[offset:])
	if err != nil {
		return 0
	}
	return n
}

// DeleteTuple tombstones the tuple at ref, reclaims its bytes, and trims
// trailing tombstones from the slot directory. Fails with InvalidTuple if
// ref no longer names a live tuple.
func (f *File) DeleteTuple(ref TupleRef) error {
	p, err := f.cache.GetPage(f.pf, ref.PageNo, false)
	if err != nil {
		return err
	}
	defer f.cache.UnpinPage(p)

	dp := wrapDataPage(p.Data)
	if ref.SlotNo < 0 || ref.SlotNo >= dp.SlotCount() || dp.IsTombstone(ref.SlotNo) {
		return nerr.ErrInvalidTuple(ref.PageNo, ref.SlotNo)
	}
	dp.DeleteRecord(ref.SlotNo)
	dp.Compact(func(off int) int { return f.recordLen(p.Data, off) })
	dp.TrimTrailingTombstones()
	p.Touch()
	return nil
}

// UpdateTuple re-encodes newValues and writes them over ref: in place if the
// new encoding is no larger than the slot's current footprint, otherwise by
// compacting the page to reclaim room. If it still doesn't fit the page,
// falls back to delete+insert, which changes the tuple's external
// reference (the caller must use the returned ref from then on).
func (f *File) UpdateTuple(ref TupleRef, newValues []any) (TupleRef, error) {
	enc, err := EncodeTuple(f.sch, newValues)
	if err != nil {
		return TupleRef{}, err
	}

	p, err := f.cache.GetPage(f.pf, ref.PageNo, false)
	if err != nil {
		return TupleRef{}, err
	}
	dp := wrapDataPage(p.Data)
	if ref.SlotNo < 0 || ref.SlotNo >= dp.SlotCount() || dp.IsTombstone(ref.SlotNo) {
		f.cache.UnpinPage(p)
		return TupleRef{}, nerr.ErrInvalidTuple(ref.PageNo, ref.SlotNo)
	}

	oldLen := f.recordLen(p.Data, dp.getSlotOffset(ref.SlotNo))
	if len(enc) <= oldLen {
		off := dp.getSlotOffset(ref.SlotNo)
		copy(p.Data[off:off+len(enc)], enc)
		p.Touch()
		f.cache.UnpinPage(p)
		return ref, nil
	}

	// Doesn't fit in place: tombstone, compact, and try to re-insert on the
	// same page first (spec.md: "re-layouts within the page... if it no
	// longer fits, delete+insert").
	dp.DeleteRecord(ref.SlotNo)
	dp.Compact(func(off int) int { return f.recordLen(p.Data, off) })
	if dp.FreeSpace() >= len(enc) {
		slot, err := dp.InsertRecord(enc)
		if err == nil {
			p.Touch()
			f.cache.UnpinPage(p)
			return TupleRef{PageNo: ref.PageNo, SlotNo: slot}, nil
		}
	}
	dp.TrimTrailingTombstones()
	p.Touch()
	f.cache.UnpinPage(p)

	newTuple, err := f.AddTuple(newValues)
	if err != nil {
		return TupleRef{}, err
	}
	return newTuple.ref, nil
}

// GetFirstTuple returns the first live tuple in the file, in page
// allocation order, or nil if the file is empty.
func (f *File) GetFirstTuple() (*PageTuple, error) {
	numPages := f.mgr.GetNumPages(f.pf)
	for no := uint32(1); no < numPages; no++ {
		t, err := f.firstLiveInPage(no)
		if err != nil {
			return nil, err
		}
		if t != nil {
			return t, nil
		}
	}
	return nil, nil
}

func (f *File) firstLiveInPage(no uint32) (*PageTuple, error) {
	p, err := f.cache.GetPage(f.pf, no, false)
	if err != nil {
		return nil, err
	}
	defer f.cache.UnpinPage(p)
	dp := wrapDataPage(p.Data)
	for slot := 0; slot < dp.SlotCount(); slot++ {
		if dp.IsTombstone(slot) {
			continue
		}
		return f.readTuple(no, slot, p.Data)
	}
	return nil, nil
}

func (f *File) readTuple(no uint32, slot int, buf []byte) (*PageTuple, error) {
	dp := wrapDataPage(buf)
	values, _, err := DecodeTuple(f.sch, buf[dp.getSlotOffset(slot):])
	if err != nil {
		return nil, err
	}
	return &PageTuple{ref: TupleRef{PageNo: no, SlotNo: slot}, sch: f.sch, values: values}, nil
}

// GetNextTuple returns the live tuple immediately following pt in page
// allocation order, or nil at end of file.
func (f *File) GetNextTuple(pt *PageTuple) (*PageTuple, error) {
	p, err := f.cache.GetPage(f.pf, pt.ref.PageNo, false)
	if err != nil {
		return nil, err
	}
	dp := wrapDataPage(p.Data)
	for slot := pt.ref.SlotNo + 1; slot < dp.SlotCount(); slot++ {
		if dp.IsTombstone(slot) {
			continue
		}
		t, err := f.readTuple(pt.ref.PageNo, slot, p.Data)
		f.cache.UnpinPage(p)
		return t, err
	}
	f.cache.UnpinPage(p)

	numPages := f.mgr.GetNumPages(f.pf)
	for no := pt.ref.PageNo + 1; no < numPages; no++ {
		t, err := f.firstLiveInPage(no)
		if err != nil {
			return nil, err
		}
		if t != nil {
			return t, nil
		}
	}
	return nil, nil
}

// Scan calls yield for every live tuple in the file, in page allocation
// order, stopping early if yield returns false.
func (f *File) Scan(yield func(*PageTuple) bool) error {
	t, err := f.GetFirstTuple()
	if err != nil {
		return err
	}
	for t != nil {
		if !yield(t) {
			return nil
		}
		t, err = f.GetNextTuple(t)
		if err != nil {
			return err
		}
	}
	return nil
}

// Analyze performs a full scan recomputing table and column statistics, and
// persists them into the header page alongside the schema.
func (f *File) Analyze() error {
	numPages := f.mgr.GetNumPages(f.pf)
	numDataPages := int64(numPages) - 1
	if numDataPages < 0 {
		numDataPages = 0
	}

	newStats := stats.Analyze(f.sch, func(yield func([]any, int) bool) {
		_ = f.Scan(func(pt *PageTuple) bool {
			enc, err := EncodeTuple(f.sch, pt.values)
			n := len(enc)
			if err != nil {
				n = 0
			}
			return yield(pt.values, n)
		})
	}, numDataPages)

	f.st = newStats
	return f.writeHeader()
}

// Close flushes and closes the underlying file.
func (f *File) Close() error {
	if err := f.cache.FlushFile(f.pf); err != nil {
		return err
	}
	return f.mgr.CloseFile(f.pf)
}
