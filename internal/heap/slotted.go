package heap

import (
	"encoding/binary"

	"github.com/nanodb-project/nanodb/internal/nerr"
)

// Data-page layout (all non-zero page numbers of a heap file):
//
//	[0:2]   slotCount   (uint16)
//	[2:4]   freeSpaceEnd (uint16) — start of the record-data region
//	[4:4+2*slotCount]  slot directory, one uint16 offset per slot
//	...free space...
//	[freeSpaceEnd:pageSize]  tuple bytes, growing backward from the end
//
// A slot value of 0 is a tombstone (no slot's record legitimately starts at
// offset 0, since the slot directory itself occupies that range).
const (
	dataHeaderOff  = 0
	slotDirOff     = 4
	slotEntrySize  = 2
)

// dataPage wraps one data page's raw bytes with slot-directory operations.
// Tuple length is not stored per slot; callers recover it by decoding the
// schema against the bytes at a slot's offset (see DecodeTuple).
type dataPage struct {
	buf []byte
}

func wrapDataPage(buf []byte) *dataPage { return &dataPage{buf: buf} }

// initDataPage formats buf as a fresh, empty data page.
func initDataPage(buf []byte) *dataPage {
	dp := &dataPage{buf: buf}
	dp.setSlotCount(0)
	dp.setFreeSpaceEnd(len(buf))
	return dp
}

func (dp *dataPage) SlotCount() int {
	return int(binary.LittleEndian.Uint16(dp.buf[dataHeaderOff:]))
}

func (dp *dataPage) setSlotCount(n int) {
	binary.LittleEndian.PutUint16(dp.buf[dataHeaderOff:], uint16(n))
}

func (dp *dataPage) FreeSpaceEnd() int {
	return int(binary.LittleEndian.Uint16(dp.buf[dataHeaderOff+2:]))
}

func (dp *dataPage) setFreeSpaceEnd(off int) {
	binary.LittleEndian.PutUint16(dp.buf[dataHeaderOff+2:], uint16(off))
}

func (dp *dataPage) slotDirEnd() int {
	return slotDirOff + dp.SlotCount()*slotEntrySize
}

// FreeSpace returns the bytes available for a new record plus its slot.
func (dp *dataPage) FreeSpace() int {
	return dp.FreeSpaceEnd() - dp.slotDirEnd() - slotEntrySize
}

func (dp *dataPage) getSlotOffset(i int) int {
	off := slotDirOff + i*slotEntrySize
	return int(binary.LittleEndian.Uint16(dp.buf[off:]))
}

func (dp *dataPage) setSlotOffset(i, v int) {
	off := slotDirOff + i*slotEntrySize
	binary.LittleEndian.PutUint16(dp.buf[off:], uint16(v))
}

func (dp *dataPage) IsTombstone(i int) bool { return dp.getSlotOffset(i) == 0 }

// recordBytes returns the raw bytes starting at slot i's offset, running to
// the end of the page; callers decode exactly as many bytes as the schema
// says the tuple occupies.
func (dp *dataPage) recordBytes(i int) []byte {
	off := dp.getSlotOffset(i)
	return dp.buf[off:]
}

// InsertRecord appends data to the record area (reusing a tombstoned slot
// first) and returns the new slot index, or fails with ErrTupleTooLarge if
// there isn't room.
func (dp *dataPage) InsertRecord(data []byte) (int, error) {
	if dp.FreeSpace() < len(data) {
		return -1, nerr.ErrTupleTooLarge(len(data), dp.FreeSpace())
	}
	newEnd := dp.FreeSpaceEnd() - len(data)
	copy(dp.buf[newEnd:], data)
	dp.setFreeSpaceEnd(newEnd)

	sc := dp.SlotCount()
	for i := 0; i < sc; i++ {
		if dp.IsTombstone(i) {
			dp.setSlotOffset(i, newEnd)
			return i, nil
		}
	}
	dp.setSlotOffset(sc, newEnd)
	dp.setSlotCount(sc + 1)
	return sc, nil
}

// DeleteRecord tombstones slot i. It does not reclaim the record's bytes;
// Compact does that.
func (dp *dataPage) DeleteRecord(i int) {
	dp.setSlotOffset(i, 0)
}

// Compact reorganizes live records to remove gaps left by deletions,
// preserving slot indices. Called after delete/update when bytes need to be
// reclaimed for a subsequent insert to fit.
func (dp *dataPage) Compact(recordLen func(offset int) int) {
	sc := dp.SlotCount()
	type live struct {
		slot int
		data []byte
	}
	var recs []live
	for i := 0; i < sc; i++ {
		if dp.IsTombstone(i) {
			continue
		}
		off := dp.getSlotOffset(i)
		l := recordLen(off)
		recs = append(recs, live{slot: i, data: append([]byte(nil), dp.buf[off:off+l]...)})
	}
	dp.setFreeSpaceEnd(len(dp.buf))
	for _, r := range recs {
		newEnd := dp.FreeSpaceEnd() - len(r.data)
		copy(dp.buf[newEnd:], r.data)
		dp.setFreeSpaceEnd(newEnd)
		dp.setSlotOffset(r.slot, newEnd)
	}
}

// TrimTrailingTombstones shrinks the slot directory by removing tombstoned
// slots at the end, per spec.md's deleteTuple step "trims trailing
// tombstones".
func (dp *dataPage) TrimTrailingTombstones() {
	sc := dp.SlotCount()
	for sc > 0 && dp.IsTombstone(sc-1) {
		sc--
	}
	dp.setSlotCount(sc)
}

// LiveSlots returns the indices of all non-tombstoned slots, in order.
func (dp *dataPage) LiveSlots() []int {
	sc := dp.SlotCount()
	out := make([]int, 0, sc)
	for i := 0; i < sc; i++ {
		if !dp.IsTombstone(i) {
			out = append(out, i)
		}
	}
	return out
}
