// Package page implements the slotted data page and the file header page
// that together make up a heap file's on-disk layout. A data page holds a
// variable-length slot directory and the record bytes it points into; a
// header page holds the chain bookkeeping (first/last page, page and
// record counts) for the whole file.
package page

import (
	"encoding/binary"
	"fmt"

	"heapstore/pkg/dberr"
	"heapstore/pkg/file"
	"heapstore/pkg/primitives"
)

// Size is the fixed page size every Data and Header page occupies on disk.
const Size = file.PageSize

const slotEntrySize = 4 // uint16 offset + uint16 length

// DirectoryOverhead is the fixed per-page bookkeeping cost — the page
// header (nextPage/numSlots/freeSpacePtr) plus the one slot-directory entry
// a record's insertion always consumes. A record longer than Size -
// DirectoryOverhead cannot fit on any page, however empty, and InsertRecord
// rejects it outright rather than letting it fail one AddRecord at a time.
const DirectoryOverhead = offSlotDir + slotEntrySize

// Data is one slotted data page: a fixed-size byte buffer interpreted as
//
//	[0:8]    nextPage (uint64 page number, or primitives.InvalidPageNumber)
//	[8:10]   numSlots
//	[10:12]  freeSpacePtr (offset of the lowest record byte; the next record ends here)
//	[12:..]  slot directory: numSlots * {offset uint16, length uint16}
//	[..:Size] record bytes, growing downward from the end of the page
//
// A slot with length == 0 is empty or tombstoned; AddRecord always
// allocates record bytes just below freeSpacePtr and never reclaims
// tombstoned space on its own, matching the chain's "tombstone, don't
// compact" delete contract. Compact is provided for callers that want to
// reclaim space explicitly.
type Data struct {
	buf []byte
}

const (
	offNextPage     = 0
	offNumSlots     = 8
	offFreeSpacePtr = 10
	offSlotDir      = 12
)

// NewData creates a fresh, empty data page.
func NewData() *Data {
	p := &Data{buf: make([]byte, Size)}
	binary.LittleEndian.PutUint64(p.buf[offNextPage:], uint64(primitives.InvalidPageNumber))
	binary.LittleEndian.PutUint16(p.buf[offFreeSpacePtr:], uint16(Size))
	return p
}

// LoadData wraps an existing PageSize-byte buffer as a Data page. The slice
// is retained, not copied; mutating one mutates the other.
func LoadData(buf []byte) (*Data, error) {
	if len(buf) != Size {
		return nil, fmt.Errorf("page: buffer size %d != page size %d", len(buf), Size)
	}
	return &Data{buf: buf}, nil
}

// Bytes returns the page's raw on-disk representation.
func (p *Data) Bytes() []byte {
	return p.buf
}

// NextPage returns the page number of the next page in the file's chain,
// or primitives.InvalidPageNumber if this is the tail.
func (p *Data) NextPage() primitives.PageNumber {
	return primitives.PageNumber(binary.LittleEndian.Uint64(p.buf[offNextPage:]))
}

// SetNextPage sets the next-page link.
func (p *Data) SetNextPage(pn primitives.PageNumber) {
	binary.LittleEndian.PutUint64(p.buf[offNextPage:], uint64(pn))
}

func (p *Data) numSlots() int {
	return int(binary.LittleEndian.Uint16(p.buf[offNumSlots:]))
}

func (p *Data) setNumSlots(n int) {
	binary.LittleEndian.PutUint16(p.buf[offNumSlots:], uint16(n))
}

func (p *Data) freeSpacePtr() int {
	return int(binary.LittleEndian.Uint16(p.buf[offFreeSpacePtr:]))
}

func (p *Data) setFreeSpacePtr(v int) {
	binary.LittleEndian.PutUint16(p.buf[offFreeSpacePtr:], uint16(v))
}

func (p *Data) slotOffset(slot primitives.SlotNumber) int {
	return offSlotDir + int(slot)*slotEntrySize
}

func (p *Data) readSlot(slot primitives.SlotNumber) (offset, length int) {
	o := p.slotOffset(slot)
	return int(binary.LittleEndian.Uint16(p.buf[o:])), int(binary.LittleEndian.Uint16(p.buf[o+2:]))
}

func (p *Data) writeSlot(slot primitives.SlotNumber, offset, length int) {
	o := p.slotOffset(slot)
	binary.LittleEndian.PutUint16(p.buf[o:], uint16(offset))
	binary.LittleEndian.PutUint16(p.buf[o+2:], uint16(length))
}

// dirEnd is the first byte past the slot directory, given its current
// slot count.
func (p *Data) dirEnd() int {
	return offSlotDir + p.numSlots()*slotEntrySize
}

func (p *Data) freeBytes() int {
	return p.freeSpacePtr() - p.dirEnd()
}

// firstEmptySlot returns a tombstoned slot number to reuse, or -1 if none
// exists and a new slot must be appended to the directory.
func (p *Data) firstEmptySlot() int {
	for i := 0; i < p.numSlots(); i++ {
		if _, length := p.readSlot(primitives.SlotNumber(i)); length == 0 {
			return i
		}
	}
	return -1
}

// HasSpaceFor reports whether a record of length n bytes can be inserted
// without growing the page beyond its fixed size.
func (p *Data) HasSpaceFor(n int) bool {
	needed := n
	if p.firstEmptySlot() == -1 {
		needed += slotEntrySize
	}
	return p.freeBytes() >= needed
}

// AddRecord inserts rec into the page, returning the slot it was placed
// in. It returns dberr.ErrNoSpace if the page has insufficient free space;
// the caller (heap.File) is expected to grow the chain and retry on a new
// page.
func (p *Data) AddRecord(rec []byte) (primitives.SlotNumber, error) {
	if !p.HasSpaceFor(len(rec)) {
		return 0, dberr.ErrNoSpace
	}

	newOffset := p.freeSpacePtr() - len(rec)
	copy(p.buf[newOffset:newOffset+len(rec)], rec)
	p.setFreeSpacePtr(newOffset)

	if slot := p.firstEmptySlot(); slot != -1 {
		p.writeSlot(primitives.SlotNumber(slot), newOffset, len(rec))
		return primitives.SlotNumber(slot), nil
	}

	slot := p.numSlots()
	p.setNumSlots(slot + 1)
	p.writeSlot(primitives.SlotNumber(slot), newOffset, len(rec))
	return primitives.SlotNumber(slot), nil
}

// GetRecord returns a copy of the record stored in slot. For an
// out-of-range or tombstoned slot it returns a plain error that matches no
// dberr sentinel; heap.File wraps it with its own operation context.
func (p *Data) GetRecord(slot primitives.SlotNumber) ([]byte, error) {
	if int(slot) >= p.numSlots() {
		return nil, fmt.Errorf("page: slot %d out of range (numSlots=%d)", slot, p.numSlots())
	}
	offset, length := p.readSlot(slot)
	if length == 0 {
		return nil, fmt.Errorf("page: slot %d is empty", slot)
	}
	out := make([]byte, length)
	copy(out, p.buf[offset:offset+length])
	return out, nil
}

// DeleteRecord tombstones slot by zeroing its slot directory entry. The
// record bytes are left in place (to be reclaimed only by an explicit
// Compact); a later scan sees the tombstone and skips over the slot rather
// than shifting later slots down, which is what keeps other RIDs on the
// page stable.
func (p *Data) DeleteRecord(slot primitives.SlotNumber) error {
	if int(slot) >= p.numSlots() {
		return fmt.Errorf("page: slot %d out of range (numSlots=%d)", slot, p.numSlots())
	}
	_, length := p.readSlot(slot)
	if length == 0 {
		return fmt.Errorf("page: slot %d already empty", slot)
	}
	p.writeSlot(slot, 0, 0)
	return nil
}

// NumSlots returns the size of the slot directory, including tombstoned
// entries. Scan cursors iterate slot numbers 0..NumSlots()-1 and skip
// tombstones.
func (p *Data) NumSlots() primitives.SlotNumber {
	return primitives.SlotNumber(p.numSlots())
}

// IsSlotUsed reports whether slot holds a live record.
func (p *Data) IsSlotUsed(slot primitives.SlotNumber) bool {
	if int(slot) >= p.numSlots() {
		return false
	}
	_, length := p.readSlot(slot)
	return length != 0
}

// Compact repacks live record bytes to reclaim space freed by tombstoned
// slots. Slot numbers (and therefore RIDs) are preserved; only the
// physical offsets stored in each slot entry change. This is never called
// implicitly by AddRecord/DeleteRecord — a caller invokes it only when it
// wants to reclaim space ahead of an insert that would otherwise trigger
// chain growth.
func (p *Data) Compact() {
	type live struct {
		slot primitives.SlotNumber
		rec  []byte
	}
	var entries []live
	for i := 0; i < p.numSlots(); i++ {
		slot := primitives.SlotNumber(i)
		if p.IsSlotUsed(slot) {
			rec, _ := p.GetRecord(slot)
			entries = append(entries, live{slot: slot, rec: rec})
		}
	}

	cursor := Size
	for _, e := range entries {
		cursor -= len(e.rec)
		copy(p.buf[cursor:cursor+len(e.rec)], e.rec)
		p.writeSlot(e.slot, cursor, len(e.rec))
	}
	p.setFreeSpacePtr(cursor)
}
