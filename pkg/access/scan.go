package access

import (
	"errors"

	"heapstore/pkg/buffer"
	"heapstore/pkg/dberr"
	"heapstore/pkg/heap"
	"heapstore/pkg/page"
	"heapstore/pkg/primitives"
)

// ScanCursor walks a heap file's page chain in slot-directory-then-chain
// order, yielding RIDs whose record bytes satisfy an optional predicate. It
// holds its own pin on the page it is currently positioned over, separate
// from the heap file's own single-page cursor used by GetRecord.
type ScanCursor struct {
	hf     *heap.File
	bm     *buffer.Manager
	fileID primitives.FileID
	pred   *Predicate

	curPageNo primitives.PageNumber
	curBuf    []byte
	curSlot   int // -1 means "before the first slot on this page"
	curDirty  bool

	markPageNo primitives.PageNumber
	markSlot   int
	hasMark    bool
}

// OpenScan starts a new scan over hf. A nil pred scans unfiltered.
func OpenScan(hf *heap.File, pred *Predicate) (*ScanCursor, error) {
	if pred != nil {
		if err := pred.Validate(); err != nil {
			return nil, dberr.Wrap(err, "OpenScan", "access.ScanCursor")
		}
	}
	return &ScanCursor{
		hf:      hf,
		bm:      hf.Buffer(),
		fileID:  hf.FileID(),
		pred:    pred,
		curSlot: -1,
	}, nil
}

// pinPage unpins whatever page the cursor currently holds (carrying its
// accumulated dirty flag) and pins pn as the new current page.
func (sc *ScanCursor) pinPage(pn primitives.PageNumber) error {
	if sc.curBuf != nil {
		if err := sc.bm.UnpinPage(sc.fileID, sc.curPageNo, sc.curDirty); err != nil {
			sc.curBuf = nil
			return dberr.Wrap(err, "pinPage", "access.ScanCursor")
		}
		sc.curBuf = nil
		sc.curDirty = false
	}

	buf, err := sc.bm.PinPage(sc.fileID, pn)
	if err != nil {
		return dberr.Wrap(err, "pinPage", "access.ScanCursor")
	}
	sc.curPageNo = pn
	sc.curBuf = buf
	return nil
}

// advance moves the cursor to the next used slot in chain order, pinning
// pages as needed, and returns that slot number. It returns dberr.ErrFileEOF
// once the chain is exhausted.
func (sc *ScanCursor) advance() (int, error) {
	if sc.curBuf == nil {
		if err := sc.pinPage(sc.hf.FirstPage()); err != nil {
			return 0, err
		}
		sc.curSlot = -1
	}

	for {
		data, err := page.LoadData(sc.curBuf)
		if err != nil {
			return 0, dberr.Wrap(err, "advance", "access.ScanCursor")
		}

		for s := sc.curSlot + 1; s < int(data.NumSlots()); s++ {
			if data.IsSlotUsed(primitives.SlotNumber(s)) {
				return s, nil
			}
		}

		next := data.NextPage()
		if next == primitives.InvalidPageNumber {
			return 0, dberr.Wrap(dberr.ErrFileEOF, "advance", "access.ScanCursor")
		}
		if err := sc.pinPage(next); err != nil {
			return 0, err
		}
		sc.curSlot = -1
	}
}

// Next advances the cursor to the next record satisfying the predicate and
// returns its RID. It returns dberr.ErrFileEOF when the chain is exhausted.
func (sc *ScanCursor) Next() (primitives.RID, error) {
	for {
		slot, err := sc.advance()
		if err != nil {
			return primitives.NullRID, err
		}
		sc.curSlot = slot

		data, err := page.LoadData(sc.curBuf)
		if err != nil {
			return primitives.NullRID, dberr.Wrap(err, "Next", "access.ScanCursor")
		}
		rec, err := data.GetRecord(primitives.SlotNumber(slot))
		if err != nil {
			continue
		}
		if sc.pred == nil || sc.pred.Match(rec) {
			return primitives.RID{PageNo: sc.curPageNo, Slot: primitives.SlotNumber(slot)}, nil
		}
	}
}

// GetCurrent returns the record bytes at the cursor's current position.
func (sc *ScanCursor) GetCurrent() ([]byte, error) {
	if sc.curBuf == nil || sc.curSlot < 0 {
		return nil, dberr.Wrap(dberr.ErrNoRecords, "GetCurrent", "access.ScanCursor")
	}
	data, err := page.LoadData(sc.curBuf)
	if err != nil {
		return nil, dberr.Wrap(err, "GetCurrent", "access.ScanCursor")
	}
	rec, err := data.GetRecord(primitives.SlotNumber(sc.curSlot))
	if err != nil {
		return nil, dberr.Wrap(err, "GetCurrent", "access.ScanCursor")
	}
	return rec, nil
}

// DeleteCurrent deletes the record at the cursor's current position. It
// delegates to the owning heap file's own DeleteRecord, which tombstones
// the slot and updates the header's record count — the cursor only needs
// to note that the page it has pinned was mutated underneath it.
func (sc *ScanCursor) DeleteCurrent() error {
	if sc.curBuf == nil || sc.curSlot < 0 {
		return dberr.Wrap(dberr.ErrNoRecords, "DeleteCurrent", "access.ScanCursor")
	}
	rid := primitives.RID{PageNo: sc.curPageNo, Slot: primitives.SlotNumber(sc.curSlot)}
	if err := sc.hf.DeleteRecord(rid); err != nil {
		return dberr.Wrap(err, "DeleteCurrent", "access.ScanCursor")
	}
	sc.curDirty = true
	return nil
}

// Mark snapshots the cursor's current position for a later Reset.
func (sc *ScanCursor) Mark() {
	sc.markPageNo = sc.curPageNo
	sc.markSlot = sc.curSlot
	sc.hasMark = true
}

// Reset restores the position snapshotted by the most recent Mark. If the
// marked position is on a different page than the cursor currently holds,
// the current page is unpinned and the marked page re-pinned; if it's the
// same page, only the slot position is rewound. After Reset the page is
// considered clean from the cursor's own perspective.
func (sc *ScanCursor) Reset() error {
	if !sc.hasMark {
		return dberr.Wrap(errors.New("access.ScanCursor: Reset called without a prior Mark"), "Reset", "access.ScanCursor")
	}
	if sc.curBuf == nil || sc.curPageNo != sc.markPageNo {
		if err := sc.pinPage(sc.markPageNo); err != nil {
			return dberr.Wrap(err, "Reset", "access.ScanCursor")
		}
	}
	sc.curSlot = sc.markSlot
	sc.curDirty = false
	return nil
}

// Close unpins the cursor's current page, if any. It is idempotent.
func (sc *ScanCursor) Close() error {
	if sc.curBuf == nil {
		return nil
	}
	err := sc.bm.UnpinPage(sc.fileID, sc.curPageNo, sc.curDirty)
	sc.curBuf = nil
	sc.curSlot = -1
	if err != nil {
		return dberr.Wrap(err, "Close", "access.ScanCursor")
	}
	return nil
}
