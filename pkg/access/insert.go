package access

import (
	"heapstore/pkg/dberr"
	"heapstore/pkg/heap"
	"heapstore/pkg/primitives"
)

// InsertCursor wraps an open heap file for the narrow purpose of appending
// records. The chain-growth logic (allocate a page, splice it into the
// chain, retry the insert) already lives on heap.File; InsertCursor adds
// nothing to it beyond giving inserts the same open/close shape as
// ScanCursor.
type InsertCursor struct {
	hf *heap.File
}

// OpenInsertCursor wraps an already-open heap file for inserts.
func OpenInsertCursor(hf *heap.File) *InsertCursor {
	return &InsertCursor{hf: hf}
}

// Insert appends rec to the heap file, growing the page chain if the
// current tail page has no room.
func (ic *InsertCursor) Insert(rec []byte) (primitives.RID, error) {
	rid, err := ic.hf.InsertRecord(rec)
	if err != nil {
		return primitives.NullRID, dberr.Wrap(err, "Insert", "access.InsertCursor")
	}
	return rid, nil
}

// Close releases the underlying heap file.
func (ic *InsertCursor) Close() error {
	return ic.hf.Close()
}
