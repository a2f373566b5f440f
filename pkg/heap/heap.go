// Package heap implements the heap file: a single header page followed by
// a singly-linked chain of slotted data pages, addressed through the
// buffer manager. Records are identified by RID and retrieved/inserted/
// deleted through the access methods in package access; heap.File itself
// only exposes the record-level primitives those cursors are built on.
package heap

import (
	"errors"

	"heapstore/pkg/buffer"
	"heapstore/pkg/dberr"
	"heapstore/pkg/file"
	"heapstore/pkg/page"
	"heapstore/pkg/primitives"
)

// File is an open heap file. Its header page is pinned in the buffer
// manager for the entire lifetime of the File, and it keeps a one-page
// cursor cache (curPageNo/curBuf) so repeated GetRecord calls against the
// same page — the common case for a sequential scan — don't re-pin on
// every call.
type File struct {
	bm       *buffer.Manager
	fileID   primitives.FileID
	headerNo primitives.PageNumber
	header   *page.Header
	hdrDirty bool

	curPageNo primitives.PageNumber
	curBuf    []byte
	curDirty  bool
}

// Create makes a new, empty heap file on disk and opens it: it allocates
// the header page and a single (empty) first data page, stamps the header
// with firstPage == lastPage == that page, and returns the opened File.
func Create(path string, fileID primitives.FileID, bm *buffer.Manager, files *buffer.FileTable) (*File, error) {
	f, err := file.Create(path, fileID)
	if err != nil {
		return nil, dberr.Wrap(err, "Create", "heap.File")
	}
	files.Register(f)

	headerNo, headerBuf, err := bm.AllocPage(fileID)
	if err != nil {
		return nil, dberr.Wrap(err, "Create", "heap.File")
	}
	header := page.NewHeader()
	header.SetFileName(path)
	copy(headerBuf, header.Bytes())

	firstNo, firstBuf, err := bm.AllocPage(fileID)
	if err != nil {
		return nil, dberr.Wrap(err, "Create", "heap.File")
	}
	firstPage := page.NewData()
	copy(firstBuf, firstPage.Bytes())

	header.SetFirstPage(firstNo)
	header.SetLastPage(firstNo)
	header.SetPageCount(1)
	header.SetRecordCount(0)
	copy(headerBuf, header.Bytes())

	if err := bm.UnpinPage(fileID, firstNo, true); err != nil {
		return nil, dberr.Wrap(err, "Create", "heap.File")
	}
	if err := bm.UnpinPage(fileID, headerNo, true); err != nil {
		return nil, dberr.Wrap(err, "Create", "heap.File")
	}

	return Open(fileID, bm, files)
}

// Open opens an already-created heap file. It pins the header page for the
// lifetime of the returned File and primes the cursor on the first data
// page.
func Open(fileID primitives.FileID, bm *buffer.Manager, files *buffer.FileTable) (*File, error) {
	f, ok := files.Get(fileID)
	if !ok {
		return nil, dberr.Wrap(errors.New("file not registered"), "Open", "heap.File")
	}

	headerNo := f.FirstPage()
	headerBuf, err := bm.PinPage(fileID, headerNo)
	if err != nil {
		return nil, dberr.Wrap(err, "Open", "heap.File")
	}
	header, err := page.LoadHeader(headerBuf)
	if err != nil {
		bm.UnpinPage(fileID, headerNo, false)
		return nil, dberr.Wrap(err, "Open", "heap.File")
	}

	hf := &File{
		bm:       bm,
		fileID:   fileID,
		headerNo: headerNo,
		header:   header,
	}

	if firstNo := header.FirstPage(); firstNo != primitives.InvalidPageNumber {
		buf, err := bm.PinPage(fileID, firstNo)
		if err != nil {
			bm.UnpinPage(fileID, headerNo, false)
			return nil, dberr.Wrap(err, "Open", "heap.File")
		}
		hf.curPageNo = firstNo
		hf.curBuf = buf
	}

	return hf, nil
}

// Close unpins the cursor page (if any) and the header page. It does not
// flush dirty frames and does not close the underlying file — callers that
// need durability call buffer.Manager.FlushFile after Close, since
// FlushFile fails with ErrPagePinned while the header page is still pinned.
func (hf *File) Close() error {
	if hf.curBuf != nil {
		if err := hf.bm.UnpinPage(hf.fileID, hf.curPageNo, hf.curDirty); err != nil {
			return dberr.Wrap(err, "Close", "heap.File")
		}
		hf.curBuf = nil
	}
	if err := hf.bm.UnpinPage(hf.fileID, hf.headerNo, hf.hdrDirty); err != nil {
		return dberr.Wrap(err, "Close", "heap.File")
	}
	return nil
}

// Destroy removes the on-disk file at path. The caller must have closed and
// flushed the file first; Destroy itself does not touch the buffer pool and
// does not fail when frames for the file are still resident.
func Destroy(path string) error {
	return dberr.Wrap(file.Destroy(path), "Destroy", "heap.File")
}

// RecordCount returns the header page's running count of live records.
func (hf *File) RecordCount() uint64 {
	return hf.header.RecordCount()
}

// FirstPage returns the page number of the first data page in the chain.
func (hf *File) FirstPage() primitives.PageNumber {
	return hf.header.FirstPage()
}

// FileID returns the identifier this heap file is registered under.
func (hf *File) FileID() primitives.FileID {
	return hf.fileID
}

// FileName returns the path stamped onto the header page at Create time.
func (hf *File) FileName() string {
	return hf.header.FileName()
}

// Buffer returns the buffer manager this heap file was opened against, so
// that access methods can pin pages directly instead of going through the
// file's own single-page cursor.
func (hf *File) Buffer() *buffer.Manager {
	return hf.bm
}

// ensureCurrent makes pageNo the cursor's current page, pinning it if it
// isn't already and unpinning whatever the cursor previously held. This
// implements the three-way branch the original heap file's getRecord
// uses: if the cursor already points at pageNo, nothing happens; if it
// points elsewhere, the old page is unpinned (carrying forward its dirty
// flag) before the new one is pinned.
func (hf *File) ensureCurrent(pageNo primitives.PageNumber) error {
	if hf.curBuf != nil && hf.curPageNo == pageNo {
		return nil
	}

	if hf.curBuf != nil {
		if err := hf.bm.UnpinPage(hf.fileID, hf.curPageNo, hf.curDirty); err != nil {
			hf.curBuf = nil
			return dberr.Wrap(err, "ensureCurrent", "heap.File")
		}
		hf.curBuf = nil
		hf.curDirty = false
	}

	buf, err := hf.bm.PinPage(hf.fileID, pageNo)
	if err != nil {
		return dberr.Wrap(err, "ensureCurrent", "heap.File")
	}
	hf.curPageNo = pageNo
	hf.curBuf = buf
	return nil
}

func (hf *File) currentData() (*page.Data, error) {
	return page.LoadData(hf.curBuf)
}

// GetRecord fetches the record named by rid, reusing the cursor page if
// rid lives on the page the cursor already has pinned.
func (hf *File) GetRecord(rid primitives.RID) ([]byte, error) {
	if err := hf.ensureCurrent(rid.PageNo); err != nil {
		return nil, err
	}
	p, err := hf.currentData()
	if err != nil {
		return nil, dberr.Wrap(err, "GetRecord", "heap.File")
	}
	rec, err := p.GetRecord(rid.Slot)
	if err != nil {
		return nil, dberr.Wrap(err, "GetRecord", "heap.File")
	}
	return rec, nil
}

// DeleteRecord tombstones rid's slot and decrements the header's record
// count.
func (hf *File) DeleteRecord(rid primitives.RID) error {
	if err := hf.ensureCurrent(rid.PageNo); err != nil {
		return err
	}
	p, err := hf.currentData()
	if err != nil {
		return dberr.Wrap(err, "DeleteRecord", "heap.File")
	}
	if err := p.DeleteRecord(rid.Slot); err != nil {
		return dberr.Wrap(err, "DeleteRecord", "heap.File")
	}
	hf.curDirty = true

	hf.header.SetRecordCount(hf.header.RecordCount() - 1)
	hf.hdrDirty = true
	if err := hf.bm.MarkDirty(hf.fileID, hf.headerNo); err != nil {
		return dberr.Wrap(err, "DeleteRecord", "heap.File")
	}
	return nil
}

// InsertRecord appends rec to the tail page of the chain, growing the
// chain by one page if the tail has no room. A record longer than
// page.Size-page.DirectoryOverhead, which no page could hold, is rejected
// up front with dberr.ErrInvalidRecLen so callers don't confuse it with an
// ordinary full-page condition.
func (hf *File) InsertRecord(rec []byte) (primitives.RID, error) {
	if len(rec) > page.Size-page.DirectoryOverhead {
		return primitives.NullRID, dberr.Wrap(dberr.ErrInvalidRecLen, "InsertRecord", "heap.File")
	}

	lastNo := hf.header.LastPage()
	buf, err := hf.bm.PinPage(hf.fileID, lastNo)
	if err != nil {
		return primitives.NullRID, dberr.Wrap(err, "InsertRecord", "heap.File")
	}

	tail, err := page.LoadData(buf)
	if err != nil {
		hf.bm.UnpinPage(hf.fileID, lastNo, false)
		return primitives.NullRID, dberr.Wrap(err, "InsertRecord", "heap.File")
	}

	slot, err := tail.AddRecord(rec)
	if errors.Is(err, dberr.ErrNoSpace) {
		newNo, newBuf, allocErr := hf.bm.AllocPage(hf.fileID)
		if allocErr != nil {
			hf.bm.UnpinPage(hf.fileID, lastNo, false)
			return primitives.NullRID, dberr.Wrap(allocErr, "InsertRecord", "heap.File")
		}
		newPage := page.NewData()

		// Preserve whatever the old tail's next pointer already was
		// (it should be InvalidPageNumber, but splice defensively in
		// case the chain was built out of order) before overwriting it
		// to point at the freshly allocated page.
		oldNext := tail.NextPage()
		newPage.SetNextPage(oldNext)
		tail.SetNextPage(newNo)
		copy(newBuf, newPage.Bytes())

		if err := hf.bm.UnpinPage(hf.fileID, lastNo, true); err != nil {
			hf.bm.UnpinPage(hf.fileID, newNo, false)
			return primitives.NullRID, dberr.Wrap(err, "InsertRecord", "heap.File")
		}

		if oldNext == primitives.InvalidPageNumber {
			hf.header.SetLastPage(newNo)
			hf.header.SetPageCount(hf.header.PageCount() + 1)
			hf.hdrDirty = true
		}

		tail, err = page.LoadData(newBuf)
		if err != nil {
			hf.bm.UnpinPage(hf.fileID, newNo, false)
			return primitives.NullRID, dberr.Wrap(err, "InsertRecord", "heap.File")
		}
		slot, err = tail.AddRecord(rec)
		if err != nil {
			hf.bm.UnpinPage(hf.fileID, newNo, false)
			return primitives.NullRID, dberr.Wrap(err, "InsertRecord", "heap.File")
		}
		lastNo = newNo
	} else if err != nil {
		hf.bm.UnpinPage(hf.fileID, lastNo, false)
		return primitives.NullRID, dberr.Wrap(err, "InsertRecord", "heap.File")
	}

	if err := hf.bm.UnpinPage(hf.fileID, lastNo, true); err != nil {
		return primitives.NullRID, dberr.Wrap(err, "InsertRecord", "heap.File")
	}

	hf.header.SetRecordCount(hf.header.RecordCount() + 1)
	hf.hdrDirty = true
	if err := hf.bm.MarkDirty(hf.fileID, hf.headerNo); err != nil {
		return primitives.NullRID, dberr.Wrap(err, "InsertRecord", "heap.File")
	}
	rid := primitives.RID{PageNo: lastNo, Slot: slot}
	return rid, nil
}
