// Package buffer implements the buffer manager: a fixed-size pool of page
// frames shared across open files, replaced under a clock (second-chance)
// policy, with pin counts protecting frames an operation is actively using
// from eviction. This is grounded directly on the classic Minibase BufMgr
// algorithm: a flat frame array, a hash directory mapping (file, page) to
// frame index, and a clock hand that sweeps the array looking for a victim.
package buffer

import (
	"sync"

	"heapstore/pkg/dberr"
	"heapstore/pkg/file"
	"heapstore/pkg/logging"
	"heapstore/pkg/primitives"
)

type frameKey struct {
	file primitives.FileID
	page primitives.PageNumber
}

type frame struct {
	valid  bool
	dirty  bool
	refbit bool
	pinCnt int
	file   primitives.FileID
	pageNo primitives.PageNumber
	buf    [file.PageSize]byte
}

// Files is the set of open files a Manager can read and write pages
// through, keyed by the FileID each page's frame is tagged with. The
// manager looks files up by ID rather than holding a direct reference so a
// single pool can serve several open heap files at once.
type Files interface {
	Get(id primitives.FileID) (*file.File, bool)
}

// FileTable is the concrete Files implementation; callers build one and
// pass it to NewManager.
type FileTable struct {
	mu    sync.Mutex
	files map[primitives.FileID]*file.File
}

func NewFileTable() *FileTable {
	return &FileTable{files: make(map[primitives.FileID]*file.File)}
}

func (t *FileTable) Register(f *file.File) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.files[f.ID()] = f
}

func (t *FileTable) Unregister(id primitives.FileID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.files, id)
}

func (t *FileTable) Get(id primitives.FileID) (*file.File, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.files[id]
	return f, ok
}

// Manager is the buffer pool. It is safe for concurrent use, though the
// single-actor model this package is designed for never requires that
// safety — the mutex is cheap insurance matching every buffer pool in
// comparable codebases, not a concurrency feature in its own right.
type Manager struct {
	mu        sync.Mutex
	files     Files
	frames    []frame
	hash      map[frameKey]int
	clockHand int
}

// NewManager creates a buffer pool with room for numFrames pages, backed
// by files for resolving FileID to an open *file.File on a miss.
func NewManager(numFrames int, files Files) *Manager {
	return &Manager{
		files:     files,
		frames:    make([]frame, numFrames),
		hash:      make(map[frameKey]int, nextOdd(int(float64(numFrames)*1.2))),
		clockHand: numFrames - 1,
	}
}

// nextOdd rounds n up to the next odd integer, matching the hash
// directory sizing the original buffer manager uses so the load factor
// stays comfortably below 1 even as the pool fills up.
func nextOdd(n int) int {
	if n%2 == 0 {
		n++
	}
	return n
}

func (m *Manager) advanceClock() {
	m.clockHand = (m.clockHand + 1) % len(m.frames)
}

// allocBuf runs the clock sweep to find a free frame, evicting a victim if
// necessary. The caller must hold m.mu.
func (m *Manager) allocBuf() (int, error) {
	count := 0
	for count < 2*len(m.frames) {
		m.advanceClock()
		fr := &m.frames[m.clockHand]

		if !fr.valid {
			return m.clockHand, nil
		}

		if fr.refbit {
			fr.refbit = false
			count++
			continue
		}

		if fr.pinCnt != 0 {
			count++
			continue
		}

		if fr.dirty {
			f, ok := m.files.Get(fr.file)
			if !ok {
				return 0, dberr.Wrap(dberr.ErrBadBuffer, "allocBuf", "buffer.Manager")
			}
			if err := f.WritePage(fr.pageNo, fr.buf[:]); err != nil {
				return 0, dberr.Wrap(err, "allocBuf", "buffer.Manager")
			}
			fr.dirty = false
		}

		delete(m.hash, frameKey{file: fr.file, page: fr.pageNo})
		*fr = frame{}
		return m.clockHand, nil
	}

	return 0, dberr.Wrap(dberr.ErrBufferExceeded, "allocBuf", "buffer.Manager")
}

// PinPage returns the contents of (fileID, pageNo), pinning it in the
// pool. Every successful PinPage must be matched by exactly one UnpinPage.
func (m *Manager) PinPage(fileID primitives.FileID, pageNo primitives.PageNumber) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := frameKey{file: fileID, page: pageNo}
	if idx, ok := m.hash[key]; ok {
		fr := &m.frames[idx]
		fr.refbit = true
		fr.pinCnt++
		return fr.buf[:], nil
	}

	f, ok := m.files.Get(fileID)
	if !ok {
		return nil, dberr.Wrap(dberr.ErrBadBuffer, "PinPage", "buffer.Manager")
	}

	idx, err := m.allocBuf()
	if err != nil {
		return nil, err
	}

	fr := &m.frames[idx]
	if err := f.ReadPage(pageNo, fr.buf[:]); err != nil {
		*fr = frame{}
		return nil, dberr.Wrap(err, "PinPage", "buffer.Manager")
	}

	*fr = frame{valid: true, refbit: true, pinCnt: 1, file: fileID, pageNo: pageNo, buf: fr.buf}
	m.hash[key] = idx
	return fr.buf[:], nil
}

// UnpinPage decrements the pin count of (fileID, pageNo). If dirty is
// true, the frame's dirty bit is set (OR'd in — a page already dirty
// stays dirty even if this particular unpin claims a clean read).
func (m *Manager) UnpinPage(fileID primitives.FileID, pageNo primitives.PageNumber, dirty bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx, ok := m.hash[frameKey{file: fileID, page: pageNo}]
	if !ok {
		return dberr.Wrap(dberr.ErrHashNotFound, "UnpinPage", "buffer.Manager")
	}

	fr := &m.frames[idx]
	if fr.pinCnt == 0 {
		return dberr.Wrap(dberr.ErrPageNotPinned, "UnpinPage", "buffer.Manager")
	}

	fr.pinCnt--
	if dirty {
		fr.dirty = true
	}
	return nil
}

// MarkDirty sets the dirty bit of a resident, pinned page without
// unpinning it. It exists for pages a caller keeps pinned across its
// entire lifetime — the heap file's header page, most notably — where
// the usual unpin-with-dirty-flag pattern would have to pin it right back
// and briefly violate the "pinned for the file's lifetime" invariant.
func (m *Manager) MarkDirty(fileID primitives.FileID, pageNo primitives.PageNumber) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx, ok := m.hash[frameKey{file: fileID, page: pageNo}]
	if !ok {
		return dberr.Wrap(dberr.ErrHashNotFound, "MarkDirty", "buffer.Manager")
	}
	m.frames[idx].dirty = true
	return nil
}

// AllocPage allocates a fresh page in fileID via the file layer and pins
// it in the pool. The page is not read from the file layer: the returned
// buffer is the victim frame's cleared (all-zero) contents; callers that need a
// specific initial layout (e.g. page.NewData) must write it in and mark
// the page dirty before unpinning.
func (m *Manager) AllocPage(fileID primitives.FileID) (primitives.PageNumber, []byte, error) {
	f, ok := m.files.Get(fileID)
	if !ok {
		return 0, nil, dberr.Wrap(dberr.ErrBadBuffer, "AllocPage", "buffer.Manager")
	}

	pageNo, err := f.AllocatePage()
	if err != nil {
		return 0, nil, dberr.Wrap(err, "AllocPage", "buffer.Manager")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	idx, err := m.allocBuf()
	if err != nil {
		return 0, nil, err
	}

	fr := &m.frames[idx]
	*fr = frame{valid: true, refbit: true, pinCnt: 1, file: fileID, pageNo: pageNo, buf: fr.buf}
	m.hash[frameKey{file: fileID, page: pageNo}] = idx
	return pageNo, fr.buf[:], nil
}

// DisposePage discards a page's buffer pool frame (if resident, without
// writing it back) and returns it to the file layer's free list.
func (m *Manager) DisposePage(fileID primitives.FileID, pageNo primitives.PageNumber) error {
	m.mu.Lock()
	key := frameKey{file: fileID, page: pageNo}
	if idx, ok := m.hash[key]; ok {
		m.frames[idx] = frame{}
		delete(m.hash, key)
	}
	m.mu.Unlock()

	f, ok := m.files.Get(fileID)
	if !ok {
		return dberr.Wrap(dberr.ErrBadBuffer, "DisposePage", "buffer.Manager")
	}
	if err := f.DisposePage(pageNo); err != nil {
		return dberr.Wrap(err, "DisposePage", "buffer.Manager")
	}
	return nil
}

// FlushFile writes back every dirty frame belonging to fileID and removes
// them from the pool. It returns dberr.ErrPagePinned at the first pinned
// frame it encounters, leaving the pool otherwise unmodified by that
// frame (matching the original buffer manager's fail-fast behavior rather
// than flushing everything else first). An invalid frame still tagged with
// fileID is a bookkeeping fault and yields dberr.ErrBadBuffer.
func (m *Manager) FlushFile(fileID primitives.FileID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.files.Get(fileID)
	if !ok {
		return dberr.Wrap(dberr.ErrBadBuffer, "FlushFile", "buffer.Manager")
	}

	for i := range m.frames {
		fr := &m.frames[i]
		if fr.file != fileID {
			continue
		}
		if !fr.valid {
			return dberr.Wrap(dberr.ErrBadBuffer, "FlushFile", "buffer.Manager")
		}

		if fr.pinCnt > 0 {
			return dberr.Wrap(dberr.ErrPagePinned, "FlushFile", "buffer.Manager")
		}

		if fr.dirty {
			if err := f.WritePage(fr.pageNo, fr.buf[:]); err != nil {
				return dberr.Wrap(err, "FlushFile", "buffer.Manager")
			}
			fr.dirty = false
		}

		delete(m.hash, frameKey{file: fr.file, page: fr.pageNo})
		*fr = frame{}
	}

	return nil
}

// FlushAllPages flushes every file with a resident frame in the pool.
func (m *Manager) FlushAllPages() error {
	m.mu.Lock()
	fileIDs := make(map[primitives.FileID]struct{})
	for i := range m.frames {
		if m.frames[i].valid {
			fileIDs[m.frames[i].file] = struct{}{}
		}
	}
	m.mu.Unlock()

	for id := range fileIDs {
		if err := m.FlushFile(id); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes every dirty valid frame, logging a warning for any frame
// still pinned instead of failing — there is no caller left to unpin it,
// so the best this layer can do is make the leak visible.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	log := logging.WithComponent("buffer.Manager")
	for i := range m.frames {
		fr := &m.frames[i]
		if !fr.valid {
			continue
		}

		if fr.pinCnt > 0 {
			log.Warn("frame still pinned at shutdown", "file", fr.file, "page", fr.pageNo, "pin_count", fr.pinCnt)
		}

		if fr.dirty {
			if f, ok := m.files.Get(fr.file); ok {
				if err := f.WritePage(fr.pageNo, fr.buf[:]); err != nil {
					return dberr.Wrap(err, "Close", "buffer.Manager")
				}
			}
		}
	}
	return nil
}

// PinCount returns the current pin count of (fileID, pageNo), or 0 if it
// is not resident. Intended for tests and the inspector TUI.
func (m *Manager) PinCount(fileID primitives.FileID, pageNo primitives.PageNumber) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, ok := m.hash[frameKey{file: fileID, page: pageNo}]
	if !ok {
		return 0
	}
	return m.frames[idx].pinCnt
}

// FrameStats summarizes one frame's state for the inspector TUI.
type FrameStats struct {
	Valid  bool
	File   primitives.FileID
	Page   primitives.PageNumber
	Pin    int
	Dirty  bool
	Refbit bool
}

// Stats returns a snapshot of every frame in the pool, in frame order.
func (m *Manager) Stats() []FrameStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]FrameStats, len(m.frames))
	for i, fr := range m.frames {
		out[i] = FrameStats{
			Valid:  fr.valid,
			File:   fr.file,
			Page:   fr.pageNo,
			Pin:    fr.pinCnt,
			Dirty:  fr.dirty,
			Refbit: fr.refbit,
		}
	}
	return out
}
