// Package file implements the on-disk file layer the buffer manager reads
// and writes through: fixed-size pages addressed by page number, grown by
// appending and shrunk only logically (DisposePage marks a page free for
// reuse, it never truncates the file).
package file

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"heapstore/pkg/dberr"
	"heapstore/pkg/primitives"
)

// PageSize is the fixed size, in bytes, of every page in every heap file.
const PageSize = 4096

// File is a single heap file's on-disk page store: a flat array of
// PageSize-byte pages plus a free list of disposed page numbers available
// for reuse by AllocatePage.
type File struct {
	mu       sync.Mutex
	f        *os.File
	path     string
	id       primitives.FileID
	numPages primitives.PageNumber
	free     []primitives.PageNumber
}

// Create makes a new, empty file at path. It returns dberr.ErrFileExists
// if a file already exists there — callers that want to reopen an existing
// file should use Open instead.
func Create(path string, id primitives.FileID) (*File, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, dberr.Wrap(dberr.ErrFileExists, "Create", "file.File")
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, dberr.Wrap(err, "Create", "file.File")
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, dberr.Wrap(err, "Create", "file.File")
	}

	return &File{f: f, path: path, id: id}, nil
}

// Open opens an existing file at path.
func Open(path string, id primitives.FileID) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o600)
	if err != nil {
		return nil, dberr.Wrap(err, "Open", "file.File")
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, dberr.Wrap(err, "Open", "file.File")
	}

	numPages := primitives.PageNumber(fi.Size() / PageSize)
	return &File{f: f, path: path, id: id, numPages: numPages}, nil
}

// Destroy removes the file from disk. The caller is responsible for having
// closed (or never opened) any buffer manager frames referencing it.
func Destroy(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return dberr.Wrap(err, "Destroy", "file.File")
	}
	return nil
}

// Close closes the underlying OS file handle. It does not flush any
// buffered dirty pages — that is the buffer manager's job.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.f.Close()
}

// ID returns the identifier this file was opened or created with.
func (f *File) ID() primitives.FileID {
	return f.id
}

// Path returns the filesystem path this file was opened from.
func (f *File) Path() string {
	return f.path
}

// FirstPage returns the page number of the file's header page. The header
// page is always the first page ever allocated in a freshly created file,
// so this is always 0; the method exists as a named contract point rather
// than a hardcoded constant scattered through callers.
func (f *File) FirstPage() primitives.PageNumber {
	return 0
}

// NumPages returns the number of pages currently allocated in the file,
// including any on the free list.
func (f *File) NumPages() primitives.PageNumber {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.numPages
}

// AllocatePage reserves a new page, preferring a disposed page number from
// the free list over growing the file.
func (f *File) AllocatePage() (primitives.PageNumber, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if n := len(f.free); n > 0 {
		pn := f.free[n-1]
		f.free = f.free[:n-1]
		return pn, nil
	}

	pn := f.numPages
	zero := make([]byte, PageSize)
	if _, err := f.f.WriteAt(zero, int64(pn)*PageSize); err != nil {
		return 0, dberr.Wrap(err, "AllocatePage", "file.File")
	}
	f.numPages++
	return pn, nil
}

// DisposePage marks pn as free for reuse. It does not zero the page's
// on-disk contents; AllocatePage's caller is expected to overwrite them.
func (f *File) DisposePage(pn primitives.PageNumber) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if pn >= f.numPages {
		return dberr.Wrap(fmt.Errorf("page %d out of range", pn), "DisposePage", "file.File")
	}
	f.free = append(f.free, pn)
	return nil
}

// ReadPage reads page pn into buf, which must be exactly PageSize bytes.
func (f *File) ReadPage(pn primitives.PageNumber, buf []byte) error {
	if len(buf) != PageSize {
		return dberr.Wrap(fmt.Errorf("buffer size %d != page size %d", len(buf), PageSize), "ReadPage", "file.File")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if pn >= f.numPages {
		return dberr.Wrap(dberr.ErrFileEOF, "ReadPage", "file.File")
	}

	_, err := f.f.ReadAt(buf, int64(pn)*PageSize)
	if err != nil && !errors.Is(err, io.EOF) {
		return dberr.Wrap(err, "ReadPage", "file.File")
	}
	return nil
}

// WritePage writes buf, which must be exactly PageSize bytes, to page pn.
// It calls Sync after writing so a crash immediately after WritePage
// returns cannot lose the write, matching the write-through discipline the
// buffer manager relies on when flushing dirty frames.
func (f *File) WritePage(pn primitives.PageNumber, buf []byte) error {
	if len(buf) != PageSize {
		return dberr.Wrap(fmt.Errorf("buffer size %d != page size %d", len(buf), PageSize), "WritePage", "file.File")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if pn >= f.numPages {
		return dberr.Wrap(dberr.ErrFileEOF, "WritePage", "file.File")
	}

	if _, err := f.f.WriteAt(buf, int64(pn)*PageSize); err != nil {
		return dberr.Wrap(err, "WritePage", "file.File")
	}
	return f.f.Sync()
}
