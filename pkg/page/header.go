package page

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"heapstore/pkg/primitives"
)

// Header is the single header page every heap file has exactly one of. It
// records the file's name, the chain's endpoints, and aggregate counts; it
// is pinned in the buffer pool for the entire lifetime of an open
// heap.File.
//
// On-disk layout:
//
//	[0:8]    firstPage
//	[8:16]   lastPage
//	[16:24]  pageCnt
//	[24:32]  recCnt
//	[32:96]  fileName, NUL-padded, truncated to fit
type Header struct {
	buf []byte
}

const (
	hdrOffFirstPage = 0
	hdrOffLastPage  = 8
	hdrOffPageCnt   = 16
	hdrOffRecCnt    = 24
	hdrOffFileName  = 32
	fileNameSize    = 64
)

// NewHeader creates a fresh header page with no data pages yet.
func NewHeader() *Header {
	h := &Header{buf: make([]byte, Size)}
	h.SetFirstPage(primitives.InvalidPageNumber)
	h.SetLastPage(primitives.InvalidPageNumber)
	return h
}

// LoadHeader wraps an existing PageSize-byte buffer as a Header page.
func LoadHeader(buf []byte) (*Header, error) {
	if len(buf) != Size {
		return nil, fmt.Errorf("page: buffer size %d != page size %d", len(buf), Size)
	}
	return &Header{buf: buf}, nil
}

// Bytes returns the header page's raw on-disk representation.
func (h *Header) Bytes() []byte {
	return h.buf
}

func (h *Header) FirstPage() primitives.PageNumber {
	return primitives.PageNumber(binary.LittleEndian.Uint64(h.buf[hdrOffFirstPage:]))
}

func (h *Header) SetFirstPage(pn primitives.PageNumber) {
	binary.LittleEndian.PutUint64(h.buf[hdrOffFirstPage:], uint64(pn))
}

func (h *Header) LastPage() primitives.PageNumber {
	return primitives.PageNumber(binary.LittleEndian.Uint64(h.buf[hdrOffLastPage:]))
}

func (h *Header) SetLastPage(pn primitives.PageNumber) {
	binary.LittleEndian.PutUint64(h.buf[hdrOffLastPage:], uint64(pn))
}

func (h *Header) PageCount() uint64 {
	return binary.LittleEndian.Uint64(h.buf[hdrOffPageCnt:])
}

func (h *Header) SetPageCount(n uint64) {
	binary.LittleEndian.PutUint64(h.buf[hdrOffPageCnt:], n)
}

func (h *Header) RecordCount() uint64 {
	return binary.LittleEndian.Uint64(h.buf[hdrOffRecCnt:])
}

func (h *Header) SetRecordCount(n uint64) {
	binary.LittleEndian.PutUint64(h.buf[hdrOffRecCnt:], n)
}

// FileName returns the name stamped on this header page by SetFileName,
// with the trailing NUL padding stripped.
func (h *Header) FileName() string {
	raw := h.buf[hdrOffFileName : hdrOffFileName+fileNameSize]
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	return string(raw)
}

// SetFileName stamps name onto the header page, truncating it to
// fileNameSize bytes if necessary and NUL-padding the remainder.
func (h *Header) SetFileName(name string) {
	dst := h.buf[hdrOffFileName : hdrOffFileName+fileNameSize]
	for i := range dst {
		dst[i] = 0
	}
	copy(dst, name)
}
