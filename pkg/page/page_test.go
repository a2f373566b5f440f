package page

import (
	"bytes"
	"errors"
	"testing"

	"heapstore/pkg/dberr"
	"heapstore/pkg/primitives"
)

func TestAddAndGetRecord(t *testing.T) {
	p := NewData()
	rec := []byte("hello world")

	slot, err := p.AddRecord(rec)
	if err != nil {
		t.Fatalf("AddRecord: %v", err)
	}

	got, err := p.GetRecord(slot)
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if !bytes.Equal(got, rec) {
		t.Fatalf("GetRecord = %q, want %q", got, rec)
	}
}

func TestDeleteTombstonesWithoutShiftingOtherSlots(t *testing.T) {
	p := NewData()
	s0, _ := p.AddRecord([]byte("aaa"))
	s1, _ := p.AddRecord([]byte("bbb"))
	s2, _ := p.AddRecord([]byte("ccc"))

	if err := p.DeleteRecord(s0); err != nil {
		t.Fatalf("DeleteRecord: %v", err)
	}

	if p.IsSlotUsed(s0) {
		t.Fatalf("slot %d should be tombstoned", s0)
	}
	if !p.IsSlotUsed(s1) || !p.IsSlotUsed(s2) {
		t.Fatalf("deleting slot %d should not affect other slots", s0)
	}

	got, err := p.GetRecord(s2)
	if err != nil || !bytes.Equal(got, []byte("ccc")) {
		t.Fatalf("GetRecord(s2) = %q, %v, want ccc, nil", got, err)
	}
}

func TestAddRecordReusesTombstonedSlot(t *testing.T) {
	p := NewData()
	s0, _ := p.AddRecord([]byte("aaa"))
	p.AddRecord([]byte("bbb"))
	p.DeleteRecord(s0)

	before := p.NumSlots()
	reused, err := p.AddRecord([]byte("ccc"))
	if err != nil {
		t.Fatalf("AddRecord: %v", err)
	}
	if reused != s0 {
		t.Fatalf("AddRecord after delete reused slot %d, want %d", reused, s0)
	}
	if p.NumSlots() != before {
		t.Fatalf("NumSlots grew from %d to %d; should reuse the tombstoned slot", before, p.NumSlots())
	}
}

func TestAddRecordNoSpace(t *testing.T) {
	p := NewData()
	big := make([]byte, Size)
	if _, err := p.AddRecord(big); !errors.Is(err, dberr.ErrNoSpace) {
		t.Fatalf("AddRecord(oversized) err = %v, want ErrNoSpace", err)
	}
}

func TestCompactPreservesSlotNumbers(t *testing.T) {
	p := NewData()
	s0, _ := p.AddRecord([]byte("aaa"))
	s1, _ := p.AddRecord([]byte("bbbbb"))
	p.DeleteRecord(s0)

	p.Compact()

	if p.IsSlotUsed(s0) {
		t.Fatalf("compacted slot %d should still be tombstoned", s0)
	}
	got, err := p.GetRecord(s1)
	if err != nil || !bytes.Equal(got, []byte("bbbbb")) {
		t.Fatalf("GetRecord(s1) after compact = %q, %v", got, err)
	}
}

func TestNextPageRoundTrip(t *testing.T) {
	p := NewData()
	if p.NextPage() != primitives.InvalidPageNumber {
		t.Fatalf("fresh page NextPage() = %d, want InvalidPageNumber", p.NextPage())
	}
	p.SetNextPage(42)
	if p.NextPage() != 42 {
		t.Fatalf("NextPage() = %d, want 42", p.NextPage())
	}
}

func TestLoadDataRejectsWrongSize(t *testing.T) {
	if _, err := LoadData(make([]byte, 10)); err == nil {
		t.Fatalf("LoadData with wrong size should error")
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	h := NewHeader()
	h.SetFirstPage(1)
	h.SetLastPage(5)
	h.SetPageCount(5)
	h.SetRecordCount(100)

	h2, err := LoadHeader(h.Bytes())
	if err != nil {
		t.Fatalf("LoadHeader: %v", err)
	}
	if h2.FirstPage() != 1 || h2.LastPage() != 5 || h2.PageCount() != 5 || h2.RecordCount() != 100 {
		t.Fatalf("header fields did not round-trip: %+v", h2)
	}
}

func TestHeaderFileNameRoundTrip(t *testing.T) {
	h := NewHeader()
	h.SetFileName("/tmp/orders.heap")

	h2, err := LoadHeader(h.Bytes())
	if err != nil {
		t.Fatalf("LoadHeader: %v", err)
	}
	if got := h2.FileName(); got != "/tmp/orders.heap" {
		t.Fatalf("FileName() = %q, want /tmp/orders.heap", got)
	}
}

func TestHeaderFileNameTruncatesOverlongNames(t *testing.T) {
	h := NewHeader()
	long := bytes.Repeat([]byte("x"), fileNameSize+32)
	h.SetFileName(string(long))

	got := h.FileName()
	if len(got) != fileNameSize {
		t.Fatalf("FileName() length = %d, want %d", len(got), fileNameSize)
	}
}

func TestDirectoryOverheadBoundsMaxRecordSize(t *testing.T) {
	p := NewData()
	rec := make([]byte, Size-DirectoryOverhead)
	if _, err := p.AddRecord(rec); err != nil {
		t.Fatalf("AddRecord at exactly Size-DirectoryOverhead: %v", err)
	}
}
