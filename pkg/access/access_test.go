package access

import (
	"bytes"
	"encoding/binary"
	"errors"
	"path/filepath"
	"testing"

	"heapstore/pkg/buffer"
	"heapstore/pkg/dberr"
	"heapstore/pkg/heap"
	"heapstore/pkg/primitives"
)

func newTestHeap(t *testing.T, poolSize int) (*heap.File, *buffer.Manager) {
	t.Helper()
	dir := t.TempDir()
	files := buffer.NewFileTable()
	bm := buffer.NewManager(poolSize, files)

	hf, err := heap.Create(filepath.Join(dir, "t.heap"), 1, bm, files)
	if err != nil {
		t.Fatalf("heap.Create: %v", err)
	}
	return hf, bm
}

func intBytes(n int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(n))
	return b
}

func TestUnfilteredScanYieldsInsertionOrder(t *testing.T) {
	hf, bm := newTestHeap(t, 8)
	defer func() {
		hf.Close()
		bm.Close()
	}()

	ic := OpenInsertCursor(hf)
	want := [][]byte{[]byte("alpha"), []byte("beta"), []byte("gamma")}
	for _, rec := range want {
		if _, err := ic.Insert(rec); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	sc, err := OpenScan(hf, nil)
	if err != nil {
		t.Fatalf("OpenScan: %v", err)
	}
	defer sc.Close()

	var got [][]byte
	for {
		_, err := sc.Next()
		if errors.Is(err, dberr.ErrFileEOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		rec, err := sc.GetCurrent()
		if err != nil {
			t.Fatalf("GetCurrent: %v", err)
		}
		got = append(got, rec)
	}

	if len(got) != len(want) {
		t.Fatalf("got %d records, want %d", len(got), len(want))
	}
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Fatalf("record %d = %q, want %q", i, got[i], want[i])
		}
	}
	if hf.RecordCount() != 3 {
		t.Fatalf("RecordCount = %d, want 3", hf.RecordCount())
	}
}

func TestFilteredScanGreaterThan(t *testing.T) {
	hf, bm := newTestHeap(t, 8)
	defer func() {
		hf.Close()
		bm.Close()
	}()

	ic := OpenInsertCursor(hf)
	for _, n := range []int32{10, 20, 30, 40} {
		if _, err := ic.Insert(intBytes(n)); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	pred := &Predicate{Offset: 0, Length: 4, Type: TypeInt, Filter: intBytes(20), Op: OpGT}
	sc, err := OpenScan(hf, pred)
	if err != nil {
		t.Fatalf("OpenScan: %v", err)
	}
	defer sc.Close()

	var got []int32
	for {
		_, err := sc.Next()
		if errors.Is(err, dberr.ErrFileEOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		rec, err := sc.GetCurrent()
		if err != nil {
			t.Fatalf("GetCurrent: %v", err)
		}
		got = append(got, int32(binary.LittleEndian.Uint32(rec)))
	}

	if len(got) != 2 || got[0] != 30 || got[1] != 40 {
		t.Fatalf("got %v, want [30 40]", got)
	}
}

func TestScanGrowsAcrossPages(t *testing.T) {
	hf, bm := newTestHeap(t, 8)
	defer func() {
		hf.Close()
		bm.Close()
	}()

	ic := OpenInsertCursor(hf)
	rec := make([]byte, 300)
	const n = 50
	for i := 0; i < n; i++ {
		if _, err := ic.Insert(rec); err != nil {
			t.Fatalf("Insert #%d: %v", i, err)
		}
	}

	sc, err := OpenScan(hf, nil)
	if err != nil {
		t.Fatalf("OpenScan: %v", err)
	}
	defer sc.Close()

	count := 0
	for {
		_, err := sc.Next()
		if errors.Is(err, dberr.ErrFileEOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		count++
	}
	if count != n {
		t.Fatalf("scanned %d records, want %d", count, n)
	}
}

func TestDeleteDuringScan(t *testing.T) {
	hf, bm := newTestHeap(t, 8)
	defer func() {
		hf.Close()
		bm.Close()
	}()

	ic := OpenInsertCursor(hf)
	for _, n := range []int32{1, 2, 3, 4, 5} {
		if _, err := ic.Insert(intBytes(n)); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	filterScan, err := OpenScan(hf, &Predicate{Offset: 0, Length: 4, Type: TypeInt, Filter: intBytes(3), Op: OpEQ})
	if err != nil {
		t.Fatalf("OpenScan: %v", err)
	}
	if _, err := filterScan.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if err := filterScan.DeleteCurrent(); err != nil {
		t.Fatalf("DeleteCurrent: %v", err)
	}
	if err := filterScan.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	fullScan, err := OpenScan(hf, nil)
	if err != nil {
		t.Fatalf("OpenScan: %v", err)
	}
	defer fullScan.Close()

	var remaining []int32
	for {
		_, err := fullScan.Next()
		if errors.Is(err, dberr.ErrFileEOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		rec, err := fullScan.GetCurrent()
		if err != nil {
			t.Fatalf("GetCurrent: %v", err)
		}
		remaining = append(remaining, int32(binary.LittleEndian.Uint32(rec)))
	}

	want := []int32{1, 2, 4, 5}
	if len(remaining) != len(want) {
		t.Fatalf("remaining = %v, want %v", remaining, want)
	}
	for i := range want {
		if remaining[i] != want[i] {
			t.Fatalf("remaining = %v, want %v", remaining, want)
		}
	}
	if hf.RecordCount() != 4 {
		t.Fatalf("RecordCount = %d, want 4", hf.RecordCount())
	}
}

func TestMarkAndReset(t *testing.T) {
	hf, bm := newTestHeap(t, 8)
	defer func() {
		hf.Close()
		bm.Close()
	}()

	ic := OpenInsertCursor(hf)
	for _, n := range []int32{1, 2, 3} {
		if _, err := ic.Insert(intBytes(n)); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	sc, err := OpenScan(hf, nil)
	if err != nil {
		t.Fatalf("OpenScan: %v", err)
	}
	defer sc.Close()

	if _, err := sc.Next(); err != nil {
		t.Fatalf("Next (1st): %v", err)
	}
	sc.Mark()

	if _, err := sc.Next(); err != nil {
		t.Fatalf("Next (2nd): %v", err)
	}
	second, err := sc.GetCurrent()
	if err != nil {
		t.Fatalf("GetCurrent: %v", err)
	}
	if int32(binary.LittleEndian.Uint32(second)) != 2 {
		t.Fatalf("2nd record = %d, want 2", binary.LittleEndian.Uint32(second))
	}

	if err := sc.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	afterReset, err := sc.GetCurrent()
	if err != nil {
		t.Fatalf("GetCurrent after reset: %v", err)
	}
	if int32(binary.LittleEndian.Uint32(afterReset)) != 1 {
		t.Fatalf("after reset = %d, want 1", binary.LittleEndian.Uint32(afterReset))
	}
}

func TestPredicateValidateRejectsBadLength(t *testing.T) {
	pred := &Predicate{Offset: 0, Length: 3, Type: TypeInt, Filter: intBytes(1), Op: OpEQ}
	if _, err := OpenScan(nil, pred); !errors.Is(err, dberr.ErrBadScanParam) {
		t.Fatalf("OpenScan with bad predicate length err = %v, want ErrBadScanParam", err)
	}
}

func TestEmptyHeapScanIsImmediateEOF(t *testing.T) {
	hf, bm := newTestHeap(t, 8)
	defer func() {
		hf.Close()
		bm.Close()
	}()

	sc, err := OpenScan(hf, nil)
	if err != nil {
		t.Fatalf("OpenScan: %v", err)
	}
	defer sc.Close()

	if _, err := sc.Next(); !errors.Is(err, dberr.ErrFileEOF) {
		t.Fatalf("Next on empty heap err = %v, want ErrFileEOF", err)
	}
}

func TestInsertRecordRoundTrip(t *testing.T) {
	hf, bm := newTestHeap(t, 8)
	defer func() {
		hf.Close()
		bm.Close()
	}()

	ic := OpenInsertCursor(hf)
	rid, err := ic.Insert([]byte("round trip"))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := hf.GetRecord(rid)
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if !bytes.Equal(got, []byte("round trip")) {
		t.Fatalf("GetRecord = %q, want %q", got, "round trip")
	}
}

func TestZeroValueRIDIsNotNullRID(t *testing.T) {
	var rid primitives.RID
	if rid.IsNull() {
		t.Fatalf("zero-value RID should not be null: NullRID uses the invalid page and slot sentinels")
	}
}
