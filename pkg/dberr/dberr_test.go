package dberr

import (
	"errors"
	"testing"
)

func TestWrapPreservesIs(t *testing.T) {
	err := Wrap(ErrPagePinned, "FlushFile", "buffer.Manager")
	if !errors.Is(err, ErrPagePinned) {
		t.Fatalf("errors.Is(wrapped, ErrPagePinned) = false, want true")
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "op", "component") != nil {
		t.Fatalf("Wrap(nil, ...) should return nil")
	}
}

func TestWrapSameOpIdempotent(t *testing.T) {
	first := Wrap(ErrNoSpace, "InsertRecord", "heap.File")
	second := Wrap(first, "InsertRecord", "heap.File")
	if second != first {
		t.Fatalf("re-wrapping with the same op should return the same *Error")
	}
}
