// Package access implements the scan and insert cursors built on top of a
// heap file: ScanCursor walks a file's page chain applying an optional
// filter predicate, InsertCursor appends records.
package access

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"heapstore/pkg/dberr"
)

// DataType selects how Predicate.Match interprets the attribute bytes it
// extracts from a record.
type DataType int

const (
	TypeInt DataType = iota
	TypeFloat
	TypeString
)

// Operator is the comparison applied between an extracted attribute and
// the predicate's filter value.
type Operator int

const (
	OpLT Operator = iota
	OpLE
	OpEQ
	OpGE
	OpGT
	OpNE
)

// Predicate configures a filtered scan: compare the Length bytes at Offset
// against Filter using Op, interpreting both sides as Type. A nil Filter
// means the scan is unfiltered and matches every record.
type Predicate struct {
	Offset int
	Length int
	Type   DataType
	Filter []byte
	Op     Operator
}

// Validate checks the predicate's shape before a scan starts: offset and
// length must be non-negative/positive, fixed-width types must carry a
// matching length, and the operator must be one of the enumerated set.
func (p *Predicate) Validate() error {
	if p.Offset < 0 {
		return fmt.Errorf("access: offset %d < 0: %w", p.Offset, dberr.ErrBadScanParam)
	}
	if p.Length < 1 {
		return fmt.Errorf("access: length %d < 1: %w", p.Length, dberr.ErrBadScanParam)
	}
	switch p.Type {
	case TypeInt:
		if p.Length != 4 {
			return fmt.Errorf("access: integer predicate length %d != 4: %w", p.Length, dberr.ErrBadScanParam)
		}
	case TypeFloat:
		if p.Length != 4 {
			return fmt.Errorf("access: float predicate length %d != 4: %w", p.Length, dberr.ErrBadScanParam)
		}
	case TypeString:
	default:
		return fmt.Errorf("access: unknown datatype %d: %w", p.Type, dberr.ErrBadScanParam)
	}
	switch p.Op {
	case OpLT, OpLE, OpEQ, OpGE, OpGT, OpNE:
	default:
		return fmt.Errorf("access: unknown operator %d: %w", p.Op, dberr.ErrBadScanParam)
	}
	return nil
}

// Match reports whether rec satisfies the predicate. A nil Filter matches
// everything. An attribute range that runs past the end of rec is tolerated
// as a non-match, never as an error — the record is simply too short to
// carry the attribute. The attribute bytes are copied into a local buffer
// before interpretation rather than read in place, since a record's byte
// layout carries no alignment guarantee.
func (p *Predicate) Match(rec []byte) bool {
	if p.Filter == nil {
		return true
	}
	if p.Offset+p.Length-1 >= len(rec) {
		return false
	}

	attr := make([]byte, p.Length)
	copy(attr, rec[p.Offset:p.Offset+p.Length])

	var diff int
	switch p.Type {
	case TypeInt:
		a := int32(binary.LittleEndian.Uint32(attr))
		f := int32(binary.LittleEndian.Uint32(p.Filter))
		diff = int(a - f)
	case TypeFloat:
		a := math.Float32frombits(binary.LittleEndian.Uint32(attr))
		f := math.Float32frombits(binary.LittleEndian.Uint32(p.Filter))
		switch {
		case a < f:
			diff = -1
		case a > f:
			diff = 1
		}
	case TypeString:
		diff = bytes.Compare(attr, p.Filter)
	}

	switch p.Op {
	case OpLT:
		return diff < 0
	case OpLE:
		return diff <= 0
	case OpEQ:
		return diff == 0
	case OpGE:
		return diff >= 0
	case OpGT:
		return diff > 0
	case OpNE:
		return diff != 0
	default:
		return false
	}
}
