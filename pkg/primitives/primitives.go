// Package primitives holds the small value types shared by the file, page,
// buffer, heap and access packages: page and slot numbers, the file
// identifier, and the record identifier (RID).
package primitives

import "fmt"

// FileID identifies an open heap file for the lifetime of the process.
// It has no relationship to any on-disk value; it exists so the buffer
// manager's hash directory can key frames on (FileID, PageNumber) without
// holding a pointer to the file itself.
type FileID uint64

// InvalidFileID is the zero value, never assigned to a real file.
const InvalidFileID FileID = 0

// PageNumber is the ordinal position of a page within a single file,
// starting at 0 for the header page.
type PageNumber uint64

// InvalidPageNumber marks "no page" — the end of a linked chain, or an
// uninitialized cursor.
const InvalidPageNumber PageNumber = ^PageNumber(0)

// SlotNumber is the ordinal position of a slot within a page's slot
// directory.
type SlotNumber uint16

// InvalidSlotNumber marks "no slot".
const InvalidSlotNumber SlotNumber = ^SlotNumber(0)

// RID (record identifier) names a single record by the page that holds it
// and its slot within that page's directory. RIDs are stable across
// deletion of other records on the same page: deleting a record tombstones
// its slot rather than shifting later slots down.
type RID struct {
	PageNo PageNumber
	Slot   SlotNumber
}

// NullRID is returned where no record identifier applies. It is not the
// zero value of RID: both of its fields hold the invalid sentinels.
var NullRID = RID{PageNo: InvalidPageNumber, Slot: InvalidSlotNumber}

// IsNull reports whether r is the null RID.
func (r RID) IsNull() bool {
	return r.PageNo == InvalidPageNumber && r.Slot == InvalidSlotNumber
}

func (r RID) String() string {
	return fmt.Sprintf("RID(page=%d,slot=%d)", r.PageNo, r.Slot)
}
