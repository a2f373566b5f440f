package primitives

import "testing"

func TestNullRID(t *testing.T) {
	if !NullRID.IsNull() {
		t.Fatalf("NullRID.IsNull() = false, want true")
	}

	r := RID{PageNo: 3, Slot: 2}
	if r.IsNull() {
		t.Fatalf("RID{3,2}.IsNull() = true, want false")
	}
}

func TestRIDString(t *testing.T) {
	r := RID{PageNo: 7, Slot: 1}
	if got, want := r.String(), "RID(page=7,slot=1)"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
