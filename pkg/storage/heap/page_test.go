package heap

import (
	"testing"

	"storedb/pkg/primitives"
	"storedb/pkg/storage/page"
	"storedb/pkg/tuple"
	"storedb/pkg/types"
)

func twoIntDesc(t *testing.T) *tuple.TupleDescription {
	t.Helper()
	td, err := tuple.NewTupleDesc(
		[]types.Type{types.IntType, types.IntType},
		[]string{"a", "b"},
	)
	if err != nil {
		t.Fatalf("failed to build tuple desc: %v", err)
	}
	return td
}

func twoIntTuple(t *testing.T, td *tuple.TupleDescription, a, b int32) *tuple.Tuple {
	t.Helper()
	tp := tuple.NewTuple(td)
	if err := tp.SetField(0, types.NewIntField(a)); err != nil {
		t.Fatalf("SetField(0): %v", err)
	}
	if err := tp.SetField(1, types.NewIntField(b)); err != nil {
		t.Fatalf("SetField(1): %v", err)
	}
	return tp
}

func emptyPage(t *testing.T, td *tuple.TupleDescription) *HeapPage {
	t.Helper()
	pid := page.NewPageDescriptor(primitives.TableID(1), 0)
	hp, err := NewEmptyHeapPage(pid, td)
	if err != nil {
		t.Fatalf("NewEmptyHeapPage: %v", err)
	}
	return hp
}

// A 4096-byte page of 8-byte tuples fits 504 slots behind a 63-byte header:
// floor(4096*8 / (8*8+1)) = 504, ceil(504/8) = 63.
func TestHeapPage_SlotGeometry(t *testing.T) {
	td := twoIntDesc(t)
	hp := emptyPage(t, td)

	if hp.NumSlots() != 504 {
		t.Errorf("expected 504 slots, got %d", hp.NumSlots())
	}
	if got := headerBytes(hp.NumSlots()); got != 63 {
		t.Errorf("expected 63 header bytes, got %d", got)
	}
	if hp.GetNumEmptySlots() != 504 {
		t.Errorf("expected all 504 slots empty, got %d", hp.GetNumEmptySlots())
	}
}

func TestHeapPage_SerializeParseRoundTrip(t *testing.T) {
	td := twoIntDesc(t)
	hp := emptyPage(t, td)

	inserted := [][2]int32{{1, 10}, {2, 20}, {3, 30}}
	for _, pair := range inserted {
		if err := hp.AddTuple(twoIntTuple(t, td, pair[0], pair[1])); err != nil {
			t.Fatalf("AddTuple(%v): %v", pair, err)
		}
	}

	data := hp.GetPageData()
	if len(data) != page.PageSize {
		t.Fatalf("serialized page is %d bytes, expected %d", len(data), page.PageSize)
	}

	reparsed, err := NewHeapPage(hp.GetID(), data, td)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}

	tuples := reparsed.GetTuples()
	if len(tuples) != len(inserted) {
		t.Fatalf("expected %d tuples after round trip, got %d", len(inserted), len(tuples))
	}
	for i, pair := range inserted {
		for j, want := range pair {
			f, err := tuples[i].GetField(j)
			if err != nil {
				t.Fatalf("tuple %d field %d: %v", i, j, err)
			}
			if !f.Equals(types.NewIntField(want)) {
				t.Errorf("tuple %d field %d = %s, expected %d", i, j, f.String(), want)
			}
		}
		if tuples[i].RecordID == nil || tuples[i].RecordID.TupleNum != primitives.SlotID(i) {
			t.Errorf("tuple %d has wrong record id %v", i, tuples[i].RecordID)
		}
	}

	// Byte-exactness: serializing the reparsed page reproduces the input.
	redata := reparsed.GetPageData()
	for i := range data {
		if data[i] != redata[i] {
			t.Fatalf("serialized pages differ at byte %d", i)
		}
	}
}

func TestHeapPage_InsertFillsLowestFreeSlot(t *testing.T) {
	td := twoIntDesc(t)
	hp := emptyPage(t, td)

	first := twoIntTuple(t, td, 1, 1)
	second := twoIntTuple(t, td, 2, 2)
	third := twoIntTuple(t, td, 3, 3)
	for _, tp := range []*tuple.Tuple{first, second, third} {
		if err := hp.AddTuple(tp); err != nil {
			t.Fatalf("AddTuple: %v", err)
		}
	}

	if err := hp.DeleteTuple(second); err != nil {
		t.Fatalf("DeleteTuple: %v", err)
	}

	refill := twoIntTuple(t, td, 4, 4)
	if err := hp.AddTuple(refill); err != nil {
		t.Fatalf("AddTuple after delete: %v", err)
	}
	if refill.RecordID.TupleNum != 1 {
		t.Errorf("expected refill to land in freed slot 1, got %d", refill.RecordID.TupleNum)
	}
}

func TestHeapPage_InsertRejectsMismatchedSchema(t *testing.T) {
	td := twoIntDesc(t)
	hp := emptyPage(t, td)

	otherDesc, err := tuple.NewTupleDesc([]types.Type{types.IntType}, []string{"only"})
	if err != nil {
		t.Fatalf("NewTupleDesc: %v", err)
	}
	mismatched := tuple.NewTuple(otherDesc)
	if err := mismatched.SetField(0, types.NewIntField(7)); err != nil {
		t.Fatalf("SetField: %v", err)
	}

	if err := hp.AddTuple(mismatched); err == nil {
		t.Error("expected schema mismatch error, got nil")
	}
}

func TestHeapPage_InsertIntoFullPageFails(t *testing.T) {
	td := twoIntDesc(t)
	hp := emptyPage(t, td)

	for i := primitives.SlotID(0); i < hp.NumSlots(); i++ {
		if err := hp.AddTuple(twoIntTuple(t, td, int32(i), int32(i))); err != nil {
			t.Fatalf("AddTuple at slot %d: %v", i, err)
		}
	}
	if hp.GetNumEmptySlots() != 0 {
		t.Fatalf("expected full page, %d slots still empty", hp.GetNumEmptySlots())
	}

	if err := hp.AddTuple(twoIntTuple(t, td, 999, 999)); err == nil {
		t.Error("expected page-full error, got nil")
	}
}

func TestHeapPage_DeleteErrors(t *testing.T) {
	td := twoIntDesc(t)
	hp := emptyPage(t, td)

	detached := twoIntTuple(t, td, 1, 1)
	if err := hp.DeleteTuple(detached); err == nil {
		t.Error("expected error deleting tuple with no record id")
	}

	inserted := twoIntTuple(t, td, 2, 2)
	if err := hp.AddTuple(inserted); err != nil {
		t.Fatalf("AddTuple: %v", err)
	}
	slot := inserted.RecordID.TupleNum
	if err := hp.DeleteTuple(inserted); err != nil {
		t.Fatalf("DeleteTuple: %v", err)
	}

	// Deleting again is a double free: the slot is already empty.
	inserted.RecordID = tuple.NewRecordID(hp.GetID(), slot)
	if err := hp.DeleteTuple(inserted); err == nil {
		t.Error("expected error deleting already-empty slot")
	}

	// A record id pointing at some other page is rejected outright.
	otherPID := page.NewPageDescriptor(primitives.TableID(1), 9)
	stranger := twoIntTuple(t, td, 3, 3)
	stranger.RecordID = tuple.NewRecordID(otherPID, 0)
	if err := hp.DeleteTuple(stranger); err == nil {
		t.Error("expected error deleting tuple from another page")
	}
}

func TestHeapPage_SlotBitmapTwiddling(t *testing.T) {
	td := twoIntDesc(t)
	hp := emptyPage(t, td)

	if hp.IsSlotUsed(9) {
		t.Error("slot 9 should start empty")
	}
	hp.MarkSlotUsed(9, true)
	if !hp.IsSlotUsed(9) {
		t.Error("slot 9 should be used after marking")
	}
	// Idempotent: re-marking an already-set bit changes nothing.
	hp.MarkSlotUsed(9, true)
	if !hp.IsSlotUsed(9) {
		t.Error("slot 9 should stay used after re-marking")
	}
	hp.MarkSlotUsed(9, false)
	if hp.IsSlotUsed(9) {
		t.Error("slot 9 should be empty after clearing")
	}

	if hp.IsSlotUsed(hp.NumSlots()) {
		t.Error("out-of-range slot should report unused")
	}
}

func TestHeapPage_BeforeImage(t *testing.T) {
	td := twoIntDesc(t)
	hp := emptyPage(t, td)

	if err := hp.AddTuple(twoIntTuple(t, td, 1, 10)); err != nil {
		t.Fatalf("AddTuple: %v", err)
	}

	// The before-image was captured at construction, when the page was
	// empty, so the insert must not be visible through it.
	before := hp.GetBeforeImage()
	beforeHeap, ok := before.(*HeapPage)
	if !ok {
		t.Fatalf("before image is not a heap page")
	}
	if got := len(beforeHeap.GetTuples()); got != 0 {
		t.Errorf("before image should be empty, has %d tuples", got)
	}

	// After a commit-time refresh, the insert becomes the new baseline.
	hp.SetBeforeImage()
	refreshed := hp.GetBeforeImage().(*HeapPage)
	if got := len(refreshed.GetTuples()); got != 1 {
		t.Errorf("refreshed before image should hold 1 tuple, has %d", got)
	}
}

func TestHeapPage_ParseRejectsWrongSize(t *testing.T) {
	td := twoIntDesc(t)
	pid := page.NewPageDescriptor(primitives.TableID(1), 0)

	if _, err := NewHeapPage(pid, make([]byte, page.PageSize-1), td); err == nil {
		t.Error("expected error for undersized page data")
	}
	if _, err := NewHeapPage(pid, make([]byte, page.PageSize+1), td); err == nil {
		t.Error("expected error for oversized page data")
	}
}
