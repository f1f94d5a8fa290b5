package heap

import (
	"bytes"
	"fmt"
	"storedb/pkg/primitives"
	"storedb/pkg/storage/page"
	"storedb/pkg/tuple"
	"storedb/pkg/types"
	"storedb/pkg/utils/functools"
	"sync"
)

// HeapPage represents a single page in a heap file and implements the page.Page interface.
//
// On-disk layout:
//
//	[header: ceil(N/8) bytes][slot 0][slot 1]...[slot N-1][zero padding]
//
// The header is a bitmap, one bit per slot, LSB-first within each byte: bit i
// of byte floor(i/8) is 1 iff slot i is occupied. Every slot is exactly
// tupleDesc.GetSize() bytes, so N is fixed for a given schema and page size:
//
//	N = floor((PageSize*8) / (tupleSize*8 + 1))
//
// Slot i always lives at header + i*tupleSize, so a tuple's RecordID never
// needs to be rewritten - there is no compaction to do.
type HeapPage struct {
	pageID    *page.PageDescriptor
	tupleDesc *tuple.TupleDescription
	header    []byte         // bitmap: bit i set iff slot i occupied
	tuples    []*tuple.Tuple // in-memory tuple cache, indexed by slot number
	numSlots  primitives.SlotID
	dirtier   *primitives.TransactionID
	oldData   []byte // before-image, captured at construction / commit
	mutex     sync.RWMutex
}

// NewEmptyHeapPage creates a brand new, empty HeapPage with the given PageDescriptor and TupleDescription.
func NewEmptyHeapPage(pid *page.PageDescriptor, td *tuple.TupleDescription) (*HeapPage, error) {
	return NewHeapPage(pid, make([]byte, page.PageSize), td)
}

// NewHeapPage parses pid's raw page data according to td's schema. Unused
// slots (bit clear in the header) are left absent in the tuple cache.
func NewHeapPage(pid *page.PageDescriptor, data []byte, td *tuple.TupleDescription) (*HeapPage, error) {
	if len(data) != page.PageSize {
		return nil, fmt.Errorf("invalid page data size: expected %d, got %d", page.PageSize, len(data))
	}

	numSlots := slotsPerPage(td)
	headerLen := headerBytes(numSlots)

	hp := &HeapPage{
		pageID:    pid,
		tupleDesc: td,
		header:    make([]byte, headerLen),
		tuples:    make([]*tuple.Tuple, numSlots),
		numSlots:  numSlots,
		oldData:   make([]byte, page.PageSize),
	}

	if err := hp.parsePageData(data); err != nil {
		return nil, err
	}

	copy(hp.oldData, data)
	return hp, nil
}

// slotsPerPage computes N = floor((PageSize*8) / (tupleSize*8 + 1)).
func slotsPerPage(td *tuple.TupleDescription) primitives.SlotID {
	tupleBits := int(td.GetSize()) * 8
	return primitives.SlotID((page.PageSize * 8) / (tupleBits + 1))
}

// headerBytes computes ceil(n/8).
func headerBytes(n primitives.SlotID) int {
	return (int(n) + 7) / 8
}

// GetNumEmptySlots returns the count of unoccupied tuple slots on this page.
func (hp *HeapPage) GetNumEmptySlots() primitives.SlotID {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()
	return hp.getNumEmptySlots()
}

func (hp *HeapPage) getNumEmptySlots() primitives.SlotID {
	var empty primitives.SlotID
	for i := primitives.SlotID(0); i < hp.numSlots; i++ {
		if !hp.isSlotUsed(i) {
			empty++
		}
	}
	return empty
}

// GetID returns the unique page identifier for this heap page.
func (hp *HeapPage) GetID() *page.PageDescriptor {
	return hp.pageID
}

// IsDirty returns the transaction that last modified this page, or nil if clean.
func (hp *HeapPage) IsDirty() *primitives.TransactionID {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()
	return hp.dirtier
}

// MarkDirty marks this page as dirty (or clean) for a specific transaction.
func (hp *HeapPage) MarkDirty(dirty bool, tid *primitives.TransactionID) {
	hp.mutex.Lock()
	defer hp.mutex.Unlock()

	if dirty {
		hp.dirtier = tid
	} else {
		hp.dirtier = nil
	}
}

// isSlotUsed reports whether bit i of the header bitmap is set. Must be
// called with the lock already held.
func (hp *HeapPage) isSlotUsed(i primitives.SlotID) bool {
	if i >= hp.numSlots {
		return false
	}
	byteIdx := i / 8
	bitIdx := i % 8
	return (hp.header[byteIdx]>>bitIdx)&1 == 1
}

// IsSlotUsed is the exported, locking form of isSlotUsed.
func (hp *HeapPage) IsSlotUsed(i primitives.SlotID) bool {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()
	return hp.isSlotUsed(i)
}

// markSlotUsed sets or clears bit i of the header bitmap. Setting an
// already-set bit (or clearing an already-clear one) is a no-op, so callers
// never need to check isSlotUsed first.
func (hp *HeapPage) markSlotUsed(i primitives.SlotID, used bool) {
	byteIdx := i / 8
	bitIdx := i % 8
	if used {
		hp.header[byteIdx] |= 1 << bitIdx
	} else {
		hp.header[byteIdx] &^= 1 << bitIdx
	}
}

// MarkSlotUsed is the exported, locking form of markSlotUsed.
func (hp *HeapPage) MarkSlotUsed(i primitives.SlotID, used bool) {
	hp.mutex.Lock()
	defer hp.mutex.Unlock()
	hp.markSlotUsed(i, used)
}

// GetPageData serializes the page back to its on-disk byte-exact form:
// header bitmap followed by fixed-width slots, zero-padded to PageSize.
// For any valid page, parse(serialize(p)) reconstructs an equal page.
func (hp *HeapPage) GetPageData() []byte {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()

	data := make([]byte, page.PageSize)
	copy(data, hp.header)

	tupleSize := int(hp.tupleDesc.GetSize())
	headerLen := len(hp.header)

	for i := primitives.SlotID(0); i < hp.numSlots; i++ {
		if !hp.isSlotUsed(i) || hp.tuples[i] == nil {
			continue
		}

		start := headerLen + int(i)*tupleSize
		buf := &bytes.Buffer{}
		for j := 0; j < hp.tupleDesc.NumFields(); j++ {
			field, err := hp.tuples[i].GetField(j)
			if err != nil || field == nil {
				continue
			}
			_ = field.Serialize(buf)
		}
		copy(data[start:start+tupleSize], buf.Bytes())
	}

	return data
}

// GetBeforeImage reconstructs a page from the before-image snapshot.
func (hp *HeapPage) GetBeforeImage() page.Page {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()

	before, _ := NewHeapPage(hp.pageID, hp.oldData, hp.tupleDesc)
	return before
}

// SetBeforeImage captures the current serialized page state as the
// before-image. Called by the buffer pool when a dirtying transaction commits.
func (hp *HeapPage) SetBeforeImage() {
	data := hp.GetPageData()
	hp.mutex.Lock()
	defer hp.mutex.Unlock()
	hp.oldData = data
}

// AddTuple inserts a tuple into the lowest-numbered free slot on this page.
func (hp *HeapPage) AddTuple(t *tuple.Tuple) error {
	hp.mutex.Lock()
	defer hp.mutex.Unlock()

	if !t.TupleDesc.Equals(hp.tupleDesc) {
		return fmt.Errorf("tuple schema does not match page schema")
	}

	slot, err := hp.findFirstEmptySlot()
	if err != nil {
		return fmt.Errorf("page full: %w", err)
	}

	hp.markSlotUsed(slot, true)
	hp.tuples[slot] = t
	t.RecordID = tuple.NewRecordID(hp.pageID, slot)
	return nil
}

// DeleteTuple removes a tuple from this page by RecordID and field equality.
func (hp *HeapPage) DeleteTuple(t *tuple.Tuple) error {
	hp.mutex.Lock()
	defer hp.mutex.Unlock()

	recordID := t.RecordID
	if recordID == nil {
		return fmt.Errorf("tuple not on any page")
	}

	if !recordID.PageID.Equals(hp.pageID) {
		return fmt.Errorf("tuple is not on this page")
	}

	slot := recordID.TupleNum
	if !hp.isSlotUsed(slot) {
		return fmt.Errorf("tuple slot %d is already empty", slot)
	}

	if stored := hp.tuples[slot]; stored != nil && stored != t {
		for j := 0; j < hp.tupleDesc.NumFields(); j++ {
			a, _ := stored.GetField(j)
			b, err := t.GetField(j)
			if err != nil || (a == nil) != (b == nil) || (a != nil && !a.Equals(b)) {
				return fmt.Errorf("tuple does not match the one in slot %d", slot)
			}
		}
	}

	hp.markSlotUsed(slot, false)
	hp.tuples[slot] = nil
	t.RecordID = nil
	return nil
}

// GetTuples returns a snapshot of all occupied slots in slot-index order.
// Concurrent modification of the page after this call does not affect the
// returned slice.
func (hp *HeapPage) GetTuples() []*tuple.Tuple {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()

	return functools.Filter(hp.tuples, func(t *tuple.Tuple) bool {
		return t != nil
	})
}

// GetTupleAt returns the tuple at the specified slot index, or nil if empty.
func (hp *HeapPage) GetTupleAt(idx primitives.SlotID) (*tuple.Tuple, error) {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()

	if idx >= hp.numSlots {
		return nil, fmt.Errorf("slot index %d out of bounds", idx)
	}
	return hp.tuples[idx], nil
}

// NumSlots returns the total number of tuple slots on this page (N).
func (hp *HeapPage) NumSlots() primitives.SlotID {
	return hp.numSlots
}

// parsePageData deserializes raw page bytes into the header bitmap and
// tuple cache. Called during construction to reconstruct page state.
func (hp *HeapPage) parsePageData(data []byte) error {
	headerLen := len(hp.header)
	copy(hp.header, data[:headerLen])

	tupleSize := int(hp.tupleDesc.GetSize())

	for i := primitives.SlotID(0); i < hp.numSlots; i++ {
		if !hp.isSlotUsed(i) {
			continue
		}

		start := headerLen + int(i)*tupleSize
		end := start + tupleSize
		if end > len(data) {
			return fmt.Errorf("invalid page data: slot %d exceeds page size", i)
		}

		reader := bytes.NewReader(data[start:end])
		t, err := readTuple(reader, hp.tupleDesc)
		if err != nil {
			return fmt.Errorf("failed to read tuple at slot %d: %w", i, err)
		}

		t.RecordID = tuple.NewRecordID(hp.pageID, i)
		hp.tuples[i] = t
	}

	return nil
}

func (hp *HeapPage) findFirstEmptySlot() (primitives.SlotID, error) {
	for i := primitives.SlotID(0); i < hp.numSlots; i++ {
		if !hp.isSlotUsed(i) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("no empty slot")
}

// readTuple deserializes a single tuple from a byte stream.
func readTuple(reader *bytes.Reader, td *tuple.TupleDescription) (*tuple.Tuple, error) {
	t := tuple.NewTuple(td)

	for j := 0; j < td.NumFields(); j++ {
		fieldType, err := td.TypeAtIndex(j)
		if err != nil {
			return nil, err
		}

		field, err := types.ParseField(reader, fieldType)
		if err != nil {
			return nil, err
		}

		if err := t.SetField(j, field); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// GetTupleDesc returns the tuple description (schema) for this page.
func (hp *HeapPage) GetTupleDesc() *tuple.TupleDescription {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()
	return hp.tupleDesc
}
