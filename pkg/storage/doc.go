// Package storage is the root of storedb's disk-based storage layer.
//
// Data is organised into fixed-size 4 KB pages that are read and written as
// atomic units. Its sub-packages build on that foundation:
//
//   - [storedb/pkg/storage/page] – the Page and DbFile contracts, page
//     identifiers, and the low-level file I/O shared by every file type.
//   - [storedb/pkg/storage/heap] – heap files: unordered collections of
//     pages storing fixed-width rows behind a header bitmap, with
//     sequential scans and insert-into-first-free-slot placement.
//
// # Page layout
//
// A heap page is a header bitmap (one bit per slot, LSB-first) followed by
// fixed-width tuple slots and zero padding. Slot positions never move, so a
// tuple's record id stays valid until the tuple is deleted. Pages are never
// partially written; each read or write covers the whole page.
package storage
