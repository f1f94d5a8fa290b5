package primitives

import "math"

// LSN (Log Sequence Number) uniquely identifies each log record
// It's monotonically increasing and represents the byte offset in the log file
type LSN uint64

// HashCode represents a hash value (e.g., for keys, page IDs, etc.)
// It is typically computed for fast comparisons or lookups.
type HashCode uint64

// FileID is the base type representing a unique file identifier derived from hashing a file path.
// It serves as the foundation for both TableID and IndexID, representing the physical file's identity.
//
// FileID is generated using xxhash of the file's absolute path and provides:
//   - Deterministic identification: Same path always produces same ID
//   - Fast lookups in hash-based data structures
//   - Collision resistance for different paths
//
// This type is typically not used directly - instead use TableID or IndexID for semantic clarity.
type FileID uint64

// TableID identifies a heap file / table. It shares its value space with
// FileID: a table's id is the hash of its backing file's absolute path.
type TableID uint64

// IndexID identifies an index file. Like TableID it shares FileID's value
// space; this engine does not implement indexes but keeps the type for
// symmetry with the catalog's file-identity model.
type IndexID uint64

// TransactionID is the monotonically increasing, globally unique identifier
// assigned to a transaction when it starts.
type TransactionID int64

// SlotID represents a slot number within a page (for tuple storage)
type SlotID uint16

// PageNumber represents a page number within a table
type PageNumber uint64

// LockID uniquely identifies a lock (could be hash of resource)
type LockID uint64

// Timestamp represents a logical or physical timestamp
type Timestamp uint64

// ColumnID identifies a column within a table
type ColumnID uint32

// CheckpointID identifies a checkpoint in the recovery log
type CheckpointID uint64

// Offset represents a byte offset (within page, file, or log)
type Offset uint32

// RowID uniquely identifies a row within a table
type RowID uint64

// Sentinel values for invalid/unset identifiers
const (
	// InvalidPageNumber represents an invalid or unset page number
	// Page 0 is also the first page of every heap file, so this value does
	// not by itself mark a page number as unset
	InvalidPageNumber PageNumber = 0

	// InvalidFileID represents an invalid or unset file ID
	InvalidFileID FileID = 0

	// InvalidSlotID represents an invalid or unset slot ID
	InvalidSlotID SlotID = 0

	InvalidColumnID ColumnID = math.MaxUint32

	// InvalidTableID represents an invalid or unset table id
	InvalidTableID TableID = 0

	// InvalidIndexID represents an invalid or unset index id
	InvalidIndexID IndexID = 0
)
