package primitives

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Filepath is the path of a file the engine owns: heap files, the recovery
// log, catalog files. Beyond the usual path plumbing it carries the
// engine's file-identity rule: a file's id is the xxhash of its absolute
// path, so the same table opened from any working directory resolves to
// the same TableID.
type Filepath string

// Hash derives the file's stable 64-bit identity from its absolute,
// cleaned path. xxhash is used instead of a naive multiplicative mix so
// unrelated paths don't collide in the catalog's id-keyed maps.
func (f Filepath) Hash() FileID {
	return FileID(xxhash.Sum64String(f.absoluteClean()))
}

// absoluteClean resolves the path to its absolute, cleaned form for hashing.
// Falls back to the cleaned relative path if the working directory can't be
// determined (never happens in practice, but Hash must not panic).
func (f Filepath) absoluteClean() string {
	if abs, err := filepath.Abs(string(f)); err == nil {
		return abs
	}
	return filepath.Clean(string(f))
}

// HashAsTableID is Hash for a path known to back a table.
func (f Filepath) HashAsTableID() TableID {
	return TableID(f.Hash())
}

// HashAsIndexID is Hash for a path known to back an index file.
func (f Filepath) HashAsIndexID() IndexID {
	return IndexID(f.Hash())
}

// Dir returns the directory portion of the path.
func (f Filepath) Dir() string {
	return filepath.Dir(string(f))
}

func (f Filepath) String() string {
	return string(f)
}

// Join appends path elements, keeping the Filepath type.
func (f Filepath) Join(elem ...string) Filepath {
	parts := append([]string{string(f)}, elem...)
	return Filepath(filepath.Join(parts...))
}

// Base returns the last path element (the file name).
func (f Filepath) Base() string {
	return filepath.Base(string(f))
}

// Exists reports whether the file is present on the filesystem.
func (f Filepath) Exists() bool {
	_, err := os.Stat(string(f))
	return err == nil
}

// Remove deletes the file. Removing a file that is already gone succeeds.
func (f Filepath) Remove() error {
	if !f.Exists() {
		return nil
	}
	return os.Remove(string(f))
}

func (f Filepath) IsEmpty() bool {
	return string(f) == ""
}

// MkdirAll creates the path's parent directory and any missing ancestors.
func (f Filepath) MkdirAll(perm os.FileMode) error {
	return os.MkdirAll(f.Dir(), perm)
}

// Ext returns the file extension including the dot, or "" without one.
func (f Filepath) Ext() string {
	return filepath.Ext(string(f))
}

// WithExt returns the path with its extension replaced; a missing leading
// dot on newExt is supplied.
func (f Filepath) WithExt(newExt string) Filepath {
	base := strings.TrimSuffix(string(f), f.Ext())
	if newExt != "" && !strings.HasPrefix(newExt, ".") {
		newExt = "." + newExt
	}
	return Filepath(base + newExt)
}

// IsAbs reports whether the path is absolute.
func (f Filepath) IsAbs() bool {
	return filepath.IsAbs(string(f))
}

// Clean returns the lexically shortest equivalent path.
func (f Filepath) Clean() Filepath {
	return Filepath(filepath.Clean(string(f)))
}

// Stat returns the file's metadata.
func (f Filepath) Stat() (os.FileInfo, error) {
	return os.Stat(string(f))
}
