package catalog

import (
	"path/filepath"
	"testing"

	"storedb/pkg/primitives"
	"storedb/pkg/storage/heap"
	"storedb/pkg/tuple"
	"storedb/pkg/types"
)

func testHeapFile(t *testing.T, name string) *heap.HeapFile {
	t.Helper()
	td, err := tuple.NewTupleDesc(
		[]types.Type{types.IntType, types.StringType},
		[]string{"id", "name"},
	)
	if err != nil {
		t.Fatalf("NewTupleDesc: %v", err)
	}
	path := primitives.Filepath(filepath.Join(t.TempDir(), name))
	hf, err := heap.NewHeapFile(path, td)
	if err != nil {
		t.Fatalf("NewHeapFile: %v", err)
	}
	// Close is idempotent, so this is safe even for files RemoveTable
	// already closed.
	t.Cleanup(func() { _ = hf.Close() })
	return hf
}

func TestCatalog_AddAndLookup(t *testing.T) {
	c := NewCatalog()
	hf := testHeapFile(t, "users.dat")

	if err := c.AddTable(hf, "users", "id"); err != nil {
		t.Fatalf("AddTable: %v", err)
	}

	if !c.TableExists("users") {
		t.Error("users should exist after AddTable")
	}

	id, err := c.GetTableID("users")
	if err != nil {
		t.Fatalf("GetTableID: %v", err)
	}
	if id != hf.GetID() {
		t.Errorf("GetTableID = %d, expected %d", id, hf.GetID())
	}

	name, err := c.GetTableName(id)
	if err != nil {
		t.Fatalf("GetTableName: %v", err)
	}
	if name != "users" {
		t.Errorf("GetTableName = %q, expected users", name)
	}

	file, err := c.GetDbFile(id)
	if err != nil {
		t.Fatalf("GetDbFile: %v", err)
	}
	if file.GetID() != hf.GetID() {
		t.Error("GetDbFile returned a different file")
	}

	td, err := c.GetTupleDesc(id)
	if err != nil {
		t.Fatalf("GetTupleDesc: %v", err)
	}
	if !td.Equals(hf.GetTupleDesc()) {
		t.Error("GetTupleDesc returned a different schema")
	}

	pk, err := c.GetPrimaryKey(id)
	if err != nil {
		t.Fatalf("GetPrimaryKey: %v", err)
	}
	if pk != "id" {
		t.Errorf("GetPrimaryKey = %q, expected id", pk)
	}
}

func TestCatalog_LookupMissing(t *testing.T) {
	c := NewCatalog()

	if c.TableExists("nope") {
		t.Error("empty catalog should have no tables")
	}
	if _, err := c.GetTableID("nope"); err == nil {
		t.Error("GetTableID of missing table should fail")
	}
	if _, err := c.GetDbFile(primitives.TableID(99)); err == nil {
		t.Error("GetDbFile of missing id should fail")
	}
	if _, err := c.GetTableName(primitives.TableID(99)); err == nil {
		t.Error("GetTableName of missing id should fail")
	}
}

func TestCatalog_AddTableValidation(t *testing.T) {
	c := NewCatalog()
	hf := testHeapFile(t, "t.dat")

	if err := c.AddTable(nil, "t", ""); err == nil {
		t.Error("nil file should be rejected")
	}
	if err := c.AddTable(hf, "", ""); err == nil {
		t.Error("empty name should be rejected")
	}
}

func TestCatalog_ReAddReplacesByName(t *testing.T) {
	c := NewCatalog()
	first := testHeapFile(t, "first.dat")
	second := testHeapFile(t, "second.dat")

	if err := c.AddTable(first, "t", ""); err != nil {
		t.Fatalf("AddTable(first): %v", err)
	}
	if err := c.AddTable(second, "t", ""); err != nil {
		t.Fatalf("AddTable(second): %v", err)
	}

	id, err := c.GetTableID("t")
	if err != nil {
		t.Fatalf("GetTableID: %v", err)
	}
	if id != second.GetID() {
		t.Error("re-adding a name should point it at the new file")
	}
	// The displaced file's id no longer resolves.
	if _, err := c.GetDbFile(first.GetID()); err == nil {
		t.Error("replaced table's id should be gone")
	}
}

func TestCatalog_RemoveTable(t *testing.T) {
	c := NewCatalog()
	hf := testHeapFile(t, "gone.dat")

	if err := c.AddTable(hf, "gone", ""); err != nil {
		t.Fatalf("AddTable: %v", err)
	}
	if err := c.RemoveTable("gone"); err != nil {
		t.Fatalf("RemoveTable: %v", err)
	}
	if c.TableExists("gone") {
		t.Error("table should be gone after RemoveTable")
	}
	if err := c.RemoveTable("gone"); err == nil {
		t.Error("removing a missing table should fail")
	}
}

func TestCatalog_TableNamesSorted(t *testing.T) {
	c := NewCatalog()
	for _, name := range []string{"zebra", "alpha", "mid"} {
		if err := c.AddTable(testHeapFile(t, name+".dat"), name, ""); err != nil {
			t.Fatalf("AddTable(%s): %v", name, err)
		}
	}

	names := c.TableNames()
	want := []string{"alpha", "mid", "zebra"}
	if len(names) != len(want) {
		t.Fatalf("expected %d names, got %d", len(want), len(names))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, expected %q", i, names[i], want[i])
		}
	}
}
