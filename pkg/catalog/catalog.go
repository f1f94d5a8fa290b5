// Package catalog tracks which tables exist, what schema each one has, and
// which on-disk file backs it. It is the registry the buffer pool and query
// executors consult to turn a table name or id into something they can read
// pages from.
package catalog

import (
	"fmt"
	"sort"
	dberror "storedb/pkg/error"
	"storedb/pkg/primitives"
	"storedb/pkg/storage/page"
	"storedb/pkg/tuple"
	"storedb/pkg/utils"
	"strings"
	"sync"
)

// TableInfo is the catalog's record for a single table: its backing file,
// declared name, and primary key field, if any.
type TableInfo struct {
	File      page.DbFile
	Name      string
	PrimaryKey string
}

func (ti *TableInfo) GetID() primitives.TableID { return ti.File.GetID() }

func (ti *TableInfo) String() string {
	return fmt.Sprintf("%s(id=%d, pk=%q)", ti.Name, ti.GetID(), ti.PrimaryKey)
}

// Catalog is the process-wide table registry. Tables are identified both by
// name, for query binding, and by TableID, the stable hash of the backing
// file's path that the storage layer threads through page ids.
type Catalog struct {
	mutex       sync.RWMutex
	nameToTable map[string]*TableInfo
	idToTable   map[primitives.TableID]*TableInfo
}

func NewCatalog() *Catalog {
	return &Catalog{
		nameToTable: make(map[string]*TableInfo),
		idToTable:   make(map[primitives.TableID]*TableInfo),
	}
}

// AddTable registers f under name, replacing any existing table with the
// same name or id.
func (c *Catalog) AddTable(f page.DbFile, name, primaryKey string) error {
	if utils.IsNilInterface(f) {
		return dberror.IllegalArgument("db file cannot be nil")
	}
	if name == "" {
		return dberror.IllegalArgument("table name cannot be empty")
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	info := &TableInfo{File: f, Name: name, PrimaryKey: primaryKey}
	c.removeLocked(name, f.GetID())
	c.nameToTable[name] = info
	c.idToTable[f.GetID()] = info
	return nil
}

func (c *Catalog) removeLocked(name string, id primitives.TableID) {
	if existing, ok := c.nameToTable[name]; ok {
		delete(c.idToTable, existing.GetID())
	}
	if existing, ok := c.idToTable[id]; ok {
		delete(c.nameToTable, existing.Name)
	}
}

// RemoveTable drops name from the catalog and closes its backing file.
func (c *Catalog) RemoveTable(name string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	info, ok := c.nameToTable[name]
	if !ok {
		return dberror.NoSuchElement(fmt.Sprintf("table %q not found", name))
	}
	delete(c.nameToTable, name)
	delete(c.idToTable, info.GetID())
	return info.File.Close()
}

func (c *Catalog) TableExists(name string) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	_, ok := c.nameToTable[name]
	return ok
}

func (c *Catalog) GetTableID(name string) (primitives.TableID, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	info, ok := c.nameToTable[name]
	if !ok {
		return primitives.InvalidTableID, dberror.NoSuchElement(fmt.Sprintf("table %q not found", name))
	}
	return info.GetID(), nil
}

func (c *Catalog) GetTableName(id primitives.TableID) (string, error) {
	info, err := c.getLocked(id)
	if err != nil {
		return "", err
	}
	return info.Name, nil
}

// GetDbFile returns the file backing table id, the lookup the buffer pool
// performs on every cache miss.
func (c *Catalog) GetDbFile(id primitives.TableID) (page.DbFile, error) {
	info, err := c.getLocked(id)
	if err != nil {
		return nil, err
	}
	return info.File, nil
}

func (c *Catalog) GetTupleDesc(id primitives.TableID) (*tuple.TupleDescription, error) {
	info, err := c.getLocked(id)
	if err != nil {
		return nil, err
	}
	return info.File.GetTupleDesc(), nil
}

func (c *Catalog) GetPrimaryKey(id primitives.TableID) (string, error) {
	info, err := c.getLocked(id)
	if err != nil {
		return "", err
	}
	return info.PrimaryKey, nil
}

func (c *Catalog) getLocked(id primitives.TableID) (*TableInfo, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	info, ok := c.idToTable[id]
	if !ok {
		return nil, dberror.NoSuchElement(fmt.Sprintf("table id %d not found", id))
	}
	return info, nil
}

// TableNames returns every registered table name, sorted.
func (c *Catalog) TableNames() []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	names := make([]string, 0, len(c.nameToTable))
	for name := range c.nameToTable {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Catalog) String() string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var b strings.Builder
	fmt.Fprintf(&b, "Catalog(tables=%d):\n", len(c.nameToTable))
	for _, name := range c.sortedNamesLocked() {
		fmt.Fprintf(&b, "  %s\n", c.nameToTable[name].String())
	}
	return b.String()
}

func (c *Catalog) sortedNamesLocked() []string {
	names := make([]string, 0, len(c.nameToTable))
	for name := range c.nameToTable {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
