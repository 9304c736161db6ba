package main

import (
	"sync"

	"github.com/nanodb-project/nanodb/internal/buffer"
	"github.com/nanodb-project/nanodb/internal/heap"
	"github.com/nanodb-project/nanodb/internal/nerr"
	"github.com/nanodb-project/nanodb/internal/page"
	"github.com/nanodb-project/nanodb/internal/schema"
)

// memCatalog is the thin, in-process table directory this demo wires
// through the planner, the session executor, and the maintenance
// scheduler. A real client/server front end (out of scope, per spec §1)
// would back this with the on-disk table directory spec §3 describes;
// here it is just a name-to-open-file map, grounded on the teacher's
// internal/storage/catalog.go CatalogManager (mutex-guarded map of table
// metadata) narrowed down to the one responsibility this module needs.
type memCatalog struct {
	mgr   *page.Manager
	cache *buffer.Cache

	mu     sync.RWMutex
	tables map[string]*heap.File
}

func newMemCatalog(mgr *page.Manager, cache *buffer.Cache) *memCatalog {
	return &memCatalog{mgr: mgr, cache: cache, tables: make(map[string]*heap.File)}
}

// Lookup implements planner.Catalog and (via ExecuteInsert/Delete/Update)
// the table resolution internal/session needs for DML.
func (c *memCatalog) Lookup(name string) (*heap.File, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.tables[name]
	if !ok {
		return nil, nerr.ErrFileNotFound(name)
	}
	return f, nil
}

// Files implements maint.Registry: the scheduler ANALYZEs whatever is
// currently registered, not a snapshot taken at construction time.
func (c *memCatalog) Files() []*heap.File {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*heap.File, 0, len(c.tables))
	for _, f := range c.tables {
		out = append(out, f)
	}
	return out
}

// createTable is this demo's stand-in for CREATE TABLE (spec §1 places the
// DDL grammar out of scope; only the heap-file-creation effect remains).
func (c *memCatalog) createTable(name string, cols []schema.ColumnInfo, pageSize int) (*heap.File, error) {
	sch := schema.New(cols)
	f, err := heap.Create(c.mgr, c.cache, name+".tbl", sch, pageSize)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.tables[name] = f
	c.mu.Unlock()
	return f, nil
}
