package statistics

import (
	"fmt"
	"sync"

	"storedb/pkg/catalog"
	"storedb/pkg/config"
	dberror "storedb/pkg/error"
	"storedb/pkg/logging"
	"storedb/pkg/primitives"
	"storedb/pkg/storage/heap"
)

// Registry is the process-wide map from table name to its TableStats,
// populated once by walking the catalog after startup. Planners read from
// it concurrently; writes happen only during ComputeAll or through the
// explicit SetStatsMap hook.
type Registry struct {
	mutex  sync.RWMutex
	stats  map[string]*TableStats
	logger logging.Logger
}

func NewRegistry() *Registry {
	return &Registry{
		stats:  make(map[string]*TableStats),
		logger: logging.Nop(),
	}
}

// WithLogger attaches the structured logger used to report per-table stats
// construction. Returns the registry for chaining.
func (r *Registry) WithLogger(l logging.Logger) *Registry {
	if l != nil {
		r.logger = l
	}
	return r
}

// ComputeAll builds statistics for every table registered in cat, scanning
// each through pool under tid. The caller owns tid and should complete it
// (releasing the scans' shared locks) once this returns.
func (r *Registry) ComputeAll(tid primitives.TransactionID, cat *catalog.Catalog, pool heap.PagePool, cfg *config.Config) error {
	computed := make(map[string]*TableStats)

	for _, name := range cat.TableNames() {
		id, err := cat.GetTableID(name)
		if err != nil {
			return err
		}
		file, err := cat.GetDbFile(id)
		if err != nil {
			return err
		}
		hf, ok := file.(*heap.HeapFile)
		if !ok {
			return dberror.IllegalArgument(fmt.Sprintf("table %q is not backed by a heap file", name))
		}

		ts, err := NewTableStats(tid, hf, pool, cfg.IOCostPerPage, cfg.HistogramBuckets)
		if err != nil {
			return fmt.Errorf("failed to compute stats for table %q: %w", name, err)
		}
		computed[name] = ts
		r.logger.Infow("computed table statistics",
			"table", name, "tuples", ts.TotalTuples(), "pages", ts.NumPages())
	}

	r.mutex.Lock()
	r.stats = computed
	r.mutex.Unlock()
	return nil
}

// Get returns the stats for tableName, if present.
func (r *Registry) Get(tableName string) (*TableStats, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	ts, ok := r.stats[tableName]
	return ts, ok
}

// SetStatsMap replaces the registry's contents wholesale. This is the
// explicit form of a test hook the planner's test harness needs; production
// code populates the registry through ComputeAll instead.
func (r *Registry) SetStatsMap(stats map[string]*TableStats) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.stats = stats
}

// TableNames returns the names of every table with computed stats.
func (r *Registry) TableNames() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	names := make([]string, 0, len(r.stats))
	for name := range r.stats {
		names = append(names, name)
	}
	return names
}
