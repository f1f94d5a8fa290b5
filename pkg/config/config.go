// Package config centralizes the storage core's tunable defaults. Values are
// loaded from the process environment with the STOREDB_ prefix (e.g.
// STOREDB_BUFFER_POOL_CAPACITY=200), falling back to the documented defaults
// when unset.
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds every tunable parameter the storage engine reads at startup.
type Config struct {
	// PageSize is the fixed size, in bytes, of every page read from or
	// written to a heap file.
	PageSize int `envconfig:"PAGE_SIZE" default:"4096"`

	// BufferPoolCapacity is the maximum number of pages the buffer pool
	// holds resident in memory at once.
	BufferPoolCapacity int `envconfig:"BUFFER_POOL_CAPACITY" default:"50"`

	// IOCostPerPage is the planner's assumed cost, in arbitrary units, of
	// reading a single page from disk. Used for sequential-scan cost
	// estimation.
	IOCostPerPage int `envconfig:"IO_COST_PER_PAGE" default:"1000"`

	// HistogramBuckets is the number of equi-width buckets built per
	// column when computing table statistics.
	HistogramBuckets int `envconfig:"HISTOGRAM_BUCKETS" default:"100"`

	// LockRetryLimit is the number of times acquireLock retries before
	// giving up and aborting the requesting transaction.
	LockRetryLimit int `envconfig:"LOCK_RETRY_LIMIT" default:"3"`

	// LockRetrySleep is how long acquireLock sleeps between retries.
	LockRetrySleep time.Duration `envconfig:"LOCK_RETRY_SLEEP" default:"10ms"`
}

// Default returns the configuration as Load builds it: environment overrides
// are applied and every unset field keeps its documented default. Where Load
// would return an error, Default panics instead.
func Default() *Config {
	cfg, err := Load()
	if err != nil {
		// The struct tags are static and known-valid, so Process can only
		// fail here if an env var holds a malformed override.
		panic(err)
	}
	return cfg
}

// Load reads configuration from the environment, using the STOREDB prefix,
// and falls back to documented defaults (via struct tags) for anything unset.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("storedb", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
