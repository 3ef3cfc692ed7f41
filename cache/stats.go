package cache

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Stats is a point-in-time snapshot of an Adapter's counters.
type Stats struct {
	Hits       uint64
	Misses     uint64
	Populates  uint64
	Writebacks uint64

	hit, miss, populate, writeback counter
}

// counter pairs an atomic running total (what Stat() reports) with a
// prometheus.Counter (what an operator's /metrics endpoint scrapes),
// the same cache.hit.n / cache.miss.n naming the teacher's stats
// package uses for its own counters.
type counter struct {
	n   uint64
	pro prometheus.Counter
}

func newCounterVar(name, help string) counter {
	return counter{pro: prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})}
}

func (c *counter) Inc() {
	atomic.AddUint64(&c.n, 1)
	c.pro.Inc()
}

func (c *counter) get() uint64 { return atomic.LoadUint64(&c.n) }

func newStats() *Stats {
	return &Stats{
		hit:       newCounterVar("cache_hit_n", "number of cache hot-tier hits"),
		miss:      newCounterVar("cache_miss_n", "number of cache hot-tier misses"),
		populate:  newCounterVar("cache_populate_n", "number of hot-tier populate operations"),
		writeback: newCounterVar("cache_writeback_n", "number of hot-tier write-back operations"),
	}
}

func (s *Stats) snapshot() Stats {
	return Stats{
		Hits:       s.hit.get(),
		Misses:     s.miss.get(),
		Populates:  s.populate.get(),
		Writebacks: s.writeback.get(),
	}
}

// Collectors returns the four prometheus counters so a caller can
// register them against its own registry (cmd/h3cachectl does this at
// startup).
func (s *Stats) Collectors() []prometheus.Collector {
	return []prometheus.Collector{s.hit.pro, s.miss.pro, s.populate.pro, s.writeback.pro}
}
