package tracing

import (
	"sync"

	"github.com/sarchlab/memsym/cpu"
	"github.com/sarchlab/memsym/mem/vm/mmu"
	"github.com/sarchlab/memsym/mem/vm/tlb"
)

// Stats summarizes a simulation.
type Stats struct {
	Records      uint64 `json:"records"`
	Errors       uint64 `json:"errors"`
	Translations uint64 `json:"translations"`
	TLBHits      uint64 `json:"tlb_hits"`
	TLBMisses    uint64 `json:"tlb_misses"`
	PageWalks    uint64 `json:"page_walks"`
	PageFaults   uint64 `json:"page_faults"`
	Evictions    uint64 `json:"evictions"`
}

// HitRate returns the fraction of translations that hit in the TLB.
func (s Stats) HitRate() float64 {
	if s.Translations == 0 {
		return 0
	}

	return float64(s.TLBHits) / float64(s.Translations)
}

// StatsTracer counts what happens during a simulation. It can be read while
// the simulation runs.
type StatsTracer struct {
	lock  sync.Mutex
	stats Stats
}

// NewStatsTracer creates a new StatsTracer.
func NewStatsTracer() *StatsTracer {
	return &StatsTracer{}
}

// Stats returns a copy of the counters.
func (t *StatsTracer) Stats() Stats {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.stats
}

// Record counts output lines and errors.
func (t *StatsTracer) Record(r cpu.Record) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.stats.Records++
	if r.Err != nil {
		t.stats.Errors++
	}
}

// Translate counts translation steps.
func (t *StatsTracer) Translate(e mmu.Event) {
	t.lock.Lock()
	defer t.lock.Unlock()

	switch e.Kind {
	case mmu.TLBHit:
		t.stats.Translations++
		t.stats.TLBHits++
	case mmu.TLBMiss:
		t.stats.Translations++
		t.stats.TLBMisses++
	case mmu.PageWalkHit:
		t.stats.PageWalks++
	case mmu.PageFault:
		t.stats.PageFaults++
	}
}

// Evict counts evictions.
func (t *StatsTracer) Evict(_ tlb.Entry) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.stats.Evictions++
}
