// Package memdiag logs Go runtime memory statistics next to the decode
// memory budget, so debug runs show how far real heap use drifts from what
// the budget accounted for.
package memdiag

import (
	"context"
	"runtime"

	"github.com/rs/zerolog"

	"github.com/eunmann/bpdecode/internal/logctx"
	"github.com/eunmann/bpdecode/pkg/humanfmt"
	"github.com/eunmann/bpdecode/pkg/membudget"
)

// driftWarnRatio is the heap/budget ratio above which LogWithBudget warns.
const driftWarnRatio = 2.0

// driftWarnFloor keeps small decodes from triggering the drift warning.
const driftWarnFloor = 64 << 20

// Stats holds memory statistics from runtime.
type Stats struct {
	HeapAlloc  uint64 // bytes allocated on heap and still in use
	HeapSys    uint64 // bytes obtained from OS for heap
	TotalAlloc uint64 // cumulative bytes allocated
	Sys        uint64 // bytes obtained from OS
	NumGC      uint32
}

// Read reads current memory statistics.
func Read() Stats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return Stats{
		HeapAlloc:  m.HeapAlloc,
		HeapSys:    m.HeapSys,
		TotalAlloc: m.TotalAlloc,
		Sys:        m.Sys,
		NumGC:      m.NumGC,
	}
}

// Since returns the bytes allocated between s and now.
func (s Stats) Since(now Stats) uint64 {
	if now.TotalAlloc < s.TotalAlloc {
		return 0
	}
	return now.TotalAlloc - s.TotalAlloc
}

// LogWithBudget logs current heap use against the budget's peak
// reservation. It does nothing unless the context logger is at debug level.
func LogWithBudget(ctx context.Context, reason string, before Stats, budget *membudget.Budget, reserved uint64) {
	log := logctx.FromContext(ctx)
	if log.GetLevel() > zerolog.DebugLevel {
		return
	}

	now := Read()
	allocated := before.Since(now)

	var ratio float64
	if reserved > 0 {
		ratio = float64(allocated) / float64(reserved)
	}

	log.Debug().
		Str("reason", reason).
		Str("heap_alloc", humanfmt.Bytes(now.HeapAlloc)).
		Str("heap_sys", humanfmt.Bytes(now.HeapSys)).
		Str("allocated", humanfmt.Bytes(allocated)).
		Str("budget_reserved", humanfmt.Bytes(reserved)).
		Str("budget_total", humanfmt.Bytes(budget.Total())).
		Float64("alloc_vs_budget_ratio", ratio).
		Uint32("num_gc", now.NumGC-before.NumGC).
		Msg("memory stats with budget")

	if ratio > driftWarnRatio && allocated > driftWarnFloor {
		log.Warn().
			Str("allocated", humanfmt.Bytes(allocated)).
			Str("budget_reserved", humanfmt.Bytes(reserved)).
			Float64("ratio", ratio).
			Msg("allocations significantly exceed budget reservations")
	}
}
