package util

import (
	"fmt"
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"
)

// PerfStats records elapsed time, memory allocation and goroutine usage from
// the point at which it was created.
type PerfStats struct {
	startTime time.Time
	startMem  uint64
	startGc   uint32
	// Peak number of goroutines observed by Sample
	peak int
}

// PerfDelta is the difference between two points in time.
type PerfDelta struct {
	Elapsed    time.Duration
	Allocated  uint64
	GcEvents   uint32
	Goroutines int
}

func (p PerfDelta) String() string {
	return fmt.Sprintf("%0.3fs using %v Mb (%v GC events, %d goroutines)", p.Elapsed.Seconds(),
		p.Allocated/1024/1024, p.GcEvents, p.Goroutines)
}

// NewPerfStats creates a new snapshot of the current amount of memory allocated.
func NewPerfStats() *PerfStats {
	var m runtime.MemStats
	//
	runtime.ReadMemStats(&m)
	//
	return &PerfStats{time.Now(), m.TotalAlloc, m.NumGC, runtime.NumGoroutine()}
}

// Sample records the number of goroutines currently running, so that the
// peak can be reported.
func (p *PerfStats) Sample() {
	p.peak = max(p.peak, runtime.NumGoroutine())
}

// Delta returns the difference between the state now and as it was when the
// PerfStats object was created.
func (p *PerfStats) Delta() PerfDelta {
	var m runtime.MemStats
	//
	runtime.ReadMemStats(&m)
	p.Sample()
	//
	return PerfDelta{time.Since(p.startTime), m.TotalAlloc - p.startMem, m.NumGC - p.startGc, p.peak}
}

// Log the difference between the state now and as it was when the PerfStats
// object was created.
func (p *PerfStats) Log(prefix string) {
	log.Debug(fmt.Sprintf("%s took %s", prefix, p.Delta()))
}
