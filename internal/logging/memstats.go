package logging

import (
	"context"
	"runtime"
	"time"

	"go.uber.org/zap"
)

const mb = 1024 * 1024

// ReportMemory logs current heap and runtime figures.
func ReportMemory(log *zap.Logger) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	log.Info("memory_usage",
		zap.Uint64("heap_alloc_mb", m.HeapAlloc/mb),
		zap.Uint64("heap_sys_mb", m.HeapSys/mb),
		zap.Uint64("sys_mb", m.Sys/mb),
		zap.Uint32("gc_cycles", m.NumGC),
		zap.Int("goroutines", runtime.NumGoroutine()),
	)
}

// RunMemoryReporter logs memory once, then every interval until ctx ends.
// A non-positive interval only logs once.
func RunMemoryReporter(ctx context.Context, log *zap.Logger, interval time.Duration) {
	ReportMemory(log)
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			ReportMemory(log)
		}
	}
}
