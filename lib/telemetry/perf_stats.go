package telemetry

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"go.opentelemetry.io/otel"
)

var perfMeter = otel.Meter("votetracker/lib/telemetry")

var (
	cpuGauge, _         = perfMeter.Float64Gauge("process.cpu_percent")
	heapGauge, _        = perfMeter.Int64Gauge("process.heap_mb")
	liveObjectsGauge, _ = perfMeter.Int64Gauge("process.live_objects")
	goroutineGauge, _   = perfMeter.Int64Gauge("process.goroutines")
)

type perfSample struct {
	cpuPercent  float64
	cpuOk       bool
	heapMb      int64
	liveObjects int64
	goroutines  int64
}

// readPerfStats blocks for window while cpu usage is measured.
func readPerfStats(ctx context.Context, window time.Duration) perfSample {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	sample := perfSample{
		heapMb:      int64(mem.HeapAlloc / 1_000_000),
		liveObjects: int64(mem.Mallocs) - int64(mem.Frees),
		goroutines:  int64(runtime.NumGoroutine()),
	}

	usage, err := cpu.PercentWithContext(ctx, window, false)
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("failed to read cpu usage", "err", err)
		}
		return sample
	}
	if len(usage) > 0 {
		sample.cpuPercent = usage[0]
		sample.cpuOk = true
	}
	return sample
}

func (s perfSample) record(ctx context.Context) {
	if s.cpuOk {
		cpuGauge.Record(ctx, s.cpuPercent)
	}
	heapGauge.Record(ctx, s.heapMb)
	liveObjectsGauge.Record(ctx, s.liveObjects)
	goroutineGauge.Record(ctx, s.goroutines)
}

// InstrumentPerfStats records process resource usage every interval until ctx is done.
func InstrumentPerfStats(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second * 30
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				readPerfStats(ctx, interval/2).record(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}
