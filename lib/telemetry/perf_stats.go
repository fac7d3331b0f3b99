package telemetry

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"go.opentelemetry.io/otel"
)

var perfMeter = otel.Meter("steamtrade.perf")

// InstrumentPerfStats publishes process health gauges every 30s until
// ctx is cancelled. A long trade session is mostly idle polling, so a
// climbing goroutine or heap gauge usually means a leaked fetch.
func InstrumentPerfStats(ctx context.Context) {
	cpuGauge, _ := perfMeter.Float64Gauge("process.cpu_percent")
	heapGauge, _ := perfMeter.Int64Gauge("process.heap_alloc_mb")
	liveObjectsGauge, _ := perfMeter.Int64Gauge("process.live_objects")
	goroutineGauge, _ := perfMeter.Int64Gauge("process.goroutines")

	go func() {
		var memStats runtime.MemStats
		ticker := time.NewTicker(time.Second * 30)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			runtime.ReadMemStats(&memStats)
			heapGauge.Record(ctx, int64(memStats.HeapAlloc/1_000_000))
			liveObjectsGauge.Record(ctx, int64(memStats.Mallocs)-int64(memStats.Frees))
			goroutineGauge.Record(ctx, int64(runtime.NumGoroutine()))

			// interval 0 compares against the previous call instead
			// of blocking for a sample window
			cpuUsage, err := cpu.Percent(0, false)
			if err != nil {
				slog.WarnContext(ctx, "failed to read cpu usage", "err", err)
				continue
			}
			if len(cpuUsage) > 0 {
				cpuGauge.Record(ctx, cpuUsage[0])
			}
		}
	}()
}
