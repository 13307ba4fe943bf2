package infrastructure

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// RuntimeMetrics records Go runtime gauges for the server process.
type RuntimeMetrics struct {
	goroutines  metric.Int64Gauge
	heapAlloc   metric.Int64Gauge
	heapSys     metric.Int64Gauge
	gcPause     metric.Float64Histogram
	uptime      metric.Float64Gauge
	lastNumGC   uint32
	lastNumGCMu sync.Mutex
}

// NewRuntimeMetrics creates the runtime instruments on meter.
func NewRuntimeMetrics(meter metric.Meter) (*RuntimeMetrics, error) {
	if meter == nil {
		meter = otel.Meter(MeterName)
	}

	var (
		m    RuntimeMetrics
		err  error
		errs []error
	)
	m.goroutines, err = meter.Int64Gauge("runtime_goroutines",
		metric.WithDescription("Number of active goroutines"))
	errs = append(errs, err)
	m.heapAlloc, err = meter.Int64Gauge("runtime_heap_alloc_bytes",
		metric.WithDescription("Bytes of allocated heap objects"),
		metric.WithUnit("By"))
	errs = append(errs, err)
	m.heapSys, err = meter.Int64Gauge("runtime_heap_sys_bytes",
		metric.WithDescription("Heap memory obtained from the OS"),
		metric.WithUnit("By"))
	errs = append(errs, err)
	m.gcPause, err = meter.Float64Histogram("runtime_gc_pause_seconds",
		metric.WithDescription("Garbage collection pause duration"),
		metric.WithUnit("s"))
	errs = append(errs, err)
	m.uptime, err = meter.Float64Gauge("process_uptime_seconds",
		metric.WithDescription("Process uptime in seconds"),
		metric.WithUnit("s"))
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &m, nil
}

// RuntimeStats is a snapshot of the process, reported by the health endpoint.
type RuntimeStats struct {
	Goroutines    int       `json:"goroutines"`
	HeapAllocMB   uint64    `json:"heap_alloc_mb"`
	HeapSysMB     uint64    `json:"heap_sys_mb"`
	GCCount       uint32    `json:"gc_count"`
	LastGCPauseMS int64     `json:"last_gc_pause_ms"`
	CPUCount      int       `json:"cpu_count"`
	UptimeSeconds float64   `json:"uptime_seconds"`
	Timestamp     time.Time `json:"timestamp"`
}

// ReadRuntimeStats samples the Go runtime.
func ReadRuntimeStats(start time.Time) RuntimeStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return RuntimeStats{
		Goroutines:    runtime.NumGoroutine(),
		HeapAllocMB:   mem.HeapAlloc / 1024 / 1024,
		HeapSysMB:     mem.HeapSys / 1024 / 1024,
		GCCount:       mem.NumGC,
		LastGCPauseMS: time.Duration(mem.PauseNs[(mem.NumGC+255)%256]).Milliseconds(),
		CPUCount:      runtime.NumCPU(),
		UptimeSeconds: time.Since(start).Seconds(),
		Timestamp:     time.Now(),
	}
}

// Collect samples the runtime and records the gauges.
func (m *RuntimeMetrics) Collect(ctx context.Context, start time.Time) RuntimeStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	m.goroutines.Record(ctx, int64(runtime.NumGoroutine()))
	m.heapAlloc.Record(ctx, int64(mem.HeapAlloc))
	m.heapSys.Record(ctx, int64(mem.HeapSys))
	m.uptime.Record(ctx, time.Since(start).Seconds())

	m.lastNumGCMu.Lock()
	if mem.NumGC > m.lastNumGC {
		m.gcPause.Record(ctx, time.Duration(mem.PauseNs[(mem.NumGC+255)%256]).Seconds())
		m.lastNumGC = mem.NumGC
	}
	m.lastNumGCMu.Unlock()

	return ReadRuntimeStats(start)
}

// RuntimeCollector samples runtime metrics on an interval until stopped.
type RuntimeCollector struct {
	metrics   *RuntimeMetrics
	startTime time.Time
	interval  time.Duration
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// NewRuntimeCollector creates a collector sampling every interval.
func NewRuntimeCollector(meter metric.Meter, interval time.Duration) (*RuntimeCollector, error) {
	metrics, err := NewRuntimeMetrics(meter)
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &RuntimeCollector{
		metrics:   metrics,
		startTime: time.Now(),
		interval:  interval,
		stopCh:    make(chan struct{}),
	}, nil
}

// Start blocks, collecting until Stop is called or ctx is done.
func (c *RuntimeCollector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.metrics.Collect(ctx, c.startTime)
	for {
		select {
		case <-ticker.C:
			c.metrics.Collect(ctx, c.startTime)
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop ends collection. It is safe to call more than once.
func (c *RuntimeCollector) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// StartTime returns when the collector was created.
func (c *RuntimeCollector) StartTime() time.Time { return c.startTime }
