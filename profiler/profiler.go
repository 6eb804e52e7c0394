// Package profiler records timings and sample values for named operations
// and periodically logs a summary with runtime memory figures.
package profiler

import (
	"context"
	"log"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/mem"
)

// Tracker keeps a sliding window of samples for one operation or metric.
type Tracker struct {
	samples []float64
	sum     float64
	min     float64
	max     float64
	count   int64
}

func (t *Tracker) add(value float64, maxSamples int) {
	if t.count == 0 || value < t.min {
		t.min = value
	}
	if t.count == 0 || value > t.max {
		t.max = value
	}
	t.samples = append(t.samples, value)
	t.sum += value
	if len(t.samples) > maxSamples {
		t.sum -= t.samples[0]
		t.samples = t.samples[1:]
	}
	t.count++
}

// Summary is a point-in-time view of a Tracker. Avg covers the retained
// window; Min, Max and Count cover every sample ever recorded.
type Summary struct {
	Name  string  `json:"name"`
	Avg   float64 `json:"avg"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int64   `json:"count"`
}

func (t *Tracker) summary(name string) Summary {
	s := Summary{Name: name, Min: t.min, Max: t.max, Count: t.count}
	if n := len(t.samples); n > 0 {
		s.Avg = t.sum / float64(n)
	}
	return s
}

// Stats is a snapshot of everything the profiler has recorded. Operation
// values are in milliseconds.
type Stats struct {
	Uptime     time.Duration `json:"uptime"`
	Goroutines int           `json:"goroutines"`
	HeapAlloc  uint64        `json:"heapAlloc"`
	NumGC      uint32        `json:"numGC"`
	// SystemUsed and SystemTotal are host memory in bytes; both are zero when
	// the platform does not report them.
	SystemUsed  uint64    `json:"systemUsed"`
	SystemTotal uint64    `json:"systemTotal"`
	Operations  []Summary `json:"operations"`
	Metrics     []Summary `json:"metrics"`
}

// Options configures a Profiler.
type Options struct {
	// ReportInterval is how often Start logs a report (default: 1m).
	ReportInterval time.Duration
	// MaxSamples bounds the window kept per tracker (default: 600).
	MaxSamples int
}

// Profiler is safe for concurrent use.
type Profiler struct {
	reportInterval time.Duration
	maxSamples     int

	mu         sync.Mutex
	startTime  time.Time
	operations map[string]*Tracker
	metrics    map[string]*Tracker

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a profiler with the given options.
func New(opts Options) *Profiler {
	if opts.ReportInterval <= 0 {
		opts.ReportInterval = time.Minute
	}
	if opts.MaxSamples <= 0 {
		opts.MaxSamples = 600
	}
	return &Profiler{
		reportInterval: opts.ReportInterval,
		maxSamples:     opts.MaxSamples,
		startTime:      time.Now(),
		operations:     make(map[string]*Tracker),
		metrics:        make(map[string]*Tracker),
	}
}

// Start logs a report every ReportInterval until ctx is done or Stop is
// called. Calling Start on a running profiler does nothing.
func (p *Profiler) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.reportInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.report()
			}
		}
	}()
}

// Stop halts periodic reporting and waits for the reporter to exit.
func (p *Profiler) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		p.wg.Wait()
	}
}

// StartOperation begins timing an operation.
//
// Returns:
// - A function to call when the operation completes.
func (p *Profiler) StartOperation(name string) func() {
	start := time.Now()
	return func() {
		p.RecordDuration(name, time.Since(start))
	}
}

// RecordDuration records a completed operation.
func (p *Profiler) RecordDuration(name string, d time.Duration) {
	p.record(p.operations, name, float64(d)/float64(time.Millisecond))
}

// RecordMetric records a sample of a custom metric, such as output
// megapixels or encoded bytes.
func (p *Profiler) RecordMetric(name string, value float64) {
	p.record(p.metrics, name, value)
}

func (p *Profiler) record(trackers map[string]*Tracker, name string, value float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := trackers[name]
	if !ok {
		t = &Tracker{}
		trackers[name] = t
	}
	t.add(value, p.maxSamples)
}

// Stats returns a snapshot sorted by name.
func (p *Profiler) Stats() Stats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	stats := Stats{
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  ms.HeapAlloc,
		NumGC:      ms.NumGC,
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		stats.SystemUsed = vm.Used
		stats.SystemTotal = vm.Total
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	stats.Uptime = time.Since(p.startTime)
	stats.Operations = summarize(p.operations)
	stats.Metrics = summarize(p.metrics)
	return stats
}

func summarize(trackers map[string]*Tracker) []Summary {
	out := make([]Summary, 0, len(trackers))
	for name, t := range trackers {
		out = append(out, t.summary(name))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (p *Profiler) report() {
	stats := p.Stats()
	log.Printf("profiler: uptime %s, %d goroutines, heap %s, %d GC cycles, host memory %s / %s",
		stats.Uptime.Truncate(time.Second), stats.Goroutines, humanize.IBytes(stats.HeapAlloc), stats.NumGC,
		humanize.IBytes(stats.SystemUsed), humanize.IBytes(stats.SystemTotal))
	for _, op := range stats.Operations {
		log.Printf("profiler: %s avg=%.2fms min=%.2fms max=%.2fms count=%d",
			op.Name, op.Avg, op.Min, op.Max, op.Count)
	}
	for _, m := range stats.Metrics {
		log.Printf("profiler: %s avg=%.2f min=%.2f max=%.2f count=%d",
			m.Name, m.Avg, m.Min, m.Max, m.Count)
	}
}
