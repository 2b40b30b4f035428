// Package profiler measures single conversion calls: wall-clock elapsed
// time plus heap usage observed by a dedicated high-frequency sampler.
//
// The sampler runs as a background goroutine reading runtime.MemStats on a
// fine interval for exactly the duration of the measured call. Short-lived
// allocation spikes from vectorized temporaries would be invisible to any
// coarse polling from the main flow of control; the fine interval plus a
// final read after the call guards against that.
package profiler

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorgonia.org/tensor"

	"github.com/afairless/grayscale-bench/convert"
)

const defaultSampleInterval = 200 * time.Microsecond

// Record captures one measured conversion. Records are immutable once
// returned; their only destinations are the printed report and the saved
// result files.
type Record struct {
	Function      string        `json:"function"       csv:"function"`
	Image         string        `json:"image"          csv:"image"`
	Elapsed       time.Duration `json:"elapsed_ns"     csv:"elapsed_ns"`
	PeakBytes     uint64        `json:"peak_bytes"     csv:"peak_bytes"`
	AllocBytes    uint64        `json:"alloc_bytes"    csv:"alloc_bytes"`
	MemorySampled bool          `json:"memory_sampled" csv:"memory_sampled"`
}

// Options configures the measurement harness.
type Options struct {
	// SampleInterval is the heap sampling period. Zero selects the
	// default (200µs). Negative disables memory sampling entirely;
	// records then carry elapsed time only.
	SampleInterval time.Duration
}

// Harness measures conversion calls one at a time. It never runs two
// measurements concurrently; isolation is what makes the numbers
// comparable.
type Harness struct {
	interval time.Duration
	sample   bool
	log      *logrus.Logger
}

// New creates a measurement harness. A disabled sampler is reported loudly:
// peak memory is a primary metric and must not vanish silently.
func New(opts Options, log *logrus.Logger) *Harness {
	if log == nil {
		log = logrus.StandardLogger()
	}

	h := &Harness{interval: opts.SampleInterval, sample: true, log: log}
	switch {
	case opts.SampleInterval < 0:
		h.sample = false
		log.Warn("memory sampling disabled; reporting elapsed time only")
	case opts.SampleInterval == 0:
		h.interval = defaultSampleInterval
	}
	return h
}

// Measure runs fn on img exactly once, recording elapsed wall time and the
// peak heap growth observed during the call. The input tensor is never
// mutated. A conversion error aborts immediately — no retry, a failed
// measurement invalidates the comparison.
func (h *Harness) Measure(function, image string, fn convert.Func, img *tensor.Dense) (*tensor.Dense, Record, error) {
	rec := Record{Function: function, Image: image, MemorySampled: h.sample}

	// Settle the heap so the baseline reflects live data, not garbage
	// left over from the previous measurement.
	runtime.GC()
	var before runtime.MemStats
	runtime.ReadMemStats(&before)

	var sampler *heapSampler
	if h.sample {
		sampler = newHeapSampler(h.interval)
		sampler.start()
	}

	start := time.Now()
	out, err := fn(img)
	rec.Elapsed = time.Since(start)

	var after runtime.MemStats
	runtime.ReadMemStats(&after)

	if sampler != nil {
		sampler.stop()
	}

	if err != nil {
		return nil, rec, errors.Wrapf(err, "%s failed on %s", function, image)
	}
	if out == nil {
		return nil, rec, errors.Errorf("%s produced no output for %s", function, image)
	}

	rec.AllocBytes = after.TotalAlloc - before.TotalAlloc
	if sampler != nil {
		peak := sampler.peak()
		if after.HeapAlloc > peak {
			peak = after.HeapAlloc
		}
		if peak > before.HeapAlloc {
			rec.PeakBytes = peak - before.HeapAlloc
		}
	}

	return out, rec, nil
}

// heapSampler polls heap usage on a fine interval in a background
// goroutine. It is started immediately before and stopped immediately after
// the measured call; a single ReadMemStats per tick is cheap enough not to
// perturb what it observes.
type heapSampler struct {
	interval time.Duration
	done     chan struct{}
	wg       sync.WaitGroup

	mu   sync.Mutex
	high uint64
}

func newHeapSampler(interval time.Duration) *heapSampler {
	return &heapSampler{interval: interval, done: make(chan struct{})}
}

func (s *heapSampler) start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				s.observe()
			}
		}
	}()
}

func (s *heapSampler) stop() {
	close(s.done)
	s.wg.Wait()
}

func (s *heapSampler) observe() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	s.mu.Lock()
	if ms.HeapAlloc > s.high {
		s.high = ms.HeapAlloc
	}
	s.mu.Unlock()
}

func (s *heapSampler) peak() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.high
}

// FormatBytes formats a byte count in human-readable form for report lines.
func FormatBytes(n uint64) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	v := float64(n) / 1024
	for _, unit := range []string{"KB", "MB", "GB", "TB", "PB"} {
		if v < 1024 {
			return fmt.Sprintf("%.1f %s", v, unit)
		}
		v /= 1024
	}
	return fmt.Sprintf("%.1f EB", v)
}
