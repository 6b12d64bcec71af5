package metrics

import (
	"math"
	"slices"
	"sync"
	"time"

	"github.com/san-kum/gridviz/internal/viz"
)

const DefaultHistory = 600

// FrameTime keeps the last N render durations in a ring buffer.
type FrameTime struct {
	name string
	buf  []time.Duration
	next int
	full bool
	max  time.Duration
}

func NewFrameTime(capacity int) *FrameTime {
	if capacity <= 0 {
		capacity = DefaultHistory
	}
	return &FrameTime{
		name: "frame_ms",
		buf:  make([]time.Duration, capacity),
	}
}

func (m *FrameTime) Name() string { return m.name }

func (m *FrameTime) Observe(f viz.FrameStats) {
	if f.Dropped {
		return
	}
	m.buf[m.next] = f.Duration
	m.next = (m.next + 1) % len(m.buf)
	if m.next == 0 {
		m.full = true
	}
	m.max = max(m.max, f.Duration)
}

func (m *FrameTime) len() int {
	if m.full {
		return len(m.buf)
	}
	return m.next
}

// Value is the mean frame time in milliseconds over the window.
func (m *FrameTime) Value() float64 {
	n := m.len()
	if n == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range m.buf[:n] {
		sum += d
	}
	return ms(sum) / float64(n)
}

// Percentile returns the p-th percentile (0..100) in milliseconds using
// nearest rank.
func (m *FrameTime) Percentile(p float64) float64 {
	h := m.History()
	if len(h) == 0 {
		return 0
	}
	slices.Sort(h)
	rank := int(math.Ceil(p/100*float64(len(h)))) - 1
	rank = max(0, min(rank, len(h)-1))
	return h[rank]
}

// Max is the longest frame seen since the last reset, in milliseconds.
func (m *FrameTime) Max() float64 { return ms(m.max) }

// History returns the window oldest first, in milliseconds.
func (m *FrameTime) History() []float64 {
	n := m.len()
	out := make([]float64, 0, n)
	start := 0
	if m.full {
		start = m.next
	}
	for i := 0; i < n; i++ {
		out = append(out, ms(m.buf[(start+i)%len(m.buf)]))
	}
	return out
}

func (m *FrameTime) Reset() {
	clear(m.buf)
	m.next = 0
	m.full = false
	m.max = 0
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Summary is a point-in-time view of a FrameTimer.
type Summary struct {
	Frames   int     `json:"frames"`
	MeanMs   float64 `json:"mean_ms"`
	P95Ms    float64 `json:"p95_ms"`
	MaxMs    float64 `json:"max_ms"`
	Overruns int     `json:"overruns"`
	Dropped  int     `json:"dropped"`
	Skipped  int     `json:"skipped"`
	Clean    float64 `json:"clean"`
}

// FrameTimer bundles the frame metrics behind a lock so a renderer and a
// reporting goroutine can share it.
type FrameTimer struct {
	mu      sync.Mutex
	frames  int
	times   *FrameTime
	over    *Overruns
	clean   *CleanFrames
	metrics []Metric
}

func NewFrameTimer(capacity int, budget time.Duration) *FrameTimer {
	t := &FrameTimer{
		times: NewFrameTime(capacity),
		over:  NewOverruns(budget),
		clean: NewCleanFrames(),
	}
	t.metrics = []Metric{t.times, t.over, t.clean}
	return t
}

func (t *FrameTimer) Observe(f viz.FrameStats) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !f.Dropped {
		t.frames++
	}
	for _, m := range t.metrics {
		m.Observe(f)
	}
}

func (t *FrameTimer) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Summary{
		Frames:   t.frames,
		MeanMs:   t.times.Value(),
		P95Ms:    t.times.Percentile(95),
		MaxMs:    t.times.Max(),
		Overruns: int(t.over.Value()),
		Dropped:  t.over.Dropped(),
		Skipped:  t.clean.Skipped(),
		Clean:    t.clean.Value(),
	}
}

func (t *FrameTimer) History() []float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.times.History()
}

// Values reports every metric by name.
func (t *FrameTimer) Values() map[string]float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]float64, len(t.metrics))
	for _, m := range t.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

func (t *FrameTimer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frames = 0
	for _, m := range t.metrics {
		m.Reset()
	}
}
