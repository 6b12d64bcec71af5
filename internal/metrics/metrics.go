package metrics

import "github.com/san-kum/gridviz/internal/viz"

// Metric accumulates a single value over rendered frames.
type Metric interface {
	Name() string
	Observe(f viz.FrameStats)
	Value() float64
	Reset()
}
