package metrics

import (
	"time"

	"github.com/san-kum/gridviz/internal/viz"
)

// Overruns counts frames that took longer than the frame budget, plus frames
// that were dropped because a render was still running.
type Overruns struct {
	name    string
	budget  time.Duration
	over    int
	dropped int
}

func NewOverruns(budget time.Duration) *Overruns {
	return &Overruns{
		name:   "overruns",
		budget: budget,
	}
}

func (o *Overruns) Name() string {
	return o.name
}

func (o *Overruns) Observe(f viz.FrameStats) {
	if f.Dropped {
		o.dropped++
		return
	}
	if o.budget > 0 && f.Duration > o.budget {
		o.over++
	}
}

func (o *Overruns) Value() float64 {
	return float64(o.over)
}

func (o *Overruns) Dropped() int {
	return o.dropped
}

func (o *Overruns) Reset() {
	o.over = 0
	o.dropped = 0
}
