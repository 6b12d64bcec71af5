package metrics

import "github.com/san-kum/gridviz/internal/viz"

// CleanFrames is the fraction of rendered frames without skipped data.
type CleanFrames struct {
	name    string
	dirty   int
	skipped int
	samples int
}

func NewCleanFrames() *CleanFrames {
	return &CleanFrames{
		name: "clean_frames",
	}
}

func (c *CleanFrames) Name() string {
	return c.name
}

func (c *CleanFrames) Observe(f viz.FrameStats) {
	if f.Dropped {
		return
	}
	c.samples++
	if n := f.Skipped(); n > 0 {
		c.dirty++
		c.skipped += n
	}
}

func (c *CleanFrames) Value() float64 {
	if c.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(c.dirty)/float64(c.samples)
}

// Skipped is the total number of elements left out across all frames.
func (c *CleanFrames) Skipped() int {
	return c.skipped
}

func (c *CleanFrames) Reset() {
	c.dirty = 0
	c.skipped = 0
	c.samples = 0
}
