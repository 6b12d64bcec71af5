package viz

import (
	"fmt"
	"image/color"
	"math"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/san-kum/gridviz/internal/grid"
	"github.com/san-kum/gridviz/internal/palette"
	"github.com/san-kum/gridviz/internal/snapshot"
	"github.com/san-kum/gridviz/internal/surface"
)

// Pass is the outcome of one draw call: how many elements were drawn and the
// errors of the ones that were skipped.
type Pass struct {
	Drawn  int
	Errors []error
}

func (p *Pass) skip(err error) {
	p.Errors = append(p.Errors, err)
}

// FrameStats summarizes one Render call.
type FrameStats struct {
	Tick      int
	Cells     int
	GridLines int
	Border    int // border segments
	Spheres   int
	Labels    int
	Errors    []error
	Duration  time.Duration
	Dropped   bool // render was already in progress
}

// Skipped is the number of elements left out of the frame.
func (f FrameStats) Skipped() int { return len(f.Errors) }

// Visualization draws snapshots onto one surface in a fixed layer order.
// It is not safe for concurrent use; overlapping Render calls are dropped.
type Visualization struct {
	spec      grid.Spec
	surf      surface.Surface
	opts      Options
	log       *log.Logger
	rendering atomic.Bool
}

// New binds a visualization to surf, which must match spec's pixel size.
func New(spec grid.Spec, surf surface.Surface, opts Options) (*Visualization, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if surf == nil {
		return nil, &grid.ConfigError{Field: "surface", Value: nil, Reason: "a drawing surface is required"}
	}
	if err := spec.CheckSurface(surf.Size()); err != nil {
		return nil, err
	}
	if opts.BorderWidth <= 0 {
		opts.BorderWidth = DefaultBorderWidth
	}
	if opts.LabelColor == nil {
		opts.LabelColor = color.Black
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Visualization{
		spec: spec,
		surf: surf,
		opts: opts,
		log:  logger.WithPrefix("viz"),
	}, nil
}

func (v *Visualization) Spec() grid.Spec          { return v.spec }
func (v *Visualization) Surface() surface.Surface { return v.surf }
func (v *Visualization) Options() Options         { return v.opts }

// SetTheme swaps the colour options; call between frames.
func (v *Visualization) SetTheme(t palette.Theme) {
	v.opts.ApplyTheme(t)
}

// SetGridLineColor changes the grid colour used by Render; empty disables
// grid lines.
func (v *Visualization) SetGridLineColor(c string) {
	v.opts.GridLineColor = c
}

// ResetCanvas clears the whole surface to the configured background.
func (v *Visualization) ResetCanvas() {
	v.surf.Clear(v.opts.Background)
}

// Reset is ResetCanvas outside of a render cycle.
func (v *Visualization) Reset() {
	v.ResetCanvas()
}

// Render redraws the surface from snap: cells, grid lines, border, spheres,
// then labels. Malformed elements are skipped and reported in the stats.
func (v *Visualization) Render(snap *snapshot.Snapshot) FrameStats {
	if !v.rendering.CompareAndSwap(false, true) {
		v.log.Warn("render already in progress, dropping frame")
		return FrameStats{Dropped: true}
	}
	defer v.rendering.Store(false)

	start := time.Now()
	var stats FrameStats
	v.ResetCanvas()
	if snap == nil {
		stats.Duration = time.Since(start)
		return stats
	}
	stats.Tick = snap.Tick

	for _, layer := range snap.Cells {
		p := v.DrawLayer(layer)
		stats.Cells += p.Drawn
		stats.Errors = append(stats.Errors, p.Errors...)
	}
	if v.opts.GridLineColor != "" {
		p := v.DrawGridLines(v.opts.GridLineColor)
		stats.GridLines = p.Drawn
		stats.Errors = append(stats.Errors, p.Errors...)
	}
	p := v.DrawBorder(snap.Border)
	stats.Border = p.Drawn
	stats.Errors = append(stats.Errors, p.Errors...)

	p = v.DrawSpheres(snap.Spheres)
	stats.Spheres = p.Drawn
	stats.Errors = append(stats.Errors, p.Errors...)

	// Invalid spheres were already reported by DrawSpheres.
	stats.Labels = v.DrawSphereNames(snap.Spheres).Drawn

	stats.Duration = time.Since(start)
	if n := len(stats.Errors); n > 0 {
		v.log.Warn("frame rendered with skipped data", "tick", snap.Tick, "skipped", n, "first", stats.Errors[0])
	}
	return stats
}

// DrawLayer fills each datum's cell rectangle in insertion order.
func (v *Visualization) DrawLayer(layer snapshot.Layer) Pass {
	var p Pass
	for i, c := range layer.Cells {
		cell := grid.Cell{Col: c.Col, Row: c.Row}
		if !v.spec.Contains(cell) {
			p.skip(v.reject("cell", layer.Name, i, fmt.Sprintf("index %v outside %dx%d grid", cell, v.spec.Cols, v.spec.Rows), grid.ErrOutOfRange))
			continue
		}
		col, err := palette.Parse(c.Color)
		if err != nil {
			p.skip(v.reject("cell", layer.Name, i, err.Error(), err))
			continue
		}
		scale := c.Scale
		if scale == 0 {
			scale = 1
		}
		if math.IsNaN(scale) || scale < 0 || scale > 1 {
			p.skip(v.reject("cell", layer.Name, i, fmt.Sprintf("scale %v outside (0,1]", c.Scale), nil))
			continue
		}

		r := v.spec.CellRect(cell)
		w, h := r.W*scale, r.H*scale
		v.surf.FillRect(r.X+(r.W-w)/2, r.Y+(r.H-h)/2, w, h, col)
		p.Drawn++
	}
	return p
}

// DrawGridLines draws Cols-1 vertical and Rows-1 horizontal one-pixel lines
// on the interior cell boundaries.
func (v *Visualization) DrawGridLines(colorSpec string) Pass {
	var p Pass
	col, err := palette.Parse(colorSpec)
	if err != nil {
		p.skip(v.reject("gridline", "", 0, err.Error(), err))
		return p
	}
	pw, ph := v.spec.PixelWidth, v.spec.PixelHeight
	for c := 1; c < v.spec.Cols; c++ {
		x, _ := v.spec.WorldToPixel(float64(c), 0)
		v.surf.Line(x, 0, x, ph, gridLineWidth, col)
		p.Drawn++
	}
	for r := 1; r < v.spec.Rows; r++ {
		_, y := v.spec.WorldToPixel(0, float64(r))
		v.surf.Line(0, y, pw, y, gridLineWidth, col)
		p.Drawn++
	}
	return p
}

// DrawBorder strokes the border paths and heights through the world transform.
// A nil border draws nothing.
func (v *Visualization) DrawBorder(b *snapshot.BorderDatum) Pass {
	var p Pass
	if b == nil {
		return p
	}

	colorSpec := b.Color
	if colorSpec == "" {
		colorSpec = v.opts.BorderColor
	}
	col, err := palette.Parse(colorSpec)
	if err != nil {
		p.skip(v.reject("border", "", 0, err.Error(), err))
		return p
	}
	width := b.Width
	if !(width > 0) || math.IsInf(width, 0) {
		width = v.opts.BorderWidth
	}

	for i, path := range b.Paths {
		pts := path.World()
		if len(pts) < 2 {
			p.skip(v.reject("border", "path", i, "path needs at least two points", nil))
			continue
		}
		if !allFinite(path.Points) {
			p.skip(v.reject("border", "path", i, "non-finite coordinate", nil))
			continue
		}
		n := len(pts) - 1
		if path.Closed && len(pts) > 2 {
			n = len(pts)
		}
		for k := 0; k < n; k++ {
			a, c := pts[k], pts[(k+1)%len(pts)]
			x0, y0 := v.spec.WorldToPixel(a.X, a.Y)
			x1, y1 := v.spec.WorldToPixel(c.X, c.Y)
			v.surf.Line(x0, y0, x1, y1, width, col)
			p.Drawn++
		}
	}

	rows := float64(v.spec.Rows)
	for i, hgt := range b.Heights {
		if !finite(hgt) || hgt < 0 || hgt > rows {
			p.skip(v.reject("border", "heights", i, fmt.Sprintf("height %v outside [0,%d]", hgt, v.spec.Rows), grid.ErrOutOfRange))
			continue
		}
		_, y := v.spec.WorldToPixel(0, hgt)
		v.surf.Line(0, y, v.spec.PixelWidth, y, width, col)
		p.Drawn++
	}
	return p
}

// DrawSpheres draws each sphere as a filled circle in input order.
func (v *Visualization) DrawSpheres(spheres []snapshot.SphereDatum) Pass {
	var p Pass
	for i, s := range spheres {
		if err := v.checkSphere(s); err != "" {
			p.skip(v.reject("sphere", "", i, err, nil))
			continue
		}
		col, err := palette.Parse(s.Color)
		if err != nil {
			p.skip(v.reject("sphere", "", i, err.Error(), err))
			continue
		}
		cx, cy := v.spec.WorldToPixel(s.X, s.Y)
		v.surf.FillCircle(cx, cy, v.PixelRadius(s.Radius), col)
		p.Drawn++
	}
	return p
}

// DrawSphereNames labels each named sphere at its centre. Unnamed spheres are
// not errors; spheres with unusable positions are skipped without logging.
func (v *Visualization) DrawSphereNames(spheres []snapshot.SphereDatum) Pass {
	var p Pass
	for i, s := range spheres {
		if s.Name == "" {
			continue
		}
		if reason := v.checkSphere(s); reason != "" {
			p.skip(&grid.DatumError{Kind: "label", Index: i, Reason: reason})
			continue
		}
		cx, cy := v.spec.WorldToPixel(s.X, s.Y)
		v.surf.Text(s.Name, cx, cy+v.opts.LabelOffset, v.opts.LabelColor)
		p.Drawn++
	}
	return p
}

// PixelRadius converts a sphere radius according to the radius mode.
func (v *Visualization) PixelRadius(r float64) float64 {
	if v.opts.RadiusMode == RadiusPixels {
		return r
	}
	return r * v.spec.UnitScale()
}

func (v *Visualization) checkSphere(s snapshot.SphereDatum) string {
	switch {
	case !finite(s.X) || !finite(s.Y):
		return fmt.Sprintf("non-finite position (%v,%v)", s.X, s.Y)
	case !finite(s.Radius) || s.Radius <= 0:
		return fmt.Sprintf("radius %v must be positive", s.Radius)
	case !v.spec.InWorld(s.X, s.Y):
		return fmt.Sprintf("position (%v,%v) outside world", s.X, s.Y)
	}
	return ""
}

func (v *Visualization) reject(kind, layer string, index int, reason string, cause error) error {
	err := &grid.DatumError{Kind: kind, Layer: layer, Index: index, Reason: reason, Cause: cause}
	v.log.Debug("skipping datum", "kind", kind, "layer", layer, "index", index, "reason", reason)
	return err
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func allFinite(pts [][2]float64) bool {
	for _, p := range pts {
		if !finite(p[0]) || !finite(p[1]) {
			return false
		}
	}
	return true
}
