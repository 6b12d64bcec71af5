package grid

import (
	"fmt"
	"math"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
)

// Spec fixes the linear mapping between a cols x rows grid and a pixel canvas.
// The zero value is not usable; construct with NewSpec.
type Spec struct {
	PixelWidth  float64 `json:"pixel_width" yaml:"pixel_width"`
	PixelHeight float64 `json:"pixel_height" yaml:"pixel_height"`
	Cols        int     `json:"cols" yaml:"cols"`
	Rows        int     `json:"rows" yaml:"rows"`
}

// Cell is a grid index.
type Cell struct {
	Col int `json:"col"`
	Row int `json:"row"`
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.Col, c.Row)
}

// Rect is an axis-aligned pixel rectangle.
type Rect struct {
	X, Y, W, H float64
}

// NewSpec validates the dimensions and returns the spec.
func NewSpec(pixelWidth, pixelHeight float64, cols, rows int) (Spec, error) {
	s := Spec{PixelWidth: pixelWidth, PixelHeight: pixelHeight, Cols: cols, Rows: rows}
	if err := s.Validate(); err != nil {
		return Spec{}, err
	}
	return s, nil
}

// Validate reports a *ConfigError for non-positive or non-finite dimensions.
func (s Spec) Validate() error {
	if !positive(s.PixelWidth) {
		return &ConfigError{Field: "pixel_width", Value: s.PixelWidth, Reason: "must be a positive number"}
	}
	if !positive(s.PixelHeight) {
		return &ConfigError{Field: "pixel_height", Value: s.PixelHeight, Reason: "must be a positive number"}
	}
	if s.Cols <= 0 {
		return &ConfigError{Field: "cols", Value: s.Cols, Reason: "must be a positive integer"}
	}
	if s.Rows <= 0 {
		return &ConfigError{Field: "rows", Value: s.Rows, Reason: "must be a positive integer"}
	}
	return nil
}

// Match reports a configuration error when two components sharing one
// logical grid were built with different dimensions.
func (s Spec) Match(o Spec) error {
	if s != o {
		return &ConfigError{Field: "spec", Value: o, Reason: fmt.Sprintf("does not match %v", s)}
	}
	return nil
}

// CheckSurface verifies that a w x h pixel surface can hold the canvas.
// Fractional canvas sizes are rounded up.
func (s Spec) CheckSurface(w, h int) error {
	ew, eh := s.SurfaceSize()
	if w != ew || h != eh {
		return &ConfigError{Field: "surface", Value: fmt.Sprintf("%dx%d", w, h), Reason: fmt.Sprintf("expected %dx%d", ew, eh)}
	}
	return nil
}

// SurfaceSize is the integer pixel size a surface must have for this spec.
func (s Spec) SurfaceSize() (int, int) {
	return int(math.Ceil(s.PixelWidth)), int(math.Ceil(s.PixelHeight))
}

func (s Spec) CellWidth() float64  { return s.PixelWidth / float64(s.Cols) }
func (s Spec) CellHeight() float64 { return s.PixelHeight / float64(s.Rows) }

// UnitScale is the pixel length of one world unit when a single scale is
// needed (sphere radii): min(CellWidth, CellHeight).
func (s Spec) UnitScale() float64 {
	return math.Min(s.CellWidth(), s.CellHeight())
}

// Contains reports whether c is a valid index.
func (s Spec) Contains(c Cell) bool {
	return c.Col >= 0 && c.Col < s.Cols && c.Row >= 0 && c.Row < s.Rows
}

// CellRect is the pixel rectangle [col*cw, row*ch, cw, ch].
func (s Spec) CellRect(c Cell) Rect {
	cw, ch := s.CellWidth(), s.CellHeight()
	return Rect{X: float64(c.Col) * cw, Y: float64(c.Row) * ch, W: cw, H: ch}
}

// CellCenter is the pixel centre of c.
func (s Spec) CellCenter(c Cell) (float64, float64) {
	return s.WorldToPixel(float64(c.Col)+0.5, float64(c.Row)+0.5)
}

// WorldToPixel maps world coordinates onto the canvas.
func (s Spec) WorldToPixel(x, y float64) (float64, float64) {
	return x * s.CellWidth(), y * s.CellHeight()
}

// PixelToWorld is the inverse of WorldToPixel.
func (s Spec) PixelToWorld(px, py float64) (float64, float64) {
	return px / s.CellWidth(), py / s.CellHeight()
}

// PixelToCell maps a pixel to the cell containing it. Coordinates outside the
// canvas, including the far edges, clamp to the nearest valid cell; NaN
// resolves to the first index on that axis.
func (s Spec) PixelToCell(px, py float64) Cell {
	return Cell{
		Col: clampIndex(px/s.CellWidth(), s.Cols),
		Row: clampIndex(py/s.CellHeight(), s.Rows),
	}
}

// InCanvas reports whether the pixel lies inside [0,PixelWidth) x [0,PixelHeight).
func (s Spec) InCanvas(px, py float64) bool {
	return px >= 0 && px < s.PixelWidth && py >= 0 && py < s.PixelHeight
}

// WorldBounds is the closed world rectangle [0,Cols] x [0,Rows].
func (s Spec) WorldBounds() r2.Rect {
	return r2.Rect{
		X: r1.Interval{Lo: 0, Hi: float64(s.Cols)},
		Y: r1.Interval{Lo: 0, Hi: float64(s.Rows)},
	}
}

// InWorld reports whether (x, y) lies within WorldBounds.
func (s Spec) InWorld(x, y float64) bool {
	return s.WorldBounds().ContainsPoint(r2.Point{X: x, Y: y})
}

func clampIndex(v float64, n int) int {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v >= float64(n) {
		return n - 1
	}
	return int(math.Floor(v))
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}
