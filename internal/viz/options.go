package viz

import (
	"image/color"

	"github.com/charmbracelet/log"
	"github.com/san-kum/gridviz/internal/palette"
)

// RadiusMode selects how SphereDatum.Radius is interpreted.
type RadiusMode int

const (
	// RadiusCells scales the radius by min(CellWidth, CellHeight).
	RadiusCells RadiusMode = iota
	// RadiusPixels uses the radius as an absolute pixel length.
	RadiusPixels
)

func (m RadiusMode) String() string {
	if m == RadiusPixels {
		return "pixels"
	}
	return "cells"
}

// ParseRadiusMode accepts "cells" or "pixels"; anything else is cells.
func ParseRadiusMode(s string) RadiusMode {
	if s == "pixels" {
		return RadiusPixels
	}
	return RadiusCells
}

const (
	DefaultGridLineColor = "#eee"
	DefaultBorderWidth   = 2.0
	gridLineWidth        = 1.0
)

// Options configures a Visualization. Colours given as strings go through
// palette.Parse.
type Options struct {
	Background    color.Color // nil clears to transparent
	GridLineColor string      // empty disables grid lines in Render
	BorderColor   string      // used when a BorderDatum has no colour
	BorderWidth   float64
	LabelColor    color.Color
	LabelOffset   float64 // pixels added to the label's y
	RadiusMode    RadiusMode
	Logger        *log.Logger
}

// DefaultOptions matches the original page: transparent canvas, #eee grid.
func DefaultOptions() Options {
	return Options{
		GridLineColor: DefaultGridLineColor,
		BorderColor:   "#333333",
		BorderWidth:   DefaultBorderWidth,
		LabelColor:    color.Black,
		RadiusMode:    RadiusCells,
	}
}

// ThemeOptions derives colours from a palette theme.
func ThemeOptions(t palette.Theme) Options {
	o := DefaultOptions()
	o.ApplyTheme(t)
	return o
}

// ApplyTheme replaces the colour fields with those of t.
func (o *Options) ApplyTheme(t palette.Theme) {
	bg := palette.RGBA(t.Background)
	if bg.A == 0 {
		o.Background = nil
	} else {
		o.Background = bg
	}
	o.GridLineColor = string(t.GridLine)
	o.BorderColor = string(t.Border)
	o.LabelColor = palette.RGBA(t.Label)
}
