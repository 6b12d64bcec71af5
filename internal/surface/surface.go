package surface

import "image/color"

// Surface is a pixel drawing target of fixed size. Coordinates are in pixels
// with the origin at the top-left; fractional values are allowed and each
// implementation rasterizes them its own way.
type Surface interface {
	Size() (w, h int)
	// Clear replaces every pixel with bg; a transparent bg empties the surface.
	Clear(bg color.Color)
	FillRect(x, y, w, h float64, c color.Color)
	Line(x0, y0, x1, y1, width float64, c color.Color)
	FillCircle(cx, cy, r float64, c color.Color)
	// Text draws s centred on (x, y).
	Text(s string, x, y float64, c color.Color)
}

// StrokeRect outlines a rectangle with four lines.
func StrokeRect(s Surface, x, y, w, h, width float64, c color.Color) {
	s.Line(x, y, x+w, y, width, c)
	s.Line(x+w, y, x+w, y+h, width, c)
	s.Line(x+w, y+h, x, y+h, width, c)
	s.Line(x, y+h, x, y, width, c)
}

func isTransparent(c color.Color) bool {
	if c == nil {
		return true
	}
	_, _, _, a := c.RGBA()
	return a == 0
}
