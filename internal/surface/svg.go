package surface

import (
	"fmt"
	"html"
	"image/color"
	"os"
	"strings"

	"github.com/san-kum/gridviz/internal/palette"
)

// SVG records draw calls as SVG elements.
type SVG struct {
	width, height int
	background    string
	body          strings.Builder
}

func NewSVG(w, h int) *SVG {
	return &SVG{width: w, height: h}
}

func (s *SVG) Size() (int, int) {
	return s.width, s.height
}

func (s *SVG) Clear(bg color.Color) {
	s.body.Reset()
	s.background = ""
	if !isTransparent(bg) {
		s.background = fill(bg)
	}
}

func (s *SVG) FillRect(x, y, w, h float64, c color.Color) {
	s.body.WriteString(fmt.Sprintf(`<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" %s/>
`, x, y, w, h, fill(c)))
}

func (s *SVG) Line(x0, y0, x1, y1, width float64, c color.Color) {
	s.body.WriteString(fmt.Sprintf(`<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke-width="%.2f" %s/>
`, x0, y0, x1, y1, width, stroke(c)))
}

func (s *SVG) FillCircle(cx, cy, r float64, c color.Color) {
	s.body.WriteString(fmt.Sprintf(`<circle cx="%.2f" cy="%.2f" r="%.2f" %s/>
`, cx, cy, r, fill(c)))
}

func (s *SVG) Text(str string, x, y float64, c color.Color) {
	s.body.WriteString(fmt.Sprintf(`<text x="%.2f" y="%.2f" text-anchor="middle" dominant-baseline="central" %s>%s</text>
`, x, y, fill(c), html.EscapeString(str)))
}

// String returns the complete SVG document.
func (s *SVG) String() string {
	var sb strings.Builder

	// SVG header
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif" font-size="11">
`, s.width, s.height, s.width, s.height))
	if s.background != "" {
		sb.WriteString(fmt.Sprintf(`<rect width="100%%" height="100%%" %s/>
`, s.background))
	}
	sb.WriteString(s.body.String())
	sb.WriteString("</svg>")
	return sb.String()
}

// Save writes the document to path.
func (s *SVG) Save(path string) error {
	return os.WriteFile(path, []byte(s.String()), 0644)
}

func fill(c color.Color) string {
	return paint("fill", c)
}

func stroke(c color.Color) string {
	return paint("stroke", c)
}

func paint(attr string, c color.Color) string {
	if isTransparent(c) {
		return attr + `="none"`
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	if n.A == 0xff {
		return fmt.Sprintf(`%s="%s"`, attr, palette.Hex(n))
	}
	return fmt.Sprintf(`%s="%s" %s-opacity="%.3f"`, attr, palette.Hex(n), attr, float64(n.A)/255)
}
