package surface

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// DefaultFontSize is the label size in points at 72 DPI.
const DefaultFontSize = 11.0

// Raster is an anti-aliased RGBA surface backed by gg.
type Raster struct {
	dc   *gg.Context
	face font.Face
}

// NewRaster allocates a w x h transparent surface with the Go regular font
// loaded for labels.
func NewRaster(w, h int, fontSize float64) (*Raster, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("surface: invalid raster size %dx%d", w, h)
	}
	ttf, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %v", err)
	}
	if fontSize <= 0 {
		fontSize = DefaultFontSize
	}
	face := truetype.NewFace(ttf, &truetype.Options{
		Size:    fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})

	dc := gg.NewContext(w, h)
	dc.SetFontFace(face)
	return &Raster{dc: dc, face: face}, nil
}

func (r *Raster) Size() (int, int) {
	return r.dc.Width(), r.dc.Height()
}

func (r *Raster) Clear(bg color.Color) {
	if bg == nil {
		bg = color.Transparent
	}
	r.dc.SetColor(bg)
	r.dc.Clear()
}

func (r *Raster) FillRect(x, y, w, h float64, c color.Color) {
	r.dc.DrawRectangle(x, y, w, h)
	r.dc.SetColor(c)
	r.dc.Fill()
}

func (r *Raster) Line(x0, y0, x1, y1, width float64, c color.Color) {
	r.dc.SetLineWidth(width)
	r.dc.SetColor(c)
	r.dc.DrawLine(x0, y0, x1, y1)
	r.dc.Stroke()
}

func (r *Raster) FillCircle(cx, cy, radius float64, c color.Color) {
	r.dc.DrawCircle(cx, cy, radius)
	r.dc.SetColor(c)
	r.dc.Fill()
}

func (r *Raster) Text(s string, x, y float64, c color.Color) {
	r.dc.SetColor(c)
	r.dc.DrawStringAnchored(s, x, y, 0.5, 0.5)
}

// Image exposes the backing image; it is overwritten by later draws.
func (r *Raster) Image() image.Image {
	return r.dc.Image()
}

// At returns the pixel at (x, y) as non-premultiplied RGBA.
func (r *Raster) At(x, y int) color.NRGBA {
	return color.NRGBAModel.Convert(r.dc.Image().At(x, y)).(color.NRGBA)
}

// EncodePNG writes the current contents as PNG.
func (r *Raster) EncodePNG(w io.Writer) error {
	return r.dc.EncodePNG(w)
}

// SavePNG writes the current contents to a PNG file.
func (r *Raster) SavePNG(path string) error {
	return r.dc.SavePNG(path)
}
