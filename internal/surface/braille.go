package surface

import (
	"image/color"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/gridviz/internal/palette"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const brailleBlank = 0x2800

// Braille is a terminal surface: every character cell holds 2x4 dots, so a
// Width x Height character canvas is a (2*Width) x (4*Height) pixel surface.
// Each character cell keeps the colour of the last draw touching it.
type Braille struct {
	Width, Height int
	Grid          [][]rune
	colors        [][]string
	text          map[[2]int]rune
	background    string
}

// NewBraille allocates a canvas of w x h character cells.
func NewBraille(w, h int) *Braille {
	b := &Braille{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
		colors: make([][]string, h),
		text:   make(map[[2]int]rune),
	}
	for i := range b.Grid {
		b.Grid[i] = make([]rune, w)
		b.colors[i] = make([]string, w)
	}
	b.Clear(nil)
	return b
}

func (b *Braille) Size() (int, int) {
	return b.Width * 2, b.Height * 4
}

// Clear resets every dot, colour and label.
func (b *Braille) Clear(bg color.Color) {
	for i := range b.Grid {
		for j := range b.Grid[i] {
			b.Grid[i][j] = brailleBlank
			b.colors[i][j] = ""
		}
	}
	clear(b.text)
	b.background = ""
	if !isTransparent(bg) {
		b.background = palette.Hex(bg)
	}
}

// Set turns on the dot at sub-pixel (x, y).
func (b *Braille) Set(x, y int, c color.Color) {
	// Early bounds check for negative coordinates
	if x < 0 || y < 0 {
		return
	}

	col := x / 2
	row := y / 4
	if col >= b.Width || row >= b.Height {
		return
	}

	b.Grid[row][col] |= pixelMap[y%4][x%2]
	if c != nil {
		b.colors[row][col] = palette.Hex(c)
	}
}

// Dot reports whether the dot at sub-pixel (x, y) is on.
func (b *Braille) Dot(x, y int) bool {
	if x < 0 || y < 0 || x/2 >= b.Width || y/4 >= b.Height {
		return false
	}
	return b.Grid[y/4][x/2]&pixelMap[y%4][x%2] != 0
}

// CellColor is the "#rrggbb" colour of a character cell, or "" if unpainted.
func (b *Braille) CellColor(col, row int) string {
	if col < 0 || row < 0 || col >= b.Width || row >= b.Height {
		return ""
	}
	return b.colors[row][col]
}

func (b *Braille) FillRect(x, y, w, h float64, c color.Color) {
	if isTransparent(c) {
		return
	}
	x0, x1 := pixelSpan(x, x+w)
	y0, y1 := pixelSpan(y, y+h)
	for py := y0; py < y1; py++ {
		for px := x0; px < x1; px++ {
			b.Set(px, py, c)
		}
	}
}

// Line draws a one-dot line using Bresenham's algorithm; width is ignored.
func (b *Braille) Line(fx0, fy0, fx1, fy1, _ float64, c color.Color) {
	if isTransparent(c) {
		return
	}
	x0, y0 := int(math.Floor(fx0)), int(math.Floor(fy0))
	x1, y1 := int(math.Floor(fx1)), int(math.Floor(fy1))

	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		b.Set(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (b *Braille) FillCircle(cx, cy, r float64, c color.Color) {
	if isTransparent(c) {
		return
	}
	if r < 1 {
		b.Set(int(math.Floor(cx)), int(math.Floor(cy)), c)
		return
	}
	x0, x1 := pixelSpan(cx-r, cx+r)
	y0, y1 := pixelSpan(cy-r, cy+r)
	for py := y0; py < y1; py++ {
		for px := x0; px < x1; px++ {
			dx, dy := float64(px)+0.5-cx, float64(py)+0.5-cy
			if dx*dx+dy*dy <= r*r {
				b.Set(px, py, c)
			}
		}
	}
}

// Text writes s into character cells centred on the pixel (x, y).
func (b *Braille) Text(s string, x, y float64, c color.Color) {
	if s == "" || isTransparent(c) {
		return
	}
	row := int(math.Floor(y / 4))
	col := int(math.Floor(x/2)) - utf8.RuneCountInString(s)/2
	hex := palette.Hex(c)
	for _, r := range s {
		if col >= 0 && col < b.Width && row >= 0 && row < b.Height {
			b.text[[2]int{col, row}] = r
			b.colors[row][col] = hex
		}
		col++
	}
}

// Merge returns a new canvas with top drawn over b: dots are OR'd, and top's
// colours and labels win wherever top has drawn.
func (b *Braille) Merge(top *Braille) *Braille {
	out := NewBraille(b.Width, b.Height)
	out.background = b.background
	for row := 0; row < b.Height; row++ {
		copy(out.Grid[row], b.Grid[row])
		copy(out.colors[row], b.colors[row])
	}
	for k, v := range b.text {
		out.text[k] = v
	}
	if top == nil {
		return out
	}
	for row := 0; row < b.Height && row < top.Height; row++ {
		for col := 0; col < b.Width && col < top.Width; col++ {
			if top.Grid[row][col] != brailleBlank {
				out.Grid[row][col] |= top.Grid[row][col]
			}
			if top.colors[row][col] != "" {
				out.colors[row][col] = top.colors[row][col]
			}
		}
	}
	for k, v := range top.text {
		out.text[k] = v
	}
	return out
}

func (b *Braille) glyph(col, row int) rune {
	if r, ok := b.text[[2]int{col, row}]; ok {
		return r
	}
	return b.Grid[row][col]
}

// String renders the canvas without colour.
func (b *Braille) String() string {
	var sb strings.Builder
	for row := 0; row < b.Height; row++ {
		for col := 0; col < b.Width; col++ {
			sb.WriteRune(b.glyph(col, row))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Render renders the canvas with lipgloss colours, one style per run of
// equally coloured cells.
func (b *Braille) Render() string {
	var sb strings.Builder
	base := lipgloss.NewStyle()
	if b.background != "" {
		base = base.Background(lipgloss.Color(b.background))
	}
	for row := 0; row < b.Height; row++ {
		var run strings.Builder
		runColor := ""
		flush := func() {
			if run.Len() == 0 {
				return
			}
			st := base
			if runColor != "" {
				st = st.Foreground(lipgloss.Color(runColor))
			}
			sb.WriteString(st.Render(run.String()))
			run.Reset()
		}
		for col := 0; col < b.Width; col++ {
			if c := b.colors[row][col]; c != runColor {
				flush()
				runColor = c
			}
			run.WriteRune(b.glyph(col, row))
		}
		flush()
		if row < b.Height-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// pixelSpan returns the half-open range of pixels whose centres lie in [lo, hi).
func pixelSpan(lo, hi float64) (int, int) {
	return int(math.Ceil(lo - 0.5)), int(math.Ceil(hi - 0.5))
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
