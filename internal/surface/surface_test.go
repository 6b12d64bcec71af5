package surface

import (
	"bytes"
	"image/color"
	"image/png"
	"strings"
	"testing"
)

var (
	_ Surface = (*Raster)(nil)
	_ Surface = (*Braille)(nil)
	_ Surface = (*SVG)(nil)
	_ Surface = (*Recorder)(nil)
)

var (
	red   = color.NRGBA{0xff, 0, 0, 0xff}
	blue  = color.NRGBA{0, 0, 0xff, 0xff}
	white = color.NRGBA{0xff, 0xff, 0xff, 0xff}
)

func TestRasterFillAndClear(t *testing.T) {
	r, err := NewRaster(100, 50, 0)
	if err != nil {
		t.Fatalf("new raster: %v", err)
	}
	if w, h := r.Size(); w != 100 || h != 50 {
		t.Fatalf("expected 100x50, got %dx%d", w, h)
	}

	if got := r.At(10, 10); got.A != 0 {
		t.Errorf("new raster should be transparent, got %v", got)
	}

	r.Clear(white)
	if got := r.At(99, 49); got != white {
		t.Errorf("expected white after clear, got %v", got)
	}

	r.FillRect(0, 0, 50, 50, red)
	r.FillRect(50, 0, 50, 50, blue)
	if got := r.At(25, 25); got != red {
		t.Errorf("expected red, got %v", got)
	}
	if got := r.At(75, 25); got != blue {
		t.Errorf("expected blue, got %v", got)
	}

	r.Clear(color.Transparent)
	if got := r.At(25, 25); got.A != 0 {
		t.Errorf("expected transparent after clear, got %v", got)
	}
}

func TestRasterCircleAndPNG(t *testing.T) {
	r, err := NewRaster(40, 40, 0)
	if err != nil {
		t.Fatalf("new raster: %v", err)
	}
	r.FillCircle(20, 20, 5, red)
	if got := r.At(20, 20); got != red {
		t.Errorf("expected red centre, got %v", got)
	}
	if got := r.At(2, 2); got.A != 0 {
		t.Errorf("expected empty corner, got %v", got)
	}

	var buf bytes.Buffer
	if err := r.EncodePNG(&buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 40 {
		t.Errorf("expected width 40, got %d", img.Bounds().Dx())
	}
}

func TestBrailleSetAndFill(t *testing.T) {
	b := NewBraille(4, 2)
	if w, h := b.Size(); w != 8 || h != 8 {
		t.Fatalf("expected 8x8 pixels, got %dx%d", w, h)
	}

	b.Set(0, 0, red)
	if b.Grid[0][0] != 0x2801 {
		t.Errorf("expected dot 1, got %U", b.Grid[0][0])
	}
	if b.CellColor(0, 0) != "#ff0000" {
		t.Errorf("expected red cell, got %q", b.CellColor(0, 0))
	}

	b.Set(-1, 3, red)
	b.Set(100, 3, red)

	b.FillRect(2, 0, 2, 4, blue)
	if b.Grid[0][1] != 0x28ff {
		t.Errorf("expected full block, got %U", b.Grid[0][1])
	}
	if b.CellColor(1, 0) != "#0000ff" {
		t.Errorf("expected blue cell, got %q", b.CellColor(1, 0))
	}

	b.Clear(nil)
	if strings.ContainsFunc(b.String(), func(r rune) bool { return r != 0x2800 && r != '\n' }) {
		t.Error("expected blank canvas after clear")
	}
}

func TestBrailleLineCircleText(t *testing.T) {
	b := NewBraille(10, 5)

	b.Line(0, 0, 19, 0, 1, red)
	for x := 0; x < 20; x++ {
		if !b.Dot(x, 0) {
			t.Fatalf("expected dot at (%d,0)", x)
		}
	}

	b.FillCircle(10, 10, 3, blue)
	if !b.Dot(10, 10) {
		t.Error("expected circle centre dot")
	}
	if b.Dot(10, 16) {
		t.Error("did not expect dot outside circle")
	}

	b.Text("ab", 10, 17, white)
	lines := strings.Split(b.String(), "\n")
	if !strings.Contains(lines[4], "ab") {
		t.Errorf("expected label on row 4, got %q", lines[4])
	}
}

func TestBrailleMerge(t *testing.T) {
	base := NewBraille(2, 1)
	base.Set(0, 0, red)
	top := NewBraille(2, 1)
	top.Set(1, 0, blue)
	top.Set(2, 0, blue)

	m := base.Merge(top)
	if m.Grid[0][0] != 0x2809 {
		t.Errorf("expected merged dots 1+4, got %U", m.Grid[0][0])
	}
	if m.CellColor(0, 0) != "#0000ff" || m.CellColor(1, 0) != "#0000ff" {
		t.Error("expected top colours to win")
	}
	if base.Grid[0][0] != 0x2801 {
		t.Error("merge must not mutate the base canvas")
	}
	if m.Render() == "" {
		t.Error("expected rendered output")
	}
}

func TestSVG(t *testing.T) {
	s := NewSVG(100, 50)
	s.Clear(white)
	s.FillRect(0, 0, 10, 10, color.NRGBA{208, 194, 232, 128})
	s.Line(0, 0, 100, 0, 1, red)
	s.FillCircle(5, 5, 2, blue)
	s.Text("a<b", 5, 5, red)

	out := s.String()
	for _, want := range []string{
		`width="100" height="50"`,
		`<rect width="100%" height="100%" fill="#ffffff"/>`,
		`fill="#d0c2e8" fill-opacity="0.502"`,
		`<line x1="0.00" y1="0.00" x2="100.00" y2="0.00" stroke-width="1.00" stroke="#ff0000"/>`,
		`<circle cx="5.00" cy="5.00" r="2.00" fill="#0000ff"/>`,
		`a&lt;b`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("svg missing %q", want)
		}
	}

	s.Clear(nil)
	if strings.Contains(s.String(), "<circle") {
		t.Error("expected elements dropped after clear")
	}
}

func TestRecorderAndStrokeRect(t *testing.T) {
	r := NewRecorder(10, 10)
	r.FillRect(0, 0, 1, 1, red)
	StrokeRect(r, 1, 1, 2, 2, 1, blue)
	if r.Count("line") != 4 || r.Count("rect") != 1 {
		t.Errorf("unexpected ops %v", r.Kinds())
	}
	r.Clear(white)
	if len(r.Ops) != 1 || r.Ops[0].Kind != "clear" {
		t.Errorf("clear should reset the log, got %v", r.Kinds())
	}
}
