package surface

import (
	"fmt"
	"image/color"
)

// Op is one recorded draw call.
type Op struct {
	Kind  string // "clear", "rect", "line", "circle" or "text"
	Args  []float64
	Text  string
	Color color.NRGBA
}

func (o Op) String() string {
	if o.Text != "" {
		return fmt.Sprintf("%s %q %v %v", o.Kind, o.Text, o.Args, o.Color)
	}
	return fmt.Sprintf("%s %v %v", o.Kind, o.Args, o.Color)
}

// Recorder is a surface that only records the calls made on it.
type Recorder struct {
	W, H int
	Ops  []Op
}

func NewRecorder(w, h int) *Recorder {
	return &Recorder{W: w, H: h}
}

func (r *Recorder) Size() (int, int) { return r.W, r.H }

func (r *Recorder) Clear(bg color.Color) {
	r.Ops = append(r.Ops[:0], Op{Kind: "clear", Color: nrgba(bg)})
}

func (r *Recorder) FillRect(x, y, w, h float64, c color.Color) {
	r.Ops = append(r.Ops, Op{Kind: "rect", Args: []float64{x, y, w, h}, Color: nrgba(c)})
}

func (r *Recorder) Line(x0, y0, x1, y1, width float64, c color.Color) {
	r.Ops = append(r.Ops, Op{Kind: "line", Args: []float64{x0, y0, x1, y1, width}, Color: nrgba(c)})
}

func (r *Recorder) FillCircle(cx, cy, radius float64, c color.Color) {
	r.Ops = append(r.Ops, Op{Kind: "circle", Args: []float64{cx, cy, radius}, Color: nrgba(c)})
}

func (r *Recorder) Text(s string, x, y float64, c color.Color) {
	r.Ops = append(r.Ops, Op{Kind: "text", Args: []float64{x, y}, Text: s, Color: nrgba(c)})
}

// Kinds lists the recorded op kinds in order.
func (r *Recorder) Kinds() []string {
	kinds := make([]string, len(r.Ops))
	for i, op := range r.Ops {
		kinds[i] = op.Kind
	}
	return kinds
}

// Count returns the number of recorded ops of the given kind.
func (r *Recorder) Count(kind string) int {
	n := 0
	for _, op := range r.Ops {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

func nrgba(c color.Color) color.NRGBA {
	if c == nil {
		return color.NRGBA{}
	}
	return color.NRGBAModel.Convert(c).(color.NRGBA)
}
