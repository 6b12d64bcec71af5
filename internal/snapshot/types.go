package snapshot

import "github.com/golang/geo/r2"

// CellDatum paints one grid cell. Scale shrinks the painted rectangle about
// the cell centre; zero means the full cell.
type CellDatum struct {
	Col     int            `json:"col" yaml:"col"`
	Row     int            `json:"row" yaml:"row"`
	Color   string         `json:"color" yaml:"color"`
	Scale   float64        `json:"scale,omitempty" yaml:"scale,omitempty"`
	Payload map[string]any `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// Layer is a named pass of cell paint instructions, drawn in slice order.
type Layer struct {
	Name  string      `json:"name" yaml:"name"`
	Cells []CellDatum `json:"cells" yaml:"cells"`
}

// Layers is drawn in slice order; later layers paint over earlier ones.
type Layers []Layer

// SphereDatum is a continuous-space entity in world coordinates.
type SphereDatum struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Radius float64 `json:"radius" yaml:"radius"`
	Color  string  `json:"color" yaml:"color"`
	Name   string  `json:"name,omitempty" yaml:"name,omitempty"`
}

// Path is a polyline in world coordinates.
type Path struct {
	Points [][2]float64 `json:"points" yaml:"points"`
	Closed bool         `json:"closed,omitempty" yaml:"closed,omitempty"`
}

// World returns the path's vertices as points.
func (p Path) World() []r2.Point {
	pts := make([]r2.Point, len(p.Points))
	for i, v := range p.Points {
		pts[i] = r2.Point{X: v[0], Y: v[1]}
	}
	return pts
}

// BorderDatum is the world boundary. Heights are horizontal lines spanning
// the full world width at the given world y.
type BorderDatum struct {
	Color   string    `json:"color,omitempty" yaml:"color,omitempty"`
	Width   float64   `json:"width,omitempty" yaml:"width,omitempty"`
	Paths   []Path    `json:"paths,omitempty" yaml:"paths,omitempty"`
	Heights []float64 `json:"heights,omitempty" yaml:"heights,omitempty"`
}

// RectPath returns a closed rectangular path with corners (x0,y0) and (x1,y1).
func RectPath(x0, y0, x1, y1 float64) Path {
	return Path{
		Points: [][2]float64{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}},
		Closed: true,
	}
}

// Snapshot is the complete input to one render call.
type Snapshot struct {
	Tick    int           `json:"tick,omitempty" yaml:"tick,omitempty"`
	Spheres []SphereDatum `json:"spheres" yaml:"spheres"`
	Cells   Layers        `json:"cells" yaml:"cells"`
	Border  *BorderDatum  `json:"border,omitempty" yaml:"border,omitempty"`
}

// Hit is a cell datum found at a grid index.
type Hit struct {
	Layer string    `json:"layer"`
	Datum CellDatum `json:"datum"`
}

// At returns, per layer in draw order, the last datum painted at (col, row).
func (s *Snapshot) At(col, row int) []Hit {
	var hits []Hit
	for _, l := range s.Cells {
		found := -1
		for i, c := range l.Cells {
			if c.Col == col && c.Row == row {
				found = i
			}
		}
		if found >= 0 {
			hits = append(hits, Hit{Layer: l.Name, Datum: l.Cells[found]})
		}
	}
	return hits
}

// Layer returns the first layer with the given name.
func (s *Snapshot) Layer(name string) (Layer, bool) {
	for _, l := range s.Cells {
		if l.Name == name {
			return l, true
		}
	}
	return Layer{}, false
}
