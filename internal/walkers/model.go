// Package walkers is a small agent model that feeds the renderer: agents
// random-walk on a bounded grid, travel to influence spheres and return home.
package walkers

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/san-kum/gridviz/internal/grid"
	"github.com/san-kum/gridviz/internal/snapshot"
)

type Status int

const (
	Home Status = iota
	Travelling
	Visiting
)

func (s Status) String() string {
	switch s {
	case Travelling:
		return "travelling"
	case Visiting:
		return "visiting"
	}
	return "home"
}

// Color is the sphere colour for the status.
func (s Status) Color() string {
	switch s {
	case Travelling:
		return "green"
	case Visiting:
		return "orange"
	}
	return "red"
}

const (
	InfluenceLayer = "influence"
	CrowdLayer     = "crowd"
	InfluenceColor = "rgba(208,194,232, 0.5)"
	CrowdColor     = "rgba(255,0,0, 0.2)"
	InfluenceScale = 0.9
	AgentRadius    = 0.5
)

type SphereConfig struct {
	Col    int `yaml:"col" json:"col"`
	Row    int `yaml:"row" json:"row"`
	Radius int `yaml:"radius" json:"radius"`
}

type Config struct {
	Cols          int            `yaml:"cols"`
	Rows          int            `yaml:"rows"`
	Agents        int            `yaml:"agents"`
	Seed          int64          `yaml:"seed"`
	TravelChance  float64        `yaml:"travel_chance"`
	ReturnChance  float64        `yaml:"return_chance"`
	Spheres       []SphereConfig `yaml:"spheres"`
	BorderHeights []float64      `yaml:"border_heights"`
	Labels        bool           `yaml:"labels"`
}

// DefaultConfig mirrors the original demo: 100 agents on a 100x100 grid with
// one influence sphere of radius 10 at (50,50).
func DefaultConfig() Config {
	return Config{
		Cols:         100,
		Rows:         100,
		Agents:       100,
		Seed:         1,
		TravelChance: 0.01,
		ReturnChance: 0.05,
		Spheres:      []SphereConfig{{Col: 50, Row: 50, Radius: 10}},
	}
}

type Agent struct {
	ID     int
	Col    int
	Row    int
	Status Status
	target int
}

func (a Agent) Name() string { return fmt.Sprintf("a%d", a.ID) }

// Model is not safe for concurrent use; Run owns it while running.
type Model struct {
	cfg       Config
	rng       *rand.Rand
	agents    []Agent
	influence []grid.Cell
	tick      int
}

func New(cfg Config) (*Model, error) {
	if cfg.Cols <= 0 || cfg.Rows <= 0 {
		return nil, &grid.ConfigError{Field: "feed.size", Value: fmt.Sprintf("%dx%d", cfg.Cols, cfg.Rows), Reason: "must be positive"}
	}
	if cfg.Agents < 0 {
		return nil, &grid.ConfigError{Field: "feed.agents", Value: cfg.Agents, Reason: "must not be negative"}
	}
	for _, s := range cfg.Spheres {
		if s.Radius < 0 {
			return nil, &grid.ConfigError{Field: "feed.spheres.radius", Value: s.Radius, Reason: "must not be negative"}
		}
	}

	m := &Model{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
	for _, s := range cfg.Spheres {
		for _, c := range MidpointCircle(s.Col, s.Row, s.Radius) {
			if c.Col >= 0 && c.Col < cfg.Cols && c.Row >= 0 && c.Row < cfg.Rows {
				m.influence = append(m.influence, c)
			}
		}
	}
	m.agents = make([]Agent, cfg.Agents)
	for i := range m.agents {
		m.agents[i] = Agent{
			ID:  i,
			Col: m.rng.Intn(cfg.Cols),
			Row: m.rng.Intn(cfg.Rows),
		}
	}
	return m, nil
}

func (m *Model) Tick() int { return m.tick }

func (m *Model) Agents() []Agent {
	return append([]Agent(nil), m.agents...)
}

// Counts returns the number of agents per status.
func (m *Model) Counts() map[Status]int {
	out := map[Status]int{Home: 0, Travelling: 0, Visiting: 0}
	for _, a := range m.agents {
		out[a.Status]++
	}
	return out
}

// Step activates every agent once in random order.
func (m *Model) Step() {
	for _, i := range m.rng.Perm(len(m.agents)) {
		m.stepAgent(&m.agents[i])
	}
	m.tick++
}

func (m *Model) stepAgent(a *Agent) {
	switch a.Status {
	case Home:
		if len(m.cfg.Spheres) > 0 && m.rng.Float64() < m.cfg.TravelChance {
			a.Status = Travelling
			a.target = m.rng.Intn(len(m.cfg.Spheres))
			return
		}
		m.wander(a)
	case Travelling:
		s := m.cfg.Spheres[a.target]
		tc := max(0, min(s.Col, m.cfg.Cols-1))
		tr := max(0, min(s.Row, m.cfg.Rows-1))
		a.Col += sign(tc - a.Col)
		a.Row += sign(tr - a.Row)
		dc, dr := s.Col-a.Col, s.Row-a.Row
		if dc*dc+dr*dr <= s.Radius*s.Radius || (a.Col == tc && a.Row == tr) {
			a.Status = Visiting
		}
	case Visiting:
		if m.rng.Float64() < m.cfg.ReturnChance {
			a.Status = Home
			return
		}
		m.wander(a)
	}
}

// wander moves to a random von Neumann neighbour or stays put. The grid does
// not wrap.
func (m *Model) wander(a *Agent) {
	steps := [][2]int{{0, 0}}
	for _, d := range [][2]int{{0, -1}, {-1, 0}, {1, 0}, {0, 1}} {
		c, r := a.Col+d[0], a.Row+d[1]
		if c >= 0 && c < m.cfg.Cols && r >= 0 && r < m.cfg.Rows {
			steps = append(steps, [2]int{c - a.Col, r - a.Row})
		}
	}
	d := steps[m.rng.Intn(len(steps))]
	a.Col += d[0]
	a.Row += d[1]
}

// Snapshot builds the renderer input for the current tick.
func (m *Model) Snapshot() *snapshot.Snapshot {
	snap := &snapshot.Snapshot{Tick: m.tick}

	if len(m.influence) > 0 {
		l := snapshot.Layer{Name: InfluenceLayer, Cells: make([]snapshot.CellDatum, len(m.influence))}
		for i, c := range m.influence {
			l.Cells[i] = snapshot.CellDatum{Col: c.Col, Row: c.Row, Color: InfluenceColor, Scale: InfluenceScale}
		}
		snap.Cells = append(snap.Cells, l)
	}

	occupied := make(map[grid.Cell]int, len(m.agents))
	for _, a := range m.agents {
		occupied[grid.Cell{Col: a.Col, Row: a.Row}]++
	}
	crowd := snapshot.Layer{Name: CrowdLayer}
	for _, a := range m.agents {
		c := grid.Cell{Col: a.Col, Row: a.Row}
		if n := occupied[c]; n > 1 {
			crowd.Cells = append(crowd.Cells, snapshot.CellDatum{
				Col: c.Col, Row: c.Row, Color: CrowdColor,
				Payload: map[string]any{"agents": n},
			})
			occupied[c] = 0
		}
	}
	snap.Cells = append(snap.Cells, crowd)

	snap.Spheres = make([]snapshot.SphereDatum, len(m.agents))
	for i, a := range m.agents {
		s := snapshot.SphereDatum{
			X:      float64(a.Col) + 0.5,
			Y:      float64(a.Row) + 0.5,
			Radius: AgentRadius,
			Color:  a.Status.Color(),
		}
		if m.cfg.Labels {
			s.Name = a.Name()
		}
		snap.Spheres[i] = s
	}

	if len(m.cfg.BorderHeights) > 0 {
		snap.Border = &snapshot.BorderDatum{
			Heights: append([]float64(nil), m.cfg.BorderHeights...),
		}
	}
	return snap
}

// Run steps the model every interval and sends a snapshot after each step
// until ctx is done.
func (m *Model) Run(ctx context.Context, out chan<- *snapshot.Snapshot, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %v", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		m.Step()
		select {
		case out <- m.Snapshot():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// MidpointCircle returns the outline cells of a circle around (c0, r0).
// Points on the octant boundaries appear more than once.
func MidpointCircle(c0, r0, radius int) []grid.Cell {
	var out []grid.Cell
	add := func(c, r int) { out = append(out, grid.Cell{Col: c, Row: r}) }

	f := 1 - radius
	ddx, ddy := 1, -2*radius
	x, y := 0, radius
	add(c0, r0+radius)
	add(c0, r0-radius)
	add(c0+radius, r0)
	add(c0-radius, r0)

	for x < y {
		if f >= 0 {
			y--
			ddy += 2
			f += ddy
		}
		x++
		ddx += 2
		f += ddx
		add(c0+x, r0+y)
		add(c0-x, r0+y)
		add(c0+x, r0-y)
		add(c0-x, r0-y)
		add(c0+y, r0+x)
		add(c0-y, r0+x)
		add(c0+y, r0-x)
		add(c0-y, r0-x)
	}
	return out
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
