package walkers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/san-kum/gridviz/internal/grid"
	"github.com/san-kum/gridviz/internal/snapshot"
)

func TestMidpointCircle(t *testing.T) {
	cells := MidpointCircle(50, 50, 10)
	seen := map[grid.Cell]bool{}
	for _, c := range cells {
		seen[c] = true
		dc, dr := c.Col-50, c.Row-50
		d2 := dc*dc + dr*dr
		if d2 < 81 || d2 > 121 {
			t.Errorf("cell %v is %d away squared, not on radius 10", c, d2)
		}
	}
	for _, c := range []grid.Cell{{Col: 50, Row: 60}, {Col: 50, Row: 40}, {Col: 60, Row: 50}, {Col: 40, Row: 50}} {
		if !seen[c] {
			t.Errorf("missing axis point %v", c)
		}
	}

	if got := MidpointCircle(3, 3, 0); len(got) != 4 || got[0] != (grid.Cell{Col: 3, Row: 3}) {
		t.Errorf("radius 0 should collapse to the centre, got %v", got)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cols = 0
	if _, err := New(cfg); !errors.Is(err, grid.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestStepKeepsAgentsInBounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cols, cfg.Rows = 5, 4
	cfg.Agents = 30
	cfg.TravelChance = 0.5
	cfg.Spheres = []SphereConfig{{Col: 20, Row: 2, Radius: 1}}
	m, err := New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	for i := 0; i < 200; i++ {
		m.Step()
		for _, a := range m.Agents() {
			if a.Col < 0 || a.Col >= 5 || a.Row < 0 || a.Row >= 4 {
				t.Fatalf("agent %d left the grid at tick %d: (%d,%d)", a.ID, m.Tick(), a.Col, a.Row)
			}
		}
	}

	total := 0
	for _, n := range m.Counts() {
		total += n
	}
	if total != 30 {
		t.Errorf("expected 30 agents counted, got %d", total)
	}
}

func TestSeededRunsAreReproducible(t *testing.T) {
	a, _ := New(DefaultConfig())
	b, _ := New(DefaultConfig())
	for i := 0; i < 50; i++ {
		a.Step()
		b.Step()
	}
	aa, bb := a.Agents(), b.Agents()
	for i := range aa {
		if aa[i] != bb[i] {
			t.Fatalf("agent %d diverged: %+v vs %+v", i, aa[i], bb[i])
		}
	}
}

func TestSnapshot(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Agents = 3
	cfg.Labels = true
	cfg.BorderHeights = []float64{24, 4}
	m, err := New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	snap := m.Snapshot()

	if len(snap.Spheres) != 3 {
		t.Fatalf("expected 3 spheres, got %d", len(snap.Spheres))
	}
	for _, s := range snap.Spheres {
		if s.Color != "red" || s.Radius != AgentRadius || s.Name == "" {
			t.Errorf("unexpected sphere %+v", s)
		}
	}

	l, ok := snap.Layer(InfluenceLayer)
	if !ok || len(l.Cells) == 0 {
		t.Fatal("expected influence layer")
	}
	if l.Cells[0].Color != InfluenceColor || l.Cells[0].Scale != InfluenceScale {
		t.Errorf("unexpected influence datum %+v", l.Cells[0])
	}
	if snap.Cells[0].Name != InfluenceLayer {
		t.Error("influence should be drawn first")
	}
	if snap.Border == nil || len(snap.Border.Heights) != 2 {
		t.Errorf("expected border heights, got %+v", snap.Border)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	m, _ := New(DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan *snapshot.Snapshot)
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, out, time.Millisecond) }()

	first := <-out
	second := <-out
	if second.Tick != first.Tick+1 {
		t.Errorf("expected consecutive ticks, got %d then %d", first.Tick, second.Tick)
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("run did not stop")
	}

	if err := m.Run(context.Background(), out, 0); err == nil {
		t.Error("expected error for zero interval")
	}
}
