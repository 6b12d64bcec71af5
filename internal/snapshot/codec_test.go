package snapshot

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

const objectJSON = `{
  "tick": 7,
  "spheres": [{"x": 2.5, "y": 3.5, "radius": 0.5, "color": "red", "name": "a"}],
  "cells": {
    "zeta":  [{"col": 1, "row": 1, "color": "#000"}],
    "alpha": [{"col": 1, "row": 1, "color": "#fff", "scale": 0.9}],
    "mid":   []
  },
  "border": {"heights": [124, 104], "paths": [{"points": [[0,0],[10,0]]}]}
}`

func TestDecodeJSONObjectKeepsDocumentOrder(t *testing.T) {
	snap, err := Decode(strings.NewReader(objectJSON), JSON)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	names := layerNames(snap.Cells)
	if strings.Join(names, ",") != "zeta,alpha,mid" {
		t.Errorf("expected document order zeta,alpha,mid, got %v", names)
	}
	if snap.Tick != 7 {
		t.Errorf("expected tick 7, got %d", snap.Tick)
	}
	if snap.Cells[1].Cells[0].Scale != 0.9 {
		t.Errorf("expected scale 0.9, got %f", snap.Cells[1].Cells[0].Scale)
	}
	if snap.Border == nil || len(snap.Border.Heights) != 2 || len(snap.Border.Paths) != 1 {
		t.Fatalf("unexpected border %+v", snap.Border)
	}
	if pts := snap.Border.Paths[0].World(); pts[1].X != 10 {
		t.Errorf("expected second point x=10, got %v", pts[1])
	}
}

func TestDecodeJSONArrayLayers(t *testing.T) {
	in := `{"cells": [{"name": "b", "cells": [{"col": 0, "row": 0, "color": "red"}]}, {"name": "a", "cells": []}]}`
	snap, err := Decode(strings.NewReader(in), JSON)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if strings.Join(layerNames(snap.Cells), ",") != "b,a" {
		t.Errorf("unexpected order %v", layerNames(snap.Cells))
	}
}

func TestDecodeJSONRejectsScalarCells(t *testing.T) {
	if _, err := Decode(strings.NewReader(`{"cells": 3}`), JSON); err == nil {
		t.Error("expected error for scalar cells")
	}
}

func TestDecodeYAMLMappingKeepsOrder(t *testing.T) {
	in := `
spheres:
  - {x: 1, y: 1, radius: 0.5, color: green}
cells:
  occupancy:
    - {col: 0, row: 0, color: "rgba(208,194,232, 0.5)"}
  influence:
    - {col: 0, row: 0, color: red}
border:
  heights: [124, 104]
`
	snap, err := Decode(strings.NewReader(in), YAML)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if strings.Join(layerNames(snap.Cells), ",") != "occupancy,influence" {
		t.Errorf("unexpected order %v", layerNames(snap.Cells))
	}
	if len(snap.Spheres) != 1 || snap.Spheres[0].Color != "green" {
		t.Errorf("unexpected spheres %+v", snap.Spheres)
	}
}

func TestEncodeRoundTripFile(t *testing.T) {
	snap, err := Decode(strings.NewReader(objectJSON), JSON)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	for _, name := range []string{"frame.json", "frame.yaml"} {
		path := filepath.Join(t.TempDir(), name)
		if err := Save(path, snap); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
		loaded, err := Load(path)
		if err != nil {
			t.Fatalf("load %s: %v", name, err)
		}
		if strings.Join(layerNames(loaded.Cells), ",") != "zeta,alpha,mid" {
			t.Errorf("%s: layer order lost: %v", name, layerNames(loaded.Cells))
		}
	}
}

func TestUnknownFormat(t *testing.T) {
	if _, err := Load("frame.txt"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
	if err := Encode(&bytes.Buffer{}, &Snapshot{}, "xml"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestAt(t *testing.T) {
	snap := &Snapshot{Cells: Layers{
		{Name: "a", Cells: []CellDatum{{Col: 1, Row: 2, Color: "red"}, {Col: 1, Row: 2, Color: "blue"}}},
		{Name: "b", Cells: []CellDatum{{Col: 0, Row: 0, Color: "green"}}},
		{Name: "c", Cells: []CellDatum{{Col: 1, Row: 2, Color: "white"}}},
	}}

	hits := snap.At(1, 2)
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Layer != "a" || hits[0].Datum.Color != "blue" {
		t.Errorf("expected last datum of layer a, got %+v", hits[0])
	}
	if hits[1].Layer != "c" {
		t.Errorf("expected layer c second, got %+v", hits[1])
	}

	if _, ok := snap.Layer("b"); !ok {
		t.Error("expected layer b")
	}
}

func layerNames(ls Layers) []string {
	names := make([]string, len(ls))
	for i, l := range ls {
		names[i] = l.Name
	}
	return names
}
