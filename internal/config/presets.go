package config

import (
	"slices"

	"github.com/san-kum/gridviz/internal/walkers"
)

type Preset struct {
	Description string
	Apply       func(*Config)
}

var Presets = map[string]Preset{
	"example": {
		Description: "10x10 grid on a 500x500 canvas",
		Apply: func(c *Config) {
			c.Canvas = CanvasConfig{Width: 500, Height: 500}
			c.Grid = GridConfig{Cols: 10, Rows: 10}
			c.Feed.Agents = 5
			c.Feed.Labels = true
			c.Feed.Spheres = []walkers.SphereConfig{{Col: 5, Row: 5, Radius: 3}}
		},
	},
	"influence": {
		Description: "100 walkers and an influence sphere on a 100x100 grid",
		Apply: func(c *Config) {
			c.Canvas = CanvasConfig{Width: 1000, Height: 1000}
			c.Grid = GridConfig{Cols: 100, Rows: 100}
			c.Feed.Agents = 100
			c.Feed.Spheres = []walkers.SphereConfig{{Col: 50, Row: 50, Radius: 10}}
		},
	},
	"border": {
		Description: "100x240 world split by two border heights",
		Apply: func(c *Config) {
			c.Canvas = CanvasConfig{Width: 500, Height: 1200}
			c.Grid = GridConfig{Cols: 100, Rows: 240}
			c.Feed.Agents = 200
			c.Feed.BorderHeights = []float64{124, 104}
			c.Feed.Spheres = []walkers.SphereConfig{
				{Col: 30, Row: 60, Radius: 12},
				{Col: 70, Row: 180, Radius: 12},
			}
			c.Render.Border = "#d33"
		},
	},
}

// GetPreset returns the default config with the preset applied, or nil.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	p.Apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
