package config

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/san-kum/gridviz/internal/grid"
	"github.com/san-kum/gridviz/internal/interact"
	"github.com/san-kum/gridviz/internal/palette"
	"github.com/san-kum/gridviz/internal/viz"
	"github.com/san-kum/gridviz/internal/walkers"
	"gopkg.in/yaml.v3"
)

const (
	DefaultWidth    = 500
	DefaultHeight   = 500
	DefaultCols     = 10
	DefaultRows     = 10
	DefaultAddr     = ":8521"
	DefaultFPS      = 10
	DefaultLogLevel = "info"
)

type Config struct {
	Canvas      CanvasConfig      `yaml:"canvas"`
	Grid        GridConfig        `yaml:"grid"`
	Theme       string            `yaml:"theme"`
	Render      RenderConfig      `yaml:"render"`
	Interaction InteractionConfig `yaml:"interaction"`
	Server      ServerConfig      `yaml:"server"`
	Feed        walkers.Config    `yaml:"feed"`
	LogLevel    string            `yaml:"log_level"`
	DataDir     string            `yaml:"data_dir"`
}

type CanvasConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

type GridConfig struct {
	Cols int `yaml:"cols"`
	Rows int `yaml:"rows"`
}

// RenderConfig overrides theme colours when set.
type RenderConfig struct {
	Background  string  `yaml:"background"`
	GridLine    string  `yaml:"grid_line"`
	Border      string  `yaml:"border"`
	BorderWidth float64 `yaml:"border_width"`
	LabelOffset float64 `yaml:"label_offset"`
	RadiusMode  string  `yaml:"radius_mode"`
	NoGrid      bool    `yaml:"no_grid"`
}

type InteractionConfig struct {
	Hover  bool   `yaml:"hover"`
	Select bool   `yaml:"select"`
	Color  string `yaml:"color"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	FPS  int    `yaml:"fps"`
}

func DefaultConfig() *Config {
	return &Config{
		Canvas: CanvasConfig{Width: DefaultWidth, Height: DefaultHeight},
		Grid:   GridConfig{Cols: DefaultCols, Rows: DefaultRows},
		Theme:  palette.DefaultTheme.Name,
		Render: RenderConfig{
			BorderWidth: viz.DefaultBorderWidth,
			RadiusMode:  viz.RadiusCells.String(),
		},
		Interaction: InteractionConfig{Hover: true, Select: true},
		Server:      ServerConfig{Addr: DefaultAddr, FPS: DefaultFPS},
		Feed:        walkers.DefaultConfig(),
		LogLevel:    DefaultLogLevel,
		DataDir:     ".gridviz",
	}
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := cfg.Merge(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Merge overlays the values set in the YAML file at path onto c.
func (c *Config) Merge(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Spec validates the canvas and grid dimensions.
func (c *Config) Spec() (grid.Spec, error) {
	return grid.NewSpec(c.Canvas.Width, c.Canvas.Height, c.Grid.Cols, c.Grid.Rows)
}

// Validate checks every section that can be checked without I/O.
func (c *Config) Validate() error {
	if _, err := c.Spec(); err != nil {
		return err
	}
	if c.Theme != "" && !palette.HasTheme(c.Theme) {
		return &grid.ConfigError{Field: "theme", Value: c.Theme, Reason: "unknown theme"}
	}
	for field, v := range map[string]string{
		"render.background": c.Render.Background,
		"render.grid_line":  c.Render.GridLine,
		"render.border":     c.Render.Border,
		"interaction.color": c.Interaction.Color,
	} {
		if v == "" {
			continue
		}
		if _, err := palette.Parse(v); err != nil {
			return &grid.ConfigError{Field: field, Value: v, Reason: err.Error()}
		}
	}
	if c.Render.RadiusMode != "" && c.Render.RadiusMode != "cells" && c.Render.RadiusMode != "pixels" {
		return &grid.ConfigError{Field: "render.radius_mode", Value: c.Render.RadiusMode, Reason: `must be "cells" or "pixels"`}
	}
	if c.Server.FPS < 0 {
		return &grid.ConfigError{Field: "server.fps", Value: c.Server.FPS, Reason: "must not be negative"}
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return &grid.ConfigError{Field: "log_level", Value: c.LogLevel, Reason: err.Error()}
	}
	return nil
}

// VizOptions resolves the theme and render overrides.
func (c *Config) VizOptions(logger *log.Logger) viz.Options {
	opts := viz.ThemeOptions(palette.GetTheme(c.Theme))
	opts.Logger = logger
	if c.Render.Background != "" {
		if bg, err := palette.Parse(c.Render.Background); err == nil {
			if bg.A == 0 {
				opts.Background = nil
			} else {
				opts.Background = bg
			}
		}
	}
	if c.Render.GridLine != "" {
		opts.GridLineColor = c.Render.GridLine
	}
	if c.Render.NoGrid {
		opts.GridLineColor = ""
	}
	if c.Render.Border != "" {
		opts.BorderColor = c.Render.Border
	}
	if c.Render.BorderWidth > 0 {
		opts.BorderWidth = c.Render.BorderWidth
	}
	opts.LabelOffset = c.Render.LabelOffset
	opts.RadiusMode = viz.ParseRadiusMode(c.Render.RadiusMode)
	return opts
}

func (c *Config) HandlerOptions(logger *log.Logger) interact.Options {
	opts := interact.DefaultOptions()
	opts.Logger = logger
	opts.Mode = interact.NotifyNone
	if c.Interaction.Hover {
		opts.Mode |= interact.NotifyHover
	}
	if c.Interaction.Select {
		opts.Mode |= interact.NotifySelect
	}
	t := palette.GetTheme(c.Theme)
	opts.HoverColor = string(t.Hover)
	opts.SelectColor = string(t.Selection)
	if c.Interaction.Color != "" {
		opts.SelectColor = c.Interaction.Color
	}
	return opts
}

// FeedConfig is the walker config sized to the grid.
func (c *Config) FeedConfig() walkers.Config {
	f := c.Feed
	f.Cols, f.Rows = c.Grid.Cols, c.Grid.Rows
	return f
}

// FrameInterval is the time between frames at the configured FPS.
func (c *Config) FrameInterval() time.Duration {
	fps := c.Server.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}
	return time.Second / time.Duration(fps)
}

func (c *Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}
