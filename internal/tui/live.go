// Package tui is the terminal live view: each tick is rendered onto a braille
// surface and the mouse drives the interaction handler.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/gridviz/internal/grid"
	"github.com/san-kum/gridviz/internal/interact"
	"github.com/san-kum/gridviz/internal/metrics"
	"github.com/san-kum/gridviz/internal/palette"
	"github.com/san-kum/gridviz/internal/snapshot"
	"github.com/san-kum/gridviz/internal/surface"
	"github.com/san-kum/gridviz/internal/viz"
)

const (
	DefaultWidth  = 80
	DefaultHeight = 24

	canvasPadX   = 2
	canvasPadY   = 1
	sidebarWidth = 46
	maxEvents    = 5
)

// Feed produces the snapshot for each tick.
type Feed interface {
	Step()
	Snapshot() *snapshot.Snapshot
}

// Static replays one snapshot forever.
type Static struct {
	Snap *snapshot.Snapshot
}

func (s Static) Step()                        {}
func (s Static) Snapshot() *snapshot.Snapshot { return s.Snap }

type Options struct {
	Title    string
	Width    int // canvas width in terminal cells
	Height   int // canvas height in terminal cells
	Interval time.Duration
	Theme    palette.Theme
	Viz      viz.Options // an empty GridLineColor starts with grid lines off
	Handler  interact.Options
	Logger   *log.Logger
}

type TickMsg time.Time

// eventLog is shared by the model copies bubbletea makes; subscribers append
// to it from Update.
type eventLog struct {
	lines []string
}

func (l *eventLog) add(s string) {
	l.lines = append(l.lines, s)
	if len(l.lines) > maxEvents {
		l.lines = l.lines[len(l.lines)-maxEvents:]
	}
}

type Model struct {
	title    string
	interval time.Duration
	feed     Feed
	snap     *snapshot.Snapshot
	last     viz.FrameStats

	base    *surface.Braille
	overlay *surface.Braille
	vis     *viz.Visualization
	handler *interact.Handler
	timer   *metrics.FrameTimer
	events  *eventLog
	log     *log.Logger

	theme    palette.Theme
	styles   styles
	keys     keyMap
	help     help.Model
	running  bool
	inCanvas bool
	gridOff  string
	showHelp bool
}

// NewModel builds the surfaces and components for a cols x rows grid.
func NewModel(feed Feed, cols, rows int, opts Options) (Model, error) {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Second / 10
	}
	if opts.Theme.Name == "" {
		opts.Theme = palette.DefaultTheme
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	base := surface.NewBraille(opts.Width, opts.Height)
	overlay := surface.NewBraille(opts.Width, opts.Height)
	pw, ph := base.Size()
	spec, err := grid.NewSpec(float64(pw), float64(ph), cols, rows)
	if err != nil {
		return Model{}, err
	}

	vopts := opts.Viz
	vopts.Logger = logger
	vis, err := viz.New(spec, base, vopts)
	if err != nil {
		return Model{}, fmt.Errorf("visualization: %w", err)
	}
	hopts := opts.Handler
	hopts.Logger = logger
	handler, err := interact.New(spec, overlay, hopts)
	if err != nil {
		return Model{}, fmt.Errorf("handler: %w", err)
	}
	if err := spec.Match(handler.Spec()); err != nil {
		return Model{}, err
	}

	events := &eventLog{}
	handler.OnCellSelected(func(e interact.CellEvent) {
		events.add(fmt.Sprintf("select %v", e.Cell))
		logger.Info("cell selected", "col", e.Cell.Col, "row", e.Cell.Row)
	})
	handler.OnCellHovered(func(e interact.CellEvent) {
		logger.Debug("cell hovered", "col", e.Cell.Col, "row", e.Cell.Row)
	})

	title := opts.Title
	if title == "" {
		title = "gridviz"
	}
	m := Model{
		title:    title,
		interval: opts.Interval,
		feed:     feed,
		base:     base,
		overlay:  overlay,
		vis:      vis,
		handler:  handler,
		timer:    metrics.NewFrameTimer(metrics.DefaultHistory, opts.Interval),
		events:   events,
		log:      logger,
		theme:    opts.Theme,
		styles:   newStyles(opts.Theme),
		keys:     defaultKeys(),
		help:     help.New(),
		running:  true,
	}
	if vopts.GridLineColor == "" {
		m.gridOff = string(opts.Theme.GridLine)
	}
	m.snap = feed.Snapshot()
	m.render()
	return m, nil
}

func (m Model) Handler() *interact.Handler { return m.handler }
func (m Model) Stats() viz.FrameStats      { return m.last }

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Pause):
			m.running = !m.running
		case key.Matches(msg, m.keys.Step):
			m.advance()
		case key.Matches(msg, m.keys.Theme):
			m.setTheme(palette.NextTheme(m.theme.Name))
		case key.Matches(msg, m.keys.Deselect):
			m.handler.ClearSelection()
			m.handler.Paint()
		case key.Matches(msg, m.keys.Grid):
			m.toggleGrid()
			m.render()
		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			m.help.ShowAll = m.showHelp
		}
	case tea.MouseMsg:
		m.mouse(tea.MouseEvent(msg))
	case TickMsg:
		if m.running {
			m.advance()
		}
		return m, m.tick()
	}
	return m, nil
}

func (m *Model) advance() {
	m.feed.Step()
	m.snap = m.feed.Snapshot()
	m.render()
}

func (m *Model) render() {
	m.last = m.vis.Render(m.snap)
	m.timer.Observe(m.last)
	m.handler.Paint()
}

func (m *Model) setTheme(t palette.Theme) {
	m.theme = t
	m.styles = newStyles(t)
	off := m.gridOff
	m.vis.SetTheme(t)
	if off != "" {
		m.gridOff = ""
		m.disableGrid()
	}
	m.render()
}

// disableGrid and toggleGrid swap the grid colour out of the options so
// Render skips grid lines.
func (m *Model) disableGrid() {
	o := m.vis.Options()
	if o.GridLineColor == "" {
		return
	}
	m.gridOff = o.GridLineColor
	m.vis.SetGridLineColor("")
}

func (m *Model) toggleGrid() {
	if m.gridOff != "" {
		m.vis.SetGridLineColor(m.gridOff)
		m.gridOff = ""
		return
	}
	m.disableGrid()
}

// CellToPixel maps a terminal cell relative to the canvas to the centre of
// its braille block.
func CellToPixel(x, y int) (float64, float64) {
	return float64(x*2) + 1, float64(y*4) + 2
}

func (m *Model) mouse(ev tea.MouseEvent) {
	x, y := ev.X-canvasPadX, ev.Y-canvasPadY
	w, h := m.base.Width, m.base.Height
	inside := x >= 0 && x < w && y >= 0 && y < h

	if !inside {
		if m.inCanvas {
			m.inCanvas = false
			m.handler.Handle(interact.Event{Kind: interact.Leave})
			m.handler.Paint()
		}
		return
	}

	px, py := CellToPixel(x, y)
	kind := interact.Move
	if !m.inCanvas {
		kind = interact.Enter
		m.inCanvas = true
	}
	if ev.Action == tea.MouseActionPress && ev.Button == tea.MouseButtonLeft {
		kind = interact.Down
	}
	m.handler.Handle(interact.Event{Kind: kind, X: px, Y: py})
	m.handler.Paint()
}

func (m Model) View() string {
	canvas := m.styles.canvas.Render(m.base.Merge(m.overlay).Render())

	var s strings.Builder
	s.WriteString(m.styles.header.Render(strings.ToUpper(m.title)) + "\n")
	if m.running {
		s.WriteString(m.styles.running.Render("RUNNING") + "\n\n")
	} else {
		s.WriteString(m.styles.paused.Render("PAUSED") + "\n\n")
	}

	sum := m.timer.Summary()
	if hist := m.timer.History(); len(hist) > 1 {
		chart := asciigraph.Plot(tail(hist, 60), asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("frame ms"))
		s.WriteString(m.styles.graph.Render(chart) + "\n")
	}

	tick := 0
	if m.snap != nil {
		tick = m.snap.Tick
	}
	spec := m.vis.Spec()
	s.WriteString(m.styles.row("Tick", fmt.Sprintf("%d", tick)))
	s.WriteString(m.styles.row("Grid", fmt.Sprintf("%dx%d", spec.Cols, spec.Rows)))
	s.WriteString(m.styles.row("Drawn", fmt.Sprintf("%d cells, %d spheres", m.last.Cells, m.last.Spheres)))
	if n := m.last.Skipped(); n > 0 {
		s.WriteString(m.styles.label.Render("Skipped") + m.styles.warn.Render(fmt.Sprintf("%d", n)) + "\n")
	}
	s.WriteString(m.styles.row("Frame", fmt.Sprintf("%.2fms (p95 %.2f)", sum.MeanMs, sum.P95Ms)))
	s.WriteString(m.styles.row("Theme", m.theme.Name))

	s.WriteString("\n" + m.styles.separator(sidebarWidth-6) + "\n\n")
	st := m.handler.State()
	s.WriteString(m.styles.row("Pointer", st.Phase.String()))
	if st.Hovered != nil {
		s.WriteString(m.styles.row("Hover", st.Hovered.String()))
	}
	if st.Selected != nil {
		s.WriteString(m.styles.label.Render("Selected") + m.styles.active.Render(st.Selected.String()) + "\n")
		if m.snap != nil {
			for _, hit := range m.snap.At(st.Selected.Col, st.Selected.Row) {
				s.WriteString(m.styles.row("  "+hit.Layer, hit.Datum.Color))
			}
		}
	}
	for _, e := range m.events.lines {
		s.WriteString(m.styles.subtle.Render(e) + "\n")
	}

	s.WriteString("\n" + m.help.View(m.keys))
	sidebar := m.styles.panel.Render(s.String())
	return lipgloss.JoinHorizontal(lipgloss.Top, canvas, sidebar)
}

func tail(v []float64, n int) []float64 {
	if len(v) > n {
		return v[len(v)-n:]
	}
	return v
}

// Run starts the live view and blocks until the user quits or ctx is done.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
