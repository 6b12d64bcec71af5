// Package interact turns pointer events on the canvas into grid-cell hover
// and selection state.
package interact

import (
	"fmt"
	"image/color"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/san-kum/gridviz/internal/grid"
	"github.com/san-kum/gridviz/internal/palette"
	"github.com/san-kum/gridviz/internal/surface"
)

type Kind int

const (
	Enter Kind = iota
	Move
	Down
	Leave
)

var kindNames = [...]string{"enter", "move", "down", "leave"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps "enter", "move", "down" (or "click") and "leave".
func ParseKind(s string) (Kind, error) {
	switch s {
	case "enter":
		return Enter, nil
	case "move":
		return Move, nil
	case "down", "click":
		return Down, nil
	case "leave":
		return Leave, nil
	}
	return 0, fmt.Errorf("interact: unknown event kind %q", s)
}

// Event is a pointer event in canvas pixel coordinates.
type Event struct {
	Kind Kind
	X, Y float64
}

type Phase int

const (
	Idle Phase = iota
	Hovering
	Selected
)

func (p Phase) String() string {
	switch p {
	case Hovering:
		return "hovering"
	case Selected:
		return "selected"
	}
	return "idle"
}

// Mode selects which notifications subscribers receive.
type Mode uint8

const (
	NotifyHover Mode = 1 << iota
	NotifySelect
	// NotifyNone turns notifications off. A zero Mode means NotifyAll.
	NotifyNone Mode = 1 << 7

	NotifyAll = NotifyHover | NotifySelect
)

// CellEvent is delivered to subscribers.
type CellEvent struct {
	Cell   grid.Cell
	PixelX float64
	PixelY float64
}

// State is a copy of the handler state. Phase is Selected whenever a
// selection exists, otherwise Hovering while the pointer is over the canvas.
type State struct {
	Phase      Phase
	Hovered    *grid.Cell
	Selected   *grid.Cell
	LastX      float64
	LastY      float64
	HasPointer bool
}

type Options struct {
	Mode        Mode
	HoverColor  string
	SelectColor string
	Logger      *log.Logger
}

func DefaultOptions() Options {
	return Options{
		Mode:        NotifyAll,
		HoverColor:  "#333333",
		SelectColor: "rgba(255, 165, 0, 0.35)",
	}
}

type subscription struct {
	id int
	fn func(CellEvent)
}

// Handler tracks pointer state for one grid. It is safe for concurrent use;
// subscribers are called on the goroutine that delivered the event, after the
// state has been updated and without the lock held.
type Handler struct {
	spec    grid.Spec
	overlay surface.Surface
	mode    Mode
	hoverC  color.NRGBA
	selectC color.NRGBA
	log     *log.Logger

	mu       sync.Mutex
	hovered  *grid.Cell
	selected *grid.Cell
	lastX    float64
	lastY    float64
	pointer  bool
	nextID   int
	onHover  []subscription
	onSelect []subscription
}

// New returns a handler for spec. overlay may be nil when no highlights are
// painted; otherwise its size must match the spec.
func New(spec grid.Spec, overlay surface.Surface, opts Options) (*Handler, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if overlay != nil {
		if err := spec.CheckSurface(overlay.Size()); err != nil {
			return nil, err
		}
	}
	def := DefaultOptions()
	if opts.Mode == 0 {
		opts.Mode = def.Mode
	}
	if opts.HoverColor == "" {
		opts.HoverColor = def.HoverColor
	}
	if opts.SelectColor == "" {
		opts.SelectColor = def.SelectColor
	}
	hc, err := palette.Parse(opts.HoverColor)
	if err != nil {
		return nil, &grid.ConfigError{Field: "hover_color", Value: opts.HoverColor, Reason: err.Error()}
	}
	sc, err := palette.Parse(opts.SelectColor)
	if err != nil {
		return nil, &grid.ConfigError{Field: "select_color", Value: opts.SelectColor, Reason: err.Error()}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{
		spec:    spec,
		overlay: overlay,
		mode:    opts.Mode,
		hoverC:  hc,
		selectC: sc,
		log:     logger.WithPrefix("interact"),
	}, nil
}

func (h *Handler) Spec() grid.Spec { return h.spec }

// PixelToCell maps a canvas pixel to a cell, clamping to the grid.
func (h *Handler) PixelToCell(px, py float64) grid.Cell {
	return h.spec.PixelToCell(px, py)
}

// Handle applies ev and notifies subscribers.
func (h *Handler) Handle(ev Event) {
	var (
		hoverFns, selectFns []subscription
		out                 CellEvent
	)

	h.mu.Lock()
	switch ev.Kind {
	case Enter, Move:
		cell := h.track(ev)
		if h.hovered == nil || *h.hovered != cell {
			h.hovered = &cell
			out = CellEvent{Cell: cell, PixelX: ev.X, PixelY: ev.Y}
			if h.mode&NotifyHover != 0 {
				hoverFns = h.onHover
			}
		}
	case Down:
		cell := h.track(ev)
		h.hovered = &cell
		sel := cell
		h.selected = &sel
		out = CellEvent{Cell: cell, PixelX: ev.X, PixelY: ev.Y}
		if h.mode&NotifySelect != 0 {
			selectFns = h.onSelect
		}
		h.log.Debug("cell selected", "col", cell.Col, "row", cell.Row)
	case Leave:
		h.hovered = nil
		h.pointer = false
	default:
		h.log.Warn("ignoring pointer event", "kind", ev.Kind)
	}
	h.mu.Unlock()

	for _, s := range hoverFns {
		s.fn(out)
	}
	for _, s := range selectFns {
		s.fn(out)
	}
}

func (h *Handler) track(ev Event) grid.Cell {
	h.lastX, h.lastY = ev.X, ev.Y
	h.pointer = true
	return h.spec.PixelToCell(ev.X, ev.Y)
}

func (h *Handler) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()

	st := State{
		Hovered:    copyCell(h.hovered),
		Selected:   copyCell(h.selected),
		LastX:      h.lastX,
		LastY:      h.lastY,
		HasPointer: h.pointer,
	}
	switch {
	case h.selected != nil:
		st.Phase = Selected
	case h.hovered != nil:
		st.Phase = Hovering
	}
	return st
}

func (h *Handler) Hovered() (grid.Cell, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.hovered == nil {
		return grid.Cell{}, false
	}
	return *h.hovered, true
}

func (h *Handler) Selected() (grid.Cell, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.selected == nil {
		return grid.Cell{}, false
	}
	return *h.selected, true
}

func (h *Handler) ClearSelection() {
	h.mu.Lock()
	h.selected = nil
	h.mu.Unlock()
}

// OnCellHovered registers fn for hover changes. The returned func cancels it.
func (h *Handler) OnCellHovered(fn func(CellEvent)) (cancel func()) {
	return h.subscribe(&h.onHover, fn)
}

// OnCellSelected registers fn for clicks. The returned func cancels it.
func (h *Handler) OnCellSelected(fn func(CellEvent)) (cancel func()) {
	return h.subscribe(&h.onSelect, fn)
}

func (h *Handler) subscribe(list *[]subscription, fn func(CellEvent)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	// Copy on write so Handle can iterate a snapshot outside the lock.
	*list = append((*list)[:len(*list):len(*list)], subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			kept := make([]subscription, 0, len(*list))
			for _, s := range *list {
				if s.id != id {
					kept = append(kept, s)
				}
			}
			*list = kept
		})
	}
}

// Paint redraws the overlay: selection fill first, then the hover outline.
// It is a no-op without an overlay.
func (h *Handler) Paint() {
	if h.overlay == nil {
		return
	}
	st := h.State()
	h.overlay.Clear(nil)
	if st.Selected != nil {
		r := h.spec.CellRect(*st.Selected)
		h.overlay.FillRect(r.X, r.Y, r.W, r.H, h.selectC)
	}
	if st.Hovered != nil {
		r := h.spec.CellRect(*st.Hovered)
		surface.StrokeRect(h.overlay, r.X, r.Y, r.W, r.H, 2, h.hoverC)
	}
}

func copyCell(c *grid.Cell) *grid.Cell {
	if c == nil {
		return nil
	}
	v := *c
	return &v
}
