// Package server is the browser view: the frame and the interaction overlay
// are rendered to PNGs and pushed over a websocket, and pointer events come
// back over the same socket or the JSON API.
package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	channerics "github.com/niceyeti/channerics/channels"
	"github.com/san-kum/gridviz/internal/grid"
	"github.com/san-kum/gridviz/internal/interact"
	"github.com/san-kum/gridviz/internal/metrics"
	"github.com/san-kum/gridviz/internal/snapshot"
	"github.com/san-kum/gridviz/internal/surface"
	"github.com/san-kum/gridviz/internal/viz"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultAddr = ":8521"

	shutdownTimeout = 5 * time.Second
)

type Options struct {
	Addr    string
	Title   string
	Budget  time.Duration // frame time budget for overrun counting
	Viz     viz.Options
	Handler interact.Options
	Logger  *log.Logger
}

// View is what a browser needs to draw one state: both canvases as base64
// PNGs plus the pointer state. Every message is complete, so a client that
// misses one loses nothing.
type View struct {
	Tick    int       `json:"tick"`
	Frame   string    `json:"frame"`
	Overlay string    `json:"overlay"`
	State   StateView `json:"state"`
}

type StateView struct {
	Phase    string          `json:"phase"`
	Hovered  *grid.Cell      `json:"hovered,omitempty"`
	Selected *grid.Cell      `json:"selected,omitempty"`
	Hits     []snapshot.Hit  `json:"hits,omitempty"`
	Grid     grid.Spec       `json:"grid"`
	Frames   metrics.Summary `json:"frames"`
}

// PointerEvent is the wire form of interact.Event.
type PointerEvent struct {
	Kind string  `json:"kind" binding:"required"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

func (p PointerEvent) Event() (interact.Event, error) {
	kind, err := interact.ParseKind(p.Kind)
	if err != nil {
		return interact.Event{}, err
	}
	return interact.Event{Kind: kind, X: p.X, Y: p.Y}, nil
}

type Server struct {
	addr    string
	title   string
	spec    grid.Spec
	vis     *viz.Visualization
	handler *interact.Handler
	timer   *metrics.FrameTimer
	hub     *hub
	log     *log.Logger

	frameMu  sync.Mutex
	frame    *surface.Raster
	snap     *snapshot.Snapshot
	framePNG []byte

	overlayMu  sync.Mutex
	overlay    *surface.Raster
	overlayPNG []byte
}

// New allocates both rasters for spec and renders an empty first frame.
func New(spec grid.Spec, opts Options) (*Server, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.Title == "" {
		opts.Title = "gridviz"
	}

	w, h := spec.SurfaceSize()
	frame, err := surface.NewRaster(w, h, 0)
	if err != nil {
		return nil, err
	}
	overlay, err := surface.NewRaster(w, h, 0)
	if err != nil {
		return nil, err
	}

	vopts := opts.Viz
	vopts.Logger = logger
	vis, err := viz.New(spec, frame, vopts)
	if err != nil {
		return nil, fmt.Errorf("visualization: %w", err)
	}
	hopts := opts.Handler
	hopts.Logger = logger
	handler, err := interact.New(spec, overlay, hopts)
	if err != nil {
		return nil, fmt.Errorf("handler: %w", err)
	}

	s := &Server{
		addr:    opts.Addr,
		title:   opts.Title,
		spec:    spec,
		vis:     vis,
		handler: handler,
		timer:   metrics.NewFrameTimer(metrics.DefaultHistory, opts.Budget),
		hub:     newHub(),
		log:     logger.WithPrefix("server"),
		frame:   frame,
		overlay: overlay,
	}
	handler.OnCellSelected(func(e interact.CellEvent) {
		s.log.Info("cell selected", "col", e.Cell.Col, "row", e.Cell.Row)
	})
	handler.OnCellHovered(func(e interact.CellEvent) {
		s.log.Debug("cell hovered", "col", e.Cell.Col, "row", e.Cell.Row)
	})

	if _, err := s.render(nil); err != nil {
		return nil, err
	}
	s.timer.Reset()
	if err := s.paint(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) Spec() grid.Spec            { return s.spec }
func (s *Server) Handler() *interact.Handler { return s.handler }
func (s *Server) Timer() *metrics.FrameTimer { return s.timer }

// Update renders snap and pushes the result to every connected client.
func (s *Server) Update(snap *snapshot.Snapshot) (viz.FrameStats, error) {
	stats, err := s.render(snap)
	if err != nil {
		return stats, err
	}
	s.hub.broadcast(s.View())
	return stats, nil
}

// Pointer applies ev, repaints the overlay and pushes the new view.
func (s *Server) Pointer(ev interact.Event) error {
	s.handler.Handle(ev)
	if err := s.paint(); err != nil {
		return err
	}
	s.hub.broadcast(s.View())
	return nil
}

// ClearSelection drops the selection and pushes the new view.
func (s *Server) ClearSelection() error {
	s.handler.ClearSelection()
	if err := s.paint(); err != nil {
		return err
	}
	s.hub.broadcast(s.View())
	return nil
}

func (s *Server) render(snap *snapshot.Snapshot) (viz.FrameStats, error) {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()

	stats := s.vis.Render(snap)
	s.timer.Observe(stats)
	if stats.Dropped {
		return stats, nil
	}
	var buf bytes.Buffer
	if err := s.frame.EncodePNG(&buf); err != nil {
		return stats, fmt.Errorf("encode frame: %w", err)
	}
	s.snap = snap
	s.framePNG = buf.Bytes()
	return stats, nil
}

func (s *Server) paint() error {
	s.overlayMu.Lock()
	defer s.overlayMu.Unlock()

	s.handler.Paint()
	var buf bytes.Buffer
	if err := s.overlay.EncodePNG(&buf); err != nil {
		return fmt.Errorf("encode overlay: %w", err)
	}
	s.overlayPNG = buf.Bytes()
	return nil
}

// View returns the current frame, overlay and state.
func (s *Server) View() View {
	s.frameMu.Lock()
	frame := base64.StdEncoding.EncodeToString(s.framePNG)
	snap := s.snap
	s.frameMu.Unlock()

	s.overlayMu.Lock()
	overlay := base64.StdEncoding.EncodeToString(s.overlayPNG)
	s.overlayMu.Unlock()

	v := View{Frame: frame, Overlay: overlay, State: s.state(snap)}
	if snap != nil {
		v.Tick = snap.Tick
	}
	return v
}

func (s *Server) State() StateView {
	s.frameMu.Lock()
	snap := s.snap
	s.frameMu.Unlock()
	return s.state(snap)
}

func (s *Server) state(snap *snapshot.Snapshot) StateView {
	st := s.handler.State()
	out := StateView{
		Phase:    st.Phase.String(),
		Hovered:  st.Hovered,
		Selected: st.Selected,
		Grid:     s.spec,
		Frames:   s.timer.Summary(),
	}
	if st.Selected != nil && snap != nil {
		out.Hits = snap.At(st.Selected.Col, st.Selected.Row)
	}
	return out
}

func (s *Server) framePNGBytes() []byte {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	return s.framePNG
}

func (s *Server) overlayPNGBytes() []byte {
	s.overlayMu.Lock()
	defer s.overlayMu.Unlock()
	return s.overlayPNG
}

// Run serves HTTP and renders every snapshot from snapshots until ctx is done
// or the channel closes. Snapshots that arrive while a frame is still being
// rendered queue on the channel.
func (s *Server) Run(ctx context.Context, snapshots <-chan *snapshot.Snapshot) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Router(),
	}
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		s.log.Info("listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	group.Go(func() error {
		return s.pump(groupCtx, snapshots)
	})

	err := group.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

type rendered struct {
	stats viz.FrameStats
	err   error
}

// pump converts snapshots into rendered frames and broadcasts each one.
func (s *Server) pump(ctx context.Context, snapshots <-chan *snapshot.Snapshot) error {
	frames := channerics.Convert(ctx.Done(), snapshots, func(snap *snapshot.Snapshot) rendered {
		stats, err := s.render(snap)
		return rendered{stats: stats, err: err}
	})
	for r := range channerics.OrDone(ctx.Done(), frames) {
		if r.err != nil {
			return r.err
		}
		if r.stats.Dropped {
			continue
		}
		s.hub.broadcast(s.View())
	}
	return nil
}

// Router builds the gin engine for the page, socket and API.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log))
	r.SetHTMLTemplate(pageTemplate)

	r.GET("/", s.page)
	r.GET("/ws", s.socket)
	r.GET("/frame.png", s.png(s.framePNGBytes))
	r.GET("/overlay.png", s.png(s.overlayPNGBytes))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.GET("/state", func(c *gin.Context) {
			c.JSON(http.StatusOK, s.State())
		})
		api.POST("/pointer", s.postPointer)
		api.DELETE("/selection", func(c *gin.Context) {
			if err := s.ClearSelection(); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, s.State())
		})
		api.GET("/pick", s.pick)
	}
	return r
}

func (s *Server) png(get func() []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Data(http.StatusOK, "image/png", get())
	}
}

func (s *Server) postPointer(c *gin.Context) {
	var p PointerEvent
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ev, err := p.Event()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.Pointer(ev); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.State())
}

type pickQuery struct {
	X float64 `form:"x"`
	Y float64 `form:"y"`
}

func (s *Server) pick(c *gin.Context) {
	var q pickQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.handler.PixelToCell(q.X, q.Y))
}

// requestLogger logs one line per request.
func requestLogger(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		logger.Debug("request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client", c.ClientIP(),
		)
		if len(c.Errors) > 0 {
			logger.Warn("request errors", "path", path, "errors", c.Errors.String())
		}
	}
}
