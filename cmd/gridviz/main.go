package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/gridviz/internal/config"
	"github.com/san-kum/gridviz/internal/grid"
	"github.com/san-kum/gridviz/internal/metrics"
	"github.com/san-kum/gridviz/internal/palette"
	"github.com/san-kum/gridviz/internal/server"
	"github.com/san-kum/gridviz/internal/snapshot"
	"github.com/san-kum/gridviz/internal/storage"
	"github.com/san-kum/gridviz/internal/surface"
	"github.com/san-kum/gridviz/internal/tui"
	"github.com/san-kum/gridviz/internal/viz"
	"github.com/san-kum/gridviz/internal/walkers"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	configFile string
	preset     string
	dataDir    string
	logLevel   string
	theme      string
	noGrid     bool
	seed       int64

	renderOut    string
	exportOut    string
	ticks        int
	runID        string
	frameNo      int
	recordFrames int
	benchFrames  int
	name         string
	addr         string
	fps          int
	width        int
	height       int
	logFile      string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// newRootCmd registers the commands. Each command owns the variables behind
// its flags.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "gridviz",
		Short:         "grid visualization and pointer interaction",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&preset, "preset", "", "use preset configuration")
	pf.StringVar(&dataDir, "data", "", "data directory (default from config)")
	pf.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&theme, "theme", "", "colour theme")
	pf.BoolVar(&noGrid, "no-grid", false, "do not draw grid lines")
	pf.Int64Var(&seed, "seed", 0, "walker feed seed (0 keeps the config value)")

	renderCmd := &cobra.Command{
		Use:   "render [snapshot]",
		Short: "render one frame to PNG or SVG",
		Long: "Render a snapshot file, a recorded frame (--run) or the walker feed\n" +
			"after --ticks steps. The output format follows the --out extension.",
		Args: cobra.MaximumNArgs(1),
		RunE: renderFrame,
	}
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "frame.png", "output file (.png or .svg)")
	renderCmd.Flags().IntVar(&ticks, "ticks", 0, "feed steps before the frame is taken")
	renderCmd.Flags().StringVar(&runID, "run", "", "render a frame from a recording")
	renderCmd.Flags().IntVar(&frameNo, "frame", -1, "recorded frame index (default last)")

	pickCmd := &cobra.Command{
		Use:   "pick [x] [y] [snapshot]",
		Short: "map a canvas pixel to its grid cell",
		Args:  cobra.RangeArgs(2, 3),
		RunE:  pickCell,
	}

	liveCmd := &cobra.Command{
		Use:   "live [snapshot]",
		Short: "live terminal view with mouse hover and selection",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	liveCmd.Flags().IntVar(&fps, "fps", 0, "frame rate (default from config)")
	liveCmd.Flags().IntVar(&width, "width", tui.DefaultWidth, "canvas width in terminal cells")
	liveCmd.Flags().IntVar(&height, "height", tui.DefaultHeight, "canvas height in terminal cells")
	liveCmd.Flags().StringVar(&logFile, "log-file", "", "log file (default <data>/live.log)")

	serveCmd := &cobra.Command{
		Use:   "serve [snapshot]",
		Short: "serve the browser view",
		Args:  cobra.MaximumNArgs(1),
		RunE:  serve,
	}
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().IntVar(&fps, "fps", 0, "frame rate (default from config)")

	recordCmd := &cobra.Command{
		Use:   "record",
		Short: "record walker feed frames",
		Args:  cobra.NoArgs,
		RunE:  record,
	}
	recordCmd.Flags().IntVar(&recordFrames, "frames", 100, "number of frames")
	recordCmd.Flags().StringVar(&name, "name", "walkers", "recording name")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list recordings",
		Args:  cobra.NoArgs,
		RunE:  listRecordings,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a recording to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRecording,
	}
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default <run_id>.json)")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "benchmark rendering of the walker feed",
		Args:  cobra.NoArgs,
		RunE:  bench,
	}
	benchCmd.Flags().IntVar(&benchFrames, "frames", 200, "number of frames")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			for _, p := range config.ListPresets() {
				fmt.Fprintf(w, "%s\t%s\n", p, config.Presets[p].Description)
			}
			w.Flush()
		},
	}

	configCmd := &cobra.Command{
		Use:   "config [path]",
		Short: "write the resolved configuration as yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			path := "gridviz.yaml"
			if len(args) > 0 {
				path = args[0]
			}
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}

	rootCmd.AddCommand(renderCmd, pickCmd, liveCmd, serveCmd, recordCmd, listCmd, exportCmd, benchCmd, presetsCmd, configCmd)
	return rootCmd
}

// loadConfig resolves defaults, then the preset, then the config file, then
// flags.
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		if err := cfg.Merge(configFile); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if theme != "" {
		cfg.Theme = theme
	}
	if noGrid {
		cfg.Render.NoGrid = true
	}
	if seed != 0 {
		cfg.Feed.Seed = seed
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if fps > 0 {
		cfg.Server.FPS = fps
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(w io.Writer, cfg *config.Config) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Level:           cfg.Level(),
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          "gridviz",
	})
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// loadSnapshot picks the frame source: a snapshot file, a recorded frame or
// the walker feed stepped n times.
func loadSnapshot(cfg *config.Config, args []string, n int) (*snapshot.Snapshot, error) {
	switch {
	case len(args) > 0:
		return snapshot.Load(args[0])
	case runID != "":
		recorded, err := storage.New(cfg.DataDir).LoadFrames(runID)
		if err != nil {
			return nil, err
		}
		if len(recorded) == 0 {
			return nil, fmt.Errorf("recording %s has no frames", runID)
		}
		i := frameNo
		if i < 0 {
			i = len(recorded) - 1
		}
		if i >= len(recorded) {
			return nil, fmt.Errorf("frame %d out of range (recording has %d)", i, len(recorded))
		}
		return recorded[i], nil
	}
	model, err := walkers.New(cfg.FeedConfig())
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		model.Step()
	}
	return model.Snapshot(), nil
}

func renderFrame(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, cfg)
	spec, err := cfg.Spec()
	if err != nil {
		return err
	}
	snap, err := loadSnapshot(cfg, args, ticks)
	if err != nil {
		return err
	}

	w, h := spec.SurfaceSize()
	var (
		surf surface.Surface
		save func() error
	)
	switch strings.ToLower(filepath.Ext(renderOut)) {
	case ".svg":
		svg := surface.NewSVG(w, h)
		surf, save = svg, func() error { return svg.Save(renderOut) }
	case ".png", "":
		r, err := surface.NewRaster(w, h, 0)
		if err != nil {
			return err
		}
		surf, save = r, func() error { return r.SavePNG(renderOut) }
	default:
		return fmt.Errorf("unsupported output format %q", filepath.Ext(renderOut))
	}

	vis, err := viz.New(spec, surf, cfg.VizOptions(logger))
	if err != nil {
		return err
	}
	stats := vis.Render(snap)
	if err := save(); err != nil {
		return err
	}

	fmt.Printf("wrote %s (%dx%d, tick %d)\n", renderOut, w, h, snap.Tick)
	fmt.Printf("cells: %d  spheres: %d  labels: %d  border: %d  grid lines: %d\n",
		stats.Cells, stats.Spheres, stats.Labels, stats.Border, stats.GridLines)
	if n := stats.Skipped(); n > 0 {
		fmt.Printf("skipped: %d\n", n)
		for _, e := range stats.Errors {
			fmt.Printf("  %v\n", e)
		}
	}
	return nil
}

func pickCell(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	spec, err := cfg.Spec()
	if err != nil {
		return err
	}
	x, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid x: %w", err)
	}
	y, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid y: %w", err)
	}

	cell := spec.PixelToCell(x, y)
	r := spec.CellRect(cell)
	fmt.Printf("cell: %s\n", cell)
	fmt.Printf("rect: x=%.2f y=%.2f w=%.2f h=%.2f\n", r.X, r.Y, r.W, r.H)
	if !spec.InCanvas(x, y) {
		fmt.Println("note: pixel is outside the canvas, clamped to the nearest cell")
	}

	if len(args) == 3 {
		snap, err := snapshot.Load(args[2])
		if err != nil {
			return err
		}
		for _, hit := range snap.At(cell.Col, cell.Row) {
			fmt.Printf("  %s: %s\n", hit.Layer, hit.Datum.Color)
			for k, v := range hit.Datum.Payload {
				fmt.Printf("    %s=%v\n", k, v)
			}
		}
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if logFile == "" {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return err
		}
		logFile = filepath.Join(cfg.DataDir, "live.log")
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer f.Close()
	logger := newLogger(f, cfg)

	var feed tui.Feed
	if len(args) > 0 {
		snap, err := snapshot.Load(args[0])
		if err != nil {
			return err
		}
		feed = tui.Static{Snap: snap}
	} else {
		model, err := walkers.New(cfg.FeedConfig())
		if err != nil {
			return err
		}
		feed = model
	}

	m, err := tui.NewModel(feed, cfg.Grid.Cols, cfg.Grid.Rows, tui.Options{
		Width:    width,
		Height:   height,
		Interval: cfg.FrameInterval(),
		Theme:    palette.GetTheme(cfg.Theme),
		Viz:      cfg.VizOptions(logger),
		Handler:  cfg.HandlerOptions(logger),
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()
	logger.Info("live view started", "grid", fmt.Sprintf("%dx%d", cfg.Grid.Cols, cfg.Grid.Rows))
	return tui.Run(ctx, m)
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, cfg)
	if cfg.Level() > log.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	spec, err := cfg.Spec()
	if err != nil {
		return err
	}

	srv, err := server.New(spec, server.Options{
		Addr:    cfg.Server.Addr,
		Budget:  cfg.FrameInterval(),
		Viz:     cfg.VizOptions(logger),
		Handler: cfg.HandlerOptions(logger),
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()
	group, groupCtx := errgroup.WithContext(ctx)
	snaps := make(chan *snapshot.Snapshot)

	if len(args) > 0 {
		snap, err := snapshot.Load(args[0])
		if err != nil {
			return err
		}
		if _, err := srv.Update(snap); err != nil {
			return err
		}
	} else {
		model, err := walkers.New(cfg.FeedConfig())
		if err != nil {
			return err
		}
		group.Go(func() error {
			err := model.Run(groupCtx, snaps, cfg.FrameInterval())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	group.Go(func() error {
		return srv.Run(groupCtx, snaps)
	})

	fmt.Printf("serving on http://%s\n", displayAddr(cfg.Server.Addr))
	return group.Wait()
}

func displayAddr(a string) string {
	if strings.HasPrefix(a, ":") {
		return "localhost" + a
	}
	return a
}

// renderFeed steps the walker feed n times and renders every frame onto an
// off-screen raster, calling each with the frame.
func renderFeed(cfg *config.Config, logger *log.Logger, n int, timer *metrics.FrameTimer, each func(*snapshot.Snapshot) error) (grid.Spec, error) {
	spec, err := cfg.Spec()
	if err != nil {
		return spec, err
	}
	model, err := walkers.New(cfg.FeedConfig())
	if err != nil {
		return spec, err
	}
	w, h := spec.SurfaceSize()
	r, err := surface.NewRaster(w, h, 0)
	if err != nil {
		return spec, err
	}
	vis, err := viz.New(spec, r, cfg.VizOptions(logger))
	if err != nil {
		return spec, err
	}

	for i := 0; i < n; i++ {
		model.Step()
		snap := model.Snapshot()
		timer.Observe(vis.Render(snap))
		if each != nil {
			if err := each(snap); err != nil {
				return spec, err
			}
		}
	}
	return spec, nil
}

func record(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, cfg)
	spec, err := cfg.Spec()
	if err != nil {
		return err
	}

	st := storage.New(cfg.DataDir)
	if err := st.Init(); err != nil {
		return err
	}
	rec, err := st.Create(name, spec, cfg.Feed.Seed)
	if err != nil {
		return err
	}

	fmt.Printf("recording %d frames...\n", recordFrames)
	start := time.Now()
	timer := metrics.NewFrameTimer(metrics.DefaultHistory, cfg.FrameInterval())
	if _, err := renderFeed(cfg, logger, recordFrames, timer, rec.Append); err != nil {
		return err
	}
	if err := rec.Close(timer.Values()); err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", time.Since(start))
	fmt.Printf("run id: %s\n", rec.ID())
	printSummary(timer.Summary())
	return nil
}

func listRecordings(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	runs, err := storage.New(cfg.DataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no recordings found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIME\tFRAMES\tGRID\tCANVAS\tMEAN MS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%dx%d\t%.0fx%.0f\t%.2f\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Frames,
			run.Spec.Cols, run.Spec.Rows,
			run.Spec.PixelWidth, run.Spec.PixelHeight,
			run.Metrics["frame_ms"],
		)
	}
	return w.Flush()
}

func exportRecording(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path := exportOut
	if path == "" {
		path = args[0] + ".json"
	}
	if err := storage.New(cfg.DataDir).ExportJSON(args[0], path); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", path)
	return nil
}

func bench(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, cfg)
	timer := metrics.NewFrameTimer(benchFrames, cfg.FrameInterval())

	start := time.Now()
	spec, err := renderFeed(cfg, logger, benchFrames, timer, nil)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Printf("grid: %dx%d on %.0fx%.0f\n", spec.Cols, spec.Rows, spec.PixelWidth, spec.PixelHeight)
	fmt.Printf("frames: %d in %v (%.1f fps)\n", benchFrames, elapsed, float64(benchFrames)/elapsed.Seconds())
	printSummary(timer.Summary())

	if hist := timer.History(); len(hist) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(hist,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("frame time (ms)"),
		))
	}
	return nil
}

func printSummary(s metrics.Summary) {
	fmt.Println("\nmetrics:")
	fmt.Printf("  mean: %.3fms  p95: %.3fms  max: %.3fms\n", s.MeanMs, s.P95Ms, s.MaxMs)
	fmt.Printf("  overruns: %d  dropped: %d  skipped data: %d  clean: %.0f%%\n",
		s.Overruns, s.Dropped, s.Skipped, s.Clean*100)
}
