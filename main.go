package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fishflock/config"
	"github.com/pthm-cable/fishflock/game"
	"github.com/pthm-cable/fishflock/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	backend := flag.String("backend", "", "Compute backend: cpu or gl (empty = use config)")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Uint64("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	stepsPerUpdate := flag.Int("steps-per-update", 1, "Simulation ticks per update call (higher = faster headless runs)")
	watch := flag.Bool("watch", false, "Reload -config when it changes")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	opts := options{
		configPath:     *configPath,
		headless:       *headless,
		backend:        *backend,
		logStats:       *logStats,
		outputDir:      *outputDir,
		seed:           *seed,
		maxTicks:       *maxTicks,
		stepsPerUpdate: *stepsPerUpdate,
		watch:          *watch,
		metricsAddr:    *metricsAddr,
	}
	if err := run(opts); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

type options struct {
	configPath     string
	headless       bool
	backend        string
	logStats       bool
	outputDir      string
	seed           int64
	maxTicks       uint64
	stepsPerUpdate int
	watch          bool
	metricsAddr    string
}

func run(opts options) error {
	// Initialize config before anything else
	if err := config.Init(opts.configPath); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := config.Cfg()
	if opts.backend != "" {
		cfg.Device.Backend = opts.backend
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if opts.watch && opts.configPath == "" {
		return errors.New("-watch needs -config")
	}

	rngSeed := opts.seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	var metrics *telemetry.Metrics
	if opts.metricsAddr != "" {
		metrics = telemetry.NewMetrics()
		stop := serveMetrics(opts.metricsAddr, metrics)
		defer stop()
	}

	gameOpts := game.Options{
		Seed:           rngSeed,
		LogStats:       opts.logStats,
		OutputDir:      opts.outputDir,
		Headless:       opts.headless,
		StepsPerUpdate: opts.stepsPerUpdate,
		Metrics:        metrics,
	}
	if opts.watch {
		gameOpts.WatchPath = opts.configPath
	}

	if opts.headless {
		return runHeadless(gameOpts, rngSeed, opts.maxTicks)
	}
	return runWindowed(gameOpts, cfg, opts.maxTicks)
}

// runHeadless steps the simulation until max ticks or an interrupt.
func runHeadless(opts game.Options, seed int64, maxTicks uint64) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, err := game.NewGameWithOptions(opts)
	if err != nil {
		return err
	}
	defer g.Unload()

	slog.Info("starting headless simulation",
		"seed", seed,
		"agents", g.Swarm().Buffers().Count(),
		"max_ticks", maxTicks,
		"steps_per_update", opts.StepsPerUpdate,
	)

	for ctx.Err() == nil {
		if err := g.UpdateHeadless(); err != nil {
			return err
		}
		if maxTicks > 0 && g.Tick() >= maxTicks {
			slog.Info("max ticks reached", "tick", g.Tick())
			return nil
		}
	}
	slog.Info("interrupted", "tick", g.Tick())
	return nil
}

// runWindowed opens the raylib window and runs the interactive loop.
func runWindowed(opts game.Options, cfg *config.Config, maxTicks uint64) error {
	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagMsaa4xHint)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Fish Flock")
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	g, err := game.NewGameWithOptions(opts)
	if err != nil {
		return err
	}
	defer g.Unload()

	for !rl.WindowShouldClose() {
		if err := g.Update(); err != nil {
			return err
		}
		g.Draw()

		if maxTicks > 0 && g.Tick() >= maxTicks {
			break
		}
	}
	return nil
}

// serveMetrics exposes the registry on addr and returns a shutdown func.
func serveMetrics(addr string, m *telemetry.Metrics) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		slog.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("metrics server shutdown", "error", err)
		}
	}
}
