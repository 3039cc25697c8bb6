// Package game wires the swarm, its compute device, the scene around it and
// telemetry into a runnable simulation.
package game

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/fishflock/camera"
	"github.com/pthm-cable/fishflock/components"
	"github.com/pthm-cable/fishflock/config"
	"github.com/pthm-cable/fishflock/flock"
	"github.com/pthm-cable/fishflock/gpu"
	"github.com/pthm-cable/fishflock/renderer"
	"github.com/pthm-cable/fishflock/systems"
	"github.com/pthm-cable/fishflock/telemetry"
	"github.com/pthm-cable/fishflock/ui"
)

// Options configures a Game.
type Options struct {
	Seed           int64
	LogStats       bool
	OutputDir      string
	Headless       bool
	StepsPerUpdate int
	WatchPath      string             // config file to hot-reload, empty = off
	Metrics        *telemetry.Metrics // nil = no Prometheus export
}

// Game holds the complete simulation state.
type Game struct {
	cfg *config.Config
	rng *rand.Rand

	// Scene
	world        *ecs.World
	targetMapper *ecs.Map4[components.Position, components.Velocity, components.Orbit, components.Target]
	orbitMapper  *ecs.Map1[components.Orbit]
	orbitSystem  *systems.OrbitSystem
	target       ecs.Entity
	hasTarget    bool

	// Swarm
	device gpu.Device
	swarm  *flock.Swarm

	// Rendering (nil when headless)
	fish         *renderer.FishRenderer
	water        *renderer.WaterBackground
	camera       *camera.Camera
	hud          *ui.HUD
	perfPanel    *ui.PerfPanel
	swarmPanel   *ui.SwarmPanel
	overlayPanel *ui.OverlayPanel
	overlays     *ui.OverlayRegistry

	// Telemetry
	perfCollector *telemetry.PerfCollector
	collector     *telemetry.Collector
	outputManager *telemetry.OutputManager
	metrics       *telemetry.Metrics
	logStats      bool
	lastPerf      telemetry.PerfStats

	watcher *config.Watcher

	// State
	tick     uint64
	simTime  float32
	headless bool
	steps    stepControl
	screenW  int32
	screenH  int32
}

// NewGameWithOptions creates a game from the global config. In graphical
// mode the raylib window must already be open.
func NewGameWithOptions(opts Options) (*Game, error) {
	cfg := config.Cfg()

	dev, err := newDevice(cfg.Device, opts.Headless)
	if err != nil {
		return nil, err
	}

	g := &Game{
		cfg:           cfg,
		rng:           rand.New(rand.NewSource(opts.Seed)),
		world:         ecs.NewWorld(),
		device:        dev,
		perfCollector: telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		collector:     telemetry.NewCollector(cfg.Telemetry.StatsWindow, cfg.Derived.DT32),
		metrics:       opts.Metrics,
		logStats:      opts.LogStats,
		headless:      opts.Headless,
		steps:         newStepControl(opts.StepsPerUpdate),
		screenW:       int32(cfg.Screen.Width),
		screenH:       int32(cfg.Screen.Height),
	}
	g.targetMapper = ecs.NewMap4[components.Position, components.Velocity, components.Orbit, components.Target](g.world)
	g.orbitMapper = ecs.NewMap1[components.Orbit](g.world)
	g.orbitSystem = systems.NewOrbitSystem(g.world)

	var sink flock.ParticleSink
	if !opts.Headless {
		g.initRendering()
		sink = g.fish
	}

	g.swarm = flock.NewSwarm(dev, sink, cfg.Derived.SwarmSettings, g.rng)
	g.swarm.OnPhase(g.perfCollector.StartPhase)
	g.swarm.OnReset(g.onReset)
	g.spawnTarget(cfg.Target)

	if err := g.swarm.Init(); err != nil {
		g.Unload()
		return nil, err
	}

	if opts.OutputDir != "" {
		om, err := telemetry.NewOutputManager(opts.OutputDir)
		if err != nil {
			g.Unload()
			return nil, err
		}
		g.outputManager = om
		if err := om.WriteConfig(cfg); err != nil {
			slog.Error("failed to write config snapshot", "error", err)
		}
	}

	if opts.WatchPath != "" {
		w, err := config.Watch(opts.WatchPath)
		if err != nil {
			g.Unload()
			return nil, fmt.Errorf("watching config: %w", err)
		}
		g.watcher = w
	}

	return g, nil
}

// initRendering creates the raylib-backed renderers and panels.
func (g *Game) initRendering() {
	cfg := g.cfg
	g.fish = renderer.NewFishRenderer(cfg.Derived.SwarmSettings.SpeedRange)
	g.water = renderer.NewWaterBackground(g.screenW, g.screenH)
	g.camera = camera.New(
		float32(cfg.Camera.Distance),
		float32(cfg.Camera.Height),
		float32(cfg.Camera.Fovy),
		float32(cfg.Camera.OrbitSpeed),
	)
	g.hud = ui.NewHUD()
	g.overlays = ui.NewOverlayRegistry()
	g.swarmPanel = ui.NewSwarmPanel(g.screenW-290, 10, 280)
	g.overlayPanel = ui.NewOverlayPanel(10, 100, 180)
	g.perfPanel = ui.NewPerfPanel(10, 220, 240)
}

// spawnTarget creates the orbiting target entity and points the swarm at it.
// A disabled target leaves the swarm attracted to the origin.
func (g *Game) spawnTarget(tc config.TargetConfig) {
	if !tc.Enabled {
		g.swarm.SetTarget(nil)
		return
	}
	orb := tc.Orbit()
	pos := systems.OrbitPosition(&orb)
	g.target = g.targetMapper.NewEntity(&pos, &components.Velocity{}, &orb, &components.Target{Name: "bait"})
	g.hasTarget = true
	g.swarm.SetTarget(flock.NewEntityTarget(g.world, g.target))
}

// onReset runs after every buffer (re)allocation.
func (g *Game) onReset(n int) {
	g.collector.RecordReset()
	g.perfCollector.RecordReset()
	g.metrics.ObserveReset(n)
	if g.fish != nil {
		g.fish.SetSpeedRange(g.swarm.Settings().SpeedRange)
	}
	slog.Info("swarm reset", "agents", n, "tick", g.tick)
}

// Unload releases the swarm, the device and every open resource.
func (g *Game) Unload() {
	if g.swarm != nil {
		g.swarm.Shutdown()
	}
	if g.device != nil {
		if err := g.device.Close(); err != nil {
			slog.Error("failed to close device", "error", err)
		}
	}
	if g.water != nil {
		g.water.Unload()
	}
	if g.watcher != nil {
		if err := g.watcher.Close(); err != nil {
			slog.Error("failed to close config watcher", "error", err)
		}
	}
	// Rewrite the snapshot so live edits are kept.
	if err := g.outputManager.WriteConfig(g.cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
	}
	if err := g.outputManager.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
	}
}

// Tick returns the current simulation tick.
func (g *Game) Tick() uint64 {
	return g.tick
}

// Swarm returns the swarm driver.
func (g *Game) Swarm() *flock.Swarm {
	return g.swarm
}
