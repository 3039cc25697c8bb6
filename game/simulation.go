package game

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/pthm-cable/fishflock/config"
	"github.com/pthm-cable/fishflock/telemetry"
)

// Update handles input and runs the simulation steps for one frame.
func (g *Game) Update() error {
	g.handleInput()
	g.applyConfigUpdates()

	dt := float32(1) / float32(max(g.cfg.Screen.TargetFPS, 1))
	g.camera.Update(dt)
	g.simTime += dt

	for i, n := 0, g.steps.take(); i < n; i++ {
		if err := g.step(); err != nil {
			return err
		}
	}
	return nil
}

// UpdateHeadless runs the simulation steps without input or rendering.
func (g *Game) UpdateHeadless() error {
	g.applyConfigUpdates()
	for i := 0; i < g.steps.perUpdate; i++ {
		if err := g.step(); err != nil {
			return err
		}
	}
	return nil
}

// step runs a single fixed tick: scene systems, then the swarm.
func (g *Game) step() error {
	dt := g.cfg.Derived.DT32
	start := time.Now()
	g.perfCollector.StartTick()

	g.perfCollector.StartPhase(telemetry.PhaseSystems)
	g.orbitSystem.Update(dt)

	// The swarm reports its own reset/dispatch/publish phases.
	if err := g.swarm.Tick(dt); err != nil {
		return fmt.Errorf("tick %d: %w", g.tick, err)
	}
	g.collector.RecordDispatch()
	g.tick++

	g.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	g.flushTelemetry()

	g.perfCollector.EndTick()
	g.metrics.ObserveTick(time.Since(start))
	return nil
}

// applyConfigUpdates applies the latest hot-reloaded config, if any.
func (g *Game) applyConfigUpdates() {
	if g.watcher == nil {
		return
	}
	select {
	case cfg := <-g.watcher.Updates():
		g.applyConfig(cfg)
	default:
	}
}

// applyConfig switches to cfg. Swarm settings and the target orbit apply
// live. Screen, physics, device and telemetry sections need a restart.
func (g *Game) applyConfig(cfg *config.Config) {
	if kept := cfg.KeepRestartSections(g.cfg); len(kept) > 0 {
		slog.Warn("config changes need a restart", "sections", kept)
	}
	g.swarm.SetSettings(cfg.Derived.SwarmSettings)

	if g.hasTarget && cfg.Target.Enabled {
		orb := g.orbitMapper.Get(g.target)
		next := cfg.Target.Orbit()
		next.Phase, next.BobPhase = orb.Phase, orb.BobPhase
		*orb = next
	} else if g.hasTarget != cfg.Target.Enabled {
		slog.Warn("enabling or disabling the target needs a restart")
	}

	config.Set(cfg)
	g.cfg = cfg
	slog.Info("applied config update", "agents", cfg.Swarm.Agents)
}
