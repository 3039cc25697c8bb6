package game

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fishflock/config"
	"github.com/pthm-cable/fishflock/flock"
	"github.com/pthm-cable/fishflock/renderer"
	"github.com/pthm-cable/fishflock/ui"
)

const tailLength = 0.35

// Draw renders the frame.
func (g *Game) Draw() {
	g.perfCollector.RecordFrame()

	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)

	g.water.Draw(g.simTime, g.camera.Yaw)

	rl.BeginMode3D(g.camera3D())
	if g.overlays.IsEnabled(ui.OverlayBounds) {
		renderer.DrawBounds(flock.SeedRadius)
	}
	g.fish.BodyLength = 0
	if g.overlays.IsEnabled(ui.OverlayTails) {
		g.fish.BodyLength = tailLength
	}
	g.fish.Draw()
	if g.hasTarget && g.overlays.IsEnabled(ui.OverlayTarget) {
		renderer.DrawTarget(g.swarm.Target(), 0.25)
	}
	rl.EndMode3D()

	g.drawUI()

	rl.EndDrawing()
}

// camera3D converts the orbit camera to a raylib camera.
func (g *Game) camera3D() rl.Camera3D {
	x, y, z := g.camera.Eye()
	return rl.Camera3D{
		Position:   rl.Vector3{X: x, Y: y, Z: z},
		Target:     rl.Vector3{X: g.camera.TargetX, Y: g.camera.TargetY, Z: g.camera.TargetZ},
		Up:         rl.Vector3{Y: 1},
		Fovy:       g.camera.Fovy,
		Projection: rl.CameraPerspective,
	}
}

// drawUI draws the HUD and the enabled panels.
func (g *Game) drawUI() {
	g.hud.Draw(ui.HUDData{
		Title:   "Fish Flock",
		Agents:  g.swarm.Buffers().Count(),
		Tick:    g.tick,
		Resets:  g.swarm.Resets(),
		Backend: g.cfg.Device.Backend,
		State:   g.swarm.State().String(),
		FPS:     rl.GetFPS(),
		Paused:  g.steps.paused,
	})
	g.hud.DrawControls(g.screenH, fmt.Sprintf(
		"[Space] Pause  [Backspace] Reseed  [</>] %s  [RMB] Orbit  [Wheel] Zoom  [R] Camera  %s",
		g.stepsLabel(), g.overlays.Legend(),
	))

	g.overlayPanel.Draw(g.overlays)
	if g.overlays.IsEnabled(ui.OverlayPerf) {
		g.perfPanel.Draw(g.lastPerf)
	}

	if !g.overlays.IsEnabled(ui.OverlayControls) {
		return
	}
	current := g.swarm.Settings()
	next, action := g.swarmPanel.Draw(current, g.steps.paused)
	if next != current {
		g.swarm.SetSettings(next)
		g.syncSwarmConfig(next)
	}
	switch action {
	case ui.ActionReset:
		g.swarm.RequestReset()
	case ui.ActionPause:
		g.steps.togglePause()
	}
}

func (g *Game) stepsLabel() string {
	if g.steps.paused {
		return "Step"
	}
	return fmt.Sprintf("Steps: %d", g.steps.perUpdate)
}

// syncSwarmConfig mirrors panel edits into the config so the saved snapshot
// matches what is running.
func (g *Game) syncSwarmConfig(s flock.Settings) {
	cfg := *g.cfg
	cfg.Swarm.FromSettings(s)
	cfg.Derived.SwarmSettings = s
	cfg.Derived.SeedSpeed = flock.SeedSpeed(s.SpeedRange)
	config.Set(&cfg)
	g.cfg = &cfg
}
