package game

import rl "github.com/gen2brain/raylib-go/raylib"

// handleInput processes keyboard and mouse input.
func (g *Game) handleInput() {
	g.handleResize()

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}
	if rl.IsKeyPressed(rl.KeySpace) {
		g.steps.togglePause()
	}
	if rl.IsKeyPressed(rl.KeyBackspace) {
		g.swarm.RequestReset()
	}

	// < > (comma and period): speed while running, single step while paused
	if rl.IsKeyPressed(rl.KeyComma) {
		g.steps.slower()
	}
	if rl.IsKeyPressed(rl.KeyPeriod) {
		g.steps.faster()
	}

	g.overlays.HandleKeys()
	g.handleCameraInput()
}

// handleCameraInput orbits with right-drag and zooms with the wheel.
func (g *Game) handleCameraInput() {
	if rl.IsMouseButtonDown(rl.MouseButtonRight) {
		g.camera.Orbit(-rl.GetMouseDelta().X * 0.005)
	}
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		g.camera.ZoomBy(1 - wheel*0.1)
	}
	if rl.IsKeyPressed(rl.KeyR) {
		g.camera.Reset()
	}
}

// handleResize checks for window resize and propagates new dimensions.
func (g *Game) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w, h := int32(rl.GetScreenWidth()), int32(rl.GetScreenHeight())
	if w == g.screenW && h == g.screenH {
		return
	}
	g.screenW, g.screenH = w, h
	g.water.Resize(w, h)
	g.swarmPanel.SetPosition(w-290, 10)
}
