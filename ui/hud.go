package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fishflock/telemetry"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title   string
	Agents  int
	Tick    uint64
	Resets  uint64
	Backend string
	State   string
	FPS     int32
	Paused  bool
}

// HUD renders the main heads-up display.
type HUD struct{}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{}
}

// Draw renders the HUD.
func (h *HUD) Draw(data HUDData) {
	rl.DrawText(data.Title, 10, 10, 20, rl.White)

	rl.DrawText(
		fmt.Sprintf("Agents: %d | Backend: %s | State: %s", data.Agents, data.Backend, data.State),
		10, 35, 16, rl.LightGray,
	)
	rl.DrawText(
		fmt.Sprintf("Tick: %d | Resets: %d | FPS: %d", data.Tick, data.Resets, data.FPS),
		10, 55, 16, rl.LightGray,
	)

	if data.Paused {
		rl.DrawText("PAUSED", 10, 75, 16, rl.Yellow)
	}
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// PerfPanel renders tick phase timings.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y, width int32) *PerfPanel {
	return &PerfPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the performance panel.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	r := p.renderer
	pad := r.Theme.Padding
	height := pad*2 + r.Theme.LineHeight*5 + int32(len(telemetry.Phases))*(r.Theme.LineHeight+2)
	r.DrawPanel(p.x, p.y, p.width, height)

	x, y := p.x+pad, p.y+pad
	y = r.DrawSectionHeader(x, y, "Performance")
	y = r.DrawLabelValue(x, y, "Avg tick", fmt.Sprintf("%dus", stats.AvgTickDuration.Microseconds()))
	y = r.DrawLabelValue(x, y, "Max tick", fmt.Sprintf("%dus", stats.MaxTickDuration.Microseconds()))
	y = r.DrawLabelValue(x, y, "Ticks/s", fmt.Sprintf("%.0f", stats.TicksPerSecond))
	y = r.DrawLabelValue(x, y, "Readback", fmt.Sprintf("%d x %dus", stats.Readbacks, stats.AvgReadback.Microseconds()))
	for _, pt := range stats.Phases {
		y = r.DrawBar(x, y, string(pt.Phase), pt.Pct, p.width-pad*2)
	}
}
