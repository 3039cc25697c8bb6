package ui

import (
	"fmt"
	"math"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fishflock/flock"
	"github.com/pthm-cable/fishflock/gpu"
)

// Action is a button press on the swarm panel.
type Action int

const (
	ActionNone Action = iota
	ActionReset
	ActionPause
)

// agentStep is the granularity of the agent count slider.
const agentStep = 256

// SwarmPanel edits the swarm settings with raygui sliders. Agent count and
// speed range reseed the swarm, so they are applied only once the mouse is
// released.
type SwarmPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32

	pending    flock.Settings
	hasPending bool
}

// NewSwarmPanel creates a new swarm panel.
func NewSwarmPanel(x, y, width int32) *SwarmPanel {
	return &SwarmPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// SetPosition updates the panel position.
func (c *SwarmPanel) SetPosition(x, y int32) {
	c.x = x
	c.y = y
}

// Draw renders the panel for s and returns the edited settings plus any
// button pressed.
func (c *SwarmPanel) Draw(s flock.Settings, paused bool) (flock.Settings, Action) {
	r := c.renderer
	pad := r.Theme.Padding
	const rowH = 34

	r.DrawPanel(c.x, c.y, c.width, pad*2+rowH*13+40)

	if !c.hasPending {
		c.pending = s
	}
	next := s
	x := float32(c.x + pad)
	y := float32(c.y + pad)
	w := float32(c.width - pad*2 - 60)

	slider := func(label string, v, min, max float32, format string) float32 {
		rl.DrawText(label, int32(x), int32(y), r.Theme.FontSize, r.Theme.LabelColor)
		out := gui.SliderBar(rl.Rectangle{X: x, Y: y + 14, Width: w, Height: 14}, "", "", v, min, max)
		rl.DrawText(fmt.Sprintf(format, out), int32(x+w+8), int32(y+14), r.Theme.FontSize, r.Theme.ValueColor)
		y += rowH
		return out
	}

	rl.DrawText("Swarm", int32(x), int32(y), r.Theme.HeaderFontSize, r.Theme.SectionHeader)
	y += 20

	// Reseeding fields edit the pending copy.
	agents := slider("Agents", float32(c.pending.Agents), flock.MinAgents, flock.MaxAgents, "%.0f")
	c.pending.Agents = SnapAgents(agents)
	c.pending.SpeedRange[0] = slider("Min speed", c.pending.SpeedRange[0], 0, 10, "%.2f")
	c.pending.SpeedRange[1] = slider("Max speed", c.pending.SpeedRange[1], 0, 10, "%.2f")
	if c.pending.SpeedRange[1] < c.pending.SpeedRange[0] {
		c.pending.SpeedRange[1] = c.pending.SpeedRange[0]
	}
	c.hasPending = c.pending.Agents != s.Agents || c.pending.SpeedRange != s.SpeedRange
	if c.hasPending && !rl.IsMouseButtonDown(rl.MouseButtonLeft) {
		next.Agents = c.pending.Agents
		next.SpeedRange = c.pending.SpeedRange
		c.hasPending = false
	}

	next.ForceWeight = gpu.Vec3{
		X: slider("Separation weight", s.ForceWeight.X, 0, 5, "%.2f"),
		Y: slider("Alignment weight", s.ForceWeight.Y, 0, 5, "%.2f"),
		Z: slider("Cohesion weight", s.ForceWeight.Z, 0, 5, "%.2f"),
	}
	next.PerceptionRadius = gpu.Vec3{
		X: slider("Separation radius", s.PerceptionRadius.X, 0, 5, "%.2f"),
		Y: slider("Alignment radius", s.PerceptionRadius.Y, 0, 5, "%.2f"),
		Z: slider("Cohesion radius", s.PerceptionRadius.Z, 0, 5, "%.2f"),
	}
	next.MaxForce = slider("Max force", s.MaxForce, 0, 5, "%.2f")
	next.TargetForce = slider("Target force", s.TargetForce, 0, 5, "%.2f")

	action := ActionNone
	if gui.Button(rl.Rectangle{X: x, Y: y + 6, Width: 100, Height: 26}, "Reset") {
		action = ActionReset
	}
	if gui.Button(rl.Rectangle{X: x + 110, Y: y + 6, Width: 100, Height: 26}, toggleText(paused, "Resume", "Pause")) {
		action = ActionPause
	}
	return next, action
}

// SnapAgents rounds a slider value to a supported agent count.
func SnapAgents(v float32) int {
	n := int(math.Round(float64(v)/agentStep)) * agentStep
	if n < flock.MinAgents {
		n = flock.MinAgents
	}
	if n > flock.MaxAgents {
		n = flock.MaxAgents
	}
	return n
}

// OverlayPanel lists the overlay toggles.
type OverlayPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
}

// NewOverlayPanel creates a new overlay panel.
func NewOverlayPanel(x, y, width int32) *OverlayPanel {
	return &OverlayPanel{renderer: NewRenderer(), x: x, y: y, width: width}
}

// Draw renders the overlay toggles and returns the Y below the panel.
func (c *OverlayPanel) Draw(overlays *OverlayRegistry) int32 {
	r := c.renderer
	pad := r.Theme.Padding
	lineHeight := r.Theme.LineHeight

	categories := []string{"scene", "panels"}
	items := 0
	for _, cat := range categories {
		items += len(overlays.ByCategory(cat)) + 1
	}
	r.DrawPanel(c.x, c.y, c.width, int32(items)*lineHeight+pad*2)

	y := c.y + pad
	for _, cat := range categories {
		y = r.DrawSectionHeader(c.x+pad, y, cat)
		for _, desc := range overlays.ByCategory(cat) {
			c.drawToggle(c.x+pad, y, desc, overlays.IsEnabled(desc.ID), c.width-pad*2)
			y += lineHeight
		}
	}
	return y + pad
}

// drawToggle draws a single overlay toggle line.
func (c *OverlayPanel) drawToggle(x, y int32, desc OverlayDescriptor, enabled bool, width int32) {
	r := c.renderer

	statusColor := rl.Color{R: 80, G: 80, B: 80, A: 255}
	nameColor := r.Theme.LabelColor
	if enabled {
		statusColor = rl.Color{R: 100, G: 200, B: 100, A: 255}
		nameColor = rl.White
	}
	rl.DrawRectangle(x, y+2, 8, 8, statusColor)
	rl.DrawText(desc.Name, x+14, y, r.Theme.FontSize, nameColor)

	keyText := fmt.Sprintf("[%s]", desc.KeyLabel)
	keyWidth := rl.MeasureText(keyText, r.Theme.FontSize)
	rl.DrawText(keyText, x+width-keyWidth, y, r.Theme.FontSize, rl.Gray)
}

func toggleText(on bool, onText, offText string) string {
	if on {
		return onText
	}
	return offText
}
