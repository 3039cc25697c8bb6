package ui

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// OverlayID uniquely identifies an overlay.
type OverlayID string

// Standard overlay IDs.
const (
	OverlayTails    OverlayID = "tails"
	OverlayTarget   OverlayID = "target"
	OverlayBounds   OverlayID = "bounds"
	OverlayPerf     OverlayID = "perf"
	OverlayControls OverlayID = "controls"
)

// OverlayDescriptor defines an overlay that can be toggled.
type OverlayDescriptor struct {
	ID       OverlayID // Unique identifier
	Name     string    // Display name
	Key      int32     // Keyboard key to toggle (0 = no key)
	KeyLabel string    // Key label for display
	Category string    // Grouping ("scene", "panels")
	Default  bool      // Enabled at startup
}

// OverlayRegistry manages overlay state and metadata.
type OverlayRegistry struct {
	descriptors []OverlayDescriptor
	byID        map[OverlayID]OverlayDescriptor
	enabled     map[OverlayID]bool
}

// NewOverlayRegistry creates a registry with default overlays.
func NewOverlayRegistry() *OverlayRegistry {
	reg := &OverlayRegistry{
		byID:    make(map[OverlayID]OverlayDescriptor),
		enabled: make(map[OverlayID]bool),
	}
	reg.Register(OverlayDescriptor{ID: OverlayTails, Name: "Tails", Key: rl.KeyL, KeyLabel: "L", Category: "scene", Default: true})
	reg.Register(OverlayDescriptor{ID: OverlayTarget, Name: "Target", Key: rl.KeyT, KeyLabel: "T", Category: "scene", Default: true})
	reg.Register(OverlayDescriptor{ID: OverlayBounds, Name: "Seed Volume", Key: rl.KeyB, KeyLabel: "B", Category: "scene"})
	reg.Register(OverlayDescriptor{ID: OverlayPerf, Name: "Performance", Key: rl.KeyF, KeyLabel: "F", Category: "panels"})
	reg.Register(OverlayDescriptor{ID: OverlayControls, Name: "Controls", Key: rl.KeyC, KeyLabel: "C", Category: "panels", Default: true})
	return reg
}

// Register adds an overlay to the registry.
func (r *OverlayRegistry) Register(desc OverlayDescriptor) {
	r.descriptors = append(r.descriptors, desc)
	r.byID[desc.ID] = desc
	r.enabled[desc.ID] = desc.Default
}

// Toggle switches an overlay on/off and returns the new state.
func (r *OverlayRegistry) Toggle(id OverlayID) bool {
	if _, ok := r.byID[id]; !ok {
		return false
	}
	r.enabled[id] = !r.enabled[id]
	return r.enabled[id]
}

// IsEnabled returns whether an overlay is active.
func (r *OverlayRegistry) IsEnabled(id OverlayID) bool {
	return r.enabled[id]
}

// ByCategory returns overlays filtered by category.
func (r *OverlayRegistry) ByCategory(category string) []OverlayDescriptor {
	var result []OverlayDescriptor
	for _, desc := range r.descriptors {
		if desc.Category == category {
			result = append(result, desc)
		}
	}
	return result
}

// HandleKeys toggles every overlay whose key was pressed this frame.
func (r *OverlayRegistry) HandleKeys() {
	for _, desc := range r.descriptors {
		if desc.Key != 0 && rl.IsKeyPressed(desc.Key) {
			r.Toggle(desc.ID)
		}
	}
}

// Legend returns the key bindings as a single line.
func (r *OverlayRegistry) Legend() string {
	s := ""
	for i, desc := range r.descriptors {
		if i > 0 {
			s += "  "
		}
		s += "[" + desc.KeyLabel + "] " + desc.Name
	}
	return s
}
