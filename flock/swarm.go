package flock

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/pthm-cable/fishflock/gpu"
)

// State is the swarm lifecycle state.
type State uint8

const (
	Uninitialized State = iota
	Ready
	Resetting
	Released
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	case Resetting:
		return "resetting"
	case Released:
		return "released"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Phase hooks let callers time the parts of a tick.
type Phase string

const (
	PhaseReset    Phase = "reset"
	PhaseDispatch Phase = "dispatch"
	PhasePublish  Phase = "publish"
)

// Swarm is the per-tick driver: reset if needed, dispatch, publish.
// All methods must be called from a single goroutine.
type Swarm struct {
	dev      gpu.Device
	buffers  *Buffers
	stepper  *Stepper
	bridge   *Bridge
	target   TargetSource
	settings Settings
	state    State

	ticks   uint64
	resets  uint64
	onPhase func(Phase)
	onReset func(n int)
}

// NewSwarm creates an uninitialized swarm. sink may be nil.
func NewSwarm(dev gpu.Device, sink ParticleSink, s Settings, rng *rand.Rand) *Swarm {
	return &Swarm{
		dev:      dev,
		buffers:  NewBuffers(dev, rng),
		stepper:  NewStepper(dev),
		bridge:   NewBridge(sink),
		settings: s,
	}
}

// OnPhase registers a callback invoked when each tick phase starts.
func (w *Swarm) OnPhase(fn func(Phase)) { w.onPhase = fn }

// OnReset registers a callback invoked after every successful (re)allocation.
func (w *Swarm) OnReset(fn func(n int)) { w.onReset = fn }

func (w *Swarm) phase(p Phase) {
	if w.onPhase != nil {
		w.onPhase(p)
	}
}

// Init allocates and seeds the buffers and reinitializes the renderer.
// An error here is a configuration or resource error and should abort startup.
func (w *Swarm) Init() error {
	switch w.state {
	case Released:
		return ErrReleased
	case Ready:
		return nil
	}
	if err := w.reset(); err != nil {
		return fmt.Errorf("initializing swarm: %w", err)
	}
	slog.Info("swarm initialized", "agents", w.buffers.Count())
	return nil
}

// reset rebuilds the buffers from the current settings.
func (w *Swarm) reset() error {
	if w.state == Ready {
		w.state = Resetting
	}
	if err := w.buffers.Reset(w.settings.Agents, w.settings.SpeedRange); err != nil {
		return err
	}
	w.bridge.Reinit(w.buffers.Count())
	w.state = Ready
	w.resets++
	if w.onReset != nil {
		w.onReset(w.buffers.Count())
	}
	return nil
}

// Tick advances the swarm by dt seconds: reset if requested, dispatch the
// kernel, publish the smoothed buffers. The dispatch is not waited on.
func (w *Swarm) Tick(dt float32) error {
	if w.state == Released {
		return ErrReleased
	}

	w.phase(PhaseReset)
	if w.buffers.NeedsReset() {
		if err := w.reset(); err != nil {
			return fmt.Errorf("resetting swarm: %w", err)
		}
	}

	w.phase(PhaseDispatch)
	if err := w.stepper.Step(w.buffers, w.settings, resolveTarget(w.target), dt); err != nil {
		return fmt.Errorf("stepping swarm: %w", err)
	}

	w.phase(PhasePublish)
	w.bridge.Publish(w.buffers.SmoothedPosition(), w.buffers.SmoothedVelocity())

	w.ticks++
	return nil
}

// Shutdown releases the buffers and waits for in-flight device work. The
// swarm cannot be used afterwards. Calling it again is a no-op.
func (w *Swarm) Shutdown() {
	if w.state == Released {
		return
	}
	w.buffers.Release()
	w.dev.Wait()
	w.state = Released
	slog.Info("swarm shut down", "ticks", w.ticks, "resets", w.resets)
}

// SetSettings replaces the simulation parameters. Changes to the agent count
// or speed range request a reset; other fields apply on the next tick.
func (w *Swarm) SetSettings(s Settings) {
	if w.settings.needsReseed(s) {
		w.buffers.MarkReset()
	}
	w.settings = s
}

// RequestReset asks for a full release and reseed on the next tick.
func (w *Swarm) RequestReset() { w.buffers.MarkReset() }

// SetTarget sets the attraction target. nil targets the origin.
func (w *Swarm) SetTarget(src TargetSource) { w.target = src }

// Target returns the position the next dispatch will attract towards.
func (w *Swarm) Target() gpu.Vec3 { return resolveTarget(w.target) }

// Settings returns the current parameters.
func (w *Swarm) Settings() Settings { return w.settings }

// State returns the lifecycle state.
func (w *Swarm) State() State { return w.state }

// Buffers exposes the buffer manager.
func (w *Swarm) Buffers() *Buffers { return w.buffers }

// Stepper exposes the stepper.
func (w *Swarm) Stepper() *Stepper { return w.stepper }

// Ticks returns the number of completed ticks.
func (w *Swarm) Ticks() uint64 { return w.ticks }

// Resets returns the number of buffer (re)allocations.
func (w *Swarm) Resets() uint64 { return w.resets }

// Snapshot reads the smoothed buffers back into pos and vel, growing them as
// needed. It blocks until earlier dispatches have finished.
func (w *Swarm) Snapshot(pos, vel []gpu.Vec3) ([]gpu.Vec3, []gpu.Vec3, error) {
	if !w.buffers.Allocated() {
		return pos[:0], vel[:0], nil
	}
	n := w.buffers.Count()
	if cap(pos) < n {
		pos = make([]gpu.Vec3, n)
	}
	if cap(vel) < n {
		vel = make([]gpu.Vec3, n)
	}
	pos, vel = pos[:n], vel[:n]
	if err := w.buffers.SmoothedPosition().GetData(pos); err != nil {
		return nil, nil, fmt.Errorf("reading smoothed positions: %w", err)
	}
	if err := w.buffers.SmoothedVelocity().GetData(vel); err != nil {
		return nil, nil, fmt.Errorf("reading smoothed velocities: %w", err)
	}
	return pos, vel, nil
}
