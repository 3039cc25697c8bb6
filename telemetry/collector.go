package telemetry

import "github.com/pthm-cable/fishflock/gpu"

// Collector counts events within time windows and produces WindowStats.
type Collector struct {
	windowDurationTicks uint64
	dt                  float32

	// Current window tracking
	windowStartTick uint64

	// Event counters for current window
	resets     uint64
	dispatches uint64

	pos, vel []gpu.Vec3
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec float64, dt float32) *Collector {
	ticksPerWindow := uint64(windowDurationSec / float64(dt))
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}
	return &Collector{
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
	}
}

// RecordReset records a buffer (re)allocation.
func (c *Collector) RecordReset() {
	c.resets++
}

// RecordDispatch records a kernel dispatch.
func (c *Collector) RecordDispatch() {
	c.dispatches++
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick uint64) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Snapshot is the read-back state of the swarm at window end.
type Snapshot interface {
	Snapshot(pos, vel []gpu.Vec3) ([]gpu.Vec3, []gpu.Vec3, error)
}

// Flush reads the swarm back, produces a WindowStats and resets counters for
// the next window. Reading back blocks until queued dispatches finish.
func (c *Collector) Flush(currentTick uint64, swarm Snapshot, target gpu.Vec3, speedRange [2]float32) (WindowStats, error) {
	var err error
	c.pos, c.vel, err = swarm.Snapshot(c.pos, c.vel)
	if err != nil {
		// Drop the window so a failing readback is retried once per window,
		// not every tick.
		c.startWindow(currentTick)
		return WindowStats{}, err
	}

	stats := ComputeSwarmStats(c.pos, c.vel, target, speedRange)
	stats.WindowStartTick = c.windowStartTick
	stats.WindowEndTick = currentTick
	stats.SimTimeSec = float64(currentTick) * float64(c.dt)
	stats.Resets = c.resets
	stats.Dispatches = c.dispatches

	c.startWindow(currentTick)
	return stats, nil
}

func (c *Collector) startWindow(tick uint64) {
	c.windowStartTick = tick
	c.resets = 0
	c.dispatches = 0
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() uint64 {
	return c.windowDurationTicks
}
