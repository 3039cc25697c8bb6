package game

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/pthm-cable/fishflock/config"
	"github.com/pthm-cable/fishflock/gpu"
	"github.com/pthm-cable/fishflock/gpu/cpu"
	"github.com/pthm-cable/fishflock/gpu/gl"
)

// ErrBackend is returned when the configured backend cannot run.
var ErrBackend = errors.New("unusable compute backend")

// newDevice creates the compute device named by the config.
func newDevice(dc config.DeviceConfig, headless bool) (gpu.Device, error) {
	switch dc.Backend {
	case config.BackendGL:
		if headless {
			return nil, fmt.Errorf("%w: %q needs a window, use %q for headless runs",
				ErrBackend, config.BackendGL, config.BackendCPU)
		}
		slog.Info("using GL compute device", "memory_budget", dc.MemoryBudget)
		return gl.NewDevice(dc.MemoryBudget), nil
	case config.BackendCPU:
		slog.Info("using CPU compute device",
			"memory_budget", dc.MemoryBudget,
			"workers", dc.Workers,
			"queue_depth", dc.QueueDepth,
		)
		return cpu.NewDevice(cpu.Options{
			MemoryBudget: dc.MemoryBudget,
			Workers:      dc.Workers,
			QueueDepth:   dc.QueueDepth,
		}), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrBackend, dc.Backend)
}
