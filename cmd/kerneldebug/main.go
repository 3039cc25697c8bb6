// Kernel debug tool - runs the swarm for a number of ticks and renders a
// top-down view of the agents to a PNG file for inspection.
//
// Usage: go run ./cmd/kerneldebug -backend gl -ticks 500 -out swarm.png
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fishflock/config"
	"github.com/pthm-cable/fishflock/flock"
	"github.com/pthm-cable/fishflock/gpu"
	"github.com/pthm-cable/fishflock/gpu/cpu"
	"github.com/pthm-cable/fishflock/gpu/gl"
	"github.com/pthm-cable/fishflock/telemetry"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = embedded defaults)")
	backend := flag.String("backend", "", "Override compute backend (cpu or gl)")
	ticks := flag.Int("ticks", 500, "Ticks to simulate before capturing")
	seed := flag.Int64("seed", 1, "Seed for initial positions")
	outPath := flag.String("out", "swarm.png", "Output PNG path")
	size := flag.Int("size", 512, "Render width and height")
	extent := flag.Float64("extent", 12, "World half-extent covered by the image")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *backend != "" {
		cfg.Device.Backend = *backend
	}

	// A hidden window provides the GL context for the gl backend and the
	// render texture for both.
	rl.SetConfigFlags(rl.FlagWindowHidden)
	rl.InitWindow(int32(*size), int32(*size), "Kernel Debug")
	defer rl.CloseWindow()

	var dev gpu.Device
	switch cfg.Device.Backend {
	case config.BackendGL:
		dev = gl.NewDevice(cfg.Device.MemoryBudget)
	default:
		dev = cpu.NewDevice(cpu.Options{MemoryBudget: cfg.Device.MemoryBudget, Workers: cfg.Device.Workers})
	}
	defer dev.Close()

	settings := cfg.Derived.SwarmSettings
	swarm := flock.NewSwarm(dev, nil, settings, rand.New(rand.NewSource(*seed)))
	if cfg.Target.Enabled {
		c := cfg.Target.Center
		swarm.SetTarget(flock.FixedTarget{X: float32(c[0]), Y: float32(c[1]), Z: float32(c[2])})
	}
	defer swarm.Shutdown()

	for i := 0; i < *ticks; i++ {
		if err := swarm.Tick(cfg.Derived.DT32); err != nil {
			fmt.Fprintf(os.Stderr, "Tick %d failed: %v\n", i, err)
			os.Exit(1)
		}
	}

	k, err := dev.FindKernel(gpu.FlockingKernel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to find kernel: %v\n", err)
		os.Exit(1)
	}
	gx, gy, gz := k.ThreadGroupSize()

	pos, vel, err := swarm.Snapshot(nil, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read back swarm: %v\n", err)
		os.Exit(1)
	}
	stats := telemetry.ComputeSwarmStats(pos, vel, swarm.Target(), settings.SpeedRange)

	fmt.Printf("backend=%s kernel=%s group=(%d,%d,%d) groups=%d agents=%d ticks=%d\n",
		cfg.Device.Backend, k.Name(), gx, gy, gz, swarm.Stepper().LastGroups(), len(pos), swarm.Ticks())
	fmt.Printf("speed mean=%.3f p10=%.3f p90=%.3f max=%.3f out_of_range=%d\n",
		stats.SpeedMean, stats.SpeedP10, stats.SpeedP90, stats.SpeedMax, stats.OutOfRange)
	fmt.Printf("spread=%.3f target_dist=%.3f polarization=%.3f\n",
		stats.Spread, stats.TargetDist, stats.Polarization)

	target := rl.LoadRenderTexture(int32(*size), int32(*size))
	defer rl.UnloadRenderTexture(target)

	scale := float32(*size) / float32(2**extent)
	half := float32(*size) / 2
	project := func(v gpu.Vec3) (int32, int32) {
		return int32(half + v.X*scale), int32(half + v.Z*scale)
	}

	// Looking down the Y axis, colored by height.
	rl.BeginTextureMode(target)
	rl.ClearBackground(rl.Black)
	for _, p := range pos {
		x, y := project(p)
		h := (p.Y/float32(*extent) + 1) / 2
		if h < 0 {
			h = 0
		} else if h > 1 {
			h = 1
		}
		rl.DrawPixel(x, y, rl.ColorFromHSV(200-120*h, 0.8, 1))
	}
	tx, ty := project(swarm.Target())
	rl.DrawCircleLines(tx, ty, 4, rl.Red)
	rl.EndTextureMode()

	// Get image from texture and flip it (OpenGL convention)
	img := rl.LoadImageFromTexture(target.Texture)
	rl.ImageFlipVertical(img)

	success := rl.ExportImage(*img, *outPath)
	rl.UnloadImage(img)

	if success {
		fmt.Printf("Swarm rendered to: %s (%dx%d)\n", *outPath, *size, *size)
	} else {
		fmt.Fprintf(os.Stderr, "Failed to export image\n")
		os.Exit(1)
	}
}
