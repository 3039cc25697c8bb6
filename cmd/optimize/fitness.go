package main

import (
	"math"
	"math/rand"
	"runtime"
	"sync"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/fishflock/components"
	"github.com/pthm-cable/fishflock/config"
	"github.com/pthm-cable/fishflock/flock"
	"github.com/pthm-cable/fishflock/gpu"
	"github.com/pthm-cable/fishflock/gpu/cpu"
	"github.com/pthm-cable/fishflock/systems"
	"github.com/pthm-cable/fishflock/telemetry"
)

// Fitness component weights.
const (
	weightPolarization = 1.0
	weightOutOfRange   = 2.0
	weightSpread       = 0.5
	weightTargetDist   = 0.25

	// failedFitness is reported for runs that could not complete.
	failedFitness = 1e6
)

// Score summarizes the sampled windows of one or more runs.
type Score struct {
	Polarization float64 // mean polarization, 1 = fully aligned
	OutOfRange   float64 // mean fraction of agents outside the speed range
	Spread       float64 // mean distance to centroid
	TargetDist   float64 // mean distance to target
}

// FitnessEvaluator runs headless swarms and computes fitness.
type FitnessEvaluator struct {
	params       *ParamVector
	ticks        int
	warmupTicks  int
	sampleEvery  int
	seeds        []int64
	baseConfig   *config.Config
	targetSpread float64
	workers      int

	mu        sync.Mutex
	lastScore Score
}

// NewFitnessEvaluator creates a new evaluator. Each run lasts ticks ticks and
// samples the swarm every statsWindow seconds after a warmup of one window.
func NewFitnessEvaluator(params *ParamVector, ticks int, seeds []int64, baseCfg *config.Config, targetSpread float64) *FitnessEvaluator {
	every := max(baseCfg.Derived.StatsEvery, 1)
	// Seeds run in parallel; split the cores between them.
	cores := baseCfg.Device.Workers
	if cores <= 0 {
		cores = runtime.GOMAXPROCS(0)
	}
	workers := max(1, cores/max(len(seeds), 1))
	return &FitnessEvaluator{
		params:       params,
		ticks:        ticks,
		warmupTicks:  every,
		sampleEvery:  every,
		seeds:        seeds,
		baseConfig:   baseCfg,
		targetSpread: targetSpread,
		workers:      workers,
	}
}

// LastScore returns the averaged score from the most recent evaluation.
func (fe *FitnessEvaluator) LastScore() Score {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastScore
}

// seedResult holds the result from one seed evaluation.
type seedResult struct {
	score Score
	err   error
}

// Evaluate computes fitness for a parameter vector (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := *fe.baseConfig
	fe.params.ApplyToConfig(&cfg.Swarm, x)

	// Run all seeds in parallel
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			windows, err := fe.runSwarm(&cfg, s)
			results[idx] = seedResult{score: scoreWindows(windows), err: err}
		}(i, seed)
	}
	wg.Wait()

	var pol, oor, spread, dist []float64
	for _, r := range results {
		if r.err != nil {
			return failedFitness
		}
		pol = append(pol, r.score.Polarization)
		oor = append(oor, r.score.OutOfRange)
		spread = append(spread, r.score.Spread)
		dist = append(dist, r.score.TargetDist)
	}
	avg := Score{
		Polarization: stat.Mean(pol, nil),
		OutOfRange:   stat.Mean(oor, nil),
		Spread:       stat.Mean(spread, nil),
		TargetDist:   stat.Mean(dist, nil),
	}

	fe.mu.Lock()
	fe.lastScore = avg
	fe.mu.Unlock()

	return computeFitness(avg, fe.targetSpread)
}

// runSwarm executes a single headless run on a private CPU device and
// returns the stats sampled after warmup.
func (fe *FitnessEvaluator) runSwarm(cfg *config.Config, seed int64) ([]telemetry.WindowStats, error) {
	dev := cpu.NewDevice(cpu.Options{Workers: fe.workers, QueueDepth: cfg.Device.QueueDepth})
	defer dev.Close()

	settings := cfg.Swarm.Settings()
	swarm := flock.NewSwarm(dev, nil, settings, rand.New(rand.NewSource(seed)))
	defer swarm.Shutdown()

	// Same moving bait as the interactive scene.
	world := ecs.NewWorld()
	orbits := systems.NewOrbitSystem(world)
	if cfg.Target.Enabled {
		mapper := ecs.NewMap3[components.Position, components.Velocity, components.Orbit](world)
		orb := cfg.Target.Orbit()
		pos := systems.OrbitPosition(&orb)
		e := mapper.NewEntity(&pos, &components.Velocity{}, &orb)
		swarm.SetTarget(flock.NewEntityTarget(world, e))
	}

	if err := swarm.Init(); err != nil {
		return nil, err
	}

	dt := float32(cfg.Physics.DT)
	var windows []telemetry.WindowStats
	var pos, vel []gpu.Vec3
	for tick := 1; tick <= fe.ticks; tick++ {
		orbits.Update(dt)
		if err := swarm.Tick(dt); err != nil {
			return nil, err
		}
		if tick < fe.warmupTicks || tick%fe.sampleEvery != 0 {
			continue
		}
		var err error
		pos, vel, err = swarm.Snapshot(pos, vel)
		if err != nil {
			return nil, err
		}
		windows = append(windows, telemetry.ComputeSwarmStats(pos, vel, swarm.Target(), settings.SpeedRange))
	}
	return windows, nil
}

// scoreWindows averages the sampled windows. Returns the worst score if
// nothing was sampled.
func scoreWindows(windows []telemetry.WindowStats) Score {
	if len(windows) == 0 {
		return Score{OutOfRange: 1, Spread: math.Inf(1), TargetDist: math.Inf(1)}
	}
	pol := make([]float64, len(windows))
	oor := make([]float64, len(windows))
	spread := make([]float64, len(windows))
	dist := make([]float64, len(windows))
	for i, w := range windows {
		pol[i] = w.Polarization
		if w.Agents > 0 {
			oor[i] = float64(w.OutOfRange) / float64(w.Agents)
		}
		spread[i] = w.Spread
		dist[i] = w.TargetDist
	}
	return Score{
		Polarization: stat.Mean(pol, nil),
		OutOfRange:   stat.Mean(oor, nil),
		Spread:       stat.Mean(spread, nil),
		TargetDist:   stat.Mean(dist, nil),
	}
}

// computeFitness calculates the scalar fitness (lower = better).
// Aligned schools score well; agents leaving the speed range, a school whose
// size drifts from targetSpread and one that ignores the target score badly.
func computeFitness(s Score, targetSpread float64) float64 {
	if math.IsInf(s.Spread, 0) || math.IsNaN(s.Spread) {
		return failedFitness
	}
	spreadErr := math.Abs(s.Spread-targetSpread) / targetSpread
	return -weightPolarization*s.Polarization +
		weightOutOfRange*s.OutOfRange +
		weightSpread*spreadErr +
		weightTargetDist*s.TargetDist/targetSpread
}
