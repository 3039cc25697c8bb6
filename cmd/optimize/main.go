// Package main provides CMA-ES optimization for finding swarm force
// parameters that produce tight, aligned schools which follow the target.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/fishflock/config"
)

// EvalRecord is one row of the optimization log.
type EvalRecord struct {
	Eval         int     `csv:"eval"`
	Fitness      float64 `csv:"fitness"`
	Polarization float64 `csv:"polarization"`
	OutOfRange   float64 `csv:"out_of_range"`
	Spread       float64 `csv:"spread"`
	TargetDist   float64 `csv:"target_dist"`

	SeparationWeight float64 `csv:"separation_weight"`
	AlignmentWeight  float64 `csv:"alignment_weight"`
	CohesionWeight   float64 `csv:"cohesion_weight"`
	SeparationRadius float64 `csv:"separation_radius"`
	AlignmentRadius  float64 `csv:"alignment_radius"`
	CohesionRadius   float64 `csv:"cohesion_radius"`
	MaxForce         float64 `csv:"max_force"`
	TargetForce      float64 `csv:"target_force"`
}

// newEvalRecord builds a log row from a score and the swarm section it ran with.
func newEvalRecord(eval int, fitness float64, s Score, sc config.SwarmConfig) EvalRecord {
	return EvalRecord{
		Eval:             eval,
		Fitness:          fitness,
		Polarization:     s.Polarization,
		OutOfRange:       s.OutOfRange,
		Spread:           s.Spread,
		TargetDist:       s.TargetDist,
		SeparationWeight: sc.ForceWeight[0],
		AlignmentWeight:  sc.ForceWeight[1],
		CohesionWeight:   sc.ForceWeight[2],
		SeparationRadius: sc.PerceptionRadius[0],
		AlignmentRadius:  sc.PerceptionRadius[1],
		CohesionRadius:   sc.PerceptionRadius[2],
		MaxForce:         sc.MaxForce,
		TargetForce:      sc.TargetForce,
	}
}

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	ticks := flag.Int("ticks", 3000, "Simulation length per run in ticks")
	seeds := flag.Int("seeds", 3, "Number of seeds per evaluation")
	maxEvals := flag.Int("max-evals", 200, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	spread := flag.Float64("spread", 3.0, "Desired mean distance to the school centroid")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	if *outputDir == "" {
		log.Fatal("--output is required")
	}
	if *spread <= 0 {
		log.Fatal("--spread must be positive")
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	baseCfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	params := NewParamVector(baseCfg.Swarm)

	evalSeeds := make([]int64, *seeds)
	for i := range evalSeeds {
		evalSeeds[i] = int64(i*1000 + 42)
	}

	evaluator := NewFitnessEvaluator(params, *ticks, evalSeeds, baseCfg, *spread)

	dim := params.Dim()
	initX := params.Normalize(params.DefaultVector())

	popSize := *population
	if popSize == 0 {
		popSize = 4 + int(3.0*float64(dim)/2.0)
	}

	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}
	settings := &optimize.Settings{
		FuncEvaluations: *maxEvals,
		Concurrent:      0, // seeds already run in parallel
	}

	logPath := filepath.Join(*outputDir, "optimize_log.csv")
	logFile, err := os.Create(logPath)
	if err != nil {
		log.Fatalf("failed to create log file: %v", err)
	}
	defer logFile.Close()
	headerWritten := false

	evalCount := 0
	bestFitness := failedFitness
	var bestParams []float64
	startTime := time.Now()

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			raw := params.Denormalize(x)
			fitness := evaluator.Evaluate(raw)
			evalCount++

			clamped := params.Clamp(raw)
			if fitness < bestFitness {
				bestFitness = fitness
				bestParams = clamped
			}

			// Log clamped values, which are the values actually used
			score := evaluator.LastScore()
			sc := baseCfg.Swarm
			params.ApplyToConfig(&sc, clamped)
			rows := []EvalRecord{newEvalRecord(evalCount, fitness, score, sc)}
			if !headerWritten {
				err = gocsv.MarshalFile(&rows, logFile)
				headerWritten = true
			} else {
				err = gocsv.MarshalWithoutHeaders(&rows, logFile)
			}
			if err != nil {
				log.Printf("failed to log evaluation %d: %v", evalCount, err)
			}

			elapsed := time.Since(startTime)
			avgPerEval := elapsed / time.Duration(evalCount)
			remaining := time.Duration(*maxEvals-evalCount) * avgPerEval

			fmt.Printf("Eval %d/%d: fitness=%.4f polarization=%.3f out_of_range=%.3f spread=%.2f (best=%.4f) | elapsed: %s, ETA: %s\n",
				evalCount, *maxEvals, fitness, score.Polarization, score.OutOfRange, score.Spread, bestFitness,
				formatDuration(elapsed), formatDuration(remaining))

			return fitness
		},
	}

	fmt.Printf("Starting CMA-ES optimization with %d parameters, population=%d, max_evals=%d\n",
		dim, popSize, *maxEvals)
	fmt.Printf("Seeds per evaluation: %d, ticks per run: %d, agents: %d\n", *seeds, *ticks, baseCfg.Swarm.Agents)

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		log.Printf("optimization ended: %v", err)
	}

	// Use best params found (may be from any evaluation, not just final)
	if bestParams == nil && result != nil {
		bestParams = params.Clamp(params.Denormalize(result.X))
	}
	if bestParams == nil {
		log.Fatal("no evaluation completed")
	}

	fmt.Printf("\nOptimization complete after %d evaluations in %s\n", evalCount, formatDuration(time.Since(startTime)))
	fmt.Printf("Best fitness: %.4f\n", bestFitness)

	fmt.Println("\nBest parameters:")
	for i, spec := range params.Specs {
		fmt.Printf("  %s: %.6f\n", spec.Path, bestParams[i])
	}

	bestCfg := *baseCfg
	params.ApplyToConfig(&bestCfg.Swarm, bestParams)

	configOutPath := filepath.Join(*outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		log.Printf("failed to write best config: %v", err)
	} else {
		fmt.Printf("\nBest config saved to: %s\n", configOutPath)
	}
}
