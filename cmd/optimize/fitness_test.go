package main

import (
	"testing"

	"github.com/pthm-cable/fishflock/config"
	"github.com/pthm-cable/fishflock/telemetry"
)

func TestComputeFitness_Ordering(t *testing.T) {
	good := Score{Polarization: 0.9, OutOfRange: 0, Spread: 3, TargetDist: 2}
	tests := []struct {
		name string
		s    Score
	}{
		{"less aligned", Score{Polarization: 0.3, Spread: 3, TargetDist: 2}},
		{"out of range", Score{Polarization: 0.9, OutOfRange: 0.5, Spread: 3, TargetDist: 2}},
		{"scattered", Score{Polarization: 0.9, Spread: 9, TargetDist: 2}},
		{"ignores target", Score{Polarization: 0.9, Spread: 3, TargetDist: 12}},
	}
	base := computeFitness(good, 3)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if f := computeFitness(tt.s, 3); f <= base {
				t.Errorf("expected fitness worse than %v, got %v", base, f)
			}
		})
	}
}

func TestScoreWindows(t *testing.T) {
	empty := scoreWindows(nil)
	if computeFitness(empty, 3) != failedFitness {
		t.Error("expected failed fitness without samples")
	}

	s := scoreWindows([]telemetry.WindowStats{
		{Agents: 100, OutOfRange: 10, Polarization: 0.5, Spread: 2, TargetDist: 1},
		{Agents: 100, OutOfRange: 30, Polarization: 1.0, Spread: 4, TargetDist: 3},
	})
	if s.OutOfRange != 0.2 || s.Polarization != 0.75 || s.Spread != 3 || s.TargetDist != 2 {
		t.Errorf("unexpected score %+v", s)
	}
}

func TestEvaluate_ShortRun(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Swarm.Agents = 256
	cfg.Derived.StatsEvery = 5

	pv := NewParamVector(cfg.Swarm)
	fe := NewFitnessEvaluator(pv, 20, []int64{1, 2}, cfg, 3)

	f := fe.Evaluate(pv.DefaultVector())
	if f >= failedFitness {
		t.Fatalf("expected a completed evaluation, got %v", f)
	}
	s := fe.LastScore()
	if s.Polarization <= 0 || s.Polarization > 1+1e-9 {
		t.Errorf("expected polarization in (0, 1], got %v", s.Polarization)
	}
	if s.Spread <= 0 {
		t.Errorf("expected positive spread, got %v", s.Spread)
	}
}
