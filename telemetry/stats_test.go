package telemetry

import (
	"math"
	"testing"

	"github.com/pthm-cable/fishflock/gpu"
)

func TestQuantiles(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		p      float64
		want   float64
	}{
		{"empty slice", []float64{}, 0.5, 0},
		{"single element", []float64{5.0}, 0.5, 5.0},
		{"p0", []float64{5, 4, 3, 2, 1}, 0.0, 1.0},
		{"p100", []float64{1, 2, 3, 4, 5}, 1.0, 5.0},
		{"p50 odd", []float64{3, 1, 2, 5, 4}, 0.5, 3.0},
		{"p10", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.1, 1.0},
		{"p90", []float64{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}, 0.9, 9.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Quantiles(tt.values, tt.p)[0]
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Quantiles(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestComputeSwarmStats(t *testing.T) {
	// Four agents on a unit square around (1, 0, 0), all heading +X at
	// speeds 1..4.
	pos := []gpu.Vec3{{X: 2}, {X: 0}, {X: 1, Z: 1}, {X: 1, Z: -1}}
	vel := []gpu.Vec3{{X: 1}, {X: 2}, {X: 3}, {X: 4}}

	s := ComputeSwarmStats(pos, vel, gpu.Vec3{}, [2]float32{1, 3})

	if s.Agents != 4 {
		t.Errorf("expected 4 agents, got %d", s.Agents)
	}
	if math.Abs(s.CentroidX-1) > 1e-9 || s.CentroidY != 0 || math.Abs(s.CentroidZ) > 1e-9 {
		t.Errorf("expected centroid (1, 0, 0), got (%v, %v, %v)", s.CentroidX, s.CentroidY, s.CentroidZ)
	}
	if math.Abs(s.Spread-1) > 1e-6 {
		t.Errorf("expected spread 1, got %v", s.Spread)
	}
	wantTarget := (2 + 0 + 2*math.Sqrt2) / 4
	if math.Abs(s.TargetDist-wantTarget) > 1e-6 {
		t.Errorf("expected target distance %v, got %v", wantTarget, s.TargetDist)
	}
	if math.Abs(s.SpeedMean-2.5) > 1e-6 || s.SpeedMax != 4 {
		t.Errorf("expected mean 2.5 max 4, got %v %v", s.SpeedMean, s.SpeedMax)
	}
	if math.Abs(s.SpeedStd-math.Sqrt(1.25)) > 1e-6 {
		t.Errorf("expected population std %v, got %v", math.Sqrt(1.25), s.SpeedStd)
	}
	if s.OutOfRange != 1 {
		t.Errorf("expected one agent above the speed range, got %d", s.OutOfRange)
	}
	if math.Abs(s.Polarization-1) > 1e-6 {
		t.Errorf("expected fully aligned school, got %v", s.Polarization)
	}
}

func TestComputeSwarmStats_OpposedHeadings(t *testing.T) {
	pos := make([]gpu.Vec3, 2)
	vel := []gpu.Vec3{{Y: 2}, {Y: -2}}

	s := ComputeSwarmStats(pos, vel, gpu.Vec3{}, [2]float32{2, 2})
	if s.Polarization > 1e-6 {
		t.Errorf("expected zero polarization, got %v", s.Polarization)
	}
	if s.OutOfRange != 0 {
		t.Errorf("expected every speed inside the range, got %d", s.OutOfRange)
	}
}

func TestComputeSwarmStats_Empty(t *testing.T) {
	s := ComputeSwarmStats(nil, nil, gpu.Vec3{}, [2]float32{1, 3})
	if s != (WindowStats{}) {
		t.Errorf("expected zero stats, got %+v", s)
	}
}
