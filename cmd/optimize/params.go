// Package main provides CMA-ES optimization for swarm force parameters.
package main

import (
	"github.com/pthm-cable/fishflock/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard parameter set with defaults taken from base.
func NewParamVector(base config.SwarmConfig) *ParamVector {
	pv := &ParamVector{
		Specs: []ParamSpec{
			// Force weights
			{Name: "separation_weight", Path: "swarm.force_weight[0]", Min: 0.1, Max: 4.0},
			{Name: "alignment_weight", Path: "swarm.force_weight[1]", Min: 0.1, Max: 4.0},
			{Name: "cohesion_weight", Path: "swarm.force_weight[2]", Min: 0.1, Max: 4.0},
			// Perception radii
			{Name: "separation_radius", Path: "swarm.perception_radius[0]", Min: 0.1, Max: 2.0},
			{Name: "alignment_radius", Path: "swarm.perception_radius[1]", Min: 0.2, Max: 4.0},
			{Name: "cohesion_radius", Path: "swarm.perception_radius[2]", Min: 0.2, Max: 4.0},
			// Steering limits
			{Name: "max_force", Path: "swarm.max_force", Min: 0.05, Max: 4.0},
			{Name: "target_force", Path: "swarm.target_force", Min: 0.0, Max: 2.0},
		},
	}
	defaults := pv.ExtractFromConfig(base)
	for i := range pv.Specs {
		pv.Specs[i].Default = defaults[i]
	}
	return pv
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig writes clamped parameter values into a swarm section.
// Order must match Specs order.
func (pv *ParamVector) ApplyToConfig(sc *config.SwarmConfig, values []float64) {
	c := pv.Clamp(values)
	sc.ForceWeight = [3]float64{c[0], c[1], c[2]}
	sc.PerceptionRadius = [3]float64{c[3], c[4], c[5]}
	sc.MaxForce = c[6]
	sc.TargetForce = c[7]
}

// ExtractFromConfig extracts current parameter values from a swarm section.
func (pv *ParamVector) ExtractFromConfig(sc config.SwarmConfig) []float64 {
	return []float64{
		sc.ForceWeight[0], sc.ForceWeight[1], sc.ForceWeight[2],
		sc.PerceptionRadius[0], sc.PerceptionRadius[1], sc.PerceptionRadius[2],
		sc.MaxForce,
		sc.TargetForce,
	}
}
