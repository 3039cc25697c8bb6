package flock

import (
	"math/rand"

	"github.com/chewxy/math32"

	"github.com/pthm-cable/fishflock/gpu"
)

// uniform returns a sample in [lo, hi).
func uniform(rng *rand.Rand, lo, hi float32) float32 {
	return lo + rng.Float32()*(hi-lo)
}

// SeedPosition samples each axis independently in [-radius, radius].
// The result fills a cube, not a ball.
func SeedPosition(rng *rand.Rand, radius float32) gpu.Vec3 {
	return gpu.Vec3{
		X: uniform(rng, -1, 1),
		Y: uniform(rng, -1, 1),
		Z: uniform(rng, -1, 1),
	}.Scale(radius)
}

// SeedVelocity samples a direction uniformly over the unit sphere and scales
// it by speed. Latitude is drawn as asin(U[-1,1]) so directions do not bunch
// at the poles.
func SeedVelocity(rng *rand.Rand, speed float32) gpu.Vec3 {
	theta := uniform(rng, -math32.Pi, math32.Pi)
	phi := math32.Asin(uniform(rng, -1, 1))
	return gpu.Vec3{
		X: math32.Cos(phi) * math32.Cos(theta),
		Y: math32.Cos(phi) * math32.Sin(theta),
		Z: math32.Sin(phi),
	}.Scale(speed)
}

// SeedSpeed is the initial speed for a speed range: its midpoint.
func SeedSpeed(speedRange [2]float32) float32 {
	return (speedRange[0] + speedRange[1]) * 0.5
}
