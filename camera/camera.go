// Package camera provides an orbiting 3D view around the swarm.
package camera

import "math"

// Camera orbits a focus point at a fixed height.
type Camera struct {
	// Focus point in world coordinates
	TargetX, TargetY, TargetZ float32

	// Yaw is the horizontal angle around the focus in radians
	Yaw float32

	// Distance from the focus on the horizontal plane
	Distance float32

	// Height above the focus
	Height float32

	// Fovy is the vertical field of view in degrees
	Fovy float32

	// AutoSpeed rotates the view in radians per second, 0 = static
	AutoSpeed float32

	// Distance constraints
	MinDistance, MaxDistance float32

	defaultDistance, defaultHeight float32
}

// New creates a camera looking at the origin.
func New(distance, height, fovy, autoSpeed float32) *Camera {
	return &Camera{
		Distance:        distance,
		Height:          height,
		Fovy:            fovy,
		AutoSpeed:       autoSpeed,
		MinDistance:     distance / 4,
		MaxDistance:     distance * 4,
		defaultDistance: distance,
		defaultHeight:   height,
	}
}

// Update advances the automatic rotation.
func (c *Camera) Update(dt float32) {
	c.Orbit(c.AutoSpeed * dt)
}

// Orbit rotates the view by delta radians.
func (c *Camera) Orbit(delta float32) {
	c.Yaw = float32(math.Mod(float64(c.Yaw+delta), 2*math.Pi))
}

// Eye returns the camera position in world coordinates.
func (c *Camera) Eye() (x, y, z float32) {
	sin, cos := math.Sincos(float64(c.Yaw))
	x = c.TargetX + c.Distance*float32(sin)
	y = c.TargetY + c.Height
	z = c.TargetZ + c.Distance*float32(cos)
	return
}

// ZoomBy scales the distance, clamped to min/max. Height keeps its ratio.
func (c *Camera) ZoomBy(factor float32) {
	d := clamp(c.Distance*factor, c.MinDistance, c.MaxDistance)
	if c.Distance > 0 {
		c.Height *= d / c.Distance
	}
	c.Distance = d
}

// LookAt moves the focus point.
func (c *Camera) LookAt(x, y, z float32) {
	c.TargetX, c.TargetY, c.TargetZ = x, y, z
}

// Reset returns the camera to its initial framing.
func (c *Camera) Reset() {
	c.TargetX, c.TargetY, c.TargetZ = 0, 0, 0
	c.Yaw = 0
	c.Distance = c.defaultDistance
	c.Height = c.defaultHeight
}

// clamp restricts a value to a range.
func clamp(x, min, max float32) float32 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
