// Package components defines ECS components for the scene around the swarm.
package components

// Orbit moves an entity on a horizontal circle around a center point,
// with an optional vertical bob.
type Orbit struct {
	CenterX, CenterY, CenterZ float32
	Radius                    float32
	Speed                     float32 // radians per second
	Phase                     float32 // current angle in radians
	BobAmplitude              float32
	BobSpeed                  float32 // radians per second
	BobPhase                  float32
}

// Target marks the entity the swarm is attracted to.
type Target struct {
	Name string
}
