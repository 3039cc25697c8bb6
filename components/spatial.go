package components

// Position represents an entity's world position.
type Position struct {
	X, Y, Z float32
}

// Velocity represents an entity's velocity in world units per second.
type Velocity struct {
	X, Y, Z float32
}
