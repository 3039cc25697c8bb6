package flock

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/fishflock/components"
	"github.com/pthm-cable/fishflock/gpu"
)

// TargetSource supplies the point the swarm is attracted to. ok is false when
// no target is currently available.
type TargetSource interface {
	TargetPosition() (pos gpu.Vec3, ok bool)
}

// FixedTarget is a constant target position.
type FixedTarget gpu.Vec3

// TargetPosition implements TargetSource.
func (f FixedTarget) TargetPosition() (gpu.Vec3, bool) { return gpu.Vec3(f), true }

// EntityTarget follows the Position of an ECS entity.
type EntityTarget struct {
	world  *ecs.World
	entity ecs.Entity
	posMap *ecs.Map[components.Position]
}

// NewEntityTarget creates a target that tracks e's position in world.
func NewEntityTarget(world *ecs.World, e ecs.Entity) *EntityTarget {
	return &EntityTarget{
		world:  world,
		entity: e,
		posMap: ecs.NewMap[components.Position](world),
	}
}

// TargetPosition implements TargetSource. It reports false once the entity
// has been removed or has no position.
func (t *EntityTarget) TargetPosition() (gpu.Vec3, bool) {
	if !t.world.Alive(t.entity) || !t.posMap.Has(t.entity) {
		return gpu.Vec3{}, false
	}
	p := t.posMap.Get(t.entity)
	return gpu.Vec3{X: p.X, Y: p.Y, Z: p.Z}, true
}

// resolveTarget returns src's position, or the origin when src is nil or has
// no target.
func resolveTarget(src TargetSource) gpu.Vec3 {
	if src == nil {
		return gpu.Vec3{}
	}
	if p, ok := src.TargetPosition(); ok {
		return p
	}
	return gpu.Vec3{}
}
