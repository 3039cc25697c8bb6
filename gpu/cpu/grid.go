package cpu

import (
	"github.com/chewxy/math32"

	"github.com/pthm-cable/fishflock/gpu"
)

// maxNeighbors caps the number of neighbours returned by a grid query.
// This prevents density spikes from causing unbounded work.
const maxNeighbors = 96

type cellKey struct {
	x, y, z int32
}

// grid is a sparse uniform grid over unbounded 3-D space. It is rebuilt once
// per dispatch and then only read, so concurrent queries are safe.
type grid struct {
	cellSize float32
	cells    map[cellKey][]int32
}

func newGrid() *grid {
	return &grid{cells: make(map[cellKey][]int32)}
}

// rebuild clears the grid and inserts the first n positions.
func (g *grid) rebuild(pos []gpu.Vec3, n int, cellSize float32) {
	if cellSize <= 0 {
		cellSize = 1
	}
	g.cellSize = cellSize

	// Drop stale empty cells once the map grows well past the population.
	if len(g.cells) > 4*n+64 {
		g.cells = make(map[cellKey][]int32, n)
	} else {
		for k, c := range g.cells {
			g.cells[k] = c[:0]
		}
	}

	for i := 0; i < n; i++ {
		k := g.key(pos[i])
		g.cells[k] = append(g.cells[k], int32(i))
	}
}

func (g *grid) key(p gpu.Vec3) cellKey {
	return cellKey{
		x: int32(math32.Floor(p.X / g.cellSize)),
		y: int32(math32.Floor(p.Y / g.cellSize)),
		z: int32(math32.Floor(p.Z / g.cellSize)),
	}
}

// queryInto appends the indices of points within radius of p, excluding self,
// up to maxNeighbors. Reuse dst across calls to avoid allocations.
func (g *grid) queryInto(dst []int32, pos []gpu.Vec3, p gpu.Vec3, radius float32, self int32) []int32 {
	if radius <= 0 {
		return dst
	}
	reach := int32(math32.Ceil(radius / g.cellSize))
	center := g.key(p)
	radiusSq := radius * radius

	for dx := -reach; dx <= reach; dx++ {
		for dy := -reach; dy <= reach; dy++ {
			for dz := -reach; dz <= reach; dz++ {
				cell := g.cells[cellKey{center.x + dx, center.y + dy, center.z + dz}]
				for _, j := range cell {
					if j == self {
						continue
					}
					d := pos[j].Sub(p)
					if d.Dot(d) <= radiusSq {
						dst = append(dst, j)
						if len(dst) >= maxNeighbors {
							return dst
						}
					}
				}
			}
		}
	}
	return dst
}
