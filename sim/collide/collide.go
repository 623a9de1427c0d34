// Package collide answers read-only spatial queries against simulated
// cell data: point tests, grid-traversal raycasts, box scans, and
// ground probes.
package collide

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/dustfall/dustfall/sim/cell"
	"github.com/dustfall/dustfall/sim/chunk"
	"github.com/dustfall/dustfall/sim/core"
)

// RayHit is the first solid cell a ray reached.
type RayHit struct {
	Coord core.WorldCoord
	// Distance from the ray origin in cells.
	Distance float32
	// Normal is an axis-aligned approximation derived from which cell
	// boundary the ray crossed last.
	Normal mgl32.Vec2
}

// Query answers spatial questions against one chunk's cell snapshot.
// All methods are read-only; coordinates outside the chunk read as
// empty, never as an error.
type Query struct {
	cells  []cell.Cell
	size   uint32
	origin core.WorldCoord
}

// NewQuery wraps a cell array with its chunk geometry. cells must hold
// size*size entries and must not be mutated while the query is in use.
func NewQuery(cells []cell.Cell, size uint32, origin core.WorldCoord) *Query {
	return &Query{cells: cells, size: size, origin: origin}
}

// FromChunk snapshots a resident chunk into a query. The snapshot is
// decoupled from later chunk writes.
func FromChunk(c *chunk.Chunk) *Query {
	return NewQuery(c.Snapshot(), c.Size(), c.ID().WorldOrigin(c.Size()))
}

// Get returns the cell at a world coordinate and whether it is inside
// this chunk.
func (q *Query) Get(coord core.WorldCoord) (cell.Cell, bool) {
	lx := coord.X - q.origin.X
	ly := coord.Y - q.origin.Y
	size := int64(q.size)
	if lx < 0 || ly < 0 || lx >= size || ly >= size {
		return cell.Cell{}, false
	}
	return q.cells[ly*size+lx], true
}

// Contains reports whether the coordinate falls inside this chunk.
func (q *Query) Contains(coord core.WorldCoord) bool {
	_, ok := q.Get(coord)
	return ok
}

// IsSolid reports whether the cell at coord has the solid flag.
// Out-of-bounds is non-solid.
func (q *Query) IsSolid(coord core.WorldCoord) bool {
	c, ok := q.Get(coord)
	return ok && c.IsSolid()
}

// IsLiquid reports whether the cell at coord has the liquid flag.
func (q *Query) IsLiquid(coord core.WorldCoord) bool {
	c, ok := q.Get(coord)
	return ok && c.IsLiquid()
}

// IsEmpty reports whether the cell at coord is air with no flags.
// Out-of-bounds is empty.
func (q *Query) IsEmpty(coord core.WorldCoord) bool {
	c, ok := q.Get(coord)
	if !ok {
		return true
	}
	return c.Material == 0 && c.Flags == 0
}

// Raycast marches from origin along direction, visiting every cell
// boundary in distance order, and returns the first solid cell within
// maxDist. A zero direction yields no hit.
func (q *Query) Raycast(origin, direction mgl32.Vec2, maxDist float32) (RayHit, bool) {
	return raycast(q.IsSolid, origin, direction, maxDist)
}

// BoxQuery returns the world coordinate of every solid cell in the
// inclusive rectangle. Intended for small, caller-bounded regions.
func (q *Query) BoxQuery(min, max core.WorldCoord) []core.WorldCoord {
	return boxQuery(q.IsSolid, min, max)
}

// FindGround scans downward from startY to the chunk's lower edge and
// returns the first solid row.
func (q *Query) FindGround(x, startY int64) (int64, bool) {
	return findGround(q.IsSolid, x, startY, q.origin.Y)
}

// CanStandAt reports whether feet at (x, y) rest on solid ground with
// height cells of clearance.
func (q *Query) CanStandAt(x, y int64, height uint32) bool {
	return canStandAt(q.IsSolid, x, y, height)
}

// Size returns the chunk edge length.
func (q *Query) Size() uint32 { return q.size }

// Origin returns the chunk's world origin.
func (q *Query) Origin() core.WorldCoord { return q.origin }

// solidFn abstracts "is this world cell solid" so single-chunk and
// world-spanning queries share one traversal.
type solidFn func(core.WorldCoord) bool

const rayEpsilon = 1e-7

// raycast is a DDA grid traversal: track the parametric distance to
// the next x and y cell boundaries, always advance the nearer one.
func raycast(isSolid solidFn, origin, direction mgl32.Vec2, maxDist float32) (RayHit, bool) {
	if direction.Len() < rayEpsilon {
		return RayHit{}, false
	}
	dir := direction.Normalize()

	x := float64(origin.X())
	y := float64(origin.Y())
	dx := float64(dir.X())
	dy := float64(dir.Y())

	stepX := math.MaxFloat64
	if math.Abs(dx) > rayEpsilon {
		stepX = math.Abs(1 / dx)
	}
	stepY := math.MaxFloat64
	if math.Abs(dy) > rayEpsilon {
		stepY = math.Abs(1 / dy)
	}

	signX := int64(1)
	if dx < 0 {
		signX = -1
	}
	signY := int64(1)
	if dy < 0 {
		signY = -1
	}

	tMaxX := math.MaxFloat64
	if math.Abs(dx) > rayEpsilon {
		if dx >= 0 {
			tMaxX = (math.Floor(x) + 1 - x) / dx
		} else {
			tMaxX = (x - math.Floor(x)) / -dx
		}
		tMaxX = math.Max(tMaxX, 0)
	}
	tMaxY := math.MaxFloat64
	if math.Abs(dy) > rayEpsilon {
		if dy >= 0 {
			tMaxY = (math.Floor(y) + 1 - y) / dy
		} else {
			tMaxY = (y - math.Floor(y)) / -dy
		}
		tMaxY = math.Max(tMaxY, 0)
	}

	cellX := int64(math.Floor(x))
	cellY := int64(math.Floor(y))
	prevX := cellX
	dist := 0.0

	for dist < float64(maxDist) {
		coord := core.NewWorldCoord(cellX, cellY)
		if isSolid(coord) {
			normal := mgl32.Vec2{float32(-signX), 0}
			if prevX == cellX {
				// Last step crossed a y boundary.
				normal = mgl32.Vec2{0, float32(-signY)}
			}
			return RayHit{Coord: coord, Distance: float32(dist), Normal: normal}, true
		}

		prevX = cellX
		if tMaxX < tMaxY {
			dist = tMaxX
			tMaxX += stepX
			cellX += signX
		} else {
			dist = tMaxY
			tMaxY += stepY
			cellY += signY
		}
	}
	return RayHit{}, false
}

func boxQuery(isSolid solidFn, min, max core.WorldCoord) []core.WorldCoord {
	var out []core.WorldCoord
	for y := min.Y; y <= max.Y; y++ {
		for x := min.X; x <= max.X; x++ {
			coord := core.NewWorldCoord(x, y)
			if isSolid(coord) {
				out = append(out, coord)
			}
		}
	}
	return out
}

func findGround(isSolid solidFn, x, startY, minY int64) (int64, bool) {
	for y := startY; y >= minY; y-- {
		if isSolid(core.NewWorldCoord(x, y)) {
			return y, true
		}
	}
	return 0, false
}

func canStandAt(isSolid solidFn, x, y int64, height uint32) bool {
	if !isSolid(core.NewWorldCoord(x, y-1)) {
		return false
	}
	for dy := int64(0); dy < int64(height); dy++ {
		if isSolid(core.NewWorldCoord(x, y+dy)) {
			return false
		}
	}
	return true
}
