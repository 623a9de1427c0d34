package collide

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/dustfall/dustfall/sim/cell"
	"github.com/dustfall/dustfall/sim/chunk"
	"github.com/dustfall/dustfall/sim/core"
)

// WorldQuery composes per-chunk lookups into world-spanning queries on
// one layer. Coordinates in non-resident chunks read as empty, so a
// ray can pass through unloaded space without error. Raycasts march
// across chunk boundaries; they do not stop at the first chunk's edge.
type WorldQuery struct {
	mgr   *chunk.Manager
	layer uint8
}

// NewWorldQuery builds a query over the manager's resident chunks.
func NewWorldQuery(mgr *chunk.Manager, layer uint8) *WorldQuery {
	return &WorldQuery{mgr: mgr, layer: layer}
}

// Get returns the cell at a world coordinate and whether its chunk is
// resident.
func (w *WorldQuery) Get(coord core.WorldCoord) (cell.Cell, bool) {
	size := w.mgr.ChunkSize()
	c := w.mgr.Get(coord.ToChunk(size, w.layer))
	if c == nil {
		return cell.Cell{}, false
	}
	local := coord.ToLocal(size)
	return c.Get(int(local.X), int(local.Y)), true
}

// IsSolid reports solidity; unloaded space is non-solid.
func (w *WorldQuery) IsSolid(coord core.WorldCoord) bool {
	c, ok := w.Get(coord)
	return ok && c.IsSolid()
}

// IsLiquid reports the liquid flag; unloaded space is not liquid.
func (w *WorldQuery) IsLiquid(coord core.WorldCoord) bool {
	c, ok := w.Get(coord)
	return ok && c.IsLiquid()
}

// IsEmpty reports emptiness; unloaded space is empty.
func (w *WorldQuery) IsEmpty(coord core.WorldCoord) bool {
	c, ok := w.Get(coord)
	if !ok {
		return true
	}
	return c.Material == 0 && c.Flags == 0
}

// Raycast traverses resident chunks along the ray, returning the first
// solid cell within maxDist.
func (w *WorldQuery) Raycast(origin, direction mgl32.Vec2, maxDist float32) (RayHit, bool) {
	return raycast(w.IsSolid, origin, direction, maxDist)
}

// BoxQuery returns every solid cell in the inclusive rectangle across
// all resident chunks it touches.
func (w *WorldQuery) BoxQuery(min, max core.WorldCoord) []core.WorldCoord {
	return boxQuery(w.IsSolid, min, max)
}

// FindGround scans downward from startY through up to one chunk span
// of resident space and returns the first solid row.
func (w *WorldQuery) FindGround(x, startY int64) (int64, bool) {
	minY := startY - int64(w.mgr.ChunkSize())
	return findGround(w.IsSolid, x, startY, minY)
}

// CanStandAt reports whether feet at (x, y) rest on solid ground with
// height cells of clearance.
func (w *WorldQuery) CanStandAt(x, y int64, height uint32) bool {
	return canStandAt(w.IsSolid, x, y, height)
}
