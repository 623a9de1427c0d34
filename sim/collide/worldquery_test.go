package collide

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dustfall/dustfall/sim/cell"
	"github.com/dustfall/dustfall/sim/chunk"
	"github.com/dustfall/dustfall/sim/core"
)

// worldWith loads the given chunks into a fresh manager with airGen.
func worldWith(t *testing.T, size uint32, ids ...core.ChunkID) *chunk.Manager {
	t.Helper()
	mgr, err := chunk.NewManager(nil, nil, size, nil)
	require.NoError(t, err)
	for _, id := range ids {
		_, err := mgr.Load(id)
		require.NoError(t, err)
	}
	return mgr
}

func TestWorldQueryRoutesToOwningChunk(t *testing.T) {
	mgr := worldWith(t, 16, core.NewChunkID(0, 0, 0), core.NewChunkID(1, 0, 0))
	w := NewWorldQuery(mgr, 0)

	// World (21, 3) lives in chunk (1, 0) at local (5, 3).
	mgr.Get(core.NewChunkID(1, 0, 0)).Set(5, 3, cell.New(cell.MaterialStone).WithFlag(cell.FlagSolid))

	assert.True(t, w.IsSolid(core.NewWorldCoord(21, 3)))
	assert.False(t, w.IsSolid(core.NewWorldCoord(5, 3)))
	assert.True(t, w.IsEmpty(core.NewWorldCoord(200, 200)), "unloaded space reads empty")
	assert.False(t, w.IsSolid(core.NewWorldCoord(200, 200)), "unloaded space is not solid")
}

func TestWorldQueryLayerIsolation(t *testing.T) {
	mgr := worldWith(t, 16, core.NewChunkID(0, 0, 0), core.NewChunkID(0, 0, 1))
	mgr.Get(core.NewChunkID(0, 0, 1)).Set(4, 4, cell.New(cell.MaterialStone).WithFlag(cell.FlagSolid))

	surface := NewWorldQuery(mgr, 0)
	cave := NewWorldQuery(mgr, 1)
	assert.False(t, surface.IsSolid(core.NewWorldCoord(4, 4)))
	assert.True(t, cave.IsSolid(core.NewWorldCoord(4, 4)))
}

func TestWorldRaycastCrossesChunkBoundary(t *testing.T) {
	mgr := worldWith(t, 16, core.NewChunkID(0, 0, 0), core.NewChunkID(1, 0, 0))
	w := NewWorldQuery(mgr, 0)

	// Wall inside the second chunk, world x=20.
	second := mgr.Get(core.NewChunkID(1, 0, 0))
	for y := 0; y < 16; y++ {
		second.Set(4, y, cell.New(cell.MaterialStone).WithFlag(cell.FlagSolid))
	}

	hit, ok := w.Raycast(mgl32.Vec2{2.5, 5.5}, mgl32.Vec2{1, 0}, 40)
	require.True(t, ok, "ray must march past the chunk edge at x=16")
	assert.Equal(t, core.NewWorldCoord(20, 5), hit.Coord)
	assert.InDelta(t, 17.5, float64(hit.Distance), 0.01)
}

func TestWorldRaycastThroughUnloadedGap(t *testing.T) {
	// Chunks (0,0) and (2,0) resident, (1,0) missing.
	mgr := worldWith(t, 16, core.NewChunkID(0, 0, 0), core.NewChunkID(2, 0, 0))
	w := NewWorldQuery(mgr, 0)

	far := mgr.Get(core.NewChunkID(2, 0, 0))
	for y := 0; y < 16; y++ {
		far.Set(0, y, cell.New(cell.MaterialStone).WithFlag(cell.FlagSolid))
	}

	hit, ok := w.Raycast(mgl32.Vec2{0.5, 8.5}, mgl32.Vec2{1, 0}, 64)
	require.True(t, ok, "unloaded middle chunk is passable, not a wall")
	assert.Equal(t, core.NewWorldCoord(32, 8), hit.Coord)
}

func TestWorldBoxQuerySpansChunks(t *testing.T) {
	mgr := worldWith(t, 16, core.NewChunkID(0, 0, 0), core.NewChunkID(1, 0, 0))
	w := NewWorldQuery(mgr, 0)

	mgr.Get(core.NewChunkID(0, 0, 0)).Set(15, 2, cell.New(cell.MaterialStone).WithFlag(cell.FlagSolid))
	mgr.Get(core.NewChunkID(1, 0, 0)).Set(0, 2, cell.New(cell.MaterialStone).WithFlag(cell.FlagSolid))

	solids := w.BoxQuery(core.NewWorldCoord(14, 2), core.NewWorldCoord(17, 2))
	assert.Len(t, solids, 2)
	assert.Contains(t, solids, core.NewWorldCoord(15, 2))
	assert.Contains(t, solids, core.NewWorldCoord(16, 2))
}

func TestWorldFindGroundAndStand(t *testing.T) {
	mgr := worldWith(t, 16, core.NewChunkID(0, 0, 0))
	w := NewWorldQuery(mgr, 0)

	floor := mgr.Get(core.NewChunkID(0, 0, 0))
	for x := 0; x < 16; x++ {
		floor.Set(x, 5, cell.New(cell.MaterialStone).WithFlag(cell.FlagSolid))
	}

	y, ok := w.FindGround(8, 12)
	require.True(t, ok)
	assert.Equal(t, int64(5), y)
	assert.True(t, w.CanStandAt(8, 6, 2))
	assert.False(t, w.CanStandAt(8, 5, 2))
}
