// Package chunk implements the storage unit of the world: fixed-size
// square tiles of cells with per-chunk locking, persistence, and a
// resident-chunk manager.
package chunk

import (
	"fmt"
	"sync"

	"github.com/dustfall/dustfall/sim/cell"
	"github.com/dustfall/dustfall/sim/core"
)

// DefaultSize is the standard chunk edge length in cells.
const DefaultSize uint32 = 256

// Chunk owns size*size cells in row-major order. The embedded lock is
// the unit of mutual exclusion: readers (queries, rendering) and
// writers (gameplay, simulation writeback) serialize per chunk, never
// globally. The dirty flag tracks mutation since the last persist.
type Chunk struct {
	mu      sync.RWMutex
	id      core.ChunkID
	size    uint32
	cells   []cell.Cell
	dirty   bool
	version uint64
}

// New returns a chunk filled with ambient air.
func New(id core.ChunkID, size uint32) *Chunk {
	cells := make([]cell.Cell, int(size)*int(size))
	air := cell.Air()
	for i := range cells {
		cells[i] = air
	}
	return &Chunk{id: id, size: size, cells: cells}
}

// FromCells wraps generated or deserialized cells. The slice length
// must be size*size; ownership transfers to the chunk.
func FromCells(id core.ChunkID, size uint32, cells []cell.Cell) (*Chunk, error) {
	if len(cells) != int(size)*int(size) {
		return nil, fmt.Errorf("cell count %d does not match size %d", len(cells), size)
	}
	return &Chunk{id: id, size: size, cells: cells}, nil
}

func (c *Chunk) ID() core.ChunkID { return c.id }
func (c *Chunk) Size() uint32     { return c.size }

// Get returns the cell at local coordinates. Out-of-bounds reads
// return air, matching the query engine's "outside is empty" rule.
func (c *Chunk) Get(x, y int) cell.Cell {
	if x < 0 || y < 0 || x >= int(c.size) || y >= int(c.size) {
		return cell.Air()
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cells[y*int(c.size)+x]
}

// Set writes the cell at local coordinates and marks the chunk dirty.
// Out-of-bounds writes are dropped.
func (c *Chunk) Set(x, y int, v cell.Cell) {
	if x < 0 || y < 0 || x >= int(c.size) || y >= int(c.size) {
		return
	}
	c.mu.Lock()
	c.cells[y*int(c.size)+x] = v
	c.dirty = true
	c.version++
	c.mu.Unlock()
}

// Fill overwrites every cell and marks the chunk dirty.
func (c *Chunk) Fill(v cell.Cell) {
	c.mu.Lock()
	for i := range c.cells {
		c.cells[i] = v
	}
	c.dirty = true
	c.version++
	c.mu.Unlock()
}

// ReplaceCells swaps in a full cell array, e.g. after a GPU readback.
// Length must match size*size.
func (c *Chunk) ReplaceCells(cells []cell.Cell) error {
	if len(cells) != len(c.cells) {
		return fmt.Errorf("cell count %d does not match chunk %v", len(cells), c.id)
	}
	c.mu.Lock()
	c.cells = cells
	c.dirty = true
	c.version++
	c.mu.Unlock()
	return nil
}

// Snapshot copies the cell array under the read lock.
func (c *Chunk) Snapshot() []cell.Cell {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]cell.Cell, len(c.cells))
	copy(out, c.cells)
	return out
}

// View runs fn against the cell array under the read lock. fn must not
// retain the slice or mutate through it.
func (c *Chunk) View(fn func(cells []cell.Cell, size uint32)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn(c.cells, c.size)
}

// Dirty reports whether the chunk changed since the last MarkClean.
func (c *Chunk) Dirty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dirty
}

// MarkClean clears the dirty flag, called after a successful persist.
func (c *Chunk) MarkClean() {
	c.mu.Lock()
	c.dirty = false
	c.mu.Unlock()
}

// Version increments on every mutation. GPU upload tracking uses it to
// skip unchanged chunks.
func (c *Chunk) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}
