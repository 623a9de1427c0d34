package chunk

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dustfall/dustfall/sim/cell"
	"github.com/dustfall/dustfall/sim/core"
)

// Generator materializes cells for a chunk that has never been
// persisted. Implementations must be deterministic per id.
type Generator interface {
	Generate(id core.ChunkID, size uint32) ([]cell.Cell, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(id core.ChunkID, size uint32) ([]cell.Cell, error)

func (f GeneratorFunc) Generate(id core.ChunkID, size uint32) ([]cell.Cell, error) {
	return f(id, size)
}

// Manager owns the resident chunk map. Chunks are materialized on
// first access, preferring persisted data over generation, and flushed
// back to the store on unload when dirty. Residency mutations happen
// on the frame thread; the map itself is guarded so queries from other
// goroutines stay safe.
type Manager struct {
	mu    sync.RWMutex
	live  map[core.ChunkID]*Chunk
	store Store
	gen   Generator
	size  uint32
	log   core.Logger
}

// NewManager builds a manager. store may be nil (nothing persists,
// everything regenerates); gen may be nil (missing chunks come up as
// air).
func NewManager(store Store, gen Generator, size uint32, logger core.Logger) (*Manager, error) {
	if size == 0 {
		return nil, errors.New("chunk size must be positive")
	}
	return &Manager{
		live:  make(map[core.ChunkID]*Chunk),
		store: store,
		gen:   gen,
		size:  size,
		log:   core.OrNop(logger),
	}, nil
}

func (m *Manager) ChunkSize() uint32 { return m.size }

// Get returns the resident chunk or nil.
func (m *Manager) Get(id core.ChunkID) *Chunk {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.live[id]
}

// IsLoaded reports residency.
func (m *Manager) IsLoaded(id core.ChunkID) bool {
	return m.Get(id) != nil
}

// LoadedCount returns the number of resident chunks.
func (m *Manager) LoadedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.live)
}

// Each calls fn for every resident chunk.
func (m *Manager) Each(fn func(*Chunk)) {
	m.mu.RLock()
	chunks := make([]*Chunk, 0, len(m.live))
	for _, c := range m.live {
		chunks = append(chunks, c)
	}
	m.mu.RUnlock()
	for _, c := range chunks {
		fn(c)
	}
}

// Load materializes a chunk: no-op if resident, else persisted data,
// else the generator, else plain air. A corrupt save is logged and
// falls back to regeneration rather than failing the frame.
func (m *Manager) Load(id core.ChunkID) (*Chunk, error) {
	m.mu.RLock()
	c := m.live[id]
	m.mu.RUnlock()
	if c != nil {
		return c, nil
	}

	c, err := m.materialize(id)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if existing := m.live[id]; existing != nil {
		m.mu.Unlock()
		return existing, nil
	}
	m.live[id] = c
	m.mu.Unlock()

	m.log.Debugf("loaded %v (%d resident)", id, m.LoadedCount())
	return c, nil
}

func (m *Manager) materialize(id core.ChunkID) (*Chunk, error) {
	if m.store != nil {
		data, err := m.store.Load(id)
		switch {
		case err == nil:
			c, err := Decode(data)
			if err == nil {
				c.MarkClean()
				return c, nil
			}
			m.log.Warnf("corrupt save for %v, regenerating: %v", id, err)
		case errors.Is(err, ErrNotFound):
			// fresh chunk, fall through to generation
		default:
			return nil, err
		}
	}

	if m.gen == nil {
		return New(id, m.size), nil
	}
	cells, err := m.gen.Generate(id, m.size)
	if err != nil {
		return nil, fmt.Errorf("generate %v: %w", id, err)
	}
	c, err := FromCells(id, m.size, cells)
	if err != nil {
		return nil, fmt.Errorf("generate %v: %w", id, err)
	}
	c.markGenerated()
	return c, nil
}

// markGenerated flags fresh procedural content dirty so it persists on
// first unload.
func (c *Chunk) markGenerated() {
	c.mu.Lock()
	c.dirty = true
	c.mu.Unlock()
}

// Unload evicts a chunk, flushing it first when dirty. Unloading a
// non-resident chunk is a no-op.
func (m *Manager) Unload(id core.ChunkID) error {
	m.mu.Lock()
	c := m.live[id]
	delete(m.live, id)
	m.mu.Unlock()
	if c == nil {
		return nil
	}
	return m.flush(c)
}

// FlushAll persists every dirty resident chunk, e.g. on save or exit.
// Returns the first error but attempts every chunk.
func (m *Manager) FlushAll() error {
	var first error
	m.Each(func(c *Chunk) {
		if err := m.flush(c); err != nil && first == nil {
			first = err
		}
	})
	return first
}

func (m *Manager) flush(c *Chunk) error {
	if m.store == nil || !c.Dirty() {
		return nil
	}
	if err := m.store.Save(c.ID(), Encode(c)); err != nil {
		return fmt.Errorf("flush %v: %w", c.ID(), err)
	}
	c.MarkClean()
	m.log.Debugf("flushed %v", c.ID())
	return nil
}

// ChunkAtWorld returns the resident chunk containing a world
// coordinate, or nil.
func (m *Manager) ChunkAtWorld(pos core.WorldCoord, layer uint8) *Chunk {
	return m.Get(pos.ToChunk(m.size, layer))
}
