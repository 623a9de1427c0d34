// Package stream keeps a bounded window of chunks resident around a
// moving observer, budgeting load work per frame.
package stream

import (
	"fmt"

	"github.com/dustfall/dustfall/sim/chunk"
	"github.com/dustfall/dustfall/sim/core"
)

// Default streaming radii, in chunks.
const (
	DefaultLoadRadius   uint32 = 3
	DefaultUnloadRadius uint32 = 5
)

// MaxLoadsPerFrame bounds how many chunk loads one frame performs.
// Loading blocks on disk or generation, so the budget is what keeps
// the frame from hitching.
const MaxLoadsPerFrame = 2

// State is a chunk's position in the streaming lifecycle.
type State uint8

const (
	Unloaded State = iota
	PendingLoad
	Loaded
	PendingUnload
)

func (s State) String() string {
	switch s {
	case PendingLoad:
		return "pending-load"
	case Loaded:
		return "loaded"
	case PendingUnload:
		return "pending-unload"
	}
	return "unloaded"
}

// Streamer tracks the observer and maintains the invariant: every
// chunk within loadRadius is (eventually) resident, every chunk past
// unloadRadius is not. Queues rebuild wholesale whenever the observer
// crosses into a new chunk, so stale entries never survive a recenter.
type Streamer struct {
	loadRadius   uint32
	unloadRadius uint32
	chunkSize    uint32
	layer        uint8

	pendingLoads   []core.ChunkID
	pendingUnloads []core.ChunkID
	loaded         map[core.ChunkID]struct{}
	lastCenter     *core.ChunkID
	log            core.Logger
}

// New builds a streamer. unloadRadius must strictly exceed loadRadius;
// overlapping radii oscillate chunks forever, so the mistake fails
// construction instead of being clamped.
func New(loadRadius, unloadRadius, chunkSize uint32, layer uint8, logger core.Logger) (*Streamer, error) {
	if unloadRadius <= loadRadius {
		return nil, fmt.Errorf("unload radius %d must be greater than load radius %d", unloadRadius, loadRadius)
	}
	if chunkSize == 0 {
		return nil, fmt.Errorf("chunk size must be positive")
	}
	return &Streamer{
		loadRadius:   loadRadius,
		unloadRadius: unloadRadius,
		chunkSize:    chunkSize,
		layer:        layer,
		loaded:       make(map[core.ChunkID]struct{}),
		log:          core.OrNop(logger),
	}, nil
}

// WithDefaults builds a streamer with the standard radii.
func WithDefaults(chunkSize uint32, layer uint8, logger core.Logger) (*Streamer, error) {
	return New(DefaultLoadRadius, DefaultUnloadRadius, chunkSize, layer, logger)
}

func (s *Streamer) LoadRadius() uint32   { return s.loadRadius }
func (s *Streamer) UnloadRadius() uint32 { return s.unloadRadius }
func (s *Streamer) LoadedCount() int     { return len(s.loaded) }

// Update recenters the streamer on an observer position. Queues are
// rebuilt only when the observer enters a different chunk.
func (s *Streamer) Update(center core.WorldCoord) {
	centerChunk := center.ToChunk(s.chunkSize, s.layer)
	if s.lastCenter != nil && *s.lastCenter == centerChunk {
		return
	}
	c := centerChunk
	s.lastCenter = &c
	s.recalculate(centerChunk)
}

// recalculate replaces both queues from scratch for a new center.
func (s *Streamer) recalculate(center core.ChunkID) {
	s.pendingLoads = s.pendingLoads[:0]
	s.pendingUnloads = s.pendingUnloads[:0]

	// Spiral order doubles as load priority: nearer rings first.
	for _, id := range SpiralChunks(center, s.loadRadius) {
		if _, ok := s.loaded[id]; !ok {
			s.pendingLoads = append(s.pendingLoads, id)
		}
	}

	threshold := int32(s.unloadRadius)
	for id := range s.loaded {
		dx := abs32(id.X - center.X)
		dy := abs32(id.Y - center.Y)
		if dx > threshold || dy > threshold {
			s.pendingUnloads = append(s.pendingUnloads, id)
		}
	}

	s.log.Debugf("recentered on %v: %d loads, %d unloads pending",
		center, len(s.pendingLoads), len(s.pendingUnloads))
}

// SpiralChunks enumerates ids center-first, then concentric square
// rings outward, each traversed top, right, bottom, left. The order is
// deterministic and is what frame budgeting truncates against.
func SpiralChunks(center core.ChunkID, radius uint32) []core.ChunkID {
	result := make([]core.ChunkID, 0, (2*int(radius)+1)*(2*int(radius)+1))
	result = append(result, center)

	for ring := int32(1); ring <= int32(radius); ring++ {
		// Each edge spans 2*ring cells and owns exactly one corner, so
		// the four edges tile the ring without gaps or repeats.
		// Top edge, left to right, from the top-left corner.
		for x := -ring; x < ring; x++ {
			result = append(result, core.NewChunkID(center.X+x, center.Y+ring, center.Layer))
		}
		// Right edge, top to bottom, from the top-right corner.
		for y := ring; y > -ring; y-- {
			result = append(result, core.NewChunkID(center.X+ring, center.Y+y, center.Layer))
		}
		// Bottom edge, right to left, from the bottom-right corner.
		for x := ring; x > -ring; x-- {
			result = append(result, core.NewChunkID(center.X+x, center.Y-ring, center.Layer))
		}
		// Left edge, bottom to top, from the bottom-left corner.
		for y := -ring; y < ring; y++ {
			result = append(result, core.NewChunkID(center.X-ring, center.Y+y, center.Layer))
		}
	}
	return result
}

// ProcessFrame drains the whole unload queue, then performs up to
// MaxLoadsPerFrame loads. Returns how many chunks loaded and unloaded;
// leftover loads carry to the next frame. A failed load is logged and
// retried on the next recenter rather than wedging the queue.
func (s *Streamer) ProcessFrame(mgr *chunk.Manager) (loaded, unloaded int) {
	for _, id := range s.pendingUnloads {
		if _, ok := s.loaded[id]; !ok {
			continue
		}
		delete(s.loaded, id)
		if err := mgr.Unload(id); err != nil {
			s.log.Errorf("unload %v: %v", id, err)
		}
		unloaded++
	}
	s.pendingUnloads = s.pendingUnloads[:0]

	for loaded < MaxLoadsPerFrame && len(s.pendingLoads) > 0 {
		id := s.pendingLoads[0]
		s.pendingLoads = s.pendingLoads[1:]
		if _, ok := s.loaded[id]; ok {
			continue
		}
		if _, err := mgr.Load(id); err != nil {
			s.log.Errorf("load %v: %v", id, err)
			continue
		}
		s.loaded[id] = struct{}{}
		loaded++
	}
	return loaded, unloaded
}

// ChunkState reports where a chunk sits in the streaming lifecycle.
// PendingLoad wins over PendingUnload: a chunk queued to load has
// never been resident, so it cannot be awaiting unload.
func (s *Streamer) ChunkState(id core.ChunkID) State {
	for _, p := range s.pendingLoads {
		if p == id {
			return PendingLoad
		}
	}
	for _, p := range s.pendingUnloads {
		if p == id {
			return PendingUnload
		}
	}
	if _, ok := s.loaded[id]; ok {
		return Loaded
	}
	return Unloaded
}

// PendingLoads exposes the load queue for inspection.
func (s *Streamer) PendingLoads() []core.ChunkID { return s.pendingLoads }

// PendingUnloads exposes the unload queue for inspection.
func (s *Streamer) PendingUnloads() []core.ChunkID { return s.pendingUnloads }

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
