package dustfall

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/dustfall/dustfall/sim/cell"
	"github.com/dustfall/dustfall/sim/chunk"
	"github.com/dustfall/dustfall/sim/collide"
	"github.com/dustfall/dustfall/sim/core"
	"github.com/dustfall/dustfall/sim/intent"
	"github.com/dustfall/dustfall/sim/stream"
	"github.com/dustfall/dustfall/sim/worldgen"
)

// FrameStats summarizes one Step.
type FrameStats struct {
	Loaded          int
	Unloaded        int
	Resident        int
	IntentsUploaded int
}

// DispatchFunc is the compute collaborator invoked between intent
// upload and clear. It receives the intents uploaded this frame.
type DispatchFunc func(intents *intent.Buffer) error

// World owns the simulation substrate for one layer: material table,
// chunk residency, streaming, procedural generation, and the intent
// buffer. It enforces the frame ordering contract: streaming first,
// then intent upload, then dispatch, then clear.
type World struct {
	cfg       Config
	meta      Meta
	materials *cell.MaterialTable

	manager  *chunk.Manager
	streamer *stream.Streamer
	gen      *worldgen.Generator
	intents  *intent.Buffer

	store  chunk.Store
	device *wgpu.Device
	log    core.Logger
}

// NewWorld builds a world from a validated config. A nil device runs
// headless: intents queue and clear but never reach a GPU.
func NewWorld(cfg Config, device *wgpu.Device, logger core.Logger) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := core.OrNop(logger)
	log.SetDebug(cfg.Debug)

	materials, err := loadMaterialTable(cfg)
	if err != nil {
		return nil, err
	}

	var (
		store chunk.Store
		meta  Meta
	)
	if cfg.SaveDir != "" {
		if err := os.MkdirAll(cfg.SaveDir, 0o755); err != nil {
			return nil, fmt.Errorf("create save dir: %w", err)
		}
		meta, err = loadOrCreateMeta(cfg.SaveDir, cfg.Seed)
		if err != nil {
			return nil, err
		}
		store, err = openStore(cfg, log)
		if err != nil {
			return nil, err
		}
	} else {
		meta = newMeta(cfg.Seed)
	}

	gen := worldgen.NewWithParams(cfg.Seed, cfg.Generation, log)
	manager, err := chunk.NewManager(store, gen, cfg.ChunkSize, log)
	if err != nil {
		return nil, err
	}
	streamer, err := stream.New(cfg.LoadRadius, cfg.UnloadRadius, cfg.ChunkSize, cfg.Layer, log)
	if err != nil {
		return nil, err
	}
	intents, err := intent.NewBuffer(device, log)
	if err != nil {
		return nil, err
	}

	log.Infof("world %s ready (seed %d, chunk size %d, layer %d)",
		meta.ID, cfg.Seed, cfg.ChunkSize, cfg.Layer)
	return &World{
		cfg:       cfg,
		meta:      meta,
		materials: materials,
		manager:   manager,
		streamer:  streamer,
		gen:       gen,
		intents:   intents,
		store:     store,
		device:    device,
		log:       log,
	}, nil
}

func loadMaterialTable(cfg Config) (*cell.MaterialTable, error) {
	var table *cell.MaterialTable
	if cfg.MaterialsFile != "" {
		t, err := cell.LoadMaterialsFile(cfg.MaterialsFile)
		if err != nil {
			return nil, err
		}
		table = t
	} else {
		table = cell.NewMaterialTable()
	}
	if err := worldgen.RegisterMaterials(table); err != nil {
		return nil, err
	}
	return table, nil
}

func openStore(cfg Config, log core.Logger) (chunk.Store, error) {
	chunkDir := filepath.Join(cfg.SaveDir, "chunks")
	switch cfg.Store {
	case StoreRegion:
		return chunk.NewRegionStore(chunkDir, log)
	default:
		return chunk.NewDirStore(chunkDir)
	}
}

// Meta returns the world's save identity.
func (w *World) Meta() Meta { return w.meta }

// Materials returns the material table, including generator materials.
func (w *World) Materials() *cell.MaterialTable { return w.materials }

// Manager exposes chunk residency for collaborators.
func (w *World) Manager() *chunk.Manager { return w.manager }

// Intents exposes the intent buffer, e.g. for bind group creation.
func (w *World) Intents() *intent.Buffer { return w.intents }

// Enqueue queues one intent for the next Step. Returns false when the
// frame budget is exhausted and the intent was dropped.
func (w *World) Enqueue(in intent.Intent) bool {
	return w.intents.Push(in)
}

// EnqueueAll queues a batch, returning how many were accepted.
func (w *World) EnqueueAll(ins []intent.Intent) int {
	return w.intents.PushMany(ins)
}

// Step runs one frame: recenter streaming on the observer, process
// unloads and budgeted loads, upload queued intents, invoke the
// compute dispatch, then clear the intent queue. Upload always
// precedes dispatch and clear always follows it; callers never manage
// that ordering themselves.
func (w *World) Step(observer core.WorldCoord, dispatch DispatchFunc) (FrameStats, error) {
	w.streamer.Update(observer)
	loaded, unloaded := w.streamer.ProcessFrame(w.manager)

	stats := FrameStats{
		Loaded:          loaded,
		Unloaded:        unloaded,
		Resident:        w.manager.LoadedCount(),
		IntentsUploaded: w.intents.Len(),
	}

	var queue *wgpu.Queue
	if w.device != nil {
		queue = w.device.GetQueue()
	}
	w.intents.Upload(queue)

	if dispatch != nil {
		if err := dispatch(w.intents); err != nil {
			return stats, fmt.Errorf("compute dispatch: %w", err)
		}
	}
	w.intents.Clear()
	return stats, nil
}

// QueryAt builds a collision query over one resident chunk, or nil if
// the chunk is not loaded.
func (w *World) QueryAt(id core.ChunkID) *collide.Query {
	c := w.manager.Get(id)
	if c == nil {
		return nil
	}
	return collide.FromChunk(c)
}

// Query returns a world-spanning collision view over resident chunks.
func (w *World) Query() *collide.WorldQuery {
	return collide.NewWorldQuery(w.manager, w.cfg.Layer)
}

// Save persists every dirty resident chunk.
func (w *World) Save() error {
	return w.manager.FlushAll()
}

// Close saves, releases GPU resources, and shuts the generator down.
func (w *World) Close() error {
	err := w.Save()
	w.intents.Release()
	if closer, ok := w.store.(interface{ Close() error }); ok {
		if cerr := closer.Close(); err == nil {
			err = cerr
		}
	}
	if cerr := w.gen.Close(); err == nil {
		err = cerr
	}
	return err
}
