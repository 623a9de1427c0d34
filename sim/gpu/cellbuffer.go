package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/dustfall/dustfall/sim/cell"
	"github.com/dustfall/dustfall/sim/core"
	"github.com/dustfall/dustfall/sim/intent"
)

// CellBuffer is double-buffered cell storage for one chunk. Each step
// reads the whole input buffer and writes the output buffer, then the
// roles swap. The shader never reads a buffer being written, so a
// frame's state is always consistent.
type CellBuffer struct {
	bufA      *wgpu.Buffer
	bufB      *wgpu.Buffer
	materials *wgpu.Buffer
	paramsBuf *wgpu.Buffer

	bindAToB *wgpu.BindGroup
	bindBToA *wgpu.BindGroup

	params    Params
	aIsInput  bool
	chunkSize uint32
	log       core.Logger
}

// NewCellBuffer allocates both cell buffers filled with initial cells,
// the material table, and the params uniform, and prebuilds bind
// groups for both directions. initial must hold chunkSize^2 cells.
func NewCellBuffer(device *wgpu.Device, pipeline *Pipeline, intents *intent.Buffer,
	table *cell.MaterialTable, chunkSize uint32, initial []cell.Cell, logger core.Logger) (*CellBuffer, error) {

	log := core.OrNop(logger)
	count := int(chunkSize) * int(chunkSize)
	if len(initial) != count {
		return nil, fmt.Errorf("cell count %d does not match chunk size %d", len(initial), chunkSize)
	}
	log.Debugf("creating double-buffered cell storage (%dx%d, %d cells)", chunkSize, chunkSize, count)

	cb := &CellBuffer{
		params:    NewParams(chunkSize, 0),
		aIsInput:  true,
		chunkSize: chunkSize,
		log:       log,
	}

	cellBytes := cell.EncodeSlice(initial)
	var err error
	if cb.bufA, err = createStorageBuffer(device, "CellBufferA", cellBytes); err != nil {
		return nil, err
	}
	if cb.bufB, err = createStorageBuffer(device, "CellBufferB", cellBytes); err != nil {
		cb.Release()
		return nil, err
	}
	if cb.materials, err = createStorageBuffer(device, "MaterialsBuffer", table.EncodeTable()); err != nil {
		cb.Release()
		return nil, err
	}

	var paramBytes [ParamsSize]byte
	cb.params.EncodeTo(paramBytes[:])
	cb.paramsBuf, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            "SimParams",
		Size:             ParamsSize,
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		cb.Release()
		return nil, err
	}
	device.GetQueue().WriteBuffer(cb.paramsBuf, 0, paramBytes[:])

	ib := intents.GPUBuffer()
	if cb.bindAToB, err = pipeline.CreateBindGroup(device, cb.bufA, cb.bufB, cb.materials, cb.paramsBuf, ib); err != nil {
		cb.Release()
		return nil, err
	}
	if cb.bindBToA, err = pipeline.CreateBindGroup(device, cb.bufB, cb.bufA, cb.materials, cb.paramsBuf, ib); err != nil {
		cb.Release()
		return nil, err
	}
	return cb, nil
}

func createStorageBuffer(device *wgpu.Device, label string, data []byte) (*wgpu.Buffer, error) {
	buf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             uint64(len(data)),
		Usage:            wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	device.GetQueue().WriteBuffer(buf, 0, data)
	return buf, nil
}

// Step records and submits one simulation dispatch, then swaps the
// buffer roles.
func (cb *CellBuffer) Step(device *wgpu.Device, pipeline *Pipeline) error {
	cb.params.AdvanceFrame()
	var paramBytes [ParamsSize]byte
	cb.params.EncodeTo(paramBytes[:])
	queue := device.GetQueue()
	queue.WriteBuffer(cb.paramsBuf, 0, paramBytes[:])

	encoder, err := device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("create sim encoder: %w", err)
	}

	bind := cb.bindAToB
	if !cb.aIsInput {
		bind = cb.bindBToA
	}
	pipeline.Dispatch(encoder, bind, cb.chunkSize)

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("finish sim encoder: %w", err)
	}
	queue.Submit(cmd)

	cb.aIsInput = !cb.aIsInput
	return nil
}

// CurrentBuffer returns the buffer holding the latest simulation
// state, i.e. the one the last Step wrote.
func (cb *CellBuffer) CurrentBuffer() *wgpu.Buffer {
	if cb.aIsInput {
		return cb.bufA
	}
	return cb.bufB
}

// InputBuffer returns the buffer the next Step will read.
func (cb *CellBuffer) InputBuffer() *wgpu.Buffer { return cb.CurrentBuffer() }

// OutputBuffer returns the buffer the next Step will write.
func (cb *CellBuffer) OutputBuffer() *wgpu.Buffer {
	if cb.aIsInput {
		return cb.bufB
	}
	return cb.bufA
}

// UploadCells overwrites the input buffer with CPU-side state, e.g.
// after loading a chunk from disk.
func (cb *CellBuffer) UploadCells(queue *wgpu.Queue, cells []cell.Cell) error {
	count := int(cb.chunkSize) * int(cb.chunkSize)
	if len(cells) != count {
		return fmt.Errorf("cell count %d does not match chunk size %d", len(cells), cb.chunkSize)
	}
	queue.WriteBuffer(cb.InputBuffer(), 0, cell.EncodeSlice(cells))
	return nil
}

// UpdateMaterials rewrites the material table buffer.
func (cb *CellBuffer) UpdateMaterials(queue *wgpu.Queue, table *cell.MaterialTable) {
	queue.WriteBuffer(cb.materials, 0, table.EncodeTable())
}

// MaterialsBuffer returns the material table storage buffer.
func (cb *CellBuffer) MaterialsBuffer() *wgpu.Buffer { return cb.materials }

func (cb *CellBuffer) ChunkSize() uint32 { return cb.chunkSize }
func (cb *CellBuffer) Frame() uint32     { return cb.params.Frame }

// ByteSize returns the size of one cell buffer.
func (cb *CellBuffer) ByteSize() uint64 {
	return uint64(int(cb.chunkSize) * int(cb.chunkSize) * cell.Size)
}

// Release frees all GPU resources. Safe on a partially built buffer.
func (cb *CellBuffer) Release() {
	for _, b := range []*wgpu.Buffer{cb.bufA, cb.bufB, cb.materials, cb.paramsBuf} {
		if b != nil {
			b.Release()
		}
	}
	cb.bufA, cb.bufB, cb.materials, cb.paramsBuf = nil, nil, nil, nil
	if cb.bindAToB != nil {
		cb.bindAToB.Release()
		cb.bindAToB = nil
	}
	if cb.bindBToA != nil {
		cb.bindBToA.Release()
		cb.bindBToA = nil
	}
}
