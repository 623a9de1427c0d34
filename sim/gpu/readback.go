package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/dustfall/dustfall/sim/cell"
	"github.com/dustfall/dustfall/sim/core"
)

// Readback copies simulation state from a storage buffer into a
// mappable staging buffer so the CPU can observe it. Storage buffers
// cannot be mapped directly, so every readback goes through the
// staging copy.
type Readback struct {
	staging *wgpu.Buffer
	size    uint64
	log     core.Logger
}

// NewReadback allocates a staging buffer large enough for one chunk's
// cells.
func NewReadback(device *wgpu.Device, chunkSize uint32, logger core.Logger) (*Readback, error) {
	size := uint64(int(chunkSize) * int(chunkSize) * cell.Size)
	staging, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            "CellReadbackStaging",
		Size:             size,
		Usage:            wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, fmt.Errorf("create readback staging buffer: %w", err)
	}
	return &Readback{staging: staging, size: size, log: core.OrNop(logger)}, nil
}

// CopyFrom records a copy of src into the staging buffer. The copy
// executes when the encoder's command buffer is submitted.
func (r *Readback) CopyFrom(encoder *wgpu.CommandEncoder, src *wgpu.Buffer) {
	encoder.CopyBufferToBuffer(src, 0, r.staging, 0, r.size)
}

// ReadCells maps the staging buffer, decodes its contents, and unmaps.
// Blocks until the map completes, so call it only after the copy has
// been submitted.
func (r *Readback) ReadCells(device *wgpu.Device) ([]cell.Cell, error) {
	var mapErr error
	done := false
	r.staging.MapAsync(wgpu.MapModeRead, 0, r.staging.GetSize(), func(status wgpu.BufferMapAsyncStatus) {
		done = true
		if status != wgpu.BufferMapAsyncStatusSuccess {
			mapErr = fmt.Errorf("map readback buffer: status %v", status)
		}
	})
	for !done {
		device.Poll(true, nil)
	}
	if mapErr != nil {
		return nil, mapErr
	}
	defer r.staging.Unmap()

	data := r.staging.GetMappedRange(0, uint(r.size))
	if data == nil {
		return nil, fmt.Errorf("readback buffer mapped range unavailable")
	}
	return cell.DecodeSlice(data), nil
}

// Snapshot submits a copy of src and reads it back in one call. This
// stalls the pipeline and exists for persistence flushes and tests,
// not the frame loop.
func (r *Readback) Snapshot(device *wgpu.Device, src *wgpu.Buffer) ([]cell.Cell, error) {
	encoder, err := device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("create readback encoder: %w", err)
	}
	r.CopyFrom(encoder, src)
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("finish readback encoder: %w", err)
	}
	device.GetQueue().Submit(cmd)
	return r.ReadCells(device)
}

// Release frees the staging buffer.
func (r *Readback) Release() {
	if r.staging != nil {
		r.staging.Release()
		r.staging = nil
	}
}
