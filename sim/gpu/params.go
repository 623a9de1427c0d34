// Package gpu owns the GPU side of the simulation substrate: the
// compute pipeline, double-buffered cell storage, and readback.
package gpu

import "encoding/binary"

// ParamsSize is the packed byte size of Params, padded for uniform
// buffer alignment.
const ParamsSize = 16

// Params is the per-dispatch uniform block the simulation shader reads.
type Params struct {
	ChunkSize uint32
	Frame     uint32
	Seed      uint32
}

// NewParams returns params for a chunk at frame zero.
func NewParams(chunkSize, seed uint32) Params {
	return Params{ChunkSize: chunkSize, Seed: seed}
}

// AdvanceFrame bumps the frame counter the shader uses for temporal
// dithering.
func (p *Params) AdvanceFrame() {
	p.Frame++
}

// EncodeTo packs the params into dst, which must hold at least
// ParamsSize bytes.
func (p Params) EncodeTo(dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:4], p.ChunkSize)
	binary.LittleEndian.PutUint32(dst[4:8], p.Frame)
	binary.LittleEndian.PutUint32(dst[8:12], p.Seed)
	binary.LittleEndian.PutUint32(dst[12:16], 0)
}

// workgroupDim is the shader's workgroup edge; dispatch size is the
// chunk edge divided by this, rounded up.
const workgroupDim = 16

// WorkgroupsFor returns the dispatch grid edge for a chunk size.
func WorkgroupsFor(chunkSize uint32) uint32 {
	return (chunkSize + workgroupDim - 1) / workgroupDim
}
