package core

import "fmt"

// WorldCoord is a global cell position in world space.
type WorldCoord struct {
	X int64
	Y int64
}

func NewWorldCoord(x, y int64) WorldCoord {
	return WorldCoord{X: x, Y: y}
}

// ToChunk returns the id of the chunk containing this coordinate.
// Uses Euclidean floor division, so negative coordinates map correctly
// (e.g. x=-1 with chunkSize=256 lands in chunk -1, not 0).
func (w WorldCoord) ToChunk(chunkSize uint32, layer uint8) ChunkID {
	size := int64(chunkSize)
	return ChunkID{
		X:     int32(floorDiv(w.X, size)),
		Y:     int32(floorDiv(w.Y, size)),
		Layer: layer,
	}
}

// ToLocal returns the position within its chunk, always in [0, chunkSize).
func (w WorldCoord) ToLocal(chunkSize uint32) LocalCoord {
	size := int64(chunkSize)
	return LocalCoord{
		X: uint16(floorMod(w.X, size)),
		Y: uint16(floorMod(w.Y, size)),
	}
}

// ChunkID identifies one chunk in the world grid. Layer 0 is the
// overworld; other layers are disjoint interior spaces. Comparable, so
// it serves as the key for all residency maps.
type ChunkID struct {
	X     int32
	Y     int32
	Layer uint8
}

func NewChunkID(x, y int32, layer uint8) ChunkID {
	return ChunkID{X: x, Y: y, Layer: layer}
}

// WorldOrigin returns the world position of the chunk's min corner.
func (c ChunkID) WorldOrigin(chunkSize uint32) WorldCoord {
	size := int64(chunkSize)
	return WorldCoord{
		X: int64(c.X) * size,
		Y: int64(c.Y) * size,
	}
}

func (c ChunkID) String() string {
	if c.Layer == 0 {
		return fmt.Sprintf("chunk(%d, %d)", c.X, c.Y)
	}
	return fmt.Sprintf("chunk(%d, %d, layer %d)", c.X, c.Y, c.Layer)
}

// LocalCoord is a position within a chunk, 0..chunkSize-1 per axis.
type LocalCoord struct {
	X uint16
	Y uint16
}

// Index converts to the row-major cell array index.
func (l LocalCoord) Index(chunkSize uint32) int {
	return int(l.Y)*int(chunkSize) + int(l.X)
}

// LocalFromIndex is the inverse of Index.
func LocalFromIndex(index int, chunkSize uint32) LocalCoord {
	size := int(chunkSize)
	return LocalCoord{
		X: uint16(index % size),
		Y: uint16(index / size),
	}
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	m := a % b
	if m != 0 && ((a < 0) != (b < 0)) {
		m += b
	}
	return m
}
