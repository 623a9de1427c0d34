package chunk

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/klauspost/compress/s2"

	"github.com/dustfall/dustfall/sim/cell"
	"github.com/dustfall/dustfall/sim/core"
)

// Compression tags stored in the header.
const (
	CompressionNone uint8 = 0
	CompressionS2   uint8 = 1
)

// headerSize is the fixed encoded header length: magic 4, version 6,
// x 4, y 4, size 4, compression 1, layer 1.
const headerSize = 24

// Typed deserialization failures. Callers match with errors.Is and
// decide whether to surface or fall back to regeneration.
var (
	ErrTruncated          = errors.New("chunk data truncated")
	ErrBadMagic           = errors.New("bad chunk magic")
	ErrVersionMismatch    = errors.New("incompatible chunk schema version")
	ErrBadCompression     = errors.New("unknown compression tag")
	ErrCellLengthMismatch = errors.New("decompressed cell data length mismatch")
)

// Header describes one persisted chunk. The wire form is
// [u32 LE header length][header][compressed cells].
type Header struct {
	Version     core.SchemaVersion
	X           int32
	Y           int32
	Size        uint32
	Compression uint8
	Layer       uint8
}

func (h Header) encode() []byte {
	buf := make([]byte, headerSize)
	copy(buf[0:4], core.ChunkMagic)
	binary.LittleEndian.PutUint16(buf[4:6], h.Version.Major)
	binary.LittleEndian.PutUint16(buf[6:8], h.Version.Minor)
	binary.LittleEndian.PutUint16(buf[8:10], h.Version.Patch)
	binary.LittleEndian.PutUint32(buf[10:14], uint32(h.X))
	binary.LittleEndian.PutUint32(buf[14:18], uint32(h.Y))
	binary.LittleEndian.PutUint32(buf[18:22], h.Size)
	buf[22] = h.Compression
	buf[23] = h.Layer
	return buf
}

func decodeHeader(buf []byte) (Header, error) {
	if len(buf) < headerSize {
		return Header{}, fmt.Errorf("%w: header is %d bytes, need %d", ErrTruncated, len(buf), headerSize)
	}
	if string(buf[0:4]) != core.ChunkMagic {
		return Header{}, fmt.Errorf("%w: got %q", ErrBadMagic, buf[0:4])
	}
	h := Header{
		Version: core.SchemaVersion{
			Major: binary.LittleEndian.Uint16(buf[4:6]),
			Minor: binary.LittleEndian.Uint16(buf[6:8]),
			Patch: binary.LittleEndian.Uint16(buf[8:10]),
		},
		X:           int32(binary.LittleEndian.Uint32(buf[10:14])),
		Y:           int32(binary.LittleEndian.Uint32(buf[14:18])),
		Size:        binary.LittleEndian.Uint32(buf[18:22]),
		Compression: buf[22],
		Layer:       buf[23],
	}
	if !core.CurrentSchema.CompatibleWith(h.Version) {
		return Header{}, fmt.Errorf("%w: stored %s, reader %s", ErrVersionMismatch, h.Version, core.CurrentSchema)
	}
	return h, nil
}

// Encode serializes the chunk to its self-describing byte form. Cell
// bytes are s2 block-compressed; s2 embeds the uncompressed length so
// Decode can pre-allocate.
func Encode(c *Chunk) []byte {
	header := Header{
		Version:     core.CurrentSchema,
		X:           c.id.X,
		Y:           c.id.Y,
		Size:        c.size,
		Compression: CompressionS2,
		Layer:       c.id.Layer,
	}
	headerBytes := header.encode()

	var compressed []byte
	c.View(func(cells []cell.Cell, _ uint32) {
		compressed = s2.Encode(nil, cell.EncodeSlice(cells))
	})

	out := make([]byte, 0, 4+len(headerBytes)+len(compressed))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(headerBytes)))
	out = append(out, headerBytes...)
	out = append(out, compressed...)
	return out
}

// Decode reconstructs a chunk. Validation order: length prefix, magic,
// major version, then exact decompressed length. Any failure is a
// typed error, never a partial chunk.
func Decode(data []byte) (*Chunk, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: %d bytes, need length prefix", ErrTruncated, len(data))
	}
	headerLen := int(binary.LittleEndian.Uint32(data[0:4]))
	if len(data) < 4+headerLen {
		return nil, fmt.Errorf("%w: header claims %d bytes, have %d", ErrTruncated, headerLen, len(data)-4)
	}

	header, err := decodeHeader(data[4 : 4+headerLen])
	if err != nil {
		return nil, err
	}

	compressed := data[4+headerLen:]
	var cellBytes []byte
	switch header.Compression {
	case CompressionS2:
		cellBytes, err = s2.Decode(nil, compressed)
		if err != nil {
			return nil, fmt.Errorf("decompress chunk (%d, %d): %w", header.X, header.Y, err)
		}
	case CompressionNone:
		cellBytes = compressed
	default:
		return nil, fmt.Errorf("%w: %d", ErrBadCompression, header.Compression)
	}

	want := int(header.Size) * int(header.Size) * cell.Size
	if len(cellBytes) != want {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrCellLengthMismatch, len(cellBytes), want)
	}

	id := core.NewChunkID(header.X, header.Y, header.Layer)
	return FromCells(id, header.Size, cell.DecodeSlice(cellBytes))
}
