// Package cell defines the packed per-pixel state of the simulation and
// the material property table it indexes into.
package cell

import "encoding/binary"

// Flag bits for Cell.Flags. Each named flag owns a distinct bit so
// flags compose independently.
const (
	FlagSolid    uint8 = 1 << 0
	FlagLiquid   uint8 = 1 << 1
	FlagBurning  uint8 = 1 << 2
	FlagElectric uint8 = 1 << 3
	FlagUpdated  uint8 = 1 << 4
)

// Size is the packed byte size of one Cell. The GPU-side struct and
// the on-disk format both assume exactly this layout.
const Size = 8

// DefaultTemperature is ambient room temperature in the encoded range.
const DefaultTemperature uint8 = 20

// Cell is one simulated pixel. The field order matches the packed
// little-endian wire layout: material u16, flags u8, temperature u8,
// velocity x/y i8, data u16.
type Cell struct {
	Material    uint16
	Flags       uint8
	Temperature uint8
	VelocityX   int8
	VelocityY   int8
	Data        uint16
}

// New returns a cell of the given material at ambient temperature.
func New(material uint16) Cell {
	return Cell{Material: material, Temperature: DefaultTemperature}
}

// Air returns an empty cell. Material 0 always means empty.
func Air() Cell {
	return New(0)
}

func (c Cell) IsEmpty() bool    { return c.Material == 0 }
func (c Cell) IsSolid() bool    { return c.Flags&FlagSolid != 0 }
func (c Cell) IsLiquid() bool   { return c.Flags&FlagLiquid != 0 }
func (c Cell) IsBurning() bool  { return c.Flags&FlagBurning != 0 }
func (c Cell) IsElectric() bool { return c.Flags&FlagElectric != 0 }

// WithFlag returns a copy with the given flag bits set.
func (c Cell) WithFlag(flag uint8) Cell {
	c.Flags |= flag
	return c
}

// WithoutFlag returns a copy with the given flag bits cleared.
func (c Cell) WithoutFlag(flag uint8) Cell {
	c.Flags &^= flag
	return c
}

// WithTemperature returns a copy with temperature set.
func (c Cell) WithTemperature(temp uint8) Cell {
	c.Temperature = temp
	return c
}

// WithVelocity returns a copy with per-axis velocity set.
func (c Cell) WithVelocity(vx, vy int8) Cell {
	c.VelocityX = vx
	c.VelocityY = vy
	return c
}

// WithBiome returns a copy with the biome id in the low byte of Data.
func (c Cell) WithBiome(biome uint8) Cell {
	c.Data = (c.Data & 0xFF00) | uint16(biome)
	return c
}

// WithElevation returns a copy with the elevation in the high byte of Data.
func (c Cell) WithElevation(elevation uint8) Cell {
	c.Data = (c.Data & 0x00FF) | uint16(elevation)<<8
	return c
}

// EncodeTo packs the cell into dst, which must hold at least Size bytes.
func (c Cell) EncodeTo(dst []byte) {
	binary.LittleEndian.PutUint16(dst[0:2], c.Material)
	dst[2] = c.Flags
	dst[3] = c.Temperature
	dst[4] = uint8(c.VelocityX)
	dst[5] = uint8(c.VelocityY)
	binary.LittleEndian.PutUint16(dst[6:8], c.Data)
}

// Decode unpacks a cell from src, which must hold at least Size bytes.
func Decode(src []byte) Cell {
	return Cell{
		Material:    binary.LittleEndian.Uint16(src[0:2]),
		Flags:       src[2],
		Temperature: src[3],
		VelocityX:   int8(src[4]),
		VelocityY:   int8(src[5]),
		Data:        binary.LittleEndian.Uint16(src[6:8]),
	}
}

// EncodeSlice packs cells into a fresh byte slice of len(cells)*Size.
func EncodeSlice(cells []Cell) []byte {
	out := make([]byte, len(cells)*Size)
	for i, c := range cells {
		c.EncodeTo(out[i*Size:])
	}
	return out
}

// DecodeSlice unpacks len(src)/Size cells. src length must be a
// multiple of Size; trailing bytes are ignored.
func DecodeSlice(src []byte) []Cell {
	n := len(src) / Size
	out := make([]Cell, n)
	for i := range out {
		out[i] = Decode(src[i*Size:])
	}
	return out
}
