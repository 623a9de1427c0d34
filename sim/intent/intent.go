// Package intent implements the one-directional CPU to GPU command
// protocol for cell mutations. Gameplay queues intents during a frame,
// the buffer uploads them before the simulation dispatch, and the
// shader applies them to the target cells.
package intent

import "encoding/binary"

// Action identifies what an intent does to its target cell.
type Action uint8

const (
	// SetMaterial writes a material id and flags (payload: u16 LE id, u8 flags).
	SetMaterial Action = 0
	// ApplyForce adds velocity (payload: i8 x, i8 y).
	ApplyForce Action = 1
	// Ignite sets the burning flag.
	Ignite Action = 2
	// Extinguish clears the burning flag.
	Extinguish Action = 3
	// SetTemperature writes temperature (payload: u8).
	SetTemperature Action = 4
	// Destroy clears the cell to air.
	Destroy Action = 5
	// Electrify sets the electric flag.
	Electrify Action = 6
)

// ActionFrom decodes an action byte. Out-of-range values fall back to
// SetMaterial rather than failing, so corrupt input cannot crash the
// shader side.
func ActionFrom(b uint8) Action {
	if b > uint8(Electrify) {
		return SetMaterial
	}
	return Action(b)
}

func (a Action) String() string {
	switch a {
	case SetMaterial:
		return "set-material"
	case ApplyForce:
		return "apply-force"
	case Ignite:
		return "ignite"
	case Extinguish:
		return "extinguish"
	case SetTemperature:
		return "set-temperature"
	case Destroy:
		return "destroy"
	case Electrify:
		return "electrify"
	}
	return "set-material"
}

// EncodedSize is the packed byte size of one Intent: x u32, y u32,
// action u8, 7 payload bytes.
const EncodedSize = 16

// Intent is one requested mutation to one cell.
type Intent struct {
	X       uint32
	Y       uint32
	Action  uint8
	Payload [7]byte
}

// New returns an intent with an empty payload.
func New(x, y uint32, action Action) Intent {
	return Intent{X: x, Y: y, Action: uint8(action)}
}

// NewSetMaterial requests writing a material id plus flags.
func NewSetMaterial(x, y uint32, material uint16, flags uint8) Intent {
	in := New(x, y, SetMaterial)
	binary.LittleEndian.PutUint16(in.Payload[0:2], material)
	in.Payload[2] = flags
	return in
}

// NewApplyForce requests adding per-axis velocity.
func NewApplyForce(x, y uint32, forceX, forceY int8) Intent {
	in := New(x, y, ApplyForce)
	in.Payload[0] = uint8(forceX)
	in.Payload[1] = uint8(forceY)
	return in
}

// NewIgnite requests setting the burning flag.
func NewIgnite(x, y uint32) Intent { return New(x, y, Ignite) }

// NewExtinguish requests clearing the burning flag.
func NewExtinguish(x, y uint32) Intent { return New(x, y, Extinguish) }

// NewSetTemperature requests writing the temperature byte.
func NewSetTemperature(x, y uint32, temperature uint8) Intent {
	in := New(x, y, SetTemperature)
	in.Payload[0] = temperature
	return in
}

// NewDestroy requests clearing the cell to air.
func NewDestroy(x, y uint32) Intent { return New(x, y, Destroy) }

// NewElectrify requests setting the electric flag.
func NewElectrify(x, y uint32) Intent { return New(x, y, Electrify) }

// ActionType returns the decoded action, applying the SetMaterial
// fallback for unknown bytes.
func (in Intent) ActionType() Action { return ActionFrom(in.Action) }

// MaterialID reads the SetMaterial payload's material id.
func (in Intent) MaterialID() uint16 {
	return binary.LittleEndian.Uint16(in.Payload[0:2])
}

// MaterialFlags reads the SetMaterial payload's flags byte.
func (in Intent) MaterialFlags() uint8 { return in.Payload[2] }

// Force reads the ApplyForce payload.
func (in Intent) Force() (int8, int8) {
	return int8(in.Payload[0]), int8(in.Payload[1])
}

// Temperature reads the SetTemperature payload.
func (in Intent) Temperature() uint8 { return in.Payload[0] }

// EncodeTo packs the intent into dst, which must hold at least
// EncodedSize bytes.
func (in Intent) EncodeTo(dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:4], in.X)
	binary.LittleEndian.PutUint32(dst[4:8], in.Y)
	dst[8] = in.Action
	copy(dst[9:16], in.Payload[:])
}

// Decode unpacks an intent from src, which must hold at least
// EncodedSize bytes.
func Decode(src []byte) Intent {
	var in Intent
	in.X = binary.LittleEndian.Uint32(src[0:4])
	in.Y = binary.LittleEndian.Uint32(src[4:8])
	in.Action = src[8]
	copy(in.Payload[:], src[9:16])
	return in
}

// HeaderSize is the packed byte size of the buffer header that
// precedes the intent array in the GPU buffer.
const HeaderSize = 16

// Header tells the shader how many intents are valid this step.
type Header struct {
	Count    uint32
	Capacity uint32
	// 8 reserved bytes pad to 16 for GPU alignment.
}

// EncodeTo packs the header into dst, which must hold at least
// HeaderSize bytes.
func (h Header) EncodeTo(dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:4], h.Count)
	binary.LittleEndian.PutUint32(dst[4:8], h.Capacity)
	binary.LittleEndian.PutUint32(dst[8:12], 0)
	binary.LittleEndian.PutUint32(dst[12:16], 0)
}

// DecodeHeader unpacks a header from src.
func DecodeHeader(src []byte) Header {
	return Header{
		Count:    binary.LittleEndian.Uint32(src[0:4]),
		Capacity: binary.LittleEndian.Uint32(src[4:8]),
	}
}
