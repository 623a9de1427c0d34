package intent

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/dustfall/dustfall/sim/core"
)

// MaxIntents is the fixed per-frame queue capacity. The GPU buffer is
// allocated once at this size, so the bound never grows at runtime.
const MaxIntents = 1024

// BufferByteSize is the full GPU buffer size: header plus intent array.
const BufferByteSize = HeaderSize + MaxIntents*EncodedSize

// Buffer collects intents from gameplay and uploads them to a GPU
// storage buffer once per simulation step.
//
// Lifecycle per frame: Push during gameplay, Upload before the compute
// dispatch, Clear only after the dispatch has consumed the buffer.
// Clearing early loses mutations the shader has not read yet.
//
// Not safe for concurrent producers; callers push from the frame
// thread or serialize externally.
type Buffer struct {
	gpu    *wgpu.Buffer
	queue  []Intent
	header Header
	log    core.Logger
}

// NewBuffer allocates the GPU-side storage buffer and an empty queue.
// A nil device skips GPU allocation; Upload then becomes a no-op,
// which keeps the queue logic usable headless.
func NewBuffer(device *wgpu.Device, logger core.Logger) (*Buffer, error) {
	log := core.OrNop(logger)
	b := &Buffer{
		queue:  make([]Intent, 0, MaxIntents),
		header: Header{Capacity: MaxIntents},
		log:    log,
	}
	if device == nil {
		return b, nil
	}

	log.Infof("creating intent buffer (capacity %d, %d bytes)", MaxIntents, BufferByteSize)
	gpu, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            "IntentBuffer",
		Size:             uint64(BufferByteSize),
		Usage:            wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, err
	}
	b.gpu = gpu
	return b, nil
}

// Push appends one intent. Returns false and drops the intent when the
// queue is full; overflow is back-pressure, not an error.
func (b *Buffer) Push(in Intent) bool {
	if len(b.queue) >= MaxIntents {
		b.log.Warnf("intent buffer full (%d), dropping %s at (%d, %d)",
			MaxIntents, in.ActionType(), in.X, in.Y)
		return false
	}
	b.queue = append(b.queue, in)
	return true
}

// PushMany appends a batch, returning how many were accepted. The
// accepted prefix keeps FIFO order; the overflow tail is dropped.
func (b *Buffer) PushMany(ins []Intent) int {
	available := MaxIntents - len(b.queue)
	if available < 0 {
		available = 0
	}
	accepted := len(ins)
	if accepted > available {
		accepted = available
		b.log.Warnf("intent buffer overflow: %d intents dropped", len(ins)-accepted)
	}
	b.queue = append(b.queue, ins[:accepted]...)
	return accepted
}

// Upload writes the header and queued intents to the GPU buffer. Call
// before the compute dispatch that consumes them.
func (b *Buffer) Upload(queue *wgpu.Queue) {
	b.header.Count = uint32(len(b.queue))
	if b.gpu == nil || queue == nil {
		return
	}

	var head [HeaderSize]byte
	b.header.EncodeTo(head[:])
	queue.WriteBuffer(b.gpu, 0, head[:])

	if len(b.queue) == 0 {
		return
	}
	body := make([]byte, len(b.queue)*EncodedSize)
	for i, in := range b.queue {
		in.EncodeTo(body[i*EncodedSize:])
	}
	queue.WriteBuffer(b.gpu, HeaderSize, body)
}

// Clear empties the queue for the next frame. Call only after the
// dispatch has completed.
func (b *Buffer) Clear() {
	b.queue = b.queue[:0]
	b.header.Count = 0
}

// Len returns the number of queued intents.
func (b *Buffer) Len() int { return len(b.queue) }

// IsEmpty reports whether nothing is queued.
func (b *Buffer) IsEmpty() bool { return len(b.queue) == 0 }

// IsFull reports whether the next Push would drop.
func (b *Buffer) IsFull() bool { return len(b.queue) >= MaxIntents }

// Intents exposes the queued intents for inspection.
func (b *Buffer) Intents() []Intent { return b.queue }

// GPUBuffer returns the storage buffer for bind group creation, nil in
// headless mode.
func (b *Buffer) GPUBuffer() *wgpu.Buffer { return b.gpu }

// Release frees the GPU buffer. Safe to call more than once.
func (b *Buffer) Release() {
	if b.gpu != nil {
		b.gpu.Release()
		b.gpu = nil
	}
}
