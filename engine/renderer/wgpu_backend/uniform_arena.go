package wgpu_backend

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-iso/engine/renderer/wgpu_backend/bind_group_provider"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/pkg/errors"
)

const (
	// uniformOffsetAlignment is the WebGPU default minUniformBufferOffsetAlignment.
	uniformOffsetAlignment = 256
	// uniformBindingSize is the window each dynamic offset exposes; larger blocks are rejected.
	uniformBindingSize = 1024
	// uniformChunkSize is the size of one arena buffer.
	uniformChunkSize = 64 * 1024
)

// nextSlot returns where a block of size bytes starts when the chunk is filled up to offset,
// and the offset after it. fits is false when the binding window would run past the chunk.
func nextSlot(offset, size uint64) (start, next uint64, fits bool) {
	start = (offset + uniformOffsetAlignment - 1) &^ (uniformOffsetAlignment - 1)
	if start+uniformBindingSize > uniformChunkSize {
		return 0, offset, false
	}
	next = start + max(size, 1)
	return start, next, true
}

// uniformArena hands out per-draw slices of large uniform buffers. Each draw's uniform block
// is copied into the next aligned slot and bound with a dynamic offset, so draws sharing a
// program never overwrite each other's values within a frame. Slots are recycled every frame.
type uniformArena struct {
	device *wgpu.Device
	layout *wgpu.BindGroupLayout

	chunks  []bind_group_provider.BindGroupProvider
	current int
	offset  uint64
	pending []bind_group_provider.BufferWrite
}

func newUniformArena(device *wgpu.Device, layout *wgpu.BindGroupLayout) *uniformArena {
	return &uniformArena{device: device, layout: layout}
}

func (a *uniformArena) addChunk() error {
	label := fmt.Sprintf("Uniform Arena %d", len(a.chunks))
	buf, err := a.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label + " Buffer",
		Size:  uniformChunkSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create uniform arena buffer")
	}
	provider := bind_group_provider.NewBindGroupProvider(label,
		bind_group_provider.WithSharedBindGroupLayout(a.layout),
		bind_group_provider.WithBuffer(0, buf),
	)
	bg, err := a.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  label + " Bind Group",
		Layout: a.layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: buf, Offset: 0, Size: uniformBindingSize},
		},
	})
	if err != nil {
		provider.Release()
		return errors.Wrap(err, "failed to create uniform arena bind group")
	}
	provider.SetBindGroup(bg)
	a.chunks = append(a.chunks, provider)
	return nil
}

// allocate stages data in the next free slot.
//
// Returns:
//   - bind_group_provider.BindGroupProvider: the chunk whose bind group to set
//   - uint32: the dynamic offset of the slot
//   - error: an error if the block is too large or a new chunk cannot be created
func (a *uniformArena) allocate(data []byte) (bind_group_provider.BindGroupProvider, uint32, error) {
	if len(data) > uniformBindingSize {
		return nil, 0, errors.Errorf("uniform block of %d bytes exceeds %d", len(data), uniformBindingSize)
	}
	if len(a.chunks) == 0 {
		if err := a.addChunk(); err != nil {
			return nil, 0, err
		}
	}
	start, next, fits := nextSlot(a.offset, uint64(len(data)))
	if !fits {
		a.current++
		a.offset = 0
		if a.current >= len(a.chunks) {
			if err := a.addChunk(); err != nil {
				return nil, 0, err
			}
		}
		start, next, _ = nextSlot(0, uint64(len(data)))
	}
	a.offset = next

	chunk := a.chunks[a.current]
	a.pending = append(a.pending, bind_group_provider.BufferWrite{
		Provider: chunk,
		Binding:  0,
		Offset:   start,
		Data:     padTo4(data),
	})
	return chunk, uint32(start), nil
}

// flush uploads every staged slot. Queue writes land before the frame's command buffer runs.
func (a *uniformArena) flush(queue *wgpu.Queue) {
	for _, w := range a.pending {
		buf := w.Provider.Buffer(w.Binding)
		if buf == nil || w.Len() == 0 {
			continue
		}
		queue.WriteBuffer(buf, w.Offset, w.Data)
	}
	a.pending = a.pending[:0]
}

// reset recycles all slots for the next frame.
func (a *uniformArena) reset() {
	a.current = 0
	a.offset = 0
	a.pending = a.pending[:0]
}

func (a *uniformArena) release() {
	for _, c := range a.chunks {
		c.Release()
	}
	a.chunks = nil
	a.reset()
}
