package cpu

import (
	"fmt"
	"sync/atomic"

	"github.com/pthm-cable/fishflock/gpu"
)

// buffer is a Vec3 structured buffer in host memory. Its storage is only
// touched by the device executor; uploads and readbacks are queued commands.
type buffer struct {
	dev      *Device
	id       uint64
	data     []gpu.Vec3
	stride   int
	size     int64
	released atomic.Bool
}

func (b *buffer) ID() uint64 { return b.id }

func (b *buffer) Len() int { return len(b.data) }

func (b *buffer) Stride() int { return b.stride }

func (b *buffer) Released() bool { return b.released.Load() }

// SetData queues an upload of data. The caller may reuse data after return.
func (b *buffer) SetData(data []gpu.Vec3) error {
	if b.Released() {
		return fmt.Errorf("buffer %d: %w", b.id, gpu.ErrBufferReleased)
	}
	if len(data) != len(b.data) {
		return fmt.Errorf("buffer %d: got %d elements, want %d: %w",
			b.id, len(data), len(b.data), gpu.ErrSizeMismatch)
	}
	src := make([]gpu.Vec3, len(data))
	copy(src, data)
	dst := b.data
	return b.dev.submit(func() { copy(dst, src) })
}

// GetData copies the buffer into dst once all earlier commands have run.
func (b *buffer) GetData(dst []gpu.Vec3) error {
	if b.Released() {
		return fmt.Errorf("buffer %d: %w", b.id, gpu.ErrBufferReleased)
	}
	if len(dst) != len(b.data) {
		return fmt.Errorf("buffer %d: got %d elements, want %d: %w",
			b.id, len(dst), len(b.data), gpu.ErrSizeMismatch)
	}
	src := b.data
	done := make(chan struct{})
	if err := b.dev.submit(func() {
		copy(dst, src)
		close(done)
	}); err != nil {
		return err
	}
	<-done
	return nil
}

// Release returns the buffer's bytes to the device budget. Commands already
// queued against the buffer still complete.
func (b *buffer) Release() {
	if !b.released.CompareAndSwap(false, true) {
		return
	}
	b.dev.free(b.size)
}
