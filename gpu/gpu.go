// Package gpu defines the compute device contract used by the swarm: structured
// buffers, named kernels and grid dispatch. Backends live in subpackages.
package gpu

import "errors"

// Vec3 is a 3-component float vector laid out as three consecutive float32s.
type Vec3 struct {
	X, Y, Z float32
}

// Vec3Stride is the element size in bytes of a Vec3 structured buffer.
const Vec3Stride = 12

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Scale returns v * s.
func (v Vec3) Scale(s float32) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// Dot returns the dot product of v and o.
func (v Vec3) Dot(o Vec3) float32 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

// Errors returned by devices.
var (
	ErrKernelNotFound  = errors.New("gpu: kernel not found")
	ErrBindingNotFound = errors.New("gpu: binding not found")
	ErrOutOfMemory     = errors.New("gpu: out of device memory")
	ErrBufferReleased  = errors.New("gpu: buffer released")
	ErrDeviceClosed    = errors.New("gpu: device closed")
	ErrSizeMismatch    = errors.New("gpu: data size does not match buffer")
	ErrInvalidBuffer   = errors.New("gpu: invalid buffer size")
)

// Buffer is a fixed-capacity structured buffer owned by a Device.
type Buffer interface {
	// ID is unique per allocation; a recreated buffer never reuses an ID.
	ID() uint64
	Len() int
	Stride() int
	// SetData uploads len(data) elements; len(data) must equal Len().
	SetData(data []Vec3) error
	// GetData reads the buffer back into dst after all previously submitted work.
	GetData(dst []Vec3) error
	// Release frees the buffer. Releasing twice is a no-op.
	Release()
	Released() bool
}

// Kernel is a compute entry point resolved by name.
type Kernel interface {
	Name() string
	ThreadGroupSize() (x, y, z uint32)
}

// Device allocates buffers and runs kernels. Dispatch does not wait for the
// kernel to finish; work submitted to the same device executes in order.
type Device interface {
	NewBuffer(count, stride int) (Buffer, error)
	FindKernel(name string) (Kernel, error)
	Dispatch(k Kernel, b *FlockBindings, groupsX, groupsY, groupsZ uint32) error
	// Wait blocks until all submitted work has completed.
	Wait()
	Close() error
}
