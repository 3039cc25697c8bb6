// Package gl implements gpu.Device on OpenGL 4.3 compute shaders through
// raylib's rlgl layer. All calls must happen on the thread that owns the GL
// context, after the raylib window has been created.
package gl

import (
	"fmt"
	"log/slog"
	"math"
	"unsafe"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fishflock/gpu"
	"github.com/pthm-cable/fishflock/gpu/glsl"
)

// GL enums not exported by raylib-go.
const (
	glComputeShader = 0x91B9
	glDynamicCopy   = 0x88EA
)

// kernel is a compiled compute program.
type kernel struct {
	name      string
	program   uint32
	groupSize [3]uint32
	locs      map[string]int32
}

func (k *kernel) Name() string { return k.name }

func (k *kernel) ThreadGroupSize() (x, y, z uint32) {
	return k.groupSize[0], k.groupSize[1], k.groupSize[2]
}

// Device is a GL compute device.
type Device struct {
	sources  map[string]string
	kernels  map[string]*kernel
	budget   int64
	used     int64
	nextID   uint64
	closed   bool
	dispatch uint64
}

// NewDevice creates a GL compute device over the embedded kernels.
// memoryBudget caps live buffer bytes; zero means unlimited.
func NewDevice(memoryBudget int64) *Device {
	return &Device{
		sources: glsl.Sources,
		kernels: make(map[string]*kernel),
		budget:  memoryBudget,
	}
}

// NewBuffer creates a shader storage buffer of count elements.
func (d *Device) NewBuffer(count, stride int) (gpu.Buffer, error) {
	if d.closed {
		return nil, gpu.ErrDeviceClosed
	}
	if count <= 0 || stride != gpu.Vec3Stride {
		return nil, fmt.Errorf("count %d stride %d: %w", count, stride, gpu.ErrInvalidBuffer)
	}
	size := int64(count) * int64(stride)
	if d.budget > 0 && d.used+size > d.budget {
		return nil, fmt.Errorf("allocating %d bytes (%d of %d in use): %w",
			size, d.used, d.budget, gpu.ErrOutOfMemory)
	}

	id := rl.LoadShaderBuffer(uint32(size), nil, glDynamicCopy)
	if id == 0 {
		return nil, fmt.Errorf("allocating %d byte SSBO: %w", size, gpu.ErrOutOfMemory)
	}
	d.used += size
	d.nextID++

	return &buffer{dev: d, ssbo: id, id: d.nextID, count: count, size: size}, nil
}

// FindKernel compiles the named kernel on first use.
func (d *Device) FindKernel(name string) (gpu.Kernel, error) {
	if k, ok := d.kernels[name]; ok {
		return k, nil
	}
	src, ok := d.sources[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, gpu.ErrKernelNotFound)
	}

	x, y, z, err := glsl.LocalSize(src)
	if err != nil {
		return nil, fmt.Errorf("kernel %q: %w", name, err)
	}
	if missing := glsl.Missing(src, append(glsl.Bindings, glsl.Uniforms...)); len(missing) > 0 {
		return nil, fmt.Errorf("kernel %q lacks %v: %w", name, missing, gpu.ErrBindingNotFound)
	}

	shader := rl.CompileShader(src, glComputeShader)
	if shader == 0 {
		return nil, fmt.Errorf("compiling kernel %q failed", name)
	}
	program := rl.LoadComputeShaderProgram(shader)
	if program == 0 {
		return nil, fmt.Errorf("linking kernel %q failed", name)
	}

	k := &kernel{
		name:      name,
		program:   program,
		groupSize: [3]uint32{x, y, z},
		locs:      make(map[string]int32, len(glsl.Uniforms)),
	}
	for _, u := range glsl.Uniforms {
		loc := rl.GetLocationUniform(program, u)
		if loc < 0 {
			rl.UnloadShaderProgram(program)
			return nil, fmt.Errorf("kernel %q uniform %s: %w", name, u, gpu.ErrBindingNotFound)
		}
		k.locs[u] = loc
	}
	d.kernels[name] = k

	slog.Info("compiled compute kernel", "kernel", name, "group_size", k.groupSize)
	return k, nil
}

// Dispatch binds the buffers and uniforms and issues the compute dispatch.
// GL queues the work; the call does not wait for it.
func (d *Device) Dispatch(gk gpu.Kernel, b *gpu.FlockBindings, groupsX, groupsY, groupsZ uint32) error {
	if d.closed {
		return gpu.ErrDeviceClosed
	}
	k, ok := gk.(*kernel)
	if !ok {
		return fmt.Errorf("%q is not a gl kernel: %w", gk.Name(), gpu.ErrKernelNotFound)
	}
	if err := b.Validate(); err != nil {
		return fmt.Errorf("dispatching %s: %w", k.name, err)
	}

	bufs := b.Buffers()
	ssbos := make([]uint32, len(glsl.Bindings))
	for i, name := range glsl.Bindings {
		gb, ok := bufs[name].(*buffer)
		if !ok || gb.dev != d {
			return fmt.Errorf("dispatching %s: %s not owned by device: %w", k.name, name, gpu.ErrBindingNotFound)
		}
		ssbos[i] = gb.ssbo
	}

	p := &b.Params
	rl.EnableShader(k.program)
	// Int uniforms are passed bit-for-bit through the float slice.
	setUniform(k.program, k.locs["_Nums"], []float32{math.Float32frombits(p.Nums)}, rl.ShaderUniformInt)
	setUniform(k.program, k.locs["_SpeedRange"], p.SpeedRange[:], rl.ShaderUniformVec2)
	setUniform(k.program, k.locs["_ForceWeight"], vec3(p.ForceWeight), rl.ShaderUniformVec3)
	setUniform(k.program, k.locs["_PerceptionRadius"], vec3(p.PerceptionRadius), rl.ShaderUniformVec3)
	setUniform(k.program, k.locs["_MaxForce"], []float32{p.MaxForce}, rl.ShaderUniformFloat)
	setUniform(k.program, k.locs["_TargetPosition"], vec3(p.TargetPosition), rl.ShaderUniformVec3)
	setUniform(k.program, k.locs["_TargetForce"], []float32{p.TargetForce}, rl.ShaderUniformFloat)
	setUniform(k.program, k.locs["_DeltaTime"], []float32{p.DeltaTime}, rl.ShaderUniformFloat)
	for i, id := range ssbos {
		rl.BindShaderBuffer(id, uint32(i))
	}
	rl.ComputeShaderDispatch(groupsX, groupsY, groupsZ)
	rl.DisableShader()

	d.dispatch++
	return nil
}

func setUniform(program uint32, loc int32, v []float32, typ rl.ShaderUniformDataType) {
	rl.SetShaderValueV(rl.Shader{ID: program}, loc, v, typ, 1)
}

func vec3(v gpu.Vec3) []float32 {
	return []float32{v.X, v.Y, v.Z}
}

// Wait is a no-op: readbacks through GetData are ordered after earlier
// dispatches by the GL command stream.
func (d *Device) Wait() {}

// Close unloads compiled kernels. Buffers must be released by their owner.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	for _, k := range d.kernels {
		rl.UnloadShaderProgram(k.program)
	}
	d.kernels = nil
	d.closed = true
	slog.Info("gl compute device closed", "dispatches", d.dispatch, "bytes_in_use", d.used)
	return nil
}

// buffer is a shader storage buffer object.
type buffer struct {
	dev      *Device
	ssbo     uint32
	id       uint64
	count    int
	size     int64
	released bool
}

func (b *buffer) ID() uint64 { return b.id }

func (b *buffer) Len() int { return b.count }

func (b *buffer) Stride() int { return gpu.Vec3Stride }

func (b *buffer) Released() bool { return b.released }

func (b *buffer) SetData(data []gpu.Vec3) error {
	if b.released {
		return fmt.Errorf("buffer %d: %w", b.id, gpu.ErrBufferReleased)
	}
	if len(data) != b.count {
		return fmt.Errorf("buffer %d: got %d elements, want %d: %w", b.id, len(data), b.count, gpu.ErrSizeMismatch)
	}
	rl.UpdateShaderBuffer(b.ssbo, unsafe.Pointer(&data[0]), uint32(b.size), 0)
	return nil
}

func (b *buffer) GetData(dst []gpu.Vec3) error {
	if b.released {
		return fmt.Errorf("buffer %d: %w", b.id, gpu.ErrBufferReleased)
	}
	if len(dst) != b.count {
		return fmt.Errorf("buffer %d: got %d elements, want %d: %w", b.id, len(dst), b.count, gpu.ErrSizeMismatch)
	}
	rl.ReadShaderBuffer(b.ssbo, unsafe.Pointer(&dst[0]), uint32(b.size), 0)
	return nil
}

func (b *buffer) Release() {
	if b.released {
		return
	}
	rl.UnloadShaderBuffer(b.ssbo)
	b.dev.used -= b.size
	b.released = true
}
