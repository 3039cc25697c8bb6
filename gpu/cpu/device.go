// Package cpu implements gpu.Device in process. Work is executed by a single
// executor goroutine in submission order, with kernel bodies fanned out over a
// worker pool.
package cpu

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/pthm-cable/fishflock/gpu"
)

// Options configures a CPU device.
type Options struct {
	// MemoryBudget caps total live buffer bytes. Zero means unlimited.
	MemoryBudget int64
	// Workers is the kernel worker count. Zero uses GOMAXPROCS.
	Workers int
	// QueueDepth is the command queue capacity. Zero uses 64.
	QueueDepth int
}

// Device is an in-process compute device.
type Device struct {
	mu      sync.Mutex
	budget  int64
	used    int64
	closed  bool
	kernels map[string]Program

	queue chan func()
	exit  chan struct{}
	pool  *pool

	nextID     atomic.Uint64
	dispatches atomic.Uint64
}

// NewDevice creates a CPU device and starts its executor. If no kernels are
// given the reference Flocking kernel is registered.
func NewDevice(opts Options, kernels ...Program) *Device {
	depth := opts.QueueDepth
	if depth <= 0 {
		depth = 64
	}
	if len(kernels) == 0 {
		kernels = []Program{NewFlocking()}
	}

	d := &Device{
		budget:  opts.MemoryBudget,
		kernels: make(map[string]Program, len(kernels)),
		queue:   make(chan func(), depth),
		exit:    make(chan struct{}),
		pool:    newPool(opts.Workers),
	}
	for _, k := range kernels {
		d.kernels[k.Name()] = k
	}

	go d.execute()

	slog.Info("cpu compute device started",
		"workers", d.pool.numWorkers,
		"memory_budget", d.budget,
		"kernels", len(d.kernels),
	)
	return d
}

// execute runs queued commands until the queue is closed.
func (d *Device) execute() {
	defer close(d.exit)
	for cmd := range d.queue {
		cmd()
	}
	d.pool.stop()
}

// submit enqueues a command. Commands run in submission order.
func (d *Device) submit(cmd func()) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpu.ErrDeviceClosed
	}
	d.queue <- cmd
	return nil
}

// NewBuffer allocates a structured buffer of count elements. Only Vec3-sized
// elements are supported.
func (d *Device) NewBuffer(count, stride int) (gpu.Buffer, error) {
	if count <= 0 || stride != gpu.Vec3Stride {
		return nil, fmt.Errorf("count %d stride %d: %w", count, stride, gpu.ErrInvalidBuffer)
	}
	size := int64(count) * int64(stride)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, gpu.ErrDeviceClosed
	}
	if d.budget > 0 && d.used+size > d.budget {
		return nil, fmt.Errorf("allocating %d bytes (%d of %d in use): %w",
			size, d.used, d.budget, gpu.ErrOutOfMemory)
	}
	d.used += size

	return &buffer{
		dev:    d,
		id:     d.nextID.Add(1),
		data:   make([]gpu.Vec3, count),
		stride: stride,
		size:   size,
	}, nil
}

// free returns a released buffer's bytes to the budget.
func (d *Device) free(size int64) {
	d.mu.Lock()
	d.used -= size
	d.mu.Unlock()
}

// MemoryInUse returns the total bytes held by live buffers.
func (d *Device) MemoryInUse() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.used
}

// FindKernel looks up a registered kernel by entry point name.
func (d *Device) FindKernel(name string) (gpu.Kernel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	k, ok := d.kernels[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, gpu.ErrKernelNotFound)
	}
	return k, nil
}

// Dispatch validates the bindings and queues the kernel. It returns once the
// command is queued, not when it has run.
func (d *Device) Dispatch(k gpu.Kernel, b *gpu.FlockBindings, groupsX, groupsY, groupsZ uint32) error {
	prog, ok := k.(Program)
	if !ok {
		return fmt.Errorf("%q is not a cpu program: %w", k.Name(), gpu.ErrKernelNotFound)
	}
	if err := b.Validate(); err != nil {
		return fmt.Errorf("dispatching %s: %w", k.Name(), err)
	}

	views := make([][]gpu.Vec3, 0, 4)
	for _, gb := range []gpu.Buffer{b.Position, b.Velocity, b.SmoothedPosition, b.SmoothedVelocity} {
		cb, ok := gb.(*buffer)
		if !ok || cb.dev != d {
			return fmt.Errorf("dispatching %s: buffer %d not owned by device: %w",
				k.Name(), gb.ID(), gpu.ErrBindingNotFound)
		}
		views = append(views, cb.data)
	}

	sx, sy, sz := prog.ThreadGroupSize()
	inv := &Invocation{
		Params:           b.Params,
		Position:         views[0],
		Velocity:         views[1],
		SmoothedPosition: views[2],
		SmoothedVelocity: views[3],
		Threads:          int(groupsX*sx) * int(groupsY*sy) * int(groupsZ*sz),
		Workers:          d.pool.numWorkers,
		Groups:           [3]uint32{groupsX, groupsY, groupsZ},
	}

	err := d.submit(func() {
		prog.Prepare(inv)
		d.pool.run(inv.Threads, func(w, lo, hi int) { prog.Compute(inv, w, lo, hi) })
		d.pool.run(inv.Threads, func(w, lo, hi int) { prog.Commit(inv, w, lo, hi) })
	})
	if err != nil {
		return err
	}
	d.dispatches.Add(1)
	return nil
}

// Dispatches returns the number of dispatches accepted so far.
func (d *Device) Dispatches() uint64 {
	return d.dispatches.Load()
}

// Wait blocks until every command submitted before the call has run.
func (d *Device) Wait() {
	fence := make(chan struct{})
	if err := d.submit(func() { close(fence) }); err != nil {
		<-d.exit
		return
	}
	<-fence
}

// Close drains the queue, stops the workers and rejects further work.
// Closing twice is a no-op.
func (d *Device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.exit
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	<-d.exit
	slog.Info("cpu compute device closed", "dispatches", d.dispatches.Load())
	return nil
}
