package histotune

// Device describes the capability profile of one accelerator. The engine
// runs on an emulated device, so the profiles below model real GPU
// generations while execution is backed by host CPU cores. All fields are
// immutable after construction; planning reads them, nothing writes them.
type Device struct {
	ID   int
	Name string

	MultiProcessorCount         int
	MaxThreadsPerMultiProcessor int
	MaxThreadsPerBlock          int
	SharedMemPerBlock           int // bytes

	// L2 model inputs used only by the experimental global-memory planner
	L2CacheSize int     // bytes
	RaceFactor  float64 // per-generation race-expansion coefficient
}

// HardwareThreads returns the total hardware thread capacity of the device
func (d *Device) HardwareThreads() int {
	return d.MaxThreadsPerMultiProcessor * d.MultiProcessorCount
}

// NumThreads returns the active thread count for a problem of n elements:
// every element gets its own thread until the hardware runs out
func (d *Device) NumThreads(n int) int {
	if n < d.HardwareThreads() {
		return n
	}
	return d.HardwareThreads()
}

// deviceTable enumerates the devices visible to this process. Index 0 is a
// profile synthesized from the host CPU; the rest model discrete GPUs the
// tuning formulas were calibrated on.
func deviceTable() []Device {
	host := hostDevice()
	return []Device{
		host,
		{
			ID:                          1,
			Name:                        "GeForce RTX 2080 Ti (emulated)",
			MultiProcessorCount:         68,
			MaxThreadsPerMultiProcessor: 1024,
			MaxThreadsPerBlock:          1024,
			SharedMemPerBlock:           48 * 1024,
			L2CacheSize:                 4096 * 1024,
			RaceFactor:                  0.75,
		},
		{
			ID:                          2,
			Name:                        "GeForce GTX 1050 Ti (emulated)",
			MultiProcessorCount:         6,
			MaxThreadsPerMultiProcessor: 2048,
			MaxThreadsPerBlock:          1024,
			SharedMemPerBlock:           48 * 1024,
			L2CacheSize:                 1024 * 1024,
			RaceFactor:                  0.5,
		},
	}
}

// GetDeviceCount returns the number of devices visible to this process
func GetDeviceCount() int {
	return len(deviceTable())
}

// Context is an execution context bound to one device. It owns the device
// command stream and the memory pool, and is passed explicitly to the
// planner, executor and harness rather than living in package state.
type Context struct {
	dev    Device
	stream *Stream
	memory *MemoryPool
}

// NewContext queries the device table for the given index and binds a
// fresh context to it. An out-of-range index is a configuration error.
func NewContext(deviceID int) (*Context, error) {
	devices := deviceTable()
	if deviceID < 0 || deviceID >= len(devices) {
		return nil, ErrInvalidDevice
	}
	return &Context{
		dev:    devices[deviceID],
		stream: newStream(),
		memory: NewMemoryPool(),
	}, nil
}

// Device returns the capability profile the context is bound to
func (ctx *Context) Device() *Device {
	return &ctx.dev
}

// Synchronize blocks until all work queued on the context's stream has
// completed, then reports the first asynchronous error recorded, if any.
// The error stays latched so a later peek still observes it.
func (ctx *Context) Synchronize() error {
	ctx.stream.Synchronize()
	return ctx.stream.Peek()
}

// PeekError reports the first asynchronous error recorded on the stream
// without waiting and without clearing it
func (ctx *Context) PeekError() error {
	return ctx.stream.Peek()
}

// Destroy releases the context's stream. Device memory still held by the
// pool becomes unreachable with the context.
func (ctx *Context) Destroy() {
	ctx.stream.Close()
}
