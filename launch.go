package histotune

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"
)

// Dim3 represents 3D dimensions for grid and block configurations,
// matching CUDA's dim3 launch parameters
type Dim3 struct {
	X, Y, Z int
}

// Size returns the total number of elements
func (d Dim3) Size() int {
	return d.X * d.Y * d.Z
}

// BlockContext identifies one thread block of a kernel launch and carries
// the block's shared-memory arena. Threads within a block execute
// sequentially on the emulated device, so a kernel body that needs a
// block-wide barrier is written as consecutive per-thread phases: the end
// of one phase loop is the barrier.
type BlockContext struct {
	BlockIdx Dim3
	BlockDim Dim3
	GridDim  Dim3
	Shared   []byte // shmem_size bytes, private to this block's execution
}

// BlockKernel is a compute kernel invoked once per thread block.
// Different blocks may run concurrently; implementations must not share
// mutable state except through device memory and atomic operations.
type BlockKernel func(bc BlockContext)

// Launch queues a kernel on the context stream with the given grid and
// block geometry and per-block dynamic shared memory size in bytes.
// Geometry violations against the device limits are reported
// synchronously, like CUDA launch-configuration errors; failures inside
// the kernel surface later through Synchronize/PeekError.
func (ctx *Context) Launch(kernel BlockKernel, grid, block Dim3, shmem int) error {
	if grid.X <= 0 || grid.Y <= 0 || grid.Z <= 0 {
		return NewInvalidArgError("Launch", fmt.Sprintf("invalid grid %v", grid))
	}
	if block.Size() <= 0 || block.Size() > ctx.dev.MaxThreadsPerBlock {
		return NewInvalidArgError("Launch",
			fmt.Sprintf("block size %d exceeds device limit %d", block.Size(), ctx.dev.MaxThreadsPerBlock))
	}
	if shmem < 0 || shmem > ctx.dev.SharedMemPerBlock {
		return NewInvalidArgError("Launch",
			fmt.Sprintf("shared memory %d exceeds device limit %d", shmem, ctx.dev.SharedMemPerBlock))
	}

	gridSize := grid.Size()

	// One worker per core, each processing a contiguous range of blocks
	// with a single reused shared-memory arena
	numWorkers := runtime.NumCPU()
	if gridSize < numWorkers {
		numWorkers = gridSize
	}
	blocksPerWorker := (gridSize + numWorkers - 1) / numWorkers

	stream := ctx.stream
	stream.Submit(func() {
		var wg sync.WaitGroup
		wg.Add(numWorkers)

		for workerID := 0; workerID < numWorkers; workerID++ {
			startBlock := workerID * blocksPerWorker
			endBlock := startBlock + blocksPerWorker
			if endBlock > gridSize {
				endBlock = gridSize
			}

			go func(start, end int) {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						stream.record(NewDeviceError("Launch", fmt.Sprintf("kernel panic: %v", r), nil))
					}
				}()

				arena := newArena(shmem)
				for blockID := start; blockID < end; blockID++ {
					kernel(BlockContext{
						BlockIdx: linearTo3D(blockID, grid),
						BlockDim: block,
						GridDim:  grid,
						Shared:   arena,
					})
				}
			}(startBlock, endBlock)
		}

		wg.Wait()
	})

	return nil
}

// newArena allocates an 8-byte-aligned shared-memory arena
func newArena(size int) []byte {
	if size == 0 {
		return nil
	}
	words := make([]uint64, (size+7)/8)
	return unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), size)
}

// linearTo3D converts a linear index to 3D coordinates
func linearTo3D(linear int, dim Dim3) Dim3 {
	z := linear / (dim.X * dim.Y)
	y := (linear % (dim.X * dim.Y)) / dim.X
	x := linear % dim.X
	return Dim3{X: x, Y: y, Z: z}
}

// sharedView interprets a typed window of a block's shared arena,
// starting off bytes in and spanning n elements
func sharedView[T any](shared []byte, off, n int) []T {
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&shared[off])), n)
}
