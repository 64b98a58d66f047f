package histotune

import (
	"fmt"
	"math"
	"runtime"
	"sync/atomic"
	"time"
	"unsafe"
)

// Global-memory histogram path. Sub-histograms live in device global
// memory and are shared across blocks, so bin updates need real atomics:
// hardware add, compare-and-swap retry, or an exchange-based lock word.
// Chunking is sized against the device's L2 cache instead of the shared
// arena. Experimental: the shared-memory path is the tuned default, this
// one exists to benchmark the cooperative-atomics alternative.

// GlobalPlan is the execution plan for the global-memory path: M
// sub-histograms shared by groups of cooperating threads, split over
// NumChunks passes.
type GlobalPlan struct {
	M         int
	NumChunks int
}

// String summarizes the plan for diagnostics
func (p GlobalPlan) String() string {
	return fmt.Sprintf("M=%d chunks=%d", p.M, p.NumChunks)
}

// PlanGlobal derives replication and chunking for the global-memory path
// from the device's L2 model. rf is the workload's per-element access
// redundancy factor feeding the race-expansion estimate.
func PlanGlobal(ctx *Context, kind AtomicKind, rf, h, n int) (GlobalPlan, error) {
	if h < 1 || n < 1 {
		return GlobalPlan{}, NewInvalidArgError("PlanGlobal",
			fmt.Sprintf("histogram size %d and input length %d must be positive", h, n))
	}
	dev := ctx.Device()
	t := dev.NumThreads(n)

	// XCG keeps a lock next to the element; the lock is averaged into the
	// footprint per element of the histogram tuple
	avgSize := 4
	elSize := 4
	if kind == AtomicXchg {
		avgSize = 3 * 4 / 2
		elSize = 3 * 4
	}
	workAsympMMax := n / (QSmall * h)

	raceExp := math.Max(1.0, dev.RaceFactor*float64(rf)/((4.0*CacheLineElems)/float64(avgSize)))
	coopMin := math.Min(float64(t), float64(h)/GlbKMin)
	mdeg := min(workAsympMMax, max(1, int(float64(t)/coopMin)))

	sNom := mdeg * h * avgSize
	sDen := int(L2Fraction * float64(dev.L2CacheSize) * raceExp)
	numChunks := (sNom + sDen - 1) / sDen
	if numChunks < 1 {
		numChunks = 1
	}
	hChk := (h + numChunks - 1) / numChunks

	// Adds retire twice as fast as read-modify-write loops
	u := 1.0
	if kind == AtomicAdd {
		u = 2.0
	}
	kMax := math.Min(L2Fraction*(float64(dev.L2CacheSize)/float64(elSize))*raceExp, float64(n)) / float64(t)
	coop := math.Min(float64(t), (u*float64(hChk))/kMax)
	m := max(1, int(float64(t)/coop))

	return GlobalPlan{M: m, NumChunks: numChunks}, nil
}

// glbBuildKernel returns the global-memory build kernel for one chunk.
// Groups of coop consecutive threads share one of the m sub-histograms
// and contend on its bins with the policy's atomic kind.
func glbBuildKernel[E any, A Accum](p Policy[E, A], n, h, m, numThreads, coop, chunkLB, chunkUB int, input []E, histos []A, locks []int32) BlockKernel {
	kind := p.Kind()
	comb := p.Combine
	return func(bc BlockContext) {
		base := bc.BlockIdx.X * bc.BlockDim.X
		for tid := 0; tid < bc.BlockDim.X; tid++ {
			gid := base + tid
			if gid >= numThreads {
				break
			}
			replica := gid / coop
			if replica >= m {
				replica = m - 1
			}
			row := replica * h
			for i := gid; i < n; i += numThreads {
				idx, v := p.Bin(h, input[i])
				if idx >= chunkLB && idx < chunkUB {
					if kind == AtomicXchg {
						lockedCombine(comb, &histos[row+idx], v, &locks[row+idx])
					} else {
						atomicCombine(comb, &histos[row+idx], v)
					}
				}
			}
		}
	}
}

// atomicCombine applies comb to *addr with a compare-and-swap retry on
// the accumulator's bit pattern. Hardware adds and CAS loops converge to
// the same retry here; the distinction only matters for the planner's
// throughput model.
func atomicCombine[A Accum](comb func(a, b A) A, addr *A, v A) {
	switch sizeOf[A]() {
	case 4:
		p := (*uint32)(unsafe.Pointer(addr))
		for {
			old := atomic.LoadUint32(p)
			cur := *(*A)(unsafe.Pointer(&old))
			next := comb(cur, v)
			if atomic.CompareAndSwapUint32(p, old, *(*uint32)(unsafe.Pointer(&next))) {
				return
			}
		}
	case 8:
		p := (*uint64)(unsafe.Pointer(addr))
		for {
			old := atomic.LoadUint64(p)
			cur := *(*A)(unsafe.Pointer(&old))
			next := comb(cur, v)
			if atomic.CompareAndSwapUint64(p, old, *(*uint64)(unsafe.Pointer(&next))) {
				return
			}
		}
	}
}

// lockedCombine takes the bin's exchange lock, combines, and releases
func lockedCombine[A Accum](comb func(a, b A) A, addr *A, v A, lock *int32) {
	for !atomic.CompareAndSwapInt32(lock, 0, 1) {
		runtime.Gosched()
	}
	*addr = comb(*addr, v)
	atomic.StoreInt32(lock, 0)
}

// RunGlobal plans nothing itself: it executes and times the given global
// plan with blockSize threads per block, then validates against the
// golden histogram. The run shape mirrors RunShared: dry pass with
// synchronize-and-check, timed back-to-back passes (re-zeroing only the
// sub-histogram buffer, as the reduction overwrites the result), one
// final synchronization, copy-back, validate, free.
func RunGlobal[E any, A Accum](ctx *Context, p Policy[E, A], cfg RunConfig, gp GlobalPlan, blockSize int, dInput DevicePtr, refHisto []A) (time.Duration, error) {
	dev := ctx.Device()
	t := dev.NumThreads(cfg.N)
	coop := (t + gp.M - 1) / gp.M
	if coop <= 0 || coop > t {
		return 0, NewConfigError("RunGlobal",
			fmt.Sprintf("illegal cooperation degree %d for M=%d, H=%d", coop, gp.M, cfg.H))
	}
	if blockSize < 1 || blockSize > dev.MaxThreadsPerBlock {
		return 0, NewInvalidArgError("RunGlobal",
			fmt.Sprintf("block size %d exceeds device limit %d", blockSize, dev.MaxThreadsPerBlock))
	}

	chunkSize := (cfg.H + gp.NumChunks - 1) / gp.NumChunks
	numBlocks := (t + blockSize - 1) / blockSize
	asz := sizeOf[A]()

	dHistos, err := ctx.Malloc(gp.M * cfg.H * asz)
	if err != nil {
		return 0, NewMemoryError("RunGlobal", "allocating sub-histogram buffer", err)
	}
	dHisto, err := ctx.Malloc(cfg.H * asz)
	if err != nil {
		ctx.Free(dHistos)
		return 0, NewMemoryError("RunGlobal", "allocating result buffer", err)
	}
	dLocks, err := ctx.Malloc(gp.M * cfg.H * 4)
	if err != nil {
		ctx.Free(dHistos)
		ctx.Free(dHisto)
		return 0, NewMemoryError("RunGlobal", "allocating lock buffer", err)
	}
	free := func() {
		ctx.Free(dHistos)
		ctx.Free(dHisto)
		ctx.Free(dLocks)
	}

	input := ViewAs[E](dInput, cfg.N)
	histos := ViewAs[A](dHistos, gp.M*cfg.H)
	locks := ViewAs[int32](dLocks, gp.M*cfg.H)

	onePass := func() error {
		if err := ctx.Memset(dHistos, 0, gp.M*cfg.H*asz); err != nil {
			return err
		}
		for k := 0; k < gp.NumChunks; k++ {
			chunkLB := k * chunkSize
			chunkUB := min(cfg.H, (k+1)*chunkSize)
			kern := glbBuildKernel(p, cfg.N, cfg.H, gp.M, t, coop, chunkLB, chunkUB, input, histos, locks)
			err := ctx.Launch(kern,
				Dim3{X: numBlocks, Y: 1, Z: 1},
				Dim3{X: blockSize, Y: 1, Z: 1},
				0)
			if err != nil {
				return err
			}
		}
		return reduceAcross[A](ctx, p.Combine, cfg.H, gp.M, blockSize, dHistos, dHisto)
	}

	// Dry run
	if err := ctx.Memset(dLocks, 0, gp.M*cfg.H*4); err != nil {
		free()
		return 0, err
	}
	if err := onePass(); err != nil {
		free()
		return 0, err
	}
	if err := ctx.Synchronize(); err != nil {
		free()
		return 0, err
	}

	// Timed phase
	runs := cfg.GPURuns
	if runs < 1 {
		runs = 1
	}
	start := time.Now()
	for q := 0; q < runs; q++ {
		if err := onePass(); err != nil {
			free()
			return 0, err
		}
	}
	if err := ctx.Synchronize(); err != nil {
		free()
		return 0, err
	}
	mean := time.Since(start) / time.Duration(runs)

	hHisto := make([]A, cfg.H)
	if err := ctx.Memcpy(hHisto, dHisto, cfg.H*asz, MemcpyDeviceToHost); err != nil {
		free()
		return 0, err
	}
	mm := CompareAccum(hHisto, refHisto, DefaultAbsTol)
	free()
	if mm != nil {
		return 0, NewValidationError("RunGlobal", *mm)
	}

	return mean, nil
}
