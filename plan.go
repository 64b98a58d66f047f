package histotune

import (
	"fmt"
	"math"
)

// Plan is the execution plan for the shared-memory histogram path,
// immutable once computed. M is the sub-histogram replication degree per
// block, NumChunks how many passes the bin range is split into so one
// chunk fits the shared arena at that replication degree.
type Plan struct {
	M         int
	NumChunks int
	NumBlocks int
	ShmemSize int // bytes of shared memory per block
}

// String summarizes the plan for diagnostics
func (p Plan) String() string {
	return fmt.Sprintf("M=%d chunks=%d blocks=%d shmem=%dB",
		p.M, p.NumChunks, p.NumBlocks, p.ShmemSize)
}

// PlanShared derives the shared-memory execution plan for a histogram of
// h bins over n input elements under the given atomic kind, and allocates
// the two device buffers the executor needs: *dHistos (NumBlocks×h
// accumulators, one sub-histogram row per block) and *dHisto (the h-bin
// result). Both handles must be null on entry; passing live handles is a
// contract violation reported as a configuration error before any
// allocation happens. The caller owns the buffers and must free them.
//
// The replication degree balances three limits: the per-block fast-memory
// budget (a fixed word allowance per thread), the number of elements a
// block actually processes, and an asymptotic-work bound that stops
// replication when there is too little work per block to amortize it.
func PlanShared[A Accum](ctx *Context, h, n int, kind AtomicKind, dHistos, dHisto *DevicePtr) (Plan, error) {
	if !dHistos.IsNull() || !dHisto.IsNull() {
		return Plan{}, NewConfigError("PlanShared",
			"output buffer handle already allocated; planner requires null handles")
	}
	if h < 1 || n < 1 {
		return Plan{}, NewInvalidArgError("PlanShared",
			fmt.Sprintf("histogram size %d and input length %d must be positive", h, n))
	}

	dev := ctx.Device()
	block := dev.MaxThreadsPerBlock

	lmem := LocalMemWordsPerThread * block * 4
	numBlocks := (dev.NumThreads(n) + block - 1) / block
	workAsympMMax := n / (QSmall * numBlocks * h)

	elemsPerBlock := (n + numBlocks - 1) / numBlocks
	elSize := sizeOf[A]()
	if kind == AtomicXchg {
		elSize += 4 // one lock word per element
	}
	mPrime := math.Min(float64(lmem)/float64(elSize), float64(elemsPerBlock)) / float64(h)

	m := max(1, min(int(mPrime), block))
	m = min(m, workAsympMMax)
	if m <= 0 {
		return Plan{}, NewConfigError("PlanShared",
			fmt.Sprintf("degenerate replication degree %d for H=%d, N=%d", m, h, n))
	}

	chunkLen := lmem / (elSize * m)
	numChunks := (h + chunkLen - 1) / chunkLen
	hchunk := (h + numChunks - 1) / numChunks

	plan := Plan{
		M:         m,
		NumChunks: numChunks,
		NumBlocks: numBlocks,
		ShmemSize: m * hchunk * elSize,
	}

	asz := sizeOf[A]()
	histos, err := ctx.Malloc(numBlocks * h * asz)
	if err != nil {
		return Plan{}, NewMemoryError("PlanShared", "allocating sub-histogram buffer", err)
	}
	histo, err := ctx.Malloc(h * asz)
	if err != nil {
		ctx.Free(histos)
		return Plan{}, NewMemoryError("PlanShared", "allocating result buffer", err)
	}
	*dHistos = histos
	*dHisto = histo

	return plan, nil
}
