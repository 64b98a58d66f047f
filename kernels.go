package histotune

// Device kernels for the shared-memory histogram path. Both are written
// as block-level kernels: threads of a block run in order, so the phase
// boundaries inside the kernel bodies take the place of __syncthreads.

// coopBuildKernel returns the cooperative-build kernel for one chunk.
// Every block keeps m private replicas of the chunk's bins [chunkLB,
// chunkUB) in its shared arena; thread tid updates replica tid mod m
// while striding over the input with the total active thread count. After
// the build phase the replicas are folded and the block deposits its
// combined chunk slice into its own row of the global sub-histogram
// buffer.
func coopBuildKernel[E any, A Accum](p Policy[E, A], n, h, m, numThreads, chunkLB, chunkUB int, input []E, histos []A) BlockKernel {
	useLocks := p.Kind() == AtomicXchg
	return func(bc BlockContext) {
		hchunk := chunkUB - chunkLB
		sub := sharedView[A](bc.Shared, 0, m*hchunk)

		// Phase 1: clear this block's replicas. The lock words that
		// follow the accumulators only matter for footprint here: with
		// in-order threads an exchange lock is always acquired first try.
		var zero A
		for i := range sub {
			sub[i] = zero
		}
		if useLocks {
			locks := sharedView[int32](bc.Shared, m*hchunk*sizeOf[A](), m*hchunk)
			for i := range locks {
				locks[i] = 0
			}
		}

		// Phase 2: cooperative build
		base := bc.BlockIdx.X * bc.BlockDim.X
		for tid := 0; tid < bc.BlockDim.X; tid++ {
			gid := base + tid
			if gid >= numThreads {
				break
			}
			row := sub[(tid%m)*hchunk : (tid%m+1)*hchunk]
			for i := gid; i < n; i += numThreads {
				idx, v := p.Bin(h, input[i])
				if idx >= chunkLB && idx < chunkUB {
					row[idx-chunkLB] = p.Combine(row[idx-chunkLB], v)
				}
			}
		}

		// Phase 3: fold replicas and deposit the block's chunk slice
		out := histos[bc.BlockIdx.X*h:]
		for j := 0; j < hchunk; j++ {
			acc := sub[j]
			for r := 1; r < m; r++ {
				acc = p.Combine(acc, sub[r*hchunk+j])
			}
			out[chunkLB+j] = acc
		}
	}
}

// reduceKernel returns the reduction kernel folding numPartials parallel
// histograms of h bins into out, element-wise: one thread per bin, each
// overwriting its output slot with the fold of its column.
func reduceKernel[A Accum](comb func(a, b A) A, h, numPartials int, histos, out []A) BlockKernel {
	return func(bc BlockContext) {
		base := bc.BlockIdx.X * bc.BlockDim.X
		for tid := 0; tid < bc.BlockDim.X; tid++ {
			j := base + tid
			if j >= h {
				break
			}
			acc := histos[j]
			for b := 1; b < numPartials; b++ {
				acc = comb(acc, histos[b*h+j])
			}
			out[j] = acc
		}
	}
}
