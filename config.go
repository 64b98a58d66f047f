package histotune

// Shared-memory planning parameters
const (
	// LocalMemWordsPerThread is the per-thread allowance of 32-bit words in
	// fast on-chip memory used when sizing sub-histogram replication
	LocalMemWordsPerThread = 12

	// QSmall bounds replication when there is too little work per block to
	// amortize it: M is capped by N / (QSmall * numBlocks * H)
	QSmall = 2

	// ReduceBlockSize is the thread-block size used by the final reduction
	// across per-block sub-histograms
	ReduceBlockSize = 256
)

// Global-memory planning parameters (experimental path)
const (
	// GlbKMin is the minimum cooperation degree targeted by the
	// global-memory chunking model
	GlbKMin = 2

	// L2Fraction is the fraction of L2 cache the global-memory model
	// assumes is usable for sub-histogram state
	L2Fraction = 0.4

	// CacheLineElems is how many 32-bit elements fit on one L2 cache line
	CacheLineElems = 16
)

// Validation parameters
const (
	// DefaultAbsTol is the absolute tolerance used when comparing a device
	// histogram against the sequential golden result
	DefaultAbsTol = 1e-7

	// DefaultCPURuns is how many repetitions the timed golden computation
	// averages over
	DefaultCPURuns = 10
)

// Memory pool parameters
const (
	// MemoryAlignment for device allocations, matches SIMD cache lines
	MemoryAlignment = 64
)
