package histotune

// ExecShared runs one full shared-memory histogram pass under the given
// plan: both device buffers are zeroed, the cooperative-build kernel is
// launched once per chunk over that chunk's bin range, and a single
// reduction folds the per-block sub-histograms into dHisto. All work is
// queued asynchronously on the context stream in issue order; device-side
// failures surface at the caller's next Synchronize/PeekError, while the
// error returned here covers submission problems only.
func ExecShared[E any, A Accum](ctx *Context, p Policy[E, A], plan Plan, h, n int, dInput, dHistos, dHisto DevicePtr) error {
	dev := ctx.Device()
	block := dev.MaxThreadsPerBlock
	hchunk := (h + plan.NumChunks - 1) / plan.NumChunks
	asz := sizeOf[A]()

	if err := ctx.Memset(dHistos, 0, plan.NumBlocks*h*asz); err != nil {
		return err
	}
	if err := ctx.Memset(dHisto, 0, h*asz); err != nil {
		return err
	}

	input := ViewAs[E](dInput, n)
	histos := ViewAs[A](dHistos, plan.NumBlocks*h)
	numThreads := dev.NumThreads(n)

	for k := 0; k < plan.NumChunks; k++ {
		chunkLB := k * hchunk
		chunkUB := min(h, (k+1)*hchunk)

		kern := coopBuildKernel(p, n, h, plan.M, numThreads, chunkLB, chunkUB, input, histos)
		err := ctx.Launch(kern,
			Dim3{X: plan.NumBlocks, Y: 1, Z: 1},
			Dim3{X: block, Y: 1, Z: 1},
			plan.ShmemSize)
		if err != nil {
			return err
		}
	}

	return reduceAcross[A](ctx, p.Combine, h, plan.NumBlocks, ReduceBlockSize, dHistos, dHisto)
}

// reduceAcross dispatches the reduction of numPartials histograms of h
// bins into dHisto: ceil(h/blockSize) blocks of blockSize threads, one
// thread per bin. Pure dispatch, no branching on atomic kind.
func reduceAcross[A Accum](ctx *Context, comb func(a, b A) A, h, numPartials, blockSize int, dHistos, dHisto DevicePtr) error {
	numBlocks := (h + blockSize - 1) / blockSize
	kern := reduceKernel(comb, h, numPartials, ViewAs[A](dHistos, numPartials*h), ViewAs[A](dHisto, h))
	return ctx.Launch(kern,
		Dim3{X: numBlocks, Y: 1, Z: 1},
		Dim3{X: blockSize, Y: 1, Z: 1},
		0)
}
