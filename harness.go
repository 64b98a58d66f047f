package histotune

import (
	"time"
)

// RunConfig describes one benchmark invocation: problem size plus how
// many timed device passes to average over.
type RunConfig struct {
	H       int // histogram bins
	N       int // input elements
	GPURuns int // timed repetitions
}

// RunShared plans, times and validates the shared-memory histogram path
// for one configuration and returns the mean latency of a single pass.
//
// The sequence is fixed: plan (allocates device buffers), one dry pass
// with a synchronize-and-check (a configuration that breaks does so
// here, before timing), GPURuns back-to-back passes with a single
// synchronization after the loop, copy-back, and element-wise validation
// against refHisto within the default absolute tolerance. Device buffers
// are freed on every path. No error is recovered here: planner
// configuration errors, asynchronous device errors and validation
// mismatches are all returned tagged to the caller, which decides whether
// to abort the process.
func RunShared[E any, A Accum](ctx *Context, p Policy[E, A], cfg RunConfig, dInput DevicePtr, refHisto []A) (time.Duration, error) {
	var dHistos, dHisto DevicePtr
	plan, err := PlanShared[A](ctx, cfg.H, cfg.N, p.Kind(), &dHistos, &dHisto)
	if err != nil {
		return 0, err
	}
	free := func() {
		ctx.Free(dHistos)
		ctx.Free(dHisto)
	}

	// Dry run
	if err := ExecShared(ctx, p, plan, cfg.H, cfg.N, dInput, dHistos, dHisto); err != nil {
		free()
		return 0, err
	}
	if err := ctx.Synchronize(); err != nil {
		free()
		return 0, err
	}

	// Timed phase: passes queue back-to-back, one synchronization at the end
	runs := cfg.GPURuns
	if runs < 1 {
		runs = 1
	}
	start := time.Now()
	for q := 0; q < runs; q++ {
		if err := ExecShared(ctx, p, plan, cfg.H, cfg.N, dInput, dHistos, dHisto); err != nil {
			free()
			return 0, err
		}
	}
	if err := ctx.Synchronize(); err != nil {
		free()
		return 0, err
	}
	mean := time.Since(start) / time.Duration(runs)

	// Validate against the golden histogram
	hHisto := make([]A, cfg.H)
	if err := ctx.Memcpy(hHisto, dHisto, cfg.H*sizeOf[A](), MemcpyDeviceToHost); err != nil {
		free()
		return 0, err
	}
	mm := CompareAccum(hHisto, refHisto, DefaultAbsTol)
	free()
	if mm != nil {
		return 0, NewValidationError("RunShared", *mm)
	}

	return mean, nil
}

// PlanFor exposes the planner's decision for a configuration without
// running it, freeing the buffers it allocated. Used for reporting.
func PlanFor[A Accum](ctx *Context, h, n int, kind AtomicKind) (Plan, error) {
	var dHistos, dHisto DevicePtr
	plan, err := PlanShared[A](ctx, h, n, kind, &dHistos, &dHisto)
	if err != nil {
		return Plan{}, err
	}
	ctx.Free(dHistos)
	ctx.Free(dHisto)
	return plan, nil
}
