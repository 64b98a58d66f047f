package histotune

import (
	"errors"
	"testing"
)

func TestRunSharedCountMillion(t *testing.T) {
	const N = 1_000_000
	const H = 128
	ctx := NewContextOrFail(t, 1)
	defer ctx.Destroy()

	input := RandomInt32s(N, 1)
	dInput := InputOnDevice(t, ctx, input)
	defer ctx.Free(dInput)

	p := CountPolicy{K: AtomicAdd}
	ref := Golden[int32, uint32](p, H, input)

	var total uint32
	for _, c := range ref {
		total += c
	}
	if total != N {
		t.Fatalf("golden total %d, want %d", total, N)
	}

	mean, err := RunShared(ctx, p, RunConfig{H: H, N: N, GPURuns: 2}, dInput, ref)
	if err != nil {
		t.Fatalf("RunShared: %v", err)
	}
	if mean <= 0 {
		t.Fatalf("mean latency %v not positive", mean)
	}
}

func TestRunSharedSumAndMax(t *testing.T) {
	const N = 300000
	const H = 64
	ctx := NewContextOrFail(t, 1)
	defer ctx.Destroy()

	input := RandomInt32s(N, 33)
	dInput := InputOnDevice(t, ctx, input)
	defer ctx.Free(dInput)

	sum := SumPolicy{K: AtomicCAS}
	refSum := Golden[int32, float32](sum, H, input)
	if _, err := RunShared(ctx, sum, RunConfig{H: H, N: N, GPURuns: 1}, dInput, refSum); err != nil {
		t.Errorf("sum policy: %v", err)
	}

	mx := MaxPolicy{}
	refMax := Golden[int32, int32](mx, H, input)
	if _, err := RunShared(ctx, mx, RunConfig{H: H, N: N, GPURuns: 1}, dInput, refMax); err != nil {
		t.Errorf("max policy: %v", err)
	}
}

func TestRunSharedReportsMismatch(t *testing.T) {
	const N = 100000
	const H = 32
	const corrupted = 17
	ctx := NewContextOrFail(t, 1)
	defer ctx.Destroy()

	input := RandomInt32s(N, 8)
	dInput := InputOnDevice(t, ctx, input)
	defer ctx.Free(dInput)

	p := CountPolicy{K: AtomicAdd}
	ref := Golden[int32, uint32](p, H, input)
	ref[corrupted] += 5 // deliberately wrong expectation

	_, err := RunShared(ctx, p, RunConfig{H: H, N: N, GPURuns: 1}, dInput, ref)
	if err == nil {
		t.Fatal("validation should have failed against the corrupted reference")
	}
	if !IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	var ee *EngineError
	if !errors.As(err, &ee) {
		t.Fatalf("error is not an *EngineError: %v", err)
	}
	mm, ok := ee.Context.(Mismatch)
	if !ok {
		t.Fatalf("validation error carries no mismatch: %v", err)
	}
	if mm.Index != corrupted {
		t.Errorf("mismatch index %d, want %d", mm.Index, corrupted)
	}
	if mm.Want != mm.Got+5 {
		t.Errorf("mismatch values got=%v want=%v do not reflect the corruption", mm.Got, mm.Want)
	}
}

func TestRunSharedPropagatesPlannerErrors(t *testing.T) {
	ctx := NewContextOrFail(t, 0)
	defer ctx.Destroy()

	input := RandomInt32s(64, 2)
	dInput := InputOnDevice(t, ctx, input)
	defer ctx.Free(dInput)

	// Degenerate configuration: almost no work per bin
	p := CountPolicy{K: AtomicAdd}
	ref := make([]uint32, 1_000_000)
	_, err := RunShared(ctx, p, RunConfig{H: 1_000_000, N: 64, GPURuns: 1}, dInput, ref)
	if err == nil {
		t.Fatal("expected planner rejection")
	}
	if !IsConfigError(err) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestRunSharedFreesBuffers(t *testing.T) {
	const N = 100000
	const H = 128
	ctx := NewContextOrFail(t, 1)
	defer ctx.Destroy()

	input := RandomInt32s(N, 4)
	dInput := InputOnDevice(t, ctx, input)

	p := CountPolicy{K: AtomicAdd}
	ref := Golden[int32, uint32](p, H, input)

	allocated0, _ := ctx.memory.GetStats()
	if _, err := RunShared(ctx, p, RunConfig{H: H, N: N, GPURuns: 1}, dInput, ref); err != nil {
		t.Fatalf("RunShared: %v", err)
	}
	allocated1, _ := ctx.memory.GetStats()
	if allocated1 != allocated0 {
		t.Errorf("run leaked %d bytes of device memory", allocated1-allocated0)
	}
	ctx.Free(dInput)
}

func TestPlanForFreesBuffers(t *testing.T) {
	ctx := NewContextOrFail(t, 1)
	defer ctx.Destroy()

	allocated0, _ := ctx.memory.GetStats()
	plan, err := PlanFor[uint32](ctx, 128, 1_000_000, AtomicAdd)
	if err != nil {
		t.Fatalf("PlanFor: %v", err)
	}
	if plan.M < 1 {
		t.Fatalf("bad plan %v", plan)
	}
	allocated1, _ := ctx.memory.GetStats()
	if allocated1 != allocated0 {
		t.Errorf("PlanFor leaked %d bytes", allocated1-allocated0)
	}
}
