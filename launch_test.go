package histotune

import (
	"testing"
)

func TestLaunchCoversGrid(t *testing.T) {
	const N = 10000
	ctx := NewContextOrFail(t, 0)
	defer ctx.Destroy()

	d := MallocOrFail(t, ctx, N*4)
	defer ctx.Free(d)
	slice := d.Int32()

	block := Dim3{X: 256, Y: 1, Z: 1}
	grid := Dim3{X: (N + 255) / 256, Y: 1, Z: 1}

	kernel := func(bc BlockContext) {
		base := bc.BlockIdx.X * bc.BlockDim.X
		for tid := 0; tid < bc.BlockDim.X; tid++ {
			idx := base + tid
			if idx < N {
				slice[idx] = int32(idx)
			}
		}
	}

	if err := ctx.Launch(kernel, grid, block, 0); err != nil {
		t.Fatalf("Launch failed: %v", err)
	}
	SynchronizeOrFail(t, ctx)

	for i := 0; i < N; i++ {
		if slice[i] != int32(i) {
			t.Fatalf("Incorrect value at index %d: got %d", i, slice[i])
		}
	}
}

func TestLaunchGeometryLimits(t *testing.T) {
	ctx := NewContextOrFail(t, 0)
	defer ctx.Destroy()
	dev := ctx.Device()

	nop := func(bc BlockContext) {}

	cases := []struct {
		name  string
		grid  Dim3
		block Dim3
		shmem int
	}{
		{"zero grid", Dim3{X: 0, Y: 1, Z: 1}, Dim3{X: 1, Y: 1, Z: 1}, 0},
		{"zero block", Dim3{X: 1, Y: 1, Z: 1}, Dim3{X: 0, Y: 1, Z: 1}, 0},
		{"oversized block", Dim3{X: 1, Y: 1, Z: 1}, Dim3{X: dev.MaxThreadsPerBlock + 1, Y: 1, Z: 1}, 0},
		{"oversized shmem", Dim3{X: 1, Y: 1, Z: 1}, Dim3{X: 1, Y: 1, Z: 1}, dev.SharedMemPerBlock + 1},
	}
	for _, c := range cases {
		if err := ctx.Launch(nop, c.grid, c.block, c.shmem); err == nil {
			t.Errorf("%s: Launch should have failed", c.name)
		}
	}
}

func TestLaunchSharedArenasAreIsolated(t *testing.T) {
	ctx := NewContextOrFail(t, 0)
	defer ctx.Destroy()

	const grid = 32
	const shmem = 1024
	out := MallocOrFail(t, ctx, grid*4)
	defer ctx.Free(out)
	res := out.Int32()

	// Each block writes its own ID across its arena, then checks nothing
	// else scribbled on it
	kernel := func(bc BlockContext) {
		id := byte(bc.BlockIdx.X)
		for i := range bc.Shared {
			bc.Shared[i] = id
		}
		ok := int32(1)
		for i := range bc.Shared {
			if bc.Shared[i] != id {
				ok = 0
			}
		}
		res[bc.BlockIdx.X] = ok
	}

	if err := ctx.Launch(kernel, Dim3{X: grid, Y: 1, Z: 1}, Dim3{X: 1, Y: 1, Z: 1}, shmem); err != nil {
		t.Fatalf("Launch failed: %v", err)
	}
	SynchronizeOrFail(t, ctx)

	for b := 0; b < grid; b++ {
		if res[b] != 1 {
			t.Fatalf("block %d observed interference in its shared arena", b)
		}
	}
}

func TestLaunchPanicSurfacesOnSynchronize(t *testing.T) {
	ctx := NewContextOrFail(t, 0)
	defer ctx.Destroy()

	kernel := func(bc BlockContext) {
		var s []int
		_ = s[3] // out-of-bounds access inside the kernel
	}
	if err := ctx.Launch(kernel, Dim3{X: 1, Y: 1, Z: 1}, Dim3{X: 1, Y: 1, Z: 1}, 0); err != nil {
		t.Fatalf("submission should succeed, got %v", err)
	}
	err := ctx.Synchronize()
	if err == nil {
		t.Fatal("expected asynchronous error after kernel panic")
	}
	if !IsDeviceError(err) {
		t.Errorf("expected device error, got %v", err)
	}
	ctx.stream.ClearError()
}
