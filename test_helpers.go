package histotune

import (
	"testing"
)

// NewContextOrFail creates a context and fails the test if unsuccessful
func NewContextOrFail(t testing.TB, deviceID int) *Context {
	t.Helper()
	ctx, err := NewContext(deviceID)
	if err != nil {
		t.Fatalf("Failed to create context for device %d: %v", deviceID, err)
	}
	return ctx
}

// MallocOrFail allocates device memory and fails the test if unsuccessful
func MallocOrFail(t testing.TB, ctx *Context, size int) DevicePtr {
	t.Helper()
	ptr, err := ctx.Malloc(size)
	if err != nil {
		t.Fatalf("Failed to allocate %d bytes: %v", size, err)
	}
	return ptr
}

// MemcpyOrFail copies data and fails the test if unsuccessful
func MemcpyOrFail(t testing.TB, ctx *Context, dst, src interface{}, size int, direction MemcpyKind) {
	t.Helper()
	if err := ctx.Memcpy(dst, src, size, direction); err != nil {
		t.Fatalf("Memcpy failed: %v", err)
	}
}

// SynchronizeOrFail synchronizes and fails the test if unsuccessful
func SynchronizeOrFail(t testing.TB, ctx *Context) {
	t.Helper()
	if err := ctx.Synchronize(); err != nil {
		t.Fatalf("Synchronize failed: %v", err)
	}
}

// InputOnDevice allocates device memory for the input and copies it over
func InputOnDevice(t testing.TB, ctx *Context, input []int32) DevicePtr {
	t.Helper()
	d := MallocOrFail(t, ctx, len(input)*4)
	MemcpyOrFail(t, ctx, d, input, len(input)*4, MemcpyHostToDevice)
	return d
}
