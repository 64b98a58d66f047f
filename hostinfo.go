package histotune

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/cpu"
)

// hostDevice synthesizes a device profile from the host CPU so the engine
// has a device 0 that always exists. Multiprocessors map to physical
// cores; the per-block limits are sized so a whole block's shared arena
// stays cache-resident.
func hostDevice() Device {
	return Device{
		ID:                          0,
		Name:                        fmt.Sprintf("Host CPU (%d cores, %s)", runtime.NumCPU(), hostSIMDLevel()),
		MultiProcessorCount:         runtime.NumCPU(),
		MaxThreadsPerMultiProcessor: 512,
		MaxThreadsPerBlock:          256,
		SharedMemPerBlock:           32 * 1024,
		L2CacheSize:                 1024 * 1024,
		RaceFactor:                  0.5,
	}
}

// hostSIMDLevel names the widest vector extension the host supports
func hostSIMDLevel() string {
	switch {
	case cpu.X86.HasAVX512F:
		return "AVX512"
	case cpu.X86.HasAVX2 && cpu.X86.HasFMA:
		return "AVX2"
	case cpu.X86.HasAVX:
		return "AVX"
	case cpu.X86.HasSSE41 || cpu.X86.HasSSE42:
		return "SSE4"
	case cpu.ARM64.HasASIMD:
		return "NEON"
	default:
		return "scalar"
	}
}
