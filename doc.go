// Package histotune is an auto-tuning execution engine for GPU-style
// histogram computation, running on an emulated CUDA-like device.
//
// Given a problem size (input length N, histogram size H) and a histogram
// policy (index/value extraction, combine operator, atomic-primitive kind),
// the engine derives a near-optimal execution plan: how many private
// sub-histogram replicas each thread block keeps in fast on-chip memory,
// how many chunks the histogram must be split into to fit that memory,
// and the grid/block/shared-memory launch geometry. The plan is then
// driven through a multi-pass kernel sequence (cooperative per-block
// build, then a cross-block reduction) and validated against a sequential
// golden histogram.
//
// The device runtime underneath (contexts, streams, device pointers,
// kernel launches) mirrors the CUDA host API so that tuning logic written
// here transfers directly to real accelerators.
package histotune
