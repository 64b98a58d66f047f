package histotune

import (
	"fmt"
)

// AtomicKind classifies how concurrent updates to a histogram bin are
// synchronized on the device. The shared-memory planner consumes it only
// for sizing: exchange-based locking needs an extra lock word per element.
type AtomicKind int

const (
	// AtomicAdd updates bins with a hardware add
	AtomicAdd AtomicKind = iota
	// AtomicCAS updates bins with a compare-and-swap retry loop
	AtomicCAS
	// AtomicXchg updates bins under an exchange-based per-bin lock
	AtomicXchg
)

// String returns the kind's short name
func (k AtomicKind) String() string {
	switch k {
	case AtomicAdd:
		return "add"
	case AtomicCAS:
		return "cas"
	case AtomicXchg:
		return "xcg"
	default:
		return "unknown"
	}
}

// ParseAtomicKind converts a short name into an AtomicKind
func ParseAtomicKind(s string) (AtomicKind, error) {
	switch s {
	case "add":
		return AtomicAdd, nil
	case "cas":
		return AtomicCAS, nil
	case "xcg":
		return AtomicXchg, nil
	default:
		return 0, NewInvalidArgError("ParseAtomicKind", fmt.Sprintf("unknown atomic kind %q", s))
	}
}

// Accum is the set of accumulator types a histogram policy may bin into
type Accum interface {
	~int32 | ~int64 | ~uint32 | ~uint64 | ~float32 | ~float64
}

// Policy binds an input element type E to an accumulator type A through
// an index+value extraction function and a combine operator.
//
// Bin must return an index in [0, h). Combine must be associative and
// commutative: partial results are folded across replicas, blocks and
// chunks in no particular order, and the result is still required to
// match the sequential golden computation within tolerance.
type Policy[E any, A Accum] interface {
	Bin(h int, x E) (index int, value A)
	Combine(a, b A) A
	Kind() AtomicKind
}

// CountPolicy counts occurrences: each element contributes 1 to the bin
// selected by its value modulo H. The atomic kind is configurable so the
// same workload can exercise add, CAS and lock-based sizing.
type CountPolicy struct {
	K AtomicKind
}

// Bin selects bin x mod h with unit weight
func (p CountPolicy) Bin(h int, x int32) (int, uint32) {
	return int(uint32(x) % uint32(h)), 1
}

// Combine adds two partial counts
func (p CountPolicy) Combine(a, b uint32) uint32 {
	return a + b
}

// Kind returns the configured atomic kind
func (p CountPolicy) Kind() AtomicKind {
	return p.K
}

// SumPolicy accumulates a floating-point weight per element. The weight
// is an exact multiple of 0.25 so partial sums are exact regardless of
// association order and validation can use a tight absolute tolerance.
type SumPolicy struct {
	K AtomicKind
}

// Bin selects bin x mod h and weights by the low element bits
func (p SumPolicy) Bin(h int, x int32) (int, float32) {
	return int(uint32(x) % uint32(h)), float32(uint32(x)&0x3) * 0.25
}

// Combine adds two partial sums
func (p SumPolicy) Combine(a, b float32) float32 {
	return a + b
}

// Kind returns the configured atomic kind
func (p SumPolicy) Kind() AtomicKind {
	return p.K
}

// MaxPolicy keeps the maximum element value seen per bin. Max of a pair
// is not a single hardware atomic for every accumulator type, so it is
// classified as exchange-based locking.
type MaxPolicy struct{}

// Bin selects bin x mod h with the element itself as the value
func (p MaxPolicy) Bin(h int, x int32) (int, int32) {
	return int(uint32(x) % uint32(h)), x
}

// Combine keeps the larger value
func (p MaxPolicy) Combine(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

// Kind classifies max updates as exchange-based
func (p MaxPolicy) Kind() AtomicKind {
	return AtomicXchg
}
