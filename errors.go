package histotune

import (
	"fmt"
)

// ErrorType represents categories of errors
type ErrorType int

const (
	// Configuration errors: bad device index, pre-allocated output handles,
	// degenerate execution plans
	ErrTypeConfig ErrorType = iota
	// Memory errors
	ErrTypeMemory
	// Invalid argument errors
	ErrTypeInvalidArg
	// Device errors: kernel launch or execution failures
	ErrTypeDevice
	// Validation errors: device result disagrees with the golden histogram
	ErrTypeValidation
)

// EngineError represents a structured error with context
type EngineError struct {
	Type    ErrorType
	Op      string      // Operation that failed
	Message string      // Human-readable message
	Err     error       // Underlying error if any
	Context interface{} // Additional context
}

// Error implements the error interface
func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("histotune %s error in %s: %s (caused by: %v)",
			e.Type.String(), e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("histotune %s error in %s: %s",
		e.Type.String(), e.Op, e.Message)
}

// Unwrap allows error chain inspection
func (e *EngineError) Unwrap() error {
	return e.Err
}

// String returns the error type as a string
func (t ErrorType) String() string {
	switch t {
	case ErrTypeConfig:
		return "Configuration"
	case ErrTypeMemory:
		return "Memory"
	case ErrTypeInvalidArg:
		return "InvalidArgument"
	case ErrTypeDevice:
		return "Device"
	case ErrTypeValidation:
		return "Validation"
	default:
		return "Unknown"
	}
}

// Mismatch records the first diverging bin found during validation.
// It is attached as Context to validation errors so callers can report
// the failing index and both compared values.
type Mismatch struct {
	Index int
	Got   float64
	Want  float64
}

// Common error constructors

// NewConfigError creates a configuration error
func NewConfigError(op string, message string) error {
	return &EngineError{
		Type:    ErrTypeConfig,
		Op:      op,
		Message: message,
	}
}

// NewMemoryError creates a memory-related error
func NewMemoryError(op string, message string, err error) error {
	return &EngineError{
		Type:    ErrTypeMemory,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// NewInvalidArgError creates an invalid argument error
func NewInvalidArgError(op string, message string) error {
	return &EngineError{
		Type:    ErrTypeInvalidArg,
		Op:      op,
		Message: message,
	}
}

// NewDeviceError creates a device execution error
func NewDeviceError(op string, message string, err error) error {
	return &EngineError{
		Type:    ErrTypeDevice,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// NewValidationError creates a validation error carrying the first mismatch
func NewValidationError(op string, m Mismatch) error {
	return &EngineError{
		Type:    ErrTypeValidation,
		Op:      op,
		Message: fmt.Sprintf("index %d: got %v, want %v", m.Index, m.Got, m.Want),
		Context: m,
	}
}

// Common pre-defined errors

var (
	// ErrOutOfMemory indicates memory allocation failure
	ErrOutOfMemory = NewMemoryError("Malloc", "out of memory", nil)

	// ErrInvalidSize indicates invalid size parameter
	ErrInvalidSize = NewInvalidArgError("Malloc", "size must be positive")

	// ErrDoubleFree indicates double free attempt
	ErrDoubleFree = NewMemoryError("Free", "double free detected", nil)

	// ErrInvalidDevice indicates an out-of-range device index
	ErrInvalidDevice = NewConfigError("NewContext", "device index out of range")
)

// IsConfigError checks if an error is a configuration error
func IsConfigError(err error) bool {
	if e, ok := err.(*EngineError); ok {
		return e.Type == ErrTypeConfig
	}
	return false
}

// IsMemoryError checks if an error is a memory error
func IsMemoryError(err error) bool {
	if e, ok := err.(*EngineError); ok {
		return e.Type == ErrTypeMemory
	}
	return false
}

// IsDeviceError checks if an error is a device execution error
func IsDeviceError(err error) bool {
	if e, ok := err.(*EngineError); ok {
		return e.Type == ErrTypeDevice
	}
	return false
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	if e, ok := err.(*EngineError); ok {
		return e.Type == ErrTypeValidation
	}
	return false
}
