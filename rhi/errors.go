package rhi

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure the way every backend must report it,
// independent of which driver produced it.
type ErrorKind uint8

const (
	// InvalidArgument means a descriptor or handle failed validation
	// before any driver call was made.
	InvalidArgument ErrorKind = iota
	// OutOfMemory means the backend's allocator or driver rejected an
	// allocation for lack of memory.
	OutOfMemory
	// DeviceLost means the device has entered a non-recoverable state;
	// every handle owned by it is now invalid.
	DeviceLost
	// ShaderCompileError means shader translation or validation failed;
	// Log carries the compiler's diagnostic text.
	ShaderCompileError
	// Unsupported means the request is well-formed but the adapter
	// does not implement the requested capability.
	Unsupported
	// DriverError wraps an opaque backend-specific status code that
	// does not map onto any of the other kinds.
	DriverError
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidArgument:
		return "InvalidArgument"
	case OutOfMemory:
		return "OutOfMemory"
	case DeviceLost:
		return "DeviceLost"
	case ShaderCompileError:
		return "ShaderCompileError"
	case Unsupported:
		return "Unsupported"
	case DriverError:
		return "DriverError"
	default:
		return "Unknown"
	}
}

// Error is the taxonomy every rhi operation reports failures through.
// It wraps an optional underlying cause and, for ShaderCompileError,
// carries the compiler log.
type Error struct {
	Kind ErrorKind
	Op   string
	Code int64 // backend status code, meaningful only for DriverError
	Log  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == ShaderCompileError && e.Log != "":
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Log)
	case e.Kind == DriverError:
		return fmt.Sprintf("%s: %s (code %d): %v", e.Op, e.Kind, e.Code, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so
// callers can write errors.Is(err, rhi.ErrDeviceLost) style checks
// against the sentinel Kind values below.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// NewError builds an *Error of the given kind for operation op,
// wrapping cause (which may be nil).
func NewError(kind ErrorKind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// NewShaderCompileError builds a ShaderCompileError carrying the
// compiler's diagnostic log.
func NewShaderCompileError(op, log string) *Error {
	return &Error{Kind: ShaderCompileError, Op: op, Log: log}
}

// NewDriverError builds a DriverError carrying an opaque backend
// status code.
func NewDriverError(op string, code int64, cause error) *Error {
	return &Error{Kind: DriverError, Op: op, Code: code, Err: cause}
}

// Sentinel kind-only errors for use with errors.Is(err, rhi.ErrXxx).
var (
	ErrInvalidArgument    = &Error{Kind: InvalidArgument}
	ErrOutOfMemory        = &Error{Kind: OutOfMemory}
	ErrDeviceLost         = &Error{Kind: DeviceLost}
	ErrShaderCompileError = &Error{Kind: ShaderCompileError}
	ErrUnsupported        = &Error{Kind: Unsupported}
	ErrDriverError        = &Error{Kind: DriverError}
)
