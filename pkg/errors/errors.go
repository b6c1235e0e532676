// Package errors provides structured error handling for the grove library.
package errors

import (
	"fmt"
	"time"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindSurface indicates a rendering surface error.
	KindSurface
	// KindObserver indicates a size observation error.
	KindObserver
	// KindTask indicates a rooted task error.
	KindTask
	// KindCallback indicates a failure inside a user callback.
	KindCallback
	// KindScenario indicates a scenario loading or validation error.
	KindScenario
	// KindPanic indicates a recovered panic.
	KindPanic
)

func (k ErrorKind) String() string {
	switch k {
	case KindSurface:
		return "surface"
	case KindObserver:
		return "observer"
	case KindTask:
		return "task"
	case KindCallback:
		return "callback"
	case KindScenario:
		return "scenario"
	case KindPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// GroveError represents a structured error in the grove library.
type GroveError struct {
	// Op is the operation that failed (e.g., "scope.Node.Splice").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Err is the underlying error.
	Err error
	// Handle is the surface element involved, if applicable (0 for none).
	Handle uint64
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *GroveError) Error() string {
	if e.Handle != 0 {
		return fmt.Sprintf("%s [%s] handle=%d: %v", e.Op, e.Kind, e.Handle, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *GroveError) Unwrap() error {
	return e.Err
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "surface.Memory.Dispatch").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// CallbackError represents a failure inside a user-registered callback.
type CallbackError struct {
	// Event is the event type the callback was registered for
	// ("resize" for size observation callbacks).
	Event string
	// Handle is the surface element the callback was attached to.
	Handle uint64
	// Recovered is the panic value (nil for regular errors).
	Recovered any
	// Err is the underlying error (nil for panics).
	Err error
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *CallbackError) Error() string {
	if e.Recovered != nil {
		return fmt.Sprintf("panic in %q callback for handle %d: %v", e.Event, e.Handle, e.Recovered)
	}
	if e.Err != nil {
		return fmt.Sprintf("error in %q callback for handle %d: %v", e.Event, e.Handle, e.Err)
	}
	return fmt.Sprintf("unknown error in %q callback for handle %d", e.Event, e.Handle)
}

func (e *CallbackError) Unwrap() error {
	return e.Err
}

// ErrorHandler receives errors reported by the grove library.
type ErrorHandler interface {
	// HandleError is called when an error occurs.
	HandleError(err *GroveError)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
	// HandleCallbackError is called when a user callback fails.
	HandleCallbackError(err *CallbackError)
}
