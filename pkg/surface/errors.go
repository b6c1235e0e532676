package surface

import "errors"

// Sentinel errors for surface operations.
var (
	// ErrUnknownHandle is returned when a handle does not resolve to a
	// live element, including handles already released and discarded.
	ErrUnknownHandle = errors.New("surface: unknown handle")

	// ErrAlreadyAttached is returned when attaching an element that
	// already has a parent.
	ErrAlreadyAttached = errors.New("surface: element already attached")

	// ErrNotChild is returned when a reference element is not a child of
	// the given parent.
	ErrNotChild = errors.New("surface: reference is not a child of parent")

	// ErrDetached is returned when detaching an element that has no parent.
	ErrDetached = errors.New("surface: element has no parent")

	// ErrCycle is returned when an attachment would make an element its
	// own ancestor.
	ErrCycle = errors.New("surface: attach would create a cycle")

	// ErrRootOperation is returned when releasing or replacing the root.
	ErrRootOperation = errors.New("surface: operation not allowed on root")

	// ErrInvalidArgument is returned for empty tags, class names, or
	// attribute keys.
	ErrInvalidArgument = errors.New("surface: invalid argument")

	// ErrClosed is returned when using a closed size subscription.
	ErrClosed = errors.New("surface: subscription closed")

	// ErrEventsUnsupported reports a surface without the Events capability.
	ErrEventsUnsupported = errors.New("surface: event listening unsupported")

	// ErrResizeUnsupported reports a surface without the SizeObserver
	// capability.
	ErrResizeUnsupported = errors.New("surface: size observation unsupported")
)
