package scope

import (
	"io"

	groveerrors "github.com/go-grove/grove/pkg/errors"
)

// Resource is a one-shot teardown cell. Release runs the wrapped teardown
// exactly once; later calls are no-ops. The zero value is already released.
type Resource struct {
	teardown func()
}

// NewResource wraps a teardown function.
func NewResource(teardown func()) *Resource {
	return &Resource{teardown: teardown}
}

// Hold wraps an arbitrary value, keeping it reachable until Release and
// releasing what it knows how to release: nodes, resources, slices of
// either, values with a Release method, Closers, and bare funcs. Anything
// else is inert retention.
func Hold(v any) *Resource {
	switch x := v.(type) {
	case nil:
		return &Resource{}
	case *Node:
		return NewResource(x.Release)
	case []*Node:
		return NewResource(func() {
			for _, n := range x {
				if n != nil {
					n.Release()
				}
			}
		})
	case *Resource:
		return NewResource(x.Release)
	case []*Resource:
		return NewResource(func() {
			for _, r := range x {
				if r != nil {
					r.Release()
				}
			}
		})
	case interface{ Release() }:
		return NewResource(x.Release)
	case io.Closer:
		return NewResource(func() {
			if err := x.Close(); err != nil {
				groveerrors.Report(&groveerrors.GroveError{
					Op:   "scope.Resource.Release",
					Kind: groveerrors.KindUnknown,
					Err:  err,
				})
			}
		})
	case func():
		return NewResource(x)
	default:
		// The closure keeps x reachable until the cell is released.
		return NewResource(func() { _ = x })
	}
}

// Release runs the teardown exactly once. Releasing again, releasing a nil
// cell, and releasing from inside the teardown itself are all no-ops.
func (r *Resource) Release() {
	if r == nil {
		return
	}
	t := r.teardown
	if t == nil {
		return
	}
	r.teardown = nil
	t()
}

// Released reports whether the cell's teardown has already run.
func (r *Resource) Released() bool {
	return r == nil || r.teardown == nil
}
