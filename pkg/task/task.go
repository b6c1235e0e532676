// Package task binds background work to scope ownership.
//
// A task started with [Go] or [Spawn] is tied to a [scope.Resource] cell:
// releasing the cell cancels the task's context, and a task cancelled
// before its scheduler runs it never executes at all. Owning the cell on a
// node (via Own or OwnResource) therefore stops the work when the node is
// released.
//
// Tasks run on a [Scheduler], an external cooperative executor. [Loop] is
// the reference implementation: a single-goroutine queue that the program
// drives with Run or Drain. Because all submitted work runs on one
// goroutine, task bodies may touch nodes freely; code on other goroutines
// must Submit instead.
package task

import (
	"context"
	"sync/atomic"

	groveerrors "github.com/go-grove/grove/pkg/errors"
	"github.com/go-grove/grove/pkg/scope"
)

// Scheduler runs submitted functions, typically on a single goroutine.
type Scheduler interface {
	Submit(run func())
}

// Binding states. A binding starts running and settles exactly once.
const (
	stateRunning int32 = iota
	stateCompleted
	stateCancelled
)

// Binding is a handle to a scheduled task with a result of type T.
//
// The binding settles exactly once, either by the body completing or by
// the cell being released, whichever comes first. The loser's effects are
// suppressed: a result computed after cancellation is discarded, and
// releasing the cell after completion is a no-op.
type Binding[T any] struct {
	state  atomic.Int32
	ctx    context.Context
	cancel context.CancelFunc
	result chan T
	cell   *scope.Resource
}

// Go schedules body on s and returns its binding.
//
// The body receives a context that is cancelled when the binding's cell is
// released. Cancellation is cooperative: a body already running observes
// it at its own checkpoints, and synchronous tails run out. A body that
// panics is recovered, reported through the global error handler, and the
// binding completes with no result.
func Go[T any](s Scheduler, body func(ctx context.Context) T) *Binding[T] {
	if s == nil {
		panic("task: nil scheduler")
	}
	if body == nil {
		panic("task: nil task body")
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &Binding[T]{
		ctx:    ctx,
		cancel: cancel,
		result: make(chan T, 1),
	}
	b.cell = scope.NewResource(b.abandon)
	s.Submit(func() { b.run(body) })
	return b
}

// Spawn schedules body on s and returns the cell that cancels it.
// It is Go for tasks with no result.
func Spawn(s Scheduler, body func(ctx context.Context)) *scope.Resource {
	if body == nil {
		panic("task: nil task body")
	}
	b := Go(s, func(ctx context.Context) struct{} {
		body(ctx)
		return struct{}{}
	})
	return b.Cell()
}

// Cell returns the resource that cancels the task when released.
func (b *Binding[T]) Cell() *scope.Resource {
	return b.cell
}

// Result returns the channel the task's result is delivered on. On
// completion the channel yields the result and is closed; on cancellation
// or a body panic it is closed without a value.
func (b *Binding[T]) Result() <-chan T {
	return b.result
}

func (b *Binding[T]) run(body func(context.Context) T) {
	if b.state.Load() != stateRunning {
		return
	}
	v, ok := b.invoke(body)
	if !b.state.CompareAndSwap(stateRunning, stateCompleted) {
		// Cancelled mid-body; the cancel path already closed the channel.
		return
	}
	b.cancel()
	if ok {
		b.result <- v
	}
	close(b.result)
}

// invoke runs the body, turning a panic into a missing result.
func (b *Binding[T]) invoke(body func(context.Context) T) (v T, ok bool) {
	defer groveerrors.Recover("task.Go")
	return body(b.ctx), true
}

// abandon is the cell's teardown: cancel the context and, if the body has
// not completed, settle the binding as cancelled.
func (b *Binding[T]) abandon() {
	b.cancel()
	if b.state.CompareAndSwap(stateRunning, stateCancelled) {
		close(b.result)
	}
}
