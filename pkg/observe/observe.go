// Package observe multiplexes a surface's size observation machinery.
//
// A surface hands out SizeSubscriptions, each of which watches any number
// of targets through one callback. Observer fans a single subscription out
// to per-target registrations that are released independently, so many tree
// nodes can share one subscription the way they share one surface.
package observe

import (
	"errors"
	"sync"

	groveerrors "github.com/go-grove/grove/pkg/errors"
	"github.com/go-grove/grove/pkg/surface"
)

// Callback receives an observed element's new size.
type Callback func(inline, block float64)

// Observer fans one surface size subscription out to independently
// released per-target registrations. Registrations on one target coexist:
// each Observe adds one, every delivery reaches all of them, and the target
// stays observed on the surface until its last registration is released.
type Observer struct {
	mu      sync.Mutex
	sub     surface.SizeSubscription
	targets map[surface.Handle]*fanout
	closed  bool
}

// fanout is one observed target's delivery state: its live registrations
// and the last size the subscription delivered for it.
type fanout struct {
	regs   []*Registration
	inline float64
	block  float64
	seeded bool
}

// New creates an Observer backed by a fresh subscription on svc.
func New(svc surface.SizeObserver) (*Observer, error) {
	o := &Observer{targets: make(map[surface.Handle]*fanout)}
	sub, err := svc.NewSizeSubscription(o.route)
	if err != nil {
		return nil, err
	}
	o.sub = sub
	return o, nil
}

// route delivers a subscription entry to every registration on its target.
func (o *Observer) route(e surface.SizeEntry) {
	o.mu.Lock()
	f := o.targets[e.Target]
	if f == nil {
		o.mu.Unlock()
		return
	}
	f.inline, f.block = e.Inline, e.Block
	f.seeded = true
	regs := append([]*Registration(nil), f.regs...)
	o.mu.Unlock()
	for _, r := range regs {
		r.fn(e.Inline, e.Block)
	}
}

// remove unlinks a registration from its target, reporting whether it was
// the target's last. Caller holds o.mu.
func (o *Observer) remove(r *Registration) bool {
	f := o.targets[r.target]
	if f == nil {
		return false
	}
	for i, x := range f.regs {
		if x != r {
			continue
		}
		f.regs = append(f.regs[:i], f.regs[i+1:]...)
		if len(f.regs) == 0 {
			delete(o.targets, r.target)
			return true
		}
		return false
	}
	return false
}

// Observe registers fn for the target's size changes. The callback fires
// once before Observe returns with the target's current size.
func (o *Observer) Observe(t surface.Handle, fn Callback) (*Registration, error) {
	return o.ObserveWithOptions(t, surface.ObserveOptions{}, fn)
}

// ObserveWithOptions is Observe with an explicit box model. A target's box
// model is set by its first live registration; options on later ones are
// ignored.
func (o *Observer) ObserveWithOptions(t surface.Handle, opts surface.ObserveOptions, fn Callback) (*Registration, error) {
	if fn == nil {
		return nil, surface.ErrInvalidArgument
	}
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, surface.ErrClosed
	}
	r := &Registration{o: o, target: t, fn: fn}
	if f := o.targets[t]; f != nil {
		f.regs = append(f.regs, r)
		seeded, inline, block := f.seeded, f.inline, f.block
		o.mu.Unlock()
		// The target is already observed; replay the last delivered size.
		// Unseeded means the first registration's immediate fire is still
		// in flight and route will reach this one.
		if seeded {
			fn(inline, block)
		}
		return r, nil
	}
	o.targets[t] = &fanout{regs: []*Registration{r}}
	sub := o.sub
	o.mu.Unlock()

	// The registration is routable before the subscription's immediate
	// fire happens.
	if err := sub.ObserveWithOptions(t, opts); err != nil {
		o.mu.Lock()
		o.remove(r)
		o.mu.Unlock()
		return nil, err
	}
	return r, nil
}

// Close releases the underlying subscription. Registrations released after
// Close are no-ops. Closing twice is a no-op.
func (o *Observer) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	o.targets = nil
	sub := o.sub
	o.mu.Unlock()
	return sub.Close()
}

// Registration is one callback's place in an Observer.
type Registration struct {
	o      *Observer
	target surface.Handle
	fn     Callback
}

// Release drops the registration; the target stops being observed when its
// last registration goes. Releasing twice or releasing after the observer
// closed are no-ops.
func (r *Registration) Release() {
	o := r.o
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	last := o.remove(r)
	sub := o.sub
	o.mu.Unlock()
	if !last {
		return
	}
	if err := sub.Unobserve(r.target); err != nil && !errors.Is(err, surface.ErrClosed) {
		groveerrors.Report(&groveerrors.GroveError{
			Op:     "observe.Registration.Release",
			Kind:   groveerrors.KindObserver,
			Handle: uint64(r.target),
			Err:    err,
		})
	}
}

var (
	sharedMu sync.Mutex
	shared   = make(map[surface.SizeObserver]*Observer)
)

// Shared returns the process-wide Observer for the given service, creating
// it on first use. Shared observers stay open for the life of the process.
// Services must be comparable; pointer implementations are.
func Shared(svc surface.SizeObserver) (*Observer, error) {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if o, ok := shared[svc]; ok {
		return o, nil
	}
	o, err := New(svc)
	if err != nil {
		return nil, err
	}
	shared[svc] = o
	return o, nil
}
