package scope

import (
	"reflect"

	groveerrors "github.com/go-grove/grove/pkg/errors"
	"github.com/go-grove/grove/pkg/observe"
	"github.com/go-grove/grove/pkg/surface"
)

// Node is one element of a live tree mirrored onto a rendering surface.
//
// A node strongly owns its children and its resources; the parent link is
// non-owning. Mutators return the node for chaining.
type Node struct {
	sfc       surface.Surface
	handle    surface.Handle
	parent    *Node
	index     int
	children  []*Node
	resources []*Resource
	refs      int
	dead      bool
	mutating  bool
}

// New creates a detached node backed by a fresh surface element with the
// given tag. The caller owns one reference.
func New(s surface.Surface, tag string) *Node {
	h, err := s.Create(tag)
	if err != nil {
		panic(surfaceErr("scope.New", err, surface.None))
	}
	return &Node{sfc: s, handle: h, refs: 1}
}

// FromHandle adopts an existing surface element. The caller owns one
// reference; releasing it releases the handle.
func FromHandle(s surface.Surface, h surface.Handle) *Node {
	if h == surface.None {
		panic("scope: adopting the zero handle")
	}
	return &Node{sfc: s, handle: h, refs: 1}
}

func surfaceErr(op string, err error, h surface.Handle) *groveerrors.GroveError {
	return &groveerrors.GroveError{
		Op:     op,
		Kind:   groveerrors.KindSurface,
		Handle: uint64(h),
		Err:    err,
	}
}

func (n *Node) ensureAlive() {
	if n.dead {
		panic("scope: use of released node")
	}
}

func (n *Node) beginMutation() {
	n.ensureAlive()
	if n.mutating {
		panic("scope: reentrant mutation")
	}
	n.mutating = true
}

func (n *Node) endMutation() {
	n.mutating = false
}

// checkAdds validates children about to be attached, before any mutation.
func (n *Node) checkAdds(adds []*Node) {
	seen := make(map[*Node]bool, len(adds))
	for _, c := range adds {
		if c == nil {
			panic("scope: nil child")
		}
		if c.dead {
			panic("scope: use of released node")
		}
		if c.parent != nil {
			panic("scope: node already attached")
		}
		if c.sfc != n.sfc {
			panic("scope: child belongs to a different surface")
		}
		if seen[c] {
			panic("scope: duplicate child in one operation")
		}
		seen[c] = true
		if c == n {
			panic("scope: node cannot contain itself")
		}
		for p := n.parent; p != nil; p = p.parent {
			if p == c {
				panic("scope: node cannot adopt its ancestor")
			}
		}
	}
}

// Retain adds a strong reference and returns the node.
func (n *Node) Retain() *Node {
	n.ensureAlive()
	n.refs++
	return n
}

// Release drops a strong reference. Dropping the last one tears the node
// down: children are released recursively, then resources in registration
// order, then the surface handle.
func (n *Node) Release() {
	n.ensureAlive()
	n.refs--
	if n.refs == 0 {
		n.teardown()
	}
}

func (n *Node) teardown() {
	if n.mutating {
		panic("scope: reentrant mutation")
	}
	n.dead = true
	n.mutating = true
	kids := n.children
	n.children = nil
	for _, c := range kids {
		c.parent = nil
		c.index = 0
		c.Release()
	}
	res := n.resources
	n.resources = nil
	for _, r := range res {
		r.Release()
	}
	if err := n.sfc.Release(n.handle); err != nil {
		panic(surfaceErr("scope.Node.Release", err, n.handle))
	}
}

// Push appends a detached child, transferring the caller's reference to
// the tree.
func (n *Node) Push(child *Node) *Node {
	return n.Extend(child)
}

// Extend appends detached children in order, transferring their references
// to the tree.
func (n *Node) Extend(children ...*Node) *Node {
	n.beginMutation()
	defer n.endMutation()
	n.checkAdds(children)
	for _, c := range children {
		if err := n.sfc.AppendChild(n.handle, c.handle); err != nil {
			panic(surfaceErr("scope.Node.Extend", err, c.handle))
		}
		c.parent = n
		c.index = len(n.children)
		n.children = append(n.children, c)
	}
	return n
}

// Splice removes `remove` children at offset and attaches add in their
// place. The surface sees the removals, then the insertions, before the
// logical tree is renumbered. Removed children lose the tree's reference
// after the structure is consistent again.
func (n *Node) Splice(offset, remove int, add ...*Node) *Node {
	n.beginMutation()
	defer n.endMutation()
	if offset < 0 || remove < 0 || offset+remove > len(n.children) {
		panic("scope: splice out of range")
	}
	n.checkAdds(add)

	removed := make([]*Node, remove)
	copy(removed, n.children[offset:offset+remove])
	for _, c := range removed {
		if err := n.sfc.RemoveChild(c.handle); err != nil {
			panic(surfaceErr("scope.Node.Splice", err, c.handle))
		}
	}

	// Insert before the element that now sits at offset; past the last
	// survivor this appends.
	ref := surface.None
	if offset+remove < len(n.children) {
		ref = n.children[offset+remove].handle
	}
	for _, c := range add {
		if err := n.sfc.InsertBefore(n.handle, c.handle, ref); err != nil {
			panic(surfaceErr("scope.Node.Splice", err, c.handle))
		}
	}

	tail := make([]*Node, len(n.children)-offset-remove)
	copy(tail, n.children[offset+remove:])
	n.children = append(n.children[:offset], add...)
	n.children = append(n.children, tail...)

	for _, c := range removed {
		c.parent = nil
		c.index = 0
	}
	for _, c := range add {
		c.parent = n
	}
	for i := offset; i < len(n.children); i++ {
		n.children[i].index = i
	}

	for _, c := range removed {
		c.Release()
	}
	return n
}

// Clear detaches and releases all children with a single surface call,
// which also drops any text run.
func (n *Node) Clear() *Node {
	n.beginMutation()
	defer n.endMutation()
	if err := n.sfc.ClearText(n.handle); err != nil {
		panic(surfaceErr("scope.Node.Clear", err, n.handle))
	}
	kids := n.children
	n.children = nil
	for _, c := range kids {
		c.parent = nil
		c.index = 0
		c.Release()
	}
	return n
}

// Remove detaches the node from its parent, releasing the tree's
// reference. Removing a detached node is a no-op. Retain first to keep the
// node past its removal.
func (n *Node) Remove() {
	n.ensureAlive()
	p := n.parent
	if p == nil {
		return
	}
	p.Splice(n.index, 1)
}

// Replace swaps the node for the given detached replacements.
//
// Attached, the parent splices them in at the node's position and this node
// is released. Detached, the node releases its own children and resources,
// takes ownership of the replacements, and asks the surface to swap the
// elements; the node then lives on only to root the replacements, and
// further mutations of it are invisible.
func (n *Node) Replace(with ...*Node) {
	n.ensureAlive()
	if p := n.parent; p != nil {
		p.Splice(n.index, 1, with...)
		return
	}
	n.pseudoReplace(with)
}

func (n *Node) pseudoReplace(with []*Node) {
	n.beginMutation()
	defer n.endMutation()
	n.checkAdds(with)

	kids := n.children
	n.children = nil
	for _, c := range kids {
		c.parent = nil
		c.index = 0
		c.Release()
	}
	res := n.resources
	n.resources = nil
	for _, r := range res {
		r.Release()
	}

	handles := make([]surface.Handle, len(with))
	for i, c := range with {
		handles[i] = c.handle
	}
	if err := n.sfc.ReplaceWith(n.handle, handles...); err != nil {
		panic(surfaceErr("scope.Node.Replace", err, n.handle))
	}
	n.resources = append(n.resources, Hold(with))

	// Point the node at a fresh inert element so the swapped-out one can
	// be discarded.
	old := n.handle
	fresh, err := n.sfc.Create("div")
	if err != nil {
		panic(surfaceErr("scope.Node.Replace", err, surface.None))
	}
	n.handle = fresh
	if err := n.sfc.Release(old); err != nil {
		panic(surfaceErr("scope.Node.Replace", err, old))
	}
}

// Text replaces the node's entire content with a text run. The surface
// detaches child elements but logical children stay attached and owned;
// call Clear first when the node has children.
func (n *Node) Text(text string) *Node {
	n.ensureAlive()
	if err := n.sfc.SetText(n.handle, text); err != nil {
		panic(surfaceErr("scope.Node.Text", err, n.handle))
	}
	return n
}

// Attr sets a string attribute on the node's element.
func (n *Node) Attr(key, value string) *Node {
	n.ensureAlive()
	if err := n.sfc.SetAttribute(n.handle, key, value); err != nil {
		panic(surfaceErr("scope.Node.Attr", err, n.handle))
	}
	return n
}

// RemoveAttr removes an attribute. Removing an absent key is a no-op.
func (n *Node) RemoveAttr(key string) *Node {
	n.ensureAlive()
	if err := n.sfc.RemoveAttribute(n.handle, key); err != nil {
		panic(surfaceErr("scope.Node.RemoveAttr", err, n.handle))
	}
	return n
}

// SetID sets the element's id attribute.
func (n *Node) SetID(id string) *Node {
	return n.Attr("id", id)
}

// Classes adds class names to the node's element.
func (n *Node) Classes(names ...string) *Node {
	n.ensureAlive()
	if err := n.sfc.AddClasses(n.handle, names...); err != nil {
		panic(surfaceErr("scope.Node.Classes", err, n.handle))
	}
	return n
}

// RemoveClasses removes class names from the node's element.
func (n *Node) RemoveClasses(names ...string) *Node {
	n.ensureAlive()
	if err := n.sfc.RemoveClasses(n.handle, names...); err != nil {
		panic(surfaceErr("scope.Node.RemoveClasses", err, n.handle))
	}
	return n
}

// ModifyClasses adds the class names mapped to true and removes the ones
// mapped to false.
func (n *Node) ModifyClasses(changes map[string]bool) *Node {
	n.ensureAlive()
	for name, on := range changes {
		if on {
			n.Classes(name)
		} else {
			n.RemoveClasses(name)
		}
	}
	return n
}

// Own registers a resource built from the node itself, released when the
// node tears down.
func (n *Node) Own(build func(*Node) *Resource) *Node {
	n.ensureAlive()
	if r := build(n); r != nil {
		n.resources = append(n.resources, r)
	}
	return n
}

// OwnResource registers already-built resources, released in registration
// order when the node tears down.
func (n *Node) OwnResource(rs ...*Resource) *Node {
	n.ensureAlive()
	for _, r := range rs {
		if r != nil {
			n.resources = append(n.resources, r)
		}
	}
	return n
}

// On listens for surface events on the node's element for as long as the
// node lives. The surface must support event listening.
func (n *Node) On(event string, fn func(surface.Event)) *Node {
	return n.OnWithOptions(event, surface.ListenOptions{}, fn)
}

// OnWithOptions is On with explicit listener flags.
func (n *Node) OnWithOptions(event string, opts surface.ListenOptions, fn func(surface.Event)) *Node {
	n.ensureAlive()
	ev, ok := n.sfc.(surface.Events)
	if !ok {
		panic(surfaceErr("scope.Node.On", surface.ErrEventsUnsupported, n.handle))
	}
	token, err := ev.ListenWithOptions(n.handle, event, opts, fn)
	if err != nil {
		panic(surfaceErr("scope.Node.On", err, n.handle))
	}
	n.resources = append(n.resources, NewResource(token.Cancel))
	return n
}

// OnResize observes the element's size for as long as the node lives,
// through the surface's shared observer. The callback fires once
// immediately with the current size and never after teardown begins. The
// surface must support size observation.
func (n *Node) OnResize(fn func(n *Node, inline, block float64)) *Node {
	n.ensureAlive()
	svc, ok := n.sfc.(surface.SizeObserver)
	if !ok {
		panic(surfaceErr("scope.Node.OnResize", surface.ErrResizeUnsupported, n.handle))
	}
	o, err := observe.Shared(svc)
	if err != nil {
		panic(surfaceErr("scope.Node.OnResize", err, n.handle))
	}
	w := n.Weak()
	reg, err := o.Observe(n.handle, func(inline, block float64) {
		if live, ok := w.Upgrade(); ok {
			fn(live, inline, block)
		}
	})
	if err != nil {
		panic(surfaceErr("scope.Node.OnResize", err, n.handle))
	}
	n.resources = append(n.resources, NewResource(reg.Release))
	return n
}

// Raw returns the node's surface handle.
func (n *Node) Raw() surface.Handle {
	return n.handle
}

// Surface returns the surface the node lives on.
func (n *Node) Surface() surface.Surface {
	return n.sfc
}

// DebugID returns a process-unique identifier for logging.
func (n *Node) DebugID() uintptr {
	return reflect.ValueOf(n).Pointer()
}

// Weak is a non-owning reference to a node.
type Weak struct {
	n *Node
}

// Weak returns a non-owning reference to the node.
func (n *Node) Weak() Weak {
	return Weak{n: n}
}

// Upgrade returns the node while it is still alive. The pointer is valid
// for synchronous use; Retain extends its lifetime beyond that.
func (w Weak) Upgrade() (*Node, bool) {
	if w.n == nil || w.n.dead {
		return nil, false
	}
	return w.n, true
}
