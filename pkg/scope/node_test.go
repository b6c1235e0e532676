package scope

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	groveerrors "github.com/go-grove/grove/pkg/errors"
	"github.com/go-grove/grove/pkg/surface"
)

func surfaceChildren(t *testing.T, m *surface.Memory, h surface.Handle) []surface.Handle {
	t.Helper()
	kids, err := m.Children(h)
	if err != nil {
		t.Fatalf("Children failed: %v", err)
	}
	return kids
}

func mustPanic(t *testing.T, contains string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic containing %q", contains)
		}
		msg, ok := r.(string)
		if !ok {
			t.Fatalf("expected string panic, got %T: %v", r, r)
		}
		if !strings.Contains(msg, contains) {
			t.Fatalf("panic %q does not contain %q", msg, contains)
		}
	}()
	fn()
}

func TestNewCreatesDetachedElement(t *testing.T) {
	m := surface.NewMemory()
	n := New(m, "div")

	tag, err := m.Tag(n.Raw())
	if err != nil {
		t.Fatalf("Tag failed: %v", err)
	}
	if tag != "div" {
		t.Errorf("tag = %q, want %q", tag, "div")
	}
	if p, _ := m.Parent(n.Raw()); p != surface.None {
		t.Errorf("new node attached, parent = %d", p)
	}
	if n.Surface() != surface.Surface(m) {
		t.Error("Surface() does not return the creating surface")
	}

	n.Release()
	if _, err := m.Tag(n.Raw()); err == nil {
		t.Error("expected handle released after node release")
	}
}

func TestExtendAppendsInOrder(t *testing.T) {
	m := surface.NewMemory()
	root := New(m, "div")
	b := New(m, "span")
	c := New(m, "span")

	root.Extend(b, c)

	want := []surface.Handle{b.Raw(), c.Raw()}
	if diff := cmp.Diff(want, surfaceChildren(t, m, root.Raw())); diff != "" {
		t.Errorf("surface children mismatch (-want +got):\n%s", diff)
	}
	if b.parent != root || b.index != 0 {
		t.Errorf("b linkage = (%p, %d), want (%p, 0)", b.parent, b.index, root)
	}
	if c.parent != root || c.index != 1 {
		t.Errorf("c linkage = (%p, %d), want (%p, 1)", c.parent, c.index, root)
	}

	root.Release()
}

func TestSpliceReplaceMiddle(t *testing.T) {
	m := surface.NewMemory()
	root := New(m, "div")
	b := New(m, "b")
	c := New(m, "c")
	root.Extend(b, c)

	cw := c.Weak()
	d := New(m, "d")
	root.Splice(1, 1, d)

	want := []surface.Handle{b.Raw(), d.Raw()}
	if diff := cmp.Diff(want, surfaceChildren(t, m, root.Raw())); diff != "" {
		t.Errorf("surface children mismatch (-want +got):\n%s", diff)
	}
	if d.parent != root || d.index != 1 {
		t.Errorf("d linkage = (%p, %d), want (%p, 1)", d.parent, d.index, root)
	}
	// The removed, unretained child tears down.
	if _, ok := cw.Upgrade(); ok {
		t.Error("expected removed child to be dead")
	}

	root.Release()
}

func TestSpliceInsertBeforeSurvivor(t *testing.T) {
	m := surface.NewMemory()
	root := New(m, "div")
	b := New(m, "b")
	c := New(m, "c")
	root.Extend(b, c)

	d := New(m, "d")
	root.Splice(0, 1, d)

	want := []surface.Handle{d.Raw(), c.Raw()}
	if diff := cmp.Diff(want, surfaceChildren(t, m, root.Raw())); diff != "" {
		t.Errorf("surface children mismatch (-want +got):\n%s", diff)
	}
	if d.index != 0 || c.index != 1 {
		t.Errorf("indices = (%d, %d), want (0, 1)", d.index, c.index)
	}

	root.Release()
}

func TestSpliceAtEndAppends(t *testing.T) {
	m := surface.NewMemory()
	root := New(m, "div")
	b := New(m, "b")
	root.Push(b)

	c := New(m, "c")
	d := New(m, "d")
	root.Splice(1, 0, c, d)

	want := []surface.Handle{b.Raw(), c.Raw(), d.Raw()}
	if diff := cmp.Diff(want, surfaceChildren(t, m, root.Raw())); diff != "" {
		t.Errorf("surface children mismatch (-want +got):\n%s", diff)
	}
	for i, n := range []*Node{b, c, d} {
		if n.index != i {
			t.Errorf("index of child %d = %d", i, n.index)
		}
	}

	root.Release()
}

func TestSpliceRetainedChildSurvives(t *testing.T) {
	m := surface.NewMemory()
	root := New(m, "div")
	c := New(m, "c")
	root.Push(c)

	c.Retain()
	root.Splice(0, 1)

	if _, ok := c.Weak().Upgrade(); !ok {
		t.Fatal("retained child died on removal")
	}
	if c.parent != nil || c.index != 0 {
		t.Errorf("removed child linkage = (%p, %d), want detached", c.parent, c.index)
	}
	if p, _ := m.Parent(c.Raw()); p != surface.None {
		t.Errorf("removed child still attached on surface, parent = %d", p)
	}

	// The node is reusable after detachment.
	root.Push(c)
	if got := surfaceChildren(t, m, root.Raw()); len(got) != 1 || got[0] != c.Raw() {
		t.Errorf("reattach: surface children = %v", got)
	}

	root.Release()
}

func TestSpliceOutOfRangePanics(t *testing.T) {
	m := surface.NewMemory()
	root := New(m, "div")
	defer root.Release()

	mustPanic(t, "splice out of range", func() { root.Splice(1, 0) })
	mustPanic(t, "splice out of range", func() { root.Splice(0, 1) })
	mustPanic(t, "splice out of range", func() { root.Splice(-1, 0) })
}

func TestAttachPreconditionsPanic(t *testing.T) {
	m := surface.NewMemory()
	root := New(m, "div")
	defer root.Release()

	attached := New(m, "span")
	candidate := New(m, "div")
	root.Push(attached)
	mustPanic(t, "already attached", func() { candidate.Push(attached) })

	// The failed attach mutated neither tree.
	if got := surfaceChildren(t, m, candidate.Raw()); len(got) != 0 {
		t.Errorf("candidate parent gained children: %v", got)
	}
	if attached.parent != root || attached.index != 0 {
		t.Errorf("attached child linkage = (%p, %d), want (%p, 0)", attached.parent, attached.index, root)
	}
	candidate.Release()

	dup := New(m, "span")
	mustPanic(t, "duplicate child", func() { root.Extend(dup, dup) })
	dup.Release()

	mustPanic(t, "contain itself", func() { root.Push(root) })

	inner := New(m, "span")
	root.Push(inner)
	mustPanic(t, "adopt its ancestor", func() { inner.Push(root) })

	other := surface.NewMemory()
	foreign := New(other, "div")
	mustPanic(t, "different surface", func() { root.Push(foreign) })
	foreign.Release()
}

func TestNodeSurfaceFailurePanics(t *testing.T) {
	m := surface.NewMemory()
	n := FromHandle(m, surface.Handle(9999))

	defer func() {
		ge, ok := recover().(*groveerrors.GroveError)
		if !ok {
			t.Fatal("expected a *GroveError panic")
		}
		if ge.Kind != groveerrors.KindSurface {
			t.Errorf("Kind = %v, want %v", ge.Kind, groveerrors.KindSurface)
		}
		if ge.Handle != 9999 {
			t.Errorf("Handle = %d, want 9999", ge.Handle)
		}
		if !errors.Is(ge, surface.ErrUnknownHandle) {
			t.Errorf("unwrapped error = %v, want ErrUnknownHandle", ge.Err)
		}
	}()
	n.Text("never lands")
}

func TestTeardownOrder(t *testing.T) {
	m := surface.NewMemory()
	root := New(m, "div")
	child := New(m, "span")

	var order []string
	child.OwnResource(NewResource(func() { order = append(order, "child-res") }))
	root.Push(child)
	root.OwnResource(
		NewResource(func() {
			order = append(order, "root-res-1")
			// Resources run before the handle is released.
			if _, err := m.Tag(root.Raw()); err != nil {
				t.Errorf("handle released before resources: %v", err)
			}
		}),
		NewResource(func() { order = append(order, "root-res-2") }),
	)

	root.Release()

	want := []string{"child-res", "root-res-1", "root-res-2"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("teardown order mismatch (-want +got):\n%s", diff)
	}
	if got := m.ElementCount(); got != 1 {
		t.Errorf("ElementCount = %d, want 1 (surface root only)", got)
	}
}

func TestWeakReportsGoneDuringTeardown(t *testing.T) {
	m := surface.NewMemory()
	n := New(m, "div")

	upgraded := true
	n.Own(func(self *Node) *Resource {
		w := self.Weak()
		return NewResource(func() {
			_, upgraded = w.Upgrade()
		})
	})

	n.Release()
	if upgraded {
		t.Error("weak reference upgraded during teardown")
	}
}

func TestUseAfterReleasePanics(t *testing.T) {
	m := surface.NewMemory()
	n := New(m, "div")
	n.Release()

	mustPanic(t, "use of released node", func() { n.Text("x") })
	mustPanic(t, "use of released node", func() { n.Release() })
	mustPanic(t, "use of released node", func() { n.Retain() })
}

func TestReentrantMutationPanics(t *testing.T) {
	m := surface.NewMemory()
	root := New(m, "div")
	child := New(m, "span")

	// The child's teardown runs inside the parent's splice and tries to
	// mutate the parent again.
	child.OwnResource(NewResource(func() {
		root.Push(New(m, "late"))
	}))
	root.Push(child)

	mustPanic(t, "reentrant mutation", func() { root.Splice(0, 1) })
}

func TestRemoveDetachesAndReleases(t *testing.T) {
	m := surface.NewMemory()
	root := New(m, "div")
	a := New(m, "a")
	b := New(m, "b")
	root.Extend(a, b)

	aw := a.Weak()
	a.Remove()

	if _, ok := aw.Upgrade(); ok {
		t.Error("expected removed node to be dead")
	}
	if b.index != 0 {
		t.Errorf("surviving child index = %d, want 0", b.index)
	}
	want := []surface.Handle{b.Raw()}
	if diff := cmp.Diff(want, surfaceChildren(t, m, root.Raw())); diff != "" {
		t.Errorf("surface children mismatch (-want +got):\n%s", diff)
	}

	// Removing a detached node is a no-op.
	d := New(m, "d")
	d.Remove()
	d.Release()

	root.Release()
}

func TestReplaceAttached(t *testing.T) {
	m := surface.NewMemory()
	root := New(m, "div")
	a := New(m, "a")
	b := New(m, "b")
	c := New(m, "c")
	root.Extend(a, b, c)

	bw := b.Weak()
	r1 := New(m, "r1")
	r2 := New(m, "r2")
	b.Replace(r1, r2)

	want := []surface.Handle{a.Raw(), r1.Raw(), r2.Raw(), c.Raw()}
	if diff := cmp.Diff(want, surfaceChildren(t, m, root.Raw())); diff != "" {
		t.Errorf("surface children mismatch (-want +got):\n%s", diff)
	}
	if _, ok := bw.Upgrade(); ok {
		t.Error("expected replaced node to be dead")
	}
	if c.index != 3 {
		t.Errorf("trailing child index = %d, want 3", c.index)
	}

	root.Release()
}

func TestReplaceDetachedRootsReplacements(t *testing.T) {
	m := surface.NewMemory()

	// An element managed by the host, adopted into the tree.
	host, err := m.Create("section")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := m.AppendChild(m.Root(), host); err != nil {
		t.Fatalf("AppendChild failed: %v", err)
	}

	adopted := FromHandle(m, host)
	resourceReleased := false
	adopted.OwnResource(NewResource(func() { resourceReleased = true }))
	inner := New(m, "span")
	adopted.Push(inner)
	innerWeak := inner.Weak()

	repl := New(m, "article")
	replWeak := repl.Weak()
	adopted.Replace(repl)

	// The surface swapped the elements in place.
	want := []surface.Handle{repl.Raw()}
	if diff := cmp.Diff(want, surfaceChildren(t, m, m.Root())); diff != "" {
		t.Errorf("surface children mismatch (-want +got):\n%s", diff)
	}
	// Own children and resources were released; the node stays alive only
	// to root the replacement.
	if !resourceReleased {
		t.Error("expected owned resource released during replacement")
	}
	if _, ok := innerWeak.Upgrade(); ok {
		t.Error("expected old child to be dead")
	}
	if _, ok := adopted.Weak().Upgrade(); !ok {
		t.Error("expected replaced node to stay alive")
	}
	if _, err := m.Tag(host); err == nil {
		t.Error("expected the swapped-out element to be discarded")
	}

	// Further mutations hit the fresh inert element, not the tree.
	adopted.Text("invisible")
	if diff := cmp.Diff(want, surfaceChildren(t, m, m.Root())); diff != "" {
		t.Errorf("mutation after replacement visible (-want +got):\n%s", diff)
	}

	// Releasing the node releases the replacement it roots.
	adopted.Release()
	if _, ok := replWeak.Upgrade(); ok {
		t.Error("expected replacement released with its rooting node")
	}
}

func TestReplaceFullyDetachedIsInvisible(t *testing.T) {
	m := surface.NewMemory()
	a := New(m, "a")
	b := New(m, "b")
	bw := b.Weak()

	// No scope parent and no surface parent: the swap has nothing to do,
	// but ownership still moves.
	a.Replace(b)
	if _, ok := bw.Upgrade(); !ok {
		t.Fatal("replacement died without its rooting node")
	}
	a.Release()
	if _, ok := bw.Upgrade(); ok {
		t.Error("expected replacement released with its rooting node")
	}
}

func TestClearReleasesChildrenAndText(t *testing.T) {
	m := surface.NewMemory()
	root := New(m, "div")
	root.Text("heading")
	a := New(m, "a")
	b := New(m, "b")
	root.Extend(a, b)

	aw, bwk := a.Weak(), b.Weak()
	root.Clear()

	if got := surfaceChildren(t, m, root.Raw()); len(got) != 0 {
		t.Errorf("surface children after Clear = %v", got)
	}
	text, _ := m.Text(root.Raw())
	if text != "" {
		t.Errorf("text after Clear = %q", text)
	}
	if _, ok := aw.Upgrade(); ok {
		t.Error("expected first child dead after Clear")
	}
	if _, ok := bwk.Upgrade(); ok {
		t.Error("expected second child dead after Clear")
	}

	root.Release()
}

func TestTextDetachesSurfaceChildrenOnly(t *testing.T) {
	m := surface.NewMemory()
	root := New(m, "div")
	child := New(m, "span")
	root.Push(child)

	root.Text("replaced")

	if got := surfaceChildren(t, m, root.Raw()); len(got) != 0 {
		t.Errorf("surface children after Text = %v", got)
	}
	// The logical child is still owned and tears down with the parent.
	cw := child.Weak()
	root.Release()
	if _, ok := cw.Upgrade(); ok {
		t.Error("expected logical child released with parent")
	}
	if got := m.ElementCount(); got != 1 {
		t.Errorf("ElementCount = %d, want 1", got)
	}
}

func TestAttributesAndClasses(t *testing.T) {
	m := surface.NewMemory()
	n := New(m, "div").
		SetID("panel").
		Attr("role", "region").
		Classes("card", "wide").
		ModifyClasses(map[string]bool{"wide": false, "tall": true})

	attrs, err := m.Attributes(n.Raw())
	if err != nil {
		t.Fatalf("Attributes failed: %v", err)
	}
	if attrs["id"] != "panel" || attrs["role"] != "region" {
		t.Errorf("attrs = %v", attrs)
	}

	n.RemoveAttr("role")
	attrs, _ = m.Attributes(n.Raw())
	if _, ok := attrs["role"]; ok {
		t.Error("expected role attribute removed")
	}

	classes, err := m.ClassList(n.Raw())
	if err != nil {
		t.Fatalf("ClassList failed: %v", err)
	}
	if diff := cmp.Diff([]string{"card", "tall"}, classes); diff != "" {
		t.Errorf("classes mismatch (-want +got):\n%s", diff)
	}

	n.Release()
}

func TestOnListensForNodeLifetime(t *testing.T) {
	m := surface.NewMemory()
	n := New(m, "button")

	clicks := 0
	n.On("click", func(ev surface.Event) {
		clicks++
		if ev.Type != "click" {
			t.Errorf("event type = %q, want click", ev.Type)
		}
	})

	if got := m.Dispatch(n.Raw(), "click", nil); got != 1 {
		t.Fatalf("Dispatch ran %d listeners, want 1", got)
	}
	if clicks != 1 {
		t.Fatalf("clicks = %d, want 1", clicks)
	}

	h := n.Raw()
	n.Release()
	if got := m.Dispatch(h, "click", nil); got != 0 {
		t.Errorf("Dispatch after release ran %d listeners, want 0", got)
	}
	if clicks != 1 {
		t.Errorf("clicks after release = %d, want 1", clicks)
	}
}

func TestOnResizeWeaklyCapturesNode(t *testing.T) {
	m := surface.NewMemory()
	a := New(m, "div")
	b := New(m, "div")
	if err := m.SetSize(a.Raw(), 100, 20); err != nil {
		t.Fatalf("SetSize failed: %v", err)
	}

	var aFires, bFires int
	a.OnResize(func(n *Node, inline, block float64) {
		aFires++
		if n != a {
			t.Error("callback received a different node")
		}
		if aFires == 1 && (inline != 100 || block != 20) {
			t.Errorf("initial size = (%v, %v), want (100, 20)", inline, block)
		}
	})
	b.OnResize(func(*Node, float64, float64) { bFires++ })

	if aFires != 1 || bFires != 1 {
		t.Fatalf("immediate fires = (%d, %d), want (1, 1)", aFires, bFires)
	}

	ah, bh := a.Raw(), b.Raw()
	if err := m.SetSize(ah, 150, 30); err != nil {
		t.Fatalf("SetSize failed: %v", err)
	}
	if aFires != 2 {
		t.Fatalf("aFires = %d, want 2", aFires)
	}

	// Releasing one node leaves the other's registration delivering.
	a.Release()
	if err := m.SetSize(bh, 60, 60); err != nil {
		t.Fatalf("SetSize failed: %v", err)
	}
	if aFires != 2 {
		t.Errorf("released node still receiving, aFires = %d", aFires)
	}
	if bFires != 2 {
		t.Errorf("bFires = %d, want 2", bFires)
	}

	b.Release()
}

func TestOnResizeCallbacksCoexist(t *testing.T) {
	m := surface.NewMemory()
	n := New(m, "div")

	var first, second int
	n.OnResize(func(*Node, float64, float64) { first++ })
	n.OnResize(func(*Node, float64, float64) { second++ })
	if first != 1 || second != 1 {
		t.Fatalf("immediate fires = (%d, %d), want (1, 1)", first, second)
	}

	if err := m.SetSize(n.Raw(), 80, 24); err != nil {
		t.Fatalf("SetSize failed: %v", err)
	}
	if first != 2 || second != 2 {
		t.Errorf("fires after resize = (%d, %d), want (2, 2)", first, second)
	}

	n.Release()
}

func TestOwnBuildReceivesNode(t *testing.T) {
	m := surface.NewMemory()
	n := New(m, "div")

	var got *Node
	n.Own(func(self *Node) *Resource {
		got = self
		return NewResource(func() {})
	})
	if got != n {
		t.Error("Own build did not receive the owning node")
	}
	n.Release()
}

func TestFromHandleReleaseDropsHandle(t *testing.T) {
	m := surface.NewMemory()
	h, err := m.Create("aside")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	n := FromHandle(m, h)
	if n.Raw() != h {
		t.Errorf("Raw = %d, want %d", n.Raw(), h)
	}
	n.Release()
	if _, err := m.Tag(h); err == nil {
		t.Error("expected adopted handle released")
	}

	mustPanic(t, "zero handle", func() { FromHandle(m, surface.None) })
}
