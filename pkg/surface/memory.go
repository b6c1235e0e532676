package surface

import (
	"sync"
	"sync/atomic"
	"time"

	groveerrors "github.com/go-grove/grove/pkg/errors"
)

var (
	_ Surface      = (*Memory)(nil)
	_ Events       = (*Memory)(nil)
	_ SizeObserver = (*Memory)(nil)
)

// memoryElement is one entry in a Memory surface's element table.
type memoryElement struct {
	tag       string
	text      string
	attrs     map[string]string
	classes   []string
	parent    Handle
	children  []Handle
	inline    float64
	block     float64
	released  bool
	listeners map[string][]*memoryToken
}

// Memory is an in-process Surface with event dispatch and size observation.
// It is safe for concurrent use; callbacks run on the calling goroutine
// with no internal locks held, so they may call back into the surface.
type Memory struct {
	mu       sync.Mutex
	nextID   Handle
	elements map[Handle]*memoryElement
	root     Handle
	subs     []*memorySizeSubscription
}

// NewMemory creates an empty surface containing only the root element.
func NewMemory() *Memory {
	m := &Memory{elements: make(map[Handle]*memoryElement)}
	m.root = m.newElement("root")
	return m
}

func (m *Memory) newElement(tag string) Handle {
	m.nextID++
	m.elements[m.nextID] = &memoryElement{tag: tag}
	return m.nextID
}

// lookup resolves a handle to a live element. Caller holds m.mu.
func (m *Memory) lookup(h Handle) (*memoryElement, error) {
	el := m.elements[h]
	if el == nil || el.released {
		return nil, ErrUnknownHandle
	}
	return el, nil
}

// orphan clears an element's parent link and discards it if its handle was
// already released. The parent's children slice is adjusted by the caller.
// Caller holds m.mu.
func (m *Memory) orphan(h Handle) {
	el := m.elements[h]
	if el == nil {
		return
	}
	el.parent = None
	if el.released {
		m.prune(h)
	}
}

// prune discards a released, detached element. Live children become
// detached roots; released children are discarded along with it.
// Caller holds m.mu.
func (m *Memory) prune(h Handle) {
	el := m.elements[h]
	if el == nil {
		return
	}
	for _, c := range el.children {
		ce := m.elements[c]
		if ce == nil {
			continue
		}
		ce.parent = None
		if ce.released {
			m.prune(c)
		}
	}
	delete(m.elements, h)
}

// attachable validates that child can be attached under parent.
// Caller holds m.mu.
func (m *Memory) attachable(parent, child Handle) (*memoryElement, error) {
	ce, err := m.lookup(child)
	if err != nil {
		return nil, err
	}
	if ce.parent != None {
		return nil, ErrAlreadyAttached
	}
	if m.cyclic(parent, child) {
		return nil, ErrCycle
	}
	return ce, nil
}

// cyclic reports whether attaching child under parent would close a cycle.
// Caller holds m.mu.
func (m *Memory) cyclic(parent, child Handle) bool {
	for p := parent; p != None; {
		if p == child {
			return true
		}
		pe := m.elements[p]
		if pe == nil {
			return false
		}
		p = pe.parent
	}
	return false
}

// Create allocates a new detached element.
func (m *Memory) Create(tag string) (Handle, error) {
	if tag == "" {
		return None, ErrInvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.newElement(tag), nil
}

// SetText replaces the element's content with a text run, detaching any
// children.
func (m *Memory) SetText(h Handle, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, err := m.lookup(h)
	if err != nil {
		return err
	}
	el.text = text
	for _, c := range el.children {
		m.orphan(c)
	}
	el.children = nil
	return nil
}

// ClearText removes the element's text and detaches all children.
func (m *Memory) ClearText(h Handle) error {
	return m.SetText(h, "")
}

// SetAttribute sets a string attribute.
func (m *Memory) SetAttribute(h Handle, key, value string) error {
	if key == "" {
		return ErrInvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	el, err := m.lookup(h)
	if err != nil {
		return err
	}
	if el.attrs == nil {
		el.attrs = make(map[string]string)
	}
	el.attrs[key] = value
	return nil
}

// RemoveAttribute removes an attribute. Removing an absent key is a no-op.
func (m *Memory) RemoveAttribute(h Handle, key string) error {
	if key == "" {
		return ErrInvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	el, err := m.lookup(h)
	if err != nil {
		return err
	}
	delete(el.attrs, key)
	return nil
}

// AddClasses appends class names not already present, preserving order.
func (m *Memory) AddClasses(h Handle, names ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, err := m.lookup(h)
	if err != nil {
		return err
	}
	for _, name := range names {
		if name == "" {
			return ErrInvalidArgument
		}
		present := false
		for _, c := range el.classes {
			if c == name {
				present = true
				break
			}
		}
		if !present {
			el.classes = append(el.classes, name)
		}
	}
	return nil
}

// RemoveClasses removes the given class names. Absent names are ignored.
func (m *Memory) RemoveClasses(h Handle, names ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, err := m.lookup(h)
	if err != nil {
		return err
	}
	for _, name := range names {
		if name == "" {
			return ErrInvalidArgument
		}
		for i, c := range el.classes {
			if c == name {
				el.classes = append(el.classes[:i], el.classes[i+1:]...)
				break
			}
		}
	}
	return nil
}

// InsertBefore attaches child under parent immediately before reference.
// A None reference appends.
func (m *Memory) InsertBefore(parent, child, reference Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pe, err := m.lookup(parent)
	if err != nil {
		return err
	}
	ce, err := m.attachable(parent, child)
	if err != nil {
		return err
	}
	at := len(pe.children)
	if reference != None {
		at = -1
		for i, c := range pe.children {
			if c == reference {
				at = i
				break
			}
		}
		if at < 0 {
			return ErrNotChild
		}
	}
	pe.children = append(pe.children, None)
	copy(pe.children[at+1:], pe.children[at:])
	pe.children[at] = child
	ce.parent = parent
	return nil
}

// AppendChild attaches a detached child as parent's last child.
func (m *Memory) AppendChild(parent, child Handle) error {
	return m.InsertBefore(parent, child, None)
}

// RemoveChild detaches the element from its parent.
func (m *Memory) RemoveChild(child Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ce, err := m.lookup(child)
	if err != nil {
		return err
	}
	if ce.parent == None {
		return ErrDetached
	}
	pe := m.elements[ce.parent]
	for i, c := range pe.children {
		if c == child {
			pe.children = append(pe.children[:i], pe.children[i+1:]...)
			break
		}
	}
	m.orphan(child)
	return nil
}

// ReplaceWith swaps the element for the given detached replacements at its
// position under its parent. On a detached element this is a no-op.
func (m *Memory) ReplaceWith(h Handle, replacements ...Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, err := m.lookup(h)
	if err != nil {
		return err
	}
	if h == m.root {
		return ErrRootOperation
	}
	if el.parent == None {
		return nil
	}
	seen := make(map[Handle]bool, len(replacements))
	for _, r := range replacements {
		if seen[r] {
			return ErrAlreadyAttached
		}
		seen[r] = true
		if _, err := m.attachable(el.parent, r); err != nil {
			return err
		}
	}
	pe := m.elements[el.parent]
	parent := el.parent
	for i, c := range pe.children {
		if c != h {
			continue
		}
		tail := make([]Handle, len(pe.children)-i-1)
		copy(tail, pe.children[i+1:])
		pe.children = append(pe.children[:i], replacements...)
		pe.children = append(pe.children, tail...)
		break
	}
	for _, r := range replacements {
		m.elements[r].parent = parent
	}
	m.orphan(h)
	return nil
}

// ReplaceChildren detaches all of parent's children and attaches the given
// elements in their place. New children must be detached or already under
// parent; the latter are kept, so a tree re-anchors in place the way DOM
// replaceChildren moves nodes.
func (m *Memory) ReplaceChildren(parent Handle, children ...Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pe, err := m.lookup(parent)
	if err != nil {
		return err
	}
	seen := make(map[Handle]bool, len(children))
	for _, c := range children {
		if seen[c] {
			return ErrAlreadyAttached
		}
		seen[c] = true
		ce, err := m.lookup(c)
		if err != nil {
			return err
		}
		if ce.parent != None && ce.parent != parent {
			return ErrAlreadyAttached
		}
		if m.cyclic(parent, c) {
			return ErrCycle
		}
	}
	for _, c := range pe.children {
		if !seen[c] {
			m.orphan(c)
		}
	}
	pe.children = append([]Handle(nil), children...)
	for _, c := range children {
		m.elements[c].parent = parent
	}
	return nil
}

// Children returns the element's child handles in order.
func (m *Memory) Children(h Handle) ([]Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, err := m.lookup(h)
	if err != nil {
		return nil, err
	}
	out := make([]Handle, len(el.children))
	copy(out, el.children)
	return out, nil
}

// Root returns the root element.
func (m *Memory) Root() Handle {
	return m.root
}

// ElementByID finds the element connected to the root whose "id" attribute
// equals id.
func (m *Memory) ElementByID(id string) (Handle, bool) {
	if id == "" {
		return None, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findByID(m.root, id)
}

func (m *Memory) findByID(h Handle, id string) (Handle, bool) {
	el := m.elements[h]
	if el == nil {
		return None, false
	}
	if !el.released && el.attrs["id"] == id {
		return h, true
	}
	for _, c := range el.children {
		if found, ok := m.findByID(c, id); ok {
			return found, ok
		}
	}
	return None, false
}

// Release marks the handle dead. A detached element is discarded
// immediately; an attached one is discarded when it detaches.
func (m *Memory) Release(h Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, err := m.lookup(h)
	if err != nil {
		return err
	}
	if h == m.root {
		return ErrRootOperation
	}
	el.released = true
	if el.parent == None {
		m.prune(h)
	}
	return nil
}

// ElementCount reports the number of elements in the table, root included.
func (m *Memory) ElementCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.elements)
}

// Tag returns the element's tag.
func (m *Memory) Tag(h Handle) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, err := m.lookup(h)
	if err != nil {
		return "", err
	}
	return el.tag, nil
}

// Text returns the element's text run.
func (m *Memory) Text(h Handle) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, err := m.lookup(h)
	if err != nil {
		return "", err
	}
	return el.text, nil
}

// Attributes returns a copy of the element's attributes.
func (m *Memory) Attributes(h Handle) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, err := m.lookup(h)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(el.attrs))
	for k, v := range el.attrs {
		out[k] = v
	}
	return out, nil
}

// ClassList returns a copy of the element's class names in order.
func (m *Memory) ClassList(h Handle) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, err := m.lookup(h)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(el.classes))
	copy(out, el.classes)
	return out, nil
}

// Parent returns the element's parent, or None when detached.
func (m *Memory) Parent(h Handle) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, err := m.lookup(h)
	if err != nil {
		return None, err
	}
	return el.parent, nil
}

// Size returns the element's current observed size.
func (m *Memory) Size(h Handle) (inline, block float64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, err := m.lookup(h)
	if err != nil {
		return 0, 0, err
	}
	return el.inline, el.block, nil
}

// memoryToken is an active listener registration on a Memory surface.
type memoryToken struct {
	m        *Memory
	target   Handle
	event    string
	opts     ListenOptions
	fn       func(Event)
	canceled atomic.Bool
}

// Cancel stops the listener. Canceling twice is a no-op.
func (t *memoryToken) Cancel() {
	if !t.canceled.CompareAndSwap(false, true) {
		return
	}
	t.m.removeListener(t)
}

func (m *Memory) removeListener(t *memoryToken) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el := m.elements[t.target]
	if el == nil {
		return
	}
	ls := el.listeners[t.event]
	for i, x := range ls {
		if x == t {
			el.listeners[t.event] = append(ls[:i], ls[i+1:]...)
			break
		}
	}
}

// Listen registers fn for events of the given type on the element.
func (m *Memory) Listen(h Handle, event string, fn func(Event)) (Token, error) {
	return m.ListenWithOptions(h, event, ListenOptions{}, fn)
}

// ListenWithOptions is Listen with explicit listener flags.
func (m *Memory) ListenWithOptions(h Handle, event string, opts ListenOptions, fn func(Event)) (Token, error) {
	if event == "" || fn == nil {
		return nil, ErrInvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	el, err := m.lookup(h)
	if err != nil {
		return nil, err
	}
	t := &memoryToken{m: m, target: h, event: event, opts: opts, fn: fn}
	if el.listeners == nil {
		el.listeners = make(map[string][]*memoryToken)
	}
	el.listeners[event] = append(el.listeners[event], t)
	return t, nil
}

// Dispatch synthesizes an event on the element and runs its listeners,
// returning how many ran. A listener panic is recovered and reported; the
// remaining listeners still run.
func (m *Memory) Dispatch(h Handle, event string, data any) int {
	m.mu.Lock()
	el := m.elements[h]
	if el == nil || el.released {
		m.mu.Unlock()
		return 0
	}
	tokens := make([]*memoryToken, len(el.listeners[event]))
	copy(tokens, el.listeners[event])
	m.mu.Unlock()

	n := 0
	ev := Event{Type: event, Target: h, Data: data}
	for _, t := range tokens {
		if t.canceled.Load() {
			continue
		}
		m.invoke(t, ev)
		n++
	}
	return n
}

func (m *Memory) invoke(t *memoryToken, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			groveerrors.ReportCallbackError(&groveerrors.CallbackError{
				Event:      ev.Type,
				Handle:     uint64(ev.Target),
				Recovered:  r,
				StackTrace: groveerrors.CaptureStack(),
				Timestamp:  time.Now(),
			})
		}
	}()
	t.fn(ev)
}

// memorySizeSubscription watches a set of targets on a Memory surface.
// State is guarded by the surface's mutex.
type memorySizeSubscription struct {
	m       *Memory
	fn      func(SizeEntry)
	targets map[Handle]ObserveOptions
	closed  bool
}

// NewSizeSubscription creates a subscription delivering size changes for
// all of its observed targets to fn.
func (m *Memory) NewSizeSubscription(fn func(SizeEntry)) (SizeSubscription, error) {
	if fn == nil {
		return nil, ErrInvalidArgument
	}
	s := &memorySizeSubscription{m: m, fn: fn, targets: make(map[Handle]ObserveOptions)}
	m.mu.Lock()
	m.subs = append(m.subs, s)
	m.mu.Unlock()
	return s, nil
}

// Observe starts watching the element and fires the callback once with its
// current size.
func (s *memorySizeSubscription) Observe(t Handle) error {
	return s.observe(t, ObserveOptions{})
}

// ObserveWithOptions is Observe with an explicit box model. Memory reports
// the same size for every box model.
func (s *memorySizeSubscription) ObserveWithOptions(t Handle, opts ObserveOptions) error {
	return s.observe(t, opts)
}

func (s *memorySizeSubscription) observe(t Handle, opts ObserveOptions) error {
	s.m.mu.Lock()
	if s.closed {
		s.m.mu.Unlock()
		return ErrClosed
	}
	el, err := s.m.lookup(t)
	if err != nil {
		s.m.mu.Unlock()
		return err
	}
	s.targets[t] = opts
	entry := SizeEntry{Target: t, Inline: el.inline, Block: el.block}
	s.m.mu.Unlock()
	s.fn(entry)
	return nil
}

// Unobserve stops watching the element. Unknown targets are ignored.
func (s *memorySizeSubscription) Unobserve(t Handle) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	delete(s.targets, t)
	return nil
}

// Close stops watching all targets. Closing twice is a no-op.
func (s *memorySizeSubscription) Close() error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.targets = nil
	for i, x := range s.m.subs {
		if x == s {
			s.m.subs = append(s.m.subs[:i], s.m.subs[i+1:]...)
			break
		}
	}
	return nil
}

// SetSize records the element's size and notifies every subscription
// observing it. Setting the recorded size again is not a change and
// notifies nobody.
func (m *Memory) SetSize(h Handle, inline, block float64) error {
	m.mu.Lock()
	el, err := m.lookup(h)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if el.inline == inline && el.block == block {
		m.mu.Unlock()
		return nil
	}
	el.inline = inline
	el.block = block
	var fire []func(SizeEntry)
	for _, s := range m.subs {
		if _, ok := s.targets[h]; ok {
			fire = append(fire, s.fn)
		}
	}
	m.mu.Unlock()

	entry := SizeEntry{Target: h, Inline: inline, Block: block}
	for _, fn := range fire {
		fn(entry)
	}
	return nil
}
