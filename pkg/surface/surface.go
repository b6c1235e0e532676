package surface

// Handle identifies an element owned by a Surface. Handles are opaque:
// only the surface that issued a handle can resolve it.
type Handle uint64

// None is the zero Handle. It never refers to an element.
const None Handle = 0

// Surface is the rendering surface the scope layer mirrors its tree onto.
// Implementations report invalid requests as errors and never panic.
type Surface interface {
	// Create allocates a new detached element with the given tag.
	Create(tag string) (Handle, error)

	// SetText replaces the element's entire content with a text run.
	// Any child elements are detached, matching DOM textContent semantics.
	SetText(h Handle, text string) error

	// ClearText removes the element's text and detaches all children.
	ClearText(h Handle) error

	// SetAttribute sets a string attribute on the element.
	SetAttribute(h Handle, key, value string) error

	// RemoveAttribute removes an attribute. Removing an absent key is a no-op.
	RemoveAttribute(h Handle, key string) error

	// AddClasses appends class names not already present, preserving order.
	AddClasses(h Handle, names ...string) error

	// RemoveClasses removes the given class names. Absent names are ignored.
	RemoveClasses(h Handle, names ...string) error

	// InsertBefore attaches child under parent, immediately before
	// reference. A None reference appends. The reference must currently
	// be a child of parent and child must be detached.
	InsertBefore(parent, child, reference Handle) error

	// AppendChild attaches a detached child as parent's last child.
	AppendChild(parent, child Handle) error

	// RemoveChild detaches the element from its parent.
	RemoveChild(child Handle) error

	// ReplaceWith swaps the element for the given detached replacements at
	// its position under its parent. On a detached element this is a no-op,
	// matching DOM replaceWith.
	ReplaceWith(h Handle, replacements ...Handle) error

	// ReplaceChildren detaches all of parent's children and attaches the
	// given elements in their place. New children must be detached or
	// already under parent; the latter are kept in place.
	ReplaceChildren(parent Handle, children ...Handle) error

	// Children returns the element's child handles in order.
	Children(h Handle) ([]Handle, error)

	// Root returns the surface's root element.
	Root() Handle

	// ElementByID finds the element connected to the root whose "id"
	// attribute equals id.
	ElementByID(id string) (Handle, bool)

	// Release tells the surface the caller is done with the handle. The
	// element itself survives as long as it is attached; a detached
	// element is discarded along with its released descendants.
	Release(h Handle) error
}

// Event is delivered to listener callbacks.
type Event struct {
	// Type is the event type the listener was registered for.
	Type string
	// Target is the element the listener is attached to.
	Target Handle
	// Data carries event-specific payload, if any.
	Data any
}

// ListenOptions mirror the surface-level listener flags.
type ListenOptions struct {
	// Capture registers the listener for the capture phase.
	Capture bool
	// Passive promises the listener never suppresses default handling.
	Passive bool
}

// Token represents an active event listener registration.
type Token interface {
	// Cancel stops the listener. Canceling twice is a no-op.
	Cancel()
}

// Events is the event subscription capability of a surface.
type Events interface {
	// Listen registers fn for events of the given type on the element.
	Listen(h Handle, event string, fn func(Event)) (Token, error)

	// ListenWithOptions is Listen with explicit listener flags.
	ListenWithOptions(h Handle, event string, opts ListenOptions, fn func(Event)) (Token, error)
}

// SizeEntry reports an observed element's current size.
type SizeEntry struct {
	// Target is the observed element.
	Target Handle
	// Inline is the size along the inline axis (width in horizontal flow).
	Inline float64
	// Block is the size along the block axis (height in horizontal flow).
	Block float64
}

// BoxModel selects which box an observation measures.
type BoxModel int

const (
	// BoxContent measures the content box.
	BoxContent BoxModel = iota
	// BoxBorder measures the border box.
	BoxBorder
)

// ObserveOptions configure a single observed target.
type ObserveOptions struct {
	Box BoxModel
}

// SizeSubscription is one registration with the surface's size machinery.
// A subscription watches any number of targets through a single callback.
type SizeSubscription interface {
	// Observe starts watching the element. The callback fires once
	// synchronously with the current size before Observe returns.
	Observe(t Handle) error

	// ObserveWithOptions is Observe with an explicit box model.
	ObserveWithOptions(t Handle, opts ObserveOptions) error

	// Unobserve stops watching the element. Unknown targets are ignored.
	Unobserve(t Handle) error

	// Close stops watching all targets and releases the subscription.
	Close() error
}

// SizeObserver is the size observation capability of a surface.
type SizeObserver interface {
	// NewSizeSubscription creates a subscription delivering size changes
	// for all of its observed targets to fn.
	NewSizeSubscription(fn func(SizeEntry)) (SizeSubscription, error)
}
