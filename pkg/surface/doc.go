// Package surface defines the rendering surface boundary and an in-process
// reference implementation.
//
// A Surface owns a flat table of elements addressed by opaque Handles and
// exposes the structural and content operations the scope layer mirrors its
// tree onto: create, attach, detach, replace, text, attributes, classes.
// The scope layer holds handles, never elements; releasing a handle tells
// the surface the caller is done with it, which is distinct from removing
// the element from the tree.
//
// # Capabilities
//
// Event listening and size observation are optional capabilities expressed
// as separate interfaces (Events, SizeObserver). Callers discover them with
// type assertions:
//
//	if ev, ok := s.(surface.Events); ok {
//	    token, err := ev.Listen(h, "click", onClick)
//	    ...
//	}
//
// # Error Policy
//
// Surface methods report invalid requests (unknown handles, structural
// violations) as errors and never panic. Deciding severity is the caller's
// job: the scope layer treats every surface error as fatal.
//
// # Memory
//
// Memory implements Surface, Events, and SizeObserver entirely in process.
// It validates structure strictly where a browser DOM would silently adjust:
// attaching an already-attached element is an error rather than a move, so
// protocol violations surface at the call that made them. The one DOM move
// Memory does honor is ReplaceChildren keeping children already under its
// target parent. Tests and the demo binary drive it with Dispatch and
// SetSize.
package surface
