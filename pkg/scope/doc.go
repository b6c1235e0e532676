// Package scope provides a live tree of nodes mirrored onto a rendering
// surface, with deterministic teardown of everything a node owns.
//
// A Node wraps one surface element. Structural edits go through the node
// and are applied to the surface in the same call, so the logical tree and
// the rendered tree never drift apart. Each node owns its children and a
// list of Resource cells (event listeners, size observations, background
// tasks); when the node's last reference is released, children are released
// recursively, then resources in registration order, then the surface
// handle.
//
// # Ownership
//
// References are counted explicitly. A constructor hands the caller one
// reference. Attaching a node transfers that reference to the tree;
// detaching releases the tree's reference, so a removed node tears down
// unless the caller retained it first:
//
//	keep := item.Retain()
//	list.Splice(2, 1) // item survives, detached
//	...
//	keep.Release()
//
// Weak returns a non-owning reference whose Upgrade reports whether the
// node is still alive. Parent links are non-owning: parents own children,
// never the reverse.
//
// # Mutation Model
//
// Nodes are NOT safe for concurrent use. All tree mutations must happen on
// one goroutine; background work hands results over via a cooperative
// executor (see package task). Re-entering a structural mutation from a
// callback running inside one panics.
//
// # Errors
//
// Usage errors (attaching an attached node, splicing out of range, using a
// released node) panic with plain "scope: ..." messages. Surface failures
// panic with *errors.GroveError of KindSurface; the library never catches
// them.
//
// # Containers
//
// Container pairs a slice of typed entries with an anchor node whose
// children mirror it, applying the surface edit first and the slice edit
// second. Mutating an entry's node directly desynchronizes the pair; all
// structural changes must go through the container.
package scope
