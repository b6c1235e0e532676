package scope

import (
	"fmt"
	"sync"

	"github.com/go-grove/grove/pkg/surface"
)

// The root anchor is a process-wide ownership slot for whatever tree (or
// other resource) the program keeps alive at top level. Write it from
// top-level code only, never from node callbacks: replacing the anchor
// releases its previous contents, and a callback doing that would tear
// down the tree it is running inside.
var (
	rootMu   sync.Mutex
	rootCell *Resource
)

// SetRoot replaces the surface root's children with the given detached
// nodes and anchors them, releasing whatever the anchor held before. The
// anchor owns one reference per node, so re-anchoring a node it already
// holds takes a Retain first:
//
//	keep.Retain()
//	scope.SetRoot(s, keep)
func SetRoot(s surface.Surface, nodes ...*Node) {
	for _, n := range nodes {
		if n == nil {
			panic("scope: nil root node")
		}
		if n.dead {
			panic("scope: use of released node")
		}
		if n.parent != nil {
			panic("scope: node already attached")
		}
		if n.sfc != s {
			panic("scope: node belongs to a different surface")
		}
	}
	handles := make([]surface.Handle, len(nodes))
	for i, n := range nodes {
		handles[i] = n.handle
	}
	if err := s.ReplaceChildren(s.Root(), handles...); err != nil {
		panic(surfaceErr("scope.SetRoot", err, s.Root()))
	}
	SetRootValue(Hold(nodes))
}

// SetRootReplace swaps the element carrying the given id attribute for the
// node and anchors the node.
func SetRootReplace(s surface.Surface, id string, n *Node) {
	if n == nil {
		panic("scope: nil root node")
	}
	if n.dead {
		panic("scope: use of released node")
	}
	if n.parent != nil {
		panic("scope: node already attached")
	}
	if n.sfc != s {
		panic("scope: node belongs to a different surface")
	}
	target, ok := s.ElementByID(id)
	if !ok {
		panic(surfaceErr("scope.SetRootReplace", fmt.Errorf("no element with id %q", id), surface.None))
	}
	if err := s.ReplaceWith(target, n.handle); err != nil {
		panic(surfaceErr("scope.SetRootReplace", err, target))
	}
	SetRootValue(Hold(n))
}

// SetRootValue anchors an arbitrary resource for the life of the process,
// releasing the previous anchor contents. Pass nil to empty the anchor.
func SetRootValue(r *Resource) {
	rootMu.Lock()
	old := rootCell
	rootCell = r
	rootMu.Unlock()
	old.Release()
}
