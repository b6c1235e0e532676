package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/go-grove/grove/cmd/grove/internal/scenario"
	"github.com/go-grove/grove/pkg/render"
	"github.com/go-grove/grove/pkg/scope"
	"github.com/go-grove/grove/pkg/surface"
	"github.com/go-grove/grove/pkg/task"
)

// player interprets scenario steps against a live tree, rendering a frame
// after each one. All mutations run on the player's loop.
type player struct {
	out      io.Writer
	memory   *surface.Memory
	loop     *task.Loop
	renderer *render.Renderer
	delay    time.Duration

	names map[string]*scope.Node
}

func newPlayer(out io.Writer, renderer *render.Renderer, delay time.Duration) *player {
	return &player{
		out:      out,
		memory:   surface.NewMemory(),
		loop:     task.NewLoop(),
		renderer: renderer,
		delay:    delay,
		names:    map[string]*scope.Node{},
	}
}

func (p *player) play(s *scenario.Scenario) error {
	defer scope.SetRootValue(nil)

	if s.Title != "" {
		fmt.Fprintf(p.out, "playing %q (%d steps)\n", s.Title, len(s.Steps))
	}
	for i := range s.Steps {
		step := &s.Steps[i]
		if step.Note != "" {
			fmt.Fprintf(p.out, "\nstep %d: %s\n", i+1, step.Note)
		} else {
			fmt.Fprintf(p.out, "\nstep %d\n", i+1)
		}

		var stepErr error
		p.loop.Submit(func() { stepErr = p.apply(step) })
		p.loop.Drain()
		if stepErr != nil {
			return fmt.Errorf("step %d: %w", i+1, stepErr)
		}

		fmt.Fprint(p.out, p.renderer.Render(p.memory, p.memory.Root()))
		if p.delay > 0 {
			time.Sleep(p.delay)
		}
	}
	return nil
}

func (p *player) apply(st *scenario.Step) error {
	switch {
	case st.Create != nil:
		_, err := p.build(st.Create, st.Create.Parent)
		return err
	case st.Splice != nil:
		return p.applySplice(st.Splice)
	case st.Remove != nil:
		node, err := p.node(st.Remove.Name)
		if err != nil {
			return err
		}
		node.Remove()
	case st.Replace != nil:
		return p.applyReplace(st.Replace)
	case st.Clear != nil:
		node, err := p.node(st.Clear.Name)
		if err != nil {
			return err
		}
		node.Clear()
	case st.Text != nil:
		node, err := p.node(st.Text.Name)
		if err != nil {
			return err
		}
		node.Text(st.Text.Value)
	case st.Classes != nil:
		node, err := p.node(st.Classes.Name)
		if err != nil {
			return err
		}
		changes := make(map[string]bool, len(st.Classes.Add)+len(st.Classes.Remove))
		for _, name := range st.Classes.Add {
			changes[name] = true
		}
		for _, name := range st.Classes.Remove {
			changes[name] = false
		}
		node.ModifyClasses(changes)
	case st.Attr != nil:
		node, err := p.node(st.Attr.Name)
		if err != nil {
			return err
		}
		if st.Attr.Remove {
			node.RemoveAttr(st.Attr.Key)
		} else {
			node.Attr(st.Attr.Key, st.Attr.Value)
		}
	case st.Listen != nil:
		return p.applyListen(st.Listen)
	case st.Dispatch != nil:
		return p.applyDispatch(st.Dispatch)
	case st.Observe != nil:
		return p.applyObserve(st.Observe.Name)
	case st.Resize != nil:
		node, err := p.node(st.Resize.Name)
		if err != nil {
			return err
		}
		return p.memory.SetSize(node.Raw(), st.Resize.Inline, st.Resize.Block)
	case st.Task != nil:
		return p.applyTask(st.Task)
	case st.Anchor != nil:
		return p.applyAnchor(st.Anchor)
	default:
		return fmt.Errorf("empty step")
	}
	return nil
}

// build creates the described subtree, registers its names, and attaches
// it to the named parent when one is given.
func (p *player) build(c *scenario.Create, parentName string) (*scope.Node, error) {
	n := scope.New(p.memory, c.Tag)
	if c.ID != "" {
		n.SetID(c.ID)
	}
	if c.Text != "" {
		n.Text(c.Text)
	}
	if len(c.Classes) > 0 {
		n.Classes(c.Classes...)
	}
	for _, key := range sortedKeys(c.Attrs) {
		n.Attr(key, c.Attrs[key])
	}
	for i := range c.Children {
		child, err := p.build(&c.Children[i], "")
		if err != nil {
			n.Release()
			return nil, err
		}
		n.Push(child)
	}
	if c.Name != "" {
		p.names[c.Name] = n
	}
	if parentName != "" {
		parent, err := p.node(parentName)
		if err != nil {
			n.Release()
			return nil, err
		}
		parent.Push(n)
	}
	return n, nil
}

func (p *player) applySplice(sp *scenario.Splice) error {
	parent, err := p.node(sp.Parent)
	if err != nil {
		return err
	}
	kids, err := p.memory.Children(parent.Raw())
	if err != nil {
		return err
	}
	if sp.At > len(kids) || sp.At+sp.Remove > len(kids) {
		return fmt.Errorf("splice [%d,%d) out of range (%d children)", sp.At, sp.At+sp.Remove, len(kids))
	}
	adds := make([]*scope.Node, len(sp.Add))
	for i := range sp.Add {
		add, err := p.build(&sp.Add[i], "")
		if err != nil {
			return err
		}
		adds[i] = add
	}
	parent.Splice(sp.At, sp.Remove, adds...)
	return nil
}

func (p *player) applyReplace(r *scenario.Replace) error {
	node, err := p.node(r.Name)
	if err != nil {
		return err
	}
	with := make([]*scope.Node, len(r.With))
	for i := range r.With {
		built, err := p.build(&r.With[i], "")
		if err != nil {
			return err
		}
		with[i] = built
	}
	node.Replace(with...)
	return nil
}

func (p *player) applyListen(l *scenario.Listen) error {
	node, err := p.node(l.Name)
	if err != nil {
		return err
	}
	name := l.Name
	node.On(l.Event, func(ev surface.Event) {
		if ev.Data != nil {
			fmt.Fprintf(p.out, "  event %s on %s (%v)\n", ev.Type, name, ev.Data)
		} else {
			fmt.Fprintf(p.out, "  event %s on %s\n", ev.Type, name)
		}
	})
	return nil
}

func (p *player) applyDispatch(d *scenario.Dispatch) error {
	node, err := p.node(d.Name)
	if err != nil {
		return err
	}
	var data any
	if d.Data != "" {
		data = d.Data
	}
	delivered := p.memory.Dispatch(node.Raw(), d.Event, data)
	fmt.Fprintf(p.out, "  dispatched %s to %s (%d delivered)\n", d.Event, d.Name, delivered)
	return nil
}

func (p *player) applyObserve(name string) error {
	node, err := p.node(name)
	if err != nil {
		return err
	}
	node.OnResize(func(n *scope.Node, inline, block float64) {
		fmt.Fprintf(p.out, "  %s resized to %gx%g\n", name, inline, block)
	})
	return nil
}

func (p *player) applyTask(t *scenario.Task) error {
	owner, err := p.node(t.Owner)
	if err != nil {
		return err
	}
	message := t.Message
	cell := task.Spawn(p.loop, func(ctx context.Context) {
		if ctx.Err() != nil {
			return
		}
		fmt.Fprintf(p.out, "  task: %s\n", message)
	})
	if t.Cancel {
		cell.Release()
		fmt.Fprintln(p.out, "  task cancelled before running")
		return nil
	}
	owner.OwnResource(cell)
	return nil
}

func (p *player) applyAnchor(a *scenario.Anchor) error {
	nodes := make([]*scope.Node, len(a.Names))
	for i, name := range a.Names {
		node, err := p.node(name)
		if err != nil {
			return err
		}
		parent, err := p.memory.Parent(node.Raw())
		if err != nil {
			return err
		}
		if parent != surface.None {
			return fmt.Errorf("node %q is already attached", name)
		}
		nodes[i] = node
	}
	scope.SetRoot(p.memory, nodes...)
	return nil
}

func (p *player) node(name string) (*scope.Node, error) {
	n, ok := p.names[name]
	if !ok {
		return nil, fmt.Errorf("unknown node %q", name)
	}
	if _, alive := n.Weak().Upgrade(); !alive {
		return nil, fmt.Errorf("node %q is released", name)
	}
	return n, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
