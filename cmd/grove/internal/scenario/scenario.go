// Package scenario loads the YAML scripts the grove demo plays back.
//
// A scenario is a list of steps, each carrying exactly one action against
// the tree being demonstrated. Steps refer to nodes by the names earlier
// steps assigned.
package scenario

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// Scenario is a parsed demo script.
type Scenario struct {
	Version string `yaml:"version,omitempty"`
	Title   string `yaml:"title,omitempty"`
	Steps   []Step `yaml:"steps"`
}

// Step is one scripted action. Exactly one of the action fields is set;
// Note is an optional label shown with the step's frame.
type Step struct {
	Note     string    `yaml:"note,omitempty"`
	Create   *Create   `yaml:"create,omitempty"`
	Splice   *Splice   `yaml:"splice,omitempty"`
	Remove   *NodeRef  `yaml:"remove,omitempty"`
	Replace  *Replace  `yaml:"replace,omitempty"`
	Clear    *NodeRef  `yaml:"clear,omitempty"`
	Text     *Text     `yaml:"text,omitempty"`
	Classes  *Classes  `yaml:"classes,omitempty"`
	Attr     *Attr     `yaml:"attr,omitempty"`
	Listen   *Listen   `yaml:"listen,omitempty"`
	Dispatch *Dispatch `yaml:"dispatch,omitempty"`
	Observe  *NodeRef  `yaml:"observe,omitempty"`
	Resize   *Resize   `yaml:"resize,omitempty"`
	Task     *Task     `yaml:"task,omitempty"`
	Anchor   *Anchor   `yaml:"anchor,omitempty"`
}

// Create builds a node, optionally with a whole subtree, and optionally
// pushes it onto a named parent. Named nodes can be referenced by later
// steps; names are optional for nodes no step refers back to.
type Create struct {
	Name     string            `yaml:"name,omitempty"`
	Tag      string            `yaml:"tag"`
	Parent   string            `yaml:"parent,omitempty"`
	Text     string            `yaml:"text,omitempty"`
	ID       string            `yaml:"id,omitempty"`
	Classes  []string          `yaml:"classes,omitempty"`
	Attrs    map[string]string `yaml:"attrs,omitempty"`
	Children []Create          `yaml:"children,omitempty"`
}

// Splice edits a named parent's child range, building any added subtrees.
type Splice struct {
	Parent string   `yaml:"parent"`
	At     int      `yaml:"at"`
	Remove int      `yaml:"remove"`
	Add    []Create `yaml:"add,omitempty"`
}

// NodeRef names the node an action applies to.
type NodeRef struct {
	Name string `yaml:"name"`
}

// Replace swaps a named node for freshly built subtrees.
type Replace struct {
	Name string   `yaml:"name"`
	With []Create `yaml:"with,omitempty"`
}

// Text sets a node's text content.
type Text struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// Classes adds and removes class names on a node.
type Classes struct {
	Name   string   `yaml:"name"`
	Add    []string `yaml:"add,omitempty"`
	Remove []string `yaml:"remove,omitempty"`
}

// Attr sets or removes one attribute on a node.
type Attr struct {
	Name   string `yaml:"name"`
	Key    string `yaml:"key"`
	Value  string `yaml:"value,omitempty"`
	Remove bool   `yaml:"remove,omitempty"`
}

// Listen registers a printing event listener scoped to the node.
type Listen struct {
	Name  string `yaml:"name"`
	Event string `yaml:"event"`
}

// Dispatch fires an event at a node.
type Dispatch struct {
	Name  string `yaml:"name"`
	Event string `yaml:"event"`
	Data  string `yaml:"data,omitempty"`
}

// Resize reports a new size for a node's element, firing observers.
type Resize struct {
	Name   string  `yaml:"name"`
	Inline float64 `yaml:"inline"`
	Block  float64 `yaml:"block"`
}

// Task spawns a rooted task owned by a node. The task prints Message when
// the loop runs it; with Cancel set, the task's cell is released before
// that happens and the body never runs.
type Task struct {
	Owner   string `yaml:"owner"`
	Message string `yaml:"message"`
	Cancel  bool   `yaml:"cancel,omitempty"`
}

// Anchor roots the named detached nodes as the surface's children,
// releasing whatever was anchored before. An empty list empties the root.
type Anchor struct {
	Names []string `yaml:"names,omitempty"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates scenario YAML.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Scenario) validate() error {
	version := strings.TrimSpace(s.Version)
	if version == "" {
		version = "v1"
	}
	if !semver.IsValid(version) {
		return fmt.Errorf("invalid scenario version %q", s.Version)
	}
	if semver.Major(version) != "v1" {
		return fmt.Errorf("unsupported scenario version %q (supported: v1)", s.Version)
	}
	s.Version = version

	if len(s.Steps) == 0 {
		return fmt.Errorf("scenario has no steps")
	}
	for i := range s.Steps {
		if err := s.Steps[i].validate(); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return nil
}

func (st *Step) validate() error {
	actions := 0
	var check func() error
	add := func(fn func() error) {
		actions++
		check = fn
	}

	if st.Create != nil {
		add(st.Create.validate)
	}
	if st.Splice != nil {
		add(st.Splice.validate)
	}
	if st.Remove != nil {
		add(func() error { return requireName("remove", st.Remove.Name) })
	}
	if st.Replace != nil {
		add(st.Replace.validate)
	}
	if st.Clear != nil {
		add(func() error { return requireName("clear", st.Clear.Name) })
	}
	if st.Text != nil {
		add(func() error { return requireName("text", st.Text.Name) })
	}
	if st.Classes != nil {
		add(func() error { return requireName("classes", st.Classes.Name) })
	}
	if st.Attr != nil {
		add(func() error {
			if err := requireName("attr", st.Attr.Name); err != nil {
				return err
			}
			if st.Attr.Key == "" {
				return fmt.Errorf("attr action requires a key")
			}
			return nil
		})
	}
	if st.Listen != nil {
		add(func() error { return requireEvent("listen", st.Listen.Name, st.Listen.Event) })
	}
	if st.Dispatch != nil {
		add(func() error { return requireEvent("dispatch", st.Dispatch.Name, st.Dispatch.Event) })
	}
	if st.Observe != nil {
		add(func() error { return requireName("observe", st.Observe.Name) })
	}
	if st.Resize != nil {
		add(func() error { return requireName("resize", st.Resize.Name) })
	}
	if st.Task != nil {
		add(func() error {
			if st.Task.Owner == "" {
				return fmt.Errorf("task action requires an owner")
			}
			if st.Task.Message == "" {
				return fmt.Errorf("task action requires a message")
			}
			return nil
		})
	}
	if st.Anchor != nil {
		add(func() error { return nil })
	}

	switch actions {
	case 0:
		return fmt.Errorf("no action")
	case 1:
		return check()
	default:
		return fmt.Errorf("multiple actions in one step")
	}
}

func (c *Create) validate() error {
	if c.Tag == "" {
		return fmt.Errorf("create action requires a tag")
	}
	for i := range c.Children {
		child := &c.Children[i]
		if child.Parent != "" {
			return fmt.Errorf("nested create %q cannot set a parent", child.Tag)
		}
		if err := child.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (r *Replace) validate() error {
	if err := requireName("replace", r.Name); err != nil {
		return err
	}
	for i := range r.With {
		item := &r.With[i]
		if item.Parent != "" {
			return fmt.Errorf("replacement create %q cannot set a parent", item.Tag)
		}
		if err := item.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (sp *Splice) validate() error {
	if sp.Parent == "" {
		return fmt.Errorf("splice action requires a parent")
	}
	if sp.At < 0 || sp.Remove < 0 {
		return fmt.Errorf("splice bounds must not be negative")
	}
	for i := range sp.Add {
		item := &sp.Add[i]
		if item.Parent != "" {
			return fmt.Errorf("spliced create %q cannot set a parent", item.Tag)
		}
		if err := item.validate(); err != nil {
			return err
		}
	}
	return nil
}

func requireName(action, name string) error {
	if name == "" {
		return fmt.Errorf("%s action requires a name", action)
	}
	return nil
}

func requireEvent(action, name, event string) error {
	if err := requireName(action, name); err != nil {
		return err
	}
	if event == "" {
		return fmt.Errorf("%s action requires an event", action)
	}
	return nil
}
