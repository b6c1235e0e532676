// Package render draws a surface.Memory tree as an indented terminal
// outline. It is a debugging and demo aid: a pure view over the surface
// that never mutates it.
//
// Each element becomes one line:
//
//	<div#app.panel data-kind="card"> "hello" [80x24]
//
// Tags, ids, classes, text, and sizes are styled with lipgloss. Elements
// carrying a "color" or "bg" attribute have their text styled with that
// color, resolved from a #rrggbb literal or an SVG 1.1 color name.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"golang.org/x/image/colornames"

	"github.com/go-grove/grove/pkg/surface"
)

// Theme defines the colors used for tree outlines. All colors use
// lipgloss ANSI 256-color codes for broad terminal compatibility.
type Theme struct {
	Tag       lipgloss.Color
	ID        lipgloss.Color
	Class     lipgloss.Color
	AttrKey   lipgloss.Color
	AttrValue lipgloss.Color
	Text      lipgloss.Color
	Size      lipgloss.Color
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	Tag:       lipgloss.Color("75"),  // blue
	ID:        lipgloss.Color("220"), // amber
	Class:     lipgloss.Color("114"), // green
	AttrKey:   lipgloss.Color("245"), // gray
	AttrValue: lipgloss.Color("252"),
	Text:      lipgloss.Color("252"),
	Size:      lipgloss.Color("241"), // dim gray
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithMaxWidth truncates outline lines to w visible columns.
func WithMaxWidth(w int) Option {
	return func(r *Renderer) {
		r.maxWidth = w
	}
}

// WithNoColor disables all styling, producing plain text.
func WithNoColor() Option {
	return func(r *Renderer) {
		r.noColor = true
	}
}

// WithSizes appends each element's observed size as [inline x block].
func WithSizes() Option {
	return func(r *Renderer) {
		r.showSizes = true
	}
}

// WithTheme overrides the color scheme.
func WithTheme(t Theme) Option {
	return func(r *Renderer) {
		r.theme = t
	}
}

// Renderer draws memory surface trees as text.
type Renderer struct {
	theme     Theme
	maxWidth  int
	noColor   bool
	showSizes bool
}

// New creates a renderer with the default theme.
func New(opts ...Option) *Renderer {
	r := &Renderer{theme: DefaultTheme}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render returns the outline of the tree rooted at root, one element per
// line, each line newline-terminated. Released or unknown elements are
// skipped.
func (r *Renderer) Render(m *surface.Memory, root surface.Handle) string {
	var sb strings.Builder
	r.writeElement(&sb, m, root, 0)
	return sb.String()
}

func (r *Renderer) writeElement(sb *strings.Builder, m *surface.Memory, h surface.Handle, depth int) {
	line, ok := r.elementLine(m, h, depth)
	if !ok {
		return
	}
	sb.WriteString(line)
	sb.WriteByte('\n')

	kids, err := m.Children(h)
	if err != nil {
		return
	}
	for _, kid := range kids {
		r.writeElement(sb, m, kid, depth+1)
	}
}

func (r *Renderer) elementLine(m *surface.Memory, h surface.Handle, depth int) (string, bool) {
	tag, err := m.Tag(h)
	if err != nil {
		return "", false
	}
	attrs, _ := m.Attributes(h)
	classes, _ := m.ClassList(h)
	text, _ := m.Text(h)

	var sb strings.Builder
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(r.paint(r.style(r.theme.Tag), "<"+tag))
	if id := attrs["id"]; id != "" {
		sb.WriteString(r.paint(r.style(r.theme.ID), "#"+id))
	}
	for _, class := range classes {
		sb.WriteString(r.paint(r.style(r.theme.Class), "."+class))
	}
	for _, key := range sortedAttrKeys(attrs) {
		sb.WriteString(" ")
		sb.WriteString(r.paint(r.style(r.theme.AttrKey), key+"="))
		sb.WriteString(r.paint(r.style(r.theme.AttrValue), fmt.Sprintf("%q", attrs[key])))
	}
	sb.WriteString(r.paint(r.style(r.theme.Tag), ">"))

	if text != "" {
		st := r.style(r.theme.Text)
		if fg, ok := resolveColor(attrs["color"]); ok {
			st = st.Foreground(fg)
		}
		if bg, ok := resolveColor(attrs["bg"]); ok {
			st = st.Background(bg)
		}
		sb.WriteString(" ")
		sb.WriteString(r.paint(st, fmt.Sprintf("%q", text)))
	}

	if r.showSizes {
		if inline, block, err := m.Size(h); err == nil && (inline != 0 || block != 0) {
			sb.WriteString(" ")
			sb.WriteString(r.paint(r.style(r.theme.Size), fmt.Sprintf("[%gx%g]", inline, block)))
		}
	}

	line := sb.String()
	if r.maxWidth > 0 && ansi.StringWidth(line) > r.maxWidth {
		line = ansi.Truncate(line, r.maxWidth, "…")
	}
	return line, true
}

func (r *Renderer) style(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

func (r *Renderer) paint(st lipgloss.Style, s string) string {
	if r.noColor {
		return s
	}
	return st.Render(s)
}

// sortedAttrKeys returns the attribute keys to display, in stable order.
// The id attribute is omitted; it is rendered as part of the selector.
func sortedAttrKeys(attrs map[string]string) []string {
	keys := make([]string, 0, len(attrs))
	for key := range attrs {
		if key == "id" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// resolveColor turns a color attribute value into a lipgloss color. It
// accepts #rrggbb literals and SVG 1.1 color names.
func resolveColor(value string) (lipgloss.Color, bool) {
	if value == "" {
		return "", false
	}
	if strings.HasPrefix(value, "#") {
		if len(value) != 7 {
			return "", false
		}
		for _, c := range value[1:] {
			if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
				return "", false
			}
		}
		return lipgloss.Color(value), true
	}
	c, ok := colornames.Map[strings.ToLower(value)]
	if !ok {
		return "", false
	}
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)), true
}
