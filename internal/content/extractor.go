// Package content renders landmark-scoped summaries and full depth-first
// text content from an accessibility forest.
package content

import (
	"fmt"
	"strings"

	"github.com/ticktockbent/charlotte/internal/axtree"
)

var contentRoles = map[string]bool{
	"heading":   true,
	"paragraph": true,
	"listitem":  true,
	"cell":      true,
	"label":     true,
	"legend":    true,
	"caption":   true,
	"blockquote": true,
}

// category names counted by extractSummary, in the order rendered.
type counts struct {
	headings, paragraphs, links, buttons, inputs, forms, images, lists, tables int
}

func (c counts) String() string {
	entries := []struct {
		n     int
		label string
	}{
		{c.headings, "headings"},
		{c.paragraphs, "paragraphs"},
		{c.links, "links"},
		{c.buttons, "buttons"},
		{c.inputs, "inputs"},
		{c.forms, "forms"},
		{c.images, "images"},
		{c.lists, "lists"},
		{c.tables, "tables"},
	}
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", e.n, e.label))
		}
	}
	return strings.Join(parts, ", ")
}

func categoryOf(role string) func(*counts) {
	switch role {
	case "heading":
		return func(c *counts) { c.headings++ }
	case "paragraph":
		return func(c *counts) { c.paragraphs++ }
	case "link":
		return func(c *counts) { c.links++ }
	case "button", "menuitem", "tab":
		return func(c *counts) { c.buttons++ }
	case "textbox", "searchbox", "combobox", "listbox", "checkbox", "radio", "switch", "slider", "spinbutton":
		return func(c *counts) { c.inputs++ }
	case "form":
		return func(c *counts) { c.forms++ }
	case "image", "img":
		return func(c *counts) { c.images++ }
	case "list":
		return func(c *counts) { c.lists++ }
	case "table":
		return func(c *counts) { c.tables++ }
	}
	return nil
}

// ExtractSummary finds landmark subtrees and counts their descendants by
// category, without descending into nested landmarks. If no landmarks
// exist, counting falls back to the page root. Entries are joined with "; ".
func ExtractSummary(roots []*axtree.Node) string {
	// Landmarks are found at every nesting depth: a landmark inside another
	// landmark still gets its own summary entry, scoped to its own subtree.
	var landmarks []*axtree.Node
	axtree.WalkPreOrder(roots, func(n *axtree.Node) {
		if axtree.IsLandmarkRole(n.Role) {
			landmarks = append(landmarks, n)
		}
	})

	if len(landmarks) == 0 {
		c := countScoped(roots)
		return fmt.Sprintf("(page root): %s", c.String())
	}

	entries := make([]string, 0, len(landmarks))
	for _, lm := range landmarks {
		label := lm.Role
		if lm.Name != "" {
			label = lm.Name
		}
		c := countScoped(lm.Children)
		entries = append(entries, fmt.Sprintf("%s: %s", label, c.String()))
	}
	return strings.Join(entries, "; ")
}

// countScoped counts descendant categories of roots without descending
// into nested landmark subtrees. Walked with an explicit work stack rather
// than call recursion — the forest can run 10^4 nodes deep on heavy SPAs.
func countScoped(roots []*axtree.Node) counts {
	var acc counts

	stack := make([]*axtree.Node, len(roots))
	copy(stack, roots)
	for i, j := 0, len(stack)-1; i < j; i, j = i+1, j-1 {
		stack[i], stack[j] = stack[j], stack[i]
	}

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if fn := categoryOf(n.Role); fn != nil {
			fn(&acc)
		}
		if axtree.IsLandmarkRole(n.Role) {
			continue
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
	return acc
}

// ExtractFullContent walks roots in document order with an explicit work
// stack. At a content-role node with a non-empty name, it emits the name
// and does not descend. StaticText / text nodes emit their name. Everything
// else is descended into. Lines are joined with "\n".
func ExtractFullContent(roots []*axtree.Node) string {
	var lines []string

	stack := make([]*axtree.Node, len(roots))
	copy(stack, roots)
	for i, j := 0, len(stack)-1; i < j; i, j = i+1, j-1 {
		stack[i], stack[j] = stack[j], stack[i]
	}

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if contentRoles[n.Role] && n.Name != "" {
			lines = append(lines, n.Name)
			continue
		}
		if n.Role == "StaticText" || n.Role == "text" {
			if n.Name != "" {
				lines = append(lines, n.Name)
			}
			continue
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
	return strings.Join(lines, "\n")
}
