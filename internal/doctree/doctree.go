package doctree

import (
	"strconv"
	"strings"
)

// Book is the root of a generated document. It owns the whole outline tree
// and is the unit handed to the renderer.
type Book struct {
	Title         string  `json:"title"`
	Audience      string  `json:"audience"`
	Topic         string  `json:"topic"`
	ManualSummary string  `json:"manual_summary,omitempty"`
	Introduction  string  `json:"introduction,omitempty"`
	TOC           []*Node `json:"toc"`
}

// Node is a chapter or subchapter. Number and Level are assigned by Renumber,
// never authored.
type Node struct {
	Title    string    `json:"title"`
	Number   string    `json:"number"`
	Level    int       `json:"level"`
	Summary  string    `json:"summary,omitempty"`
	Content  string    `json:"content,omitempty"`
	Children []*Node   `json:"children,omitempty"`
	Diagrams []Diagram `json:"diagrams,omitempty"`
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Label is the "number title" form used in prompts and tables of contents.
func (n *Node) Label() string {
	if n.Number == "" {
		return n.Title
	}
	return n.Number + " " + n.Title
}

// Renumber assigns dotted positional numbers and 1-based levels to the tree.
// It is a pure function of sibling position, so repeated calls are stable.
func Renumber(nodes []*Node) {
	renumber(nodes, "", 1)
}

func renumber(nodes []*Node, prefix string, level int) {
	for i, n := range nodes {
		n.Number = prefix + strconv.Itoa(i+1)
		n.Level = level
		renumber(n.Children, n.Number+".", level+1)
	}
}

// Walk visits the tree in strict pre-order. The parent is nil for top-level
// nodes. Returning false from fn stops the walk.
func Walk(nodes []*Node, fn func(n, parent *Node) bool) {
	walk(nodes, nil, fn)
}

func walk(nodes []*Node, parent *Node, fn func(n, parent *Node) bool) bool {
	for _, n := range nodes {
		if !fn(n, parent) {
			return false
		}
		if !walk(n.Children, n, fn) {
			return false
		}
	}
	return true
}

// Find returns the node with the given dotted number and its parent.
func Find(nodes []*Node, number string) (node, parent *Node) {
	number = strings.TrimSpace(number)
	Walk(nodes, func(n, p *Node) bool {
		if n.Number == number {
			node, parent = n, p
			return false
		}
		return true
	})
	return node, parent
}

// TopLevel returns the top-level chapter that encloses number.
func TopLevel(nodes []*Node, number string) *Node {
	head, _, _ := strings.Cut(number, ".")
	n, _ := Find(nodes, head)
	return n
}

// TOCString renders the tree as an indented "number title" listing.
func TOCString(nodes []*Node) string {
	var sb strings.Builder
	Walk(nodes, func(n, _ *Node) bool {
		sb.WriteString(strings.Repeat("  ", max(n.Level-1, 0)))
		sb.WriteString(n.Label())
		sb.WriteByte('\n')
		return true
	})
	return sb.String()
}

// Count returns the total number of nodes in the tree.
func Count(nodes []*Node) int {
	total := 0
	Walk(nodes, func(*Node, *Node) bool {
		total++
		return true
	})
	return total
}

// MaxDepth returns the depth of the deepest node (0 for an empty tree).
func MaxDepth(nodes []*Node) int {
	depth := 0
	for _, n := range nodes {
		depth = max(depth, 1+MaxDepth(n.Children))
	}
	return depth
}

// Leaves returns every leaf in document order.
func Leaves(nodes []*Node) []*Node {
	var out []*Node
	Walk(nodes, func(n, _ *Node) bool {
		if n.IsLeaf() {
			out = append(out, n)
		}
		return true
	})
	return out
}
