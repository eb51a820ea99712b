// Package model defines the outline data structures shared by the parser,
// the outline engine, and the UI.
package model

import (
	"fmt"
	"strings"
)

// Heading is a single heading/symbol event produced by a document parser.
// Events arrive in document order; Level is the source-level nesting hint
// (1 = top-level heading). Start and End are byte offsets of the heading
// itself, not of the section it opens.
type Heading struct {
	Text  string `json:"text"`
	Level int    `json:"level"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Node is one entry in an outline tree.
//
// Nodes are rebuilt from scratch on every refresh; ID is the stable key
// that carries user state (Expanded) across rebuilds. It is derived from
// the label, the source level, and the ordinal among identical siblings,
// qualified by the parent's ID, so it is unique within a single build and
// deterministic across builds.
type Node struct {
	ID       string  `json:"id"`
	Label    string  `json:"label"`
	Level    int     `json:"level"`
	Depth    int     `json:"depth"`
	Start    int     `json:"start"`
	End      int     `json:"end"`
	Children []*Node `json:"children,omitempty"`
	Expanded bool    `json:"expanded"`

	// Parent is a non-owning back-reference for navigation. Never used for
	// lifetime management; ownership always flows root -> children.
	Parent *Node `json:"-"`
}

// Tree is an ordered outline of a document. Roots are in document order.
type Tree struct {
	Roots []*Node `json:"roots"`
}

// Walk visits every node in document order, parents before children.
func (t *Tree) Walk(fn func(*Node)) {
	if t == nil {
		return
	}
	var walk func(n *Node)
	walk = func(n *Node) {
		if n == nil {
			return
		}
		fn(n)
		for _, child := range n.Children {
			walk(child)
		}
	}
	for _, root := range t.Roots {
		walk(root)
	}
}

// NodeCount returns the total number of nodes in the tree.
func (t *Tree) NodeCount() int {
	count := 0
	t.Walk(func(*Node) { count++ })
	return count
}

// Empty reports whether the tree has no nodes.
func (t *Tree) Empty() bool {
	return t == nil || len(t.Roots) == 0
}

// FindByID returns the node with the given ID, or nil.
func (t *Tree) FindByID(id string) *Node {
	var found *Node
	t.Walk(func(n *Node) {
		if found == nil && n.ID == id {
			found = n
		}
	})
	return found
}

// Path returns the breadcrumb of labels from the root down to this node.
func (n *Node) Path() []string {
	if n == nil {
		return nil
	}
	var labels []string
	for cur := n; cur != nil; cur = cur.Parent {
		labels = append([]string{cur.Label}, labels...)
	}
	return labels
}

// HasChildren reports whether the node has any children.
func (n *Node) HasChildren() bool {
	return n != nil && len(n.Children) > 0
}

// Validate checks the structural invariants of the tree: sibling ranges in
// ascending, non-overlapping document order, descendant ranges nested
// inside their parent's range, and IDs unique within the build. Intended
// for tests; the builder maintains these by construction.
func (t *Tree) Validate() error {
	seen := make(map[string]bool)
	var check func(parent *Node, siblings []*Node) error
	check = func(parent *Node, siblings []*Node) error {
		prevEnd := -1
		for _, n := range siblings {
			if n == nil {
				return fmt.Errorf("nil node under %s", parentID(parent))
			}
			if seen[n.ID] {
				return fmt.Errorf("duplicate node ID %q", n.ID)
			}
			seen[n.ID] = true
			if n.Parent != parent {
				return fmt.Errorf("node %q has wrong parent back-reference", n.ID)
			}
			if n.End < n.Start {
				return fmt.Errorf("node %q has inverted range [%d,%d)", n.ID, n.Start, n.End)
			}
			if n.Start < prevEnd {
				return fmt.Errorf("node %q overlaps its preceding sibling", n.ID)
			}
			prevEnd = n.End
			if parent != nil && (n.Start < parent.Start || n.End > parent.End) {
				return fmt.Errorf("node %q range escapes parent %q", n.ID, parent.ID)
			}
			if err := check(n, n.Children); err != nil {
				return err
			}
		}
		return nil
	}
	return check(nil, t.Roots)
}

func parentID(n *Node) string {
	if n == nil {
		return "<root>"
	}
	return n.ID
}

// ChildKey builds the sibling-local identity component for a node: label,
// source level, and the ordinal among siblings sharing both. The builder
// qualifies it with the parent's ID to produce Node.ID.
func ChildKey(label string, level, ordinal int) string {
	// Collapse newlines so keys stay single-line for debug output.
	label = strings.ReplaceAll(label, "\n", " ")
	return fmt.Sprintf("%s\x1f%d\x1f%d", label, level, ordinal)
}
