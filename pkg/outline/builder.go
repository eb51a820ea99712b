// Package outline implements the outline engine: building a tree from
// parser events, reconciling expand/collapse state across rebuilds, bulk
// state transitions, and the per-document refresh session.
package outline

import (
	"fmt"

	"github.com/outlinetools/olv/pkg/model"
)

// Build constructs an outline tree from heading events using strict
// level-based nesting: an event at level L becomes a child of the nearest
// preceding event at a lower level that is still open; events with no
// qualifying ancestor become roots. A node's range ends at the start of
// the event that closes it, or at document end.
//
// Build is a pure function of its inputs and never fails. Malformed input
// (a deep heading before any shallower one, non-positive levels) degrades
// to root-level nodes. Every node starts collapsed.
func Build(headings []model.Heading, docLen int) *model.Tree {
	tree := &model.Tree{}
	if len(headings) == 0 {
		return tree
	}

	// Open nodes, outermost first. A node stays on the stack from its own
	// event until a lower-or-equal-level event closes it.
	var stack []*model.Node

	// Per-parent counters for ordinal disambiguation of identical siblings.
	// The nil key tracks roots.
	ordinals := make(map[*model.Node]map[string]int)

	for _, h := range headings {
		level := h.Level
		if level < 1 {
			level = 1
		}
		start := clamp(h.Start, 0, docLen)

		for len(stack) > 0 && stack[len(stack)-1].Level >= level {
			closed := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			closeNode(closed, start)
		}

		var parent *model.Node
		if len(stack) > 0 {
			parent = stack[len(stack)-1]
		}

		node := &model.Node{
			Label:  h.Text,
			Level:  level,
			Start:  start,
			End:    docLen, // provisional; tightened when the node closes
			Parent: parent,
		}
		node.ID = assignID(parent, node, ordinals)

		if parent == nil {
			tree.Roots = append(tree.Roots, node)
		} else {
			node.Depth = parent.Depth + 1
			parent.Children = append(parent.Children, node)
		}
		stack = append(stack, node)
	}

	for _, open := range stack {
		closeNode(open, docLen)
	}

	return tree
}

// assignID derives the node's stable identity: the sibling-local key
// (label, level, ordinal among identical siblings) qualified by the
// parent's ID so identity is parent-scoped and unique within one build.
func assignID(parent, node *model.Node, ordinals map[*model.Node]map[string]int) string {
	group := ordinals[parent]
	if group == nil {
		group = make(map[string]int)
		ordinals[parent] = group
	}
	base := fmt.Sprintf("%s\x1f%d", node.Label, node.Level)
	ordinal := group[base]
	group[base] = ordinal + 1

	key := model.ChildKey(node.Label, node.Level, ordinal)
	if parent == nil {
		return key
	}
	return parent.ID + "/" + key
}

func closeNode(n *model.Node, end int) {
	if end < n.Start {
		end = n.Start
	}
	n.End = end
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
