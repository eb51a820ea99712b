package outline

import "github.com/outlinetools/olv/pkg/model"

// ExpandAll marks every node in the tree expanded. Total and idempotent.
func ExpandAll(t *model.Tree) {
	setExpanded(t, true)
}

// CollapseAll marks every node in the tree collapsed. Total and idempotent.
func CollapseAll(t *model.Tree) {
	setExpanded(t, false)
}

func setExpanded(t *model.Tree, expanded bool) {
	t.Walk(func(n *model.Node) {
		n.Expanded = expanded
	})
}

// AnyCollapsed reports whether any node with children is collapsed. This
// drives the expand-all/collapse-all toggle affordance and is always
// computed by scanning, never cached, so individually toggled nodes can't
// make the affordance drift.
func AnyCollapsed(t *model.Tree) bool {
	collapsed := false
	t.Walk(func(n *model.Node) {
		if n.HasChildren() && !n.Expanded {
			collapsed = true
		}
	})
	return collapsed
}

// AllExpanded reports whether every node in the tree is expanded.
func AllExpanded(t *model.Tree) bool {
	if t.Empty() {
		return false
	}
	all := true
	t.Walk(func(n *model.Node) {
		if !n.Expanded {
			all = false
		}
	})
	return all
}

// AllCollapsed reports whether every node in the tree is collapsed.
func AllCollapsed(t *model.Tree) bool {
	if t.Empty() {
		return false
	}
	all := true
	t.Walk(func(n *model.Node) {
		if n.Expanded {
			all = false
		}
	})
	return all
}
