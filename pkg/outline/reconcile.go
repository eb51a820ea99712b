package outline

import "github.com/outlinetools/olv/pkg/model"

// Reconcile copies expand/collapse state from old onto fresh for nodes
// sharing the same identity, matching parents before children: a child is
// only matched inside its matched parent's sibling group (roots match
// among roots). Nodes only present in fresh keep their default collapsed
// state; nodes only present in old are dropped with no effect.
//
// Reconcile mutates fresh in place and returns it. Either tree may be nil.
func Reconcile(old, fresh *model.Tree) *model.Tree {
	if old == nil || fresh == nil {
		return fresh
	}
	reconcileSiblings(old.Roots, fresh.Roots)
	return fresh
}

func reconcileSiblings(old, fresh []*model.Node) {
	if len(old) == 0 || len(fresh) == 0 {
		return
	}
	// IDs are parent-qualified, so a flat map per sibling group is enough
	// to keep matching deterministic even with identical labels.
	byID := make(map[string]*model.Node, len(old))
	for _, n := range old {
		byID[n.ID] = n
	}
	for _, n := range fresh {
		prev, ok := byID[n.ID]
		if !ok {
			continue
		}
		n.Expanded = prev.Expanded
		reconcileSiblings(prev.Children, n.Children)
	}
}
