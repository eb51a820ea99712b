// tree.go - Hierarchical outline view over the current document's headings.
package ui

import (
	"fmt"
	"strings"

	"github.com/outlinetools/olv/pkg/model"
)

// OutlineView renders an outline tree as a flat list of visible nodes with
// cursor navigation and windowed scrolling. It displays whatever tree the
// session currently exposes; all expand-state mutation goes back through
// the session so subscribers stay in sync.
type OutlineView struct {
	tree           *model.Tree
	flatList       []*model.Node // visible nodes, document order
	cursor         int
	width          int
	height         int
	viewportOffset int // index of first visible row
	theme          Theme

	// Search state
	searchMode       bool
	searchQuery      string
	searchMatches    []*model.Node
	searchMatchIndex int
	searchMatchIDs   map[string]bool

	// expandAncestors routes ancestor expansion through the owning
	// session, which holds the expand-state lock. Views without a
	// session (tests) leave it nil and mutate locally.
	expandAncestors func(*model.Node)
}

// NewOutlineView creates an empty outline view.
func NewOutlineView(theme Theme) OutlineView {
	return OutlineView{theme: theme}
}

// SetSize updates the available dimensions for the view.
func (v *OutlineView) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.ensureCursorVisible()
}

// SetTree swaps in a new tree, preserving the current selection by node ID
// when the node still exists.
func (v *OutlineView) SetTree(tree *model.Tree) {
	prevSelectedID := ""
	if node := v.SelectedNode(); node != nil {
		prevSelectedID = node.ID
	}

	v.tree = tree
	v.clearSearchState()
	v.RefreshVisible()

	if prevSelectedID != "" && v.SelectByID(prevSelectedID) {
		v.ensureCursorVisible()
	}
}

// RefreshVisible rebuilds the flat list after expand-state changes made
// outside the view (bulk operations, reconciled refreshes).
func (v *OutlineView) RefreshVisible() {
	v.rebuildFlatList()
	v.ensureCursorVisible()
}

// rebuildFlatList rebuilds the flattened list of visible nodes.
func (v *OutlineView) rebuildFlatList() {
	v.flatList = v.flatList[:0]
	if v.tree != nil {
		for _, root := range v.tree.Roots {
			v.appendVisible(root)
		}
	}
	// Ensure cursor stays in bounds
	if v.cursor >= len(v.flatList) {
		v.cursor = len(v.flatList) - 1
	}
	if v.cursor < 0 {
		v.cursor = 0
	}
}

// appendVisible adds a node and its visible descendants to flatList.
func (v *OutlineView) appendVisible(node *model.Node) {
	if node == nil {
		return
	}
	v.flatList = append(v.flatList, node)
	if node.Expanded {
		for _, child := range node.Children {
			v.appendVisible(child)
		}
	}
}

// SelectedNode returns the node under the cursor, or nil.
func (v *OutlineView) SelectedNode() *model.Node {
	if v.cursor >= 0 && v.cursor < len(v.flatList) {
		return v.flatList[v.cursor]
	}
	return nil
}

// SelectByID moves the cursor to the node with the given ID.
// Returns true if found in the visible list.
func (v *OutlineView) SelectByID(id string) bool {
	for i, node := range v.flatList {
		if node != nil && node.ID == id {
			v.cursor = i
			return true
		}
	}
	return false
}

// NodeCount returns the number of visible nodes.
func (v *OutlineView) NodeCount() int { return len(v.flatList) }

// MoveDown moves the cursor down in the flat list.
func (v *OutlineView) MoveDown() {
	if v.cursor < len(v.flatList)-1 {
		v.cursor++
		v.ensureCursorVisible()
	}
}

// MoveUp moves the cursor up in the flat list.
func (v *OutlineView) MoveUp() {
	if v.cursor > 0 {
		v.cursor--
		v.ensureCursorVisible()
	}
}

// JumpToTop moves the cursor to the first node.
func (v *OutlineView) JumpToTop() {
	v.cursor = 0
	v.ensureCursorVisible()
}

// JumpToBottom moves the cursor to the last node.
func (v *OutlineView) JumpToBottom() {
	if len(v.flatList) > 0 {
		v.cursor = len(v.flatList) - 1
		v.ensureCursorVisible()
	}
}

// JumpToParent moves the cursor to the selected node's parent.
func (v *OutlineView) JumpToParent() {
	node := v.SelectedNode()
	if node == nil || node.Parent == nil {
		return
	}
	for i, n := range v.flatList {
		if n == node.Parent {
			v.cursor = i
			v.ensureCursorVisible()
			return
		}
	}
}

// effectiveVisibleCount returns how many node rows fit, accounting for the
// header row and the position indicator.
func (v *OutlineView) effectiveVisibleCount() int {
	visibleCount := v.height - 1 // header row
	if visibleCount <= 0 {
		visibleCount = 19
	}
	if len(v.flatList) > visibleCount {
		visibleCount-- // position indicator line
	}
	if visibleCount < 1 {
		visibleCount = 1
	}
	return visibleCount
}

// ensureCursorVisible adjusts viewportOffset so the cursor stays on
// screen, scrolling just enough (cursor-at-edge behavior).
func (v *OutlineView) ensureCursorVisible() {
	if len(v.flatList) == 0 {
		return
	}

	visibleCount := v.effectiveVisibleCount()

	if v.cursor < v.viewportOffset {
		v.viewportOffset = v.cursor
	}
	if v.cursor >= v.viewportOffset+visibleCount {
		v.viewportOffset = v.cursor - visibleCount + 1
	}

	maxOffset := len(v.flatList) - visibleCount
	if maxOffset < 0 {
		maxOffset = 0
	}
	if v.viewportOffset > maxOffset {
		v.viewportOffset = maxOffset
	}
	if v.viewportOffset < 0 {
		v.viewportOffset = 0
	}
}

func (v *OutlineView) visibleRange() (start, end int) {
	start = v.viewportOffset
	end = start + v.effectiveVisibleCount()
	if end > len(v.flatList) {
		end = len(v.flatList)
	}
	return start, end
}

// ── Search ──

// EnterSearchMode activates the search input bar.
func (v *OutlineView) EnterSearchMode() {
	v.searchMode = true
	v.searchQuery = ""
	v.searchMatches = nil
	v.searchMatchIDs = nil
	v.searchMatchIndex = 0
}

// ExitSearchMode deactivates the search input bar but keeps matches
// highlighted.
func (v *OutlineView) ExitSearchMode() { v.searchMode = false }

// ClearSearch removes all search state.
func (v *OutlineView) ClearSearch() { v.clearSearchState() }

func (v *OutlineView) clearSearchState() {
	v.searchMode = false
	v.searchQuery = ""
	v.searchMatches = nil
	v.searchMatchIDs = nil
	v.searchMatchIndex = 0
}

// IsSearchMode returns whether the search input bar is active.
func (v *OutlineView) IsSearchMode() bool { return v.searchMode }

// SearchQuery returns the current search query string.
func (v *OutlineView) SearchQuery() string { return v.searchQuery }

// SearchMatchCount returns the number of matching nodes.
func (v *OutlineView) SearchMatchCount() int { return len(v.searchMatches) }

// SearchAddChar appends a character to the query and re-runs the search.
func (v *OutlineView) SearchAddChar(ch rune) {
	v.searchQuery += string(ch)
	v.executeSearch()
}

// SearchBackspace removes the last character from the query.
func (v *OutlineView) SearchBackspace() {
	if len(v.searchQuery) > 0 {
		runes := []rune(v.searchQuery)
		v.searchQuery = string(runes[:len(runes)-1])
	}
	if v.searchQuery == "" {
		v.searchMatches = nil
		v.searchMatchIDs = nil
		v.searchMatchIndex = 0
		return
	}
	v.executeSearch()
}

// executeSearch walks ALL nodes (including collapsed ones), expands the
// path to the first match, and navigates to it.
func (v *OutlineView) executeSearch() {
	v.searchMatches = nil
	v.searchMatchIDs = make(map[string]bool)
	v.searchMatchIndex = 0

	if v.searchQuery == "" || v.tree == nil {
		return
	}

	query := strings.ToLower(v.searchQuery)
	v.tree.Walk(func(node *model.Node) {
		if strings.Contains(strings.ToLower(node.Label), query) {
			v.searchMatches = append(v.searchMatches, node)
			v.searchMatchIDs[node.ID] = true
		}
	})

	if len(v.searchMatches) > 0 {
		v.focusMatch(v.searchMatches[0])
	}
}

// NextSearchMatch cycles forward through matches (n key).
func (v *OutlineView) NextSearchMatch() {
	if len(v.searchMatches) == 0 {
		return
	}
	v.searchMatchIndex = (v.searchMatchIndex + 1) % len(v.searchMatches)
	v.focusMatch(v.searchMatches[v.searchMatchIndex])
}

// PrevSearchMatch cycles backward through matches (N key).
func (v *OutlineView) PrevSearchMatch() {
	if len(v.searchMatches) == 0 {
		return
	}
	v.searchMatchIndex--
	if v.searchMatchIndex < 0 {
		v.searchMatchIndex = len(v.searchMatches) - 1
	}
	v.focusMatch(v.searchMatches[v.searchMatchIndex])
}

// SetAncestorExpander installs the callback used to expand a match's
// ancestors. Wired to Session.ExpandAncestors so the write happens under
// the session lock rather than on the view's goroutine.
func (v *OutlineView) SetAncestorExpander(fn func(*model.Node)) {
	v.expandAncestors = fn
}

func (v *OutlineView) focusMatch(node *model.Node) {
	if v.expandAncestors != nil {
		v.expandAncestors(node)
	} else {
		for ancestor := node.Parent; ancestor != nil; ancestor = ancestor.Parent {
			ancestor.Expanded = true
		}
	}
	v.rebuildFlatList()
	v.SelectByID(node.ID)
	v.ensureCursorVisible()
}

// ── Rendering ──

// View renders the outline panel.
func (v *OutlineView) View() string {
	if v.tree == nil || len(v.flatList) == 0 {
		return v.renderEmptyState()
	}

	var sb strings.Builder

	sb.WriteString(v.renderHeader())
	sb.WriteString("\n")

	start, end := v.visibleRange()
	for i := start; i < end; i++ {
		node := v.flatList[i]
		if node == nil {
			continue
		}

		isSelected := i == v.cursor
		line := v.renderNode(node, isSelected)
		if isSelected {
			line = v.theme.Selected.Render(line)
		}

		sb.WriteString(line)
		sb.WriteString("\n")
	}

	// Position indicator only when scrolling is needed
	if len(v.flatList) > v.effectiveVisibleCount() {
		sb.WriteString(v.renderPositionIndicator(start, end))
	}

	if v.searchMode {
		sb.WriteString("\n")
		sb.WriteString(v.renderSearchBar())
	}

	return sb.String()
}

func (v *OutlineView) renderEmptyState() string {
	var sb strings.Builder
	sb.WriteString(v.theme.PrimaryBold.Render("Outline"))
	sb.WriteString("\n\n")
	sb.WriteString(v.theme.MutedText.Render("No headings in this document."))
	return sb.String()
}

func (v *OutlineView) renderHeader() string {
	width := v.width
	if width <= 0 {
		width = 80
	}
	return v.theme.Header.Width(width).Render(" OUTLINE")
}

func (v *OutlineView) renderPositionIndicator(start, end int) string {
	total := len(v.flatList)
	indicator := fmt.Sprintf(" %d-%d of %d", start+1, end, total)
	return v.theme.MutedText.Render(indicator)
}

// renderNode renders a single row: [branch prefix] [indicator] [label].
func (v *OutlineView) renderNode(node *model.Node, isSelected bool) string {
	width := v.width
	if width <= 0 {
		width = 80
	}
	width-- // avoid wrapping on the exact edge

	var left strings.Builder

	prefix := v.buildTreePrefix(node)
	left.WriteString(v.theme.MutedText.Render(prefix))

	indicator := expandIndicator(node)
	left.WriteString(v.theme.SecondaryText.Render(indicator))
	left.WriteString(" ")

	labelWidth := width - runewidthLen(prefix) - 2
	if labelWidth < 5 {
		labelWidth = 5
	}
	label := truncateWidth(node.Label, labelWidth, "…")

	style := v.theme.Base
	switch {
	case isSelected:
		style = v.theme.PrimaryBold
	case v.searchMatchIDs != nil && v.searchMatchIDs[node.ID]:
		style = v.theme.Renderer.NewStyle().Foreground(v.theme.Highlight)
	}
	left.WriteString(style.Render(label))

	return left.String()
}

// buildTreePrefix builds the indentation and branch characters for a node.
func (v *OutlineView) buildTreePrefix(node *model.Node) string {
	if node.Depth == 0 {
		return ""
	}

	var parts []string
	for ancestor := node.Parent; ancestor != nil && ancestor.Parent != nil; ancestor = ancestor.Parent {
		if hasSiblingsBelow(ancestor) {
			parts = append([]string{"│   "}, parts...)
		} else {
			parts = append([]string{"    "}, parts...)
		}
	}

	if isLastChild(node) {
		parts = append(parts, "└── ")
	} else {
		parts = append(parts, "├── ")
	}

	return strings.Join(parts, "")
}

func hasSiblingsBelow(node *model.Node) bool {
	if node.Parent == nil {
		return false
	}
	siblings := node.Parent.Children
	for i, sibling := range siblings {
		if sibling == node {
			return i < len(siblings)-1
		}
	}
	return false
}

func isLastChild(node *model.Node) bool {
	if node.Parent == nil {
		return true
	}
	siblings := node.Parent.Children
	return len(siblings) > 0 && siblings[len(siblings)-1] == node
}

// expandIndicator returns the expand/collapse glyph for a node.
func expandIndicator(node *model.Node) string {
	if !node.HasChildren() {
		return "•"
	}
	if node.Expanded {
		return "▾"
	}
	return "▸"
}

func (v *OutlineView) renderSearchBar() string {
	matchInfo := ""
	if len(v.searchMatches) > 0 {
		matchInfo = fmt.Sprintf(" [%d/%d]", v.searchMatchIndex+1, len(v.searchMatches))
	} else if v.searchQuery != "" {
		matchInfo = " [no matches]"
	}
	return v.theme.PrimaryBold.Render(fmt.Sprintf("/%s%s", v.searchQuery, matchInfo))
}
