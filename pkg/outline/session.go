package outline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/outlinetools/olv/pkg/debug"
	"github.com/outlinetools/olv/pkg/model"
)

// Common errors.
var (
	ErrNoParser = errors.New("no parser configured")
)

// State describes the readiness of a session's exposed tree.
type State int

const (
	// StateEmpty means no document has been loaded (or it was closed).
	StateEmpty State = iota
	// StateBuilding means a refresh is in flight.
	StateBuilding
	// StateReady means the current tree is available.
	StateReady
)

func (s State) String() string {
	switch s {
	case StateBuilding:
		return "building"
	case StateReady:
		return "ready"
	default:
		return "empty"
	}
}

// DocumentSnapshot is the immutable input to one refresh: the document
// text as the editor host saw it, plus enough metadata to pick a parser.
type DocumentSnapshot struct {
	Path       string
	LanguageID string
	Text       string
}

// ParseFunc extracts heading events from document text. The session treats
// the result as authoritative and does not re-validate level monotonicity.
type ParseFunc func(text, languageID string) ([]model.Heading, error)

// EventKind discriminates session notifications.
type EventKind int

const (
	// EventTreeReplaced fires when a refresh (or Close) swaps the tree.
	EventTreeReplaced EventKind = iota
	// EventBulkStateChanged fires after ExpandAll/CollapseAll.
	EventBulkStateChanged
	// EventNodeStateChanged fires after a single node toggle.
	EventNodeStateChanged
)

// Event is a change notification delivered to subscribers.
type Event struct {
	Kind EventKind
	Node *model.Node // set for EventNodeStateChanged
}

// Session owns the exposed outline tree for one document and coordinates
// refreshes against bulk state operations. Multiple open documents get
// independent sessions; there is no ambient global tree.
//
// Refreshes are serialized by a generation counter: if a newer refresh
// starts while an older one is still parsing, the older result is
// discarded instead of being applied out of order. Expand/collapse state
// survives a refresh through Reconcile; everything else about the tree is
// rebuilt from scratch.
type Session struct {
	mu         sync.Mutex
	parse      ParseFunc
	current    *model.Tree
	state      State
	generation uint64

	subs    map[int]func(Event)
	nextSub int
}

// NewSession creates a session that parses snapshots with parse.
func NewSession(parse ParseFunc) *Session {
	return &Session{
		parse: parse,
		subs:  make(map[int]func(Event)),
	}
}

// Subscribe registers fn for change notifications and returns an
// unsubscribe function. The session does not depend on any particular UI
// event loop; adapters bridge events into their own primitives.
func (s *Session) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Session) notify(ev Event) {
	s.mu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	// Outside the lock so subscribers may call back into the session.
	for _, fn := range fns {
		fn(ev)
	}
}

// Refresh parses the snapshot, builds a fresh tree, reconciles the old
// tree's expand state onto it, and atomically swaps it in. If a newer
// refresh started in the meantime, this result is silently discarded.
//
// A parse failure leaves the previously exposed tree intact and is
// returned to the caller; a document with no recognized headings yields an
// empty tree, not an error.
func (s *Session) Refresh(ctx context.Context, snap DocumentSnapshot) error {
	if s.parse == nil {
		return ErrNoParser
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.state = StateBuilding
	s.mu.Unlock()

	start := time.Now()
	headings, err := s.parse(snap.Text, snap.LanguageID)
	if err != nil {
		s.mu.Lock()
		if s.generation == gen {
			s.restoreStateLocked()
		}
		s.mu.Unlock()
		return fmt.Errorf("parse %s: %w", snap.Path, err)
	}

	fresh := Build(headings, len(snap.Text))

	s.mu.Lock()
	if s.generation != gen {
		// Superseded by a newer refresh; never apply stale results.
		s.mu.Unlock()
		debug.Log("refresh superseded for %s (gen %d)", snap.Path, gen)
		return nil
	}
	Reconcile(s.current, fresh)
	s.current = fresh
	s.state = StateReady
	s.mu.Unlock()

	debug.LogTiming("outline refresh "+snap.Path, time.Since(start))
	s.notify(Event{Kind: EventTreeReplaced})
	return nil
}

// restoreStateLocked returns the state machine to where it was before a
// failed refresh. Callers hold s.mu.
func (s *Session) restoreStateLocked() {
	if s.current != nil {
		s.state = StateReady
	} else {
		s.state = StateEmpty
	}
}

// Close drops the current tree, returning the session to Empty. Used when
// the document is closed; the session remains usable for a later Refresh.
func (s *Session) Close() {
	s.mu.Lock()
	s.generation++ // invalidate any in-flight refresh
	s.current = nil
	s.state = StateEmpty
	s.mu.Unlock()
	s.notify(Event{Kind: EventTreeReplaced})
}

// State returns the readiness of the exposed tree.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Tree returns the currently exposed tree, or nil before the first
// successful refresh.
func (s *Session) Tree() *model.Tree {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Roots returns the ordered roots of the current tree.
func (s *Session) Roots() []*model.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	return s.current.Roots
}

// Children returns the ordered children of a node.
func (s *Session) Children(n *model.Node) []*model.Node {
	if n == nil {
		return s.Roots()
	}
	return n.Children
}

// ExpandAll expands every node of whichever tree is currently exposed.
func (s *Session) ExpandAll() {
	if s.bulk(ExpandAll) {
		s.notify(Event{Kind: EventBulkStateChanged})
	}
}

// CollapseAll collapses every node of whichever tree is currently exposed.
func (s *Session) CollapseAll() {
	if s.bulk(CollapseAll) {
		s.notify(Event{Kind: EventBulkStateChanged})
	}
}

// ToggleAll expands everything if any expandable node is collapsed,
// otherwise collapses everything.
func (s *Session) ToggleAll() {
	s.mu.Lock()
	t := s.current
	if t == nil {
		s.mu.Unlock()
		return
	}
	if AnyCollapsed(t) {
		ExpandAll(t)
	} else {
		CollapseAll(t)
	}
	s.mu.Unlock()
	s.notify(Event{Kind: EventBulkStateChanged})
}

func (s *Session) bulk(op func(*model.Tree)) bool {
	s.mu.Lock()
	t := s.current
	if t == nil {
		s.mu.Unlock()
		return false
	}
	op(t)
	s.mu.Unlock()
	return true
}

// ToggleNode flips one node's expand state and notifies subscribers.
func (s *Session) ToggleNode(n *model.Node) {
	if n == nil {
		return
	}
	s.mu.Lock()
	n.Expanded = !n.Expanded
	s.mu.Unlock()
	s.notify(Event{Kind: EventNodeStateChanged, Node: n})
}

// ExpandAncestors expands every ancestor of n so that n appears in a
// visible projection of the tree. Like ToggleNode, the mutation happens
// under the session lock: an in-flight Refresh reads these flags during
// reconciliation, so views must never write them directly.
func (s *Session) ExpandAncestors(n *model.Node) {
	if n == nil {
		return
	}
	s.mu.Lock()
	changed := false
	for ancestor := n.Parent; ancestor != nil; ancestor = ancestor.Parent {
		if !ancestor.Expanded {
			ancestor.Expanded = true
			changed = true
		}
	}
	s.mu.Unlock()
	if changed {
		s.notify(Event{Kind: EventNodeStateChanged, Node: n})
	}
}

// AllExpanded reports whether every node of the current tree is expanded.
// Computed by scanning on every call.
func (s *Session) AllExpanded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil && AllExpanded(s.current)
}

// AllCollapsed reports whether every node of the current tree is collapsed.
func (s *Session) AllCollapsed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil && AllCollapsed(s.current)
}
