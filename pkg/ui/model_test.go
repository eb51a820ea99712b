package ui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/outlinetools/olv/pkg/config"
	"github.com/outlinetools/olv/pkg/outline"
	"github.com/outlinetools/olv/pkg/parser"
	"github.com/outlinetools/olv/pkg/watcher"
)

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(t *testing.T, doc string) *Model {
	t.Helper()

	path := filepath.Join(t.TempDir(), "doc.md")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	registry := parser.NewRegistry()
	session := outline.NewSession(registry.ParseHeadings)
	t.Cleanup(session.Close)

	cfg := config.DefaultConfig()
	cfg.UI.ShowPreview = false

	m := NewModel(session, path, "markdown", nil, nil, cfg)
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return m
}

// runRefresh executes the refresh command synchronously and feeds the
// resulting messages back, the way the Bubble Tea runtime would.
func runRefresh(t *testing.T, m *Model) {
	t.Helper()

	msg := m.refreshCmd()()
	refreshed, ok := msg.(RefreshedMsg)
	if !ok {
		t.Fatalf("refreshCmd returned %T, want RefreshedMsg", msg)
	}
	m.Update(refreshed)

	// Drain the session event the refresh produced.
	select {
	case ev := <-m.events:
		m.Update(SessionEventMsg{Event: ev})
	case <-time.After(time.Second):
		t.Fatal("no session event after refresh")
	}
}

func TestModel_RefreshPopulatesView(t *testing.T) {
	m := newTestModel(t, "# Alpha\n\n# Beta\n")
	runRefresh(t, m)

	out := stripANSI(m.View())
	if !strings.Contains(out, "Alpha") || !strings.Contains(out, "Beta") {
		t.Errorf("view missing headings:\n%s", out)
	}
	if !strings.Contains(out, "2 headings") {
		t.Errorf("status line missing heading count:\n%s", out)
	}
}

func TestModel_BulkKeys(t *testing.T) {
	m := newTestModel(t, "# Top\n\n## Nested\n")
	runRefresh(t, m)

	if got := m.view.NodeCount(); got != 1 {
		t.Fatalf("visible nodes = %d, want 1 before expand", got)
	}

	m.Update(keyRunes("E"))
	select {
	case ev := <-m.events:
		m.Update(SessionEventMsg{Event: ev})
	case <-time.After(time.Second):
		t.Fatal("expand all produced no event")
	}

	if got := m.view.NodeCount(); got != 2 {
		t.Errorf("visible nodes = %d, want 2 after expand all", got)
	}
	if !m.session.AllExpanded() {
		t.Error("session not fully expanded after E")
	}

	m.Update(keyRunes("C"))
	select {
	case ev := <-m.events:
		m.Update(SessionEventMsg{Event: ev})
	case <-time.After(time.Second):
		t.Fatal("collapse all produced no event")
	}

	if !m.session.AllCollapsed() {
		t.Error("session not fully collapsed after C")
	}
}

func TestModel_ToggleSelectedNode(t *testing.T) {
	m := newTestModel(t, "# Top\n\n## Nested\n")
	runRefresh(t, m)

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	select {
	case ev := <-m.events:
		if ev.Kind != outline.EventNodeStateChanged {
			t.Errorf("event kind = %v, want node state change", ev.Kind)
		}
		m.Update(SessionEventMsg{Event: ev})
	case <-time.After(time.Second):
		t.Fatal("toggle produced no event")
	}

	if got := m.view.NodeCount(); got != 2 {
		t.Errorf("visible nodes = %d, want 2 after toggling Top open", got)
	}
}

func TestModel_RefreshFailureKeepsView(t *testing.T) {
	m := newTestModel(t, "# Alpha\n")
	runRefresh(t, m)

	// Simulate a failed re-read: the message carries the error, the tree
	// from the last good refresh stays on screen.
	m.Update(RefreshedMsg{Err: os.ErrNotExist})

	out := stripANSI(m.View())
	if !strings.Contains(out, "Alpha") {
		t.Errorf("last good outline dropped after failed refresh:\n%s", out)
	}
	if !strings.Contains(out, "refresh failed") {
		t.Errorf("status line missing failure notice:\n%s", out)
	}
}

func TestModel_StatusLineAffordance(t *testing.T) {
	m := newTestModel(t, "# Top\n\n## Nested\n")
	runRefresh(t, m)

	if out := stripANSI(m.View()); !strings.Contains(out, "tab: expand all") {
		t.Errorf("collapsed tree should offer expand all:\n%s", out)
	}

	m.session.ExpandAll()
	<-m.events
	if out := stripANSI(m.View()); !strings.Contains(out, "tab: collapse all") {
		t.Errorf("expanded tree should offer collapse all:\n%s", out)
	}

	// Mixed state: collapse one node by hand.
	m.session.ToggleNode(m.session.Roots()[0])
	<-m.events
	if out := stripANSI(m.View()); !strings.Contains(out, "E/C:") {
		t.Errorf("mixed tree should offer both bulk keys:\n%s", out)
	}
}

func TestModel_StatusLineCountsAllHeadings(t *testing.T) {
	m := newTestModel(t, "# Top\n\n## Nested\n")
	runRefresh(t, m)

	// Nested is hidden behind the collapsed root but still counts.
	if got := m.view.NodeCount(); got != 1 {
		t.Fatalf("visible nodes = %d, want 1 while collapsed", got)
	}
	if out := stripANSI(m.View()); !strings.Contains(out, "2 headings") {
		t.Errorf("status line should count hidden headings too:\n%s", out)
	}
}

func TestModel_SearchKeys(t *testing.T) {
	m := newTestModel(t, "# Alpha\n\n# Beta\n")
	runRefresh(t, m)

	m.Update(keyRunes("/"))
	if !m.view.IsSearchMode() {
		t.Fatal("/ should enter search mode")
	}

	m.Update(keyRunes("beta"))
	if got := m.view.SelectedNode().Label; got != "Beta" {
		t.Errorf("search selection = %q, want Beta", got)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.view.IsSearchMode() {
		t.Error("enter should leave search mode")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.view.SearchMatchCount() != 0 {
		t.Error("esc should clear search matches")
	}
}

func TestModel_SearchExpandRoutesThroughSession(t *testing.T) {
	m := newTestModel(t, "# Top\n\n## Nested\n")
	runRefresh(t, m)

	if m.session.Roots()[0].Expanded {
		t.Fatal("root should start collapsed")
	}

	m.Update(keyRunes("/"))
	m.Update(keyRunes("nested"))

	select {
	case ev := <-m.events:
		if ev.Kind != outline.EventNodeStateChanged {
			t.Errorf("event kind = %v, want node state change", ev.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("search auto-expand published no session event")
	}
	if !m.session.Roots()[0].Expanded {
		t.Error("matching a hidden child should expand its ancestors")
	}
	if got := m.view.SelectedNode().Label; got != "Nested" {
		t.Errorf("selection = %q, want Nested", got)
	}
}

// Search keystrokes run on the update goroutine while refreshes run on
// command goroutines; the ancestor expansion a match triggers must be
// serialized with the session's reconcile pass. Meaningful under -race.
func TestModel_SearchDuringConcurrentRefresh(t *testing.T) {
	m := newTestModel(t, "# Top\n\n## Nested\n\n## Other\n")
	runRefresh(t, m)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 25; i++ {
			m.refreshCmd()()
		}
	}()

	m.Update(keyRunes("/"))
	for i := 0; i < 25; i++ {
		m.Update(keyRunes("nested"))
		for range "nested" {
			m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
		}
	}
	<-done

	// Catch up on whatever the refreshes published, then confirm search
	// still lands on the right node in the final tree.
	for {
		select {
		case ev := <-m.events:
			m.Update(SessionEventMsg{Event: ev})
			continue
		default:
		}
		break
	}

	m.Update(keyRunes("/"))
	m.Update(keyRunes("nested"))
	if got := m.view.SelectedNode().Label; got != "Nested" {
		t.Errorf("selection after concurrent refreshes = %q, want Nested", got)
	}
}

func TestModel_WatchErrorShowsStatus(t *testing.T) {
	m := newTestModel(t, "# Alpha\n")
	runRefresh(t, m)

	m.Update(WatchErrorMsg{Err: watcher.ErrFileRemoved})

	out := stripANSI(m.View())
	if !strings.Contains(out, "watch:") {
		t.Errorf("status line missing watch error:\n%s", out)
	}
	if !strings.Contains(out, "Alpha") {
		t.Errorf("outline dropped on watch error:\n%s", out)
	}
}

func TestModel_QuitUnsubscribes(t *testing.T) {
	m := newTestModel(t, "# Alpha\n")
	runRefresh(t, m)

	_, cmd := m.Update(keyRunes("q"))
	if cmd == nil {
		t.Fatal("q should return tea.Quit")
	}

	// After quitting, session events no longer reach the model.
	m.session.ExpandAll()
	select {
	case <-m.events:
		t.Error("received session event after unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}

	if m.View() != "" {
		t.Error("view should be empty while quitting")
	}
}
