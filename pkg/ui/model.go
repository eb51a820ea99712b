package ui

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/outlinetools/olv/pkg/config"
	"github.com/outlinetools/olv/pkg/debug"
	"github.com/outlinetools/olv/pkg/outline"
	"github.com/outlinetools/olv/pkg/watcher"
)

// DocumentChangedMsg signals that the watched file changed on disk.
type DocumentChangedMsg struct{}

// RefreshedMsg carries the result of a refresh attempt.
type RefreshedMsg struct {
	Text string
	Err  error
}

// SessionEventMsg bridges outline session notifications into Bubble Tea.
type SessionEventMsg struct {
	Event outline.Event
}

// WatchErrorMsg carries a watcher error (e.g. the file was removed).
type WatchErrorMsg struct {
	Err error
}

// Model is the top-level Bubble Tea model: outline panel on the left,
// optional preview pane on the right, status line at the bottom.
type Model struct {
	session *outline.Session
	view    OutlineView
	theme   Theme

	docPath string
	langID  string
	docText string

	preview      viewport.Model
	previewOn    bool
	previewRatio float64
	mdRenderer   *glamour.TermRenderer

	watch     *watcher.Watcher
	watchErrs <-chan error
	events    chan outline.Event
	unsub     func()

	statusMsg string
	width     int
	height    int
	quitting  bool
}

// NewModel wires the session, watcher, and view together. The watcher and
// its error channel may be nil (no live refresh, e.g. reading from a
// pipe).
func NewModel(session *outline.Session, docPath, langID string, w *watcher.Watcher, watchErrs <-chan error, cfg config.Config) *Model {
	theme := DefaultTheme(lipgloss.DefaultRenderer())

	m := &Model{
		session:      session,
		view:         NewOutlineView(theme),
		theme:        theme,
		docPath:      docPath,
		langID:       langID,
		previewOn:    cfg.UI.ShowPreview,
		previewRatio: cfg.UI.PreviewRatio,
		watch:        w,
		watchErrs:    watchErrs,
		events:       make(chan outline.Event, 8),
	}
	m.preview = viewport.New(0, 0)
	m.view.SetAncestorExpander(session.ExpandAncestors)

	// Bridge session notifications into the Bubble Tea loop. Dropping on
	// a full buffer is fine: the view re-reads the whole session state on
	// every event anyway.
	m.unsub = session.Subscribe(func(ev outline.Event) {
		select {
		case m.events <- ev:
		default:
		}
	})

	if langID == "markdown" {
		m.mdRenderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(76),
		)
	}

	return m
}

// Init kicks off the first refresh and starts listening for changes.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.refreshCmd(), m.waitForEvent()}
	if m.watch != nil {
		cmds = append(cmds, m.waitForChange())
	}
	if m.watchErrs != nil {
		cmds = append(cmds, m.waitForWatchError())
	}
	return tea.Batch(cmds...)
}

// refreshCmd reads the document and refreshes the session off the UI
// thread. The session's generation counter makes overlapping refreshes
// safe: only the newest result is applied.
func (m *Model) refreshCmd() tea.Cmd {
	path, lang := m.docPath, m.langID
	session := m.session
	return func() tea.Msg {
		data, err := os.ReadFile(path)
		if err != nil {
			return RefreshedMsg{Err: fmt.Errorf("read %s: %w", path, err)}
		}
		text := string(data)
		err = session.Refresh(context.Background(), outline.DocumentSnapshot{
			Path:       path,
			LanguageID: lang,
			Text:       text,
		})
		return RefreshedMsg{Text: text, Err: err}
	}
}

func (m *Model) waitForChange() tea.Cmd {
	ch := m.watch.Changed()
	return func() tea.Msg {
		<-ch
		return DocumentChangedMsg{}
	}
}

func (m *Model) waitForWatchError() tea.Cmd {
	ch := m.watchErrs
	return func() tea.Msg {
		return WatchErrorMsg{Err: <-ch}
	}
}

func (m *Model) waitForEvent() tea.Cmd {
	ch := m.events
	return func() tea.Msg {
		return SessionEventMsg{Event: <-ch}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case DocumentChangedMsg:
		debug.Log("document changed: %s", m.docPath)
		return m, tea.Batch(m.refreshCmd(), m.waitForChange())

	case RefreshedMsg:
		if msg.Err != nil {
			// Keep showing the last good outline (the session never
			// swapped), just surface the failure.
			m.statusMsg = fmt.Sprintf("refresh failed: %v", msg.Err)
			return m, nil
		}
		m.docText = msg.Text
		m.statusMsg = ""
		m.updatePreview()
		return m, nil

	case SessionEventMsg:
		switch msg.Event.Kind {
		case outline.EventTreeReplaced:
			m.view.SetTree(m.session.Tree())
		default:
			m.view.RefreshVisible()
		}
		m.updatePreview()
		return m, m.waitForEvent()

	case WatchErrorMsg:
		m.statusMsg = fmt.Sprintf("watch: %v", msg.Err)
		return m, m.waitForWatchError()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.view.IsSearchMode() {
		return m.handleSearchKey(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		if m.unsub != nil {
			m.unsub()
		}
		return m, tea.Quit

	case "j", "down":
		m.view.MoveDown()
		m.updatePreview()
	case "k", "up":
		m.view.MoveUp()
		m.updatePreview()
	case "g", "home":
		m.view.JumpToTop()
		m.updatePreview()
	case "G", "end":
		m.view.JumpToBottom()
		m.updatePreview()
	case "u":
		m.view.JumpToParent()
		m.updatePreview()

	case "ctrl+d":
		m.preview.HalfViewDown()
	case "ctrl+u":
		m.preview.HalfViewUp()

	case "enter", " ":
		if node := m.view.SelectedNode(); node != nil && node.HasChildren() {
			m.session.ToggleNode(node)
		}

	case "E":
		m.session.ExpandAll()
		m.statusMsg = "expanded all"
	case "C":
		m.session.CollapseAll()
		m.statusMsg = "collapsed all"
	case "tab":
		m.session.ToggleAll()

	case "/":
		m.view.EnterSearchMode()
	case "n":
		m.view.NextSearchMatch()
		m.updatePreview()
	case "N":
		m.view.PrevSearchMatch()
		m.updatePreview()
	case "esc":
		m.view.ClearSearch()
		m.view.RefreshVisible()

	case "y":
		if node := m.view.SelectedNode(); node != nil {
			path := strings.Join(node.Path(), " > ")
			if err := clipboard.WriteAll(path); err != nil {
				m.statusMsg = fmt.Sprintf("clipboard: %v", err)
			} else {
				m.statusMsg = fmt.Sprintf("copied %q", path)
			}
		}

	case "p":
		m.previewOn = !m.previewOn
		m.resize()

	case "r":
		m.statusMsg = "refreshing"
		return m, m.refreshCmd()
	}

	return m, nil
}

func (m *Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.view.ClearSearch()
		m.view.RefreshVisible()
	case "enter":
		m.view.ExitSearchMode()
	case "backspace":
		m.view.SearchBackspace()
	default:
		if msg.Type == tea.KeyRunes {
			for _, r := range msg.Runes {
				m.view.SearchAddChar(r)
			}
		}
	}
	return m, nil
}

func (m *Model) treeWidth() int {
	if !m.previewOn || m.width <= 0 {
		return m.width
	}
	w := int(float64(m.width) * (1 - m.previewRatio))
	if w < 20 {
		w = 20
	}
	return w
}

// resize propagates the window size to the outline panel and the preview
// viewport after a terminal resize or a preview toggle.
func (m *Model) resize() {
	m.view.SetSize(m.treeWidth(), m.height-1)
	if m.previewOn {
		m.preview.Width = m.width - m.treeWidth() - 1
		m.preview.Height = m.height - 1
		m.updatePreview()
	}
}

// updatePreview loads the selected node's source span into the preview
// viewport, rendered with glamour for markdown documents and raw
// otherwise.
func (m *Model) updatePreview() {
	if !m.previewOn {
		return
	}

	node := m.view.SelectedNode()
	if node == nil || m.docText == "" {
		m.preview.SetContent(m.theme.MutedText.Render(" (nothing selected)"))
		return
	}

	start, end := node.Start, node.End
	if start > len(m.docText) {
		start = len(m.docText)
	}
	if end > len(m.docText) {
		end = len(m.docText)
	}
	section := m.docText[start:end]

	if m.mdRenderer != nil {
		if rendered, err := m.mdRenderer.Render(section); err == nil {
			section = rendered
		}
	}

	m.preview.SetContent(section)
	m.preview.GotoTop()
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	body := m.view.View()
	if m.previewOn {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, " "+m.preview.View())
	}

	return body + "\n" + m.statusLine()
}

// statusLine reports readiness and the bulk-toggle affordance. The
// affordance reflects a fresh scan of the tree on every render, never a
// cached flag.
func (m *Model) statusLine() string {
	var parts []string

	switch m.session.State() {
	case outline.StateBuilding:
		parts = append(parts, "building…")
	case outline.StateEmpty:
		parts = append(parts, "no document")
	default:
		if t := m.session.Tree(); t != nil {
			parts = append(parts, fmt.Sprintf("%d headings", t.NodeCount()))
		}
	}

	switch {
	case m.session.AllExpanded():
		parts = append(parts, "tab: collapse all")
	case m.session.AllCollapsed():
		parts = append(parts, "tab: expand all")
	default:
		parts = append(parts, "E/C: expand/collapse all")
	}

	if m.statusMsg != "" {
		parts = append(parts, m.statusMsg)
	}

	return m.theme.MutedText.Render(" " + strings.Join(parts, " · "))
}
