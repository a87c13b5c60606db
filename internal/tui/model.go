// Package tui is the presentation layer: a Bubble Tea model that owns
// the terminal, applies reconciliation batches to its displayed row
// list, and relays key presses to the action dispatcher and the
// playback context.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/runger/sessiondeck/internal/actions"
	"github.com/runger/sessiondeck/internal/playback"
	"github.com/runger/sessiondeck/internal/reconcile"
	"github.com/runger/sessiondeck/internal/rows"
	"github.com/runger/sessiondeck/internal/storage"
	"github.com/runger/sessiondeck/internal/stream"
)

// filterDebounce is the delay after the last keystroke before the
// filter predicate is swapped.
const filterDebounce = 100 * time.Millisecond

// snapshotMsg carries a fresh provider pair into the Update loop.
type snapshotMsg rows.Pair

// debounceMsg fires after the filter debounce timer expires.
type debounceMsg struct {
	id uint64 // must match the current debounce counter to be accepted
}

// DeckView is the displayed row state. It implements reconcile.Sink:
// each accepted batch replaces the row list and selection in one
// critical section, so a partially applied update is never observable.
type DeckView struct {
	mu       sync.Mutex
	rows     rows.Snapshot
	selected map[string]bool
}

// NewDeckView creates an empty view.
func NewDeckView() *DeckView {
	return &DeckView{selected: make(map[string]bool)}
}

// ApplyBatch implements reconcile.Sink.
func (v *DeckView) ApplyBatch(next rows.Snapshot, batch reconcile.Batch) error {
	sel := make(map[string]bool, len(batch.Selection))
	for _, id := range batch.Selection {
		sel[id] = true
	}

	v.mu.Lock()
	v.rows = next
	v.selected = sel
	v.mu.Unlock()
	return nil
}

// state returns the displayed rows and selection.
func (v *DeckView) state() (rows.Snapshot, map[string]bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.rows, v.selected
}

// ArtworkFetcher loads per-row auxiliary content (thumbnail, abstract).
// It must stop promptly when ctx is cancelled.
type ArtworkFetcher func(ctx context.Context, s storage.Session)

// Model is the Bubble Tea model for the deck browser.
type Model struct {
	view       *DeckView
	engine     *reconcile.Engine
	provider   *rows.Provider
	dispatcher *actions.Dispatcher
	playback   *playback.Context
	logger     *slog.Logger

	filter    textinput.Model
	filtering bool // filter field focused

	updates    chan rows.Pair
	debounceID uint64
	animated   bool
	status     string

	tasks   *slotTasks
	artwork ArtworkFetcher

	width  int
	height int
	offset int // first visible row
}

// New wires a model over an already-displayed engine. The provider must
// be started and the engine's initial display performed before the
// program runs; constructing the model earlier panics.
func New(view *DeckView, engine *reconcile.Engine, provider *rows.Provider, dispatcher *actions.Dispatcher, pb *playback.Context, animated bool, logger *slog.Logger) Model {
	if !engine.Displayed() {
		panic("tui: model constructed before the initial display")
	}
	if logger == nil {
		logger = slog.Default()
	}

	filter := textinput.New()
	filter.Placeholder = "filter sessions"
	filter.Prompt = "/ "
	filter.CharLimit = 120

	m := Model{
		view:       view,
		engine:     engine,
		provider:   provider,
		dispatcher: dispatcher,
		playback:   pb,
		logger:     logger,
		filter:     filter,
		updates:    make(chan rows.Pair, 1),
		animated:   animated,
		tasks:      newSlotTasks(),
	}

	// The synchronous baseline pair duplicates what the initial display
	// already rendered; only real changes feed the update loop.
	stream.Skip(provider.Pairs(), 1).Subscribe(m.pushPair)
	return m
}

// SetArtworkFetcher installs the per-row auxiliary fetcher.
func (m *Model) SetArtworkFetcher(fetch ArtworkFetcher) {
	m.artwork = fetch
}

// pushPair conflates provider emissions into the update channel,
// keeping only the latest pair when the Update loop lags.
func (m Model) pushPair(p rows.Pair) {
	for {
		select {
		case m.updates <- p:
			return
		default:
			select {
			case <-m.updates:
			default:
			}
		}
	}
}

// waitForSnapshot blocks for the next provider emission. Exactly one of
// these is outstanding at any time.
func (m Model) waitForSnapshot() tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(<-m.updates)
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.waitForSnapshot()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filter.Width = msg.Width - 4
		return m, nil

	case snapshotMsg:
		m.engine.Apply(rows.Pair(msg).Filtered, m.animated, "")
		m.syncArtwork()
		m = m.ensureSelectionVisible()
		return m, m.waitForSnapshot()

	case debounceMsg:
		if msg.id != m.debounceID {
			return m, nil // stale timer
		}
		m.provider.SetFilter(filterPredicate(m.filter.Value()))
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

// handleKey routes keyboard input, to the filter field when it is
// focused and to the list otherwise.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filtering {
		switch msg.Type {
		case tea.KeyEsc:
			m.filtering = false
			m.filter.Blur()
			m.filter.SetValue("")
			debounce := m.startDebounce()
			return m, debounce
		case tea.KeyEnter:
			m.filtering = false
			m.filter.Blur()
			return m, nil
		}

		before := m.filter.Value()
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		if m.filter.Value() != before {
			debounce := m.startDebounce()
			return m, tea.Batch(cmd, debounce)
		}
		return m, cmd
	}

	switch msg.String() {
	case "ctrl+c", "q":
		m.tasks.CancelAll()
		m.provider.Stop()
		return m, tea.Quit

	case "/":
		m.filtering = true
		m.filter.Focus()
		return m, nil

	case "up", "k":
		m = m.moveSelection(-1)
		return m, nil

	case "down", "j":
		m = m.moveSelection(1)
		return m, nil

	case "enter":
		return m.togglePlay(), nil

	case "w":
		return m.toggleFlag(func(s storage.Session) actions.Kind {
			if s.Watched {
				return actions.MarkUnwatched
			}
			return actions.MarkWatched
		}), nil

	case "f":
		return m.toggleFlag(func(s storage.Session) actions.Kind {
			if s.Favorited {
				return actions.Unfavorite
			}
			return actions.Favorite
		}), nil

	case "d":
		return m.toggleFlag(func(s storage.Session) actions.Kind {
			if s.Downloaded {
				return actions.CancelDownload
			}
			return actions.Download
		}), nil

	case "o":
		return m.dispatch(actions.Reveal), nil
	}

	return m, nil
}

// moveSelection requests selection of the nearest selectable row in the
// given direction relative to the current selection.
func (m Model) moveSelection(delta int) Model {
	snap, selected := m.view.state()
	if len(snap) == 0 {
		return m
	}

	pos := -1
	for i, r := range snap {
		if r.Selectable() && selected[r.Session.ID] {
			pos = i
			break
		}
	}

	for i := pos + delta; i >= 0 && i < len(snap); i += delta {
		if snap[i].Selectable() {
			m.engine.RequestSelection(snap[i].Session.ID)
			return m.ensureSelectionVisible()
		}
	}
	return m
}

// togglePlay starts playing the selected session, or stops playback if
// it is already playing. The playback context feeds the pinned
// identity, so the playing session stays visible under any filter.
func (m Model) togglePlay() Model {
	selected := m.engine.SelectedSessions()
	if len(selected) == 0 {
		return m
	}
	id := selected[0].ID
	if m.playback.CurrentID() == id {
		m.playback.Stop()
		m.status = "stopped"
		return m
	}
	m.playback.Play(id)
	m.status = "playing " + selected[0].Title
	return m
}

// toggleFlag dispatches a state action chosen per the first selected
// session's current state.
func (m Model) toggleFlag(choose func(storage.Session) actions.Kind) Model {
	selected := m.engine.SelectedSessions()
	if len(selected) == 0 {
		return m
	}
	return m.dispatch(choose(selected[0]))
}

// dispatch applies an action to the current selection.
func (m Model) dispatch(kind actions.Kind) Model {
	selected := m.engine.SelectedSessions()
	action := actions.New(kind, selected, nil)
	if err := m.dispatcher.Dispatch(context.Background(), action); err != nil {
		m.logger.Warn("action failed", "action", kind.String(), "error", err)
		m.status = fmt.Sprintf("%s failed: %v", kind, err)
		return m
	}
	m.status = fmt.Sprintf("%s (%d)", kind, len(action.Targets))
	return m
}

// startDebounce restarts the filter debounce timer.
func (m *Model) startDebounce() tea.Cmd {
	m.debounceID++
	id := m.debounceID
	return tea.Tick(filterDebounce, func(time.Time) tea.Msg {
		return debounceMsg{id: id}
	})
}

// syncArtwork points the per-slot auxiliary tasks at the rows occupying
// the visible slots, cancelling tasks whose slot now shows a different
// session.
func (m Model) syncArtwork() {
	if m.artwork == nil {
		return
	}
	snap, _ := m.view.state()
	top, bottom := m.visibleRange(len(snap))
	for i := top; i < bottom; i++ {
		r := snap[i]
		if !r.Selectable() {
			m.tasks.CancelSlot(i - top)
			continue
		}
		s := r.Session
		m.tasks.Run(i-top, s.ID, func(ctx context.Context) {
			m.artwork(ctx, s)
		})
	}
}

// ensureSelectionVisible scrolls the viewport so the first selected row
// is on screen.
func (m Model) ensureSelectionVisible() Model {
	snap, selected := m.view.state()
	h := m.listHeight()

	pos := -1
	for i, r := range snap {
		if r.Selectable() && selected[r.Session.ID] {
			pos = i
			break
		}
	}
	if pos < 0 {
		if m.offset >= len(snap) {
			m.offset = 0
		}
		return m
	}

	if pos < m.offset {
		m.offset = pos
	}
	if pos >= m.offset+h {
		m.offset = pos - h + 1
	}
	return m
}

// visibleRange returns the [top, bottom) indexes of the rows on screen.
func (m Model) visibleRange(total int) (int, int) {
	top := m.offset
	if top > total {
		top = total
	}
	bottom := top + m.listHeight()
	if bottom > total {
		bottom = total
	}
	return top, bottom
}

// listHeight is the number of visible list rows (terminal height minus
// title, query line, and status line).
func (m Model) listHeight() int {
	const chrome = 3
	h := m.height - chrome
	if h < 1 {
		h = 20 // sensible default before the first WindowSizeMsg
	}
	return h
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("sessiondeck"))
	b.WriteRune('\n')
	b.WriteString(m.viewList())
	b.WriteRune('\n')
	b.WriteString(m.viewQuery())
	b.WriteRune('\n')
	b.WriteString(m.viewStatus())

	return b.String()
}

// viewList renders the visible window of the displayed snapshot.
func (m Model) viewList() string {
	snap, selected := m.view.state()
	if len(snap) == 0 {
		return dimStyle.Render("No matching sessions")
	}

	width := m.width
	if width <= 0 {
		width = 80
	}
	playingID := m.playback.CurrentID()

	var b strings.Builder
	top, bottom := m.visibleRange(len(snap))
	for i := top; i < bottom; i++ {
		r := snap[i]
		sel := r.Selectable() && selected[r.Session.ID]
		b.WriteString(renderRow(r, sel, playingID, width-2))
		if i < bottom-1 {
			b.WriteRune('\n')
		}
	}
	return b.String()
}

// viewQuery renders the filter input line.
func (m Model) viewQuery() string {
	if m.filtering {
		return m.filter.View()
	}
	if v := m.filter.Value(); v != "" {
		return queryStyle.Render("/ " + v)
	}
	return dimStyle.Render("/ to filter")
}

// viewStatus renders the status line.
func (m Model) viewStatus() string {
	snap, _ := m.view.state()
	items := 0
	for _, r := range snap {
		if r.Selectable() {
			items++
		}
	}
	left := fmt.Sprintf("%d sessions", items)
	if m.status != "" {
		return dimStyle.Render(left + "  ·  " + m.status)
	}
	return dimStyle.Render(left)
}

// filterPredicate maps the query text to a session predicate. An empty
// query clears the filter.
func filterPredicate(query string) func(storage.Session) bool {
	query = strings.TrimSpace(strings.ToLower(query))
	if query == "" {
		return nil
	}
	return func(s storage.Session) bool {
		return strings.Contains(strings.ToLower(s.Title), query) ||
			strings.Contains(strings.ToLower(s.Track), query) ||
			strings.Contains(strings.ToLower(s.Speaker), query)
	}
}
