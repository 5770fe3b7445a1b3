// Package board is a terminal view of one catalog family that drives the
// reorder coordinator with the keyboard: grab, move, drop, then confirm or
// cancel the staged move.
package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"relocation/internal/domain/models"
	"relocation/internal/reorder"
)

type loadedMsg struct {
	key   reorder.Key
	items []reorder.Item
	err   error
}

type confirmedMsg struct {
	key reorder.Key
	err error
}

// Model is the bubbletea model of the board.
type Model struct {
	ctx    context.Context
	coord  *reorder.Coordinator
	logger *slog.Logger

	key        reorder.Key
	village    string
	parentName string
	items      []reorder.Item
	cursor     int
	drag       *reorder.DragPayload
	loading    bool
	status     string
	err        error

	selecting bool
	marked    map[string]bool

	keys keyMap
	help help.Model
}

// New creates a board showing the top-level list of family. A non-empty
// village makes its buildings reachable with the family key.
func New(ctx context.Context, coord *reorder.Coordinator, family reorder.Family, village string, logger *slog.Logger) Model {
	key := reorder.Key{Family: family}
	if family.Scoped() {
		key.Village = village
	}
	return Model{
		ctx:     ctx,
		coord:   coord,
		logger:  logger,
		village: village,
		key:     key,
		loading: true,
		marked:  make(map[string]bool),
		keys:    defaultKeyMap(),
		help:    help.New(),
	}
}

func (m Model) Init() tea.Cmd {
	return m.load(m.key, false)
}

func (m Model) load(k reorder.Key, fresh bool) tea.Cmd {
	ctx, coord := m.ctx, m.coord
	return func() tea.Msg {
		var items []reorder.Item
		var err error
		if fresh {
			items, err = coord.Reload(ctx, k)
		} else {
			items, err = coord.Load(ctx, k)
		}
		return loadedMsg{key: k, items: items, err: err}
	}
}

func (m Model) confirm(k reorder.Key) tea.Cmd {
	ctx, coord := m.ctx, m.coord
	return func() tea.Msg {
		return confirmedMsg{key: k, err: coord.Confirm(ctx, k)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case loadedMsg:
		if msg.key != m.key {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.logger.Warn("board load failed", "collection", msg.key.String(), "error", msg.err)
			m.err = msg.err
			return m, nil
		}
		m.refresh()
		return m, nil

	case confirmedMsg:
		if msg.key == m.key {
			m.refresh()
		}
		if msg.err != nil {
			m.logger.Warn("board confirm failed", "collection", msg.key.String(), "error", msg.err)
			m.err = msg.err
			return m, nil
		}
		m.status = "Order saved"
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	m.err = nil
	m.status = ""

	switch m.coord.State(m.key) {
	case reorder.StateConfirming:
		m.status = "Saving…"
		return m, nil
	case reorder.StatePendingConfirmation:
		return m.handlePendingKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.Grab):
		m.grabOrDrop()
	case key.Matches(msg, m.keys.MoveUp):
		m.step(-1)
	case key.Matches(msg, m.keys.MoveDn):
		m.step(1)
	case key.Matches(msg, m.keys.Back):
		return m.back()
	case key.Matches(msg, m.keys.Expand):
		return m.toggleExpand()
	case key.Matches(msg, m.keys.Open):
		return m.openChildren()
	case key.Matches(msg, m.keys.Select):
		m.toggleSelect()
	case key.Matches(msg, m.keys.Mark):
		if it, ok := m.current(); ok && m.selecting {
			m.marked[it.ID] = !m.marked[it.ID]
		}
	case key.Matches(msg, m.keys.Family):
		return m.switchFamily()
	case key.Matches(msg, m.keys.Reload):
		m.loading = true
		return m, m.load(m.key, true)
	}
	return m, nil
}

func (m Model) handlePendingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		m.status = "Saving…"
		return m, m.confirm(m.key)
	case key.Matches(msg, m.keys.Cancel):
		if err := m.coord.Cancel(m.key); err != nil {
			m.err = err
			return m, nil
		}
		m.refresh()
		m.status = "Move cancelled"
	default:
		m.status = "Confirm (y) or cancel (n) the pending move first"
	}
	return m, nil
}

func (m *Model) moveCursor(delta int) {
	if len(m.items) == 0 {
		return
	}
	m.cursor = max(0, min(len(m.items)-1, m.cursor+delta))
	if m.drag != nil {
		m.coord.DragOver(m.key, m.cursor)
	}
}

func (m *Model) grabOrDrop() {
	if m.drag == nil {
		payload, err := m.coord.BeginDrag(m.key, m.cursor)
		if err != nil {
			m.err = err
			return
		}
		m.drag = &payload
		m.coord.DragOver(m.key, m.cursor)
		return
	}

	payload := m.drag
	m.drag = nil
	pending, err := m.coord.Drop(m.key, m.cursor, payload)
	if err != nil {
		m.err = err
		return
	}
	if pending == nil {
		m.status = "Item left in place"
		return
	}
	m.refresh()
	m.cursor = pending.TargetIndex()
}

func (m *Model) step(dir int) {
	it, ok := m.current()
	if !ok {
		return
	}
	pending, err := m.coord.Move(m.key, it.ID, dir)
	if err != nil {
		m.err = err
		return
	}
	if pending != nil {
		m.refresh()
		m.cursor = pending.TargetIndex()
	}
}

func (m Model) back() (tea.Model, tea.Cmd) {
	if m.drag != nil {
		m.coord.EndDrag()
		m.drag = nil
		m.status = "Drag cancelled"
		return m, nil
	}
	if m.key.TopLevel() {
		return m, nil
	}
	parentID := m.key.ParentID
	m.key = m.key.Top()
	m.parentName = ""
	m.refresh()
	for i, it := range m.items {
		if it.ID == parentID {
			m.cursor = i
		}
	}
	return m, nil
}

// toggleExpand shows a top-level item's children inline. Expanded items are
// locked in place until collapsed.
func (m Model) toggleExpand() (tea.Model, tea.Cmd) {
	it, ok := m.current()
	if !ok || !m.key.TopLevel() || m.drag != nil {
		return m, nil
	}
	expand := !m.coord.Locked(it.ID)
	m.coord.SetLocked(it.ID, expand)
	if !expand {
		return m, nil
	}
	return m, m.load(m.key.Child(it.ID), false)
}

func (m Model) openChildren() (tea.Model, tea.Cmd) {
	it, ok := m.current()
	if !ok || !m.key.TopLevel() {
		return m, nil
	}
	if m.drag != nil {
		m.coord.EndDrag()
		m.drag = nil
	}
	m.key = m.key.Child(it.ID)
	m.parentName = it.Name
	m.items = nil
	m.cursor = 0
	m.loading = true
	return m, m.load(m.key, false)
}

func (m *Model) toggleSelect() {
	m.selecting = !m.selecting
	m.coord.SetSelectMode(m.selecting)
	m.drag = nil
	if !m.selecting {
		clear(m.marked)
	}
}

func (m Model) switchFamily() (tea.Model, tea.Cmd) {
	if !m.key.TopLevel() || m.drag != nil {
		return m, nil
	}
	var next reorder.Key
	switch {
	case m.key.Family == reorder.FamilyStages:
		next = reorder.Key{Family: reorder.FamilyOptions}
	case m.key.Family == reorder.FamilyOptions && m.village != "":
		next = reorder.Key{Family: reorder.FamilyBuildings, Village: m.village}
	default:
		next = reorder.Key{Family: reorder.FamilyStages}
	}
	m.key = next
	m.items = nil
	m.cursor = 0
	m.loading = true
	return m, m.load(m.key, false)
}

func (m *Model) refresh() {
	m.items = m.coord.Items(m.key)
	if m.cursor >= len(m.items) {
		m.cursor = max(0, len(m.items)-1)
	}
}

func (m Model) current() (reorder.Item, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return reorder.Item{}, false
	}
	return m.items[m.cursor], true
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title()))
	b.WriteString("\n")

	switch {
	case m.loading:
		b.WriteString("Loading…\n")
	case len(m.items) == 0:
		b.WriteString("No items\n")
	default:
		m.renderItems(&b)
	}

	if p, ok := m.coord.Pending(m.key); ok {
		prompt := p.Summary() + "\n[y] confirm  [n] cancel"
		if m.coord.State(m.key) == reorder.StateConfirming {
			prompt = p.Summary() + "\nSaving…"
		}
		b.WriteString(modalStyle.Render(prompt))
		b.WriteString("\n")
	}

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(errorText(m.err)))
		b.WriteString("\n")
	case m.coord.Message(m.key) != "":
		b.WriteString(errorStyle.Render(m.coord.Message(m.key)))
		b.WriteString("\n")
	case m.status != "":
		b.WriteString(statusStyle.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) renderItems(b *strings.Builder) {
	_, target, hovering := m.coord.DropTarget()
	for i, it := range m.items {
		if m.drag != nil && hovering && target == i && i != m.drag.SourceIndex {
			b.WriteString(dropLineStyle.Render("  ────────────"))
			b.WriteString("\n")
		}

		locked := m.key.TopLevel() && m.coord.Locked(it.ID)
		line := fmt.Sprintf("%2d. %s", it.Position, it.Name)
		if m.key.TopLevel() {
			glyph := "▸"
			if locked {
				glyph = "▾"
			}
			line = glyph + " " + line
		}
		if m.selecting {
			box := "[ ]"
			if m.marked[it.ID] {
				box = "[x]"
			}
			line = box + " " + line
		}

		switch {
		case i == m.cursor:
			line = cursorStyle.Render("> " + line)
		case m.drag != nil && i == m.drag.SourceIndex:
			line = draggedStyle.Render("  " + line)
		case locked:
			line = lockedStyle.Render("  " + line)
		default:
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")

		if locked {
			for _, child := range m.coord.Items(m.key.Child(it.ID)) {
				b.WriteString(childStyle.Render(fmt.Sprintf("%2d. %s", child.Position, child.Name)))
				b.WriteString("\n")
			}
		}
	}
}

func (m Model) title() string {
	routes, _ := models.RoutesFor(models.Family(m.key.Family))
	if m.key.TopLevel() {
		title := strings.ToUpper(routes.Collection[:1]) + routes.Collection[1:]
		if m.key.Village != "" {
			title += " of village " + m.key.Village
		}
		return title
	}
	return fmt.Sprintf("%ss of %s", routes.ChildLabel, m.parentName)
}

// errorText renders coordinator errors as the inline messages users see.
func errorText(err error) string {
	switch {
	case errors.Is(err, reorder.ErrSelectMode):
		return "Leave select mode (s) to reorder"
	case errors.Is(err, reorder.ErrItemLocked):
		return "Collapse the item (e) before moving it"
	case errors.Is(err, reorder.ErrReorderPending):
		return "Confirm or cancel the pending move first"
	default:
		return err.Error()
	}
}
