package cli

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/pagecomposer/pkg/channel"
	"github.com/matzehuels/pagecomposer/pkg/errors"
	"github.com/matzehuels/pagecomposer/pkg/pagemodel"
	"github.com/matzehuels/pagecomposer/pkg/properties"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	listActiveStyle   = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	panelBorderStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim).Padding(0, 1)
)

// refreshInterval is how often the editor redraws from the shell's state.
const refreshInterval = 250 * time.Millisecond

// =============================================================================
// EditorModel - Interactive page editor
// =============================================================================

type editorMode int

const (
	modeTree editorMode = iota
	modePanel
	modeEditField
	modeConfirmRemove
	modeToolkit
)

// tickMsg triggers a redraw from the shell state.
type tickMsg time.Time

// opMsg reports the outcome of an editing operation.
type opMsg struct {
	status string
	err    error
}

// EditorModel is the bubbletea model of the page editor.
type EditorModel struct {
	ctx  context.Context
	sess *editSession
	page pagemodel.Page

	mode   editorMode
	rows   []pagemodel.Component
	depth  map[string]int
	cursor int
	offset int
	height int

	field   int
	input   string
	toolkit int

	status string
	err    string
}

// newEditorModel creates an editor over an editing session.
func newEditorModel(ctx context.Context, sess *editSession, page pagemodel.Page) EditorModel {
	m := EditorModel{ctx: ctx, sess: sess, page: page, height: 15}
	m.refresh()
	return m
}

func (m EditorModel) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// refresh copies the page model from the shell and keeps the cursor on the
// same component when it still exists.
func (m *EditorModel) refresh() {
	var current string
	if m.cursor < len(m.rows) {
		current = m.rows[m.cursor].ID
	}
	m.rows = m.sess.shell.Components()
	m.depth = componentDepths(m.rows)
	if i := slices.IndexFunc(m.rows, func(c pagemodel.Component) bool { return c.ID == current }); i >= 0 {
		m.cursor = i
	}
	m.cursor = max(0, min(m.cursor, len(m.rows)-1))
}

func (m EditorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.refresh()
		return m, tick()
	case opMsg:
		m.status, m.err = msg.status, ""
		if msg.err != nil {
			m.status, m.err = "", errors.UserMessage(msg.err)
		}
		m.refresh()
		return m, nil
	case tea.WindowSizeMsg:
		m.height = max(5, msg.Height-8)
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case modeTree:
			return m.updateTree(msg)
		case modePanel:
			return m.updatePanel(msg)
		case modeEditField:
			return m.updateEditField(msg)
		case modeConfirmRemove:
			return m.updateConfirm(msg)
		case modeToolkit:
			return m.updateToolkit(msg)
		}
	}
	return m, nil
}

// current returns the component under the cursor.
func (m EditorModel) current() (pagemodel.Component, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return pagemodel.Component{}, false
	}
	return m.rows[m.cursor], true
}

// run executes fn off the UI goroutine and reports its outcome.
func (m EditorModel) run(status string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opMsg{status: status, err: fn(ctx)}
	}
}

func (m EditorModel) updateTree(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sh := m.sess.shell
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.offset = min(m.offset, m.cursor)
		}
	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
			if m.cursor >= m.offset+m.height {
				m.offset = m.cursor - m.height + 1
			}
		}
	case "enter", " ":
		c, ok := m.current()
		if !ok {
			return m, nil
		}
		return m, m.run("", func(ctx context.Context) error { return sh.Click(ctx, c.ID) })
	case "K", "shift+up":
		return m, m.moveWithin(-1)
	case "J", "shift+down":
		return m, m.moveWithin(1)
	case "m":
		return m, m.moveToNextContainer()
	case "a":
		if _, ok := m.targetContainer(); ok && len(sh.Toolkit()) > 0 {
			m.mode, m.toolkit = modeToolkit, 0
		}
	case "d", "x":
		if c, ok := m.current(); ok && c.IsItem() {
			m.mode = modeConfirmRemove
		}
	case "p", "tab":
		if sh.Panel().View().State != properties.StateEmpty {
			m.mode, m.field = modePanel, 0
		}
	case "r":
		return m, m.run("Reloaded", sh.Reload)
	}
	return m, nil
}

// moveWithin asks the engine to move the current item by delta within its
// container.
func (m EditorModel) moveWithin(delta int) tea.Cmd {
	c, ok := m.current()
	if !ok || !c.IsItem() {
		return nil
	}
	parent, ok := m.sess.shell.Component(c.ParentID)
	if !ok {
		return nil
	}
	idx := slices.Index(parent.Children, c.ID)
	target := idx + delta
	if idx < 0 || target < 0 || target >= len(parent.Children) {
		return nil
	}
	return m.drag(c.ID, parent.ID, target)
}

// moveToNextContainer asks the engine to move the current item to the end
// of the next container of the page.
func (m EditorModel) moveToNextContainer() tea.Cmd {
	c, ok := m.current()
	if !ok || !c.IsItem() {
		return nil
	}
	var containers []pagemodel.Component
	for _, r := range m.rows {
		if r.IsContainer() {
			containers = append(containers, r)
		}
	}
	i := slices.IndexFunc(containers, func(r pagemodel.Component) bool { return r.ID == c.ParentID })
	if i < 0 || len(containers) < 2 {
		return nil
	}
	next := containers[(i+1)%len(containers)]
	return m.drag(c.ID, next.ID, len(next.Children))
}

func (m EditorModel) drag(id, container string, index int) tea.Cmd {
	out := m.sess.engine
	msg := channel.MustMessage(channel.TagDrag, channel.DragPayload{ID: id, Container: container, Index: index})
	return m.run(fmt.Sprintf("Moved %s", id), func(ctx context.Context) error { return out.Send(ctx, msg) })
}

// targetContainer returns the container under the cursor, or the container
// of the item under the cursor.
func (m EditorModel) targetContainer() (pagemodel.Component, bool) {
	c, ok := m.current()
	if !ok {
		return pagemodel.Component{}, false
	}
	if c.IsContainer() {
		return c, true
	}
	return m.sess.shell.Component(c.ParentID)
}

func (m EditorModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = modeTree
	c, ok := m.current()
	if !ok || (msg.String() != "y" && msg.String() != "Y") {
		return m, nil
	}
	sh := m.sess.shell
	return m, m.run(fmt.Sprintf("Removed %s", displayName(c)), func(ctx context.Context) error { return sh.Remove(ctx, c.ID) })
}

func (m EditorModel) updateToolkit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.sess.shell.Toolkit()
	switch msg.String() {
	case "esc", "q":
		m.mode = modeTree
	case "up", "k":
		if m.toolkit > 0 {
			m.toolkit--
		}
	case "down", "j":
		if m.toolkit < len(items)-1 {
			m.toolkit++
		}
	case "enter":
		m.mode = modeTree
		container, ok := m.targetContainer()
		if !ok || m.toolkit >= len(items) {
			return m, nil
		}
		item := items[m.toolkit]
		sh := m.sess.shell
		return m, m.run(fmt.Sprintf("Added %s to %s", displayName(item), displayName(container)), func(ctx context.Context) error {
			_, err := sh.AddComponent(ctx, container.ID, item.ID)
			return err
		})
	}
	return m, nil
}

func (m EditorModel) updatePanel(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	panel := m.sess.shell.Panel()
	view := panel.View()
	switch msg.String() {
	case "esc", "tab":
		m.mode = modeTree
	case "up", "k":
		if m.field > 0 {
			m.field--
		}
	case "down", "j":
		if m.field < len(view.Fields)-1 {
			m.field++
		}
	case "enter":
		if m.field >= len(view.Fields) {
			return m, nil
		}
		f := view.Fields[m.field]
		if f.Type == pagemodel.FieldCombo && len(f.Options) > 0 {
			next := f.Options[(slices.Index(f.Options, f.Value)+1)%len(f.Options)]
			if err := panel.Set(f.Name, next); err != nil {
				m.err = errors.UserMessage(err)
			}
			return m, nil
		}
		m.mode, m.input = modeEditField, f.Value
	case "s", "ctrl+s":
		return m, m.run("Saved", panel.Submit)
	case "R":
		return m, m.run("Reset", panel.Reset)
	}
	return m, nil
}

func (m EditorModel) updateEditField(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modePanel
	case tea.KeyEnter:
		m.mode = modePanel
		view := m.sess.shell.Panel().View()
		if m.field < len(view.Fields) {
			if err := m.sess.shell.Panel().Set(view.Fields[m.field].Name, m.input); err != nil {
				m.err = errors.UserMessage(err)
			}
		}
	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.input += " "
	case tea.KeyRunes:
		m.input += string(msg.Runes)
	}
	return m, nil
}

// =============================================================================
// Rendering
// =============================================================================

func (m EditorModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Page " + m.page.ID))
	b.WriteString(listDimStyle.Render("  site " + m.page.SiteID))
	if m.sess.shell.Reloading() {
		b.WriteString(StyleWarning.Render("  reloading"))
	}
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(m.help()))
	b.WriteString("\n\n")

	tree := m.viewTree()
	switch m.mode {
	case modeToolkit:
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tree, "  ", m.viewToolkit()))
	case modePanel, modeEditField:
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tree, "  ", m.viewPanel()))
	default:
		b.WriteString(tree)
	}
	b.WriteString("\n\n")

	switch {
	case m.mode == modeConfirmRemove:
		c, _ := m.current()
		b.WriteString(StyleWarning.Render(fmt.Sprintf("Remove %s? (y/n)", displayName(c))))
	case m.err != "":
		b.WriteString(styleIconError.Render(iconError) + " " + m.err)
	case m.status != "":
		b.WriteString(styleIconSuccess.Render(iconSuccess) + " " + m.status)
	}
	return b.String()
}

func (m EditorModel) help() string {
	switch m.mode {
	case modePanel:
		return "↑/↓ field  ⏎ edit  s save  R reset  esc back"
	case modeEditField:
		return "type to edit  ⏎ apply  esc cancel"
	case modeToolkit:
		return "↑/↓ choose  ⏎ add  esc back"
	}
	return "↑/↓ navigate  ⏎ select  J/K move  m next container  a add  d remove  p properties  r reload  q quit"
}

func (m EditorModel) viewTree() string {
	if len(m.rows) == 0 {
		return listDimStyle.Render("Waiting for the page model...")
	}
	selected := m.sess.shell.Selected()
	end := min(m.offset+m.height, len(m.rows))

	var b strings.Builder
	for i := m.offset; i < end; i++ {
		c := m.rows[i]
		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}
		label := strings.Repeat("  ", m.depth[c.ID]) + displayName(c)
		if c.IsContainer() {
			label += listDimStyle.Render(fmt.Sprintf(" [%s, %d]", c.XType, len(c.Children)))
		}
		line := cursor + label
		switch {
		case c.ID == selected:
			b.WriteString(listActiveStyle.Render(line))
		case i == m.cursor:
			b.WriteString(listSelectedStyle.Render(line))
		case c.IsItem():
			b.WriteString(listNormalStyle.Render(line))
		default:
			b.WriteString(StyleHighlight.Render(line))
		}
		b.WriteString("\n")
	}
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.cursor+1, len(m.rows))))
	return b.String()
}

func (m EditorModel) viewToolkit() string {
	var b strings.Builder
	b.WriteString(StyleTitle.Render("Add component"))
	b.WriteString("\n")
	for i, item := range m.sess.shell.Toolkit() {
		line := "  " + displayName(item)
		if i == m.toolkit {
			line = listSelectedStyle.Render("▸ " + displayName(item))
		}
		b.WriteString(line + "\n")
	}
	return panelBorderStyle.Render(strings.TrimSuffix(b.String(), "\n"))
}

func (m EditorModel) viewPanel() string {
	v := m.sess.shell.Panel().View()
	var b strings.Builder
	b.WriteString(StyleTitle.Render(v.Title))
	if v.Path != "" {
		b.WriteString("\n" + listDimStyle.Render(v.Path))
	}
	b.WriteString("\n\n")

	switch v.State {
	case properties.StateLoading:
		b.WriteString(listDimStyle.Render("Loading..."))
	case properties.StateNoProperties:
		b.WriteString(listDimStyle.Render(v.Message))
	case properties.StateError:
		b.WriteString(styleIconError.Render(v.Message))
	case properties.StateReady:
		for i, f := range v.Fields {
			value := f.Value
			if m.mode == modeEditField && i == m.field {
				value = m.input + "▏"
			}
			line := fmt.Sprintf("%-14s %s", f.Label, value)
			if i == m.field {
				b.WriteString(listSelectedStyle.Render("▸ " + line))
			} else {
				b.WriteString(listNormalStyle.Render("  " + line))
			}
			b.WriteString("\n")
			if f.OptionsError != "" {
				b.WriteString("  " + styleIconError.Render(f.OptionsError) + "\n")
			} else if f.Description != "" && i == m.field {
				b.WriteString("  " + listDimStyle.Render(f.Description) + "\n")
			}
		}
	}
	return panelBorderStyle.Render(strings.TrimSuffix(b.String(), "\n"))
}
