// Package tui is the interactive list view over a todolist.Controller.
package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/todolist"
)

const dateLayout = "2006-01-02"

type mode int

const (
	browsing mode = iota
	adding
	editing
)

// listItem adapts model.Todo to bubbles/list.Item.
type listItem struct {
	todo model.Todo
}

func (i listItem) FilterValue() string { return i.todo.Title }

// itemDelegate renders each todo on two lines: checkbox and title, then
// description and dates.
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 2 }
func (d itemDelegate) Spacing() int                              { return 1 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(listItem)
	if !ok {
		return
	}
	box := mutedStyle.Render(boxUnchecked)
	title := it.todo.Title
	if it.todo.Completed {
		box = successStyle.Render(boxChecked)
		title = doneStyle.Render(title)
	}
	prefix := "  "
	if index == m.Index() {
		prefix = selectedStyle.Render("> ")
	}
	fmt.Fprintf(w, "%s%s %s\n    %s", prefix, box, title, mutedStyle.Render(meta(it.todo)))
}

func meta(t model.Todo) string {
	parts := []string{}
	if t.Description != "" {
		parts = append(parts, t.Description)
	}
	parts = append(parts, "Created: "+t.CreatedAt.Local().Format(dateLayout))
	if t.Edited() {
		parts = append(parts, "Updated: "+t.UpdatedAt.Local().Format(dateLayout))
	}
	return strings.Join(parts, " · ")
}

// Model is the bubbletea model. The controller it wraps is only touched from
// Update, which bubbletea runs on a single goroutine.
type Model struct {
	ctl     *todolist.Controller
	keys    keyMap
	list    list.Model
	spinner spinner.Model

	mode   mode
	title  textinput.Model
	desc   textinput.Model
	focus  int    // 0 title, 1 description
	notice string // last validation message, shown in the form

	width, height int
}

// New builds the view. Nothing is fetched until Init runs.
func New(ctl *todolist.Controller) Model {
	keys := defaultKeys()

	l := list.New(nil, itemDelegate{}, 0, 0)
	l.SetShowTitle(false)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.Styles.HelpStyle = helpStyle
	l.Styles.PaginationStyle = helpStyle
	l.SetStatusBarItemName("todo", "todos")
	l.KeyMap.Quit.SetEnabled(false)
	l.AdditionalShortHelpKeys = keys.listKeys
	l.AdditionalFullHelpKeys = keys.listKeys

	title := textinput.New()
	title.Prompt = "> "
	title.Placeholder = "What needs to be done?"
	title.CharLimit = 200

	desc := textinput.New()
	desc.Prompt = "  "
	desc.Placeholder = "Add a description (optional)"
	desc.CharLimit = 1000

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = accentStyle

	return Model{
		ctl:     ctl,
		keys:    keys,
		list:    l,
		spinner: sp,
		title:   title,
		desc:    desc,
		width:   80,
		height:  24,
	}
}

// Run starts the program on the alternate screen and blocks until quit.
func Run(ctl *todolist.Controller, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	_, err := tea.NewProgram(New(ctl), opts...).Run()
	return err
}

// Init loads the collection once.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.ctl.Load(), m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}

	if m.ctl.Apply(msg) {
		m.reconcile(msg)
		return m, nil
	}

	switch m.mode {
	case adding:
		return m.updateAdd(msg)
	case editing:
		return m.updateEdit(msg)
	}
	return m.updateBrowse(msg)
}

// reconcile refreshes the view after the controller applied a result.
func (m *Model) reconcile(msg tea.Msg) {
	m.syncList()
	switch r := msg.(type) {
	case todolist.CreatedMsg:
		if r.Err == nil {
			m.title.SetValue("")
			m.desc.SetValue("")
			if m.mode == adding {
				m.closeForm()
			}
		}
	case todolist.UpdatedMsg:
		if _, still := m.ctl.Editing(); r.FromEdit && !still && m.mode == editing {
			m.closeForm()
		}
	case todolist.DeletedMsg:
		if buf, ok := m.ctl.Editing(); ok && r.Err == nil && buf.ID == r.ID {
			m.ctl.CancelEdit()
			if m.mode == editing {
				m.closeForm()
			}
		}
	}
}

func (m *Model) syncList() {
	todos := m.ctl.Todos()
	items := make([]list.Item, 0, len(todos))
	for _, t := range todos {
		items = append(items, listItem{todo: t})
	}
	m.list.SetItems(items)
}

func (m Model) selected() (model.Todo, bool) {
	return m.ctl.At(m.list.Index())
}

func (m Model) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(k, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(k, m.keys.Toggle):
			if t, ok := m.selected(); ok {
				return m, m.ctl.ToggleComplete(t)
			}
			return m, nil
		case key.Matches(k, m.keys.Delete):
			if t, ok := m.selected(); ok {
				return m, m.ctl.Delete(t.ID)
			}
			return m, nil
		case key.Matches(k, m.keys.Add):
			d := m.ctl.Draft()
			m.title.SetValue(d.Title)
			m.desc.SetValue(d.Description)
			return m, m.openForm(adding)
		case key.Matches(k, m.keys.Edit):
			t, ok := m.selected()
			if !ok {
				return m, nil
			}
			m.ctl.BeginEdit(t)
			m.title.SetValue(t.Title)
			m.desc.SetValue(t.Description)
			return m, m.openForm(editing)
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateAdd(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(k, m.keys.Submit):
			m.notice = ""
			if m.ctl.Busy() {
				return m, nil
			}
			if m.ctl.Draft().Blank() {
				m.notice = "Title cannot be empty"
				return m, nil
			}
			return m, m.ctl.Create()
		case key.Matches(k, m.keys.Cancel):
			m.closeForm()
			return m, nil
		case key.Matches(k, m.keys.Next):
			return m, m.switchFocus()
		}
	}
	cmd := m.updateInputs(msg)
	m.ctl.SetDraft(model.Draft{Title: m.title.Value(), Description: m.desc.Value()})
	return m, cmd
}

func (m Model) updateEdit(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(k, m.keys.Submit):
			m.notice = ""
			cmd := m.ctl.SaveEdit()
			if cmd == nil {
				m.notice = "Title cannot be empty"
			}
			return m, cmd
		case key.Matches(k, m.keys.Cancel):
			m.ctl.CancelEdit()
			m.closeForm()
			return m, nil
		case key.Matches(k, m.keys.Next):
			return m, m.switchFocus()
		}
	}
	cmd := m.updateInputs(msg)
	m.ctl.SetEditFields(m.title.Value(), m.desc.Value())
	return m, cmd
}

func (m *Model) updateInputs(msg tea.Msg) tea.Cmd {
	var tcmd, dcmd tea.Cmd
	m.title, tcmd = m.title.Update(msg)
	m.desc, dcmd = m.desc.Update(msg)
	return tea.Batch(tcmd, dcmd)
}

func (m *Model) openForm(md mode) tea.Cmd {
	m.mode = md
	m.notice = ""
	m.focus = 0
	m.desc.Blur()
	m.title.CursorEnd()
	m.desc.CursorEnd()
	m.resize()
	return m.title.Focus()
}

func (m *Model) closeForm() {
	m.mode = browsing
	m.notice = ""
	m.title.Blur()
	m.desc.Blur()
	m.resize()
}

func (m *Model) switchFocus() tea.Cmd {
	m.focus = 1 - m.focus
	if m.focus == 0 {
		m.desc.Blur()
		return m.title.Focus()
	}
	m.title.Blur()
	return m.desc.Focus()
}

func (m *Model) resize() {
	h := m.height - 4 // frame and header
	if m.mode != browsing {
		h -= 6
	}
	if h < 3 {
		h = 3
	}
	m.list.SetSize(m.width-4, h)
}

func (m Model) header() string {
	c := m.ctl.Counts()
	return fmt.Sprintf("%s   %s %d  %s %d  %s %d",
		titleStyle.Render("My Todo List"),
		accentStyle.Render("Total"), c.Total,
		successStyle.Render("✔ Completed"), c.Completed,
		pendingStyle.Render("• Pending"), c.Pending,
	)
}

func (m Model) form() string {
	label := "Add new todo"
	if m.mode == editing {
		label = "Edit todo"
	}
	if m.mode == adding && m.ctl.Busy() {
		label += " " + m.spinner.View() + " Adding..."
	}
	if m.notice != "" {
		label += " " + errorStyle.Render(m.notice)
	}
	hint := helpStyle.Render("enter save • tab switch field • esc cancel")
	bar := frameStyle.Width(max(m.width-8, 20))
	return bar.Render(label + "\n" + m.title.View() + "\n" + m.desc.View() + "\n" + hint)
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.header())
	if m.mode != adding && m.ctl.Busy() {
		b.WriteString("  " + m.spinner.View() + mutedStyle.Render(" Adding..."))
	}
	b.WriteString("\n\n")
	if m.ctl.Len() == 0 {
		b.WriteString(mutedStyle.Render("No todos yet. Press a to add one."))
		b.WriteString("\n" + helpStyle.Render("a add • q quit"))
	} else {
		b.WriteString(m.list.View())
	}
	if m.mode != browsing {
		b.WriteString("\n" + m.form())
	}
	return frameStyle.Render(lipgloss.NewStyle().MaxWidth(max(m.width-4, 20)).Render(b.String()))
}
