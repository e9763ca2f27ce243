// Package picker provides the interactive theme selection used by the CLI.
package picker

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/samhoang/themesync/internal/theme"
)

const maxVisibleItems = 10 // Maximum items to show before scrolling

// Status summarizes a theme's sync state for display
type Status string

const (
	StatusCurrent Status = "up to date"
	StatusBehind  Status = "behind"
	StatusFailed  Status = "failed"
	StatusLocal   Status = "local"
)

var statusStyles = map[Status]lipgloss.Style{
	StatusCurrent: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	StatusBehind:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	StatusFailed:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	StatusLocal:   lipgloss.NewStyle().Faint(true),
}

// Item represents a selectable theme
type Item struct {
	ID       string
	Label    string
	Detail   string
	Status   Status
	Selected bool
}

// StatusOf derives the display status of a remote source
func StatusOf(src theme.RemoteSource) Status {
	switch {
	case src.Failed():
		return StatusFailed
	case !src.IsGit():
		return StatusLocal
	case src.OutOfDate():
		return StatusBehind
	}
	return StatusCurrent
}

// ThemeItems converts remote themes into picker items. With gitOnly set,
// themes without a git remote are left out.
func ThemeItems(themes []theme.RemoteTheme, gitOnly bool) []Item {
	items := make([]Item, 0, len(themes))
	for _, rt := range themes {
		if gitOnly && !rt.Source.IsGit() {
			continue
		}
		detail := theme.ShortVersion(rt.Source.LocalVersion)
		if rt.Source.CommitsBehind > 0 {
			detail = fmt.Sprintf("%s, %d behind", detail, rt.Source.CommitsBehind)
		}
		items = append(items, Item{
			ID:     strconv.FormatInt(rt.Theme.ID, 10),
			Label:  rt.Theme.Name,
			Detail: detail,
			Status: StatusOf(rt.Source),
		})
	}
	return items
}

// render formats an item label with its detail and status badge
func (i Item) render() string {
	var b strings.Builder
	b.WriteString(i.Label)
	if i.Detail != "" {
		b.WriteString(lipgloss.NewStyle().Faint(true).Render(" (" + i.Detail + ")"))
	}
	if i.Status != "" {
		b.WriteString(" ")
		b.WriteString(statusStyles[i.Status].Render("[" + string(i.Status) + "]"))
	}
	return b.String()
}

// Model is the Bubble Tea model for multi-select picker
type Model struct {
	title    string
	items    []Item
	cursor   int
	offset   int
	selected map[string]bool
	done     bool
	quitting bool
}

// New creates a new picker model
func New(title string, items []Item) Model {
	selected := make(map[string]bool)
	for _, item := range items {
		if item.Selected {
			selected[item.ID] = true
		}
	}

	return Model{
		title:    title,
		items:    items,
		selected: selected,
	}
}

// Selected returns the IDs of selected items
func (m Model) Selected() []string {
	var result []string
	for _, item := range m.items {
		if m.selected[item.ID] {
			result = append(result, item.ID)
		}
	}
	return result
}

// IsQuitting returns true if the user quit without confirming
func (m Model) IsQuitting() bool {
	return m.quitting
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return nil
}

// window returns the scroll offset that keeps cursor inside a page of
// maxVisibleItems over n items
func window(cursor, offset, n int) int {
	if cursor < offset {
		offset = cursor
	}
	if cursor >= offset+maxVisibleItems {
		offset = cursor - maxVisibleItems + 1
	}
	return max(0, min(offset, n-maxVisibleItems))
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
				m.offset = window(m.cursor, m.offset, len(m.items))
			}

		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.items)-1 {
				m.cursor++
				m.offset = window(m.cursor, m.offset, len(m.items))
			}

		case key.Matches(msg, keys.Toggle):
			if len(m.items) > 0 {
				id := m.items[m.cursor].ID
				m.selected[id] = !m.selected[id]
			}

		case key.Matches(msg, keys.Behind):
			// Select exactly the themes that need attention
			for _, item := range m.items {
				m.selected[item.ID] = item.Status == StatusBehind || item.Status == StatusFailed
			}

		case key.Matches(msg, keys.All):
			// Toggle all
			allSelected := true
			for _, item := range m.items {
				if !m.selected[item.ID] {
					allSelected = false
					break
				}
			}
			for _, item := range m.items {
				m.selected[item.ID] = !allSelected
			}

		case key.Matches(msg, keys.Confirm):
			m.done = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model
func (m Model) View() string {
	if m.done || m.quitting {
		return ""
	}

	var b strings.Builder

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69"))
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cursorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212"))

	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")

	if len(m.items) == 0 {
		b.WriteString(lipgloss.NewStyle().Faint(true).Render("  (no themes)"))
		b.WriteString("\n")
	}

	end := min(m.offset+maxVisibleItems, len(m.items))
	for i := m.offset; i < end; i++ {
		item := m.items[i]
		cursor := "  "
		if i == m.cursor {
			cursor = cursorStyle.Render("> ")
		}

		checked := "[ ]"
		if m.selected[item.ID] {
			checked = selectedStyle.Render("[x]")
		}

		b.WriteString(fmt.Sprintf("%s%s %s\n", cursor, checked, item.render()))
	}
	if remaining := len(m.items) - end; remaining > 0 {
		b.WriteString(lipgloss.NewStyle().Faint(true).Render(fmt.Sprintf("  ↓ %d more below", remaining)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Faint(true).Render("space: toggle • a: all/none • b: behind/failed • enter: confirm • q: quit"))

	return b.String()
}

// KeyMap defines the key bindings
type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Toggle  key.Binding
	All     key.Binding
	Behind  key.Binding
	Confirm key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
	),
	Toggle: key.NewBinding(
		key.WithKeys(" "),
	),
	All: key.NewBinding(
		key.WithKeys("a"),
	),
	Behind: key.NewBinding(
		key.WithKeys("b"),
	),
	Confirm: key.NewBinding(
		key.WithKeys("enter"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
	),
}

// Run runs the picker and returns selected item IDs
func Run(title string, items []Item) ([]string, error) {
	m := New(title, items)
	p := tea.NewProgram(m)

	finalModel, err := p.Run()
	if err != nil {
		return nil, err
	}

	fm := finalModel.(Model)
	if fm.IsQuitting() {
		return nil, nil
	}

	return fm.Selected(), nil
}
