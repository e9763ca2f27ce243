package picker

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// statusCycle is the order tab steps through; "" shows every status.
var statusCycle = []Status{"", StatusBehind, StatusFailed, StatusCurrent, StatusLocal}

// SingleModel picks one theme. Typing filters by name, id or status and tab
// narrows the list to one status.
type SingleModel struct {
	title    string
	items    []Item
	query    textinput.Model
	status   int // index into statusCycle
	cursor   int
	offset   int
	chosen   string
	quitting bool
}

// NewSingle creates a single-select picker with the filter focused
func NewSingle(title string, items []Item) SingleModel {
	q := textinput.New()
	q.Prompt = "filter: "
	q.Placeholder = "name, id or status"
	q.CharLimit = 50
	q.Width = 40
	q.Focus()

	m := SingleModel{title: title, items: items, query: q}
	for i, item := range items {
		if item.Selected {
			m.cursor = i
			break
		}
	}
	return m
}

// Selected returns the chosen theme ID, or "" when nothing was chosen
func (m SingleModel) Selected() string {
	return m.chosen
}

// IsQuitting returns true if the user quit without choosing
func (m SingleModel) IsQuitting() bool {
	return m.quitting
}

// Init implements tea.Model
func (m SingleModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m SingleModel) visible() []Item {
	query := strings.ToLower(strings.TrimSpace(m.query.Value()))
	want := statusCycle[m.status]

	var out []Item
	for _, item := range m.items {
		if want != "" && item.Status != want {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(item.Label), query) &&
			item.ID != query &&
			!strings.Contains(string(item.Status), query) {
			continue
		}
		out = append(out, item)
	}
	return out
}

// Update implements tea.Model
func (m SingleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.query, cmd = m.query.Update(msg)
		return m, cmd
	}

	items := m.visible()
	switch {
	case key.Matches(keyMsg, singleKeys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(keyMsg, singleKeys.Clear):
		if m.query.Value() == "" && m.status == 0 {
			m.quitting = true
			return m, tea.Quit
		}
		m.query.SetValue("")
		m.status = 0
		m.cursor, m.offset = 0, 0

	case key.Matches(keyMsg, singleKeys.Up):
		if len(items) > 0 {
			m.cursor = (m.cursor - 1 + len(items)) % len(items)
			m.offset = window(m.cursor, m.offset, len(items))
		}

	case key.Matches(keyMsg, singleKeys.Down):
		if len(items) > 0 {
			m.cursor = (m.cursor + 1) % len(items)
			m.offset = window(m.cursor, m.offset, len(items))
		}

	case key.Matches(keyMsg, singleKeys.Status):
		m.status = (m.status + 1) % len(statusCycle)
		m.cursor, m.offset = 0, 0

	case key.Matches(keyMsg, singleKeys.Choose):
		if m.cursor < len(items) {
			m.chosen = items[m.cursor].ID
			return m, tea.Quit
		}

	default:
		before := m.query.Value()
		var cmd tea.Cmd
		m.query, cmd = m.query.Update(keyMsg)
		if m.query.Value() != before {
			m.cursor, m.offset = 0, 0
		}
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model
func (m SingleModel) View() string {
	if m.chosen != "" || m.quitting {
		return ""
	}

	faint := lipgloss.NewStyle().Faint(true)
	var b strings.Builder

	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69")).Render(m.title))
	b.WriteString("\n\n")
	b.WriteString(m.query.View())
	if s := statusCycle[m.status]; s != "" {
		b.WriteString("  ")
		b.WriteString(statusStyles[s].Render("only " + string(s)))
	}
	b.WriteString("\n\n")

	items := m.visible()
	if len(items) == 0 {
		b.WriteString(faint.Render("  (no matching themes)"))
		b.WriteString("\n")
	}
	if m.offset > 0 {
		b.WriteString(faint.Render(fmt.Sprintf("  ↑ %d more above", m.offset)))
		b.WriteString("\n")
	}
	end := min(m.offset+maxVisibleItems, len(items))
	for i := m.offset; i < end; i++ {
		if i == m.cursor {
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Render("> "))
		} else {
			b.WriteString("  ")
		}
		b.WriteString(items[i].render())
		b.WriteString("\n")
	}
	if remaining := len(items) - end; remaining > 0 {
		b.WriteString(faint.Render(fmt.Sprintf("  ↓ %d more below", remaining)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(faint.Render("↑/↓: navigate • tab: status • enter: update • esc: clear/quit"))
	return b.String()
}

type singleKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Status key.Binding
	Choose key.Binding
	Clear  key.Binding
	Quit   key.Binding
}

// letters go to the filter, so navigation is arrows only
var singleKeys = singleKeyMap{
	Up:     key.NewBinding(key.WithKeys("up", "ctrl+p")),
	Down:   key.NewBinding(key.WithKeys("down", "ctrl+n")),
	Status: key.NewBinding(key.WithKeys("tab")),
	Choose: key.NewBinding(key.WithKeys("enter")),
	Clear:  key.NewBinding(key.WithKeys("esc")),
	Quit:   key.NewBinding(key.WithKeys("ctrl+c")),
}

// RunSingle runs the single-select picker and returns the chosen theme ID.
// An empty ID means the user quit.
func RunSingle(title string, items []Item) (string, error) {
	final, err := tea.NewProgram(NewSingle(title, items)).Run()
	if err != nil {
		return "", err
	}
	return final.(SingleModel).Selected(), nil
}
