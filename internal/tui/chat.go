// Package tui implements the terminal chat client.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/thebtf/sitelog/internal/threads"
	"github.com/thebtf/sitelog/pkg/models"
)

// Asker sends one chat turn to the assistant.
type Asker interface {
	Ask(ctx context.Context, message, sessionID string, history []models.ChatMessage) (string, error)
}

type replyMsg struct {
	threadID string
	text     string
}

type errMsg struct {
	threadID string
	err      error
}

// Model is the chat screen.
type Model struct {
	store    *threads.Store
	asker    Asker
	input    textinput.Model
	viewport viewport.Model
	width    int
	height   int
	waiting  bool
	err      error
	ready    bool
}

// New builds the chat model over a loaded thread store.
func New(store *threads.Store, asker Asker) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask about your site logs..."
	ti.CharLimit = 2000
	ti.Focus()

	return Model{
		store:    store,
		asker:    asker,
		input:    ti,
		viewport: viewport.New(80, 20),
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.ready = true
		m.refresh()
		return m, nil

	case replyMsg:
		m.waiting = false
		if err := m.appendTo(msg.threadID, models.RoleAssistant, msg.text); err != nil {
			m.err = err
		}
		m.refresh()
		return m, nil

	case errMsg:
		m.waiting = false
		m.err = msg.err
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.New):
			if m.waiting {
				return m, nil
			}
			if _, err := m.store.New(); err != nil {
				m.err = err
			}
			m.refresh()
			return m, nil
		case key.Matches(msg, keys.Delete):
			if m.waiting {
				return m, nil
			}
			if err := m.store.Delete(m.store.Current().ID); err != nil {
				m.err = err
			}
			m.refresh()
			return m, nil
		case key.Matches(msg, keys.Next):
			if m.waiting {
				return m, nil
			}
			if _, err := m.store.Next(); err != nil {
				m.err = err
			}
			m.refresh()
			return m, nil
		case key.Matches(msg, keys.Send):
			return m.send()
		}
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// send appends the typed message to the current thread and asks the
// assistant with the history that preceded it.
func (m Model) send() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.waiting {
		return m, nil
	}

	current := m.store.Current()
	history := current.History()
	if err := m.store.Append(models.RoleUser, text); err != nil {
		m.err = err
		return m, nil
	}

	m.input.Reset()
	m.waiting = true
	m.err = nil
	m.refresh()
	return m, ask(m.asker, current.ID, text, history)
}

func ask(a Asker, threadID, text string, history []models.ChatMessage) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
		defer cancel()
		reply, err := a.Ask(ctx, text, threadID, history)
		if err != nil {
			return errMsg{threadID: threadID, err: err}
		}
		return replyMsg{threadID: threadID, text: reply}
	}
}

// appendTo adds a message to threadID, restoring the selection afterwards.
func (m Model) appendTo(threadID string, role models.Role, content string) error {
	current := m.store.Current().ID
	if current == threadID {
		return m.store.Append(role, content)
	}
	if err := m.store.Select(threadID); err != nil {
		return err
	}
	err := m.store.Append(role, content)
	if serr := m.store.Select(current); err == nil {
		err = serr
	}
	return err
}

func (m *Model) resize() {
	headerHeight := 2
	footerHeight := 4
	w := m.width - 2
	if w < 20 {
		w = 20
	}
	h := m.height - headerHeight - footerHeight - 2
	if h < 3 {
		h = 3
	}
	m.viewport.Width = w
	m.viewport.Height = h
	m.input.Width = w - 4
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.transcript())
	m.viewport.GotoBottom()
}

func (m Model) transcript() string {
	t := m.store.Current()
	if len(t.Messages) == 0 {
		return helpStyle.Render("No messages yet. Ask about logs, crews or action items.")
	}

	width := m.viewport.Width - 2
	if width < 20 {
		width = 20
	}
	body := lipgloss.NewStyle().Width(width)

	var b strings.Builder
	for i, msg := range t.Messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch msg.Role {
		case models.RoleUser:
			b.WriteString(userStyle.Render("You"))
		default:
			b.WriteString(assistantStyle.Render("Assistant"))
		}
		b.WriteString("\n")
		b.WriteString(body.Render(msg.Content))
	}
	return b.String()
}

func (m Model) threadBar() string {
	current := m.store.Current().ID
	var parts []string
	for _, t := range m.store.Threads() {
		if t.ID == current {
			parts = append(parts, activeThreadStyle.Render("● "+t.Title))
		} else {
			parts = append(parts, threadStyle.Render(t.Title))
		}
	}
	return strings.Join(parts, " ")
}

func (m Model) helpLine() string {
	var parts []string
	for _, b := range keys.help() {
		h := b.Help()
		parts = append(parts, fmt.Sprintf("%s %s", h.Key, h.Desc))
	}
	return helpStyle.Render(strings.Join(parts, " • "))
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("sitelog assistant"))
	b.WriteString(" ")
	b.WriteString(m.threadBar())
	b.WriteString("\n\n")
	b.WriteString(paneStyle.Render(m.viewport.View()))
	b.WriteString("\n")

	switch {
	case m.waiting:
		b.WriteString(helpStyle.Render("Thinking..."))
	case m.err != nil:
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.helpLine())
	return b.String()
}

// Run starts the chat client in the alternate screen.
func Run(store *threads.Store, asker Asker) error {
	p := tea.NewProgram(New(store, asker), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
