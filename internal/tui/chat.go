// Package tui implements the interactive advisor chat screen.
package tui

import (
	"context"
	"strings"

	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/Veraticus/rupeeflow/internal/session"
	"github.com/Veraticus/rupeeflow/internal/tui/themes"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	inputHeight = 3
	// title, blank line, input border, help line
	chromeHeight = 6
)

// replyMsg carries the advisor's answer to the pending question.
type replyMsg struct {
	text string
}

// stateMsg carries a new session state.
type stateMsg session.State

// Model is the chat screen state.
type Model struct {
	ctx      context.Context
	config   Config
	theme    themes.Theme
	keymap   KeyMap
	help     help.Model
	input    textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	history  []model.ChatTurn
	width    int
	height   int
	waiting  bool
	quitting bool
}

// NewModel creates the chat screen.
func NewModel(ctx context.Context, opts ...Option) Model {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	input := textarea.New()
	input.Placeholder = "Ask about your spending..."
	input.ShowLineNumbers = false
	input.SetHeight(inputHeight)
	input.CharLimit = 500
	input.KeyMap.InsertNewline.SetEnabled(false)
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = cfg.Theme.Spinner

	m := Model{
		ctx:      ctx,
		config:   cfg,
		theme:    cfg.Theme,
		keymap:   DefaultKeyMap(),
		help:     help.New(),
		input:    input,
		viewport: viewport.New(cfg.Width, max(1, cfg.Height-inputHeight-chromeHeight)),
		spinner:  sp,
	}
	m.resize(cfg.Width, cfg.Height)
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.waitForState())
}

// waitForState blocks until the session publishes a new state.
func (m Model) waitForState() tea.Cmd {
	updates := m.config.Updates
	if updates == nil {
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg {
		select {
		case state := <-updates:
			return stateMsg(state)
		case <-ctx.Done():
			return nil
		}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keymap.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keymap.Clear):
			if !m.waiting {
				m.history = nil
				m.refresh()
			}
			return m, nil
		case key.Matches(msg, m.keymap.Send):
			return m.send()
		case key.Matches(msg, m.keymap.ScrollUp), key.Matches(msg, m.keymap.ScrollDown):
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case replyMsg:
		m.waiting = false
		m.history = append(m.history, model.ChatTurn{Role: model.RoleModel, Text: msg.text})
		m.refresh()
		return m, nil

	case stateMsg:
		// Questions asked from now on see the new ledger.
		if msg.Loaded {
			m.config.Transactions = msg.Transactions
		}
		return m, m.waitForState()

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// send queues the typed question. Only one question is in flight at a time.
func (m Model) send() (tea.Model, tea.Cmd) {
	query := strings.TrimSpace(m.input.Value())
	if query == "" || m.waiting {
		return m, nil
	}
	prior := append([]model.ChatTurn(nil), m.history...)
	m.history = append(m.history, model.ChatTurn{Role: model.RoleUser, Text: query})
	m.input.Reset()
	m.waiting = true
	m.refresh()
	return m, tea.Batch(m.spinner.Tick, m.ask(query, prior))
}

func (m Model) ask(query string, prior []model.ChatTurn) tea.Cmd {
	advisor := m.config.Advisor
	txns := m.config.Transactions
	timeout := m.config.Timeout
	parent := m.ctx
	return func() tea.Msg {
		if advisor == nil {
			return replyMsg{text: "The advisor is not configured."}
		}
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		return replyMsg{text: advisor.Chat(ctx, query, txns, prior)}
	}
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.input.SetWidth(max(10, width-4))
	m.viewport.Width = width
	m.viewport.Height = max(1, height-inputHeight-chromeHeight)
	m.help.Width = width
}

// refresh re-renders the transcript and scrolls to the newest turn.
func (m *Model) refresh() {
	m.viewport.SetContent(m.transcript())
	m.viewport.GotoBottom()
}

func (m Model) transcript() string {
	if len(m.history) == 0 && !m.waiting {
		return m.theme.Subtitle.Render("Ask anything about your transactions, e.g. \"Where did most of my money go this month?\"")
	}
	wrap := lipgloss.NewStyle().Width(max(20, m.width-2))
	var b strings.Builder
	for _, turn := range m.history {
		if turn.Role == model.RoleUser {
			b.WriteString(m.theme.UserLabel.Render("You"))
			b.WriteString("\n")
			b.WriteString(wrap.Render(m.theme.UserText.Render(turn.Text)))
		} else {
			b.WriteString(m.theme.ModelLabel.Render("RupeeFlow"))
			b.WriteString("\n")
			b.WriteString(wrap.Render(m.theme.ModelText.Render(turn.Text)))
		}
		b.WriteString("\n\n")
	}
	if m.waiting {
		b.WriteString(m.spinner.View() + " " + m.theme.Subtitle.Render("Thinking..."))
	}
	return strings.TrimRight(b.String(), "\n")
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.theme.Title.Render("💬 RupeeFlow advisor"),
		"",
		m.viewport.View(),
		m.theme.BorderedBox.Render(m.input.View()),
		m.theme.Help.Render(m.help.View(m.keymap)),
	)
}

// History returns the conversation so far.
func (m Model) History() []model.ChatTurn {
	return append([]model.ChatTurn(nil), m.history...)
}
