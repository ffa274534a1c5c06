package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Aman-CERP/saesagent/internal/agent"
)

// Chat commands typed at the prompt.
const (
	CommandQuit  = "/salir"
	CommandClear = "/limpiar"
)

// Asker answers a question; *agent.Service satisfies it.
type Asker interface {
	Ask(ctx context.Context, req agent.Request) agent.Response
}

var _ Asker = (*agent.Service)(nil)

// ChatConfig identifies the user the chat session asks as.
type ChatConfig struct {
	UserID   string
	UserType string
	// Reasoning forces every question through generation.
	Reasoning bool
	NoColor   bool
}

type answerMsg struct {
	resp agent.Response
}

// ChatModel is the bubbletea model for the interactive chat.
type ChatModel struct {
	ctx    context.Context
	asker  Asker
	cfg    ChatConfig
	styles Styles

	input    textinput.Model
	view     viewport.Model
	spin     spinner.Model
	entries  []string
	waiting  bool
	width    int
	quitting bool
}

// NewChatModel creates a chat model that asks through asker.
func NewChatModel(ctx context.Context, asker Asker, cfg ChatConfig) ChatModel {
	in := textinput.New()
	in.Placeholder = "Escribe tu pregunta (" + CommandQuit + " para terminar)"
	in.CharLimit = 1000
	in.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := ChatModel{
		ctx:    ctx,
		asker:  asker,
		cfg:    cfg,
		styles: GetStyles(cfg.NoColor),
		input:  in,
		view:   viewport.New(80, 20),
		spin:   sp,
		width:  80,
	}
	m.input.PromptStyle = m.styles.Prompt
	return m
}

// Init implements tea.Model.
func (m ChatModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.view.Width = msg.Width
		m.view.Height = max(msg.Height-3, 1)
		m.input.Width = max(msg.Width-4, 10)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.view, cmd = m.view.Update(msg)
			return m, cmd
		}

	case answerMsg:
		m.waiting = false
		m.entries = append(m.entries, m.renderAnswer(msg.resp))
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m ChatModel) submit() (tea.Model, tea.Cmd) {
	if m.waiting {
		return m, nil
	}
	q := strings.TrimSpace(m.input.Value())
	m.input.Reset()

	switch q {
	case "":
		return m, nil
	case CommandQuit:
		m.quitting = true
		return m, tea.Quit
	case CommandClear:
		m.entries = nil
		m.refresh()
		return m, nil
	}

	m.entries = append(m.entries, m.styles.User.Render("> "+q))
	m.waiting = true
	m.refresh()
	return m, tea.Batch(m.ask(q), m.spin.Tick)
}

func (m ChatModel) ask(q string) tea.Cmd {
	req := agent.Request{
		Query:          q,
		UserID:         m.cfg.UserID,
		UserType:       m.cfg.UserType,
		ForceReasoning: m.cfg.Reasoning,
	}
	return func() tea.Msg {
		return answerMsg{resp: m.asker.Ask(m.ctx, req)}
	}
}

func (m ChatModel) renderAnswer(resp agent.Response) string {
	body := m.styles.Assistant.Width(max(m.width-2, 20)).Render(resp.Response)

	meta := fmt.Sprintf("%s · %.0f ms", resp.Kind, resp.TimeMS)
	if resp.FromCache {
		meta += " · caché"
	}
	if resp.Error != "" {
		return body + "\n" + m.styles.Error.Render(meta+" · "+resp.Error)
	}
	return body + "\n" + m.styles.Meta.Render(meta)
}

func (m *ChatModel) refresh() {
	m.view.SetContent(strings.Join(m.entries, "\n\n"))
	m.view.GotoBottom()
}

// View implements tea.Model.
func (m ChatModel) View() string {
	if m.quitting {
		return ""
	}
	footer := m.input.View()
	if m.waiting {
		footer = m.spin.View() + " " + m.styles.Meta.Render("Pensando...")
	}
	return m.view.View() + "\n" + m.styles.Dim.Render(strings.Repeat("─", max(m.width, 1))) + "\n" + footer
}

// Transcript returns the rendered chat entries.
func (m ChatModel) Transcript() []string {
	return m.entries
}

// RunChat runs the chat full-screen until the user quits or ctx is done.
func RunChat(ctx context.Context, asker Asker, cfg ChatConfig) error {
	p := tea.NewProgram(NewChatModel(ctx, asker, cfg), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
