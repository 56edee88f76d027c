// Package tui provides the interactive Bubble Tea chat interface for
// exploring Athena query costs.
package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"athenalens/internal/agent"
	"athenalens/internal/cli"
)

// replyMsg is sent when the agent finishes answering.
type replyMsg struct {
	text string
	err  error
}

var (
	userLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(cli.ColorBlue)

	agentLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(cli.ColorAccent)

	errorStyle = lipgloss.NewStyle().
			Foreground(cli.ColorRed)

	chatHelpStyle = lipgloss.NewStyle().
			Foreground(cli.ColorTextMuted)
)

const chatTimeout = 2 * time.Minute

// Chat is the root Bubble Tea model for the chat interface.
type Chat struct {
	agent   *agent.Agent
	history []agent.Turn

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model

	transcript []string
	waiting    bool
	ready      bool
	width      int
	height     int
}

// NewChat creates the chat model around a configured agent.
func NewChat(a *agent.Agent) Chat {
	ta := textarea.New()
	ta.Placeholder = "Ask about query costs (e.g. \"why did costs spike last week?\")"
	ta.Prompt = "> "
	ta.SetHeight(2)
	ta.CharLimit = 2000
	ta.ShowLineNumbers = false
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(cli.ColorAccent)

	return Chat{
		agent:   a,
		input:   ta,
		spinner: sp,
	}
}

// Init implements tea.Model.
func (c Chat) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, c.spinner.Tick)
}

// Update implements tea.Model.
func (c Chat) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		c.width = msg.Width
		c.height = msg.Height
		inputHeight := c.input.Height() + 3
		if !c.ready {
			c.viewport = viewport.New(msg.Width, msg.Height-inputHeight)
			c.ready = true
		} else {
			c.viewport.Width = msg.Width
			c.viewport.Height = msg.Height - inputHeight
		}
		c.input.SetWidth(msg.Width - 4)
		c.refreshViewport()
		return c, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return c, tea.Quit
		case tea.KeyEnter:
			if c.waiting {
				return c, nil
			}
			text := strings.TrimSpace(c.input.Value())
			if text == "" {
				return c, nil
			}
			c.input.Reset()
			c.transcript = append(c.transcript,
				userLabelStyle.Render("You")+"\n"+text)
			c.waiting = true
			c.refreshViewport()
			c.viewport.GotoBottom()
			ask := c.askCmd(text)
			return c, tea.Batch(ask, c.spinner.Tick)
		}

	case replyMsg:
		c.waiting = false
		if msg.err != nil {
			c.transcript = append(c.transcript,
				errorStyle.Render("Error: "+msg.err.Error()))
		} else {
			c.transcript = append(c.transcript,
				agentLabelStyle.Render("Assistant")+"\n"+msg.text)
			c.history = append(c.history,
				agent.Turn{Role: "assistant", Content: msg.text})
		}
		c.refreshViewport()
		c.viewport.GotoBottom()
		return c, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		c.spinner, cmd = c.spinner.Update(msg)
		return c, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	c.input, cmd = c.input.Update(msg)
	cmds = append(cmds, cmd)
	c.viewport, cmd = c.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return c, tea.Batch(cmds...)
}

// askCmd runs one agent round trip off the UI goroutine. The prior history
// is snapshotted before the new user turn is recorded; the agent receives
// the message itself separately.
func (c *Chat) askCmd(text string) tea.Cmd {
	hist := make([]agent.Turn, len(c.history))
	copy(hist, c.history)
	ag := c.agent

	c.history = append(c.history,
		agent.Turn{Role: "user", Content: text})

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), chatTimeout)
		defer cancel()

		reply, err := ag.Chat(ctx, text, hist)
		return replyMsg{text: reply, err: err}
	}
}

func (c *Chat) refreshViewport() {
	if !c.ready {
		return
	}
	c.viewport.SetContent(strings.Join(c.transcript, "\n\n"))
}

// View implements tea.Model.
func (c Chat) View() string {
	if !c.ready {
		return "loading..."
	}

	var b strings.Builder
	b.WriteString(c.viewport.View())
	b.WriteString("\n")

	if c.waiting {
		b.WriteString(c.spinner.View())
		b.WriteString(chatHelpStyle.Render(" thinking..."))
	} else {
		b.WriteString(chatHelpStyle.Render("enter to send, esc to quit"))
	}
	b.WriteString("\n")
	b.WriteString(c.input.View())
	return b.String()
}
