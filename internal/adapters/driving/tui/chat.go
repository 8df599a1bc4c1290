package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/knowbase-labs/knowbase-cli/internal/core/domain"
	"github.com/knowbase-labs/knowbase-cli/internal/core/ports/driving"
)

// answerMsg carries a finished pipeline result back into the update loop.
type answerMsg struct {
	result domain.ChatResult
}

// message is one entry in the transcript.
type message struct {
	fromUser bool
	text     string
	isError  bool
}

// Chat is the interactive chat model. It implements tea.Model.
type Chat struct {
	chat   driving.ChatService
	ctx    context.Context
	styles *Styles

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	transcript []message
	waiting    bool
	ready      bool
	width      int
	height     int
}

var _ tea.Model = (*Chat)(nil)

// NewChat creates the chat model.
func NewChat(chat driving.ChatService) (*Chat, error) {
	if chat == nil {
		return nil, errors.New("chat service is required")
	}

	ti := textinput.New()
	ti.Placeholder = "Ask about your Jira issues and Confluence pages..."
	ti.Focus()
	ti.CharLimit = 512

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &Chat{
		chat:    chat,
		ctx:     context.Background(),
		styles:  DefaultStyles(),
		input:   ti,
		spinner: sp,
	}, nil
}

// Init starts the cursor blink.
func (c *Chat) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages.
func (c *Chat) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		c.width = msg.Width
		c.height = msg.Height
		inputHeight := 3
		titleHeight := 2
		if !c.ready {
			c.viewport = viewport.New(msg.Width, msg.Height-inputHeight-titleHeight)
			c.ready = true
		} else {
			c.viewport.Width = msg.Width
			c.viewport.Height = msg.Height - inputHeight - titleHeight
		}
		c.input.Width = msg.Width - 6
		c.refreshViewport()
		return c, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return c, tea.Quit
		case tea.KeyEnter:
			return c, c.submit()
		}

	case answerMsg:
		c.waiting = false
		c.transcript = append(c.transcript, message{
			text:    msg.result.Response,
			isError: msg.result.ResponseType == domain.ResponseError,
		})
		c.refreshViewport()
		return c, nil

	case spinner.TickMsg:
		if !c.waiting {
			return c, nil
		}
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

// View renders the chat screen.
func (c *Chat) View() string {
	if !c.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(c.styles.Title.Render("knowbase chat"))
	b.WriteString(c.styles.Muted.Render("  (Esc to quit)"))
	b.WriteString("\n\n")
	b.WriteString(c.viewport.View())
	b.WriteString("\n")

	if c.waiting {
		b.WriteString(c.styles.InputBar.Render(c.spinner.View() + " thinking..."))
	} else {
		b.WriteString(c.styles.InputBar.Render(c.input.View()))
	}
	return b.String()
}

// submit sends the current input through the pipeline.
func (c *Chat) submit() tea.Cmd {
	query := strings.TrimSpace(c.input.Value())
	if query == "" || c.waiting {
		return nil
	}

	c.transcript = append(c.transcript, message{fromUser: true, text: query})
	c.input.SetValue("")
	c.waiting = true
	c.refreshViewport()

	ask := func() tea.Msg {
		return answerMsg{result: c.chat.Run(c.ctx, query)}
	}
	return tea.Batch(c.spinner.Tick, ask)
}

// refreshViewport re-renders the transcript and scrolls to the bottom.
func (c *Chat) refreshViewport() {
	if !c.ready {
		return
	}

	var b strings.Builder
	for i, m := range c.transcript {
		if i > 0 {
			b.WriteString("\n")
		}
		label := c.styles.BotLabel.Render("knowbase")
		if m.fromUser {
			label = c.styles.UserLabel.Render("you")
		}
		b.WriteString(fmt.Sprintf("%s\n", label))

		text := m.text
		if m.isError {
			text = c.styles.Error.Render(text)
		}
		b.WriteString(c.styles.Message.Render(text))
		b.WriteString("\n")
	}

	c.viewport.SetContent(b.String())
	c.viewport.GotoBottom()
}

// Run starts the TUI event loop and blocks until the user quits.
func Run(chat driving.ChatService) error {
	model, err := NewChat(chat)
	if err != nil {
		return err
	}
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running chat interface: %w", err)
	}
	return nil
}
