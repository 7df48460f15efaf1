package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/spoq/spoq-tui/internal/engine/dispatch"
	"github.com/spoq/spoq-tui/internal/engine/model"
	"github.com/spoq/spoq-tui/internal/store"
	"github.com/spoq/spoq-tui/internal/transport"
	"github.com/spoq/spoq-tui/internal/wire"
)

// shellDefaults seeds session-level values the engine itself has no
// opinion about: which model and permission mode new threads start with,
// and where the per-request token stream is opened.
type shellDefaults struct {
	Model            string
	PermissionMode   string
	WorkingDirectory string
	StreamEndpoint   string
}

// shell is a thin bubbletea collaborator proving out the engine's external
// interfaces: it renders the active thread's messages, forwards keystrokes
// into Dispatcher.Submit/ApproveOnce/etc., and opens a TokenStream per
// submission. It does not attempt the full rendering spec.md leaves to the
// reader's imagination (sidebar, dashboard, multi-pane layout).
type shell struct {
	disp     *dispatch.Dispatcher
	stream   *transport.TokenStream
	recorder *store.Recorder
	log      *slog.Logger
	defaults shellDefaults

	chat     viewport.Model
	input    textarea.Model
	renderer *glamour.TermRenderer
	width    int
	quitting bool
	status   string
}

func newShell(disp *dispatch.Dispatcher, stream *transport.TokenStream, recorder *store.Recorder, log *slog.Logger, defaults shellDefaults) *shell {
	input := textarea.New()
	input.Focus()
	input.Prompt = "> "
	input.SetHeight(3)
	input.CharLimit = 0

	renderer, _ := glamour.NewTermRenderer(glamour.WithAutoStyle())

	return &shell{
		disp:     disp,
		stream:   stream,
		recorder: recorder,
		log:      log,
		defaults: defaults,
		chat:     viewport.New(80, 20),
		input:    input,
		renderer: renderer,
	}
}

// run starts the bubbletea program and blocks until the user quits or ctx
// is canceled.
func (s *shell) run(ctx context.Context) error {
	program := tea.NewProgram(s, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

type dispatchTickMsg struct{}

// Init starts the blinking cursor and the poll loop that redraws after the
// dispatcher processes events.
func (s *shell) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, s.waitForDispatch())
}

// dispatchPollInterval bounds how quickly the shell notices a dispatcher
// update; the dispatcher itself has no notion of a subscriber to signal
// directly, so the shell polls its Dirty flag at a redraw-friendly rate.
const dispatchPollInterval = 33 * time.Millisecond

// waitForDispatch blocks until the dispatcher marks itself dirty, i.e.
// something changed since the last redraw, then clears the flag.
func (s *shell) waitForDispatch() tea.Cmd {
	return func() tea.Msg {
		ticker := time.NewTicker(dispatchPollInterval)
		defer ticker.Stop()
		for range ticker.C {
			if s.disp.Dirty {
				s.disp.Dirty = false
				return dispatchTickMsg{}
			}
		}
		return nil
	}
}

func (s *shell) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = typed.Width
		s.chat.Width = typed.Width
		s.chat.Height = typed.Height - 5
		s.input.SetWidth(typed.Width)
		s.refresh()
		return s, nil

	case dispatchTickMsg:
		s.refresh()
		return s, s.waitForDispatch()

	case tea.KeyMsg:
		return s.handleKey(typed)
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *shell) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	if s.disp.Session.PendingQuestion != nil {
		switch key.String() {
		case "tab":
			s.disp.AdvanceQuestion()
			return s, nil
		case "up":
			s.disp.MoveOptionCursor(-1)
			return s, nil
		case "down":
			s.disp.MoveOptionCursor(1)
			return s, nil
		case " ":
			s.disp.ToggleSelectedOption()
			return s, nil
		case "enter":
			s.disp.ConfirmQuestion()
			return s, nil
		case "n":
			s.disp.DenyQuestion()
			return s, nil
		}
		return s, nil
	}

	if s.disp.Session.PendingPermission != nil {
		switch key.String() {
		case "y":
			s.disp.ApproveOnce()
			return s, nil
		case "a":
			s.disp.ApproveAlways()
			return s, nil
		case "n":
			s.disp.DenyPermission()
			return s, nil
		case "shift+esc":
			s.disp.CancelPendingPermission()
			return s, nil
		}
		return s, nil
	}

	switch key.String() {
	case "ctrl+c":
		s.quitting = true
		return s, tea.Quit
	case "enter":
		return s, s.submit()
	case "up":
		if value, ok := s.recorder.Recall(-1, s.input.Value()); ok {
			s.input.SetValue(value)
		}
		return s, nil
	case "down":
		if value, ok := s.recorder.Recall(1, s.input.Value()); ok {
			s.input.SetValue(value)
		}
		return s, nil
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(key)
	return s, cmd
}

// submit hands the input buffer to the dispatcher and, if accepted, opens
// the per-request token stream in the background.
func (s *shell) submit() tea.Cmd {
	text := strings.TrimSpace(s.input.Value())
	if text == "" {
		return nil
	}

	result := s.disp.Submit(s.disp.ActiveThreadID, text, model.ThreadConversation, s.defaults.WorkingDirectory, nil)
	switch result.Outcome {
	case dispatch.SubmitIgnoredEmpty:
		return nil
	case dispatch.SubmitRejectedStreaming, dispatch.SubmitRejectedUnknownThread:
		s.status = result.Message
		return nil
	}

	s.recorder.Append(text)
	s.input.Reset()

	threadID := s.disp.ActiveThreadID
	request := wire.StreamRequest{
		Prompt:           text,
		ThreadID:         threadID,
		Model:            s.defaults.Model,
		PermissionMode:   s.defaults.PermissionMode,
		WorkingDirectory: s.defaults.WorkingDirectory,
		Images:           []string{},
	}

	return func() tea.Msg {
		if err := s.stream.Open(context.Background(), s.defaults.StreamEndpoint, request, s.disp.Events); err != nil {
			s.log.Warn("token stream failed", "error", err, "thread_id", threadID)
		}
		return nil
	}
}

// refresh re-renders the chat viewport from the active thread's messages.
func (s *shell) refresh() {
	threadID := s.disp.ActiveThreadID
	if threadID == "" {
		s.chat.SetContent("No active thread. Type a message and press enter to start one.")
		return
	}

	messages := s.disp.Cache.Messages(threadID)
	var builder strings.Builder
	for _, message := range messages {
		builder.WriteString(renderMessage(message))
		builder.WriteString("\n\n")
	}

	body := builder.String()
	if s.renderer != nil {
		if rendered, err := s.renderer.Render(body); err == nil {
			body = rendered
		}
	}
	s.chat.SetContent(body)
	s.chat.GotoBottom()
}

func renderMessage(m *model.Message) string {
	prefix := "assistant"
	if m.Role == model.RoleUser {
		prefix = "you"
	} else if m.Role == model.RoleSystem {
		prefix = "system"
	}
	content := m.Content
	if m.IsStreaming {
		content = m.PartialContent
	}
	return fmt.Sprintf("**%s:** %s", prefix, content)
}

func (s *shell) View() string {
	if s.quitting {
		return ""
	}
	if s.width == 0 {
		return "Initializing..."
	}

	statusLine := s.statusLine()
	return lipgloss.JoinVertical(lipgloss.Left, s.chat.View(), statusLine, s.input.View())
}

func (s *shell) statusLine() string {
	if s.disp.Session.PendingQuestion != nil {
		return "Question pending — Tab to navigate, Enter to submit"
	}
	if p := s.disp.Session.PendingPermission; p != nil {
		return fmt.Sprintf("Permission requested for %s — y(es)/a(lways)/n(o)", p.ToolName)
	}
	if s.status != "" {
		status := s.status
		s.status = ""
		return status
	}
	return fmt.Sprintf("connection: %s", s.disp.Session.Connection)
}
