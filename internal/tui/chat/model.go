// Package chat is the terminal chat front-end.
package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/samsaffron/sql2pyspark/internal/llm"
	"github.com/samsaffron/sql2pyspark/internal/ui"
)

type keyMap struct {
	Submit   key.Binding
	Quit     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Submit:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		PageUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
		PageDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll down")),
	}
}

// SwitchFunc builds a backend for a "/model provider[:model]" argument.
type SwitchFunc func(target string) (Backend, error)

// Options configures the chat model.
type Options struct {
	Styles   *ui.Styles
	Markdown bool
	// SwitchBackend enables "/model <provider>"; nil disables switching.
	SwitchBackend SwitchFunc
}

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	ctx     context.Context
	backend Backend
	styles  *ui.Styles
	keys    keyMap

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	width    int
	height   int
	ready    bool
	markdown bool

	switchBackend SwitchFunc

	responding bool
	stream     <-chan StreamEvent
	cancel     context.CancelFunc
	pending    string // prompt not yet visible in the transcript
	partial    strings.Builder
	fragments  int
	started    time.Time

	notice   string // last error, shown until the next send
	info     string // command output
	quitting bool
}

// streamEventMsg carries one event from the backend; ok is false once the
// channel is closed.
type streamEventMsg struct {
	ev StreamEvent
	ok bool
}

type refreshMsg struct{}

func New(ctx context.Context, backend Backend, opts Options) *Model {
	styles := opts.Styles
	if styles == nil {
		styles = ui.DefaultStyles()
	}

	in := textinput.New()
	in.Placeholder = ui.InputPlaceholder
	in.Prompt = "❯ "
	in.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &Model{
		ctx:           ctx,
		backend:       backend,
		styles:        styles,
		keys:          defaultKeyMap(),
		viewport:      viewport.New(80, 20),
		input:         in,
		spinner:       sp,
		width:         80,
		height:        24,
		markdown:      opts.Markdown,
		switchBackend: opts.SwitchBackend,
	}
}

// Backend returns the backend in use, which changes after "/model".
func (m *Model) Backend() Backend {
	return m.backend
}

func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.layout()
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case streamEventMsg:
		return m.handleStreamEvent(msg)

	case spinner.TickMsg:
		if !m.responding {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case refreshMsg:
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.cancel != nil {
			m.cancel()
		}
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case key.Matches(msg, m.keys.Submit):
		if m.responding {
			return m, nil
		}
		value := m.input.Value()
		if strings.HasPrefix(strings.TrimSpace(value), "/") {
			return m.ExecuteCommand(strings.TrimSpace(value))
		}
		if strings.TrimSpace(value) == "" {
			return m, nil
		}
		return m.send(value)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) send(text string) (tea.Model, tea.Cmd) {
	ctx, cancel := context.WithCancel(m.ctx)
	stream, err := m.backend.Send(ctx, text)
	if err != nil {
		cancel()
		m.notice = err.Error()
		m.refresh()
		return m, nil
	}

	m.input.SetValue("")
	m.responding = true
	m.stream = stream
	m.cancel = cancel
	m.pending = text
	m.partial.Reset()
	m.fragments = 0
	m.started = time.Now()
	m.notice = ""
	m.info = ""
	m.refresh()
	return m, tea.Batch(waitForEvent(stream), m.spinner.Tick)
}

func (m *Model) handleStreamEvent(msg streamEventMsg) (tea.Model, tea.Cmd) {
	if !msg.ok {
		m.finishStream()
		m.refresh()
		return m, nil
	}
	switch msg.ev.Type {
	case StreamText:
		m.partial.WriteString(msg.ev.Text)
		m.fragments++
		m.refresh()
		return m, waitForEvent(m.stream)
	case StreamDone:
		m.finishStream()
	case StreamError:
		m.finishStream()
		if !errors.Is(msg.ev.Err, context.Canceled) {
			m.notice = msg.ev.Err.Error()
		}
	}
	m.refresh()
	return m, nil
}

func (m *Model) finishStream() {
	if m.cancel != nil {
		m.cancel()
	}
	m.cancel = nil
	m.stream = nil
	m.responding = false
	m.pending = ""
	m.partial.Reset()
}

func waitForEvent(ch <-chan StreamEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		return streamEventMsg{ev: ev, ok: ok}
	}
}

// refreshAfterReset redraws once a remote server has had time to answer a
// reset with a fresh session_ready.
func refreshAfterReset() tea.Cmd {
	return tea.Tick(150*time.Millisecond, func(time.Time) tea.Msg { return refreshMsg{} })
}

func (m *Model) layout() {
	header := lipgloss.Height(m.styles.RenderHeader(m.width))
	// status line + input line + spacing
	h := m.height - header - 4
	if h < 3 {
		h = 3
	}
	m.viewport.Width = m.width
	m.viewport.Height = h
	m.input.Width = m.width - lipgloss.Width(m.input.Prompt) - 1
}

// refresh rebuilds the viewport content from the backend transcript.
func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m *Model) renderTranscript() string {
	width := m.width - 2
	if width < 20 {
		width = 20
	}
	var b strings.Builder
	turns := m.backend.Turns()
	for _, t := range turns {
		b.WriteString(m.renderTurn(t, width))
		b.WriteString("\n")
	}
	if m.responding {
		if m.pending != "" && !endsWithPrompt(turns, m.pending) {
			b.WriteString(m.renderTurn(llm.UserText(m.pending), width))
			b.WriteString("\n")
		}
		if m.partial.Len() > 0 {
			b.WriteString(m.styles.AssistantLabel.Render("assistant"))
			b.WriteString("\n")
			if m.markdown {
				b.WriteString(ui.RenderStreaming(m.partial.String(), width))
			} else {
				b.WriteString(lipgloss.NewStyle().Width(width).Render(m.partial.String()))
			}
			b.WriteString("\n")
		}
	}
	if m.info != "" {
		b.WriteString(m.styles.Muted.Render(m.info))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderTurn(t llm.Message, width int) string {
	switch t.Role {
	case llm.RoleSystem:
		return m.styles.SystemLabel.Render("system") + "\n" +
			m.styles.SystemText.Width(width).Render(t.Content) + "\n"
	case llm.RoleUser:
		body := m.styles.UserText.Width(width).Render(t.Content)
		if m.markdown {
			body = lipgloss.NewStyle().Width(width).Render(ui.HighlightSQL(t.Content))
		}
		return m.styles.UserLabel.Render("you") + "\n" + body + "\n"
	default:
		body := t.Content
		if m.markdown {
			body = strings.TrimRight(ui.RenderMarkdown(body, width), "\n")
		} else {
			body = lipgloss.NewStyle().Width(width).Render(body)
		}
		return m.styles.AssistantLabel.Render("assistant") + "\n" + body + "\n"
	}
}

func endsWithPrompt(turns []llm.Message, prompt string) bool {
	if len(turns) == 0 {
		return false
	}
	last := turns[len(turns)-1]
	return last.Role == llm.RoleUser && last.Content == prompt
}

func (m *Model) statusLine() string {
	switch {
	case m.responding:
		phase := "Converting"
		if m.fragments > 0 {
			phase = "Streaming"
		}
		return ui.StreamingIndicator{
			Spinner:   m.spinner.View(),
			Phase:     phase,
			Elapsed:   time.Since(m.started),
			Fragments: m.fragments,
			Model:     m.backend.Name(),
		}.Render(m.styles)
	case m.notice != "":
		return m.styles.Error.Render(ui.FailIcon + " " + m.notice)
	case strings.HasPrefix(m.input.Value(), "/"):
		var names []string
		for _, c := range FilterCommands(m.input.Value()) {
			names = append(names, "/"+c.Name)
		}
		if len(names) == 0 {
			return m.styles.Muted.Render("no matching command")
		}
		return m.styles.Muted.Render(strings.Join(names, "  "))
	default:
		return m.styles.Muted.Render(m.backend.Name() + " · /help for commands · ctrl+c to quit")
	}
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.styles.RenderHeader(m.width))
	b.WriteString("\n\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	return b.String()
}

// Responding reports whether an interaction is in flight.
func (m *Model) Responding() bool {
	return m.responding
}

// Run shows the chat screen until the user quits. It returns the backend
// active at exit so the caller can close it.
func Run(ctx context.Context, backend Backend, opts Options) (Backend, error) {
	m := New(ctx, backend, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return m.backend, err
	}
	return m.backend, nil
}
