package indicator

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/lintstatus/presenter"
)

// ErrQuit is returned by TUI.Run when the user quits from the terminal.
var ErrQuit = errors.New("indicator closed by user")

type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

type displayMsg presenter.Display

type disposeMsg struct{}

// Model is the Bubble Tea model behind TUI.
type Model struct {
	display  presenter.Display
	spinner  spinner.Model
	width    int
	quitting bool
	disposed bool
}

// NewModel returns a model showing d.
func NewModel(d presenter.Display) Model {
	return Model{
		display: d,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(SpinnerStyle)),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}

	case displayMsg:
		m.display = presenter.Display(msg)
		return m, nil

	case disposeMsg:
		m.disposed = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting || m.disposed {
		return ""
	}
	lead := Glyph(m.display.Icon)
	if m.display.Busy() {
		lead = m.spinner.View()
	}
	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	view := Render(m.display, lead) + "\n" + help
	if m.width > 0 {
		// Long file names would otherwise wrap and break the redraw.
		view = lipgloss.NewStyle().MaxWidth(m.width).Render(view)
	}
	return view
}

// Render draws d as a status line followed by its tooltip lines. lead
// replaces the icon glyph when non-empty.
func Render(d presenter.Display, lead string) string {
	if lead == "" {
		lead = Glyph(d.Icon)
	}
	var b strings.Builder
	status := lipgloss.JoinHorizontal(lipgloss.Top,
		ColorStyle(d.Color).Render(lead),
		" ",
		LabelStyle.Render(d.Label),
		" ",
		ColorStyle(d.Color).Render(string(d.Icon)),
	)
	b.WriteString(status)
	for _, line := range d.Tooltip {
		b.WriteString("\n")
		b.WriteString(TooltipStyle.Render(line))
	}
	return b.String()
}

// TUI is a terminal status line. Show and Update never block; when
// displays arrive faster than the terminal redraws, only the latest is kept.
type TUI struct {
	opts []tea.ProgramOption
	wake chan struct{}

	mu       sync.Mutex
	next     presenter.Display
	pending  bool
	disposed bool
}

// NewTUI returns a TUI. opts are passed to the Bubble Tea program.
func NewTUI(opts ...tea.ProgramOption) *TUI {
	return &TUI{opts: opts, wake: make(chan struct{}, 1)}
}

// Show implements Widget.
func (t *TUI) Show(_ context.Context, d presenter.Display) error {
	t.post(d)
	return nil
}

// Update implements Widget.
func (t *TUI) Update(_ context.Context, d presenter.Display) error {
	t.post(d)
	return nil
}

// Dispose implements Widget. The running program exits.
func (t *TUI) Dispose(context.Context) error {
	t.mu.Lock()
	t.disposed = true
	t.mu.Unlock()
	t.signal()
	return nil
}

// Run drives the terminal until ctx is cancelled, the widget is disposed,
// or the user quits (ErrQuit).
func (t *TUI) Run(ctx context.Context) error {
	t.mu.Lock()
	initial := t.next
	t.pending = false
	t.mu.Unlock()

	opts := append([]tea.ProgramOption{tea.WithContext(ctx)}, t.opts...)
	p := tea.NewProgram(NewModel(initial), opts...)

	done := make(chan struct{})
	go t.forward(p, done)

	final, err := p.Run()
	close(done)

	switch {
	case err == nil:
	case errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil:
		return nil
	default:
		return err
	}
	if m, ok := final.(Model); ok && m.quitting {
		return ErrQuit
	}
	return nil
}

func (t *TUI) forward(p *tea.Program, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-t.wake:
		}

		t.mu.Lock()
		d, pending, disposed := t.next, t.pending, t.disposed
		t.pending = false
		t.mu.Unlock()

		if pending {
			p.Send(displayMsg(d))
		}
		if disposed {
			p.Send(disposeMsg{})
			return
		}
	}
}

func (t *TUI) post(d presenter.Display) {
	t.mu.Lock()
	t.next = d
	t.pending = true
	t.mu.Unlock()
	t.signal()
}

func (t *TUI) signal() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

var _ Widget = (*TUI)(nil)
