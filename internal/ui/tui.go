// Package ui provides the terminal schedule viewer and plain schedule output.
package ui

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/nibzard/taskcal/internal/scheduler"
)

// ErrNotTTY is returned when the viewer is started without a terminal.
var ErrNotTTY = errors.New("tui requires a TTY")

// LoadFunc produces the schedule to display.
type LoadFunc func() (*scheduler.Result, error)

// ViewerOption configures the viewer.
type ViewerOption func(*viewerConfig)

type viewerConfig struct {
	changes <-chan struct{}
	source  string
	output  io.Writer
}

// WithChanges reloads the schedule whenever a value arrives on ch.
func WithChanges(ch <-chan struct{}) ViewerOption {
	return func(c *viewerConfig) {
		c.changes = ch
	}
}

// WithSource labels the viewer with the file being shown.
func WithSource(path string) ViewerOption {
	return func(c *viewerConfig) {
		c.source = path
	}
}

// WithOutput sets the terminal the viewer draws on.
func WithOutput(w io.Writer) ViewerOption {
	return func(c *viewerConfig) {
		c.output = w
	}
}

// RunViewer shows the schedule until the user quits or ctx is done.
func RunViewer(ctx context.Context, load LoadFunc, opts ...ViewerOption) error {
	c := &viewerConfig{output: os.Stdout}
	for _, opt := range opts {
		opt(c)
	}
	if !IsTTY(c.output) {
		return ErrNotTTY
	}

	model := NewModel(load, c.source, c.changes)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx), tea.WithOutput(c.output))
	if _, err := program.Run(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}

// Model is the bubbletea model of the schedule viewer.
type Model struct {
	load     LoadFunc
	source   string
	changes  <-chan struct{}
	result   *scheduler.Result
	loadErr  error
	loadedAt time.Time
	offset   int
	height   int
	showHelp bool
	now      func() time.Time
}

type reloadMsg struct{}

// NewModel creates a viewer model. changes may be nil.
func NewModel(load LoadFunc, source string, changes <-chan struct{}) *Model {
	return &Model{
		load:    load,
		source:  source,
		changes: changes,
		now:     time.Now,
	}
}

func (m *Model) Init() tea.Cmd {
	m.refresh()
	return waitForChange(m.changes)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "r", "f5":
			m.refresh()
		case "j", "down":
			m.scroll(1)
		case "k", "up":
			m.scroll(-1)
		case "g", "home":
			m.offset = 0
		case "G", "end":
			m.offset = m.maxOffset()
		case "h", "?":
			m.showHelp = !m.showHelp
		}
	case tea.WindowSizeMsg:
		m.height = msg.Height
		m.scroll(0)
	case reloadMsg:
		m.refresh()
		return m, waitForChange(m.changes)
	}
	return m, nil
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("taskcal schedule"))
	b.WriteString("\n")
	if m.source != "" {
		b.WriteString(dimStyle.Render(m.source))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.showHelp {
		b.WriteString(helpText)
		b.WriteString(m.footer())
		return b.String()
	}

	if m.loadErr != nil {
		b.WriteString(errorStyle.Render("Error loading schedule:"))
		b.WriteString("\n  " + m.loadErr.Error() + "\n\n")
		b.WriteString(m.footer())
		return b.String()
	}
	if m.result == nil {
		b.WriteString("Loading...\n\n")
		b.WriteString(m.footer())
		return b.String()
	}

	lines := m.lines()
	end := len(lines)
	if h := m.bodyHeight(); h > 0 && m.offset+h < end {
		end = m.offset + h
	}
	for _, line := range lines[m.offset:end] {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.footer())
	return b.String()
}

func (m *Model) refresh() {
	result, err := m.load()
	m.loadedAt = m.now()
	if err != nil {
		m.loadErr = err
		m.result = nil
		return
	}
	m.loadErr = nil
	m.result = result
	m.scroll(0)
}

func (m *Model) lines() []string {
	return strings.Split(strings.TrimRight(formatSchedule(m.result, true), "\n"), "\n")
}

// bodyHeight is the number of schedule lines that fit between the header and
// the footer. Zero means unknown.
func (m *Model) bodyHeight() int {
	if m.height == 0 {
		return 0
	}
	h := m.height - 6
	if h < 1 {
		h = 1
	}
	return h
}

func (m *Model) maxOffset() int {
	if m.result == nil {
		return 0
	}
	limit := len(m.lines()) - m.bodyHeight()
	if m.bodyHeight() == 0 || limit < 0 {
		return 0
	}
	return limit
}

func (m *Model) scroll(delta int) {
	m.offset += delta
	if limit := m.maxOffset(); m.offset > limit {
		m.offset = limit
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func (m *Model) footer() string {
	stamp := ""
	if !m.loadedAt.IsZero() {
		stamp = " | loaded " + m.loadedAt.Format("15:04:05")
	}
	return dimStyle.Render("h help | r reload | q quit" + stamp)
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return reloadMsg{}
	}
}

const helpText = `Keyboard Shortcuts

  q, esc, ctrl+c   Quit
  r, F5            Reload the task file
  j, down          Scroll down
  k, up            Scroll up
  g, G             Jump to top or bottom
  h, ?             Toggle this help screen

`

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dayStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	timeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	dimStyle   = lipgloss.NewStyle().Faint(true)
)
