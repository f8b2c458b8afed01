// Package tui renders a running half in the terminal and turns key presses
// into switch taps on its simulated matrix.
package tui

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Alia5/splitkb/internal/firmware"
	"github.com/Alia5/splitkb/internal/link"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	onStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#98FB98"))

	latchedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// DefaultKeys maps terminal keys to the switches of a 5x6 half, one string
// per row.
var DefaultKeys = []string{
	"123456",
	"qwerty",
	"asdfgh",
	"zxcvbn",
	"[];',.",
}

const (
	refreshInterval = 50 * time.Millisecond
	defaultTapHold  = 30 * time.Millisecond
)

// StatusSource provides the core status snapshot.
type StatusSource interface {
	Status() firmware.Status
}

// LinkSource provides the peer link counters.
type LinkSource interface {
	Stats() link.Stats
}

// Switches is the simulated local matrix.
type Switches interface {
	Press(row, col int) error
	Release(row, col int) error
	Latch(row, col int) (bool, error)
	Closed(row, col int) bool
}

// Config configures the model. Link may be nil.
type Config struct {
	Status   StatusSource
	Link     LinkSource
	Switches Switches
	Keys     []string
	TapHold  time.Duration
}

type coord struct{ row, col int }

// Model is the bubbletea model of a half.
type Model struct {
	cfg     Config
	keys    map[rune]coord
	latched map[coord]bool
	status  firmware.Status
	stats   link.Stats
	err     error
}

type refreshMsg time.Time

type releaseMsg coord

// New returns a model for cfg.
func New(cfg Config) *Model {
	if cfg.Keys == nil {
		cfg.Keys = DefaultKeys
	}
	if cfg.TapHold <= 0 {
		cfg.TapHold = defaultTapHold
	}
	m := &Model{
		cfg:     cfg,
		keys:    map[rune]coord{},
		latched: map[coord]bool{},
	}
	for r, line := range cfg.Keys {
		for c, ch := range []rune(line) {
			m.keys[unicode.ToLower(ch)] = coord{row: r, col: c}
		}
	}
	m.refresh()
	return m
}

func (m *Model) Init() tea.Cmd { return tick() }

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func (m *Model) refresh() {
	m.status = m.cfg.Status.Status()
	if m.cfg.Link != nil {
		m.stats = m.cfg.Link.Stats()
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		}
		if msg.Type != tea.KeyRunes || len(msg.Runes) != 1 {
			return m, nil
		}
		return m, m.key(msg.Runes[0])

	case releaseMsg:
		if err := m.cfg.Switches.Release(msg.row, msg.col); err != nil {
			m.err = err
		}

	case refreshMsg:
		m.refresh()
		if m.status.Halted {
			return m, tea.Quit
		}
		return m, tick()
	}
	return m, nil
}

// key taps the mapped switch, or toggles its latch for an uppercase key.
func (m *Model) key(r rune) tea.Cmd {
	at, ok := m.keys[unicode.ToLower(r)]
	if !ok {
		return nil
	}
	m.err = nil
	if unicode.IsUpper(r) {
		on, err := m.cfg.Switches.Latch(at.row, at.col)
		if err != nil {
			m.err = err
			return nil
		}
		m.latched[at] = on
		return nil
	}
	if err := m.cfg.Switches.Press(at.row, at.col); err != nil {
		m.err = err
		return nil
	}
	return tea.Tick(m.cfg.TapHold, func(time.Time) tea.Msg { return releaseMsg(at) })
}

func (m *Model) View() string {
	st := m.status
	var b strings.Builder

	b.WriteString(titleStyle.Render("splitkb"))
	b.WriteString(" ")
	b.WriteString(st.Side.String())
	b.WriteString(" half\n\n")

	field := func(label, value string) {
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-8s", label)))
		b.WriteString(value)
		b.WriteString("\n")
	}
	usbState := st.USB.String()
	if st.Address != 0 {
		usbState += fmt.Sprintf(" (address %d)", st.Address)
	}
	field("usb", usbState)
	field("layers", fmt.Sprint(st.Layers))
	field("report", st.Report.String())
	field("leds", m.leds())
	if m.cfg.Link != nil {
		conn := errorStyle.Render("down")
		if m.stats.Connected {
			conn = onStyle.Render("up")
		}
		field("link", fmt.Sprintf("%s rx %d tx %d overruns %d", conn, m.stats.RxBytes, m.stats.TxBytes, m.stats.Overruns))
	}
	field("reports", fmt.Sprintf("%d sent, %d dropped", st.ReportsSent, st.ReportsDropped))
	b.WriteString("\n")
	b.WriteString(m.grid())
	b.WriteString("\n")

	if st.Halted {
		b.WriteString(errorStyle.Render("core halted"))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("key tap • shift+letter latch • esc quit"))
	return b.String()
}

func (m *Model) leds() string {
	l := m.status.LEDs
	var on []string
	for _, led := range []struct {
		name string
		set  bool
	}{
		{"num", l.NumLock},
		{"caps", l.CapsLock},
		{"scroll", l.ScrollLock},
		{"compose", l.Compose},
		{"kana", l.Kana},
	} {
		if led.set {
			on = append(on, led.name)
		}
	}
	if len(on) == 0 {
		return "-"
	}
	return onStyle.Render(strings.Join(on, " "))
}

// grid renders the debounced matrix with the terminal key of each switch.
func (m *Model) grid() string {
	snap := m.status.Matrix
	var b strings.Builder
	for r, line := range m.cfg.Keys {
		for c, ch := range []rune(line) {
			cell := fmt.Sprintf(" %c ", ch)
			at := coord{row: r, col: c}
			switch {
			case m.latched[at]:
				cell = latchedStyle.Render(cell)
			case r < snap.Rows() && c < snap.Cols() && snap.Pressed(r, c):
				cell = onStyle.Render(fmt.Sprintf("[%c]", ch))
			}
			b.WriteString(cell)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Run drives the model until the user quits or the core halts.
func Run(cfg Config, opts ...tea.ProgramOption) error {
	p := tea.NewProgram(New(cfg), append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)...)
	_, err := p.Run()
	return err
}
