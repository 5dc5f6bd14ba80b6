package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"trendbot/internal/domain"
	"trendbot/internal/service"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type lookupReplyMsg struct {
	mint  string
	reply string
}
type lookupErrMsg struct{ err error }

type lookupEntry struct {
	Mint  string
	Reply string
	Time  time.Time
}

// LookupModel answers trend queries for a mint typed by the user.
type LookupModel struct {
	services Services
	history  []lookupEntry
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	waiting  bool
	err      error
	width    int
	height   int
	ready    bool
}

func NewLookupModel(svc Services) LookupModel {
	ti := textinput.New()
	ti.Placeholder = "Mint address..."
	ti.CharLimit = 64
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(SpinnerColor)

	return LookupModel{
		services: svc,
		input:    ti,
		spinner:  sp,
	}
}

func (m LookupModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m LookupModel) Update(msg tea.Msg) (LookupModel, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case lookupReplyMsg:
		m.history = append(m.history, lookupEntry{Mint: msg.mint, Reply: msg.reply, Time: time.Now()})
		m.waiting = false
		m.err = nil
		m.viewport.SetContent(m.renderHistory())
		m.viewport.GotoBottom()
		return m, nil

	case lookupErrMsg:
		m.waiting = false
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyEnter && !m.waiting {
			mint := strings.TrimSpace(m.input.Value())
			if mint != "" {
				m.input.SetValue("")
				m.waiting = true
				return m, tea.Batch(m.lookupCmd(mint), m.spinner.Tick)
			}
		}

	case spinner.TickMsg:
		if m.waiting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	if !m.waiting {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m LookupModel) View() string {
	if m.services.Trends == nil {
		return lipgloss.JoinVertical(lipgloss.Left,
			"",
			HeaderStyle.Render("  Trend Lookup"),
			"",
			SubtextStyle.Render("  Trend service not available. Set DATABASE_URL to enable."),
		)
	}

	rule := SubtextStyle.Render(strings.Repeat("─", max(10, m.width-2)))
	sections := []string{HeaderStyle.Render("  Trend Lookup"), rule}

	if !m.ready {
		m.initViewport()
	}
	sections = append(sections, m.viewport.View(), rule)

	if m.waiting {
		sections = append(sections, fmt.Sprintf("  %s Looking up...", m.spinner.View()))
	} else {
		if m.err != nil {
			sections = append(sections, ErrorStyle.Render(fmt.Sprintf("  Error: %v", m.err)))
		}
		sections = append(sections, "  "+m.input.View())
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *LookupModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.input.Width = w - 6
	m.ready = false
}

func (m *LookupModel) Focus() { m.input.Focus() }

func (m *LookupModel) Blur() { m.input.Blur() }

// IsWaiting reports whether a lookup is in flight (for testing).
func (m LookupModel) IsWaiting() bool { return m.waiting }

// HistoryCount returns the number of answered lookups (for testing).
func (m LookupModel) HistoryCount() int { return len(m.history) }

func (m *LookupModel) initViewport() {
	m.viewport = viewport.New(max(10, m.width-2), max(3, m.height-6))
	m.viewport.SetContent(m.renderHistory())
	m.ready = true
}

func (m LookupModel) renderHistory() string {
	if len(m.history) == 0 {
		return SubtextStyle.Render("  Type a mint address below and press enter.")
	}
	var lines []string
	for _, e := range m.history {
		lines = append(lines, fmt.Sprintf("  %s  %s", SubtextStyle.Render(e.Time.Format("15:04")), QueryStyle.Render(e.Mint)))
		for _, line := range strings.Split(e.Reply, "\n") {
			lines = append(lines, "         "+line)
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (m LookupModel) lookupCmd(mint string) tea.Cmd {
	svc := m.services
	return func() tea.Msg {
		if svc.Trends == nil {
			return lookupErrMsg{err: fmt.Errorf("trend service not available")}
		}
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		state, err := svc.Trends.CurrentTrend(ctx, mint)
		if err != nil {
			return lookupErrMsg{err: err}
		}
		var token *domain.Token
		if svc.Assets != nil {
			token, _ = svc.Assets.TokenByMint(ctx, mint)
		}
		var snap *domain.IndicatorSnapshot
		s, err := svc.Trends.Indicators(ctx, mint)
		switch {
		case err == nil:
			snap = &s
		case !errors.Is(err, domain.ErrInsufficientData):
			return lookupErrMsg{err: err}
		}
		return lookupReplyMsg{mint: mint, reply: service.FormatTrend(*state, snap, token)}
	}
}
