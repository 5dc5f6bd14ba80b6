package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"trendbot/internal/domain"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	dashboardRefresh = 10 * time.Second
	fetchTimeout     = 10 * time.Second
)

type assetsMsg []AssetRow
type assetsErrMsg struct{ err error }
type dashTickMsg time.Time

// DashboardModel lists every tracked asset with its trend and indicators.
type DashboardModel struct {
	services Services
	rows     []AssetRow
	loading  bool
	err      error
	width    int
	height   int
}

func NewDashboardModel(svc Services) DashboardModel {
	return DashboardModel{
		services: svc,
		loading:  true,
	}
}

func (m DashboardModel) Init() tea.Cmd {
	return tea.Batch(m.fetchAssetsCmd(), m.tickCmd())
}

func (m DashboardModel) Update(msg tea.Msg) (DashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case assetsMsg:
		m.rows = []AssetRow(msg)
		m.loading = false
		m.err = nil
		return m, nil

	case assetsErrMsg:
		m.err = msg.err
		m.loading = false
		return m, nil

	case dashTickMsg:
		return m, tea.Batch(m.fetchAssetsCmd(), m.tickCmd())

	case tea.KeyMsg:
		if key.Matches(msg, DefaultKeyMap.Refresh) {
			m.loading = true
			return m, m.fetchAssetsCmd()
		}
	}
	return m, nil
}

func (m DashboardModel) View() string {
	if m.loading && len(m.rows) == 0 {
		return SubtextStyle.Render("Loading trends...")
	}
	if m.err != nil && len(m.rows) == 0 {
		return ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}

	lines := []string{
		HeaderStyle.Render("  Tracked Assets"),
		SubtextStyle.Render("  Asset      Trend    Indicators"),
		SubtextStyle.Render("  " + strings.Repeat("─", max(10, m.width-6))),
	}
	for _, r := range m.rows {
		lines = append(lines, "  "+FormatAssetRow(r))
	}
	if len(m.rows) == 0 {
		lines = append(lines, SubtextStyle.Render("  No tracked assets"))
	}
	if m.err != nil {
		lines = append(lines, ErrorStyle.Render(fmt.Sprintf("  Refresh failed: %v", m.err)))
	}
	return BorderStyle.Width(max(40, m.width-2)).Render(strings.Join(lines, "\n"))
}

func (m *DashboardModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Rows returns the current rows (for testing).
func (m DashboardModel) Rows() []AssetRow { return m.rows }

func (m DashboardModel) fetchAssetsCmd() tea.Cmd {
	svc := m.services
	return func() tea.Msg {
		if svc.Assets == nil || svc.Trends == nil {
			return assetsErrMsg{err: fmt.Errorf("trend service not available")}
		}
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		rows, err := loadRows(ctx, svc)
		if err != nil {
			return assetsErrMsg{err: err}
		}
		return assetsMsg(rows)
	}
}

func loadRows(ctx context.Context, svc Services) ([]AssetRow, error) {
	tokens, err := svc.Assets.ListTokens(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]AssetRow, 0, len(tokens))
	for _, t := range tokens {
		if t == nil {
			continue
		}
		row := AssetRow{Token: t, Trend: domain.TrendNone}
		state, err := svc.Trends.CurrentTrend(ctx, t.Mint)
		if err != nil {
			row.Err = err
			rows = append(rows, row)
			continue
		}
		row.Trend = state.Trend
		snap, err := svc.Trends.Indicators(ctx, t.Mint)
		switch {
		case err == nil:
			row.Indicators = &snap
		case !errors.Is(err, domain.ErrInsufficientData):
			row.Err = err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (m DashboardModel) tickCmd() tea.Cmd {
	return tea.Tick(dashboardRefresh, func(t time.Time) tea.Msg {
		return dashTickMsg(t)
	})
}
