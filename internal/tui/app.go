package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Tab represents a screen tab in the TUI.
type Tab int

const (
	TabDashboard Tab = iota
	TabLookup
)

var tabNames = []string{"1:Dashboard", "2:Lookup"}

// AppModel is the root Bubble Tea model that manages tab navigation and child screens.
type AppModel struct {
	services  Services
	activeTab Tab
	dashboard DashboardModel
	lookup    LookupModel
	width     int
	height    int
	quitting  bool
}

func NewAppModel(svc Services) AppModel {
	return AppModel{
		services:  svc,
		activeTab: TabDashboard,
		dashboard: NewDashboardModel(svc),
		lookup:    NewLookupModel(svc),
	}
}

func (m AppModel) Init() tea.Cmd {
	return tea.Batch(m.dashboard.Init(), m.lookup.Init())
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.propagateSize()
		return m, nil

	case tea.KeyMsg:
		// Typing in the lookup input only leaves it through tab keys and ctrl+c.
		if m.activeTab != TabLookup || msg.Type == tea.KeyTab || msg.Type == tea.KeyShiftTab || msg.String() == "ctrl+c" {
			switch {
			case key.Matches(msg, DefaultKeyMap.Quit):
				m.quitting = true
				return m, tea.Quit
			case key.Matches(msg, DefaultKeyMap.Tab):
				m.switchTab(Tab((int(m.activeTab) + 1) % len(tabNames)))
				return m, nil
			case key.Matches(msg, DefaultKeyMap.ShiftTab):
				m.switchTab(Tab((int(m.activeTab) + len(tabNames) - 1) % len(tabNames)))
				return m, nil
			case msg.String() == "1":
				m.switchTab(TabDashboard)
				return m, nil
			case msg.String() == "2":
				m.switchTab(TabLookup)
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	switch msg.(type) {
	case assetsMsg, assetsErrMsg, dashTickMsg:
		m.dashboard, cmd = m.dashboard.Update(msg)
	case lookupReplyMsg, lookupErrMsg:
		m.lookup, cmd = m.lookup.Update(msg)
	default:
		switch m.activeTab {
		case TabDashboard:
			m.dashboard, cmd = m.dashboard.Update(msg)
		case TabLookup:
			m.lookup, cmd = m.lookup.Update(msg)
		}
	}
	return m, cmd
}

func (m AppModel) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	var content string
	switch m.activeTab {
	case TabDashboard:
		content = m.dashboard.View()
	case TabLookup:
		content = m.lookup.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.renderTabBar(), content)
}

func (m *AppModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.propagateSize()
}

// ActiveTab returns the currently active tab (for testing).
func (m AppModel) ActiveTab() Tab { return m.activeTab }

func (m *AppModel) switchTab(tab Tab) {
	if tab == TabLookup && m.activeTab != TabLookup {
		m.lookup.Focus()
	} else if m.activeTab == TabLookup && tab != TabLookup {
		m.lookup.Blur()
	}
	m.activeTab = tab
}

func (m *AppModel) propagateSize() {
	contentHeight := m.height - 2 // tab bar
	m.dashboard.SetSize(m.width, contentHeight)
	m.lookup.SetSize(m.width, contentHeight)
}

func (m AppModel) renderTabBar() string {
	var tabs []string
	for i, name := range tabNames {
		if Tab(i) == m.activeTab {
			tabs = append(tabs, ActiveTabStyle.Render(name))
		} else {
			tabs = append(tabs, InactiveTabStyle.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}
