package tui

import (
	"trendbot/internal/domain"

	"github.com/charmbracelet/lipgloss"
)

const (
	colorAccent = lipgloss.Color("#7D56F4")
	colorText   = lipgloss.Color("#FAFAFA")
	colorMuted  = lipgloss.Color("#888888")
	colorFrame  = lipgloss.Color("#555555")
	colorGain   = lipgloss.Color("#2ECC71")
	colorLoss   = lipgloss.Color("#E74C3C")
	colorFlat   = lipgloss.Color("#F1C40F")
)

var (
	ActiveTabStyle   = lipgloss.NewStyle().Padding(0, 2).Bold(true).Foreground(colorText).Background(colorAccent)
	InactiveTabStyle = lipgloss.NewStyle().Padding(0, 2).Foreground(colorMuted)

	BullishStyle = lipgloss.NewStyle().Foreground(colorGain).Bold(true)
	BearishStyle = lipgloss.NewStyle().Foreground(colorLoss).Bold(true)
	NeutralStyle = lipgloss.NewStyle().Foreground(colorFlat)

	HeaderStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorText)
	SubtextStyle = lipgloss.NewStyle().Foreground(colorMuted)
	BorderStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorFrame)
	ErrorStyle   = lipgloss.NewStyle().Foreground(colorLoss)
	QueryStyle   = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	SpinnerColor = colorAccent
)

// TrendStyle picks the style a trend label is drawn with.
func TrendStyle(t domain.Trend) lipgloss.Style {
	switch t {
	case domain.TrendBullish:
		return BullishStyle
	case domain.TrendBearish:
		return BearishStyle
	}
	return NeutralStyle
}
