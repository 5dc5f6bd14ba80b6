package tui

import (
	"errors"
	"strings"
	"testing"

	"trendbot/internal/domain"

	tea "github.com/charmbracelet/bubbletea"
)

func TestLookupModelInitialState(t *testing.T) {
	m := NewLookupModel(testServices())
	if m.IsWaiting() || m.HistoryCount() != 0 {
		t.Fatal("expected idle lookup with no history")
	}
}

func TestLookupModelSubmit(t *testing.T) {
	m := NewLookupModel(testServices())
	m.SetSize(120, 40)
	m.input.SetValue("  SOL ")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !updated.IsWaiting() || cmd == nil {
		t.Fatal("expected a lookup in flight after enter")
	}
}

func TestLookupModelEmptyInputIgnored(t *testing.T) {
	m := NewLookupModel(testServices())
	m.SetSize(120, 40)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if updated.IsWaiting() {
		t.Fatal("expected no lookup for empty input")
	}
}

func TestLookupCmdFormatsTrend(t *testing.T) {
	svc := Services{
		Trends: &stubTrends{
			states: map[string]*domain.TrendState{"SOL": {Asset: "SOL", Trend: domain.TrendBullish}},
			snap:   domain.IndicatorSnapshot{SMAShort: 2, SMALong: 1, RSI: 80},
		},
		Assets: &stubAssets{tokens: []*domain.Token{{Mint: "SOL", Name: "Solana", Ticker: "SOL"}}},
	}
	msg := NewLookupModel(svc).lookupCmd("SOL")()
	reply, ok := msg.(lookupReplyMsg)
	if !ok {
		t.Fatalf("expected lookupReplyMsg, got %#v", msg)
	}
	if !strings.Contains(reply.reply, "Bullish") {
		t.Fatalf("expected trend in reply: %s", reply.reply)
	}

	m := NewLookupModel(svc)
	m.SetSize(120, 40)
	m.waiting = true
	m, _ = m.Update(reply)
	if m.IsWaiting() || m.HistoryCount() != 1 {
		t.Fatal("expected reply to be recorded")
	}
}

func TestLookupCmdErrors(t *testing.T) {
	svc := Services{Trends: &stubTrends{err: errors.New("db down")}}
	if _, ok := NewLookupModel(svc).lookupCmd("SOL")().(lookupErrMsg); !ok {
		t.Fatal("expected lookupErrMsg on state error")
	}
	svc = Services{Trends: &stubTrends{snapErr: errors.New("db down")}}
	if _, ok := NewLookupModel(svc).lookupCmd("SOL")().(lookupErrMsg); !ok {
		t.Fatal("expected lookupErrMsg on indicator error")
	}
}

func TestLookupViewWithoutTrends(t *testing.T) {
	m := NewLookupModel(Services{})
	m.SetSize(120, 40)
	if !strings.Contains(m.View(), "not available") {
		t.Fatal("expected unavailable notice")
	}
}
