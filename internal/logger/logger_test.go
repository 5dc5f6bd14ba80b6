package logger

import "testing"

func TestNewDefaults(t *testing.T) {
	l, err := New("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !l.Core().Enabled(0) {
		t.Fatal("expected info level to be enabled")
	}
	if l.Core().Enabled(-1) {
		t.Fatal("expected debug level to be disabled by default")
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	if _, err := New("loud", "json"); err == nil {
		t.Fatal("expected level error")
	}
	if _, err := New("info", "xml"); err == nil {
		t.Fatal("expected format error")
	}
}

func TestNewConsoleDebug(t *testing.T) {
	l, err := New("DEBUG", "console")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !l.Core().Enabled(-1) {
		t.Fatal("expected debug level to be enabled")
	}
}
