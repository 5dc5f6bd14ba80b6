package tui

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestNewSSHServer(t *testing.T) {
	srv, err := NewSSHServer(zap.NewNop(), testServices(), ServerOptions{
		Addr:        "127.0.0.1:0",
		HostKeyPath: filepath.Join(t.TempDir(), "host_ed25519"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if srv.Addr != "127.0.0.1:0" {
		t.Fatalf("unexpected address %q", srv.Addr)
	}
	_ = srv.Close()
}
