package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	bm "github.com/charmbracelet/wish/bubbletea"
	"go.uber.org/zap"
)

type ServerOptions struct {
	Addr           string
	HostKeyPath    string
	AuthorizedKeys string
	IdleTimeout    time.Duration
}

// NewSSHServer serves the dashboard to every SSH session. Sessions share
// services but each gets its own model. When AuthorizedKeys is set only those
// keys may connect.
func NewSSHServer(logger *zap.Logger, svc Services, opts ServerOptions) (*ssh.Server, error) {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 30 * time.Minute
	}
	options := []ssh.Option{
		wish.WithAddress(opts.Addr),
		wish.WithHostKeyPath(opts.HostKeyPath),
		wish.WithIdleTimeout(opts.IdleTimeout),
		wish.WithMiddleware(
			bm.Middleware(sessionHandler(svc)),
			activeterm.Middleware(),
			sessionLogger(logger),
		),
	}
	if opts.AuthorizedKeys != "" {
		options = append(options, wish.WithAuthorizedKeys(opts.AuthorizedKeys))
	}
	srv, err := wish.NewServer(options...)
	if err != nil {
		return nil, fmt.Errorf("create ssh server: %w", err)
	}
	return srv, nil
}

func sessionHandler(svc Services) bm.Handler {
	return func(s ssh.Session) (tea.Model, []tea.ProgramOption) {
		session := svc
		session.Username = s.User()
		m := NewAppModel(session)
		if pty, _, ok := s.Pty(); ok {
			m.SetSize(pty.Window.Width, pty.Window.Height)
		}
		return m, []tea.ProgramOption{tea.WithAltScreen()}
	}
}

func sessionLogger(logger *zap.Logger) wish.Middleware {
	return func(next ssh.Handler) ssh.Handler {
		return func(s ssh.Session) {
			start := time.Now()
			logger.Info("ssh session opened", zap.String("user", s.User()), zap.String("remote", s.RemoteAddr().String()))
			next(s)
			logger.Info("ssh session closed", zap.String("user", s.User()), zap.Duration("duration", time.Since(start)))
		}
	}
}
