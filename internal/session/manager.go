package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/user/company-lookup/internal/browser"
	"github.com/user/company-lookup/pkg/logger"
	"github.com/user/company-lookup/pkg/metrics"
)

// State is the lifecycle position of the managed session.
type State int

const (
	// StateAbsent means no session has been launched yet.
	StateAbsent State = iota
	// StateActive means a live session is held.
	StateActive
	// StateClosed means the last session was released. The next Acquire
	// launches a fresh one.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Manager provisions, holds and releases exactly one browser session.
//
// Manager does no locking; one goroutine owns it at a time.
type Manager struct {
	launcher browser.Launcher
	opts     browser.LaunchOptions
	sink     logger.Sink
	metrics  *metrics.Metrics

	state   State
	current browser.Session
}

// NewManager creates a Manager that launches sessions with opts on first use.
func NewManager(launcher browser.Launcher, opts browser.LaunchOptions, sink logger.Sink, m *metrics.Metrics) *Manager {
	if sink == nil {
		sink = logger.Nop()
	}
	return &Manager{
		launcher: launcher,
		opts:     opts,
		sink:     sink,
		metrics:  m,
		state:    StateAbsent,
	}
}

// State reports the current lifecycle state.
func (m *Manager) State() State {
	return m.state
}

// Acquire returns the live session, launching one if none is active.
// Launch failures are returned as *browser.SessionSetupError.
func (m *Manager) Acquire(ctx context.Context) (browser.Session, error) {
	if m.state == StateActive {
		return m.current, nil
	}

	start := time.Now()
	sess, err := m.launcher.Launch(ctx, m.opts)
	m.metrics.SessionLaunched(m.launcher.Name(), err)
	if err != nil {
		var setupErr *browser.SessionSetupError
		if !errors.As(err, &setupErr) {
			setupErr = &browser.SessionSetupError{Backend: m.launcher.Name(), Err: err}
		}
		m.sink.Event(slog.LevelError, "Failed to set up browser session",
			"backend", m.launcher.Name(),
			"headless", m.opts.Headless,
			"binary", m.opts.BinaryPath,
			"elapsed_ms", time.Since(start).Milliseconds(),
			"error", fmt.Sprintf("%+v", err),
		)
		return nil, setupErr
	}

	m.current = sess
	m.state = StateActive
	m.sink.Event(slog.LevelInfo, "Browser session started",
		"backend", m.launcher.Name(),
		"headless", m.opts.Headless,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return sess, nil
}

// Release closes the live session. It is a no-op when no session is active.
func (m *Manager) Release() error {
	if m.state != StateActive {
		return nil
	}
	sess := m.current
	m.current = nil
	m.state = StateClosed
	m.metrics.SessionClosed()

	if err := sess.Close(); err != nil {
		m.sink.Event(slog.LevelWarn, "Browser session did not close cleanly",
			"backend", m.launcher.Name(), "error", err)
		return fmt.Errorf("close browser session: %w", err)
	}
	m.sink.Event(slog.LevelInfo, "Browser session closed", "backend", m.launcher.Name())
	return nil
}
