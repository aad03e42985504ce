// Package browsertest provides in-memory browser sessions for tests.
package browsertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/user/company-lookup/internal/browser"
)

// Session is a scripted browser.Session. Navigate loads Page; clicking any
// element replaces the page with Results(current input value). Waits poll
// the current HTML until the locator matches or ctx expires.
type Session struct {
	Page    string
	Results func(query string) string

	NavigateErr error
	CloseErr    error
	// Disabled lists locators that never become interactable.
	Disabled []browser.Locator
	// Lost makes every page operation fail as if the browser had crashed.
	Lost bool

	mu     sync.Mutex
	html   string
	input  string
	calls  []string
	closed bool
}

var _ browser.Session = (*Session)(nil)

func (s *Session) record(format string, args ...any) {
	s.calls = append(s.calls, fmt.Sprintf(format, args...))
}

var errTargetCrashed = fmt.Errorf("target crashed: %w", browser.ErrSessionClosed)

// Calls returns the operations performed so far, in order.
func (s *Session) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Input returns the current value of the typed-into control.
func (s *Session) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("navigate %s", url)
	if s.Lost {
		return errTargetCrashed
	}
	if s.NavigateErr != nil {
		return s.NavigateErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.html = s.Page
	return nil
}

func (s *Session) WaitFor(ctx context.Context, loc browser.Locator, cond browser.Condition) error {
	s.mu.Lock()
	s.record("wait %s %s", loc, cond)
	lost := s.Lost
	s.mu.Unlock()
	if lost {
		return errTargetCrashed
	}
	for {
		if s.satisfied(loc, cond) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}

func (s *Session) satisfied(loc browser.Locator, cond browser.Condition) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cond == browser.Interactable {
		for _, d := range s.Disabled {
			if d == loc {
				return false
			}
		}
	}
	snap, err := browser.NewSnapshot(s.html)
	if err != nil {
		return false
	}
	return len(snap.FindAll(loc)) > 0
}

func (s *Session) Clear(_ context.Context, loc browser.Locator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("clear %s", loc)
	if s.Lost {
		return errTargetCrashed
	}
	s.input = ""
	return nil
}

func (s *Session) Type(_ context.Context, loc browser.Locator, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("type %s %q", loc, text)
	if s.Lost {
		return errTargetCrashed
	}
	s.input += text
	return nil
}

func (s *Session) Click(_ context.Context, loc browser.Locator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("click %s", loc)
	if s.Lost {
		return errTargetCrashed
	}
	if s.Results != nil {
		s.html = s.Results(s.input)
	}
	return nil
}

func (s *Session) FindAll(_ context.Context, loc browser.Locator) ([]browser.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Lost {
		return nil, errTargetCrashed
	}
	snap, err := browser.NewSnapshot(s.html)
	if err != nil {
		return nil, err
	}
	return snap.FindAll(loc), nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.CloseErr
}

// Launcher hands out sessions from New, or fails with Err.
type Launcher struct {
	New func() *Session
	Err error

	mu       sync.Mutex
	launched []*Session
	opts     []browser.LaunchOptions
}

var _ browser.Launcher = (*Launcher)(nil)

func (l *Launcher) Name() string { return "fake" }

func (l *Launcher) Launch(_ context.Context, opts browser.LaunchOptions) (browser.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.opts = append(l.opts, opts)
	if l.Err != nil {
		return nil, l.Err
	}
	sess := &Session{}
	if l.New != nil {
		sess = l.New()
	}
	l.launched = append(l.launched, sess)
	return sess, nil
}

// Launched returns every session created so far.
func (l *Launcher) Launched() []*Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Session(nil), l.launched...)
}

// Options returns the launch options of every attempt.
func (l *Launcher) Options() []browser.LaunchOptions {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]browser.LaunchOptions(nil), l.opts...)
}
