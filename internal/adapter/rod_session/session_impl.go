package rod_session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/user/company-lookup/internal/browser"
)

const backendName = "rod"

// Launcher starts Chromium sessions through go-rod.
type Launcher struct{}

// NewLauncher creates a go-rod launcher.
func NewLauncher() *Launcher {
	return &Launcher{}
}

func (l *Launcher) Name() string { return backendName }

// Launch starts a browser process and opens a blank page. When
// opts.BinaryPath is empty rod resolves (and if needed downloads) Chromium.
func (l *Launcher) Launch(ctx context.Context, opts browser.LaunchOptions) (browser.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, &browser.SessionSetupError{Backend: backendName, Err: err}
	}

	ln := launcher.New().
		Headless(opts.Headless).
		NoSandbox(opts.NoSandbox)
	if opts.DisableDevShm {
		ln = ln.Set("disable-dev-shm-usage")
	}
	if opts.DisableGPU {
		ln = ln.Set("disable-gpu")
	}
	if opts.WindowWidth > 0 && opts.WindowHeight > 0 {
		ln = ln.Set("window-size", fmt.Sprintf("%d,%d", opts.WindowWidth, opts.WindowHeight))
	}
	if opts.UserAgent != "" {
		ln = ln.Set("user-agent", opts.UserAgent)
	}
	if opts.BinaryPath != "" {
		ln = ln.Bin(opts.BinaryPath)
	}

	controlURL, err := ln.Launch()
	if err != nil {
		return nil, &browser.SessionSetupError{Backend: backendName, Err: fmt.Errorf("launch browser: %w", err)}
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		ln.Kill()
		return nil, &browser.SessionSetupError{Backend: backendName, Err: fmt.Errorf("connect to browser: %w", err)}
	}

	p, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = b.Close()
		return nil, &browser.SessionSetupError{Backend: backendName, Err: fmt.Errorf("open page: %w", err)}
	}

	// Dismiss alert() boxes so they cannot block input.
	go p.EachEvent(func(e *proto.PageJavascriptDialogOpening) {
		_ = proto.PageHandleJavaScriptDialog{Accept: false}.Call(p)
	})()

	return &Session{launcher: ln, browser: b, page: p}, nil
}

// livenessTimeout bounds the page liveness check run after a failed operation.
const livenessTimeout = 2 * time.Second

// Session drives a single rod page.
type Session struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

// wrap marks err with browser.ErrSessionClosed when the page no longer
// answers, and otherwise attaches ctx's error.
func (s *Session) wrap(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if !s.alive() {
		return fmt.Errorf("%w: %w", browser.ErrSessionClosed, err)
	}
	return browser.ContextError(ctx, err)
}

func (s *Session) alive() bool {
	checkCtx, cancel := context.WithTimeout(context.Background(), livenessTimeout)
	defer cancel()
	_, err := s.page.Context(checkCtx).Info()
	return err == nil
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return s.wrap(ctx, err)
	}
	return s.wrap(ctx, p.WaitLoad())
}

func (s *Session) element(ctx context.Context, loc browser.Locator) (*rod.Element, error) {
	// Element retries until the selector matches or ctx ends.
	el, err := s.page.Context(ctx).Element(loc.CSS())
	if err != nil {
		return nil, s.wrap(ctx, err)
	}
	return el, nil
}

func (s *Session) WaitFor(ctx context.Context, loc browser.Locator, cond browser.Condition) error {
	el, err := s.element(ctx, loc)
	if err != nil {
		return err
	}
	if cond != browser.Interactable {
		return nil
	}
	if err := el.WaitVisible(); err != nil {
		return s.wrap(ctx, err)
	}
	return s.wrap(ctx, el.WaitEnabled())
}

func (s *Session) Clear(ctx context.Context, loc browser.Locator) error {
	el, err := s.element(ctx, loc)
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err != nil {
		return s.wrap(ctx, err)
	}
	return s.wrap(ctx, el.Input(""))
}

func (s *Session) Type(ctx context.Context, loc browser.Locator, text string) error {
	el, err := s.element(ctx, loc)
	if err != nil {
		return err
	}
	return s.wrap(ctx, el.Input(text))
}

func (s *Session) Click(ctx context.Context, loc browser.Locator) error {
	el, err := s.element(ctx, loc)
	if err != nil {
		return err
	}
	return s.wrap(ctx, el.Click(proto.InputMouseButtonLeft, 1))
}

func (s *Session) FindAll(ctx context.Context, loc browser.Locator) ([]browser.Element, error) {
	els, err := s.page.Context(ctx).Elements(loc.CSS())
	if err != nil {
		return nil, s.wrap(ctx, err)
	}
	out := make([]browser.Element, 0, len(els))
	for _, el := range els {
		out = append(out, &element{s: s, el: el})
	}
	return out, nil
}

// Close shuts the browser down and removes its user-data directory.
func (s *Session) Close() error {
	err := s.browser.Close()
	if err != nil {
		s.launcher.Kill()
	}
	s.launcher.Cleanup()
	return err
}

type element struct {
	s  *Session
	el *rod.Element
}

func (e *element) Find(ctx context.Context, loc browser.Locator) (browser.Element, error) {
	// Elements does not wait, unlike Element.
	els, err := e.el.Context(ctx).Elements(loc.CSS())
	if err != nil {
		return nil, e.s.wrap(ctx, err)
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%s: %w", loc, browser.ErrElementNotFound)
	}
	return &element{s: e.s, el: els.First()}, nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	text, err := e.el.Context(ctx).Text()
	if err != nil {
		return "", e.s.wrap(ctx, err)
	}
	return strings.TrimSpace(text), nil
}
