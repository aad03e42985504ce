package playwright_session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/user/company-lookup/internal/browser"
)

const backendName = "playwright"

// Launcher starts Chromium sessions through the Playwright driver.
type Launcher struct {
	// SkipInstall assumes the driver and browsers are already provisioned.
	SkipInstall bool
}

// NewLauncher creates a playwright launcher that installs the driver and
// Chromium on first launch when they are missing.
func NewLauncher() *Launcher {
	return &Launcher{}
}

func (l *Launcher) Name() string { return backendName }

func (l *Launcher) Launch(ctx context.Context, opts browser.LaunchOptions) (browser.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, setupErr(err)
	}

	runOpts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if !l.SkipInstall {
		if err := playwright.Install(runOpts); err != nil {
			return nil, setupErr(fmt.Errorf("install playwright driver: %w", err))
		}
	}
	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, setupErr(fmt.Errorf("start playwright driver: %w", err))
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     chromiumArgs(opts),
	}
	if opts.BinaryPath != "" {
		launchOpts.ExecutablePath = playwright.String(opts.BinaryPath)
	}
	b, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		_ = pw.Stop()
		return nil, setupErr(fmt.Errorf("launch browser: %w", err))
	}

	contextOpts := playwright.BrowserNewContextOptions{}
	if opts.WindowWidth > 0 && opts.WindowHeight > 0 {
		contextOpts.Viewport = &playwright.Size{Width: opts.WindowWidth, Height: opts.WindowHeight}
	}
	if opts.UserAgent != "" {
		contextOpts.UserAgent = playwright.String(opts.UserAgent)
	}
	bctx, err := b.NewContext(contextOpts)
	if err != nil {
		_ = b.Close()
		_ = pw.Stop()
		return nil, setupErr(fmt.Errorf("create browser context: %w", err))
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = b.Close()
		_ = pw.Stop()
		return nil, setupErr(fmt.Errorf("open page: %w", err))
	}
	page.OnDialog(func(d playwright.Dialog) {
		_ = d.Dismiss()
	})

	return &Session{pw: pw, browser: b, bctx: bctx, page: page}, nil
}

func setupErr(err error) error {
	return &browser.SessionSetupError{Backend: backendName, Err: err}
}

// chromiumArgs renders the launch flags playwright does not model itself.
func chromiumArgs(opts browser.LaunchOptions) []string {
	var args []string
	for _, a := range opts.Args() {
		// Headless mode and the user agent are set through launch/context options.
		if a == "headless" || strings.HasPrefix(a, "user-agent=") {
			continue
		}
		args = append(args, "--"+a)
	}
	return args
}

// Session drives a single playwright page.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	bctx    playwright.BrowserContext
	page    playwright.Page
}

// timeoutMS converts the remaining time on ctx to a playwright timeout. With
// no deadline playwright's own default applies.
func timeoutMS(ctx context.Context) *float64 {
	deadline, ok := ctx.Deadline()
	if !ok {
		return nil
	}
	ms := float64(time.Until(deadline).Milliseconds())
	if ms < 1 {
		ms = 1
	}
	return playwright.Float(ms)
}

// wrap maps playwright timeouts onto context.DeadlineExceeded.
func wrap(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	return browser.ContextError(ctx, err)
}

// wrap maps err like the package-level wrap and marks it with
// browser.ErrSessionClosed once the page or browser is gone.
func (s *Session) wrap(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTargetClosed) || s.page.IsClosed() || !s.browser.IsConnected() {
		return fmt.Errorf("%w: %w", browser.ErrSessionClosed, err)
	}
	return wrap(ctx, err)
}

func (s *Session) locator(loc browser.Locator) playwright.Locator {
	return s.page.Locator(loc.CSS()).First()
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   timeoutMS(ctx),
		WaitUntil: playwright.WaitUntilStateLoad,
	})
	return s.wrap(ctx, err)
}

func (s *Session) WaitFor(ctx context.Context, loc browser.Locator, cond browser.Condition) error {
	l := s.locator(loc)
	state := playwright.WaitForSelectorStateAttached
	if cond == browser.Interactable {
		state = playwright.WaitForSelectorStateVisible
	}
	if err := l.WaitFor(playwright.LocatorWaitForOptions{State: state, Timeout: timeoutMS(ctx)}); err != nil {
		return s.wrap(ctx, err)
	}
	if cond != browser.Interactable {
		return nil
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		enabled, err := l.IsEnabled(playwright.LocatorIsEnabledOptions{Timeout: timeoutMS(ctx)})
		if err != nil {
			return s.wrap(ctx, err)
		}
		if enabled {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Session) Clear(ctx context.Context, loc browser.Locator) error {
	return s.wrap(ctx, s.locator(loc).Clear(playwright.LocatorClearOptions{Timeout: timeoutMS(ctx)}))
}

func (s *Session) Type(ctx context.Context, loc browser.Locator, text string) error {
	return s.wrap(ctx, s.locator(loc).PressSequentially(text, playwright.LocatorPressSequentiallyOptions{Timeout: timeoutMS(ctx)}))
}

func (s *Session) Click(ctx context.Context, loc browser.Locator) error {
	return s.wrap(ctx, s.locator(loc).Click(playwright.LocatorClickOptions{Timeout: timeoutMS(ctx)}))
}

func (s *Session) FindAll(ctx context.Context, loc browser.Locator) ([]browser.Element, error) {
	all, err := s.page.Locator(loc.CSS()).All()
	if err != nil {
		return nil, s.wrap(ctx, err)
	}
	out := make([]browser.Element, 0, len(all))
	for _, l := range all {
		out = append(out, &element{s: s, loc: l})
	}
	return out, nil
}

func (s *Session) Close() error {
	var errs []error
	if err := s.bctx.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.browser.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.pw.Stop(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

type element struct {
	s   *Session
	loc playwright.Locator
}

func (e *element) Find(ctx context.Context, loc browser.Locator) (browser.Element, error) {
	sub := e.loc.Locator(loc.CSS())
	n, err := sub.Count()
	if err != nil {
		return nil, e.s.wrap(ctx, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%s: %w", loc, browser.ErrElementNotFound)
	}
	return &element{s: e.s, loc: sub.First()}, nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	text, err := e.loc.InnerText(playwright.LocatorInnerTextOptions{Timeout: timeoutMS(ctx)})
	if err != nil {
		return "", e.s.wrap(ctx, err)
	}
	return strings.TrimSpace(text), nil
}
