package chromedp_session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/inspector"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/user/company-lookup/internal/browser"
	"github.com/user/company-lookup/pkg/logger"
)

const backendName = "chromedp"

// Launcher starts Chrome sessions through chromedp.
type Launcher struct {
	sink logger.Sink
}

// NewLauncher creates a chromedp launcher. Browser protocol errors go to sink
// at debug level.
func NewLauncher(sink logger.Sink) *Launcher {
	if sink == nil {
		sink = logger.Nop()
	}
	return &Launcher{sink: sink}
}

func (l *Launcher) Name() string { return backendName }

// Launch starts a browser process and opens one tab. The browser outlives
// ctx; ctx only bounds startup.
func (l *Launcher) Launch(ctx context.Context, opts browser.LaunchOptions) (browser.Session, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("no-sandbox", opts.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", opts.DisableDevShm),
		chromedp.Flag("disable-gpu", opts.DisableGPU),
		chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight),
		chromedp.UserAgent(opts.UserAgent),
	)
	if opts.BinaryPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.BinaryPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithErrorf(func(format string, args ...any) {
		l.sink.Event(slog.LevelDebug, "chromedp error", "detail", fmt.Sprintf(format, args...))
	}))

	sess := &Session{
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
	}

	chromedp.ListenTarget(tabCtx, func(ev any) {
		switch ev.(type) {
		case *page.EventJavascriptDialogOpening:
			// Government portals occasionally raise alert() boxes that block input.
			go func() {
				_ = chromedp.Run(tabCtx, page.HandleJavaScriptDialog(false))
			}()
		case *inspector.EventTargetCrashed, *inspector.EventDetached:
			sess.lost.Store(true)
		}
	})

	stop := context.AfterFunc(ctx, tabCancel)
	err := chromedp.Run(tabCtx)
	stop()
	if err != nil {
		tabCancel()
		allocCancel()
		return nil, &browser.SessionSetupError{Backend: backendName, Err: browser.ContextError(ctx, err)}
	}

	return sess, nil
}

// Session drives a single Chrome tab.
type Session struct {
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc

	// lost is set once the tab crashed or was detached.
	lost atomic.Bool
}

// run executes actions on the tab under ctx's deadline and cancellation.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	opCtx, cancel := context.WithCancel(s.tabCtx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		opCtx, cancelDeadline = context.WithDeadline(opCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(opCtx, actions...)
	if err == nil {
		return nil
	}
	// A finished tab context means the browser exited or the tab went away.
	if s.lost.Load() || s.tabCtx.Err() != nil || errors.Is(err, chromedp.ErrInvalidContext) {
		return fmt.Errorf("%w: %w", browser.ErrSessionClosed, err)
	}
	return browser.ContextError(opCtx, err)
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url))
}

func (s *Session) WaitFor(ctx context.Context, loc browser.Locator, cond browser.Condition) error {
	sel := loc.CSS()
	switch cond {
	case browser.Interactable:
		return s.run(ctx,
			chromedp.WaitVisible(sel, chromedp.ByQuery),
			chromedp.WaitEnabled(sel, chromedp.ByQuery),
		)
	default:
		return s.run(ctx, chromedp.WaitReady(sel, chromedp.ByQuery))
	}
}

func (s *Session) Clear(ctx context.Context, loc browser.Locator) error {
	return s.run(ctx, chromedp.Clear(loc.CSS(), chromedp.ByQuery))
}

func (s *Session) Type(ctx context.Context, loc browser.Locator, text string) error {
	return s.run(ctx, chromedp.SendKeys(loc.CSS(), text, chromedp.ByQuery))
}

func (s *Session) Click(ctx context.Context, loc browser.Locator) error {
	return s.run(ctx, chromedp.Click(loc.CSS(), chromedp.ByQuery))
}

// FindAll returns the live nodes matching loc without waiting.
func (s *Session) FindAll(ctx context.Context, loc browser.Locator) ([]browser.Element, error) {
	var nodes []*cdp.Node
	if err := s.run(ctx, chromedp.Nodes(loc.CSS(), &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, err
	}
	out := make([]browser.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &element{s: s, node: n})
	}
	return out, nil
}

// Close shuts the browser down and waits for the process to exit.
func (s *Session) Close() error {
	err := chromedp.Cancel(s.tabCtx)
	s.tabCancel()
	s.allocCancel()
	return err
}

// element is a DOM node of the session's tab.
type element struct {
	s    *Session
	node *cdp.Node
}

func (e *element) Find(ctx context.Context, loc browser.Locator) (browser.Element, error) {
	var nodes []*cdp.Node
	err := e.s.run(ctx, chromedp.Nodes(loc.CSS(), &nodes,
		chromedp.ByQueryAll, chromedp.FromNode(e.node), chromedp.AtLeast(0)))
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%s: %w", loc, browser.ErrElementNotFound)
	}
	return &element{s: e.s, node: nodes[0]}, nil
}

// Text returns the node's rendered (innerText) text.
func (e *element) Text(ctx context.Context) (string, error) {
	var text string
	if err := e.s.run(ctx, chromedp.Text([]cdp.NodeID{e.node.NodeID}, &text, chromedp.ByNodeID)); err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
