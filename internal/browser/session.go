package browser

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrElementNotFound is returned by Element.Find when no sub-element matches.
	ErrElementNotFound = errors.New("element not found")
	// ErrSessionClosed marks failures caused by the browser or tab having gone
	// away. The session cannot be used again.
	ErrSessionClosed = errors.New("browser session closed")
)

// DefaultUserAgent is the identification string every backend launches with.
const DefaultUserAgent = `Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36`

// LaunchOptions is the immutable startup configuration of a browser session.
type LaunchOptions struct {
	Headless      bool
	NoSandbox     bool
	DisableDevShm bool
	DisableGPU    bool
	WindowWidth   int
	WindowHeight  int
	UserAgent     string
	BinaryPath    string // empty lets the backend resolve the browser
}

// DefaultLaunchOptions returns the fixed launch flags with the given headless toggle.
func DefaultLaunchOptions(headless bool) LaunchOptions {
	return LaunchOptions{
		Headless:      headless,
		NoSandbox:     true,
		DisableDevShm: true,
		DisableGPU:    true,
		WindowWidth:   1920,
		WindowHeight:  1080,
		UserAgent:     DefaultUserAgent,
	}
}

// Args renders the options as Chromium command-line switches, without the
// leading dashes. Backends that take raw arguments use this.
func (o LaunchOptions) Args() []string {
	var args []string
	if o.Headless {
		args = append(args, "headless")
	}
	if o.NoSandbox {
		args = append(args, "no-sandbox")
	}
	if o.DisableDevShm {
		args = append(args, "disable-dev-shm-usage")
	}
	if o.DisableGPU {
		args = append(args, "disable-gpu")
	}
	if o.WindowWidth > 0 && o.WindowHeight > 0 {
		args = append(args, fmt.Sprintf("window-size=%d,%d", o.WindowWidth, o.WindowHeight))
	}
	if o.UserAgent != "" {
		args = append(args, "user-agent="+o.UserAgent)
	}
	return args
}

// Session is a live handle to a controllable browser page.
//
// Implementations are not safe for concurrent use. Every blocking method
// honors the deadline of ctx; an expired deadline yields an error matching
// context.DeadlineExceeded.
type Session interface {
	Navigate(ctx context.Context, url string) error
	WaitFor(ctx context.Context, loc Locator, cond Condition) error
	Clear(ctx context.Context, loc Locator) error
	Type(ctx context.Context, loc Locator, text string) error
	Click(ctx context.Context, loc Locator) error
	// FindAll returns every element matching loc without waiting.
	FindAll(ctx context.Context, loc Locator) ([]Element, error)
	Close() error
}

// Element is a located DOM node.
type Element interface {
	// Find returns the first descendant matching loc, or ErrElementNotFound.
	Find(ctx context.Context, loc Locator) (Element, error)
	// Text returns the rendered text content, trimmed of surrounding whitespace.
	Text(ctx context.Context) (string, error)
}

// Launcher starts browser sessions for one automation backend.
type Launcher interface {
	Name() string
	Launch(ctx context.Context, opts LaunchOptions) (Session, error)
}

// SessionSetupError reports that a browser could not be provisioned or started.
type SessionSetupError struct {
	Backend string
	Err     error
}

func (e *SessionSetupError) Error() string {
	return fmt.Sprintf("browser session setup failed (%s): %v", e.Backend, e.Err)
}

func (e *SessionSetupError) Unwrap() error {
	return e.Err
}

// ContextError joins ctx's error onto err once ctx has ended, so callers can
// match context.DeadlineExceeded however the backend phrased the failure.
func ContextError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if cerr := ctx.Err(); cerr != nil && !errors.Is(err, cerr) {
		return fmt.Errorf("%w: %w", cerr, err)
	}
	return err
}
