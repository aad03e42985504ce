package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/user/company-lookup/internal/browser"
	"github.com/user/company-lookup/internal/entity"
	"github.com/user/company-lookup/pkg/logger"
	"github.com/user/company-lookup/pkg/metrics"
)

const (
	// DefaultTargetURL is the MCA master-data search page.
	DefaultTargetURL = "https://www.mca.gov.in/content/mca/global/en/mca/master-data/MDS.html"

	defaultWaitTimeout     = 10 * time.Second
	defaultPageLoadTimeout = 30 * time.Second
)

var (
	ErrExtractionTimeout = errors.New("timed out waiting for page")
	ErrMalformedResult   = errors.New("result row is missing its label or value")
	ErrNavigation        = errors.New("navigation failed")
)

// Steps of the search protocol, used in StepError and log context.
const (
	StepNavigate    = "navigate"
	StepWaitInput   = "wait_search_input"
	StepEnterQuery  = "enter_query"
	StepWaitSubmit  = "wait_search_submit"
	StepSubmit      = "submit"
	StepWaitResults = "wait_results"
	StepExtractRows = "extract_rows"
)

// StepError records which protocol step failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Target describes the page contract the protocol runs against.
type Target struct {
	URL         string
	SearchInput browser.Locator
	SubmitBtn   browser.Locator
	ResultRow   browser.Locator
	RowLabel    browser.Locator
	RowValue    browser.Locator
}

// DefaultTarget returns the registry page contract. A non-empty url replaces
// the page address; the element identifiers are fixed.
func DefaultTarget(url string) Target {
	if url == "" {
		url = DefaultTargetURL
	}
	return Target{
		URL:         url,
		SearchInput: browser.ByID("company-search"),
		SubmitBtn:   browser.ByID("search-submit"),
		ResultRow:   browser.ByClass("company-result"),
		RowLabel:    browser.ByClass("detail-key"),
		RowValue:    browser.ByClass("detail-value"),
	}
}

// SessionProvider hands out the browser session a lookup runs on. Release
// discards a session that has gone away so the next Acquire starts afresh.
type SessionProvider interface {
	Acquire(ctx context.Context) (browser.Session, error)
	Release() error
}

// Extractor runs the search-and-scrape protocol for one query at a time.
type Extractor struct {
	sessions        SessionProvider
	target          Target
	sink            logger.Sink
	metrics         *metrics.Metrics
	waitTimeout     time.Duration
	pageLoadTimeout time.Duration
}

// ExtractorOption customizes an Extractor.
type ExtractorOption func(*Extractor)

// WithWaitTimeout bounds every element wait.
func WithWaitTimeout(d time.Duration) ExtractorOption {
	return func(e *Extractor) { e.waitTimeout = d }
}

// WithPageLoadTimeout bounds navigation to the target page.
func WithPageLoadTimeout(d time.Duration) ExtractorOption {
	return func(e *Extractor) { e.pageLoadTimeout = d }
}

// WithMetrics records lookup outcomes and durations.
func WithMetrics(m *metrics.Metrics) ExtractorOption {
	return func(e *Extractor) { e.metrics = m }
}

// NewExtractor creates an Extractor for target using sessions from provider.
func NewExtractor(provider SessionProvider, target Target, sink logger.Sink, opts ...ExtractorOption) *Extractor {
	if sink == nil {
		sink = logger.Nop()
	}
	e := &Extractor{
		sessions:        provider,
		target:          target,
		sink:            sink,
		waitTimeout:     defaultWaitTimeout,
		pageLoadTimeout: defaultPageLoadTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Fetch searches the registry for query and returns one label/value pair per
// result row.
//
// ok is false when the lookup produced nothing usable: no rows rendered in
// time, a row was malformed, or any page interaction failed. Callers cannot
// distinguish a query with zero matches from a broken page; details go only
// to the log sink. err is non-nil only when the browser session could not be
// set up, and is then a *browser.SessionSetupError.
func (e *Extractor) Fetch(ctx context.Context, query string) (record entity.CompanyRecord, ok bool, err error) {
	start := time.Now()
	sess, err := e.sessions.Acquire(ctx)
	if err != nil {
		e.metrics.ObserveLookup("error", FailureReason(err), time.Since(start))
		return nil, false, err
	}

	record, err = e.run(ctx, sess, query)
	if err != nil {
		reason := FailureReason(err)
		e.metrics.ObserveLookup("absent", reason, time.Since(start))
		step := "unknown"
		var stepErr *StepError
		if errors.As(err, &stepErr) {
			step = stepErr.Step
		}
		e.sink.Event(slog.LevelError, "Error fetching company data",
			"query", query,
			"url", e.target.URL,
			"step", step,
			"reason", reason,
			"elapsed_ms", time.Since(start).Milliseconds(),
			"error", fmt.Sprintf("%+v", err),
		)
		if errors.Is(err, browser.ErrSessionClosed) {
			e.discardSession(query)
		}
		return nil, false, nil
	}

	e.metrics.ObserveLookup("found", "", time.Since(start))
	e.sink.Event(slog.LevelInfo, "Fetched company data",
		"query", query,
		"fields", len(record),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return record, true, nil
}

// discardSession drops a session whose browser is gone.
func (e *Extractor) discardSession(query string) {
	if err := e.sessions.Release(); err != nil {
		e.sink.Event(slog.LevelWarn, "Failed to release lost browser session",
			"query", query,
			"error", err,
		)
		return
	}
	e.sink.Event(slog.LevelWarn, "Browser session lost, next lookup starts a new one",
		"query", query,
	)
}

func (e *Extractor) run(ctx context.Context, sess browser.Session, query string) (entity.CompanyRecord, error) {
	t := e.target

	if err := e.bounded(ctx, e.pageLoadTimeout, func(ctx context.Context) error {
		return sess.Navigate(ctx, t.URL)
	}); err != nil {
		return nil, stepFailed(StepNavigate, fmt.Errorf("%w: %w", ErrNavigation, err))
	}

	if err := e.wait(ctx, sess, t.SearchInput, browser.Present); err != nil {
		return nil, stepFailed(StepWaitInput, err)
	}

	if err := e.bounded(ctx, e.waitTimeout, func(ctx context.Context) error {
		if err := sess.Clear(ctx, t.SearchInput); err != nil {
			return err
		}
		return sess.Type(ctx, t.SearchInput, query)
	}); err != nil {
		return nil, stepFailed(StepEnterQuery, err)
	}

	if err := e.wait(ctx, sess, t.SubmitBtn, browser.Interactable); err != nil {
		return nil, stepFailed(StepWaitSubmit, err)
	}

	if err := e.bounded(ctx, e.waitTimeout, func(ctx context.Context) error {
		return sess.Click(ctx, t.SubmitBtn)
	}); err != nil {
		return nil, stepFailed(StepSubmit, err)
	}

	if err := e.wait(ctx, sess, t.ResultRow, browser.Present); err != nil {
		return nil, stepFailed(StepWaitResults, err)
	}

	var record entity.CompanyRecord
	if err := e.bounded(ctx, e.waitTimeout, func(ctx context.Context) error {
		var err error
		record, err = e.extractRows(ctx, sess)
		return err
	}); err != nil {
		return nil, stepFailed(StepExtractRows, err)
	}
	return record, nil
}

func (e *Extractor) extractRows(ctx context.Context, sess browser.Session) (entity.CompanyRecord, error) {
	t := e.target
	rows, err := sess.FindAll(ctx, t.ResultRow)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		// Rows vanished between the wait and the read.
		return nil, fmt.Errorf("%w: no %s rows on page", ErrMalformedResult, t.ResultRow)
	}

	record := make(entity.CompanyRecord, len(rows))
	for i, row := range rows {
		label, err := cellText(ctx, row, t.RowLabel)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		value, err := cellText(ctx, row, t.RowValue)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		record[label] = value
	}
	return record, nil
}

func cellText(ctx context.Context, row browser.Element, loc browser.Locator) (string, error) {
	cell, err := row.Find(ctx, loc)
	if err != nil {
		if errors.Is(err, browser.ErrElementNotFound) {
			return "", fmt.Errorf("%w: %w", ErrMalformedResult, err)
		}
		return "", err
	}
	return cell.Text(ctx)
}

func (e *Extractor) wait(ctx context.Context, sess browser.Session, loc browser.Locator, cond browser.Condition) error {
	err := e.bounded(ctx, e.waitTimeout, func(ctx context.Context) error {
		return sess.WaitFor(ctx, loc, cond)
	})
	if err != nil {
		return fmt.Errorf("%s to be %s: %w", loc, cond, err)
	}
	return nil
}

// bounded runs fn under a deadline of d, mapping an expired deadline to
// ErrExtractionTimeout.
func (e *Extractor) bounded(ctx context.Context, d time.Duration, fn func(context.Context) error) error {
	stepCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	err := fn(stepCtx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %w", ErrExtractionTimeout, d, err)
	}
	return err
}

func stepFailed(step string, err error) error {
	return &StepError{Step: step, Err: err}
}

// FailureReason classifies a lookup error for logs and metric labels.
func FailureReason(err error) string {
	var setupErr *browser.SessionSetupError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &setupErr):
		return "session_setup"
	case errors.Is(err, browser.ErrSessionClosed):
		return "session_lost"
	case errors.Is(err, ErrExtractionTimeout):
		return "timeout"
	case errors.Is(err, ErrMalformedResult):
		return "malformed"
	case errors.Is(err, ErrNavigation):
		return "navigation"
	default:
		return "unknown"
	}
}
