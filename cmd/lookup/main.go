package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"go.uber.org/zap"

	"github.com/user/company-lookup/internal/adapter"
	"github.com/user/company-lookup/internal/browser"
	"github.com/user/company-lookup/internal/session"
	"github.com/user/company-lookup/internal/usecase"
	"github.com/user/company-lookup/pkg/config"
	"github.com/user/company-lookup/pkg/logger"
)

const defaultQuery = "TATA CONSULTANCY SERVICES LIMITED"

var (
	loadConfigFn    = config.Load
	newLauncherFn   = adapter.NewLauncher
	newProductionFn = func() (*zap.Logger, error) { return zap.NewProduction() }
)

func main() {
	zl := newLogger()
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, logger.NewZapSink(zl)); err != nil {
		zl.Error("lookup failed", zap.Error(err))
		stop()
		zl.Sync()
		os.Exit(1)
	}
}

// newLogger builds the production zap logger, or a no-op logger when the
// production config cannot be built.
func newLogger() *zap.Logger {
	zl, err := newProductionFn()
	if err != nil {
		fmt.Fprintf(os.Stderr, "lookup: logger unavailable, continuing without logs: %v\n", err)
		return zap.NewNop()
	}
	return zl
}

// run performs one lookup and prints the record to out. It returns an error
// only when the lookup could not start: bad flags, bad configuration or a
// browser that failed to launch. An absent record is printed, not returned.
func run(ctx context.Context, args []string, out io.Writer, sink logger.Sink) (err error) {
	cfg, err := loadConfigFn()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fs := flag.NewFlagSet("lookup", flag.ContinueOnError)
	fs.SetOutput(out)
	headless := fs.Bool("headless", cfg.Headless, "Run the browser without a visible window")
	backend := fs.String("backend", cfg.BrowserBackend, "Browser backend: chromedp, rod or playwright")
	if err := fs.Parse(args); err != nil {
		return err
	}
	query := defaultQuery
	if fs.NArg() > 0 {
		query = fs.Arg(0)
	}

	launcher, err := newLauncherFn(*backend, sink)
	if err != nil {
		return err
	}
	opts := browser.DefaultLaunchOptions(*headless)
	opts.BinaryPath = cfg.BrowserBin

	mgr := session.NewManager(launcher, opts, sink, nil)
	defer func() {
		if relErr := mgr.Release(); relErr != nil && err == nil {
			err = relErr
		}
	}()

	extractor := usecase.NewExtractor(mgr, usecase.DefaultTarget(cfg.TargetURL), sink,
		usecase.WithWaitTimeout(cfg.WaitTimeout),
		usecase.WithPageLoadTimeout(cfg.PageLoadTimeout),
	)

	record, ok, err := extractor.Fetch(ctx, query)
	if err != nil {
		var setupErr *browser.SessionSetupError
		if errors.As(err, &setupErr) {
			return fmt.Errorf("start %s browser: %w", setupErr.Backend, err)
		}
		return err
	}
	if !ok {
		fmt.Fprintln(out, "Failed to fetch company data")
		return nil
	}

	labels := make([]string, 0, len(record))
	for label := range record {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	fmt.Fprintln(out, "Company Details:")
	for _, label := range labels {
		fmt.Fprintf(out, "%s: %s\n", label, record[label])
	}
	return nil
}
