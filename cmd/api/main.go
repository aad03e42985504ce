package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/user/company-lookup/internal/adapter"
	"github.com/user/company-lookup/internal/browser"
	"github.com/user/company-lookup/internal/delivery/http/handler"
	"github.com/user/company-lookup/internal/delivery/http/router"
	"github.com/user/company-lookup/internal/session"
	"github.com/user/company-lookup/internal/usecase"
	"github.com/user/company-lookup/pkg/config"
	"github.com/user/company-lookup/pkg/logger"
	"github.com/user/company-lookup/pkg/metrics"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Could not load config", "error", err)
		os.Exit(1)
	}

	// --- Logger ---
	logLevel := logger.ParseLevel(cfg.LogLevel)
	log := logger.Init(os.Stdout, logLevel)
	slog.Info("Logger initialized", "level", logLevel.String())
	sink := logger.NewSlogSink(log)

	// --- Metrics ---
	m := metrics.New(prometheus.DefaultRegisterer)
	slog.Info("Metrics initialized")

	// --- Browser ---
	launcher, err := adapter.NewLauncher(cfg.BrowserBackend, sink)
	if err != nil {
		slog.Error("Unable to select browser backend", "backend", cfg.BrowserBackend, "error", err)
		os.Exit(1)
	}
	opts := browser.DefaultLaunchOptions(cfg.Headless)
	opts.BinaryPath = cfg.BrowserBin
	sessions := session.NewManager(launcher, opts, sink, m)

	// --- Use Cases ---
	extractor := usecase.NewExtractor(sessions, usecase.DefaultTarget(cfg.TargetURL), sink,
		usecase.WithWaitTimeout(cfg.WaitTimeout),
		usecase.WithPageLoadTimeout(cfg.PageLoadTimeout),
		usecase.WithMetrics(m),
	)
	lookup := usecase.NewCompanyLookup(extractor, sessions)
	defer func() {
		if err := lookup.Close(); err != nil {
			slog.Error("Failed to release browser session", "error", err)
		}
	}()

	// --- HTTP Server ---
	// Navigation plus five bounded waits, with headroom for the response.
	lookupTimeout := cfg.PageLoadTimeout + 5*cfg.WaitTimeout + 5*time.Second
	apiHandler := handler.NewHandler(lookup)
	httpRouter := router.New(apiHandler, router.Options{
		Metrics:       m,
		LookupTimeout: lookupTimeout,
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      httpRouter,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: lookupTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "port", cfg.ServerPort, "backend", launcher.Name(), "target", cfg.TargetURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		slog.Info("Shutting down server", "signal", sig.String())
	case err := <-serverErr:
		slog.Error("Could not listen on port", "port", cfg.ServerPort, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	slog.Info("Server exiting")
}
