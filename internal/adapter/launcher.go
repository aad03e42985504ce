// Package adapter selects the browser automation backend.
package adapter

import (
	"fmt"

	"github.com/user/company-lookup/internal/adapter/chromedp_session"
	"github.com/user/company-lookup/internal/adapter/playwright_session"
	"github.com/user/company-lookup/internal/adapter/rod_session"
	"github.com/user/company-lookup/internal/browser"
	"github.com/user/company-lookup/pkg/config"
	"github.com/user/company-lookup/pkg/logger"
)

// NewLauncher returns the launcher for backend, one of the config.Backend*
// names.
func NewLauncher(backend string, sink logger.Sink) (browser.Launcher, error) {
	switch backend {
	case config.BackendChromedp, "":
		return chromedp_session.NewLauncher(sink), nil
	case config.BackendRod:
		return rod_session.NewLauncher(), nil
	case config.BackendPlaywright:
		return playwright_session.NewLauncher(), nil
	default:
		return nil, fmt.Errorf("unknown browser backend %q", backend)
	}
}
