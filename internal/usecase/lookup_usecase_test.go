package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/company-lookup/internal/browser"
	"github.com/user/company-lookup/internal/browser/browsertest"
	"github.com/user/company-lookup/internal/entity"
	"github.com/user/company-lookup/internal/session"
	"github.com/user/company-lookup/pkg/metrics"
	"github.com/user/company-lookup/pkg/utils"
)

func newLookup(t *testing.T, launcher *browsertest.Launcher) (CompanyLookup, *metrics.Metrics) {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	mgr := session.NewManager(launcher, browser.DefaultLaunchOptions(true), nil, m)
	ext := NewExtractor(mgr, DefaultTarget(""), nil, WithWaitTimeout(testWait), WithMetrics(m))
	lookup := NewCompanyLookup(ext, mgr)
	t.Cleanup(func() { _ = lookup.Close() })
	return lookup, m
}

func TestCompanyLookup_Found(t *testing.T) {
	launcher := &browsertest.Launcher{New: func() *browsertest.Session {
		return &browsertest.Session{
			Page:    searchPage,
			Results: func(q string) string { return renderRows(row{label: "Company Name", value: q}) },
		}
	}}
	lookup, m := newLookup(t, launcher)

	res, err := lookup.Lookup(context.Background(), "ACME PRIVATE LIMITED")
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, entity.CompanyRecord{"Company Name": "ACME PRIVATE LIMITED"}, res.Record)
	assert.Equal(t, utils.HashQuery("ACME PRIVATE LIMITED"), res.QueryID)
	assert.False(t, res.FetchedAt.IsZero())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LookupsTotal.WithLabelValues("found", "")))
}

func TestCompanyLookup_Absent(t *testing.T) {
	launcher := &browsertest.Launcher{New: func() *browsertest.Session {
		return &browsertest.Session{Page: searchPage}
	}}
	lookup, m := newLookup(t, launcher)

	res, err := lookup.Lookup(context.Background(), "NOBODY")
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Nil(t, res.Record)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LookupsTotal.WithLabelValues("absent", "timeout")))
}

func TestCompanyLookup_SetupError(t *testing.T) {
	lookup, m := newLookup(t, &browsertest.Launcher{Err: errors.New("no browser")})

	res, err := lookup.Lookup(context.Background(), "ACME")
	assert.Nil(t, res)
	var setupErr *browser.SessionSetupError
	assert.ErrorAs(t, err, &setupErr)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LookupsTotal.WithLabelValues("error", "session_setup")))
}

func TestCompanyLookup_ConcurrentCallersShareOneSession(t *testing.T) {
	launcher := &browsertest.Launcher{New: func() *browsertest.Session {
		return &browsertest.Session{
			Page:    searchPage,
			Results: func(q string) string { return renderRows(row{label: "Q", value: q}) },
		}
	}}
	lookup, _ := newLookup(t, launcher)

	queries := []string{"A", "B", "C", "D", "E"}
	results := make([]*entity.LookupResult, len(queries))
	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func(i int, q string) {
			defer wg.Done()
			res, err := lookup.Lookup(context.Background(), q)
			if assert.NoError(t, err) {
				results[i] = res
			}
		}(i, q)
	}
	wg.Wait()

	for i, q := range queries {
		require.NotNil(t, results[i])
		assert.Equal(t, entity.CompanyRecord{"Q": q}, results[i].Record)
	}
	assert.Len(t, launcher.Launched(), 1)

	require.NoError(t, lookup.Close())
	assert.True(t, launcher.Launched()[0].Closed())
}

func TestCompanyLookup_QueuedCallerHonorsDeadline(t *testing.T) {
	launcher := &browsertest.Launcher{New: func() *browsertest.Session {
		return &browsertest.Session{Page: searchPage}
	}}
	mgr := session.NewManager(launcher, browser.DefaultLaunchOptions(true), nil, nil)
	ext := NewExtractor(mgr, DefaultTarget("https://registry.test/mds"), nil,
		WithWaitTimeout(300*time.Millisecond))
	lookup := NewCompanyLookup(ext, mgr)
	t.Cleanup(func() { _ = lookup.Close() })

	holderDone := make(chan struct{})
	go func() {
		defer close(holderDone)
		_, _ = lookup.Lookup(context.Background(), "SLOW")
	}()
	require.Eventually(t, func() bool {
		sessions := launcher.Launched()
		return len(sessions) == 1 && len(sessions[0].Calls()) > 0
	}, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	res, err := lookup.Lookup(ctx, "QUEUED")
	elapsed := time.Since(start)

	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, elapsed, 200*time.Millisecond)

	<-holderDone
	var navigations int
	for _, call := range launcher.Launched()[0].Calls() {
		if strings.HasPrefix(call, "navigate ") {
			navigations++
		}
	}
	assert.Equal(t, 1, navigations, "expired caller must not drive the page")
	assert.Equal(t, "SLOW", launcher.Launched()[0].Input())
}

func TestCompanyLookup_DeadlineDuringLookup(t *testing.T) {
	launcher := &browsertest.Launcher{New: func() *browsertest.Session {
		return &browsertest.Session{Page: searchPage}
	}}
	mgr := session.NewManager(launcher, browser.DefaultLaunchOptions(true), nil, nil)
	ext := NewExtractor(mgr, DefaultTarget(""), nil, WithWaitTimeout(time.Second))
	lookup := NewCompanyLookup(ext, mgr)
	t.Cleanup(func() { _ = lookup.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	res, err := lookup.Lookup(ctx, "NOBODY")
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCompanyLookup_CancelledBeforeTurn(t *testing.T) {
	launcher := &browsertest.Launcher{}
	lookup, _ := newLookup(t, launcher)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := lookup.Lookup(ctx, "ACME")
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, launcher.Launched())
}
