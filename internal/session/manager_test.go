package session

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/company-lookup/internal/browser"
	"github.com/user/company-lookup/internal/browser/browsertest"
	"github.com/user/company-lookup/pkg/logger/loggertest"
	"github.com/user/company-lookup/pkg/metrics"
)

func TestManager_ReleaseBeforeAcquireIsNoop(t *testing.T) {
	launcher := &browsertest.Launcher{}
	m := NewManager(launcher, browser.DefaultLaunchOptions(true), nil, nil)

	assert.NoError(t, m.Release())
	assert.NoError(t, m.Release())
	assert.Equal(t, StateAbsent, m.State())
	assert.Empty(t, launcher.Launched())
}

func TestManager_AcquireIsLazyAndReused(t *testing.T) {
	launcher := &browsertest.Launcher{}
	opts := browser.DefaultLaunchOptions(false)
	m := NewManager(launcher, opts, nil, nil)
	ctx := context.Background()

	assert.Empty(t, launcher.Launched())

	first, err := m.Acquire(ctx)
	require.NoError(t, err)
	second, err := m.Acquire(ctx)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Len(t, launcher.Launched(), 1)
	assert.Equal(t, StateActive, m.State())
	assert.Equal(t, []browser.LaunchOptions{opts}, launcher.Options())
}

func TestManager_AcquireAfterReleaseLaunchesNewSession(t *testing.T) {
	launcher := &browsertest.Launcher{}
	m := NewManager(launcher, browser.DefaultLaunchOptions(true), nil, nil)
	ctx := context.Background()

	first, err := m.Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, m.Release())
	assert.Equal(t, StateClosed, m.State())
	assert.True(t, first.(*browsertest.Session).Closed())

	second, err := m.Acquire(ctx)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Len(t, launcher.Launched(), 2)
	assert.Equal(t, StateActive, m.State())
}

func TestManager_SetupFailure(t *testing.T) {
	cause := errors.New("executable file not found in $PATH")
	launcher := &browsertest.Launcher{Err: cause}
	rec := &loggertest.Recorder{}
	reg := prometheus.NewRegistry()
	mt := metrics.New(reg)
	m := NewManager(launcher, browser.DefaultLaunchOptions(true), rec, mt)

	sess, err := m.Acquire(context.Background())
	assert.Nil(t, sess)

	var setupErr *browser.SessionSetupError
	require.ErrorAs(t, err, &setupErr)
	assert.Equal(t, "fake", setupErr.Backend)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, StateAbsent, m.State())

	errorsLogged := rec.AtLevel(slog.LevelError)
	require.Len(t, errorsLogged, 1)
	assert.Contains(t, errorsLogged[0].Fields["error"], "executable file not found")

	assert.Equal(t, 1.0, testutil.ToFloat64(mt.SessionLaunches.WithLabelValues("fake", "failure")))

	// Release stays safe after a failed setup.
	assert.NoError(t, m.Release())
}

func TestManager_SetupErrorNotDoubleWrapped(t *testing.T) {
	original := &browser.SessionSetupError{Backend: "playwright", Err: errors.New("driver download failed")}
	m := NewManager(&browsertest.Launcher{Err: original}, browser.DefaultLaunchOptions(true), nil, nil)

	_, err := m.Acquire(context.Background())
	assert.Same(t, original, err)
}

func TestManager_ReleaseCloseError(t *testing.T) {
	launcher := &browsertest.Launcher{New: func() *browsertest.Session {
		return &browsertest.Session{CloseErr: errors.New("process already gone")}
	}}
	reg := prometheus.NewRegistry()
	mt := metrics.New(reg)
	m := NewManager(launcher, browser.DefaultLaunchOptions(true), nil, mt)

	_, err := m.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(mt.ActiveSessions))

	assert.Error(t, m.Release())
	assert.Equal(t, StateClosed, m.State())
	assert.Equal(t, 0.0, testutil.ToFloat64(mt.ActiveSessions))
	assert.NoError(t, m.Release())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "absent", StateAbsent.String())
	assert.Equal(t, "active", StateActive.String())
	assert.Equal(t, "closed", StateClosed.String())
}
