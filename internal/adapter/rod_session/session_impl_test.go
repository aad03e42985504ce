package rod_session

import (
	"context"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/company-lookup/internal/adapter/internal/fixture"
	"github.com/user/company-lookup/internal/browser"
	"github.com/user/company-lookup/internal/session"
	"github.com/user/company-lookup/internal/usecase"
)

func TestLauncher_MissingBinary(t *testing.T) {
	opts := browser.DefaultLaunchOptions(true)
	opts.BinaryPath = "/nonexistent/chrome"

	sess, err := NewLauncher().Launch(context.Background(), opts)
	assert.Nil(t, sess)

	var setupErr *browser.SessionSetupError
	require.ErrorAs(t, err, &setupErr)
	assert.Equal(t, "rod", setupErr.Backend)
}

func TestLauncher_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLauncher().Launch(ctx, browser.DefaultLaunchOptions(true))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractor_AgainstFixturePage(t *testing.T) {
	opts := browser.DefaultLaunchOptions(true)
	opts.BinaryPath = fixture.ChromePath(t)
	srv := fixture.Server(t)

	mgr := session.NewManager(NewLauncher(), opts, nil, nil)
	defer mgr.Release()
	ext := usecase.NewExtractor(mgr, usecase.DefaultTarget(srv.URL+"/mds.html"), nil,
		usecase.WithWaitTimeout(5*time.Second))

	record, ok, err := ext.Fetch(context.Background(), "WIPRO LIMITED")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "WIPRO LIMITED", record["Company Name"])
	assert.Equal(t, "Active", record["Company Status"])
	assert.Equal(t, fixture.RenderedAddress, record["Registered Address"])
}

func TestSession_LostAfterClose(t *testing.T) {
	opts := browser.DefaultLaunchOptions(true)
	opts.BinaryPath = fixture.ChromePath(t)
	srv := fixture.Server(t)

	sess, err := NewLauncher().Launch(context.Background(), opts)
	require.NoError(t, err)
	require.NoError(t, sess.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = sess.Navigate(ctx, srv.URL+"/mds.html")
	assert.ErrorIs(t, err, browser.ErrSessionClosed)
}

func TestSession_CloseRemovesUserDataDir(t *testing.T) {
	opts := browser.DefaultLaunchOptions(true)
	opts.BinaryPath = fixture.ChromePath(t)

	sess, err := NewLauncher().Launch(context.Background(), opts)
	require.NoError(t, err)
	dir := sess.(*Session).launcher.Get(flags.UserDataDir)
	require.NotEmpty(t, dir)
	assert.DirExists(t, dir)

	require.NoError(t, sess.Close())
	assert.NoDirExists(t, dir)
}
