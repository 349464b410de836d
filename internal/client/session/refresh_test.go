package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nstepa/quizdeck/internal/client/api"
	"github.com/nstepa/quizdeck/internal/client/storage"
	"github.com/nstepa/quizdeck/internal/events"
	pkgapi "github.com/nstepa/quizdeck/pkg/api"
)

func seedTokens(t *testing.T, svc *Service, sessionExpiry, refreshExpiry time.Time) {
	t.Helper()
	ctx := context.Background()

	sess := storage.SessionData{Token: "old-access", UserID: "user-1", ExpiresAt: sessionExpiry}
	require.NoError(t, svc.store.Store(ctx, storage.KeySession, sess))

	refresh := storage.RefreshTokenData{Token: "old-refresh", ExpiresAt: refreshExpiry}
	require.NoError(t, svc.store.Store(ctx, storage.KeyRefreshToken, refresh))
}

func TestRefresh_Success(t *testing.T) {
	svc, apiClient, store, bus := newTestService(t)
	ctx := context.Background()

	seedTokens(t, svc, time.Now().Add(time.Minute), time.Now().Add(24*time.Hour))

	apiClient.refreshFn = func(ctx context.Context, refreshToken string) (*pkgapi.TokenResponse, error) {
		assert.Equal(t, "old-refresh", refreshToken)
		return &pkgapi.TokenResponse{AccessToken: "new-access", RefreshToken: "new-refresh"}, nil
	}

	refreshed := 0
	bus.Subscribe(events.TokenRefreshed, func(events.Event) { refreshed++ })

	assert.True(t, svc.Refresh(ctx))
	assert.Equal(t, 1, refreshed)

	var sess storage.SessionData
	require.True(t, store.Retrieve(ctx, storage.KeySession, &sess))
	assert.Equal(t, "new-access", sess.Token)
	assert.Equal(t, "user-1", sess.UserID)

	var refresh storage.RefreshTokenData
	require.True(t, store.Retrieve(ctx, storage.KeyRefreshToken, &refresh))
	assert.Equal(t, "new-refresh", refresh.Token)
}

func TestRefresh_SingleInFlight(t *testing.T) {
	svc, apiClient, _, _ := newTestService(t)
	ctx := context.Background()

	seedTokens(t, svc, time.Now().Add(time.Minute), time.Now().Add(24*time.Hour))

	started := make(chan struct{})
	release := make(chan struct{})
	apiClient.refreshFn = func(context.Context, string) (*pkgapi.TokenResponse, error) {
		close(started)
		<-release
		return &pkgapi.TokenResponse{AccessToken: "new-access", RefreshToken: "new-refresh"}, nil
	}

	var wg sync.WaitGroup
	wg.Add(1)
	var first bool
	go func() {
		defer wg.Done()
		first = svc.Refresh(ctx)
	}()

	<-started

	// overlapping caller is refused without a second network call
	assert.False(t, svc.Refresh(ctx))

	close(release)
	wg.Wait()

	assert.True(t, first)
	assert.Equal(t, 1, apiClient.refreshCalls)
}

func TestRefresh_NoRefreshToken(t *testing.T) {
	svc, apiClient, _, _ := newTestService(t)

	assert.False(t, svc.Refresh(context.Background()))
	assert.Zero(t, apiClient.refreshCalls)
}

func TestRefresh_ExpiredRefreshTokenSkipsNetwork(t *testing.T) {
	svc, apiClient, store, _ := newTestService(t)
	ctx := context.Background()

	seedTokens(t, svc, time.Now().Add(time.Minute), time.Now().Add(-time.Minute))

	assert.False(t, svc.Refresh(ctx))
	assert.Zero(t, apiClient.refreshCalls)

	// the refused refresh left everything in place
	var sess storage.SessionData
	assert.True(t, store.Retrieve(ctx, storage.KeySession, &sess))
	assert.Equal(t, "old-access", sess.Token)
}

func TestRefresh_IndependentOfAccessTokenExpiry(t *testing.T) {
	svc, apiClient, _, _ := newTestService(t)
	ctx := context.Background()

	// access token long dead, refresh token still live
	seedTokens(t, svc, time.Now().Add(-time.Hour), time.Now().Add(24*time.Hour))

	apiClient.refreshFn = func(context.Context, string) (*pkgapi.TokenResponse, error) {
		return &pkgapi.TokenResponse{AccessToken: "new-access", RefreshToken: "new-refresh"}, nil
	}

	assert.True(t, svc.Refresh(ctx))
	assert.True(t, svc.IsAuthenticated(ctx))
}

func TestRefresh_UnauthorizedForcesLogout(t *testing.T) {
	svc, apiClient, store, bus := newTestService(t)
	ctx := context.Background()

	seedTokens(t, svc, time.Now().Add(time.Minute), time.Now().Add(24*time.Hour))

	apiClient.refreshFn = func(context.Context, string) (*pkgapi.TokenResponse, error) {
		return nil, &api.AuthError{Code: api.CodeInvalidCredentials, Message: "token revoked", Status: 401}
	}

	var received []events.Event
	bus.Subscribe(events.SessionExpired, func(evt events.Event) {
		received = append(received, evt)
	})

	assert.False(t, svc.Refresh(ctx))

	require.Len(t, received, 1)
	assert.Equal(t, "refresh token rejected", received[0].Reason)

	var sess storage.SessionData
	assert.False(t, store.Retrieve(ctx, storage.KeySession, &sess))
	var refresh storage.RefreshTokenData
	assert.False(t, store.Retrieve(ctx, storage.KeyRefreshToken, &refresh))
}

func TestRefresh_TransientFailureKeepsSession(t *testing.T) {
	svc, apiClient, store, bus := newTestService(t)
	ctx := context.Background()

	seedTokens(t, svc, time.Now().Add(time.Minute), time.Now().Add(24*time.Hour))

	apiClient.refreshFn = func(context.Context, string) (*pkgapi.TokenResponse, error) {
		return nil, errors.New("connection reset")
	}

	expired := 0
	bus.Subscribe(events.SessionExpired, func(events.Event) { expired++ })

	assert.False(t, svc.Refresh(ctx))
	assert.Zero(t, expired)

	// session untouched, a later attempt can succeed
	var sess storage.SessionData
	assert.True(t, store.Retrieve(ctx, storage.KeySession, &sess))
	assert.Equal(t, "old-access", sess.Token)

	apiClient.refreshFn = func(context.Context, string) (*pkgapi.TokenResponse, error) {
		return &pkgapi.TokenResponse{AccessToken: "new-access", RefreshToken: "new-refresh"}, nil
	}
	assert.True(t, svc.Refresh(ctx))
}

func TestRefresh_Non401AuthErrorIsTransient(t *testing.T) {
	svc, apiClient, store, _ := newTestService(t)
	ctx := context.Background()

	seedTokens(t, svc, time.Now().Add(time.Minute), time.Now().Add(24*time.Hour))

	apiClient.refreshFn = func(context.Context, string) (*pkgapi.TokenResponse, error) {
		return nil, &api.AuthError{Code: api.CodeSystemError, Message: "upstream down", Status: 503}
	}

	assert.False(t, svc.Refresh(ctx))

	var sess storage.SessionData
	assert.True(t, store.Retrieve(ctx, storage.KeySession, &sess))
}
