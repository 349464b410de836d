package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nstepa/quizdeck/internal/client/api"
	"github.com/nstepa/quizdeck/internal/client/storage"
	"github.com/nstepa/quizdeck/internal/events"
)

// Refresh renews the access token using the stored refresh token.
// Returns true only when a fresh token pair was stored.
//
// An in-flight guard keeps at most one network refresh outstanding:
// an overlapping caller returns false immediately without issuing a
// duplicate request or touching storage. The refresh token's own
// expiry is checked first; an expired or missing refresh token is
// refused without a network call. A 401-class rejection is fatal and
// force-logs-out; any other failure is transient and leaves the
// session in its prior state.
func (s *Service) Refresh(ctx context.Context) bool {
	s.mu.Lock()
	if s.refreshing {
		s.mu.Unlock()
		s.logger.Debug("refresh already in flight")
		return false
	}
	s.refreshing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.refreshing = false
		s.mu.Unlock()
	}()

	var refresh storage.RefreshTokenData
	if !s.store.Retrieve(ctx, storage.KeyRefreshToken, &refresh) {
		s.logger.Debug("no refresh token stored")
		return false
	}
	if refresh.Expired(s.now()) {
		s.logger.Warn("refresh token expired, refusing refresh")
		return false
	}

	resp, err := s.api.Refresh(ctx, refresh.Token)
	if err != nil {
		var authErr *api.AuthError
		if errors.As(err, &authErr) && authErr.Unauthorized() {
			s.forceLogout(ctx, "refresh token rejected")
			return false
		}
		s.logger.Warn("token refresh failed", slog.Any("error", err))
		return false
	}

	// carry the user id over from the session being replaced
	var userID string
	var sess storage.SessionData
	if s.store.Retrieve(ctx, storage.KeySession, &sess) {
		userID = sess.UserID
	}
	if userID == "" {
		if sub, ok := tokenSubject(resp.AccessToken); ok {
			userID = sub
		}
	}

	if err := s.storeTokenPair(ctx, resp, userID); err != nil {
		s.logger.Error("failed to store refreshed tokens", slog.Any("error", err))
		return false
	}

	s.logger.InfoContext(ctx, "token refreshed", slog.String("user_id", userID))
	s.bus.Publish(events.Event{Kind: events.TokenRefreshed, At: s.now()})
	return true
}
