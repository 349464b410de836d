// Package session owns the client identity lifecycle: anonymous, guest
// and authenticated states, token storage and refresh, and inactivity
// tracking. The service is explicitly constructed and disposed so all
// of its timers can be cancelled deterministically.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nstepa/quizdeck/internal/client/api"
	"github.com/nstepa/quizdeck/internal/client/secure"
	"github.com/nstepa/quizdeck/internal/client/storage"
	"github.com/nstepa/quizdeck/internal/config"
	"github.com/nstepa/quizdeck/internal/events"
	"github.com/nstepa/quizdeck/internal/validation"
	pkgapi "github.com/nstepa/quizdeck/pkg/api"
)

// State is the identity state of the client.
type State string

const (
	// StateAnonymous is the default: no guest identity, no session.
	StateAnonymous State = "anonymous"
	// StateGuest means a live guest identity exists.
	StateGuest State = "guest"
	// StateAuthenticated means a live access token exists.
	StateAuthenticated State = "authenticated"
)

// Identity describes who the client currently is.
type Identity struct {
	State    State
	UserID   string
	Email    string
	Username string
	GuestID  string
}

// Config carries the session timing knobs.
type Config struct {
	SessionTTL        time.Duration
	RefreshTokenTTL   time.Duration
	GuestTTL          time.Duration
	StatusTick        time.Duration
	RefreshThreshold  time.Duration
	InactivityTimeout time.Duration
	WarningTime       time.Duration
}

// DefaultConfig returns the reference timing values.
func DefaultConfig() Config {
	return Config{
		SessionTTL:        config.DefaultSessionTTL,
		RefreshTokenTTL:   config.DefaultRefreshTokenTTL,
		GuestTTL:          config.DefaultGuestTTL,
		StatusTick:        config.DefaultStatusTick,
		RefreshThreshold:  config.DefaultRefreshThreshold,
		InactivityTimeout: config.DefaultInactivityTimeout,
		WarningTime:       config.DefaultWarningTime,
	}
}

// Service is the session lifecycle manager.
type Service struct {
	api       APIClient
	store     *secure.Store
	bus       *events.Bus
	logger    *slog.Logger
	now       func() time.Time
	tracker   *ActivityTracker
	onWarning func()
	done      chan struct{}
	cfg       Config

	// mu guards token storage writes and the refresh in-flight flag
	mu         sync.Mutex
	refreshing bool

	runMu sync.Mutex
	wg    sync.WaitGroup
}

// NewService creates a session service. Call Start to begin the
// background status check and Close to dispose of all timers.
func NewService(apiClient APIClient, store *secure.Store, bus *events.Bus, cfg Config, logger *slog.Logger) *Service {
	s := &Service{
		api:    apiClient,
		store:  store,
		bus:    bus,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
	s.tracker = NewActivityTracker(cfg.InactivityTimeout, cfg.WarningTime,
		s.handleInactivityWarning, s.handleInactivityExpiry, logger)
	return s
}

// SetInactivityWarning installs the UI hook invoked when the
// inactivity warning phase begins. Must be set before Start.
func (s *Service) SetInactivityWarning(fn func()) {
	s.onWarning = fn
}

// Tracker exposes the activity tracker so UI layers can report
// interaction events.
func (s *Service) Tracker() *ActivityTracker {
	return s.tracker
}

// Start launches the periodic session-status check.
func (s *Service) Start() {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.done != nil {
		return
	}
	s.done = make(chan struct{})
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cfg.StatusTick)
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				s.checkStatus(context.Background())
			}
		}
	}()
}

// Close stops the status check and cancels all activity timers.
// No timer fires after Close returns.
func (s *Service) Close() {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.done != nil {
		close(s.done)
		s.wg.Wait()
		s.done = nil
	}
	s.tracker.Stop()
}

// Login authenticates against the backend. On success the fresh token
// pair replaces any stale artifacts in the encrypted store and
// inactivity tracking begins. Failures are always *api.AuthError.
func (s *Service) Login(ctx context.Context, email, password string) (*Identity, error) {
	fields := make(map[string]string)
	if err := validation.ValidateEmail(email); err != nil {
		fields["email"] = err.Error()
	}
	if err := validation.ValidatePassword(password); err != nil {
		fields["password"] = err.Error()
	}
	if len(fields) > 0 {
		return nil, api.ValidationError(fields)
	}

	resp, err := s.api.Login(ctx, pkgapi.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	identity := &Identity{State: StateAuthenticated, Email: email}
	if resp.User != nil {
		identity.UserID = resp.User.ID
		identity.Username = resp.User.Username
	}
	if identity.UserID == "" {
		if sub, ok := tokenSubject(resp.AccessToken); ok {
			identity.UserID = sub
		}
	}

	if err := s.storeTokenPair(ctx, resp, identity.UserID); err != nil {
		return nil, err
	}

	s.tracker.Start()
	s.logger.InfoContext(ctx, "login successful", slog.String("user_id", identity.UserID))

	return identity, nil
}

// Signup registers a new account. Field-level validation runs before
// any network call.
func (s *Service) Signup(ctx context.Context, email, username, password string) (*pkgapi.SignupResponse, error) {
	fields := make(map[string]string)
	if err := validation.ValidateEmail(email); err != nil {
		fields["email"] = err.Error()
	}
	if err := validation.ValidateUsername(username); err != nil {
		fields["username"] = err.Error()
	}
	if err := validation.ValidatePassword(password); err != nil {
		fields["password"] = err.Error()
	}
	if len(fields) > 0 {
		return nil, api.ValidationError(fields)
	}

	return s.api.Signup(ctx, pkgapi.SignupRequest{Email: email, Username: username, Password: password})
}

// CreateGuestSession mints a local guest identity with a fixed expiry.
// No backend contact.
func (s *Service) CreateGuestSession(ctx context.Context) (*storage.GuestIdentity, error) {
	now := s.now()
	guest := storage.GuestIdentity{
		ID:        uuid.New().String(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.GuestTTL),
	}

	if err := s.store.Store(ctx, storage.KeyGuestIdentity, guest); err != nil {
		return nil, fmt.Errorf("failed to persist guest identity: %w", err)
	}

	s.logger.InfoContext(ctx, "guest session created", slog.String("guest_id", guest.ID))
	return &guest, nil
}

// IsGuestSession reports whether a live guest identity exists. An
// expired guest identity is purged as a side effect of the check.
func (s *Service) IsGuestSession(ctx context.Context) bool {
	var guest storage.GuestIdentity
	if !s.store.Retrieve(ctx, storage.KeyGuestIdentity, &guest) {
		return false
	}
	if guest.Expired(s.now()) {
		if err := s.store.Delete(ctx, storage.KeyGuestIdentity); err != nil {
			s.logger.Warn("failed to purge expired guest identity", slog.Any("error", err))
		}
		return false
	}
	return true
}

// GuestIdentity returns the live guest identity, if any.
func (s *Service) GuestIdentity(ctx context.Context) (*storage.GuestIdentity, bool) {
	var guest storage.GuestIdentity
	if !s.store.Retrieve(ctx, storage.KeyGuestIdentity, &guest) {
		return nil, false
	}
	if guest.Expired(s.now()) {
		return nil, false
	}
	return &guest, true
}

// IsAuthenticated reports whether a live access token exists.
func (s *Service) IsAuthenticated(ctx context.Context) bool {
	var sess storage.SessionData
	if !s.store.Retrieve(ctx, storage.KeySession, &sess) {
		return false
	}
	return !sess.Expired(s.now())
}

// Session returns the live session data, if any.
func (s *Service) Session(ctx context.Context) (*storage.SessionData, bool) {
	var sess storage.SessionData
	if !s.store.Retrieve(ctx, storage.KeySession, &sess) {
		return nil, false
	}
	if sess.Expired(s.now()) {
		return nil, false
	}
	return &sess, true
}

// CurrentIdentity resolves the identity state. An authenticated
// session wins over a guest identity; the two are mutually exclusive
// in normal operation.
func (s *Service) CurrentIdentity(ctx context.Context) Identity {
	if sess, ok := s.Session(ctx); ok {
		return Identity{State: StateAuthenticated, UserID: sess.UserID}
	}
	if guest, ok := s.GuestIdentity(ctx); ok {
		return Identity{State: StateGuest, GuestID: guest.ID}
	}
	return Identity{State: StateAnonymous}
}

// GuestProgress returns the accumulated guest progress, zero-valued
// when none has been recorded.
func (s *Service) GuestProgress(ctx context.Context) storage.GuestProgress {
	var progress storage.GuestProgress
	s.store.Retrieve(ctx, storage.KeyGuestProgress, &progress)
	return progress
}

// RecordGuestResult bumps the guest progress counters for one
// completed quiz. Counters only grow until migrated or cleared. The
// owning guest ID is stamped onto the progress so it stays migratable
// after the guest identity itself lapses.
func (s *Service) RecordGuestResult(ctx context.Context, score int, takenAt time.Time) error {
	progress := s.GuestProgress(ctx)
	progress.Quizzes++
	progress.TotalScore += score
	if takenAt.After(progress.LastQuizDate) {
		progress.LastQuizDate = takenAt
	}
	if guest, ok := s.GuestIdentity(ctx); ok {
		progress.GuestID = guest.ID
	}

	if err := s.store.Store(ctx, storage.KeyGuestProgress, progress); err != nil {
		return fmt.Errorf("failed to persist guest progress: %w", err)
	}
	return nil
}

// DeviceID returns a stable per-install identifier, creating one on
// first use.
func (s *Service) DeviceID(ctx context.Context) (string, error) {
	var device storage.DeviceInfo
	if s.store.Retrieve(ctx, storage.KeyDeviceID, &device) && device.ID != "" {
		return device.ID, nil
	}

	device = storage.DeviceInfo{ID: uuid.New().String(), CreatedAt: s.now()}
	if err := s.store.Store(ctx, storage.KeyDeviceID, device); err != nil {
		return "", fmt.Errorf("failed to persist device id: %w", err)
	}
	return device.ID, nil
}

// Logout ends the current identity. A guest's accumulated progress
// survives their own logout so it can be resumed or migrated later;
// an authenticated logout purges all session, token and guest
// artifacts. All pending timers are cancelled before this returns.
func (s *Service) Logout(ctx context.Context) error {
	s.tracker.Stop()

	// an expired session blob left over from an earlier run does not
	// make this an authenticated logout
	var sess storage.SessionData
	authenticated := s.store.Retrieve(ctx, storage.KeySession, &sess) && !sess.Expired(s.now())

	if !authenticated {
		// guest (or anonymous): sweep stale token artifacts and the
		// identity, keep the progress
		for _, key := range []string{
			storage.KeySession,
			storage.KeyRefreshToken,
			storage.KeyGuestIdentity,
		} {
			if err := s.store.Delete(ctx, key); err != nil {
				return fmt.Errorf("failed to delete %q: %w", key, err)
			}
		}
		s.logger.InfoContext(ctx, "guest logged out, progress preserved")
		return nil
	}

	for _, key := range []string{
		storage.KeySession,
		storage.KeyRefreshToken,
		storage.KeyGuestIdentity,
		storage.KeyGuestProgress,
	} {
		if err := s.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to delete %q: %w", key, err)
		}
	}

	s.logger.InfoContext(ctx, "logged out", slog.String("user_id", sess.UserID))
	return nil
}

// checkStatus is the periodic session-status check: expired sessions
// are force-logged-out, sessions close to expiry are refreshed.
// Safe against concurrent invocation; the refresh in-flight guard
// keeps at most one network refresh outstanding.
func (s *Service) checkStatus(ctx context.Context) {
	var sess storage.SessionData
	if !s.store.Retrieve(ctx, storage.KeySession, &sess) {
		return
	}

	now := s.now()
	if sess.Expired(now) {
		s.forceLogout(ctx, "session expired")
		return
	}

	if sess.ExpiresAt.Sub(now) <= s.cfg.RefreshThreshold {
		// a transient refresh failure leaves the session as-is for
		// the next tick to reattempt; a 401 logs out inside Refresh
		s.Refresh(ctx)
	}
}

// forceLogout purges the authenticated session, stops the activity
// timers and announces the expiry on the bus.
func (s *Service) forceLogout(ctx context.Context, reason string) {
	s.tracker.Stop()

	for _, key := range []string{storage.KeySession, storage.KeyRefreshToken} {
		if err := s.store.Delete(ctx, key); err != nil {
			s.logger.Warn("failed to purge session artifact", slog.String("key", key), slog.Any("error", err))
		}
	}

	s.logger.WarnContext(ctx, "session terminated", slog.String("reason", reason))
	s.bus.Publish(events.Event{Kind: events.SessionExpired, Reason: reason, At: s.now()})
}

// storeTokenPair replaces both credentials as one logical update.
func (s *Service) storeTokenPair(ctx context.Context, resp *pkgapi.TokenResponse, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// stale expired-token artifacts go first
	if err := s.store.Delete(ctx, storage.KeySession); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, storage.KeyRefreshToken); err != nil {
		return err
	}

	now := s.now()
	expiresAt := now.Add(s.cfg.SessionTTL)
	if exp, ok := tokenExpiry(resp.AccessToken); ok && exp.Before(expiresAt) {
		expiresAt = exp
	}

	sess := storage.SessionData{Token: resp.AccessToken, UserID: userID, ExpiresAt: expiresAt}
	if err := s.store.Store(ctx, storage.KeySession, sess); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	refresh := storage.RefreshTokenData{Token: resp.RefreshToken, ExpiresAt: now.Add(s.cfg.RefreshTokenTTL)}
	if err := s.store.Store(ctx, storage.KeyRefreshToken, refresh); err != nil {
		return fmt.Errorf("failed to persist refresh token: %w", err)
	}

	return nil
}

func (s *Service) handleInactivityWarning() {
	s.logger.Warn("inactivity warning", slog.Duration("grace", s.cfg.WarningTime))
	if s.onWarning != nil {
		s.onWarning()
	}
}

func (s *Service) handleInactivityExpiry() {
	s.forceLogout(context.Background(), "inactivity timeout")
}

// tokenExpiry reads the exp claim without verifying the signature.
// The client has no signing key; expiry is advisory and cross-checked
// against the configured session duration.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// tokenSubject reads the sub claim without verifying the signature.
func tokenSubject(token string) (string, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", false
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", false
	}
	return sub, true
}
