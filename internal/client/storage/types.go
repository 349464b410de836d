package storage

import "time"

// SessionData is the active authenticated session. ExpiresAt is always
// derived from creation time plus the configured session duration.
type SessionData struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the access token lifetime has passed.
func (s SessionData) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// RefreshTokenData is the long-lived renewal credential. Its expiry
// clock is independent of the access token's.
type RefreshTokenData struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the refresh token lifetime has passed.
func (r RefreshTokenData) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// GuestIdentity is an anonymous, locally-scoped session. Mutually
// exclusive with an authenticated session; its expiry is fixed from
// creation and never renewed.
type GuestIdentity struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the guest identity lifetime has passed.
func (g GuestIdentity) Expired(now time.Time) bool {
	return now.After(g.ExpiresAt)
}

// GuestProgress accumulates a guest's quiz activity. Counters are
// monotonically non-decreasing until migrated or explicitly cleared.
// GuestID remembers the owning guest identity so progress can still be
// migrated after the identity itself expires.
type GuestProgress struct {
	GuestID      string    `json:"guest_id,omitempty"`
	Quizzes      int       `json:"quizzes"`
	TotalScore   int       `json:"total_score"`
	LastQuizDate time.Time `json:"last_quiz_date"`
}

// DeviceInfo is the stable per-install identifier sent with saved
// quiz sessions.
type DeviceInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}
