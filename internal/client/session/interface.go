package session

import (
	"context"

	pkgapi "github.com/nstepa/quizdeck/pkg/api"
)

//go:generate moq -out api_mock.go . APIClient

// APIClient is the slice of the backend API the session service needs.
type APIClient interface {
	// Login authenticates with email and password.
	Login(ctx context.Context, req pkgapi.LoginRequest) (*pkgapi.TokenResponse, error)

	// Refresh exchanges a refresh token for a fresh token pair.
	Refresh(ctx context.Context, refreshToken string) (*pkgapi.TokenResponse, error)

	// Signup registers a new account.
	Signup(ctx context.Context, req pkgapi.SignupRequest) (*pkgapi.SignupResponse, error)
}
