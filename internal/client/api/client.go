// Package api is the HTTP client for the quiz backend. All failures
// leave this package as *AuthError.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	pkgapi "github.com/nstepa/quizdeck/pkg/api"
)

// Client talks to the backend REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates an API client for baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// carry Authorization across redirects
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
}

// Login authenticates with email and password.
func (c *Client) Login(ctx context.Context, req pkgapi.LoginRequest) (*pkgapi.TokenResponse, error) {
	var resp pkgapi.TokenResponse
	if err := c.doRequest(ctx, http.MethodPost, "/auth/login", "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Refresh exchanges a refresh token for a fresh token pair. A 401
// response means the refresh token is no longer acceptable; callers
// must treat that as fatal to the session.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*pkgapi.TokenResponse, error) {
	var resp pkgapi.TokenResponse
	req := pkgapi.RefreshRequest{RefreshToken: refreshToken}
	if err := c.doRequest(ctx, http.MethodPost, "/auth/refresh", "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Signup registers a new account.
func (c *Client) Signup(ctx context.Context, req pkgapi.SignupRequest) (*pkgapi.SignupResponse, error) {
	var resp pkgapi.SignupResponse
	if err := c.doRequest(ctx, http.MethodPost, "/auth/signup", "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetUser fetches a user profile, including embedded quiz history.
func (c *Client) GetUser(ctx context.Context, accessToken, userID string) (*pkgapi.User, error) {
	var resp pkgapi.User
	path := fmt.Sprintf("/users/%s", userID)
	if err := c.doRequest(ctx, http.MethodGet, path, accessToken, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SaveQuizSession persists a completed quiz session server-side.
func (c *Client) SaveQuizSession(ctx context.Context, accessToken string, req pkgapi.QuizSessionRequest) (*pkgapi.QuizSessionResponse, error) {
	var resp pkgapi.QuizSessionResponse
	if err := c.doRequest(ctx, http.MethodPost, "/quiz-sessions", accessToken, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// doRequest performs the HTTP exchange. Non-2xx responses and
// transport errors come back as *AuthError.
func (c *Client) doRequest(ctx context.Context, method, path, accessToken string, body, result any) error {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return systemError(fmt.Errorf("failed to marshal request body: %w", err))
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return systemError(fmt.Errorf("failed to create request: %w", err))
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return systemError(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return systemError(fmt.Errorf("failed to read response body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp pkgapi.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err != nil {
			return normalizeError(resp.StatusCode, nil)
		}
		return normalizeError(resp.StatusCode, &errResp)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return systemError(fmt.Errorf("failed to decode response: %w", err))
		}
	}

	return nil
}
