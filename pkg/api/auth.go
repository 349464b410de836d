package api

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is returned by POST /auth/login and POST /auth/refresh.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user,omitempty"`
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// SignupRequest is the body of POST /auth/signup.
type SignupRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// SignupResponse is returned on successful signup.
type SignupResponse struct {
	Message string `json:"message"`
}

// User is the profile returned by GET /users/{id}.
// QuizHistory is embedded server-side and may be large; consumers are
// expected to cache the whole profile.
type User struct {
	ID          string       `json:"id"`
	Email       string       `json:"email"`
	Username    string       `json:"username"`
	QuizHistory []QuizRecord `json:"quiz_history,omitempty"`
}

// ErrorResponse covers the error body shapes the backend is known to
// produce. Older endpoints use detail, newer ones use error/message,
// and signup validation failures carry a per-field errors map.
type ErrorResponse struct {
	Errors  map[string]string `json:"errors,omitempty"`
	Detail  string            `json:"detail,omitempty"`
	Code    string            `json:"code,omitempty"`
	Error   string            `json:"error,omitempty"`
	Message string            `json:"message,omitempty"`
}
