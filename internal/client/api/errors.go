package api

import (
	"fmt"
	"net/http"

	pkgapi "github.com/nstepa/quizdeck/pkg/api"
)

// Machine-readable error codes. UI code branches on these, never on
// backend-specific payload shapes.
const (
	CodeInvalidCredentials = "invalid_credentials"
	CodeSessionExpired     = "session_expired"
	CodeValidation         = "validation_error"
	CodeNotFound           = "not_found"
	CodeSystemError        = "system_error"
)

// AuthError is the single failure shape all endpoint errors are
// normalized into. Code is always non-empty. Fields carries per-field
// validation messages when the backend returned them. Status is the
// HTTP status, or 0 for transport-level failures.
type AuthError struct {
	Fields  map[string]string
	Message string
	Code    string
	Status  int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// Unauthorized reports a 401-class response, which is fatal for
// refresh calls.
func (e *AuthError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// normalizeError maps a non-2xx response body onto an AuthError.
// Unrecognized shapes fall back to system_error with a generic
// message: raw backend payloads are never surfaced.
func normalizeError(status int, parsed *pkgapi.ErrorResponse) *AuthError {
	ae := &AuthError{Status: status, Code: CodeSystemError, Message: "unexpected server response"}
	if parsed == nil {
		return ae
	}

	switch {
	case parsed.Detail != "":
		ae.Message = parsed.Detail
	case parsed.Message != "":
		ae.Message = parsed.Message
	case parsed.Error != "":
		ae.Message = parsed.Error
	}

	if parsed.Code != "" {
		ae.Code = parsed.Code
	} else {
		switch {
		case len(parsed.Errors) > 0:
			ae.Code = CodeValidation
		case status == http.StatusUnauthorized:
			ae.Code = CodeInvalidCredentials
		case status == http.StatusNotFound:
			ae.Code = CodeNotFound
		case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
			ae.Code = CodeValidation
		}
	}

	if len(parsed.Errors) > 0 {
		ae.Fields = parsed.Errors
		if ae.Message == "unexpected server response" {
			ae.Message = "validation failed"
		}
	}

	return ae
}

// systemError wraps transport-level failures (no response at all).
func systemError(err error) *AuthError {
	msg := "request failed"
	if err != nil {
		msg = err.Error()
	}
	return &AuthError{Message: msg, Code: CodeSystemError}
}

// ValidationError builds a client-side per-field validation failure,
// used before any network call is issued.
func ValidationError(fields map[string]string) *AuthError {
	return &AuthError{
		Message: "validation failed",
		Code:    CodeValidation,
		Fields:  fields,
	}
}
