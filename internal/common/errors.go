package common

import (
	"errors"
	"net/http"
)

// AppError is an error that knows how the storefront API should render it.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError. err is kept for logs and errors.Is;
// only message reaches the client.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// WithDetails attaches a client-visible details payload.
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}

// WriteAppError renders err when it wraps an AppError and reports whether it did.
func WriteAppError(w http.ResponseWriter, err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	status, code := appErr.HTTPStatus, appErr.Code
	if status == 0 {
		status = http.StatusBadRequest
	}
	if code == "" {
		code = http.StatusText(status)
	}
	JSONError(w, status, code, appErr.Message, appErr.Details)
	return true
}

// WriteError renders AppErrors as themselves and anything else as an opaque 500.
func WriteError(w http.ResponseWriter, err error) {
	if !WriteAppError(w, err) {
		JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
