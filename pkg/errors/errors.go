// Package errors defines the storefront's sentinel errors and the AppError
// type that carries an HTTP status through the service layer.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrAlreadyExists     = errors.New("resource already exists")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrInternal          = errors.New("internal error")
	ErrConflict          = errors.New("conflict")
	ErrGone              = errors.New("gone")
	ErrServiceUnavail    = errors.New("service unavailable")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// AppError is an error with a stable machine code and an HTTP status.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, Status: status, Err: err}
}

// NotFound creates a 404 error for resource/id.
func NotFound(resource, id string) *AppError {
	return newAppError("NOT_FOUND",
		fmt.Sprintf("%s with id %s not found", resource, id),
		http.StatusNotFound, ErrNotFound)
}

// AlreadyExists creates a 409 error for a unique field collision.
func AlreadyExists(resource, field, value string) *AppError {
	return newAppError("ALREADY_EXISTS",
		fmt.Sprintf("%s with %s %q already exists", resource, field, value),
		http.StatusConflict, ErrAlreadyExists)
}

func InvalidInput(message string) *AppError {
	return newAppError("INVALID_INPUT", message, http.StatusBadRequest, ErrInvalidInput)
}

func Unauthorized(message string) *AppError {
	return newAppError("UNAUTHORIZED", message, http.StatusUnauthorized, ErrUnauthorized)
}

func Forbidden(message string) *AppError {
	return newAppError("FORBIDDEN", message, http.StatusForbidden, ErrForbidden)
}

func Conflict(message string) *AppError {
	return newAppError("CONFLICT", message, http.StatusConflict, ErrConflict)
}

func Gone(message string) *AppError {
	return newAppError("GONE", message, http.StatusGone, ErrGone)
}

func ServiceUnavailable(message string) *AppError {
	return newAppError("SERVICE_UNAVAILABLE", message, http.StatusServiceUnavailable, ErrServiceUnavail)
}

// InsufficientStock creates a 409 error for a product that cannot cover the
// requested quantity.
func InsufficientStock(productID string, requested, available int) *AppError {
	return newAppError("INSUFFICIENT_STOCK",
		fmt.Sprintf("product %s: requested %d, only %d left", productID, requested, available),
		http.StatusConflict, ErrInsufficientStock)
}

// Internal wraps err as an opaque 500.
func Internal(err error) *AppError {
	return newAppError("INTERNAL_ERROR", "an internal error occurred",
		http.StatusInternalServerError, err)
}

// Wrap annotates err with message.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus returns the HTTP status code for err.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrConflict), errors.Is(err, ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrGone):
		return http.StatusGone
	case errors.Is(err, ErrServiceUnavail):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
