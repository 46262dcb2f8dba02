package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrExternalService indicates that a collaborator (extraction model, chat API, archive) failed
// or returned output that could not be used.
var ErrExternalService = errors.New("external service error")

// ErrStorage indicates a failure in the persistence layer.
var ErrStorage = errors.New("storage error")

// ErrAlreadyApplied indicates that an idempotent maintenance operation found its own marker
// and did nothing.
var ErrAlreadyApplied = errors.New("operation already applied")

// ErrForbidden indicates the caller is not one of the configured participants.
var ErrForbidden = errors.New("forbidden")

// AppError carries a status-like code together with the underlying cause.
type AppError struct {
	Code    int
	Message string
	Err     error
}

// NewAppError creates an AppError. The code decides which sentinel the error matches with errors.Is.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes both the sentinel for the code and the wrapped cause.
func (e *AppError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if kind := kindForCode(e.Code); kind != nil {
		errs = append(errs, kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func kindForCode(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrValidation
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusConflict:
		return ErrAlreadyApplied
	case http.StatusBadGateway:
		return ErrExternalService
	case http.StatusInternalServerError:
		return ErrStorage
	}
	return nil
}

// Validationf builds a validation error with a user-presentable message.
func Validationf(format string, args ...any) error {
	return NewAppError(http.StatusBadRequest, fmt.Sprintf(format, args...), nil)
}

// NotFoundf builds a not-found error with a user-presentable message.
func NotFoundf(format string, args ...any) error {
	return NewAppError(http.StatusNotFound, fmt.Sprintf(format, args...), nil)
}

// External wraps a collaborator failure.
func External(message string, err error) error {
	return NewAppError(http.StatusBadGateway, message, err)
}

// Storage wraps a persistence failure.
func Storage(message string, err error) error {
	return NewAppError(http.StatusInternalServerError, message, err)
}

// UserMessage returns the message intended for the end user when err is an AppError,
// otherwise the fallback.
func UserMessage(err error, fallback string) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code < http.StatusInternalServerError {
		return appErr.Message
	}
	return fallback
}
