package core

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	AccessErrorBadInput         = "ACCESS_BAD_INPUT"
	AccessErrorNotFound         = "ACCESS_NOT_FOUND"
	AccessErrorPermissionDenied = "ACCESS_PERMISSION_DENIED"
	AccessErrorInvalidState     = "ACCESS_INVALID_STATE"
	AccessErrorBackendFailure   = "ACCESS_BACKEND_FAILURE"
	AccessErrorInternal         = "ACCESS_INTERNAL_ERROR"
)

func accessErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureAccessErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "not found"), strings.Contains(msg, "no such"):
		return newAccessError(err.Error(), goerrors.CategoryNotFound, AccessErrorNotFound)
	case strings.Contains(msg, "not allowed"), strings.Contains(msg, "not eligible"), strings.Contains(msg, "permission"):
		return newAccessError(err.Error(), goerrors.CategoryAuthz, AccessErrorPermissionDenied)
	case strings.Contains(msg, "already"), strings.Contains(msg, "transition"):
		return newAccessError(err.Error(), goerrors.CategoryConflict, AccessErrorInvalidState)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newAccessError(err.Error(), goerrors.CategoryBadInput, AccessErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureAccessErrorEnvelope(mapped)
}

func newAccessError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureAccessErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureAccessErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = accessHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultAccessTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultAccessTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return AccessErrorBadInput
	case goerrors.CategoryNotFound:
		return AccessErrorNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return AccessErrorPermissionDenied
	case goerrors.CategoryConflict:
		return AccessErrorInvalidState
	case goerrors.CategoryExternal:
		return AccessErrorBackendFailure
	default:
		return AccessErrorInternal
	}
}

func accessHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NotFoundError builds the envelope directory clients should return for an
// unresolved resource, role, or account. The workflow recovers from these
// locally (fuzzy-match guidance); everything else propagates.
func NotFoundError(message string) *goerrors.Error {
	return newAccessError(message, goerrors.CategoryNotFound, AccessErrorNotFound)
}

// BackendError wraps a directory or issuer transport failure.
func BackendError(message string, cause error) *goerrors.Error {
	if cause == nil {
		return newAccessError(message, goerrors.CategoryExternal, AccessErrorBackendFailure)
	}
	return ensureAccessErrorEnvelope(
		goerrors.Wrap(cause, goerrors.CategoryExternal, message).
			WithTextCode(AccessErrorBackendFailure),
	)
}

func InvalidStateError(message string) *goerrors.Error {
	return newAccessError(message, goerrors.CategoryConflict, AccessErrorInvalidState)
}

func badInputError(message string) *goerrors.Error {
	return newAccessError(message, goerrors.CategoryBadInput, AccessErrorBadInput)
}

func internalError(message string) *goerrors.Error {
	return newAccessError(message, goerrors.CategoryInternal, AccessErrorInternal)
}

// IsNotFound reports whether err carries the not-found category, either as
// a rich envelope or the sentinel ErrRequestNotFound.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRequestNotFound) {
		return true
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.Category == goerrors.CategoryNotFound
	}
	return false
}

func IsInvalidState(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.Category == goerrors.CategoryConflict
	}
	return false
}
