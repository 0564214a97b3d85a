package services

import (
	"errors"
	"net/http"

	inbox_errors "tenant-inbox/pkg/errors"
)

func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, inbox_errors.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, inbox_errors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, inbox_errors.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, inbox_errors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, inbox_errors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, inbox_errors.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, inbox_errors.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// ErrorCode is the machine readable code sent with an error response.
func ErrorCode(err error) string {
	switch HTTPStatus(err) {
	case http.StatusRequestEntityTooLarge:
		return "TOO_LARGE"
	case http.StatusBadRequest:
		return "INVALID_INPUT"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return "ALREADY_EXISTS"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	default:
		return "INTERNAL_ERROR"
	}
}

// PublicMessage hides details of unexpected failures.
func PublicMessage(err error) string {
	if HTTPStatus(err) == http.StatusInternalServerError {
		return inbox_errors.ErrInternal.Error()
	}
	return err.Error()
}
