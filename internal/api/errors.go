package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/npezzotti/vibehub/internal/service"
	"github.com/npezzotti/vibehub/internal/session"
)

type ApiError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

func (e *ApiError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}

	return e.Message
}

func (e *ApiError) Unwrap() error {
	return e.Err
}

func lower(s string) string {
	return strings.ToLower(s)
}

func newApiError(statusCode int) *ApiError {
	return &ApiError{
		StatusCode: statusCode,
		Message:    lower(http.StatusText(statusCode)),
	}
}

func NewBadRequestError() *ApiError {
	return newApiError(http.StatusBadRequest)
}

func NewNotFoundError() *ApiError {
	return newApiError(http.StatusNotFound)
}

func NewInternalServerError(err error) *ApiError {
	e := newApiError(http.StatusInternalServerError)
	e.Err = err
	return e
}

func NewUnauthorizedError() *ApiError {
	return newApiError(http.StatusUnauthorized)
}

func NewForbiddenError() *ApiError {
	return newApiError(http.StatusForbidden)
}

func NewTooManyRequestsError() *ApiError {
	return newApiError(http.StatusTooManyRequests)
}

func NewRequestTooLargeError() *ApiError {
	return newApiError(http.StatusRequestEntityTooLarge)
}

var kindStatus = map[service.Kind]int{
	service.KindNotFound:     http.StatusNotFound,
	service.KindUnauthorized: http.StatusUnauthorized,
	service.KindForbidden:    http.StatusForbidden,
	service.KindConflict:     http.StatusConflict,
	service.KindCapacity:     http.StatusConflict,
	service.KindBadInput:     http.StatusBadRequest,
}

// errorResponse maps a service failure to its wire shape. Anything that is
// not a business error becomes a 500.
func errorResponse(err error) *ApiError {
	if svcErr, ok := service.AsError(err); ok {
		status, known := kindStatus[svcErr.Kind]
		if !known {
			status = http.StatusInternalServerError
		}
		return &ApiError{StatusCode: status, Message: svcErr.Message, Err: err}
	}

	if errors.Is(err, session.ErrUnauthenticated) {
		return NewUnauthorizedError()
	}

	return NewInternalServerError(err)
}
