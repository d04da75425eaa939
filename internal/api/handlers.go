package api

import (
	"errors"
	"net/http"

	"fraternitybase/registry/internal/constants"
)

type Handlers struct {
	deps *Dependencies
}

// NewHandlers creates a new handlers instance with injected dependencies
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		deps: deps,
	}
}

// statusFor maps registry sentinels to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, constants.ErrValidation), errors.Is(err, constants.ErrParse):
		return http.StatusBadRequest
	case errors.Is(err, constants.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, constants.ErrRunInProgress):
		return http.StatusConflict
	case errors.Is(err, constants.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
