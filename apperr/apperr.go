// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error taxonomy shared by the engine packages. Callers match with errors.Is.
var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Specific validation failures. Each one also matches ErrInvalidInput.
var (
	ErrInvalidCategory = fmt.Errorf("%w: unrecognized vote category", ErrInvalidInput)
	ErrMissingLocation = fmt.Errorf("%w: location is required", ErrInvalidInput)
	ErrInvalidPhone    = fmt.Errorf("%w: phone must be exactly 10 digits", ErrInvalidInput)
	ErrEmptyReport     = fmt.Errorf("%w: add at least a price, phone, description or image", ErrInvalidInput)
)

// Store wraps a persistence failure so it matches ErrStoreUnavailable
// while keeping the underlying cause.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}

// HTTPStatus maps an engine error onto the response code the handlers send.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
