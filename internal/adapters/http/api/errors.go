package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
	ErrAccessDenied = errors.New("access denied")
)

// wrapOp annotates an error with the operation that produced it.
func wrapOp(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}

// badRequest pairs ErrBadRequest with the concrete validation failure.
func badRequest(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrBadRequest, err)
}
