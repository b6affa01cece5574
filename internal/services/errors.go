package services

import (
	"context"
	"errors"
	"fmt"

	"productboards-backend/internal/ai"
	"productboards-backend/internal/store"
)

// Error kinds shared by every service. Handlers map them to HTTP statuses with errors.Is.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrStore           = errors.New("store operation failed")
	ErrAIUnavailable   = errors.New("assistant unavailable")
)

// storeErr translates a store failure for op into a service error.
func storeErr(op string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, op)
	}
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}

// aiErr wraps an AI collaborator failure so that both ErrAIUnavailable and the
// ai package failure kind stay visible to errors.Is.
func aiErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ai.ErrTimeout) {
		err = &ai.Error{Op: op, Kind: ai.ErrTimeout, Err: err}
	}
	return fmt.Errorf("%w: %w", ErrAIUnavailable, err)
}
