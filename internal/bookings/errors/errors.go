package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	ErrOutboxEntryNotFound = errors.New("outbox entry not found")
)
