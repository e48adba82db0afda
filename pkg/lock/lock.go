// Package lock provides fail-fast, TTL-bounded mutual exclusion shared by every
// service instance through an external coordination store.
//
// An acquisition either succeeds immediately or reports ErrBusy; there is no
// queuing and no internal retry. Each successful acquisition returns a fresh
// owner token, and Release only deletes the key while it still carries that
// token, so a holder whose lock already expired can never remove a lock that a
// later caller obtained.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrBusy means the key is currently held by someone else.
	ErrBusy = errors.New("lock is held by another owner")

	// ErrUnavailable means the coordination store could not be reached. It is
	// never returned for contention.
	ErrUnavailable = errors.New("lock store unavailable")

	ErrInvalidKey = errors.New("lock key cannot be empty")
	ErrInvalidTTL = errors.New("lock ttl must be positive")
)

type Locker interface {
	// Acquire sets key to a new owner token if it is absent. The key expires
	// after ttl unless released first.
	Acquire(ctx context.Context, key string, ttl time.Duration) (string, error)

	// Release deletes key only if it still holds token. Releasing a lock that
	// expired or was taken over is a no-op and reports released=false.
	Release(ctx context.Context, key, token string) (released bool, err error)
}

func NewToken() string {
	return uuid.NewString()
}

// BookingKey scopes a lock to a single traveler and tour.
func BookingKey(userID, tourID string) string {
	return fmt.Sprintf("lock:booking:%s:%s", userID, tourID)
}

func validate(key string, ttl time.Duration) error {
	if key == "" {
		return ErrInvalidKey
	}
	if ttl <= 0 {
		return fmt.Errorf("%w, got: %s", ErrInvalidTTL, ttl)
	}
	return nil
}
