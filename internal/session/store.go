// Package session keeps live consultation sessions in memory and expires
// them on an idle timer.
package session

import (
	"context"
	"errors"

	"github.com/soyeahso/ai4cs/internal/domain"
)

var (
	// ErrSessionNotFound is returned for unknown, expired or evicted ids.
	ErrSessionNotFound = errors.New("session not found")

	// ErrDuplicateSession is returned when Create receives an id already in use.
	ErrDuplicateSession = errors.New("session already exists")

	// ErrStoreFull is returned when the store is at capacity and every
	// session is mid-update.
	ErrStoreFull = errors.New("session store is full")
)

// Store is the session persistence contract used by the consultation engine.
type Store interface {
	// Create stores a new session and returns its id.
	Create(sess domain.Session) (string, error)

	// Get returns a snapshot of the session. Mutating it has no effect on
	// the store.
	Get(id string) (domain.Session, bool)

	// Update runs fn on a working copy of the session while holding the
	// session's write lock. The copy is committed whether or not fn returns
	// an error; fn's error is returned unchanged. If ctx ends before the
	// lock is acquired, Update returns ctx.Err() without calling fn.
	Update(ctx context.Context, id string, fn func(*domain.Session) error) error
}

// EvictReason says why a session left the store.
type EvictReason string

const (
	ReasonExpired  EvictReason = "expired"
	ReasonCapacity EvictReason = "capacity"
	ReasonDeleted  EvictReason = "deleted"
)

// EvictFunc is called after a session has been removed. It runs outside
// every store lock.
type EvictFunc func(id string, reason EvictReason)
