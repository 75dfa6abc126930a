// Package store persists game aggregates. The aggregate (session,
// participants, round state, votes, leave requests) is the unit of both
// atomicity and serialization: Update runs its mutation under a
// per-session exclusive lock and commits all changes or none.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/moonvale/nachtrat/server/internal/models"
)

var (
	ErrNotFound     = errors.New("store: game not found")
	ErrCodeConflict = errors.New("store: join code already in use")
	ErrCodeNotFound = errors.New("store: join code not found")
)

// Mutator applies a command to a loaded aggregate. It returns whether a
// client-visible change occurred (drives push fan-out). Returning an error
// aborts the whole update with no observable effect.
type Mutator func(g *models.Game) (changed bool, err error)

// Viewer reads a loaded aggregate. The aggregate must not be retained or
// mutated after the callback returns.
type Viewer func(g *models.Game) error

type Store interface {
	// Create persists a fresh aggregate; fails with ErrCodeConflict when
	// the join code is taken.
	Create(ctx context.Context, g *models.Game) error

	// FindIDByCode resolves a six-digit join code to a session id.
	FindIDByCode(ctx context.Context, code string) (uuid.UUID, error)

	// View runs fn against a consistent snapshot of the aggregate.
	View(ctx context.Context, id uuid.UUID, fn Viewer) error

	// Update loads the aggregate under the session's serialization lock,
	// applies fn, and persists the result atomically.
	Update(ctx context.Context, id uuid.UUID, fn Mutator) (changed bool, err error)

	// Delete destroys the aggregate and everything it owns.
	Delete(ctx context.Context, id uuid.UUID) error

	// ListIDs returns the ids of all stored sessions (janitor sweep).
	ListIDs(ctx context.Context) ([]uuid.UUID, error)

	Close()
}
