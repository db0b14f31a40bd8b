package ports

import (
	"context"

	"github.com/aretw0/splitbill/pkg/domain"
)

// SessionStore defines the interface for keeping in-flight sessions.
// Sessions are transient: a store only needs to outlive a single conversation.
type SessionStore interface {
	// Save persists the session for a given actor.
	Save(ctx context.Context, actorID string, session *domain.Session) error

	// Load retrieves the session for a given actor.
	// Returns domain.ErrSessionNotFound if the actor has no session.
	Load(ctx context.Context, actorID string) (*domain.Session, error)

	// Delete removes the session for a given actor. Deleting a missing session is not an error.
	Delete(ctx context.Context, actorID string) error

	// List returns the actors that currently hold a session.
	List(ctx context.Context) ([]string, error)
}
