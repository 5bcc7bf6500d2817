package repository

import (
	"context"
	"time"

	"trasepad/backend/internal/session/domain"
)

// Repository defines persistence for sessions.
type Repository interface {
	// TokenExists reports whether any session, open or closed, uses token.
	TokenExists(ctx context.Context, token string) (bool, error)
	// Create persists the session. The session must have Token set.
	Create(ctx context.Context, s *domain.Session) error
	// Close marks the session with the given token as closed. No-op if already closed.
	Close(ctx context.Context, token string) error
	// CloseAllOpenForUser closes every open session owned by userID.
	CloseAllOpenForUser(ctx context.Context, userID int64) error
	// CloseStaleAnonymous closes open anonymous sessions older than olderThan.
	CloseStaleAnonymous(ctx context.Context, olderThan time.Duration) error
	// FindOpenWithUser performs the validation sweep as one atomic step:
	// it closes any open session older than maxAge, closes the session for
	// token if it was opened from a different source address, then looks up
	// the surviving open session joined to its owning user. Returns the
	// session and the user's permission flags, or (nil, 0, nil) when no open
	// matching session remains.
	FindOpenWithUser(ctx context.Context, token, sourceAddr string, maxAge time.Duration) (*domain.Session, int64, error)
}
