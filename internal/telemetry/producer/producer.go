// Package producer defines the interface for emitting access events (e.g. to Kafka).
package producer

import (
	"context"

	"trasepad/backend/internal/telemetry/domain"
)

// Producer emits access events. Callers use it best-effort: log and ignore errors.
type Producer interface {
	// Emit sends a single access event. Implementations may block briefly; call from a goroutine if needed.
	// Returns an error only on write failure; callers typically log and ignore.
	Emit(ctx context.Context, event *domain.AccessEvent) error
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}
