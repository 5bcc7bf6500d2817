// Package telemetry streams access events to downstream consumers (e.g. Kafka).
// Emission is best-effort and asynchronous; it never affects request outcomes.
package telemetry

import (
	"context"

	"trasepad/backend/internal/telemetry/domain"
)

// EventEmitter emits access events. Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *domain.AccessEvent) error
}
