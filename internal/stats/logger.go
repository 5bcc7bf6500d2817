// Package stats records per-module access statistics for traffic reporting.
package stats

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"trasepad/backend/internal/stats/domain"
	statsrepo "trasepad/backend/internal/stats/repository"
)

// Logger records access-statistics entries. Best-effort: failures are logged
// and never surfaced to the request that triggered them.
type Logger struct {
	repo statsrepo.Repository
}

// NewLogger returns a Logger that persists to repo. repo may be nil; then
// Record is a no-op.
func NewLogger(repo statsrepo.Repository) *Logger {
	return &Logger{repo: repo}
}

// Record writes one access-stat entry for the given session token and module.
func (l *Logger) Record(ctx context.Context, token, module string) {
	if l == nil || l.repo == nil {
		return
	}
	entry := &domain.AccessStat{
		ID:        uuid.New().String(),
		Token:     token,
		Module:    module,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("stats: failed to record access %s/%s: %v", module, token, err)
	}
}
