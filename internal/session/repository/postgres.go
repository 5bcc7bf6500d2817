package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"trasepad/backend/internal/session/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// TokenExists reports whether any session row, open or closed, carries token.
func (r *PostgresRepository) TokenExists(ctx context.Context, token string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM sessions WHERE token = $1)`, token).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// Create persists the session to the database. The session must have Token set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	closedAt := sql.NullTime{}
	if s.ClosedAt != nil {
		closedAt = sql.NullTime{Time: *s.ClosedAt, Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, opened_at, closed_at, source_addr)
		 VALUES ($1, $2, $3, $4, $5)`,
		s.Token, s.UserID, s.OpenedAt, closedAt, s.SourceAddr)
	return err
}

// Close marks the session with the given token as closed. No-op if already closed.
func (r *PostgresRepository) Close(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET closed_at = now() WHERE token = $1 AND closed_at IS NULL`, token)
	return err
}

// CloseAllOpenForUser closes every open session owned by userID.
func (r *PostgresRepository) CloseAllOpenForUser(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET closed_at = now() WHERE user_id = $1 AND closed_at IS NULL`, userID)
	return err
}

// CloseStaleAnonymous closes open anonymous (user_id = 0) sessions older than olderThan.
func (r *PostgresRepository) CloseStaleAnonymous(ctx context.Context, olderThan time.Duration) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET closed_at = now()
		 WHERE user_id = 0 AND closed_at IS NULL AND opened_at < now() - $1::interval`,
		pgInterval(olderThan))
	return err
}

// FindOpenWithUser runs the three validation statements inside a single
// transaction so two concurrent validations cannot both observe a session the
// other is about to close: (1) close open sessions older than maxAge,
// (2) close the token's session when its recorded source address differs,
// (3) select the surviving open session joined to its user.
func (r *PostgresRepository) FindOpenWithUser(ctx context.Context, token, sourceAddr string, maxAge time.Duration) (*domain.Session, int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET closed_at = now()
		 WHERE closed_at IS NULL AND opened_at < now() - $1::interval`,
		pgInterval(maxAge)); err != nil {
		return nil, 0, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET closed_at = now()
		 WHERE token = $1 AND closed_at IS NULL AND source_addr <> $2`,
		token, sourceAddr); err != nil {
		return nil, 0, err
	}

	var (
		s     domain.Session
		flags int64
	)
	err = tx.QueryRowContext(ctx,
		`SELECT s.token, s.user_id, s.opened_at, s.source_addr, COALESCE(u.permission_flags, 0)
		 FROM sessions s
		 LEFT JOIN users u ON u.user_id = s.user_id
		 WHERE s.token = $1 AND s.closed_at IS NULL`,
		token).Scan(&s.Token, &s.UserID, &s.OpenedAt, &s.SourceAddr, &flags)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Still commit so the expiry/relocation closes above take effect.
			if cerr := tx.Commit(); cerr != nil {
				return nil, 0, cerr
			}
			return nil, 0, nil
		}
		return nil, 0, err
	}
	if err := tx.Commit(); err != nil {
		return nil, 0, err
	}
	return &s, flags, nil
}

// pgInterval renders d as a Postgres interval literal, e.g. "172800 seconds".
func pgInterval(d time.Duration) string {
	return fmt.Sprintf("%d seconds", int64(d.Seconds()))
}
