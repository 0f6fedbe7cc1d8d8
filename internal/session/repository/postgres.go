package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"task-tracker/backend/internal/security"
	"task-tracker/backend/internal/session/domain"
)

const sessionColumns = `id, user_id, refresh_token_hash, expires_at, active, last_used_at, created_at, user_agent, ip_address`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the session to the database. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.ID, s.UserID, s.RefreshTokenHash, s.ExpiresAt, s.Active, s.LastUsedAt, s.CreatedAt, s.UserAgent, s.IPAddress)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

// GetByRefreshToken returns the session holding refreshToken for userID, or nil if not found.
func (r *PostgresRepository) GetByRefreshToken(ctx context.Context, refreshToken, userID string) (*domain.Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE refresh_token_hash = $1 AND user_id = $2`,
		security.HashRefreshToken(refreshToken), userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session by refresh token: %w", err)
	}
	return s, nil
}

// Rotate swaps the refresh token in place. The WHERE clause on the presented hash makes
// concurrent rotations of the same token race on a single row; only one wins.
func (r *PostgresRepository) Rotate(ctx context.Context, sessionID, presented, next string, expiresAt, usedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE sessions
		SET refresh_token_hash = $3, expires_at = $4, last_used_at = $5
		WHERE id = $1 AND refresh_token_hash = $2 AND active`,
		sessionID, security.HashRefreshToken(presented), security.HashRefreshToken(next), expiresAt, usedAt)
	if err != nil {
		return fmt.Errorf("rotate session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rotate session: %w", err)
	}
	if n == 0 {
		return ErrStaleRefreshToken
	}
	return nil
}

// InvalidateAllByUser deactivates all active sessions for the given user.
func (r *PostgresRepository) InvalidateAllByUser(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE sessions SET active = FALSE WHERE user_id = $1 AND active`, userID)
	if err != nil {
		return 0, fmt.Errorf("invalidate sessions: %w", err)
	}
	return res.RowsAffected()
}

// Delete removes the session with the given id. Missing rows are not an error.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredBefore removes sessions that expired before t.
func (r *PostgresRepository) DeleteExpiredBefore(ctx context.Context, t time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < $1`, t)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}

// ListActiveByUser returns the user's active, unexpired sessions, most recently used first.
func (r *PostgresRepository) ListActiveByUser(ctx context.Context, userID string, now time.Time) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM sessions
		WHERE user_id = $1 AND active AND expires_at > $2
		ORDER BY last_used_at DESC`, userID, now)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()
	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var s domain.Session
	if err := row.Scan(&s.ID, &s.UserID, &s.RefreshTokenHash, &s.ExpiresAt, &s.Active, &s.LastUsedAt,
		&s.CreatedAt, &s.UserAgent, &s.IPAddress); err != nil {
		return nil, err
	}
	return &s, nil
}
