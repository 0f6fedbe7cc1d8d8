// Package session holds background maintenance for persisted sessions.
package session

import (
	"context"
	"log/slog"
	"time"
)

// ExpiredDeleter is the slice of the session repository the sweeper needs.
type ExpiredDeleter interface {
	DeleteExpiredBefore(ctx context.Context, t time.Time) (int64, error)
}

// Sweeper periodically deletes sessions whose expiry has passed.
type Sweeper struct {
	repo     ExpiredDeleter
	interval time.Duration
	log      *slog.Logger
	now      func() time.Time
	// OnSweep, when set, is called after every pass with the number of rows removed.
	OnSweep func(deleted int64, err error)
}

// NewSweeper returns a Sweeper running every interval.
func NewSweeper(repo ExpiredDeleter, interval time.Duration, log *slog.Logger) *Sweeper {
	if log == nil {
		log = slog.Default()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{repo: repo, interval: interval, log: log, now: time.Now}
}

// SweepOnce deletes sessions that expired before now.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpiredBefore(ctx, s.now().UTC())
	if s.OnSweep != nil {
		s.OnSweep(n, err)
	}
	if err != nil {
		s.log.ErrorContext(ctx, "session sweep failed", "error", err)
		return n, err
	}
	if n > 0 {
		s.log.InfoContext(ctx, "expired sessions deleted", "count", n)
	}
	return n, nil
}

// Run sweeps immediately and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	_, _ = s.SweepOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			_, _ = s.SweepOnce(ctx)
		}
	}
}
