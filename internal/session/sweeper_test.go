package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"task-tracker/backend/internal/logging"
)

type fakeDeleter struct {
	mu      sync.Mutex
	calls   []time.Time
	deleted int64
	err     error
}

func (f *fakeDeleter) DeleteExpiredBefore(_ context.Context, t time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, t)
	return f.deleted, f.err
}

func (f *fakeDeleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestSweeper_SweepOnce(t *testing.T) {
	fixed := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	repo := &fakeDeleter{deleted: 4}
	s := NewSweeper(repo, time.Minute, logging.Discard())
	s.now = func() time.Time { return fixed }
	var observed int64
	s.OnSweep = func(n int64, err error) { observed = n }

	n, err := s.SweepOnce(context.Background())
	if err != nil || n != 4 {
		t.Fatalf("SweepOnce: got %d, %v", n, err)
	}
	if !repo.calls[0].Equal(fixed) {
		t.Errorf("cutoff = %v, want %v", repo.calls[0], fixed)
	}
	if observed != 4 {
		t.Errorf("OnSweep saw %d, want 4", observed)
	}
}

func TestSweeper_SweepOnceError(t *testing.T) {
	repo := &fakeDeleter{err: errors.New("db down")}
	s := NewSweeper(repo, time.Minute, logging.Discard())
	if _, err := s.SweepOnce(context.Background()); err == nil {
		t.Fatal("SweepOnce should surface repository errors")
	}
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	repo := &fakeDeleter{}
	s := NewSweeper(repo, 5*time.Millisecond, logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for repo.callCount() < 2 {
		select {
		case <-deadline:
			t.Fatal("sweeper did not tick")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
}
