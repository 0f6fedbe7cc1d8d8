package security

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// Hasher hashes and verifies passwords using bcrypt. Callers must not log or
// persist plaintext passwords.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher with the given bcrypt cost, clamped to bcrypt's range.
// Zero or negative selects bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{Cost: cost}
}

// Hash produces a bcrypt hash of password suitable for storage.
func (h *Hasher) Hash(password []byte) (string, error) {
	b, err := bcrypt.GenerateFromPassword(password, h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare verifies password against the stored hash. Returns nil if they match;
// bcrypt.ErrMismatchedHashAndPassword or a hash-format error otherwise.
func (h *Hasher) Compare(hash string, password []byte) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), password)
}

// HashPool runs Hasher work on a bounded number of concurrent slots so that
// bursts of logins cannot saturate every CPU with bcrypt.
type HashPool struct {
	hasher *Hasher
	sem    *semaphore.Weighted
	size   int

	dummyOnce sync.Once
	dummyHash string
	dummyErr  error
}

// NewHashPool returns a pool with workers concurrent slots; workers <= 0 uses GOMAXPROCS.
func NewHashPool(h *Hasher, workers int) *HashPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &HashPool{hasher: h, sem: semaphore.NewWeighted(int64(workers)), size: workers}
}

// Size returns the number of concurrent slots.
func (p *HashPool) Size() int { return p.size }

// run waits for a slot and executes fn. Waiting honors ctx. Once fn has started it runs
// to completion and keeps its slot, but the caller returns as soon as ctx is done.
func (p *HashPool) run(ctx context.Context, fn func()) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	done := make(chan struct{})
	go func() {
		defer p.sem.Release(1)
		defer close(done)
		fn()
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Hash hashes password on the pool.
func (p *HashPool) Hash(ctx context.Context, password string) (string, error) {
	var hash string
	var herr error
	if err := p.run(ctx, func() { hash, herr = p.hasher.Hash([]byte(password)) }); err != nil {
		return "", err
	}
	if herr != nil {
		return "", fmt.Errorf("hash password: %w", herr)
	}
	return hash, nil
}

// Verify reports whether password matches hash. A mismatch is (false, nil).
func (p *HashPool) Verify(ctx context.Context, hash, password string) (bool, error) {
	var cerr error
	if err := p.run(ctx, func() { cerr = p.hasher.Compare(hash, []byte(password)) }); err != nil {
		return false, err
	}
	switch {
	case cerr == nil:
		return true, nil
	case errors.Is(cerr, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("compare password: %w", cerr)
	}
}

// VerifyDummy spends the same work as Verify against a fixed hash and always reports
// a mismatch. Used when no account exists so lookups cannot be timed apart.
func (p *HashPool) VerifyDummy(ctx context.Context, password string) error {
	p.dummyOnce.Do(func() {
		p.dummyHash, p.dummyErr = p.hasher.Hash([]byte("task-tracker-dummy-password"))
	})
	if p.dummyErr != nil {
		return p.dummyErr
	}
	_, err := p.Verify(ctx, p.dummyHash, password)
	return err
}
