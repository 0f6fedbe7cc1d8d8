package security

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestHasher_HashAndCompare(t *testing.T) {
	h := NewHasher(4)
	password := []byte("secret123")
	hash, err := h.Hash(password)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "" {
		t.Fatal("Hash returned empty")
	}
	if err := h.Compare(hash, password); err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if err := h.Compare(hash, []byte("wrong")); err == nil {
		t.Fatal("Compare with wrong password should fail")
	}
}

func TestHasher_Cost(t *testing.T) {
	if h := NewHasher(12); h.Cost != 12 {
		t.Errorf("Cost want 12, got %d", h.Cost)
	}
	if h := NewHasher(0); h.Cost < 4 {
		t.Errorf("zero cost should fall back to the default, got %d", h.Cost)
	}
	if h := NewHasher(99); h.Cost != 31 {
		t.Errorf("cost above max should clamp to 31, got %d", h.Cost)
	}
}

func TestHashPool_HashAndVerify(t *testing.T) {
	pool := NewHashPool(NewHasher(4), 2)
	ctx := context.Background()
	hash, err := pool.Hash(ctx, "P@ss1")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	ok, err := pool.Verify(ctx, hash, "P@ss1")
	if err != nil || !ok {
		t.Fatalf("Verify correct password: ok=%v err=%v", ok, err)
	}
	ok, err = pool.Verify(ctx, hash, "P@ss2")
	if err != nil || ok {
		t.Fatalf("Verify wrong password: ok=%v err=%v", ok, err)
	}
	if _, err := pool.Verify(ctx, "not-a-bcrypt-hash", "P@ss1"); err == nil {
		t.Fatal("Verify with malformed hash should return an error")
	}
}

func TestHashPool_VerifyDummy(t *testing.T) {
	pool := NewHashPool(NewHasher(4), 1)
	if err := pool.VerifyDummy(context.Background(), "anything"); err != nil {
		t.Fatalf("VerifyDummy: %v", err)
	}
}

func TestHashPool_DefaultSize(t *testing.T) {
	if NewHashPool(NewHasher(4), 0).Size() < 1 {
		t.Fatal("default pool size must be at least 1")
	}
}

func TestHashPool_BoundsConcurrency(t *testing.T) {
	pool := NewHashPool(NewHasher(4), 2)
	var running, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pool.run(context.Background(), func() {
				n := atomic.AddInt32(&running, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&running, -1)
			})
		}()
	}
	wg.Wait()
	if peak > 2 {
		t.Errorf("peak concurrency %d exceeds pool size 2", peak)
	}
}

func TestHashPool_CancelWhileWaiting(t *testing.T) {
	pool := NewHashPool(NewHasher(4), 1)
	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = pool.run(context.Background(), func() {
			close(started)
			<-release
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := pool.Hash(ctx, "P@ss1")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Hash with busy pool: want DeadlineExceeded, got %v", err)
	}
	close(release)
}
