package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(s.Close)
	store := &RedisStore{
		Client: redis.NewClient(&redis.Options{Addr: s.Addr()}),
		Ctx:    context.Background(),
	}
	t.Cleanup(store.Close)
	return s, store
}

func TestAcquireGenerationLock(t *testing.T) {
	_, store := setupTestRedis(t)

	ok, err := store.AcquireGenerationLock(1, time.Minute)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if !ok {
		t.Fatal("expected first acquire to succeed")
	}

	ok, err = store.AcquireGenerationLock(1, time.Minute)
	if err != nil {
		t.Fatalf("second acquire failed: %v", err)
	}
	if ok {
		t.Fatal("expected second acquire to be rejected while lock is held")
	}

	// A different campaign locks independently.
	ok, err = store.AcquireGenerationLock(2, time.Minute)
	if err != nil || !ok {
		t.Fatalf("acquire for other campaign = (%v, %v), want (true, nil)", ok, err)
	}
}

func TestReleaseGenerationLock(t *testing.T) {
	_, store := setupTestRedis(t)

	if _, err := store.AcquireGenerationLock(1, time.Minute); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if err := store.ReleaseGenerationLock(1); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	ok, err := store.AcquireGenerationLock(1, time.Minute)
	if err != nil {
		t.Fatalf("reacquire failed: %v", err)
	}
	if !ok {
		t.Fatal("expected acquire to succeed after release")
	}
}

func TestGenerationLockExpires(t *testing.T) {
	s, store := setupTestRedis(t)

	if _, err := store.AcquireGenerationLock(1, time.Minute); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	s.FastForward(2 * time.Minute)

	ok, err := store.AcquireGenerationLock(1, time.Minute)
	if err != nil {
		t.Fatalf("reacquire failed: %v", err)
	}
	if !ok {
		t.Fatal("expected lock to expire after its TTL")
	}
}

func TestIncrementRunCount(t *testing.T) {
	s, store := setupTestRedis(t)

	for want := int64(1); want <= 3; want++ {
		got, err := store.IncrementRunCount(5)
		if err != nil {
			t.Fatalf("increment failed: %v", err)
		}
		if got != want {
			t.Errorf("run count = %d, want %d", got, want)
		}
	}

	key := fmt.Sprintf("perfgen:runs:campaign:%d:%s", 5, time.Now().Format("2006-01-02"))
	ttl := s.TTL(key)
	if ttl <= 0 || ttl > 24*time.Hour {
		t.Errorf("run counter TTL = %v, want within (0, 24h]", ttl)
	}
}

func TestLastSeedRoundTrip(t *testing.T) {
	_, store := setupTestRedis(t)

	if got := store.GetLastSeed(9); got != 0 {
		t.Errorf("last seed for unknown campaign = %d, want 0", got)
	}
	if err := store.SetLastSeed(9, 424242); err != nil {
		t.Fatalf("set last seed failed: %v", err)
	}
	if got := store.GetLastSeed(9); got != 424242 {
		t.Errorf("last seed = %d, want 424242", got)
	}
}
