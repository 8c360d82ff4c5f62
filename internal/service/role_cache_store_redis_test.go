package service

import (
	"context"
	"testing"
	"time"
)

func TestRedisRoleCacheStoreKeyingAndInvalidation(t *testing.T) {
	ctx := context.Background()
	_, client := newMiniRedis(t)
	store := NewRedisRoleCacheStore(client, "role_test")

	if err := store.Set(ctx, "sub-42", RoleEditor, time.Minute); err != nil {
		t.Fatalf("set initial role: %v", err)
	}
	got, ok, err := store.Get(ctx, "sub-42")
	if err != nil {
		t.Fatalf("get initial role: %v", err)
	}
	if !ok || got != RoleEditor {
		t.Fatalf("expected cached editor role, got %q ok=%v", got, ok)
	}

	if err := store.InvalidateSubject(ctx, "sub-42"); err != nil {
		t.Fatalf("invalidate subject: %v", err)
	}
	if _, ok, err = store.Get(ctx, "sub-42"); err != nil || ok {
		t.Fatalf("expected miss after subject invalidation, ok=%v err=%v", ok, err)
	}

	if err := store.Set(ctx, "sub-42", RoleEditor, time.Minute); err != nil {
		t.Fatalf("set after subject invalidation: %v", err)
	}
	if err := store.Set(ctx, "sub-7", RoleSupport, time.Minute); err != nil {
		t.Fatalf("set other subject: %v", err)
	}
	if err := store.InvalidateAll(ctx); err != nil {
		t.Fatalf("invalidate all: %v", err)
	}
	for _, subject := range []string{"sub-42", "sub-7"} {
		if _, ok, err = store.Get(ctx, subject); err != nil || ok {
			t.Fatalf("expected miss for %s after global invalidation, ok=%v err=%v", subject, ok, err)
		}
	}
}

func TestRedisRoleCacheStoreCachesEmptyRole(t *testing.T) {
	ctx := context.Background()
	_, client := newMiniRedis(t)
	store := NewRedisRoleCacheStore(client, "role_test")

	if err := store.Set(ctx, "nobody", "", time.Minute); err != nil {
		t.Fatalf("set empty role: %v", err)
	}
	got, ok, err := store.Get(ctx, "nobody")
	if err != nil {
		t.Fatalf("get empty role: %v", err)
	}
	if !ok || got != "" {
		t.Fatalf("expected cached empty role, got %q ok=%v", got, ok)
	}
}

func TestRedisRoleCacheStoreMalformedEpochValue(t *testing.T) {
	ctx := context.Background()
	_, client := newMiniRedis(t)
	store := NewRedisRoleCacheStore(client, "role_test")

	if err := client.Set(ctx, store.globalEpochKey(), "NaN", time.Minute).Err(); err != nil {
		t.Fatalf("seed malformed epoch: %v", err)
	}
	if _, _, err := store.Get(ctx, "sub-7"); err == nil {
		t.Fatal("expected parse error for malformed epoch")
	}
}

func TestInMemoryRoleCacheStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryRoleCacheStore()

	if err := store.Set(ctx, "sub-1", RoleAdmin, time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, ok, _ := store.Get(ctx, "sub-1"); ok {
		t.Fatal("expected expired entry to miss")
	}
	if err := store.Set(ctx, "sub-1", RoleAdmin, 0); err != nil {
		t.Fatalf("set with zero ttl: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "sub-1"); ok {
		t.Fatal("zero ttl must not cache")
	}
}
