package cron

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeRedis struct {
	values map[string]string
	setOK  bool
}

func newFakeRedis(setOK bool) *fakeRedis {
	return &fakeRedis{values: map[string]string{}, setOK: setOK}
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if !f.setOK {
		return false, nil
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeRedis) Get(ctx context.Context, key string) (string, error) {
	value, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func TestRedisLockAcquireRelease(t *testing.T) {
	store := newFakeRedis(true)
	lock, err := NewRedisLock(store, "worker:delivery", time.Minute)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}

	ok, err := lock.Acquire(context.Background())
	if err != nil || !ok {
		t.Fatalf("acquire: ok=%v err=%v", ok, err)
	}
	if _, exists := store.values["worker:delivery"]; !exists {
		t.Fatal("expected lock key set")
	}

	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, exists := store.values["worker:delivery"]; exists {
		t.Fatal("expected lock key removed")
	}
}

func TestRedisLockReleaseRespectsForeignOwner(t *testing.T) {
	store := newFakeRedis(true)
	lock, err := NewRedisLock(store, "worker:delivery", time.Minute)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	if _, err := lock.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	// another instance stole the key after TTL expiry
	store.values["worker:delivery"] = "someone-else"

	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
	if store.values["worker:delivery"] != "someone-else" {
		t.Fatal("release must not delete a lock owned by someone else")
	}
}

func TestRedisLockAcquireContended(t *testing.T) {
	store := newFakeRedis(false)
	lock, err := NewRedisLock(store, "worker:delivery", time.Minute)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	ok, err := lock.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if ok {
		t.Fatal("expected contended acquire to fail")
	}
}
