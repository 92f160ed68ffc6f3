package cache

import (
	"context"
	"testing"
	"time"
)

func TestTryLockWithoutRedis(t *testing.T) {
	UseClient(nil, "")
	lock, ok, err := TryLock(context.Background(), "webhook:lock:txn-1", time.Second)
	if err != nil || !ok {
		t.Fatalf("lock should be granted when redis disabled, ok=%v err=%v", ok, err)
	}
	if err := lock.Unlock(context.Background()); err != nil {
		t.Fatalf("unlock failed: %v", err)
	}
}

func TestBuildKeyUsesPrefix(t *testing.T) {
	UseClient(nil, "mp")
	if got := buildKey("auth:user:1"); got != "mp:auth:user:1" {
		t.Fatalf("unexpected key %s", got)
	}
	if got := buildKey("  "); got != "mp" {
		t.Fatalf("unexpected empty key %s", got)
	}
}
