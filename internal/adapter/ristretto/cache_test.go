package ristretto

import (
	"context"
	"testing"
	"time"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(1 << 20)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestSetAndGet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "history:24", []byte(`[{"hour":"h"}]`), time.Minute); err != nil {
		t.Fatal(err)
	}
	c.c.Wait()

	val, found, err := c.Get(ctx, "history:24")
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("expected found after Set")
	}
	if string(val) != `[{"hour":"h"}]` {
		t.Fatalf("unexpected value %s", val)
	}
}

func TestGetMiss(t *testing.T) {
	c := newTestCache(t)

	_, found, err := c.Get(context.Background(), "nonexistent")
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("expected miss for nonexistent key")
	}
}

func TestDelete(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "history:1", []byte("rows"), time.Minute); err != nil {
		t.Fatal(err)
	}
	c.c.Wait()

	if err := c.Delete(ctx, "history:1"); err != nil {
		t.Fatal(err)
	}
	c.c.Wait()

	if _, found, _ := c.Get(ctx, "history:1"); found {
		t.Fatal("expected miss after Delete")
	}
}

func TestTTLExpiry(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "history:48", []byte("rows"), 20*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	c.c.Wait()

	time.Sleep(50 * time.Millisecond)

	if _, found, _ := c.Get(ctx, "history:48"); found {
		t.Fatal("expected expiry after TTL")
	}
}
