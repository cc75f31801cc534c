package cache

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-viewas/directory"
	"github.com/goliatone/go-viewas/identity"
)

func TestLRUStoresCopies(t *testing.T) {
	ctx := context.Background()
	c, err := NewLRU(WithSize(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entry := Entry{Roles: []directory.Role{{Slug: "editor", Capabilities: identity.Capabilities{"edit_posts": true}}}}
	c.Set(ctx, "1", entry)
	entry.Roles[0].Capabilities["manage_options"] = true

	got, ok := c.Get(ctx, "1")
	if !ok {
		t.Fatalf("expected cached entry")
	}
	if got.Roles[0].Capabilities.Has("manage_options") {
		t.Fatalf("expected cache to hold its own copy")
	}
}

func TestLRUEvictsOldest(t *testing.T) {
	ctx := context.Background()
	c, err := NewLRU(WithSize(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.Set(ctx, "1", Entry{Locales: []string{"en_US"}})
	c.Set(ctx, "2", Entry{Locales: []string{"de_DE"}})
	if _, ok := c.Get(ctx, "1"); ok {
		t.Fatalf("expected first entry to be evicted")
	}
	if _, ok := c.Get(ctx, "2"); !ok {
		t.Fatalf("expected second entry to be cached")
	}
}

func TestLRUExpiresByTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1000, 0)
	c, err := NewLRU(WithTTL(time.Minute), WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.Set(ctx, "1", Entry{})
	now = now.Add(2 * time.Minute)
	if _, ok := c.Get(ctx, "1"); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestNoopCacheNeverHits(t *testing.T) {
	var c Cache = NoopCache{}
	c.Set(context.Background(), "1", Entry{})
	if _, ok := c.Get(context.Background(), "1"); ok {
		t.Fatalf("expected miss")
	}
}
