package memory

import (
	"context"
	"testing"
	"time"

	"github.com/flowforge/redisrun/pkg/kv"
	"github.com/flowforge/redisrun/pkg/kv/kvtest"
)

func TestMemoryStore(t *testing.T) {
	factory := func(t *testing.T) kv.Store {
		return NewStore()
	}
	kvtest.RunConformanceTests(t, factory)
}

func TestGlobMatch(t *testing.T) {
	tests := []struct {
		pattern string
		s       string
		want    bool
	}{
		{"*", "anything", true},
		{"user:*", "user:1", true},
		{"user:*", "session:1", false},
		{"user:?", "user:1", true},
		{"user:?", "user:12", false},
		{"a*c", "abc", true},
		{"a*c", "ac", true},
		{"a*c", "abd", false},
		{"", "", true},
		{"", "x", false},
	}

	for _, tt := range tests {
		if got := globMatch(tt.pattern, tt.s); got != tt.want {
			t.Errorf("globMatch(%q, %q) = %v, want %v", tt.pattern, tt.s, got, tt.want)
		}
	}
}

func TestLazyExpiration(t *testing.T) {
	store := NewStore()
	defer store.Close()

	ctx := context.Background()
	if err := store.Set(ctx, "test:exp", "v", 10*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	time.Sleep(25 * time.Millisecond)

	if _, err := store.Get(ctx, "test:exp"); err != kv.ErrNotFound {
		t.Fatalf("Expected ErrNotFound after expiry, got %v", err)
	}

	count, err := store.Exists(ctx, "test:exp")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("Expected 0, got %d", count)
	}
}

func TestUnsupportedCommands(t *testing.T) {
	store := NewStore()
	defer store.Close()

	ctx := context.Background()
	if _, err := store.Eval(ctx, "return 1", nil, nil); err == nil {
		t.Fatal("Expected Eval to be unsupported")
	}
	if _, err := store.Do(ctx, "JSON.GET", "key"); err == nil {
		t.Fatal("Expected Do to be unsupported")
	}
}

func TestPubSubDelivery(t *testing.T) {
	store := NewStore()
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := store.Subscribe(ctx, "events")
	defer sub.Close()

	delivered, err := store.Publish(ctx, "events", "hello")
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if delivered != 1 {
		t.Fatalf("Expected 1 receiver, got %d", delivered)
	}

	select {
	case msg := <-sub.Channel():
		if msg.Channel != "events" || msg.Payload != "hello" {
			t.Fatalf("Unexpected message: %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for message")
	}

	// No subscribers on other channels
	delivered, err = store.Publish(ctx, "other", "x")
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if delivered != 0 {
		t.Fatalf("Expected 0 receivers, got %d", delivered)
	}
}
