package contextstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/bitiz/tirebot-go/internal/domain"
	"github.com/bitiz/tirebot-go/internal/infra/contextstore"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoryGetOrCreateIsStable(t *testing.T) {
	s := contextstore.NewMemory(30 * time.Minute)
	ctx := context.Background()

	a, err := s.GetOrCreate(ctx, "s1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	a.Brand = "toyota"
	if err := s.Save(ctx, a); err != nil {
		t.Fatalf("Save: %v", err)
	}

	b, err := s.GetOrCreate(ctx, "s1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if b.Brand != "toyota" {
		t.Errorf("Brand = %q, want toyota", b.Brand)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestMemoryClear(t *testing.T) {
	s := contextstore.NewMemory(30 * time.Minute)
	ctx := context.Background()

	c, _ := s.GetOrCreate(ctx, "s1")
	c.Model = "corolla"
	s.Save(ctx, c)
	if err := s.Clear(ctx, "s1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	fresh, _ := s.GetOrCreate(ctx, "s1")
	if fresh.Model != "" {
		t.Errorf("Model = %q after clear, want empty", fresh.Model)
	}
}

func TestMemoryEvictsIdleSessions(t *testing.T) {
	current := time.Now()
	s := contextstore.NewMemoryWithClock(30*time.Minute, func() time.Time { return current })
	ctx := context.Background()

	s.GetOrCreate(ctx, "stale")
	current = current.Add(time.Hour)
	s.GetOrCreate(ctx, "fresh")

	if got := s.Len(); got != 1 {
		t.Errorf("Len = %d, want 1 after eviction", got)
	}
}

func TestMemoryReadRefreshesIdleTimestamp(t *testing.T) {
	current := time.Now()
	s := contextstore.NewMemoryWithClock(30*time.Minute, func() time.Time { return current })
	ctx := context.Background()

	s.GetOrCreate(ctx, "s1")
	current = current.Add(20 * time.Minute)
	s.GetOrCreate(ctx, "s1") // read only, no Save
	current = current.Add(20 * time.Minute)

	// 40 minutes after creation but only 20 since the last read.
	if got := s.Len(); got != 1 {
		t.Errorf("Len = %d, want 1, read did not refresh the idle timestamp", got)
	}
}

func TestMemorySweepWithConcurrentTurnMutation(t *testing.T) {
	s := contextstore.NewMemory(30 * time.Minute)
	ctx := context.Background()

	a, _ := s.GetOrCreate(ctx, "session-a")

	// Session A's turn mutates its context outside the store lock while
	// session B's accesses trigger sweeps. The sweep must only read
	// store-owned state; run with -race.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			a.Touch()
			a.CollectedParameters["city"] = "İstanbul"
		}
	}()
	for i := 0; i < 500; i++ {
		if _, err := s.GetOrCreate(ctx, "session-b"); err != nil {
			t.Errorf("GetOrCreate: %v", err)
		}
	}
	<-done
}

func newRedisStore(t *testing.T, ttl time.Duration) *contextstore.Redis {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return contextstore.NewRedis(client, ttl)
}

func TestRedisRoundTrip(t *testing.T) {
	s := newRedisStore(t, 30*time.Minute)
	ctx := context.Background()

	c := domain.NewConversationContext("s1")
	c.CurrentIntent = domain.IntentTireSearch
	c.Brand = "ford"
	c.CollectedParameters["brand"] = "ford"
	if err := s.Save(ctx, c); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.GetOrCreate(ctx, "s1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if got.CurrentIntent != domain.IntentTireSearch || got.Brand != "ford" {
		t.Errorf("loaded context = %+v", got)
	}
	if got.CollectedParameters["brand"] != "ford" {
		t.Errorf("parameters = %v", got.CollectedParameters)
	}
}

func TestRedisMissingKeyCreatesFresh(t *testing.T) {
	s := newRedisStore(t, 30*time.Minute)

	got, err := s.GetOrCreate(context.Background(), "unseen")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if got.SessionID != "unseen" || got.CurrentIntent != "" {
		t.Errorf("fresh context = %+v", got)
	}
	if got.CollectedParameters == nil {
		t.Error("fresh context must have a parameters map")
	}
}

func TestRedisClear(t *testing.T) {
	s := newRedisStore(t, 30*time.Minute)
	ctx := context.Background()

	c := domain.NewConversationContext("s1")
	c.Brand = "bmw"
	s.Save(ctx, c)
	if err := s.Clear(ctx, "s1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	got, _ := s.GetOrCreate(ctx, "s1")
	if got.Brand != "" {
		t.Errorf("Brand = %q after clear", got.Brand)
	}
}
