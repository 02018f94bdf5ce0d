package cache

import (
	"errors"
	"testing"
	"time"
)

func TestLRUCache_GetSet(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("expected a=1, got %v %v", v, ok)
	}

	// "b" is now least recently used
	c.Set("c", 3)
	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if c.Size() != 2 {
		t.Errorf("expected size 2, got %d", c.Size())
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	now := time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Error("expected expired item to be gone")
	}

	c.Set("x", "1")
	c.Set("y", "2")
	now = now.Add(2 * time.Minute)
	if n := c.CleanExpired(); n != 2 {
		t.Errorf("expected 2 cleaned, got %d", n)
	}
}

func TestLRUCache_DeletePrefix(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("alice|2025-11", 1)
	c.Set("alice|all", 2)
	c.Set("bob|2025-11", 3)

	if n := c.DeletePrefix("alice|"); n != 2 {
		t.Fatalf("expected 2 removed, got %d", n)
	}
	if _, ok := c.Get("bob|2025-11"); !ok {
		t.Error("other users' snapshots must survive")
	}
}

func TestManager_CleanNowAndStop(t *testing.T) {
	c := NewLRUCache[int](10, -time.Second)
	c.Set("a", 1)

	m := NewManager()
	m.Register(c)
	if n := m.CleanNow(); n != 1 {
		t.Errorf("expected 1 cleaned, got %d", n)
	}

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}

func TestLRUCache_Stats(t *testing.T) {
	c := NewLRUCache[int](4, time.Minute)
	c.Set("a", 1)
	c.Get("a")
	c.Get("a")
	c.Get("b")

	if got := c.Stats(); got != (Stats{Hits: 2, Misses: 1, Size: 1}) {
		t.Errorf("Stats() = %+v", got)
	}
}

func TestLoad(t *testing.T) {
	c := NewLRUCache[[]int](4, time.Minute)
	calls := 0
	load := func() ([]int, error) {
		calls++
		return []int{calls}, nil
	}

	for i := 0; i < 3; i++ {
		v, err := Load[[]int](c, nil, "", "k", load)
		if err != nil || v[0] != 1 {
			t.Fatalf("Load() = %v, %v", v, err)
		}
	}
	if calls != 1 {
		t.Errorf("expected one load, got %d", calls)
	}

	if _, err := Load[[]int](c, nil, "", "bad", func() ([]int, error) { return nil, errors.New("store down") }); err == nil {
		t.Fatal("expected load error")
	}
	if _, ok := c.Get("bad"); ok {
		t.Error("errors must not be cached")
	}

	// A nil cache always loads
	if _, err := Load[[]int](nil, nil, "", "k", load); err != nil || calls != 2 {
		t.Errorf("nil cache: calls=%d err=%v", calls, err)
	}
}

func TestLoad_SkipsSetAfterInvalidate(t *testing.T) {
	c := NewLRUCache[int](4, time.Minute)
	var gens Generations

	v, err := Load[int](c, &gens, "alice", "alice|2025-11", func() (int, error) {
		// A write lands while the read is in flight
		gens.Invalidate("alice", func() { c.DeletePrefix("alice|") })
		return 1, nil
	})
	if err != nil || v != 1 {
		t.Fatalf("Load() = %v, %v", v, err)
	}
	if _, ok := c.Get("alice|2025-11"); ok {
		t.Fatal("value loaded across an invalidation must not be cached")
	}

	// Other scopes are unaffected
	if _, err := Load[int](c, &gens, "bob", "bob|2025-11", func() (int, error) { return 2, nil }); err != nil {
		t.Fatal(err)
	}
	if v, ok := c.Get("bob|2025-11"); !ok || v != 2 {
		t.Errorf("bob snapshot = %v, %v", v, ok)
	}

	// A quiet reload is cached again
	if _, err := Load[int](c, &gens, "alice", "alice|2025-11", func() (int, error) { return 3, nil }); err != nil {
		t.Fatal(err)
	}
	if v, ok := c.Get("alice|2025-11"); !ok || v != 3 {
		t.Errorf("alice snapshot = %v, %v", v, ok)
	}
}
