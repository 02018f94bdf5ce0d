// Package cache keeps short-lived entry snapshots so repeated month views do
// not hit the store.
package cache

import (
	"log/slog"
	"sync"
	"time"
)

// Cache is the snapshot cache the journal service reads through.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	// DeletePrefix drops every key with the prefix, e.g. all of one user's snapshots.
	DeletePrefix(prefix string) int
	Size() int
}

// Generations counts invalidations per scope. A value loaded while its
// scope was invalidated is not cached. The zero value is ready to use.
type Generations struct {
	mu sync.Mutex
	n  map[string]uint64
}

func (g *Generations) Current(scope string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n[scope]
}

// Invalidate bumps the scope's generation and runs drop under the same lock,
// so no stale Set can land between the two.
func (g *Generations) Invalidate(scope string, drop func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.n == nil {
		g.n = make(map[string]uint64)
	}
	g.n[scope]++
	if drop != nil {
		drop()
	}
}

// setIf runs set only while scope is still at gen.
func (g *Generations) setIf(scope string, gen uint64, set func()) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.n[scope] != gen {
		return false
	}
	set()
	return true
}

// Load returns the cached value for key, or calls load and caches its
// result. A nil cache always loads. Errors are not cached. With gens set,
// the result is cached only if scope was not invalidated during load.
func Load[T any](c Cache[T], gens *Generations, scope, key string, load func() (T, error)) (T, error) {
	if c == nil {
		return load()
	}
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	var gen uint64
	if gens != nil {
		gen = gens.Current(scope)
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	if gens == nil {
		c.Set(key, v)
	} else {
		gens.setIf(scope, gen, func() { c.Set(key, v) })
	}
	return v, nil
}

// Cleaner is implemented by caches with expiring items.
type Cleaner interface {
	CleanExpired() int
}

// Manager runs CleanExpired on every registered cache at a fixed interval.
type Manager struct {
	mu      sync.Mutex
	caches  []Cleaner
	stop    chan struct{}
	done    chan struct{}
	running bool
	once    sync.Once
}

func NewManager() *Manager {
	return &Manager{stop: make(chan struct{}), done: make(chan struct{})}
}

func (m *Manager) Register(c Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches = append(m.caches, c)
}

// StartCleanup starts the eviction loop. It must be called at most once.
func (m *Manager) StartCleanup(interval time.Duration) {
	m.mu.Lock()
	m.running = true
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := m.CleanNow(); n > 0 {
					slog.Debug("Evicted expired cache items", "count", n)
				}
			case <-m.stop:
				return
			}
		}
	}()
}

// CleanNow runs one eviction pass and returns the number of items removed.
func (m *Manager) CleanNow() int {
	m.mu.Lock()
	caches := append([]Cleaner(nil), m.caches...)
	m.mu.Unlock()

	total := 0
	for _, c := range caches {
		total += c.CleanExpired()
	}
	return total
}

// Stop ends the eviction loop and waits for it. It is safe to call twice.
func (m *Manager) Stop() {
	m.once.Do(func() {
		close(m.stop)
		m.mu.Lock()
		running := m.running
		m.mu.Unlock()
		if running {
			<-m.done
		}
	})
}
