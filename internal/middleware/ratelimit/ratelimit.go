// Package ratelimit throttles journal writes per client.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const (
	window   = time.Minute
	staleAge = 10 * time.Minute
)

type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
}

func DefaultConfig() Config {
	return Config{RequestsPerMinute: 60, CleanupInterval: 5 * time.Minute}
}

// Limiter counts requests per client in fixed one-minute windows.
type Limiter struct {
	limit int
	now   func() time.Time

	mu     sync.Mutex
	counts map[string]counter

	rejected atomic.Int64
	stop     chan struct{}
	stopOnce sync.Once
}

type counter struct {
	start time.Time
	n     int
}

// NewLimiter starts a janitor goroutine that forgets idle clients; Stop ends it.
func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}

	rl := &Limiter{
		limit:  config.RequestsPerMinute,
		now:    time.Now,
		counts: make(map[string]counter),
		stop:   make(chan struct{}),
	}
	go rl.janitor(config.CleanupInterval)
	return rl
}

func (rl *Limiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	c, ok := rl.counts[client]
	if !ok || now.Sub(c.start) >= window {
		c = counter{start: now}
	}
	c.n++
	rl.counts[client] = c

	if c.n > rl.limit {
		rl.rejected.Add(1)
		return false
	}
	return true
}

// RetryAfter is the number of seconds until the client's window resets.
func (rl *Limiter) RetryAfter(client string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	c, ok := rl.counts[client]
	if !ok {
		return 0
	}
	left := window - rl.now().Sub(c.start)
	return max(int(left.Round(time.Second).Seconds()), 0)
}

func (rl *Limiter) janitor(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			rl.cleanupStaleEntries()
		case <-rl.stop:
			return
		}
	}
}

func (rl *Limiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-staleAge)
	for k, c := range rl.counts {
		if c.start.Before(cutoff) {
			delete(rl.counts, k)
		}
	}
}

func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.counts)
}

func (rl *Limiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

type Metrics struct {
	TotalHits   int64 // rejected requests
	ClientCount int64
}

func (rl *Limiter) GetMetrics() Metrics {
	return Metrics{TotalHits: rl.rejected.Load(), ClientCount: int64(rl.ActiveClients())}
}

// Middleware limits requests with one of methods, or every request when
// methods is empty. A nil onLimit writes a plain 429.
func (rl *Limiter) Middleware(key func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request), methods ...string) func(http.Handler) http.Handler {
	applies := func(string) bool { return true }
	if len(methods) > 0 {
		set := make(map[string]struct{}, len(methods))
		for _, m := range methods {
			set[m] = struct{}{}
		}
		applies = func(m string) bool { _, ok := set[m]; return ok }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if applies(r.Method) {
				client := key(r)
				if !rl.Allow(client) {
					w.Header().Set("Retry-After", strconv.Itoa(max(rl.RetryAfter(client), 1)))
					if onLimit == nil {
						http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
					} else {
						onLimit(w, r)
					}
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
