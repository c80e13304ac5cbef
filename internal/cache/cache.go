// Package cache provides the TTL-bounded LRU used for month views and sheet
// row lookups, plus a manager that expires entries in the background.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Purge()
	Size() int
}

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager runs periodic cleanup over every registered cache.
type Manager struct {
	mu     sync.Mutex
	caches map[string]Cleaner
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewManager() *Manager {
	return &Manager{caches: make(map[string]Cleaner)}
}

// Register adds a named cache. Registering a name twice replaces the first.
func (m *Manager) Register(name string, c Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches[name] = c
}

// CleanAll runs one cleanup pass and returns the removed count per cache.
func (m *Manager) CleanAll() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.caches))
	for name, c := range m.caches {
		out[name] = c.CleanExpired()
	}
	return out
}

// StartCleanup cleans every interval until ctx ends or Stop is called.
func (m *Manager) StartCleanup(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				for name, n := range m.CleanAll() {
					if n > 0 {
						slog.DebugContext(ctx, "Expired cache entries removed", "cache", name, "count", n)
					}
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}
