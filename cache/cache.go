package cache

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Fetcher is a keyed response cache for the view layer: concurrent fetches
// of the same key collapse into one call (singleflight) and results are
// kept until their TTL runs out. Keys are "kind:param:param" strings so
// related entries can be invalidated by prefix.
type Fetcher struct {
	group singleflight.Group

	mu      sync.Mutex
	entries map[string]entry

	Now func() time.Time // mockable
}

type entry struct {
	value     interface{}
	expiresAt time.Time
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		entries: make(map[string]entry),
		Now:     time.Now,
	}
}

// Do returns the cached value for key, or runs fn to produce it. Errors are
// never cached; every caller waiting on a failed fetch gets the error.
func (f *Fetcher) Do(key string, ttl time.Duration, fn func() (interface{}, error)) (interface{}, error) {
	if val, ok := f.lookup(key); ok {
		return val, nil
	}

	val, err, _ := f.group.Do(key, func() (interface{}, error) {
		// a concurrent call may have already populated the entry
		if val, ok := f.lookup(key); ok {
			return val, nil
		}
		val, err := fn()
		if err != nil {
			return nil, err
		}
		f.store(key, val, ttl)
		return val, nil
	})
	return val, err
}

// Invalidate drops every entry whose key starts with prefix.
func (f *Fetcher) Invalidate(prefix string) {
	f.mu.Lock()
	for key := range f.entries {
		if strings.HasPrefix(key, prefix) {
			delete(f.entries, key)
		}
	}
	f.mu.Unlock()
}

func (f *Fetcher) lookup(key string) (interface{}, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ent, ok := f.entries[key]
	if !ok {
		return nil, false
	}
	if f.Now().After(ent.expiresAt) {
		delete(f.entries, key)
		return nil, false
	}
	return ent.value, true
}

func (f *Fetcher) store(key string, val interface{}, ttl time.Duration) {
	f.mu.Lock()
	f.entries[key] = entry{value: val, expiresAt: f.Now().Add(ttl)}
	f.mu.Unlock()
}
