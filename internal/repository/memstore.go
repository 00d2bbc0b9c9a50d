package repository

import (
	"context"
	"path"
	"sort"
	"strconv"
	"sync"
	"time"
)

// MemStore is an in-process Store used by tests and as a development
// fallback when no Redis server is reachable. It honors TTLs against an
// injectable clock. Not suitable for production: state is lost on restart
// and not shared across instances.
type MemStore struct {
	mu      sync.Mutex
	values  map[string]memValue
	windows map[string][]time.Time
	lists   map[string][]string

	// Now supplies the current time; tests replace it to step the clock.
	Now func() time.Time
}

type memValue struct {
	data    string
	expires time.Time // zero means no expiry
}

// NewMemStore returns an empty MemStore with a real clock.
func NewMemStore() *MemStore {
	return &MemStore{
		values:  make(map[string]memValue),
		windows: make(map[string][]time.Time),
		lists:   make(map[string][]string),
		Now:     time.Now,
	}
}

func (m *MemStore) live(key string) (memValue, bool) {
	v, ok := m.values[key]
	if !ok {
		return memValue{}, false
	}
	if !v.expires.IsZero() && m.Now().After(v.expires) {
		delete(m.values, key)
		return memValue{}, false
	}
	return v, true
}

func (m *MemStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.live(key)
	if !ok {
		return "", ErrNotFound
	}
	return v.data, nil
}

func (m *MemStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = memValue{data: value, expires: m.expiry(ttl)}
	return nil
}

func (m *MemStore) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.live(key); ok {
		return false, nil
	}
	m.values[key] = memValue{data: value, expires: m.expiry(ttl)}
	return true, nil
}

func (m *MemStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
		delete(m.windows, k)
		delete(m.lists, k)
	}
	return nil
}

func (m *MemStore) Keys(_ context.Context, pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for k := range m.values {
		if _, ok := m.live(k); !ok {
			continue
		}
		if matched, _ := path.Match(pattern, k); matched {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemStore) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.live(key)
	if !ok {
		m.values[key] = memValue{data: "1", expires: m.expiry(ttl)}
		return 1, nil
	}
	n, _ := strconv.ParseInt(v.data, 10, 64)
	n++
	m.values[key] = memValue{data: strconv.FormatInt(n, 10), expires: v.expires}
	return n, nil
}

func (m *MemStore) SlideWindow(_ context.Context, key string, now time.Time, window time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := now.Add(-window)
	kept := m.windows[key][:0]
	for _, t := range m.windows[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, now)
	m.windows[key] = kept
	return int64(len(kept)), nil
}

func (m *MemStore) PushCapped(_ context.Context, key, value string, limit int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := append([]string{value}, m.lists[key]...)
	if int64(len(l)) > limit {
		l = l[:limit]
	}
	m.lists[key] = l
	return nil
}

// List returns the capped list at key, newest first. Test helper.
func (m *MemStore) List(key string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.lists[key]))
	copy(out, m.lists[key])
	return out
}

func (m *MemStore) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return m.Now().Add(ttl)
}
