package cachestore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/btree"
)

// keySep separates bucket name and request key in the entry index. Names
// never contain it, so all entries of a bucket are contiguous.
const keySep = "\x00"

// Memory is an in-process Storage. Entries of all buckets live in one
// ordered map keyed by name and request key, so deleting a bucket is a
// range scan.
type Memory struct {
	mu      sync.RWMutex
	names   *btree.Map[string, time.Time]
	entries *btree.Map[string, *Response]
}

var _ Storage = (*Memory)(nil)

// NewMemory creates an empty in-memory storage.
func NewMemory() *Memory {
	return &Memory{
		names:   btree.NewMap[string, time.Time](0),
		entries: btree.NewMap[string, *Response](0),
	}
}

// Open implements Storage.
func (m *Memory) Open(_ context.Context, name string) (Bucket, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.names.Get(name); !ok {
		m.names.Set(name, time.Now())
	}
	return &memoryBucket{store: m, name: name}, nil
}

// Has implements Storage.
func (m *Memory) Has(_ context.Context, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.names.Get(name)
	return ok, nil
}

// Delete implements Storage.
func (m *Memory) Delete(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.names.Delete(name); !ok {
		return false, nil
	}
	prefix := name + keySep
	var doomed []string
	m.entries.Ascend(prefix, func(key string, _ *Response) bool {
		if !strings.HasPrefix(key, prefix) {
			return false
		}
		doomed = append(doomed, key)
		return true
	})
	for _, key := range doomed {
		m.entries.Delete(key)
	}
	return true, nil
}

// Names implements Storage.
func (m *Memory) Names(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, m.names.Len())
	m.names.Scan(func(name string, _ time.Time) bool {
		names = append(names, name)
		return true
	})
	return names, nil
}

type memoryBucket struct {
	store *Memory
	name  string
}

func (b *memoryBucket) Name() string { return b.name }

func (b *memoryBucket) Match(_ context.Context, key string) (*Response, bool, error) {
	b.store.mu.RLock()
	defer b.store.mu.RUnlock()
	resp, ok := b.store.entries.Get(b.name + keySep + key)
	if !ok {
		return nil, false, nil
	}
	return resp.Clone(), true, nil
}

// Put stores a copy of resp. Putting into a deleted bucket recreates it.
func (b *memoryBucket) Put(_ context.Context, key string, resp *Response) error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	if _, ok := b.store.names.Get(b.name); !ok {
		b.store.names.Set(b.name, time.Now())
	}
	b.store.entries.Set(b.name+keySep+key, resp.Clone())
	return nil
}

func (b *memoryBucket) Delete(_ context.Context, key string) (bool, error) {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	_, ok := b.store.entries.Delete(b.name + keySep + key)
	return ok, nil
}

func (b *memoryBucket) Keys(_ context.Context) ([]string, error) {
	b.store.mu.RLock()
	defer b.store.mu.RUnlock()
	prefix := b.name + keySep
	var keys []string
	b.store.entries.Ascend(prefix, func(key string, _ *Response) bool {
		if !strings.HasPrefix(key, prefix) {
			return false
		}
		keys = append(keys, strings.TrimPrefix(key, prefix))
		return true
	})
	return keys, nil
}
