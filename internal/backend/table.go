package backend

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Resolution failure modes. ErrUnavailable means no backend library is
// installed at all; ErrNotRegistered means the library has no symbol for the
// requested (operation, type names) combination.
var (
	ErrUnavailable   = errors.New("backend: math library unavailable")
	ErrNotRegistered = errors.New("backend: no symbol registered")
)

// Table maps symbol keys to kernels. Resolution happens once per key and is
// memoized; repeated resolution of the same key is idempotent and safe from
// concurrent lowerings.
type Table struct {
	mu        sync.RWMutex
	installed map[Key]Kernel
	cache     map[Key]Kernel
	resolver  Resolver
	group     singleflight.Group
}

// NewTable creates a table backed by an optional late-bound resolver.
// A nil resolver with no installed kernels means the backend is unavailable.
func NewTable(resolver Resolver) *Table {
	return &Table{
		installed: make(map[Key]Kernel),
		cache:     make(map[Key]Kernel),
		resolver:  resolver,
	}
}

// Install registers a kernel for an operation and ordered type names.
// Installed kernels take precedence over the resolver.
func (t *Table) Install(op string, typeNames []string, k Kernel) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.installed[NewKey(op, typeNames)] = k
}

// Available reports whether any backend is present.
func (t *Table) Available() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.resolver != nil || len(t.installed) > 0
}

// Resolve returns the kernel for an operation and ordered type names.
// The result is cached; concurrent resolution of the same key performs a
// single lookup.
func (t *Table) Resolve(op string, typeNames []string) (Kernel, error) {
	key := NewKey(op, typeNames)

	t.mu.RLock()
	if k, ok := t.cache[key]; ok {
		t.mu.RUnlock()
		return k, nil
	}
	avail := t.resolver != nil || len(t.installed) > 0
	t.mu.RUnlock()

	if !avail {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, key)
	}

	v, err, _ := t.group.Do(key.String(), func() (any, error) {
		t.mu.RLock()
		k, ok := t.installed[key]
		resolver := t.resolver
		t.mu.RUnlock()

		if !ok && resolver != nil {
			k, ok = resolver.Lookup(op, typeNames)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotRegistered, key)
		}

		t.mu.Lock()
		t.cache[key] = k
		t.mu.Unlock()
		return k, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Kernel), nil
}

// Keys returns every installed symbol key, sorted for stable output.
func (t *Table) Keys() []Key {
	t.mu.RLock()
	defer t.mu.RUnlock()

	keys := make([]Key, 0, len(t.installed))
	for k := range t.installed {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Op != keys[j].Op {
			return keys[i].Op < keys[j].Op
		}
		return keys[i].Types < keys[j].Types
	})
	return keys
}
