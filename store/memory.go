package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-viewas/ferrors"
	"github.com/goliatone/go-viewas/kv"
)

// MemoryStore keeps documents in memory for tests, examples and the CLI.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[entryKey]map[string]any
	writes  int
}

type entryKey struct {
	scope Scope
	key   string
}

// NewMemoryStore constructs an in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[entryKey]map[string]any{}}
}

// Read implements Reader. The returned map is a deep copy.
func (m *MemoryStore) Read(_ context.Context, scope Scope, key string) (map[string]any, bool, error) {
	if m == nil {
		return nil, false, ferrors.ErrStoreRequired
	}
	entry, err := normalizeEntry(scope, key)
	if err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.entries[entry]
	if !ok {
		return nil, false, nil
	}
	return kv.CloneMap(value), true, nil
}

// Write implements Writer.
func (m *MemoryStore) Write(_ context.Context, scope Scope, key string, value map[string]any) error {
	if m == nil {
		return ferrors.ErrStoreRequired
	}
	entry, err := normalizeEntry(scope, key)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = map[entryKey]map[string]any{}
	}
	m.entries[entry] = kv.CloneMap(value)
	m.writes++
	return nil
}

// Delete implements Writer.
func (m *MemoryStore) Delete(_ context.Context, scope Scope, key string) error {
	if m == nil {
		return ferrors.ErrStoreRequired
	}
	entry, err := normalizeEntry(scope, key)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, entry)
	m.writes++
	return nil
}

// Writes reports how many mutating calls reached the store.
func (m *MemoryStore) Writes() int {
	if m == nil {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

// Users implements UserLister.
func (m *MemoryStore) Users(_ context.Context, key string) ([]string, error) {
	if m == nil {
		return nil, ferrors.ErrStoreRequired
	}
	key = strings.TrimSpace(key)
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := []string{}
	for entry := range m.entries {
		if entry.scope.Kind == ScopeUser && entry.key == key {
			ids = append(ids, entry.scope.UserID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func normalizeEntry(scope Scope, key string) (entryKey, error) {
	if err := scope.Validate(); err != nil {
		return entryKey{}, err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return entryKey{}, ferrors.WrapSentinel(ferrors.ErrPathRequired, "store key is required", map[string]any{
			ferrors.MetaScope: scope.String(),
		})
	}
	if scope.Kind == ScopeGlobal {
		scope.UserID = ""
	}
	return entryKey{scope: scope, key: key}, nil
}

var _ ReadWriter = (*MemoryStore)(nil)
var _ UserLister = (*MemoryStore)(nil)
