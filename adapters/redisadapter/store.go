// Package redisadapter stores view state documents in redis hashes: one
// hash per document key, one field per scope.
package redisadapter

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-viewas/ferrors"
	"github.com/goliatone/go-viewas/store"
)

// DefaultPrefix namespaces the redis hash keys.
const DefaultPrefix = "viewas:"

// Client is the subset of redis commands the store uses.
type Client interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
	HSet(ctx context.Context, key string, values ...any) *redis.IntCmd
	HDel(ctx context.Context, key string, fields ...string) *redis.IntCmd
	HKeys(ctx context.Context, key string) *redis.StringSliceCmd
}

// Store implements store.ReadWriter over redis.
type Store struct {
	client Client
	prefix string
}

// Option customizes the redis store.
type Option func(*Store)

// WithPrefix sets the hash key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if s == nil {
			return
		}
		s.prefix = prefix
	}
}

// NewStore builds a redis-backed store.
func NewStore(client Client, opts ...Option) *Store {
	s := &Store{client: client, prefix: DefaultPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Read implements store.Reader.
func (s *Store) Read(ctx context.Context, scope store.Scope, key string) (map[string]any, bool, error) {
	if err := s.check(scope, key, "read"); err != nil {
		return nil, false, err
	}
	raw, err := s.client.HGet(ctx, s.hashKey(key), field(scope)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, ferrors.WrapExternal(err, ferrors.TextCodeStoreReadFailed, "redisadapter: read failed", s.meta(scope, key, "read"))
	}
	value := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, false, ferrors.WrapExternal(err, ferrors.TextCodeStoreDecodeFailed, "redisadapter: decode failed", s.meta(scope, key, "read"))
	}
	if len(value) == 0 {
		return nil, false, nil
	}
	return value, true, nil
}

// Write implements store.Writer.
func (s *Store) Write(ctx context.Context, scope store.Scope, key string, value map[string]any) error {
	if err := s.check(scope, key, "write"); err != nil {
		return err
	}
	if value == nil {
		value = map[string]any{}
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return ferrors.WrapExternal(err, ferrors.TextCodeStoreWriteFailed, "redisadapter: encode failed", s.meta(scope, key, "write"))
	}
	if err := s.client.HSet(ctx, s.hashKey(key), field(scope), string(payload)).Err(); err != nil {
		return ferrors.WrapExternal(err, ferrors.TextCodeStoreWriteFailed, "redisadapter: write failed", s.meta(scope, key, "write"))
	}
	return nil
}

// Delete implements store.Writer.
func (s *Store) Delete(ctx context.Context, scope store.Scope, key string) error {
	if err := s.check(scope, key, "delete"); err != nil {
		return err
	}
	if err := s.client.HDel(ctx, s.hashKey(key), field(scope)).Err(); err != nil {
		return ferrors.WrapExternal(err, ferrors.TextCodeStoreWriteFailed, "redisadapter: delete failed", s.meta(scope, key, "delete"))
	}
	return nil
}

// Users implements store.UserLister.
func (s *Store) Users(ctx context.Context, key string) ([]string, error) {
	if err := s.check(store.Global(), key, "users"); err != nil {
		return nil, err
	}
	fields, err := s.client.HKeys(ctx, s.hashKey(key)).Result()
	if err != nil {
		return nil, ferrors.WrapExternal(err, ferrors.TextCodeStoreReadFailed, "redisadapter: list users", s.meta(store.Global(), key, "users"))
	}
	prefix := string(store.ScopeUser) + ":"
	ids := []string{}
	for _, f := range fields {
		if id, ok := strings.CutPrefix(f, prefix); ok && id != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) hashKey(key string) string {
	return s.prefix + strings.TrimSpace(key)
}

func field(scope store.Scope) string {
	if scope.Kind == store.ScopeGlobal {
		return string(store.ScopeGlobal)
	}
	return scope.String()
}

func (s *Store) check(scope store.Scope, key, operation string) error {
	if s == nil || s.client == nil {
		return ferrors.WrapSentinel(ferrors.ErrStoreRequired, "redisadapter: client is required", map[string]any{
			ferrors.MetaAdapter:   "redis",
			ferrors.MetaOperation: operation,
		})
	}
	if err := scope.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(key) == "" {
		return ferrors.WrapSentinel(ferrors.ErrPathRequired, "redisadapter: key is required", s.meta(scope, key, operation))
	}
	return nil
}

func (s *Store) meta(scope store.Scope, key, operation string) map[string]any {
	return map[string]any{
		ferrors.MetaAdapter:   "redis",
		ferrors.MetaStore:     s.prefix,
		ferrors.MetaScope:     scope.String(),
		ferrors.MetaKey:       key,
		ferrors.MetaOperation: operation,
	}
}

var _ store.ReadWriter = (*Store)(nil)
var _ store.UserLister = (*Store)(nil)
var _ Client = (*redis.Client)(nil)
