package bunadapter

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-viewas/ferrors"
	"github.com/goliatone/go-viewas/identity"
	"github.com/goliatone/go-viewas/kv"
	"github.com/goliatone/go-viewas/store"
)

// DefaultTable is the default table name for view state documents.
const DefaultTable = "view_admin_as_state"

// ErrDBRequired indicates the underlying Bun DB is missing.
var ErrDBRequired = ferrors.ErrStoreRequired

// Store adapts Bun DB operations to the view state store. Each row holds
// one document for a scope and key.
type Store struct {
	db        bun.IDB
	table     string
	now       func() time.Time
	updatedBy func(context.Context) string
}

// Option customizes the Bun store adapter.
type Option func(*Store)

// NewStore constructs a new Bun-backed store.
func NewStore(db bun.IDB, opts ...Option) *Store {
	adapter := &Store{
		db:        db,
		table:     DefaultTable,
		now:       time.Now,
		updatedBy: defaultUpdatedBy,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(adapter)
		}
	}
	if adapter.table == "" {
		adapter.table = DefaultTable
	}
	if adapter.now == nil {
		adapter.now = time.Now
	}
	if adapter.updatedBy == nil {
		adapter.updatedBy = defaultUpdatedBy
	}
	return adapter
}

// WithTable sets the table name.
func WithTable(table string) Option {
	return func(adapter *Store) {
		if adapter == nil {
			return
		}
		adapter.table = strings.TrimSpace(table)
	}
}

// WithNowFunc overrides the timestamp function used for updates.
func WithNowFunc(now func() time.Time) Option {
	return func(adapter *Store) {
		if adapter == nil {
			return
		}
		adapter.now = now
	}
}

// WithUpdatedByBuilder overrides the updated_by value builder.
func WithUpdatedByBuilder(builder func(context.Context) string) Option {
	return func(adapter *Store) {
		if adapter == nil {
			return
		}
		adapter.updatedBy = builder
	}
}

// StateRecord maps to the view state table.
type StateRecord struct {
	bun.BaseModel `bun:"table:view_admin_as_state,alias:vs"`
	ScopeType     string         `bun:"scope_type,pk"`
	ScopeID       string         `bun:"scope_id,pk"`
	Key           string         `bun:"key,pk"`
	Value         map[string]any `bun:"value,type:json"`
	UpdatedBy     string         `bun:"updated_by,nullzero"`
	UpdatedAt     time.Time      `bun:"updated_at,nullzero"`
}

// CreateTable creates the state table when it does not exist.
func (s *Store) CreateTable(ctx context.Context) error {
	if s == nil || s.db == nil {
		return ErrDBRequired
	}
	query := s.db.NewCreateTable().Model((*StateRecord)(nil)).IfNotExists()
	if s.table != DefaultTable {
		query = query.ModelTableExpr("?", bun.Ident(s.table))
	}
	if _, err := query.Exec(ctx); err != nil {
		return ferrors.WrapExternal(err, ferrors.TextCodeStoreWriteFailed, "bunadapter: create table", s.meta(store.Global(), "", "create_table"))
	}
	return nil
}

// Read implements store.Reader.
func (s *Store) Read(ctx context.Context, scope store.Scope, key string) (map[string]any, bool, error) {
	if err := s.check(scope, key, "read"); err != nil {
		return nil, false, err
	}
	record := StateRecord{}
	query := s.db.NewSelect().Model(&record).
		Where("? = ?", bun.Ident("scope_type"), string(scope.Kind)).
		Where("? = ?", bun.Ident("scope_id"), scope.UserID).
		Where("? = ?", bun.Ident("key"), key).
		Limit(1)
	if s.table != DefaultTable {
		query = query.ModelTableExpr("? AS vs", bun.Ident(s.table))
	}
	if err := query.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, ferrors.WrapExternal(err, ferrors.TextCodeStoreReadFailed, "bunadapter: read failed", s.meta(scope, key, "read"))
	}
	if len(record.Value) == 0 {
		return nil, false, nil
	}
	return kv.CloneMap(record.Value), true, nil
}

// Write implements store.Writer.
func (s *Store) Write(ctx context.Context, scope store.Scope, key string, value map[string]any) error {
	if err := s.check(scope, key, "write"); err != nil {
		return err
	}
	record := StateRecord{
		ScopeType: string(scope.Kind),
		ScopeID:   scope.UserID,
		Key:       key,
		Value:     kv.CloneMap(value),
		UpdatedBy: s.updatedBy(ctx),
		UpdatedAt: s.now(),
	}
	query := s.db.NewInsert().Model(&record).
		On("CONFLICT (scope_type, scope_id, key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_by = EXCLUDED.updated_by").
		Set("updated_at = EXCLUDED.updated_at")
	if s.table != DefaultTable {
		query = query.ModelTableExpr("?", bun.Ident(s.table))
	}
	if _, err := query.Exec(ctx); err != nil {
		return ferrors.WrapExternal(err, ferrors.TextCodeStoreWriteFailed, "bunadapter: write failed", s.meta(scope, key, "write"))
	}
	return nil
}

// Delete implements store.Writer.
func (s *Store) Delete(ctx context.Context, scope store.Scope, key string) error {
	if err := s.check(scope, key, "delete"); err != nil {
		return err
	}
	query := s.db.NewDelete().Model((*StateRecord)(nil)).
		Where("? = ?", bun.Ident("scope_type"), string(scope.Kind)).
		Where("? = ?", bun.Ident("scope_id"), scope.UserID).
		Where("? = ?", bun.Ident("key"), key)
	if s.table != DefaultTable {
		query = query.ModelTableExpr("? AS vs", bun.Ident(s.table))
	}
	if _, err := query.Exec(ctx); err != nil {
		return ferrors.WrapExternal(err, ferrors.TextCodeStoreWriteFailed, "bunadapter: delete failed", s.meta(scope, key, "delete"))
	}
	return nil
}

// Users lists the user IDs holding a document under key.
func (s *Store) Users(ctx context.Context, key string) ([]string, error) {
	if err := s.check(store.Global(), key, "users"); err != nil {
		return nil, err
	}
	var ids []string
	query := s.db.NewSelect().Model((*StateRecord)(nil)).
		Column("scope_id").
		Where("? = ?", bun.Ident("scope_type"), string(store.ScopeUser)).
		Where("? = ?", bun.Ident("key"), key).
		Order("scope_id ASC")
	if s.table != DefaultTable {
		query = query.ModelTableExpr("? AS vs", bun.Ident(s.table))
	}
	if err := query.Scan(ctx, &ids); err != nil {
		return nil, ferrors.WrapExternal(err, ferrors.TextCodeStoreReadFailed, "bunadapter: list users", s.meta(store.Global(), key, "users"))
	}
	return ids, nil
}

func (s *Store) check(scope store.Scope, key, operation string) error {
	if s == nil || s.db == nil {
		return ferrors.WrapSentinel(ErrDBRequired, "bunadapter: db is required", map[string]any{
			ferrors.MetaAdapter:   "bun",
			ferrors.MetaOperation: operation,
		})
	}
	if err := scope.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(key) == "" {
		return ferrors.WrapSentinel(ferrors.ErrPathRequired, "bunadapter: key is required", s.meta(scope, key, operation))
	}
	return nil
}

func (s *Store) meta(scope store.Scope, key, operation string) map[string]any {
	return map[string]any{
		ferrors.MetaAdapter:   "bun",
		ferrors.MetaTable:     s.table,
		ferrors.MetaScope:     scope.String(),
		ferrors.MetaKey:       key,
		ferrors.MetaOperation: operation,
	}
}

func defaultUpdatedBy(ctx context.Context) string {
	if op, ok := identity.OperatorFromContext(ctx); ok {
		return op.ID
	}
	return ""
}

var _ store.ReadWriter = (*Store)(nil)
var _ store.UserLister = (*Store)(nil)
