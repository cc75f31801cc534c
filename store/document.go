package store

import (
	"context"

	"github.com/goliatone/go-viewas/ferrors"
	"github.com/goliatone/go-viewas/kv"
)

// Document reads and writes the single view_admin_as blob of one scope.
// Mutations are read-modify-write with last writer wins.
type Document struct {
	rw    ReadWriter
	scope Scope
	key   string
}

// NewDocument returns the blob accessor for scope.
func NewDocument(rw ReadWriter, scope Scope) *Document {
	return &Document{rw: rw, scope: scope, key: Key}
}

// UserDocument returns the metadata blob of a user.
func UserDocument(rw ReadWriter, userID string) *Document {
	return NewDocument(rw, User(userID))
}

// GlobalDocument returns the site-wide options blob.
func GlobalDocument(rw ReadWriter) *Document {
	return NewDocument(rw, Global())
}

// Scope returns the addressed scope.
func (d *Document) Scope() Scope {
	if d == nil {
		return Scope{}
	}
	return d.scope
}

// Load returns the whole blob, or an empty map when nothing is stored.
func (d *Document) Load(ctx context.Context) (map[string]any, error) {
	if d == nil || d.rw == nil {
		return nil, ferrors.ErrStoreRequired
	}
	value, ok, err := d.rw.Read(ctx, d.scope, d.key)
	if err != nil {
		return nil, ferrors.WrapExternal(err, ferrors.TextCodeStoreReadFailed, "read "+d.key, d.meta("read"))
	}
	if !ok || value == nil {
		return map[string]any{}, nil
	}
	return value, nil
}

// Field returns a nested map field of the blob.
func (d *Document) Field(ctx context.Context, field string) (map[string]any, error) {
	data, err := d.Load(ctx)
	if err != nil {
		return nil, err
	}
	value, ok := kv.GetMap(data, field)
	if !ok {
		return map[string]any{}, nil
	}
	return value, nil
}

// Mutate loads the blob, lets fn edit it in place and writes it back. An
// empty result deletes the blob.
func (d *Document) Mutate(ctx context.Context, fn func(data map[string]any) error) error {
	data, err := d.Load(ctx)
	if err != nil {
		return err
	}
	if fn != nil {
		if err := fn(data); err != nil {
			return err
		}
	}
	return d.Save(ctx, data)
}

// MutateField runs fn against one nested field, creating it when missing and
// dropping it when left empty.
func (d *Document) MutateField(ctx context.Context, field string, fn func(value map[string]any) error) error {
	return d.Mutate(ctx, func(data map[string]any) error {
		value, ok := kv.GetMap(data, field)
		if !ok {
			value = map[string]any{}
		}
		if fn != nil {
			if err := fn(value); err != nil {
				return err
			}
		}
		if len(value) == 0 {
			delete(data, field)
			return nil
		}
		kv.Set(data, field, value, true)
		return nil
	})
}

// Save replaces the blob.
func (d *Document) Save(ctx context.Context, data map[string]any) error {
	if d == nil || d.rw == nil {
		return ferrors.ErrStoreRequired
	}
	var err error
	if len(data) == 0 {
		err = d.rw.Delete(ctx, d.scope, d.key)
	} else {
		err = d.rw.Write(ctx, d.scope, d.key, data)
	}
	if err != nil {
		return ferrors.WrapExternal(err, ferrors.TextCodeStoreWriteFailed, "write "+d.key, d.meta("write"))
	}
	return nil
}

func (d *Document) meta(op string) map[string]any {
	return map[string]any{
		ferrors.MetaScope:     d.scope.String(),
		ferrors.MetaKey:       d.key,
		ferrors.MetaOperation: op,
	}
}
