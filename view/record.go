package view

import (
	"time"

	"github.com/goliatone/go-viewas/kv"
)

// DefaultExpiration is the lifetime of a persisted view record.
const DefaultExpiration = 24 * time.Hour

// Record is the persisted view of one session.
type Record struct {
	View   View
	Expire int64
}

// NewRecord stamps a view with an expiration relative to now.
func NewRecord(v View, now time.Time, ttl time.Duration) Record {
	if ttl <= 0 {
		ttl = DefaultExpiration
	}
	return Record{View: v.Clone(), Expire: now.Add(ttl).Unix()}
}

// Expired reports whether the record must be treated as absent.
func (r Record) Expired(now time.Time) bool {
	return r.Expire < now.Unix()
}

// ExpiresAt returns the expiration as a time.
func (r Record) ExpiresAt() time.Time {
	return time.Unix(r.Expire, 0)
}

// Map renders the record for storage.
func (r Record) Map() map[string]any {
	return map[string]any{
		"view":   r.View.Map(),
		"expire": r.Expire,
	}
}

// RecordFromAny decodes a stored record. Malformed entries decode as
// expired records with no view.
func RecordFromAny(raw any) Record {
	data, ok := kv.AsMap(raw)
	if !ok {
		return Record{}
	}
	record := Record{}
	if v, ok := kv.Get(data, "view"); ok {
		record.View = FromAny(v)
	}
	if expire, ok := kv.Get(data, "expire"); ok {
		if n, ok := kv.Number(expire); ok {
			record.Expire = int64(n)
		}
	}
	return record
}
