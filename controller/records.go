package controller

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-viewas/activity"
	"github.com/goliatone/go-viewas/ferrors"
	"github.com/goliatone/go-viewas/store"
	"github.com/goliatone/go-viewas/view"
)

// Records returns the persisted view records of a user keyed by session
// token, expired ones included.
func Records(ctx context.Context, rw store.ReadWriter, userID string) (map[string]view.Record, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ferrors.ErrUserRequired
	}
	views, err := store.UserDocument(rw, userID).Field(ctx, store.FieldViews)
	if err != nil {
		return nil, err
	}
	out := make(map[string]view.Record, len(views))
	for token, raw := range views {
		out[token] = view.RecordFromAny(raw)
	}
	return out, nil
}

// RemoveRecords deletes the records of a user matching fn and returns how
// many were removed. Nothing is written when nothing matches.
func RemoveRecords(ctx context.Context, rw store.ReadWriter, userID string, fn func(token string, record view.Record) bool) (int, error) {
	records, err := Records(ctx, rw, userID)
	if err != nil {
		return 0, err
	}
	matched := 0
	for token, record := range records {
		if fn == nil || fn(token, record) {
			matched++
		}
	}
	if matched == 0 {
		return 0, nil
	}
	removed := 0
	err = store.UserDocument(rw, userID).MutateField(ctx, store.FieldViews, func(views map[string]any) error {
		for token, raw := range views {
			if fn == nil || fn(token, view.RecordFromAny(raw)) {
				delete(views, token)
				removed++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// CleanupExpired removes every expired record of a user.
func CleanupExpired(ctx context.Context, rw store.ReadWriter, userID string, now time.Time) (int, error) {
	return RemoveRecords(ctx, rw, userID, func(_ string, record view.Record) bool {
		return record.Expired(now)
	})
}

// Tokens returns the session tokens of records, sorted.
func Tokens(records map[string]view.Record) []string {
	tokens := make([]string, 0, len(records))
	for token := range records {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	return tokens
}

// Records returns the operator's persisted view records.
func (c *Controller) Records(ctx context.Context) (map[string]view.Record, error) {
	if err := c.requireStorage(); err != nil {
		return nil, err
	}
	return Records(ctx, c.storage, c.session.Operator().ID)
}

// ResetView removes the record of one session. Removing a missing record
// succeeds.
func (c *Controller) ResetView(ctx context.Context, token string) error {
	if err := c.requireStorage(); err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return ferrors.ErrSessionTokenRequired
	}
	removed, err := RemoveRecords(ctx, c.storage, c.session.Operator().ID, func(t string, _ view.Record) bool {
		return t == token
	})
	if err != nil {
		return err
	}
	if token == c.session.SessionToken() && c.state != view.StateActive {
		c.current = nil
		c.state = view.StateInactive
		c.source = view.SourceNone
	}
	c.emit(ctx, activity.UpdateEvent{Action: activity.ActionReset, SessionToken: token, Removed: removed})
	return nil
}

// ResetAllViews removes every record of a user.
func (c *Controller) ResetAllViews(ctx context.Context, userID string) error {
	if err := c.requireStorage(); err != nil {
		return err
	}
	removed, err := RemoveRecords(ctx, c.storage, userID, nil)
	if err != nil {
		return err
	}
	c.emit(ctx, activity.UpdateEvent{Action: activity.ActionResetAll, UserID: userID, Removed: removed})
	return nil
}

// CleanupExpired removes the expired records of a user.
func (c *Controller) CleanupExpired(ctx context.Context, userID string) (int, error) {
	if err := c.requireStorage(); err != nil {
		return 0, err
	}
	removed, err := CleanupExpired(ctx, c.storage, userID, c.now())
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		c.emit(ctx, activity.UpdateEvent{Action: activity.ActionCleanup, UserID: userID, Removed: removed})
	}
	return removed, nil
}

// OnLogin sweeps the operator's records: every record when a reset is
// pending, expired ones otherwise.
func (c *Controller) OnLogin(ctx context.Context) error {
	userID := c.session.Operator().ID
	if c.session.RequiresReset() {
		return c.ResetAllViews(ctx, userID)
	}
	_, err := c.CleanupExpired(ctx, userID)
	return err
}

// OnLogout drops the record of the ending session.
func (c *Controller) OnLogout(ctx context.Context) error {
	token := c.session.SessionToken()
	if token == "" {
		return nil
	}
	return c.ResetView(ctx, token)
}

func (c *Controller) saveView(ctx context.Context, v view.View) error {
	if err := c.requireStorage(); err != nil {
		return err
	}
	token := c.session.SessionToken()
	if token == "" {
		return ferrors.ErrSessionTokenRequired
	}
	record := view.NewRecord(v, c.now(), c.ttl(ctx))
	return store.UserDocument(c.storage, c.session.Operator().ID).MutateField(ctx, store.FieldViews, func(views map[string]any) error {
		views[token] = record.Map()
		return nil
	})
}

func (c *Controller) loadRecord(ctx context.Context) (view.Record, bool, error) {
	if err := c.requireStorage(); err != nil {
		return view.Record{}, false, err
	}
	token := c.session.SessionToken()
	if token == "" {
		return view.Record{}, false, nil
	}
	records, err := Records(ctx, c.storage, c.session.Operator().ID)
	if err != nil {
		return view.Record{}, false, err
	}
	record, ok := records[token]
	return record, ok, nil
}

func (c *Controller) requireStorage() error {
	if c == nil || c.storage == nil || c.session == nil {
		return ferrors.ErrStoreRequired
	}
	return nil
}
