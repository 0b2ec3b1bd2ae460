package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"clienthub.org/internal/actor"
	"clienthub.org/internal/ids"
	"clienthub.org/internal/obs"
	"clienthub.org/internal/policy"
)

// Recorder appends and queries trail entries. It never gates the mutation it
// records: callers invoke Record after the policy engine allowed the action
// and the store applied it.
type Recorder struct {
	store Store
	now   func() time.Time
}

// RecorderOption configures Recorder behavior.
type RecorderOption func(*Recorder)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) RecorderOption {
	return func(r *Recorder) {
		if fn != nil {
			r.now = fn
		}
	}
}

// NewRecorder constructs a Recorder over the given store.
func NewRecorder(store Store, opts ...RecorderOption) (*Recorder, error) {
	if store == nil {
		return nil, errors.New("audit store is required")
	}
	r := &Recorder{store: store, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Record appends one entry for an accepted mutation. A single attempt is
// made; on store failure the entry is lost, the failure is counted and
// logged for operators, and ErrAppendFailed is returned so the caller can
// choose between rollback and best-effort logging.
func (r *Recorder) Record(ctx context.Context, rec Record) (Entry, error) {
	if strings.TrimSpace(string(rec.Action)) == "" {
		return Entry{}, fmt.Errorf("%w: action is required", ErrInvalidInput)
	}
	if strings.TrimSpace(rec.EntityType) == "" || strings.TrimSpace(rec.EntityID) == "" {
		return Entry{}, fmt.Errorf("%w: entity type and id are required", ErrInvalidInput)
	}
	oldVals, err := marshalSnapshot(rec.OldValues)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: old values: %v", ErrInvalidInput, err)
	}
	newVals, err := marshalSnapshot(rec.NewValues)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: new values: %v", ErrInvalidInput, err)
	}

	entry := Entry{
		ID:         ids.New(),
		ActorID:    strings.TrimSpace(rec.ActorID),
		Action:     rec.Action,
		EntityType: rec.EntityType,
		EntityID:   rec.EntityID,
		OldValues:  oldVals,
		NewValues:  newVals,
		IPAddress:  strings.TrimSpace(rec.IPAddress),
		CreatedAt:  r.now().UTC(),
	}
	if err := r.store.Append(ctx, &entry); err != nil {
		obs.CountAuditAppendFailure()
		obs.LogOperational("audit.append_failed", map[string]any{
			"action":      string(entry.Action),
			"entity_type": entry.EntityType,
			"entity_id":   entry.EntityID,
			"error":       err.Error(),
		})
		return Entry{}, fmt.Errorf("%w: %v", ErrAppendFailed, err)
	}
	return entry, nil
}

// Query reads the trail on behalf of a caller. Only admin may see entries of
// other actors; everyone else is pinned to their own history. Blocked and
// pending callers are refused outright.
func (r *Recorder) Query(ctx context.Context, caller actor.Actor, f Filter, limit int, afterID string) ([]Entry, string, error) {
	if caller.Status.Blocked() {
		return nil, "", policy.ErrDenied
	}
	if caller.Role != actor.RoleAdmin {
		// Pending follows the same carve-out as resource access: no trail
		// visibility. Admin precedes the pending restriction, as everywhere.
		if caller.Status == actor.StatusPending {
			return nil, "", policy.ErrDenied
		}
		if f.ActorID != "" && f.ActorID != caller.ID {
			return nil, "", policy.ErrDenied
		}
		f.ActorID = caller.ID
	}
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	return r.store.Query(ctx, f, limit, afterID)
}

func marshalSnapshot(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return data, nil
}
