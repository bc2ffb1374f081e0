package escalation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/plazachat/vigil/moderation"
	"github.com/plazachat/vigil/moderation/cachestore"
)

// cache namespace for serialized ModerationState
const cacheName = "modstate"

// Default TTL for the read cache. This is the staleness bound on mute
// visibility across instances, so keep it short.
const DefaultCacheTTL = 60 * time.Second

// Escalator fronts the durable StateStore with a short-TTL read cache. Reads
// on the message-send path (IsMuted) resolve from cache in the common case;
// every write goes through to durable storage and overwrites the cache entry
// immediately, because a missed mute is a safety issue while a stale
// well-behaved read is not.
type Escalator struct {
	Logger *slog.Logger
	Store  StateStore
	Cache  cachestore.CacheStore
}

func NewEscalator(logger *slog.Logger, store StateStore, cache cachestore.CacheStore) *Escalator {
	return &Escalator{
		Logger: logger.With("system", "escalation"),
		Store:  store,
		Cache:  cache,
	}
}

// Cached read of a user's moderation state. Falls back to the durable store,
// then to the zero value. The zero state is cached too (negative caching), so
// well-behaved users don't cost a durable read per message.
func (e *Escalator) GetState(ctx context.Context, userID string) (*ModerationState, error) {
	if val, err := e.Cache.Get(ctx, cacheName, userID); err != nil {
		e.Logger.Warn("state cache read failed", "err", err, "userID", userID)
	} else if val != "" {
		var state ModerationState
		if err := json.Unmarshal([]byte(val), &state); err == nil {
			return &state, nil
		}
		e.Logger.Warn("corrupt state cache entry, purging", "userID", userID)
		_ = e.Cache.Purge(ctx, cacheName, userID)
	}

	state, err := e.Store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = &ModerationState{UserID: userID}
	}
	e.cacheState(ctx, state)
	return state, nil
}

// Applies one violation: increments the strike counter, derives the action
// from the ladder, writes through to durable storage, and overwrites the
// cache entry. The pre-increment read goes straight to the durable store so a
// stale cache entry can never swallow a strike.
func (e *Escalator) ApplyViolation(ctx context.Context, userID, reason string) (*Result, error) {
	now := time.Now()

	state, err := e.Store.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading state for violation: %w", err)
	}
	if state == nil {
		state = &ModerationState{UserID: userID}
	}

	state.StrikeCount++
	state.LastStrikeAt = now
	state.LastReason = reason

	action, duration := Escalate(state.StrikeCount)
	if action == moderation.ActionMute {
		until := now.Add(duration)
		state.MuteUntil = &until
	}

	if err := e.Store.Put(ctx, state); err != nil {
		return nil, err
	}
	e.cacheState(ctx, state)

	e.Logger.Info("violation applied",
		"userID", userID,
		"reason", reason,
		"strikeCount", state.StrikeCount,
		"action", action,
		"muteMinutes", int(duration.Minutes()),
	)

	return &Result{
		Action:       action,
		StrikeCount:  state.StrikeCount,
		MuteDuration: duration,
		MuteUntil:    state.MuteUntil,
	}, nil
}

type MuteStatus struct {
	Muted       bool  `json:"muted"`
	RemainingMS int64 `json:"remainingMs"`
}

// The one operation consulted synchronously by the message-send path.
// Resolves from cache whenever a fresh entry exists, and fails open: any
// storage error reports not-muted rather than blocking delivery.
func (e *Escalator) IsMuted(ctx context.Context, userID string) *MuteStatus {
	state, err := e.GetState(ctx, userID)
	if err != nil {
		e.Logger.Warn("mute check failed open", "err", err, "userID", userID)
		return &MuteStatus{}
	}
	now := time.Now()
	if !state.Muted(now) {
		return &MuteStatus{}
	}
	return &MuteStatus{
		Muted:       true,
		RemainingMS: state.MuteUntil.Sub(now).Milliseconds(),
	}
}

// Admin revocation of an active mute, bypassing the ladder. Strike history is
// retained.
func (e *Escalator) ClearMute(ctx context.Context, userID string) error {
	state, err := e.Store.Get(ctx, userID)
	if err != nil {
		return err
	}
	if state == nil || state.MuteUntil == nil {
		return nil
	}
	state.MuteUntil = nil
	if err := e.Store.Put(ctx, state); err != nil {
		return err
	}
	e.cacheState(ctx, state)
	e.Logger.Info("mute cleared", "userID", userID)
	return nil
}

// best-effort cache write-through; a failed cache write only costs a future
// durable read
func (e *Escalator) cacheState(ctx context.Context, state *ModerationState) {
	val, err := json.Marshal(state)
	if err != nil {
		e.Logger.Error("marshaling state for cache", "err", err, "userID", state.UserID)
		return
	}
	if err := e.Cache.Set(ctx, cacheName, state.UserID, string(val)); err != nil {
		e.Logger.Warn("state cache write failed", "err", err, "userID", state.UserID)
	}
}
