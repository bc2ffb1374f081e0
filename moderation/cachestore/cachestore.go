package cachestore

import (
	"context"
)

// Capacity of the in-process cache tier. Sized for the hot set of chatters
// in a busy deployment; entries are small serialized mute-state blobs, so
// this stays at a few MB even when full.
const DefaultLocalCapacity = 20_000

// CacheStore shields the message-send path from durable reads of per-user
// moderation state. Get returns ("", nil) on a miss; callers that need to
// distinguish "never cached" from "cached zero state" serialize the zero
// value explicitly.
type CacheStore interface {
	Get(ctx context.Context, name, key string) (string, error)
	Set(ctx context.Context, name, key string, val string) error
	Purge(ctx context.Context, name, key string) error
}
