// Small string-value cache used to shield the message-send path from durable
// reads of per-user moderation state. Values are short-lived by design (the
// TTL is the staleness bound for mute checks); a miss and an empty value are
// indistinguishable, so callers serialize explicit zero values when they need
// negative caching.
package cachestore
