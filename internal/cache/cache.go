// Package cache holds the derived dashboard views in Redis.
//
// Every operation is bounded by a per-call timeout and fails soft: Get
// reports a miss, Set and Delete report false, and the failure is logged and
// counted but never returned. Callers treat false as "proceed without cache";
// the store stays the only source of truth.
//
// A Cache built without a client (see Disabled) behaves like a permanently
// unavailable backend.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Cache is a process-wide handle shared by all requests. It is safe for
// concurrent use.
type Cache struct {
	rdb     redis.UniversalClient
	timeout time.Duration
}

// Item is one key written by SetMany.
type Item struct {
	Key   string
	Value any
	TTL   time.Duration
}

// Entry is a cached key as seen by the admin introspection view.
type Entry struct {
	Key        string `json:"key"`
	Value      any    `json:"value"`
	TTLSeconds int64  `json:"ttl_seconds"` // -1: no expiry
}

// New wraps an existing client. A nil client yields a disabled cache.
func New(rdb redis.UniversalClient, opTimeout time.Duration) *Cache {
	if opTimeout <= 0 {
		opTimeout = 250 * time.Millisecond
	}
	return &Cache{rdb: rdb, timeout: opTimeout}
}

// Disabled returns a cache whose operations are all no-ops.
func Disabled() *Cache { return New(nil, 0) }

// Connect parses a redis:// or rediss:// URL and pings the server. An empty
// URL yields a disabled cache and no error. On failure the client is closed
// and the error returned, so the caller can decide to run without cache.
func Connect(ctx context.Context, url string, opTimeout time.Duration) (*Cache, error) {
	if url == "" {
		return Disabled(), nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	if opTimeout > 0 {
		opts.DialTimeout = 4 * opTimeout
		opts.ReadTimeout = opTimeout
		opts.WriteTimeout = opTimeout
	}
	rdb := redis.NewClient(opts)
	c := New(rdb, opTimeout)
	if err := c.Ping(ctx); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return c, nil
}

// Enabled reports whether a backend is configured.
func (c *Cache) Enabled() bool { return c != nil && c.rdb != nil }

// Ping checks backend reachability. It is the only method that surfaces an
// error; use it for readiness, never on the request path.
func (c *Cache) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return errDisabled
	}
	ctx, cancel := c.opContext(ctx)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}

// Close releases the client.
func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Close()
}

var errDisabled = errors.New("cache disabled")

// Get decodes the value stored at key into dst and reports a hit. An absent
// key, an unreachable backend and an undecodable payload are all misses.
func (c *Cache) Get(ctx context.Context, key string, dst any) bool {
	if !c.Enabled() {
		observe(opGet, resultDisabled)
		return false
	}
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		observe(opGet, resultMiss)
		log.Debug().Str("op", opGet).Str("key", key).Msg("cache miss")
		return false
	case err != nil:
		observe(opGet, resultError)
		log.Warn().Err(err).Str("op", opGet).Str("key", key).Msg("cache backend unavailable")
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		observe(opGet, resultCorrupt)
		log.Warn().Err(err).Str("op", opGet).Str("key", key).Msg("cache payload undecodable; treating as miss")
		return false
	}
	observe(opGet, resultHit)
	log.Debug().Str("op", opGet).Str("key", key).Msg("cache hit")
	return true
}

// Set stores value at key with ttl (0 means no expiry) and reports success.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	return c.SetMany(ctx, Item{Key: key, Value: value, TTL: ttl})
}

// SetMany stores all items in one MULTI/EXEC round trip. Either every key is
// written or the call reports failure.
func (c *Cache) SetMany(ctx context.Context, items ...Item) bool {
	if !c.Enabled() {
		observe(opSet, resultDisabled)
		return false
	}
	if len(items) == 0 {
		return true
	}
	payloads := make([][]byte, len(items))
	for i, it := range items {
		b, err := json.Marshal(it.Value)
		if err != nil {
			observe(opSet, resultError)
			log.Warn().Err(err).Str("op", opSet).Str("key", it.Key).Msg("cache payload not encodable")
			return false
		}
		payloads[i] = b
	}

	ctx, cancel := c.opContext(ctx)
	defer cancel()
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for i, it := range items {
			p.Set(ctx, it.Key, payloads[i], it.TTL)
		}
		return nil
	})
	if err != nil {
		observe(opSet, resultError)
		log.Warn().Err(err).Str("op", opSet).Strs("keys", itemKeys(items)).Msg("cache backend unavailable")
		return false
	}
	observe(opSet, resultOK)
	return true
}

// Delete removes keys with a single DEL and reports success. Deleting absent
// keys succeeds.
func (c *Cache) Delete(ctx context.Context, keys ...string) bool {
	if !c.Enabled() {
		observe(opDelete, resultDisabled)
		return false
	}
	if len(keys) == 0 {
		return true
	}
	ctx, cancel := c.opContext(ctx)
	defer cancel()
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		observe(opDelete, resultError)
		log.Warn().Err(err).Str("op", opDelete).Strs("keys", keys).Msg("cache backend unavailable")
		return false
	}
	observe(opDelete, resultOK)
	return true
}

// Entries lists keys matching the given glob patterns with their decoded
// value and remaining TTL. ok is false when the backend is disabled or
// unreachable. Values that are not JSON are returned as raw strings.
func (c *Cache) Entries(ctx context.Context, patterns ...string) (entries []Entry, ok bool) {
	if !c.Enabled() {
		observe(opScan, resultDisabled)
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, 4*c.timeout)
	defer cancel()

	entries = []Entry{}
	for _, pattern := range patterns {
		iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			e, found, err := c.entry(ctx, iter.Val())
			if err != nil {
				return c.scanFailed(err, pattern)
			}
			if found {
				entries = append(entries, e)
			}
		}
		if err := iter.Err(); err != nil {
			return c.scanFailed(err, pattern)
		}
	}
	observe(opScan, resultOK)
	return entries, true
}

func (c *Cache) entry(ctx context.Context, key string) (Entry, bool, error) {
	raw, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// Expired between SCAN and GET.
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	ttl, err := c.rdb.TTL(ctx, key).Result()
	if err != nil {
		return Entry{}, false, err
	}

	e := Entry{Key: key, TTLSeconds: -1}
	// go-redis reports -1 (no expiry) and -2 (missing) as raw durations.
	if ttl > 0 {
		e.TTLSeconds = int64(ttl / time.Second)
	}
	var decoded any
	if json.Unmarshal([]byte(raw), &decoded) == nil {
		e.Value = decoded
	} else {
		e.Value = raw
	}
	return e, true, nil
}

func (c *Cache) scanFailed(err error, pattern string) ([]Entry, bool) {
	observe(opScan, resultError)
	log.Warn().Err(err).Str("op", opScan).Str("pattern", pattern).Msg("cache backend unavailable")
	return nil, false
}

func (c *Cache) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

func itemKeys(items []Item) []string {
	keys := make([]string, len(items))
	for i, it := range items {
		keys[i] = it.Key
	}
	return keys
}
