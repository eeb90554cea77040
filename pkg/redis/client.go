// Package redis holds the storefront's short-lived state: wizard sessions,
// carts, owner drafts, the purchasable-items snapshot, rate-limit windows and
// idempotency records. Every key lives under the "sf" namespace.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-catalog/pkg/config"
	"github.com/angelmondragon/storefront-catalog/pkg/logger"
)

const keyNamespace = "sf"

// keyKind is the second segment of every key and tells what the value holds.
type keyKind string

const (
	kindIdempotency keyKind = "idempotency"
	kindRateLimit   keyKind = "rate_limit"
	kindWizard      keyKind = "wizard"
	kindCart        keyKind = "cart"
	kindDraft       keyKind = "draft"
	kindSnapshot    keyKind = "snapshot"
)

var errNotInitialized = errors.New("redis client not initialized")

// fixedWindow counts a hit and starts the window on the first one in a single
// round trip, so a counter never outlives its window.
var fixedWindow = redis.NewScript(`
local hits = redis.call("INCR", KEYS[1])
if hits == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return hits
`)

type backend interface {
	redis.Scripter
	Ping(context.Context) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	SetNX(context.Context, string, any, time.Duration) *redis.BoolCmd
	Del(context.Context, ...string) *redis.IntCmd
}

// Client is the storefront's handle on redis.
type Client struct {
	store backend
	conn  *redis.Client
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(context.Context) error
}

// KV is the value surface used by session, cart, draft and snapshot stores.
type KV interface {
	Get(context.Context, string) (string, error)
	Set(context.Context, string, any, time.Duration) error
	Del(context.Context, ...string) error
}

// New connects using cfg and fails unless the server answers a ping.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	conn := redis.NewClient(opts)
	if err := conn.Ping(ctx).Err(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}
	if logg != nil {
		logg.Debug(logg.WithFields(ctx, map[string]any{"redis_addr": opts.Addr, "redis_db": opts.DB}), "redis connection established")
	}
	return &Client{store: conn, conn: conn}, nil
}

// optionsFromConfig prefers a redis:// URL and falls back to the discrete
// address fields. Pool and timeout settings apply to both.
func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	var opts *redis.Options
	switch {
	case strings.TrimSpace(cfg.URL) != "":
		parsed, err := redis.ParseURL(strings.TrimSpace(cfg.URL))
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
		if opts.DB == 0 {
			opts.DB = cfg.DB
		}
	case strings.TrimSpace(cfg.Address) != "":
		opts = &redis.Options{Addr: strings.TrimSpace(cfg.Address), Password: cfg.Password, DB: cfg.DB}
	default:
		return nil, errors.New("redis url or address is required")
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout
	return opts, nil
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if c.store == nil {
		return "", errNotInitialized
	}
	return c.store.Get(ctx, key).Result()
}

func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c.store == nil {
		return errNotInitialized
	}
	return c.store.Set(ctx, key, value, ttl).Err()
}

// SetNX writes value only when key is absent and reports whether it did.
func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if c.store == nil {
		return false, errNotInitialized
	}
	return c.store.SetNX(ctx, key, value, ttl).Result()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	if c.store == nil {
		return errNotInitialized
	}
	return c.store.Del(ctx, keys...).Err()
}

// FixedWindowAllow counts one hit for scope and reports whether the window
// still has room, along with the hits seen so far.
func (c *Client) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	if c.store == nil {
		return false, 0, errNotInitialized
	}
	if window <= 0 {
		return false, 0, errors.New("rate limit window must be positive")
	}
	hits, err := fixedWindow.Run(ctx, c.store, []string{c.RateLimitKey(scope)}, window.Milliseconds()).Int64()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit %s: %w", scope, err)
	}
	return hits <= limit, hits, nil
}

func (c *Client) IdempotencyKey(scope, id string) string {
	return key(kindIdempotency, scope, id)
}

func (c *Client) RateLimitKey(scope string) string {
	return key(kindRateLimit, scope)
}

func (c *Client) WizardSessionKey(sessionID string) string {
	return key(kindWizard, sessionID)
}

func (c *Client) CartKey(cartID string) string {
	return key(kindCart, cartID)
}

// DraftKey holds one owner's uncommitted catalog edits.
func (c *Client) DraftKey(ownerID string) string {
	return key(kindDraft, ownerID)
}

// SnapshotKey holds a cached copy of the purchasable items.
func (c *Client) SnapshotKey(name string) string {
	return key(kindSnapshot, name)
}

func (c *Client) Ping(ctx context.Context) error {
	if c.store == nil {
		return errNotInitialized
	}
	return c.store.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// key joins sf:<kind>:<parts...>, dropping blank parts.
func key(kind keyKind, parts ...string) string {
	segments := []string{keyNamespace, string(kind)}
	for _, part := range parts {
		if p := strings.TrimSpace(part); p != "" {
			segments = append(segments, p)
		}
	}
	return strings.Join(segments, ":")
}
