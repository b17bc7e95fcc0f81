package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultDedupTTL is how long a processed message id is remembered.
const DefaultDedupTTL = 24 * time.Hour

// Deduper remembers processed webhook message ids. Seen marks id and
// reports whether it had already been marked.
type Deduper interface {
	Seen(ctx context.Context, id string) (bool, error)
}

// MemoryDeduper keeps message ids in process memory for a TTL.
type MemoryDeduper struct {
	ttl time.Duration
	now func() time.Time

	mu  sync.Mutex
	ids map[string]time.Time
}

// NewMemoryDeduper creates an in-memory deduper. A non-positive ttl uses
// DefaultDedupTTL.
func NewMemoryDeduper(ttl time.Duration) *MemoryDeduper {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	return &MemoryDeduper{ttl: ttl, now: time.Now, ids: make(map[string]time.Time)}
}

// Seen implements Deduper.
func (d *MemoryDeduper) Seen(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	if exp, ok := d.ids[id]; ok && now.Before(exp) {
		return true, nil
	}
	d.ids[id] = now.Add(d.ttl)
	return false, nil
}

// Prune drops expired ids and returns how many were removed.
func (d *MemoryDeduper) Prune() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	removed := 0
	for id, exp := range d.ids {
		if !now.Before(exp) {
			delete(d.ids, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of remembered ids.
func (d *MemoryDeduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.ids)
}

const dedupKeyPrefix = "supportbot:webhook:msg:"

// RedisDeduper shares processed ids across instances with SETNX.
type RedisDeduper struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisDeduper creates a deduper on an existing client.
func NewRedisDeduper(client redis.Cmdable, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	return &RedisDeduper{client: client, ttl: ttl}
}

// NewRedisClient parses a redis:// URL and verifies the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// Seen implements Deduper.
func (d *RedisDeduper) Seen(ctx context.Context, id string) (bool, error) {
	stored, err := d.client.SetNX(ctx, dedupKeyPrefix+id, "1", d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis dedup: %w", err)
	}
	return !stored, nil
}
