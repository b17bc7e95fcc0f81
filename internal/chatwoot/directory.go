package chatwoot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/capitalize-ai/supportbot-workspace/internal/model"
)

const (
	directoryPages   = 5
	directoryPerPage = 100
)

// Entry is an inbox, agent or team as shown in filter pickers.
type Entry struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Directory is the account's lookup data used to label and filter rows.
type Directory struct {
	Inboxes []Entry `json:"inboxes"`
	Agents  []Entry `json:"agents"`
	Teams   []Entry `json:"teams"`
}

// InboxNames maps inbox id to display name.
func (d Directory) InboxNames() map[int64]string {
	out := make(map[int64]string, len(d.Inboxes))
	for _, e := range d.Inboxes {
		out[e.ID] = e.Name
	}
	return out
}

// Inboxes lists the account's inboxes. Name falls back to channel type, then id.
func (c *Client) Inboxes(ctx context.Context) ([]Entry, error) {
	return c.cachedDirectory(ctx, "/inboxes", func(ctx context.Context) ([]Entry, error) {
		return c.listDirectory(ctx, "inboxes", "/inboxes", []string{"data", "payload", "inboxes"}, func(r model.Record) (Entry, bool) {
			id, ok := r.Int("id")
			if !ok {
				return Entry{}, false
			}
			name := r.String("name", "channel_type")
			if name == "" {
				name = strconv.FormatInt(id, 10)
			}
			return Entry{ID: id, Name: name}, true
		})
	})
}

// Agents lists users of the account, trying /users before /agents.
func (c *Client) Agents(ctx context.Context) ([]Entry, error) {
	return c.cachedDirectory(ctx, "/agents", func(ctx context.Context) ([]Entry, error) {
		toEntry := func(r model.Record) (Entry, bool) {
			id, ok := r.Int("id")
			if !ok || id == 0 {
				return Entry{}, false
			}
			name := r.String("name", "email")
			if name == "" {
				name = strconv.FormatInt(id, 10)
			}
			return Entry{ID: id, Name: name}, true
		}
		var lastErr error
		for _, endpoint := range []string{"/users", "/agents"} {
			entries, err := c.listDirectory(ctx, "agents", endpoint, []string{"data", "payload", "users", "agents"}, toEntry)
			if err != nil {
				lastErr = err
				continue
			}
			if len(entries) > 0 {
				return entries, nil
			}
		}
		return nil, lastErr
	})
}

// Teams lists the account's teams. Name falls back to title, then id.
func (c *Client) Teams(ctx context.Context) ([]Entry, error) {
	return c.cachedDirectory(ctx, "/teams", func(ctx context.Context) ([]Entry, error) {
		return c.listDirectory(ctx, "teams", "/teams", []string{"data", "payload", "teams"}, func(r model.Record) (Entry, bool) {
			id, ok := r.Int("id")
			if !ok || id == 0 {
				return Entry{}, false
			}
			name := r.String("name", "title")
			if name == "" {
				name = strconv.FormatInt(id, 10)
			}
			return Entry{ID: id, Name: name}, true
		})
	})
}

// listDirectory pages through a lookup endpoint. A >=400 status ends the
// listing with whatever was collected.
func (c *Client) listDirectory(ctx context.Context, endpoint, path string, keys []string, convert func(model.Record) (Entry, bool)) ([]Entry, error) {
	var out []Entry
	for page := 1; page <= directoryPages; page++ {
		params := map[string]string{
			"page":     strconv.Itoa(page),
			"per_page": strconv.Itoa(directoryPerPage),
		}
		resp, err := c.getWithRetry(ctx, endpoint, c.accountPath("%s", path), params)
		if err != nil {
			return nil, &FetchError{Op: "list " + endpoint, Err: err}
		}
		if resp.StatusCode() >= 400 {
			break
		}
		body, err := decode(resp)
		if err != nil {
			return nil, &FetchError{Op: "list " + endpoint, Err: err}
		}
		payload := payloadList(body, keys...)
		if len(payload) == 0 {
			break
		}
		for _, raw := range payload {
			if e, ok := convert(model.Record(raw)); ok {
				out = append(out, e)
			}
		}
		if len(payload) < directoryPerPage {
			break
		}
	}
	return out, nil
}

func (c *Client) cachedDirectory(ctx context.Context, endpoint string, load func(context.Context) ([]Entry, error)) ([]Entry, error) {
	if c.cache == nil {
		return load(ctx)
	}
	key := c.cache.Key(endpoint, c.creds)
	if entries, ok := c.cache.Get(key); ok {
		return entries, nil
	}
	entries, err := load(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, entries)
	return entries, nil
}

// CacheKey identifies one cached lookup.
type CacheKey struct {
	Endpoint string
	BaseURL  string
	Account  string
	token    string
}

type cacheEntry struct {
	entries []Entry
	expires time.Time
}

// DirectoryCache holds lookup results per (endpoint, account, token) for a
// fixed TTL. It is safe for concurrent use.
type DirectoryCache struct {
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
	entries map[CacheKey]cacheEntry
}

// NewDirectoryCache creates a cache with the given TTL.
func NewDirectoryCache(ttl time.Duration) *DirectoryCache {
	return &DirectoryCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[CacheKey]cacheEntry),
	}
}

// Key builds the cache key for an endpoint of an account. The token is
// stored hashed.
func (d *DirectoryCache) Key(endpoint string, creds Credentials) CacheKey {
	sum := sha256.Sum256([]byte(creds.Token))
	return CacheKey{
		Endpoint: endpoint,
		BaseURL:  creds.BaseURL,
		Account:  creds.AccountID,
		token:    hex.EncodeToString(sum[:8]),
	}
}

// Get returns a live entry.
func (d *DirectoryCache) Get(key CacheKey) ([]Entry, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.entries[key]
	if !ok || !d.now().Before(e.expires) {
		return nil, false
	}
	return e.entries, true
}

// Set stores entries for the cache TTL.
func (d *DirectoryCache) Set(key CacheKey, entries []Entry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[key] = cacheEntry{entries: entries, expires: d.now().Add(d.ttl)}
}

// Invalidate drops every entry.
func (d *DirectoryCache) Invalidate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = make(map[CacheKey]cacheEntry)
}

// Prune removes expired entries and returns how many were dropped.
func (d *DirectoryCache) Prune() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	removed := 0
	for k, e := range d.entries {
		if !now.Before(e.expires) {
			delete(d.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired or not.
func (d *DirectoryCache) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

// SortByName orders entries for display.
func SortByName(entries []Entry) []Entry {
	out := append([]Entry(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
