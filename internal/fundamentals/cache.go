package fundamentals

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/wonny/aegis-rs/internal/contracts"
	"github.com/wonny/aegis-rs/pkg/redis"
)

// Cache persists fundamentals between runs
type Cache interface {
	Get(ctx context.Context, ticker string) (contracts.Fundamentals, bool, error)
	Put(ctx context.Context, f contracts.Fundamentals) error
	Tickers(ctx context.Context) ([]string, error)
	Flush(ctx context.Context) error
}

// infoRecord is the on-disk shape {"AAPL": {"info": {...}}}
type infoRecord struct {
	Info infoFields `json:"info"`
}

type infoFields struct {
	MarketCap float64   `json:"marketCap"`
	Beta      float64   `json:"beta,omitempty"`
	Sector    string    `json:"sector,omitempty"`
	Industry  string    `json:"industry,omitempty"`
	FetchedAt time.Time `json:"fetchedAt,omitempty"`
}

// FileCache keeps the ticker_info.json file in memory and rewrites it on Flush
type FileCache struct {
	path    string
	mu      sync.RWMutex
	records map[string]infoRecord
	dirty   bool
}

// OpenFileCache loads the cache file, a missing file starts empty
func OpenFileCache(path string) (*FileCache, error) {
	c := &FileCache{path: path, records: make(map[string]infoRecord)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read fundamentals cache: %w", err)
	}
	if len(data) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(data, &c.records); err != nil {
		return nil, fmt.Errorf("decode fundamentals cache %s: %w", path, err)
	}
	return c, nil
}

// Get returns the cached record
func (c *FileCache) Get(_ context.Context, ticker string) (contracts.Fundamentals, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r, ok := c.records[ticker]
	if !ok {
		return contracts.Fundamentals{}, false, nil
	}
	return contracts.Fundamentals{
		Ticker:    ticker,
		MarketCap: r.Info.MarketCap,
		Beta:      r.Info.Beta,
		Sector:    r.Info.Sector,
		Industry:  r.Info.Industry,
		FetchedAt: r.Info.FetchedAt,
		Known:     true,
	}, true, nil
}

// Put stores a known record, unknown records are never persisted
func (c *FileCache) Put(_ context.Context, f contracts.Fundamentals) error {
	if !f.Known {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records[f.Ticker] = infoRecord{Info: infoFields{
		MarketCap: f.MarketCap,
		Beta:      f.Beta,
		Sector:    f.Sector,
		Industry:  f.Industry,
		FetchedAt: f.FetchedAt,
	}}
	c.dirty = true
	return nil
}

// Tickers returns cached tickers sorted ascending
func (c *FileCache) Tickers(_ context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, 0, len(c.records))
	for t := range c.records {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

// Flush writes the file through a temp file and rename
func (c *FileCache) Flush(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.dirty {
		return nil
	}

	data, err := json.MarshalIndent(c.records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode fundamentals cache: %w", err)
	}
	if dir := filepath.Dir(c.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cache dir: %w", err)
		}
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write fundamentals cache: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("replace fundamentals cache: %w", err)
	}
	c.dirty = false
	return nil
}

// fundamentalsIndex lists every cached ticker
const fundamentalsIndex = "fundamentals"

// RedisCache stores fundamentals as JSON values through pkg/redis
type RedisCache struct {
	cache *redis.Cache
	ttl   time.Duration
}

// NewRedisCache creates a Redis-backed cache, ttl 0 keeps records until deleted
func NewRedisCache(cache *redis.Cache, ttl time.Duration) *RedisCache {
	return &RedisCache{cache: cache, ttl: ttl}
}

// Get returns the cached record
func (c *RedisCache) Get(ctx context.Context, ticker string) (contracts.Fundamentals, bool, error) {
	var f contracts.Fundamentals
	found, err := c.cache.Get(ctx, redis.FundamentalsKey(ticker), &f)
	if err != nil || !found {
		return contracts.Fundamentals{}, false, err
	}
	return f, true, nil
}

// Put stores a known record and indexes its ticker
func (c *RedisCache) Put(ctx context.Context, f contracts.Fundamentals) error {
	if !f.Known {
		return nil
	}
	if err := c.cache.Set(ctx, redis.FundamentalsKey(f.Ticker), f, c.ttl); err != nil {
		return err
	}
	return c.cache.AddToIndex(ctx, fundamentalsIndex, f.Ticker)
}

// Tickers returns indexed tickers sorted ascending
func (c *RedisCache) Tickers(ctx context.Context) ([]string, error) {
	members, err := c.cache.IndexMembers(ctx, fundamentalsIndex)
	if err != nil {
		return nil, err
	}
	sort.Strings(members)
	return members, nil
}

// Flush is a no-op, writes are immediate
func (c *RedisCache) Flush(context.Context) error {
	return nil
}
