package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"homestyle_sync/internal/sheets"

	"github.com/redis/go-redis/v9"
)

// DriveCacheHeaders is the header row of the sheet-backed drive cache.
var DriveCacheHeaders = []string{"FOLDER_ID", "HAS_FILES", "LAST_CHECK_AT"}

// CacheEntry records whether a folder held real files when last checked.
type CacheEntry struct {
	HasFiles  bool      `json:"has_files"`
	CheckedAt time.Time `json:"checked_at"`
}

// Fresh reports whether the entry is at most ttl old.
func (e CacheEntry) Fresh(now time.Time, ttl time.Duration) bool {
	if e.CheckedAt.IsZero() {
		return false
	}
	return now.Sub(e.CheckedAt) <= ttl
}

// DriveCache stores one entry per folder id. Put overwrites.
type DriveCache interface {
	Get(ctx context.Context, folderID string) (CacheEntry, bool, error)
	Put(ctx context.Context, folderID string, entry CacheEntry) error
}

// SheetDriveCache keeps entries in a log sheet keyed by folder id.
type SheetDriveCache struct {
	log *Log
}

func NewSheetDriveCache(t sheets.Table) *SheetDriveCache {
	return &SheetDriveCache{log: Load(t, 1)}
}

func (c *SheetDriveCache) Get(ctx context.Context, folderID string) (CacheEntry, bool, error) {
	row, ok := c.log.Row(folderID)
	if !ok {
		return CacheEntry{}, false, nil
	}
	t := c.log.Table()
	entry := CacheEntry{HasFiles: cellBool(t.Cell(row, 2))}
	if at, ok := cellTime(t.Cell(row, 3), t.Location()); ok {
		entry.CheckedAt = at
	}
	return entry, true, nil
}

func (c *SheetDriveCache) Put(ctx context.Context, folderID string, entry CacheEntry) error {
	c.log.Put(folderID, []interface{}{folderID, entry.HasFiles, entry.CheckedAt})
	return nil
}

func cellBool(c sheets.Cell) bool {
	if b, ok := c.Raw.(bool); ok {
		return b
	}
	switch strings.ToUpper(c.Text()) {
	case "TRUE", "Y", "1":
		return true
	}
	return false
}

var cacheTimeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006. 1. 2",
}

// cellTime reads a native date or a text timestamp written in loc.
func cellTime(c sheets.Cell, loc *time.Location) (time.Time, bool) {
	if t, ok := c.Time(); ok {
		return t, true
	}
	for _, layout := range cacheTimeLayouts {
		if t, err := time.ParseInLocation(layout, c.Text(), loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// RedisDriveCache keeps entries as JSON values that expire after ttl.
type RedisDriveCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisDriveCache(redisURL string, ttl time.Duration) (*RedisDriveCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisDriveCacheWithClient(client, ttl), nil
}

func NewRedisDriveCacheWithClient(client *redis.Client, ttl time.Duration) *RedisDriveCache {
	return &RedisDriveCache{client: client, prefix: "drivecheck:", ttl: ttl}
}

func (c *RedisDriveCache) key(folderID string) string {
	return c.prefix + folderID
}

func (c *RedisDriveCache) Get(ctx context.Context, folderID string) (CacheEntry, bool, error) {
	raw, err := c.client.Get(ctx, c.key(folderID)).Result()
	if err == redis.Nil {
		return CacheEntry{}, false, nil
	}
	if err != nil {
		return CacheEntry{}, false, fmt.Errorf("lookup drive cache: %w", err)
	}

	var entry CacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return CacheEntry{}, false, fmt.Errorf("unmarshal drive cache entry: %w", err)
	}
	return entry, true, nil
}

func (c *RedisDriveCache) Put(ctx context.Context, folderID string, entry CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal drive cache entry: %w", err)
	}
	if err := c.client.Set(ctx, c.key(folderID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("save drive cache entry: %w", err)
	}
	return nil
}

func (c *RedisDriveCache) Close() error {
	return c.client.Close()
}
