package filestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"
)

type cacheEntry struct {
	Value     json.RawMessage `json:"value"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// RateCache файловый кэш ключ-значение с временем жизни. Используется
// CLI для курсов валют вместо redis.
type RateCache struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewRateCache создает кэш в файле path.
func NewRateCache(path string) *RateCache {
	return &RateCache{path: path, now: time.Now}
}

func (c *RateCache) read() (map[string]cacheEntry, error) {
	entries := map[string]cacheEntry{}
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		// испорченный кэш считается пустым
		return map[string]cacheEntry{}, nil
	}
	return entries, nil
}

func (c *RateCache) write(entries map[string]cacheEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return writeFileAtomic(c.path, data)
}

// Get читает значение по ключу. Просроченное значение считается отсутствующим.
func (c *RateCache) Get(key string, result any) (bool, error) {
	const op = "filestore.RateCache.Get"

	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.read()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	e, ok := entries[key]
	if !ok || !c.now().Before(e.ExpiresAt) {
		return false, nil
	}
	if err := json.Unmarshal(e.Value, result); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// Set сохраняет значение и попутно удаляет просроченные записи.
func (c *RateCache) Set(key string, value any, expiration time.Duration) error {
	const op = "filestore.RateCache.Set"

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.read()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	now := c.now()
	for k, e := range entries {
		if !now.Before(e.ExpiresAt) {
			delete(entries, k)
		}
	}
	entries[key] = cacheEntry{Value: raw, ExpiresAt: now.Add(expiration)}
	if err := c.write(entries); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Invalidate удаляет ключ.
func (c *RateCache) Invalidate(key string) error {
	const op = "filestore.RateCache.Invalidate"

	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.read()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	if err := c.write(entries); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
