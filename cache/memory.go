package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	key     string
	resp    *StoredResponse
	size    int64
	expires time.Time
}

// MemoryCache - edge-кэш в памяти процесса с LRU-вытеснением по суммарному размеру
type MemoryCache struct {
	mu         sync.Mutex
	maxBytes   int64
	defaultTTL time.Duration
	usedBytes  int64
	order      *list.List // голова - самая свежая запись
	entries    map[string]*list.Element
	metrics    *Metrics
	now        func() time.Time
}

// NewMemoryCache создает кэш в памяти. metrics может быть nil.
func NewMemoryCache(maxBytes int64, defaultTTL time.Duration, metrics *Metrics) *MemoryCache {
	return &MemoryCache{
		maxBytes:   maxBytes,
		defaultTTL: defaultTTL,
		order:      list.New(),
		entries:    make(map[string]*list.Element),
		metrics:    metrics,
		now:        time.Now,
	}
}

// Match возвращает копию сохраненного ответа
func (c *MemoryCache) Match(ctx context.Context, key string) (*StoredResponse, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}

	entry := elem.Value.(*memoryEntry)
	if c.now().After(entry.expires) {
		c.removeElement(elem)
		c.updateGauges()
		return nil, false, nil
	}

	c.order.MoveToFront(elem)
	return entry.resp.Clone(), true, nil
}

// Put сохраняет ответ, вытесняя самые старые записи при нехватке места
func (c *MemoryCache) Put(ctx context.Context, key string, resp *StoredResponse) error {
	expires, ok := Expiry(resp.Header, c.now(), c.defaultTTL)
	if !ok {
		return ErrNotStorable
	}

	stored := resp.Clone()
	if stored.StoredAt.IsZero() {
		stored.StoredAt = c.now()
	}
	size := stored.size()
	if c.maxBytes > 0 && size > c.maxBytes {
		return ErrEntryTooLarge
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.entries[key]; exists {
		c.removeElement(elem)
	}

	entry := &memoryEntry{key: key, resp: stored, size: size, expires: expires}
	c.entries[key] = c.order.PushFront(entry)
	c.usedBytes += size

	for c.maxBytes > 0 && c.usedBytes > c.maxBytes {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.removeElement(oldest)
	}

	c.updateGauges()
	return nil
}

// Len возвращает количество записей
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Size возвращает суммарный размер записей в байтах
func (c *MemoryCache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usedBytes
}

// Close очищает кэш
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.entries = make(map[string]*list.Element)
	c.usedBytes = 0
	c.updateGauges()
	return nil
}

// removeElement вызывается под c.mu
func (c *MemoryCache) removeElement(elem *list.Element) {
	entry := c.order.Remove(elem).(*memoryEntry)
	delete(c.entries, entry.key)
	c.usedBytes -= entry.size
}

func (c *MemoryCache) updateGauges() {
	if c.metrics == nil {
		return
	}
	c.metrics.Entries.Set(float64(len(c.entries)))
	c.metrics.SizeBytes.Set(float64(c.usedBytes))
}
