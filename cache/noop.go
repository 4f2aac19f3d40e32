package cache

import "context"

// NoopCache - кэш, который ничего не хранит.
// Используется, когда кэширование отключено.
type NoopCache struct{}

// NewNoopCache создает заглушку
func NewNoopCache() *NoopCache {
	return &NoopCache{}
}

// Match для заглушки всегда возвращает "не найдено"
func (NoopCache) Match(ctx context.Context, key string) (*StoredResponse, bool, error) {
	return nil, false, nil
}

// Put ничего не делает
func (NoopCache) Put(ctx context.Context, key string, resp *StoredResponse) error {
	return nil
}

func (NoopCache) Close() error { return nil }
