package cache

import (
	"fmt"
	"time"
)

const (
	TypeMemory = "memory"
	TypeSQLite = "sqlite"
	TypeNone   = "none"
)

// Config содержит конфигурацию edge-кэша
type Config struct {
	// Type - реализация кэша: memory, sqlite или none
	Type string `yaml:"type"`

	// SQLitePath - путь к файлу базы для type=sqlite
	SQLitePath string `yaml:"sqlite_path"`

	// MaxSize - максимальный суммарный размер кэша в памяти (байты)
	MaxSize int64 `yaml:"max_size"`

	// MaxObjectSize - ответы больше этого размера не кэшируются (байты)
	MaxObjectSize int64 `yaml:"max_object_size"`

	// DefaultTTL - время жизни записи, если в Cache-Control нет max-age
	DefaultTTL time.Duration `yaml:"default_ttl"`

	// CleanupInterval - период удаления истекших записей из SQLite; 0 отключает
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		Type:          TypeMemory,
		SQLitePath:    "objgate-cache.db",
		MaxSize:       256 << 20,
		MaxObjectSize: 32 << 20,
		DefaultTTL:    24 * time.Hour,

		CleanupInterval: 10 * time.Minute,
	}
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	switch c.Type {
	case TypeMemory:
		if c.MaxSize <= 0 {
			return fmt.Errorf("max_size must be positive for memory cache")
		}
	case TypeSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("sqlite_path cannot be empty for sqlite cache")
		}
		if c.CleanupInterval < 0 {
			return fmt.Errorf("cleanup_interval must not be negative")
		}
	case TypeNone:
		return nil
	default:
		return fmt.Errorf("unknown cache type: %s", c.Type)
	}

	if c.MaxObjectSize <= 0 {
		return fmt.Errorf("max_object_size must be positive")
	}

	if c.DefaultTTL <= 0 {
		return fmt.Errorf("default_ttl must be positive")
	}

	return nil
}

// New создает кэш по конфигурации
func New(cfg *Config, metrics *Metrics) (EdgeCache, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cache config: %w", err)
	}

	var c EdgeCache
	switch cfg.Type {
	case TypeMemory:
		c = NewMemoryCache(cfg.MaxSize, cfg.DefaultTTL, metrics)
	case TypeSQLite:
		sqliteCache, err := NewSQLiteCache(cfg.SQLitePath, cfg.DefaultTTL)
		if err != nil {
			return nil, err
		}
		if cfg.CleanupInterval > 0 {
			sqliteCache.StartCleanup(cfg.CleanupInterval)
		}
		c = sqliteCache
	default:
		c = NewNoopCache()
	}

	return Instrument(c, metrics), nil
}
