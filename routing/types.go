package routing

import "fmt"

// Исходы обработки запроса, используются как значения метки в метриках
const (
	OutcomeCacheHit         = "cache_hit"
	OutcomeOrigin           = "origin"
	OutcomeNotModified      = "not_modified"
	OutcomeNotFound         = "not_found"
	OutcomeMethodNotAllowed = "method_not_allowed"
	OutcomeError            = "error"
)

// HeaderConfig - статические заголовки, добавляемые к ответам
type HeaderConfig struct {
	// CacheControl - Cache-Control для ответов 200 и 206
	CacheControl string `yaml:"cache_control"`

	// NotModifiedCacheControl - Cache-Control для ответов 304
	NotModifiedCacheControl string `yaml:"not_modified_cache_control"`

	// AllowOrigin - значение Access-Control-Allow-Origin; пустое значение отключает заголовок
	AllowOrigin string `yaml:"allow_origin"`

	// DefaultContentType - Content-Type для объектов без сохраненного типа
	DefaultContentType string `yaml:"default_content_type"`
}

// Config содержит конфигурацию движка обработки запросов
type Config struct {
	Headers HeaderConfig `yaml:"headers"`
}

// DefaultHeaderConfig возвращает заголовки по умолчанию для неизменяемых объектов
func DefaultHeaderConfig() HeaderConfig {
	return HeaderConfig{
		CacheControl:            "public, max-age=31536000, stale-while-revalidate=86400, immutable",
		NotModifiedCacheControl: "public, max-age=31536000, immutable",
		AllowOrigin:             "*",
		DefaultContentType:      "application/octet-stream",
	}
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		Headers: DefaultHeaderConfig(),
	}
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if c.Headers.CacheControl == "" {
		return fmt.Errorf("headers.cache_control cannot be empty")
	}
	if c.Headers.NotModifiedCacheControl == "" {
		return fmt.Errorf("headers.not_modified_cache_control cannot be empty")
	}
	if c.Headers.DefaultContentType == "" {
		return fmt.Errorf("headers.default_content_type cannot be empty")
	}
	return nil
}
