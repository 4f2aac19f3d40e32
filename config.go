package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"objgate/apigw"
	"objgate/backend"
	"objgate/cache"
	"objgate/logger"
	"objgate/monitoring"
	"objgate/routing"
)

// AppConfig содержит полную конфигурацию приложения
type AppConfig struct {
	// Конфигурация HTTP шлюза
	Server ServerConfig `yaml:"server"`

	// Конфигурация логирования
	Logging LoggingConfig `yaml:"logging"`

	// Конфигурация хранилища-источника
	Backend backend.Config `yaml:"backend"`

	// Конфигурация edge-кэша
	Cache cache.Config `yaml:"cache"`

	// Статические заголовки ответов
	Headers routing.HeaderConfig `yaml:"headers"`

	// Конфигурация мониторинга
	Monitoring monitoring.Config `yaml:"monitoring"`
}

// ServerConfig содержит конфигурацию HTTP сервера
type ServerConfig struct {
	apigw.Config `yaml:",inline"`

	// Mock - отдавать объекты из памяти вместо S3
	Mock bool `yaml:"mock"`

	// MockObjectsDir - каталог, файлы которого загружаются в хранилище в памяти
	MockObjectsDir string `yaml:"mock_objects_dir"`
}

// LoggingConfig содержит конфигурацию логирования
type LoggingConfig struct {
	Level               string `yaml:"level"`
	logger.OutputConfig `yaml:",inline"`
}

// DefaultAppConfig возвращает конфигурацию по умолчанию
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Config: apigw.DefaultConfig(),
		},
		Logging: LoggingConfig{
			Level: "info",
			OutputConfig: logger.OutputConfig{
				MaxSizeMB:  100,
				MaxBackups: 5,
				MaxAgeDays: 14,
			},
		},
		Backend:    *backend.DefaultConfig(),
		Cache:      *cache.DefaultConfig(),
		Headers:    routing.DefaultHeaderConfig(),
		Monitoring: *monitoring.DefaultConfig(),
	}
}

// LoadConfig загружает конфигурацию из файла
func LoadConfig(filename string) (*AppConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	// Начинаем с конфигурации по умолчанию
	config := DefaultAppConfig()

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate проверяет корректность конфигурации
func (c *AppConfig) Validate() error {
	if err := c.Server.Config.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if !isValidLogLevel(c.Logging.Level) {
		return fmt.Errorf("invalid logging level: %s", c.Logging.Level)
	}

	// Источник в S3 не нужен, если объекты отдаются из памяти
	if !c.Server.Mock {
		if err := c.Backend.Validate(); err != nil {
			return fmt.Errorf("backend config: %w", err)
		}
	}

	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}

	routingConfig := c.RoutingConfig()
	if err := routingConfig.Validate(); err != nil {
		return fmt.Errorf("headers config: %w", err)
	}

	if err := c.Monitoring.Validate(); err != nil {
		return fmt.Errorf("monitoring config: %w", err)
	}

	return nil
}

// RoutingConfig преобразует в конфигурацию движка обработки запросов
func (c *AppConfig) RoutingConfig() *routing.Config {
	return &routing.Config{Headers: c.Headers}
}

// isValidLogLevel проверяет корректность уровня логирования
func isValidLogLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}

// SaveConfig сохраняет конфигурацию в файл (для генерации примера)
func (c *AppConfig) SaveConfig(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", filename, err)
	}

	return nil
}
