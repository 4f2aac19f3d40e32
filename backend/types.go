package backend

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// BackendState представляет состояние бэкенда
type BackendState string

const (
	StateUp      BackendState = "UP"      // Бэкенд полностью работоспособен
	StateDown    BackendState = "DOWN"    // Бэкенд недоступен
	StateProbing BackendState = "PROBING" // Промежуточное состояние - проверка восстановления
)

// String возвращает строковое представление состояния
func (s BackendState) String() string {
	return string(s)
}

// ToFloat64 возвращает числовое представление состояния для метрик Prometheus
func (s BackendState) ToFloat64() float64 {
	switch s {
	case StateUp:
		return 1.0
	case StateProbing:
		return 0.5
	case StateDown:
		return 0.0
	default:
		return 0.0
	}
}

// S3API - подмножество методов S3 клиента, которые использует прокси.
// *s3.Client удовлетворяет этому интерфейсу.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// BackendConfig содержит конфигурацию хранилища-источника
type BackendConfig struct {
	Endpoint     string `yaml:"endpoint"`       // URL эндпоинта S3; пустой - AWS по умолчанию
	Region       string `yaml:"region"`         // Регион (например, us-east-1 или auto для R2)
	Bucket       string `yaml:"bucket"`         // Бакет с объектами
	AccessKey    string `yaml:"access_key"`     // Пустые ключи - стандартная цепочка AWS
	SecretKey    string `yaml:"secret_key"`     //
	UsePathStyle bool   `yaml:"use_path_style"` // Path-style адресация (MinIO и т.п.)
}

// Backend представляет S3-бэкенд с его состоянием
type Backend struct {
	ID       string        // Уникальный идентификатор бэкенда
	Config   BackendConfig // Конфигурация бэкенда
	S3Client S3API         // Настроенный S3 клиент

	// Внутреннее состояние, защищенное мьютексом
	mu                   sync.RWMutex
	state                BackendState
	lastError            error
	lastCheckTime        time.Time
	consecutiveFailures  int // Количество последовательных неудач
	consecutiveSuccesses int // Количество последовательных успехов

	// Статистика для Circuit Breaker
	recentFailures int       // Количество неудач в скользящем окне
	windowStart    time.Time // Начало текущего окна
}

// BackendResult представляет результат одной операции с бэкендом
type BackendResult struct {
	BackendID  string
	Method     string // Операция, на которую получен ответ
	StatusCode int    // Код статуса ответа
	Err        error
	Duration   time.Duration
	BytesRead  int64
}

// GetState возвращает текущее состояние бэкенда (потокобезопасно)
func (b *Backend) GetState() BackendState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// GetLastError возвращает последнюю ошибку (потокобезопасно)
func (b *Backend) GetLastError() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastError
}

// GetLastCheckTime возвращает время последней проверки (потокобезопасно)
func (b *Backend) GetLastCheckTime() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastCheckTime
}

// GetStats возвращает статистику бэкенда (потокобезопасно)
func (b *Backend) GetStats() (consecutiveFailures, consecutiveSuccesses, recentFailures int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.consecutiveFailures, b.consecutiveSuccesses, b.recentFailures
}

// BackendProvider - интерфейс для получения хранилища-источника и учета результатов операций.
// Состояние бэкенда носит информационный характер (метрики, readiness) и
// не блокирует запросы к нему.
type BackendProvider interface {
	// GetOrigin возвращает бэкенд-источник объектов
	GetOrigin() *Backend

	// ReportSuccess сообщает об успешной операции с бэкендом (пассивная проверка)
	ReportSuccess(result *BackendResult)

	// ReportFailure сообщает о неудачной операции с бэкендом (пассивная проверка)
	ReportFailure(result *BackendResult)

	// AddBytesRead учитывает байты, прочитанные из тела объекта
	AddBytesRead(backendID string, n int64)
}
