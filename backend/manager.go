package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"objgate/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// OriginID - идентификатор бэкенда-источника в логах и метриках
const OriginID = "origin"

// Manager реализует BackendProvider и следит за состоянием источника
type Manager struct {
	config  ManagerConfig
	origin  *Backend
	metrics *Metrics

	// Управление жизненным циклом
	mu       sync.RWMutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewManager создает менеджер с настоящим S3 клиентом
func NewManager(cfg *Config, metrics *Metrics) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("Config for Backend Manager not provided")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	client, err := newS3Client(cfg.Origin)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend '%s': %w", OriginID, err)
	}

	return NewManagerWithClient(cfg, client, metrics)
}

// NewManagerWithClient создает менеджер с заданным клиентом (S3 или его заменой в тестах)
func NewManagerWithClient(cfg *Config, client S3API, metrics *Metrics) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("Config for Backend Manager not provided")
	}

	// Если ManagerConfig не передан, используем дефолтный
	managerConfig := cfg.Manager
	if managerConfig == (ManagerConfig{}) {
		managerConfig = DefaultManagerConfig()
	}
	if err := managerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manager config: %w", err)
	}

	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	manager := &Manager{
		config:   managerConfig,
		metrics:  metrics,
		stopChan: make(chan struct{}),
	}

	manager.origin = &Backend{
		ID:          OriginID,
		Config:      cfg.Origin,
		S3Client:    client,
		windowStart: time.Now(),
	}
	setBackendState(manager, manager.origin, managerConfig.InitialState)

	logger.Info("Created backend '%s' (Endpoint: %s, Bucket: %s) with initial state %s",
		OriginID, cfg.Origin.Endpoint, cfg.Origin.Bucket, managerConfig.InitialState)
	return manager, nil
}

// newS3Client создает и настраивает S3 клиент
func newS3Client(cfg BackendConfig) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	}

	awsConfig, err := config.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	logger.Debug("Backend '%s': created S3 client for endpoint %q", OriginID, cfg.Endpoint)
	return client, nil
}

// Start запускает менеджер бэкендов
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("backend manager is already running")
	}

	logger.Info("Starting backend manager...")

	// Запускаем горутину для активных проверок здоровья
	m.wg.Add(1)
	go m.runHealthChecks()

	m.running = true
	logger.Info("Backend manager started")

	return nil
}

// Stop останавливает менеджер бэкендов
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}

	logger.Info("Stopping backend manager...")

	close(m.stopChan)
	m.wg.Wait()

	// Создаем новый канал для возможного повторного запуска
	m.stopChan = make(chan struct{})

	m.running = false
	logger.Info("Backend manager stopped")

	return nil
}

// IsRunning возвращает true, если менеджер запущен
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// GetOrigin возвращает бэкенд-источник
func (m *Manager) GetOrigin() *Backend {
	return m.origin
}

// IsLive возвращает false, только если источник в состоянии DOWN
func (m *Manager) IsLive() bool {
	return m.origin.GetState() != StateDown
}

// isBenignError классифицирует ошибку как "безопасную", если она не указывает
// на реальную проблему с бэкендом.
func isBenignError(err error) bool {
	if err == nil {
		return true
	}

	// Отмена контекста клиентом - не проблема бэкенда
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}

	var notFoundError *types.NotFound
	if errors.As(err, &notFoundError) {
		return true
	}

	// Любые 4xx (404, 416 и т.п.) вызваны запросом, а не состоянием бэкенда
	var httpErr interface{ HTTPStatusCode() int }
	if errors.As(err, &httpErr) {
		code := httpErr.HTTPStatusCode()
		if code >= http.StatusBadRequest && code < http.StatusInternalServerError &&
			code != http.StatusForbidden && code != http.StatusTooManyRequests {
			return true
		}
	}

	// Все остальные ошибки (5xx, 403, сетевые проблемы) считаются критическими.
	return false
}

// ReportSuccess сообщает об успешной операции.
// Если бэкенд был в состоянии DOWN, эта функция возвращает его в строй.
func (m *Manager) ReportSuccess(result *BackendResult) {
	backend, ok := m.lookup(result.BackendID, "ReportSuccess")
	if !ok {
		return
	}

	backend.mu.Lock()
	backend.consecutiveFailures = 0
	backend.consecutiveSuccesses++
	backend.recentFailures = 0 // Успех сбрасывает окно Circuit Breaker

	if backend.state == StateDown {
		logger.Info("Backend '%s' is back online after a successful request.", result.BackendID)
		setBackendState(m, backend, StateUp)
	}

	logger.Debug("ReportSuccess: backend '%s', consecutive successes: %d",
		result.BackendID, backend.consecutiveSuccesses)
	backend.mu.Unlock()

	m.observe(result)
}

// ReportFailure сообщает о неудачной операции, учитывая тип ошибки.
func (m *Manager) ReportFailure(result *BackendResult) {
	backend, ok := m.lookup(result.BackendID, "ReportFailure")
	if !ok {
		return
	}

	if isBenignError(result.Err) {
		logger.Debug("ReportFailure: Benign error on backend '%s', not affecting circuit breaker. Error: %v",
			result.BackendID, result.Err)
		m.observe(result)
		return
	}

	backend.mu.Lock()
	backend.consecutiveSuccesses = 0
	backend.consecutiveFailures++
	backend.lastError = result.Err

	// Обновляем окно Circuit Breaker
	now := time.Now()
	if now.Sub(backend.windowStart) > m.config.CircuitBreakerWindow {
		backend.recentFailures = 1
		backend.windowStart = now
	} else {
		backend.recentFailures++
	}

	logger.Warn("ReportFailure: Critical failure on backend '%s', consecutive: %d, recent: %d. Error: %v",
		result.BackendID, backend.consecutiveFailures, backend.recentFailures, result.Err)

	if backend.state != StateDown && backend.recentFailures >= m.config.CircuitBreakerThreshold {
		logger.Error("Circuit breaker triggered for backend '%s': %d failures in %v. Setting state to DOWN.",
			result.BackendID, backend.recentFailures, now.Sub(backend.windowStart))
		setBackendState(m, backend, StateDown)
	}
	backend.mu.Unlock()

	m.observe(result)
}

// AddBytesRead учитывает байты, отданные из тела объекта
func (m *Manager) AddBytesRead(backendID string, n int64) {
	if n <= 0 {
		return
	}
	m.metrics.BackendBytesRead.WithLabelValues(backendID).Add(float64(n))
}

func (m *Manager) lookup(id, caller string) (*Backend, bool) {
	if m.origin == nil || m.origin.ID != id {
		logger.Warn("%s: backend '%s' not found", caller, id)
		return nil, false
	}
	return m.origin, true
}

func (m *Manager) observe(result *BackendResult) {
	m.metrics.BackendRequestsTotal.WithLabelValues(result.BackendID, result.Method, strconv.Itoa(result.StatusCode)).Inc()
	m.metrics.BackendLatency.WithLabelValues(result.BackendID, result.Method).Observe(result.Duration.Seconds())
	m.AddBytesRead(result.BackendID, result.BytesRead)
}

// runHealthChecks выполняет активные проверки здоровья в фоновом режиме
func (m *Manager) runHealthChecks() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.HealthCheckInterval)
	defer ticker.Stop()

	logger.Debug("Doing initial health check")
	m.checkBackend(m.origin)

	logger.Debug("Health check routine started with interval %v", m.config.HealthCheckInterval)
	for {
		select {
		case <-ticker.C:
			m.checkBackend(m.origin)
		case <-m.stopChan:
			logger.Debug("Health check routine stopped")
			return
		}
	}
}

// checkBackend выполняет проверку одного бэкенда
func (m *Manager) checkBackend(backend *Backend) {
	ctx, cancel := context.WithTimeout(context.Background(), m.config.CheckTimeout)
	defer cancel()

	logger.Debug("Checking backend %s (state: %s)", backend.ID, backend.GetState())

	// Легковесная проверка - HeadBucket
	_, err := backend.S3Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(backend.Config.Bucket),
	})

	backend.mu.Lock()
	defer backend.mu.Unlock()

	backend.lastCheckTime = time.Now()
	oldState := backend.state

	if err != nil {
		backend.lastError = err
		backend.consecutiveSuccesses = 0
		backend.consecutiveFailures++

		logger.Debug("Backend %s health check failed: %v (consecutive failures: %d)",
			backend.ID, err, backend.consecutiveFailures)

		switch backend.state {
		case StateUp:
			if backend.consecutiveFailures >= m.config.FailureThreshold {
				setBackendState(m, backend, StateDown)
			}
		case StateProbing:
			// Из PROBING сразу в DOWN при любой неудаче
			setBackendState(m, backend, StateDown)
		case StateDown:
			// Остаемся в DOWN
		}
	} else {
		backend.lastError = nil
		backend.consecutiveFailures = 0
		backend.consecutiveSuccesses++

		logger.Debug("Backend %s health check succeeded (consecutive successes: %d)",
			backend.ID, backend.consecutiveSuccesses)

		switch backend.state {
		case StateDown:
			// Из DOWN в PROBING при первом успехе
			setBackendState(m, backend, StateProbing)
		case StateProbing:
			if backend.consecutiveSuccesses >= m.config.SuccessThreshold {
				setBackendState(m, backend, StateUp)
			}
		case StateUp:
			// Остаемся в UP
		}
	}

	if oldState != backend.state {
		logger.Info("Backend %s state changed: %s -> %s", backend.ID, oldState, backend.state)
	}
}

func setBackendState(m *Manager, backend *Backend, state BackendState) {
	backend.state = state
	m.metrics.BackendState.WithLabelValues(backend.ID).Set(backend.state.ToFloat64())
}
