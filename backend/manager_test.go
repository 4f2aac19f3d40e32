package backend

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// fakeS3 - заглушка S3API с управляемым результатом HeadBucket
type fakeS3 struct {
	mu         sync.Mutex
	headErr    error
	headCalls  int
	lastBucket string
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeS3) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.headCalls++
	f.lastBucket = *params.Bucket
	return &s3.HeadBucketOutput{}, f.headErr
}

func (f *fakeS3) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.headErr = err
}

func (f *fakeS3) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.headCalls
}

func newTestManager(t *testing.T, modify func(cfg *Config)) (*Manager, *fakeS3) {
	t.Helper()
	cfg := DefaultConfig()
	if modify != nil {
		modify(cfg)
	}
	client := &fakeS3{}
	manager, err := NewManagerWithClient(cfg, client, NewMetrics(nil))
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	return manager, client
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Origin.Bucket == "" {
		t.Error("Expected origin bucket in default config")
	}

	if config.Manager.HealthCheckInterval <= 0 {
		t.Error("Expected positive health check interval")
	}

	if config.Manager.CheckTimeout <= 0 {
		t.Error("Expected positive check timeout")
	}
}

func TestConfigValidation(t *testing.T) {
	testCases := []struct {
		name        string
		modify      func(c *Config)
		expectError bool
	}{
		{"Valid default config", func(c *Config) {}, false},
		{"Default credential chain", func(c *Config) { c.Origin.AccessKey = ""; c.Origin.SecretKey = "" }, false},
		{"AWS endpoint", func(c *Config) { c.Origin.Endpoint = "" }, false},
		{"Zero interval", func(c *Config) { c.Manager.HealthCheckInterval = 0 }, true},
		{"Timeout above interval", func(c *Config) { c.Manager.CheckTimeout = time.Minute }, true},
		{"Bad initial state", func(c *Config) { c.Manager.InitialState = "SLEEPING" }, true},
		{"Empty bucket", func(c *Config) { c.Origin.Bucket = "" }, true},
		{"Empty region", func(c *Config) { c.Origin.Region = "" }, true},
		{"Access key without secret", func(c *Config) { c.Origin.SecretKey = "" }, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(cfg)
			err := cfg.Validate()
			if tc.expectError && err == nil {
				t.Error("Expected validation error, but got none")
			}
			if !tc.expectError && err != nil {
				t.Errorf("Expected no validation error, but got: %v", err)
			}
		})
	}
}

func TestBackendStateToFloat64(t *testing.T) {
	testCases := []struct {
		state    BackendState
		expected float64
	}{
		{StateUp, 1.0},
		{StateProbing, 0.5},
		{StateDown, 0.0},
		{BackendState("UNKNOWN"), 0.0},
	}

	for _, tc := range testCases {
		t.Run(string(tc.state), func(t *testing.T) {
			result := tc.state.ToFloat64()
			if result != tc.expected {
				t.Errorf("Expected %.1f, got %.1f", tc.expected, result)
			}
		})
	}
}

func TestNewManager(t *testing.T) {
	manager, err := NewManager(DefaultConfig(), NewMetrics(nil))
	if err != nil {
		t.Fatalf("Expected no error creating manager, got: %v", err)
	}

	if manager.GetOrigin() == nil || manager.GetOrigin().ID != OriginID {
		t.Fatal("Expected origin backend to be created")
	}

	if manager.IsRunning() {
		t.Error("Expected manager to not be running initially")
	}
}

func TestNewManagerWithInvalidConfig(t *testing.T) {
	invalidConfig := DefaultConfig()
	invalidConfig.Origin.Bucket = ""

	if _, err := NewManager(invalidConfig, nil); err == nil {
		t.Error("Expected error creating manager with invalid config")
	}
}

func TestManagerStartStop(t *testing.T) {
	manager, client := newTestManager(t, func(cfg *Config) {
		cfg.Manager.HealthCheckInterval = 20 * time.Millisecond
		cfg.Manager.CheckTimeout = 10 * time.Millisecond
	})

	if err := manager.Start(); err != nil {
		t.Fatalf("Failed to start manager: %v", err)
	}
	if !manager.IsRunning() {
		t.Error("Expected manager to be running after start")
	}
	if err := manager.Start(); err == nil {
		t.Error("Expected error on double start")
	}

	deadline := time.Now().Add(2 * time.Second)
	for client.calls() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if err := manager.Stop(); err != nil {
		t.Errorf("Failed to stop manager: %v", err)
	}
	if manager.IsRunning() {
		t.Error("Expected manager to not be running after stop")
	}
	if client.calls() < 2 {
		t.Errorf("Expected at least 2 health checks, got %d", client.calls())
	}
	if client.lastBucket != "objects" {
		t.Errorf("Expected health check against bucket 'objects', got %q", client.lastBucket)
	}

	// Повторный запуск после остановки
	if err := manager.Start(); err != nil {
		t.Fatalf("Failed to restart manager: %v", err)
	}
	manager.Stop()
}

func TestHealthCheckTransitions(t *testing.T) {
	manager, client := newTestManager(t, nil)
	origin := manager.GetOrigin()

	// PROBING -> UP после SuccessThreshold успехов
	manager.checkBackend(origin)
	if origin.GetState() != StateProbing {
		t.Fatalf("Expected PROBING after one success, got %s", origin.GetState())
	}
	manager.checkBackend(origin)
	if origin.GetState() != StateUp {
		t.Fatalf("Expected UP after two successes, got %s", origin.GetState())
	}
	if origin.GetLastCheckTime().IsZero() {
		t.Error("Expected last check time to be set")
	}

	// UP -> DOWN после FailureThreshold неудач
	client.setErr(fmt.Errorf("connection refused"))
	for i := 0; i < 3; i++ {
		manager.checkBackend(origin)
	}
	if origin.GetState() != StateDown {
		t.Fatalf("Expected DOWN after failures, got %s", origin.GetState())
	}
	if manager.IsLive() {
		t.Error("Expected origin not to be live when DOWN")
	}

	// DOWN -> PROBING при первом успехе
	client.setErr(nil)
	manager.checkBackend(origin)
	if origin.GetState() != StateProbing {
		t.Errorf("Expected PROBING after recovery, got %s", origin.GetState())
	}
	if !manager.IsLive() {
		t.Error("Expected origin to be live when PROBING")
	}
}

func TestReportSuccessFailure(t *testing.T) {
	manager, _ := newTestManager(t, nil)
	origin := manager.GetOrigin()

	manager.ReportSuccess(&BackendResult{BackendID: OriginID, Method: "GET", StatusCode: 200})

	failures, successes, _ := origin.GetStats()
	if failures != 0 || successes != 1 {
		t.Errorf("After ReportSuccess: expected failures=0, successes=1, got failures=%d, successes=%d",
			failures, successes)
	}

	testErr := fmt.Errorf("test error")
	manager.ReportFailure(&BackendResult{BackendID: OriginID, Method: "GET", StatusCode: 500, Err: testErr})

	failures, successes, _ = origin.GetStats()
	if failures != 1 || successes != 0 {
		t.Errorf("After ReportFailure: expected failures=1, successes=0, got failures=%d, successes=%d",
			failures, successes)
	}
	if origin.GetLastError() != testErr {
		t.Errorf("Expected last error to be set")
	}

	// Несуществующий бэкенд не должен вызывать панику
	manager.ReportSuccess(&BackendResult{BackendID: "nonexistent"})
	manager.ReportFailure(&BackendResult{BackendID: "nonexistent", Err: testErr})
}

func TestReportFailure_BenignErrorsIgnored(t *testing.T) {
	manager, _ := newTestManager(t, nil)
	origin := manager.GetOrigin()

	benign := []error{
		&types.NoSuchKey{},
		fmt.Errorf("wrapped: %w", &types.NotFound{}),
		context.Canceled,
	}
	for _, err := range benign {
		manager.ReportFailure(&BackendResult{BackendID: OriginID, Method: "GET", StatusCode: 404, Err: err})
	}

	failures, _, recent := origin.GetStats()
	if failures != 0 || recent != 0 {
		t.Errorf("Benign errors must not count, got failures=%d recent=%d", failures, recent)
	}
}

func TestCircuitBreaker(t *testing.T) {
	manager, _ := newTestManager(t, func(cfg *Config) {
		cfg.Manager.CircuitBreakerThreshold = 3
		cfg.Manager.CircuitBreakerWindow = time.Minute
		cfg.Manager.InitialState = StateUp
	})
	origin := manager.GetOrigin()
	testErr := fmt.Errorf("test error")

	for i := 0; i < 2; i++ {
		manager.ReportFailure(&BackendResult{BackendID: OriginID, Method: "GET", StatusCode: 500, Err: testErr})
	}
	if origin.GetState() != StateUp {
		t.Errorf("Expected state UP after 2 failures, got %s", origin.GetState())
	}

	manager.ReportFailure(&BackendResult{BackendID: OriginID, Method: "GET", StatusCode: 500, Err: testErr})
	if origin.GetState() != StateDown {
		t.Errorf("Expected state DOWN after circuit breaker trigger, got %s", origin.GetState())
	}

	// Успешный запрос возвращает бэкенд в строй
	manager.ReportSuccess(&BackendResult{BackendID: OriginID, Method: "GET", StatusCode: 200})
	if origin.GetState() != StateUp {
		t.Errorf("Expected state UP after success, got %s", origin.GetState())
	}
}

func TestMetricsUpdated(t *testing.T) {
	metrics := NewMetrics(nil)
	manager, err := NewManagerWithClient(DefaultConfig(), &fakeS3{}, metrics)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	if got := testutil.ToFloat64(metrics.BackendState.WithLabelValues(OriginID)); got != 0.5 {
		t.Errorf("Expected state gauge 0.5 (PROBING), got %v", got)
	}

	manager.ReportSuccess(&BackendResult{BackendID: OriginID, Method: "GET", StatusCode: 200, BytesRead: 10})
	manager.AddBytesRead(OriginID, 32)

	if got := testutil.ToFloat64(metrics.BackendRequestsTotal.WithLabelValues(OriginID, "GET", "200")); got != 1 {
		t.Errorf("Expected 1 request counted, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.BackendBytesRead.WithLabelValues(OriginID)); got != 42 {
		t.Errorf("Expected 42 bytes read, got %v", got)
	}
}
