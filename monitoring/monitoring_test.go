package monitoring

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type staticReadiness bool

func (r staticReadiness) IsLive() bool { return bool(r) }

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if !config.Enabled {
		t.Error("Expected monitoring to be enabled by default")
	}

	if config.ListenAddress != ":9091" {
		t.Errorf("Expected default listen address ':9091', got '%s'", config.ListenAddress)
	}

	if config.MetricsPath != "/metrics" {
		t.Errorf("Expected default metrics path '/metrics', got '%s'", config.MetricsPath)
	}

	if err := config.Validate(); err != nil {
		t.Errorf("Expected default config to be valid, got: %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:    "disabled config skips validation",
			config:  &Config{Enabled: false},
			wantErr: false,
		},
		{
			name: "empty listen address",
			config: &Config{
				Enabled:      true,
				MetricsPath:  "/metrics",
				ReadTimeout:  time.Second,
				WriteTimeout: time.Second,
			},
			wantErr: true,
		},
		{
			name: "relative metrics path",
			config: &Config{
				Enabled:       true,
				ListenAddress: ":9091",
				MetricsPath:   "metrics",
				ReadTimeout:   time.Second,
				WriteTimeout:  time.Second,
			},
			wantErr: true,
		},
		{
			name: "zero write timeout",
			config: &Config{
				Enabled:       true,
				ListenAddress: ":9091",
				MetricsPath:   "/metrics",
				ReadTimeout:   time.Second,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewMonitorWithInvalidConfig(t *testing.T) {
	_, err := New(&Config{Enabled: true, MetricsPath: "/metrics"}, nil, nil, nil)
	if err == nil {
		t.Error("Expected error creating monitor with invalid config")
	}
}

func TestMonitorDisabled(t *testing.T) {
	monitor, err := New(&Config{Enabled: false}, nil, nil, nil)
	if err != nil {
		t.Fatalf("Expected no error creating disabled monitor, got: %v", err)
	}

	if monitor.IsEnabled() {
		t.Error("Expected monitor to be disabled")
	}

	if err := monitor.Start(); err != nil {
		t.Errorf("Expected no error starting disabled monitor, got: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := monitor.Stop(ctx); err != nil {
		t.Errorf("Expected no error stopping disabled monitor, got: %v", err)
	}
}

func TestMonitorStartStop(t *testing.T) {
	config := &Config{
		Enabled:       true,
		ListenAddress: "127.0.0.1:0",
		MetricsPath:   "/metrics",
		ReadTimeout:   5 * time.Second,
		WriteTimeout:  5 * time.Second,
	}

	monitor, err := New(config, prometheus.NewRegistry(), nil, nil)
	if err != nil {
		t.Fatalf("Expected no error creating monitor, got: %v", err)
	}

	if err := monitor.Start(); err != nil {
		t.Fatalf("Expected no error starting monitor, got: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := monitor.Stop(ctx); err != nil {
		t.Errorf("Expected no error stopping monitor, got: %v", err)
	}
}

func TestHealthEndpoints(t *testing.T) {
	tests := []struct {
		name         string
		path         string
		readiness    ReadinessChecker
		shuttingDown bool
		wantStatus   int
		wantBody     string
	}{
		{"live", "/health/live", nil, false, http.StatusOK, `{"status":"ok"}`},
		{"live during shutdown", "/health/live", nil, true, http.StatusOK, `{"status":"ok"}`},
		{"ready without origin check", "/health/ready", nil, false, http.StatusOK, `{"status":"ok"}`},
		{"ready with live origin", "/health/ready", staticReadiness(true), false, http.StatusOK, `{"status":"ok"}`},
		{"origin down", "/health/ready", staticReadiness(false), false, http.StatusServiceUnavailable, `{"status":"origin down"}`},
		{"shutting down", "/health/ready", staticReadiness(true), true, http.StatusServiceUnavailable, `{"status":"shutting down"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			monitor, err := New(nil, prometheus.NewRegistry(), nil, tt.readiness)
			if err != nil {
				t.Fatalf("Expected no error creating monitor, got: %v", err)
			}
			if tt.shuttingDown {
				monitor.SetShuttingDown()
			}

			rr := httptest.NewRecorder()
			monitor.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rr.Code != tt.wantStatus {
				t.Errorf("Expected status code %d, got %d", tt.wantStatus, rr.Code)
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Expected Content-Type application/json, got %s", ct)
			}
			if rr.Body.String() != tt.wantBody {
				t.Errorf("Expected body %s, got %s", tt.wantBody, rr.Body.String())
			}
		})
	}
}

func TestHealthRejectsPost(t *testing.T) {
	monitor, err := New(nil, prometheus.NewRegistry(), nil, nil)
	if err != nil {
		t.Fatalf("Expected no error creating monitor, got: %v", err)
	}

	rr := httptest.NewRecorder()
	monitor.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/health/live", nil))

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status code %d, got %d", http.StatusMethodNotAllowed, rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	pending := int64(3)
	metrics := NewMetrics(registry, "test", func() int64 { return pending })

	monitor, err := New(nil, registry, metrics, nil)
	if err != nil {
		t.Fatalf("Expected no error creating monitor, got: %v", err)
	}
	monitor.SetShuttingDown()

	if v := testutil.ToFloat64(metrics.ShuttingDown); v != 1 {
		t.Errorf("Expected shutting down gauge 1, got %v", v)
	}
	if v := testutil.ToFloat64(metrics.PendingWrites); v != 3 {
		t.Errorf("Expected pending writes 3, got %v", v)
	}

	rr := httptest.NewRecorder()
	monitor.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status code %d, got %d", http.StatusOK, rr.Code)
	}

	body := rr.Body.String()
	for _, name := range []string{
		`objgate_build_info{version="test"} 1`,
		"objgate_background_tasks_pending 3",
		"objgate_shutting_down 1",
		"objgate_start_time_seconds",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("Expected metrics output to contain %q", name)
		}
	}
}

func TestNewRegistrySystemMetrics(t *testing.T) {
	withSystem := NewRegistry(&Config{EnableSystemMetrics: true})
	families, err := withSystem.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	found := false
	for _, mf := range families {
		if mf.GetName() == "go_goroutines" {
			found = true
		}
	}
	if !found {
		t.Error("Expected go_goroutines in registry with system metrics")
	}

	bare := NewRegistry(&Config{EnableSystemMetrics: false})
	families, err = bare.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if len(families) != 0 {
		t.Errorf("Expected empty registry, got %d families", len(families))
	}
}
