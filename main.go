package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"objgate/apigw"
	"objgate/backend"
	"objgate/background"
	"objgate/cache"
	"objgate/fetch"
	"objgate/logger"
	"objgate/monitoring"
	"objgate/routing"
)

// version задается при сборке через -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Парсим аргументы командной строки
	var (
		configFile     = flag.String("config", "", "Configuration file path (YAML); defaults are used when empty")
		listenAddr     = flag.String("listen", "", "Listen address (overrides config)")
		tlsCert        = flag.String("tls-cert", "", "TLS certificate file (overrides config)")
		tlsKey         = flag.String("tls-key", "", "TLS key file (overrides config)")
		readTimeout    = flag.Duration("read-timeout", 0, "Read timeout (overrides config)")
		writeTimeout   = flag.Duration("write-timeout", 0, "Write timeout (overrides config)")
		useMock        = flag.Bool("mock", false, "Serve objects from memory instead of S3 (overrides config)")
		mockDir        = flag.String("mock-dir", "", "Directory loaded into the in-memory store (overrides config)")
		cacheType      = flag.String("cache", "", "Cache type: memory, sqlite, none (overrides config)")
		logLevel       = flag.String("log-level", "", "Log level (debug, info, warn, error) (overrides config)")
		logFile        = flag.String("log-file", "", "Log file with rotation (overrides config)")
		metricsAddr    = flag.String("metrics-listen", "", "Metrics server listen address (overrides config)")
		disableMetrics = flag.Bool("disable-metrics", false, "Disable metrics server (overrides config)")
	)
	flag.Parse()

	config := DefaultAppConfig()
	if *configFile != "" {
		logger.Info("Loading configuration from file: %s", *configFile)
		loaded, err := LoadConfig(*configFile)
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		config = loaded
		logger.Info("Configuration loaded successfully")
	}

	applyCommandLineOverrides(config, overrides{
		listenAddr:     *listenAddr,
		tlsCert:        *tlsCert,
		tlsKey:         *tlsKey,
		readTimeout:    *readTimeout,
		writeTimeout:   *writeTimeout,
		useMock:        *useMock,
		mockDir:        *mockDir,
		cacheType:      *cacheType,
		logLevel:       *logLevel,
		logFile:        *logFile,
		metricsAddr:    *metricsAddr,
		disableMetrics: *disableMetrics,
	})

	if err := config.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Логирование
	level := logger.ParseLogLevel(config.Logging.Level)
	logger.SetGlobalLevel(level)
	logCloser, err := logger.ConfigureOutput(config.Logging.OutputConfig)
	if err != nil {
		log.Fatalf("Failed to configure log output: %v", err)
	}

	logger.Info("objgate %s starting...", version)
	logger.Info("Log level: %s", level.String())

	// Все модули регистрируют метрики в одном registry
	registry := monitoring.NewRegistry(&config.Monitoring)
	group := background.NewGroup()
	monitoringMetrics := monitoring.NewMetrics(registry, version, group.Pending)

	// Источник объектов
	var store fetch.ObjectStore
	var backendManager *backend.Manager
	var readiness monitoring.ReadinessChecker

	if config.Server.Mock {
		memStore := fetch.NewMemoryStore()
		if config.Server.MockObjectsDir != "" {
			n, err := memStore.LoadDir(config.Server.MockObjectsDir)
			if err != nil {
				log.Fatalf("Failed to load mock objects: %v", err)
			}
			logger.Info("Loaded %d objects from %s", n, config.Server.MockObjectsDir)
		}
		logger.Info("Using in-memory object store")
		store = memStore
	} else {
		backendManager, err = backend.NewManager(&config.Backend, backend.NewMetrics(registry))
		if err != nil {
			log.Fatalf("Failed to create backend manager: %v", err)
		}

		if err := backendManager.Start(); err != nil {
			log.Fatalf("Failed to start backend manager: %v", err)
		}

		origin := backendManager.GetOrigin()
		logger.Info("Origin: %s (bucket: %s)", origin.Config.Endpoint, origin.Config.Bucket)

		store = fetch.NewS3Store(backendManager)
		readiness = backendManager
	}

	// Edge-кэш и фоновая запись
	cacheMetrics := cache.NewMetrics(registry)
	edgeCache, err := cache.New(&config.Cache, cacheMetrics)
	if err != nil {
		log.Fatalf("Failed to create cache: %v", err)
	}
	writer := cache.NewWriter(edgeCache, group, config.Cache.MaxObjectSize, cacheMetrics)
	logger.Info("Edge cache: %s", config.Cache.Type)

	engine := routing.NewEngine(store, edgeCache, writer, config.RoutingConfig(), routing.NewMetrics(registry))

	// Мониторинг
	var monitor *monitoring.Monitor
	if config.Monitoring.Enabled {
		monitor, err = monitoring.New(&config.Monitoring, registry, monitoringMetrics, readiness)
		if err != nil {
			log.Fatalf("Failed to create monitoring module: %v", err)
		}

		if err := monitor.Start(); err != nil {
			log.Fatalf("Failed to start monitoring module: %v", err)
		}
	} else {
		logger.Info("Monitoring disabled")
	}

	gatewayConfig := config.Server.Config
	gateway := apigw.New(gatewayConfig, engine, apigw.NewMetrics(registry))

	logger.Info("Configuration:")
	logger.Info("  Listen Address: %s", gatewayConfig.ListenAddress)
	logger.Info("  Read Timeout: %v", gatewayConfig.ReadTimeout)
	logger.Info("  Write Timeout: %v", gatewayConfig.WriteTimeout)
	if gatewayConfig.TLSCertFile != "" {
		logger.Info("  TLS Enabled: Yes")
		logger.Info("  TLS Cert: %s", gatewayConfig.TLSCertFile)
		logger.Info("  TLS Key: %s", gatewayConfig.TLSKeyFile)
	} else {
		logger.Info("  TLS Enabled: No")
	}

	// Настраиваем graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := gateway.Start(); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	logger.Info("objgate started successfully")

	sig := <-sigChan
	logger.Info("Received signal %v, shutting down...", sig)

	shutdown(gateway, group, edgeCache, backendManager, monitor, logCloser)
}

// shutdown останавливает модули в порядке, обратном зависимостям:
// сначала прием запросов, затем фоновые записи, затем кэш и источник.
func shutdown(
	gateway *apigw.Gateway,
	group *background.Group,
	edgeCache cache.EdgeCache,
	backendManager *backend.Manager,
	monitor *monitoring.Monitor,
	logCloser io.Closer,
) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if monitor != nil {
		monitor.SetShuttingDown()
	}

	if err := gateway.Stop(ctx); err != nil {
		logger.Error("Error stopping API Gateway: %v", err)
	}

	if err := group.Wait(ctx); err != nil {
		logger.Warn("Background cache writes: %v", err)
	}

	if err := edgeCache.Close(); err != nil {
		logger.Error("Error closing cache: %v", err)
	}

	if backendManager != nil {
		if err := backendManager.Stop(); err != nil {
			logger.Error("Error stopping backend manager: %v", err)
		}
	}

	if monitor != nil {
		if err := monitor.Stop(ctx); err != nil {
			logger.Error("Error stopping monitoring: %v", err)
		}
	}

	logger.Info("objgate stopped")
	logCloser.Close()
}

// overrides - значения флагов командной строки; нулевые значения игнорируются
type overrides struct {
	listenAddr, tlsCert, tlsKey string
	readTimeout, writeTimeout   time.Duration
	useMock                     bool
	mockDir                     string
	cacheType                   string
	logLevel, logFile           string
	metricsAddr                 string
	disableMetrics              bool
}

// applyCommandLineOverrides применяет переопределения из командной строки
func applyCommandLineOverrides(config *AppConfig, o overrides) {
	// Переопределения сервера
	if o.listenAddr != "" {
		config.Server.ListenAddress = o.listenAddr
		logger.Debug("Override: server.listen_address = %s", o.listenAddr)
	}

	if o.tlsCert != "" {
		config.Server.TLSCertFile = o.tlsCert
		logger.Debug("Override: server.tls_cert_file = %s", o.tlsCert)
	}

	if o.tlsKey != "" {
		config.Server.TLSKeyFile = o.tlsKey
		logger.Debug("Override: server.tls_key_file = %s", o.tlsKey)
	}

	if o.readTimeout > 0 {
		config.Server.ReadTimeout = o.readTimeout
		logger.Debug("Override: server.read_timeout = %v", o.readTimeout)
	}

	if o.writeTimeout > 0 {
		config.Server.WriteTimeout = o.writeTimeout
		logger.Debug("Override: server.write_timeout = %v", o.writeTimeout)
	}

	if o.useMock {
		config.Server.Mock = true
		logger.Debug("Override: server.mock = true")
	}

	if o.mockDir != "" {
		config.Server.MockObjectsDir = o.mockDir
		logger.Debug("Override: server.mock_objects_dir = %s", o.mockDir)
	}

	if o.cacheType != "" {
		config.Cache.Type = o.cacheType
		logger.Debug("Override: cache.type = %s", o.cacheType)
	}

	// Переопределения логирования
	if o.logLevel != "" {
		config.Logging.Level = o.logLevel
		logger.Debug("Override: logging.level = %s", o.logLevel)
	}

	if o.logFile != "" {
		config.Logging.File = o.logFile
		logger.Debug("Override: logging.file = %s", o.logFile)
	}

	// Переопределения мониторинга
	if o.metricsAddr != "" {
		config.Monitoring.ListenAddress = o.metricsAddr
		logger.Debug("Override: monitoring.listen_address = %s", o.metricsAddr)
	}

	if o.disableMetrics {
		config.Monitoring.Enabled = false
		logger.Debug("Override: monitoring.enabled = false")
	}
}
