package apigw

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"objgate/logger"
)

// Gateway представляет модуль API Gateway
type Gateway struct {
	config         Config
	handler        RequestHandler
	parser         *RequestParser
	responseWriter *ResponseWriter
	server         *http.Server
	metrics        *Metrics
}

// New создает новый экземпляр API Gateway. metrics может быть nil.
func New(config Config, handler RequestHandler, metrics *Metrics) *Gateway {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	gw := &Gateway{
		config:         config,
		handler:        handler,
		parser:         NewRequestParser(config.TrustForwardedProto),
		responseWriter: NewResponseWriter(),
		metrics:        metrics,
	}
	// Сервер создается здесь, чтобы Stop мог вызываться до и во время Start
	gw.server = &http.Server{
		Addr:         config.ListenAddress,
		Handler:      gw,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	return gw
}

// ServeHTTP реализует интерфейс http.Handler
func (gw *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	gw.metrics.InFlight.Inc()
	defer gw.metrics.InFlight.Dec()

	requestID := uuid.NewString()
	log := logger.Global().With(requestID)
	log.Info("Incoming request: %s %s", r.Method, r.URL.Path)
	log.Debug("Request headers: %+v", r.Header)

	statusCode := gw.serve(w, r, requestID, log)

	latency := time.Since(start)
	log.Info("Response sent: %d, %.3f ms", statusCode, float64(latency.Microseconds())/1000.0)
	gw.metrics.RequestsTotal.WithLabelValues(r.Method, strconv.Itoa(statusCode)).Inc()
	gw.metrics.RequestLatency.WithLabelValues(r.Method).Observe(latency.Seconds())
}

// serve обрабатывает запрос и возвращает отправленный код ответа
func (gw *Gateway) serve(w http.ResponseWriter, r *http.Request, requestID string, log *logger.Logger) int {
	req, err := gw.parser.Parse(r)
	if err != nil {
		log.Warn("Failed to parse request: %v", err)
		gw.responseWriter.WriteBadRequest(w)
		return http.StatusBadRequest
	}
	req.RequestID = requestID

	resp, err := gw.handler.Handle(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Debug("Request canceled by client: %v", err)
		} else {
			log.Error("Failed to handle request: %v", err)
		}
		gw.responseWriter.WriteInternalError(w)
		return http.StatusInternalServerError
	}

	written, err := gw.responseWriter.WriteResponse(w, r.Method, resp)
	gw.metrics.BytesSent.Add(float64(written))
	if err != nil {
		log.Warn("Failed to write response body after %d bytes: %v", written, err)
	}
	return resp.StatusCode
}

// Start запускает сервер и блокируется до его остановки
// Если Stop уже был вызван, сразу возвращает nil.
func (gw *Gateway) Start() error {
	logger.Info("Starting API Gateway on %s", gw.config.ListenAddress)

	var err error
	// Проверяем, нужно ли использовать TLS
	if gw.config.TLSCertFile != "" && gw.config.TLSKeyFile != "" {
		logger.Info("Starting HTTPS server with TLS")
		err = gw.server.ListenAndServeTLS(gw.config.TLSCertFile, gw.config.TLSKeyFile)
	} else {
		logger.Info("Starting HTTP server")
		err = gw.server.ListenAndServe()
	}

	// Штатная остановка через Stop
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop останавливает сервер, дожидаясь завершения активных запросов
func (gw *Gateway) Stop(ctx context.Context) error {
	logger.Info("Stopping API Gateway...")
	return gw.server.Shutdown(ctx)
}
