package routing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"objgate/apigw"
	"objgate/cache"
	"objgate/fetch"
	"objgate/logger"
)

// Engine - обработчик запросов на чтение объектов.
// Порядок: проверка метода, поиск в кэше (без Range), запрос к хранилищу,
// сборка ответа, фоновая запись полного ответа в кэш.
type Engine struct {
	// Зависимости, внедряемые при создании
	store  fetch.ObjectStore // Хранилище-источник
	cache  cache.EdgeCache   // Edge-кэш полных ответов
	writer *cache.Writer     // Фоновая запись в кэш

	headers HeaderConfig
	metrics *Metrics
}

// NewEngine создает новый экземпляр Engine. config и metrics могут быть nil.
func NewEngine(
	store fetch.ObjectStore,
	edgeCache cache.EdgeCache,
	writer *cache.Writer,
	config *Config,
	metrics *Metrics,
) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	return &Engine{
		store:   store,
		cache:   edgeCache,
		writer:  writer,
		headers: config.Headers,
		metrics: metrics,
	}
}

// Handle - реализация интерфейса RequestHandler. Это точка входа в модуль.
// Сбои хранилища и кэша не транслируются в ответ, а возвращаются как ошибка.
func (e *Engine) Handle(req *apigw.ObjectRequest) (*apigw.ObjectResponse, error) {
	log := logger.Global().With(req.RequestID)

	// Шаг 1: только GET и HEAD
	if !req.IsReadMethod() {
		log.Debug("Method %s not allowed", req.Method)
		e.observe(OutcomeMethodNotAllowed)
		return TextResponse(http.StatusMethodNotAllowed, "Method Not Allowed"), nil
	}

	ctx := req.Context

	// Шаг 2: кэш, только для запросов без Range
	if !req.IsRange {
		start := time.Now()
		stored, found, err := e.cache.Match(ctx, req.CacheKey)
		switch {
		case err != nil:
			e.metrics.CacheLatency.WithLabelValues("error").Observe(time.Since(start).Seconds())
			e.observe(OutcomeError)
			return nil, fmt.Errorf("cache lookup for %s: %w", req.CacheKey, err)
		case found:
			e.metrics.CacheLatency.WithLabelValues("hit").Observe(time.Since(start).Seconds())
			log.Debug("Cache hit for %s", req.CacheKey)
			e.observe(OutcomeCacheHit)
			return responseFromStored(stored), nil
		default:
			e.metrics.CacheLatency.WithLabelValues("miss").Observe(time.Since(start).Seconds())
			log.Debug("Cache miss for %s", req.CacheKey)
		}
	}

	// Шаг 3: хранилище. Тело ответа, который пойдет в кэш, дочитывается
	// в фоне и после отключения клиента, поэтому отмена запроса его не прерывает.
	fetchCtx := ctx
	if e.writer != nil && cacheable(req) {
		fetchCtx = context.WithoutCancel(ctx)
	}
	start := time.Now()
	obj, err := e.store.GetObject(fetchCtx, req.Key, req.Range)
	e.metrics.OriginLatency.Observe(time.Since(start).Seconds())
	if errors.Is(err, fetch.ErrObjectNotFound) {
		log.Debug("Object %q not found", req.Key)
		e.observe(OutcomeNotFound)
		return TextResponse(http.StatusNotFound, "Not Found"), nil
	}
	if err != nil {
		e.observe(OutcomeError)
		return nil, fmt.Errorf("fetch object %q: %w", req.Key, err)
	}

	// Шаг 4: сборка ответа
	resp := Assemble(req, obj, e.headers)
	if resp.StatusCode == http.StatusNotModified {
		log.Debug("ETag %s matched for %q", obj.Metadata.ETag, req.Key)
		e.observe(OutcomeNotModified)
		return resp, nil
	}
	e.observe(OutcomeOrigin)

	// Шаг 5: полный ответ на GET уходит в кэш после отправки клиенту
	if e.writer != nil && shouldCache(req, resp) {
		resp.Body = e.writer.Tee(req.CacheKey, resp.StatusCode, resp.Headers, resp.Body)
	}

	return resp, nil
}

// cacheable: в кэш попадают только ответы на GET без Range
func cacheable(req *apigw.ObjectRequest) bool {
	return !req.IsRange && req.Method == http.MethodGet
}

// shouldCache: в кэш попадают только полные 200-ответы на GET без Range
func shouldCache(req *apigw.ObjectRequest, resp *apigw.ObjectResponse) bool {
	return cacheable(req) && resp.StatusCode == http.StatusOK
}

// responseFromStored возвращает закэшированный ответ без изменений
func responseFromStored(stored *cache.StoredResponse) *apigw.ObjectResponse {
	return &apigw.ObjectResponse{
		StatusCode: stored.StatusCode,
		Headers:    stored.Header.Clone(),
		Body:       io.NopCloser(bytes.NewReader(stored.Body)),
	}
}

func (e *Engine) observe(outcome string) {
	e.metrics.OutcomesTotal.WithLabelValues(outcome).Inc()
}
