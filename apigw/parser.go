package apigw

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"objgate/cache"
	"objgate/logger"
)

// ErrInvalidPath возвращается для запросов, путь которых не начинается с "/"
var ErrInvalidPath = errors.New("request path must start with '/'")

// RequestParser отвечает за парсинг HTTP запросов в ObjectRequest
type RequestParser struct {
	// trustForwardedProto - учитывать X-Forwarded-Proto при определении схемы
	trustForwardedProto bool
}

// NewRequestParser создает новый экземпляр парсера
func NewRequestParser(trustForwardedProto bool) *RequestParser {
	return &RequestParser{trustForwardedProto: trustForwardedProto}
}

// Parse анализирует HTTP запрос и создает ObjectRequest.
// Для методов кроме GET и HEAD остальные поля не заполняются: такой запрос
// завершается ответом 405 независимо от пути и заголовков.
func (p *RequestParser) Parse(r *http.Request) (*ObjectRequest, error) {
	logger.Debug("Parsing HTTP request: %s %s", r.Method, r.URL.Path)

	req := &ObjectRequest{
		Method:  r.Method,
		Context: r.Context(),
	}
	if !req.IsReadMethod() {
		return req, nil
	}

	if !strings.HasPrefix(r.URL.Path, "/") {
		return nil, ErrInvalidPath
	}
	// Ключ берется в исходном (экранированном) виде, без декодирования
	req.Key = strings.TrimPrefix(r.URL.EscapedPath(), "/")

	req.Range = r.Header.Get("Range")
	req.IsRange = req.Range != ""
	req.IfNoneMatch = r.Header.Get("If-None-Match")

	req.URL = &url.URL{
		Scheme:   p.scheme(r),
		Host:     r.Host,
		Path:     r.URL.Path,
		RawPath:  r.URL.RawPath,
		RawQuery: r.URL.RawQuery,
	}
	req.CacheKey = cache.Key(req.URL)

	logger.Debug("Parsed request - Key: %q, Range: %q, If-None-Match: %q, CacheKey: %s",
		req.Key, req.Range, req.IfNoneMatch, req.CacheKey)
	return req, nil
}

// scheme определяет схему из запроса
func (p *RequestParser) scheme(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	// Также проверяем заголовки для случаев с прокси/балансировщиками
	if p.trustForwardedProto && r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme
}
