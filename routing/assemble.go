package routing

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"objgate/apigw"
	"objgate/fetch"
)

// Assemble формирует ответ для найденного объекта.
// Порядок: 304 при совпадении If-None-Match (только без Range), иначе 206 или 200
// со стандартным набором заголовков. Тело не передается для 304 и HEAD;
// в этих случаях тело объекта закрывается здесь.
func Assemble(req *apigw.ObjectRequest, obj *fetch.Object, headers HeaderConfig) *apigw.ObjectResponse {
	meta := &obj.Metadata

	// Отсутствующий If-None-Match не совпадает даже с пустым ETag
	if !req.IsRange && req.IfNoneMatch != "" && req.IfNoneMatch == meta.ETag {
		closeBody(obj.Body)
		h := make(http.Header)
		h.Set("ETag", meta.ETag)
		h.Set("Cache-Control", headers.NotModifiedCacheControl)
		setAllowOrigin(h, headers)
		return &apigw.ObjectResponse{
			StatusCode: http.StatusNotModified,
			Headers:    h,
		}
	}

	h := make(http.Header)
	meta.WriteHTTPMetadata(h)

	contentType := meta.ContentType
	if contentType == "" {
		contentType = headers.DefaultContentType
	}
	h.Set("Content-Type", contentType)
	h.Set("ETag", meta.ETag)
	h.Set("Accept-Ranges", "bytes")
	h.Set("Cache-Control", headers.CacheControl)
	setAllowOrigin(h, headers)

	if !req.IsRange && meta.Size >= 0 {
		h.Set("Content-Length", strconv.FormatInt(meta.Size, 10))
	}

	statusCode := http.StatusOK
	if meta.IsRange {
		statusCode = http.StatusPartialContent
	}

	body := obj.Body
	if req.Method == http.MethodHead {
		closeBody(body)
		body = nil
	}

	return &apigw.ObjectResponse{
		StatusCode: statusCode,
		Headers:    h,
		Body:       body,
	}
}

// TextResponse формирует терминальный ответ с текстовым телом (404, 405)
func TextResponse(statusCode int, text string) *apigw.ObjectResponse {
	h := make(http.Header)
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Content-Length", strconv.Itoa(len(text)))
	return &apigw.ObjectResponse{
		StatusCode: statusCode,
		Headers:    h,
		Body:       io.NopCloser(strings.NewReader(text)),
	}
}

func setAllowOrigin(h http.Header, headers HeaderConfig) {
	if headers.AllowOrigin != "" {
		h.Set("Access-Control-Allow-Origin", headers.AllowOrigin)
	}
}

func closeBody(body io.ReadCloser) {
	if body != nil {
		body.Close()
	}
}
