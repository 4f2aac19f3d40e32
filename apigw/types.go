package apigw

import (
	"context"
	"io"
	"net/http"
	"net/url"
)

// ObjectRequest - внутреннее представление запроса на чтение объекта.
// Создается модулем API Gateway из http.Request.
type ObjectRequest struct {
	// HTTP метод запроса как есть
	Method string

	// Ключ объекта: путь URL без ведущего "/". Не декодируется и не проверяется.
	Key string

	// Значение заголовка Range, передается хранилищу без разбора
	Range string

	// IsRange - заголовок Range присутствует и не пуст
	IsRange bool

	// Значение заголовка If-None-Match для точного сравнения с ETag
	IfNoneMatch string

	// Абсолютный URL запроса (схема, хост, путь, query)
	URL *url.URL

	// Ключ edge-кэша, не зависит от Range и If-None-Match
	CacheKey string

	// Идентификатор запроса для логов
	RequestID string

	// Оригинальный контекст запроса для поддержки отмены
	Context context.Context
}

// IsReadMethod возвращает true для GET и HEAD
func (r *ObjectRequest) IsReadMethod() bool {
	return r.Method == http.MethodGet || r.Method == http.MethodHead
}

// ObjectResponse - внутреннее представление ответа.
// Формируется обработчиком и отправляется клиенту модулем API Gateway.
type ObjectResponse struct {
	// HTTP код состояния
	StatusCode int

	// Заголовки для отправки клиенту
	Headers http.Header

	// Тело ответа, передается потоком. nil означает пустое тело.
	Body io.ReadCloser
}

// RequestHandler - интерфейс обработчика, который формирует ответ на запрос.
// Ошибка означает сбой хранилища или кэша; Gateway превращает ее в 500.
type RequestHandler interface {
	Handle(req *ObjectRequest) (*ObjectResponse, error)
}
