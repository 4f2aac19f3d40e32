package apigw

import (
	"io"
	"net/http"

	"objgate/logger"
)

// ResponseWriter отвечает за отправку ObjectResponse клиенту
type ResponseWriter struct{}

// NewResponseWriter создает новый экземпляр writer'а ответов
func NewResponseWriter() *ResponseWriter {
	return &ResponseWriter{}
}

// WriteResponse записывает ObjectResponse в http.ResponseWriter.
// Для HEAD тело не отправляется, но закрывается.
func (rw *ResponseWriter) WriteResponse(w http.ResponseWriter, method string, resp *ObjectResponse) (int64, error) {
	logger.Debug("Writing response: status=%d, hasBody=%t", resp.StatusCode, resp.Body != nil)

	if resp.Body != nil {
		defer resp.Body.Close()
	}

	// Копируем заголовки
	for key, values := range resp.Headers {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}

	// Устанавливаем код ответа
	w.WriteHeader(resp.StatusCode)

	if resp.Body == nil || method == http.MethodHead {
		return 0, nil
	}

	written, err := io.Copy(w, resp.Body)
	if err != nil {
		logger.Debug("Error writing response body: %v", err)
	}
	return written, err
}

// WriteInternalError отправляет обобщенный ответ 500
func (rw *ResponseWriter) WriteInternalError(w http.ResponseWriter) {
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// WriteBadRequest отправляет ответ 400 для запросов, которые нельзя разобрать
func (rw *ResponseWriter) WriteBadRequest(w http.ResponseWriter) {
	http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
}
